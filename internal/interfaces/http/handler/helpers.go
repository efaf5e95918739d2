package handler

import "time"

// layerDateFormat is the wire format for layer dates
const layerDateFormat = "2006-01-02"

// parseLayerDate parses an optional YYYY-MM-DD date string. An empty
// string returns the zero time; the application layer defaults it to
// today.
func parseLayerDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(layerDateFormat, raw)
}
