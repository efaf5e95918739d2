package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/backoffice/backend/internal/infrastructure/config"
	"github.com/backoffice/backend/internal/infrastructure/logger"
	"github.com/backoffice/backend/internal/infrastructure/migration"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const usage = `Back-office schema migration tool

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                    Apply all pending migrations
  down                  Roll back all applied migrations
  step <n>              Apply n migrations (negative n rolls back)
  version               Show the current schema version
  force <version>       Overwrite the recorded version (dirty-state repair)
  create <name> [desc]  Create an empty up/down migration pair
  list                  List the migration files

Flags:
  -path string          Migrations directory (default ./migrations)
  -log-level string     debug, info, warn or error (default info)

Database connection comes from config.toml or BACKOFFICE_DATABASE_* env vars.`

func main() {
	var (
		dir      string
		logLevel string
	)
	flag.StringVar(&dir, "path", "migrations", "migrations directory")
	flag.StringVar(&logLevel, "log-level", "info", "log level")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(1)
	}
	command := args[0]

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	dir, err = filepath.Abs(dir)
	if err != nil {
		log.Fatal("resolve migrations directory", zap.Error(err))
	}

	// create and list never touch the database.
	switch command {
	case "create":
		if len(args) < 2 {
			log.Fatal("usage: migrate create <name> [description]")
		}
		description := ""
		if len(args) > 2 {
			description = args[2]
		}
		pair, err := migration.Create(dir, args[1], description)
		if err != nil {
			log.Fatal("create migration", zap.Error(err))
		}
		log.Info("migration created",
			zap.String("up", pair.UpPath),
			zap.String("down", pair.DownPath),
		)
		return

	case "list":
		names, err := migration.List(dir)
		if err != nil {
			log.Fatal("list migrations", zap.Error(err))
		}
		log.Info("migrations found", zap.Int("count", len(names)))
		for _, name := range names {
			fmt.Println("  -", name)
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("load configuration", zap.Error(err))
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("open database", zap.Error(err))
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatal("ping database", zap.Error(err))
	}

	runner, err := migration.New(db, dir, log)
	if err != nil {
		log.Fatal("create migration runner", zap.Error(err))
	}
	defer runner.Close()

	switch command {
	case "up":
		err = runner.Up()

	case "down":
		err = runner.Down()

	case "step":
		if len(args) < 2 {
			log.Fatal("usage: migrate step <n>")
		}
		n, convErr := strconv.Atoi(args[1])
		if convErr != nil {
			log.Fatal("step count must be an integer", zap.String("value", args[1]))
		}
		err = runner.Steps(n)

	case "version":
		version, dirty, verr := runner.Version()
		if verr != nil {
			log.Fatal("read version", zap.Error(verr))
		}
		if version == 0 {
			log.Info("no migrations applied")
		} else {
			log.Info("schema version", zap.Uint("version", version), zap.Bool("dirty", dirty))
		}

	case "force":
		if len(args) < 2 {
			log.Fatal("usage: migrate force <version>")
		}
		version, convErr := strconv.Atoi(args[1])
		if convErr != nil {
			log.Fatal("version must be an integer", zap.String("value", args[1]))
		}
		err = runner.Force(version)

	default:
		fmt.Fprintln(os.Stderr, usage)
		log.Fatal("unknown command", zap.String("command", command))
	}

	if err != nil {
		log.Fatal("migration failed", zap.String("command", command), zap.Error(err))
	}
}
