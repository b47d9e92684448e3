// Command migrate manages the users and hubspot_sync_logs schema.
package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/fintrack/backend/internal/infrastructure/config"
	"github.com/fintrack/backend/internal/infrastructure/logger"
	"github.com/fintrack/backend/internal/infrastructure/migration"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

var errUsage = errors.New("invalid arguments")

// fileCommand works on the migrations directory only
type fileCommand func(dir string, args []string, log *zap.Logger) error

// dbCommand needs a live migrator
type dbCommand func(m *migration.Migrator, args []string, log *zap.Logger) error

var fileCommands = map[string]fileCommand{
	"create": createMigration,
	"list":   listMigrations,
}

var dbCommands = map[string]dbCommand{
	"up":      func(m *migration.Migrator, _ []string, _ *zap.Logger) error { return m.Up() },
	"down":    func(m *migration.Migrator, _ []string, _ *zap.Logger) error { return m.Down() },
	"step":    stepMigrations,
	"version": showVersion,
	"force":   forceVersion,
}

func main() {
	var (
		path     string
		logLevel string
	)
	flag.StringVar(&path, "path", "", "Path to migrations directory (default: search for ./migrations)")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(2)
	}
	name, rest := args[0], args[1:]

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	if err := run(name, rest, path, log); err != nil {
		if errors.Is(err, errUsage) {
			printUsage()
		}
		log.Fatal("Migration command failed", zap.String("command", name), zap.Error(err))
	}
}

func run(name string, args []string, path string, log *zap.Logger) error {
	dir, err := migration.Locate(path)
	if err != nil {
		return err
	}
	log.Debug("Using migrations directory", zap.String("path", dir))

	if cmd, ok := fileCommands[name]; ok {
		return cmd(dir, args, log)
	}
	cmd, ok := dbCommands[name]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", errUsage, name)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	m, err := migration.New(db, dir, log)
	if err != nil {
		return err
	}
	defer m.Close()

	return cmd(m, args, log)
}

func createMigration(dir string, args []string, log *zap.Logger) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: create needs a name", errUsage)
	}
	description := ""
	if len(args) > 1 {
		description = args[1]
	}
	mf, err := migration.CreateMigration(dir, args[0], description)
	if err != nil {
		return err
	}
	log.Info("Migration created",
		zap.String("version", mf.Version),
		zap.String("up_file", mf.UpPath),
		zap.String("down_file", mf.DownPath),
	)
	return nil
}

func listMigrations(dir string, _ []string, log *zap.Logger) error {
	names, err := migration.ListMigrations(dir)
	if err != nil {
		return err
	}
	log.Info("Available migrations", zap.Int("count", len(names)))
	for _, n := range names {
		fmt.Println("  -", n)
	}
	return nil
}

func stepMigrations(m *migration.Migrator, args []string, _ *zap.Logger) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: step needs a count", errUsage)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("%w: step count %q", errUsage, args[0])
	}
	return m.Steps(n)
}

func showVersion(m *migration.Migrator, _ []string, log *zap.Logger) error {
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	if version == 0 {
		log.Info("No migrations applied")
		return nil
	}
	log.Info("Current migration version", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

func forceVersion(m *migration.Migrator, args []string, log *zap.Logger) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: force needs a version", errUsage)
	}
	version, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("%w: version %q", errUsage, args[0])
	}
	log.Warn("Forcing migration version", zap.Int("version", version))
	return m.Force(version)
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: migrate [flags] <command> [arguments]

Commands:
  up                    Apply all pending migrations
  down                  Roll back all migrations
  step <n>              Apply n migrations (negative rolls back)
  version               Show the applied version
  force <version>       Set the version after a failed run
  create <name> [desc]  Write a new up/down migration pair
  list                  List migration files

Flags:
  -path string          Migrations directory
  -log-level string     debug, info, warn, error (default: info)

Connection settings come from config.toml or FINTRACK_DATABASE_* variables.`)
}
