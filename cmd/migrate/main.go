package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"qpinta/internal/config"
	"qpinta/internal/database"
	"qpinta/internal/logger"

	"go.uber.org/zap"
)

var errUnknownCommand = errors.New("unknown command")

var commands = map[string]func(context.Context, *sql.DB, *zap.Logger) error{
	"up":     database.RunMigrations,
	"down":   database.RollbackMigration,
	"status": database.MigrationStatus,
}

// run executes one migration command. The connection is closed before it
// returns, whatever the outcome.
func run(ctx context.Context, cfg config.DatabaseConfig, command string, log *zap.Logger) error {
	migrate, ok := commands[command]
	if !ok {
		return fmt.Errorf("%w %q", errUnknownCommand, command)
	}

	db, err := database.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	return migrate(ctx, db, log)
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [up|down|status]\n", os.Args[0])
		flag.PrintDefaults()
	}
	timeout := flag.Duration("timeout", time.Minute, "abort when the migration takes longer than this")
	flag.Parse()

	command := "up"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	cfg := config.Load()
	log := logger.NewWithDefaults("migrate")

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	err := run(ctx, cfg.Database, command, log)
	cancel()

	if err != nil {
		log.Error("Migration failed", zap.String("command", command), zap.Error(err))
		log.Sync()
		if errors.Is(err, errUnknownCommand) {
			flag.Usage()
			os.Exit(2)
		}
		os.Exit(1)
	}
	log.Sync()
}
