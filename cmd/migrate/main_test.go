package main

import (
	"context"
	"errors"
	"testing"

	"qpinta/internal/config"

	"go.uber.org/zap"
)

func TestRunRejectsUnknownCommandBeforeConnecting(t *testing.T) {
	// An unreachable database proves no connection is attempted.
	cfg := config.DatabaseConfig{Host: "127.0.0.1", Port: "1"}

	err := run(context.Background(), cfg, "sideways", zap.NewNop())
	if !errors.Is(err, errUnknownCommand) {
		t.Errorf("expected unknown command error, got %v", err)
	}
}

func TestRunReportsUnreachableDatabase(t *testing.T) {
	cfg := config.DatabaseConfig{Host: "127.0.0.1", Port: "1", User: "u", Database: "d", Schema: "public"}

	for command := range commands {
		t.Run(command, func(t *testing.T) {
			err := run(context.Background(), cfg, command, zap.NewNop())
			if err == nil || errors.Is(err, errUnknownCommand) {
				t.Errorf("expected a connection error, got %v", err)
			}
		})
	}
}
