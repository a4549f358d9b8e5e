package app

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"K10PlusExport/internal/config"
	"K10PlusExport/internal/domain"
	"K10PlusExport/internal/infrastructure/storage"
)

func testConfig() config.Config {
	cfg := config.Load()
	cfg.Database.DSN = ""
	cfg.Notifications.Telegram = config.TelegramConfig{}
	return cfg
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestNewRequiresDatabase(t *testing.T) {
	t.Setenv("K10PLUS_CONFIG", "")
	t.Setenv("DATABASE_DSN", "")

	application, err := New(context.Background(), testConfig(), testLogger())
	if !errors.Is(err, ErrNoDatabase) {
		t.Fatalf("expected ErrNoDatabase, got %v", err)
	}
	if application != nil {
		t.Fatalf("expected no application without a database")
	}
}

func TestNewRejectsMalformedDSN(t *testing.T) {
	t.Setenv("K10PLUS_CONFIG", "")
	t.Setenv("DATABASE_DSN", "")

	cfg := testConfig()
	cfg.Database.DSN = "postgres://user@localhost:notaport/ojs"
	if _, err := New(context.Background(), cfg, testLogger()); err == nil {
		t.Fatalf("expected error for malformed dsn")
	}
}

func TestAssembleWiresRepository(t *testing.T) {
	t.Setenv("K10PLUS_CONFIG", "")
	t.Setenv("DATABASE_DSN", "")

	repo := storage.NewMemoryRepository()
	repo.AddJournal(domain.Journal{ID: 3, Path: "zfg"}, domain.DepositSettings{})

	application, err := assemble(testConfig(), testLogger(), repo)
	if err != nil {
		t.Fatalf("assemble returned error: %v", err)
	}
	defer application.Close()

	if application.Pipeline() == nil {
		t.Fatalf("pipeline not wired")
	}
	if err := application.Migrate(context.Background(), "up"); !errors.Is(err, ErrNoDatabase) {
		t.Fatalf("expected ErrNoDatabase, got %v", err)
	}

	journal, err := application.Journal(context.Background(), "zfg")
	if err != nil {
		t.Fatalf("Journal returned error: %v", err)
	}
	if journal.ID != 3 {
		t.Fatalf("unexpected journal: %+v", journal)
	}
	if _, err := application.Journal(context.Background(), "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAssembleRejectsUnknownPackager(t *testing.T) {
	t.Setenv("K10PLUS_CONFIG", "")
	t.Setenv("DATABASE_DSN", "")

	cfg := testConfig()
	cfg.Export.Packager = "zip"
	if _, err := assemble(cfg, testLogger(), storage.NewMemoryRepository()); err == nil {
		t.Fatalf("expected error for unknown packager")
	}
}

func TestAssembleRequiresKnownHostsWhenChecking(t *testing.T) {
	t.Setenv("K10PLUS_CONFIG", "")
	t.Setenv("DATABASE_DSN", "")

	strict := false
	cfg := testConfig()
	cfg.Deposit.InsecureIgnoreHostKey = &strict
	if _, err := assemble(cfg, testLogger(), storage.NewMemoryRepository()); err == nil {
		t.Fatalf("expected error without known hosts file")
	}
}
