package backend

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"icried/internal/cloud"
	"icried/internal/config"
	"icried/internal/core"
)

func TestFromAppConfig(t *testing.T) {
	cfg := &config.Config{
		DataBackend:              "sqlite",
		SQLiteDBPath:             "/tmp/x.db",
		CloudBackend:             "sheets",
		GoogleSpreadsheetID:      "sheet-1",
		GoogleServiceAccountFile: "/tmp/sa.json",
	}
	got, err := FromAppConfig(cfg)
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if got.Type != SQLiteBackend || got.Cloud != CloudSheets {
		t.Fatalf("unexpected types: %s %s", got.Type, got.Cloud)
	}
	if got.GoogleCredentialsFile != "/tmp/sa.json" {
		t.Fatalf("credentials file not carried over: %q", got.GoogleCredentialsFile)
	}

	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	cfg.CloudBackend = "dropbox"
	if _, err := FromAppConfig(cfg); err == nil {
		t.Fatal("expected error for unknown cloud backend")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"unknown type", Config{Type: "postgres"}, true},
		{"sheets without id", Config{Type: MemoryBackend, Cloud: CloudSheets, GoogleCredentialsJSON: "{}"}, true},
		{"sheets without credentials", Config{Type: MemoryBackend, Cloud: CloudSheets, GoogleSpreadsheetID: "x"}, true},
		{"sheets", Config{Type: MemoryBackend, Cloud: CloudSheets, GoogleSpreadsheetID: "x", GoogleCredentialsJSON: "{}"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateStore(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(nil)

	mem, err := f.CreateStore(ctx, Config{Type: MemoryBackend})
	if err != nil {
		t.Fatalf("memory store: %v", err)
	}
	if mem.Pinger != nil {
		t.Error("memory store should not expose a pinger")
	}
	if err := mem.Cleanup(); err != nil {
		t.Errorf("cleanup: %v", err)
	}

	path := filepath.Join(t.TempDir(), "journal.db")
	sq, err := f.CreateStore(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: path})
	if err != nil {
		t.Fatalf("sqlite store: %v", err)
	}
	defer sq.Cleanup()
	if sq.Pinger == nil {
		t.Fatal("sqlite store should expose a pinger")
	}
	if err := sq.Pinger.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if err := sq.Store.SaveTag(ctx, core.NewTagItem("#Сон", 0)); err != nil {
		t.Fatalf("save tag: %v", err)
	}
	tags, err := sq.Store.ListTags(ctx)
	if err != nil || len(tags) != 1 {
		t.Fatalf("ListTags = %v, %v", tags, err)
	}
}

func TestCreateCloud(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(nil)

	none, err := f.CreateCloud(ctx, Config{Type: MemoryBackend, Cloud: CloudNone})
	if err != nil {
		t.Fatalf("none: %v", err)
	}
	if none.Enabled() {
		t.Fatal("cloud none should be disabled")
	}

	mem, err := f.CreateCloud(ctx, Config{Type: MemoryBackend, Cloud: CloudMemory})
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if !mem.Enabled() || mem.Breaker == nil {
		t.Fatal("memory cloud should be enabled behind a breaker")
	}
	st, err := mem.Store.Status(ctx)
	if err != nil || st != cloud.StatusAvailable {
		t.Fatalf("Status = %v, %v", st, err)
	}
	_, err = mem.Store.Fetch(ctx, core.KindTag, "missing")
	if !errors.Is(err, cloud.ErrUnknownItem) {
		t.Fatalf("Fetch missing = %v, want ErrUnknownItem", err)
	}
}
