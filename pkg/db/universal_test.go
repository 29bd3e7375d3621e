package db_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/aydarnuman/procheff-v3-sub001/pkg/db"
	_ "github.com/aydarnuman/procheff-v3-sub001/pkg/db/sqlite"
)

func newEmbeddedUniversal(t *testing.T) *db.Universal {
	t.Helper()

	u, err := db.NewUniversal(context.Background(), db.UniversalConfig{
		Mode:     db.ModeEmbedded,
		Embedded: db.Config{Type: "sqlite", DSN: filepath.Join(t.TempDir(), "test.db")},
	})
	if err != nil {
		t.Fatalf("failed to create universal adapter: %v", err)
	}
	t.Cleanup(func() { u.Close(context.Background()) })

	return u
}

func TestUniversalConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     db.UniversalConfig
		wantErr bool
	}{
		{
			name:    "embedded ok",
			cfg:     db.UniversalConfig{Mode: db.ModeEmbedded, Embedded: db.Config{DSN: ":memory:"}},
			wantErr: false,
		},
		{
			name:    "embedded without dsn",
			cfg:     db.UniversalConfig{Mode: db.ModeEmbedded},
			wantErr: true,
		},
		{
			name:    "server without dsn",
			cfg:     db.UniversalConfig{Mode: db.ModeServer},
			wantErr: true,
		},
		{
			name:    "dual missing embedded dsn",
			cfg:     db.UniversalConfig{Mode: db.ModeDual, Server: db.Config{DSN: "postgres://localhost/x"}},
			wantErr: true,
		},
		{
			name:    "unknown mode",
			cfg:     db.UniversalConfig{Mode: "cluster"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestUniversalEmbeddedContract(t *testing.T) {
	ctx := context.Background()
	u := newEmbeddedUniversal(t)

	if u.GetMode() != db.ModeEmbedded {
		t.Errorf("expected embedded mode, got %s", u.GetMode())
	}
	if got := len(u.Engines()); got != 1 {
		t.Errorf("embedded mode must expose exactly one engine, got %d", got)
	}
	if u.Dialect().Family() != "sqlite" {
		t.Errorf("unexpected dialect family %q", u.Dialect().Family())
	}

	if _, err := u.Execute(ctx, `CREATE TABLE notes (id TEXT PRIMARY KEY, body TEXT)`); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}

	result, err := u.Execute(ctx, "INSERT INTO notes (id, body) VALUES (?, ?)", "n1", "hello")
	if err != nil {
		t.Fatalf("failed to insert: %v", err)
	}
	if result.Changes != 1 {
		t.Errorf("expected 1 change, got %d", result.Changes)
	}

	row, err := u.QueryOne(ctx, "SELECT body FROM notes WHERE id = ?", "n1")
	if err != nil {
		t.Fatalf("failed to query: %v", err)
	}
	if row.AsString("body") != "hello" {
		t.Errorf("unexpected body %q", row.AsString("body"))
	}

	rows, err := u.Query(ctx, "SELECT * FROM notes")
	if err != nil {
		t.Fatalf("failed to list: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("expected 1 row, got %d", len(rows))
	}

	if err := u.Ping(ctx); err != nil {
		t.Errorf("ping failed: %v", err)
	}
}

func TestUniversalQueryOneNotFound(t *testing.T) {
	ctx := context.Background()
	u := newEmbeddedUniversal(t)

	if _, err := u.Execute(ctx, `CREATE TABLE notes (id TEXT PRIMARY KEY)`); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}

	_, err := u.QueryOne(ctx, "SELECT * FROM notes WHERE id = ?", "nope")
	if !errors.Is(err, db.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUniversalTransaction(t *testing.T) {
	ctx := context.Background()
	u := newEmbeddedUniversal(t)

	if _, err := u.Execute(ctx, `CREATE TABLE notes (id TEXT PRIMARY KEY)`); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}

	boom := errors.New("boom")
	err := u.Transaction(ctx, func(txCtx context.Context) error {
		if _, err := u.Execute(txCtx, "INSERT INTO notes (id) VALUES (?)", "n1"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected closure error, got %v", err)
	}

	rows, err := u.Query(ctx, "SELECT * FROM notes")
	if err != nil {
		t.Fatalf("failed to query: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("expected rollback to discard insert, got %d rows", len(rows))
	}

	err = u.Transaction(ctx, func(txCtx context.Context) error {
		_, err := u.Execute(txCtx, "INSERT INTO notes (id) VALUES (?)", "n2")
		return err
	})
	if err != nil {
		t.Fatalf("commit transaction failed: %v", err)
	}

	if _, err := u.QueryOne(ctx, "SELECT * FROM notes WHERE id = ?", "n2"); err != nil {
		t.Errorf("committed row not visible: %v", err)
	}
}

func TestNewUniversalInvalidConfig(t *testing.T) {
	_, err := db.NewUniversal(context.Background(), db.UniversalConfig{Mode: "bogus"})
	if err == nil {
		t.Fatal("expected error for invalid config")
	}
}
