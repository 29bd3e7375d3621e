package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/aydarnuman/procheff-v3-sub001/pkg/db"
)

func newTestAdapter(t *testing.T) *Adapter {
	t.Helper()

	adapter := &Adapter{}
	dsn := filepath.Join(t.TempDir(), "test.db")
	if err := adapter.Connect(context.Background(), db.Config{Type: "sqlite", DSN: dsn}); err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(func() { adapter.Close(context.Background()) })

	return adapter
}

func TestAdapterCRUD(t *testing.T) {
	ctx := context.Background()
	adapter := newTestAdapter(t)

	_, err := adapter.Execute(ctx, `CREATE TABLE items (id TEXT PRIMARY KEY, name TEXT, qty INTEGER)`)
	if err != nil {
		t.Fatalf("failed to create table: %v", err)
	}

	result, err := adapter.Execute(ctx, "INSERT INTO items (id, name, qty) VALUES (?, ?, ?)", "a", "apple", 3)
	if err != nil {
		t.Fatalf("failed to insert: %v", err)
	}
	if result.Changes != 1 {
		t.Errorf("expected 1 change, got %d", result.Changes)
	}

	row, err := adapter.QueryOne(ctx, "SELECT * FROM items WHERE id = ?", "a")
	if err != nil {
		t.Fatalf("failed to query: %v", err)
	}
	if row.AsString("name") != "apple" || row.AsInt64("qty") != 3 {
		t.Errorf("unexpected row: %v", row)
	}
}

func TestQueryOneNotFound(t *testing.T) {
	ctx := context.Background()
	adapter := newTestAdapter(t)

	if _, err := adapter.Execute(ctx, `CREATE TABLE items (id TEXT PRIMARY KEY)`); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}

	_, err := adapter.QueryOne(ctx, "SELECT * FROM items WHERE id = ?", "missing")
	if !errors.Is(err, db.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestConstraintViolation(t *testing.T) {
	ctx := context.Background()
	adapter := newTestAdapter(t)

	if _, err := adapter.Execute(ctx, `CREATE TABLE items (id TEXT PRIMARY KEY)`); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}
	if _, err := adapter.Execute(ctx, "INSERT INTO items (id) VALUES (?)", "dup"); err != nil {
		t.Fatalf("failed to insert: %v", err)
	}

	_, err := adapter.Execute(ctx, "INSERT INTO items (id) VALUES (?)", "dup")
	var cErr *db.ConstraintError
	if !errors.As(err, &cErr) {
		t.Errorf("expected ConstraintError, got %v", err)
	}
}

func TestTransactionRollback(t *testing.T) {
	ctx := context.Background()
	adapter := newTestAdapter(t)

	if _, err := adapter.Execute(ctx, `CREATE TABLE items (id TEXT PRIMARY KEY)`); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}

	boom := errors.New("boom")
	err := adapter.Transaction(ctx, func(txCtx context.Context) error {
		if _, err := adapter.Execute(txCtx, "INSERT INTO items (id) VALUES (?)", "x"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected closure error, got %v", err)
	}

	// Вставка должна быть откачена целиком
	rows, err := adapter.Query(ctx, "SELECT * FROM items")
	if err != nil {
		t.Fatalf("failed to query: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("expected empty table after rollback, got %d rows", len(rows))
	}
}

func TestNestedTransactionFlattening(t *testing.T) {
	ctx := context.Background()
	adapter := newTestAdapter(t)

	if _, err := adapter.Execute(ctx, `CREATE TABLE items (id TEXT PRIMARY KEY)`); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}

	err := adapter.Transaction(ctx, func(outer context.Context) error {
		if _, err := adapter.Execute(outer, "INSERT INTO items (id) VALUES (?)", "outer"); err != nil {
			return err
		}
		// Вложенный вызов сливается с внешней транзакцией
		return adapter.Transaction(outer, func(inner context.Context) error {
			_, err := adapter.Execute(inner, "INSERT INTO items (id) VALUES (?)", "inner")
			return err
		})
	})
	if err != nil {
		t.Fatalf("transaction failed: %v", err)
	}

	rows, err := adapter.Query(ctx, "SELECT * FROM items ORDER BY id")
	if err != nil {
		t.Fatalf("failed to query: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("expected 2 rows, got %d", len(rows))
	}
}

func TestConcurrentTransactionIncrements(t *testing.T) {
	ctx := context.Background()
	adapter := newTestAdapter(t)

	if _, err := adapter.Execute(ctx, `CREATE TABLE counters (name TEXT PRIMARY KEY, value INTEGER)`); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}
	if _, err := adapter.Execute(ctx, "INSERT INTO counters (name, value) VALUES (?, ?)", "hits", 0); err != nil {
		t.Fatalf("failed to seed counter: %v", err)
	}

	// Два конкурентных инкремента read-modify-write внутри
	// транзакций не должны терять обновления
	const workers = 2
	var wg sync.WaitGroup
	errCh := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errCh <- adapter.Transaction(ctx, func(txCtx context.Context) error {
				row, err := adapter.QueryOne(txCtx, "SELECT value FROM counters WHERE name = ?", "hits")
				if err != nil {
					return err
				}
				_, err = adapter.Execute(txCtx, "UPDATE counters SET value = ? WHERE name = ?",
					row.AsInt64("value")+1, "hits")
				return err
			})
		}()
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil {
			t.Fatalf("transaction failed: %v", err)
		}
	}

	row, err := adapter.QueryOne(ctx, "SELECT value FROM counters WHERE name = ?", "hits")
	if err != nil {
		t.Fatalf("failed to query counter: %v", err)
	}
	if got := row.AsInt64("value"); got != workers {
		t.Errorf("lost update: counter = %d, want %d", got, workers)
	}
}

func TestDatabaseFile(t *testing.T) {
	adapter := newTestAdapter(t)
	if adapter.DatabaseFile() == "" {
		t.Error("file-backed adapter should report its database file")
	}

	mem := &Adapter{}
	if err := mem.Connect(context.Background(), db.Config{Type: "sqlite", DSN: ":memory:"}); err != nil {
		t.Fatalf("failed to connect in-memory: %v", err)
	}
	defer mem.Close(context.Background())

	if mem.DatabaseFile() != "" {
		t.Error("in-memory adapter must not report a database file")
	}
}

func TestExecuteGeneratedID(t *testing.T) {
	ctx := context.Background()
	adapter := newTestAdapter(t)

	if _, err := adapter.Execute(ctx, `CREATE TABLE logs (id INTEGER PRIMARY KEY AUTOINCREMENT, msg TEXT)`); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}

	for i := 1; i <= 3; i++ {
		result, err := adapter.Execute(ctx, "INSERT INTO logs (msg) VALUES (?)", fmt.Sprintf("msg-%d", i))
		if err != nil {
			t.Fatalf("failed to insert: %v", err)
		}
		if result.LastID != int64(i) {
			t.Errorf("expected generated id %d, got %d", i, result.LastID)
		}
	}
}
