package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aydarnuman/procheff-v3-sub001/pkg/db"
	_ "github.com/aydarnuman/procheff-v3-sub001/pkg/db/sqlite"
)

// memoryAppender собирает записи в память для проверок
type memoryAppender struct {
	mu      sync.Mutex
	entries []*Entry
}

func (ma *memoryAppender) Append(ctx context.Context, entry *Entry) error {
	ma.mu.Lock()
	defer ma.mu.Unlock()
	ma.entries = append(ma.entries, entry)
	return nil
}

func (ma *memoryAppender) Close() error { return nil }

func (ma *memoryAppender) count() int {
	ma.mu.Lock()
	defer ma.mu.Unlock()
	return len(ma.entries)
}

func TestEntryBuilders(t *testing.T) {
	entry := NewEntry(OpMigrate, StatusSuccess).
		WithEngine("sqlite").
		WithResource("001_semantic_cache.sql").
		WithRecordsAffected(3).
		WithDuration(250 * time.Millisecond).
		WithMetadata("backup", "app.db.bak.zst")

	if entry.ID == "" {
		t.Error("entry must get a generated ID")
	}
	if entry.Timestamp.IsZero() {
		t.Error("entry must get a timestamp")
	}
	if entry.Engine != "sqlite" || entry.Resource != "001_semantic_cache.sql" {
		t.Errorf("builder fields not applied: %+v", entry)
	}
	if entry.Metadata["backup"] != "app.db.bak.zst" {
		t.Errorf("metadata not applied: %v", entry.Metadata)
	}
}

func TestEntryWithErrorFlipsStatus(t *testing.T) {
	entry := NewEntry(OpSave, StatusSuccess).WithError(errors.New("disk full"))
	if entry.Status != StatusFailure {
		t.Errorf("expected failure status, got %s", entry.Status)
	}
	if entry.ErrorMessage != "disk full" {
		t.Errorf("unexpected error message %q", entry.ErrorMessage)
	}

	// nil-ошибка статус не трогает
	ok := NewEntry(OpSave, StatusSuccess).WithError(nil)
	if ok.Status != StatusSuccess {
		t.Errorf("nil error must not flip status, got %s", ok.Status)
	}
}

func TestEntryFilterByLevel(t *testing.T) {
	entry := NewEntry(OpSearch, StatusSuccess).
		WithRecordsAffected(10).
		WithDuration(time.Second).
		WithMetadata("query", "catering")

	minimal := entry.FilterByLevel(LevelMinimal)
	if minimal.Metadata != nil || minimal.RecordsAffected != 0 || minimal.Duration != 0 {
		t.Errorf("minimal level must strip details: %+v", minimal)
	}

	standard := entry.FilterByLevel(LevelStandard)
	if standard.Metadata != nil {
		t.Error("standard level must strip metadata")
	}
	if standard.RecordsAffected != 10 || standard.Duration != time.Second {
		t.Errorf("standard level must keep counters: %+v", standard)
	}

	full := entry.FilterByLevel(LevelFull)
	if full.Metadata["query"] != "catering" {
		t.Error("full level must keep everything")
	}

	// Фильтрация не мутирует оригинал
	if entry.Metadata["query"] != "catering" {
		t.Error("FilterByLevel must not mutate the source entry")
	}
}

func TestEntryClone(t *testing.T) {
	entry := NewEntry(OpBackup, StatusSuccess).WithMetadata("path", "/tmp/x")
	clone := entry.Clone()
	clone.Metadata["path"] = "/tmp/y"

	if entry.Metadata["path"] != "/tmp/x" {
		t.Error("clone metadata must be independent")
	}
}

func TestSyncLogger(t *testing.T) {
	ctx := context.Background()
	mem := &memoryAppender{}
	logger := NewLogger(LoggerConfig{DefaultEngine: "sqlite"}, mem)
	defer logger.Close()

	logger.LogSuccess(ctx, OpConnect)
	logger.LogFailure(ctx, OpMigrate, errors.New("boom"))

	if mem.count() != 2 {
		t.Fatalf("expected 2 entries, got %d", mem.count())
	}
	if mem.entries[0].Engine != "sqlite" {
		t.Errorf("default engine not applied: %+v", mem.entries[0])
	}
	if mem.entries[1].Status != StatusFailure || mem.entries[1].ErrorMessage != "boom" {
		t.Errorf("failure entry malformed: %+v", mem.entries[1])
	}
}

func TestAsyncLoggerDrainsOnClose(t *testing.T) {
	ctx := context.Background()
	mem := &memoryAppender{}
	logger := NewLogger(LoggerConfig{AsyncMode: true, BufferSize: 64}, mem)

	const total = 20
	for i := 0; i < total; i++ {
		logger.LogSuccess(ctx, OpSave)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	if mem.count() != total {
		t.Errorf("close must drain the buffer: got %d of %d entries", mem.count(), total)
	}
}

func TestLogNilEntry(t *testing.T) {
	logger := NewLogger(LoggerConfig{})
	defer logger.Close()

	if err := logger.Log(context.Background(), nil); err == nil {
		t.Error("expected error for nil entry")
	}
}

func TestMultiAppender(t *testing.T) {
	ctx := context.Background()
	first := &memoryAppender{}
	second := &memoryAppender{}
	multi := NewMultiAppender(first, second)

	if err := multi.Append(ctx, NewEntry(OpCleanup, StatusSuccess)); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if first.count() != 1 || second.count() != 1 {
		t.Error("entry must reach every appender")
	}
}

func TestFileAppenderWritesJSONLines(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "audit.log")

	fa, err := NewFileAppender(FileAppenderConfig{FilePath: path, Level: LevelFull})
	if err != nil {
		t.Fatalf("failed to create appender: %v", err)
	}

	for _, op := range []Operation{OpConnect, OpMigrate, OpDisconnect} {
		if err := fa.Append(ctx, NewEntry(op, StatusSuccess)); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}
	if err := fa.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open audit file: %v", err)
	}
	defer f.Close()

	var ops []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry Entry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Fatalf("line is not valid JSON: %v", err)
		}
		ops = append(ops, string(entry.Operation))
	}
	if len(ops) != 3 || ops[0] != "connect" || ops[2] != "disconnect" {
		t.Errorf("unexpected operations %v", ops)
	}
}

func TestDatabaseAppender(t *testing.T) {
	ctx := context.Background()

	u, err := db.NewUniversal(ctx, db.UniversalConfig{
		Mode:     db.ModeEmbedded,
		Embedded: db.Config{Type: "sqlite", DSN: filepath.Join(t.TempDir(), "audit.db")},
	})
	if err != nil {
		t.Fatalf("failed to create adapter: %v", err)
	}
	defer u.Close(ctx)

	da := NewDatabaseAppender(u, LevelFull)
	if err := da.EnsureSchema(ctx); err != nil {
		t.Fatalf("failed to ensure schema: %v", err)
	}

	entry := NewEntry(OpMigrate, StatusSuccess).
		WithEngine("sqlite").
		WithResource("002_menu_cache.sql").
		WithRecordsAffected(1).
		WithDuration(120 * time.Millisecond)
	if err := da.Append(ctx, entry); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	rows, err := da.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("failed to read journal: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 journal row, got %d", len(rows))
	}

	row := rows[0]
	if row.AsString("operation") != "migrate" || row.AsString("status") != "success" {
		t.Errorf("unexpected journal row %v", row)
	}
	if row.AsString("resource") != "002_menu_cache.sql" {
		t.Errorf("unexpected resource %q", row.AsString("resource"))
	}
	if row.AsInt64("duration_ms") != 120 {
		t.Errorf("unexpected duration %d", row.AsInt64("duration_ms"))
	}
}
