package audit

import (
	"context"
	"fmt"

	"github.com/aydarnuman/procheff-v3-sub001/pkg/db"
)

// auditTable - таблица журнала операций
const auditTable = "audit_log"

// DatabaseAppender - запись журнала в таблицу БД через универсальный
// адаптер. Журнал переживает перезапуск процесса и доступен для
// выборок обычным SQL
type DatabaseAppender struct {
	db    *db.Universal
	level Level
}

// NewDatabaseAppender - создать database appender.
// Перед первым использованием нужно вызвать EnsureSchema
func NewDatabaseAppender(u *db.Universal, level Level) *DatabaseAppender {
	return &DatabaseAppender{db: u, level: level}
}

// EnsureSchema создает таблицу журнала на каждом активном движке
func (da *DatabaseAppender) EnsureSchema(ctx context.Context) error {
	for _, engine := range da.db.Engines() {
		d := engine.Dialect()
		ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id %s,
			occurred_at %s NOT NULL,
			operation TEXT NOT NULL,
			status TEXT NOT NULL,
			engine TEXT,
			resource TEXT,
			records_affected INTEGER,
			duration_ms INTEGER,
			error_message TEXT,
			metadata_json TEXT
		)`, auditTable, d.TextPrimaryKey(), d.Timestamp())

		if _, err := engine.Execute(ctx, ddl); err != nil {
			return fmt.Errorf("failed to create audit table on %s engine: %w", engine.EngineType(), err)
		}
	}
	return nil
}

// Append - записать entry в таблицу журнала
func (da *DatabaseAppender) Append(ctx context.Context, entry *Entry) error {
	filtered := entry.FilterByLevel(da.level)

	metadata, err := db.MarshalJSONValue("metadata", filtered.Metadata)
	if err != nil {
		return err
	}

	_, err = da.db.Execute(ctx, fmt.Sprintf(`
		INSERT INTO %s (
			id, occurred_at, operation, status, engine, resource,
			records_affected, duration_ms, error_message, metadata_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, auditTable),
		filtered.ID, db.FormatTime(filtered.Timestamp),
		string(filtered.Operation), string(filtered.Status),
		filtered.Engine, filtered.Resource,
		filtered.RecordsAffected, filtered.Duration.Milliseconds(),
		filtered.ErrorMessage, string(metadata))
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}

	return nil
}

// Recent возвращает последние limit записей журнала, свежие первыми
func (da *DatabaseAppender) Recent(ctx context.Context, limit int) ([]db.Row, error) {
	if limit <= 0 {
		limit = 100
	}
	return da.db.Query(ctx, fmt.Sprintf(
		"SELECT * FROM %s ORDER BY occurred_at DESC LIMIT ?", auditTable), limit)
}

// Close - noop: владелец адаптера закрывает его сам
func (da *DatabaseAppender) Close() error {
	return nil
}
