package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aydarnuman/procheff-v3-sub001/pkg/db"
)

// DefaultPoolTTLHours - срок годности data pool по умолчанию
const DefaultPoolTTLHours = 24

// SaveDataPool кладет data pool в кэш с абсолютным сроком годности
// now + ttlHours. Полная замена по ключу анализа: частичных
// обновлений нет. Производные счетчики и размер payload считаются
// здесь, чтобы инспектировать запись без десериализации
func (r *Repository) SaveDataPool(ctx context.Context, analysisID string, pool *DataPool, ttlHours int) error {
	if analysisID == "" {
		return &db.ValidationError{Field: "analysis_id", Reason: "must not be empty"}
	}
	if pool == nil {
		return &db.ValidationError{Field: "data_pool", Reason: "must not be nil"}
	}
	if ttlHours <= 0 {
		ttlHours = DefaultPoolTTLHours
	}

	payload, err := db.MarshalJSONValue("data_pool", pool)
	if err != nil {
		return err
	}

	expiresAt := db.FormatTime(r.now().Add(time.Duration(ttlHours) * time.Hour))

	_, err = r.db.Execute(ctx, fmt.Sprintf(`
		INSERT INTO %s (
			analysis_id, data_pool_json, text_content,
			document_count, table_count, date_count, entity_count,
			total_size_bytes, expires_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (analysis_id) DO UPDATE SET
			data_pool_json = EXCLUDED.data_pool_json,
			text_content = EXCLUDED.text_content,
			document_count = EXCLUDED.document_count,
			table_count = EXCLUDED.table_count,
			date_count = EXCLUDED.date_count,
			entity_count = EXCLUDED.entity_count,
			total_size_bytes = EXCLUDED.total_size_bytes,
			expires_at = EXCLUDED.expires_at`, dataPoolsTable),
		analysisID, string(payload), pool.TextContent(),
		len(pool.Documents), len(pool.Tables), len(pool.Dates), len(pool.Entities),
		len(payload), expiresAt, db.FormatTime(r.now()))
	if err != nil {
		return fmt.Errorf("failed to save data pool: %w", err)
	}

	return nil
}

// GetDataPool возвращает data pool, если его срок годности еще не
// вышел. Просроченная запись неотличима от отсутствующей: чтение
// дешевое и не удаляет ее - удалением занимается
// CleanupExpiredDataPools
func (r *Repository) GetDataPool(ctx context.Context, analysisID string) (*DataPool, error) {
	row, err := r.db.QueryOne(ctx, fmt.Sprintf(
		"SELECT data_pool_json FROM %s WHERE analysis_id = ? AND expires_at > ?", dataPoolsTable),
		analysisID, db.FormatTime(r.now()))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, db.ErrNotFound
		}
		return nil, err
	}

	var pool DataPool
	if err := json.Unmarshal([]byte(row.AsString("data_pool_json")), &pool); err != nil {
		return nil, fmt.Errorf("failed to decode data pool payload: %w", err)
	}

	return &pool, nil
}

// CleanupExpiredDataPools удаляет все записи с истекшим сроком
// годности и возвращает количество удаленных. Предназначен для
// периодического вызова внешним планировщиком
func (r *Repository) CleanupExpiredDataPools(ctx context.Context) (int64, error) {
	result, err := r.db.Execute(ctx, fmt.Sprintf(
		"DELETE FROM %s WHERE expires_at <= ?", dataPoolsTable),
		db.FormatTime(r.now()))
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup expired data pools: %w", err)
	}
	return result.Changes, nil
}
