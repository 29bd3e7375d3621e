package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/aydarnuman/procheff-v3-sub001/pkg/db"
)

// SaveAPIMetric добавляет запись в журнал метрик.
// Метрики - некритичный путь: любая ошибка записи логируется и
// проглатывается, основная операция вызывающего не прерывается
func (r *Repository) SaveAPIMetric(ctx context.Context, metric APIMetric) {
	d := r.db.Dialect()

	_, err := r.db.Execute(ctx, fmt.Sprintf(`
		INSERT INTO %s (
			endpoint, model, input_tokens, output_tokens, total_tokens,
			cost_usd, duration_ms, success, error_message, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, metricsTable),
		metric.Endpoint, nullIfEmpty(metric.Model),
		metric.InputTokens, metric.OutputTokens, metric.TotalTokens,
		metric.CostUSD, metric.DurationMS,
		d.BoolValue(metric.Success), nullIfEmpty(metric.ErrorMessage),
		db.FormatTime(r.now()))
	if err != nil {
		r.warnf("[analysis] failed to save API metric: %v", err)
	}
}

// GetCostStats агрегирует успешные вызовы за trailing-окно в days
// дней: суммарная стоимость, число запросов, средняя стоимость и
// разбивки по endpoint и по модели. Пустое окно дает нулевую
// статистику, а не ошибку деления
func (r *Repository) GetCostStats(ctx context.Context, days int) (CostStats, error) {
	stats := CostStats{
		ByEndpoint: make(map[string]CostBucket),
		ByModel:    make(map[string]CostBucket),
	}

	if days <= 0 {
		days = 30
	}
	since := db.FormatTime(r.now().Add(-time.Duration(days) * 24 * time.Hour))

	d := r.db.Dialect()
	rows, err := r.db.Query(ctx, fmt.Sprintf(
		"SELECT endpoint, model, cost_usd FROM %s WHERE created_at > ? AND success = ?", metricsTable),
		since, d.BoolValue(true))
	if err != nil {
		return stats, fmt.Errorf("failed to query API metrics: %w", err)
	}

	for _, row := range rows {
		cost := row.AsFloat64("cost_usd")
		stats.TotalCost += cost
		stats.TotalRequests++

		endpoint := row.AsString("endpoint")
		bucket := stats.ByEndpoint[endpoint]
		bucket.Cost += cost
		bucket.Requests++
		stats.ByEndpoint[endpoint] = bucket

		if model := row.AsString("model"); model != "" {
			bucket := stats.ByModel[model]
			bucket.Cost += cost
			bucket.Requests++
			stats.ByModel[model] = bucket
		}
	}

	if stats.TotalRequests > 0 {
		stats.AvgCostPerRequest = stats.TotalCost / float64(stats.TotalRequests)
	}

	return stats, nil
}
