package analysis

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aydarnuman/procheff-v3-sub001/pkg/db"
)

// Repository - доступ к результатам анализа, кэшу data pool и
// метрикам API. Все операции идут через универсальный адаптер:
// вызывающий код не знает, какой движок активен
type Repository struct {
	db *db.Universal

	// warnf получает деградации некритичных путей (поиск, метрики)
	warnf func(format string, args ...any)

	// now подменяется в тестах для проверки TTL-семантики
	now func() time.Time
}

// NewRepository создает репозиторий поверх универсального адаптера
func NewRepository(u *db.Universal) *Repository {
	return &Repository{
		db:    u,
		warnf: log.Printf,
		now:   time.Now,
	}
}

// Save сохраняет результат анализа.
// JSON-поля проходят round-trip валидацию до касания хранилища:
// невалидный payload отклоняется с ValidationError, запись не
// мутируется. Upsert по ID обновляет только изменяемое подмножество
// колонок - created_at и extracted_fields_json фиксируются первым
// сохранением. Строка результата и shadow-запись поиска пишутся
// в одной транзакции
func (r *Repository) Save(ctx context.Context, result *Result) error {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	if result.Status == "" {
		result.Status = StatusPending
	}

	extractedFields, err := db.ValidateJSON("extracted_fields", result.ExtractedFields)
	if err != nil {
		return err
	}
	contextual, err := db.ValidateJSON("contextual_analysis", result.ContextualAnalysis)
	if err != nil {
		return err
	}
	market, err := db.ValidateJSON("market_analysis", result.MarketAnalysis)
	if err != nil {
		return err
	}
	validation, err := db.ValidateJSON("validation", result.Validation)
	if err != nil {
		return err
	}

	now := db.FormatTime(r.now())

	return r.db.Transaction(ctx, func(txCtx context.Context) error {
		_, err := r.db.Execute(txCtx, fmt.Sprintf(`
			INSERT INTO %s (
				id, tender_id, status, institution, budget_amount,
				person_count, duration_days, tender_type,
				contextual_score, market_risk_level, data_quality_score,
				extracted_fields_json, contextual_analysis_json,
				market_analysis_json, validation_json,
				processing_time_ms, tokens_used, cost_usd,
				created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				status = EXCLUDED.status,
				updated_at = EXCLUDED.updated_at,
				contextual_score = EXCLUDED.contextual_score,
				market_risk_level = EXCLUDED.market_risk_level,
				data_quality_score = EXCLUDED.data_quality_score,
				contextual_analysis_json = EXCLUDED.contextual_analysis_json,
				market_analysis_json = EXCLUDED.market_analysis_json,
				validation_json = EXCLUDED.validation_json,
				processing_time_ms = EXCLUDED.processing_time_ms,
				tokens_used = EXCLUDED.tokens_used,
				cost_usd = EXCLUDED.cost_usd`, resultsTable),
			result.ID, nullIfEmpty(result.TenderID), string(result.Status),
			nullIfEmpty(result.Institution), result.BudgetAmount,
			result.PersonCount, result.DurationDays, nullIfEmpty(result.TenderType),
			result.ContextualScore, nullIfEmpty(result.MarketRiskLevel), result.DataQualityScore,
			string(extractedFields), string(contextual), string(market), string(validation),
			result.ProcessingTimeMS, result.TokensUsed, result.CostUSD,
			now, now)
		if err != nil {
			return fmt.Errorf("failed to save analysis result: %w", err)
		}

		if result.DataPool != nil {
			if err := r.upsertFTS(txCtx, result.ID, result.DataPool.TextContent()); err != nil {
				return fmt.Errorf("failed to update search index: %w", err)
			}
		}

		return nil
	})
}

// upsertFTS перегенерирует shadow-запись поиска.
// Количество statements и их аргументы зависят от семейства движка:
// FTS5 не умеет ON CONFLICT, там это delete+insert
func (r *Repository) upsertFTS(ctx context.Context, id, content string) error {
	statements := r.db.Dialect().FTSUpsert(ftsTable)
	if len(statements) == 2 {
		if _, err := r.db.Execute(ctx, statements[0], id); err != nil {
			return err
		}
		_, err := r.db.Execute(ctx, statements[1], id, content)
		return err
	}
	_, err := r.db.Execute(ctx, statements[0], id, content)
	return err
}

// FindByID возвращает результат анализа или db.ErrNotFound
func (r *Repository) FindByID(ctx context.Context, id string) (*Result, error) {
	row, err := r.db.QueryOne(ctx,
		fmt.Sprintf("SELECT * FROM %s WHERE id = ?", resultsTable), id)
	if err != nil {
		return nil, err
	}
	return scanResult(row), nil
}

// FindByStatus возвращает результаты в заданной стадии,
// свежие первыми
func (r *Repository) FindByStatus(ctx context.Context, status Status, limit int) ([]*Result, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, fmt.Sprintf(
		"SELECT * FROM %s WHERE status = ? ORDER BY created_at DESC LIMIT ?", resultsTable),
		string(status), limit)
	if err != nil {
		return nil, err
	}
	return scanResults(rows), nil
}

// FindByInstitution ищет по подстроке названия учреждения без учета
// регистра
func (r *Repository) FindByInstitution(ctx context.Context, institution string, limit int) ([]*Result, error) {
	if limit <= 0 {
		limit = 50
	}
	pattern := "%" + escapeLikePattern(institution) + "%"
	rows, err := r.db.Query(ctx, fmt.Sprintf(
		`SELECT * FROM %s WHERE LOWER(institution) LIKE LOWER(?) ESCAPE '\'
		 ORDER BY created_at DESC LIMIT ?`, resultsTable),
		pattern, limit)
	if err != nil {
		return nil, err
	}
	return scanResults(rows), nil
}

// Search выполняет полнотекстовый запрос по shadow-индексу с
// ранжированием по релевантности. Поиск - best-effort: любая ошибка
// движка поиска логируется и превращается в пустой результат,
// не в ошибку вызывающего
func (r *Repository) Search(ctx context.Context, query string, limit int) ([]*Result, error) {
	if limit <= 0 {
		limit = 20
	}

	d := r.db.Dialect()
	rows, err := r.db.Query(ctx, d.FTSSearch(ftsTable, resultsTable), d.FTSSearchArgs(query, limit)...)
	if err != nil {
		r.warnf("[analysis] search failed, returning empty result: %v", err)
		return []*Result{}, nil
	}
	return scanResults(rows), nil
}

// escapeLikePattern экранирует спецсимволы LIKE во вводе пользователя
func escapeLikePattern(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(s)
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func scanResults(rows []db.Row) []*Result {
	results := make([]*Result, 0, len(rows))
	for _, row := range rows {
		results = append(results, scanResult(row))
	}
	return results
}

func scanResult(row db.Row) *Result {
	return &Result{
		ID:                 row.AsString("id"),
		TenderID:           row.AsString("tender_id"),
		Status:             Status(row.AsString("status")),
		Institution:        row.AsString("institution"),
		BudgetAmount:       row.AsFloat64("budget_amount"),
		PersonCount:        int(row.AsInt64("person_count")),
		DurationDays:       int(row.AsInt64("duration_days")),
		TenderType:         row.AsString("tender_type"),
		ContextualScore:    row.AsFloat64("contextual_score"),
		MarketRiskLevel:    row.AsString("market_risk_level"),
		DataQualityScore:   row.AsFloat64("data_quality_score"),
		ExtractedFields:    []byte(row.AsString("extracted_fields_json")),
		ContextualAnalysis: []byte(row.AsString("contextual_analysis_json")),
		MarketAnalysis:     []byte(row.AsString("market_analysis_json")),
		Validation:         []byte(row.AsString("validation_json")),
		ProcessingTimeMS:   row.AsInt64("processing_time_ms"),
		TokensUsed:         row.AsInt64("tokens_used"),
		CostUSD:            row.AsFloat64("cost_usd"),
		CreatedAt:          row.AsTime("created_at"),
		UpdatedAt:          row.AsTime("updated_at"),
	}
}
