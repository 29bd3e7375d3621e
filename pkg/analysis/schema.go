package analysis

import (
	"context"
	"fmt"

	"github.com/aydarnuman/procheff-v3-sub001/pkg/db"
)

// Имена таблиц репозитория
const (
	resultsTable   = "analysis_results"
	ftsTable       = "analysis_fts"
	dataPoolsTable = "data_pools"
	metricsTable   = "api_metrics"
)

// InitSchema создает таблицы репозитория на каждом активном движке.
// DDL выдается по разу на движок, каждому - фрагменты его диалекта:
// в dual режиме shadow-индекс поиска у SQLite это FTS5, у
// PostgreSQL - tsvector с GIN
func InitSchema(ctx context.Context, u *db.Universal) error {
	for _, engine := range u.Engines() {
		if err := initEngine(ctx, engine); err != nil {
			return fmt.Errorf("failed to init schema on %s engine: %w", engine.EngineType(), err)
		}
	}
	return nil
}

func initEngine(ctx context.Context, engine db.Engine) error {
	d := engine.Dialect()

	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id %s,
			tender_id TEXT,
			status TEXT NOT NULL DEFAULT 'pending',
			institution TEXT,
			budget_amount REAL,
			person_count INTEGER,
			duration_days INTEGER,
			tender_type TEXT,
			contextual_score REAL,
			market_risk_level TEXT,
			data_quality_score REAL,
			extracted_fields_json TEXT NOT NULL DEFAULT '{}',
			contextual_analysis_json TEXT NOT NULL DEFAULT '{}',
			market_analysis_json TEXT NOT NULL DEFAULT '{}',
			validation_json TEXT NOT NULL DEFAULT '{}',
			processing_time_ms INTEGER,
			tokens_used INTEGER,
			cost_usd REAL,
			created_at %s,
			updated_at %s
		)`, resultsTable, d.TextPrimaryKey(), d.TimestampDefault(), d.TimestampDefault()),

		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_status ON %s (status)`,
			resultsTable, resultsTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_institution ON %s (institution)`,
			resultsTable, resultsTable),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			analysis_id %s,
			data_pool_json TEXT NOT NULL,
			text_content TEXT,
			document_count INTEGER NOT NULL DEFAULT 0,
			table_count INTEGER NOT NULL DEFAULT 0,
			date_count INTEGER NOT NULL DEFAULT 0,
			entity_count INTEGER NOT NULL DEFAULT 0,
			total_size_bytes INTEGER NOT NULL DEFAULT 0,
			expires_at %s NOT NULL,
			created_at %s
		)`, dataPoolsTable, d.TextPrimaryKey(), d.Timestamp(), d.TimestampDefault()),

		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_expires ON %s (expires_at)`,
			dataPoolsTable, dataPoolsTable),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id %s,
			endpoint TEXT NOT NULL,
			model TEXT,
			input_tokens INTEGER,
			output_tokens INTEGER,
			total_tokens INTEGER,
			cost_usd REAL,
			duration_ms INTEGER,
			success %s,
			error_message TEXT,
			created_at %s
		)`, metricsTable, d.SerialPrimaryKey(), d.BooleanDefault(true), d.TimestampDefault()),

		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_created ON %s (created_at)`,
			metricsTable, metricsTable),
	}

	statements = append(statements, d.FTSCreate(ftsTable)...)

	for _, stmt := range statements {
		if _, err := engine.Execute(ctx, stmt); err != nil {
			return err
		}
	}

	return nil
}
