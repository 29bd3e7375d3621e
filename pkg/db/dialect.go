package db

import (
	"fmt"
	"time"
)

// Family - семейство движков БД
type Family string

const (
	FamilySQLite   Family = "sqlite"
	FamilyPostgres Family = "postgres"
)

// TimeFormat - единый формат временных меток, записываемых репозиторием.
// Фиксированная ширина миллисекунд сохраняет лексикографический порядок
// в TEXT-колонках SQLite; PostgreSQL парсит формат как timestamptz (UTC)
const TimeFormat = "2006-01-02T15:04:05.000Z"

// FormatTime приводит время к каноническому виду для хранения
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

// Dialect - транслятор логических DDL/SQL фрагментов в синтаксис
// активного семейства движков.
// Каждый schema-creation statement в кодовой базе обязан получать
// фрагменты отсюда: захардкоженный диалектный фрагмент вне этого
// файла считается дефектом
type Dialect struct {
	family Family
}

// NewDialect создает транслятор для семейства движков
func NewDialect(family Family) Dialect {
	return Dialect{family: family}
}

// Family возвращает семейство движков
func (d Dialect) Family() Family {
	return d.family
}

// TextPrimaryKey - текстовый первичный ключ
func (d Dialect) TextPrimaryKey() string {
	return "TEXT PRIMARY KEY"
}

// SerialPrimaryKey - автоинкрементный первичный ключ
func (d Dialect) SerialPrimaryKey() string {
	if d.family == FamilyPostgres {
		return "SERIAL PRIMARY KEY"
	}
	return "INTEGER PRIMARY KEY AUTOINCREMENT"
}

// Timestamp - тип колонки для временной метки
func (d Dialect) Timestamp() string {
	if d.family == FamilyPostgres {
		return "TIMESTAMPTZ"
	}
	return "TEXT"
}

// TimestampDefault - временная метка с дефолтом "сейчас"
func (d Dialect) TimestampDefault() string {
	if d.family == FamilyPostgres {
		return "TIMESTAMPTZ DEFAULT NOW()"
	}
	return "TEXT DEFAULT (datetime('now'))"
}

// Boolean - тип булевой колонки
func (d Dialect) Boolean() string {
	if d.family == FamilyPostgres {
		return "BOOLEAN"
	}
	return "INTEGER"
}

// BooleanDefault - булева колонка с дефолтом
func (d Dialect) BooleanDefault(value bool) string {
	if d.family == FamilyPostgres {
		return fmt.Sprintf("BOOLEAN DEFAULT %t", value)
	}
	if value {
		return "INTEGER DEFAULT 1"
	}
	return "INTEGER DEFAULT 0"
}

// BoolValue - представление булевого значения для bind-параметра
func (d Dialect) BoolValue(value bool) any {
	if d.family == FamilyPostgres {
		return value
	}
	if value {
		return int64(1)
	}
	return int64(0)
}

// Now - SQL выражение "текущее время"
func (d Dialect) Now() string {
	if d.family == FamilyPostgres {
		return "CURRENT_TIMESTAMP"
	}
	return "datetime('now')"
}

// NowMinusHours - SQL выражение "текущее время минус N часов"
func (d Dialect) NowMinusHours(hours int) string {
	if d.family == FamilyPostgres {
		return fmt.Sprintf("CURRENT_TIMESTAMP - INTERVAL '%d hours'", hours)
	}
	return fmt.Sprintf("datetime('now', '-%d hours')", hours)
}

// ========== Full-text search ==========
//
// FTS реализуется принципиально по-разному в двух семействах:
// SQLite использует виртуальную таблицу FTS5, PostgreSQL - tsvector
// с GIN индексом. В dual режиме DDL выполняется дважды, по разу на
// семейство, каждому движку - его фрагменты.

// FTSCreate - DDL shadow-индекса полнотекстового поиска
func (d Dialect) FTSCreate(table string) []string {
	if d.family == FamilyPostgres {
		return []string{
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
				analysis_id TEXT PRIMARY KEY,
				content TEXT NOT NULL,
				content_tsv TSVECTOR GENERATED ALWAYS AS (to_tsvector('simple', content)) STORED
			)`, table),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_tsv ON %s USING GIN (content_tsv)`, table, table),
		}
	}
	return []string{
		fmt.Sprintf(`CREATE VIRTUAL TABLE IF NOT EXISTS %s USING fts5(analysis_id UNINDEXED, content)`, table),
	}
}

// FTSUpsert - statements для перегенерации shadow-записи.
// FTS5 не поддерживает ON CONFLICT, поэтому для SQLite это delete+insert
func (d Dialect) FTSUpsert(table string) []string {
	if d.family == FamilyPostgres {
		return []string{
			fmt.Sprintf(`INSERT INTO %s (analysis_id, content) VALUES (?, ?)
				ON CONFLICT (analysis_id) DO UPDATE SET content = EXCLUDED.content`, table),
		}
	}
	return []string{
		fmt.Sprintf(`DELETE FROM %s WHERE analysis_id = ?`, table),
		fmt.Sprintf(`INSERT INTO %s (analysis_id, content) VALUES (?, ?)`, table),
	}
}

// FTSSearch - запрос поиска с ранжированием, JOIN обратно на основную таблицу.
// Параметры: (query, limit)
func (d Dialect) FTSSearch(ftsTable, mainTable string) string {
	if d.family == FamilyPostgres {
		return fmt.Sprintf(`
			SELECT a.* FROM %s a
			INNER JOIN %s f ON a.id = f.analysis_id
			WHERE f.content_tsv @@ plainto_tsquery('simple', ?)
			ORDER BY ts_rank(f.content_tsv, plainto_tsquery('simple', ?)) DESC
			LIMIT ?`, mainTable, ftsTable)
	}
	return fmt.Sprintf(`
		SELECT a.* FROM %s a
		INNER JOIN %s f ON a.id = f.analysis_id
		WHERE %s MATCH ?
		ORDER BY rank
		LIMIT ?`, mainTable, ftsTable, ftsTable)
}

// FTSSearchArgs собирает аргументы для FTSSearch: семейства
// различаются количеством вхождений параметра query
func (d Dialect) FTSSearchArgs(query string, limit int) []any {
	if d.family == FamilyPostgres {
		return []any{query, query, limit}
	}
	return []any{query, limit}
}
