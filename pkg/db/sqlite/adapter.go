// Package sqlite реализует embedded движок поверх файловой SQLite БД.
//
// Одно разделяемое соединение на процесс: конкурентные читатели
// обслуживаются WAL журналом самого движка, но собственные записи
// процесс сериализует через это соединение. Длинная транзакция
// блокирует все остальные embedded операции - транзакции держим
// короткими.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/aydarnuman/procheff-v3-sub001/pkg/db"
	_ "modernc.org/sqlite"
)

const driverSqlite = "sqlite"

// Compile-time check: Adapter должен реализовывать интерфейс db.Engine
var _ db.Engine = (*Adapter)(nil)

// Регистрация движка в глобальном реестре
func init() {
	db.Register("sqlite", func() db.Engine {
		return &Adapter{}
	})
}

// txKey - ключ контекста для активной транзакции.
// Вложенные Transaction вызовы находят внешнюю транзакцию по этому
// ключу и сливаются с ней
type txKey struct{}

// Adapter - embedded движок поверх SQLite
type Adapter struct {
	sdb  *sql.DB
	path string
}

// Connect открывает подключение к файлу БД.
// Первый вызов платит за инициализацию: PRAGMA тюнинг для
// конкурентных читателей
func (a *Adapter) Connect(ctx context.Context, cfg db.Config) error {
	sdb, err := sql.Open(driverSqlite, cfg.DSN)
	if err != nil {
		return &db.ConnectionError{Engine: "sqlite", Err: err}
	}

	// Одно разделяемое соединение: все операции процесса
	// сериализуются через него
	sdb.SetMaxOpenConns(1)

	if err := sdb.PingContext(ctx); err != nil {
		sdb.Close()
		return &db.ConnectionError{Engine: "sqlite", Err: err}
	}

	a.sdb = sdb
	a.path = strings.TrimPrefix(cfg.DSN, "file:")

	if err := a.applyPragmas(ctx); err != nil {
		sdb.Close()
		return fmt.Errorf("failed to apply PRAGMA settings: %w", err)
	}

	return nil
}

// applyPragmas настраивает движок под конкурентных читателей
func (a *Adapter) applyPragmas(ctx context.Context) error {
	pragmas := []string{
		// WAL: конкурентные читатели не блокируются писателем
		"PRAGMA journal_mode = WAL",

		// fsync только на критичных моментах - безопасно при WAL
		"PRAGMA synchronous = NORMAL",

		// 64 MB кеша против дефолтных ~2 MB
		"PRAGMA cache_size = -64000",

		// Временные структуры в RAM
		"PRAGMA temp_store = MEMORY",

		// Внешние ключи в SQLite по умолчанию выключены
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := a.sdb.ExecContext(ctx, pragma); err != nil {
			// Отдельные PRAGMA могут не применяться к существующей БД
			log.Printf("⚠️  Warning: %s failed: %v", pragma, err)
		}
	}

	return nil
}

// Close выполняет checkpoint WAL и освобождает соединение.
// Без checkpoint свежие коммиты могут остаться только в side-логе
func (a *Adapter) Close(ctx context.Context) error {
	if a.sdb == nil {
		return nil
	}
	if _, err := a.sdb.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		log.Printf("⚠️  Warning: WAL checkpoint failed: %v", err)
	}
	return a.sdb.Close()
}

// Ping проверяет доступность БД
func (a *Adapter) Ping(ctx context.Context) error {
	if a.sdb == nil {
		return db.ErrNotConnected
	}
	return a.sdb.PingContext(ctx)
}

// EngineType возвращает тип движка
func (a *Adapter) EngineType() string {
	return "sqlite"
}

// Dialect возвращает транслятор фрагментов для SQLite
func (a *Adapter) Dialect() db.Dialect {
	return db.NewDialect(db.FamilySQLite)
}

// DatabaseFile возвращает путь к файлу БД.
// Используется migration runner'ом для backup перед прогоном
func (a *Adapter) DatabaseFile() string {
	if a.path == ":memory:" || strings.Contains(a.path, "mode=memory") {
		return ""
	}
	return a.path
}

// queryer - общий срез *sql.DB / *sql.Tx
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// conn возвращает активную транзакцию из контекста либо само соединение
func (a *Adapter) conn(ctx context.Context) queryer {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return a.sdb
}

// Query выполняет запрос и возвращает все строки
func (a *Adapter) Query(ctx context.Context, query string, args ...any) ([]db.Row, error) {
	if a.sdb == nil {
		return nil, db.ErrNotConnected
	}

	rows, err := a.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapError("query", err)
	}
	defer rows.Close()

	return scanRows(rows)
}

// QueryOne выполняет запрос и возвращает первую строку или db.ErrNotFound
func (a *Adapter) QueryOne(ctx context.Context, query string, args ...any) (db.Row, error) {
	result, err := a.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, db.ErrNotFound
	}
	return result[0], nil
}

// Execute выполняет мутирующий запрос, возвращает количество
// затронутых строк и сгенерированный rowid (если применимо)
func (a *Adapter) Execute(ctx context.Context, query string, args ...any) (db.ExecResult, error) {
	if a.sdb == nil {
		return db.ExecResult{}, db.ErrNotConnected
	}

	result, err := a.conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return db.ExecResult{}, wrapError("execute", err)
	}

	changes, _ := result.RowsAffected()
	lastID, _ := result.LastInsertId()

	return db.ExecResult{Changes: changes, LastID: lastID}, nil
}

// Transaction выполняет замыкание атомарно.
// Вложенный вызов обнаруживает внешнюю транзакцию в контексте и
// выполняется внутри нее (flattening), commit делает только внешний
func (a *Adapter) Transaction(ctx context.Context, fn db.TxFunc) error {
	if a.sdb == nil {
		return db.ErrNotConnected
	}

	// Уже внутри транзакции - сливаемся с ней
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	tx, err := a.sdb.BeginTx(ctx, nil)
	if err != nil {
		return wrapError("begin", err)
	}

	txCtx := context.WithValue(ctx, txKey{}, tx)

	if err := fn(txCtx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return wrapError("commit", err)
	}

	return nil
}

// scanRows читает все строки результата в []db.Row
func scanRows(rows *sql.Rows) ([]db.Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	var result []db.Row
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}

		if err := rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(db.Row, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return result, nil
}

// wrapError классифицирует ошибку движка.
// Нарушения ограничений целостности поднимаются как ConstraintError,
// остальное уходит наверх как есть - адаптер ничего не проглатывает
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(strings.ToLower(err.Error()), "constraint") {
		return &db.ConstraintError{Op: op, Err: err}
	}
	return fmt.Errorf("sqlite %s failed: %w", op, err)
}
