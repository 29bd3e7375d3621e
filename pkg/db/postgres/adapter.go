// Package postgres реализует server движок поверх PostgreSQL
// через ограниченный connection pool (pgxpool).
//
// Каждая операция неявно занимает соединение из пула и немедленно
// возвращает его. Transaction явно выкупает одно соединение на все
// замыкание: BEGIN / COMMIT / ROLLBACK идут по нему, возврат в пул
// гарантирован defer'ом на всех путях ошибок - утечка соединения
// предотвращена структурно, а не тестами.
package postgres

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aydarnuman/procheff-v3-sub001/pkg/db"
)

// Пул по умолчанию (значения исходной системы)
const (
	defaultMaxConns       = 20
	defaultMinConns       = 2
	defaultIdleTimeout    = 30 * time.Second
	defaultAcquireTimeout = 2 * time.Second
)

// Compile-time check: Adapter должен реализовывать интерфейс db.Engine
var _ db.Engine = (*Adapter)(nil)

// Регистрация движка в глобальном реестре
func init() {
	db.Register("postgres", func() db.Engine {
		return &Adapter{}
	})
}

// txKey - ключ контекста для транзакции, закрепленной за соединением
type txKey struct{}

// Adapter - server движок поверх пула PostgreSQL
type Adapter struct {
	pool           *pgxpool.Pool
	acquireTimeout time.Duration
}

// Connect создает connection pool и проверяет доступность БД
func (a *Adapter) Connect(ctx context.Context, cfg db.Config) error {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return fmt.Errorf("failed to parse connection string: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	} else {
		poolCfg.MaxConns = defaultMaxConns
	}

	if cfg.MinConns > 0 {
		poolCfg.MinConns = int32(cfg.MinConns)
	} else {
		poolCfg.MinConns = defaultMinConns
	}

	if cfg.IdleTimeout > 0 {
		poolCfg.MaxConnIdleTime = cfg.IdleTimeout
	} else {
		poolCfg.MaxConnIdleTime = defaultIdleTimeout
	}

	if cfg.RequireTLS && poolCfg.ConnConfig.TLSConfig == nil {
		poolCfg.ConnConfig.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return &db.ConnectionError{Engine: "postgres", Err: err}
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return &db.ConnectionError{Engine: "postgres", Err: err}
	}

	a.pool = pool
	a.acquireTimeout = cfg.AcquireTimeout
	if a.acquireTimeout <= 0 {
		a.acquireTimeout = defaultAcquireTimeout
	}

	return nil
}

// Close сливает и закрывает connection pool
func (a *Adapter) Close(ctx context.Context) error {
	if a.pool != nil {
		a.pool.Close()
	}
	return nil
}

// Ping проверяет доступность БД
func (a *Adapter) Ping(ctx context.Context) error {
	if a.pool == nil {
		return db.ErrNotConnected
	}
	return a.pool.Ping(ctx)
}

// EngineType возвращает тип движка
func (a *Adapter) EngineType() string {
	return "postgres"
}

// Dialect возвращает транслятор фрагментов для PostgreSQL
func (a *Adapter) Dialect() db.Dialect {
	return db.NewDialect(db.FamilyPostgres)
}

// acquire выкупает соединение из пула с таймаутом.
// Исчерпание пула - отдельный вид ошибки, не смешиваемый с
// ошибками запросов
func (a *Adapter) acquire(ctx context.Context) (*pgxpool.Conn, error) {
	acquireCtx, cancel := context.WithTimeout(ctx, a.acquireTimeout)
	defer cancel()

	conn, err := a.pool.Acquire(acquireCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w: no connection available within %s",
				db.ErrPoolExhausted, a.acquireTimeout)
		}
		return nil, &db.ConnectionError{Engine: "postgres", Err: err}
	}
	return conn, nil
}

// Query выполняет запрос и возвращает все строки
func (a *Adapter) Query(ctx context.Context, query string, args ...any) ([]db.Row, error) {
	if a.pool == nil {
		return nil, db.ErrNotConnected
	}

	query = Rebind(query)

	// Внутри транзакции запросы идут по ее закрепленному соединению
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		rows, err := tx.Query(ctx, query, args...)
		if err != nil {
			return nil, wrapError("query", err)
		}
		return collectRows(rows)
	}

	conn, err := a.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapError("query", err)
	}
	return collectRows(rows)
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

// Execute выполняет мутирующий запрос.
// PostgreSQL не возвращает generated id через CommandTag - LastID
// всегда 0 (исходная система вела себя так же)
func (a *Adapter) Execute(ctx context.Context, query string, args ...any) (db.ExecResult, error) {
	if a.pool == nil {
		return db.ExecResult{}, db.ErrNotConnected
	}

	query = Rebind(query)

	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		tag, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return db.ExecResult{}, wrapError("execute", err)
		}
		return db.ExecResult{Changes: tag.RowsAffected()}, nil
	}

	conn, err := a.acquire(ctx)
	if err != nil {
		return db.ExecResult{}, err
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, query, args...)
	if err != nil {
		return db.ExecResult{}, wrapError("execute", err)
	}

	return db.ExecResult{Changes: tag.RowsAffected()}, nil
}

// Transaction выкупает одно соединение, выполняет замыкание внутри
// BEGIN/COMMIT и гарантированно возвращает соединение в пул.
// Вложенный вызов сливается с внешней транзакцией
func (a *Adapter) Transaction(ctx context.Context, fn db.TxFunc) error {
	if a.pool == nil {
		return db.ErrNotConnected
	}

	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}

	conn, err := a.acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return wrapError("begin", err)
	}

	txCtx := context.WithValue(ctx, txKey{}, tx)

	if err := fn(txCtx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return wrapError("commit", err)
	}

	return nil
}

// collectRows читает все строки результата в []db.Row
func collectRows(rows pgx.Rows) ([]db.Row, error) {
	defer rows.Close()

	fields := rows.FieldDescriptions()

	var result []db.Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read row values: %w", err)
		}

		row := make(db.Row, len(fields))
		for i, field := range fields {
			row[field.Name] = values[i]
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, wrapError("query", err)
	}

	return result, nil
}

// wrapError классифицирует ошибку движка по SQLSTATE.
// Класс 23 - нарушения целостности (unique, foreign key, check)
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && len(pgErr.Code) >= 2 && pgErr.Code[:2] == "23" {
		return &db.ConstraintError{Op: op, Err: err}
	}

	return fmt.Errorf("postgres %s failed: %w", op, err)
}
