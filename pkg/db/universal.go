package db

import (
	"context"
	"errors"
	"fmt"
	"log"
)

// Mode - режим работы универсального адаптера.
// Выбирается один раз при старте процесса и не меняется в runtime
type Mode string

const (
	// ModeEmbedded - только embedded движок (SQLite)
	ModeEmbedded Mode = "embedded"

	// ModeServer - только server движок (PostgreSQL)
	ModeServer Mode = "server"

	// ModeDual - server движок основной, embedded - best-effort fallback/зеркало
	ModeDual Mode = "dual"
)

// UniversalConfig - конфигурация универсального адаптера
type UniversalConfig struct {
	// Mode - режим: embedded | server | dual
	Mode Mode `yaml:"mode"`

	// Embedded - конфигурация embedded движка (режимы embedded и dual)
	Embedded Config `yaml:"embedded"`

	// Server - конфигурация server движка (режимы server и dual)
	Server Config `yaml:"server"`

	// OnWarning - callback для деградаций dual режима: fallback на
	// embedded движок и проглоченные ошибки зеркальной записи.
	// nil = запись в стандартный лог
	OnWarning func(op string, err error) `yaml:"-"`
}

// Validate проверяет согласованность конфигурации
func (c *UniversalConfig) Validate() error {
	switch c.Mode {
	case ModeEmbedded:
		if c.Embedded.DSN == "" {
			return fmt.Errorf("embedded mode requires embedded.dsn")
		}
	case ModeServer:
		if c.Server.DSN == "" {
			return fmt.Errorf("server mode requires server.dsn")
		}
	case ModeDual:
		if c.Server.DSN == "" || c.Embedded.DSN == "" {
			return fmt.Errorf("dual mode requires both server.dsn and embedded.dsn")
		}
	default:
		return fmt.Errorf("unknown mode: %q (expected embedded, server or dual)", c.Mode)
	}
	return nil
}

// Universal - универсальный адаптер поверх одного или двух движков.
// Контракт для вызывающего кода одинаков во всех режимах:
// Query / QueryOne / Execute / Transaction.
//
// В dual режиме каждая операция сначала идет на server движок;
// при любой ошибке операция повторяется на embedded движке, а
// предупреждение уходит в OnWarning. Успешный Execute дополнительно
// зеркалируется на embedded движок fire-and-forget: ошибка зеркала
// проглатывается и логируется, хранилища могут разойтись.
// Механизма reconciliation нет - это осознанное ограничение dual
// режима, см. DESIGN.md
type Universal struct {
	mode     Mode
	primary  Engine
	fallback Engine // только в dual режиме
	warn     func(op string, err error)
}

// Проверка контракта: Universal сам реализует операционную часть Engine
var _ interface {
	Query(ctx context.Context, sql string, args ...any) ([]Row, error)
	QueryOne(ctx context.Context, sql string, args ...any) (Row, error)
	Execute(ctx context.Context, sql string, args ...any) (ExecResult, error)
	Transaction(ctx context.Context, fn TxFunc) error
} = (*Universal)(nil)

// NewUniversal создает универсальный адаптер: подключает движки
// согласно режиму и возвращает готовый адаптер
func NewUniversal(ctx context.Context, cfg UniversalConfig) (*Universal, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid database config: %w", err)
	}

	warn := cfg.OnWarning
	if warn == nil {
		warn = func(op string, err error) {
			log.Printf("[db] warning: %s: %v", op, err)
		}
	}

	u := &Universal{mode: cfg.Mode, warn: warn}

	switch cfg.Mode {
	case ModeEmbedded:
		engine, err := NewEngine(ctx, cfg.Embedded)
		if err != nil {
			return nil, err
		}
		u.primary = engine

	case ModeServer:
		engine, err := NewEngine(ctx, cfg.Server)
		if err != nil {
			return nil, err
		}
		u.primary = engine

	case ModeDual:
		server, err := NewEngine(ctx, cfg.Server)
		if err != nil {
			return nil, err
		}
		embedded, err := NewEngine(ctx, cfg.Embedded)
		if err != nil {
			server.Close(ctx)
			return nil, err
		}
		u.primary = server
		u.fallback = embedded
	}

	return u, nil
}

// GetMode возвращает активный режим (для диагностики)
func (u *Universal) GetMode() Mode {
	return u.mode
}

// Primary возвращает основной движок
func (u *Universal) Primary() Engine {
	return u.primary
}

// Engines возвращает все активные движки (1 или 2).
// Инициализация схемы обходит их по очереди, выдавая каждому
// DDL в его собственном диалекте
func (u *Universal) Engines() []Engine {
	if u.fallback != nil {
		return []Engine{u.primary, u.fallback}
	}
	return []Engine{u.primary}
}

// Dialect возвращает диалект основного движка
func (u *Universal) Dialect() Dialect {
	return u.primary.Dialect()
}

// Query выполняет запрос и возвращает все строки
func (u *Universal) Query(ctx context.Context, sql string, args ...any) ([]Row, error) {
	rows, err := u.primary.Query(ctx, sql, args...)
	if err != nil && u.fallback != nil {
		u.warn("query fallback to embedded engine", err)
		return u.fallback.Query(ctx, sql, args...)
	}
	return rows, err
}

// QueryOne выполняет запрос и возвращает первую строку или ErrNotFound.
// ErrNotFound - легитимный результат, fallback на него не срабатывает
func (u *Universal) QueryOne(ctx context.Context, sql string, args ...any) (Row, error) {
	row, err := u.primary.QueryOne(ctx, sql, args...)
	if err != nil && !errors.Is(err, ErrNotFound) && u.fallback != nil {
		u.warn("queryOne fallback to embedded engine", err)
		return u.fallback.QueryOne(ctx, sql, args...)
	}
	return row, err
}

// Execute выполняет мутирующий запрос.
// В dual режиме успешная server-запись зеркалируется на embedded
// движок "для консистентности"; ошибка зеркала никогда не доходит
// до вызывающего
func (u *Universal) Execute(ctx context.Context, sql string, args ...any) (ExecResult, error) {
	result, err := u.primary.Execute(ctx, sql, args...)

	if u.fallback == nil {
		return result, err
	}

	if err != nil {
		u.warn("execute fallback to embedded engine", err)
		return u.fallback.Execute(ctx, sql, args...)
	}

	// Best-effort зеркало
	if _, mirrorErr := u.fallback.Execute(ctx, sql, args...); mirrorErr != nil {
		u.warn("mirror write to embedded engine failed (stores may diverge)", mirrorErr)
	}

	return result, nil
}

// Transaction выполняет замыкание атомарно на основном движке.
// В dual режиме транзакция НЕ зеркалируется: при ошибке server
// движка весь блок повторяется на embedded
func (u *Universal) Transaction(ctx context.Context, fn TxFunc) error {
	err := u.primary.Transaction(ctx, fn)
	if err != nil && u.fallback != nil {
		u.warn("transaction fallback to embedded engine", err)
		return u.fallback.Transaction(ctx, fn)
	}
	return err
}

// Ping проверяет доступность всех активных движков
func (u *Universal) Ping(ctx context.Context) error {
	for _, engine := range u.Engines() {
		if err := engine.Ping(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Close закрывает все движки: checkpoint embedded WAL,
// слив и закрытие server пула. Обязателен при завершении процесса
func (u *Universal) Close(ctx context.Context) error {
	var firstErr error
	for _, engine := range u.Engines() {
		if err := engine.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
