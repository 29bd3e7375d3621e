package migrate

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zeebo/xxh3"

	"github.com/aydarnuman/procheff-v3-sub001/pkg/db"
)

// ledgerTable - журнал применений. Имя скрипта уникально: одна и та
// же миграция не может быть применена дважды
const ledgerTable = "schema_migrations"

// Runner прогоняет миграции по одному движку.
// В dual-режиме прогон выполняется по каждому движку отдельно -
// у каждого хранилища собственный журнал применений
type Runner struct {
	engine    db.Engine
	backupDir string

	// Logf выводит ход прогона. nil - молчаливый прогон
	Logf func(format string, args ...any)

	// now подменяется в тестах
	now func() time.Time
}

// NewRunner создает раннер миграций для движка.
// backupDir - каталог резервных копий файловых БД; пустая строка
// отключает резервное копирование
func NewRunner(engine db.Engine, backupDir string) *Runner {
	return &Runner{
		engine:    engine,
		backupDir: backupDir,
		now:       time.Now,
	}
}

func (r *Runner) logf(format string, args ...any) {
	if r.Logf != nil {
		r.Logf(format, args...)
	}
}

// Checksum вычисляет xxh3 (64-bit) контрольную сумму скрипта миграции
func Checksum(m Migration) string {
	h := xxh3.Hash([]byte(strings.Join(m.Up, "\n")))
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(h)
		h >>= 8
	}
	return hex.EncodeToString(b)
}

// ensureLedger создает журнал применений, если его еще нет
func (r *Runner) ensureLedger(ctx context.Context) error {
	d := r.engine.Dialect()
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		filename TEXT PRIMARY KEY,
		checksum TEXT NOT NULL,
		applied_at %s NOT NULL
	)`, ledgerTable, d.Timestamp())

	if _, err := r.engine.Execute(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create migrations ledger: %w", err)
	}
	return nil
}

// Applied возвращает журнал применений: имя скрипта -> контрольная сумма
func (r *Runner) Applied(ctx context.Context) (map[string]string, error) {
	rows, err := r.engine.Query(ctx,
		fmt.Sprintf("SELECT filename, checksum FROM %s", ledgerTable))
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations ledger: %w", err)
	}

	applied := make(map[string]string, len(rows))
	for _, row := range rows {
		applied[row.AsString("filename")] = row.AsString("checksum")
	}
	return applied, nil
}

// Pending возвращает еще не примененные миграции в порядке номеров.
// Изменение уже примененного скрипта - ошибка: журнал фиксирует
// контрольную сумму на момент применения
func (r *Runner) Pending(reg *Registry, applied map[string]string) ([]Migration, error) {
	var pending []Migration
	for _, m := range reg.All() {
		recorded, ok := applied[m.Filename()]
		if !ok {
			pending = append(pending, m)
			continue
		}
		if sum := Checksum(m); recorded != "" && recorded != sum {
			return nil, fmt.Errorf(
				"migration %s was modified after being applied: ledger checksum %s, current %s",
				m.Filename(), recorded, sum)
		}
	}
	return pending, nil
}

// RunAll применяет все недостающие миграции.
// Перед первым изменением схемы файловая БД копируется в backupDir.
// Каждый скрипт выполняется в собственной транзакции вместе с записью
// в журнал: либо шаг применен и записан, либо не произошло ничего
func (r *Runner) RunAll(ctx context.Context, reg *Registry) error {
	if err := r.ensureLedger(ctx); err != nil {
		return err
	}

	applied, err := r.Applied(ctx)
	if err != nil {
		return err
	}

	pending, err := r.Pending(reg, applied)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		r.logf("Schema is up to date (%d migrations applied)", len(applied))
		return nil
	}

	if r.backupDir != "" {
		if fb, ok := r.engine.(FileBacked); ok && fb.DatabaseFile() != "" {
			backupPath, err := BackupFile(fb.DatabaseFile(), r.backupDir)
			if err != nil {
				return fmt.Errorf("failed to back up database before migration: %w", err)
			}
			r.logf("✅ Database backed up to %s", backupPath)
		}
	}

	for _, m := range pending {
		if err := r.apply(ctx, m); err != nil {
			return &db.MigrationFailure{Script: m.Filename(), Err: err}
		}
		r.logf("✅ Applied migration %s", m.Filename())
	}

	return nil
}

func (r *Runner) apply(ctx context.Context, m Migration) error {
	return r.engine.Transaction(ctx, func(txCtx context.Context) error {
		for _, stmt := range m.Up {
			if _, err := r.engine.Execute(txCtx, stmt); err != nil {
				return err
			}
		}
		_, err := r.engine.Execute(txCtx,
			fmt.Sprintf("INSERT INTO %s (filename, checksum, applied_at) VALUES (?, ?, ?)", ledgerTable),
			m.Filename(), Checksum(m), db.FormatTime(r.now().UTC()))
		return err
	})
}

// Rollback откатывает последнюю примененную миграцию.
// Имена скриптов дополнены нулями, поэтому порядок применения
// совпадает с лексикографическим. Миграция без rollback-скрипта
// не откатывается: выводится предупреждение, журнал не меняется
func (r *Runner) Rollback(ctx context.Context, reg *Registry) error {
	if err := r.ensureLedger(ctx); err != nil {
		return err
	}

	row, err := r.engine.QueryOne(ctx,
		fmt.Sprintf("SELECT filename FROM %s ORDER BY filename DESC LIMIT 1", ledgerTable))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			r.logf("Nothing to roll back: ledger is empty")
			return nil
		}
		return fmt.Errorf("failed to read migrations ledger: %w", err)
	}

	filename := row.AsString("filename")

	var target Migration
	found := false
	for _, m := range reg.All() {
		if m.Filename() == filename {
			target = m
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("ledger references unknown migration %s", filename)
	}

	if len(target.Down) == 0 {
		r.logf("⚠️  Migration %s has no rollback script, skipping", filename)
		return nil
	}

	err = r.engine.Transaction(ctx, func(txCtx context.Context) error {
		for _, stmt := range target.Down {
			if _, err := r.engine.Execute(txCtx, stmt); err != nil {
				return err
			}
		}
		_, err := r.engine.Execute(txCtx,
			fmt.Sprintf("DELETE FROM %s WHERE filename = ?", ledgerTable), filename)
		return err
	})
	if err != nil {
		return &db.MigrationFailure{Script: filename, Err: err}
	}

	r.logf("✅ Rolled back migration %s", filename)
	return nil
}
