package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/aydarnuman/procheff-v3-sub001/pkg/audit"
	"github.com/aydarnuman/procheff-v3-sub001/pkg/db"
	"github.com/aydarnuman/procheff-v3-sub001/pkg/db/migrate"
)

// MigrateOptions holds options for migration commands
type MigrateOptions struct {
	ScriptDir string
	BackupDir string
	Audit     audit.Logger
}

// loadRegistry reads the migration scripts from the configured directory
func loadRegistry(dir string) (*migrate.Registry, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("migrations directory %q is not accessible: %w", dir, err)
	}
	return migrate.LoadFS(os.DirFS(dir), ".")
}

// RunMigrations applies pending migrations on every active engine.
// Each engine keeps its own ledger, so dual mode runs the set twice
func RunMigrations(ctx context.Context, u *db.Universal, opts MigrateOptions) error {
	reg, err := loadRegistry(opts.ScriptDir)
	if err != nil {
		return err
	}

	fmt.Printf("Found %d migration script(s) in %s\n", reg.Len(), opts.ScriptDir)

	for _, engine := range u.Engines() {
		fmt.Printf("Applying migrations on %s engine...\n", engine.EngineType())

		runner := migrate.NewRunner(engine, opts.BackupDir)
		runner.Logf = func(format string, args ...any) {
			fmt.Printf(format+"\n", args...)
		}

		if err := runner.RunAll(ctx, reg); err != nil {
			if opts.Audit != nil {
				opts.Audit.LogFailure(ctx, audit.OpMigrate, err).WithEngine(engine.EngineType())
			}
			return fmt.Errorf("migration run on %s engine failed: %w", engine.EngineType(), err)
		}

		if opts.Audit != nil {
			opts.Audit.LogSuccess(ctx, audit.OpMigrate)
		}
	}

	fmt.Println("✓ Migrations complete")
	return nil
}

// RollbackMigration rolls back the most recent migration on every
// active engine
func RollbackMigration(ctx context.Context, u *db.Universal, opts MigrateOptions) error {
	reg, err := loadRegistry(opts.ScriptDir)
	if err != nil {
		return err
	}

	for _, engine := range u.Engines() {
		fmt.Printf("Rolling back on %s engine...\n", engine.EngineType())

		runner := migrate.NewRunner(engine, opts.BackupDir)
		runner.Logf = func(format string, args ...any) {
			fmt.Printf(format+"\n", args...)
		}

		if err := runner.Rollback(ctx, reg); err != nil {
			if opts.Audit != nil {
				opts.Audit.LogFailure(ctx, audit.OpRollback, err).WithEngine(engine.EngineType())
			}
			return fmt.Errorf("rollback on %s engine failed: %w", engine.EngineType(), err)
		}

		if opts.Audit != nil {
			opts.Audit.LogSuccess(ctx, audit.OpRollback)
		}
	}

	fmt.Println("✓ Rollback complete")
	return nil
}
