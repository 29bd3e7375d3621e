package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/aydarnuman/procheff-v3-sub001/pkg/analysis"
	"github.com/aydarnuman/procheff-v3-sub001/pkg/audit"
	"github.com/aydarnuman/procheff-v3-sub001/pkg/eventlog"
)

// CleanupDataPools deletes expired data pool entries.
// When an event publisher is configured the cleanup outcome is
// published for external schedulers; publish failures are non-fatal
func CleanupDataPools(ctx context.Context, repo *analysis.Repository, auditLog audit.Logger, events *eventlog.RedisPublisher) error {
	removed, err := repo.CleanupExpiredDataPools(ctx)
	if err != nil {
		if auditLog != nil {
			auditLog.LogFailure(ctx, audit.OpCleanup, err)
		}
		return fmt.Errorf("cleanup failed: %w", err)
	}

	if auditLog != nil {
		auditLog.LogSuccess(ctx, audit.OpCleanup).WithRecordsAffected(removed)
	}

	if events != nil {
		if err := events.Publish(ctx, "datapool", "cleanup", 0, 0, nil); err != nil {
			fmt.Fprintf(os.Stderr, "⚠️  Warning: failed to publish cleanup event: %v\n", err)
		}
	}

	fmt.Printf("✓ Removed %d expired data pool entr(ies)\n", removed)
	return nil
}
