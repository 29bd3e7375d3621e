package commands

import (
	"context"
	"fmt"

	"github.com/aydarnuman/procheff-v3-sub001/pkg/analysis"
	"github.com/aydarnuman/procheff-v3-sub001/pkg/db"
)

// InitSchema creates the repository tables on every active engine
func InitSchema(ctx context.Context, u *db.Universal) error {
	fmt.Printf("Initializing schema (mode: %s)...\n", u.GetMode())

	if err := analysis.InitSchema(ctx, u); err != nil {
		return fmt.Errorf("schema initialization failed: %w", err)
	}

	for _, engine := range u.Engines() {
		fmt.Printf("✓ Schema ready on %s engine\n", engine.EngineType())
	}
	return nil
}
