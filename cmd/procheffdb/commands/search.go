package commands

import (
	"context"
	"fmt"

	"github.com/aydarnuman/procheff-v3-sub001/pkg/analysis"
)

// SearchResults runs a full-text query over analysis results
func SearchResults(ctx context.Context, repo *analysis.Repository, query string, limit int) error {
	results, err := repo.Search(ctx, query, limit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("⚠ No matching analysis results")
		return nil
	}

	fmt.Printf("Found %d result(s):\n\n", len(results))
	printResults(results)
	return nil
}

// ListByStatus prints analysis results in the given lifecycle status
func ListByStatus(ctx context.Context, repo *analysis.Repository, status string, limit int) error {
	results, err := repo.FindByStatus(ctx, analysis.Status(status), limit)
	if err != nil {
		return fmt.Errorf("failed to list by status: %w", err)
	}

	if len(results) == 0 {
		fmt.Printf("⚠ No analysis results with status %q\n", status)
		return nil
	}

	fmt.Printf("%d result(s) with status %q:\n\n", len(results), status)
	printResults(results)
	return nil
}

func printResults(results []*analysis.Result) {
	for _, result := range results {
		institution := result.Institution
		if institution == "" {
			institution = "-"
		}
		fmt.Printf("  %s  %-10s  %-30s  score=%.1f  cost=$%.4f\n",
			result.ID, result.Status, institution,
			result.ContextualScore, result.CostUSD)
	}
}
