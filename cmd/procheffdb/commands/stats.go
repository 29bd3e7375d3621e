package commands

import (
	"context"
	"fmt"
	"sort"

	"github.com/aydarnuman/procheff-v3-sub001/pkg/analysis"
)

// ShowCostStats prints aggregated API cost statistics and optionally
// exports them to an XLSX file
func ShowCostStats(ctx context.Context, repo *analysis.Repository, days int, outputFile string) error {
	stats, err := repo.GetCostStats(ctx, days)
	if err != nil {
		return fmt.Errorf("failed to get cost stats: %w", err)
	}

	fmt.Printf("Cost statistics for the trailing %d day(s):\n\n", days)
	fmt.Printf("  Total cost:        $%.4f\n", stats.TotalCost)
	fmt.Printf("  Total requests:    %d\n", stats.TotalRequests)
	fmt.Printf("  Avg cost/request:  $%.4f\n", stats.AvgCostPerRequest)

	printBreakdown("By endpoint", stats.ByEndpoint)
	printBreakdown("By model", stats.ByModel)

	if outputFile != "" {
		if err := analysis.WriteCostStatsXLSX(stats, outputFile); err != nil {
			return fmt.Errorf("XLSX export failed: %w", err)
		}
		fmt.Printf("\n✓ Report written to %s\n", outputFile)
	}

	return nil
}

func printBreakdown(title string, buckets map[string]analysis.CostBucket) {
	if len(buckets) == 0 {
		return
	}

	keys := make([]string, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return buckets[keys[i]].Cost > buckets[keys[j]].Cost
	})

	fmt.Printf("\n  %s:\n", title)
	for _, key := range keys {
		bucket := buckets[key]
		fmt.Printf("    %-40s $%.4f (%d requests)\n", key, bucket.Cost, bucket.Requests)
	}
}
