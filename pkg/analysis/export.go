package analysis

import (
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"
)

// WriteCostStatsXLSX выгружает статистику затрат в Excel-файл:
// лист сводки плюс разбивки по endpoint и по модели.
//
// Пример:
//
//	stats, _ := repo.GetCostStats(ctx, 30)
//	err := analysis.WriteCostStatsXLSX(stats, "costs.xlsx")
func WriteCostStatsXLSX(stats CostStats, filePath string) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	const summarySheet = "Summary"
	index, err := f.NewSheet(summarySheet)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	f.SetCellValue(summarySheet, "A1", "Metric")
	f.SetCellValue(summarySheet, "B1", "Value")
	f.SetCellStyle(summarySheet, "A1", "B1", headerStyle)

	f.SetCellValue(summarySheet, "A2", "Total cost (USD)")
	f.SetCellValue(summarySheet, "B2", stats.TotalCost)
	f.SetCellValue(summarySheet, "A3", "Total requests")
	f.SetCellValue(summarySheet, "B3", stats.TotalRequests)
	f.SetCellValue(summarySheet, "A4", "Avg cost per request (USD)")
	f.SetCellValue(summarySheet, "B4", stats.AvgCostPerRequest)

	if err := writeBreakdown(f, "By Endpoint", "Endpoint", stats.ByEndpoint, headerStyle); err != nil {
		return err
	}
	if err := writeBreakdown(f, "By Model", "Model", stats.ByModel, headerStyle); err != nil {
		return err
	}

	if err := f.SaveAs(filePath); err != nil {
		return fmt.Errorf("failed to save XLSX file: %w", err)
	}

	return nil
}

// writeBreakdown пишет один лист разбивки, строки отсортированы по
// убыванию стоимости
func writeBreakdown(f *excelize.File, sheetName, keyHeader string, buckets map[string]CostBucket, headerStyle int) error {
	if _, err := f.NewSheet(sheetName); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	f.SetCellValue(sheetName, "A1", keyHeader)
	f.SetCellValue(sheetName, "B1", "Cost (USD)")
	f.SetCellValue(sheetName, "C1", "Requests")
	f.SetCellStyle(sheetName, "A1", "C1", headerStyle)

	keys := make([]string, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if buckets[keys[i]].Cost != buckets[keys[j]].Cost {
			return buckets[keys[i]].Cost > buckets[keys[j]].Cost
		}
		return keys[i] < keys[j]
	})

	for i, key := range keys {
		row := i + 2
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), key)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), buckets[key].Cost)
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), buckets[key].Requests)
	}

	return nil
}
