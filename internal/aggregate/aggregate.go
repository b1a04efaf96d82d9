// Package aggregate computes the per-chart summary tables from a
// filtered view. Every function is a pure pass over its input; groups
// without rows never appear and sums are plain float64 additions in row
// order.
package aggregate

import (
	"math"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"sales-dashboard/internal/models"
)

const (
	SampleSize  = 5
	PreviewSize = 500
)

// MonthLabel renders a truncated month as "2006 : Jan".
func MonthLabel(month time.Time) string {
	return month.Format("2006 : Jan")
}

// TruncateMonth returns the first day of the month t falls in.
func TruncateMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// SumBy groups records by key and sums Sales. Keys come back sorted.
func SumBy(records []models.Record, key func(models.Record) string) []models.GroupSum {
	sums := make(map[string]float64)
	for _, r := range records {
		sums[key(r)] += r.Sales
	}

	result := make([]models.GroupSum, 0, len(sums))
	for k, v := range sums {
		result = append(result, models.GroupSum{Key: k, Sales: v})
	}
	slices.SortFunc(result, func(a, b models.GroupSum) int {
		return strings.Compare(a.Key, b.Key)
	})
	return result
}

func ByCategory(records []models.Record) []models.GroupSum {
	return SumBy(records, func(r models.Record) string { return r.Category })
}

func ByRegion(records []models.Record) []models.GroupSum {
	return SumBy(records, func(r models.Record) string { return r.Region })
}

func BySegment(records []models.Record) []models.GroupSum {
	return SumBy(records, func(r models.Record) string { return r.Segment })
}

// CategoryPie is the category grouping used by the pie chart. It is kept
// apart from ByCategory so the two renderings can diverge.
func CategoryPie(records []models.Record) []models.GroupSum {
	return ByCategory(records)
}

// MonthlySales buckets Sales by calendar month, ordered by the month
// itself and not by its label.
func MonthlySales(records []models.Record) []models.MonthSum {
	sums := make(map[time.Time]float64)
	for _, r := range records {
		sums[TruncateMonth(r.OrderDate)] += r.Sales
	}

	result := make([]models.MonthSum, 0, len(sums))
	for month, total := range sums {
		result = append(result, models.MonthSum{
			Month: month,
			Label: MonthLabel(month),
			Sales: total,
		})
	}
	slices.SortFunc(result, func(a, b models.MonthSum) int {
		return a.Month.Compare(b.Month)
	})
	return result
}

type treemapKey struct {
	region, category, subCategory string
}

// Treemap sums Sales per (Region, Category, Sub-Category) leaf.
func Treemap(records []models.Record) []models.TreemapNode {
	sums := make(map[treemapKey]float64)
	for _, r := range records {
		sums[treemapKey{r.Region, r.Category, r.SubCategory}] += r.Sales
	}

	result := make([]models.TreemapNode, 0, len(sums))
	for k, v := range sums {
		result = append(result, models.TreemapNode{
			Region:      k.region,
			Category:    k.category,
			SubCategory: k.subCategory,
			Sales:       v,
		})
	}
	slices.SortFunc(result, func(a, b models.TreemapNode) int {
		if c := strings.Compare(a.Region, b.Region); c != 0 {
			return c
		}
		if c := strings.Compare(a.Category, b.Category); c != 0 {
			return c
		}
		return strings.Compare(a.SubCategory, b.SubCategory)
	})
	return result
}

// SubCategoryByMonth pivots Sales by Sub-Category (rows) and month name
// (columns, January first). Pairs without rows are left out of Cells.
func SubCategoryByMonth(records []models.Record) models.Pivot {
	cells := make(map[string]map[string]float64)
	var months [13]bool
	for _, r := range records {
		m := r.OrderDate.Month()
		months[m] = true
		row, ok := cells[r.SubCategory]
		if !ok {
			row = make(map[string]float64)
			cells[r.SubCategory] = row
		}
		row[m.String()] += r.Sales
	}

	pivot := models.Pivot{
		Rows:    make([]string, 0, len(cells)),
		Columns: make([]string, 0, 12),
		Cells:   cells,
	}
	for sub := range cells {
		pivot.Rows = append(pivot.Rows, sub)
	}
	slices.Sort(pivot.Rows)
	for m := time.January; m <= time.December; m++ {
		if months[m] {
			pivot.Columns = append(pivot.Columns, m.String())
		}
	}
	return pivot
}

func Scatter(records []models.Record) []models.ScatterPoint {
	points := make([]models.ScatterPoint, 0, len(records))
	for _, r := range records {
		points = append(points, models.ScatterPoint{
			Sales:    r.Sales,
			Profit:   r.Profit,
			Quantity: r.Quantity,
		})
	}
	return points
}

// Sample projects the first n records onto the summary table columns.
func Sample(records []models.Record, n int) []models.SampleRow {
	preview := Preview(records, n)
	rows := make([]models.SampleRow, 0, len(preview))
	for _, r := range preview {
		rows = append(rows, models.SampleRow{
			Region:   r.Region,
			State:    r.State,
			City:     r.City,
			Category: r.Category,
			Sales:    r.Sales,
			Profit:   r.Profit,
			Quantity: r.Quantity,
		})
	}
	return rows
}

// Preview returns at most n leading records.
func Preview(records []models.Record, n int) []models.Record {
	if n < 0 || len(records) <= n {
		return records
	}
	return records[:n]
}

func TotalSales(records []models.Record) float64 {
	var total float64
	for _, r := range records {
		total += r.Sales
	}
	return total
}

var currency = message.NewPrinter(language.English)

// FormatCurrency renders v as "$1,234.56" for display only. Values that
// round to zero cents print without a sign.
func FormatCurrency(v float64) string {
	cents := math.Round(v * 100)
	if cents == 0 {
		return "$0.00"
	}
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return sign + "$" + currency.Sprintf("%.2f", cents/100)
}

// Build runs every aggregation for one filtered view.
func Build(windowed, filtered []models.Record) models.Dashboard {
	return models.Dashboard{
		RowCount:    len(filtered),
		TotalSales:  TotalSales(filtered),
		Category:    ByCategory(filtered),
		Region:      ByRegion(filtered),
		TimeSeries:  MonthlySales(filtered),
		Treemap:     Treemap(filtered),
		Segment:     BySegment(filtered),
		CategoryPie: CategoryPie(filtered),
		SubCategory: SubCategoryByMonth(filtered),
		Scatter:     Scatter(filtered),
		Sample:      Sample(windowed, SampleSize),
	}
}
