// Package export flattens aggregations into row/column tables and writes
// them as CSV or as an XLSX workbook.
package export

import (
	"strconv"
	"time"

	"sales-dashboard/internal/models"
)

// Download names, also used as file names without extension.
const (
	NameCategory    = "Category_Sales"
	NameRegion      = "Region_Sales"
	NameTimeSeries  = "TimeSeries"
	NameTreemap     = "Treemap_Sales"
	NameSegment     = "Segment_Sales"
	NameCategoryPie = "Category_Pie_Sales"
	NameSubCategory = "SubCategory_Month"
	NameScatter     = "Scatter"
	NameData        = "Data"
)

// Names lists every export in display order.
var Names = []string{
	NameCategory,
	NameRegion,
	NameTimeSeries,
	NameTreemap,
	NameSegment,
	NameCategoryPie,
	NameSubCategory,
	NameScatter,
	NameData,
}

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05"
)

// Table is a flat export: grouping keys first, measures last.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string

	// Numeric marks columns written as numbers in workbooks. It is not
	// part of the CSV form.
	Numeric []bool
}

// FormatFloat uses the shortest representation that parses back to v.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func GroupTable(name, keyColumn string, rows []models.GroupSum) Table {
	t := Table{
		Name:    name,
		Columns: []string{keyColumn, models.ColSales},
		Rows:    make([][]string, 0, len(rows)),
		Numeric: []bool{false, true},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{r.Key, FormatFloat(r.Sales)})
	}
	return t
}

func MonthTable(rows []models.MonthSum) Table {
	t := Table{
		Name:    NameTimeSeries,
		Columns: []string{"month_year", models.ColSales},
		Rows:    make([][]string, 0, len(rows)),
		Numeric: []bool{false, true},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{r.Label, FormatFloat(r.Sales)})
	}
	return t
}

func TreemapTable(rows []models.TreemapNode) Table {
	t := Table{
		Name:    NameTreemap,
		Columns: []string{models.ColRegion, models.ColCategory, models.ColSubCategory, models.ColSales},
		Rows:    make([][]string, 0, len(rows)),
		Numeric: []bool{false, false, false, true},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{r.Region, r.Category, r.SubCategory, FormatFloat(r.Sales)})
	}
	return t
}

// PivotTable writes blank cells for missing (Sub-Category, month) pairs.
func PivotTable(p models.Pivot) Table {
	t := Table{
		Name:    NameSubCategory,
		Columns: append([]string{models.ColSubCategory}, p.Columns...),
		Rows:    make([][]string, 0, len(p.Rows)),
		Numeric: make([]bool, len(p.Columns)+1),
	}
	for i := range p.Columns {
		t.Numeric[i+1] = true
	}
	for _, sub := range p.Rows {
		row := make([]string, 0, len(p.Columns)+1)
		row = append(row, sub)
		for _, month := range p.Columns {
			if v, ok := p.Value(sub, month); ok {
				row = append(row, FormatFloat(v))
			} else {
				row = append(row, "")
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func ScatterTable(points []models.ScatterPoint) Table {
	t := Table{
		Name:    NameScatter,
		Columns: []string{models.ColSales, models.ColProfit, models.ColQuantity},
		Rows:    make([][]string, 0, len(points)),
		Numeric: []bool{true, true, true},
	}
	for _, p := range points {
		t.Rows = append(t.Rows, []string{FormatFloat(p.Sales), FormatFloat(p.Profit), strconv.Itoa(p.Quantity)})
	}
	return t
}

// SampleTable is the on-page summary of the leading windowed rows. It is
// not offered as a download.
func SampleTable(rows []models.SampleRow) Table {
	t := Table{
		Name: "Summary",
		Columns: []string{
			models.ColRegion, models.ColState, models.ColCity, models.ColCategory,
			models.ColSales, models.ColProfit, models.ColQuantity,
		},
		Rows:    make([][]string, 0, len(rows)),
		Numeric: []bool{false, false, false, false, true, true, true},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r.Region, r.State, r.City, r.Category,
			FormatFloat(r.Sales), FormatFloat(r.Profit), strconv.Itoa(r.Quantity),
		})
	}
	return t
}

// RecordsTable writes records in the source column order. Dashboard
// columns come from the parsed values; any other column keeps its
// source text.
func RecordsTable(name string, columns []string, records []models.Record) Table {
	if len(columns) == 0 {
		columns = models.RequiredColumns
	}
	t := Table{
		Name:    name,
		Columns: columns,
		Rows:    make([][]string, 0, len(records)),
		Numeric: make([]bool, len(columns)),
	}
	for i, c := range columns {
		switch c {
		case models.ColSales, models.ColProfit, models.ColQuantity:
			t.Numeric[i] = true
		}
	}
	for _, r := range records {
		row := make([]string, len(columns))
		for i, c := range columns {
			row[i] = cell(r, c)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// formatOrderDate keeps the time of day when the source carried one.
func formatOrderDate(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format(dateLayout)
	}
	return t.Format(dateTimeLayout)
}

func cell(r models.Record, column string) string {
	switch column {
	case models.ColOrderDate:
		return formatOrderDate(r.OrderDate)
	case models.ColRegion:
		return r.Region
	case models.ColState:
		return r.State
	case models.ColCity:
		return r.City
	case models.ColCategory:
		return r.Category
	case models.ColSubCategory:
		return r.SubCategory
	case models.ColSegment:
		return r.Segment
	case models.ColSales:
		return FormatFloat(r.Sales)
	case models.ColProfit:
		return FormatFloat(r.Profit)
	case models.ColQuantity:
		return strconv.Itoa(r.Quantity)
	}
	return r.Raw[column]
}

// Tables builds every export for one dashboard pass. The Data table is
// the date-windowed dataset without categorical filtering.
func Tables(d models.Dashboard, columns []string, windowed []models.Record) []Table {
	return []Table{
		GroupTable(NameCategory, models.ColCategory, d.Category),
		GroupTable(NameRegion, models.ColRegion, d.Region),
		MonthTable(d.TimeSeries),
		TreemapTable(d.Treemap),
		GroupTable(NameSegment, models.ColSegment, d.Segment),
		GroupTable(NameCategoryPie, models.ColCategory, d.CategoryPie),
		PivotTable(d.SubCategory),
		ScatterTable(d.Scatter),
		RecordsTable(NameData, columns, windowed),
	}
}

// Lookup finds a table by name.
func Lookup(tables []Table, name string) (Table, bool) {
	for _, t := range tables {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}
