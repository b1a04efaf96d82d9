package models

import "time"

type GroupSum struct {
	Key   string  `json:"key"`
	Sales float64 `json:"sales"`
}

type MonthSum struct {
	Month time.Time `json:"month"`
	Label string    `json:"month_year"`
	Sales float64   `json:"sales"`
}

type TreemapNode struct {
	Region      string  `json:"region"`
	Category    string  `json:"category"`
	SubCategory string  `json:"sub_category"`
	Sales       float64 `json:"sales"`
}

type ScatterPoint struct {
	Sales    float64 `json:"sales"`
	Profit   float64 `json:"profit"`
	Quantity int     `json:"quantity"`
}

// Pivot is a Sub-Category by month table. A missing cell means no rows
// matched that pair, which is different from a zero sum.
type Pivot struct {
	Rows    []string                      `json:"rows"`
	Columns []string                      `json:"columns"`
	Cells   map[string]map[string]float64 `json:"cells"`
}

// Value returns the cell for (row, column) and whether it is present.
func (p Pivot) Value(row, column string) (float64, bool) {
	cols, ok := p.Cells[row]
	if !ok {
		return 0, false
	}
	v, ok := cols[column]
	return v, ok
}

type SampleRow struct {
	Region   string  `json:"region"`
	State    string  `json:"state"`
	City     string  `json:"city"`
	Category string  `json:"category"`
	Sales    float64 `json:"sales"`
	Profit   float64 `json:"profit"`
	Quantity int     `json:"quantity"`
}

// Dashboard bundles every aggregation for one filter pass.
type Dashboard struct {
	Selection     Selection      `json:"selection"`
	MinDate       time.Time      `json:"min_date"`
	MaxDate       time.Time      `json:"max_date"`
	RegionOptions []string       `json:"region_options"`
	StateOptions  []string       `json:"state_options"`
	CityOptions   []string       `json:"city_options"`
	RowCount      int            `json:"row_count"`
	TotalSales    float64        `json:"total_sales"`
	Category      []GroupSum     `json:"category_sales"`
	Region        []GroupSum     `json:"region_sales"`
	TimeSeries    []MonthSum     `json:"time_series"`
	Treemap       []TreemapNode  `json:"treemap"`
	Segment       []GroupSum     `json:"segment_sales"`
	CategoryPie   []GroupSum     `json:"category_pie"`
	SubCategory   Pivot          `json:"subcategory_by_month"`
	Scatter       []ScatterPoint `json:"scatter"`
	Sample        []SampleRow    `json:"sample"`
}
