package models

import "time"

// Canonical column names of the sales table.
const (
	ColOrderDate   = "Order Date"
	ColRegion      = "Region"
	ColState       = "State"
	ColCity        = "City"
	ColCategory    = "Category"
	ColSubCategory = "Sub-Category"
	ColSegment     = "Segment"
	ColSales       = "Sales"
	ColProfit      = "Profit"
	ColQuantity    = "Quantity"
)

// RequiredColumns lists the columns every dataset must carry.
var RequiredColumns = []string{
	ColOrderDate,
	ColRegion,
	ColState,
	ColCity,
	ColCategory,
	ColSubCategory,
	ColSegment,
	ColSales,
	ColProfit,
	ColQuantity,
}

type Record struct {
	OrderDate   time.Time
	Region      string
	State       string
	City        string
	Category    string
	SubCategory string
	Segment     string
	Sales       float64
	Profit      float64
	Quantity    int

	// Raw holds every source cell keyed by header, so exports can
	// reproduce columns the dashboard does not interpret.
	Raw map[string]string
}

// Dataset is the loaded table. It is never mutated after load.
type Dataset struct {
	Source   string
	Columns  []string
	Records  []Record
	LoadedAt time.Time
}

// DateBounds returns the earliest and latest order dates. Both are zero
// for an empty dataset.
func (d *Dataset) DateBounds() (time.Time, time.Time) {
	var minDate, maxDate time.Time
	for i, r := range d.Records {
		if i == 0 || r.OrderDate.Before(minDate) {
			minDate = r.OrderDate
		}
		if i == 0 || r.OrderDate.After(maxDate) {
			maxDate = r.OrderDate
		}
	}
	return minDate, maxDate
}

// Selection is what the user picked in the filter panel. Empty slices
// impose no restriction; zero dates fall back to the dataset bounds.
type Selection struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Region []string  `json:"region"`
	State  []string  `json:"state"`
	City   []string  `json:"city"`
}
