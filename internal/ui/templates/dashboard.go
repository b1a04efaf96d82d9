// Package templates renders the dashboard page. Every dynamic section is
// an empty placeholder that the /sse/dashboard stream fills in.
package templates

//go:generate templ generate

import (
	"strings"

	"sales-dashboard/internal/chart"
	"sales-dashboard/internal/export"
)

const Title = "Sample SuperStore App"

const (
	NoticeID       = "notice"
	WorkbookLinkID = "workbook-link"
)

const initialSignals = `{"start":"","end":"","region":[],"state":[],"city":[],"minDate":"","maxDate":"","rowCount":0,"totalSales":""}`

// TableID is the element id of the table rendered for an export.
func TableID(name string) string {
	return "table-" + strings.ToLower(strings.ReplaceAll(name, "_", "-"))
}

// ChartID is the element id of a chart container.
func ChartID(name string) string {
	return "chart-" + name
}

// SelectID is the element id of a filter multiselect bound to signal.
func SelectID(signal string) string {
	return signal + "-select"
}

type filterField struct {
	label  string
	signal string
}

var filterFields = []filterField{
	{"Region", "region"},
	{"State", "state"},
	{"City", "city"},
}

type section struct {
	title string
	wide  bool
	ids   []string
}

var sections = []section{
	{title: "Category Sales", ids: []string{ChartID(chart.NameCategory), TableID(export.NameCategory)}},
	{title: "Region Sales", ids: []string{ChartID(chart.NameRegion), TableID(export.NameRegion)}},
	{title: "Time Series Analysis", wide: true, ids: []string{ChartID(chart.NameTimeSeries), TableID(export.NameTimeSeries)}},
	{title: "Hierarchical view of Sales using TreeMap", wide: true, ids: []string{TableID(export.NameTreemap)}},
	{title: "Segment wise Sales", ids: []string{ChartID(chart.NameSegment), TableID(export.NameSegment)}},
	{title: "Category wise Sales", ids: []string{ChartID(chart.NameCategoryPie), TableID(export.NameCategoryPie)}},
	{title: "Month wise Sub-Category Sales Summary", wide: true, ids: []string{TableID("Summary"), TableID(export.NameSubCategory)}},
	{title: "Relationship between Sales and Profits", wide: true, ids: []string{ChartID(chart.NameScatter), TableID(export.NameScatter)}},
	{title: "View Data", wide: true, ids: []string{TableID("Preview"), TableID(export.NameData)}},
}
