// Package chart renders dashboard aggregations as PNG images.
package chart

import (
	"errors"
	"fmt"
	"io"
	"math"

	gochart "github.com/wcharczuk/go-chart/v2"

	"sales-dashboard/internal/aggregate"
	"sales-dashboard/internal/models"
)

var (
	ErrNoData       = errors.New("nothing to chart")
	ErrUnknownChart = errors.New("unknown chart")
)

// Chart names as used in /charts/{name}.png.
const (
	NameCategory    = "category"
	NameRegion      = "region"
	NameTimeSeries  = "timeseries"
	NameSegment     = "segment"
	NameCategoryPie = "category-pie"
	NameScatter     = "scatter"
)

var Names = []string{
	NameCategory,
	NameRegion,
	NameTimeSeries,
	NameSegment,
	NameCategoryPie,
	NameScatter,
}

const (
	width  = 800
	height = 400
)

var padding = gochart.Style{Padding: gochart.Box{Top: 24, Left: 16, Right: 16, Bottom: 16}}

// Render writes the named chart for d.
func Render(w io.Writer, name string, d models.Dashboard) error {
	switch name {
	case NameCategory:
		return Bar(w, "Category Sales", d.Category)
	case NameRegion:
		return Donut(w, "Region Sales", d.Region)
	case NameTimeSeries:
		return Line(w, "Time Series Analysis", d.TimeSeries)
	case NameSegment:
		return Pie(w, "Segment wise Sales", d.Segment)
	case NameCategoryPie:
		return Donut(w, "Category wise Sales", d.CategoryPie)
	case NameScatter:
		return Scatter(w, "Relationship between Sales and Profits", d.Scatter)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownChart, name)
	}
}

func Bar(w io.Writer, title string, rows []models.GroupSum) error {
	if len(rows) == 0 {
		return ErrNoData
	}

	bars := make([]gochart.Value, len(rows))
	values := make([]float64, len(rows))
	for i, r := range rows {
		bars[i] = gochart.Value{Value: r.Sales, Label: r.Key}
		values[i] = r.Sales
	}

	bc := gochart.BarChart{
		Title:      title,
		Width:      width,
		Height:     height,
		BarWidth:   60,
		Background: padding,
		YAxis: gochart.YAxis{
			Range:          valueRange(values, true),
			ValueFormatter: currency,
		},
		Bars: bars,
	}
	return bc.Render(gochart.PNG, w)
}

func Pie(w io.Writer, title string, rows []models.GroupSum) error {
	values, err := pieValues(rows)
	if err != nil {
		return err
	}
	pc := gochart.PieChart{
		Title:      title,
		Width:      height,
		Height:     height,
		Background: padding,
		Values:     values,
	}
	return pc.Render(gochart.PNG, w)
}

func Donut(w io.Writer, title string, rows []models.GroupSum) error {
	values, err := pieValues(rows)
	if err != nil {
		return err
	}
	dc := gochart.DonutChart{
		Title:      title,
		Width:      height,
		Height:     height,
		Background: padding,
		Values:     values,
	}
	return dc.Render(gochart.PNG, w)
}

// Line plots monthly sales in month order. A single month is drawn as a
// flat segment so the x range is never empty.
func Line(w io.Writer, title string, rows []models.MonthSum) error {
	if len(rows) == 0 {
		return ErrNoData
	}

	xs := make([]float64, len(rows))
	ys := make([]float64, len(rows))
	ticks := make([]gochart.Tick, len(rows))
	for i, r := range rows {
		xs[i] = float64(i)
		ys[i] = r.Sales
		ticks[i] = gochart.Tick{Value: float64(i), Label: aggregate.MonthLabel(r.Month)}
	}
	if len(rows) == 1 {
		xs = append(xs, 1)
		ys = append(ys, ys[0])
	}

	ch := gochart.Chart{
		Title:      title,
		Width:      width,
		Height:     height,
		Background: padding,
		XAxis:      gochart.XAxis{Name: "Month", Ticks: ticks},
		YAxis: gochart.YAxis{
			Name:           "Sales",
			Range:          valueRange(ys, true),
			ValueFormatter: currency,
		},
		Series: []gochart.Series{
			gochart.ContinuousSeries{
				Name:    "Sales",
				XValues: xs,
				YValues: ys,
				Style: gochart.Style{
					StrokeColor: gochart.ColorBlue,
					StrokeWidth: 2,
					DotColor:    gochart.ColorBlue,
					DotWidth:    3,
				},
			},
		},
	}
	return ch.Render(gochart.PNG, w)
}

// Scatter plots Sales against Profit with dot size following Quantity.
func Scatter(w io.Writer, title string, points []models.ScatterPoint) error {
	if len(points) == 0 {
		return ErrNoData
	}

	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	maxQty := 1
	for i, p := range points {
		xs[i] = p.Sales
		ys[i] = p.Profit
		maxQty = max(maxQty, p.Quantity)
	}
	dotSize := func(_, _ gochart.Range, index int, _, _ float64) float64 {
		return 2 + 6*float64(points[index].Quantity)/float64(maxQty)
	}

	ch := gochart.Chart{
		Title:      title,
		Width:      width,
		Height:     height,
		Background: padding,
		XAxis: gochart.XAxis{
			Name:           "Sales",
			Range:          valueRange(xs, false),
			ValueFormatter: currency,
		},
		YAxis: gochart.YAxis{
			Name:           "Profit",
			Range:          valueRange(ys, false),
			ValueFormatter: currency,
		},
		Series: []gochart.Series{
			gochart.ContinuousSeries{
				Name:    "Orders",
				XValues: xs,
				YValues: ys,
				Style: gochart.Style{
					StrokeWidth:      gochart.Disabled,
					DotColor:         gochart.ColorBlue,
					DotWidthProvider: dotSize,
				},
			},
		},
	}
	return ch.Render(gochart.PNG, w)
}

// pieValues drops non-positive groups, which have no pie area.
func pieValues(rows []models.GroupSum) ([]gochart.Value, error) {
	values := make([]gochart.Value, 0, len(rows))
	for _, r := range rows {
		if r.Sales > 0 {
			values = append(values, gochart.Value{Value: r.Sales, Label: r.Key})
		}
	}
	if len(values) == 0 {
		return nil, ErrNoData
	}
	return values, nil
}

// valueRange spans values with a little headroom and never has zero width.
func valueRange(values []float64, withZero bool) *gochart.ContinuousRange {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if withZero {
		lo = math.Min(lo, 0)
		hi = math.Max(hi, 0)
	}
	if hi == lo {
		lo, hi = lo-1, hi+1
	}
	pad := (hi - lo) * 0.05
	if !withZero || lo < 0 {
		lo -= pad
	}
	return &gochart.ContinuousRange{Min: lo, Max: hi + pad}
}

func currency(v any) string {
	if f, ok := v.(float64); ok {
		return aggregate.FormatCurrency(f)
	}
	return fmt.Sprint(v)
}
