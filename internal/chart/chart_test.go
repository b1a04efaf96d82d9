package chart

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sales-dashboard/internal/models"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func testDashboard() models.Dashboard {
	return models.Dashboard{
		Category: []models.GroupSum{{Key: "Furniture", Sales: 150}, {Key: "Tech", Sales: 200}},
		Region:   []models.GroupSum{{Key: "East", Sales: 50}, {Key: "West", Sales: 300}},
		TimeSeries: []models.MonthSum{
			{Month: time.Date(2022, 12, 1, 0, 0, 0, 0, time.UTC), Sales: 100},
			{Month: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), Sales: 250},
		},
		Segment:     []models.GroupSum{{Key: "Consumer", Sales: 150}, {Key: "Corporate", Sales: 200}},
		CategoryPie: []models.GroupSum{{Key: "Furniture", Sales: 150}, {Key: "Tech", Sales: 200}},
		Scatter: []models.ScatterPoint{
			{Sales: 100, Profit: 12, Quantity: 2},
			{Sales: 200, Profit: -4, Quantity: 1},
			{Sales: 50, Profit: 3, Quantity: 5},
		},
	}
}

func TestRender_AllCharts(t *testing.T) {
	d := testDashboard()
	for _, name := range Names {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Render(&buf, name, d))
			assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic), "expected PNG output")
		})
	}
}

func TestRender_EmptyView(t *testing.T) {
	for _, name := range Names {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			assert.ErrorIs(t, Render(&buf, name, models.Dashboard{}), ErrNoData)
		})
	}
}

func TestRender_UnknownChart(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, Render(&buf, "treemap", testDashboard()), ErrUnknownChart)
}

func TestLine_SingleMonth(t *testing.T) {
	var buf bytes.Buffer
	err := Line(&buf, "one", []models.MonthSum{{Month: time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC), Sales: 10}})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
}

func TestScatter_SinglePoint(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Scatter(&buf, "one", []models.ScatterPoint{{Sales: 5, Profit: 5, Quantity: 1}}))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
}

func TestPie_NonPositiveOnly(t *testing.T) {
	var buf bytes.Buffer
	err := Pie(&buf, "losses", []models.GroupSum{{Key: "A", Sales: 0}, {Key: "B", Sales: -3}})
	assert.ErrorIs(t, err, ErrNoData)
}

func TestValueRange(t *testing.T) {
	r := valueRange([]float64{5, 5}, false)
	assert.Less(t, r.Min, 5.0)
	assert.Greater(t, r.Max, 5.0)

	r = valueRange([]float64{10, 20}, true)
	assert.Equal(t, 0.0, r.Min)
	assert.Greater(t, r.Max, 20.0)

	r = valueRange([]float64{-10, 20}, true)
	assert.Less(t, r.Min, -10.0)
}
