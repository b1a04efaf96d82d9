package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sales-dashboard/internal/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func rec(region, state, city, category string, sales float64, date time.Time) models.Record {
	return models.Record{
		OrderDate: date,
		Region:    region,
		State:     state,
		City:      city,
		Category:  category,
		Sales:     sales,
	}
}

func scenario() []models.Record {
	return []models.Record{
		rec("West", "CA", "LA", "Furniture", 100, day(2023, 1, 10)),
		rec("West", "CA", "SF", "Tech", 200, day(2023, 2, 10)),
		rec("East", "NY", "NYC", "Furniture", 50, day(2023, 3, 10)),
	}
}

// wide covers every branch with cities shared across states and regions.
func wide() []models.Record {
	return []models.Record{
		rec("West", "CA", "Springfield", "Furniture", 10, day(2022, 12, 1)),
		rec("West", "CA", "LA", "Tech", 20, day(2022, 12, 15)),
		rec("West", "OR", "Portland", "Tech", 30, day(2023, 1, 1)),
		rec("East", "NY", "NYC", "Furniture", 40, day(2023, 1, 5)),
		rec("East", "IL", "Springfield", "Office", 50, day(2023, 1, 20)),
		rec("Central", "IL", "Chicago", "Office", 60, day(2023, 2, 2)),
	}
}

func cities(records []models.Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.City)
	}
	return out
}

func TestResolve_Scenario(t *testing.T) {
	data := scenario()

	res := Resolve(data, models.Selection{Region: []string{"West"}})
	require.Len(t, res.Records, 2)
	assert.Equal(t, "TFF", res.Branch.String())

	res = Resolve(data, models.Selection{
		Region: []string{"West"},
		State:  []string{"CA"},
		City:   []string{"LA"},
	})
	require.Len(t, res.Records, 1)
	assert.Equal(t, "LA", res.Records[0].City)
}

func TestResolve_DecisionTable(t *testing.T) {
	tests := []struct {
		name   string
		sel    models.Selection
		branch string
		want   []string
	}{
		{
			name:   "no selection",
			sel:    models.Selection{},
			branch: "FFF",
			want:   []string{"Springfield", "LA", "Portland", "NYC", "Springfield", "Chicago"},
		},
		{
			name:   "region only",
			sel:    models.Selection{Region: []string{"East"}},
			branch: "TFF",
			want:   []string{"NYC", "Springfield"},
		},
		{
			name:   "state only spans regions",
			sel:    models.Selection{State: []string{"IL"}},
			branch: "FTF",
			want:   []string{"Springfield", "Chicago"},
		},
		{
			name:   "city only",
			sel:    models.Selection{City: []string{"Springfield"}},
			branch: "FFT",
			want:   []string{"Springfield", "Springfield"},
		},
		{
			name:   "region and state",
			sel:    models.Selection{Region: []string{"Central"}, State: []string{"IL"}},
			branch: "TTF",
			want:   []string{"Chicago"},
		},
		{
			name:   "region and city uses cascade subset",
			sel:    models.Selection{Region: []string{"West"}, City: []string{"Springfield"}},
			branch: "TFT",
			want:   []string{"Springfield"},
		},
		{
			name:   "state and city",
			sel:    models.Selection{State: []string{"IL"}, City: []string{"Springfield"}},
			branch: "FTT",
			want:   []string{"Springfield"},
		},
		{
			name: "all three",
			sel: models.Selection{
				Region: []string{"West", "East"},
				State:  []string{"CA", "IL"},
				City:   []string{"Springfield"},
			},
			branch: "TTT",
			want:   []string{"Springfield", "Springfield"},
		},
		{
			name:   "value outside cascade matches nothing",
			sel:    models.Selection{Region: []string{"West"}, City: []string{"NYC"}},
			branch: "TFT",
			want:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Resolve(wide(), tt.sel)
			assert.Equal(t, tt.branch, res.Branch.String())
			assert.Equal(t, tt.want, cities(res.Records))
		})
	}
}

func TestResolve_DecisionTableIsComplete(t *testing.T) {
	for _, r := range []bool{false, true} {
		for _, s := range []bool{false, true} {
			for _, c := range []bool{false, true} {
				_, ok := decisionTable[Branch{r, s, c}]
				assert.True(t, ok, "missing branch %s", Branch{r, s, c})
			}
		}
	}
}

func TestResolve_CascadingOptions(t *testing.T) {
	res := Resolve(wide(), models.Selection{Region: []string{"West", "East"}, State: []string{"CA", "IL"}})

	assert.Equal(t, []string{"West", "East", "Central"}, res.RegionOptions)
	assert.Equal(t, []string{"CA", "OR", "NY", "IL"}, res.StateOptions)
	assert.Equal(t, []string{"Springfield", "LA"}, res.CityOptions)
	assert.NotContains(t, res.CityOptions, "Chicago")
}

func TestResolve_Properties(t *testing.T) {
	data := wide()
	selections := []models.Selection{
		{},
		{Region: []string{"West"}},
		{State: []string{"IL"}, City: []string{"Chicago", "Springfield"}},
		{Region: []string{"East"}, City: []string{"Springfield"}},
		{Region: []string{"Nowhere"}},
	}

	for _, sel := range selections {
		first := Resolve(data, sel)
		second := Resolve(data, sel)
		assert.Equal(t, first, second, "resolve must be idempotent")

		for _, r := range first.Records {
			assert.Contains(t, data, r, "filtered rows must come from the input")
		}

		region := newSet(sel.Region)
		state := newSet(sel.State)
		allowed := make(map[string]bool)
		for _, r := range data {
			if (len(region) == 0 || region.hasRegion(r)) && (len(state) == 0 || state.hasState(r)) {
				allowed[r.City] = true
			}
		}
		for _, c := range first.CityOptions {
			assert.True(t, allowed[c], "city option %q outside region/state subset", c)
		}
	}
}

func TestResolve_EmptySelectionIsIdentity(t *testing.T) {
	data := wide()
	res := Resolve(data, models.Selection{})
	assert.Equal(t, data, res.Records)
}

func TestWindow(t *testing.T) {
	data := wide()

	got := Window(data, day(2022, 12, 15), day(2023, 1, 5))
	assert.Equal(t, []string{"LA", "Portland", "NYC"}, cities(got))

	assert.Equal(t, data, Window(data, time.Time{}, time.Time{}))
	assert.Empty(t, Window(data, day(2024, 1, 1), time.Time{}))
}

func TestWindow_EndDayIsInclusive(t *testing.T) {
	data := []models.Record{
		rec("West", "CA", "LA", "Tech", 1, time.Date(2023, 1, 5, 18, 30, 0, 0, time.UTC)),
	}
	assert.Len(t, Window(data, day(2023, 1, 5), day(2023, 1, 5)), 1)
}

func TestApply_WindowBeforeCategories(t *testing.T) {
	res := Apply(wide(), models.Selection{
		Start:  day(2023, 1, 1),
		End:    day(2023, 12, 31),
		Region: []string{"West"},
	})

	assert.Equal(t, []string{"Portland"}, cities(res.Records))
	assert.Equal(t, []string{"West", "East", "Central"}, res.RegionOptions)
	assert.Equal(t, []string{"OR"}, res.StateOptions)
}
