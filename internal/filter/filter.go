// Package filter turns a Selection into the filtered view of a dataset.
//
// The date window always runs first. The categorical step then applies
// the Region, State and City selections through a fixed decision table
// keyed by which of the three selections are non-empty. The table keeps
// the branch layout the dashboard has always used, including the
// Region+City branch that only checks City against the cascade subset.
package filter

import (
	"time"

	"sales-dashboard/internal/models"
)

// Branch identifies which selections were non-empty.
type Branch struct {
	Region bool
	State  bool
	City   bool
}

func (b Branch) String() string {
	flag := func(v bool) byte {
		if v {
			return 'T'
		}
		return 'F'
	}
	return string([]byte{flag(b.Region), flag(b.State), flag(b.City)})
}

type Result struct {
	Records       []models.Record
	RegionOptions []string
	StateOptions  []string
	CityOptions   []string
	Branch        Branch
}

// view carries the intermediate subsets one branch may draw from.
type view struct {
	windowed []models.Record
	cascade  []models.Record
	region   set
	state    set
	city     set
}

type rule func(v view) []models.Record

var decisionTable = map[Branch]rule{
	{false, false, false}: func(v view) []models.Record {
		return v.windowed
	},
	{true, false, false}: func(v view) []models.Record {
		return keep(v.windowed, v.region.hasRegion)
	},
	{false, true, false}: func(v view) []models.Record {
		return keep(v.windowed, v.state.hasState)
	},
	{false, false, true}: func(v view) []models.Record {
		return keep(v.cascade, v.city.hasCity)
	},
	{true, true, false}: func(v view) []models.Record {
		return keep(v.cascade, func(r models.Record) bool {
			return v.region.hasRegion(r) && v.state.hasState(r)
		})
	},
	// Region is only enforced through the cascade subset here.
	{true, false, true}: func(v view) []models.Record {
		return keep(v.cascade, v.city.hasCity)
	},
	{false, true, true}: func(v view) []models.Record {
		return keep(v.cascade, func(r models.Record) bool {
			return v.state.hasState(r) && v.city.hasCity(r)
		})
	},
	{true, true, true}: func(v view) []models.Record {
		return keep(v.cascade, func(r models.Record) bool {
			return v.region.hasRegion(r) && v.state.hasState(r) && v.city.hasCity(r)
		})
	},
}

// Window keeps records whose order date falls in [start, end], compared
// by calendar day. A zero bound is open.
func Window(records []models.Record, start, end time.Time) []models.Record {
	startDay := truncateDay(start)
	endDay := truncateDay(end)
	return keep(records, func(r models.Record) bool {
		day := truncateDay(r.OrderDate)
		if !start.IsZero() && day.Before(startDay) {
			return false
		}
		if !end.IsZero() && day.After(endDay) {
			return false
		}
		return true
	})
}

// Resolve applies the categorical selections to already windowed records
// and computes the cascading option lists.
func Resolve(windowed []models.Record, sel models.Selection) Result {
	v := view{
		windowed: windowed,
		region:   newSet(sel.Region),
		state:    newSet(sel.State),
		city:     newSet(sel.City),
	}

	regionSubset := windowed
	if len(v.region) > 0 {
		regionSubset = keep(windowed, v.region.hasRegion)
	}
	v.cascade = regionSubset
	if len(v.state) > 0 {
		v.cascade = keep(regionSubset, v.state.hasState)
	}

	branch := Branch{
		Region: len(v.region) > 0,
		State:  len(v.state) > 0,
		City:   len(v.city) > 0,
	}

	return Result{
		Records:       decisionTable[branch](v),
		RegionOptions: distinct(windowed, func(r models.Record) string { return r.Region }),
		StateOptions:  distinct(regionSubset, func(r models.Record) string { return r.State }),
		CityOptions:   distinct(v.cascade, func(r models.Record) string { return r.City }),
		Branch:        branch,
	}
}

// Apply runs the full pipeline: date window first, then the categorical
// decision table.
func Apply(records []models.Record, sel models.Selection) Result {
	return Resolve(Window(records, sel.Start, sel.End), sel)
}

type set map[string]struct{}

func newSet(values []string) set {
	s := make(set, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

func (s set) has(v string) bool {
	_, ok := s[v]
	return ok
}

func (s set) hasRegion(r models.Record) bool { return s.has(r.Region) }
func (s set) hasState(r models.Record) bool  { return s.has(r.State) }
func (s set) hasCity(r models.Record) bool   { return s.has(r.City) }

func keep(records []models.Record, pred func(models.Record) bool) []models.Record {
	out := make([]models.Record, 0, len(records))
	for _, r := range records {
		if pred(r) {
			out = append(out, r)
		}
	}
	return out
}

// distinct returns values in first-seen order.
func distinct(records []models.Record, field func(models.Record) string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, r := range records {
		v := field(r)
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
