package handlers

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"sales-dashboard/internal/models"
)

// selectionSignals mirrors the datastar signals bound by the filter panel.
type selectionSignals struct {
	Start  string   `json:"start"`
	End    string   `json:"end"`
	Region []string `json:"region"`
	State  []string `json:"state"`
	City   []string `json:"city"`
}

func (s selectionSignals) selection() (models.Selection, error) {
	var (
		sel models.Selection
		err error
	)
	if sel.Start, err = parseDay("start", s.Start); err != nil {
		return sel, err
	}
	if sel.End, err = parseDay("end", s.End); err != nil {
		return sel, err
	}
	sel.Region = compact(s.Region)
	sel.State = compact(s.State)
	sel.City = compact(s.City)
	return sel, nil
}

// parseSelection reads start, end and the repeatable region, state and
// city parameters.
func parseSelection(q url.Values) (models.Selection, error) {
	return selectionSignals{
		Start:  q.Get("start"),
		End:    q.Get("end"),
		Region: q["region"],
		State:  q["state"],
		City:   q["city"],
	}.selection()
}

func parseDay(name, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be YYYY-MM-DD, got %q", name, value)
	}
	return t, nil
}

// compact drops blank values so an empty multiselect means no restriction.
func compact(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
