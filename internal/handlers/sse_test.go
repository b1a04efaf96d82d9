package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"sales-dashboard/internal/export"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/services"
)

func newTestSSEHandlers() *SSEHandlers {
	return NewSSEHandlers(createTestDashboard(), testLogger())
}

func TestNewSSEHandlers(t *testing.T) {
	dashboard := createTestDashboard()
	logger := testLogger()

	handlers := NewSSEHandlers(dashboard, logger)

	if handlers == nil {
		t.Fatal("NewSSEHandlers() returned nil")
	}

	if handlers.dashboard != dashboard {
		t.Error("NewSSEHandlers() should set dashboard field")
	}

	if handlers.logger != logger {
		t.Error("NewSSEHandlers() should set logger field")
	}
}

func TestSSEHandlers_HandleDashboard(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/sse/dashboard", nil)
	w := httptest.NewRecorder()

	newTestSSEHandlers().HandleDashboard(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	// Check SSE headers (DataStar sets these)
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/event-stream") {
		t.Errorf("expected content-type to contain 'text/event-stream', got %q", ct)
	}

	if cc := w.Header().Get("Cache-Control"); cc != "no-cache" {
		t.Errorf("expected cache-control 'no-cache', got %q", cc)
	}

	body := w.Body.String()
	expected := []string{
		"datastar-patch-signals",
		"datastar-patch-elements",
		`"totalSales":"$350.00"`,
		`"start":"2023-01-15"`,
		`id="region-select"`,
		`id="chart-category"`,
		`id="table-category-sales"`,
		`id="table-subcategory-month"`,
		`id="table-summary"`,
		`id="table-preview"`,
		`id="workbook-link"`,
		"/download/Category_Sales.csv",
		"<table",
	}
	for _, s := range expected {
		if !strings.Contains(body, s) {
			t.Errorf("expected SSE stream to contain %q", s)
		}
	}
}

func TestSSEHandlers_HandleDashboard_Signals(t *testing.T) {
	signals := `{"start":"2023-02-01","end":"","region":["West"],"state":[],"city":[]}`
	req := httptest.NewRequest(http.MethodGet, "/sse/dashboard?datastar="+url.QueryEscape(signals), nil)
	w := httptest.NewRecorder()

	newTestSSEHandlers().HandleDashboard(w, req)

	body := w.Body.String()
	if !strings.Contains(body, `"rowCount":1`) {
		t.Error("expected a single West row from February on")
	}
	if !strings.Contains(body, `<option value="West" selected>`) {
		t.Error("selected region should stay selected")
	}
	if !strings.Contains(body, "region=West") {
		t.Error("chart and download links should carry the selection")
	}
}

func TestSSEHandlers_HandleDashboard_InvalidWindow(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/sse/dashboard?start=2023-03-01&end=2023-01-01", nil)
	w := httptest.NewRecorder()

	newTestSSEHandlers().HandleDashboard(w, req)

	body := w.Body.String()
	if !strings.Contains(body, "notice-error") {
		t.Error("expected an error notice patch")
	}
	if strings.Contains(body, "<table") {
		t.Error("no tables should be patched for a rejected selection")
	}
}

func TestRenderDashboard_EmptyView(t *testing.T) {
	snap, err := createTestDashboard().Compute(models.Selection{City: []string{"Nowhere"}})
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}

	fragments, err := renderDashboard(snap)
	if err != nil {
		t.Fatalf("renderDashboard() failed: %v", err)
	}

	html := strings.Join(fragments, "\n")
	if !strings.Contains(html, "No data for the current filters") {
		t.Error("empty charts should render a placeholder instead of an image")
	}
	if !strings.Contains(html, "No rows match the current filters") {
		t.Error("empty tables should render a placeholder row")
	}
}

func TestDisplayRows(t *testing.T) {
	tbl := export.Table{
		Name:    export.NameSubCategory,
		Columns: []string{models.ColSubCategory, "January", "February"},
		Rows:    [][]string{{"Chairs", "1234.5", ""}},
	}

	rows := displayRows(tbl)
	want := []string{"Chairs", "$1,234.50", ""}
	for i := range want {
		if rows[0][i] != want[i] {
			t.Errorf("cell %d = %q, want %q", i, rows[0][i], want[i])
		}
	}
}

func TestSelectionQuery(t *testing.T) {
	sel := models.Selection{
		Start:  day(2023, 1, 1),
		Region: []string{"West", "East"},
		City:   []string{"New York City"},
	}

	q, err := url.ParseQuery(selectionQuery(sel))
	if err != nil {
		t.Fatalf("invalid query: %v", err)
	}

	back, err := parseSelection(q)
	if err != nil {
		t.Fatalf("parseSelection() error = %v", err)
	}
	if !back.Start.Equal(sel.Start) || !back.End.IsZero() {
		t.Errorf("window did not survive: %v .. %v", back.Start, back.End)
	}
	if len(back.Region) != 2 || back.City[0] != "New York City" {
		t.Errorf("filters did not survive: %+v", back)
	}
}

func TestNoticeMessage(t *testing.T) {
	if msg := noticeMessage(services.ErrNoDataset); !strings.Contains(msg, "Upload") {
		t.Errorf("unexpected message %q", msg)
	}
}
