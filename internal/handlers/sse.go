package handlers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/starfederation/datastar-go/datastar"

	"sales-dashboard/internal/aggregate"
	"sales-dashboard/internal/chart"
	"sales-dashboard/internal/export"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/ui/templates"
)

var tableTemplate = template.Must(template.New("table").Parse(`
<div id="{{.ID}}">
<table class="modern-table">
<thead><tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{else}}<tr><td colspan="{{len .Columns}}" class="empty">No rows match the current filters</td></tr>
{{end}}</tbody>
</table>
{{if .Download}}<a class="download" href="{{.Download}}">Download {{.Name}}.csv</a>{{end}}
</div>`))

var selectTemplate = template.Must(template.New("select").Parse(`
<select id="{{.ID}}" multiple data-bind="{{.Signal}}" data-on:change="@get('/sse/dashboard')">
{{range .Options}}<option value="{{.Value}}"{{if .Selected}} selected{{end}}>{{.Value}}</option>
{{end}}</select>`))

var chartTemplate = template.Must(template.New("chart").Parse(`
<div id="{{.ID}}" class="chart">
{{if .Empty}}<p class="empty">No data for the current filters</p>{{else}}<img src="{{.Src}}" alt="{{.Name}} chart">{{end}}
</div>`))

var noticeTemplate = template.Must(template.New("notice").Parse(
	`<div id="{{.ID}}">{{if .Message}}<p class="notice-error">{{.Message}}</p>{{end}}</div>`))

var workbookTemplate = template.Must(template.New("workbook").Parse(
	`<a id="{{.ID}}" href="{{.Href}}">Download workbook</a>`))

type tableView struct {
	ID       string
	Name     string
	Columns  []string
	Rows     [][]string
	Download string
}

type option struct {
	Value    string
	Selected bool
}

type selectView struct {
	ID      string
	Signal  string
	Options []option
}

type chartView struct {
	ID    string
	Name  string
	Src   string
	Empty bool
}

type noticeView struct {
	ID      string
	Message string
}

type linkView struct {
	ID   string
	Href string
}

type SSEHandlers struct {
	dashboard *services.Dashboard
	logger    *slog.Logger
}

func NewSSEHandlers(dashboard *services.Dashboard, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		dashboard: dashboard,
		logger:    logger,
	}
}

// HandleDashboard recomputes the whole pipeline for the signals sent by
// the filter panel and patches every section of the page.
func (h *SSEHandlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	logger := observability.LoggerFrom(r.Context(), h.logger)

	sel, err := h.readSelection(r)

	var snap services.Snapshot
	if err == nil {
		err = observability.Trace(r.Context(), logger, "dashboard.compute", func(_ context.Context, span *observability.Span) error {
			var cerr error
			snap, cerr = h.dashboard.Compute(sel)
			span.SetTag("branch", snap.Branch.String())
			span.SetTag("filtered", strconv.Itoa(len(snap.Filtered)))
			return cerr
		})
	}

	sse := datastar.NewSSE(w, r)

	if err != nil {
		logger.Warn("dashboard update rejected", "error", err)
		if err := sse.PatchElements(renderNotice(noticeMessage(err))); err != nil {
			logger.Debug("patch notice failed", "error", err)
		}
		return
	}

	if err := h.patchSignals(sse, snap.Dashboard); err != nil {
		logger.Error("patch dashboard signals", "error", err)
		return
	}

	fragments, err := renderDashboard(snap)
	if err != nil {
		logger.Error("render dashboard fragments", "error", err)
		return
	}
	for _, f := range fragments {
		if err := sse.PatchElements(f); err != nil {
			logger.Debug("client went away during patch", "error", err)
			return
		}
	}

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// readSelection prefers datastar signals and falls back to plain query
// parameters.
func (h *SSEHandlers) readSelection(r *http.Request) (models.Selection, error) {
	if r.URL.Query().Get("datastar") == "" {
		return parseSelection(r.URL.Query())
	}
	var signals selectionSignals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		return models.Selection{}, err
	}
	return signals.selection()
}

func (h *SSEHandlers) patchSignals(sse *datastar.ServerSentEventGenerator, d models.Dashboard) error {
	data, err := json.Marshal(map[string]any{
		"start":      d.Selection.Start.Format(time.DateOnly),
		"end":        d.Selection.End.Format(time.DateOnly),
		"minDate":    d.MinDate.Format(time.DateOnly),
		"maxDate":    d.MaxDate.Format(time.DateOnly),
		"rowCount":   d.RowCount,
		"totalSales": aggregate.FormatCurrency(d.TotalSales),
	})
	if err != nil {
		return err
	}
	return sse.PatchSignals(data)
}

// renderDashboard renders the filter panel, the notice, every chart and
// every table for one snapshot.
func renderDashboard(snap services.Snapshot) ([]string, error) {
	d := snap.Dashboard
	query := selectionQuery(d.Selection)

	var out []string
	add := func(html string, err error) error {
		if err != nil {
			return err
		}
		out = append(out, html)
		return nil
	}

	out = append(out, renderNotice(""))

	selects := []selectView{
		{Signal: "region", Options: options(d.RegionOptions, d.Selection.Region)},
		{Signal: "state", Options: options(d.StateOptions, d.Selection.State)},
		{Signal: "city", Options: options(d.CityOptions, d.Selection.City)},
	}
	for _, s := range selects {
		s.ID = templates.SelectID(s.Signal)
		if err := add(execute(selectTemplate, s)); err != nil {
			return nil, err
		}
	}

	link := linkView{ID: templates.WorkbookLinkID, Href: withQuery("/download/"+workbookFile, query)}
	if err := add(execute(workbookTemplate, link)); err != nil {
		return nil, err
	}

	empty := map[string]bool{
		chart.NameCategory:    len(d.Category) == 0,
		chart.NameRegion:      len(d.Region) == 0,
		chart.NameTimeSeries:  len(d.TimeSeries) == 0,
		chart.NameSegment:     len(d.Segment) == 0,
		chart.NameCategoryPie: len(d.CategoryPie) == 0,
		chart.NameScatter:     len(d.Scatter) == 0,
	}
	for _, name := range chart.Names {
		if err := add(execute(chartTemplate, chartView{ID: templates.ChartID(name), Name: name, Src: chartURL(name, query), Empty: empty[name]})); err != nil {
			return nil, err
		}
	}

	for _, t := range export.Tables(d, snap.Columns, snap.Windowed) {
		if t.Name == export.NameData || t.Name == export.NameScatter {
			// Too long to show inline; both stay downloadable.
			if err := add(execute(tableTemplate, downloadOnly(t, query))); err != nil {
				return nil, err
			}
			continue
		}
		if err := add(execute(tableTemplate, newTableView(t, query, true))); err != nil {
			return nil, err
		}
	}

	if err := add(execute(tableTemplate, newTableView(export.SampleTable(d.Sample), query, false))); err != nil {
		return nil, err
	}
	preview := export.RecordsTable("Preview", snap.Columns, aggregate.Preview(snap.Filtered, aggregate.PreviewSize))
	if err := add(execute(tableTemplate, newTableView(preview, query, false))); err != nil {
		return nil, err
	}

	return out, nil
}

func newTableView(t export.Table, query string, downloadable bool) tableView {
	v := tableView{
		ID:      templates.TableID(t.Name),
		Name:    t.Name,
		Columns: t.Columns,
		Rows:    displayRows(t),
	}
	if downloadable {
		v.Download = downloadURL(t.Name, query)
	}
	return v
}

func downloadOnly(t export.Table, query string) tableView {
	return tableView{
		ID:       templates.TableID(t.Name),
		Name:     t.Name,
		Columns:  []string{"Rows"},
		Rows:     [][]string{{strconv.Itoa(len(t.Rows))}},
		Download: downloadURL(t.Name, query),
	}
}

// displayRows formats money columns as currency. Blank pivot cells stay
// blank.
func displayRows(t export.Table) [][]string {
	money := make([]bool, len(t.Columns))
	for i, c := range t.Columns {
		money[i] = c == models.ColSales || c == models.ColProfit ||
			(t.Name == export.NameSubCategory && i > 0)
	}

	rows := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		out := make([]string, len(row))
		for j, v := range row {
			out[j] = v
			if !money[j] || v == "" {
				continue
			}
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				out[j] = aggregate.FormatCurrency(f)
			}
		}
		rows[i] = out
	}
	return rows
}

func options(values, selected []string) []option {
	chosen := make(map[string]bool, len(selected))
	for _, s := range selected {
		chosen[s] = true
	}
	out := make([]option, len(values))
	for i, v := range values {
		out[i] = option{Value: v, Selected: chosen[v]}
	}
	return out
}

func downloadURL(name, query string) string {
	return withQuery("/download/"+url.PathEscape(name)+".csv", query)
}

func chartURL(name, query string) string {
	return withQuery("/charts/"+name+".png", query)
}

func withQuery(path, query string) string {
	if query == "" {
		return path
	}
	return path + "?" + query
}

// selectionQuery encodes sel as the query string the REST and chart
// endpoints accept.
func selectionQuery(sel models.Selection) string {
	q := url.Values{}
	if !sel.Start.IsZero() {
		q.Set("start", sel.Start.Format(time.DateOnly))
	}
	if !sel.End.IsZero() {
		q.Set("end", sel.End.Format(time.DateOnly))
	}
	for _, v := range sel.Region {
		q.Add("region", v)
	}
	for _, v := range sel.State {
		q.Add("state", v)
	}
	for _, v := range sel.City {
		q.Add("city", v)
	}
	return q.Encode()
}

func renderNotice(msg string) string {
	html, err := execute(noticeTemplate, noticeView{ID: templates.NoticeID, Message: msg})
	if err != nil {
		return `<div id="` + templates.NoticeID + `"></div>`
	}
	return html
}

func noticeMessage(err error) string {
	switch {
	case stderrors.Is(err, services.ErrNoDataset):
		return "No dataset is loaded. Upload a CSV or XLSX file."
	case stderrors.Is(err, services.ErrInvalidWindow):
		return "Start date must not be after end date."
	default:
		return err.Error()
	}
}

func execute(t *template.Template, data any) (string, error) {
	var buf strings.Builder
	err := t.Execute(&buf, data)
	return buf.String(), err
}
