package handlers

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"sales-dashboard/internal/chart"
	"sales-dashboard/internal/dataset"
	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/export"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/services"
)

const (
	workbookFile = "dashboard.xlsx"
	uploadField  = "file"
	xlsxMIME     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var noStore = map[string]string{
	"Cache-Control": "no-store",
}

type APIHandlers struct {
	dashboard      *services.Dashboard
	logger         *slog.Logger
	maxUploadBytes int64
}

func NewAPIHandlers(dashboard *services.Dashboard, logger *slog.Logger, maxUploadBytes int64) *APIHandlers {
	return &APIHandlers{
		dashboard:      dashboard,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
	}
}

func (h *APIHandlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	sel, err := parseSelection(r.URL.Query())
	if err != nil {
		h.fail(w, r, errors.BadRequestWrap(err, err.Error()))
		return
	}

	snap, err := h.dashboard.Compute(sel)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	errors.WriteSuccessWithHeaders(w, snap.Dashboard, noStore)
}

// HandleAggregation returns one export table as JSON.
func (h *APIHandlers) HandleAggregation(w http.ResponseWriter, r *http.Request) {
	sel, err := parseSelection(r.URL.Query())
	if err != nil {
		h.fail(w, r, errors.BadRequestWrap(err, err.Error()))
		return
	}

	t, err := h.dashboard.Table(sel, r.PathValue("name"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	errors.WriteSuccessWithHeaders(w, map[string]any{
		"name":    t.Name,
		"columns": t.Columns,
		"rows":    t.Rows,
	}, noStore)
}

// HandleDownload serves {name}.csv for every export, plus the workbook.
func (h *APIHandlers) HandleDownload(w http.ResponseWriter, r *http.Request) {
	file := r.PathValue("file")
	sel, err := parseSelection(r.URL.Query())
	if err != nil {
		h.fail(w, r, errors.BadRequestWrap(err, err.Error()))
		return
	}

	if file == workbookFile {
		h.writeWorkbook(w, r, sel)
		return
	}

	name, ok := strings.CutSuffix(file, ".csv")
	if !ok {
		h.fail(w, r, errors.NotFound(fmt.Sprintf("unknown download %q", file)))
		return
	}

	t, err := h.dashboard.Table(sel, name)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	body, err := export.CSVBytes(t)
	if err != nil {
		h.fail(w, r, errors.InternalWrap(err, "failed to write CSV"))
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", attachment(export.FileName(t)))
	w.Header().Set("Cache-Control", "no-store")
	w.Write(body)
}

func (h *APIHandlers) writeWorkbook(w http.ResponseWriter, r *http.Request, sel models.Selection) {
	tables, err := h.dashboard.Tables(sel)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, tables); err != nil {
		h.fail(w, r, errors.InternalWrap(err, "failed to write workbook"))
		return
	}

	w.Header().Set("Content-Type", xlsxMIME)
	w.Header().Set("Content-Disposition", attachment(workbookFile))
	w.Header().Set("Cache-Control", "no-store")
	w.Write(buf.Bytes())
}

// HandleChart renders /charts/{name}.png. An empty view has nothing to
// draw and answers 204.
func (h *APIHandlers) HandleChart(w http.ResponseWriter, r *http.Request) {
	name, ok := strings.CutSuffix(r.PathValue("file"), ".png")
	if !ok {
		h.fail(w, r, errors.NotFound(fmt.Sprintf("unknown chart %q", r.PathValue("file"))))
		return
	}

	sel, err := parseSelection(r.URL.Query())
	if err != nil {
		h.fail(w, r, errors.BadRequestWrap(err, err.Error()))
		return
	}

	snap, err := h.dashboard.Compute(sel)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := chart.Render(&buf, name, snap.Dashboard); err != nil {
		if stderrors.Is(err, chart.ErrNoData) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(buf.Bytes())
}

// HandleUpload replaces the session dataset with a multipart upload.
func (h *APIHandlers) HandleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			h.fail(w, r, errors.TooLarge(fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit)))
			return
		}
		h.fail(w, r, errors.BadRequestWrap(err, fmt.Sprintf("multipart field %q is required", uploadField)))
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	var ds *models.Dataset
	err = observability.Trace(r.Context(), h.logger, "dataset.upload", func(ctx context.Context, span *observability.Span) error {
		span.SetTag("source", name)
		span.SetTag("size", strconv.FormatInt(header.Size, 10))
		var uerr error
		ds, uerr = h.dashboard.Upload(ctx, name, file)
		return uerr
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	// Plain form posts from the page go back to the dashboard.
	if strings.Contains(r.Header.Get("Accept"), "text/html") {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	minDate, maxDate := ds.DateBounds()
	errors.WriteSuccess(w, map[string]any{
		"source":       ds.Source,
		"record_count": len(ds.Records),
		"columns":      ds.Columns,
		"min_date":     minDate.Format(time.DateOnly),
		"max_date":     maxDate.Format(time.DateOnly),
	})
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	healthData := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	}

	errors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats := h.dashboard.Stats()

	errors.WriteSuccess(w, stats)
}

func (h *APIHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	errors.WriteError(w, r, h.logger, toAppError(err))
}

// toAppError maps pipeline failures onto HTTP error envelopes.
func toAppError(err error) error {
	var appErr *errors.AppError
	var loadErr *dataset.LoadError
	switch {
	case stderrors.As(err, &appErr):
		return appErr
	case stderrors.As(err, &loadErr):
		return errors.Dataset(err, "dataset could not be loaded")
	case stderrors.Is(err, services.ErrNoDataset):
		return errors.ServiceUnavailable("no dataset loaded")
	case stderrors.Is(err, services.ErrInvalidWindow):
		return errors.BadRequestWrap(err, err.Error())
	case stderrors.Is(err, services.ErrUnknownExport), stderrors.Is(err, chart.ErrUnknownChart):
		return errors.NotFoundWrap(err)
	default:
		return errors.InternalWrap(err, "An unexpected error occurred")
	}
}

func attachment(filename string) string {
	return fmt.Sprintf("attachment; filename=%q", filename)
}
