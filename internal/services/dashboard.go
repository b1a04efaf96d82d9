package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"sales-dashboard/internal/aggregate"
	"sales-dashboard/internal/dataset"
	"sales-dashboard/internal/export"
	"sales-dashboard/internal/filter"
	"sales-dashboard/internal/models"
)

var (
	ErrNoDataset     = errors.New("no dataset loaded")
	ErrInvalidWindow = errors.New("start date is after end date")
	ErrUnknownExport = errors.New("unknown export")
)

// Snapshot is one full pipeline pass: date window, categorical filters,
// then every aggregation.
type Snapshot struct {
	Dashboard models.Dashboard
	Columns   []string
	Windowed  []models.Record
	Filtered  []models.Record
	Branch    filter.Branch
}

// Dashboard holds the session dataset. Every call recomputes from it;
// nothing derived is kept between calls.
type Dashboard struct {
	mu      sync.RWMutex
	dataset *models.Dataset
	loader  *dataset.Loader
	logger  *slog.Logger
}

func NewDashboard(loader *dataset.Loader, logger *slog.Logger) *Dashboard {
	if logger == nil {
		logger = slog.Default()
	}
	if loader == nil {
		loader = dataset.NewLoader(dataset.Options{}, logger)
	}
	return &Dashboard{
		loader: loader,
		logger: logger,
	}
}

// SetData replaces the session dataset.
func (d *Dashboard) SetData(ds *models.Dataset) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dataset = ds
}

// LoadDefault loads the configured default file.
func (d *Dashboard) LoadDefault(ctx context.Context, path string) error {
	ds, err := d.loader.LoadFile(ctx, path)
	if err != nil {
		return fmt.Errorf("load default dataset: %w", err)
	}
	d.SetData(ds)
	return nil
}

// Upload parses an uploaded file and swaps it in only when the whole
// file loads.
func (d *Dashboard) Upload(ctx context.Context, name string, r io.Reader) (*models.Dataset, error) {
	ds, err := d.loader.Load(ctx, name, r)
	if err != nil {
		d.logger.Warn("upload rejected", "source", name, "error", err)
		return nil, err
	}
	d.SetData(ds)
	d.logger.Info("dataset replaced by upload", "source", name, "records", len(ds.Records))
	return ds, nil
}

func (d *Dashboard) current() (*models.Dataset, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.dataset == nil {
		return nil, ErrNoDataset
	}
	return d.dataset, nil
}

// Compute runs the pipeline for sel. Zero dates default to the dataset
// bounds, which are echoed back in the snapshot's selection.
func (d *Dashboard) Compute(sel models.Selection) (Snapshot, error) {
	ds, err := d.current()
	if err != nil {
		return Snapshot{}, err
	}

	minDate, maxDate := ds.DateBounds()
	if sel.Start.IsZero() {
		sel.Start = minDate
	}
	if sel.End.IsZero() {
		sel.End = maxDate
	}
	if sel.End.Before(sel.Start) {
		return Snapshot{}, fmt.Errorf("%w: %s > %s", ErrInvalidWindow,
			sel.Start.Format(time.DateOnly), sel.End.Format(time.DateOnly))
	}

	windowed := filter.Window(ds.Records, sel.Start, sel.End)
	res := filter.Resolve(windowed, sel)

	dash := aggregate.Build(windowed, res.Records)
	dash.Selection = sel
	dash.MinDate = minDate
	dash.MaxDate = maxDate
	dash.RegionOptions = res.RegionOptions
	dash.StateOptions = res.StateOptions
	dash.CityOptions = res.CityOptions

	d.logger.Debug("dashboard computed",
		"branch", res.Branch.String(),
		"windowed", len(windowed),
		"filtered", len(res.Records),
	)

	return Snapshot{
		Dashboard: dash,
		Columns:   ds.Columns,
		Windowed:  windowed,
		Filtered:  res.Records,
		Branch:    res.Branch,
	}, nil
}

// Tables returns every export for sel.
func (d *Dashboard) Tables(sel models.Selection) ([]export.Table, error) {
	snap, err := d.Compute(sel)
	if err != nil {
		return nil, err
	}
	return export.Tables(snap.Dashboard, snap.Columns, snap.Windowed), nil
}

// Table returns a single export by name.
func (d *Dashboard) Table(sel models.Selection, name string) (export.Table, error) {
	tables, err := d.Tables(sel)
	if err != nil {
		return export.Table{}, err
	}
	t, ok := export.Lookup(tables, name)
	if !ok {
		return export.Table{}, fmt.Errorf("%w: %q", ErrUnknownExport, name)
	}
	return t, nil
}

// Stats reports the session dataset for monitoring.
func (d *Dashboard) Stats() map[string]any {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.dataset == nil {
		return map[string]any{"loaded": false}
	}
	minDate, maxDate := d.dataset.DateBounds()
	return map[string]any{
		"loaded":       true,
		"source":       d.dataset.Source,
		"record_count": len(d.dataset.Records),
		"columns":      len(d.dataset.Columns),
		"loaded_at":    d.dataset.LoadedAt,
		"min_date":     minDate.Format(time.DateOnly),
		"max_date":     maxDate.Format(time.DateOnly),
	}
}
