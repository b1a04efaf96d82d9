// Package dataset loads the sales table from CSV or XLSX files.
//
// Loading is all or nothing: a missing required column, an unparseable
// date or an unparseable number fails the whole load with a LoadError
// naming the line and column.
package dataset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"

	"sales-dashboard/internal/models"
)

const (
	EncodingLatin1 = "latin1"
	EncodingUTF8   = "utf-8"

	defaultWorkers = 4
	batchSize      = 2000
)

var (
	ErrMissingColumns    = errors.New("missing required columns")
	ErrEmptyFile         = errors.New("empty file")
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// LoadError pins a load failure to a line (1 is the header) and column.
type LoadError struct {
	Line   int
	Column string
	Value  string
	Err    error
}

func (e *LoadError) Error() string {
	switch {
	case e.Column != "":
		return fmt.Sprintf("line %d, column %q, value %q: %v", e.Line, e.Column, e.Value, e.Err)
	case e.Line > 0:
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	default:
		return e.Err.Error()
	}
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

type Options struct {
	// Encoding of delimited files, EncodingLatin1 or EncodingUTF8.
	Encoding string
	Aliases  ColumnMap
	// Workers bounds concurrent row parsing.
	Workers int
	// CacheDir enables the parsed snapshot cache for LoadFile when set.
	CacheDir string
}

type Loader struct {
	opts   Options
	logger *slog.Logger
}

func NewLoader(opts Options, logger *slog.Logger) *Loader {
	if opts.Encoding == "" {
		opts.Encoding = EncodingLatin1
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.Aliases == nil {
		opts.Aliases = ColumnMap{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{opts: opts, logger: logger}
}

// LoadFile loads the dataset at path, using the snapshot cache when it
// is enabled and still fresh.
func (l *Loader) LoadFile(ctx context.Context, path string) (*models.Dataset, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %q: %w", path, err)
	}

	if l.opts.CacheDir != "" {
		if cached, err := l.loadFromCache(path); err == nil && info.ModTime().Before(cached.LoadedAt) {
			l.logger.Info("loaded dataset from cache", "source", path, "records", len(cached.Records))
			return cached, nil
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", path, err)
	}
	defer f.Close()

	ds, err := l.Load(ctx, path, f)
	if err != nil {
		return nil, err
	}

	if l.opts.CacheDir != "" {
		if err := l.saveToCache(path, ds); err != nil {
			l.logger.Warn("failed to save dataset cache", "source", path, "error", err)
		}
	}
	return ds, nil
}

// Load reads a dataset whose format is picked from the extension of name.
func (l *Loader) Load(ctx context.Context, name string, r io.Reader) (*models.Dataset, error) {
	start := time.Now()

	var (
		rows  [][]string
		dates dateFunc = ParseDate
		err   error
	)
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".csv", ".txt", "":
		rows, err = l.readDelimited(r)
	case ".xlsx":
		rows, err = readXLSX(r)
		dates = parseSheetDate
	default:
		return nil, &LoadError{Err: fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)}
	}
	if err != nil {
		return nil, err
	}

	ds, err := l.parse(ctx, name, rows, dates)
	if err != nil {
		return nil, err
	}

	l.logger.Info("dataset loaded",
		"source", name,
		"records", len(ds.Records),
		"columns", len(ds.Columns),
		"duration", time.Since(start),
	)
	return ds, nil
}

func (l *Loader) readDelimited(r io.Reader) ([][]string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	var text io.Reader
	if rest, ok := bytes.CutPrefix(raw, utf8BOM); ok {
		text = bytes.NewReader(rest)
	} else if l.opts.Encoding == EncodingLatin1 {
		text = charmap.ISO8859_1.NewDecoder().Reader(bytes.NewReader(raw))
	} else {
		text = bytes.NewReader(raw)
	}

	decoded, err := io.ReadAll(text)
	if err != nil {
		return nil, fmt.Errorf("decode %s input: %w", l.opts.Encoding, err)
	}
	return readCSV(decoded)
}
