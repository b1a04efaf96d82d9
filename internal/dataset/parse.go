package dataset

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	"sales-dashboard/internal/models"
)

var delimiters = []rune{',', ';', '\t', '|'}

func readCSV(data []byte) ([][]string, error) {
	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = sniffDelimiter(data)

	var rows [][]string
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				return nil, &LoadError{Line: pe.Line, Err: pe.Err}
			}
			return nil, fmt.Errorf("read csv: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// sniffDelimiter picks the candidate that occurs most often in the
// header line, defaulting to a comma.
func sniffDelimiter(data []byte) rune {
	line, _, _ := bytes.Cut(data, []byte("\n"))
	best, bestCount := ',', 0
	for _, d := range delimiters {
		if n := strings.Count(string(line), string(d)); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &LoadError{Err: fmt.Errorf("open workbook: %w", err)}
	}
	defer f.Close()

	// Raw values keep dates as serials and numbers free of display formats.
	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, &LoadError{Err: fmt.Errorf("read sheet %q: %w", sheet, err)}
	}
	return rows, nil
}

// dateFunc turns an Order Date cell into a day.
type dateFunc func(string) (time.Time, error)

func (l *Loader) parse(ctx context.Context, source string, rows [][]string, dates dateFunc) (*models.Dataset, error) {
	if len(rows) == 0 {
		return nil, &LoadError{Err: ErrEmptyFile}
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}
	index, err := resolveHeader(header, l.opts.Aliases)
	if err != nil {
		return nil, err
	}
	if len(rows) == 1 {
		return nil, &LoadError{Line: 1, Err: fmt.Errorf("%w: no data rows", ErrEmptyFile)}
	}

	body := rows[1:]
	records := make([]models.Record, len(body))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(l.opts.Workers)
	for start := 0; start < len(body); start += batchSize {
		end := min(start+batchSize, len(body))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				rec, err := parseRecord(header, index, body[i], dates)
				if err != nil {
					err.Line = i + 2
					return err
				}
				records[i] = rec
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &models.Dataset{
		Source:   source,
		Columns:  canonicalColumns(header, index),
		Records:  records,
		LoadedAt: time.Now(),
	}, nil
}

// canonicalColumns renames aliased headers to their canonical names so
// exports always carry the dashboard's column names.
func canonicalColumns(header []string, index map[string]int) []string {
	cols := make([]string, len(header))
	copy(cols, header)
	for name, i := range index {
		cols[i] = name
	}
	return cols
}

func parseRecord(header []string, index map[string]int, row []string, dates dateFunc) (models.Record, *LoadError) {
	get := func(col string) string {
		i := index[col]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	fail := func(col string, err error) *LoadError {
		return &LoadError{Column: col, Value: get(col), Err: err}
	}

	date, err := dates(get(models.ColOrderDate))
	if err != nil {
		return models.Record{}, fail(models.ColOrderDate, err)
	}
	sales, err := parseNumber(get(models.ColSales))
	if err != nil {
		return models.Record{}, fail(models.ColSales, err)
	}
	profit, err := parseNumber(get(models.ColProfit))
	if err != nil {
		return models.Record{}, fail(models.ColProfit, err)
	}
	quantity, err := parseQuantity(get(models.ColQuantity))
	if err != nil {
		return models.Record{}, fail(models.ColQuantity, err)
	}

	raw := make(map[string]string, len(header))
	for i, h := range header {
		if i < len(row) {
			raw[h] = row[i]
		}
	}

	return models.Record{
		OrderDate:   date,
		Region:      get(models.ColRegion),
		State:       get(models.ColState),
		City:        get(models.ColCity),
		Category:    get(models.ColCategory),
		SubCategory: get(models.ColSubCategory),
		Segment:     get(models.ColSegment),
		Sales:       sales,
		Profit:      profit,
		Quantity:    quantity,
		Raw:         raw,
	}, nil
}

// dayFirstLayouts are tried when dateparse gives up, for day-first
// exports such as 31-12-2022.
var dayFirstLayouts = []string{
	"02-01-2006",
	"2-1-2006",
	"02.01.2006",
	"2.1.2006",
	"02-01-2006 15:04:05",
}

// ParseDate accepts the mixed layouts found in exported sales sheets.
// Ambiguous numeric dates are read month first; when that is impossible,
// as in 13/01/2022, day and month are swapped.
func ParseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("empty date")
	}
	t, err := dateparse.ParseIn(s, time.UTC, dateparse.RetryAmbiguousDateWithSwap(true))
	if err == nil {
		// The swapped retry parses in time.Local; keep the wall clock.
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC), nil
	}
	for _, layout := range dayFirstLayouts {
		if t, lerr := time.ParseInLocation(layout, s, time.UTC); lerr == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse date: %w", err)
}

// parseSheetDate reads a workbook date cell. Real date cells arrive as
// Excel serial numbers; text cells go through ParseDate.
func parseSheetDate(s string) (time.Time, error) {
	serial, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return ParseDate(s)
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date serial: %w", err)
	}
	return t.Round(time.Second).UTC(), nil
}

func parseNumber(s string) (float64, error) {
	if s == "" {
		return 0, errors.New("empty number")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse number: %w", err)
	}
	return v, nil
}

// parseQuantity also accepts integral floats such as "3.0", which
// spreadsheets tend to produce.
func parseQuantity(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	v, err := parseNumber(s)
	if err != nil {
		return 0, err
	}
	if v != math.Trunc(v) {
		return 0, fmt.Errorf("quantity %q is not a whole number", s)
	}
	return int(v), nil
}
