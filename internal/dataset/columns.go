package dataset

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"sales-dashboard/internal/models"
)

// ColumnMap lists accepted header aliases per canonical column, e.g.
//
//	columns:
//	  Order Date: [order_date, OrderDate]
//	  Sub-Category: [subcategory]
type ColumnMap map[string][]string

type columnFile struct {
	Columns ColumnMap `yaml:"columns"`
}

// LoadColumnMap reads an alias file. An empty path yields no aliases.
func LoadColumnMap(path string) (ColumnMap, error) {
	if path == "" {
		return ColumnMap{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read column map %q: %w", path, err)
	}

	var cf columnFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parse column map %q: %w", path, err)
	}

	for canonical := range cf.Columns {
		if !isRequired(canonical) {
			return nil, fmt.Errorf("column map %q: unknown column %q", path, canonical)
		}
	}
	if cf.Columns == nil {
		cf.Columns = ColumnMap{}
	}
	return cf.Columns, nil
}

func isRequired(name string) bool {
	for _, c := range models.RequiredColumns {
		if c == name {
			return true
		}
	}
	return false
}

// resolveHeader maps every required column to its index in header.
func resolveHeader(header []string, aliases ColumnMap) (map[string]int, error) {
	byName := make(map[string]int, len(header))
	for i, h := range header {
		key := normalizeHeader(h)
		if _, dup := byName[key]; !dup {
			byName[key] = i
		}
	}

	index := make(map[string]int, len(models.RequiredColumns))
	var missing []string
	for _, col := range models.RequiredColumns {
		candidates := append([]string{col}, aliases[col]...)
		found := false
		for _, c := range candidates {
			if i, ok := byName[normalizeHeader(c)]; ok {
				index[col] = i
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &LoadError{Line: 1, Err: fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))}
	}
	return index, nil
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}
