package profiler

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var (
	// ErrDatasetNotFound reports a source path that does not exist.
	ErrDatasetNotFound = errors.New("dataset not found")

	// ErrEmptyInput reports input without a header row. A file with a header
	// but no data rows is not empty input; it loads as a zero-row dataset.
	ErrEmptyInput = errors.New("empty input")
)

// missingTokens are cell values treated as missing after trimming whitespace
// and lowercasing. An empty cell is always missing.
var missingTokens = map[string]struct{}{
	"na":   {},
	"n/a":  {},
	"nan":  {},
	"null": {},
	"none": {},
}

// Dataset is the column-oriented form of one CSV source. Column order follows
// the header row; cells are kept verbatim, missing tokens included.
type Dataset struct {
	Path    string
	Columns []string
	values  map[string][]string
	rows    int
}

func (d *Dataset) RowCount() int {
	return d.rows
}

func (d *Dataset) ColumnCount() int {
	return len(d.Columns)
}

// Values returns the raw cells of one column in row order.
func (d *Dataset) Values(column string) []string {
	return d.values[column]
}

// IsMissing reports whether a raw cell counts as a missing value.
func IsMissing(cell string) bool {
	trimmed := strings.TrimSpace(cell)
	if trimmed == "" {
		return true
	}
	_, ok := missingTokens[strings.ToLower(trimmed)]
	return ok
}

// Load reads a CSV file from disk into a Dataset.
func Load(path string) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, path)
		}
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	dataset, err := LoadFrom(file)
	if err != nil {
		return nil, err
	}
	dataset.Path = path

	return dataset, nil
}

// LoadFrom reads CSV data from a reader, for callers holding uploads or
// buffers instead of paths.
func LoadFrom(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyInput
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	columns := dedupeColumns(header)

	values := make(map[string][]string, len(columns))
	for _, name := range columns {
		values[name] = []string{}
	}

	rows := 0
	for {
		record, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to read row %d: %w", rows+1, err)
		}
		rows++
		// Short rows pad with missing cells; extra cells are dropped.
		for i, name := range columns {
			cell := ""
			if i < len(record) {
				cell = record[i]
			}
			values[name] = append(values[name], cell)
		}
	}

	return &Dataset{Columns: columns, values: values, rows: rows}, nil
}

// dedupeColumns keeps header names verbatim except for a BOM on the first
// cell and repeated names, which get a positional ".<n>" suffix so they can
// key a map.
func dedupeColumns(header []string) []string {
	columns := make([]string, len(header))
	counts := make(map[string]int, len(header))

	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\uFEFF")
		}
		n := counts[name]
		counts[name] = n + 1
		if n > 0 {
			name = fmt.Sprintf("%s.%d", name, n)
		}
		columns[i] = name
	}

	return columns
}
