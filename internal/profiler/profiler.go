package profiler

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Profiler turns one dataset into a DatasetProfile. It measures and never
// judges; thresholds and severities live in the engine.
type Profiler struct {
	path    string
	dataset *Dataset
}

func New(path string) *Profiler {
	return &Profiler{path: path}
}

// NewFromDataset wraps an already-loaded dataset, for callers that received
// the bytes rather than a path (uploads, tests).
func NewFromDataset(dataset *Dataset) *Profiler {
	return &Profiler{path: dataset.Path, dataset: dataset}
}

// Load reads the dataset from disk on first use.
func (p *Profiler) Load() (*Dataset, error) {
	if p.dataset != nil {
		return p.dataset, nil
	}

	dataset, err := Load(p.path)
	if err != nil {
		return nil, err
	}
	p.dataset = dataset

	return dataset, nil
}

// GenerateProfile computes the complete profile. Repeated calls reuse the
// loaded data and return identical results.
func (p *Profiler) GenerateProfile() (*DatasetProfile, error) {
	dataset, err := p.Load()
	if err != nil {
		return nil, err
	}

	return &DatasetProfile{
		FilePath:         dataset.Path,
		BasicStats:       p.basicStats(dataset),
		ColumnTypes:      p.columnTypes(dataset),
		MissingValues:    p.missingValues(dataset),
		DescriptiveStats: p.descriptiveStats(dataset),
		Outliers:         p.detectOutliersIQR(dataset),
		NegativeValues:   p.detectNegativeValues(dataset),
	}, nil
}

func (p *Profiler) basicStats(dataset *Dataset) *BasicStats {
	columns := make([]string, len(dataset.Columns))
	copy(columns, dataset.Columns)

	return &BasicStats{
		RowCount:    dataset.RowCount(),
		ColumnCount: dataset.ColumnCount(),
		Columns:     columns,
	}
}

func (p *Profiler) columnTypes(dataset *Dataset) map[string]ColumnType {
	types := make(map[string]ColumnType, len(dataset.Columns))

	for _, column := range dataset.Columns {
		storage := inferStorageType(dataset.Values(column))
		types[column] = ColumnType{
			StorageType:  storage,
			SemanticType: semanticTypeFor(storage, column),
		}
	}

	return types
}

func (p *Profiler) missingValues(dataset *Dataset) map[string]MissingStats {
	missing := make(map[string]MissingStats)

	total := dataset.RowCount()
	if total == 0 {
		return missing
	}

	for _, column := range dataset.Columns {
		count := 0
		for _, cell := range dataset.Values(column) {
			if IsMissing(cell) {
				count++
			}
		}
		missing[column] = MissingStats{
			MissingCount:      count,
			MissingPercentage: round2(float64(count) / float64(total) * 100),
		}
	}

	return missing
}

func (p *Profiler) descriptiveStats(dataset *Dataset) map[string]DescriptiveStats {
	stats := make(map[string]DescriptiveStats)

	for _, column := range numericColumns(dataset) {
		values := columnFloats(dataset.Values(column))
		if len(values) == 0 {
			continue
		}

		sorted := make([]float64, len(values))
		copy(sorted, values)
		sort.Float64s(sorted)

		entry := DescriptiveStats{
			Min:    sorted[0],
			Max:    sorted[len(sorted)-1],
			Mean:   round2(mean(values)),
			Median: quantile(sorted, 0.5),
		}
		if len(values) > 1 {
			std := round2(sampleStd(values))
			entry.Std = &std
		}
		stats[column] = entry
	}

	return stats
}

// detectOutliersIQR flags values outside [Q1 - 1.5*IQR, Q3 + 1.5*IQR].
// Bounds are compared unrounded; the reported bounds and quartiles are
// rounded for presentation. Percentages are against the total row count.
func (p *Profiler) detectOutliersIQR(dataset *Dataset) map[string]OutlierStats {
	outliers := make(map[string]OutlierStats)

	total := dataset.RowCount()
	for _, column := range numericColumns(dataset) {
		values := columnFloats(dataset.Values(column))
		if len(values) == 0 {
			continue
		}

		sorted := make([]float64, len(values))
		copy(sorted, values)
		sort.Float64s(sorted)

		q1 := quantile(sorted, 0.25)
		q3 := quantile(sorted, 0.75)
		iqr := q3 - q1
		lowerBound := q1 - 1.5*iqr
		upperBound := q3 + 1.5*iqr

		count := 0
		for _, v := range values {
			if v < lowerBound || v > upperBound {
				count++
			}
		}

		percentage := 0.0
		if total > 0 {
			percentage = round2(float64(count) / float64(total) * 100)
		}

		outliers[column] = OutlierStats{
			OutlierCount:      count,
			OutlierPercentage: percentage,
			LowerBound:        round2(lowerBound),
			UpperBound:        round2(upperBound),
			Q1:                round2(q1),
			Q3:                round2(q3),
		}
	}

	return outliers
}

func (p *Profiler) detectNegativeValues(dataset *Dataset) map[string]NegativeStats {
	negatives := make(map[string]NegativeStats)

	total := dataset.RowCount()
	for _, column := range numericColumns(dataset) {
		count := 0
		for _, v := range columnFloats(dataset.Values(column)) {
			if v < 0 {
				count++
			}
		}
		if count == 0 {
			continue
		}

		percentage := 0.0
		if total > 0 {
			percentage = round2(float64(count) / float64(total) * 100)
		}

		negatives[column] = NegativeStats{
			NegativeCount:      count,
			NegativePercentage: percentage,
		}
	}

	return negatives
}

// inferStorageType classifies a column by what every non-missing value parses
// as, checked in order: integer, float, boolean, timestamp. A column that is
// all missing still counts as float when the dataset has rows; with zero rows
// nothing was parsed, so the column stays textual.
func inferStorageType(values []string) string {
	allInt, allFloat, allBool, allTime := true, true, true, true

	seen := 0
	for _, cell := range values {
		if IsMissing(cell) {
			continue
		}
		seen++
		v := strings.TrimSpace(cell)

		if allInt {
			if _, err := strconv.ParseInt(v, 10, 64); err != nil {
				allInt = false
			}
		}
		if allFloat {
			if _, ok := parseFinite(v); !ok {
				allFloat = false
			}
		}
		if allBool && !isBooleanToken(v) {
			allBool = false
		}
		if allTime && !isTimestamp(v) {
			allTime = false
		}
	}

	if seen == 0 {
		if len(values) == 0 {
			return StorageOther
		}
		return StorageFloat
	}

	switch {
	case allInt:
		return StorageInteger
	case allFloat:
		return StorageFloat
	case allBool:
		return StorageBoolean
	case allTime:
		return StorageDatetime
	default:
		return StorageOther
	}
}

func semanticTypeFor(storage, column string) string {
	switch storage {
	case StorageInteger:
		return SemanticInteger
	case StorageFloat:
		return SemanticNumeric
	case StorageBoolean:
		return SemanticBoolean
	case StorageDatetime:
		return SemanticDatetime
	}

	lower := strings.ToLower(column)
	if strings.HasSuffix(lower, "_date") || strings.Contains(lower, "date") {
		return SemanticDateString
	}
	return SemanticString
}

// numericColumns returns the columns with integer or float storage, in
// dataset column order.
func numericColumns(dataset *Dataset) []string {
	var columns []string
	for _, column := range dataset.Columns {
		storage := inferStorageType(dataset.Values(column))
		if storage == StorageInteger || storage == StorageFloat {
			columns = append(columns, column)
		}
	}
	return columns
}

// columnFloats parses the non-missing cells of a column.
func columnFloats(values []string) []float64 {
	var floats []float64
	for _, cell := range values {
		if IsMissing(cell) {
			continue
		}
		if f, ok := parseFinite(strings.TrimSpace(cell)); ok {
			floats = append(floats, f)
		}
	}
	return floats
}

// parseFinite rejects values that would put NaN or Infinity into the profile.
func parseFinite(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func isBooleanToken(s string) bool {
	return strings.EqualFold(s, "true") || strings.EqualFold(s, "false")
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// isTimestamp matches full timestamps only. Bare dates stay textual so the
// date_string name heuristic can classify them.
func isTimestamp(s string) bool {
	for _, layout := range timestampLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// sampleStd is the n-1 (sample) standard deviation. Callers must pass at
// least two values.
func sampleStd(values []float64) float64 {
	m := mean(values)
	sumSq := 0.0
	for _, v := range values {
		sumSq += (v - m) * (v - m)
	}
	return math.Sqrt(sumSq / float64(len(values)-1))
}

// quantile interpolates linearly between the closest ranks of sorted values.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}

	pos := q * float64(len(sorted)-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	if lower == upper {
		return sorted[lower]
	}

	weight := pos - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
