package profiler

// Storage types describe how a column's raw values parse. Semantic types are
// the coarse meaning downstream consumers reason about.
const (
	StorageInteger  = "integer"
	StorageFloat    = "float"
	StorageBoolean  = "boolean"
	StorageDatetime = "datetime"
	StorageOther    = "other"
)

const (
	SemanticInteger    = "integer"
	SemanticNumeric    = "numeric"
	SemanticBoolean    = "boolean"
	SemanticDatetime   = "datetime"
	SemanticDateString = "date_string"
	SemanticString     = "string"
)

type BasicStats struct {
	RowCount    int      `json:"row_count"`
	ColumnCount int      `json:"column_count"`
	Columns     []string `json:"columns"`
}

type ColumnType struct {
	StorageType  string `json:"storage_type"`
	SemanticType string `json:"semantic_type"`
}

type MissingStats struct {
	MissingCount      int     `json:"missing_count"`
	MissingPercentage float64 `json:"missing_percentage"`
}

// DescriptiveStats summarizes a numeric column over its non-missing values.
// Std is nil for single-element columns, where the sample deviation is
// undefined; it serializes as omitted rather than NaN.
type DescriptiveStats struct {
	Min    float64  `json:"min"`
	Max    float64  `json:"max"`
	Mean   float64  `json:"mean"`
	Median float64  `json:"median"`
	Std    *float64 `json:"std,omitempty"`
}

type OutlierStats struct {
	OutlierCount      int     `json:"outlier_count"`
	OutlierPercentage float64 `json:"outlier_percentage"`
	LowerBound        float64 `json:"lower_bound"`
	UpperBound        float64 `json:"upper_bound"`
	Q1                float64 `json:"q1"`
	Q3                float64 `json:"q3"`
}

type NegativeStats struct {
	NegativeCount      int     `json:"negative_count"`
	NegativePercentage float64 `json:"negative_percentage"`
}

// DatasetProfile holds every measurable fact about a dataset. Percentages are
// computed against the total row count; outlier and negative counts are taken
// over non-missing values. A column appears in Outliers only when it has at
// least one non-missing numeric value, and in NegativeValues only when it has
// at least one negative value.
type DatasetProfile struct {
	FilePath         string                      `json:"file_path"`
	BasicStats       *BasicStats                 `json:"basic_stats"`
	ColumnTypes      map[string]ColumnType       `json:"column_types"`
	MissingValues    map[string]MissingStats     `json:"missing_values"`
	DescriptiveStats map[string]DescriptiveStats `json:"descriptive_stats"`
	Outliers         map[string]OutlierStats     `json:"outliers"`
	NegativeValues   map[string]NegativeStats    `json:"negative_values"`
}
