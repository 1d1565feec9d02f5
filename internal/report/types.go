package report

type Decision string

const (
	DecisionAccept  Decision = "ACCEPT"
	DecisionWarning Decision = "WARNING"
	DecisionReject  Decision = "REJECT"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

type Issue struct {
	Type          string   `json:"type"`
	Severity      Severity `json:"severity"`
	RuleReference string   `json:"rule_reference"`
	Explanation   string   `json:"explanation"`
	Column        string   `json:"column,omitempty"`
}

type Stats struct {
	RowCount    int `json:"row_count"`
	ColumnCount int `json:"column_count"`
	IssuesCount int `json:"issues_count"`
}

// QualityReport is the contract consumed by formatters, exporters, and the
// dashboard. Field names and nesting must stay stable.
type QualityReport struct {
	Decision Decision `json:"decision"`
	Summary  string   `json:"summary"`
	Issues   []Issue  `json:"issues"`
	Stats    Stats    `json:"stats"`
}

// CountBySeverity returns how many issues carry each severity.
func (r *QualityReport) CountBySeverity() map[Severity]int {
	counts := make(map[Severity]int)
	for _, issue := range r.Issues {
		counts[issue.Severity]++
	}
	return counts
}

// RejectWorthyCount counts issues whose severity forces a REJECT decision.
func (r *QualityReport) RejectWorthyCount() int {
	count := 0
	for _, issue := range r.Issues {
		if issue.Severity == SeverityCritical || issue.Severity == SeverityHigh {
			count++
		}
	}
	return count
}
