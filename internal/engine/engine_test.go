package engine

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/dataqualityagent/data-quality-agent/internal/config"
	"github.com/dataqualityagent/data-quality-agent/internal/profiler"
	"github.com/dataqualityagent/data-quality-agent/internal/report"
	"github.com/dataqualityagent/data-quality-agent/internal/rules"
)

func newTestEngine() *Engine {
	return New(config.DefaultConfig(), rules.Default())
}

func baseProfile(rows int, columns ...string) *profiler.DatasetProfile {
	missing := make(map[string]profiler.MissingStats, len(columns))
	for _, column := range columns {
		missing[column] = profiler.MissingStats{}
	}

	return &profiler.DatasetProfile{
		FilePath: "testdata.csv",
		BasicStats: &profiler.BasicStats{
			RowCount:    rows,
			ColumnCount: len(columns),
			Columns:     columns,
		},
		ColumnTypes:      map[string]profiler.ColumnType{},
		MissingValues:    missing,
		DescriptiveStats: map[string]profiler.DescriptiveStats{},
		Outliers:         map[string]profiler.OutlierStats{},
		NegativeValues:   map[string]profiler.NegativeStats{},
	}
}

func TestAnalyze_EmptyDataset(t *testing.T) {
	eng := newTestEngine()
	profile := baseProfile(0, "user_id", "age", "country")

	result, err := eng.Analyze(profile)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if result.Decision != report.DecisionReject {
		t.Errorf("expected REJECT for empty dataset, got %s", result.Decision)
	}
	if len(result.Issues) != 1 {
		t.Fatalf("expected exactly 1 issue, got %d", len(result.Issues))
	}

	issue := result.Issues[0]
	if issue.RuleReference != "DQ-02" {
		t.Errorf("expected rule DQ-02, got %s", issue.RuleReference)
	}
	if issue.Severity != report.SeverityCritical {
		t.Errorf("expected critical severity, got %s", issue.Severity)
	}
	if issue.Type != "Empty dataset" {
		t.Errorf("expected type 'Empty dataset', got %q", issue.Type)
	}
	if issue.Explanation != "Dataset contains 0 rows. Cannot perform quality analysis on empty data." {
		t.Errorf("unexpected explanation: %q", issue.Explanation)
	}
	if result.Stats.RowCount != 0 || result.Stats.IssuesCount != 1 {
		t.Errorf("unexpected stats: %+v", result.Stats)
	}
}

func TestAnalyze_CleanDataset(t *testing.T) {
	eng := newTestEngine()
	profile := baseProfile(1250, "user_id", "age", "country")

	result, err := eng.Analyze(profile)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if result.Decision != report.DecisionAccept {
		t.Errorf("expected ACCEPT for clean dataset, got %s", result.Decision)
	}
	if len(result.Issues) != 0 {
		t.Errorf("expected no issues, got %d", len(result.Issues))
	}

	want := "Dataset with 1,250 rows and 3 columns passed all quality checks."
	if result.Summary != want {
		t.Errorf("expected summary %q, got %q", want, result.Summary)
	}
}

func TestAnalyze_MissingValueThresholds(t *testing.T) {
	tests := []struct {
		name         string
		column       string
		percentage   float64
		wantIssues   int
		wantSeverity report.Severity
		wantDecision report.Decision
	}{
		{"below warning on regular column", "comments", 19.9, 0, "", report.DecisionAccept},
		{"below warning on critical column", "age", 19.9, 0, "", report.DecisionAccept},
		{"at warning on regular column", "comments", 20.0, 1, report.SeverityLow, report.DecisionWarning},
		{"at warning on critical column", "age", 20.0, 1, report.SeverityMedium, report.DecisionWarning},
		{"just below reject stays in warning tier", "comments", 39.99, 1, report.SeverityLow, report.DecisionWarning},
		{"at reject on regular column", "comments", 40.0, 1, report.SeverityHigh, report.DecisionReject},
		{"at reject on critical column", "age", 40.0, 1, report.SeverityCritical, report.DecisionReject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := newTestEngine()
			profile := baseProfile(1000, tt.column)
			profile.MissingValues[tt.column] = profiler.MissingStats{
				MissingCount:      int(tt.percentage * 10),
				MissingPercentage: tt.percentage,
			}

			result, err := eng.Analyze(profile)
			if err != nil {
				t.Fatalf("Analyze failed: %v", err)
			}

			if len(result.Issues) != tt.wantIssues {
				t.Fatalf("expected %d issues, got %d", tt.wantIssues, len(result.Issues))
			}
			if result.Decision != tt.wantDecision {
				t.Errorf("expected decision %s, got %s", tt.wantDecision, result.Decision)
			}
			if tt.wantIssues > 0 {
				issue := result.Issues[0]
				if issue.Severity != tt.wantSeverity {
					t.Errorf("expected severity %s, got %s", tt.wantSeverity, issue.Severity)
				}
				if issue.RuleReference != "DQ-01" {
					t.Errorf("expected rule DQ-01, got %s", issue.RuleReference)
				}
				if issue.Column != tt.column {
					t.Errorf("expected column %s, got %s", tt.column, issue.Column)
				}
			}
		})
	}
}

func TestAnalyze_CriticalColumnAmplification(t *testing.T) {
	eng := newTestEngine()

	criticalProfile := baseProfile(1000, "user_id")
	criticalProfile.MissingValues["user_id"] = profiler.MissingStats{MissingCount: 250, MissingPercentage: 25.0}

	regularProfile := baseProfile(1000, "comments")
	regularProfile.MissingValues["comments"] = profiler.MissingStats{MissingCount: 250, MissingPercentage: 25.0}

	criticalResult, err := eng.Analyze(criticalProfile)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	regularResult, err := eng.Analyze(regularProfile)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if criticalResult.Issues[0].Severity != report.SeverityMedium {
		t.Errorf("expected medium on critical column, got %s", criticalResult.Issues[0].Severity)
	}
	if regularResult.Issues[0].Severity != report.SeverityLow {
		t.Errorf("expected low on regular column, got %s", regularResult.Issues[0].Severity)
	}
}

func TestAnalyze_OutlierThreshold(t *testing.T) {
	tests := []struct {
		name         string
		percentage   float64
		wantIssues   int
		wantDecision report.Decision
	}{
		{"below threshold", 4.99, 0, report.DecisionAccept},
		{"at threshold", 5.0, 1, report.DecisionWarning},
		{"above threshold", 12.5, 1, report.DecisionWarning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := newTestEngine()
			profile := baseProfile(1000, "age")
			profile.Outliers["age"] = profiler.OutlierStats{
				OutlierCount:      int(tt.percentage * 10),
				OutlierPercentage: tt.percentage,
				LowerBound:        17.5,
				UpperBound:        47.5,
				Q1:                28.75,
				Q3:                36.25,
			}

			result, err := eng.Analyze(profile)
			if err != nil {
				t.Fatalf("Analyze failed: %v", err)
			}

			if len(result.Issues) != tt.wantIssues {
				t.Fatalf("expected %d issues, got %d", tt.wantIssues, len(result.Issues))
			}
			if result.Decision != tt.wantDecision {
				t.Errorf("expected decision %s, got %s", tt.wantDecision, result.Decision)
			}
			if tt.wantIssues > 0 {
				issue := result.Issues[0]
				if issue.Severity != report.SeverityMedium {
					t.Errorf("expected medium severity, got %s", issue.Severity)
				}
				if issue.RuleReference != "DQ-05" {
					t.Errorf("expected rule DQ-05, got %s", issue.RuleReference)
				}
				if !strings.Contains(issue.Explanation, "[17.5, 47.5]") {
					t.Errorf("expected bounds in explanation, got %q", issue.Explanation)
				}
			}
		})
	}
}

func TestAnalyze_NegativeValues(t *testing.T) {
	t.Run("column outside the no-negative set is ignored", func(t *testing.T) {
		eng := newTestEngine()
		profile := baseProfile(100, "user_id", "salary")
		profile.NegativeValues["salary"] = profiler.NegativeStats{NegativeCount: 1, NegativePercentage: 1.0}

		result, err := eng.Analyze(profile)
		if err != nil {
			t.Fatalf("Analyze failed: %v", err)
		}

		if result.Decision != report.DecisionAccept {
			t.Errorf("expected ACCEPT, got %s", result.Decision)
		}
		if len(result.Issues) != 0 {
			t.Errorf("expected no issues for column outside the set, got %d", len(result.Issues))
		}
	})

	t.Run("column in the no-negative set is flagged", func(t *testing.T) {
		eng := newTestEngine()
		profile := baseProfile(200, "user_id", "age")
		profile.NegativeValues["age"] = profiler.NegativeStats{NegativeCount: 3, NegativePercentage: 1.5}

		result, err := eng.Analyze(profile)
		if err != nil {
			t.Fatalf("Analyze failed: %v", err)
		}

		if result.Decision != report.DecisionWarning {
			t.Errorf("expected WARNING, got %s", result.Decision)
		}
		if len(result.Issues) != 1 {
			t.Fatalf("expected 1 issue, got %d", len(result.Issues))
		}

		issue := result.Issues[0]
		if issue.Severity != report.SeverityMedium {
			t.Errorf("expected medium severity, got %s", issue.Severity)
		}
		if issue.RuleReference != "DQ-04" {
			t.Errorf("expected rule DQ-04, got %s", issue.RuleReference)
		}
		want := "Column 'age' contains 3 negative values (1.5%), which should not be possible for this field."
		if issue.Explanation != want {
			t.Errorf("expected explanation %q, got %q", want, issue.Explanation)
		}
	})
}

func TestAnalyze_WarningScenario(t *testing.T) {
	eng := newTestEngine()
	profile := baseProfile(1000, "user_id", "age", "country")
	profile.MissingValues["age"] = profiler.MissingStats{MissingCount: 250, MissingPercentage: 25.0}

	result, err := eng.Analyze(profile)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if result.Decision != report.DecisionWarning {
		t.Errorf("expected WARNING, got %s", result.Decision)
	}
	if len(result.Issues) != 1 {
		t.Fatalf("expected 1 issue, got %d", len(result.Issues))
	}

	issue := result.Issues[0]
	if issue.Severity != report.SeverityMedium {
		t.Errorf("expected medium severity for critical column in warning tier, got %s", issue.Severity)
	}
	want := "Column 'age' has 25% missing values, exceeding the 20% threshold."
	if issue.Explanation != want {
		t.Errorf("expected explanation %q, got %q", want, issue.Explanation)
	}

	wantSummary := "Dataset with 1,000 rows and 3 columns has 1 quality issue(s) requiring attention."
	if result.Summary != wantSummary {
		t.Errorf("expected summary %q, got %q", wantSummary, result.Summary)
	}
}

func TestAnalyze_RejectScenario(t *testing.T) {
	eng := newTestEngine()
	profile := baseProfile(500, "user_id", "age")
	profile.MissingValues["user_id"] = profiler.MissingStats{MissingCount: 250, MissingPercentage: 50.0}

	result, err := eng.Analyze(profile)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if result.Decision != report.DecisionReject {
		t.Errorf("expected REJECT, got %s", result.Decision)
	}
	if len(result.Issues) != 1 {
		t.Fatalf("expected 1 issue, got %d", len(result.Issues))
	}
	if result.Issues[0].Severity != report.SeverityCritical {
		t.Errorf("expected critical severity, got %s", result.Issues[0].Severity)
	}

	wantSummary := "Dataset with 500 rows and 2 columns has 1 critical quality issue(s). Manual review required."
	if result.Summary != wantSummary {
		t.Errorf("expected summary %q, got %q", wantSummary, result.Summary)
	}
}

func TestAnalyze_IssueOrderFollowsColumnOrder(t *testing.T) {
	eng := newTestEngine()
	profile := baseProfile(1000, "user_id", "age", "comments")
	profile.MissingValues["user_id"] = profiler.MissingStats{MissingCount: 500, MissingPercentage: 50.0}
	profile.MissingValues["age"] = profiler.MissingStats{MissingCount: 250, MissingPercentage: 25.0}
	profile.Outliers["age"] = profiler.OutlierStats{
		OutlierCount: 100, OutlierPercentage: 10.0,
		LowerBound: 17.5, UpperBound: 47.5, Q1: 28.75, Q3: 36.25,
	}
	profile.NegativeValues["age"] = profiler.NegativeStats{NegativeCount: 2, NegativePercentage: 0.2}

	wantRules := []string{"DQ-01", "DQ-01", "DQ-05", "DQ-04"}
	wantColumns := []string{"user_id", "age", "age", "age"}

	for i := 0; i < 5; i++ {
		result, err := eng.Analyze(profile)
		if err != nil {
			t.Fatalf("Analyze failed: %v", err)
		}
		if len(result.Issues) != len(wantRules) {
			t.Fatalf("expected %d issues, got %d", len(wantRules), len(result.Issues))
		}
		for j, issue := range result.Issues {
			if issue.RuleReference != wantRules[j] {
				t.Errorf("issue %d: expected rule %s, got %s", j, wantRules[j], issue.RuleReference)
			}
			if issue.Column != wantColumns[j] {
				t.Errorf("issue %d: expected column %s, got %s", j, wantColumns[j], issue.Column)
			}
		}
		if result.Decision != report.DecisionReject {
			t.Errorf("expected REJECT, got %s", result.Decision)
		}
	}
}

func TestAnalyze_SparseProfileUsesSortedOrder(t *testing.T) {
	eng := newTestEngine()

	// Hand-built profiles may omit the column list entirely.
	profile := &profiler.DatasetProfile{
		BasicStats: &profiler.BasicStats{RowCount: 100, ColumnCount: 2},
		MissingValues: map[string]profiler.MissingStats{
			"zeta":  {MissingCount: 30, MissingPercentage: 30.0},
			"alpha": {MissingCount: 45, MissingPercentage: 45.0},
		},
	}

	result, err := eng.Analyze(profile)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if len(result.Issues) != 2 {
		t.Fatalf("expected 2 issues, got %d", len(result.Issues))
	}
	if result.Issues[0].Column != "alpha" || result.Issues[1].Column != "zeta" {
		t.Errorf("expected sorted column order [alpha zeta], got [%s %s]",
			result.Issues[0].Column, result.Issues[1].Column)
	}
}

func TestAnalyze_NilSecondaryMapsMeanNoFindings(t *testing.T) {
	eng := newTestEngine()
	profile := &profiler.DatasetProfile{
		BasicStats:    &profiler.BasicStats{RowCount: 50, ColumnCount: 1, Columns: []string{"age"}},
		MissingValues: map[string]profiler.MissingStats{"age": {}},
	}

	result, err := eng.Analyze(profile)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if result.Decision != report.DecisionAccept {
		t.Errorf("expected ACCEPT, got %s", result.Decision)
	}
}

func TestAnalyze_MalformedProfile(t *testing.T) {
	tests := []struct {
		name    string
		profile *profiler.DatasetProfile
	}{
		{"nil profile", nil},
		{"missing basic stats", &profiler.DatasetProfile{
			MissingValues: map[string]profiler.MissingStats{},
		}},
		{"missing missing-values map", &profiler.DatasetProfile{
			BasicStats: &profiler.BasicStats{RowCount: 10, ColumnCount: 1},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := newTestEngine()
			_, err := eng.Analyze(tt.profile)
			if err == nil {
				t.Fatal("expected error for malformed profile")
			}
			if !errors.Is(err, ErrMalformedProfile) {
				t.Errorf("expected ErrMalformedProfile, got %v", err)
			}
		})
	}
}

func TestAnalyze_Idempotent(t *testing.T) {
	eng := newTestEngine()
	profile := baseProfile(1000, "user_id", "age")
	profile.MissingValues["age"] = profiler.MissingStats{MissingCount: 300, MissingPercentage: 30.0}
	profile.Outliers["age"] = profiler.OutlierStats{
		OutlierCount: 60, OutlierPercentage: 6.0,
		LowerBound: 17.5, UpperBound: 47.5, Q1: 28.75, Q3: 36.25,
	}

	first, err := eng.Analyze(profile)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	second, err := eng.Analyze(profile)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("expected identical reports, got\n%+v\nand\n%+v", first, second)
	}
}

func TestReasoning(t *testing.T) {
	eng := newTestEngine()
	profile := baseProfile(1000, "user_id", "age", "country")
	profile.MissingValues["age"] = profiler.MissingStats{MissingCount: 250, MissingPercentage: 25.0}

	if _, err := eng.Analyze(profile); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	log := eng.Reasoning()
	if len(log) == 0 {
		t.Fatal("expected non-empty reasoning log")
	}
	if log[0] != "Beginning data quality analysis" {
		t.Errorf("unexpected first entry: %q", log[0])
	}
	if log[1] != "Consulting 5 quality rules" {
		t.Errorf("unexpected second entry: %q", log[1])
	}

	wantEntries := []string{
		"Step 1: Checking if dataset is empty (DQ-02)",
		"  -> Dataset has 1000 rows. Proceeding with analysis.",
		"Step 2: Analyzing missing values (DQ-01)",
		"  -> Column 'age': 25% missing (>= 20%) - MEDIUM",
		"Step 3: Analyzing outliers with IQR method (DQ-05)",
		"  -> No significant outlier issues detected.",
		"Step 4: Checking for impossible negative values (DQ-04)",
		"  -> No impossible negative values detected.",
		"Step 5: Determining global decision",
		"  -> Found 1 issue(s), none critical. Decision: WARNING",
	}
	joined := strings.Join(log, "\n")
	for _, want := range wantEntries {
		if !strings.Contains(joined, want) {
			t.Errorf("reasoning log missing entry %q\ngot:\n%s", want, joined)
		}
	}

	// The log resets between runs instead of accumulating.
	if _, err := eng.Analyze(profile); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if rerun := eng.Reasoning(); len(rerun) != len(log) {
		t.Errorf("expected reasoning log to reset, got %d entries after rerun (was %d)", len(rerun), len(log))
	}
}

func TestReasoning_EmptyDatasetShortCircuit(t *testing.T) {
	eng := newTestEngine()

	if _, err := eng.Analyze(baseProfile(0, "a", "b")); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	joined := strings.Join(eng.Reasoning(), "\n")
	if !strings.Contains(joined, "  -> Dataset is EMPTY. This triggers REJECT.") {
		t.Errorf("expected empty-dataset entry, got:\n%s", joined)
	}
	if strings.Contains(joined, "Step 2:") {
		t.Errorf("expected short-circuit before step 2, got:\n%s", joined)
	}
	if !strings.Contains(joined, "  -> Found 1 CRITICAL issue(s). Decision: REJECT") {
		t.Errorf("expected critical decision entry, got:\n%s", joined)
	}
}

func TestAnalyze_HighSeverityAloneRejects(t *testing.T) {
	eng := newTestEngine()
	profile := baseProfile(1000, "comments")
	profile.MissingValues["comments"] = profiler.MissingStats{MissingCount: 450, MissingPercentage: 45.0}

	result, err := eng.Analyze(profile)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if result.Decision != report.DecisionReject {
		t.Errorf("expected REJECT for high severity issue, got %s", result.Decision)
	}

	joined := strings.Join(eng.Reasoning(), "\n")
	if !strings.Contains(joined, "  -> Found 1 HIGH severity issue(s). Decision: REJECT") {
		t.Errorf("expected high-severity decision entry, got:\n%s", joined)
	}
}
