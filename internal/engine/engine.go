package engine

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dataqualityagent/data-quality-agent/internal/config"
	"github.com/dataqualityagent/data-quality-agent/internal/profiler"
	"github.com/dataqualityagent/data-quality-agent/internal/report"
	"github.com/dataqualityagent/data-quality-agent/internal/rules"
)

// ErrMalformedProfile reports a profile missing required parts. This is a
// caller bug, not a data-quality finding.
var ErrMalformedProfile = errors.New("malformed profile")

// Engine applies ordered deterministic checks over a dataset profile and
// reduces the accumulated issues to one global decision. All threshold
// comparisons are inclusive (>=) against the profile's rounded percentages.
type Engine struct {
	thresholds config.ThresholdConfig
	critical   map[string]struct{}
	noNegative map[string]struct{}
	catalog    *rules.Catalog

	issues    []report.Issue
	reasoning []string
}

func New(cfg *config.Config, catalog *rules.Catalog) *Engine {
	critical := make(map[string]struct{}, len(cfg.Columns.Critical))
	for _, column := range cfg.Columns.Critical {
		critical[column] = struct{}{}
	}

	noNegative := make(map[string]struct{}, len(cfg.Columns.NoNegative))
	for _, column := range cfg.Columns.NoNegative {
		noNegative[column] = struct{}{}
	}

	return &Engine{
		thresholds: cfg.Thresholds,
		critical:   critical,
		noNegative: noNegative,
		catalog:    catalog,
	}
}

// Analyze runs checks 1-5 in order and returns a fresh QualityReport. The
// internal issue list and reasoning log reset on every call; the returned
// report never aliases them.
func (e *Engine) Analyze(profile *profiler.DatasetProfile) (*report.QualityReport, error) {
	if err := validateProfile(profile); err != nil {
		return nil, err
	}

	e.issues = nil
	e.reasoning = nil

	e.logReasoning("Beginning data quality analysis")
	e.logReasoning(fmt.Sprintf("Consulting %d quality rules", e.catalog.Len()))

	// An empty dataset short-circuits straight to the decision.
	if !e.checkEmptyDataset(profile) {
		e.checkMissingValues(profile)
		e.checkOutliers(profile)
		e.checkNegativeValues(profile)
	}

	decision := e.determineDecision()
	summary := buildSummary(decision, profile, e.issues)

	issues := make([]report.Issue, len(e.issues))
	copy(issues, e.issues)

	return &report.QualityReport{
		Decision: decision,
		Summary:  summary,
		Issues:   issues,
		Stats: report.Stats{
			RowCount:    profile.BasicStats.RowCount,
			ColumnCount: profile.BasicStats.ColumnCount,
			IssuesCount: len(issues),
		},
	}, nil
}

// Reasoning returns the step-by-step log of the last Analyze call.
func (e *Engine) Reasoning() []string {
	log := make([]string, len(e.reasoning))
	copy(log, e.reasoning)
	return log
}

func validateProfile(profile *profiler.DatasetProfile) error {
	if profile == nil {
		return fmt.Errorf("%w: profile is nil", ErrMalformedProfile)
	}
	if profile.BasicStats == nil {
		return fmt.Errorf("%w: basic_stats is required", ErrMalformedProfile)
	}
	if profile.MissingValues == nil {
		return fmt.Errorf("%w: missing_values is required", ErrMalformedProfile)
	}
	return nil
}

func (e *Engine) logReasoning(message string) {
	e.reasoning = append(e.reasoning, message)
}

func (e *Engine) checkEmptyDataset(profile *profiler.DatasetProfile) bool {
	e.logReasoning("Step 1: Checking if dataset is empty (DQ-02)")

	rowCount := profile.BasicStats.RowCount
	if rowCount == 0 {
		e.logReasoning("  -> Dataset is EMPTY. This triggers REJECT.")
		e.issues = append(e.issues, report.Issue{
			Type:          "Empty dataset",
			Severity:      report.SeverityCritical,
			RuleReference: "DQ-02",
			Explanation:   "Dataset contains 0 rows. Cannot perform quality analysis on empty data.",
		})
		return true
	}

	e.logReasoning(fmt.Sprintf("  -> Dataset has %d rows. Proceeding with analysis.", rowCount))
	return false
}

func (e *Engine) checkMissingValues(profile *profiler.DatasetProfile) {
	e.logReasoning("Step 2: Analyzing missing values (DQ-01)")

	found := false
	for _, column := range orderedColumns(profile.BasicStats.Columns, profile.MissingValues) {
		pct := profile.MissingValues[column].MissingPercentage

		switch {
		case pct >= e.thresholds.MissingReject:
			severity := report.SeverityHigh
			if e.isCritical(column) {
				severity = report.SeverityCritical
			}
			e.logReasoning(fmt.Sprintf("  -> Column '%s': %v%% missing (>= %v%%) - %s",
				column, pct, e.thresholds.MissingReject, strings.ToUpper(string(severity))))
			e.issues = append(e.issues, report.Issue{
				Type:          "Missing values",
				Severity:      severity,
				RuleReference: "DQ-01",
				Explanation: fmt.Sprintf("Column '%s' has %v%% missing values, exceeding the %v%% threshold.",
					column, pct, e.thresholds.MissingReject),
				Column: column,
			})
			found = true

		case pct >= e.thresholds.MissingWarning:
			severity := report.SeverityLow
			if e.isCritical(column) {
				severity = report.SeverityMedium
			}
			e.logReasoning(fmt.Sprintf("  -> Column '%s': %v%% missing (>= %v%%) - %s",
				column, pct, e.thresholds.MissingWarning, strings.ToUpper(string(severity))))
			e.issues = append(e.issues, report.Issue{
				Type:          "Missing values",
				Severity:      severity,
				RuleReference: "DQ-01",
				Explanation: fmt.Sprintf("Column '%s' has %v%% missing values, exceeding the %v%% threshold.",
					column, pct, e.thresholds.MissingWarning),
				Column: column,
			})
			found = true
		}
	}

	if !found {
		e.logReasoning("  -> No significant missing value issues detected.")
	}
}

func (e *Engine) checkOutliers(profile *profiler.DatasetProfile) {
	e.logReasoning("Step 3: Analyzing outliers with IQR method (DQ-05)")

	found := false
	for _, column := range orderedColumns(profile.BasicStats.Columns, profile.Outliers) {
		stats := profile.Outliers[column]
		if stats.OutlierPercentage < e.thresholds.OutlierWarning {
			continue
		}

		e.logReasoning(fmt.Sprintf("  -> Column '%s': %v%% outliers (>= %v%%) - WARNING",
			column, stats.OutlierPercentage, e.thresholds.OutlierWarning))
		e.issues = append(e.issues, report.Issue{
			Type:          "Outliers",
			Severity:      report.SeverityMedium,
			RuleReference: "DQ-05",
			Explanation: fmt.Sprintf("Column '%s' has %v%% outliers (values outside [%v, %v]).",
				column, stats.OutlierPercentage, stats.LowerBound, stats.UpperBound),
			Column: column,
		})
		found = true
	}

	if !found {
		e.logReasoning("  -> No significant outlier issues detected.")
	}
}

func (e *Engine) checkNegativeValues(profile *profiler.DatasetProfile) {
	e.logReasoning("Step 4: Checking for impossible negative values (DQ-04)")

	found := false
	for _, column := range orderedColumns(profile.BasicStats.Columns, profile.NegativeValues) {
		if !e.isNoNegative(column) {
			continue
		}
		stats := profile.NegativeValues[column]

		e.logReasoning(fmt.Sprintf("  -> Column '%s': %d negative values found - WARNING",
			column, stats.NegativeCount))
		e.issues = append(e.issues, report.Issue{
			Type:          "Negative values",
			Severity:      report.SeverityMedium,
			RuleReference: "DQ-04",
			Explanation: fmt.Sprintf("Column '%s' contains %d negative values (%v%%), which should not be possible for this field.",
				column, stats.NegativeCount, stats.NegativePercentage),
			Column: column,
		})
		found = true
	}

	if !found {
		e.logReasoning("  -> No impossible negative values detected.")
	}
}

func (e *Engine) determineDecision() report.Decision {
	e.logReasoning("Step 5: Determining global decision")

	if len(e.issues) == 0 {
		e.logReasoning("  -> No issues detected. Decision: ACCEPT")
		return report.DecisionAccept
	}

	criticalCount := 0
	highCount := 0
	for _, issue := range e.issues {
		switch issue.Severity {
		case report.SeverityCritical:
			criticalCount++
		case report.SeverityHigh:
			highCount++
		}
	}

	if criticalCount > 0 {
		e.logReasoning(fmt.Sprintf("  -> Found %d CRITICAL issue(s). Decision: REJECT", criticalCount))
		return report.DecisionReject
	}
	if highCount > 0 {
		e.logReasoning(fmt.Sprintf("  -> Found %d HIGH severity issue(s). Decision: REJECT", highCount))
		return report.DecisionReject
	}

	e.logReasoning(fmt.Sprintf("  -> Found %d issue(s), none critical. Decision: WARNING", len(e.issues)))
	return report.DecisionWarning
}

func buildSummary(decision report.Decision, profile *profiler.DatasetProfile, issues []report.Issue) string {
	rowCount := profile.BasicStats.RowCount
	columnCount := profile.BasicStats.ColumnCount

	switch decision {
	case report.DecisionAccept:
		return fmt.Sprintf("Dataset with %s rows and %d columns passed all quality checks.",
			report.FormatNumber(rowCount), columnCount)
	case report.DecisionWarning:
		return fmt.Sprintf("Dataset with %s rows and %d columns has %d quality issue(s) requiring attention.",
			report.FormatNumber(rowCount), columnCount, len(issues))
	default:
		rejectWorthy := 0
		for _, issue := range issues {
			if issue.Severity == report.SeverityCritical || issue.Severity == report.SeverityHigh {
				rejectWorthy++
			}
		}
		return fmt.Sprintf("Dataset with %s rows and %d columns has %d critical quality issue(s). Manual review required.",
			report.FormatNumber(rowCount), columnCount, rejectWorthy)
	}
}

func (e *Engine) isCritical(column string) bool {
	_, ok := e.critical[column]
	return ok
}

func (e *Engine) isNoNegative(column string) bool {
	_, ok := e.noNegative[column]
	return ok
}

// orderedColumns returns the map's keys in the profile's column order, with
// keys outside that list appended in sorted order. Iteration over profile
// maps must never depend on Go's randomized map order.
func orderedColumns[V any](columns []string, m map[string]V) []string {
	ordered := make([]string, 0, len(m))
	seen := make(map[string]bool, len(m))

	for _, column := range columns {
		if _, ok := m[column]; ok {
			ordered = append(ordered, column)
			seen[column] = true
		}
	}

	var rest []string
	for column := range m {
		if !seen[column] {
			rest = append(rest, column)
		}
	}
	sort.Strings(rest)

	return append(ordered, rest...)
}
