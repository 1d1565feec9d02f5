package report

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

// severityOrder fixes the display order of severity counts.
var severityOrder = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}

type Formatter interface {
	Format(report *QualityReport) (string, error)
}

type TableFormatter struct {
	colorize bool
}

func NewTableFormatter(colorize bool) *TableFormatter {
	return &TableFormatter{colorize: colorize}
}

func (f *TableFormatter) Format(report *QualityReport) (string, error) {
	var output strings.Builder

	if f.colorize {
		color.Set(color.FgCyan, color.Bold)
	}
	output.WriteString("Data Quality Report\n")
	if f.colorize {
		color.Unset()
	}

	f.writeDecision(&output, report.Decision)
	output.WriteString(fmt.Sprintf("Rows: %s | Columns: %d | Issues: %d\n\n",
		FormatNumber(report.Stats.RowCount), report.Stats.ColumnCount, report.Stats.IssuesCount))

	f.writeSummary(&output, report)

	if len(report.Issues) > 0 {
		output.WriteString("\nIssues Found:\n")
		f.writeIssuesTable(&output, report.Issues)
	} else {
		output.WriteString("\n")
		if f.colorize {
			color.Set(color.FgGreen, color.Bold)
		}
		output.WriteString("✅ No issues found! Dataset is healthy.\n")
		if f.colorize {
			color.Unset()
		}
	}

	return output.String(), nil
}

func (f *TableFormatter) writeDecision(output *strings.Builder, decision Decision) {
	label := string(decision)
	if f.colorize {
		if decisionColor := f.getDecisionColor(decision); decisionColor != nil {
			label = decisionColor.Sprint(label)
		}
	}
	output.WriteString(fmt.Sprintf("Decision: %s\n", label))
}

func (f *TableFormatter) writeSummary(output *strings.Builder, report *QualityReport) {
	if f.colorize {
		color.Set(color.FgYellow, color.Bold)
	}
	output.WriteString("Summary:\n")
	if f.colorize {
		color.Unset()
	}
	output.WriteString(fmt.Sprintf("  %s\n", report.Summary))

	if len(report.Issues) > 0 {
		f.writeSeverityCounts(output, report.CountBySeverity())
	}
}

func (f *TableFormatter) writeSeverityCounts(output *strings.Builder, counts map[Severity]int) {
	output.WriteString("  Issues by Severity:\n")
	for _, severity := range severityOrder {
		if counts[severity] == 0 {
			continue
		}
		line := fmt.Sprintf("    %s: %d\n", titleCase(string(severity)), counts[severity])
		if f.colorize {
			if severityColor := f.getSeverityColor(severity); severityColor != nil {
				line = severityColor.Sprint(line)
			}
		}
		output.WriteString(line)
	}
}

func (f *TableFormatter) writeIssuesTable(output *strings.Builder, issues []Issue) {
	for i, issue := range issues {
		if i > 0 {
			output.WriteString("\n")
		}

		severity := strings.ToUpper(string(issue.Severity))
		if f.colorize {
			if severityColor := f.getSeverityColor(issue.Severity); severityColor != nil {
				severity = severityColor.Sprint(severity)
			}
		}

		target := issue.Type
		if issue.Column != "" {
			target = fmt.Sprintf("%s - %s", issue.Type, issue.Column)
		}

		output.WriteString(fmt.Sprintf("  [%s] %s (%s)\n", severity, target, issue.RuleReference))
		output.WriteString(fmt.Sprintf("    Issue: %s\n", issue.Explanation))
	}
}

func (f *TableFormatter) getDecisionColor(decision Decision) *color.Color {
	switch decision {
	case DecisionAccept:
		return color.New(color.FgGreen, color.Bold)
	case DecisionWarning:
		return color.New(color.FgYellow, color.Bold)
	case DecisionReject:
		return color.New(color.FgRed, color.Bold)
	default:
		return nil
	}
}

func (f *TableFormatter) getSeverityColor(severity Severity) *color.Color {
	switch severity {
	case SeverityCritical:
		return color.New(color.FgRed, color.Bold)
	case SeverityHigh:
		return color.New(color.FgRed)
	case SeverityMedium:
		return color.New(color.FgYellow)
	case SeverityLow:
		return color.New(color.FgBlue)
	default:
		return nil
	}
}

type JSONFormatter struct{}

func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

func (f *JSONFormatter) Format(report *QualityReport) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report to JSON: %w", err)
	}
	return string(data), nil
}

type MarkdownFormatter struct{}

func NewMarkdownFormatter() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

func (f *MarkdownFormatter) Format(report *QualityReport) (string, error) {
	var output strings.Builder

	output.WriteString("# Data Quality Report\n\n")
	output.WriteString(fmt.Sprintf("**Decision:** %s\n\n", report.Decision))
	output.WriteString(fmt.Sprintf("%s\n\n", report.Summary))

	output.WriteString("## Dataset\n\n")
	output.WriteString(fmt.Sprintf("- **Rows:** %s\n", FormatNumber(report.Stats.RowCount)))
	output.WriteString(fmt.Sprintf("- **Columns:** %d\n", report.Stats.ColumnCount))
	output.WriteString(fmt.Sprintf("- **Issues:** %d\n\n", report.Stats.IssuesCount))

	if len(report.Issues) > 0 {
		counts := report.CountBySeverity()
		output.WriteString("### Issues by Severity\n\n")
		for _, severity := range severityOrder {
			if counts[severity] > 0 {
				output.WriteString(fmt.Sprintf("- **%s:** %d\n", titleCase(string(severity)), counts[severity]))
			}
		}
		output.WriteString("\n")

		output.WriteString("## Issues Found\n\n")
		f.writeIssuesMarkdown(&output, report.Issues)
	} else {
		output.WriteString("## ✅ No Issues Found\n\nDataset passed all quality checks!\n")
	}

	return output.String(), nil
}

func (f *MarkdownFormatter) writeIssuesMarkdown(output *strings.Builder, issues []Issue) {
	for _, issue := range issues {
		severityBadge := f.getSeverityBadge(issue.Severity)
		output.WriteString(fmt.Sprintf("#### %s %s\n\n", severityBadge, issue.Type))
		output.WriteString(fmt.Sprintf("**Rule:** %s\n\n", issue.RuleReference))

		if issue.Column != "" {
			output.WriteString(fmt.Sprintf("**Column:** `%s`\n\n", issue.Column))
		}

		output.WriteString(fmt.Sprintf("**Explanation:** %s\n\n", issue.Explanation))
		output.WriteString("---\n\n")
	}
}

func (f *MarkdownFormatter) getSeverityBadge(severity Severity) string {
	switch severity {
	case SeverityCritical:
		return "🔴 **CRITICAL**"
	case SeverityHigh:
		return "🟠 **HIGH**"
	case SeverityMedium:
		return "🟡 **MEDIUM**"
	case SeverityLow:
		return "🔵 **LOW**"
	default:
		return "⚪ **UNKNOWN**"
	}
}

func GetFormatter(format string) Formatter {
	switch strings.ToLower(format) {
	case "json":
		return NewJSONFormatter()
	case "markdown", "md":
		return NewMarkdownFormatter()
	case "html":
		return NewHTMLFormatter()
	case "table":
		fallthrough
	default:
		return NewTableFormatter(isTerminal())
	}
}

func titleCase(s string) string {
	if len(s) == 0 {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

func isTerminal() bool {
	fileInfo, _ := os.Stdout.Stat()
	return fileInfo.Mode()&os.ModeCharDevice != 0
}

// FormatNumber renders n with thousands separators.
func FormatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}

	str := fmt.Sprintf("%d", n)
	result := ""

	for i, char := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result += ","
		}
		result += string(char)
	}

	return result
}
