package report

import (
	"fmt"
	"html/template"
	"strings"
	"time"
)

// Badge palette shared by the HTML report and the batch summary.
var (
	decisionColors = map[Decision]template.CSS{
		DecisionAccept:  "#28a745",
		DecisionWarning: "#ffc107",
		DecisionReject:  "#dc3545",
	}
	severityColors = map[Severity]template.CSS{
		SeverityLow:      "#28a745",
		SeverityMedium:   "#ffc107",
		SeverityHigh:     "#fd7e14",
		SeverityCritical: "#dc3545",
	}
)

const neutralColor = template.CSS("#6c757d")

func decisionCSS(decision Decision) template.CSS {
	if c, ok := decisionColors[decision]; ok {
		return c
	}
	return neutralColor
}

func severityCSS(severity Severity) template.CSS {
	if c, ok := severityColors[severity]; ok {
		return c
	}
	return neutralColor
}

var htmlFuncs = template.FuncMap{
	"formatNumber":  FormatNumber,
	"decisionColor": decisionCSS,
	"severityColor": severityCSS,
	"upper": func(severity Severity) string {
		return strings.ToUpper(string(severity))
	},
}

var (
	reportTemplate = template.Must(template.New("report").Funcs(htmlFuncs).Parse(reportTemplateHTML))
	batchTemplate  = template.Must(template.New("batch").Funcs(htmlFuncs).Parse(batchTemplateHTML))
)

type reportPage struct {
	Report      *QualityReport
	Metadata    map[string]any
	GeneratedAt string
}

// RenderHTML renders a standalone HTML page for a single report. The
// metadata table is omitted when metadata is empty.
func RenderHTML(report *QualityReport, metadata map[string]any) (string, error) {
	page := reportPage{
		Report:      report,
		Metadata:    metadata,
		GeneratedAt: time.Now().Format("2006-01-02 15:04:05"),
	}

	var output strings.Builder
	if err := reportTemplate.Execute(&output, page); err != nil {
		return "", fmt.Errorf("failed to render HTML report: %w", err)
	}
	return output.String(), nil
}

// DatasetResult pairs a source file with its report for batch summaries.
type DatasetResult struct {
	File   string
	Report *QualityReport
}

type batchPage struct {
	Results     []DatasetResult
	Accepted    int
	Warned      int
	Rejected    int
	GeneratedAt string
}

// RenderBatchHTML renders the cross-dataset summary page for a batch run.
func RenderBatchHTML(results []DatasetResult) (string, error) {
	page := batchPage{
		Results:     results,
		GeneratedAt: time.Now().Format("2006-01-02 15:04:05"),
	}
	for _, result := range results {
		switch result.Report.Decision {
		case DecisionAccept:
			page.Accepted++
		case DecisionWarning:
			page.Warned++
		case DecisionReject:
			page.Rejected++
		}
	}

	var output strings.Builder
	if err := batchTemplate.Execute(&output, page); err != nil {
		return "", fmt.Errorf("failed to render batch summary: %w", err)
	}
	return output.String(), nil
}

type HTMLFormatter struct{}

func NewHTMLFormatter() *HTMLFormatter {
	return &HTMLFormatter{}
}

func (f *HTMLFormatter) Format(report *QualityReport) (string, error) {
	return RenderHTML(report, nil)
}

const reportTemplateHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Data Quality Report</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 900px; margin: 0 auto; padding: 2rem; background: #f5f5f5; }
        .container { background: white; border-radius: 8px; padding: 2rem; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        header { background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); color: white; padding: 2rem; margin: -2rem -2rem 2rem -2rem; border-radius: 8px 8px 0 0; }
        header h1 { margin: 0; font-size: 1.8rem; }
        .decision-badge { display: inline-block; padding: 0.5rem 1.5rem; border-radius: 20px; font-weight: bold; font-size: 1.1rem; margin-top: 1rem; background-color: {{decisionColor .Report.Decision}}; color: white; }
        .summary { background: #f8f9fa; border-left: 4px solid {{decisionColor .Report.Decision}}; padding: 1rem; margin: 1.5rem 0; border-radius: 0 4px 4px 0; }
        .stats { display: flex; gap: 1rem; margin: 1.5rem 0; flex-wrap: wrap; }
        .stat-box { flex: 1; min-width: 150px; background: #f8f9fa; padding: 1rem; border-radius: 4px; text-align: center; }
        .stat-box .value { font-size: 1.5rem; font-weight: bold; color: #667eea; }
        .stat-box .label { font-size: 0.85rem; color: #666; text-transform: uppercase; }
        h2 { margin-top: 2rem; font-size: 1.3rem; border-bottom: 2px solid #f0f0f0; padding-bottom: 0.5rem; }
        .issue { border: 1px solid #e0e0e0; border-radius: 4px; padding: 1rem; margin: 1rem 0; }
        .issue-header { display: flex; justify-content: space-between; align-items: center; margin-bottom: 0.5rem; }
        .issue-type { font-weight: bold; font-size: 1.05rem; }
        .issue-severity { padding: 0.2rem 0.8rem; border-radius: 12px; font-size: 0.8rem; font-weight: bold; color: white; }
        .no-issues { text-align: center; padding: 2rem; color: #28a745; font-size: 1.1rem; }
        .metadata { width: 100%; border-collapse: collapse; margin: 1rem 0; }
        .metadata td { padding: 0.5rem; border-bottom: 1px solid #e0e0e0; }
        .metadata td:first-child { font-weight: bold; width: 200px; }
        footer { text-align: center; margin-top: 2rem; color: #999; font-size: 0.85rem; }
    </style>
</head>
<body>
    <div class="container">
        <header>
            <h1>Data Quality Report</h1>
            <div class="decision-badge">{{.Report.Decision}}</div>
        </header>

        <div class="summary">{{.Report.Summary}}</div>

        <div class="stats">
            <div class="stat-box">
                <div class="value">{{formatNumber .Report.Stats.RowCount}}</div>
                <div class="label">Rows</div>
            </div>
            <div class="stat-box">
                <div class="value">{{.Report.Stats.ColumnCount}}</div>
                <div class="label">Columns</div>
            </div>
            <div class="stat-box">
                <div class="value">{{.Report.Stats.IssuesCount}}</div>
                <div class="label">Issues</div>
            </div>
        </div>

{{if .Report.Issues}}        <h2>Issues Detected ({{len .Report.Issues}})</h2>
{{range .Report.Issues}}        <div class="issue">
            <div class="issue-header">
                <span class="issue-type">{{.Type}}</span>
                <span class="issue-severity" style="background-color: {{severityColor .Severity}};">{{upper .Severity}}</span>
            </div>
            <p><strong>Rule:</strong> {{.RuleReference}}{{if .Column}}<br><strong>Column:</strong> {{.Column}}{{end}}</p>
            <p>{{.Explanation}}</p>
        </div>
{{end}}{{else}}        <p class="no-issues">No issues detected. Dataset passes all quality checks.</p>
{{end}}
{{if .Metadata}}        <h2>Report Metadata</h2>
        <table class="metadata">
{{range $key, $value := .Metadata}}            <tr><td>{{$key}}</td><td>{{$value}}</td></tr>
{{end}}        </table>
{{end}}
        <footer>Generated by Data Quality Agent on {{.GeneratedAt}}</footer>
    </div>
</body>
</html>
`

const batchTemplateHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Batch Analysis Summary</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 1000px; margin: 0 auto; padding: 2rem; background: #f5f5f5; }
        .container { background: white; border-radius: 8px; padding: 2rem; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        header { background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); color: white; padding: 2rem; margin: -2rem -2rem 2rem -2rem; border-radius: 8px 8px 0 0; }
        header h1 { margin: 0; font-size: 1.8rem; }
        .counts { display: flex; gap: 1rem; margin: 1.5rem 0; }
        .stat-box { flex: 1; padding: 1.5rem; border-radius: 4px; text-align: center; color: white; }
        .stat-box.accept { background: #28a745; }
        .stat-box.warning { background: #ffc107; color: #333; }
        .stat-box.reject { background: #dc3545; }
        .stat-box .count { font-size: 2.5rem; font-weight: bold; }
        .stat-box .label { text-transform: uppercase; font-size: 0.85rem; }
        h2 { margin-top: 2rem; font-size: 1.3rem; border-bottom: 2px solid #f0f0f0; padding-bottom: 0.5rem; }
        table { width: 100%; border-collapse: collapse; margin: 1rem 0; }
        th { background: #f8f9fa; text-align: left; padding: 0.75rem; border-bottom: 2px solid #e0e0e0; }
        td { padding: 0.75rem; border-bottom: 1px solid #e0e0e0; }
        .decision { font-weight: bold; }
        footer { text-align: center; margin-top: 2rem; color: #999; font-size: 0.85rem; }
    </style>
</head>
<body>
    <div class="container">
        <header>
            <h1>Batch Analysis Summary</h1>
        </header>

        <div class="counts">
            <div class="stat-box accept">
                <div class="count">{{.Accepted}}</div>
                <div class="label">Accept</div>
            </div>
            <div class="stat-box warning">
                <div class="count">{{.Warned}}</div>
                <div class="label">Warning</div>
            </div>
            <div class="stat-box reject">
                <div class="count">{{.Rejected}}</div>
                <div class="label">Reject</div>
            </div>
        </div>

        <h2>Dataset Results ({{len .Results}} files)</h2>
        <table>
            <tr><th>File</th><th>Decision</th><th>Rows</th><th>Issues</th></tr>
{{range .Results}}            <tr>
                <td>{{.File}}</td>
                <td class="decision" style="color: {{decisionColor .Report.Decision}};">{{.Report.Decision}}</td>
                <td>{{formatNumber .Report.Stats.RowCount}}</td>
                <td>{{.Report.Stats.IssuesCount}}</td>
            </tr>
{{end}}        </table>

        <footer>Generated on {{.GeneratedAt}}</footer>
    </div>
</body>
</html>
`
