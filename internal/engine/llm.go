package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dataqualityagent/data-quality-agent/internal/llm"
	"github.com/dataqualityagent/data-quality-agent/internal/profiler"
	"github.com/dataqualityagent/data-quality-agent/internal/report"
	"github.com/dataqualityagent/data-quality-agent/internal/rules"
)

// ChatClient is the slice of the model client the strategy needs.
type ChatClient interface {
	Chat(ctx context.Context, req llm.ChatRequest) (string, error)
}

const systemPrompt = `You are a data quality analyst. You receive a dataset profile and the
documented quality rules that apply to it. Decide whether the dataset should
be accepted for downstream use.

Respond with a single JSON object and nothing else, following this schema:
{
  "decision": "ACCEPT" | "WARNING" | "REJECT",
  "summary": "one or two sentences explaining the decision",
  "issues": [
    {
      "type": "short issue category",
      "severity": "low" | "medium" | "high" | "critical",
      "rule_reference": "rule id such as DQ-01",
      "explanation": "what was found and why it matters",
      "column": "affected column, or omit when dataset-wide"
    }
  ]
}

An empty dataset is always REJECT. Critical or high severity issues mean
REJECT; any other issues mean WARNING; no issues mean ACCEPT.`

// LLMStrategy asks a local model for the quality verdict, grounding the
// prompt with the most relevant rules from the semantic index. Any model
// failure or malformed verdict falls back to the deterministic engine, so
// Analyze degrades rather than erroring.
type LLMStrategy struct {
	client   ChatClient
	model    string
	index    *rules.Index
	embedder rules.Embedder
	fallback *Engine

	reasoning   []string
	fallbackErr error
}

func NewLLMStrategy(client ChatClient, model string, index *rules.Index, embedder rules.Embedder, fallback *Engine) *LLMStrategy {
	return &LLMStrategy{
		client:   client,
		model:    model,
		index:    index,
		embedder: embedder,
		fallback: fallback,
	}
}

// Analyze consults the model for a verdict over the profile. The returned
// report's stats always come from the profile, never from the model.
func (s *LLMStrategy) Analyze(ctx context.Context, profile *profiler.DatasetProfile) (*report.QualityReport, error) {
	if err := validateProfile(profile); err != nil {
		return nil, err
	}

	s.reasoning = nil
	s.fallbackErr = nil

	result, err := s.consult(ctx, profile)
	if err != nil {
		s.fallbackErr = err
		s.logReasoning(fmt.Sprintf("Model verdict unavailable (%v). Falling back to deterministic analysis.", err))

		fallbackReport, fbErr := s.fallback.Analyze(profile)
		if fbErr != nil {
			return nil, fbErr
		}
		s.reasoning = append(s.reasoning, s.fallback.Reasoning()...)
		return fallbackReport, nil
	}
	return result, nil
}

// FallbackErr returns the error that forced the last Analyze onto the
// deterministic engine, or nil when the model's verdict was used.
func (s *LLMStrategy) FallbackErr() error {
	return s.fallbackErr
}

// Reasoning returns the step-by-step log of the last Analyze call.
func (s *LLMStrategy) Reasoning() []string {
	log := make([]string, len(s.reasoning))
	copy(log, s.reasoning)
	return log
}

func (s *LLMStrategy) logReasoning(message string) {
	s.reasoning = append(s.reasoning, message)
}

func (s *LLMStrategy) consult(ctx context.Context, profile *profiler.DatasetProfile) (*report.QualityReport, error) {
	rulesContext := s.retrieveRules(ctx, profile)

	var prompt strings.Builder
	if rulesContext != "" {
		prompt.WriteString("Quality rules to apply:\n\n")
		prompt.WriteString(rulesContext)
		prompt.WriteString("\n\n")
	}
	prompt.WriteString("Dataset profile:\n\n")
	prompt.WriteString(renderProfile(profile))
	prompt.WriteString("\nApply the rules to the profile and return your verdict as JSON.")

	s.logReasoning(fmt.Sprintf("Asking model %s for a verdict", s.model))
	raw, err := s.client.Chat(ctx, llm.ChatRequest{
		Model: s.model,
		Messages: []llm.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt.String()},
		},
		JSON: true,
	})
	if err != nil {
		return nil, err
	}

	verdict, err := parseVerdict(raw)
	if err != nil {
		return nil, err
	}

	decision := report.Decision(verdict.Decision)
	summary := verdict.Summary
	if summary == "" {
		summary = buildSummary(decision, profile, verdict.Issues)
	}

	s.logReasoning(fmt.Sprintf("Model returned decision %s with %d issue(s)", decision, len(verdict.Issues)))
	return &report.QualityReport{
		Decision: decision,
		Summary:  summary,
		Issues:   verdict.Issues,
		Stats: report.Stats{
			RowCount:    profile.BasicStats.RowCount,
			ColumnCount: profile.BasicStats.ColumnCount,
			IssuesCount: len(verdict.Issues),
		},
	}, nil
}

// retrieveRules pulls the most relevant rule documents for the profile's
// findings. Retrieval is best-effort; without it the model still gets the
// profile.
func (s *LLMStrategy) retrieveRules(ctx context.Context, profile *profiler.DatasetProfile) string {
	if s.index == nil || s.embedder == nil || s.index.Len() == 0 {
		return ""
	}

	query := fmt.Sprintf("Data quality issue: %s. What rules apply?", strings.Join(issueHints(profile), ", "))
	matches, err := s.index.SearchText(ctx, s.embedder, query, rules.DefaultTopK, 0)
	if err != nil {
		s.logReasoning(fmt.Sprintf("Rule retrieval failed (%v). Continuing without rule context.", err))
		return ""
	}

	docs := make([]string, len(matches))
	for i, match := range matches {
		docs[i] = match.Rule.Document()
	}
	s.logReasoning(fmt.Sprintf("Retrieved %d relevant rule(s) for the prompt", len(matches)))
	return strings.Join(docs, "\n\n---\n\n")
}

// issueHints names the finding categories present in the profile, feeding
// the retrieval query.
func issueHints(profile *profiler.DatasetProfile) []string {
	var hints []string
	if profile.BasicStats.RowCount == 0 {
		return []string{"empty dataset"}
	}
	for _, stats := range profile.MissingValues {
		if stats.MissingPercentage > 0 {
			hints = append(hints, "missing values")
			break
		}
	}
	for _, stats := range profile.Outliers {
		if stats.OutlierCount > 0 {
			hints = append(hints, "outliers")
			break
		}
	}
	if len(profile.NegativeValues) > 0 {
		hints = append(hints, "negative values")
	}
	if len(hints) == 0 {
		hints = []string{"general dataset assessment"}
	}
	return hints
}

// renderProfile flattens the profile into the text block the model reads.
func renderProfile(profile *profiler.DatasetProfile) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Dataset Overview:\n")
	if profile.FilePath != "" {
		fmt.Fprintf(&b, "- File: %s\n", profile.FilePath)
	}
	fmt.Fprintf(&b, "- Total rows: %s\n", report.FormatNumber(profile.BasicStats.RowCount))
	fmt.Fprintf(&b, "- Total columns: %d\n", profile.BasicStats.ColumnCount)

	if profile.BasicStats.RowCount == 0 {
		b.WriteString("\nThe dataset is EMPTY (0 rows).\n")
		return b.String()
	}

	b.WriteString("\nMissing values:\n")
	anyMissing := false
	for _, column := range orderedColumns(profile.BasicStats.Columns, profile.MissingValues) {
		stats := profile.MissingValues[column]
		if stats.MissingPercentage == 0 {
			continue
		}
		fmt.Fprintf(&b, "  - %s: %v%% missing (%s values)\n",
			column, stats.MissingPercentage, report.FormatNumber(stats.MissingCount))
		anyMissing = true
	}
	if !anyMissing {
		b.WriteString("  All columns are complete.\n")
	}

	b.WriteString("\nOutliers (IQR method):\n")
	anyOutliers := false
	for _, column := range orderedColumns(profile.BasicStats.Columns, profile.Outliers) {
		stats := profile.Outliers[column]
		if stats.OutlierCount == 0 {
			continue
		}
		fmt.Fprintf(&b, "  - %s: %v%% outliers, valid range [%v, %v]\n",
			column, stats.OutlierPercentage, stats.LowerBound, stats.UpperBound)
		anyOutliers = true
	}
	if !anyOutliers {
		b.WriteString("  No outliers detected.\n")
	}

	b.WriteString("\nNegative values:\n")
	if len(profile.NegativeValues) == 0 {
		b.WriteString("  No negative values detected.\n")
	} else {
		for _, column := range orderedColumns(profile.BasicStats.Columns, profile.NegativeValues) {
			stats := profile.NegativeValues[column]
			fmt.Fprintf(&b, "  - %s: %d negative values (%v%%)\n",
				column, stats.NegativeCount, stats.NegativePercentage)
		}
	}

	return b.String()
}

type llmVerdict struct {
	Decision string         `json:"decision"`
	Summary  string         `json:"summary"`
	Issues   []report.Issue `json:"issues"`
}

// parseVerdict extracts and validates the model's JSON verdict. Models wrap
// JSON in code fences or prose often enough that we cut out the outermost
// object before decoding.
func parseVerdict(raw string) (*llmVerdict, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end <= start {
		return nil, fmt.Errorf("verdict contains no JSON object: %q", truncateForError(raw))
	}

	var verdict llmVerdict
	if err := json.Unmarshal([]byte(raw[start:end+1]), &verdict); err != nil {
		return nil, fmt.Errorf("failed to decode verdict: %w", err)
	}

	verdict.Decision = strings.ToUpper(strings.TrimSpace(verdict.Decision))
	switch report.Decision(verdict.Decision) {
	case report.DecisionAccept, report.DecisionWarning, report.DecisionReject:
	default:
		return nil, fmt.Errorf("verdict has unknown decision %q", verdict.Decision)
	}

	for i, issue := range verdict.Issues {
		severity := report.Severity(strings.ToLower(strings.TrimSpace(string(issue.Severity))))
		switch severity {
		case report.SeverityLow, report.SeverityMedium, report.SeverityHigh, report.SeverityCritical:
			verdict.Issues[i].Severity = severity
		default:
			return nil, fmt.Errorf("issue %d has unknown severity %q", i, issue.Severity)
		}
	}

	return &verdict, nil
}

func truncateForError(s string) string {
	if len(s) > 120 {
		return s[:120] + "..."
	}
	return s
}
