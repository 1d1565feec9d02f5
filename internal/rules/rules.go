package rules

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// ErrRulesDirNotFound reports a rules directory that does not exist.
var ErrRulesDirNotFound = errors.New("rules directory not found")

const conditionMaxLen = 200

var (
	// Headers look like "## DQ-01 - Missing values". En/em dashes are
	// normalized to "-" before matching.
	ruleHeaderRe  = regexp.MustCompile(`##\s+(DQ-\d+)\s*-\s*([^\n]+)`)
	warningCondRe = regexp.MustCompile(`(?is)WARNING[:\s]+(.+?)(?:REJECT|$)`)
	rejectCondRe  = regexp.MustCompile(`(?is)REJECT[:\s]+(.+?)(?:WARNING|$)`)

	dashNormalizer = strings.NewReplacer("–", "-", "—", "-", "‑", "-", "−", "-")
)

// Rule is a single documented quality rule. WarningCondition and
// RejectCondition hold short extracts of the trigger conditions and may be
// empty for informational rules.
type Rule struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Content          string `json:"content"`
	WarningCondition string `json:"warning_condition,omitempty"`
	RejectCondition  string `json:"reject_condition,omitempty"`
}

// Document renders the rule as a self-contained text block suitable for
// embedding and for prompt context.
func (r Rule) Document() string {
	warning := r.WarningCondition
	if warning == "" {
		warning = "Not specified"
	}
	reject := r.RejectCondition
	if reject == "" {
		reject = "Not specified"
	}

	return fmt.Sprintf("Rule ID: %s\nTitle: %s\n\nDescription:\n%s\n\nWarning Condition: %s\nReject Condition: %s",
		r.ID, r.Title, r.Content, warning, reject)
}

// RuleSummary is the id/title pair exposed by listings and the dashboard API.
type RuleSummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Catalog holds the parsed rules plus the raw text they came from.
type Catalog struct {
	rules   []Rule
	allText string
}

// Load reads every *.md and *.txt file in dir and parses the rules they
// contain. A directory without rule files yields an empty catalog; a missing
// directory is an error.
func Load(dir string) (*Catalog, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrRulesDirNotFound, dir)
		}
		return nil, fmt.Errorf("failed to stat rules directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrRulesDirNotFound, dir)
	}

	var files []string
	for _, pattern := range []string{"*.md", "*.txt"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("failed to list rule files: %w", err)
		}
		files = append(files, matches...)
	}

	catalog := &Catalog{}
	var parts []string
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read rule file %s: %w", path, err)
		}
		content := string(data)
		parts = append(parts, content)
		catalog.rules = append(catalog.rules, parseRules(content)...)
	}
	catalog.allText = strings.Join(parts, "\n\n")

	return catalog, nil
}

// Default returns the built-in catalog shipped with the binary. Commands fall
// back to it when no rules directory is available.
func Default() *Catalog {
	return &Catalog{
		rules:   parseRules(DefaultRulesMarkdown),
		allText: DefaultRulesMarkdown,
	}
}

// Len reports the number of rules; safe on a nil catalog.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.rules)
}

// Rules returns a copy of the parsed rules in file order.
func (c *Catalog) Rules() []Rule {
	if c == nil {
		return nil
	}
	rules := make([]Rule, len(c.rules))
	copy(rules, c.rules)
	return rules
}

// RuleByID returns the rule with the given id.
func (c *Catalog) RuleByID(id string) (Rule, bool) {
	if c == nil {
		return Rule{}, false
	}
	for _, rule := range c.rules {
		if rule.ID == id {
			return rule, true
		}
	}
	return Rule{}, false
}

// Search returns the rules whose title or content contains the keyword,
// case-insensitively.
func (c *Catalog) Search(keyword string) []Rule {
	if c == nil {
		return nil
	}
	keyword = strings.ToLower(keyword)

	var matches []Rule
	for _, rule := range c.rules {
		if strings.Contains(strings.ToLower(rule.Content), keyword) ||
			strings.Contains(strings.ToLower(rule.Title), keyword) {
			matches = append(matches, rule)
		}
	}
	return matches
}

// Summary returns the id/title pairs of all rules.
func (c *Catalog) Summary() []RuleSummary {
	if c == nil {
		return nil
	}
	summary := make([]RuleSummary, len(c.rules))
	for i, rule := range c.rules {
		summary[i] = RuleSummary{ID: rule.ID, Title: rule.Title}
	}
	return summary
}

// AllText returns the combined raw text of every loaded rule file.
func (c *Catalog) AllText() string {
	if c == nil {
		return ""
	}
	return c.allText
}

func parseRules(content string) []Rule {
	normalized := dashNormalizer.Replace(content)

	headers := ruleHeaderRe.FindAllStringSubmatchIndex(normalized, -1)
	rules := make([]Rule, 0, len(headers))

	for i, header := range headers {
		id := normalized[header[2]:header[3]]
		title := strings.TrimSpace(normalized[header[4]:header[5]])

		start := header[1]
		end := len(normalized)
		if i+1 < len(headers) {
			end = headers[i+1][0]
		}
		body := strings.TrimSpace(normalized[start:end])

		rules = append(rules, Rule{
			ID:               id,
			Title:            title,
			Content:          body,
			WarningCondition: extractCondition(warningCondRe, body),
			RejectCondition:  extractCondition(rejectCondRe, body),
		})
	}

	return rules
}

func extractCondition(re *regexp.Regexp, body string) string {
	match := re.FindStringSubmatch(body)
	if match == nil {
		return ""
	}
	condition := strings.TrimSpace(match[1])
	if runes := []rune(condition); len(runes) > conditionMaxLen {
		condition = string(runes[:conditionMaxLen])
	}
	return condition
}
