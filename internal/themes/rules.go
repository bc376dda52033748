package themes

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/spacesedan/reviewflow/internal/models"
)

//go:embed default_rules.yaml
var defaultRules []byte

// Rule maps either a regular expression or a keyword list to a theme. Keywords
// match as whole words.
type Rule struct {
	Theme    string   `yaml:"theme"`
	Pattern  string   `yaml:"pattern,omitempty"`
	Keywords []string `yaml:"keywords,omitempty"`
}

// Table is the editable configuration behind the classifier: an ordered rule
// list for first-match classification and a term map for exact lookups.
// Keyword map order is not significant since every term maps to one theme.
type Table struct {
	Rules    []Rule            `yaml:"rules"`
	Keywords map[string]string `yaml:"keywords"`
}

// DefaultTable returns a fresh copy of the built in rule table.
func DefaultTable() Table {
	table, err := ParseTable(defaultRules)
	if err != nil {
		panic(fmt.Errorf("[Themes] embedded rule table is invalid: %w", err))
	}
	return table
}

func LoadTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Table{}, &models.ConfigurationError{Setting: "theme_rules", Value: path, Reason: err.Error()}
	}
	return ParseTable(data)
}

func ParseTable(data []byte) (Table, error) {
	var table Table

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&table); err != nil {
		return Table{}, &models.ConfigurationError{Setting: "theme_rules", Value: "", Reason: err.Error()}
	}

	if _, err := table.compile(); err != nil {
		return Table{}, err
	}
	return table, nil
}

// Expression returns the regular expression a rule is evaluated with.
func (r Rule) Expression() string {
	if r.Pattern != "" {
		return r.Pattern
	}
	quoted := make([]string, 0, len(r.Keywords))
	for _, kw := range r.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		quoted = append(quoted, regexp.QuoteMeta(kw))
	}
	if len(quoted) == 0 {
		return ""
	}
	return `\b(?:` + strings.Join(quoted, "|") + `)\b`
}

type compiledRule struct {
	theme string
	re    *regexp.Regexp
}

type compiledTable struct {
	rules    []compiledRule
	keywords map[string]string
}

func (t Table) compile() (compiledTable, error) {
	ct := compiledTable{keywords: make(map[string]string, len(t.Keywords))}

	for i, rule := range t.Rules {
		if strings.TrimSpace(rule.Theme) == "" {
			return ct, &models.ConfigurationError{Setting: "theme_rules", Value: fmt.Sprintf("rules[%d]", i), Reason: "rule has no theme"}
		}
		if rule.Pattern != "" && len(rule.Keywords) > 0 {
			return ct, &models.ConfigurationError{Setting: "theme_rules", Value: rule.Theme, Reason: "rule sets both pattern and keywords"}
		}

		expr := rule.Expression()
		if expr == "" {
			return ct, &models.ConfigurationError{Setting: "theme_rules", Value: rule.Theme, Reason: "rule has neither pattern nor keywords"}
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return ct, &models.ConfigurationError{Setting: "theme_rules", Value: rule.Pattern, Reason: err.Error()}
		}
		ct.rules = append(ct.rules, compiledRule{theme: rule.Theme, re: re})
	}

	for term, theme := range t.Keywords {
		key := strings.ToLower(strings.TrimSpace(term))
		if key == "" || strings.TrimSpace(theme) == "" {
			return ct, &models.ConfigurationError{Setting: "theme_keywords", Value: term, Reason: "keyword and theme must be non-empty"}
		}
		if existing, ok := ct.keywords[key]; ok && existing != theme {
			return ct, &models.ConfigurationError{Setting: "theme_keywords", Value: term, Reason: "keyword maps to more than one theme"}
		}
		ct.keywords[key] = theme
	}

	return ct, nil
}
