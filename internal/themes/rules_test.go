package themes

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/spacesedan/reviewflow/internal/models"
)

func TestDefaultTable(t *testing.T) {
	table := DefaultTable()

	wantOrder := []string{
		"Account Access",
		"Transaction Performance",
		"Reliability",
		"User Interface & Experience",
		"Customer Support",
		"Feature Requests",
	}
	if len(table.Rules) != len(wantOrder) {
		t.Fatalf("expected %d rules, got %d", len(wantOrder), len(table.Rules))
	}
	for i, theme := range wantOrder {
		if table.Rules[i].Theme != theme {
			t.Errorf("rule %d: expected theme %q, got %q", i, theme, table.Rules[i].Theme)
		}
	}

	lookups := map[string]string{
		"login":    "Account Access",
		"crash":    "Reliability",
		"feature":  "Feature Requests",
		"transfer": "Transaction Performance",
		"support":  "Customer Support",
		"design":   "User Interface & Experience",
	}
	for term, theme := range lookups {
		if got := table.Keywords[term]; got != theme {
			t.Errorf("keyword %q: expected %q, got %q", term, theme, got)
		}
	}
}

func TestRuleExpressionMatchesWholeWords(t *testing.T) {
	rule := Rule{Theme: "Transaction Performance", Keywords: []string{"load", "pay"}}
	re := regexp.MustCompile(rule.Expression())

	tests := []struct {
		term string
		want bool
	}{
		{"load", true},
		{"slow load", true},
		{"pay bill", true},
		{"download", false},
		{"payment", false},
	}

	for _, tt := range tests {
		if got := re.MatchString(tt.term); got != tt.want {
			t.Errorf("%s matching %q = %v, want %v", rule.Expression(), tt.term, got, tt.want)
		}
	}
}

func TestRuleExpressionPrefersPattern(t *testing.T) {
	rule := Rule{Theme: "Reliability", Pattern: `crash\w*`}
	if got := rule.Expression(); got != `crash\w*` {
		t.Errorf("expected the raw pattern, got %q", got)
	}
}

func TestParseTableRejectsInvalidTables(t *testing.T) {
	tests := []struct {
		yaml string
		desc string
	}{
		{"rules:\n  - pattern: crash\n", "rule without theme"},
		{"rules:\n  - theme: Reliability\n", "rule without pattern or keywords"},
		{"rules:\n  - theme: Reliability\n    pattern: '(crash'\n", "invalid regular expression"},
		{"rules:\n  - theme: Reliability\n    pattern: crash\n    keywords: [bug]\n", "pattern and keywords together"},
		{"keywords:\n  crash: ''\n", "keyword without theme"},
		{"rulez: []\n", "unknown field"},
		{"keywords:\n  Crash: Reliability\n  crash: Feature Requests\n", "keyword mapped twice"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			_, err := ParseTable([]byte(tt.yaml))
			if !models.IsConfigurationError(err) {
				t.Errorf("expected ConfigurationError, got %v", err)
			}
		})
	}
}

func TestLoadTable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "themes.yaml")

	content := `
rules:
  - theme: Performance
    pattern: '\b(?:slow|lag)\b'
keywords:
  slow: Performance
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	table, err := LoadTable(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(table.Rules) != 1 || table.Rules[0].Theme != "Performance" {
		t.Errorf("unexpected rules: %+v", table.Rules)
	}
	if table.Keywords["slow"] != "Performance" {
		t.Errorf("unexpected keywords: %+v", table.Keywords)
	}

	if _, err := LoadTable(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
