package themes

import (
	"slices"
	"testing"

	"github.com/spacesedan/reviewflow/internal/models"
)

func mustClassifier(t *testing.T, policy Policy) *Classifier {
	t.Helper()
	c, err := NewClassifier(DefaultTable(), policy)
	if err != nil {
		t.Fatalf("NewClassifier(%q) failed: %v", policy, err)
	}
	return c
}

func TestClassifyReviewScenarios(t *testing.T) {
	docs := []struct {
		terms []string
		want  models.ThemeSet
	}{
		{[]string{"app", "keep", "crash", "freeze", "app keep", "keep crash", "crash freeze"}, models.ThemeSet{"Reliability"}},
		{[]string{"great", "feature", "love", "update", "great feature", "feature love", "love update"}, models.ThemeSet{"Feature Requests"}},
		{[]string{"login", "password", "reset", "work", "login password", "password reset", "reset work"}, models.ThemeSet{"Account Access"}},
	}

	for _, policy := range []Policy{PolicyFirstMatch, PolicyExactLookup} {
		t.Run(string(policy), func(t *testing.T) {
			c := mustClassifier(t, policy)
			for _, doc := range docs {
				if got := c.Classify(doc.terms); !slices.Equal(got, doc.want) {
					t.Errorf("Classify(%v) = %v, want %v", doc.terms, got, doc.want)
				}
			}
		})
	}
}

func TestClassifyFallsBackToOther(t *testing.T) {
	for _, policy := range []Policy{PolicyFirstMatch, PolicyExactLookup} {
		c := mustClassifier(t, policy)

		for _, terms := range [][]string{nil, {}, {"great", "love"}, {"", "  "}} {
			got := c.Classify(terms)
			if !slices.Equal(got, models.ThemeSet{models.ThemeOther}) {
				t.Errorf("%s: Classify(%v) = %v, want [Other]", policy, terms, got)
			}
		}
	}
}

func TestClassifyDeduplicates(t *testing.T) {
	c := mustClassifier(t, PolicyFirstMatch)

	got := c.Classify([]string{"crash", "bug", "freeze", "crash", "login"})
	want := models.ThemeSet{"Account Access", "Reliability"}
	if !slices.Equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestFirstMatchUsesRulePriority(t *testing.T) {
	c := mustClassifier(t, PolicyFirstMatch)

	// Transaction Performance is listed before Reliability.
	got := c.Classify([]string{"payment error"})
	if !slices.Equal(got, models.ThemeSet{"Transaction Performance"}) {
		t.Errorf("expected [Transaction Performance], got %v", got)
	}
}

func TestExactLookupIgnoresPhrases(t *testing.T) {
	c := mustClassifier(t, PolicyExactLookup)

	if got := c.Classify([]string{"crash freeze"}); !slices.Equal(got, models.ThemeSet{models.ThemeOther}) {
		t.Errorf("expected [Other] for an unmapped phrase, got %v", got)
	}
	if got := c.Classify([]string{"CRASH "}); !slices.Equal(got, models.ThemeSet{"Reliability"}) {
		t.Errorf("expected lookups to ignore case and spacing, got %v", got)
	}
}

func TestCustomTable(t *testing.T) {
	table := Table{
		Rules: []Rule{
			{Theme: "Performance", Pattern: `\b(?:slow|lag\w*)\b`},
			{Theme: "Pricing", Keywords: []string{"price", "subscription"}},
		},
	}

	c, err := NewClassifier(table, PolicyFirstMatch)
	if err != nil {
		t.Fatal(err)
	}

	got := c.Classify([]string{"laggy", "subscription price", "login"})
	want := models.ThemeSet{"Performance", "Pricing"}
	if !slices.Equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		name string
		want Policy
	}{
		{"first-match", PolicyFirstMatch},
		{"EXACT-LOOKUP", PolicyExactLookup},
		{"", PolicyFirstMatch},
	}
	for _, tt := range tests {
		got, err := ParsePolicy(tt.name)
		if err != nil || got != tt.want {
			t.Errorf("ParsePolicy(%q) = %q, %v; want %q", tt.name, got, err, tt.want)
		}
	}

	if _, err := ParsePolicy("llm"); !models.IsConfigurationError(err) {
		t.Errorf("expected ConfigurationError for unknown policy, got %v", err)
	}
	if _, err := NewClassifier(DefaultTable(), Policy("random")); !models.IsConfigurationError(err) {
		t.Errorf("expected ConfigurationError from NewClassifier, got %v", err)
	}
}
