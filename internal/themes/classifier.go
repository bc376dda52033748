// Package themes assigns reviews to a fixed set of topical categories using
// deterministic keyword rules.
package themes

import (
	"strings"

	"github.com/spacesedan/reviewflow/internal/models"
)

type Policy string

const (
	// PolicyFirstMatch tests each term against the rules in order and records
	// the theme of the first rule that matches.
	PolicyFirstMatch Policy = "first-match"
	// PolicyExactLookup looks each term up in the keyword map.
	PolicyExactLookup Policy = "exact-lookup"
)

func ParsePolicy(name string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(name))) {
	case PolicyFirstMatch, "":
		return PolicyFirstMatch, nil
	case PolicyExactLookup:
		return PolicyExactLookup, nil
	default:
		return "", &models.ConfigurationError{Setting: "theme_policy", Value: name, Reason: "unknown theme policy"}
	}
}

type Classifier struct {
	policy Policy
	table  compiledTable
}

func NewClassifier(table Table, policy Policy) (*Classifier, error) {
	policy, err := ParsePolicy(string(policy))
	if err != nil {
		return nil, err
	}

	compiled, err := table.compile()
	if err != nil {
		return nil, err
	}
	return &Classifier{policy: policy, table: compiled}, nil
}

func (c *Classifier) Policy() Policy {
	return c.policy
}

// Classify returns the deduplicated theme set for a review's terms. A review
// with no matching term is assigned Other.
func (c *Classifier) Classify(terms []string) models.ThemeSet {
	var found []string
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		if theme, ok := c.match(term); ok {
			found = append(found, theme)
		}
	}

	if len(found) == 0 {
		return models.NewThemeSet(models.ThemeOther)
	}
	return models.NewThemeSet(found...)
}

func (c *Classifier) match(term string) (string, bool) {
	if c.policy == PolicyExactLookup {
		theme, ok := c.table.keywords[term]
		return theme, ok
	}

	for _, rule := range c.table.rules {
		if rule.re.MatchString(term) {
			return rule.theme, true
		}
	}
	return "", false
}
