package models

import "sort"

// ThemeOther is assigned when no rule matches a review.
const ThemeOther = "Other"

// ThemeSet is a sorted, duplicate free list of theme labels.
type ThemeSet []string

func NewThemeSet(themes ...string) ThemeSet {
	seen := make(map[string]struct{}, len(themes))
	set := make(ThemeSet, 0, len(themes))
	for _, t := range themes {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		set = append(set, t)
	}
	sort.Strings(set)
	return set
}

func (s ThemeSet) Contains(theme string) bool {
	i := sort.SearchStrings(s, theme)
	return i < len(s) && s[i] == theme
}
