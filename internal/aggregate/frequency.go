package aggregate

import (
	"sort"

	"github.com/spacesedan/reviewflow/internal/models"
)

// ThemeCounts counts reviews per theme, keeping themes seen at least minCount times.
func ThemeCounts(rows []models.ClassifiedReview, minCount int) []models.FrequencyRow {
	counts := make(map[string]int)
	for _, row := range rows {
		for _, theme := range row.Themes {
			counts[theme]++
		}
	}
	return frequencies(counts, minCount)
}

// KeywordCounts counts how many reviews surfaced each extracted term.
func KeywordCounts(rows []models.ClassifiedReview, minCount int) []models.FrequencyRow {
	counts := make(map[string]int)
	for _, row := range rows {
		for _, kw := range row.Keywords {
			counts[kw.Term]++
		}
	}
	return frequencies(counts, minCount)
}

func frequencies(counts map[string]int, minCount int) []models.FrequencyRow {
	rows := make([]models.FrequencyRow, 0, len(counts))
	for item, n := range counts {
		if n < minCount {
			continue
		}
		rows = append(rows, models.FrequencyRow{Item: item, Count: n})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Item < rows[j].Item
	})
	return rows
}
