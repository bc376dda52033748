// Package aggregate summarizes classified reviews per group of categorical
// fields.
package aggregate

import (
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/spacesedan/reviewflow/internal/models"
)

type fieldFunc func(models.ClassifiedReview) string

func appName(r models.ClassifiedReview) string { return r.AppName }

var groupFields = map[string]fieldFunc{
	"app_name": appName,
	"source":   appName,
	"bank":     appName,
	"rating": func(r models.ClassifiedReview) string {
		return strconv.Itoa(r.Rating)
	},
	"date": func(r models.ClassifiedReview) string {
		if r.Date.IsZero() {
			return ""
		}
		return r.Date.Format(models.DateLayout)
	},
	"sentiment_label": func(r models.ClassifiedReview) string {
		return string(r.Label)
	},
}

// GroupFields lists the field names Aggregate accepts.
func GroupFields() []string {
	names := make([]string, 0, len(groupFields))
	for name := range groupFields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateGroupBy rejects unknown group-by fields before any work starts.
func ValidateGroupBy(groupBy []string) error {
	_, err := resolve(groupBy)
	return err
}

func resolve(groupBy []string) ([]fieldFunc, error) {
	funcs := make([]fieldFunc, 0, len(groupBy))
	seen := make(map[string]bool, len(groupBy))
	for _, field := range groupBy {
		fn, ok := groupFields[field]
		if !ok {
			return nil, &models.ConfigurationError{
				Setting: "group_by",
				Value:   field,
				Reason:  "unknown field, expected one of " + strings.Join(GroupFields(), ", "),
			}
		}
		if seen[field] {
			return nil, &models.ConfigurationError{Setting: "group_by", Value: field, Reason: "field listed twice"}
		}
		seen[field] = true
		funcs = append(funcs, fn)
	}
	return funcs, nil
}

type group struct {
	values []string
	scores []float64
	labels map[models.SentimentLabel]int
}

// Aggregate computes the mean sentiment score and the label distribution of
// every group present in rows. An empty groupBy puts all rows in one group.
// Rows come back sorted by key; callers should not rely on that order.
func Aggregate(rows []models.ClassifiedReview, groupBy []string) ([]models.AggregateRow, error) {
	funcs, err := resolve(groupBy)
	if err != nil {
		return nil, err
	}

	groups := make(map[string]*group)
	for _, row := range rows {
		values := make([]string, len(funcs))
		for i, fn := range funcs {
			values[i] = fn(row)
		}

		key := strings.Join(values, "\x1f")
		g, ok := groups[key]
		if !ok {
			g = &group{values: values, labels: make(map[models.SentimentLabel]int)}
			groups[key] = g
		}
		g.scores = append(g.scores, row.Score)
		g.labels[row.Label]++
	}

	result := make([]models.AggregateRow, 0, len(groups))
	for _, g := range groups {
		result = append(result, g.row(groupBy))
	}
	sort.Slice(result, func(i, j int) bool {
		return lessKey(result[i].Key, result[j].Key)
	})

	slog.Info("[Aggregator] Aggregated reviews",
		slog.Int("rows", len(rows)),
		slog.Int("groups", len(result)),
		slog.String("group_by", strings.Join(groupBy, ",")))

	return result, nil
}

func (g *group) row(groupBy []string) models.AggregateRow {
	key := make([]models.GroupValue, len(groupBy))
	for i, field := range groupBy {
		key[i] = models.GroupValue{Field: field, Value: g.values[i]}
	}

	total := float64(len(g.scores))
	distribution := make(map[models.SentimentLabel]float64, len(g.labels))
	for label, n := range g.labels {
		distribution[label] = float64(n) / total
	}

	return models.AggregateRow{
		Key:                   key,
		Count:                 len(g.scores),
		MeanSentimentScore:    stat.Mean(g.scores, nil),
		SentimentDistribution: distribution,
	}
}

// lessKey orders keys field by field, numerically when both values are integers.
func lessKey(a, b []models.GroupValue) bool {
	for i := range a {
		x, y := a[i].Value, b[i].Value
		if x == y {
			continue
		}
		xi, errX := strconv.Atoi(x)
		yi, errY := strconv.Atoi(y)
		if errX == nil && errY == nil {
			return xi < yi
		}
		return x < y
	}
	return false
}
