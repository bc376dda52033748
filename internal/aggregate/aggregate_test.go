package aggregate

import (
	"math"
	"slices"
	"testing"
	"time"

	"github.com/spacesedan/reviewflow/internal/models"
)

func review(app string, rating int, label models.SentimentLabel, score float64) models.ClassifiedReview {
	var r models.ClassifiedReview
	r.AppName = app
	r.Rating = rating
	r.Date = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	r.SentimentResult = models.SentimentResult{Label: label, Score: score}
	return r
}

func sampleRows() []models.ClassifiedReview {
	return []models.ClassifiedReview{
		review("Bank A", 5, models.SentimentPositive, 0.8),
		review("Bank A", 5, models.SentimentPositive, 0.6),
		review("Bank A", 5, models.SentimentNeutral, 0.0),
		review("Bank A", 1, models.SentimentNegative, -0.7),
		review("Bank B", 1, models.SentimentNegative, -0.5),
		review("Bank B", 1, models.SentimentPositive, 0.1),
	}
}

func findRow(rows []models.AggregateRow, values ...string) (models.AggregateRow, bool) {
	for _, row := range rows {
		match := len(row.Key) == len(values)
		for i := range row.Key {
			if match && row.Key[i].Value != values[i] {
				match = false
			}
		}
		if match {
			return row, true
		}
	}
	return models.AggregateRow{}, false
}

func TestAggregateByAppAndRating(t *testing.T) {
	rows, err := Aggregate(sampleRows(), []string{"app_name", "rating"})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 groups, got %d: %+v", len(rows), rows)
	}

	a5, ok := findRow(rows, "Bank A", "5")
	if !ok {
		t.Fatal("missing group Bank A / 5")
	}
	if a5.Count != 3 {
		t.Errorf("expected count 3, got %d", a5.Count)
	}
	if math.Abs(a5.MeanSentimentScore-(0.8+0.6+0.0)/3) > 1e-9 {
		t.Errorf("unexpected mean %f", a5.MeanSentimentScore)
	}
	if math.Abs(a5.SentimentDistribution[models.SentimentPositive]-2.0/3) > 1e-9 {
		t.Errorf("unexpected positive share %f", a5.SentimentDistribution[models.SentimentPositive])
	}
	if _, ok := a5.SentimentDistribution[models.SentimentNegative]; ok {
		t.Errorf("absent labels must be omitted, got %v", a5.SentimentDistribution)
	}

	if a5.Key[0].Field != "app_name" || a5.Key[1].Field != "rating" {
		t.Errorf("unexpected key fields %+v", a5.Key)
	}
}

func TestAggregateDistributionsSumToOne(t *testing.T) {
	for _, groupBy := range [][]string{{"app_name"}, {"rating"}, {"bank", "rating"}, {"date"}, {}} {
		rows, err := Aggregate(sampleRows(), groupBy)
		if err != nil {
			t.Fatal(err)
		}
		for _, row := range rows {
			var sum float64
			for label, share := range row.SentimentDistribution {
				if share <= 0 {
					t.Errorf("%v: label %s has share %f", groupBy, label, share)
				}
				sum += share
			}
			if math.Abs(sum-1) > 1e-9 {
				t.Errorf("%v: distribution %v sums to %f", groupBy, row.SentimentDistribution, sum)
			}
		}
	}
}

func TestAggregateSingleMemberGroup(t *testing.T) {
	rows, err := Aggregate([]models.ClassifiedReview{review("Solo", 3, models.SentimentNegative, -0.25)}, []string{"source"})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one group, got %d", len(rows))
	}

	row := rows[0]
	if row.MeanSentimentScore != -0.25 {
		t.Errorf("expected mean -0.25, got %f", row.MeanSentimentScore)
	}
	want := map[models.SentimentLabel]float64{models.SentimentNegative: 1.0}
	if len(row.SentimentDistribution) != 1 || row.SentimentDistribution[models.SentimentNegative] != 1.0 {
		t.Errorf("expected %v, got %v", want, row.SentimentDistribution)
	}
}

func TestAggregateIgnoresInputOrder(t *testing.T) {
	forward, _ := Aggregate(sampleRows(), []string{"app_name"})

	reversed := sampleRows()
	slices.Reverse(reversed)
	backward, _ := Aggregate(reversed, []string{"app_name"})

	if len(forward) != len(backward) {
		t.Fatalf("group counts differ: %d vs %d", len(forward), len(backward))
	}
	for _, row := range forward {
		other, ok := findRow(backward, row.Key[0].Value)
		if !ok {
			t.Fatalf("group %v missing after reordering", row.Key)
		}
		if math.Abs(row.MeanSentimentScore-other.MeanSentimentScore) > 1e-9 || row.Count != other.Count {
			t.Errorf("group %v differs: %+v vs %+v", row.Key, row, other)
		}
	}
}

func TestAggregateWithoutGroupFields(t *testing.T) {
	rows, err := Aggregate(sampleRows(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Count != 6 || len(rows[0].Key) != 0 {
		t.Errorf("expected a single group of 6, got %+v", rows)
	}
}

func TestAggregateRejectsUnknownFields(t *testing.T) {
	for _, groupBy := range [][]string{{"country"}, {"rating", "rating"}} {
		_, err := Aggregate(sampleRows(), groupBy)
		if !models.IsConfigurationError(err) {
			t.Errorf("%v: expected ConfigurationError, got %v", groupBy, err)
		}
	}
	if err := ValidateGroupBy([]string{"app_name", "date", "sentiment_label"}); err != nil {
		t.Errorf("expected valid fields, got %v", err)
	}
}

func TestAggregateEmptyInput(t *testing.T) {
	rows, err := Aggregate(nil, []string{"rating"})
	if err != nil || len(rows) != 0 {
		t.Errorf("Aggregate(nil) = %v, %v; want no rows", rows, err)
	}
}

func TestAggregateSortsRatingsNumerically(t *testing.T) {
	rows := []models.ClassifiedReview{
		review("A", 10, models.SentimentPositive, 0.5),
		review("A", 2, models.SentimentPositive, 0.5),
	}
	out, _ := Aggregate(rows, []string{"rating"})
	if out[0].Key[0].Value != "2" || out[1].Key[0].Value != "10" {
		t.Errorf("expected ratings ordered 2, 10; got %+v", out)
	}
}
