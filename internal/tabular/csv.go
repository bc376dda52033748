// Package tabular reads and writes review tables as CSV with the column names
// downstream consumers depend on.
package tabular

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spacesedan/reviewflow/internal/models"
)

const (
	ColumnReview         = "review"
	ColumnRating         = "rating"
	ColumnDate           = "date"
	ColumnAppName        = "app_name"
	ColumnReviewID       = "review_id"
	ColumnCleanedReview  = "cleaned_review"
	ColumnKeywords       = "keywords"
	ColumnTheme          = "theme"
	ColumnSentimentLabel = "sentiment_label"
	ColumnSentimentScore = "sentiment_score"

	ColumnCount                 = "count"
	ColumnMeanSentimentScore    = "mean_sentiment_score"
	ColumnSentimentDistribution = "sentiment_distribution"
)

// appNameAliases are accepted in place of app_name on input.
var appNameAliases = []string{ColumnAppName, "bank", "source"}

var classifiedHeader = []string{
	ColumnReviewID, ColumnReview, ColumnRating, ColumnDate, ColumnAppName,
	ColumnCleanedReview, ColumnKeywords, ColumnTheme, ColumnSentimentLabel, ColumnSentimentScore,
}

type ReadOptions struct {
	ReviewColumn string // defaults to "review"
}

func (o ReadOptions) reviewColumn() string {
	if o.ReviewColumn == "" {
		return ColumnReview
	}
	return o.ReviewColumn
}

// table is a CSV body indexed by header name.
type table struct {
	reader  *csv.Reader
	columns map[string]int
	row     int
}

func openTable(r io.Reader) (*table, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, &models.InputError{Field: "header", Reason: "input is empty"}
	}
	if err != nil {
		return nil, &models.InputError{Field: "header", Reason: err.Error()}
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, dup := columns[name]; !dup {
			columns[name] = i
		}
	}
	return &table{reader: reader, columns: columns}, nil
}

// next returns the following record, or io.EOF once the body is exhausted.
func (t *table) next() ([]string, error) {
	record, err := t.reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			return nil, &models.InputError{Field: "record", Row: parseErr.Line, Reason: parseErr.Err.Error()}
		}
		return nil, err
	}
	t.row++
	return record, nil
}

func (t *table) has(column string) bool {
	_, ok := t.columns[column]
	return ok
}

func (t *table) require(columns ...string) error {
	for _, c := range columns {
		if !t.has(c) {
			return &models.InputError{Field: c, Reason: "required column is missing"}
		}
	}
	return nil
}

func (t *table) cell(record []string, column string) string {
	i, ok := t.columns[column]
	if !ok || i >= len(record) {
		return ""
	}
	return record[i]
}

func (t *table) firstOf(record []string, columns []string) string {
	for _, c := range columns {
		if t.has(c) {
			return t.cell(record, c)
		}
	}
	return ""
}

// ReadReviews reads raw review records. Only the review text column is
// required; rating, date, app_name and review_id are optional.
func ReadReviews(r io.Reader, opts ReadOptions) ([]models.RawReview, error) {
	t, err := openTable(r)
	if err != nil {
		return nil, err
	}
	reviewColumn := opts.reviewColumn()
	if err := t.require(reviewColumn); err != nil {
		return nil, err
	}

	var reviews []models.RawReview
	for {
		record, err := t.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		reviews = append(reviews, t.rawReview(record, reviewColumn))
	}

	slog.Info("[Tabular] Read reviews", slog.Int("count", len(reviews)))
	return reviews, nil
}

// rawReview never fails on a single cell: an unreadable rating or date is
// logged and left zero so the rest of the batch is still classified.
func (t *table) rawReview(record []string, reviewColumn string) models.RawReview {
	rating, err := parseRating(t.cell(record, ColumnRating))
	if err != nil {
		slog.Warn("[Tabular] Ignoring unreadable rating",
			slog.Int("row", t.row),
			slog.String("error", err.Error()))
	}
	date, err := parseDate(t.cell(record, ColumnDate))
	if err != nil {
		slog.Warn("[Tabular] Ignoring unreadable date",
			slog.Int("row", t.row),
			slog.String("error", err.Error()))
	}

	return models.RawReview{
		ReviewID: strings.TrimSpace(t.cell(record, ColumnReviewID)),
		Review:   t.cell(record, reviewColumn),
		Rating:   rating,
		Date:     date,
		AppName:  t.firstOf(record, appNameAliases),
	}
}

// parseRating accepts integers and integral floats such as "4.0".
func parseRating(cell string) (int, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(cell, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, fmt.Errorf("rating %q is not a whole number", cell)
	}
	if math.Abs(f) > math.MaxInt32 {
		return 0, fmt.Errorf("rating %q is out of range", cell)
	}
	return int(f), nil
}

func parseDate(cell string) (time.Time, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{models.DateLayout, time.RFC3339, time.DateTime} {
		if d, err := time.Parse(layout, cell); err == nil {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("date %q is not in %s form", cell, models.DateLayout)
}

func formatDate(d time.Time) string {
	if d.IsZero() {
		return ""
	}
	return d.Format(models.DateLayout)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// WriteClassified writes one row per classified review. Keywords and themes
// are JSON string arrays.
func WriteClassified(w io.Writer, rows []models.ClassifiedReview) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(classifiedHeader); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{
			row.ReviewID,
			row.Review,
			strconv.Itoa(row.Rating),
			formatDate(row.Date),
			row.AppName,
			row.CleanedReview,
			EncodeList(models.Terms(row.Keywords)),
			EncodeList(row.Themes),
			string(row.Label),
			formatFloat(row.Score),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadClassified reads a table written by WriteClassified. Keyword weights are
// not persisted, so every keyword comes back with a zero weight.
func ReadClassified(r io.Reader) ([]models.ClassifiedReview, error) {
	t, err := openTable(r)
	if err != nil {
		return nil, err
	}
	if err := t.require(ColumnReview, ColumnKeywords, ColumnTheme, ColumnSentimentLabel, ColumnSentimentScore); err != nil {
		return nil, err
	}

	var rows []models.ClassifiedReview
	for {
		record, err := t.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		row, err := t.classifiedReview(record)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (t *table) classifiedReview(record []string) (models.ClassifiedReview, error) {
	raw := t.rawReview(record, ColumnReview)

	keywords, err := t.list(record, ColumnKeywords)
	if err != nil {
		return models.ClassifiedReview{}, err
	}
	themeList, err := t.list(record, ColumnTheme)
	if err != nil {
		return models.ClassifiedReview{}, err
	}

	label := models.SentimentLabel(strings.TrimSpace(t.cell(record, ColumnSentimentLabel)))
	switch label {
	case models.SentimentPositive, models.SentimentNegative, models.SentimentNeutral:
	default:
		return models.ClassifiedReview{}, &models.InputError{Field: ColumnSentimentLabel, Row: t.row, Reason: fmt.Sprintf("unknown label %q", label)}
	}
	score, err := strconv.ParseFloat(strings.TrimSpace(t.cell(record, ColumnSentimentScore)), 64)
	if err != nil {
		return models.ClassifiedReview{}, &models.InputError{Field: ColumnSentimentScore, Row: t.row, Reason: "score is not a number"}
	}

	scores := make([]models.TermScore, len(keywords))
	for i, k := range keywords {
		scores[i] = models.TermScore{Term: k}
	}

	return models.ClassifiedReview{
		NormalizedReview: models.NormalizedReview{
			RawReview:     raw,
			CleanedReview: t.cell(record, ColumnCleanedReview),
		},
		Keywords:        scores,
		Themes:          models.NewThemeSet(themeList...),
		SentimentResult: models.SentimentResult{Label: label, Score: score},
	}, nil
}

func (t *table) list(record []string, column string) ([]string, error) {
	items, err := DecodeList(t.cell(record, column))
	if err != nil {
		var inputErr *models.InputError
		if errors.As(err, &inputErr) {
			inputErr.Field = column
			inputErr.Row = t.row
		}
		return nil, err
	}
	return items, nil
}

// WriteAggregates writes one row per group: the group fields in groupBy order,
// then count, mean score and the label distribution as a JSON object.
func WriteAggregates(w io.Writer, groupBy []string, rows []models.AggregateRow) error {
	cw := csv.NewWriter(w)
	header := append(append([]string{}, groupBy...), ColumnCount, ColumnMeanSentimentScore, ColumnSentimentDistribution)
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, row := range rows {
		if len(row.Key) != len(groupBy) {
			return fmt.Errorf("[Tabular] aggregate row has %d group values, expected %d", len(row.Key), len(groupBy))
		}
		distribution, err := json.Marshal(row.SentimentDistribution)
		if err != nil {
			return fmt.Errorf("[Tabular] failed to encode sentiment distribution: %w", err)
		}

		record := make([]string, 0, len(header))
		for _, gv := range row.Key {
			record = append(record, gv.Value)
		}
		record = append(record, strconv.Itoa(row.Count), formatFloat(row.MeanSentimentScore), string(distribution))
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFrequencies writes an item/count table, e.g. theme,count.
func WriteFrequencies(w io.Writer, itemColumn string, rows []models.FrequencyRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{itemColumn, ColumnCount}); err != nil {
		return err
	}
	for _, row := range rows {
		if err := cw.Write([]string{row.Item, strconv.Itoa(row.Count)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTermWeights writes a keyword,weight table in rank order.
func WriteTermWeights(w io.Writer, rows []models.TermScore) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"keyword", "weight"}); err != nil {
		return err
	}
	for _, row := range rows {
		if err := cw.Write([]string{row.Term, formatFloat(row.Weight)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
