package models

type GroupValue struct {
	Field string `json:"field" dynamodbav:"field"`
	Value string `json:"value" dynamodbav:"value"`
}

type AggregateRow struct {
	Key                   []GroupValue               `json:"key" dynamodbav:"key"`
	Count                 int                        `json:"count" dynamodbav:"count"`
	MeanSentimentScore    float64                    `json:"mean_sentiment_score" dynamodbav:"mean_sentiment_score"`
	SentimentDistribution map[SentimentLabel]float64 `json:"sentiment_distribution" dynamodbav:"sentiment_distribution"`
}

// FrequencyRow counts how often a theme or keyword occurs across reviews.
type FrequencyRow struct {
	Item  string `json:"item"`
	Count int    `json:"count"`
}
