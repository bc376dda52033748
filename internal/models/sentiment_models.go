package models

type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNegative SentimentLabel = "negative"
	SentimentNeutral  SentimentLabel = "neutral"
)

type SentimentResult struct {
	Label SentimentLabel `json:"sentiment_label" dynamodbav:"sentiment_label"`
	Score float64        `json:"sentiment_score" dynamodbav:"sentiment_score"`
}

// FallbackSentiment is what a review gets when its text could not be scored.
func FallbackSentiment() SentimentResult {
	return SentimentResult{Label: SentimentNeutral, Score: 0.0}
}
