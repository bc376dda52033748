package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DateLayout is the calendar layout reviews are exchanged in.
const DateLayout = "2006-01-02"

var reviewNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/spacesedan/reviewflow/reviews"))

type RawReview struct {
	ReviewID string    `json:"review_id" dynamodbav:"review_id"`
	Review   string    `json:"review" dynamodbav:"review"`
	Rating   int       `json:"rating" dynamodbav:"rating"`
	Date     time.Time `json:"date" dynamodbav:"date"`
	AppName  string    `json:"app_name" dynamodbav:"app_name"`
}

// NewReviewID derives a stable identifier from the review's content so the same
// review classified twice lands on the same key in every sink.
func NewReviewID(r RawReview) string {
	name := fmt.Sprintf("%s|%s|%d|%s", r.AppName, r.Date.Format(DateLayout), r.Rating, r.Review)
	return uuid.NewSHA1(reviewNamespace, []byte(name)).String()
}

// WithID returns a copy of r carrying an ID, deriving one if it has none.
func (r RawReview) WithID() RawReview {
	if r.ReviewID == "" {
		r.ReviewID = NewReviewID(r)
	}
	return r
}

type NormalizedReview struct {
	RawReview
	CleanedReview string   `json:"cleaned_review" dynamodbav:"cleaned_review"`
	Tokens        []string `json:"-" dynamodbav:"-"`
}

type TermScore struct {
	Term   string  `json:"term" dynamodbav:"term"`
	Weight float64 `json:"weight" dynamodbav:"weight"`
}

// Terms returns just the term strings, keeping rank order.
func Terms(scores []TermScore) []string {
	out := make([]string, len(scores))
	for i, s := range scores {
		out[i] = s.Term
	}
	return out
}

type ClassifiedReview struct {
	NormalizedReview
	Keywords []TermScore `json:"keywords" dynamodbav:"keywords"`
	Themes   ThemeSet    `json:"theme" dynamodbav:"theme"`
	SentimentResult
}
