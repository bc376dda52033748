package kafka_client

import "time"

const (
	KAFKA_TOPIC_RAW_REVIEWS        = "raw-reviews"        // JSON arrays of raw reviews awaiting classification
	KAFKA_TOPIC_CLASSIFIED_REVIEWS = "classified-reviews" // one classified review per message, keyed by review ID
)

const (
	MAX_RETRIES  = 5
	RETRY_DELAY  = 2 * time.Second
	POLL_TIMEOUT = 500 * time.Millisecond
)
