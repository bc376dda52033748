package kafka_client

type KafkaConfig struct {
	Broker          string
	GroupID         string
	Topic           string
	TransactionalID string
}
