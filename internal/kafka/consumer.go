package kafka

import (
	"context"
	"encoding/json"
	"log"

	"ms-invites/internal/models"

	"github.com/segmentio/kafka-go"
)

// Consumer reads payment confirmations published by the payment collaborator
// and feeds them into the state machine.
type Consumer struct {
	reader *kafka.Reader
}

func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{reader: reader}
}

// Start consumes until ctx is cancelled. Malformed messages are skipped;
// handler errors are logged and not retried here, since a rejected
// confirmation (AmountMismatch, terminal invite) would fail the same way
// again.
func (c *Consumer) Start(ctx context.Context, handler func(conf models.PaymentConfirmation) error) {
	log.Println("Kafka payment-confirmation consumer started")

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("Error reading message: %v", err)
			continue
		}

		var conf models.PaymentConfirmation
		if err := json.Unmarshal(msg.Value, &conf); err != nil {
			log.Printf("Failed to unmarshal payment confirmation: %v", err)
			continue
		}

		log.Printf("Received payment confirmation: event=%s codes=%v", conf.EventID, conf.Codes)
		if err := handler(conf); err != nil {
			log.Printf("Payment confirmation rejected: %v", err)
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
