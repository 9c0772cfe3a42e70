package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"ms-invites/internal/config"
	"ms-invites/internal/models"

	"github.com/segmentio/kafka-go"
)

// Producer streams invite lifecycle events and delivery requests. One writer,
// per-message topics.
type Producer struct {
	Writer *kafka.Writer
	Topics config.TopicConfig
}

func NewProducer(brokers []string, topics config.TopicConfig) *Producer {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Balancer: &kafka.LeastBytes{},
	}
	return &Producer{Writer: writer, Topics: topics}
}

func (p *Producer) publish(topic, key string, payload interface{}) error {
	msgBytes, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	fmt.Printf("Publishing to Kafka [%s]: %s\n", topic, string(msgBytes))

	return p.Writer.WriteMessages(context.Background(),
		kafka.Message{
			Topic: topic,
			Key:   []byte(key),
			Value: msgBytes,
		},
	)
}

// PublishInviteGenerated streams a freshly allocated invite.
func (p *Producer) PublishInviteGenerated(invite models.Invite) error {
	return p.publish(p.Topics.InviteGenerated, invite.Code, invite)
}

// PublishDeliveryRequest hands an invite to the notification collaborator.
// Emitted once on generated→sent; redelivery is the collaborator's concern.
func (p *Producer) PublishDeliveryRequest(req models.DeliveryRequest) error {
	return p.publish(p.Topics.DeliveryRequests, req.Code, req)
}

// PublishInvitePaid streams a settled invite.
func (p *Producer) PublishInvitePaid(invite models.Invite) error {
	return p.publish(p.Topics.InvitePaid, invite.Code, invite)
}

// PublishInviteCheckedIn streams an admission.
func (p *Producer) PublishInviteCheckedIn(invite models.Invite) error {
	return p.publish(p.Topics.InviteCheckedIn, invite.Code, invite)
}

// PublishInviteCancelled streams a cancellation or revocation.
func (p *Producer) PublishInviteCancelled(invite models.Invite) error {
	return p.publish(p.Topics.InviteCancelled, invite.Code, invite)
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}
