package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/pairgate/pairgate/ports"
)

// Topics carrying attempt lifecycle events.
const (
	TopicPaired  = "pairing.paired"
	TopicFailed  = "pairing.failed"
	TopicExpired = "pairing.expired"
)

// PairedEvent is published when a session finishes pairing.
type PairedEvent struct {
	SessionID string    `json:"session_id"`
	Target    string    `json:"target,omitempty"`
	PairedAt  time.Time `json:"paired_at"`
}

// FailedEvent is published when an attempt fails before opening.
type FailedEvent struct {
	SessionID string    `json:"session_id"`
	Category  string    `json:"category"`
	Reason    string    `json:"reason"`
	FailedAt  time.Time `json:"failed_at"`
}

// ExpiredEvent is published when an attempt times out or is swept.
type ExpiredEvent struct {
	SessionID string    `json:"session_id"`
	ExpiredAt time.Time `json:"expired_at"`
}

// WatermillPublisher implements the EventPublisher port on top of any
// watermill publisher.
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher wraps an already-configured watermill publisher.
func NewWatermillPublisher(publisher message.Publisher) *WatermillPublisher {
	return &WatermillPublisher{publisher: publisher}
}

func (p *WatermillPublisher) publish(topic string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling %s event: %w", topic, err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("publishing %s event: %w", topic, err)
	}
	return nil
}

// PublishPaired announces a completed pairing.
func (p *WatermillPublisher) PublishPaired(_ context.Context, sessionID, target string) error {
	return p.publish(TopicPaired, PairedEvent{
		SessionID: sessionID,
		Target:    target,
		PairedAt:  time.Now().UTC(),
	})
}

// PublishFailed announces a failed attempt with its mapped category.
func (p *WatermillPublisher) PublishFailed(_ context.Context, sessionID, category, reason string) error {
	return p.publish(TopicFailed, FailedEvent{
		SessionID: sessionID,
		Category:  category,
		Reason:    reason,
		FailedAt:  time.Now().UTC(),
	})
}

// PublishExpired announces a timed-out or swept attempt.
func (p *WatermillPublisher) PublishExpired(_ context.Context, sessionID string) error {
	return p.publish(TopicExpired, ExpiredEvent{
		SessionID: sessionID,
		ExpiredAt: time.Now().UTC(),
	})
}

var _ ports.EventPublisher = (*WatermillPublisher)(nil)
