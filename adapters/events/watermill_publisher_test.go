package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingPublisher struct {
	topics   []string
	payloads [][]byte
	err      error
}

func (c *capturingPublisher) Publish(topic string, messages ...*message.Message) error {
	if c.err != nil {
		return c.err
	}
	for _, msg := range messages {
		c.topics = append(c.topics, topic)
		c.payloads = append(c.payloads, msg.Payload)
	}
	return nil
}

func (c *capturingPublisher) Close() error { return nil }

func TestPublishPaired(t *testing.T) {
	capture := &capturingPublisher{}
	pub := NewWatermillPublisher(capture)

	require.NoError(t, pub.PublishPaired(context.Background(), "s1", "2347087243475"))
	require.Len(t, capture.topics, 1)
	assert.Equal(t, TopicPaired, capture.topics[0])

	var event PairedEvent
	require.NoError(t, json.Unmarshal(capture.payloads[0], &event))
	assert.Equal(t, "s1", event.SessionID)
	assert.Equal(t, "2347087243475", event.Target)
	assert.False(t, event.PairedAt.IsZero())
}

func TestPublishFailedCarriesCategory(t *testing.T) {
	capture := &capturingPublisher{}
	pub := NewWatermillPublisher(capture)

	require.NoError(t, pub.PublishFailed(context.Background(), "s1", "bad-session", "stream errored"))
	require.Len(t, capture.topics, 1)
	assert.Equal(t, TopicFailed, capture.topics[0])

	var event FailedEvent
	require.NoError(t, json.Unmarshal(capture.payloads[0], &event))
	assert.Equal(t, "bad-session", event.Category)
	assert.Equal(t, "stream errored", event.Reason)
}

func TestPublishExpired(t *testing.T) {
	capture := &capturingPublisher{}
	pub := NewWatermillPublisher(capture)

	require.NoError(t, pub.PublishExpired(context.Background(), "s1"))
	require.Len(t, capture.topics, 1)
	assert.Equal(t, TopicExpired, capture.topics[0])
}

func TestPublishErrorIsWrapped(t *testing.T) {
	sink := errors.New("broker down")
	pub := NewWatermillPublisher(&capturingPublisher{err: sink})

	err := pub.PublishExpired(context.Background(), "s1")
	assert.ErrorIs(t, err, sink)
}
