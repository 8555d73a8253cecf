package ports

import "context"

// EventPublisher notifies other systems about attempt lifecycle transitions.
type EventPublisher interface {
	PublishPaired(ctx context.Context, sessionID, target string) error
	PublishFailed(ctx context.Context, sessionID, category, reason string) error
	PublishExpired(ctx context.Context, sessionID string) error
}
