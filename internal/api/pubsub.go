package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Message is the envelope the platform gateway consumes and delivers.
type Message struct {
	ID     string    `json:"id"`
	Text   string    `json:"text"`
	SentAt time.Time `json:"sent_at"`
}

// dm sends an ephemeral-style direct message to one user.
func (a *API) dm(ctx context.Context, userID, text string) error {
	return a.publish(ctx, fmt.Sprintf("%s:user:%s", a.prefix, userID), text)
}

// broadcast posts to the shared challenge channel. Without a configured
// channel the message is dropped.
func (a *API) broadcast(ctx context.Context, text string) error {
	if a.channel == "" {
		slog.WarnContext(ctx, "api: broadcast dropped, no challenge channel configured")
		return nil
	}
	return a.publish(ctx, fmt.Sprintf("%s:channel:%s", a.prefix, a.channel), text)
}

func (a *API) publish(ctx context.Context, channel, text string) error {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("pubsub: message id: %w", err)
	}

	b, err := json.Marshal(Message{
		ID:     id.String(),
		Text:   text,
		SentAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("pubsub: marshal message: %v", err)
	}

	return a.redis.Publish(ctx, channel, b).Err()
}
