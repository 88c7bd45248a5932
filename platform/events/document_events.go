package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"medpipe_backend/models"
	"medpipe_backend/pkg/logging"
)

// Notifier pushes progress events to the channel of one user.
type Notifier interface {
	Publish(ctx context.Context, userID string, event *models.ProgressEvent) error
}

func UserChannel(userID string) string {
	return "user:" + userID + ":events"
}

type EventPublisher struct {
	redisClient *redis.Client
}

func NewEventPublisher(redisClient *redis.Client) *EventPublisher {
	return &EventPublisher{redisClient: redisClient}
}

// Publish is fire and forget: nobody listening is not an error.
func (p *EventPublisher) Publish(ctx context.Context, userID string, event *models.ProgressEvent) error {
	event.UserID = userID
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	data, err := json.Marshal(event)
	if err != nil {
		logging.Logger.Error("fail Publish", "error", err)
		return err
	}
	if err := p.redisClient.Publish(ctx, UserChannel(userID), string(data)).Err(); err != nil {
		logging.Logger.Error("fail Publish", "error", err, "userID", userID)
		return err
	}
	logging.Logger.Debug("Publish", "userID", userID, "docID", event.DocID, "step", event.Step)
	return nil
}

func (p *EventPublisher) Subscribe(ctx context.Context, userID string) (<-chan *models.ProgressEvent, error) {
	pubsub := p.redisClient.Subscribe(ctx, UserChannel(userID))
	if _, err := pubsub.Receive(ctx); err != nil {
		logging.Logger.Error("fail Subscribe", "error", err)
		return nil, err
	}
	ch := make(chan *models.ProgressEvent, 100)

	go func() {
		defer close(ch)
		defer func(pubsub *redis.PubSub) {
			if err := pubsub.Close(); err != nil {
				logging.Logger.Error("fail closing subscription", "error", err)
			}
		}(pubsub)

		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var event models.ProgressEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					logging.Logger.Error("Failed to unmarshal event", "error", err)
					continue
				}
				select {
				case ch <- &event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch, nil
}
