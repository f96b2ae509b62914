package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/sngm3741/haraj-kiosk/api/internal/kiosk/domain"
)

// DefaultChannel carries committed reviews between kiosk instances.
const DefaultChannel = "haraj-kiosk:reviews:insert"

// Config holds the connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

// NewClient creates a client from cfg.
func NewClient(cfg Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Ping verifies the connection.
func Ping(ctx context.Context, client *redis.Client) error {
	return client.Ping(ctx).Err()
}

type reviewEvent struct {
	ID           string         `json:"id"`
	SerialNumber *int64         `json:"serialNumber,omitempty"`
	Name         string         `json:"name"`
	Photo        string         `json:"photo,omitempty"`
	FaceID       string         `json:"faceId,omitempty"`
	Ratings      map[string]int `json:"ratings"`
	Comment      string         `json:"comment,omitempty"`
	Timestamp    int64          `json:"timestamp"`
}

// Broker implements application.InsertBroker over Redis pub/sub.
type Broker struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
}

func NewBroker(client *redis.Client, channel string, logger *zap.Logger) *Broker {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broker{client: client, channel: channel, logger: logger}
}

func (b *Broker) PublishInsert(ctx context.Context, review domain.Review) error {
	payload, err := json.Marshal(reviewEvent{
		ID:           review.ID,
		SerialNumber: review.SerialNumber,
		Name:         review.Name,
		Photo:        review.Photo,
		FaceID:       review.FaceID,
		Ratings:      review.Ratings,
		Comment:      review.Comment,
		Timestamp:    review.Timestamp,
	})
	if err != nil {
		return err
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish review %s: %w", review.ID, err)
	}
	return nil
}

// SubscribeInserts delivers every review published on the channel to fn until ctx ends
// or the returned cancel is called. Own publications are delivered too.
func (b *Broker) SubscribeInserts(ctx context.Context, fn func(domain.Review)) (func(), error) {
	pubsub := b.client.Subscribe(ctx, b.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", b.channel, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	messages := pubsub.Channel()
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var event reviewEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					b.logger.Warn("dropping malformed review event", zap.Error(err))
					continue
				}
				if event.ID == "" {
					continue
				}
				fn(domain.Review{
					ID:           event.ID,
					SerialNumber: event.SerialNumber,
					Name:         event.Name,
					Photo:        event.Photo,
					FaceID:       event.FaceID,
					Ratings:      domain.Ratings(event.Ratings),
					Comment:      event.Comment,
					Timestamp:    event.Timestamp,
				})
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			pubsub.Close()
			<-done
		})
	}, nil
}
