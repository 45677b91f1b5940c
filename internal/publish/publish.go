package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Event announces a finished extraction.
type Event struct {
	RunID         string    `json:"run_id"`
	ProductID     string    `json:"product_id"`
	ProductName   string    `json:"product_name"`
	OpinionsCount int       `json:"opinions_count"`
	AverageStars  *float64  `json:"average_stars"`
	Pages         int       `json:"pages"`
	StopReason    string    `json:"stop_reason"`
	ExtractedAt   time.Time `json:"extracted_at"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

// RedisStream appends events to a Redis stream under the "event" field as
// JSON.
type RedisStream struct {
	client    *redis.Client
	stream    string
	maxLength int64
}

func NewRedisStream(client *redis.Client, stream string, maxLength int64) *RedisStream {
	return &RedisStream{client: client, stream: stream, maxLength: maxLength}
}

func (p *RedisStream) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"product_id": event.ProductID,
			"event":      string(payload),
		},
	}
	if p.maxLength > 0 {
		args.MaxLen = p.maxLength
		args.Approx = true
	}

	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Close leaves the shared client open; its owner closes it.
func (p *RedisStream) Close() error { return nil }
