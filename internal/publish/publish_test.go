package publish

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.Publish(context.Background(), Event{ProductID: "1"}))
	assert.NoError(t, p.Close())
}

func TestEventJSON(t *testing.T) {
	avg := 4.5
	data, err := json.Marshal(Event{ProductID: "1", AverageStars: &avg})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"average_stars":4.5`)

	data, err = json.Marshal(Event{ProductID: "2"})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"average_stars":null`)
}

func TestRedisStreamPublish(t *testing.T) {
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()

	if _, err := client.Ping(ctx).Result(); err != nil {
		t.Skip("Redis is not available, skipping test")
	}

	stream := "test:opinions:" + uuid.NewString()
	defer client.Del(ctx, stream)

	p := NewRedisStream(client, stream, 100)
	event := Event{
		RunID:         uuid.NewString(),
		ProductID:     "123",
		ProductName:   "Telefon",
		OpinionsCount: 3,
		Pages:         1,
		StopReason:    "no next page",
		ExtractedAt:   time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, p.Publish(ctx, event))

	msgs, err := client.XRange(ctx, stream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "123", msgs[0].Values["product_id"])

	var got Event
	require.NoError(t, json.Unmarshal([]byte(msgs[0].Values["event"].(string)), &got))
	assert.Equal(t, event.RunID, got.RunID)
	assert.True(t, event.ExtractedAt.Equal(got.ExtractedAt))
}
