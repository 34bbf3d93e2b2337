package redis_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"emoney-ledger/internal/adapter/storage/redis"
	"emoney-ledger/internal/core/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventPublisher_Publish(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	publisher := redis.NewEventPublisher(client, "ledger.events")
	ctx := context.Background()

	sub := client.Subscribe(ctx, "ledger.events")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	event := &domain.Event{
		ID:          uuid.New(),
		Type:        domain.EventHoldCreated,
		OperationID: "hold-1",
		Payload:     json.RawMessage(`{"value":100}`),
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, publisher.Publish(ctx, event))

	select {
	case msg := <-sub.Channel():
		var got domain.Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, event.ID, got.ID)
		assert.Equal(t, domain.EventHoldCreated, got.Type)
		assert.Equal(t, "hold-1", got.OperationID)
	case <-time.After(2 * time.Second):
		t.Fatal("no event received on channel")
	}
}
