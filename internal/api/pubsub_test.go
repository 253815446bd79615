package api

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPubsubAPI(t *testing.T, channel string) (*API, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return &API{redis: client, prefix: "wlb", channel: channel}, client
}

func receiveMessage(t *testing.T, client *redis.Client, channel string, send func()) Message {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub := client.Subscribe(ctx, channel)
	defer sub.Close()

	// Wait for the subscription confirmation before publishing.
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	send()

	raw, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)

	var m Message
	require.NoError(t, json.Unmarshal([]byte(raw.Payload), &m))
	return m
}

func TestDM(t *testing.T) {
	a, client := newPubsubAPI(t, "C123")

	m := receiveMessage(t, client, "wlb:user:U42", func() {
		require.NoError(t, a.dm(context.Background(), "U42", "hello there"))
	})

	assert.Equal(t, "hello there", m.Text)
	_, err := uuid.Parse(m.ID)
	assert.NoError(t, err, "message id must be a uuid")
	assert.WithinDuration(t, time.Now(), m.SentAt, time.Minute)
}

func TestBroadcast(t *testing.T) {
	t.Run("publishes to the configured channel", func(t *testing.T) {
		a, client := newPubsubAPI(t, "C123")

		m := receiveMessage(t, client, "wlb:channel:C123", func() {
			require.NoError(t, a.broadcast(context.Background(), "challenge update"))
		})

		assert.Equal(t, "challenge update", m.Text)
	})

	t.Run("dropped without a configured channel", func(t *testing.T) {
		a, client := newPubsubAPI(t, "")

		require.NoError(t, a.broadcast(context.Background(), "nowhere to go"))

		// Nothing may reach redis.
		n, err := client.PubSubChannels(context.Background(), "wlb:*").Result()
		require.NoError(t, err)
		assert.Empty(t, n)
	})
}

func TestMessageIDsAreUnique(t *testing.T) {
	a, client := newPubsubAPI(t, "C123")

	first := receiveMessage(t, client, "wlb:user:U1", func() {
		require.NoError(t, a.dm(context.Background(), "U1", "one"))
	})
	second := receiveMessage(t, client, "wlb:user:U1", func() {
		require.NoError(t, a.dm(context.Background(), "U1", "two"))
	})

	assert.NotEqual(t, first.ID, second.ID)
}
