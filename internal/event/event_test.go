package event_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/matthumble/weightlossbot/internal/event"
)

type namedEvent string

func (e namedEvent) Name() string { return string(e) }

type subscription struct {
	subscriber string
	events     []string
}

func TestBus_PublishSubscribe(t *testing.T) {
	tests := map[string]struct {
		published     []event.Event
		subscriptions []subscription
		assert        func(t *testing.T, received map[string][]event.Event)
	}{
		"subscriber only receives events it subscribed to": {
			published: []event.Event{
				namedEvent("challenge.started"),
				namedEvent("challenge.reset"),
			},
			subscriptions: []subscription{
				{subscriber: "s1", events: []string{"challenge.started"}},
			},
			assert: func(t *testing.T, received map[string][]event.Event) {
				assert.ElementsMatch(t, []event.Event{namedEvent("challenge.started")}, received["s1"])
			},
		},

		"repeat publishes are all delivered": {
			published: []event.Event{
				namedEvent("leaderboard.posted"),
				namedEvent("leaderboard.posted"),
			},
			subscriptions: []subscription{
				{subscriber: "s1", events: []string{"leaderboard.posted"}},
			},
			assert: func(t *testing.T, received map[string][]event.Event) {
				assert.Len(t, received["s1"], 2)
			},
		},

		"one event fans out to every subscriber": {
			published: []event.Event{
				namedEvent("challenge.completed"),
			},
			subscriptions: []subscription{
				{subscriber: "s1", events: []string{"challenge.completed"}},
				{subscriber: "s2", events: []string{"challenge.completed"}},
			},
			assert: func(t *testing.T, received map[string][]event.Event) {
				assert.ElementsMatch(t, []event.Event{namedEvent("challenge.completed")}, received["s1"])
				assert.ElementsMatch(t, []event.Event{namedEvent("challenge.completed")}, received["s2"])
			},
		},

		"overlapping subscriptions route independently": {
			published: []event.Event{
				namedEvent("challenge.started"),
				namedEvent("leaderboard.posted"),
				namedEvent("challenge.started"),
			},
			subscriptions: []subscription{
				{subscriber: "s1", events: []string{"challenge.started"}},
				{subscriber: "s2", events: []string{"challenge.started", "leaderboard.posted"}},
			},
			assert: func(t *testing.T, received map[string][]event.Event) {
				assert.Len(t, received["s1"], 2)
				assert.Len(t, received["s2"], 3)
			},
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var mu sync.Mutex
			received := make(map[string][]event.Event)

			b := event.NewBus()
			for _, sub := range tt.subscriptions {
				sub := sub
				for _, name := range sub.events {
					b.Subscribe(name, func(ctx context.Context, e event.Event) error {
						mu.Lock()
						received[sub.subscriber] = append(received[sub.subscriber], e)
						mu.Unlock()
						return nil
					})
				}
			}

			for _, e := range tt.published {
				b.Publish(context.Background(), e)
			}
			b.Stop()

			tt.assert(t, received)
		})
	}
}

func TestBus_HandlerPanicIsContained(t *testing.T) {
	b := event.NewBus()

	b.Subscribe("challenge.reset", func(ctx context.Context, e event.Event) error {
		panic("boom")
	})

	var mu sync.Mutex
	var delivered int
	b.Subscribe("challenge.reset", func(ctx context.Context, e event.Event) error {
		mu.Lock()
		delivered++
		mu.Unlock()
		return nil
	})

	b.Publish(context.Background(), namedEvent("challenge.reset"))
	b.Stop()

	assert.Equal(t, 1, delivered, "a panicking handler must not break delivery to others")
}
