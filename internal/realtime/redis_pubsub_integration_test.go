package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-events/checkin/internal/checkin"
	"github.com/aura-events/checkin/internal/testutil/containers"
)

func TestRedisPubSubFansOutAcrossInstances(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Two server instances, each with its own connection.
	busA := NewRedisPubSub(rc.NewClient(t), nil)
	busB := NewRedisPubSub(rc.NewClient(t), nil)
	hubA := NewHub(nil, busA)
	hubB := NewHub(nil, busB)
	require.NoError(t, hubA.Listen(ctx, busA))
	require.NoError(t, hubB.Listen(ctx, busB))

	onA := newTestClient("a", "E1")
	onB := newTestClient("b", "E1")
	elsewhere := newTestClient("c", "E2")
	hubA.Register(onA)
	hubB.Register(onB)
	hubB.Register(elsewhere)

	hubA.PublishCheckIn("E1", entry())

	for _, c := range []*Client{onA, onB} {
		var msg Message
		require.Eventually(t, func() bool {
			select {
			case msg = <-c.send:
				return true
			default:
				return false
			}
		}, 5*time.Second, 10*time.Millisecond, c.ID)
		assert.Equal(t, EventCheckIn, msg.Event)
		var got checkin.FeedEntry
		require.NoError(t, json.Unmarshal(msg.Data, &got))
		assert.Equal(t, "TK1", got.Subject.ID)
	}

	// Each instance delivers exactly once and never to other rooms.
	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, onA.send)
	assert.Empty(t, onB.send)
	assert.Empty(t, elsewhere.send)
}

func TestRedisPubSubStopsWithContext(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	ctx, cancel := context.WithCancel(context.Background())

	bus := NewRedisPubSub(rc.NewClient(t), nil)
	hub := NewHub(nil, bus)
	require.NoError(t, hub.Listen(ctx, bus))
	c := newTestClient("a", "E1")
	hub.Register(c)

	cancel()
	require.Eventually(t, func() bool {
		n, err := rc.Client.PubSubNumPat(context.Background()).Result()
		return err == nil && n == 0
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, bus.PublishEvent("E1", EventCheckIn, []byte(`{}`)))
	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, c.send)
}
