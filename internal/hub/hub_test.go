package hub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/swim24-backend/internal/relay"
	"github.com/DoyleJ11/swim24-backend/internal/store/memstore"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub(context.Background(), Deps{Store: memstore.New()})
	t.Cleanup(h.Shutdown)
	return h
}

func waitDone(t *testing.T, done <-chan struct{}, within time.Duration) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(within):
		t.Fatalf("timed out waiting for shutdown")
	}
}

func TestHub_Ensure_Get_SamePointer(t *testing.T) {
	h := newTestHub(t)
	key := relay.Key{CompetitionID: "c1", TeamID: "tA"}
	reply := make(chan *relay.Relay, 1)

	h.Inbox() <- EnsureRelay{Key: key, Reply: reply}
	r1 := <-reply

	h.Inbox() <- GetRelay{Key: key, Reply: reply}
	r2 := <-reply

	if r1 == nil || r2 == nil || r1 != r2 {
		t.Fatalf("expected same relay pointer")
	}
	if r1.Key() != key {
		t.Fatalf("relay key: got %+v", r1.Key())
	}
}

func TestHub_DistinctTeamsGetDistinctRelays(t *testing.T) {
	h := newTestHub(t)
	ctx := context.Background()

	a, err := h.Ensure(ctx, relay.Key{CompetitionID: "c1", TeamID: "tA"})
	require.NoError(t, err)
	b, err := h.Ensure(ctx, relay.Key{CompetitionID: "c1", TeamID: "tB"})
	require.NoError(t, err)
	other, err := h.Ensure(ctx, relay.Key{CompetitionID: "c2", TeamID: "tA"})
	require.NoError(t, err)

	assert.NotSame(t, a, b)
	assert.NotSame(t, a, other)

	rs, err := h.Relays(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, rs, 2)
}

func TestHub_RemoveStopsRelay(t *testing.T) {
	h := newTestHub(t)
	ctx := context.Background()
	key := relay.Key{CompetitionID: "c1", TeamID: "tA"}

	r, err := h.Ensure(ctx, key)
	require.NoError(t, err)
	require.NoError(t, h.Remove(ctx, key))
	waitDone(t, r.Done(), 500*time.Millisecond)

	reply := make(chan *relay.Relay, 1)
	h.Inbox() <- GetRelay{Key: key, Reply: reply}
	assert.Nil(t, <-reply)

	fresh, err := h.Ensure(ctx, key)
	require.NoError(t, err)
	assert.NotSame(t, r, fresh)
}

func TestHub_RemoveCompetition(t *testing.T) {
	h := newTestHub(t)
	ctx := context.Background()

	a, _ := h.Ensure(ctx, relay.Key{CompetitionID: "c1", TeamID: "tA"})
	b, _ := h.Ensure(ctx, relay.Key{CompetitionID: "c1", TeamID: "tB"})
	keep, _ := h.Ensure(ctx, relay.Key{CompetitionID: "c2", TeamID: "tA"})

	require.NoError(t, h.RemoveCompetition(ctx, "c1"))
	waitDone(t, a.Done(), 500*time.Millisecond)
	waitDone(t, b.Done(), 500*time.Millisecond)

	rs, err := h.Relays(ctx, "c2")
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.Same(t, keep, rs[0])
}

func TestHub_ShutdownStopsEverything(t *testing.T) {
	h := NewHub(context.Background(), Deps{Store: memstore.New()})
	ctx := context.Background()
	r, _ := h.Ensure(ctx, relay.Key{CompetitionID: "c1", TeamID: "tA"})
	events, _, err := h.Feed().Subscribe("c1", 4)
	require.NoError(t, err)

	h.Shutdown()
	waitDone(t, r.Done(), 500*time.Millisecond)

	_, open := <-events
	assert.False(t, open, "feed subscribers are closed on shutdown")

	_, err = h.Ensure(ctx, relay.Key{CompetitionID: "c1", TeamID: "tB"})
	assert.ErrorIs(t, err, ErrClosed)
}
