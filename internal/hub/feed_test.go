package hub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/swim24-backend/internal/relay"
)

func TestFeed_DeliversPerCompetition(t *testing.T) {
	f := NewFeed(nil)
	c1, cancel1, err := f.Subscribe("c1", 4)
	require.NoError(t, err)
	defer cancel1()
	c2, cancel2, err := f.Subscribe("c2", 4)
	require.NoError(t, err)
	defer cancel2()

	f.Publish(relay.Event{Type: relay.EvtLapRecorded, CompetitionID: "c1", TeamID: "tA"})

	select {
	case e := <-c1:
		assert.Equal(t, relay.EvtLapRecorded, e.Type)
	default:
		t.Fatalf("c1 subscriber got nothing")
	}
	select {
	case e := <-c2:
		t.Fatalf("c2 subscriber got %+v", e)
	default:
	}
}

func TestFeed_SlowSubscriberIsDropped(t *testing.T) {
	f := NewFeed(nil)
	slow, cancel, err := f.Subscribe("c1", 1)
	require.NoError(t, err)

	f.Publish(relay.Event{CompetitionID: "c1"})
	f.Publish(relay.Event{CompetitionID: "c1"}) // buffer full

	_, ok := <-slow
	require.True(t, ok, "buffered event is still readable")
	_, ok = <-slow
	assert.False(t, ok, "channel closed after drop")

	st := f.Stats()
	assert.Equal(t, uint64(2), st.Published)
	assert.Equal(t, uint64(1), st.Dropped)
	assert.Zero(t, st.Subscribers)

	cancel() // no double close
}

func TestFeed_UnsubscribeAndClose(t *testing.T) {
	f := NewFeed(nil)
	ch, cancel, err := f.Subscribe("c1", 2)
	require.NoError(t, err)

	cancel()
	cancel()
	_, ok := <-ch
	assert.False(t, ok)

	f.Close()
	f.Publish(relay.Event{CompetitionID: "c1"})
	_, _, err = f.Subscribe("c1", 2)
	assert.ErrorIs(t, err, ErrFeedClosed)
}
