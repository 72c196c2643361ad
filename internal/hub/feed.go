package hub

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/swim24-backend/internal/relay"
)

var ErrFeedClosed = errors.New("feed closed")

// Feed fans relay events out to per-competition subscribers. Publish never
// blocks: a subscriber whose buffer is full is dropped and its channel
// closed, the same way a lobby drops a slow client.
type Feed struct {
	mu     sync.RWMutex
	subs   map[string]map[string]chan relay.Event // competition -> subscriber
	closed bool
	log    *zap.Logger

	published atomic.Uint64
	dropped   atomic.Uint64
}

type FeedStats struct {
	Published   uint64
	Dropped     uint64
	Subscribers int
}

func NewFeed(log *zap.Logger) *Feed {
	if log == nil {
		log = zap.NewNop()
	}
	return &Feed{
		subs: make(map[string]map[string]chan relay.Event),
		log:  log.Named("feed"),
	}
}

// Subscribe registers a listener for one competition. The returned cancel
// func is safe to call more than once and after the subscriber was dropped.
func (f *Feed) Subscribe(competitionID string, buffer int) (<-chan relay.Event, func(), error) {
	if buffer < 1 {
		buffer = 1
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, func() {}, ErrFeedClosed
	}

	id := uuid.NewString()
	ch := make(chan relay.Event, buffer)
	if f.subs[competitionID] == nil {
		f.subs[competitionID] = make(map[string]chan relay.Event)
	}
	f.subs[competitionID][id] = ch

	return ch, func() { f.unsubscribe(competitionID, id) }, nil
}

func (f *Feed) unsubscribe(competitionID, id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removeLocked(competitionID, id)
}

// removeLocked must be called with mu held.
func (f *Feed) removeLocked(competitionID, id string) {
	group := f.subs[competitionID]
	ch, ok := group[id]
	if !ok {
		return
	}
	close(ch)
	delete(group, id)
	if len(group) == 0 {
		delete(f.subs, competitionID)
	}
}

func (f *Feed) Publish(e relay.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.published.Add(1)

	for id, ch := range f.subs[e.CompetitionID] {
		select {
		case ch <- e:
		default:
			f.dropped.Add(1)
			f.log.Warn("slow subscriber dropped", zap.String("competition", e.CompetitionID), zap.String("subscriber", id))
			f.removeLocked(e.CompetitionID, id)
		}
	}
}

func (f *Feed) Stats() FeedStats {
	f.mu.RLock()
	defer f.mu.RUnlock()
	n := 0
	for _, group := range f.subs {
		n += len(group)
	}
	return FeedStats{Published: f.published.Load(), Dropped: f.dropped.Load(), Subscribers: n}
}

// Close ends every subscription. Later publishes are ignored.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	for comp, group := range f.subs {
		for id := range group {
			f.removeLocked(comp, id)
		}
	}
	f.closed = true
}
