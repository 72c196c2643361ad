// Package hub owns the relay goroutines. Relays are created lazily, one per
// (competition, team), and live until their team or competition is removed
// or the hub shuts down.
package hub

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/swim24-backend/internal/relay"
	"github.com/DoyleJ11/swim24-backend/internal/store"
)

var ErrClosed = errors.New("hub closed")

type HubMsg interface{ isHubMsg() }

type EnsureRelay struct {
	Key   relay.Key
	Reply chan *relay.Relay
}

type GetRelay struct {
	Key   relay.Key
	Reply chan *relay.Relay // nil if none
}

// CompetitionRelays lists the live relays of one competition.
type CompetitionRelays struct {
	CompetitionID string
	Reply         chan []*relay.Relay
}

type RemoveRelay struct {
	Key relay.Key
}

type RemoveCompetition struct {
	CompetitionID string
}

type ShutdownHub struct{}

func (EnsureRelay) isHubMsg()       {}
func (GetRelay) isHubMsg()          {}
func (CompetitionRelays) isHubMsg() {}
func (RemoveRelay) isHubMsg()       {}
func (RemoveCompetition) isHubMsg() {}
func (ShutdownHub) isHubMsg()       {}

type Deps struct {
	Store store.Store
	Now   func() time.Time
	Log   *zap.Logger
	NewID func() string
}

type Hub struct {
	inbox  chan HubMsg
	relays map[relay.Key]*relay.Relay
	deps   Deps
	feed   *Feed
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(parent context.Context, deps Deps) *Hub {
	ctx, cancel := context.WithCancel(parent)
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	h := &Hub{
		inbox:  make(chan HubMsg, 64),
		relays: make(map[relay.Key]*relay.Relay),
		deps:   deps,
		feed:   NewFeed(deps.Log),
		log:    deps.Log.Named("hub"),
		ctx:    ctx,
		cancel: cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) Feed() *Feed { return h.feed }

func (h *Hub) Done() <-chan struct{} { return h.ctx.Done() }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case EnsureRelay:
				if r := h.relays[msg.Key]; r != nil {
					msg.Reply <- r
					break
				}
				r := relay.New(h.ctx, msg.Key, relay.Deps{
					Store:   h.deps.Store,
					Now:     h.deps.Now,
					Log:     h.deps.Log,
					Publish: h.feed.Publish,
					NewID:   h.deps.NewID,
				})
				h.relays[msg.Key] = r
				h.log.Debug("relay started", zap.String("competition", msg.Key.CompetitionID), zap.String("team", msg.Key.TeamID))
				msg.Reply <- r

			case GetRelay:
				msg.Reply <- h.relays[msg.Key] // may be nil

			case CompetitionRelays:
				var out []*relay.Relay
				for k, r := range h.relays {
					if k.CompetitionID == msg.CompetitionID {
						out = append(out, r)
					}
				}
				msg.Reply <- out

			case RemoveRelay:
				if r := h.relays[msg.Key]; r != nil {
					delete(h.relays, msg.Key)
					stop(r)
				}

			case RemoveCompetition:
				for k, r := range h.relays {
					if k.CompetitionID == msg.CompetitionID {
						delete(h.relays, k)
						stop(r)
					}
				}

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) shutdown() {
	for k, r := range h.relays {
		stop(r)
		delete(h.relays, k)
	}
	h.feed.Close()
	h.cancel()
}

// stop asks a relay to finish without blocking the hub on a busy inbox.
func stop(r *relay.Relay) {
	go func() {
		select {
		case r.Inbox() <- relay.Shutdown{}:
		case <-r.Done():
		}
	}()
}

func ask[T any](ctx context.Context, h *Hub, msg HubMsg, reply chan T) (T, error) {
	var zero T
	select {
	case h.inbox <- msg:
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-h.ctx.Done():
		return zero, ErrClosed
	}
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-h.ctx.Done():
		return zero, ErrClosed
	}
}

// Ensure returns the relay for key, starting it if needed.
func (h *Hub) Ensure(ctx context.Context, key relay.Key) (*relay.Relay, error) {
	reply := make(chan *relay.Relay, 1)
	return ask(ctx, h, EnsureRelay{Key: key, Reply: reply}, reply)
}

// Relays returns the running relays for a competition.
func (h *Hub) Relays(ctx context.Context, competitionID string) ([]*relay.Relay, error) {
	reply := make(chan []*relay.Relay, 1)
	return ask(ctx, h, CompetitionRelays{CompetitionID: competitionID, Reply: reply}, reply)
}

func (h *Hub) send(ctx context.Context, msg HubMsg) error {
	select {
	case h.inbox <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.ctx.Done():
		return ErrClosed
	}
}

func (h *Hub) Remove(ctx context.Context, key relay.Key) error {
	return h.send(ctx, RemoveRelay{Key: key})
}

func (h *Hub) RemoveCompetition(ctx context.Context, competitionID string) error {
	return h.send(ctx, RemoveCompetition{CompetitionID: competitionID})
}

// Shutdown stops every relay and closes the feed.
func (h *Hub) Shutdown() {
	select {
	case h.inbox <- ShutdownHub{}:
	case <-h.ctx.Done():
	}
	<-h.ctx.Done()
}
