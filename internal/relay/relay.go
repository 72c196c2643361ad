// Package relay runs one single-writer goroutine per (competition, team).
// Every write that must not interleave for a team (session start/end, lap
// taps, counter bumps, force-closes) is a message on that goroutine's inbox,
// so the check-then-act sequences never overlap. Different teams have
// different relays and run in parallel.
package relay

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/swim24-backend/internal/race"
	"github.com/DoyleJ11/swim24-backend/internal/store"
)

var ErrClosed = errors.New("relay closed")

type Key struct {
	CompetitionID string
	TeamID        string
}

type Msg interface{ isRelayMsg() }

type StartSession struct {
	Ctx        context.Context
	SwimmerID  string
	LaneNumber int
	Reply      chan SessionReply
}

func (StartSession) isRelayMsg() {}

type EndSession struct {
	Ctx       context.Context
	SessionID string
	EndTime   *time.Time // now if nil
	LapCount  *int
	Reply     chan SessionReply
}

func (EndSession) isRelayMsg() {}

// Tap is a referee's lap claim. LapNumber 0 means auto-assign.
type Tap struct {
	SwimmerID  string
	LaneNumber int
	RefereeID  string
	LapNumber  int
}

type RecordLap struct {
	Ctx   context.Context
	Tap   Tap
	Reply chan LapReply
}

func (RecordLap) isRelayMsg() {}

type IncrementLap struct {
	Ctx   context.Context
	Reply chan error
}

func (IncrementLap) isRelayMsg() {}

// CloseActive force-closes the team's open sessions, optionally only the
// one belonging to SwimmerID.
type CloseActive struct {
	Ctx       context.Context
	SwimmerID string
	Reply     chan CloseReply
}

func (CloseActive) isRelayMsg() {}

type Shutdown struct{}

func (Shutdown) isRelayMsg() {}

type SessionReply struct {
	Session race.Session
	Err     error
}

type LapReply struct {
	Lap race.LapCount
	Err error
}

type CloseReply struct {
	Closed int
	Err    error
}

type Deps struct {
	Store   store.Store
	Now     func() time.Time
	Log     *zap.Logger
	Publish func(Event)
	NewID   func() string
}

type Relay struct {
	key    Key
	inbox  chan Msg
	deps   Deps
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func New(parent context.Context, key Key, deps Deps) *Relay {
	ctx, cancel := context.WithCancel(parent)
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if deps.Publish == nil {
		deps.Publish = func(Event) {}
	}

	r := &Relay{
		key:    key,
		inbox:  make(chan Msg, 64),
		deps:   deps,
		log:    deps.Log.Named("relay").With(zap.String("competition", key.CompetitionID), zap.String("team", key.TeamID)),
		ctx:    ctx,
		cancel: cancel,
	}

	go r.loop()
	return r
}

func (r *Relay) Key() Key { return r.key }

// Inbox is exposed so the hub and tests can post messages directly.
func (r *Relay) Inbox() chan<- Msg { return r.inbox }

// Done is closed once the relay has stopped.
func (r *Relay) Done() <-chan struct{} { return r.ctx.Done() }

func (r *Relay) loop() {
	for {
		select {
		case <-r.ctx.Done():
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case StartSession:
				sess, err := r.startSession(msg.Ctx, msg.SwimmerID, msg.LaneNumber)
				msg.Reply <- SessionReply{Session: sess, Err: err}

			case EndSession:
				sess, err := r.endSession(msg.Ctx, msg.SessionID, msg.EndTime, msg.LapCount)
				msg.Reply <- SessionReply{Session: sess, Err: err}

			case RecordLap:
				lap, err := r.recordLap(msg.Ctx, msg.Tap)
				msg.Reply <- LapReply{Lap: lap, Err: err}

			case IncrementLap:
				msg.Reply <- r.deps.Store.IncrementActiveLap(msg.Ctx, r.key.CompetitionID, r.key.TeamID)

			case CloseActive:
				n, err := r.closeActive(msg.Ctx, msg.SwimmerID)
				msg.Reply <- CloseReply{Closed: n, Err: err}

			case Shutdown:
				r.cancel()
				return
			}
		}
	}
}

// ask posts msg and waits for the reply, giving up if either the caller's
// context or the relay is done. Reply channels are buffered, so an
// abandoned reply never blocks the loop.
func ask[T any](ctx context.Context, r *Relay, msg Msg, reply chan T) (T, error) {
	var zero T
	select {
	case r.inbox <- msg:
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-r.ctx.Done():
		return zero, ErrClosed
	}
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-r.ctx.Done():
		return zero, ErrClosed
	}
}

func (r *Relay) Start(ctx context.Context, swimmerID string, lane int) (race.Session, error) {
	reply := make(chan SessionReply, 1)
	res, err := ask(ctx, r, StartSession{Ctx: ctx, SwimmerID: swimmerID, LaneNumber: lane, Reply: reply}, reply)
	if err != nil {
		return race.Session{}, err
	}
	return res.Session, res.Err
}

func (r *Relay) End(ctx context.Context, sessionID string, endTime *time.Time, lapCount *int) (race.Session, error) {
	reply := make(chan SessionReply, 1)
	res, err := ask(ctx, r, EndSession{Ctx: ctx, SessionID: sessionID, EndTime: endTime, LapCount: lapCount, Reply: reply}, reply)
	if err != nil {
		return race.Session{}, err
	}
	return res.Session, res.Err
}

func (r *Relay) Record(ctx context.Context, tap Tap) (race.LapCount, error) {
	reply := make(chan LapReply, 1)
	res, err := ask(ctx, r, RecordLap{Ctx: ctx, Tap: tap, Reply: reply}, reply)
	if err != nil {
		return race.LapCount{}, err
	}
	return res.Lap, res.Err
}

func (r *Relay) Increment(ctx context.Context) error {
	reply := make(chan error, 1)
	res, err := ask(ctx, r, IncrementLap{Ctx: ctx, Reply: reply}, reply)
	if err != nil {
		return err
	}
	return res
}

func (r *Relay) Close(ctx context.Context, swimmerID string) (int, error) {
	reply := make(chan CloseReply, 1)
	res, err := ask(ctx, r, CloseActive{Ctx: ctx, SwimmerID: swimmerID, Reply: reply}, reply)
	if err != nil {
		return 0, err
	}
	return res.Closed, res.Err
}
