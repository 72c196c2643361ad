// Package tracker is the entry point to the lap counting core. It checks
// input, routes team-scoped writes to that team's relay, reads aggregates
// straight from the store and runs the registry admin that surrounds them.
package tracker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/swim24-backend/internal/hub"
	"github.com/DoyleJ11/swim24-backend/internal/race"
	"github.com/DoyleJ11/swim24-backend/internal/relay"
	"github.com/DoyleJ11/swim24-backend/internal/store"
)

// Defaults apply to competitions created without explicit values.
type Defaults struct {
	LaneLength         int
	DoubleCountTimeout int
}

var DefaultDefaults = Defaults{LaneLength: 25, DoubleCountTimeout: 15}

type Options struct {
	Store    store.Store
	Hub      *hub.Hub
	Now      func() time.Time
	Log      *zap.Logger
	// Hours defaults to race.DefaultBirdHours when nil.
	Hours    *race.BirdHours
	Defaults Defaults
	NewID    func() string
}

type Service struct {
	store    store.Store
	hub      *hub.Hub
	now      func() time.Time
	log      *zap.Logger
	hours    race.BirdHours
	defaults Defaults
	newID    func() string

	// regMu serializes team writes so the (color, lane) check and the
	// insert cannot interleave.
	regMu sync.Mutex
}

func New(o Options) *Service {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Log == nil {
		o.Log = zap.NewNop()
	}
	if o.NewID == nil {
		o.NewID = uuid.NewString
	}
	hours := race.DefaultBirdHours
	if o.Hours != nil {
		hours = *o.Hours
	}
	if o.Defaults == (Defaults{}) {
		o.Defaults = DefaultDefaults
	}
	return &Service{
		store:    o.Store,
		hub:      o.Hub,
		now:      o.Now,
		log:      o.Log.Named("tracker"),
		hours:    hours,
		defaults: o.Defaults,
		newID:    o.NewID,
	}
}

func (s *Service) Hours() race.BirdHours { return s.hours }

func (s *Service) clock() time.Time { return s.now().UTC() }

// withRelay runs fn on the relay for key. A relay removed between lookup
// and use is replaced once.
func (s *Service) withRelay(ctx context.Context, op string, key relay.Key, fn func(*relay.Relay) error) error {
	for attempt := 0; ; attempt++ {
		r, err := s.hub.Ensure(ctx, key)
		if err != nil {
			return race.Wrap(op, race.KindInternal, err)
		}
		err = fn(r)
		if errors.Is(err, relay.ErrClosed) && attempt == 0 {
			continue
		}
		return relayErr(op, err)
	}
}

// relayErr passes typed rejections through and wraps transport failures.
func relayErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var re *race.Error
	if errors.As(err, &re) {
		return err
	}
	return race.Wrap(op, race.KindInternal, err)
}

// storeErr maps a store failure onto the error taxonomy.
func storeErr(op, what string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return race.Errorf(op, race.KindNotFound, "%s not found", what)
	}
	return race.Wrap(op, race.KindInternal, err)
}

// Shutdown stops the relays. The store is closed by its owner.
func (s *Service) Shutdown() {
	s.hub.Shutdown()
}
