package dashboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"penguindash/internal/core"
	"penguindash/internal/views"
	"penguindash/pkg/domain"
)

// ErrSessionNotFound is returned for unknown or evicted session ids.
var ErrSessionNotFound = errors.New("session not found")

// Options configures a Hub. Zero values select defaults.
type Options struct {
	Bins     int
	TTL      time.Duration
	Controls *core.Controls
	Observer core.Observer
	Logger   *zap.Logger
	Now      func() time.Time
}

// Hub owns the shared dataset and every live session.
type Hub struct {
	ds       *domain.Dataset
	bins     int
	ttl      time.Duration
	controls core.Controls
	observer core.Observer
	logger   *zap.Logger
	now      func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewHub builds a hub over ds.
func NewHub(ds *domain.Dataset, opts Options) *Hub {
	h := &Hub{
		ds:       ds,
		bins:     opts.Bins,
		ttl:      opts.TTL,
		controls: core.DefaultControls(),
		observer: opts.Observer,
		logger:   opts.Logger,
		now:      opts.Now,
		sessions: make(map[string]*Session),
	}
	if h.bins <= 0 {
		h.bins = views.DefaultBins
	}
	if opts.Controls != nil {
		h.controls = *opts.Controls
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	if h.now == nil {
		h.now = func() time.Time { return time.Now().UTC() }
	}
	return h
}

// Dataset returns the shared source table.
func (h *Hub) Dataset() *domain.Dataset { return h.ds }

// Controls returns the descriptors new sessions start from.
func (h *Hub) Controls() core.Controls { return h.controls }

// Bins returns the configured histogram bin count.
func (h *Hub) Bins() int { return h.bins }

// NewController builds a standalone controller with the hub's settings.
func (h *Hub) NewController(opts ...core.Option) *core.Controller {
	base := []core.Option{core.WithControls(h.controls)}
	if h.observer != nil {
		base = append(base, core.WithObserver(h.observer))
	}
	return core.NewController(h.ds, append(base, opts...)...)
}

// Create opens a session at the default state, then applies initial when
// given.
func (h *Hub) Create(initial *core.Update) *Session {
	id := uuid.NewString()
	board := NewBoard(h.bins, h.controls.Species.Choices)
	s := newSession(id, h.NewController(), board, h.now)
	if initial != nil {
		s.Apply(*initial)
	}
	h.mu.Lock()
	h.sessions[id] = s
	h.mu.Unlock()
	h.logger.Debug("session created", zap.String("session", id))
	return s
}

// Get returns the session with id.
func (h *Hub) Get(id string) (*Session, error) {
	h.mu.RLock()
	s, ok := h.sessions[id]
	h.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Delete closes and removes the session with id.
func (h *Hub) Delete(id string) error {
	h.mu.Lock()
	s, ok := h.sessions[id]
	delete(h.sessions, id)
	h.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	s.close()
	h.logger.Debug("session deleted", zap.String("session", id))
	return nil
}

// Len returns the number of live sessions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Sweep evicts sessions idle for longer than the TTL and returns how many
// were removed. A zero TTL keeps sessions forever.
func (h *Hub) Sweep() int {
	if h.ttl <= 0 {
		return 0
	}
	cutoff := h.now().Add(-h.ttl)
	var expired []*Session
	h.mu.Lock()
	for id, s := range h.sessions {
		if s.LastSeen().Before(cutoff) {
			expired = append(expired, s)
			delete(h.sessions, id)
		}
	}
	h.mu.Unlock()
	for _, s := range expired {
		s.close()
	}
	if len(expired) > 0 {
		h.logger.Info("sessions evicted", zap.Int("count", len(expired)))
	}
	return len(expired)
}

// RunSweeper calls Sweep every interval until ctx is done.
func (h *Hub) RunSweeper(ctx context.Context, interval time.Duration) {
	RunEvery(ctx, interval, h.Sweep)
}

// RunEvery calls every sweep function each interval until ctx is done. A
// non-positive interval selects one minute.
func RunEvery(ctx context.Context, interval time.Duration, sweeps ...func() int) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, sweep := range sweeps {
				sweep()
			}
		}
	}
}
