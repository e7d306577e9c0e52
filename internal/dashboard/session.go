package dashboard

import (
	"sync"
	"time"

	"penguindash/internal/core"
)

// Session is one client's controller and board. Events are applied one at a
// time: the state change and every consumer recomputation finish before the
// next event is accepted.
type Session struct {
	id      string
	created time.Time
	now     func() time.Time

	mu       sync.Mutex
	ctrl     *core.Controller
	board    *Board
	lastSeen time.Time
	cancel   func()
}

func newSession(id string, ctrl *core.Controller, board *Board, now func() time.Time) *Session {
	s := &Session{id: id, ctrl: ctrl, board: board, now: now}
	s.created = now()
	s.lastSeen = s.created
	s.cancel = ctrl.Subscribe(board.Render)
	board.Render(ctrl.FilteredView())
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// CreatedAt returns when the session was opened.
func (s *Session) CreatedAt() time.Time { return s.created }

// Apply commits u and returns the snapshot for the new version.
func (s *Session) Apply(u core.Update) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = s.now()
	s.ctrl.Apply(u)
	return s.board.Snapshot()
}

// Snapshot returns the consumers' latest outputs.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = s.now()
	return s.board.Snapshot()
}

// State returns the committed filter state and its version.
func (s *Session) State() (core.FilterState, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.State(), s.ctrl.Version()
}

// View returns the filtered view for the committed state.
func (s *Session) View() core.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.FilteredView()
}

// Controls returns the session's control descriptors.
func (s *Session) Controls() core.Controls {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.Controls()
}

// Subscribe registers fn on the session controller. fn runs while the session
// lock is held and must not call back into the session.
func (s *Session) Subscribe(fn func(core.View)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inner := s.ctrl.Subscribe(fn)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		inner()
	}
}

// LastSeen returns the time of the most recent interaction.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}
