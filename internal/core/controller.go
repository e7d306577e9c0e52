// Package core owns the filter state of one dashboard and derives the filtered
// view every display consumer renders.
package core

import (
	"time"

	"penguindash/pkg/domain"
)

// Update sets one or both controls in a single event. A nil field leaves the
// control unchanged; a non-nil empty Species clears the selection.
type Update struct {
	MassCeiling *float64 `json:"mass,omitempty"`
	Species     []string `json:"species,omitempty"`
}

// Option configures a Controller.
type Option func(*Controller)

// WithControls replaces the default control descriptors. The initial state
// follows the new defaults unless WithInitialState is also given.
func WithControls(c Controls) Option {
	return func(ctrl *Controller) {
		ctrl.controls = c.clone()
		if !ctrl.stateSet {
			ctrl.state = c.InitialState()
		}
	}
}

// WithInitialState starts the controller from state instead of the defaults.
func WithInitialState(state FilterState) Option {
	return func(c *Controller) {
		c.state = NewFilterState(state.MassCeiling, state.Species)
		c.stateSet = true
	}
}

// WithObserver reports control events and recomputations to o.
func WithObserver(o Observer) Option {
	return func(c *Controller) {
		if o != nil {
			c.observer = o
		}
	}
}

// WithoutCache recomputes the view on every FilteredView call.
func WithoutCache() Option {
	return func(c *Controller) { c.cacheOff = true }
}

type subscription struct {
	id uint64
	fn func(View)
}

// Controller holds the Filter State for one session. It is not safe for
// concurrent use; callers serialize events.
type Controller struct {
	ds       *domain.Dataset
	controls Controls
	state    FilterState
	stateSet bool
	version  uint64

	cache    *View
	cacheOff bool

	subs      []subscription
	nextSubID uint64
	notifying bool

	observer Observer
}

// NewController builds a controller over ds starting at version 1.
func NewController(ds *domain.Dataset, opts ...Option) *Controller {
	c := &Controller{
		ds:       ds,
		controls: DefaultControls(),
		observer: nopObserver{},
		version:  1,
	}
	c.state = c.controls.InitialState()
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Controls returns the descriptors this controller was built with.
func (c *Controller) Controls() Controls { return c.controls.clone() }

// Dataset returns the shared source table.
func (c *Controller) Dataset() *domain.Dataset { return c.ds }

// State returns a copy of the committed filter state.
func (c *Controller) State() FilterState { return c.state.Clone() }

// Version increases by one on every committed event.
func (c *Controller) Version() uint64 { return c.version }

// SetMassCeiling commits a new ceiling. The value is not clamped.
func (c *Controller) SetMassCeiling(value float64) {
	c.Apply(Update{MassCeiling: &value})
}

// SetSelectedSpecies commits a new species set. nil and empty both clear it.
func (c *Controller) SetSelectedSpecies(values []string) {
	if values == nil {
		values = []string{}
	}
	c.Apply(Update{Species: values})
}

// Apply commits u as one event and notifies subscribers before returning.
// Every call bumps the version, even when the values are unchanged.
func (c *Controller) Apply(u Update) {
	next := c.state.Clone()
	if u.MassCeiling != nil {
		next.MassCeiling = *u.MassCeiling
		c.observer.ControlChanged(ControlMass)
	}
	if u.Species != nil {
		next.Species = normalizeSpecies(u.Species)
		c.observer.ControlChanged(ControlSpecies)
	}
	c.state = next
	c.version++
	c.cache = nil
	c.notify()
}

// FilteredView returns the view for the current state. Each call returns an
// independent copy.
func (c *Controller) FilteredView() View {
	if c.cache != nil && c.cache.Version == c.version {
		return c.cache.Clone()
	}
	start := time.Now()
	view := Filter(c.ds, c.state)
	view.Version = c.version
	c.observer.ViewComputed(view.Len(), time.Since(start))
	if c.cacheOff {
		return view
	}
	c.cache = &view
	return view.Clone()
}

// Subscribe registers fn to receive the view after every commit. fn is not
// called for the current state. The returned func removes the subscription.
func (c *Controller) Subscribe(fn func(View)) (cancel func()) {
	c.nextSubID++
	id := c.nextSubID
	c.subs = append(c.subs, subscription{id: id, fn: fn})
	return func() {
		for i, s := range c.subs {
			if s.id == id {
				c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
				return
			}
		}
	}
}

// notify delivers the newest view to every subscriber in subscription order.
// A subscriber that commits a new event restarts delivery at the newer
// version, so nobody receives a view older than one already committed.
func (c *Controller) notify() {
	if c.notifying {
		return
	}
	c.notifying = true
	defer func() { c.notifying = false }()
	for {
		version := c.version
		view := c.FilteredView()
		subs := append([]subscription(nil), c.subs...)
		for _, s := range subs {
			if c.version != version {
				break
			}
			s.fn(view.Clone())
		}
		if c.version == version {
			return
		}
	}
}
