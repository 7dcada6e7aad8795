package main

import (
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"
)

// UI errors
var (
	ErrDuplicateComponent = errors.New("component already registered")
	ErrNoComponent        = errors.New("no such component")
)

// State keys shared between the performer and the reader interface
const (
	StateManga      = "manga"
	StateTitle      = "title"
	StateViewMode   = "viewMode"
	StatePageSpread = "pageSpread"
	StateFullscreen = "fullscreen"
	StatePane       = "pane"
)

// Event types travelling up the component tree
const (
	EventActivate    = "activate"
	EventChangeState = "changestate"
	EventNavigate    = "navigate"
	EventShow        = "show"
	EventHide        = "hide"
)

// External events components can refresh on
const (
	RefreshFullscreenChange = "fullscreenchange"
	RefreshLanguageChange   = "languagechanged"
)

// NavDirection is the direction of a navigate event
type NavDirection int

const (
	NavPrev NavDirection = iota
	NavNext
)

func (d NavDirection) String() string {
	if d == NavNext {
		return "next"
	}
	return "prev"
}

// Event is a component event. Name is the component that raised the
// semantic event; Value and Direction carry its payload.
type Event struct {
	Type      string
	Name      string
	Value     any
	Direction NavDirection
	Source    *Component
}

// StateView is the subset of state a component declared it uses
type StateView map[string]any

// State is the flat key/value store driving component refresh
type State struct {
	ui     *Interface
	values map[string]any
}

func (s *State) Get(key string) any {
	return s.values[key]
}

// Set stores value and refreshes the components using key
func (s *State) Set(key string, value any) {
	s.values[key] = value
	s.ui.RefreshWhere(func(c *Component) bool {
		return slices.Contains(c.Uses, key)
	})
}

// Pick returns the values of the given keys
func (s *State) Pick(keys ...string) StateView {
	view := make(StateView, len(keys))
	for _, k := range keys {
		if v, ok := s.values[k]; ok {
			view[k] = v
		}
	}
	return view
}

// Handlers are the high level reactions to bubbled events, keyed by the
// name of the component that raised them.
type Handlers struct {
	Activate map[string]func() error
	State    map[string]func(value any) error
	Nav      map[string]func(dir NavDirection) error
}

// Interface owns the UI state and the component registry
type Interface struct {
	State *State
	On    Handlers

	// Events sees every event that reaches the top of the tree
	Events Emitter[Event]

	loop       *Loop
	logger     *zap.Logger
	components map[string]*Component
	order      []*Component
}

// NewInterface creates an empty interface bound to a UI loop
func NewInterface(loop *Loop, logger *zap.Logger) *Interface {
	if logger == nil {
		logger = zap.NewNop()
	}
	ui := &Interface{
		On: Handlers{
			Activate: map[string]func() error{},
			State:    map[string]func(any) error{},
			Nav:      map[string]func(NavDirection) error{},
		},
		loop:       loop,
		logger:     logger.Named("ui"),
		components: map[string]*Component{},
	}
	ui.State = &State{ui: ui, values: map[string]any{}}
	return ui
}

// Register adds a component under its unique name
func (ui *Interface) Register(c *Component) error {
	if _, exists := ui.components[c.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateComponent, c.Name)
	}
	c.ui = ui
	ui.components[c.Name] = c
	ui.order = append(ui.order, c)
	return nil
}

// Get looks up a component by name
func (ui *Interface) Get(name string) (*Component, error) {
	c, ok := ui.components[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoComponent, name)
	}
	return c, nil
}

// Components returns the registered components in registration order
func (ui *Interface) Components() []*Component {
	return append([]*Component(nil), ui.order...)
}

// RefreshWhere refreshes every component matching pred
func (ui *Interface) RefreshWhere(pred func(*Component) bool) {
	for _, c := range ui.order {
		if pred(c) {
			c.Refresh()
		}
	}
}

func (ui *Interface) RefreshAll() {
	ui.RefreshWhere(func(*Component) bool { return true })
}

// RefreshFor refreshes the components listening for an external event
func (ui *Interface) RefreshFor(event string) {
	ui.RefreshWhere(func(c *Component) bool {
		return slices.Contains(c.RefreshOn, event)
	})
}

// dispatch is the end of the bubbling chain
func (ui *Interface) dispatch(ev Event) {
	ui.Events.Emit(ev)

	var err error
	switch ev.Type {
	case EventActivate:
		if fn := ui.On.Activate[ev.Name]; fn != nil {
			err = fn()
		}
	case EventChangeState:
		if fn := ui.On.State[ev.Name]; fn != nil {
			err = fn(ev.Value)
		}
	case EventNavigate:
		if fn := ui.On.Nav[ev.Name]; fn != nil {
			err = fn(ev.Direction)
		}
	}
	if err != nil {
		ui.logger.Error("Event handler failed", zap.String("type", ev.Type), zap.String("name", ev.Name), zap.Error(err))
	}
}

// deferred runs fn on the next loop drain
func (ui *Interface) deferred(fn func()) {
	if ui.loop == nil {
		fn()
		return
	}
	ui.loop.Post(fn)
}
