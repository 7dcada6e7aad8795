package main

import (
	"image"
)

// Kind names a component type
type Kind string

const (
	KindButton      Kind = "button"
	KindButtonGroup Kind = "buttongroup"
	KindStateSet    Kind = "stateset"
	KindNavButtons  Kind = "navbuttons"
	KindTitle       Kind = "title"
	KindSlider      Kind = "slider"
)

// Intercept reacts to an event bubbling through a component. Returning
// false stops propagation.
type Intercept func(c *Component, ev *Event) bool

// Behavior is the per-kind part of a component
type Behavior struct {
	Refresh   func(c *Component)
	Intercept map[string]Intercept
}

// Component is the state shared by every kind of UI element
type Component struct {
	Name      string
	Kind      Kind
	Uses      []string
	RefreshOn []string

	// Bounds is assigned by the layout and used for drawing and hit tests
	Bounds image.Rectangle

	ui       *Interface
	parent   *Component
	children []*Component
	behavior Behavior
	impl     any

	visible   bool
	displayed bool
}

func newComponent(name string, kind Kind, b Behavior) *Component {
	return &Component{Name: name, Kind: kind, behavior: b, visible: true, displayed: true}
}

func (c *Component) Parent() *Component     { return c.parent }
func (c *Component) Children() []*Component { return c.children }

// Impl returns the concrete Button, StateSet, Slider... behind c
func (c *Component) Impl() any { return c.impl }

// Displayed reports the applied visibility
func (c *Component) Displayed() bool { return c.displayed }

func (c *Component) adopt(children ...*Component) {
	for _, child := range children {
		child.parent = c
		c.children = append(c.children, child)
	}
}

func (c *Component) Refresh() {
	if c.behavior.Refresh != nil {
		c.behavior.Refresh(c)
	}
}

// Show makes the component visible on the next loop drain
func (c *Component) Show() {
	if c.visible {
		return
	}
	c.visible = true
	c.later(c.apply)
}

// Hide makes the component invisible on the next loop drain
func (c *Component) Hide() {
	if !c.visible {
		return
	}
	c.visible = false
	c.later(c.apply)
}

func (c *Component) later(fn func()) {
	if c.ui == nil {
		fn()
		return
	}
	c.ui.deferred(fn)
}

func (c *Component) apply() {
	if c.displayed == c.visible {
		return
	}
	c.displayed = c.visible
	if c.displayed {
		c.Trigger(EventShow, Event{})
	} else {
		c.Trigger(EventHide, Event{})
	}
}

// Trigger bubbles an event through the ancestors' intercepts and then to
// the interface handlers.
func (c *Component) Trigger(typ string, ev Event) {
	ev.Type = typ
	ev.Source = c
	if ev.Name == "" {
		ev.Name = c.Name
	}
	for cur := c.parent; cur != nil; cur = cur.parent {
		if h := cur.behavior.Intercept[typ]; h != nil && !h(cur, &ev) {
			return
		}
	}
	if c.ui != nil {
		c.ui.dispatch(ev)
	}
}

// syncGroupVisibility shows a container while any child is visible
func syncGroupVisibility(c *Component, _ *Event) bool {
	for _, child := range c.children {
		if child.visible {
			c.Show()
			return false
		}
	}
	c.Hide()
	return false
}

// Button is a clickable control with a label and an icon
type Button struct {
	*Component

	// Value is the state value a button inside a StateSet stands for
	Value any

	label   func(StateView) string
	icon    func(StateView) string
	support func(StateView) bool

	Label     string
	Icon      string
	Supported bool
	Selected  bool
}

// ButtonOptions describes a button. Label, Icon and Support are computed
// from the state keys in Uses on every refresh.
type ButtonOptions struct {
	Name      string
	Value     any
	Uses      []string
	RefreshOn []string
	Label     func(StateView) string
	Icon      func(StateView) string
	Support   func(StateView) bool
}

// Static lifts a constant into a state function
func Static[T any](v T) func(StateView) T {
	return func(StateView) T { return v }
}

func NewButton(o ButtonOptions) *Button {
	b := &Button{Value: o.Value, label: o.Label, icon: o.Icon, support: o.Support, Supported: true}
	if b.label == nil {
		b.label = Static("")
	}
	if b.icon == nil {
		b.icon = Static(o.Name)
	}
	if b.support == nil {
		b.support = Static(true)
	}
	b.Component = newComponent(o.Name, KindButton, Behavior{Refresh: func(*Component) { b.refresh() }})
	b.Uses = o.Uses
	b.RefreshOn = o.RefreshOn
	b.impl = b
	return b
}

func (b *Button) refresh() {
	st := b.ui.State.Pick(b.Uses...)
	b.Label = b.label(st)
	b.Icon = b.icon(st)
	b.Supported = b.support(st)
	if b.Supported {
		b.Show()
	} else {
		b.Hide()
	}
}

// Activate presses the button
func (b *Button) Activate() {
	if !b.Supported || !b.displayed {
		return
	}
	b.Trigger(EventActivate, Event{})
}

// ButtonGroup is a visual cluster of buttons and button sets
type ButtonGroup struct {
	*Component
}

func NewButtonGroup(name string, members ...*Component) *ButtonGroup {
	g := &ButtonGroup{}
	g.Component = newComponent(name, KindButtonGroup, Behavior{
		Intercept: map[string]Intercept{
			EventShow: syncGroupVisibility,
			EventHide: syncGroupVisibility,
		},
	})
	g.impl = g
	g.adopt(members...)
	return g
}

// StateSet is a group of buttons choosing one value of a state key.
// Activating a button becomes a changestate event carrying its value.
type StateSet struct {
	*Component
	Key     string
	Buttons []*Button
}

func NewStateSet(name, key string, buttons ...*Button) *StateSet {
	s := &StateSet{Key: key, Buttons: buttons}
	s.Component = newComponent(name, KindStateSet, Behavior{
		Refresh: func(*Component) { s.refresh() },
		Intercept: map[string]Intercept{
			EventShow: syncGroupVisibility,
			EventHide: syncGroupVisibility,
			EventActivate: func(c *Component, ev *Event) bool {
				b, ok := ev.Source.impl.(*Button)
				if !ok {
					return true
				}
				c.Trigger(EventChangeState, Event{Value: b.Value})
				return false
			},
		},
	})
	s.Uses = []string{key}
	s.impl = s
	for _, b := range buttons {
		s.adopt(b.Component)
	}
	return s
}

func (s *StateSet) refresh() {
	current := s.ui.State.Get(s.Key)
	for _, b := range s.Buttons {
		b.Selected = b.Value == current
	}
}

// Selected returns the button matching the current state value
func (s *StateSet) Selected() *Button {
	for _, b := range s.Buttons {
		if b.Selected {
			return b
		}
	}
	return nil
}

// NavButtons is a prev/next pair. Activating either becomes a navigate event.
type NavButtons struct {
	*Component
	Prev *Button
	Next *Button
}

func NewNavButtons(name string, prev, next *Button) *NavButtons {
	n := &NavButtons{Prev: prev, Next: next}
	n.Component = newComponent(name, KindNavButtons, Behavior{
		Intercept: map[string]Intercept{
			EventShow: syncGroupVisibility,
			EventHide: syncGroupVisibility,
			EventActivate: func(c *Component, ev *Event) bool {
				dir := NavNext
				if ev.Source == n.Prev.Component {
					dir = NavPrev
				}
				c.Trigger(EventNavigate, Event{Direction: dir})
				return false
			},
		},
	})
	n.impl = n
	n.adopt(prev.Component, next.Component)
	return n
}

// Title shows the manga title
type Title struct {
	*Component
	Text string
}

func NewTitle(name string) *Title {
	t := &Title{}
	t.Component = newComponent(name, KindTitle, Behavior{Refresh: func(*Component) { t.refresh() }})
	t.Uses = []string{StateTitle}
	t.impl = t
	return t
}

func (t *Title) refresh() {
	t.Text, _ = t.ui.State.Get(StateTitle).(string)
	if t.Text == "" {
		t.Hide()
	} else {
		t.Show()
	}
}

// registerTree registers c and all of its descendants
func (ui *Interface) registerTree(c *Component) error {
	if err := ui.Register(c); err != nil {
		return err
	}
	for _, child := range c.children {
		if err := ui.registerTree(child); err != nil {
			return err
		}
	}
	return nil
}
