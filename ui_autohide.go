package main

import (
	"time"
)

const (
	defaultAutoHideDuration = 1000 * time.Millisecond
	defaultTooltipDelay     = 500 * time.Millisecond
	defaultTooltipRetain    = 800 * time.Millisecond
)

// AutoHide hides the reader chrome after a period without activity. The
// game loop calls Tick once per frame.
type AutoHide struct {
	duration time.Duration
	now      func() time.Time

	visible  bool
	locked   bool
	deadline time.Time // zero when no hide is scheduled

	OnChange Emitter[bool]
}

// NewAutoHide creates a visible AutoHide with a hide already scheduled
func NewAutoHide(duration time.Duration, now func() time.Time) *AutoHide {
	if duration <= 0 {
		duration = defaultAutoHideDuration
	}
	if now == nil {
		now = time.Now
	}
	ah := &AutoHide{duration: duration, now: now, visible: true}
	ah.Ping()
	return ah
}

func (ah *AutoHide) Visible() bool { return ah.visible }
func (ah *AutoHide) Locked() bool  { return ah.locked }

func (ah *AutoHide) hide() {
	if !ah.visible || ah.locked {
		return
	}
	ah.visible = false
	ah.OnChange.Emit(false)
}

func (ah *AutoHide) show() {
	if ah.visible {
		return
	}
	ah.visible = true
	ah.OnChange.Emit(true)
}

// Ping shows the chrome and restarts the hide timer
func (ah *AutoHide) Ping() {
	if ah.locked {
		return
	}
	ah.show()
	ah.deadline = ah.now().Add(ah.duration)
}

// Tick hides the chrome once the timer ran out
func (ah *AutoHide) Tick() {
	if ah.deadline.IsZero() || ah.now().Before(ah.deadline) {
		return
	}
	ah.deadline = time.Time{}
	ah.hide()
}

func (ah *AutoHide) ForceHide() {
	if ah.locked {
		return
	}
	ah.hide()
	ah.deadline = time.Time{}
}

func (ah *AutoHide) ForceShow() {
	if ah.locked {
		return
	}
	ah.show()
	ah.deadline = time.Time{}
}

// Lock keeps the chrome visible, e.g. while the pointer is over a control
func (ah *AutoHide) Lock() {
	if ah.locked {
		return
	}
	ah.locked = true
	ah.show()
	ah.deadline = time.Time{}
}

func (ah *AutoHide) Unlock() {
	if !ah.locked {
		return
	}
	ah.locked = false
	ah.Ping()
}

// Tooltip shows a button's label after the pointer rests on it. A tip
// closed less than retain ago reopens without delay.
type Tooltip struct {
	delay  time.Duration
	retain time.Duration
	now    func() time.Time

	target   *Button
	pending  time.Time // when the delayed tip opens
	open     bool
	closedAt time.Time
}

func NewTooltip(delay, retain time.Duration, now func() time.Time) *Tooltip {
	if now == nil {
		now = time.Now
	}
	return &Tooltip{delay: delay, retain: retain, now: now}
}

// Hover points the tooltip at b, or at nothing when b is nil
func (t *Tooltip) Hover(b *Button) {
	if b == t.target {
		return
	}
	if b == nil {
		t.Close()
		return
	}

	t.target = b
	recent := !t.closedAt.IsZero() && t.now().Sub(t.closedAt) < t.retain
	if t.open || recent {
		t.open = true
		t.pending = time.Time{}
		return
	}
	t.pending = t.now().Add(t.delay)
}

// Tick opens a pending tip whose delay has passed
func (t *Tooltip) Tick() {
	if t.pending.IsZero() || t.now().Before(t.pending) {
		return
	}
	t.pending = time.Time{}
	t.open = true
}

func (t *Tooltip) Close() {
	if t.open {
		t.closedAt = t.now()
	}
	t.open = false
	t.target = nil
	t.pending = time.Time{}
}

// Reset forgets the retain window after a real button press
func (t *Tooltip) Reset() {
	if !t.open {
		t.closedAt = time.Time{}
	}
}

// Current returns the button whose tip is showing
func (t *Tooltip) Current() (*Button, bool) {
	if !t.open || t.target == nil {
		return nil, false
	}
	return t.target, true
}
