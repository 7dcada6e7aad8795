package main

import (
	"errors"
	"testing"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedActions struct {
	calls    []string
	messages []string
	err      error
}

func (r *recordedActions) record(name string)          { r.calls = append(r.calls, name) }
func (r *recordedActions) Exit()                       { r.record("exit") }
func (r *recordedActions) ToggleHelp()                 { r.record("help") }
func (r *recordedActions) ToggleFullscreen()           { r.record("fullscreen") }
func (r *recordedActions) Left()                       { r.record("left") }
func (r *recordedActions) Right()                      { r.record("right") }
func (r *recordedActions) NextPane()                   { r.record("next") }
func (r *recordedActions) PrevPane()                   { r.record("previous") }
func (r *recordedActions) FirstPane()                  { r.record("first") }
func (r *recordedActions) LastPane()                   { r.record("last") }
func (r *recordedActions) ShowOverlayMessage(m string) { r.messages = append(r.messages, m) }

func (r *recordedActions) SetPageSpread(n int) (int, error) {
	r.record("spread")
	return n, r.err
}

func (r *recordedActions) SetViewMode(mode ViewMode) (ViewMode, error) {
	r.record(string(mode))
	return mode, r.err
}

func TestActionExecutor(t *testing.T) {
	tests := []struct {
		action string
		call   string
	}{
		{"exit", "exit"},
		{"help", "help"},
		{"left", "left"},
		{"right", "right"},
		{"next", "next"},
		{"previous", "previous"},
		{"first", "first"},
		{"last", "last"},
		{"spread_1", "spread"},
		{"spread_2", "spread"},
		{"view_pagefit", "pagefit"},
		{"view_pagewidth", "pagewidth"},
		{"view_panel", "panel"},
		{"fullscreen", "fullscreen"},
	}

	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			r := &recordedActions{}
			assert.True(t, globalActionExecutor.ExecuteAction(tt.action, r))
			assert.Equal(t, []string{tt.call}, r.calls)
			assert.Empty(t, r.messages)
		})
	}

	// every defined action is handled
	for _, def := range actionDefinitions {
		assert.True(t, NewActionExecutor().ExecuteAction(def.Name, &recordedActions{}), def.Name)
	}
}

func TestActionExecutorUnknownAndErrors(t *testing.T) {
	r := &recordedActions{}
	assert.False(t, globalActionExecutor.ExecuteAction("zoom_in", r))
	assert.Empty(t, r.calls)

	r.err = errors.New("no manga is playing")
	assert.True(t, globalActionExecutor.ExecuteAction("spread_2", r))
	assert.Equal(t, []string{"no manga is playing"}, r.messages)
}

func TestDefaultBindingsAreCopies(t *testing.T) {
	keys := GetDefaultKeybindings()
	keys["exit"][0] = "KeyZ"
	assert.Equal(t, "Escape", GetDefaultKeybindings()["exit"][0])

	assert.NoError(t, validateKeybindings(GetDefaultKeybindings()))
}

func TestParseKeyString(t *testing.T) {
	km := NewKeybindingManager(GetDefaultKeybindings())

	combo, ok := km.parseKeyString("Ctrl+Shift+KeyB")
	require.True(t, ok)
	assert.Equal(t, KeyCombination{Key: ebiten.KeyB, Modifiers: Modifiers{Shift: true, Ctrl: true}}, *combo)

	combo, ok = km.parseKeyString("Space")
	require.True(t, ok)
	assert.Equal(t, ebiten.KeySpace, combo.Key)
	assert.False(t, combo.Shift)

	_, ok = km.parseKeyString("Hyper")
	assert.False(t, ok)
}

func TestParseMouseString(t *testing.T) {
	mm := NewMousebindingManager(GetDefaultMousebindings(), GetDefaultMouseSettings())

	tests := []struct {
		input string
		want  MouseCombination
	}{
		{"LeftClick", MouseCombination{Button: ebiten.MouseButtonLeft}},
		{"Alt+RightClick", MouseCombination{Button: ebiten.MouseButtonRight, Modifiers: Modifiers{Alt: true}}},
		{"DoubleMiddleClick", MouseCombination{Button: ebiten.MouseButtonMiddle, IsDoubleClick: true}},
		{"WheelUp", MouseCombination{IsWheel: true, WheelDeltaY: 1}},
		{"Shift+WheelLeft", MouseCombination{IsWheel: true, WheelDeltaX: -1, Modifiers: Modifiers{Shift: true}}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			combo, ok := mm.parseMouseString(tt.input)
			require.True(t, ok)
			assert.Equal(t, tt.want, *combo)
		})
	}

	for _, bad := range []string{"WheelSideways", "DoubleWheel", "TripleClick"} {
		_, ok := mm.parseMouseString(bad)
		assert.False(t, ok, bad)
	}
}

func TestMouseFrame(t *testing.T) {
	start := time.Unix(0, 0)
	newManager := func() *MousebindingManager {
		settings := GetDefaultMouseSettings()
		settings.WheelSensitivity = 0.5
		return NewMousebindingManager(GetDefaultMousebindings(), settings)
	}

	t.Run("wheel accumulates into steps", func(t *testing.T) {
		mm := newManager()
		mm.observe(start, 0, -1, nil, Modifiers{})
		assert.False(t, mm.CheckAction("next"), "half a step")
		mm.observe(start, 0, -1, nil, Modifiers{})
		assert.True(t, mm.CheckAction("next"))
		assert.False(t, mm.CheckAction("previous"))
		mm.observe(start, 0, 0, nil, Modifiers{})
		assert.False(t, mm.CheckAction("next"), "the step is used up")
	})

	t.Run("inverted wheel", func(t *testing.T) {
		mm := newManager()
		settings := mm.GetSettings()
		settings.WheelInverted = true
		settings.WheelSensitivity = 1
		mm.UpdateSettings(settings)
		mm.observe(start, 0, -1, nil, Modifiers{})
		assert.True(t, mm.CheckAction("previous"))
	})

	t.Run("modifiers must match", func(t *testing.T) {
		mm := newManager()
		mm.observe(start, 0, 0, []ebiten.MouseButton{ebiten.MouseButtonRight}, Modifiers{})
		assert.False(t, mm.CheckAction("help"))
		mm.observe(start.Add(time.Second), 0, 0, []ebiten.MouseButton{ebiten.MouseButtonRight}, Modifiers{Alt: true})
		assert.True(t, mm.CheckAction("help"))
	})

	t.Run("double click", func(t *testing.T) {
		mm := newManager()
		middle := []ebiten.MouseButton{ebiten.MouseButtonMiddle}
		mm.observe(start, 0, 0, middle, Modifiers{})
		assert.False(t, mm.CheckAction("fullscreen"))
		mm.observe(start.Add(200*time.Millisecond), 0, 0, middle, Modifiers{})
		assert.True(t, mm.CheckAction("fullscreen"))
		mm.observe(start.Add(300*time.Millisecond), 0, 0, middle, Modifiers{})
		assert.False(t, mm.CheckAction("fullscreen"), "a third click starts over")
		mm.observe(start.Add(time.Second), 0, 0, middle, Modifiers{})
		assert.False(t, mm.CheckAction("fullscreen"), "too slow")
	})

	t.Run("disabled", func(t *testing.T) {
		mm := newManager()
		settings := mm.GetSettings()
		settings.EnableMouse = false
		mm.UpdateSettings(settings)
		mm.observe(start, 0, -4, nil, Modifiers{})
		assert.False(t, mm.CheckAction("next"))
	})
}
