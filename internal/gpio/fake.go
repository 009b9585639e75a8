package gpio

import (
	"errors"
	"sync"

	"github.com/androbi-embedded/hello-dongle/internal/logic"
)

// FakeBoard is a test double with scripted buttons and recorded indicator writes.
// Safe for concurrent use.
type FakeBoard struct {
	mu      sync.Mutex
	handler EdgeHandler
	buttons logic.Mask
	lit     map[logic.Indicator]bool
	writes  []Write

	// ReadError, if set, will be returned by Buttons().
	ReadError error

	// WriteError, if set, will be returned by SetIndicator() (the write is still recorded).
	WriteError error

	// Closed tracks if Close was called
	Closed bool
}

// Write is a single recorded indicator write.
type Write struct {
	ID logic.Indicator
	On bool
}

// NewFakeBoard creates a FakeBoard with all buttons released and indicators off.
func NewFakeBoard() *FakeBoard {
	return &FakeBoard{lit: make(map[logic.Indicator]bool)}
}

// Watch registers the edge handler.
func (f *FakeBoard) Watch(h EdgeHandler) error {
	if h == nil {
		return errors.New("nil edge handler")
	}
	f.mu.Lock()
	f.handler = h
	f.mu.Unlock()
	return nil
}

// Buttons returns the scripted button mask.
func (f *FakeBoard) Buttons() (logic.Mask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ReadError != nil {
		return 0, f.ReadError
	}
	return f.buttons, nil
}

// SetIndicator records the write.
func (f *FakeBoard) SetIndicator(id logic.Indicator, on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, Write{ID: id, On: on})
	if f.WriteError != nil {
		return f.WriteError
	}
	f.lit[id] = on
	return nil
}

// Close marks the board as closed.
func (f *FakeBoard) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// Press sets the buttons in m as held and delivers an edge.
func (f *FakeBoard) Press(m logic.Mask) {
	f.update(func(cur logic.Mask) logic.Mask { return cur | m })
}

// Release clears the buttons in m and delivers an edge.
func (f *FakeBoard) Release(m logic.Mask) {
	f.update(func(cur logic.Mask) logic.Mask { return cur &^ m })
}

// SetButtons changes the live button mask without delivering an edge,
// simulating an edge that has not been delivered yet.
func (f *FakeBoard) SetButtons(m logic.Mask) {
	f.mu.Lock()
	f.buttons = m
	f.mu.Unlock()
}

// Emit delivers an arbitrary edge without touching the live mask.
func (f *FakeBoard) Emit(state, changed logic.Mask) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	if h != nil {
		h(state, changed)
	}
}

func (f *FakeBoard) update(fn func(logic.Mask) logic.Mask) {
	f.mu.Lock()
	next := fn(f.buttons)
	changed := f.buttons ^ next
	f.buttons = next
	h := f.handler
	f.mu.Unlock()
	if h != nil && changed != 0 {
		h(next, changed)
	}
}

// Lit reports whether an indicator is currently on.
func (f *FakeBoard) Lit(id logic.Indicator) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lit[id]
}

// Writes returns a copy of the recorded writes.
func (f *FakeBoard) Writes() []Write {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Write(nil), f.writes...)
}

// WritesFor returns the recorded writes for one indicator.
func (f *FakeBoard) WritesFor(id logic.Indicator) []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []bool
	for _, w := range f.writes {
		if w.ID == id {
			out = append(out, w.On)
		}
	}
	return out
}

// Reset clears recorded writes and releases all buttons.
func (f *FakeBoard) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = nil
	f.buttons = 0
	f.lit = make(map[logic.Indicator]bool)
	f.Closed = false
}
