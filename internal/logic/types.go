// Package logic contains the press classification and output cycle state machines.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters; timers and button reads are
// reached through small interfaces so tests can drive them directly.
package logic

import (
	"errors"
	"time"
)

// Mask is a bitmask of button states, one bit per button.
type Mask uint32

// Button1 is the mask of the single tracked button.
const Button1 Mask = 1 << 0

// Indicator identifies a physical output indicator.
type Indicator int

const (
	IndicatorStatus Indicator = iota // heartbeat LED
	IndicatorA
	IndicatorB
	IndicatorC
)

func (i Indicator) String() string {
	switch i {
	case IndicatorStatus:
		return "STATUS"
	case IndicatorA:
		return "A"
	case IndicatorB:
		return "B"
	case IndicatorC:
		return "C"
	}
	return "UNKNOWN"
}

// IndicatorWriter drives indicators. Writing the same state twice is a no-op.
type IndicatorWriter interface {
	SetIndicator(id Indicator, on bool) error
}

// ButtonReader returns a synchronous snapshot of the physical button states.
type ButtonReader interface {
	Buttons() (Mask, error)
}

// Timer is a single countdown. Start re-arms it; Stop is always safe to call,
// including when the timer already fired or was never armed.
type Timer interface {
	Start(d time.Duration)
	Stop()
}

// Advancer moves the output cycle one step forward.
type Advancer interface {
	Advance() (CycleState, error)
}

// EventType identifies a classified press.
type EventType string

const (
	EventClick     EventType = "CLICK"
	EventLongPress EventType = "LONG_PRESS"
)

// Event is emitted each time a press advanced the output cycle.
type Event struct {
	Timestamp time.Time
	Type      EventType
	Cycle     CycleState
}

// EventCounts tracks classifier outcomes since startup.
type EventCounts struct {
	Clicks     int
	LongPress  int
	Ignored    int
	Revalidate int // expiries that found the button already released
}

// Dropped edge reasons. None of these are fatal; the edge is logged and ignored.
var (
	ErrUntrackedButton = errors.New("edge for untracked button")
	ErrUnhandledMask   = errors.New("unhandled button mask")
	ErrUnexpectedEdge  = errors.New("edge not valid in current press state")
)
