package logic

import (
	"errors"
	"fmt"
	"sync"
)

// CycleState is the state of the multi-state output indicator.
type CycleState int

const (
	CycleOff CycleState = iota
	CycleA
	CycleB
	CycleC
)

func (s CycleState) String() string {
	switch s {
	case CycleOff:
		return "OFF"
	case CycleA:
		return "A"
	case CycleB:
		return "B"
	case CycleC:
		return "C"
	}
	return "UNKNOWN"
}

// Next returns the state that follows s in the fixed OFF -> A -> B -> C -> OFF order.
func (s CycleState) Next() CycleState {
	return (s + 1) % 4
}

// Cycle owns the output cycle state and the indicators it lights.
// Advance is single-flight: concurrent callers are serialized.
type Cycle struct {
	mu    sync.Mutex
	out   IndicatorWriter
	leds  [3]Indicator // indicators lit in states A, B, C
	state CycleState
}

// NewCycle creates a Cycle in the OFF state driving indicators A, B and C.
func NewCycle(out IndicatorWriter) *Cycle {
	return &Cycle{
		out:  out,
		leds: [3]Indicator{IndicatorA, IndicatorB, IndicatorC},
	}
}

// Advance moves to the next state and updates the indicators.
// The previous indicator is switched off before the next is switched on, so
// at no point are two indicators lit. The state advances even when a write
// fails; the write errors are returned joined.
func (c *Cycle) Advance() (CycleState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	from := c.state
	to := from.Next()

	var errs []error
	if from != CycleOff {
		if err := c.out.SetIndicator(c.led(from), false); err != nil {
			errs = append(errs, fmt.Errorf("switch off %s: %w", c.led(from), err))
		}
	}
	if to != CycleOff {
		if err := c.out.SetIndicator(c.led(to), true); err != nil {
			errs = append(errs, fmt.Errorf("switch on %s: %w", c.led(to), err))
		}
	}

	c.state = to
	return to, errors.Join(errs...)
}

// State returns the current cycle state.
func (c *Cycle) State() CycleState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Cycle) led(s CycleState) Indicator {
	return c.leds[s-1]
}
