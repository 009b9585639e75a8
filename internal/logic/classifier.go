package logic

import (
	"fmt"
	"time"
)

// DefaultPollInterval is the long-press threshold and repeat period.
const DefaultPollInterval = 200 * time.Millisecond

// PressState is the classifier's position in a press session.
type PressState string

const (
	PressIdle    PressState = "IDLE"
	PressWaiting PressState = "PRESSED_WAITING"
	PressLong    PressState = "LONG_ACTIVE"
)

// PressContext is the state of the current press session.
type PressContext struct {
	// Button being tracked for the current hold (zero when idle).
	HeldMask Mask
	// Set once the current hold was recognized as a long press.
	// Consulted at release to decide between click and long press.
	LongPress bool
	State     PressState
}

// Classifier turns edge events and timer expiries into clicks and long presses.
//
// It is not safe for concurrent use: edges and expiries must be delivered from
// a single goroutine (see internal/controller).
type Classifier struct {
	tracked  Mask
	interval time.Duration
	timer    Timer
	buttons  ButtonReader
	cycle    Advancer

	ctx    PressContext
	counts EventCounts
}

// NewClassifier creates a classifier tracking the given button mask.
// A non-positive interval falls back to DefaultPollInterval.
func NewClassifier(tracked Mask, interval time.Duration, timer Timer, buttons ButtonReader, cycle Advancer) *Classifier {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Classifier{
		tracked:  tracked,
		interval: interval,
		timer:    timer,
		buttons:  buttons,
		cycle:    cycle,
		ctx:      PressContext{State: PressIdle},
	}
}

// HandleEdge processes a button edge. state is the current bitmask, changed
// the bits that changed. It returns an event when the release completed a
// short click. Dropped edges return one of the Err* sentinels wrapped with
// context and leave the press context untouched. A non-nil event may come
// with a non-nil error when the cycle advanced but an indicator write failed.
func (c *Classifier) HandleEdge(state, changed Mask, now time.Time) (*Event, error) {
	if changed != c.tracked {
		c.counts.Ignored++
		return nil, fmt.Errorf("%w: changed=%#x", ErrUntrackedButton, changed)
	}

	switch state {
	case c.tracked:
		return nil, c.press()
	case 0:
		return c.release(now)
	default:
		c.counts.Ignored++
		return nil, fmt.Errorf("%w: state=%#x", ErrUnhandledMask, state)
	}
}

func (c *Classifier) press() error {
	if c.ctx.State != PressIdle {
		c.counts.Ignored++
		return fmt.Errorf("%w: press in %s", ErrUnexpectedEdge, c.ctx.State)
	}
	c.ctx.HeldMask = c.tracked
	c.ctx.LongPress = false
	c.timer.Start(c.interval)
	c.ctx.State = PressWaiting
	return nil
}

func (c *Classifier) release(now time.Time) (*Event, error) {
	if c.ctx.State == PressIdle {
		c.counts.Ignored++
		return nil, fmt.Errorf("%w: release in %s", ErrUnexpectedEdge, c.ctx.State)
	}

	c.timer.Stop()
	long := c.ctx.LongPress
	c.ctx = PressContext{State: PressIdle}
	if long {
		return nil, nil
	}

	c.counts.Clicks++
	to, err := c.cycle.Advance()
	return &Event{Timestamp: now, Type: EventClick, Cycle: to}, err
}

// HandleExpiry processes a timer expiry. The live button state is re-read so
// that a release racing with the expiry never advances the cycle twice.
// Expiries delivered while idle are ignored.
//
// When the button is found up (or cannot be read) before the first repeat,
// the session stays in PressWaiting without re-arming: the release edge is
// still in flight and completes the click. After a long press has fired the
// session ends here and the late release edge is dropped.
func (c *Classifier) HandleExpiry(now time.Time) (*Event, error) {
	if c.ctx.State == PressIdle {
		return nil, nil
	}

	live, err := c.buttons.Buttons()
	if err != nil || live&c.ctx.HeldMask == 0 {
		c.counts.Revalidate++
		if c.ctx.State == PressLong {
			c.ctx = PressContext{State: PressIdle}
		} else {
			c.ctx.LongPress = false
		}
		if err != nil {
			return nil, fmt.Errorf("read buttons: %w", err)
		}
		return nil, nil
	}

	c.ctx.LongPress = true
	c.ctx.State = PressLong
	c.counts.LongPress++
	to, err := c.cycle.Advance()
	c.timer.Start(c.interval)
	return &Event{Timestamp: now, Type: EventLongPress, Cycle: to}, err
}

// Context returns a copy of the current press context.
func (c *Classifier) Context() PressContext {
	return c.ctx
}

// Counts returns a copy of the event counters.
func (c *Classifier) Counts() EventCounts {
	return c.counts
}

// Interval returns the poll interval in use.
func (c *Classifier) Interval() time.Duration {
	return c.interval
}
