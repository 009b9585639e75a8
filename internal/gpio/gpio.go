// Package gpio provides button and indicator access with hardware abstraction.
// The cdev implementation uses the Linux GPIO character device, the rpio
// implementation uses memory-mapped registers on a Raspberry Pi.
// The fake implementation allows testing without hardware.
package gpio

import (
	"time"

	"github.com/androbi-embedded/hello-dongle/internal/logic"
)

// EdgeHandler receives the current button bitmask and the bits that changed.
type EdgeHandler func(state, changed logic.Mask)

// Board is the platform abstraction consumed by the controller and heartbeat.
type Board interface {
	// Watch registers the edge handler. Edges may be delivered from any
	// goroutine, at least once per physical transition, in order per button.
	Watch(h EdgeHandler) error

	// Buttons returns a synchronous snapshot of the pressed buttons.
	Buttons() (logic.Mask, error)

	// SetIndicator drives an indicator. Idempotent. Writing an indicator
	// whose line was never configured (a degraded board) is a silent no-op.
	SetIndicator(id logic.Indicator, on bool) error

	// Close releases GPIO resources.
	Close() error
}

// Pin definitions (BCM numbering)
const (
	DefaultChip      = "gpiochip0"
	DefaultPinButton = 17
	DefaultPinStatus = 27
	DefaultPinA      = 22
	DefaultPinB      = 23
	DefaultPinC      = 24
)

// Pins selects the lines used for the button and the indicators.
type Pins struct {
	Chip     string
	Button   int
	Status   int
	A, B, C  int
	Debounce time.Duration // kernel debounce on the button line, 0 disables
	Poll     time.Duration // edge polling period for backends without edge events
}

// DefaultPins returns the default pin assignment.
func DefaultPins() Pins {
	return Pins{
		Chip:     DefaultChip,
		Button:   DefaultPinButton,
		Status:   DefaultPinStatus,
		A:        DefaultPinA,
		B:        DefaultPinB,
		C:        DefaultPinC,
		Debounce: 10 * time.Millisecond,
		Poll:     10 * time.Millisecond,
	}
}

func (p Pins) indicators() map[logic.Indicator]int {
	return map[logic.Indicator]int{
		logic.IndicatorStatus: p.Status,
		logic.IndicatorA:      p.A,
		logic.IndicatorB:      p.B,
		logic.IndicatorC:      p.C,
	}
}

func boolToValue(on bool) int {
	if on {
		return 1
	}
	return 0
}
