//go:build linux

package gpio

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/stianeikeland/go-rpio/v4"

	"github.com/androbi-embedded/hello-dongle/internal/logic"
)

// RpioBoard drives a button and indicators through memory-mapped Raspberry Pi
// registers. The hardware offers no edge callbacks here, so edges are derived
// by sampling the button every Pins.Poll and debounced in software over
// Pins.Debounce.
type RpioBoard struct {
	pins   Pins
	button rpio.Pin
	leds   map[logic.Indicator]rpio.Pin

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// NewRpioBoard maps the GPIO registers and configures the pins.
func NewRpioBoard(pins Pins) (*RpioBoard, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("open rpio: %w", err)
	}

	b := &RpioBoard{
		pins:   pins,
		button: rpio.Pin(pins.Button),
		leds:   make(map[logic.Indicator]rpio.Pin),
	}
	b.button.Input()
	b.button.PullUp()

	for id, offset := range pins.indicators() {
		p := rpio.Pin(offset)
		p.Output()
		p.Low()
		b.leds[id] = p
	}
	return b, nil
}

// Watch starts the polling goroutine that delivers edges to h.
func (b *RpioBoard) Watch(h EdgeHandler) error {
	if h == nil {
		return errors.New("nil edge handler")
	}
	poll := b.pins.Poll
	if poll <= 0 {
		return fmt.Errorf("invalid poll interval %v", poll)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stop != nil {
		return errors.New("already watching")
	}
	b.stop = make(chan struct{})
	b.done = make(chan struct{})

	go b.pollLoop(h, poll, b.stop, b.done)
	return nil
}

func (b *RpioBoard) pollLoop(h EdgeHandler, poll time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	initial, _ := b.Buttons()
	deb := newDebouncer(initial, b.pins.Debounce)
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			cur, _ := b.Buttons()
			if state, changed, ok := deb.sample(cur, now); ok {
				h(state, changed)
			}
		}
	}
}

// Buttons samples the button pin. The pin is pulled up, so low means pressed.
func (b *RpioBoard) Buttons() (logic.Mask, error) {
	if b.button.Read() == rpio.Low {
		return logic.Button1, nil
	}
	return 0, nil
}

// SetIndicator sets an indicator pin. Missing pins are skipped.
func (b *RpioBoard) SetIndicator(id logic.Indicator, on bool) error {
	p, ok := b.leds[id]
	if !ok {
		return nil
	}
	if on {
		p.High()
	} else {
		p.Low()
	}
	return nil
}

// Close stops polling, returns the indicator pins to inputs and unmaps the registers.
func (b *RpioBoard) Close() error {
	b.mu.Lock()
	stop, done := b.stop, b.done
	b.stop = nil
	b.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
	for _, p := range b.leds {
		p.Low()
		p.Input()
	}
	if err := rpio.Close(); err != nil {
		return fmt.Errorf("close rpio: %w", err)
	}
	return nil
}
