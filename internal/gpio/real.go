//go:build linux

package gpio

import (
	"errors"
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"

	"github.com/androbi-embedded/hello-dongle/internal/logic"
)

// CdevBoard drives a button and indicators through the Linux GPIO character device.
// Button edges are delivered by the kernel via an event handler goroutine.
type CdevBoard struct {
	chip *gpiocdev.Chip
	pins Pins

	mu      sync.Mutex
	button  *gpiocdev.Line
	leds    map[logic.Indicator]*gpiocdev.Line
	handler EdgeHandler
	pressed bool
}

// NewCdevBoard opens the chip and requests the indicator lines.
// The button line is requested by Watch, since the edge handler must be
// supplied with the request.
//
// Failures on individual lines are not fatal: the returned board is always
// usable and writes to missing indicators are silently skipped. The returned
// error joins every line that could not be configured.
func NewCdevBoard(pins Pins) (*CdevBoard, error) {
	b := &CdevBoard{
		pins: pins,
		leds: make(map[logic.Indicator]*gpiocdev.Line),
	}

	chip, err := gpiocdev.NewChip(pins.Chip)
	if err != nil {
		return b, fmt.Errorf("open gpio chip %s: %w", pins.Chip, err)
	}
	b.chip = chip

	var errs []error
	for id, offset := range pins.indicators() {
		l, err := chip.RequestLine(offset, gpiocdev.AsOutput(0))
		if err != nil {
			errs = append(errs, fmt.Errorf("request %s indicator pin %d: %w", id, offset, err))
			continue
		}
		b.leds[id] = l
	}
	return b, errors.Join(errs...)
}

// Watch requests the button line with edge detection and registers h.
func (b *CdevBoard) Watch(h EdgeHandler) error {
	if b.chip == nil {
		return errors.New("gpio chip not available")
	}

	b.mu.Lock()
	b.handler = h
	b.mu.Unlock()

	opts := []gpiocdev.LineReqOption{
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.AsActiveLow,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(b.onEdge),
	}
	if b.pins.Debounce > 0 {
		opts = append(opts, gpiocdev.WithDebounce(b.pins.Debounce))
	}

	l, err := b.chip.RequestLine(b.pins.Button, opts...)
	if err != nil {
		return fmt.Errorf("request button pin %d: %w", b.pins.Button, err)
	}

	b.mu.Lock()
	b.button = l
	b.mu.Unlock()
	return nil
}

// onEdge converts a line event into a bitmask edge. The line is active-low,
// so a rising edge is a press.
func (b *CdevBoard) onEdge(evt gpiocdev.LineEvent) {
	pressed := evt.Type == gpiocdev.LineEventRisingEdge

	b.mu.Lock()
	if pressed == b.pressed {
		// repeated edge of the same direction, nothing changed
		b.mu.Unlock()
		return
	}
	b.pressed = pressed
	h := b.handler
	b.mu.Unlock()

	var state logic.Mask
	if pressed {
		state = logic.Button1
	}
	if h != nil {
		h(state, logic.Button1)
	}
}

// Buttons reads the button line directly.
func (b *CdevBoard) Buttons() (logic.Mask, error) {
	b.mu.Lock()
	l := b.button
	b.mu.Unlock()
	if l == nil {
		return 0, errors.New("button line not requested")
	}

	v, err := l.Value()
	if err != nil {
		return 0, fmt.Errorf("read button pin: %w", err)
	}
	if v == 1 {
		return logic.Button1, nil
	}
	return 0, nil
}

// SetIndicator sets an indicator line. Missing lines are skipped.
func (b *CdevBoard) SetIndicator(id logic.Indicator, on bool) error {
	l, ok := b.leds[id]
	if !ok {
		return nil
	}
	if err := l.SetValue(boolToValue(on)); err != nil {
		return fmt.Errorf("set %s indicator: %w", id, err)
	}
	return nil
}

// Close releases GPIO resources.
// Lines are reconfigured as inputs before closing so that nothing is left
// driven after the daemon exits.
func (b *CdevBoard) Close() error {
	var errs []error

	b.mu.Lock()
	button := b.button
	b.button = nil
	b.mu.Unlock()

	if button != nil {
		if err := button.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close button pin: %w", err))
		}
	}
	for id, l := range b.leds {
		if err := l.Reconfigure(gpiocdev.AsInput); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure %s pin: %w", id, err))
		}
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s pin: %w", id, err))
		}
	}
	if b.chip != nil {
		if err := b.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
