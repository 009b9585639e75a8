//go:build !linux

package gpio

import (
	"errors"

	"github.com/androbi-embedded/hello-dongle/internal/logic"
)

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// CdevBoard is not available on non-Linux platforms.
type CdevBoard struct{}

// NewCdevBoard returns a no-op board and an error on non-Linux platforms.
func NewCdevBoard(pins Pins) (*CdevBoard, error) {
	return &CdevBoard{}, errUnsupported
}

// Watch is not implemented on non-Linux platforms.
func (b *CdevBoard) Watch(h EdgeHandler) error { return errUnsupported }

// Buttons is not implemented on non-Linux platforms.
func (b *CdevBoard) Buttons() (logic.Mask, error) { return 0, errUnsupported }

// SetIndicator is a no-op on non-Linux platforms.
func (b *CdevBoard) SetIndicator(id logic.Indicator, on bool) error { return nil }

// Close is a no-op on non-Linux platforms.
func (b *CdevBoard) Close() error { return nil }

// RpioBoard is not available on non-Linux platforms.
type RpioBoard struct {
	CdevBoard
}

// NewRpioBoard returns an error on non-Linux platforms.
func NewRpioBoard(pins Pins) (*RpioBoard, error) {
	return nil, errUnsupported
}
