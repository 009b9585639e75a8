// Package heartbeat blinks the status indicator to show the daemon is alive.
package heartbeat

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/androbi-embedded/hello-dongle/internal/logic"
)

// DefaultPeriod is the on (and off) phase length.
const DefaultPeriod = 500 * time.Millisecond

// SleepFunc suspends for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default SleepFunc. It does not busy-wait.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Heartbeat toggles one indicator at a fixed cadence. It shares nothing with
// the press classifier except the indicator writer.
type Heartbeat struct {
	Out       logic.IndicatorWriter
	Indicator logic.Indicator
	Period    time.Duration
	Sleep     SleepFunc
	Log       *logrus.Entry

	// OnToggle, if set, is called after each write with the new state.
	OnToggle func(on bool)
}

// New creates a heartbeat on the status indicator with the default period.
func New(out logic.IndicatorWriter, log *logrus.Entry) *Heartbeat {
	return &Heartbeat{
		Out:       out,
		Indicator: logic.IndicatorStatus,
		Period:    DefaultPeriod,
		Sleep:     Sleep,
		Log:       log,
	}
}

// Run blinks until ctx is cancelled: on, sleep, off, sleep. Write failures
// are logged and the loop carries on. On return the indicator is left off
// and ctx.Err() is returned.
func (h *Heartbeat) Run(ctx context.Context) error {
	period := h.Period
	if period <= 0 {
		period = DefaultPeriod
	}
	sleep := h.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	defer h.set(false)
	for {
		for _, on := range [2]bool{true, false} {
			h.set(on)
			if err := sleep(ctx, period); err != nil {
				return err
			}
		}
	}
}

func (h *Heartbeat) set(on bool) {
	if err := h.Out.SetIndicator(h.Indicator, on); err != nil && h.Log != nil {
		h.Log.WithError(err).WithField("on", on).Warn("heartbeat write failed")
	}
	if h.OnToggle != nil {
		h.OnToggle(on)
	}
}
