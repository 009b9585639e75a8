package gpio

import (
	"time"

	"github.com/androbi-embedded/hello-dongle/internal/logic"
)

// debouncer turns periodic button samples into edges. A new state is
// reported only after it has been sampled unchanged for the debounce period;
// shorter excursions are discarded. A zero period reports every change.
type debouncer struct {
	period  time.Duration
	stable  logic.Mask
	pending logic.Mask
	since   time.Time
}

func newDebouncer(initial logic.Mask, period time.Duration) *debouncer {
	return &debouncer{period: period, stable: initial, pending: initial}
}

// sample feeds one reading taken at now. ok is true when an edge is due.
func (d *debouncer) sample(cur logic.Mask, now time.Time) (state, changed logic.Mask, ok bool) {
	if cur == d.stable {
		d.pending = cur
		return 0, 0, false
	}
	if cur != d.pending {
		d.pending = cur
		d.since = now
	}
	if now.Sub(d.since) < d.period {
		return 0, 0, false
	}
	changed = cur ^ d.stable
	d.stable = cur
	return cur, changed, true
}
