// Package status provides a thread-safe status tracker for the hello-dongle daemon.
// It is written by the controller and heartbeat goroutines and read by HTTP
// handlers and the MQTT lifecycle events.
package status

import (
	"sync"
	"time"

	"github.com/androbi-embedded/hello-dongle/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	Backend    string
	IntervalMs int64
	BlinkMs    int64
	DebounceMs int64
	Broker     string
	HTTPAddr   string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Cycle         logic.CycleState
	Press         logic.PressContext
	Counts        logic.EventCounts
	HeartbeatOn   bool
	Beats         int
	GPIOError     string // last init error, empty when fully configured
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Press:     logic.PressContext{State: logic.PressIdle},
			Config:    cfg,
		},
		now: time.Now,
	}
}

// ObservePress records classifier and cycle state.
// Called from the controller's dispatch goroutine after every edge or expiry.
func (t *Tracker) ObservePress(ctx logic.PressContext, cycle logic.CycleState, counts logic.EventCounts) {
	t.mu.Lock()
	t.snap.Press = ctx
	t.snap.Cycle = cycle
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetHeartbeat records the status indicator state.
func (t *Tracker) SetHeartbeat(on bool) {
	t.mu.Lock()
	t.snap.HeartbeatOn = on
	if on {
		t.snap.Beats++
	}
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetGPIOError records a degraded GPIO initialization.
func (t *Tracker) SetGPIOError(err error) {
	t.mu.Lock()
	if err != nil {
		t.snap.GPIOError = err.Error()
	} else {
		t.snap.GPIOError = ""
	}
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
