package status

import (
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string     `json:"event,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	Cycle         string     `json:"cycle"`
	Press         PressJSON  `json:"press"`
	Heartbeat     BeatJSON   `json:"heartbeat"`
	GPIOError     string     `json:"gpio_error,omitempty"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	StartTime     string     `json:"start_time"`
	Timestamp     string     `json:"timestamp"`
	MQTT          MQTTStatus `json:"mqtt"`
	Counts        CountsJSON `json:"event_counts"`
	Config        ConfigJSON `json:"config"`
}

// PressJSON is the JSON representation of the press context.
type PressJSON struct {
	State     string `json:"state"`
	LongPress bool   `json:"long_press"`
}

// BeatJSON reports the heartbeat indicator.
type BeatJSON struct {
	On    bool `json:"on"`
	Beats int  `json:"beats"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	Clicks     int `json:"clicks"`
	LongPress  int `json:"long_press"`
	Ignored    int `json:"ignored"`
	Revalidate int `json:"revalidated"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Backend    string `json:"backend"`
	IntervalMs int64  `json:"interval_ms"`
	BlinkMs    int64  `json:"blink_ms"`
	DebounceMs int64  `json:"debounce_ms"`
	Broker     string `json:"broker,omitempty"`
	HTTPAddr   string `json:"http_addr,omitempty"`
}

func buildInner(snap Snapshot) StatusInner {
	state := string(snap.Press.State)
	if state == "" {
		state = "UNKNOWN"
	}

	return StatusInner{
		Cycle:         snap.Cycle.String(),
		Press:         PressJSON{State: state, LongPress: snap.Press.LongPress},
		Heartbeat:     BeatJSON{On: snap.HeartbeatOn, Beats: snap.Beats},
		GPIOError:     snap.GPIOError,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Clicks:     snap.Counts.Clicks,
			LongPress:  snap.Counts.LongPress,
			Ignored:    snap.Counts.Ignored,
			Revalidate: snap.Counts.Revalidate,
		},
		Config: ConfigJSON{
			Backend:    snap.Config.Backend,
			IntervalMs: snap.Config.IntervalMs,
			BlinkMs:    snap.Config.BlinkMs,
			DebounceMs: snap.Config.DebounceMs,
			Broker:     snap.Config.Broker,
			HTTPAddr:   snap.Config.HTTPAddr,
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
