package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/androbi-embedded/hello-dongle/internal/logic"
	"github.com/androbi-embedded/hello-dongle/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"lit": func(cur, want logic.CycleState) string {
		if cur == want {
			return "on"
		}
		return "off"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="2">
<title>Hello Dongle</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
.warn { color: orange; }
</style>
</head>
<body>
<h1>Hello Dongle</h1>

<h2>Output</h2>
<table>
<tr><th>Cycle</th><td>{{.Cycle}}</td></tr>
<tr><th>A</th><td class="{{lit .Cycle .A}}">{{lit .Cycle .A}}</td></tr>
<tr><th>B</th><td class="{{lit .Cycle .B}}">{{lit .Cycle .B}}</td></tr>
<tr><th>C</th><td class="{{lit .Cycle .C}}">{{lit .Cycle .C}}</td></tr>
<tr><th>Heartbeat</th><td class="{{if .HeartbeatOn}}on{{else}}off{{end}}">{{if .HeartbeatOn}}on{{else}}off{{end}} ({{.Beats}} beats)</td></tr>
</table>

<h2>Button</h2>
<table>
<tr><th>State</th><td>{{.Press.State}}</td></tr>
<tr><th>Long press</th><td>{{if .Press.LongPress}}yes{{else}}no{{end}}</td></tr>
<tr><th>Clicks</th><td>{{.Counts.Clicks}}</td></tr>
<tr><th>Long press repeats</th><td>{{.Counts.LongPress}}</td></tr>
<tr><th>Ignored edges</th><td>{{.Counts.Ignored}}</td></tr>
<tr><th>Released before check</th><td>{{.Counts.Revalidate}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>GPIO</th><td>{{.Config.Backend}}{{if .GPIOError}} <span class="warn">degraded: {{.GPIOError}}</span>{{end}}</td></tr>
<tr><th>Long press interval</th><td>{{.Config.IntervalMs}}ms</td></tr>
<tr><th>Blink</th><td>{{.Config.BlinkMs}}ms</td></tr>
<tr><th>Debounce</th><td>{{.Config.DebounceMs}}ms</td></tr>
{{if .Config.Broker}}<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{.Config.Broker}} {{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>{{end}}
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime  time.Duration
		A, B, C logic.CycleState
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		A:        logic.CycleA,
		B:        logic.CycleB,
		C:        logic.CycleC,
	}
	return indexTmpl.Execute(w, data)
}
