package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/dhoward/airnode/internal/status"
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
	"mask": func(m uint32) string {
		return fmt.Sprintf("0b%b", m)
	},
	"phaseOrIdle": func(s string) string {
		if s == "" {
			return "IDLE"
		}
		return s
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Airnode</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: red; font-weight: bold; }
.off { color: #888; }
</style>
</head>
<body>
<h1>Airnode {{.Config.NodeID}}</h1>

<h2>Alarm</h2>
<table>
<tr><th>Sounding</th><td class="{{if .Sounding}}on{{else}}off{{end}}">{{if .Sounding}}YES{{else}}no{{end}}</td></tr>
<tr><th>Reason Mask</th><td>{{mask .AlarmMask}}</td></tr>
<tr><th>Test Running</th><td>{{if .TestRunning}}yes{{else}}no{{end}}</td></tr>
</table>

<h2>Channels</h2>
<table>
<tr><th>Name</th><td>Value / Ro / Misses</td></tr>
{{range .Channels}}<tr><th>{{.Name}}</th><td>{{.Value}} / {{printf "%.2f" .Ro}} / {{.Misses}}</td></tr>
{{end}}</table>

<h2>Power</h2>
<table>
<tr><th>Sleep Lock Mask</th><td>{{mask .SleepMask}}</td></tr>
<tr><th>Duty Phase</th><td>{{phaseOrIdle .DutyPhase}}</td></tr>
<tr><th>Wakes</th><td>{{.Wakes}}</td></tr>
</table>

<h2>Transport</h2>
<table>
<tr><th>Published</th><td>{{.Published}}</td></tr>
<tr><th>Dropped</th><td>{{.Dropped}}</td></tr>
{{if .Config.Broker}}<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>{{end}}
{{if .Config.SerialPort}}<tr><th>Serial</th><td>{{.Config.SerialPort}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but the template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
