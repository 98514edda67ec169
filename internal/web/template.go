package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/soil-node/internal/logic"
	"github.com/sweeney/soil-node/internal/status"
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
	"percent": func(v *float64) string {
		if v == nil {
			return "n/a"
		}
		return fmt.Sprintf("%.0f%%", *v)
	},
	"water": func(w *logic.WaterLevel) string {
		if w == nil {
			return "n/a"
		}
		return string(*w)
	},
	"isLow": func(w *logic.WaterLevel) bool {
		return w != nil && *w == logic.WaterLow
	},
	"reading": func(v *float64, unit string) string {
		if v == nil {
			return "n/a"
		}
		return fmt.Sprintf("%.2f %s", *v, unit)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="10">
<title>Soil Node {{.Config.NodeID}}</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.low { color: red; font-weight: bold; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Soil Node {{.Config.NodeID}}</h1>

<h2>Pump</h2>
<table>
<tr><th>Pump</th><td id="pump-state" class="{{if .Pump.On}}on{{else}}off{{end}}">{{if .Pump.On}}ON{{else}}OFF{{end}}</td></tr>
<tr><th>Cycle</th><td>{{.Cycle}}</td></tr>
</table>

<h2>Readings</h2>
<table>
{{if .ReadingsAt.IsZero}}<tr><td>no readings yet</td></tr>{{else}}
<tr><th>Soil moisture</th><td>{{percent .Readings.SoilPercent}}</td></tr>
<tr><th>Light</th><td>{{percent .Readings.LightPercent}}</td></tr>
<tr><th>Water level</th><td{{if isLow .Readings.Water}} class="low"{{end}}>{{water .Readings.Water}}</td></tr>
<tr><th>Measured</th><td>{{.ReadingsAt.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
{{end}}
<tr><th>Temperature</th><td>{{reading .Temperature "C"}}</td></tr>
<tr><th>Battery</th><td>{{reading .Battery "V"}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Counts</h2>
<table>
<tr><th>Cycles</th><td>{{.Counts.Cycles}}</td></tr>
<tr><th>Pump ON</th><td>{{.Counts.PumpOn}}</td></tr>
<tr><th>Pump OFF</th><td>{{.Counts.PumpOff}}</td></tr>
<tr><th>Read failures</th><td>{{.Counts.ReadFailures}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Interval</th><td>{{.Config.IntervalMs}}ms ({{.Config.ActiveIntervalMs}}ms while pumping)</td></tr>
<tr><th>Pump limit</th><td>{{.Config.PumpOnMs}}ms</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> | <a href="/metrics">metrics</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
