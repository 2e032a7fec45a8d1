package report

import (
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"time"

	"live-auction/internal/analytics"

	"github.com/goccy/go-json"
)

var funcs = template.FuncMap{
	"rupees": func(n int64) string { return "₹" + groupThousands(n) },
	"ratio":  func(f float64) string { return fmt.Sprintf("%.1fx", f) },
	"stamp": func(ms int64, loc *time.Location) string {
		return time.UnixMilli(ms).In(loc).Format("2006-01-02 15:04:05 MST")
	},
}

var page = template.Must(template.New("report").Funcs(funcs).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>{{.M.RoomID}} Report</title>
<script src="https://cdn.jsdelivr.net/npm/chart.js"></script>
<style>
body { background: #0a0a0a; color: #e0e0e0; font-family: sans-serif; padding: 20px; }
.grid { display: grid; grid-template-columns: repeat(4, 1fr); gap: 15px; margin-bottom: 30px; }
.card { background: #1a1a1a; padding: 20px; border-radius: 8px; border: 1px solid #333; text-align: center; }
.val { font-size: 28px; font-weight: bold; color: #fff; }
.lbl { font-size: 11px; text-transform: uppercase; color: #888; margin-bottom: 5px; }
.highlight { color: #FF6600; }
.section { background: #1a1a1a; border: 1px solid #333; padding: 20px; border-radius: 8px; margin-bottom: 20px; }
h2 { font-size: 14px; text-transform: uppercase; color: #888; margin-top: 0; border-bottom: 1px solid #333; padding-bottom: 10px; }
table { width: 100%; border-collapse: collapse; font-size: 13px; }
td, th { padding: 8px; text-align: left; border-bottom: 1px solid #333; }
th { color: #888; }
</style>
</head>
<body>
<h1 style="color:#FF6600">{{.M.RoomID}} <span style="color:#fff; font-size:16px">ANALYTICS</span></h1>
<p style="color:#666; font-size:12px; margin-bottom:30px">{{stamp .M.Window.Start .Loc}} to {{stamp .M.Window.End .Loc}}</p>

<div class="grid">
<div class="card"><div class="lbl">Revenue</div><div class="val highlight">{{rupees .M.Revenue}}</div></div>
<div class="card"><div class="lbl">Real Users</div><div class="val">{{.M.RealUsers}}</div></div>
<div class="card"><div class="lbl">Items Sold / Showcased</div><div class="val">{{.M.ItemsSold}} / {{.M.ItemsShowcased}}</div></div>
<div class="card"><div class="lbl">Avg Viewers (Est)</div><div class="val">{{.M.AvgViewers}}</div></div>
<div class="card"><div class="lbl">Total Bids</div><div class="val">{{.M.TotalBids}}</div></div>
<div class="card"><div class="lbl">Avg Price Increase</div><div class="val">{{ratio .M.Multipliers.Average}}</div></div>
<div class="card"><div class="lbl">Highest Multiplier</div><div class="val">{{ratio .M.Multipliers.Highest}}</div><div class="lbl">{{.M.Multipliers.HighestItem}}</div></div>
<div class="card"><div class="lbl">Sales Conversion</div><div class="val">{{.M.ConversionPercent}}%</div></div>
</div>

<div class="section">
<h2>Bid Volume vs New Joins (5 min intervals)</h2>
<canvas id="mainChart" height="80"></canvas>
</div>

<div style="display: grid; grid-template-columns: 1fr 1fr; gap: 20px;">
<div class="section">
<h2>Top 5 Bidders (Total Volume)</h2>
<table>
<tr><th>User</th><th>Total Pledged</th></tr>
{{range .M.TopBidders}}<tr><td>{{.Name}}</td><td class="highlight">{{rupees .Total}}</td></tr>
{{end}}</table>
</div>
<div class="section">
<h2>Unsold Items</h2>
<table>
<tr><th>Item</th><th>Start Price</th></tr>
{{range .M.Unsold}}<tr><td>{{.Name}}</td><td>{{rupees .StartingPrice}}</td></tr>
{{else}}<tr><td colspan="2" style="text-align:center; padding:20px; color:#555">All items sold!</td></tr>
{{end}}</table>
</div>
</div>

<script>
new Chart(document.getElementById('mainChart'), {
  type: 'line',
  data: {
    labels: {{.M.BucketLabels}},
    datasets: [
      { label: 'Bids Placed', data: {{.M.BidCounts}}, borderColor: '#00ccff', tension: 0.3 },
      { label: 'New Users', data: {{.M.JoinCounts}}, borderColor: '#FF6600', borderDash: [5,5], tension: 0.3 }
    ]
  },
  options: { scales: { y: { beginAtZero: true, grid: { color: '#333' } }, x: { grid: { color: '#333' } } } }
});
</script>
</body>
</html>
`))

// Render writes the HTML report for m. Times are shown in loc, UTC when nil.
func Render(w io.Writer, m analytics.Metrics, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	return page.Execute(w, struct {
		M   analytics.Metrics
		Loc *time.Location
	}{M: m, Loc: loc})
}

// HTMLPath is the report file name for a room
func HTMLPath(dir, roomID string) string {
	return filepath.Join(dir, "report_"+roomID+".html")
}

// JSONPath is the metrics file name for a room
func JSONPath(dir, roomID string) string {
	return filepath.Join(dir, "report_"+roomID+".json")
}

// WriteHTML renders the report into dir and returns the file path
func WriteHTML(dir string, m analytics.Metrics, loc *time.Location) (string, error) {
	path := HTMLPath(dir, m.RoomID)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("report: failed to create %s: %w", path, err)
	}
	if err := Render(f, m, loc); err != nil {
		f.Close()
		return "", fmt.Errorf("report: failed to render %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("report: failed to write %s: %w", path, err)
	}
	return path, nil
}

// WriteJSON writes the raw metrics into dir and returns the file path
func WriteJSON(dir string, m analytics.Metrics) (string, error) {
	path := JSONPath(dir, m.RoomID)
	raw, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("report: failed to encode metrics: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", fmt.Errorf("report: failed to write %s: %w", path, err)
	}
	return path, nil
}

func groupThousands(n int64) string {
	neg := n < 0
	if neg {
		n = -n
	}
	s := fmt.Sprintf("%d", n)
	out := make([]byte, 0, len(s)+len(s)/3)
	for i := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}
