package output

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/torosent/barrage/internal/metrics"
	"github.com/torosent/barrage/internal/threshold"
)

// HTMLReportData contains all data needed for the HTML report template.
type HTMLReportData struct {
	GeneratedAt      string
	Run              RunInfo
	Report           metrics.Report
	Histogram        []htmlBar
	StatusCodes      []metrics.StatusCount
	Errors           []metrics.ErrorCount
	ThresholdSummary *ThresholdSummary
}

type htmlBar struct {
	Mark    time.Duration
	Count   int64
	Percent float64
}

// GenerateHTMLReport writes a standalone HTML page for the run. The page has
// no external assets.
func GenerateHTMLReport(w io.Writer, report metrics.Report, run RunInfo, thresholdResults []threshold.Result) error {
	data := HTMLReportData{
		GeneratedAt:      time.Now().Format(time.RFC3339),
		Run:              run,
		Report:           report,
		Histogram:        histogramBars(report.Histogram),
		StatusCodes:      metrics.SortedStatusCodes(report.StatusCodes),
		Errors:           metrics.SortedErrors(report.Errors),
		ThresholdSummary: summarizeThresholds(thresholdResults),
	}

	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"formatDuration": func(d time.Duration) string {
			return d.String()
		},
		"formatFloat": func(f float64) string {
			return fmt.Sprintf("%.2f", f)
		},
		"formatPercent": func(part, total int64) string {
			if total == 0 {
				return "0.0"
			}
			return fmt.Sprintf("%.1f", (float64(part)/float64(total))*100)
		},
		"formatPercentile": formatPercentile,
		"formatBytes":      formatBytes,
	}).Parse(htmlTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}

	return nil
}

func histogramBars(buckets []metrics.HistogramBucket) []htmlBar {
	var peak int64
	for _, b := range buckets {
		if b.Count > peak {
			peak = b.Count
		}
	}
	bars := make([]htmlBar, len(buckets))
	for i, b := range buckets {
		bars[i] = htmlBar{Mark: b.Mark, Count: b.Count}
		if peak > 0 {
			bars[i].Percent = float64(b.Count) / float64(peak) * 100
		}
	}
	return bars
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Barrage Load Test Report</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif;
            background: #f3f4f6;
            color: #1f2937;
            line-height: 1.5;
            padding: 24px;
        }
        .container { max-width: 1200px; margin: 0 auto; background: #fff; border-radius: 6px; overflow: hidden; }
        header { background: #1e3a5f; color: #fff; padding: 28px 36px; }
        header h1 { font-size: 1.8rem; margin-bottom: 8px; }
        header .meta { opacity: 0.85; font-size: 0.9rem; }
        .content { padding: 36px; }
        .grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(220px, 1fr)); gap: 16px; margin-bottom: 36px; }
        .card { background: #f9fafb; border-radius: 6px; padding: 18px; border-left: 4px solid #2563eb; }
        .card h3 { font-size: 0.8rem; color: #6b7280; text-transform: uppercase; margin-bottom: 8px; }
        .card .value { font-size: 1.8rem; font-weight: bold; }
        .card .subvalue { font-size: 0.85rem; color: #6b7280; margin-top: 4px; }
        .card.success { border-left-color: #059669; }
        .card.error { border-left-color: #dc2626; }
        .section { margin-bottom: 36px; }
        .section h2 { font-size: 1.3rem; margin-bottom: 16px; padding-bottom: 8px; border-bottom: 2px solid #e5e7eb; }
        .partial { background: #fef3c7; color: #92400e; padding: 12px 16px; border-radius: 6px; margin-bottom: 24px; }
        table { width: 100%; border-collapse: collapse; }
        th, td { text-align: left; padding: 10px; border-bottom: 1px solid #e5e7eb; }
        th { background: #f9fafb; font-weight: 600; color: #4b5563; font-size: 0.85rem; text-transform: uppercase; }
        .bar-cell { width: 60%; }
        .bar { height: 14px; background: #2563eb; border-radius: 3px; }
        .badge { display: inline-block; padding: 3px 10px; border-radius: 10px; font-size: 0.8rem; font-weight: 600; }
        .badge-success { background: #d1fae5; color: #065f46; }
        .badge-error { background: #fee2e2; color: #991b1b; }
        .no-data { text-align: center; padding: 32px; color: #6b7280; font-style: italic; }
    </style>
</head>
<body>
    <div class="container">
        <header>
            <h1>Barrage Load Test Report</h1>
            {{if .Run.Target}}
            <div class="meta">Target: {{.Run.Method}} {{.Run.Target}}</div>
            {{end}}
            <div class="meta">Run: {{.Run.ID}} | Workers: {{.Run.Workers}}{{if .Run.QPS}} | QPS: {{formatFloat .Run.QPS}}{{end}}</div>
            <div class="meta">Generated: {{.GeneratedAt}} | Elapsed: {{formatDuration .Report.Elapsed}}</div>
        </header>

        <div class="content">
            {{if .Report.Partial}}
            <div class="partial">The run was interrupted; these results cover only the requests that completed.</div>
            {{end}}

            <div class="grid">
                <div class="card">
                    <h3>Total Requests</h3>
                    <div class="value">{{.Report.Total}}</div>
                </div>
                <div class="card success">
                    <h3>Successful</h3>
                    <div class="value">{{.Report.Successes}}</div>
                    <div class="subvalue">{{formatPercent .Report.Successes .Report.Total}}%</div>
                </div>
                <div class="card error">
                    <h3>Failed</h3>
                    <div class="value">{{.Report.Failures}}</div>
                    <div class="subvalue">{{formatPercent .Report.Failures .Report.Total}}%</div>
                </div>
                <div class="card">
                    <h3>Requests/sec</h3>
                    <div class="value">{{formatFloat .Report.RequestsPerSec}}</div>
                </div>
                <div class="card">
                    <h3>Data Received</h3>
                    <div class="value">{{formatBytes .Report.TotalBytes}}</div>
                    <div class="subvalue">{{formatBytes .Report.SizePerRequest}} per request</div>
                </div>
            </div>

            <div class="section">
                <h2>Latency</h2>
                <table>
                    <thead><tr><th>Min</th><th>Mean</th><th>P50</th><th>P90</th><th>P95</th><th>P99</th><th>Max</th></tr></thead>
                    <tbody>
                        <tr>
                            <td>{{formatDuration .Report.Latency.Min}}</td>
                            <td>{{formatDuration .Report.Latency.Mean}}</td>
                            <td>{{formatDuration .Report.Latency.P50}}</td>
                            <td>{{formatDuration .Report.Latency.P90}}</td>
                            <td>{{formatDuration .Report.Latency.P95}}</td>
                            <td>{{formatDuration .Report.Latency.P99}}</td>
                            <td>{{formatDuration .Report.Latency.Max}}</td>
                        </tr>
                    </tbody>
                </table>
            </div>

            <div class="section">
                <h2>Response Time Histogram</h2>
                {{if .Histogram}}
                <table>
                    <thead><tr><th>Up to</th><th>Count</th><th class="bar-cell"></th></tr></thead>
                    <tbody>
                        {{range .Histogram}}
                        <tr>
                            <td>{{formatDuration .Mark}}</td>
                            <td>{{.Count}}</td>
                            <td class="bar-cell"><div class="bar" style="width: {{formatFloat .Percent}}%"></div></td>
                        </tr>
                        {{end}}
                    </tbody>
                </table>
                {{else}}
                <div class="no-data">No successful requests</div>
                {{end}}
            </div>

            {{if .Report.Distribution}}
            <div class="section">
                <h2>Response Time Distribution</h2>
                <table>
                    <thead><tr><th>Percentile</th><th>Latency</th></tr></thead>
                    <tbody>
                        {{range .Report.Distribution}}
                        <tr><td>{{formatPercentile .Percentile}}</td><td>{{formatDuration .Latency}}</td></tr>
                        {{end}}
                    </tbody>
                </table>
            </div>
            {{end}}

            {{if .StatusCodes}}
            <div class="section">
                <h2>Status Codes</h2>
                <table>
                    <thead><tr><th>Code</th><th>Responses</th></tr></thead>
                    <tbody>
                        {{range .StatusCodes}}
                        <tr><td>{{.Code}}</td><td>{{.Count}}</td></tr>
                        {{end}}
                    </tbody>
                </table>
            </div>
            {{end}}

            {{if .Errors}}
            <div class="section">
                <h2>Errors</h2>
                <table>
                    <thead><tr><th>Count</th><th>Error</th></tr></thead>
                    <tbody>
                        {{range .Errors}}
                        <tr><td>{{.Count}}</td><td>{{.Message}}</td></tr>
                        {{end}}
                    </tbody>
                </table>
            </div>
            {{end}}

            {{if .ThresholdSummary}}
            <div class="section">
                <h2>Thresholds ({{.ThresholdSummary.Passed}}/{{.ThresholdSummary.Total}} Passed)</h2>
                <table>
                    <thead>
                        <tr><th>Threshold</th><th>Metric</th><th>Expected</th><th>Actual</th><th>Status</th></tr>
                    </thead>
                    <tbody>
                        {{range .ThresholdSummary.Results}}
                        <tr>
                            <td>{{.Threshold}}</td>
                            <td>{{.Metric}} ({{.Aggregate}})</td>
                            <td>{{.Operator}} {{formatFloat .Expected}}</td>
                            <td>{{formatFloat .Actual}}</td>
                            <td>
                                {{if .Pass}}
                                <span class="badge badge-success">PASS</span>
                                {{else}}
                                <span class="badge badge-error">FAIL</span>
                                {{end}}
                            </td>
                        </tr>
                        {{end}}
                    </tbody>
                </table>
            </div>
            {{end}}
        </div>
    </div>
</body>
</html>
`
