package dashboard

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"

	"github.com/torosent/barrage/internal/metrics"
)

const (
	historySize = 100
	maxListRows = 10
	defaultFPS  = 8
	maxFPS      = 1000
)

// TestConfig holds load test configuration parameters for display.
type TestConfig struct {
	TargetURL  string        // Full target URL
	Method     string        // HTTP method
	Workers    int           // Number of concurrent workers
	Requests   int           // Request budget (0 when the run is duration-bound)
	Duration   time.Duration // Start deadline (0 = none)
	QPS        float64       // Aggregate rate ceiling (0 = unlimited)
	Arrival    string        // Arrival model when QPS is set
	Timeout    time.Duration // Request timeout
	Retries    int           // Number of retries
	ConfigFile string        // Path to config file if used
	FPS        int           // Redraws per second
}

// refreshInterval is the redraw period for FPS, clamped to 1..maxFPS frames
// per second.
func (c TestConfig) refreshInterval() time.Duration {
	fps := c.FPS
	switch {
	case fps <= 0:
		fps = defaultFPS
	case fps > maxFPS:
		fps = maxFPS
	}
	return time.Second / time.Duration(fps)
}

func (c TestConfig) goal() metrics.Goal {
	return metrics.Goal{Requests: int64(c.Requests), Duration: c.Duration}
}

// Dashboard renders a live terminal UI for load test metrics.
type Dashboard struct {
	collector    *metrics.Collector
	ctx          context.Context
	cancel       context.CancelFunc
	shutdownFunc func()
	wg           sync.WaitGroup
	mu           sync.Mutex
	stopOnce     sync.Once

	// Widgets
	grid           *ui.Grid
	summaryPara    *widgets.Paragraph
	progressGauge  *widgets.Gauge
	metricsPara    *widgets.Paragraph
	latencySparkle *widgets.SparklineGroup
	latencyPara    *widgets.Paragraph
	statusList     *widgets.List
	errorList      *widgets.List

	latencyHistory []float64
	startTime      time.Time
	testConfig     TestConfig
}

// New initializes the terminal and builds the dashboard. shutdownFunc is
// called when the user presses q or Ctrl-C inside the dashboard.
func New(collector *metrics.Collector, cfg TestConfig, shutdownFunc func()) (*Dashboard, error) {
	if err := ui.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize termui: %w", err)
	}
	d := newDashboard(collector, cfg, shutdownFunc)
	d.setupGrid()
	return d, nil
}

func newDashboard(collector *metrics.Collector, cfg TestConfig, shutdownFunc func()) *Dashboard {
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dashboard{
		collector:      collector,
		ctx:            ctx,
		cancel:         cancel,
		shutdownFunc:   shutdownFunc,
		latencyHistory: make([]float64, 0, historySize),
		startTime:      time.Now(),
		testConfig:     cfg,
	}
	d.initWidgets()
	return d
}

func (d *Dashboard) initWidgets() {
	d.summaryPara = widgets.NewParagraph()
	d.summaryPara.Title = "Barrage"
	d.summaryPara.Text = "Initializing..."
	d.summaryPara.BorderStyle.Fg = ui.ColorCyan

	d.progressGauge = widgets.NewGauge()
	d.progressGauge.Title = "Progress"
	d.progressGauge.BarColor = ui.ColorBlue
	d.progressGauge.BorderStyle.Fg = ui.ColorCyan
	d.progressGauge.LabelStyle = ui.NewStyle(ui.ColorWhite)

	d.metricsPara = widgets.NewParagraph()
	d.metricsPara.Title = "Requests"
	d.metricsPara.Text = "Waiting for data..."
	d.metricsPara.BorderStyle.Fg = ui.ColorCyan

	sparkline := widgets.NewSparkline()
	sparkline.Title = "Mean latency (ms)"
	sparkline.LineColor = ui.ColorGreen
	sparkline.Data = []float64{0}
	d.latencySparkle = widgets.NewSparklineGroup(sparkline)
	d.latencySparkle.Title = "Latency"
	d.latencySparkle.BorderStyle.Fg = ui.ColorCyan

	d.latencyPara = widgets.NewParagraph()
	d.latencyPara.Title = "Latency Stats"
	d.latencyPara.Text = "Min: 0ms\nMean: 0ms\nP50: 0ms\nP90: 0ms\nP99: 0ms"
	d.latencyPara.BorderStyle.Fg = ui.ColorCyan

	d.statusList = widgets.NewList()
	d.statusList.Title = "Status Codes"
	d.statusList.Rows = []string{"Awaiting data"}
	d.statusList.TextStyle = ui.NewStyle(ui.ColorGreen)
	d.statusList.BorderStyle.Fg = ui.ColorCyan

	d.errorList = widgets.NewList()
	d.errorList.Title = "Errors"
	d.errorList.Rows = []string{"No failures"}
	d.errorList.TextStyle = ui.NewStyle(ui.ColorYellow)
	d.errorList.BorderStyle.Fg = ui.ColorCyan
}

func (d *Dashboard) setupGrid() {
	termWidth, termHeight := ui.TerminalDimensions()

	d.grid = ui.NewGrid()
	d.grid.SetRect(0, 0, termWidth, termHeight)

	d.grid.Set(
		ui.NewRow(0.14,
			ui.NewCol(1.0, d.summaryPara),
		),
		ui.NewRow(0.10,
			ui.NewCol(1.0, d.progressGauge),
		),
		ui.NewRow(0.46,
			ui.NewCol(0.35, d.metricsPara),
			ui.NewCol(0.40, d.latencySparkle),
			ui.NewCol(0.25, d.latencyPara),
		),
		ui.NewRow(0.30,
			ui.NewCol(0.4, d.statusList),
			ui.NewCol(0.6, d.errorList),
		),
	)
}

// Start begins the dashboard update loop.
func (d *Dashboard) Start() {
	d.wg.Add(1)
	go d.run()
}

// Stop stops the update loop and restores the terminal. It is safe to call
// more than once.
func (d *Dashboard) Stop() {
	d.stopOnce.Do(func() {
		d.cancel()
		d.wg.Wait()
		ui.Close()
		// Give terminal time to restore
		time.Sleep(100 * time.Millisecond)
	})
}

func (d *Dashboard) run() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.testConfig.refreshInterval())
	defer ticker.Stop()

	uiEvents := ui.PollEvents()

	d.render()

	for {
		select {
		case <-d.ctx.Done():
			return
		case e := <-uiEvents:
			switch e.ID {
			case "q", "<C-c>":
				if d.shutdownFunc != nil {
					d.shutdownFunc()
				}
				// Keep drawing until Stop cancels the context.
			case "<Resize>":
				payload := e.Payload.(ui.Resize)
				d.mu.Lock()
				d.grid.SetRect(0, 0, payload.Width, payload.Height)
				d.mu.Unlock()
				ui.Clear()
				d.render()
			}
		case <-ticker.C:
			d.update(d.collector.Snapshot(time.Since(d.startTime)))
			d.render()
		}
	}
}

// update refreshes all widget data from a collector snapshot.
func (d *Dashboard) update(stats metrics.Stats) {
	d.mu.Lock()
	defer d.mu.Unlock()

	meanMs := ms(stats.MeanLatency)
	if stats.Successes > 0 {
		d.latencyHistory = append(d.latencyHistory, meanMs)
		if len(d.latencyHistory) > historySize {
			d.latencyHistory = d.latencyHistory[1:]
		}
		d.latencySparkle.Sparklines[0].Data = d.latencyHistory
		d.latencySparkle.Title = fmt.Sprintf(
			"Latency | Current: %.2fms | Min: %.2fms | Max: %.2fms",
			meanMs, ms(stats.MinLatency), ms(stats.MaxLatency),
		)
	}

	fraction := d.testConfig.goal().Fraction(stats)
	d.progressGauge.Percent = int(fraction * 100)
	d.progressGauge.Label = progressLabel(stats, d.testConfig)

	successRate := 0.0
	if stats.Total > 0 {
		successRate = float64(stats.Successes) / float64(stats.Total) * 100
	}

	d.summaryPara.Text = fmt.Sprintf(
		"Target: %s %s\n%s\nElapsed: %s | Total: %d | Success Rate: %.1f%% | [q](fg:yellow) to stop",
		methodOrDefault(d.testConfig.Method),
		d.testConfig.TargetURL,
		d.formatTestParams(),
		stats.Elapsed.Round(time.Second),
		stats.Total,
		successRate,
	)

	d.metricsPara.Text = fmt.Sprintf(
		"Total:        %d\nSuccessful:   %d\nFailed:       %d\nRequests/sec: %.2f\nData:         %d bytes",
		stats.Total,
		stats.Successes,
		stats.Failures,
		stats.RequestsPerSec,
		stats.TotalBytes,
	)

	d.latencyPara.Text = fmt.Sprintf(
		"Min:  %.2fms\nMean: %.2fms\nP50:  %.2fms\nP90:  %.2fms\nP95:  %.2fms\nP99:  %.2fms\nMax:  %.2fms",
		ms(stats.MinLatency),
		meanMs,
		ms(stats.P50Latency),
		ms(stats.P90Latency),
		ms(stats.P95Latency),
		ms(stats.P99Latency),
		ms(stats.MaxLatency),
	)

	d.statusList.Rows = formatStatusRows(stats.StatusCodes)
	d.errorList.Rows = formatErrorRows(stats.Errors)
}

func (d *Dashboard) render() {
	d.mu.Lock()
	defer d.mu.Unlock()

	ui.Render(d.grid)
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func methodOrDefault(method string) string {
	if method == "" {
		return "GET"
	}
	return strings.ToUpper(method)
}

func progressLabel(stats metrics.Stats, cfg TestConfig) string {
	switch {
	case cfg.Duration > 0:
		elapsed := stats.Elapsed
		if elapsed > cfg.Duration {
			elapsed = cfg.Duration
		}
		return fmt.Sprintf("%s / %s", elapsed.Round(time.Second), cfg.Duration)
	case cfg.Requests > 0:
		return fmt.Sprintf("%d / %d requests", stats.Total, cfg.Requests)
	default:
		return fmt.Sprintf("%d requests", stats.Total)
	}
}

func formatStatusRows(codes map[int]int64) []string {
	rows := metrics.SortedStatusCodes(codes)
	if len(rows) == 0 {
		return []string{"Awaiting data"}
	}
	if len(rows) > maxListRows {
		rows = rows[:maxListRows]
	}
	formatted := make([]string, 0, len(rows))
	for _, row := range rows {
		color := "green"
		if row.Code >= 400 {
			color = "red"
		}
		formatted = append(formatted, fmt.Sprintf("[%d](fg:%s) %d", row.Code, color, row.Count))
	}
	return formatted
}

func formatErrorRows(errs map[string]int64) []string {
	rows := metrics.SortedErrors(errs)
	if len(rows) == 0 {
		return []string{"[No failures](fg:green)"}
	}
	if len(rows) > maxListRows {
		rows = rows[:maxListRows]
	}
	formatted := make([]string, 0, len(rows))
	for _, row := range rows {
		formatted = append(formatted, fmt.Sprintf("[%d](fg:red) %s", row.Count, row.Message))
	}
	return formatted
}

// formatTestParams formats the test configuration parameters for display.
func (d *Dashboard) formatTestParams() string {
	var parts []string

	if d.testConfig.Workers > 0 {
		parts = append(parts, fmt.Sprintf("Workers: %d", d.testConfig.Workers))
	}

	if d.testConfig.QPS > 0 {
		rate := fmt.Sprintf("QPS: %g", d.testConfig.QPS)
		if d.testConfig.Arrival != "" && d.testConfig.Arrival != "uniform" {
			rate += " (" + d.testConfig.Arrival + ")"
		}
		parts = append(parts, rate)
	} else {
		parts = append(parts, "QPS: unlimited")
	}

	// Duration takes priority over the request budget.
	if d.testConfig.Duration > 0 {
		parts = append(parts, fmt.Sprintf("Duration: %s", d.testConfig.Duration))
	} else if d.testConfig.Requests > 0 {
		parts = append(parts, fmt.Sprintf("Requests: %d", d.testConfig.Requests))
	}

	if d.testConfig.Timeout > 0 {
		parts = append(parts, fmt.Sprintf("Timeout: %s", d.testConfig.Timeout))
	}

	if d.testConfig.Retries > 0 {
		parts = append(parts, fmt.Sprintf("Retries: %d", d.testConfig.Retries))
	}

	if d.testConfig.ConfigFile != "" {
		parts = append(parts, fmt.Sprintf("Config: %s", d.testConfig.ConfigFile))
	}

	return strings.Join(parts, " | ")
}
