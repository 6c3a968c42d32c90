package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

type ArrivalModel string

const (
	ArrivalModelUniform ArrivalModel = "uniform"
	ArrivalModelPoisson ArrivalModel = "poisson"
)

// Defaults applied before the config file and flags.
const (
	DefaultRequests = 200
	DefaultWorkers  = 50
	DefaultFPS      = 8
	MaxFPS          = 1000
	DefaultTimeout  = 20 * time.Second
)

type Config struct {
	TargetURL       string            `mapstructure:"target"`
	Method          string            `mapstructure:"method"`
	Headers         map[string]string `mapstructure:"headers"`
	Body            string            `mapstructure:"body"`
	BodyFile        string            `mapstructure:"body_file"`
	Requests        int               `mapstructure:"requests"`
	Workers         int               `mapstructure:"workers"`
	Duration        time.Duration     `mapstructure:"duration"`
	QPS             float64           `mapstructure:"qps"`
	Timeout         time.Duration     `mapstructure:"timeout"`
	Retries         int               `mapstructure:"retries"`
	Arrival         ArrivalConfig     `mapstructure:"arrival"`
	NoTUI           bool              `mapstructure:"no_tui"`
	FPS             int               `mapstructure:"fps"`
	JSONOutput      bool              `mapstructure:"json_output"`
	YAMLOutput      bool              `mapstructure:"yaml_output"`
	HTMLOutput      string            `mapstructure:"html_output"`
	LogErrors       bool              `mapstructure:"log_errors"`
	AcceptAnyStatus bool              `mapstructure:"accept_any_status"`
	Thresholds      []string          `mapstructure:"thresholds"`
	PprofAddr       string            `mapstructure:"pprof_addr"`
	Tracing         TracingConfig     `mapstructure:"tracing"`
	ConfigFile      string            `mapstructure:"-"`
}

type ArrivalConfig struct {
	Model ArrivalModel `mapstructure:"model"`
}

// TracingConfig configures OTLP export of per-request spans.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"` // "grpc" or "http"
	Insecure    bool    `mapstructure:"insecure"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Propagate   *bool   `mapstructure:"propagate"` // nil follows Enabled
}

// Enabled reports whether an exporter endpoint is configured.
func (t TracingConfig) Enabled() bool {
	return strings.TrimSpace(t.Endpoint) != ""
}

// ShouldPropagate reports whether W3C trace headers go out with each request.
// Propagation defaults to on whenever tracing is enabled.
func (t TracingConfig) ShouldPropagate() bool {
	if t.Propagate != nil {
		return *t.Propagate
	}
	return t.Enabled()
}

// StopCondition resolves the run's termination rule. A positive duration
// takes priority and disables the request count.
func (c Config) StopCondition() (total int, duration time.Duration) {
	if c.Duration > 0 {
		return 0, c.Duration
	}
	return c.Requests, 0
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func (c Config) Validate() error {
	var issues []string

	if issue := validateTarget(c.TargetURL); issue != "" {
		issues = append(issues, issue)
	}

	// Security warnings for high rate/concurrency
	if c.QPS > 1000 {
		logrus.WithField("qps", c.QPS).Warn("High rate limit configured. Ensure you have authorization to test the target system.")
	}
	if c.Workers > 500 {
		logrus.WithField("workers", c.Workers).Warn("High worker count configured. Ensure you have authorization to test the target system.")
	}

	if c.Workers < 1 {
		issues = append(issues, "workers must be >= 1")
	}
	if c.Duration < 0 {
		issues = append(issues, "duration must be >= 0")
	}
	if c.Duration == 0 && c.Requests < 1 {
		issues = append(issues, "requests must be >= 1 when no duration is set")
	}
	if c.QPS < 0 {
		issues = append(issues, "qps must be >= 0")
	}
	if c.FPS < 1 || c.FPS > MaxFPS {
		issues = append(issues, fmt.Sprintf("fps must be between 1 and %d", MaxFPS))
	}
	if c.Timeout < 0 {
		issues = append(issues, "timeout must be >= 0")
	}
	if c.Retries < 0 {
		issues = append(issues, "retries must be >= 0")
	}
	if strings.TrimSpace(c.Body) != "" && strings.TrimSpace(c.BodyFile) != "" {
		issues = append(issues, "body and bodyFile are mutually exclusive")
	}
	if c.JSONOutput && c.YAMLOutput {
		issues = append(issues, "json-output and yaml-output are mutually exclusive")
	}

	issues = append(issues, validateArrivalConfig(c.Arrival)...)
	issues = append(issues, validateTracingConfig(c.Tracing)...)

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

func validateTarget(target string) string {
	target = strings.TrimSpace(target)
	if target == "" {
		return "target is required (use --help for usage information)"
	}
	u, err := url.Parse(target)
	if err != nil {
		return fmt.Sprintf("target %q is not a valid URL: %v", target, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Sprintf("target %q must use http or https", target)
	}
	if u.Host == "" {
		return fmt.Sprintf("target %q has no host", target)
	}
	return ""
}

func validateArrivalConfig(arr ArrivalConfig) []string {
	model := arr.Model
	if model == "" {
		model = ArrivalModelUniform
	}
	switch model {
	case ArrivalModelUniform, ArrivalModelPoisson:
		return nil
	default:
		return []string{fmt.Sprintf("arrival model %q is not supported", model)}
	}
}

func validateTracingConfig(t TracingConfig) []string {
	var issues []string
	switch strings.ToLower(strings.TrimSpace(t.Protocol)) {
	case "", "grpc", "http":
	default:
		issues = append(issues, fmt.Sprintf("tracing: protocol must be 'grpc' or 'http', got %q", t.Protocol))
	}
	if t.SampleRate < 0 || t.SampleRate > 1 {
		issues = append(issues, fmt.Sprintf("tracing: sample_rate must be between 0.0 and 1.0, got %g", t.SampleRate))
	}
	return issues
}
