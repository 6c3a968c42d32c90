package config

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// RegisterFlags registers all CLI flags to a cobra command.
func RegisterFlags(cmd *cobra.Command) {
	configureFlags(cmd.Flags())
}

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "barrage [flags] URL",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Request shaping
	flags.StringP("method", "m", http.MethodGet, "HTTP method to use")
	flags.StringArrayP("header", "H", nil, "Additional request header in \"Key: Value\" form (repeatable)")
	flags.StringP("body", "d", "", "Inline request body payload")
	flags.StringP("body-file", "D", "", "Path to file containing the request body")
	flags.DurationP("timeout", "t", DefaultTimeout, "Per-request timeout (0 disables)")
	flags.Bool("accept-any-status", false, "Count every completed response as a success regardless of status")

	// Load control
	flags.IntP("requests", "n", DefaultRequests, "Number of requests to send")
	flags.IntP("workers", "c", DefaultWorkers, "Number of concurrent workers")
	flags.DurationP("duration", "z", 0, "Run for this long instead of a fixed count (e.g. 10s, 3m)")
	flags.Float64P("qps", "q", 0, "Aggregate requests per second limit (0 means unlimited)")
	flags.Int("retries", 0, "Number of retries per request")
	flags.String("arrival-model", string(ArrivalModelUniform), "Arrival model to use when pacing requests (uniform or poisson)")

	// Output
	flags.Bool("no-tui", false, "Disable the live terminal dashboard")
	flags.Int("fps", DefaultFPS, "Dashboard refresh rate in frames per second")
	flags.Bool("json-output", false, "Emit JSON formatted output")
	flags.Bool("yaml-output", false, "Emit YAML formatted output")
	flags.String("html-output", "", "Generate HTML report to the specified file path")
	flags.Bool("log-errors", false, "Log each failed request to stderr")
	flags.StringArray("threshold", nil, "Performance thresholds (repeatable, e.g., 'http_req_duration:p95 < 500')")
	flags.String("config", "", "Path to configuration file (JSON, YAML or TOML)")

	// Diagnostics
	flags.String("pprof-addr", "", "Serve a heap profile at /debug/pprof/heap on this address")
	flags.String("tracing-endpoint", "", "OTLP collector endpoint (e.g. localhost:4317)")
	flags.String("tracing-protocol", "grpc", "OTLP protocol: 'grpc' or 'http'")
	flags.Bool("tracing-insecure", false, "Disable TLS for the OTLP exporter")
	flags.Float64("tracing-sample-rate", 1.0, "Fraction of requests to trace (0.0-1.0)")
	flags.Bool("tracing-propagate", false, "Send W3C trace context headers with each request (defaults to on when tracing is enabled)")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\nFlags:\n", cmd.UseLine())
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// applyFlagOverrides applies command-line flag values to the config, overriding
// values from the config file.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	if args := fs.Args(); len(args) > 0 {
		if len(args) > 1 {
			return fmt.Errorf("expected a single target URL, got %d arguments", len(args))
		}
		cfg.TargetURL = strings.TrimSpace(args[0])
	}

	var err error
	setString := func(name string, dst *string) {
		if err != nil || !fs.Changed(name) {
			return
		}
		var val string
		if val, err = fs.GetString(name); err == nil {
			*dst = strings.TrimSpace(val)
		}
	}
	setInt := func(name string, dst *int) {
		if err != nil || !fs.Changed(name) {
			return
		}
		var val int
		if val, err = fs.GetInt(name); err == nil {
			*dst = val
		}
	}
	setFloat := func(name string, dst *float64) {
		if err != nil || !fs.Changed(name) {
			return
		}
		var val float64
		if val, err = fs.GetFloat64(name); err == nil {
			*dst = val
		}
	}
	setBool := func(name string, dst *bool) {
		if err != nil || !fs.Changed(name) {
			return
		}
		var val bool
		if val, err = fs.GetBool(name); err == nil {
			*dst = val
		}
	}

	setString("method", &cfg.Method)
	setInt("requests", &cfg.Requests)
	setInt("workers", &cfg.Workers)
	setFloat("qps", &cfg.QPS)
	setInt("retries", &cfg.Retries)
	setBool("no-tui", &cfg.NoTUI)
	setInt("fps", &cfg.FPS)
	setBool("json-output", &cfg.JSONOutput)
	setBool("yaml-output", &cfg.YAMLOutput)
	setString("html-output", &cfg.HTMLOutput)
	setBool("log-errors", &cfg.LogErrors)
	setBool("accept-any-status", &cfg.AcceptAnyStatus)
	setString("pprof-addr", &cfg.PprofAddr)
	setString("tracing-endpoint", &cfg.Tracing.Endpoint)
	setString("tracing-protocol", &cfg.Tracing.Protocol)
	setBool("tracing-insecure", &cfg.Tracing.Insecure)
	setFloat("tracing-sample-rate", &cfg.Tracing.SampleRate)
	if err != nil {
		return err
	}
	if fs.Changed("tracing-propagate") {
		val, err := fs.GetBool("tracing-propagate")
		if err != nil {
			return err
		}
		cfg.Tracing.Propagate = &val
	}

	if fs.Changed("body") {
		val, err := fs.GetString("body")
		if err != nil {
			return err
		}
		cfg.Body = val
		cfg.BodyFile = ""
	}
	if fs.Changed("body-file") {
		val, err := fs.GetString("body-file")
		if err != nil {
			return err
		}
		cfg.BodyFile = val
		cfg.Body = ""
	}
	if fs.Changed("duration") {
		val, err := fs.GetDuration("duration")
		if err != nil {
			return err
		}
		cfg.Duration = val
	}
	if fs.Changed("timeout") {
		val, err := fs.GetDuration("timeout")
		if err != nil {
			return err
		}
		cfg.Timeout = val
	}
	if fs.Changed("arrival-model") {
		val, err := fs.GetString("arrival-model")
		if err != nil {
			return err
		}
		cfg.Arrival.Model = ArrivalModel(strings.ToLower(strings.TrimSpace(val)))
	}
	if fs.Changed("threshold") {
		val, err := fs.GetStringArray("threshold")
		if err != nil {
			return err
		}
		cfg.Thresholds = val
	}

	vals, err := fs.GetStringArray("header")
	if err != nil {
		return err
	}
	if len(vals) > 0 {
		if cfg.Headers == nil {
			cfg.Headers = map[string]string{}
		}
		for _, entry := range vals {
			key, value, err := parseHeader(entry)
			if err != nil {
				return err
			}
			cfg.Headers[key] = value
		}
	}

	return nil
}

// parseHeader splits a "Key: Value" header argument.
func parseHeader(entry string) (string, string, error) {
	parts := strings.SplitN(entry, ":", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("header must be in \"Key: Value\" format: %s", entry)
	}
	key := http.CanonicalHeaderKey(strings.TrimSpace(parts[0]))
	if key == "" {
		return "", "", fmt.Errorf("header key cannot be empty")
	}
	return key, strings.TrimSpace(parts[1]), nil
}
