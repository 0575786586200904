// Command measim draws simulated measurements from a configured
// measurement model and summarizes, records or plots them.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/banshee-data/sensorlaw/internal/build"
	"github.com/banshee-data/sensorlaw/internal/config"
	"github.com/banshee-data/sensorlaw/internal/measurement"
	"github.com/banshee-data/sensorlaw/internal/monitoring"
	"github.com/banshee-data/sensorlaw/internal/pdf"
	"github.com/banshee-data/sensorlaw/internal/report"
	"github.com/banshee-data/sensorlaw/internal/sim"
	"github.com/banshee-data/sensorlaw/internal/store"
	"github.com/banshee-data/sensorlaw/internal/version"
	"gonum.org/v1/gonum/stat"
)

// Config holds the command line options.
type Config struct {
	ConfigFile  string
	Count       int
	State       string
	Sensor      string
	Method      string
	DBPath      string
	PNGPath     string
	TracePath   string
	HTMLPath    string
	JSONPath    string
	Verbose     bool
	ShowVersion bool
}

// Summary is what measim prints and exports for one run.
type Summary struct {
	RunID       string            `json:"run_id"`
	Kind        string            `json:"kind"`
	Method      string            `json:"method"`
	Samples     int               `json:"samples"`
	DurationMs  float64           `json:"duration_ms"`
	Likelihood  float64           `json:"mean_likelihood"`
	Frequencies []sim.Frequency   `json:"frequencies,omitempty"`
	Components  []sim.DimSummary  `json:"components,omitempty"`
	Expected    map[string]string `json:"expected,omitempty"`
}

func main() {
	cfg := parseFlags()

	if cfg.ShowVersion {
		fmt.Println(version.String())
		return
	}
	if !cfg.Verbose {
		monitoring.SetLogger(monitoring.Discard)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, os.Stdout); err != nil {
		log.Fatalf("measim: %v", err)
	}
}

func parseFlags() Config {
	var cfg Config
	flag.StringVar(&cfg.ConfigFile, "config", "", "Model config JSON (default: "+config.DefaultConfigPath+")")
	flag.IntVar(&cfg.Count, "n", 1000, "Number of measurements to draw")
	flag.StringVar(&cfg.State, "state", "0", "State: an index for table models, comma-separated values otherwise")
	flag.StringVar(&cfg.Sensor, "sensor", "0", "Sensor parameter, same format as -state; ignored by models without one")
	flag.StringVar(&cfg.Method, "method", "", "Sampling method (overrides the config)")
	flag.StringVar(&cfg.DBPath, "db", "", "Record the run in this SQLite database")
	flag.StringVar(&cfg.PNGPath, "png", "", "Write a histogram of the draws to this PNG")
	flag.StringVar(&cfg.TracePath, "trace", "", "Write the per-draw likelihood trace to this PNG")
	flag.StringVar(&cfg.HTMLPath, "html", "", "Write a frequency chart to this HTML file (discrete models)")
	flag.StringVar(&cfg.JSONPath, "json", "", "Write the run summary as JSON to this file")
	flag.BoolVar(&cfg.Verbose, "v", false, "Verbose logging")
	flag.BoolVar(&cfg.ShowVersion, "version", false, "Print version and exit")
	flag.Parse()
	return cfg
}

func loadConfig(path string) (*config.ModelConfig, error) {
	if path == "" {
		return config.LoadDefaultConfig()
	}
	return config.LoadModelConfig(path)
}

func run(ctx context.Context, cfg Config, out io.Writer) error {
	mc, err := loadConfig(cfg.ConfigFile)
	if err != nil {
		return err
	}

	if cfg.Method != "" {
		mc.Method = &cfg.Method
	}
	method, args := build.Sampling(mc)

	kind := mc.GetKind()
	switch kind {
	case config.KindTable:
		m, err := build.Table(mc)
		if err != nil {
			return err
		}
		x, err := parseIndex(cfg.State)
		if err != nil {
			return fmt.Errorf("-state: %w", err)
		}
		var s int
		if !m.SystemWithoutSensorParams() {
			if s, err = parseIndex(cfg.Sensor); err != nil {
				return fmt.Errorf("-sensor: %w", err)
			}
		}
		return runDiscrete(ctx, cfg, kind, m, sim.Request[int]{State: x, Sensor: s, Count: cfg.Count, Method: method, Args: args}, out)

	case config.KindPoisson:
		m, err := build.Poisson(mc)
		if err != nil {
			return err
		}
		x, err := parseVector(cfg.State)
		if err != nil {
			return fmt.Errorf("-state: %w", err)
		}
		var s []float64
		if !m.SystemWithoutSensorParams() {
			if s, err = parseVector(cfg.Sensor); err != nil {
				return fmt.Errorf("-sensor: %w", err)
			}
		}
		return runDiscrete(ctx, cfg, kind, m, sim.Request[[]float64]{State: x, Sensor: s, Count: cfg.Count, Method: method, Args: args}, out)

	case config.KindLinearGaussian:
		m, err := build.LinearGaussian(mc)
		if err != nil {
			return err
		}
		x, err := parseVector(cfg.State)
		if err != nil {
			return fmt.Errorf("-state: %w", err)
		}
		var s []float64
		if !m.SystemWithoutSensorParams() {
			if s, err = parseVector(cfg.Sensor); err != nil {
				return fmt.Errorf("-sensor: %w", err)
			}
		}
		return runContinuous(ctx, cfg, kind, m, sim.Request[[]float64]{State: x, Sensor: s, Count: cfg.Count, Method: method, Args: args}, out)
	}
	return fmt.Errorf("unknown model kind %q", kind)
}

func runDiscrete[S any](ctx context.Context, cfg Config, kind string, m *measurement.Model[int, S], req sim.Request[S], out io.Writer) error {
	res, err := sim.Run(ctx, m, req)
	if err != nil {
		return err
	}

	freqs := sim.Frequencies(res.Samples)
	want := make(map[int]float64, len(freqs))
	for _, f := range freqs {
		var p pdf.Probability
		if m.SystemWithoutSensorParams() {
			p, err = m.ProbabilityGetWithoutSensorParams(f.Value, req.State)
		} else {
			p, err = m.ProbabilityGet(f.Value, req.State, req.Sensor)
		}
		if err != nil {
			return err
		}
		want[f.Value] = p.Float64()
	}

	summary := newSummary(kind, res)
	summary.Frequencies = freqs
	summary.Expected = make(map[string]string, len(want))
	for v, p := range want {
		summary.Expected[strconv.Itoa(v)] = strconv.FormatFloat(p, 'g', 6, 64)
	}

	fmt.Fprintf(out, "run %s: %d draws from %s model (%s) in %.1fms\n", summary.RunID, summary.Samples, kind, summary.Method, summary.DurationMs)
	for _, f := range freqs {
		fmt.Fprintf(out, "  z=%-6d count=%-8d empirical=%.4f model=%.4f\n", f.Value, f.Count, f.Fraction, want[f.Value])
	}

	if cfg.PNGPath != "" {
		if err := report.HistogramPNG(cfg.PNGPath, sim.Counts(res.Samples), 0, kind+" measurements"); err != nil {
			return err
		}
	}
	if cfg.HTMLPath != "" {
		if err := writeHTML(cfg.HTMLPath, freqs, want, kind+" outcome frequencies"); err != nil {
			return err
		}
	}
	return finish(ctx, cfg, kind, req, res, !m.SystemWithoutSensorParams(), summary)
}

func runContinuous(ctx context.Context, cfg Config, kind string, m *measurement.Model[[]float64, []float64], req sim.Request[[]float64], out io.Writer) error {
	res, err := sim.Run(ctx, m, req)
	if err != nil {
		return err
	}

	comps, err := sim.Summarize(res.Samples)
	if err != nil {
		return err
	}
	summary := newSummary(kind, res)
	summary.Components = comps

	fmt.Fprintf(out, "run %s: %d draws from %s model (%s) in %.1fms\n", summary.RunID, summary.Samples, kind, summary.Method, summary.DurationMs)
	for i, c := range comps {
		fmt.Fprintf(out, "  z[%d] mean=%.4f std=%.4f min=%.4f max=%.4f\n", i, c.Mean, c.StdDev, c.Min, c.Max)
	}

	if cfg.PNGPath != "" {
		first := make([]float64, len(res.Samples))
		for i, z := range res.Samples {
			first[i] = z[0]
		}
		if err := report.HistogramPNG(cfg.PNGPath, first, 0, kind+" measurements, component 0"); err != nil {
			return err
		}
	}
	if cfg.HTMLPath != "" {
		log.Printf("-html only applies to discrete models; skipping")
	}
	return finish(ctx, cfg, kind, req, res, !m.SystemWithoutSensorParams(), summary)
}

func newSummary[M any](kind string, res *sim.Result[M]) *Summary {
	return &Summary{
		RunID:      res.ID.String(),
		Kind:       kind,
		Method:     res.Method.String(),
		Samples:    len(res.Samples),
		DurationMs: float64(res.Duration().Microseconds()) / 1000,
		Likelihood: stat.Mean(res.Likelihoods, nil),
	}
}

// finish records the run and writes the JSON summary when requested.
func finish[M, S any](ctx context.Context, cfg Config, kind string, req sim.Request[S], res *sim.Result[M], withSensor bool, summary *Summary) error {
	if cfg.TracePath != "" {
		if err := report.LikelihoodTracePNG(cfg.TracePath, res.Likelihoods, kind+" likelihood per draw"); err != nil {
			return err
		}
	}

	if cfg.DBPath != "" {
		db, err := store.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()

		rec, err := store.NewRun(kind, req, res, withSensor)
		if err != nil {
			return err
		}
		if err := db.RecordRun(ctx, rec); err != nil {
			return err
		}
		log.Printf("recorded run %s in %s", rec.ID, cfg.DBPath)
	}

	if cfg.JSONPath != "" {
		data, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal summary: %w", err)
		}
		if err := os.WriteFile(cfg.JSONPath, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", cfg.JSONPath, err)
		}
	}
	return nil
}

func writeHTML(path string, freqs []sim.Frequency, want map[int]float64, title string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return report.FrequencyChartHTML(f, freqs, want, title)
}

var errEmptyValue = errors.New("empty value")

func parseIndex(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errEmptyValue
	}
	return strconv.Atoi(s)
}

// parseVector parses "1,2.5,-3" into a vector.
func parseVector(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errEmptyValue
	}
	parts := strings.Split(s, ",")
	out := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("component %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}
