package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical model defaults file.
const DefaultConfigPath = "config/model.defaults.json"

// Model kinds understood by the builders.
const (
	KindTable          = "table"
	KindLinearGaussian = "linear_gaussian"
	KindPoisson        = "poisson"
)

// ModelConfig describes a measurement model and how to sample from it.
// Pointer fields fall back to the defaults returned by the Get* methods,
// so partial files are valid.
type ModelConfig struct {
	Kind       *string `json:"kind,omitempty"`
	Seed       *uint64 `json:"seed,omitempty"`
	Method     *string `json:"sampling_method,omitempty"`
	MCMCSteps  *int    `json:"mcmc_steps,omitempty"`
	MCMCBurnIn *int    `json:"mcmc_burn_in,omitempty"`

	Table    *TableConfig    `json:"table,omitempty"`
	Gaussian *GaussianConfig `json:"linear_gaussian,omitempty"`
	Poisson  *PoissonConfig  `json:"poisson,omitempty"`
}

// TableConfig is a discrete P(Z | X[, U]). Row x*max(sensors,1)+u holds the
// outcome probabilities for state x and sensor mode u.
type TableConfig struct {
	States  int         `json:"states"`
	Sensors int         `json:"sensors,omitempty"` // 0: no sensor parameter
	Rows    [][]float64 `json:"rows"`
}

// GaussianConfig is z ~ N(H·x + J·u + bias, R). J may be omitted.
type GaussianConfig struct {
	H    [][]float64 `json:"h"`
	J    [][]float64 `json:"j,omitempty"`
	Bias []float64   `json:"bias,omitempty"`
	R    [][]float64 `json:"r"`
}

// PoissonConfig is z ~ Poisson(W·x + V·u + C). V may be omitted.
type PoissonConfig struct {
	W []float64 `json:"w"`
	V []float64 `json:"v,omitempty"`
	C float64   `json:"c"`
}

// Helper functions to create pointers
func ptrString(v string) *string { return &v }
func ptrUint64(v uint64) *uint64 { return &v }
func ptrInt(v int) *int          { return &v }

// EmptyModelConfig returns a ModelConfig with all fields set to nil.
func EmptyModelConfig() *ModelConfig {
	return &ModelConfig{}
}

// LoadModelConfig loads a ModelConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
func LoadModelConfig(path string) (*ModelConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyModelConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadDefaultConfig loads the canonical model defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
func LoadDefaultConfig() (*ModelConfig, error) {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,       // from cmd/
		"../../" + DefaultConfigPath,    // from cmd/measim/, internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	var lastErr error
	for _, path := range candidates {
		cfg, err := LoadModelConfig(path)
		if err == nil {
			return cfg, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("cannot find %s (pass a config path explicitly): %w", DefaultConfigPath, lastErr)
}

// MustLoadDefaultConfig is LoadDefaultConfig for test setup. It panics if
// the file cannot be loaded.
func MustLoadDefaultConfig() *ModelConfig {
	cfg, err := LoadDefaultConfig()
	if err != nil {
		panic(err.Error() + " - run tests from repository root")
	}
	return cfg
}

// Validate checks that the configuration values are consistent.
func (c *ModelConfig) Validate() error {
	if c.MCMCSteps != nil && *c.MCMCSteps < 0 {
		return fmt.Errorf("mcmc_steps must be non-negative, got %d", *c.MCMCSteps)
	}
	if c.MCMCBurnIn != nil && *c.MCMCBurnIn < 0 {
		return fmt.Errorf("mcmc_burn_in must be non-negative, got %d", *c.MCMCBurnIn)
	}
	if c.Method != nil && *c.Method == "" {
		return fmt.Errorf("sampling_method must not be empty when set")
	}

	switch kind := c.GetKind(); kind {
	case KindTable:
		if c.Table == nil {
			return fmt.Errorf("kind %q requires a \"table\" section", kind)
		}
		return c.Table.validate()
	case KindLinearGaussian:
		if c.Gaussian == nil {
			return fmt.Errorf("kind %q requires a \"linear_gaussian\" section", kind)
		}
		return c.Gaussian.validate()
	case KindPoisson:
		if c.Poisson == nil {
			return fmt.Errorf("kind %q requires a \"poisson\" section", kind)
		}
		return c.Poisson.validate()
	default:
		return fmt.Errorf("unknown model kind %q", kind)
	}
}

func (t *TableConfig) validate() error {
	if t.States <= 0 {
		return fmt.Errorf("table.states must be positive, got %d", t.States)
	}
	if t.Sensors < 0 {
		return fmt.Errorf("table.sensors must be non-negative, got %d", t.Sensors)
	}
	want := t.States * max(t.Sensors, 1)
	if len(t.Rows) != want {
		return fmt.Errorf("table.rows has %d rows, want %d", len(t.Rows), want)
	}
	if _, err := rectangular(t.Rows, "table.rows"); err != nil {
		return err
	}
	return nil
}

func (g *GaussianConfig) validate() error {
	if _, err := rectangular(g.H, "linear_gaussian.h"); err != nil {
		return err
	}
	if len(g.R) != len(g.H) {
		return fmt.Errorf("linear_gaussian.r has %d rows, want %d", len(g.R), len(g.H))
	}
	if n, err := rectangular(g.R, "linear_gaussian.r"); err != nil {
		return err
	} else if n != len(g.R) {
		return fmt.Errorf("linear_gaussian.r must be square, got %dx%d", len(g.R), n)
	}
	if g.J != nil {
		if len(g.J) != len(g.H) {
			return fmt.Errorf("linear_gaussian.j has %d rows, want %d", len(g.J), len(g.H))
		}
		if _, err := rectangular(g.J, "linear_gaussian.j"); err != nil {
			return err
		}
	}
	if g.Bias != nil && len(g.Bias) != len(g.H) {
		return fmt.Errorf("linear_gaussian.bias has length %d, want %d", len(g.Bias), len(g.H))
	}
	return nil
}

func (p *PoissonConfig) validate() error {
	if len(p.W) == 0 {
		return fmt.Errorf("poisson.w must not be empty")
	}
	if p.V != nil && len(p.V) == 0 {
		return fmt.Errorf("poisson.v must be omitted or non-empty")
	}
	return nil
}

// rectangular returns the common row length of rows, or an error if rows
// is empty or ragged.
func rectangular(rows [][]float64, name string) (int, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return 0, fmt.Errorf("%s must not be empty", name)
	}
	n := len(rows[0])
	for i, row := range rows {
		if len(row) != n {
			return 0, fmt.Errorf("%s row %d has %d columns, want %d", name, i, len(row), n)
		}
	}
	return n, nil
}

// GetKind returns the kind value or the default.
func (c *ModelConfig) GetKind() string {
	if c.Kind == nil || *c.Kind == "" {
		return KindTable
	}
	return *c.Kind
}

// GetSeed returns the seed value or the default.
func (c *ModelConfig) GetSeed() uint64 {
	if c.Seed == nil {
		return 1
	}
	return *c.Seed
}

// GetSamplingMethod returns the sampling_method value or the default.
func (c *ModelConfig) GetSamplingMethod() string {
	if c.Method == nil {
		return "default"
	}
	return *c.Method
}

// GetMCMCSteps returns the mcmc_steps value or the default.
func (c *ModelConfig) GetMCMCSteps() int {
	if c.MCMCSteps == nil || *c.MCMCSteps == 0 {
		return 100
	}
	return *c.MCMCSteps
}

// GetMCMCBurnIn returns the mcmc_burn_in value or the default (none).
func (c *ModelConfig) GetMCMCBurnIn() int {
	if c.MCMCBurnIn == nil {
		return 0
	}
	return *c.MCMCBurnIn
}
