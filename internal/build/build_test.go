package build

import (
	"testing"

	"github.com/banshee-data/sensorlaw/internal/config"
	"github.com/banshee-data/sensorlaw/internal/measurement"
	"github.com/banshee-data/sensorlaw/internal/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quiet() measurement.Option {
	return measurement.WithLogger(func(string, ...interface{}) {})
}

func ptr[T any](v T) *T { return &v }

func TestTableFromDefaults(t *testing.T) {
	t.Parallel()

	m, err := Table(config.MustLoadDefaultConfig(), quiet())
	require.NoError(t, err)
	assert.False(t, m.SystemWithoutSensorParams())

	p, err := m.ProbabilityGet(0, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 0.9, p.Float64())
}

func TestLinearGaussianFromConfig(t *testing.T) {
	t.Parallel()

	cfg := &config.ModelConfig{
		Kind: ptr(config.KindLinearGaussian),
		Gaussian: &config.GaussianConfig{
			H: [][]float64{{1, 0}, {0, 1}},
			R: [][]float64{{1, 0.2}, {0.2, 1}},
		},
	}
	m, err := LinearGaussian(cfg, quiet())
	require.NoError(t, err)
	assert.True(t, m.SystemWithoutSensorParams())

	size, err := m.MeasurementSizeGet()
	require.NoError(t, err)
	assert.Equal(t, 2, size)

	z, err := m.SimulateWithoutSensorParams([]float64{1, 2}, SampleOptions(cfg)...)
	require.NoError(t, err)
	assert.Len(t, z, 2)

	t.Run("asymmetric noise", func(t *testing.T) {
		t.Parallel()
		bad := *cfg
		bad.Gaussian = &config.GaussianConfig{
			H: [][]float64{{1, 0}, {0, 1}},
			R: [][]float64{{1, 0.2}, {0.3, 1}},
		}
		_, err := LinearGaussian(&bad, quiet())
		assert.ErrorIs(t, err, pdf.ErrInvalidParameters)
	})
}

func TestPoissonFromConfig(t *testing.T) {
	t.Parallel()

	cfg := &config.ModelConfig{
		Kind:    ptr(config.KindPoisson),
		Poisson: &config.PoissonConfig{W: []float64{1}, V: []float64{0.5}, C: 0.2},
	}
	m, err := Poisson(cfg, quiet())
	require.NoError(t, err)
	assert.False(t, m.SystemWithoutSensorParams())

	z, err := m.Simulate([]float64{3}, []float64{2})
	require.NoError(t, err)
	p, err := m.ProbabilityGet(z, []float64{3}, []float64{2})
	require.NoError(t, err)
	assert.Greater(t, p.Float64(), 0.0)
}

func TestKindMismatch(t *testing.T) {
	t.Parallel()

	_, err := Poisson(config.MustLoadDefaultConfig(), quiet())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `want "poisson"`)

	_, err = Table(nil)
	assert.Error(t, err)

	_, err = Table(&config.ModelConfig{Kind: ptr("nope")})
	assert.Error(t, err)
}

func TestTableRowsMustNormalize(t *testing.T) {
	t.Parallel()

	cfg := &config.ModelConfig{Table: &config.TableConfig{States: 1, Rows: [][]float64{{0.5, 0.2}}}}
	_, err := Table(cfg, quiet())
	assert.ErrorIs(t, err, pdf.ErrInvalidParameters)
}

func TestSampling(t *testing.T) {
	t.Parallel()

	method, args := Sampling(config.EmptyModelConfig())
	assert.Equal(t, pdf.Default, method)
	assert.Nil(t, args)

	method, args = Sampling(&config.ModelConfig{Method: ptr("inversion"), MCMCSteps: ptr(12)})
	assert.Equal(t, pdf.Inversion, method)
	assert.Nil(t, args)

	method, args = Sampling(&config.ModelConfig{Method: ptr("mcmc"), MCMCSteps: ptr(12), MCMCBurnIn: ptr(30)})
	assert.Equal(t, pdf.MCMC, method)
	assert.Equal(t, pdf.MCMCArgs{Steps: 12, BurnIn: 30}, args)
}

func TestSampleOptions(t *testing.T) {
	t.Parallel()

	assert.Len(t, SampleOptions(config.EmptyModelConfig()), 1)

	cfg := &config.ModelConfig{Method: ptr("mcmc"), MCMCSteps: ptr(12)}
	assert.Len(t, SampleOptions(cfg), 2)

	// The MCMC options must reach a distribution that honours them.
	m, err := Table(&config.ModelConfig{
		Method: ptr("mcmc"),
		Table:  &config.TableConfig{States: 1, Rows: [][]float64{{0, 1}}},
	}, quiet())
	require.NoError(t, err)
	z, err := m.SimulateWithoutSensorParams(0, SampleOptions(cfg)...)
	require.NoError(t, err)
	assert.Equal(t, 1, z)
}
