package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/banshee-data/sensorlaw/internal/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func TestHistogramPNG(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "hist.png")
	values := []float64{1, 2, 2, 3, 3, 3, 4, 4, 5}
	require.NoError(t, HistogramPNG(path, values, 0, "range"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, pngMagic))
}

func TestLikelihoodTracePNG(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "trace.png")
	require.NoError(t, LikelihoodTracePNG(path, []float64{0.9, 0.1, 0.9, 0.9}, "trace"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, pngMagic))
}

func TestPNGNoData(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	assert.ErrorIs(t, HistogramPNG(filepath.Join(dir, "a.png"), nil, 10, "x"), ErrNoData)
	assert.ErrorIs(t, LikelihoodTracePNG(filepath.Join(dir, "b.png"), nil, "x"), ErrNoData)
	_, err := os.Stat(filepath.Join(dir, "a.png"))
	assert.True(t, os.IsNotExist(err))
}

func TestFrequencyChartHTML(t *testing.T) {
	t.Parallel()

	freqs := sim.Frequencies([]int{0, 0, 0, 1})
	var buf bytes.Buffer
	require.NoError(t, FrequencyChartHTML(&buf, freqs, map[int]float64{0: 0.9, 1: 0.1}, "two outcomes"))

	html := buf.String()
	assert.Contains(t, html, "two outcomes")
	assert.Contains(t, html, "empirical")
	assert.Contains(t, html, "model")
	assert.Contains(t, html, "0.75")
}

func TestFrequencyChartHTMLNoData(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	assert.ErrorIs(t, FrequencyChartHTML(&buf, nil, nil, "empty"), ErrNoData)
	assert.Zero(t, buf.Len())
}
