// Package report renders simulation draws as PNG plots (gonum/plot) and
// interactive HTML charts (go-echarts).
package report

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"strconv"

	"github.com/banshee-data/sensorlaw/internal/sim"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// ErrNoData is returned when there is nothing to draw.
var ErrNoData = errors.New("no data to plot")

// DefaultBins is used by HistogramPNG when bins <= 0.
const DefaultBins = 40

// HistogramPNG writes a histogram of values to path. The image format is
// taken from the file extension.
func HistogramPNG(path string, values []float64, bins int, title string) error {
	if len(values) == 0 {
		return ErrNoData
	}
	if bins <= 0 {
		bins = DefaultBins
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Measurement"
	p.Y.Label.Text = "Count"

	h, err := plotter.NewHist(plotter.Values(values), bins)
	if err != nil {
		return fmt.Errorf("failed to build histogram: %w", err)
	}
	h.FillColor = color.RGBA{R: 70, G: 130, B: 180, A: 255}
	p.Add(h)

	if err := p.Save(10*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

// LikelihoodTracePNG plots the likelihood of each draw against its index.
func LikelihoodTracePNG(path string, likelihoods []float64, title string) error {
	if len(likelihoods) == 0 {
		return ErrNoData
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Sample"
	p.Y.Label.Text = "Likelihood"

	pts := make(plotter.XYs, len(likelihoods))
	for i, l := range likelihoods {
		pts[i] = plotter.XY{X: float64(i), Y: l}
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("failed to build trace: %w", err)
	}
	line.Width = vg.Points(1)
	p.Add(line)

	if err := p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

// FrequencyChartHTML renders discrete outcome frequencies as a bar chart
// page. want, when non-nil, is drawn as a second series with the model's
// probability of each outcome.
func FrequencyChartHTML(w io.Writer, freqs []sim.Frequency, want map[int]float64, title string) error {
	if len(freqs) == 0 {
		return ErrNoData
	}

	x := make([]string, len(freqs))
	got := make([]opts.BarData, len(freqs))
	for i, f := range freqs {
		x[i] = strconv.Itoa(f.Value)
		got[i] = opts.BarData{Value: f.Fraction}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "100%", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("outcomes=%d", len(freqs))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).
		AddSeries("empirical", got,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	if want != nil {
		model := make([]opts.BarData, len(freqs))
		for i, f := range freqs {
			model[i] = opts.BarData{Value: want[f.Value]}
		}
		bar.AddSeries("model", model)
	}

	page := components.NewPage()
	page.AddCharts(bar)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render error: %w", err)
	}
	return nil
}
