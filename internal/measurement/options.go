package measurement

import "github.com/banshee-data/sensorlaw/internal/pdf"

// SampleOption tunes a single Simulate call.
type SampleOption func(*sampleOptions)

type sampleOptions struct {
	method pdf.SamplingMethod
	args   pdf.SamplingArgs
}

// WithMethod selects the sampling method (pdf.Default when omitted).
func WithMethod(method pdf.SamplingMethod) SampleOption {
	return func(o *sampleOptions) { o.method = method }
}

// WithArgs passes algorithm-specific arguments, e.g. pdf.MCMCArgs.
func WithArgs(args pdf.SamplingArgs) SampleOption {
	return func(o *sampleOptions) { o.args = args }
}
