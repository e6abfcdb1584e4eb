package preprocessors

import (
	"github.com/affectsai/ardt/ardterr"
)

const (
	wideWindowMS   = 600
	narrowWindowMS = 200
	lowPassOrder   = 12
	lowPassCutoff  = 35.0
)

// MedianFilterLowPass cleans a physiological signal channel by channel: a
// 600 ms then 200 ms median cascade estimates baseline wander, which is
// subtracted from the original; the remainder is low-passed at 35 Hz with a
// 12th-order Butterworth applied zero-phase; and when Fs differs from
// TargetFs the result is resampled by the reduced rational ratio.
type MedianFilterLowPass struct {
	Node
	Fs       int
	TargetFs int
}

// NewMedianFilterLowPass builds the node for signals captured at fs and
// delivered at targetFs.
func NewMedianFilterLowPass(fs, targetFs int) *MedianFilterLowPass {
	return &MedianFilterLowPass{Fs: fs, TargetFs: targetFs}
}

// Process implements SignalPreprocessor.
func (p *MedianFilterLowPass) Process(signal [][]float64) ([][]float64, error) {
	return p.Node.run(signal, p.filter)
}

func (p *MedianFilterLowPass) filter(signal [][]float64) ([][]float64, error) {
	if p.Fs <= 0 || p.TargetFs <= 0 {
		return nil, ardterr.InvalidArgumentf(
			"sample rates must be positive, got fs=%d targetFs=%d", p.Fs, p.TargetFs)
	}
	if lowPassCutoff >= float64(p.Fs)/2.0 {
		return nil, ardterr.InvalidArgumentf(
			"low-pass cutoff %.0f Hz requires a sample rate above %.0f Hz, got %d",
			lowPassCutoff, 2*lowPassCutoff, p.Fs)
	}

	sections := butterLowPassSOS(lowPassOrder, lowPassCutoff, float64(p.Fs))
	out := make([][]float64, len(signal))
	for c, channel := range signal {
		wide, err := medianFilter1D(channel, medianWindow(wideWindowMS, p.Fs))
		if err != nil {
			return nil, err
		}
		noise, err := medianFilter1D(wide, medianWindow(narrowWindowMS, p.Fs))
		if err != nil {
			return nil, err
		}
		clean := make([]float64, len(channel))
		for i := range channel {
			clean[i] = channel[i] - noise[i]
		}
		smoothed := filtFilt(sections, clean)
		if p.Fs != p.TargetFs {
			smoothed = resampleRational(smoothed, p.Fs, p.TargetFs)
		}
		out[c] = smoothed
	}
	return out, nil
}
