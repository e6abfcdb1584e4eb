package preprocessors

import (
	"github.com/affectsai/ardt/ardterr"
)

// FixedDuration forces every channel to exactly Seconds*SampleRate samples,
// so downstream batching sees uniform shapes. Longer channels keep their
// trailing window (the tail of a stimulus carries the response); shorter
// ones are front-padded with PadValue.
type FixedDuration struct {
	Node
	Seconds    int
	SampleRate int
	PadValue   float64
}

// NewFixedDuration builds the node for the given duration and rate.
func NewFixedDuration(seconds, sampleRate int, padValue float64) *FixedDuration {
	return &FixedDuration{Seconds: seconds, SampleRate: sampleRate, PadValue: padValue}
}

// Process implements SignalPreprocessor.
func (p *FixedDuration) Process(signal [][]float64) ([][]float64, error) {
	return p.Node.run(signal, p.resize)
}

func (p *FixedDuration) resize(signal [][]float64) ([][]float64, error) {
	if p.Seconds <= 0 || p.SampleRate <= 0 {
		return nil, ardterr.InvalidArgumentf(
			"duration and sample rate must be positive, got %ds at %d Hz", p.Seconds, p.SampleRate)
	}
	target := p.Seconds * p.SampleRate
	out := make([][]float64, len(signal))
	for c, channel := range signal {
		row := make([]float64, target)
		if len(channel) >= target {
			copy(row, channel[len(channel)-target:])
		} else {
			pad := target - len(channel)
			for i := 0; i < pad; i++ {
				row[i] = p.PadValue
			}
			copy(row[pad:], channel)
		}
		out[c] = row
	}
	return out, nil
}
