package preprocessors

import (
	"github.com/affectsai/ardt/ardterr"
)

// ChannelSelector keeps a subset of channel rows, in the order listed.
//
// Raw captures often carry a timestamp row at channel 0; with no explicit
// retain list the selector drops that row and keeps the rest.
type ChannelSelector struct {
	Node
	Retain []int
}

// NewChannelSelector keeps the listed channels. With no arguments the
// default drop-channel-0 behavior applies.
func NewChannelSelector(retain ...int) *ChannelSelector {
	return &ChannelSelector{Retain: retain}
}

// Process implements SignalPreprocessor.
func (p *ChannelSelector) Process(signal [][]float64) ([][]float64, error) {
	return p.Node.run(signal, p.selectChannels)
}

func (p *ChannelSelector) selectChannels(signal [][]float64) ([][]float64, error) {
	retain := p.Retain
	if len(retain) == 0 {
		if len(signal) == 0 {
			return [][]float64{}, nil
		}
		retain = make([]int, 0, len(signal)-1)
		for c := 1; c < len(signal); c++ {
			retain = append(retain, c)
		}
	}
	out := make([][]float64, 0, len(retain))
	for _, c := range retain {
		if c < 0 || c >= len(signal) {
			return nil, ardterr.InvalidArgumentf(
				"channel %d out of range for a %d-channel signal", c, len(signal))
		}
		row := make([]float64, len(signal[c]))
		copy(row, signal[c])
		out = append(out, row)
	}
	return out, nil
}
