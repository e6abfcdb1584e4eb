package quadrant

import (
	"fmt"
	"math"

	"github.com/affectsai/ardt/ardterr"
	"github.com/affectsai/ardt/datasets"
)

// FeaturesOf summarizes a channels-by-samples signal as the per-channel
// mean and standard deviation, concatenated channel by channel.
func FeaturesOf(signal [][]float64) ([]float32, error) {
	if len(signal) == 0 {
		return nil, ardterr.InvalidArgumentf("signal has no channels")
	}
	features := make([]float32, 0, 2*len(signal))
	for c, samples := range signal {
		if len(samples) == 0 {
			return nil, ardterr.InvalidArgumentf("signal channel %d has no samples", c)
		}
		var sum float64
		for _, v := range samples {
			sum += v
		}
		mean := sum / float64(len(samples))

		var variance float64
		for _, v := range samples {
			d := v - mean
			variance += d * d
		}
		variance /= float64(len(samples))

		features = append(features, float32(mean), float32(math.Sqrt(variance)))
	}
	return features, nil
}

// TrialExamples adapts labeled trials into the trainer's Examples
// interface. Features and labels are extracted once at construction.
type TrialExamples struct {
	features [][]float32
	labels   []int
}

var _ Examples = (*TrialExamples)(nil)

// ExamplesFromTrials extracts one example per trial from its preprocessed
// signalType data. Labels come from each trial's expected media response
// when useExpectedResponse is set, and from its ground truth otherwise;
// trials without a quadrant label are skipped.
func ExamplesFromTrials(trials []*datasets.Trial, signalType string, useExpectedResponse bool) (*TrialExamples, error) {
	ex := &TrialExamples{}
	for _, trial := range trials {
		label := 0
		if useExpectedResponse {
			label = trial.ExpectedResponse()
		} else {
			var err error
			label, err = trial.GroundTruth()
			if err != nil {
				return nil, err
			}
		}
		if label < 1 || label > ClassCount {
			continue
		}

		signal, err := trial.LoadPreprocessedSignalData(signalType)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s for trial %d/%d: %w",
				signalType, trial.ParticipantID(), trial.MediaID(), err)
		}
		features, err := FeaturesOf(signal)
		if err != nil {
			return nil, err
		}
		if len(ex.features) > 0 && len(features) != len(ex.features[0]) {
			return nil, ardterr.InvalidArgumentf(
				"trial %d/%d yields %d features, previous trials yielded %d",
				trial.ParticipantID(), trial.MediaID(), len(features), len(ex.features[0]))
		}

		ex.features = append(ex.features, features)
		ex.labels = append(ex.labels, label)
	}
	return ex, nil
}

// FeatureDim returns the feature vector length, or 0 when empty.
func (e *TrialExamples) FeatureDim() int {
	if len(e.features) == 0 {
		return 0
	}
	return len(e.features[0])
}

// Len implements Examples.
func (e *TrialExamples) Len() int { return len(e.features) }

// Example implements Examples.
func (e *TrialExamples) Example(i int) ([]float32, int, error) {
	if i < 0 || i >= len(e.features) {
		return nil, 0, ardterr.InvalidArgumentf("example index %d out of range", i)
	}
	return e.features[i], e.labels[i], nil
}
