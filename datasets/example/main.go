package main

// Example that walks the full dataset lifecycle on a synthetic
// physiological recording set: preload into the working-directory cache,
// load labeled trials, attach a preprocessing chain, split by participant,
// balance the quadrant classes, batch into gomlx tensors, and fit the
// bundled quadrant classifier.
//
// Usage:
//   go run ./datasets/example

import (
	"fmt"
	"log"
	"math"
	"os"

	"github.com/affectsai/ardt/datasets"
	"github.com/affectsai/ardt/preprocessors"
	"github.com/affectsai/ardt/quadrant"
)

const (
	sampleRate = 256
	seconds    = 2
)

// mediaRatings drives the synthetic ground truth: one arousal/valence pair
// per media id on a 1-5 scale, covering all four quadrants.
var mediaRatings = [][2]float64{
	{4.5, 4.5},
	{4.5, 1.5},
	{1.5, 1.5},
	{1.5, 4.5},
}

// syntheticDataset fabricates a small recording set so the example runs
// without any corpus on disk. Each trial's ECG amplitude tracks its
// quadrant, with a 40 Hz component for the low-pass filter to strip.
type syntheticDataset struct {
	*datasets.Base
	participants int
}

func newSyntheticDataset(workingRoot string, participants int) *syntheticDataset {
	s := &syntheticDataset{participants: participants}
	s.Base = datasets.NewBase(s, workingRoot, []string{"ECG"})
	s.SetSignalMetadata("ECG", datasets.SignalMetadata{SampleRate: sampleRate, Channels: 2})
	return s
}

func (s *syntheticDataset) Name() string { return "SyntheticDataset" }

func (s *syntheticDataset) PreloadDataset() error {
	for p := 1; p <= s.participants; p++ {
		for m := 1; m <= len(mediaRatings); m++ {
			path, err := s.GetWorkingPath(datasets.PathSpec{
				ParticipantID: p, MediaID: m, SignalType: "ECG",
			})
			if err != nil {
				return err
			}
			if err := datasets.SaveSignalArray(path, synthesizeECG(p, m)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *syntheticDataset) LoadSourceTrials() ([]*datasets.Trial, error) {
	var trials []*datasets.Trial
	for p := 1; p <= s.participants; p++ {
		for m := 1; m <= len(mediaRatings); m++ {
			trial := datasets.NewTrial(s, p, m)
			path, err := s.GetWorkingPath(datasets.PathSpec{
				ParticipantID: p, MediaID: m, SignalType: "ECG",
			})
			if err != nil {
				return nil, err
			}
			trial.SetSignalFile("ECG", path)

			arousal, valence := mediaRatings[m-1][0], mediaRatings[m-1][1]
			trial.SetGroundTruthFunc(func() (int, error) {
				return datasets.QuadrantFor(arousal, valence, 3, 3), nil
			})
			trials = append(trials, trial)
		}
	}
	return trials, nil
}

func (s *syntheticDataset) PostLoadTrials([]*datasets.Trial) error { return nil }

func synthesizeECG(participantID, mediaID int) [][]float64 {
	label := datasets.QuadrantFor(mediaRatings[mediaID-1][0], mediaRatings[mediaID-1][1], 3, 3)
	channels := make([][]float64, 2)
	for c := range channels {
		samples := make([]float64, sampleRate*seconds)
		phase := float64(c) * math.Pi / 2
		for i := range samples {
			t := float64(i) / sampleRate
			samples[i] = float64(label) +
				float64(label)*math.Sin(2*math.Pi*1.2*t+phase) +
				0.1*math.Sin(2*math.Pi*40*t+float64(participantID+mediaID))
		}
		channels[c] = samples
	}
	return channels
}

func main() {
	workingRoot, err := os.MkdirTemp("", "ardt-example-")
	if err != nil {
		log.Fatalf("failed to create working directory: %v", err)
	}
	defer os.RemoveAll(workingRoot)

	// Preload caches every trial's signals under the working directory;
	// LoadTrials would run it implicitly, but it is a separate step so
	// slow corpus conversions can be done ahead of time.
	ds := newSyntheticDataset(workingRoot, 8)
	if err := ds.Preload(); err != nil {
		log.Fatalf("failed to preload: %v", err)
	}
	if err := ds.LoadTrials(); err != nil {
		log.Fatalf("failed to load trials: %v", err)
	}
	fmt.Printf("Loaded %d trials from %d participants\n",
		ds.TrialCount(), len(ds.ParticipantIDs()))

	// Preprocessed loads now run through a median low-pass filter that
	// also resamples to half the native rate.
	ds.SetSignalPreprocessor("ECG", preprocessors.NewMedianFilterLowPass(sampleRate, sampleRate/2))

	// Splits partition by participant, so no subject leaks across them.
	splits, err := ds.GetDatasetSplits([]float64{0.7, 0.15, 0.15})
	if err != nil {
		log.Fatalf("failed to split dataset: %v", err)
	}
	train := splits[0]
	fmt.Printf("Split sizes: train=%d val=%d test=%d\n",
		train.TrialCount(), splits[1].TrialCount(), splits[2].TrialCount())

	balanced, err := train.GetBalancedDataset(true, false)
	if err != nil {
		log.Fatalf("failed to balance training split: %v", err)
	}
	fmt.Printf("Balanced training view: %d trials\n", balanced.TrialCount())

	// The tensor wrapper yields gomlx tensors batch by batch, for feeding
	// a gomlx training loop.
	batches, err := datasets.NewTensorDatasetWrapper(balanced, "ECG", 8)
	if err != nil {
		log.Fatalf("failed to wrap balanced view: %v", err)
	}
	batches.Shuffle(42)
	_, inputs, labels, err := batches.Yield()
	if err != nil {
		log.Fatalf("failed to yield a batch: %v", err)
	}
	fmt.Printf("First batch from %s: inputs=%T labels=%T\n",
		batches.Name(), inputs[0], labels[0])

	// The bundled classifier predicts the quadrant from per-channel
	// summary features of the preprocessed signal.
	examples, err := quadrant.ExamplesFromTrials(train.Trials(), "ECG", false)
	if err != nil {
		log.Fatalf("failed to extract examples: %v", err)
	}
	model, err := quadrant.NewModel(quadrant.Config{
		InputDim:     examples.FeatureDim(),
		LearningRate: 0.05,
		Epochs:       80,
		BatchSize:    8,
		Seed:         42,
	})
	if err != nil {
		log.Fatalf("failed to build model: %v", err)
	}
	if err := model.Train(examples); err != nil {
		log.Fatalf("failed to train: %v", err)
	}
	accuracy, err := model.Evaluate(examples)
	if err != nil {
		log.Fatalf("failed to evaluate: %v", err)
	}
	fmt.Printf("Quadrant classifier training accuracy: %.0f%%\n", accuracy*100)
}
