package datasets

import (
	"errors"
	"fmt"
	"testing"
)

// stubDataset is an in-memory source dataset used across the package
// tests. Preload writes small deterministic signal arrays when
// writeSignals is set, and labelFor shapes the class distribution.
type stubDataset struct {
	*Base

	name         string
	participants int
	media        int
	writeSignals bool
	labelFor     func(participant, media int) int

	preloads int
	failLoad bool
}

func newStubDataset(t *testing.T, root, name string, participants, media int) *stubDataset {
	t.Helper()
	s := &stubDataset{
		name:         name,
		participants: participants,
		media:        media,
		labelFor: func(participant, media int) int {
			return (participant+media)%4 + 1
		},
	}
	s.Base = NewBase(s, root, []string{"ECG"})
	return s
}

func (s *stubDataset) Name() string { return s.name }

func (s *stubDataset) PreloadDataset() error {
	s.preloads++
	if !s.writeSignals {
		return nil
	}
	for p := 1; p <= s.participants; p++ {
		for m := 1; m <= s.media; m++ {
			for _, baseline := range []bool{false, true} {
				path, err := s.GetWorkingPath(PathSpec{
					ParticipantID: p, MediaID: m, SignalType: "ECG", Baseline: baseline,
				})
				if err != nil {
					return err
				}
				if err := SaveSignalArray(path, stubSignal(p, m)); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (s *stubDataset) LoadSourceTrials() ([]*Trial, error) {
	if s.failLoad {
		return nil, errors.New("raw source unavailable")
	}
	trials := make([]*Trial, 0, s.participants*s.media)
	for m := 1; m <= s.media; m++ {
		s.SetMediaName(m, fmt.Sprintf("%s clip %d", s.name, m))
	}
	for p := 1; p <= s.participants; p++ {
		for m := 1; m <= s.media; m++ {
			trial := NewTrial(s, p, m)
			trial.SetMediaName(fmt.Sprintf("%s clip %d", s.name, m))
			trial.SetGroundTruthFunc(func() (int, error) {
				return s.labelFor(p, m), nil
			})
			if s.writeSignals {
				path, err := s.GetWorkingPath(PathSpec{
					ParticipantID: p, MediaID: m, SignalType: "ECG",
				})
				if err != nil {
					return nil, err
				}
				trial.SetSignalFile("ECG", path)
				basePath, err := s.GetWorkingPath(PathSpec{
					ParticipantID: p, MediaID: m, SignalType: "ECG", Baseline: true,
				})
				if err != nil {
					return nil, err
				}
				trial.SetBaselineFile("ECG", basePath)
			}
			trials = append(trials, trial)
		}
	}
	return trials, nil
}

func (s *stubDataset) PostLoadTrials([]*Trial) error { return nil }

// stubSignal builds a 2x8 array whose values encode the participant,
// media, channel, and sample position.
func stubSignal(p, m int) [][]float64 {
	signal := make([][]float64, 2)
	for c := range signal {
		row := make([]float64, 8)
		for i := range row {
			row[i] = float64(p*100+m*10+c) + float64(i)/10
		}
		signal[c] = row
	}
	return signal
}

// mustLoad preloads and loads a dataset, failing the test on error.
func mustLoad(t *testing.T, d Dataset, filters ...TrialFilter) {
	t.Helper()
	if err := d.LoadTrials(filters...); err != nil {
		t.Fatalf("LoadTrials failed: %v", err)
	}
}
