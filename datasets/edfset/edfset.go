// Package edfset loads physiological recordings from a directory of EDF
// files paired with a self-report ratings table. Recordings are named
// Participant_NN_Media_MM.edf; which EDF signal indices carry which signal
// type varies per lab and comes from configuration.
package edfset

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/OpenPSG/edf"

	"github.com/affectsai/ardt/ardterr"
	"github.com/affectsai/ardt/config"
	"github.com/affectsai/ardt/datasets"
)

const (
	datasetName = "EDFDataset"

	// Self-ratings run 1..9; 5 and up counts as high arousal or positive
	// valence.
	ratingMidpoint = 5

	readChunk = 4096
)

// defaultLayouts is used when the configuration declares no signal layout.
var defaultLayouts = map[string]config.EDFSignal{
	"ECG": {Indices: []int{0, 1}, SampleRate: 256},
}

// Dataset reads EDF recordings and serves their trials through the shared
// dataset lifecycle, labeled by the ratings table.
type Dataset struct {
	*datasets.Base
	sourceDir   string
	ratingsPath string
	layouts     map[string]config.EDFSignal
}

var (
	_ datasets.Dataset     = (*Dataset)(nil)
	_ datasets.TrialSource = (*Dataset)(nil)
)

// New builds an EDF dataset from the configured recording directory.
// signals selects the signal types to preload; every configured layout is
// selected when none are given. The ratings table defaults to the first
// CSV file in the recording directory.
func New(cfg *config.Config, signals ...string) (*Dataset, error) {
	if cfg == nil {
		return nil, ardterr.InvalidArgumentf("edfset requires a configuration")
	}
	sourceDir := cfg.Datasets.EDF.Path
	if sourceDir == "" {
		return nil, ardterr.NotConfiguredf("no EDF source directory configured")
	}
	info, err := os.Stat(sourceDir)
	if err != nil {
		return nil, ardterr.NotConfiguredf("invalid EDF source directory %s: %v", sourceDir, err)
	}
	if !info.IsDir() {
		return nil, ardterr.NotConfiguredf("EDF source path %s is not a directory", sourceDir)
	}

	ratingsPath := cfg.Datasets.EDF.RatingsPath
	if ratingsPath == "" {
		ratingsPath, err = findRatings(sourceDir)
		if err != nil {
			return nil, ardterr.NotConfiguredf("no EDF ratings table: %v", err)
		}
	}

	layouts := make(map[string]config.EDFSignal, len(defaultLayouts))
	for signal, layout := range defaultLayouts {
		layouts[signal] = layout
	}
	for signal, layout := range cfg.Datasets.EDF.Signals {
		layouts[signal] = layout
	}

	if len(signals) == 0 {
		for signal := range layouts {
			signals = append(signals, signal)
		}
		sort.Strings(signals)
	}
	for _, signal := range signals {
		layout, ok := layouts[signal]
		if !ok {
			return nil, ardterr.InvalidArgumentf("no EDF signal layout for %s", signal)
		}
		if len(layout.Indices) == 0 {
			return nil, ardterr.InvalidArgumentf("EDF signal layout for %s selects no indices", signal)
		}
	}

	workingRoot, err := cfg.ExpandedWorkingDir()
	if err != nil {
		return nil, err
	}

	d := &Dataset{
		sourceDir:   sourceDir,
		ratingsPath: ratingsPath,
		layouts:     layouts,
	}
	d.Base = datasets.NewBase(d, workingRoot, signals)
	for signal, layout := range layouts {
		d.SetSignalMetadata(signal, datasets.SignalMetadata{
			SampleRate: layout.SampleRate,
			Channels:   len(layout.Indices),
		})
	}
	return d, nil
}

// Name implements datasets.TrialSource.
func (d *Dataset) Name() string { return datasetName }

// PreloadDataset implements datasets.TrialSource, converting every
// recognized recording into per-signal cached arrays.
func (d *Dataset) PreloadDataset() error {
	entries, err := os.ReadDir(d.sourceDir)
	if err != nil {
		return fmt.Errorf("failed to list EDF source directory %s: %w", d.sourceDir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		participantID, mediaID, ok := parseRecordingName(entry.Name())
		if !ok {
			continue
		}
		path := filepath.Join(d.sourceDir, entry.Name())
		if err := d.cacheRecording(path, participantID, mediaID); err != nil {
			return err
		}
	}
	return nil
}

// parseRecordingName extracts the participant and media ids from a
// Participant_NN_Media_MM.edf file name.
func parseRecordingName(name string) (participantID, mediaID int, ok bool) {
	if filepath.Ext(name) != ".edf" {
		return 0, 0, false
	}
	n, err := fmt.Sscanf(name, "Participant_%d_Media_%d.edf", &participantID, &mediaID)
	if err != nil || n != 2 || participantID < 1 || mediaID < 1 {
		return 0, 0, false
	}
	return participantID, mediaID, true
}

// cacheRecording reads the selected signal indices out of one EDF file and
// writes each signal type's channels-by-samples array into the working
// directory.
func (d *Dataset) cacheRecording(path string, participantID, mediaID int) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open recording %s: %w", path, err)
	}
	defer f.Close()

	r, err := edf.Open(f)
	if err != nil {
		return fmt.Errorf("failed to parse recording %s: %w", path, err)
	}

	for _, signal := range d.Signals() {
		layout := d.layouts[signal]
		channels := make([][]float64, len(layout.Indices))
		for c, index := range layout.Indices {
			samples, err := readSignal(r, index)
			if err != nil {
				return fmt.Errorf("failed to read %s index %d from %s: %w", signal, index, path, err)
			}
			channels[c] = samples
		}

		dest, err := d.GetWorkingPath(datasets.PathSpec{
			ParticipantID: participantID, MediaID: mediaID, SignalType: signal,
		})
		if err != nil {
			return err
		}
		if err := datasets.SaveSignalArray(dest, channels); err != nil {
			return err
		}
	}
	return nil
}

// readSignal drains one EDF signal index to its end.
func readSignal(r *edf.Reader, index int) ([]float64, error) {
	sr, err := r.Signal(index)
	if err != nil {
		return nil, err
	}

	var samples []float64
	buf := make([]float64, readChunk)
	for {
		n, err := sr.Read(buf)
		samples = append(samples, buf[:n]...)
		if err == io.EOF {
			return samples, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// LoadSourceTrials implements datasets.TrialSource. Trials come from the
// ratings table; each one is wired to whichever cached signal arrays its
// recording produced.
func (d *Dataset) LoadSourceTrials() ([]*datasets.Trial, error) {
	ratings, err := readRatings(d.ratingsPath)
	if err != nil {
		return nil, err
	}

	trials := make([]*datasets.Trial, 0, len(ratings))
	for _, r := range ratings {
		trial := datasets.NewTrial(d, r.participantID, r.mediaID)

		for _, signal := range d.Signals() {
			path, err := d.GetWorkingPath(datasets.PathSpec{
				ParticipantID: r.participantID, MediaID: r.mediaID, SignalType: signal,
			})
			if err != nil {
				return nil, err
			}
			if _, err := os.Stat(path); err == nil {
				trial.SetSignalFile(signal, path)
			}
		}

		arousal, valence := r.arousal, r.valence
		trial.SetGroundTruthFunc(func() (int, error) {
			return datasets.QuadrantFor(arousal, valence, ratingMidpoint, ratingMidpoint), nil
		})
		trials = append(trials, trial)
	}
	return trials, nil
}

// PostLoadTrials implements datasets.TrialSource.
func (d *Dataset) PostLoadTrials([]*datasets.Trial) error { return nil }
