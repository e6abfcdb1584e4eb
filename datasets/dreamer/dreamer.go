// Package dreamer loads the DREAMER affective corpus: 23 participants
// watching 18 emotion-eliciting film clips while ECG and EEG were
// recorded, with self-reported arousal and valence on a 1-5 scale.
package dreamer

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"

	"github.com/affectsai/ardt/ardterr"
	"github.com/affectsai/ardt/config"
	"github.com/affectsai/ardt/datasets"
)

const (
	datasetName     = "DreamerDataset"
	annotationsFile = "annotations.json"

	// Self-ratings run 1..5; 3 and up counts as high arousal or positive
	// valence.
	ratingMidpoint = 3
)

// filmTitles names the 18 stimulus clips by native media id.
var filmTitles = [...]string{
	"Searching for Bobby Fischer",
	"D.O.A.",
	"The Hangover",
	"The Ring",
	"300",
	"National Lampoon's Van Wilder",
	"Wall-E",
	"Crash",
	"My Girl",
	"The Fly",
	"Pride and Prejudice",
	"Modern Times",
	"Remember the Titans",
	"Gentleman's Agreement",
	"Psycho",
	"The Bourne Identity",
	"The Shawshank Redemption",
	"The Departed",
}

// expectedResponses maps each clip to the quadrant of its target emotion.
var expectedResponses = map[int]int{
	1:  4, // calmness
	2:  1, // surprise
	3:  1, // amusement
	4:  2, // fear
	5:  1, // excitement
	6:  2, // disgust
	7:  1, // happiness
	8:  2, // anger
	9:  3, // sadness
	10: 2, // disgust
	11: 4, // calmness
	12: 1, // amusement
	13: 1, // excitement
	14: 2, // anger
	15: 2, // fear
	16: 1, // excitement
	17: 3, // sadness
	18: 1, // surprise
}

var defaultMetadata = map[string]datasets.SignalMetadata{
	"ECG": {SampleRate: 256, Channels: 2},
	"EEG": {SampleRate: 128, Channels: 14},
}

// participantRecord is one participant's block in the source document.
type participantRecord struct {
	ID     int           `json:"id"`
	Trials []trialRecord `json:"trials"`
}

// trialRecord carries one film viewing: the self ratings plus the
// channels-by-samples capture of each recorded signal type, and the
// pre-stimulus baseline captures.
type trialRecord struct {
	MediaID   int                    `json:"media_id"`
	Arousal   float64                `json:"arousal"`
	Valence   float64                `json:"valence"`
	Signals   map[string][][]float64 `json:"signals"`
	Baselines map[string][][]float64 `json:"baselines"`
}

// annotation is the per-trial summary preload leaves in the working
// directory so trial loading never re-reads the source document.
type annotation struct {
	ParticipantID int      `json:"participant_id"`
	MediaID       int      `json:"media_id"`
	Arousal       float64  `json:"arousal"`
	Valence       float64  `json:"valence"`
	Signals       []string `json:"signals"`
	Baselines     []string `json:"baselines"`
}

// Dataset reads the DREAMER source document and serves its trials through
// the shared dataset lifecycle.
type Dataset struct {
	*datasets.Base
	sourcePath string
}

var (
	_ datasets.Dataset     = (*Dataset)(nil)
	_ datasets.TrialSource = (*Dataset)(nil)
)

// New builds a DREAMER dataset from the configured source document.
// signals selects the signal types to preload; both ECG and EEG are
// selected when none are given.
func New(cfg *config.Config, signals ...string) (*Dataset, error) {
	if cfg == nil {
		return nil, ardterr.InvalidArgumentf("dreamer requires a configuration")
	}
	sourcePath := cfg.Datasets.Dreamer.Path
	if sourcePath == "" {
		return nil, ardterr.NotConfiguredf("no DREAMER source path configured")
	}
	if _, err := os.Stat(sourcePath); err != nil {
		return nil, ardterr.NotConfiguredf("invalid DREAMER source path %s: %v", sourcePath, err)
	}

	if len(signals) == 0 {
		signals = []string{"ECG", "EEG"}
	}
	for _, signal := range signals {
		if _, ok := defaultMetadata[signal]; !ok {
			return nil, ardterr.InvalidArgumentf("DREAMER does not record %s", signal)
		}
	}

	workingRoot, err := cfg.ExpandedWorkingDir()
	if err != nil {
		return nil, err
	}

	d := &Dataset{sourcePath: sourcePath}
	d.Base = datasets.NewBase(d, workingRoot, signals)
	for signal, md := range defaultMetadata {
		d.SetSignalMetadata(signal, md)
	}
	d.SetExpectedMediaResponses(maps.Clone(expectedResponses))
	for id, title := range filmTitles {
		d.SetMediaName(id+1, title)
	}
	return d, nil
}

// Name implements datasets.TrialSource.
func (d *Dataset) Name() string { return datasetName }

// PreloadDataset implements datasets.TrialSource. The source document is
// streamed participant by participant; each trial's selected signal
// captures are cached as arrays and the ratings summarized into the
// annotations file.
func (d *Dataset) PreloadDataset() error {
	f, err := os.Open(d.sourcePath)
	if err != nil {
		return fmt.Errorf("failed to open DREAMER source %s: %w", d.sourcePath, err)
	}
	defer f.Close()

	var annotations []annotation
	if err := streamParticipants(json.NewDecoder(f), func(p participantRecord) error {
		anns, err := d.cacheParticipant(p)
		if err != nil {
			return err
		}
		annotations = append(annotations, anns...)
		return nil
	}); err != nil {
		return fmt.Errorf("failed to parse DREAMER source %s: %w", d.sourcePath, err)
	}

	return d.writeAnnotations(annotations)
}

// streamParticipants walks the top-level document without materializing
// every participant's signal data at once.
func streamParticipants(dec *json.Decoder, handle func(participantRecord) error) error {
	if err := expectDelim(dec, '{'); err != nil {
		return err
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected token %v in document header", tok)
		}
		if key != "participants" {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return err
			}
			continue
		}
		if err := expectDelim(dec, '['); err != nil {
			return err
		}
		for dec.More() {
			var p participantRecord
			if err := dec.Decode(&p); err != nil {
				return err
			}
			if err := handle(p); err != nil {
				return err
			}
		}
		if err := expectDelim(dec, ']'); err != nil {
			return err
		}
	}
	return expectDelim(dec, '}')
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != want {
		return fmt.Errorf("expected %v, got %v", want, tok)
	}
	return nil
}

// cacheParticipant writes one participant's selected signal captures into
// the working directory and returns the trial annotations.
func (d *Dataset) cacheParticipant(p participantRecord) ([]annotation, error) {
	selected := d.Signals()
	annotations := make([]annotation, 0, len(p.Trials))
	for _, trial := range p.Trials {
		ann := annotation{
			ParticipantID: p.ID,
			MediaID:       trial.MediaID,
			Arousal:       trial.Arousal,
			Valence:       trial.Valence,
		}
		for _, signal := range selected {
			capture, ok := trial.Signals[signal]
			if !ok {
				continue
			}
			path, err := d.GetWorkingPath(datasets.PathSpec{
				ParticipantID: p.ID, MediaID: trial.MediaID, SignalType: signal,
			})
			if err != nil {
				return nil, err
			}
			if err := datasets.SaveSignalArray(path, capture); err != nil {
				return nil, err
			}
			ann.Signals = append(ann.Signals, signal)

			baseline, ok := trial.Baselines[signal]
			if !ok {
				continue
			}
			path, err = d.GetWorkingPath(datasets.PathSpec{
				ParticipantID: p.ID, MediaID: trial.MediaID, SignalType: signal, Baseline: true,
			})
			if err != nil {
				return nil, err
			}
			if err := datasets.SaveSignalArray(path, baseline); err != nil {
				return nil, err
			}
			ann.Baselines = append(ann.Baselines, signal)
		}
		annotations = append(annotations, ann)
	}
	return annotations, nil
}

func (d *Dataset) writeAnnotations(annotations []annotation) error {
	dir, err := d.GetWorkingDir()
	if err != nil {
		return err
	}
	data, err := json.Marshal(annotations)
	if err != nil {
		return fmt.Errorf("failed to encode DREAMER annotations: %w", err)
	}
	path := filepath.Join(dir, annotationsFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write DREAMER annotations %s: %w", path, err)
	}
	return nil
}

// LoadSourceTrials implements datasets.TrialSource, building trials from
// the annotations summary. Signal arrays stay on disk until a trial is
// asked for them.
func (d *Dataset) LoadSourceTrials() ([]*datasets.Trial, error) {
	dir, err := d.GetWorkingDir()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, annotationsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read DREAMER annotations: %w", err)
	}
	var annotations []annotation
	if err := json.Unmarshal(data, &annotations); err != nil {
		return nil, fmt.Errorf("failed to parse DREAMER annotations: %w", err)
	}

	selected := make(map[string]bool, len(d.Signals()))
	for _, signal := range d.Signals() {
		selected[signal] = true
	}

	trials := make([]*datasets.Trial, 0, len(annotations))
	for _, ann := range annotations {
		trial := datasets.NewTrial(d, ann.ParticipantID, ann.MediaID)
		if ann.MediaID >= 1 && ann.MediaID <= len(filmTitles) {
			trial.SetMediaName(filmTitles[ann.MediaID-1])
		}

		for _, signal := range ann.Signals {
			if !selected[signal] {
				continue
			}
			path, err := d.GetWorkingPath(datasets.PathSpec{
				ParticipantID: ann.ParticipantID, MediaID: ann.MediaID, SignalType: signal,
			})
			if err != nil {
				return nil, err
			}
			trial.SetSignalFile(signal, path)
		}
		for _, signal := range ann.Baselines {
			if !selected[signal] {
				continue
			}
			path, err := d.GetWorkingPath(datasets.PathSpec{
				ParticipantID: ann.ParticipantID, MediaID: ann.MediaID, SignalType: signal, Baseline: true,
			})
			if err != nil {
				return nil, err
			}
			trial.SetBaselineFile(signal, path)
		}

		arousal, valence := ann.Arousal, ann.Valence
		trial.SetGroundTruthFunc(func() (int, error) {
			return datasets.QuadrantFor(arousal, valence, ratingMidpoint, ratingMidpoint), nil
		})
		trials = append(trials, trial)
	}
	return trials, nil
}

// PostLoadTrials implements datasets.TrialSource.
func (d *Dataset) PostLoadTrials([]*datasets.Trial) error { return nil }
