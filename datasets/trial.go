package datasets

import (
	"sort"

	"github.com/affectsai/ardt/ardterr"
)

// GroundTruthFunc derives a trial's quadrant label on demand, typically
// from self-reported ratings captured at preload time.
type GroundTruthFunc func() (int, error)

// Trial is one participant/media pairing together with locators for its
// cached signal arrays. Signal data stays on disk until requested;
// preprocessed signals and the ground-truth label are memoized after the
// first load, raw loads re-read the cache every time.
type Trial struct {
	dataset Dataset

	nativeParticipantID int
	nativeMediaID       int
	mediaName           string

	signalFiles   map[string]string
	baselineFiles map[string]string

	groundTruthFn GroundTruthFunc
	groundTruth   int
	haveGT        bool

	processed map[string][][]float64
}

// NewTrial builds a trial owned by dataset with native participant and
// media ids. The ids reported by ParticipantID and MediaID shift with the
// owning dataset's offsets.
func NewTrial(dataset Dataset, participantID, mediaID int) *Trial {
	return &Trial{
		dataset:             dataset,
		nativeParticipantID: participantID,
		nativeMediaID:       mediaID,
		signalFiles:         make(map[string]string),
		baselineFiles:       make(map[string]string),
		processed:           make(map[string][][]float64),
	}
}

// Dataset reports the dataset that owns this trial.
func (t *Trial) Dataset() Dataset { return t.dataset }

// ParticipantID reports the participant id shifted by the owning dataset's
// participant offset.
func (t *Trial) ParticipantID() int {
	return t.nativeParticipantID + t.dataset.ParticipantOffset()
}

// MediaID reports the media id shifted by the owning dataset's media
// offset.
func (t *Trial) MediaID() int {
	return t.nativeMediaID + t.dataset.MediaOffset()
}

// NativeParticipantID reports the participant id as assigned by the source
// dataset, before any composition offset.
func (t *Trial) NativeParticipantID() int { return t.nativeParticipantID }

// NativeMediaID reports the media id as assigned by the source dataset,
// before any composition offset.
func (t *Trial) NativeMediaID() int { return t.nativeMediaID }

// MediaName reports the human-readable stimulus name, when the source
// assigns one.
func (t *Trial) MediaName() string { return t.mediaName }

// SetMediaName records the human-readable stimulus name.
func (t *Trial) SetMediaName(name string) { t.mediaName = name }

// SetSignalFile records the cached array location for a stimulus signal.
func (t *Trial) SetSignalFile(signalType, path string) {
	t.signalFiles[signalType] = path
}

// SetBaselineFile records the cached array location for a baseline signal.
func (t *Trial) SetBaselineFile(signalType, path string) {
	t.baselineFiles[signalType] = path
}

// SetGroundTruthFunc installs the deferred label derivation. It runs at
// most once; the result is memoized.
func (t *Trial) SetGroundTruthFunc(fn GroundTruthFunc) {
	t.groundTruthFn = fn
	t.haveGT = false
}

// SetGroundTruth fixes the label directly, bypassing any derivation
// function.
func (t *Trial) SetGroundTruth(label int) {
	t.groundTruth = label
	t.haveGT = true
}

// SignalTypes lists the stimulus signal types this trial carries data for,
// in sorted order.
func (t *Trial) SignalTypes() []string {
	types := make([]string, 0, len(t.signalFiles))
	for s := range t.signalFiles {
		types = append(types, s)
	}
	sort.Strings(types)
	return types
}

// HasSignal reports whether the trial carries stimulus data for the given
// signal type.
func (t *Trial) HasSignal(signalType string) bool {
	_, ok := t.signalFiles[signalType]
	return ok
}

// GroundTruth reports the trial's quadrant label. Trials without a
// derivation function or explicit label report 0, the unclassified label.
func (t *Trial) GroundTruth() (int, error) {
	if t.haveGT {
		return t.groundTruth, nil
	}
	if t.groundTruthFn == nil {
		return 0, nil
	}
	label, err := t.groundTruthFn()
	if err != nil {
		return 0, err
	}
	t.groundTruth = label
	t.haveGT = true
	return label, nil
}

// ExpectedResponse reports the label the stimulus was curated to elicit,
// from the owning dataset's expected-response table. The table is keyed by
// native media id, so the lookup survives composition offsets. Media without
// an expectation report 0.
func (t *Trial) ExpectedResponse() int {
	return t.dataset.ExpectedMediaResponses()[t.nativeMediaID]
}

// LoadSignalData reads the raw stimulus array for signalType from the
// cache. Every call re-reads the file.
func (t *Trial) LoadSignalData(signalType string) ([][]float64, error) {
	path, ok := t.signalFiles[signalType]
	if !ok {
		return nil, ardterr.InvalidArgumentf(
			"trial %d/%d has no %s signal", t.ParticipantID(), t.MediaID(), signalType)
	}
	return LoadSignalArray(path)
}

// LoadBaselineSignalData reads the raw baseline array for signalType from
// the cache. Every call re-reads the file.
func (t *Trial) LoadBaselineSignalData(signalType string) ([][]float64, error) {
	path, ok := t.baselineFiles[signalType]
	if !ok {
		return nil, ardterr.NotConfiguredf(
			"trial %d/%d has no %s baseline", t.ParticipantID(), t.MediaID(), signalType)
	}
	return LoadSignalArray(path)
}

// LoadPreprocessedSignalData loads the stimulus array for signalType and
// runs it through the preprocessor the owning dataset registers for that
// type. The result is memoized; later calls return the cached matrix
// without touching disk. Without a registered preprocessor the raw array
// is returned (and memoized) unchanged.
func (t *Trial) LoadPreprocessedSignalData(signalType string) ([][]float64, error) {
	if cached, ok := t.processed[signalType]; ok {
		return cached, nil
	}
	raw, err := t.LoadSignalData(signalType)
	if err != nil {
		return nil, err
	}
	out := raw
	if p, ok := t.dataset.SignalPreprocessor(signalType); ok && p != nil {
		out, err = p.Process(raw)
		if err != nil {
			return nil, err
		}
	}
	t.processed[signalType] = out
	return out, nil
}
