package datasets

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"time"

	"github.com/affectsai/ardt/ardterr"
	"github.com/affectsai/ardt/preprocessors"
)

// preloadMarker records the signal-type set of the last completed preload
// inside a dataset's working directory.
const preloadMarker = ".preload.json"

// Base carries the machinery shared by every dataset: preload bookkeeping,
// trial loading with filters and id renumbering, the working-directory
// layout, signal metadata and preprocessor registries, offsets, and the
// random source behind splits and shuffles. Concrete datasets embed *Base
// and pass themselves in as the TrialSource.
type Base struct {
	source TrialSource

	workingRoot string
	signals     []string
	metadata    map[string]SignalMetadata
	expected    map[int]int
	mediaNames  map[int]string
	procs       map[string]preprocessors.SignalPreprocessor

	participantOffset int
	mediaOffset       int

	trials    []*Trial
	preloaded bool

	// renumberOnFilter is set for source datasets, which build fresh Trial
	// values on every load. Wrapper views share trials with their parent
	// and must never renumber them.
	renumberOnFilter bool

	rng *rand.Rand
	log *slog.Logger
}

// NewBase assembles the shared machinery for source. workingRoot is the
// cache root shared by every dataset; each dataset keys its own directory
// off source.Name(). signals selects the signal types preload must cover.
func NewBase(source TrialSource, workingRoot string, signals []string) *Base {
	return &Base{
		source:           source,
		workingRoot:      workingRoot,
		signals:          append([]string(nil), signals...),
		metadata:         make(map[string]SignalMetadata),
		expected:         make(map[int]int),
		mediaNames:       make(map[int]string),
		procs:            make(map[string]preprocessors.SignalPreprocessor),
		renumberOnFilter: true,
		rng:              rand.New(rand.NewSource(time.Now().UnixNano())),
		log:              slog.Default(),
	}
}

// Name implements Dataset.
func (b *Base) Name() string { return b.source.Name() }

// SetLogger replaces the logger (defaults to slog.Default()).
func (b *Base) SetLogger(log *slog.Logger) {
	if log != nil {
		b.log = log
	}
}

// SetRand implements Dataset.
func (b *Base) SetRand(r *rand.Rand) {
	if r != nil {
		b.rng = r
	}
}

// Preload implements Dataset. The transform runs at most once per working
// directory and signal set: a marker file records the signal types of the
// last completed preload, and as long as it covers every currently selected
// type the transform is skipped. After a run the marker is rewritten to the
// current set. Failures leave both the marker and the in-process state
// untouched.
func (b *Base) Preload() error {
	if b.preloaded {
		return nil
	}
	dir, err := b.GetWorkingDir()
	if err != nil {
		return err
	}
	markerPath := filepath.Join(dir, preloadMarker)
	covered, err := markerCovers(markerPath, b.signals)
	if err != nil {
		return err
	}
	if covered {
		b.preloaded = true
		return nil
	}

	b.log.Info("preloading dataset", "dataset", b.source.Name(), "signals", b.signals)
	if err := b.source.PreloadDataset(); err != nil {
		return fmt.Errorf("failed to preload %s: %w", b.source.Name(), err)
	}
	if err := writeMarker(markerPath, b.signals); err != nil {
		return err
	}
	b.preloaded = true
	return nil
}

func markerCovers(path string, want []string) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read preload marker %s: %w", path, err)
	}
	var have []string
	if err := json.Unmarshal(data, &have); err != nil {
		return false, fmt.Errorf("failed to parse preload marker %s: %w", path, err)
	}
	for _, s := range want {
		if !slices.Contains(have, s) {
			return false, nil
		}
	}
	return true, nil
}

func writeMarker(path string, signals []string) error {
	data, err := json.Marshal(signals)
	if err != nil {
		return fmt.Errorf("failed to encode preload marker: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write preload marker %s: %w", path, err)
	}
	return nil
}

// LoadTrials implements Dataset. Trials are loaded into a fresh list and
// published only once every step succeeded, so a failed load never corrupts
// the previously loaded state. When filters are given, surviving native
// participant and media ids are renumbered to dense 1-based sequences in
// first-encounter order; composed datasets rely on that density when they
// re-base ids.
func (b *Base) LoadTrials(filters ...TrialFilter) error {
	if err := b.Preload(); err != nil {
		return err
	}
	loaded, err := b.source.LoadSourceTrials()
	if err != nil {
		return fmt.Errorf("failed to load trials for %s: %w", b.source.Name(), err)
	}
	if len(filters) > 0 {
		kept := make([]*Trial, 0, len(loaded))
		for _, t := range loaded {
			if acceptedByAll(filters, t) {
				kept = append(kept, t)
			}
		}
		if b.renumberOnFilter {
			renumberTrials(kept)
		}
		loaded = kept
	}
	if err := b.source.PostLoadTrials(loaded); err != nil {
		return fmt.Errorf("failed post-load processing for %s: %w", b.source.Name(), err)
	}
	b.trials = loaded
	b.log.Debug("loaded trials", "dataset", b.source.Name(), "count", len(loaded))
	return nil
}

func acceptedByAll(filters []TrialFilter, t *Trial) bool {
	for _, f := range filters {
		if !f.Accept(t) {
			return false
		}
	}
	return true
}

// renumberTrials reassigns native participant and media ids as dense
// 1-based sequences in first-encounter order. Signal locators resolved
// before the renumbering keep their original cache paths.
func renumberTrials(trials []*Trial) {
	pmap := make(map[int]int)
	mmap := make(map[int]int)
	for _, t := range trials {
		if _, ok := pmap[t.nativeParticipantID]; !ok {
			pmap[t.nativeParticipantID] = len(pmap) + 1
		}
		if _, ok := mmap[t.nativeMediaID]; !ok {
			mmap[t.nativeMediaID] = len(mmap) + 1
		}
		t.nativeParticipantID = pmap[t.nativeParticipantID]
		t.nativeMediaID = mmap[t.nativeMediaID]
	}
}

// Trials implements Dataset.
func (b *Base) Trials() []*Trial { return b.trials }

// TrialCount implements Dataset.
func (b *Base) TrialCount() int { return len(b.trials) }

// Signals implements Dataset.
func (b *Base) Signals() []string {
	return append([]string(nil), b.signals...)
}

// ParticipantIDs implements Dataset.
func (b *Base) ParticipantIDs() []int {
	return collectIDs(b.trials, (*Trial).ParticipantID)
}

// MediaIDs implements Dataset.
func (b *Base) MediaIDs() []int {
	return collectIDs(b.trials, (*Trial).MediaID)
}

func collectIDs(trials []*Trial, id func(*Trial) int) []int {
	seen := make(map[int]struct{}, len(trials))
	ids := make([]int, 0, len(trials))
	for _, t := range trials {
		v := id(t)
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			ids = append(ids, v)
		}
	}
	sort.Ints(ids)
	return ids
}

// ParticipantOffset implements Dataset.
func (b *Base) ParticipantOffset() int { return b.participantOffset }

// SetParticipantOffset implements Dataset.
func (b *Base) SetParticipantOffset(offset int) { b.participantOffset = offset }

// MediaOffset implements Dataset.
func (b *Base) MediaOffset() int { return b.mediaOffset }

// SetMediaOffset implements Dataset.
func (b *Base) SetMediaOffset(offset int) { b.mediaOffset = offset }

// GetSignalMetadata implements Dataset.
func (b *Base) GetSignalMetadata(signalType string) (SignalMetadata, error) {
	md, ok := b.metadata[signalType]
	if !ok {
		return SignalMetadata{}, ardterr.NotConfiguredf(
			"no metadata registered for signal type %s", signalType)
	}
	return md, nil
}

// SetSignalMetadata implements Dataset.
func (b *Base) SetSignalMetadata(signalType string, md SignalMetadata) {
	b.metadata[signalType] = b.metadata[signalType].merge(md)
}

// SignalPreprocessor implements Dataset.
func (b *Base) SignalPreprocessor(signalType string) (preprocessors.SignalPreprocessor, bool) {
	p, ok := b.procs[signalType]
	return p, ok
}

// SetSignalPreprocessor implements Dataset.
func (b *Base) SetSignalPreprocessor(signalType string, p preprocessors.SignalPreprocessor) {
	b.procs[signalType] = p
}

// ExpectedMediaResponses implements Dataset.
func (b *Base) ExpectedMediaResponses() map[int]int { return b.expected }

// SetExpectedMediaResponses replaces the expected-response table.
func (b *Base) SetExpectedMediaResponses(responses map[int]int) {
	if responses == nil {
		responses = make(map[int]int)
	}
	b.expected = responses
}

// GetMediaNameByID implements Dataset.
func (b *Base) GetMediaNameByID(mediaID int) (string, error) {
	name, ok := b.mediaNames[mediaID]
	if !ok {
		return "", ardterr.NotImplementedf("%s does not name media %d", b.source.Name(), mediaID)
	}
	return name, nil
}

// SetMediaName registers the name of a native media id.
func (b *Base) SetMediaName(mediaID int, name string) {
	b.mediaNames[mediaID] = name
}

// GetWorkingDir implements Dataset.
func (b *Base) GetWorkingDir() (string, error) {
	if b.workingRoot == "" {
		return "", ardterr.NotConfiguredf("no working root configured for %s", b.source.Name())
	}
	dir := filepath.Join(b.workingRoot, b.source.Name())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create working directory %s: %w", dir, err)
	}
	return dir, nil
}

// GetWorkingPath implements Dataset. Media context requires participant
// context, and a signal type requires media context plus membership in the
// selected signal set.
func (b *Base) GetWorkingPath(p PathSpec) (string, error) {
	dir, err := b.GetWorkingDir()
	if err != nil {
		return "", err
	}

	participant := p.ParticipantID
	if p.TrialParticipantID != 0 {
		participant = p.TrialParticipantID - b.participantOffset
	}
	media := p.MediaID
	if p.TrialMediaID != 0 {
		media = p.TrialMediaID - b.mediaOffset
	}

	mediaLabel := ""
	switch {
	case media != 0:
		mediaLabel = fmt.Sprintf("Media_%02d", media)
	case p.MediaName != "":
		mediaLabel = p.MediaName
	}

	if mediaLabel != "" && participant == 0 {
		return "", ardterr.InvalidArgumentf("media context requires a participant")
	}
	if p.SignalType != "" {
		if mediaLabel == "" {
			return "", ardterr.InvalidArgumentf(
				"signal type %s requires a media context", p.SignalType)
		}
		if !slices.Contains(b.signals, p.SignalType) {
			return "", ardterr.InvalidArgumentf(
				"signal type %s is not selected for %s", p.SignalType, b.source.Name())
		}
	}

	if participant != 0 {
		dir = filepath.Join(dir, fmt.Sprintf("Participant_%02d", participant))
	}
	if mediaLabel != "" {
		dir = filepath.Join(dir, mediaLabel)
	}
	if p.SignalType != "" {
		variant := "stimuli"
		if p.Baseline {
			variant = "baseline"
		}
		dir = filepath.Join(dir, fmt.Sprintf("%s_%s.gob", p.SignalType, variant))
	}
	return dir, nil
}
