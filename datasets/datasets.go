// Package datasets provides the dataset and trial lifecycle for
// physiological research corpora: preload raw captures into a uniform
// on-disk cache, load trials with optional filtering, and compose datasets
// into participant-stratified splits, class-balanced views, and multi-corpus
// aggregates whose participant and media ids never collide.
//
// A concrete dataset embeds *Base and implements TrialSource for the
// source-specific work; everything else (preload bookkeeping, filtering,
// id renumbering, splits, balancing, working-directory layout) is shared.
// Dataset and Trial values are not safe for concurrent mutation: the only
// sanctioned concurrency is the parallel per-child preload inside
// MultiDataset and the read-only fan-out used to materialize batches.
// Concurrent preloads of the same working directory from multiple processes
// are unsupported.
package datasets

import (
	"math/rand"

	"github.com/affectsai/ardt/preprocessors"
)

// Dataset is the surface shared by source datasets and every composed view
// over them.
type Dataset interface {
	// Name identifies the dataset type and keys its working directory.
	Name() string

	// Preload runs the dataset's one-time raw-to-cache transform unless a
	// previous run already covered every selected signal type.
	Preload() error

	// LoadTrials populates the trial list, applying filters conjunctively.
	// On failure the previously loaded list is kept.
	LoadTrials(filters ...TrialFilter) error

	// Trials returns the loaded trials.
	Trials() []*Trial

	// TrialCount returns len(Trials()).
	TrialCount() int

	// Signals returns the selected signal types.
	Signals() []string

	// ParticipantIDs returns the sorted participant ids present in the
	// loaded trials, dataset offset applied.
	ParticipantIDs() []int

	// MediaIDs returns the sorted media ids present in the loaded trials,
	// dataset offset applied.
	MediaIDs() []int

	ParticipantOffset() int
	SetParticipantOffset(offset int)
	MediaOffset() int
	SetMediaOffset(offset int)

	// GetSignalMetadata returns the metadata registered for a signal type.
	GetSignalMetadata(signalType string) (SignalMetadata, error)

	// SetSignalMetadata merges md into the metadata registered for a
	// signal type: non-zero scalar fields overwrite, Extra keys union.
	SetSignalMetadata(signalType string, md SignalMetadata)

	// SignalPreprocessor returns the preprocessor trials route the given
	// signal type through.
	SignalPreprocessor(signalType string) (preprocessors.SignalPreprocessor, bool)
	SetSignalPreprocessor(signalType string, p preprocessors.SignalPreprocessor)

	// GetTrialSplits partitions the loaded trials by participant into
	// len(splits) groups sized by the given fractions.
	GetTrialSplits(splits []float64) ([][]*Trial, error)

	// GetDatasetSplits wraps each GetTrialSplits group as a Dataset view
	// sharing this dataset's offsets and metadata.
	GetDatasetSplits(splits []float64) ([]Dataset, error)

	// GetBalancedDataset returns a view with equally many trials per
	// quadrant label, oversampling to the largest class or undersampling
	// to the smallest.
	GetBalancedDataset(oversample, useExpectedResponse bool) (Dataset, error)

	// GetInterleavedTrialDataset returns a view whose consecutive trials
	// cycle through the quadrant labels.
	GetInterleavedTrialDataset(useExpectedResponse bool) (Dataset, error)

	// GetMediaNameByID resolves a dataset-native media id to its name.
	GetMediaNameByID(mediaID int) (string, error)

	// ExpectedMediaResponses maps native media ids to the response the
	// stimulus was curated to elicit, when the dataset declares one.
	ExpectedMediaResponses() map[int]int

	// GetWorkingDir returns this dataset's cache directory, created on
	// demand.
	GetWorkingDir() (string, error)

	// GetWorkingPath resolves a location inside the cache directory.
	GetWorkingPath(p PathSpec) (string, error)

	// SetRand replaces the random source behind splits, balancing, and
	// shuffles, for deterministic runs.
	SetRand(r *rand.Rand)
}

// TrialSource is implemented by concrete dataset types to supply the
// source-specific portions of the lifecycle; Base drives everything else.
type TrialSource interface {
	// Name keys the dataset's working directory under the cache root.
	Name() string

	// PreloadDataset performs the expensive one-time transform from the
	// raw distribution format into per-trial cache arrays.
	PreloadDataset() error

	// LoadSourceTrials builds the trial list from the cache. It must
	// return a fresh slice and leave any previously published list alone.
	LoadSourceTrials() ([]*Trial, error)

	// PostLoadTrials runs after filtering and renumbering, for cross-trial
	// post-processing.
	PostLoadTrials(trials []*Trial) error
}

// SignalMetadata describes one signal type of a dataset.
type SignalMetadata struct {
	SampleRate int
	Channels   int
	Extra      map[string]string
}

// merge folds md into m: non-zero scalars overwrite, Extra keys union.
func (m SignalMetadata) merge(md SignalMetadata) SignalMetadata {
	if md.SampleRate != 0 {
		m.SampleRate = md.SampleRate
	}
	if md.Channels != 0 {
		m.Channels = md.Channels
	}
	if len(md.Extra) > 0 {
		if m.Extra == nil {
			m.Extra = make(map[string]string, len(md.Extra))
		}
		for k, v := range md.Extra {
			m.Extra[k] = v
		}
	}
	return m
}

// PathSpec selects a location inside a dataset's working directory.
// Participant and media ids are dataset-native; the Trial-prefixed fields
// take trial-scoped ids and subtract the dataset offsets first. Zero values
// mean "not provided".
type PathSpec struct {
	TrialParticipantID int
	TrialMediaID       int
	ParticipantID      int
	MediaID            int
	MediaName          string
	SignalType         string

	// Baseline selects the pre-stimulus recording instead of the stimulus
	// response.
	Baseline bool
}
