package datasets

// TrialWrapperDataset presents an explicit trial list as a dataset view.
// The trials are shared with their owning datasets, not copied, so signal
// loading and preprocessing still route through the original sources.
// Views built by GetDatasetSplits and GetInterleavedTrialDataset share the
// parent's offsets, metadata, expected responses, and preprocessors.
type TrialWrapperDataset struct {
	*Base
	wrapped []*Trial
}

var (
	_ Dataset     = (*TrialWrapperDataset)(nil)
	_ TrialSource = (*TrialWrapperDataset)(nil)
)

// NewTrialWrapperDataset wraps trials as a standalone dataset view rooted
// at workingRoot.
func NewTrialWrapperDataset(workingRoot string, signals []string, trials []*Trial) *TrialWrapperDataset {
	w := &TrialWrapperDataset{wrapped: trials}
	b := NewBase(w, workingRoot, signals)
	b.renumberOnFilter = false
	b.trials = trials
	b.preloaded = true
	indexMediaNames(b, trials)
	w.Base = b
	return w
}

func newTrialWrapper(parent *Base, trials []*Trial) *TrialWrapperDataset {
	w := &TrialWrapperDataset{wrapped: trials}
	w.Base = wrapperBase(parent, w, trials)
	return w
}

// Name implements TrialSource.
func (w *TrialWrapperDataset) Name() string { return "TrialWrapperDataset" }

// PreloadDataset implements TrialSource. Wrapped trials are already
// backed by their sources' caches.
func (w *TrialWrapperDataset) PreloadDataset() error { return nil }

// LoadSourceTrials implements TrialSource.
func (w *TrialWrapperDataset) LoadSourceTrials() ([]*Trial, error) {
	return append([]*Trial(nil), w.wrapped...), nil
}

// PostLoadTrials implements TrialSource.
func (w *TrialWrapperDataset) PostLoadTrials([]*Trial) error { return nil }

// BalancedWrapperDataset is a dataset view holding equally many trials
// per quadrant label, drawn from a parent dataset's trials at
// construction time and globally shuffled.
type BalancedWrapperDataset struct {
	*Base
	wrapped []*Trial
}

var (
	_ Dataset     = (*BalancedWrapperDataset)(nil)
	_ TrialSource = (*BalancedWrapperDataset)(nil)
)

// newBalancedWrapper draws the balanced trial list from parent. The
// per-quadrant target is the largest bucket size when oversampling
// (sampling with replacement) and the smallest when undersampling
// (sampling without replacement). A dataset with no classified trials
// balances to an empty view; an empty bucket alongside a non-empty one
// fails when oversampling.
func newBalancedWrapper(parent *Base, oversample, useExpected bool) (*BalancedWrapperDataset, error) {
	buckets, err := classBuckets(parent.trials, useExpected)
	if err != nil {
		return nil, err
	}

	target := len(buckets[1])
	for label := 2; label <= quadrantCount; label++ {
		if oversample {
			target = max(target, len(buckets[label]))
		} else {
			target = min(target, len(buckets[label]))
		}
	}

	balanced := make([]*Trial, 0, quadrantCount*target)
	for label := 1; label <= quadrantCount; label++ {
		drawn, err := drawTrials(parent.rng, buckets[label], target, oversample)
		if err != nil {
			return nil, err
		}
		balanced = append(balanced, drawn...)
	}
	parent.rng.Shuffle(len(balanced), func(i, j int) {
		balanced[i], balanced[j] = balanced[j], balanced[i]
	})

	w := &BalancedWrapperDataset{wrapped: balanced}
	w.Base = wrapperBase(parent, w, balanced)
	return w, nil
}

// Name implements TrialSource.
func (w *BalancedWrapperDataset) Name() string { return "BalancedWrapperDataset" }

// PreloadDataset implements TrialSource.
func (w *BalancedWrapperDataset) PreloadDataset() error { return nil }

// LoadSourceTrials implements TrialSource.
func (w *BalancedWrapperDataset) LoadSourceTrials() ([]*Trial, error) {
	return append([]*Trial(nil), w.wrapped...), nil
}

// PostLoadTrials implements TrialSource.
func (w *BalancedWrapperDataset) PostLoadTrials([]*Trial) error { return nil }

// wrapperBase builds the Base for a view over parent's trials: same
// working root, offsets, and registries, with the media-name index
// rebuilt from the wrapped trials only.
func wrapperBase(parent *Base, source TrialSource, trials []*Trial) *Base {
	b := &Base{
		source:            source,
		workingRoot:       parent.workingRoot,
		signals:           append([]string(nil), parent.signals...),
		metadata:          parent.metadata,
		expected:          parent.expected,
		mediaNames:        make(map[int]string),
		procs:             parent.procs,
		participantOffset: parent.participantOffset,
		mediaOffset:       parent.mediaOffset,
		trials:            trials,
		preloaded:         true,
		rng:               parent.rng,
		log:               parent.log,
	}
	indexMediaNames(b, trials)
	return b
}

func indexMediaNames(b *Base, trials []*Trial) {
	for _, t := range trials {
		if name := t.MediaName(); name != "" {
			b.mediaNames[t.MediaID()-b.mediaOffset] = name
		}
	}
}
