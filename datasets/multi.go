package datasets

import (
	"golang.org/x/sync/errgroup"

	"github.com/affectsai/ardt/ardterr"
)

// MultiDataset composes heterogeneous datasets into one. Each child is
// assigned participant and media offsets equal to the cumulative id-space
// size of the children merged before it, so ids never collide across
// sources. Filters are applied by each child's own load, before the id
// spaces are merged.
type MultiDataset struct {
	*Base
	children []Dataset
}

var (
	_ Dataset     = (*MultiDataset)(nil)
	_ TrialSource = (*MultiDataset)(nil)
)

// NewMultiDataset composes children under a shared cache root. signals
// selects the signal types the composition preloads.
func NewMultiDataset(workingRoot string, signals []string, children ...Dataset) (*MultiDataset, error) {
	if len(children) == 0 {
		return nil, ardterr.InvalidArgumentf("a multi dataset requires at least one child dataset")
	}
	m := &MultiDataset{children: children}
	m.Base = NewBase(m, workingRoot, signals)
	return m, nil
}

// Name implements TrialSource.
func (m *MultiDataset) Name() string { return "MultiDataset" }

// PreloadDataset implements TrialSource. Children preload independent
// working directories, so the preloads run in parallel.
func (m *MultiDataset) PreloadDataset() error {
	var g errgroup.Group
	for _, child := range m.children {
		g.Go(child.Preload)
	}
	return g.Wait()
}

// LoadTrials implements Dataset. Filters are passed to each child's own
// LoadTrials so that filtering and id renumbering happen before the id
// spaces are merged; the merged list is not filtered again.
func (m *MultiDataset) LoadTrials(filters ...TrialFilter) error {
	for _, child := range m.children {
		if err := child.LoadTrials(filters...); err != nil {
			return err
		}
	}
	return m.Base.LoadTrials()
}

// LoadSourceTrials implements TrialSource. Offsets are assigned
// sequentially over the child list: each child's offset is fixed before
// its id counts contribute to the running totals.
func (m *MultiDataset) LoadSourceTrials() ([]*Trial, error) {
	var trials []*Trial
	participants, media := 0, 0
	for _, child := range m.children {
		child.SetParticipantOffset(participants)
		participants += len(child.ParticipantIDs())

		child.SetMediaOffset(media)
		media += len(child.MediaIDs())

		trials = append(trials, child.Trials()...)
	}
	return trials, nil
}

// PostLoadTrials implements TrialSource.
func (m *MultiDataset) PostLoadTrials([]*Trial) error { return nil }

// GetMediaNameByID implements Dataset by asking each child in order.
func (m *MultiDataset) GetMediaNameByID(mediaID int) (string, error) {
	for _, child := range m.children {
		if name, err := child.GetMediaNameByID(mediaID); err == nil {
			return name, nil
		}
	}
	return "", ardterr.NotImplementedf("no child dataset names media %d", mediaID)
}
