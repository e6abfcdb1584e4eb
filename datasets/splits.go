package datasets

import (
	"math"
	"math/rand"

	"github.com/affectsai/ardt/ardterr"
)

// quadrant labels run 1 through 4; 0 marks an unclassified trial.
const quadrantCount = 4

// GetTrialSplits implements Dataset. Fractions must be non-negative and
// sum to 1.0 within 1e-4. Partitioning is by participant, never by trial,
// so one participant's recordings stay on one side of a train/test
// boundary. Fraction-to-count conversion truncates, with the remainder
// assigned to the first split so the counts cover every participant. A
// nil or single-element fractions returns all trials as one group.
func (b *Base) GetTrialSplits(fractions []float64) ([][]*Trial, error) {
	if len(fractions) == 0 {
		fractions = []float64{1}
	}
	var sum float64
	for _, f := range fractions {
		if f < 0 {
			return nil, ardterr.InvalidArgumentf("split fractions must be non-negative, got %v", f)
		}
		sum += f
	}
	if math.Abs(1.0-sum) > 1e-4 {
		return nil, ardterr.InvalidArgumentf("split fractions must sum to 1.0, got %v", sum)
	}
	if len(fractions) == 1 {
		return [][]*Trial{b.trials}, nil
	}

	participants := b.ParticipantIDs()
	counts := make([]int, len(fractions))
	total := 0
	for i, f := range fractions {
		counts[i] = int(f * float64(len(participants)))
		total += counts[i]
	}
	counts[0] += len(participants) - total

	b.rng.Shuffle(len(participants), func(i, j int) {
		participants[i], participants[j] = participants[j], participants[i]
	})

	groups := make([][]*Trial, len(fractions))
	next := 0
	for i, n := range counts {
		members := make(map[int]struct{}, n)
		for _, id := range participants[next : next+n] {
			members[id] = struct{}{}
		}
		next += n

		group := make([]*Trial, 0, n)
		for _, t := range b.trials {
			if _, ok := members[t.ParticipantID()]; ok {
				group = append(group, t)
			}
		}
		groups[i] = group
	}
	return groups, nil
}

// GetDatasetSplits implements Dataset. Each participant group is wrapped
// as a dataset view sharing this dataset's offsets, metadata, expected
// responses, and preprocessors.
func (b *Base) GetDatasetSplits(fractions []float64) ([]Dataset, error) {
	groups, err := b.GetTrialSplits(fractions)
	if err != nil {
		return nil, err
	}
	views := make([]Dataset, len(groups))
	for i, group := range groups {
		views[i] = newTrialWrapper(b, group)
	}
	return views, nil
}

// GetBalancedDataset implements Dataset.
func (b *Base) GetBalancedDataset(oversample, useExpectedResponse bool) (Dataset, error) {
	return newBalancedWrapper(b, oversample, useExpectedResponse)
}

// GetInterleavedTrialDataset implements Dataset. Trials are grouped by
// quadrant label, each group is shuffled and topped up to the largest
// group's size by sampling with replacement, and the groups are merged
// round-robin so consecutive trials cycle through the labels.
func (b *Base) GetInterleavedTrialDataset(useExpectedResponse bool) (Dataset, error) {
	buckets, err := classBuckets(b.trials, useExpectedResponse)
	if err != nil {
		return nil, err
	}

	target := 0
	for label := 1; label <= quadrantCount; label++ {
		target = max(target, len(buckets[label]))
	}

	// Empty classes contribute nothing; every other class is topped up to
	// the largest class size so the round-robin merge below stays aligned.
	lists := make([][]*Trial, 0, quadrantCount)
	for label := 1; label <= quadrantCount; label++ {
		if len(buckets[label]) == 0 {
			continue
		}
		bucket := append([]*Trial(nil), buckets[label]...)
		b.rng.Shuffle(len(bucket), func(i, j int) {
			bucket[i], bucket[j] = bucket[j], bucket[i]
		})
		extra, err := drawTrials(b.rng, buckets[label], target-len(bucket), true)
		if err != nil {
			return nil, err
		}
		lists = append(lists, append(bucket, extra...))
	}

	merged := make([]*Trial, 0, len(lists)*target)
	for i := 0; i < target; i++ {
		for _, list := range lists {
			merged = append(merged, list[i])
		}
	}
	return newTrialWrapper(b, merged), nil
}

// classBuckets groups trials into the four quadrant buckets, keyed by the
// expected media response or by each trial's own ground truth. Every
// bucket is present even when empty; unclassified trials (label 0 or
// outside 1..4) are excluded entirely.
func classBuckets(trials []*Trial, useExpected bool) (map[int][]*Trial, error) {
	buckets := make(map[int][]*Trial, quadrantCount)
	for label := 1; label <= quadrantCount; label++ {
		buckets[label] = nil
	}
	for _, t := range trials {
		var label int
		if useExpected {
			label = t.ExpectedResponse()
		} else {
			var err error
			label, err = t.GroundTruth()
			if err != nil {
				return nil, err
			}
		}
		if label < 1 || label > quadrantCount {
			continue
		}
		buckets[label] = append(buckets[label], t)
	}
	return buckets, nil
}

// drawTrials samples n trials from bucket. Sampling zero is always valid;
// sampling more from an empty bucket fails rather than wrapping around.
func drawTrials(rng *rand.Rand, bucket []*Trial, n int, replacement bool) ([]*Trial, error) {
	if n <= 0 {
		return nil, nil
	}
	if len(bucket) == 0 {
		return nil, ardterr.PreconditionViolatedf(
			"cannot sample %d trials from an empty class bucket", n)
	}
	if replacement {
		out := make([]*Trial, n)
		for i := range out {
			out[i] = bucket[rng.Intn(len(bucket))]
		}
		return out, nil
	}
	if n > len(bucket) {
		return nil, ardterr.PreconditionViolatedf(
			"cannot sample %d of %d trials without replacement", n, len(bucket))
	}
	out := make([]*Trial, 0, n)
	for _, idx := range rng.Perm(len(bucket))[:n] {
		out = append(out, bucket[idx])
	}
	return out, nil
}
