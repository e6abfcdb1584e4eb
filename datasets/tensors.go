package datasets

import (
	"fmt"
	"io"
	"math/rand"
	"runtime"
	"sync"

	"github.com/gomlx/gomlx/pkg/core/tensors"

	"github.com/affectsai/ardt/ardterr"
)

// TrialBatchFlat stores one batch of preprocessed trial signals in flat
// contiguous buffers, shaped batch x channels x samples.
type TrialBatchFlat struct {
	Signals   []float32
	Labels    []int32
	BatchSize int
	Channels  int
	Samples   int
}

// MakeTrialBatchFlat flattens per-trial signal matrices and labels into
// contiguous buffers. Every matrix must share one channels-by-samples
// shape; route trials through a fixed-duration preprocessor when the
// source durations vary.
func MakeTrialBatchFlat(signals [][][]float64, labels []int32) (*TrialBatchFlat, error) {
	if len(signals) != len(labels) {
		return nil, ardterr.InvalidArgumentf(
			"signal and label batch sizes don't match: %d != %d", len(signals), len(labels))
	}
	if len(signals) == 0 {
		return &TrialBatchFlat{}, nil
	}

	batchSize := len(signals)
	channels := len(signals[0])
	samples := 0
	if channels > 0 {
		samples = len(signals[0][0])
	}

	flat := make([]float32, batchSize*channels*samples)
	for i, signal := range signals {
		if len(signal) != channels {
			return nil, ardterr.InvalidArgumentf(
				"inconsistent channel count at example %d: expected %d, got %d",
				i, channels, len(signal))
		}
		for c, channel := range signal {
			if len(channel) != samples {
				return nil, ardterr.InvalidArgumentf(
					"inconsistent sample count at example %d channel %d: expected %d, got %d",
					i, c, samples, len(channel))
			}
			base := (i*channels + c) * samples
			for s, v := range channel {
				flat[base+s] = float32(v)
			}
		}
	}

	return &TrialBatchFlat{
		Signals:   flat,
		Labels:    append([]int32(nil), labels...),
		BatchSize: batchSize,
		Channels:  channels,
		Samples:   samples,
	}, nil
}

// ToTensors converts the batch into gomlx tensors: signals shaped
// [BatchSize, Channels, Samples] and labels shaped [BatchSize].
func (b *TrialBatchFlat) ToTensors() (*tensors.Tensor, *tensors.Tensor, error) {
	if b.BatchSize == 0 || b.Channels == 0 || b.Samples == 0 {
		return tensors.FromAnyValue(make([][][]float32, 0)),
			tensors.FromAnyValue(make([]int32, 0)), nil
	}
	signals := make([][][]float32, b.BatchSize)
	for i := range b.BatchSize {
		signals[i] = make([][]float32, b.Channels)
		for c := range b.Channels {
			base := (i*b.Channels + c) * b.Samples
			signals[i][c] = b.Signals[base : base+b.Samples]
		}
	}
	return tensors.FromAnyValue(signals), tensors.FromAnyValue(b.Labels), nil
}

// TensorDatasetWrapper adapts a Dataset to the gomlx train.Dataset
// contract: Yield produces one batch of preprocessed signal tensors and
// quadrant labels per call and reports io.EOF when the epoch is
// exhausted. The final batch of an epoch may be smaller than BatchSize.
type TensorDatasetWrapper struct {
	Dataset    Dataset
	SignalType string
	BatchSize  int

	// UseExpectedResponse labels batches with the curated media response
	// instead of each trial's self-reported ground truth.
	UseExpectedResponse bool

	rng   *rand.Rand
	order []int
	next  int
}

// NewTensorDatasetWrapper builds a batching adapter over dataset's loaded
// trials for one signal type.
func NewTensorDatasetWrapper(dataset Dataset, signalType string, batchSize int) (*TensorDatasetWrapper, error) {
	if batchSize < 1 {
		return nil, ardterr.InvalidArgumentf("batch size must be positive, got %d", batchSize)
	}
	w := &TensorDatasetWrapper{
		Dataset:    dataset,
		SignalType: signalType,
		BatchSize:  batchSize,
	}
	w.reindex()
	return w, nil
}

// Name implements the gomlx train.Dataset interface.
func (w *TensorDatasetWrapper) Name() string {
	return fmt.Sprintf("%s[%s]", w.Dataset.Name(), w.SignalType)
}

// Shuffle randomizes the epoch order. Each Restart reshuffles.
func (w *TensorDatasetWrapper) Shuffle(seed int64) {
	w.rng = rand.New(rand.NewSource(seed))
	w.shuffleOrder()
}

// Yield implements the gomlx train.Dataset interface.
func (w *TensorDatasetWrapper) Yield() (spec any, inputs []*tensors.Tensor, labels []*tensors.Tensor, err error) {
	if w.next >= len(w.order) {
		return nil, nil, nil, io.EOF
	}
	end := min(w.next+w.BatchSize, len(w.order))
	all := w.Dataset.Trials()
	batch := make([]*Trial, 0, end-w.next)
	for _, idx := range w.order[w.next:end] {
		batch = append(batch, all[idx])
	}
	w.next = end

	flat, err := w.materialize(batch)
	if err != nil {
		return nil, nil, nil, err
	}
	in, la, err := flat.ToTensors()
	if err != nil {
		return nil, nil, nil, err
	}
	return nil, []*tensors.Tensor{in}, []*tensors.Tensor{la}, nil
}

// Restart implements the gomlx train.Dataset interface, rewinding to the
// start of a new epoch.
func (w *TensorDatasetWrapper) Restart() error {
	w.reindex()
	w.shuffleOrder()
	return nil
}

func (w *TensorDatasetWrapper) reindex() {
	w.order = make([]int, w.Dataset.TrialCount())
	for i := range w.order {
		w.order[i] = i
	}
	w.next = 0
}

func (w *TensorDatasetWrapper) shuffleOrder() {
	if w.rng == nil {
		return
	}
	w.rng.Shuffle(len(w.order), func(i, j int) {
		w.order[i], w.order[j] = w.order[j], w.order[i]
	})
	w.next = 0
}

// materialize loads and preprocesses the batch trials in parallel, then
// assembles the flat batch in order. Balanced and interleaved views repeat
// trials, so the parallel phase runs once per distinct trial; repeats hit
// the memoized result.
func (w *TensorDatasetWrapper) materialize(batch []*Trial) (*TrialBatchFlat, error) {
	unique := make([]*Trial, 0, len(batch))
	seen := make(map[*Trial]struct{}, len(batch))
	for _, t := range batch {
		if _, ok := seen[t]; !ok {
			seen[t] = struct{}{}
			unique = append(unique, t)
		}
	}

	workerCount := runtime.NumCPU()
	if workerCount > len(unique) {
		workerCount = len(unique)
	}
	jobs := make(chan int, len(unique))
	loadErrs := make([]error, len(unique))
	var wg sync.WaitGroup
	wg.Add(workerCount)
	for range workerCount {
		go func() {
			defer wg.Done()
			for idx := range jobs {
				_, loadErrs[idx] = unique[idx].LoadPreprocessedSignalData(w.SignalType)
			}
		}()
	}
	for i := range unique {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	for _, err := range loadErrs {
		if err != nil {
			return nil, fmt.Errorf("failed to materialize batch: %w", err)
		}
	}

	signals := make([][][]float64, len(batch))
	labels := make([]int32, len(batch))
	for i, t := range batch {
		signal, err := t.LoadPreprocessedSignalData(w.SignalType)
		if err != nil {
			return nil, err
		}
		signals[i] = signal

		label := 0
		if w.UseExpectedResponse {
			label = t.ExpectedResponse()
		} else {
			label, err = t.GroundTruth()
			if err != nil {
				return nil, err
			}
		}
		labels[i] = int32(label)
	}
	return MakeTrialBatchFlat(signals, labels)
}
