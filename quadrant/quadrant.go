// Package quadrant trains a small MLP to predict the affect quadrant of a
// trial from summary statistics of one of its preprocessed signals. It is a
// self-contained pure-Go trainer, small enough to run inside tests.
package quadrant

import (
	"math"
	"math/rand"
	"time"

	"github.com/affectsai/ardt/ardterr"
)

// ClassCount is the number of affect quadrants.
const ClassCount = 4

// Config holds the model and training hyperparameters.
type Config struct {
	// HiddenSizes lists the hidden layer widths. A single hidden layer of
	// 16 units is used when empty.
	HiddenSizes []int

	// InputDim is the feature vector length. Required.
	InputDim int

	// LearningRate for SGD updates (default 0.01).
	LearningRate float64

	// Epochs to train for (default 20).
	Epochs int

	// BatchSize for mini-batch updates (default 8).
	BatchSize int

	// Seed controls weight initialization and shuffling. A time-based
	// seed is used when zero.
	Seed int64
}

// Examples is the minimal interface the trainer requires. Labels are
// quadrants 1..4.
type Examples interface {
	Len() int
	Example(i int) (features []float32, label int, err error)
}

// Model is an MLP classifier over the four affect quadrants: ReLU hidden
// layers, a linear output layer, and softmax cross-entropy training.
type Model struct {
	Config Config

	// layerSizes includes input size, hidden sizes, then ClassCount.
	layerSizes []int

	// weights[l] is a matrix of shape [out][in] for layer l -> l+1.
	weights [][][]float32
	biases  [][]float32

	rng *rand.Rand
}

// NewModel creates a model ready to train, with weights initialized from
// cfg.Seed.
func NewModel(cfg Config) (*Model, error) {
	if cfg.InputDim < 1 {
		return nil, ardterr.InvalidArgumentf("input dimension must be at least 1, got %d", cfg.InputDim)
	}
	if len(cfg.HiddenSizes) == 0 {
		cfg.HiddenSizes = []int{16}
	}
	if cfg.LearningRate == 0 {
		cfg.LearningRate = 0.01
	}
	if cfg.Epochs == 0 {
		cfg.Epochs = 20
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 8
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	m := &Model{
		Config: cfg,
		rng:    rand.New(rand.NewSource(cfg.Seed)),
	}

	sizes := make([]int, 0, 2+len(cfg.HiddenSizes))
	sizes = append(sizes, cfg.InputDim)
	sizes = append(sizes, cfg.HiddenSizes...)
	sizes = append(sizes, ClassCount)
	m.layerSizes = sizes

	layers := len(sizes) - 1
	m.weights = make([][][]float32, layers)
	m.biases = make([][]float32, layers)
	for l := range layers {
		in, out := sizes[l], sizes[l+1]
		limit := float32(math.Sqrt(6.0 / float64(in+out)))
		mat := make([][]float32, out)
		for j := range out {
			row := make([]float32, in)
			for i := range in {
				row[i] = (m.rng.Float32()*2.0 - 1.0) * limit * 0.5
			}
			mat[j] = row
		}
		m.weights[l] = mat
		m.biases[l] = make([]float32, out)
	}
	return m, nil
}

func reluInPlace(x []float32) {
	for i := range x {
		if x[i] < 0 {
			x[i] = 0
		}
	}
}

func reluDeriv(preact []float32) []float32 {
	d := make([]float32, len(preact))
	for i := range preact {
		if preact[i] > 0 {
			d[i] = 1.0
		}
	}
	return d
}

// softmax returns the normalized class probabilities of the logits.
func softmax(logits []float32) []float32 {
	maxLogit := logits[0]
	for _, v := range logits[1:] {
		if v > maxLogit {
			maxLogit = v
		}
	}
	probs := make([]float32, len(logits))
	var sum float32
	for i, v := range logits {
		e := float32(math.Exp(float64(v - maxLogit)))
		probs[i] = e
		sum += e
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// forwardSingle runs one input through the network, returning the
// pre-activation vectors per layer and the activations per layer
// (activations[0] is the input, the last one the logits).
func (m *Model) forwardSingle(input []float32) (preActs, acts [][]float32, err error) {
	if len(input) != m.layerSizes[0] {
		return nil, nil, ardterr.InvalidArgumentf(
			"feature vector has dimension %d, model expects %d", len(input), m.layerSizes[0])
	}
	layers := len(m.weights)
	acts = make([][]float32, layers+1)
	acts[0] = append([]float32(nil), input...)

	preActs = make([][]float32, layers)
	for l := range layers {
		inVec := acts[l]
		outDim := len(m.biases[l])
		pre := make([]float32, outDim)
		for j := range outDim {
			sum := m.biases[l][j]
			row := m.weights[l][j]
			for i, v := range inVec {
				sum += row[i] * v
			}
			pre[j] = sum
		}
		preActs[l] = pre

		act := append([]float32(nil), pre...)
		if l < layers-1 {
			reluInPlace(act)
		}
		acts[l+1] = act
	}
	return preActs, acts, nil
}

// Probabilities returns the class probability of each quadrant, indexed by
// quadrant-1.
func (m *Model) Probabilities(features []float32) ([]float32, error) {
	_, acts, err := m.forwardSingle(features)
	if err != nil {
		return nil, err
	}
	return softmax(acts[len(acts)-1]), nil
}

// Classify returns the most likely quadrant (1..4) for the features.
func (m *Model) Classify(features []float32) (int, error) {
	probs, err := m.Probabilities(features)
	if err != nil {
		return 0, err
	}
	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}
	return best + 1, nil
}

// Train runs mini-batch SGD with softmax cross-entropy loss over the
// examples for the configured number of epochs.
func (m *Model) Train(examples Examples) error {
	if examples == nil || examples.Len() == 0 {
		return ardterr.InvalidArgumentf("no examples to train on")
	}
	n := examples.Len()
	lr := float32(m.Config.LearningRate)

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}

	for range m.Config.Epochs {
		m.rng.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})

		for start := 0; start < n; start += m.Config.BatchSize {
			end := min(start+m.Config.BatchSize, n)
			if err := m.trainBatch(examples, indices[start:end], lr); err != nil {
				return err
			}
		}
	}
	return nil
}

// trainBatch accumulates the gradients of one mini-batch and applies the
// averaged update.
func (m *Model) trainBatch(examples Examples, batch []int, lr float32) error {
	layers := len(m.weights)
	gradW := make([][][]float32, layers)
	gradB := make([][]float32, layers)
	for l := range layers {
		outDim := len(m.biases[l])
		inDim := len(m.weights[l][0])
		gradW[l] = make([][]float32, outDim)
		for j := range outDim {
			gradW[l][j] = make([]float32, inDim)
		}
		gradB[l] = make([]float32, outDim)
	}

	for _, idx := range batch {
		features, label, err := examples.Example(idx)
		if err != nil {
			return err
		}
		if label < 1 || label > ClassCount {
			return ardterr.InvalidArgumentf("example %d has label %d outside 1..%d", idx, label, ClassCount)
		}

		preActs, acts, err := m.forwardSingle(features)
		if err != nil {
			return err
		}

		// Softmax cross-entropy: dLoss/dLogit = probs - onehot.
		probs := softmax(acts[len(acts)-1])
		delta := append([]float32(nil), probs...)
		delta[label-1] -= 1.0

		for l := layers - 1; l >= 0; l-- {
			inAct := acts[l]
			for j := range delta {
				gradB[l][j] += delta[j]
				for i, v := range inAct {
					gradW[l][j][i] += delta[j] * v
				}
			}

			if l > 0 {
				prevLen := len(m.weights[l][0])
				newDelta := make([]float32, prevLen)
				for i := range prevLen {
					var sum float32
					for j := range delta {
						sum += m.weights[l][j][i] * delta[j]
					}
					newDelta[i] = sum
				}
				deriv := reluDeriv(preActs[l-1])
				for i := range prevLen {
					newDelta[i] *= deriv[i]
				}
				delta = newDelta
			}
		}
	}

	scale := lr / float32(len(batch))
	for l := range layers {
		for j := range m.biases[l] {
			m.biases[l][j] -= scale * gradB[l][j]
			for i := range m.weights[l][j] {
				m.weights[l][j][i] -= scale * gradW[l][j][i]
			}
		}
	}
	return nil
}

// Evaluate returns the fraction of examples whose quadrant the model
// classifies correctly.
func (m *Model) Evaluate(examples Examples) (float64, error) {
	if examples == nil || examples.Len() == 0 {
		return 0, ardterr.InvalidArgumentf("no examples to evaluate")
	}
	correct := 0
	for i := range examples.Len() {
		features, label, err := examples.Example(i)
		if err != nil {
			return 0, err
		}
		got, err := m.Classify(features)
		if err != nil {
			return 0, err
		}
		if got == label {
			correct++
		}
	}
	return float64(correct) / float64(examples.Len()), nil
}
