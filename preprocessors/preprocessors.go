// Package preprocessors implements the composable signal-preprocessing
// pipeline applied to trial signals before they reach a model.
//
// A preprocessor is a node in a chain: an optional Parent runs before it and
// an optional Child runs after it, so invoking any node computes
// child(node(parent(signal))). Chains can be assembled from either end and
// re-linked between runs, and one parent may feed different children for
// different trials. Signals are channels-by-samples [][]float64 buffers;
// nodes never mutate their input.
package preprocessors

// SignalPreprocessor transforms a channels-by-samples signal buffer.
type SignalPreprocessor interface {
	Process(signal [][]float64) ([][]float64, error)
}

// Node is the composition cell embedded by every preprocessor. Set Parent
// to run another preprocessor before this one, Child to run one after.
type Node struct {
	Parent SignalPreprocessor
	Child  SignalPreprocessor
}

// run invokes the chain protocol around transform.
func (n *Node) run(signal [][]float64, transform func([][]float64) ([][]float64, error)) ([][]float64, error) {
	var err error
	if n.Parent != nil {
		signal, err = n.Parent.Process(signal)
		if err != nil {
			return nil, err
		}
	}
	signal, err = transform(signal)
	if err != nil {
		return nil, err
	}
	if n.Child != nil {
		signal, err = n.Child.Process(signal)
		if err != nil {
			return nil, err
		}
	}
	return signal, nil
}

// Func adapts a plain function into a chain node, for one-off transforms.
type Func struct {
	Node
	F func(signal [][]float64) ([][]float64, error)
}

// NewFunc wraps f as a SignalPreprocessor.
func NewFunc(f func(signal [][]float64) ([][]float64, error)) *Func {
	return &Func{F: f}
}

// Process implements SignalPreprocessor.
func (p *Func) Process(signal [][]float64) ([][]float64, error) {
	return p.Node.run(signal, p.F)
}
