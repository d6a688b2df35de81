package nn

import (
	"errors"
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrInputSize is returned by Predict when the input width does not match
	// the first layer.
	ErrInputSize = errors.New("input size mismatch")
	// ErrTopologyMismatch is returned when two networks with different layer
	// sizes are combined.
	ErrTopologyMismatch = errors.New("network topology mismatch")
)

// DefaultActivation is used when no activation is configured.
const DefaultActivation = "relu"

// layer holds one fully connected layer. Row i of weights together with
// biases[i] is neuron i.
type layer struct {
	weights *mat.Dense    // neurons x upstream width
	biases  *mat.VecDense // neurons
}

// Network is a fixed-topology feedforward network. The forward pass never
// modifies it; only Mutate writes weights, and Crossover always builds a new
// instance, so parents and children never share weight storage.
type Network struct {
	layers     []layer
	activation string
	actFn      ActivationFunc
}

type options struct {
	activation string
	initRange  float64
}

// Option configures New.
type Option func(*options)

// WithActivation selects the activation function by name (see Activations).
func WithActivation(name string) Option {
	return func(o *options) { o.activation = name }
}

// WithInitRange sets the half-width of the uniform interval used for initial
// weights and biases.
func WithInitRange(r float64) Option {
	return func(o *options) { o.initRange = r }
}

// New creates a network with the given layer widths, inputs first. Every
// weight and bias is drawn uniformly from [-r, r] (r = 1 unless overridden).
func New(rng *rand.Rand, sizes []int, opts ...Option) (*Network, error) {
	o := options{activation: DefaultActivation, initRange: 1}
	for _, opt := range opts {
		opt(&o)
	}
	if len(sizes) < 2 {
		return nil, fmt.Errorf("network needs at least an input and an output layer, got %d sizes", len(sizes))
	}
	for i, s := range sizes {
		if s <= 0 {
			return nil, fmt.Errorf("layer %d: size must be positive, got %d", i, s)
		}
	}
	actFn, err := GetActivation(o.activation)
	if err != nil {
		return nil, err
	}

	n := &Network{activation: o.activation, actFn: actFn}
	for i := 1; i < len(sizes); i++ {
		neurons, upstream := sizes[i], sizes[i-1]
		w := make([]float64, neurons*upstream)
		b := make([]float64, neurons)
		// Neuron by neuron: the weight row, then its bias.
		for j := 0; j < neurons; j++ {
			row := w[j*upstream : (j+1)*upstream]
			for k := range row {
				row[k] = uniform(rng, o.initRange)
			}
			b[j] = uniform(rng, o.initRange)
		}
		n.layers = append(n.layers, layer{
			weights: mat.NewDense(neurons, upstream, w),
			biases:  mat.NewVecDense(neurons, b),
		})
	}
	return n, nil
}

// uniform draws from [-r, r).
func uniform(rng *rand.Rand, r float64) float64 {
	return (rng.Float64()*2 - 1) * r
}

// Sizes returns the layer widths, inputs first.
func (n *Network) Sizes() []int {
	sizes := make([]int, 0, len(n.layers)+1)
	_, in := n.layers[0].weights.Dims()
	sizes = append(sizes, in)
	for _, l := range n.layers {
		rows, _ := l.weights.Dims()
		sizes = append(sizes, rows)
	}
	return sizes
}

// Activation returns the name of the activation function.
func (n *Network) Activation() string { return n.activation }

// Predict runs the forward pass: for each neuron, bias plus the weighted sum
// of the previous layer, passed through the activation function.
func (n *Network) Predict(inputs []float64) ([]float64, error) {
	_, width := n.layers[0].weights.Dims()
	if len(inputs) != width {
		return nil, fmt.Errorf("%w: got %d values, network expects %d", ErrInputSize, len(inputs), width)
	}

	x := mat.NewVecDense(len(inputs), append([]float64(nil), inputs...))
	for _, l := range n.layers {
		rows, _ := l.weights.Dims()
		out := mat.NewVecDense(rows, nil)
		out.MulVec(l.weights, x)
		out.AddVec(out, l.biases)
		raw := out.RawVector().Data
		for i, v := range raw {
			raw[i] = n.actFn(v)
		}
		x = out
	}
	return append([]float64(nil), x.RawVector().Data...), nil
}

// Crossover builds a child whose every bias and every weight is taken from a
// or b with equal probability, independently per value.
func Crossover(rng *rand.Rand, a, b *Network) (*Network, error) {
	if !sameTopology(a, b) {
		return nil, fmt.Errorf("%w: %v vs %v", ErrTopologyMismatch, a.Sizes(), b.Sizes())
	}
	child := &Network{activation: a.activation, actFn: a.actFn}
	for i := range a.layers {
		la, lb := a.layers[i], b.layers[i]
		neurons, upstream := la.weights.Dims()
		w := make([]float64, neurons*upstream)
		bias := make([]float64, neurons)
		for j := 0; j < neurons; j++ {
			if rng.Float64() < 0.5 {
				bias[j] = la.biases.AtVec(j)
			} else {
				bias[j] = lb.biases.AtVec(j)
			}
			ra, rb := la.weights.RawRowView(j), lb.weights.RawRowView(j)
			row := w[j*upstream : (j+1)*upstream]
			for k := range row {
				if rng.Float64() < 0.5 {
					row[k] = ra[k]
				} else {
					row[k] = rb[k]
				}
			}
		}
		child.layers = append(child.layers, layer{
			weights: mat.NewDense(neurons, upstream, w),
			biases:  mat.NewVecDense(neurons, bias),
		})
	}
	return child, nil
}

// Mutate perturbs the network in place: each bias and each weight,
// independently with probability rate, gets a uniform offset in [-power, power).
// Only call it on a network no other individual references.
func (n *Network) Mutate(rng *rand.Rand, rate, power float64) {
	for _, l := range n.layers {
		neurons, _ := l.weights.Dims()
		bias := l.biases.RawVector().Data
		for j := 0; j < neurons; j++ {
			if rng.Float64() < rate {
				bias[j] += uniform(rng, power)
			}
			row := l.weights.RawRowView(j)
			for k := range row {
				if rng.Float64() < rate {
					row[k] += uniform(rng, power)
				}
			}
		}
	}
}

// Clone returns a deep copy.
func (n *Network) Clone() *Network {
	c := &Network{activation: n.activation, actFn: n.actFn}
	for _, l := range n.layers {
		c.layers = append(c.layers, layer{
			weights: mat.DenseCopyOf(l.weights),
			biases:  mat.VecDenseCopyOf(l.biases),
		})
	}
	return c
}

// Equal reports whether both networks have the same topology, activation
// and identical weights and biases.
func (n *Network) Equal(other *Network) bool {
	if n.activation != other.activation || !sameTopology(n, other) {
		return false
	}
	for i := range n.layers {
		if !mat.Equal(n.layers[i].weights, other.layers[i].weights) ||
			!mat.Equal(n.layers[i].biases, other.layers[i].biases) {
			return false
		}
	}
	return true
}

func sameTopology(a, b *Network) bool {
	if len(a.layers) != len(b.layers) {
		return false
	}
	for i := range a.layers {
		ar, ac := a.layers[i].weights.Dims()
		br, bc := b.layers[i].weights.Dims()
		if ar != br || ac != bc {
			return false
		}
	}
	return true
}

// LayerTopology is a read-only export of one layer for visualization.
type LayerTopology struct {
	NeuronCount int
	Weights     [][]float64 // one weight vector per neuron
	Biases      []float64
}

// Topology copies out every layer. Changing the result does not affect the network.
func (n *Network) Topology() []LayerTopology {
	out := make([]LayerTopology, len(n.layers))
	for i, l := range n.layers {
		neurons, _ := l.weights.Dims()
		lt := LayerTopology{
			NeuronCount: neurons,
			Weights:     make([][]float64, neurons),
			Biases:      append([]float64(nil), l.biases.RawVector().Data...),
		}
		for j := 0; j < neurons; j++ {
			lt.Weights[j] = append([]float64(nil), l.weights.RawRowView(j)...)
		}
		out[i] = lt
	}
	return out
}
