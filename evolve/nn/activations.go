package nn

import (
	"fmt"
	"math"
)

// ActivationFunc is applied to every neuron's weighted sum.
type ActivationFunc func(x float64) float64

// Activations maps names to activation functions so configuration can pick
// one by name.
var Activations = map[string]ActivationFunc{
	"relu":     ReLU,
	"identity": Identity,
	"sigmoid":  Sigmoid,
	"tanh":     Tanh,
	"clamped":  Clamped,
}

// GetActivation retrieves an activation function by name.
func GetActivation(name string) (ActivationFunc, error) {
	if fn, ok := Activations[name]; ok {
		return fn, nil
	}
	return nil, fmt.Errorf("unknown activation function: %s", name)
}

// ReLU (Rectified Linear Unit) activation function.
func ReLU(x float64) float64 {
	if x > 0 {
		return x
	}
	return 0
}

// Identity activation function (linear).
func Identity(x float64) float64 {
	return x
}

// Sigmoid is the logistic function 1 / (1 + e^-x).
func Sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// Tanh activation function.
func Tanh(x float64) float64 {
	return math.Tanh(x)
}

// Clamped activation function (clamps output between -1 and 1).
func Clamped(x float64) float64 {
	return math.Max(-1.0, math.Min(x, 1.0))
}
