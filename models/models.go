// Package models holds the pretrained predictors consumed by the decision
// engine: an action classifier and two target regressors.
package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrDimension   = errors.New("feature vector does not match model dimension")
	ErrUnknownKind = errors.New("unknown model kind")
	ErrMalformed   = errors.New("malformed model")
)

const (
	KindSoftmax = "softmax"
	KindLinear  = "linear"
)

// Classifier maps a feature vector to an action label
type Classifier interface {
	// Predict returns the most probable class
	Predict([]float64) (int, error)
	// PredictProba returns the probabilities index-aligned with Classes
	PredictProba([]float64) ([]float64, error)
	Classes() []int
}

// Regressor maps a feature vector to a container-local (x, y) target
type Regressor interface {
	Predict([]float64) (float64, float64, error)
}

// linear holds y = Wx + b
type linear struct {
	weights *mat.Dense
	bias    *mat.VecDense
}

func newLinear(weights [][]float64, bias []float64) (*linear, error) {
	rows := len(weights)
	if rows == 0 || len(weights[0]) == 0 {
		return nil, fmt.Errorf("%w: empty weights", ErrMalformed)
	}
	if len(bias) != rows {
		return nil, fmt.Errorf("%w: %d bias terms for %d rows", ErrMalformed, len(bias), rows)
	}
	cols := len(weights[0])
	data := make([]float64, 0, rows*cols)
	for i, row := range weights {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrMalformed, i, len(row), cols)
		}
		data = append(data, row...)
	}
	b := make([]float64, rows)
	copy(b, bias)
	return &linear{
		weights: mat.NewDense(rows, cols, data),
		bias:    mat.NewVecDense(rows, b),
	}, nil
}

func (l *linear) apply(features []float64) ([]float64, error) {
	rows, cols := l.weights.Dims()
	if len(features) != cols {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimension, len(features), cols)
	}
	x := mat.NewVecDense(cols, append([]float64(nil), features...))
	out := mat.NewVecDense(rows, nil)
	out.MulVec(l.weights, x)
	out.AddVec(out, l.bias)
	return out.RawVector().Data, nil
}

// SoftmaxClassifier is a multinomial logistic model
type SoftmaxClassifier struct {
	*linear
	classes []int
}

var _ Classifier = &SoftmaxClassifier{}

func NewSoftmaxClassifier(classes []int, weights [][]float64, bias []float64) (*SoftmaxClassifier, error) {
	l, err := newLinear(weights, bias)
	if err != nil {
		return nil, err
	}
	if rows, _ := l.weights.Dims(); rows != len(classes) {
		return nil, fmt.Errorf("%w: %d classes for %d weight rows", ErrMalformed, len(classes), rows)
	}
	return &SoftmaxClassifier{
		linear:  l,
		classes: append([]int(nil), classes...),
	}, nil
}

func (s *SoftmaxClassifier) Classes() []int {
	return append([]int(nil), s.classes...)
}

func (s *SoftmaxClassifier) PredictProba(features []float64) ([]float64, error) {
	z, err := s.apply(features)
	if err != nil {
		return nil, err
	}
	m := floats.Max(z)
	for i, v := range z {
		z[i] = math.Exp(v - m)
	}
	floats.Scale(1/floats.Sum(z), z)
	return z, nil
}

func (s *SoftmaxClassifier) Predict(features []float64) (int, error) {
	probs, err := s.PredictProba(features)
	if err != nil {
		return 0, err
	}
	return s.classes[floats.MaxIdx(probs)], nil
}

// LinearRegressor predicts a two dimensional target
type LinearRegressor struct {
	*linear
}

var _ Regressor = &LinearRegressor{}

func NewLinearRegressor(weights [][]float64, bias []float64) (*LinearRegressor, error) {
	l, err := newLinear(weights, bias)
	if err != nil {
		return nil, err
	}
	if rows, _ := l.weights.Dims(); rows != 2 {
		return nil, fmt.Errorf("%w: regressor needs 2 output rows, got %d", ErrMalformed, rows)
	}
	return &LinearRegressor{linear: l}, nil
}

func (r *LinearRegressor) Predict(features []float64) (float64, float64, error) {
	out, err := r.apply(features)
	if err != nil {
		return 0, 0, err
	}
	return out[0], out[1], nil
}

// File is the on-disk representation of a model
type File struct {
	Kind    string      `json:"kind"`
	Classes []int       `json:"classes,omitempty"`
	Weights [][]float64 `json:"weights"`
	Bias    []float64   `json:"bias"`
}

func readFile(path string) (*File, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f := &File{}
	if err := json.Unmarshal(bs, f); err != nil {
		return nil, fmt.Errorf("decoding model %s: %w", path, err)
	}
	return f, nil
}

func LoadClassifier(path string) (*SoftmaxClassifier, error) {
	f, err := readFile(path)
	if err != nil {
		return nil, err
	}
	if f.Kind != KindSoftmax {
		return nil, fmt.Errorf("%w: %q in %s, want %q", ErrUnknownKind, f.Kind, path, KindSoftmax)
	}
	return NewSoftmaxClassifier(f.Classes, f.Weights, f.Bias)
}

func LoadRegressor(path string) (*LinearRegressor, error) {
	f, err := readFile(path)
	if err != nil {
		return nil, err
	}
	if f.Kind != KindLinear {
		return nil, fmt.Errorf("%w: %q in %s, want %q", ErrUnknownKind, f.Kind, path, KindLinear)
	}
	return NewLinearRegressor(f.Weights, f.Bias)
}
