// Package policies selects the next action label from the classifier
// output, either greedily or by sampling the class distribution.
package policies

import (
	"fmt"
	"time"

	"github.com/zeu5/tablesim-decider/models"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/sampleuv"
)

// Sampling chooses how stochastic selection walks the class distribution
type Sampling string

const (
	// SamplingObserved accumulates probability mass starting from the
	// second class, so the first class is never drawn
	SamplingObserved Sampling = "observed"
	// SamplingWeighted draws from the full distribution
	SamplingWeighted Sampling = "weighted"
)

func ParseSampling(s string) (Sampling, error) {
	switch Sampling(s) {
	case SamplingObserved, SamplingWeighted:
		return Sampling(s), nil
	case "":
		return SamplingObserved, nil
	}
	return "", fmt.Errorf("unknown sampling mode %q", s)
}

// NewSource returns a source safe for concurrent use. A zero seed picks
// one from the clock.
func NewSource(seed uint64) rand.Source {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	src := &rand.LockedSource{}
	src.Seed(seed)
	return src
}

// ActionPredictor applies the action classifier to a feature vector
type ActionPredictor struct {
	model      models.Classifier
	stochastic bool
	sampling   Sampling
	src        rand.Source
	rand       *rand.Rand
}

func NewActionPredictor(model models.Classifier, stochastic bool, sampling Sampling, src rand.Source) *ActionPredictor {
	return &ActionPredictor{
		model:      model,
		stochastic: stochastic,
		sampling:   sampling,
		src:        src,
		rand:       rand.New(src),
	}
}

func (p *ActionPredictor) Stochastic() bool {
	return p.stochastic
}

// Predict returns the action label for the features
func (p *ActionPredictor) Predict(features []float64) (int, error) {
	if !p.stochastic {
		return p.model.Predict(features)
	}
	probs, err := p.model.PredictProba(features)
	if err != nil {
		return 0, err
	}
	classes := p.model.Classes()
	if len(classes) != len(probs) {
		return 0, fmt.Errorf("classifier returned %d probabilities for %d classes", len(probs), len(classes))
	}
	if p.sampling == SamplingWeighted {
		return SelectWeighted(probs, classes, p.src), nil
	}
	return SelectObserved(probs, classes, p.rand.Float64()), nil
}

// SelectObserved accumulates probabilities from index 1 until the mass
// reaches u and returns that class. Index 0 is never selected; label 0 is
// returned when the mass never reaches u.
func SelectObserved(probs []float64, classes []int, u float64) int {
	cprob := 0.0
	for i := 1; i < len(probs); i++ {
		cprob += probs[i]
		if cprob >= u {
			return classes[i]
		}
	}
	return 0
}

// SelectWeighted samples a class with probability proportional to its
// weight, label 0 when every weight is zero
func SelectWeighted(probs []float64, classes []int, src rand.Source) int {
	weights := append([]float64(nil), probs...)
	i, ok := sampleuv.NewWeighted(weights, src).Take()
	if !ok {
		return 0
	}
	return classes[i]
}
