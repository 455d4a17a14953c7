// Package decision turns a world snapshot into the next action: it
// classifies the action, then resolves the target of PLACE and MOVE_ARM
// actions.
package decision

import (
	"fmt"

	"github.com/zeu5/tablesim-decider/features"
	"github.com/zeu5/tablesim-decider/geometry"
	"github.com/zeu5/tablesim-decider/models"
	"github.com/zeu5/tablesim-decider/policies"
	"github.com/zeu5/tablesim-decider/types"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
)

// Vectorizer builds the classifier input for a state and its prior states
type Vectorizer interface {
	Vector(*types.WorldState, []*types.WorldState) []float64
}

// LabelPredictor returns an action label for a feature vector
type LabelPredictor interface {
	Predict([]float64) (int, error)
}

// LabelDecoder splits a label into action type and target
type LabelDecoder interface {
	Decode(int) (types.Decision, error)
}

var (
	_ Vectorizer     = features.Vectorizer{}
	_ LabelPredictor = &policies.ActionPredictor{}
	_ LabelDecoder   = features.LabelCodec{}
)

// EngineConfig wires the predictors and collaborators of an Engine.
// Optional fields fall back to the package defaults.
type EngineConfig struct {
	Vectorizer    Vectorizer
	Predictor     LabelPredictor
	PlaceModel    models.Regressor
	MoveModel     models.Regressor
	SemanticPlace bool

	Decoder  LabelDecoder
	Search   CandidateSearch
	ToGlobal FrameConverter
	Source   rand.Source
	Logger   *zap.Logger
}

// Engine selects actions. It keeps no per-episode state and may serve
// independent requests concurrently.
type Engine struct {
	vectorizer Vectorizer
	predictor  LabelPredictor
	decoder    LabelDecoder
	place      *PlacementResolver
	move       *MoveTargetResolver
	logger     *zap.Logger
}

func NewEngine(config *EngineConfig) *Engine {
	decoder := config.Decoder
	if decoder == nil {
		decoder = features.LabelCodec{}
	}
	search := config.Search
	if search == nil {
		search = geometry.Candidates
	}
	toGlobal := config.ToGlobal
	if toGlobal == nil {
		toGlobal = features.ToGlobalFrame
	}
	src := config.Source
	if src == nil {
		src = policies.NewSource(0)
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		vectorizer: config.Vectorizer,
		predictor:  config.Predictor,
		decoder:    decoder,
		place:      NewPlacementResolver(config.PlaceModel, config.SemanticPlace, search, toGlobal, rand.New(src), logger),
		move:       NewMoveTargetResolver(config.MoveModel, toGlobal),
		logger:     logger,
	}
}

// SelectAction returns the next action for the state. history holds the
// prior snapshots of the episode, oldest first.
func (e *Engine) SelectAction(state *types.WorldState, history []*types.WorldState) (types.Action, error) {
	if err := state.Validate(); err != nil {
		return types.Action{}, err
	}
	vec := e.vectorizer.Vector(state, history)
	label, err := e.predictor.Predict(vec)
	if err != nil {
		return types.Action{}, fmt.Errorf("classifying action: %w", err)
	}
	return e.assemble(state, vec, label)
}

// assemble resolves the parameters of the decoded label
func (e *Engine) assemble(state *types.WorldState, vec []float64, label int) (types.Action, error) {
	decision, err := e.decoder.Decode(label)
	if err != nil {
		return types.Action{}, err
	}
	action := types.Action{Type: decision.Type}
	augmented := features.Augment(vec, decision)

	switch target := decision.Target.(type) {
	case types.GraspTarget:
		action.Object = target.Object
	case types.PlaceTarget:
		point, err := e.place.Resolve(state, target, augmented)
		if err != nil {
			return types.Action{}, fmt.Errorf("resolving place target: %w", err)
		}
		action.Position = &point
	}
	if decision.Type == types.ActionMoveArm {
		point, err := e.move.Resolve(state, augmented)
		if err != nil {
			return types.Action{}, fmt.Errorf("resolving move target: %w", err)
		}
		action.Position = &point
	}

	e.logger.Debug("selected action",
		zap.Int("label", label),
		zap.String("type", action.Type.String()),
		zap.String("action", action.Hash()))
	return action, nil
}
