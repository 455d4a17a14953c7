package decision

import (
	"math"

	"github.com/zeu5/tablesim-decider/geometry"
	"github.com/zeu5/tablesim-decider/models"
	"github.com/zeu5/tablesim-decider/types"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
)

// FrameConverter maps a container-local offset to a table position
type FrameConverter func(state *types.WorldState, local types.Point, container string) types.Point

// CandidateSearch lists the free cells of a container
type CandidateSearch func(state *types.WorldState, c types.Container) ([]types.Point, error)

// RoundHalfUp rounds to the nearest integer, halves towards +inf
func RoundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}

func regressTarget(reg models.Regressor, toGlobal FrameConverter, state *types.WorldState, features []float64, container string) (types.Point, error) {
	x, y, err := reg.Predict(features)
	if err != nil {
		return types.Point{}, err
	}
	local := types.Point{X: RoundHalfUp(x), Y: RoundHalfUp(y), Z: 0}
	return toGlobal(state, local, container), nil
}

// PlacementResolver picks the target position of a PLACE action. With
// semantic placement enabled, known containers are searched for a free
// cell before falling back to the regressor.
type PlacementResolver struct {
	regressor models.Regressor
	semantic  bool
	search    CandidateSearch
	toGlobal  FrameConverter
	rand      *rand.Rand
	logger    *zap.Logger
}

func NewPlacementResolver(regressor models.Regressor, semantic bool, search CandidateSearch, toGlobal FrameConverter, r *rand.Rand, logger *zap.Logger) *PlacementResolver {
	return &PlacementResolver{
		regressor: regressor,
		semantic:  semantic,
		search:    search,
		toGlobal:  toGlobal,
		rand:      r,
		logger:    logger,
	}
}

// Resolve returns the global placement position. features must already
// carry the action encoding.
func (p *PlacementResolver) Resolve(state *types.WorldState, target types.PlaceTarget, features []float64) (types.Point, error) {
	if p.semantic && target.Container != types.ContainerOther {
		candidates, err := p.search(state, target.Container)
		if err != nil {
			return types.Point{}, err
		}
		if point, ok := geometry.Pick(p.rand, candidates); ok {
			return point, nil
		}
		p.logger.Debug("no free cell, regressing place target", zap.String("container", target.Name))
	}
	return regressTarget(p.regressor, p.toGlobal, state, features, target.Name)
}

// MoveTargetResolver regresses arm move targets in the gripper frame
type MoveTargetResolver struct {
	regressor models.Regressor
	toGlobal  FrameConverter
}

func NewMoveTargetResolver(regressor models.Regressor, toGlobal FrameConverter) *MoveTargetResolver {
	return &MoveTargetResolver{
		regressor: regressor,
		toGlobal:  toGlobal,
	}
}

func (m *MoveTargetResolver) Resolve(state *types.WorldState, features []float64) (types.Point, error) {
	return regressTarget(m.regressor, m.toGlobal, state, features, "Gripper")
}
