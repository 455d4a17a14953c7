package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeu5/tablesim-decider/features"
	"github.com/zeu5/tablesim-decider/geometry"
	"github.com/zeu5/tablesim-decider/policies"
	"github.com/zeu5/tablesim-decider/types"
)

type fixedLabel struct {
	label int
}

func (f fixedLabel) Predict([]float64) (int, error) {
	return f.label, nil
}

type recordingRegressor struct {
	x, y  float64
	calls int
	last  []float64
}

func (r *recordingRegressor) Predict(features []float64) (float64, float64, error) {
	r.calls++
	r.last = append([]float64(nil), features...)
	return r.x, r.y, nil
}

type countingSearch struct {
	calls int
}

func (c *countingSearch) search(state *types.WorldState, container types.Container) ([]types.Point, error) {
	c.calls++
	return geometry.Candidates(state, container)
}

type fixture struct {
	place  *recordingRegressor
	move   *recordingRegressor
	search *countingSearch
}

func newEngine(label int, semantic bool) (*Engine, *fixture) {
	f := &fixture{
		place:  &recordingRegressor{x: 3.4, y: 3.5},
		move:   &recordingRegressor{x: 1.5, y: -0.5},
		search: &countingSearch{},
	}
	e := NewEngine(&EngineConfig{
		Vectorizer:    features.Vectorizer{Positions: true, Semantics: true},
		Predictor:     fixedLabel{label: label},
		PlaceModel:    f.place,
		MoveModel:     f.move,
		SemanticPlace: semantic,
		Search:        f.search.search,
		Source:        policies.NewSource(42),
	})
	return e, f
}

func worldState() *types.WorldState {
	return &types.WorldState{
		Objects: []types.Object{
			{Name: "Apple", Position: types.Point{X: 12, Y: 3}},
			{Name: "Flashlight", Position: types.Point{X: 14, Y: 8}},
		},
		DrawerPosition:  types.Pose{X: 10, Y: 10, Theta: 0},
		DrawerOpening:   4,
		BoxPosition:     types.Point{X: 25, Y: 4},
		LidPosition:     types.Point{X: 25, Y: 12},
		GripperPosition: types.Point{X: 8, Y: 2, Z: 3},
		GripperOpen:     false,
		ObjectInGripper: "Apple",
	}
}

func label(t types.ActionType, name string) int {
	return features.EncodeLabel(t, features.CodeOf(name))
}

func TestRoundHalfUp(t *testing.T) {
	assert.Equal(t, 3, RoundHalfUp(3.4))
	assert.Equal(t, 4, RoundHalfUp(3.5))
	assert.Equal(t, 3, RoundHalfUp(3.49999))
	assert.Equal(t, 0, RoundHalfUp(-0.5))
	assert.Equal(t, -1, RoundHalfUp(-1.5))
}

func TestGraspSetsObjectOnly(t *testing.T) {
	e, f := newEngine(label(types.ActionGrasp, "Batteries"), true)
	action, err := e.SelectAction(worldState(), nil)
	require.NoError(t, err)
	assert.Equal(t, types.ActionGrasp, action.Type)
	assert.Equal(t, "Batteries", action.Object)
	assert.Nil(t, action.Position)
	assert.Zero(t, f.place.calls)
	assert.Zero(t, f.move.calls)
}

func TestParameterlessActions(t *testing.T) {
	e, _ := newEngine(label(types.ActionOpenGripper, ""), true)
	action, err := e.SelectAction(worldState(), nil)
	require.NoError(t, err)
	assert.Equal(t, types.Action{Type: types.ActionOpenGripper}, action)
}

func TestPlaceWithoutSemanticsNeverSearches(t *testing.T) {
	for _, name := range []string{"Stack", "Drawer", "Box", "Lid", "Table"} {
		e, f := newEngine(label(types.ActionPlace, name), false)
		state := worldState()
		action, err := e.SelectAction(state, nil)
		require.NoError(t, err)
		require.NotNil(t, action.Position)
		assert.Zero(t, f.search.calls, name)
		assert.Equal(t, 1, f.place.calls, name)
		want := features.ToGlobalFrame(state, types.Point{X: 3, Y: 4}, name)
		assert.Equal(t, want, *action.Position, name)
	}
}

func TestSemanticPlaceOnStack(t *testing.T) {
	e, f := newEngine(label(types.ActionPlace, "Stack"), true)
	state := worldState()
	action, err := e.SelectAction(state, nil)
	require.NoError(t, err)
	require.NotNil(t, action.Position)
	assert.Equal(t, 1, f.search.calls)
	assert.Zero(t, f.place.calls)

	candidates, err := geometry.Candidates(state, types.ContainerStack)
	require.NoError(t, err)
	assert.Contains(t, candidates, *action.Position)
}

func TestSemanticPlaceFallsBackWhenContainerFull(t *testing.T) {
	e, f := newEngine(label(types.ActionPlace, "Box"), true)
	state := worldState()
	state.LidPosition = state.BoxPosition
	action, err := e.SelectAction(state, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, f.search.calls)
	assert.Equal(t, 1, f.place.calls)
	assert.Equal(t, types.Point{X: 28, Y: 8}, *action.Position)
}

func TestSemanticPlaceHeldLidOntoBox(t *testing.T) {
	e, f := newEngine(label(types.ActionPlace, "Box"), true)
	state := worldState()
	state.ObjectInGripper = "Lid"
	action, err := e.SelectAction(state, nil)
	require.NoError(t, err)
	assert.Equal(t, state.BoxPosition, *action.Position)
	assert.Zero(t, f.place.calls)
}

func TestSemanticPlaceOnTableRegresses(t *testing.T) {
	e, f := newEngine(label(types.ActionPlace, "Table"), true)
	action, err := e.SelectAction(worldState(), nil)
	require.NoError(t, err)
	assert.Zero(t, f.search.calls)
	assert.Equal(t, types.Point{X: 3, Y: 4}, *action.Position)
	require.NotEmpty(t, f.place.last)
	n := len(f.place.last)
	assert.Equal(t, []float64{float64(types.ActionPlace), float64(features.CodeOf("Table"))}, f.place.last[n-2:])
}

func TestMoveArmUsesGripperFrame(t *testing.T) {
	e, f := newEngine(label(types.ActionMoveArm, ""), true)
	state := worldState()
	action, err := e.SelectAction(state, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, f.move.calls)
	assert.Zero(t, f.search.calls)
	// (1.5, -0.5) rounds to (2, 0), offset from the gripper
	assert.Equal(t, types.Point{X: 10, Y: 2, Z: 0}, *action.Position)
	n := len(f.move.last)
	assert.Equal(t, []float64{float64(types.ActionMoveArm), 0}, f.move.last[n-2:])
}

func TestInvalidStateFailsFast(t *testing.T) {
	e, f := newEngine(label(types.ActionPlace, "Drawer"), true)
	state := worldState()
	state.DrawerPosition.Theta = 45
	_, err := e.SelectAction(state, nil)
	assert.ErrorIs(t, err, types.ErrInvalidOrientation)

	state = worldState()
	state.DrawerOpening = -1
	_, err = e.SelectAction(state, nil)
	assert.ErrorIs(t, err, types.ErrNegativeOpening)

	state = worldState()
	state.DrawerOpening = 20000000
	_, err = e.SelectAction(state, nil)
	assert.ErrorIs(t, err, types.ErrOpeningTooLarge)
	assert.Zero(t, f.search.calls)
}

func TestUnknownLabel(t *testing.T) {
	e, _ := newEngine(9999, true)
	_, err := e.SelectAction(worldState(), nil)
	assert.ErrorIs(t, err, features.ErrUnknownLabel)
}
