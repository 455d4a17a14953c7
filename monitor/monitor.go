// Package monitor judges whether an episode has completed, failed or is
// stuck repeating the same state.
package monitor

import (
	"context"
	"math"
	"strings"

	"github.com/zeu5/tablesim-decider/types"
	"go.uber.org/zap"
)

const (
	DefaultHistorySize     = 50
	DefaultRepeatThreshold = 8
)

// a tracked object within nearDistance or beyond farDistance of the
// reference point has left the workspace
const (
	referenceX   = 20.0
	referenceY   = 1.0
	nearDistance = 3.0
	farDistance  = 20.0
)

// storedIn tells, per tracked object, whether it reached its container
var storedIn = map[string]func(types.Object) bool{
	"apple":      func(o types.Object) bool { return o.InBox },
	"flashlight": func(o types.Object) bool { return o.InDrawer },
	"batteries":  func(o types.Object) bool { return o.InDrawer },
}

var containersClosed = types.DrawerClosed().And(types.LidOnBox())

func outOfWorkspace(o types.Object) bool {
	dst := math.Hypot(referenceX-float64(o.Position.X), referenceY-float64(o.Position.Y))
	return o.Lost || dst <= nearDistance || dst >= farDistance
}

// Check evaluates the completion and failure conditions of the state.
// It returns FAILED, COMPLETED or IN_PROGRESS.
func Check(state *types.WorldState) types.StatusCode {
	completed := true
	for _, obj := range state.Objects {
		stored, ok := storedIn[strings.ToLower(obj.Name)]
		if !ok {
			continue
		}
		if stored(obj) {
			continue
		}
		completed = false
		if outOfWorkspace(obj) {
			return types.StatusFailed
		}
	}
	if !containersClosed(state) {
		completed = false
	}
	if completed {
		return types.StatusCompleted
	}
	return types.StatusInProgress
}

// Monitor evaluates the status of one episode and keeps the window of
// past states used to detect a stuck episode
type Monitor struct {
	history   HistoryStore
	threshold int
	logger    *zap.Logger
}

func NewMonitor(history HistoryStore, threshold int, logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		history:   history,
		threshold: threshold,
		logger:    logger,
	}
}

// Evaluate returns the status of the state. Non terminal states are
// recorded; once the state has been seen threshold times within the
// window an intervention is requested and the window is cleared.
func (m *Monitor) Evaluate(ctx context.Context, state *types.WorldState) (types.StatusCode, error) {
	if status := Check(state); status.Terminal() {
		return status, nil
	}

	repeat, err := m.history.Record(ctx, state, m.threshold)
	if err != nil {
		return types.StatusInProgress, err
	}
	if repeat >= m.threshold {
		m.logger.Info("state repeated, requesting intervention", zap.Int("repeats", repeat))
		return types.StatusInterventionRequested, nil
	}
	return types.StatusInProgress, nil
}

// HistoryLen returns the number of recorded snapshots
func (m *Monitor) HistoryLen(ctx context.Context) (int, error) {
	return m.history.Len(ctx)
}

// Reset empties the window
func (m *Monitor) Reset(ctx context.Context) error {
	return m.history.Clear(ctx)
}
