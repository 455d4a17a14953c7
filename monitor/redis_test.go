package monitor

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeu5/tablesim-decider/types"
)

func newRedisClient(t *testing.T, mr *miniredis.Miniredis) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisHistoryWindow(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	h := NewRedisHistory(newRedisClient(t, mr), "ep", 3)

	for i := 1; i <= 5; i++ {
		require.NoError(t, h.Append(ctx, distinctState(i)))
	}
	snapshots, err := h.Snapshots(ctx)
	require.NoError(t, err)
	xs := []int{}
	for _, s := range snapshots {
		xs = append(xs, s.GripperPosition.X)
	}
	assert.Equal(t, []int{3, 4, 5}, xs)

	n, err := h.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.True(t, mr.Exists(HistoryKey("ep")))

	require.NoError(t, h.Clear(ctx))
	n, err = h.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRedisRecordClearsAtThreshold(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	m := NewMonitor(NewRedisHistory(newRedisClient(t, mr), "ep", DefaultHistorySize), DefaultRepeatThreshold, nil)
	s := inProgressState()

	for i := 0; i < 7; i++ {
		status, err := m.Evaluate(ctx, s)
		require.NoError(t, err)
		assert.Equal(t, types.StatusInProgress, status)
	}
	status, err := m.Evaluate(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, types.StatusInterventionRequested, status)

	n, err := m.HistoryLen(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRedisRecordTreatsNilObjectsAsEmpty(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	h := NewRedisHistory(newRedisClient(t, mr), "ep", DefaultHistorySize)

	_, err := h.Record(ctx, &types.WorldState{DrawerOpening: 1}, DefaultRepeatThreshold)
	require.NoError(t, err)
	repeats, err := h.Record(ctx, &types.WorldState{DrawerOpening: 1, Objects: []types.Object{}}, DefaultRepeatThreshold)
	require.NoError(t, err)
	assert.Equal(t, 2, repeats)
}

func TestReplicasShareWindow(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	replicas := []*Monitor{
		NewMonitor(NewRedisHistory(newRedisClient(t, mr), "shared", DefaultHistorySize), DefaultRepeatThreshold, nil),
		NewMonitor(NewRedisHistory(newRedisClient(t, mr), "shared", DefaultHistorySize), DefaultRepeatThreshold, nil),
	}
	s := inProgressState()

	var wg sync.WaitGroup
	var lock sync.Mutex
	interventions := 0
	for i := 0; i < 80; i++ {
		wg.Add(1)
		go func(m *Monitor) {
			defer wg.Done()
			status, err := m.Evaluate(ctx, s)
			assert.NoError(t, err)
			if status == types.StatusInterventionRequested {
				lock.Lock()
				interventions++
				lock.Unlock()
			}
		}(replicas[i%2])
	}
	wg.Wait()
	assert.Equal(t, 10, interventions)

	n, err := replicas[0].HistoryLen(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
