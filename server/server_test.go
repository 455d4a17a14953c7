package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeu5/tablesim-decider/monitor"
	"github.com/zeu5/tablesim-decider/types"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordingSelector struct {
	lock   sync.Mutex
	action types.Action
	err    error
	priors []int
}

func (r *recordingSelector) SelectAction(_ *types.WorldState, prior []*types.WorldState) (types.Action, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.priors = append(r.priors, len(prior))
	return r.action, r.err
}

func newTestServer(selector ActionSelector, bufferSize int) *Server {
	registry := NewRegistry(func(string) monitor.HistoryStore {
		return monitor.NewMemoryHistory(monitor.DefaultHistorySize)
	}, monitor.DefaultRepeatThreshold, bufferSize, zap.NewNop())
	return NewServer("localhost:0", selector, registry, zap.NewNop())
}

func stuckState() types.WorldState {
	return types.WorldState{
		Objects: []types.Object{
			{Name: "Apple", Position: types.Point{X: 12, Y: 5}},
		},
		DrawerPosition: types.Pose{X: 10, Y: 10, Theta: 90},
		BoxPosition:    types.Point{X: 25, Y: 5},
		LidPosition:    types.Point{X: 25, Y: 5},
	}
}

func do(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestSelectActionDefaultEpisode(t *testing.T) {
	sel := &recordingSelector{action: types.Action{Type: types.ActionPlace, Position: &types.Point{X: 3, Y: 4, Z: 2}}}
	s := newTestServer(sel, 0)

	rec := do(t, s, http.MethodPost, "/select_action", StateRequest{State: stuckState()})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := ActionResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, types.ActionPlace, resp.Action.Type)
	require.NotNil(t, resp.Action.Position)
	assert.Equal(t, types.Point{X: 3, Y: 4, Z: 2}, *resp.Action.Position)

	e, err := s.episodes.Get(DefaultEpisode)
	require.NoError(t, err)
	assert.Equal(t, 1, e.Report.Summary(false).ActionCounts["PLACE"])
}

func TestMalformedBody(t *testing.T) {
	s := newTestServer(&recordingSelector{}, 0)
	req := httptest.NewRequest(http.MethodPost, "/query_status", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSelectorErrorsMapToStatusCodes(t *testing.T) {
	sel := &recordingSelector{err: fmt.Errorf("bad state: %w", types.ErrInvalidOrientation)}
	s := newTestServer(sel, 0)
	rec := do(t, s, http.MethodPost, "/select_action", StateRequest{State: stuckState()})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	sel.err = fmt.Errorf("bad state: %w", types.ErrOpeningTooLarge)
	rec = do(t, s, http.MethodPost, "/select_action", StateRequest{State: stuckState()})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	sel.err = fmt.Errorf("model exploded")
	rec = do(t, s, http.MethodPost, "/select_action", StateRequest{State: stuckState()})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestQueryStatusRequestsIntervention(t *testing.T) {
	s := newTestServer(&recordingSelector{}, 0)
	codes := []types.StatusCode{}
	for i := 0; i < 8; i++ {
		rec := do(t, s, http.MethodPost, "/query_status", StateRequest{State: stuckState()})
		require.Equal(t, http.StatusOK, rec.Code)
		resp := StatusResponse{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		codes = append(codes, resp.Status.Code)
	}
	for _, c := range codes[:7] {
		assert.Equal(t, types.StatusInProgress, c)
	}
	assert.Equal(t, types.StatusInterventionRequested, codes[7])

	e, err := s.episodes.Get(DefaultEpisode)
	require.NoError(t, err)
	summary := e.Report.Summary(true)
	assert.Equal(t, 1, summary.Interventions)
	assert.Len(t, summary.Timeline, 8)
}

func TestEpisodeLifecycle(t *testing.T) {
	s := newTestServer(&recordingSelector{action: types.Action{Type: types.ActionGrasp, Object: "Apple"}}, 0)

	rec := do(t, s, http.MethodPost, "/episodes", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := map[string]string{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	id := created["id"]
	require.NotEmpty(t, id)

	rec = do(t, s, http.MethodPost, "/episodes/"+id+"/select_action", StateRequest{State: stuckState()})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, s, http.MethodPost, "/episodes/"+id+"/query_status", StateRequest{State: stuckState()})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodGet, "/episodes/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := struct {
		Report  types.ReportSummary `json:"report"`
		History int                 `json:"history"`
	}{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, id, body.Report.EpisodeID)
	assert.Equal(t, 1, body.Report.ActionCounts["GRASP"])
	assert.Equal(t, 1, body.Report.Steps)
	assert.Equal(t, 1, body.History)

	rec = do(t, s, http.MethodDelete, "/episodes/"+id, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, s, http.MethodGet, "/episodes/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, s, http.MethodPost, "/episodes/"+id+"/query_status", StateRequest{State: stuckState()})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEpisodesKeepSeparateHistories(t *testing.T) {
	s := newTestServer(&recordingSelector{}, 0)
	a := s.episodes.Create()
	b := s.episodes.Create()

	for i := 0; i < 7; i++ {
		do(t, s, http.MethodPost, "/episodes/"+a.ID+"/query_status", StateRequest{State: stuckState()})
	}
	rec := do(t, s, http.MethodPost, "/episodes/"+b.ID+"/query_status", StateRequest{State: stuckState()})
	resp := StatusResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, types.StatusInProgress, resp.Status.Code)
	assert.Equal(t, 2, s.episodes.Len())
}

func TestPriorStatesAreBuffered(t *testing.T) {
	sel := &recordingSelector{}
	s := newTestServer(sel, 2)
	for i := 0; i < 4; i++ {
		state := stuckState()
		state.GripperPosition.X = i
		rec := do(t, s, http.MethodPost, "/select_action", StateRequest{State: state})
		require.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Equal(t, []int{0, 1, 2, 2}, sel.priors)

	e, err := s.episodes.Get(DefaultEpisode)
	require.NoError(t, err)
	prior := e.Prior()
	require.Len(t, prior, 2)
	assert.Equal(t, 2, prior[0].GripperPosition.X)
	assert.Equal(t, 3, prior[1].GripperPosition.X)
}

func TestRunStopsOnCancel(t *testing.T) {
	s := newTestServer(&recordingSelector{}, 0)
	s.SetShutdownTimeout(time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx)
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestAttachingKeepsRecordedHistory(t *testing.T) {
	ctx := context.Background()
	shared := monitor.NewMemoryHistory(monitor.DefaultHistorySize)
	for i := 0; i < 3; i++ {
		state := stuckState()
		state.GripperPosition.X = i
		require.NoError(t, shared.Append(ctx, &state))
	}
	registry := NewRegistry(func(string) monitor.HistoryStore {
		return shared
	}, monitor.DefaultRepeatThreshold, 0, zap.NewNop())

	e := registry.GetOrCreate(DefaultEpisode)
	n, err := e.Monitor.HistoryLen(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Same(t, e, registry.GetOrCreate(DefaultEpisode))
}
