package server

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/zeu5/tablesim-decider/monitor"
	"github.com/zeu5/tablesim-decider/types"
	"go.uber.org/zap"
)

var ErrEpisodeNotFound = errors.New("episode not found")

// DefaultEpisode backs the routes that do not name an episode
const DefaultEpisode = "default"

// HistoryFactory creates the monitor window of a new episode
type HistoryFactory func(episodeID string) monitor.HistoryStore

// Episode is the per-episode state of the service: its monitor, the
// prior snapshots fed to the vectorizer and the report
type Episode struct {
	ID      string
	Monitor *monitor.Monitor
	Report  *types.EpisodeReport

	lock       *sync.Mutex
	prior      []*types.WorldState
	bufferSize int
}

// Prior returns the buffered snapshots, oldest first
func (e *Episode) Prior() []*types.WorldState {
	e.lock.Lock()
	defer e.lock.Unlock()
	return append([]*types.WorldState(nil), e.prior...)
}

// Observe buffers a copy of the state for later feature vectors
func (e *Episode) Observe(s *types.WorldState) {
	if e.bufferSize <= 0 {
		return
	}
	e.lock.Lock()
	defer e.lock.Unlock()
	e.prior = append(e.prior, s.Copy())
	if len(e.prior) > e.bufferSize {
		e.prior = e.prior[len(e.prior)-e.bufferSize:]
	}
}

// Registry holds the live episodes
type Registry struct {
	lock       *sync.Mutex
	episodes   map[string]*Episode
	newHistory HistoryFactory
	threshold  int
	bufferSize int
	logger     *zap.Logger
}

func NewRegistry(newHistory HistoryFactory, threshold, bufferSize int, logger *zap.Logger) *Registry {
	return &Registry{
		lock:       new(sync.Mutex),
		episodes:   make(map[string]*Episode),
		newHistory: newHistory,
		threshold:  threshold,
		bufferSize: bufferSize,
		logger:     logger,
	}
}

// newEpisode attaches to the window of id as it is. A shared store may
// already hold snapshots recorded by another replica.
func (r *Registry) newEpisode(id string) *Episode {
	m := monitor.NewMonitor(r.newHistory(id), r.threshold, r.logger.With(zap.String("episode", id)))
	return &Episode{
		ID:         id,
		Monitor:    m,
		Report:     types.NewEpisodeReport(id),
		lock:       new(sync.Mutex),
		prior:      make([]*types.WorldState, 0, r.bufferSize),
		bufferSize: r.bufferSize,
	}
}

// Create starts a new episode with a fresh identifier
func (r *Registry) Create() *Episode {
	id := uuid.NewString()
	e := r.newEpisode(id)
	r.lock.Lock()
	r.episodes[id] = e
	r.lock.Unlock()
	r.logger.Info("episode created", zap.String("episode", id))
	return e
}

func (r *Registry) Get(id string) (*Episode, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	e, ok := r.episodes[id]
	if !ok {
		return nil, ErrEpisodeNotFound
	}
	return e, nil
}

// GetOrCreate returns the episode, creating it under the given id
func (r *Registry) GetOrCreate(id string) *Episode {
	r.lock.Lock()
	defer r.lock.Unlock()
	if e, ok := r.episodes[id]; ok {
		return e
	}
	e := r.newEpisode(id)
	r.episodes[id] = e
	return e
}

func (r *Registry) Delete(ctx context.Context, id string) error {
	r.lock.Lock()
	e, ok := r.episodes[id]
	delete(r.episodes, id)
	r.lock.Unlock()
	if !ok {
		return ErrEpisodeNotFound
	}
	return e.Monitor.Reset(ctx)
}

func (r *Registry) Len() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return len(r.episodes)
}
