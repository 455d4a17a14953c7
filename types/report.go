package types

import (
	"fmt"
	"sync"
	"time"
)

// EpisodeReport records the decisions and statuses served for one episode
type EpisodeReport struct {
	EpisodeID string

	nextIndex int       // next available index for an entry
	startTime time.Time // start time to compute timestamp of an entry

	lock *sync.Mutex

	Timeline      []*ReportEntry
	ActionCounts  map[string]int
	StatusCounts  map[string]int
	Interventions int
	LastStatus    StatusCode
}

func NewEpisodeReport(episodeID string) *EpisodeReport {
	return &EpisodeReport{
		EpisodeID:    episodeID,
		nextIndex:    0,
		startTime:    time.Now(),
		lock:         &sync.Mutex{},
		Timeline:     make([]*ReportEntry, 0),
		ActionCounts: make(map[string]int),
		StatusCounts: make(map[string]int),
		LastStatus:   StatusInProgress,
	}
}

// ReportEntry is a single line of the report timeline
type ReportEntry struct {
	Index     int           `json:"index"`
	Timestamp time.Duration `json:"timestamp"`
	Kind      string        `json:"kind"`
	Value     string        `json:"value"`
}

func (en *ReportEntry) String() string {
	return fmt.Sprintf("[ %6d | %6d ] %8s : %s", en.Index, en.Timestamp.Milliseconds(), en.Kind, en.Value)
}

func (e *EpisodeReport) add(kind, value string) {
	entry := &ReportEntry{
		Index:     e.nextIndex,
		Timestamp: time.Since(e.startTime),
		Kind:      kind,
		Value:     value,
	}
	e.nextIndex += 1
	e.Timeline = append(e.Timeline, entry)
}

func (e *EpisodeReport) AddAction(a Action) {
	e.lock.Lock()
	defer e.lock.Unlock()

	e.add("action", a.Hash())
	e.ActionCounts[a.Type.String()] += 1
}

// AddStatus records the status and reports whether it differs from the
// previous one
func (e *EpisodeReport) AddStatus(s StatusCode) bool {
	e.lock.Lock()
	defer e.lock.Unlock()

	changed := s != e.LastStatus

	e.add("status", s.String())
	e.StatusCounts[s.String()] += 1
	if s == StatusInterventionRequested {
		e.Interventions += 1
	}
	e.LastStatus = s
	return changed
}

// ReportSummary is a point-in-time copy of the report safe to serialize
type ReportSummary struct {
	EpisodeID     string         `json:"episode_id"`
	Steps         int            `json:"steps"`
	ActionCounts  map[string]int `json:"action_counts"`
	StatusCounts  map[string]int `json:"status_counts"`
	Interventions int            `json:"interventions"`
	LastStatus    string         `json:"last_status"`
	Timeline      []ReportEntry  `json:"timeline,omitempty"`
}

func (e *EpisodeReport) Summary(withTimeline bool) ReportSummary {
	e.lock.Lock()
	defer e.lock.Unlock()

	out := ReportSummary{
		EpisodeID:     e.EpisodeID,
		ActionCounts:  make(map[string]int, len(e.ActionCounts)),
		StatusCounts:  make(map[string]int, len(e.StatusCounts)),
		Interventions: e.Interventions,
		LastStatus:    e.LastStatus.String(),
	}
	steps := 0
	for k, v := range e.ActionCounts {
		out.ActionCounts[k] = v
		steps += v
	}
	out.Steps = steps
	for k, v := range e.StatusCounts {
		out.StatusCounts[k] = v
	}
	if withTimeline {
		out.Timeline = make([]ReportEntry, len(e.Timeline))
		for i, entry := range e.Timeline {
			out.Timeline[i] = *entry
		}
	}
	return out
}

// StringTimeline returns a string representation of the report timeline
func (e *EpisodeReport) StringTimeline() string {
	e.lock.Lock()
	defer e.lock.Unlock()

	result := "Length: " + fmt.Sprintf("%d", len(e.Timeline)) + "\n"
	for _, entry := range e.Timeline {
		result = fmt.Sprintf("%s%s\n", result, entry.String())
	}
	return result
}
