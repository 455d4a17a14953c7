package types

import (
	"encoding/json"
	"strings"
)

// StatusCode is the outcome of an episode status query
type StatusCode int

const (
	StatusInProgress StatusCode = iota
	StatusCompleted
	StatusFailed
	StatusInterventionRequested
)

func (s StatusCode) String() string {
	switch s {
	case StatusCompleted:
		return "COMPLETED"
	case StatusFailed:
		return "FAILED"
	case StatusInterventionRequested:
		return "INTERVENTION_REQUESTED"
	}
	return "IN_PROGRESS"
}

// Terminal reports whether the episode ends with this status
func (s StatusCode) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Status wraps the code the way the simulator expects it on the wire
type Status struct {
	Code StatusCode `json:"status_code"`
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Code int    `json:"status_code"`
		Name string `json:"status"`
	}{int(s.Code), s.Code.String()})
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var raw struct {
		Code int `json:"status_code"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.Code = StatusCode(raw.Code)
	return nil
}

// StatePredicate is a condition evaluated on a single snapshot
type StatePredicate func(*WorldState) bool

func (p StatePredicate) And(other StatePredicate) StatePredicate {
	return func(s *WorldState) bool {
		return p(s) && other(s)
	}
}

// DrawerClosed holds when the drawer is fully shut
func DrawerClosed() StatePredicate {
	return func(s *WorldState) bool {
		return s.DrawerOpening == 0
	}
}

// LidOnBox holds when the lid sits on the box, compared on x and y
func LidOnBox() StatePredicate {
	return func(s *WorldState) bool {
		return s.LidPosition.X == s.BoxPosition.X && s.LidPosition.Y == s.BoxPosition.Y
	}
}

// Holding holds when the gripper carries an object with the given name,
// compared case-insensitively
func Holding(name string) StatePredicate {
	return func(s *WorldState) bool {
		return strings.EqualFold(s.ObjectInGripper, name)
	}
}
