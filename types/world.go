package types

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidOrientation = errors.New("drawer orientation must be one of 0, 90, 180, 270")
	ErrNegativeOpening    = errors.New("drawer opening must not be negative")
	ErrOpeningTooLarge    = errors.New("drawer opening exceeds the drawer length")
)

// MaxDrawerOpening bounds the opening extent, keeping the drawer interior
// to a few dozen cells
const MaxDrawerOpening = 16

// Point is a cell of the discrete table grid
type Point struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
	Z int `json:"z" yaml:"z"`
}

func (p Point) Hash() string {
	return fmt.Sprintf("(%d, %d, %d)", p.X, p.Y, p.Z)
}

func (p Point) Eq(other Point) bool {
	return p.X == other.X && p.Y == other.Y && p.Z == other.Z
}

// Pose is a planar position with a cardinal orientation in degrees
type Pose struct {
	X     int `json:"x" yaml:"x"`
	Y     int `json:"y" yaml:"y"`
	Theta int `json:"theta" yaml:"theta"`
}

// Object is a physical item on the table
type Object struct {
	Name       string `json:"name" yaml:"name"`
	UniqueName string `json:"unique_name,omitempty" yaml:"unique_name,omitempty"`
	Position   Point  `json:"position" yaml:"position"`
	InBox      bool   `json:"in_box" yaml:"in_box"`
	InDrawer   bool   `json:"in_drawer" yaml:"in_drawer"`
	Lost       bool   `json:"lost" yaml:"lost"`
}

// WorldState is the symbolic snapshot of the table observed by the
// decision engine and the episode monitor
type WorldState struct {
	Objects         []Object `json:"objects" yaml:"objects"`
	DrawerPosition  Pose     `json:"drawer_position" yaml:"drawer_position"`
	DrawerOpening   int      `json:"drawer_opening" yaml:"drawer_opening"`
	BoxPosition     Point    `json:"box_position" yaml:"box_position"`
	LidPosition     Point    `json:"lid_position" yaml:"lid_position"`
	GripperPosition Point    `json:"gripper_position" yaml:"gripper_position"`
	GripperOpen     bool     `json:"gripper_open" yaml:"gripper_open"`
	ObjectInGripper string   `json:"object_in_gripper" yaml:"object_in_gripper"`
}

// Copy returns a deep copy, the objects slice is not shared
func (s *WorldState) Copy() *WorldState {
	n := *s
	if s.Objects != nil {
		n.Objects = make([]Object, len(s.Objects))
		copy(n.Objects, s.Objects)
	}
	return &n
}

// Equivalent reports field-wise equality of the two snapshots
func (s *WorldState) Equivalent(other *WorldState) bool {
	if other == nil || len(s.Objects) != len(other.Objects) {
		return false
	}
	for i, o := range s.Objects {
		if o != other.Objects[i] {
			return false
		}
	}
	return s.DrawerPosition == other.DrawerPosition &&
		s.DrawerOpening == other.DrawerOpening &&
		s.BoxPosition.Eq(other.BoxPosition) &&
		s.LidPosition.Eq(other.LidPosition) &&
		s.GripperPosition.Eq(other.GripperPosition) &&
		s.GripperOpen == other.GripperOpen &&
		s.ObjectInGripper == other.ObjectInGripper
}

// Validate checks the invariants the geometric search depends on
func (s *WorldState) Validate() error {
	switch s.DrawerPosition.Theta {
	case 0, 90, 180, 270:
	default:
		return fmt.Errorf("%w: got %d", ErrInvalidOrientation, s.DrawerPosition.Theta)
	}
	if s.DrawerOpening < 0 {
		return fmt.Errorf("%w: got %d", ErrNegativeOpening, s.DrawerOpening)
	}
	if s.DrawerOpening > MaxDrawerOpening {
		return fmt.Errorf("%w: got %d, max %d", ErrOpeningTooLarge, s.DrawerOpening, MaxDrawerOpening)
	}
	return nil
}
