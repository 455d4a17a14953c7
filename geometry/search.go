// Package geometry enumerates free placement cells inside the footprint of
// each container on the table.
package geometry

import (
	"fmt"

	"github.com/zeu5/tablesim-decider/types"
	"golang.org/x/exp/rand"
)

const (
	stackLayer  = 3
	drawerLayer = 2
	boxLayer    = 2
	lidLayer    = 2
)

// Region is an inclusive rectangle of grid cells
type Region struct {
	MinX int `json:"min_x"`
	MaxX int `json:"max_x"`
	MinY int `json:"min_y"`
	MaxY int `json:"max_y"`
}

// Centered returns the region spanning dx and dy cells on each side of (x, y)
func Centered(x, y, dx, dy int) Region {
	return Region{MinX: x - dx, MaxX: x + dx, MinY: y - dy, MaxY: y + dy}
}

func (r Region) Contains(x, y int) bool {
	return x >= r.MinX && x <= r.MaxX && y >= r.MinY && y <= r.MaxY
}

func (r Region) Empty() bool {
	return r.MaxX < r.MinX || r.MaxY < r.MinY
}

func (r Region) Width() int {
	if r.Empty() {
		return 0
	}
	return r.MaxX - r.MinX + 1
}

func (r Region) Height() int {
	if r.Empty() {
		return 0
	}
	return r.MaxY - r.MinY + 1
}

// OccupancyRule decides whether an object at height z blocks the column
// it stands in
type OccupancyRule func(z int) bool

// AtLayer blocks a cell only when an object sits exactly at layer z
func AtLayer(layer int) OccupancyRule {
	return func(z int) bool {
		return z == layer
	}
}

// AboveLayer blocks a cell when any object in the column is above layer
func AboveLayer(layer int) OccupancyRule {
	return func(z int) bool {
		return z > layer
	}
}

// AtOrBelowLayer blocks a cell when an object in the column is at or below layer
func AtOrBelowLayer(layer int) OccupancyRule {
	return func(z int) bool {
		return z <= layer
	}
}

// Search describes the candidate cells of one container
type Search struct {
	Container types.Container
	Region    Region
	// Layer is the z assigned to returned candidates
	Layer    int
	Excluded []Region
	Occupied OccupancyRule
}

func (s Search) excluded(x, y int) bool {
	for _, e := range s.Excluded {
		if e.Contains(x, y) {
			return true
		}
	}
	return false
}

// Blocked reports whether any of the objects occupies the column (x, y)
// under the search's occupancy rule
func (s Search) Blocked(x, y int, objects []types.Object) bool {
	for _, obj := range objects {
		if obj.Position.X == x && obj.Position.Y == y && s.Occupied(obj.Position.Z) {
			return true
		}
	}
	return false
}

// FreeCells returns the unoccupied cells of the region in x-major order
func (s Search) FreeCells(objects []types.Object) []types.Point {
	points := make([]types.Point, 0)
	for x := s.Region.MinX; x <= s.Region.MaxX; x++ {
		for y := s.Region.MinY; y <= s.Region.MaxY; y++ {
			if s.excluded(x, y) {
				continue
			}
			if s.Blocked(x, y, objects) {
				continue
			}
			points = append(points, types.Point{X: x, Y: y, Z: s.Layer})
		}
	}
	return points
}

// StackSearch covers the top of the drawer unit, 7x5 cells when the unit
// faces 0 or 180 degrees and 5x7 otherwise
func StackSearch(state *types.WorldState) Search {
	d := state.DrawerPosition
	region := Centered(d.X, d.Y, 2, 3)
	if d.Theta == 0 || d.Theta == 180 {
		region = Centered(d.X, d.Y, 3, 2)
	}
	return Search{
		Container: types.ContainerStack,
		Region:    region,
		Layer:     stackLayer,
		Occupied:  AtLayer(stackLayer),
	}
}

// DrawerSearch covers the opened part of the drawer, extending out of the
// unit along its orientation
func DrawerSearch(state *types.WorldState) (Search, error) {
	d := state.DrawerPosition
	open := state.DrawerOpening
	if open > types.MaxDrawerOpening {
		return Search{}, fmt.Errorf("%w: got %d", types.ErrOpeningTooLarge, open)
	}
	var region Region
	switch d.Theta {
	case 0:
		region = Region{MinX: d.X + 4, MaxX: d.X + open + 2, MinY: d.Y - 1, MaxY: d.Y + 1}
	case 180:
		region = Region{MinX: d.X - open - 2, MaxX: d.X - 4, MinY: d.Y - 1, MaxY: d.Y + 1}
	case 90:
		region = Region{MinX: d.X - 1, MaxX: d.X + 1, MinY: d.Y + 4, MaxY: d.Y + open + 2}
	case 270:
		region = Region{MinX: d.X - 1, MaxX: d.X + 1, MinY: d.Y - open - 2, MaxY: d.Y - 4}
	default:
		return Search{}, fmt.Errorf("%w: got %d", types.ErrInvalidOrientation, d.Theta)
	}
	return Search{
		Container: types.ContainerDrawer,
		Region:    region,
		Layer:     drawerLayer,
		Occupied:  AboveLayer(0),
	}, nil
}

// BoxSearch covers the 3x3 interior of the box minus the lid footprint
func BoxSearch(state *types.WorldState) Search {
	b := state.BoxPosition
	l := state.LidPosition
	return Search{
		Container: types.ContainerBox,
		Region:    Centered(b.X, b.Y, 1, 1),
		Layer:     boxLayer,
		Excluded:  []Region{Centered(l.X, l.Y, 2, 2)},
		Occupied:  AtOrBelowLayer(1),
	}
}

// LidSearch covers the 5x5 top of the lid
func LidSearch(state *types.WorldState) Search {
	l := state.LidPosition
	return Search{
		Container: types.ContainerLid,
		Region:    Centered(l.X, l.Y, 2, 2),
		Layer:     lidLayer,
		Occupied:  AtLayer(l.Z),
	}
}

// SearchFor returns the search of the container. ok is false for
// containers without a geometric search (table and anything else).
func SearchFor(state *types.WorldState, c types.Container) (s Search, ok bool, err error) {
	switch c {
	case types.ContainerStack:
		return StackSearch(state), true, nil
	case types.ContainerDrawer:
		s, err = DrawerSearch(state)
		if err != nil {
			return Search{}, false, err
		}
		return s, true, nil
	case types.ContainerBox:
		return BoxSearch(state), true, nil
	case types.ContainerLid:
		return LidSearch(state), true, nil
	}
	return Search{}, false, nil
}

// Candidates returns the free cells for placing the held object on the
// container. A held lid always goes straight onto the box.
func Candidates(state *types.WorldState, c types.Container) ([]types.Point, error) {
	if c == types.ContainerBox || c == types.ContainerLid {
		if types.Holding("lid")(state) {
			return []types.Point{state.BoxPosition}, nil
		}
	}
	s, ok, err := SearchFor(state, c)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []types.Point{}, nil
	}
	return s.FreeCells(state.Objects), nil
}

// Pick chooses uniformly among the candidates, ok is false when there are none
func Pick(r *rand.Rand, candidates []types.Point) (types.Point, bool) {
	if len(candidates) == 0 {
		return types.Point{}, false
	}
	return candidates[r.Intn(len(candidates))], true
}
