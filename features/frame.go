package features

import (
	"strings"

	"github.com/zeu5/tablesim-decider/types"
)

// rotate turns (x, y) counter clockwise by a cardinal angle
func rotate(x, y, theta int) (int, int) {
	switch theta {
	case 90:
		return -y, x
	case 180:
		return -x, -y
	case 270:
		return y, -x
	}
	return x, y
}

// ToGlobalFrame converts a container-local offset into a table position.
// Drawer-attached frames follow the drawer orientation, the table frame is
// already global.
func ToGlobalFrame(state *types.WorldState, local types.Point, container string) types.Point {
	switch strings.ToLower(container) {
	case "drawer", "stack", "handle":
		d := state.DrawerPosition
		x, y := rotate(local.X, local.Y, d.Theta)
		return types.Point{X: d.X + x, Y: d.Y + y, Z: local.Z}
	case "box":
		return offset(state.BoxPosition, local)
	case "lid":
		return offset(state.LidPosition, local)
	case "gripper":
		return offset(state.GripperPosition, local)
	}
	return local
}

func offset(origin, local types.Point) types.Point {
	return types.Point{X: origin.X + local.X, Y: origin.Y + local.Y, Z: local.Z}
}
