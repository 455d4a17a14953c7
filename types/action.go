package types

// ActionType enumerates the discrete actions of the manipulation task
type ActionType int

const (
	ActionNoop ActionType = iota
	ActionGrasp
	ActionPlace
	ActionOpenGripper
	ActionCloseGripper
	ActionMoveArm
	ActionRaiseArm
	ActionLowerArm
	ActionResetArm
)

var actionTypeNames = map[ActionType]string{
	ActionNoop:         "NOOP",
	ActionGrasp:        "GRASP",
	ActionPlace:        "PLACE",
	ActionOpenGripper:  "OPEN_GRIPPER",
	ActionCloseGripper: "CLOSE_GRIPPER",
	ActionMoveArm:      "MOVE_ARM",
	ActionRaiseArm:     "RAISE_ARM",
	ActionLowerArm:     "LOWER_ARM",
	ActionResetArm:     "RESET_ARM",
}

func (a ActionType) String() string {
	if name, ok := actionTypeNames[a]; ok {
		return name
	}
	return "UNKNOWN"
}

func (a ActionType) Valid() bool {
	_, ok := actionTypeNames[a]
	return ok
}

// Action is the decision returned to the simulator.
// Object is only set for GRASP, Position only for PLACE and MOVE_ARM.
type Action struct {
	Type     ActionType `json:"action_type" yaml:"action_type"`
	Object   string     `json:"object,omitempty" yaml:"object,omitempty"`
	Position *Point     `json:"position,omitempty" yaml:"position,omitempty"`
}

func (a Action) Hash() string {
	switch {
	case a.Object != "":
		return a.Type.String() + " " + a.Object
	case a.Position != nil:
		return a.Type.String() + " " + a.Position.Hash()
	}
	return a.Type.String()
}

// Container is a placement surface with its own candidate search
type Container int

const (
	ContainerOther Container = iota
	ContainerStack
	ContainerDrawer
	ContainerBox
	ContainerLid
)

func (c Container) String() string {
	switch c {
	case ContainerStack:
		return "Stack"
	case ContainerDrawer:
		return "Drawer"
	case ContainerBox:
		return "Box"
	case ContainerLid:
		return "Lid"
	}
	return "Other"
}

// Target is the decoded meaning of an action modifier. It is one of
// NoTarget, GraspTarget or PlaceTarget.
type Target interface {
	isTarget()
}

type NoTarget struct{}

// GraspTarget names the object to pick up
type GraspTarget struct {
	Object string
}

// PlaceTarget names the surface to put the held object on. Name is the
// modifier name used for frame conversion ("Table", "Drawer", ...).
type PlaceTarget struct {
	Container Container
	Name      string
}

func (NoTarget) isTarget()    {}
func (GraspTarget) isTarget() {}
func (PlaceTarget) isTarget() {}

// Decision is a classifier label decoded once at the boundary
type Decision struct {
	Label    int
	Type     ActionType
	Modifier int
	Target   Target
}
