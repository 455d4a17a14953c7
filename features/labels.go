// Package features turns world snapshots into model inputs and model
// outputs back into world coordinates.
package features

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zeu5/tablesim-decider/types"
)

var ErrUnknownLabel = errors.New("label does not decode to a known action type")

// labels pack the action type and modifier as type*labelBase + modifier
const labelBase = 100

var modifierNames = []string{
	"",
	"Apple",
	"Batteries",
	"Flashlight",
	"Granola",
	"Knife",
	"Drawer",
	"Stack",
	"Handle",
	"Box",
	"Lid",
	"Gripper",
	"Table",
}

// NameOf returns the name encoded by a modifier, empty when unknown
func NameOf(modifier int) string {
	if modifier < 0 || modifier >= len(modifierNames) {
		return ""
	}
	return modifierNames[modifier]
}

// CodeOf returns the modifier of a name, 0 when unknown
func CodeOf(name string) int {
	for i, n := range modifierNames {
		if n != "" && strings.EqualFold(n, name) {
			return i
		}
	}
	return 0
}

// ContainerOf maps a place modifier name to its container kind
func ContainerOf(name string) types.Container {
	switch strings.ToLower(name) {
	case "stack":
		return types.ContainerStack
	case "drawer":
		return types.ContainerDrawer
	case "box":
		return types.ContainerBox
	case "lid":
		return types.ContainerLid
	}
	return types.ContainerOther
}

func EncodeLabel(t types.ActionType, modifier int) int {
	return int(t)*labelBase + modifier
}

// LabelCodec decodes classifier labels into decisions
type LabelCodec struct{}

func (LabelCodec) Decode(label int) (types.Decision, error) {
	if label < 0 {
		return types.Decision{}, fmt.Errorf("%w: %d", ErrUnknownLabel, label)
	}
	t := types.ActionType(label / labelBase)
	if !t.Valid() {
		return types.Decision{}, fmt.Errorf("%w: %d", ErrUnknownLabel, label)
	}
	modifier := label % labelBase
	d := types.Decision{
		Label:    label,
		Type:     t,
		Modifier: modifier,
		Target:   types.NoTarget{},
	}
	switch t {
	case types.ActionGrasp:
		d.Target = types.GraspTarget{Object: NameOf(modifier)}
	case types.ActionPlace:
		name := NameOf(modifier)
		d.Target = types.PlaceTarget{Container: ContainerOf(name), Name: name}
	}
	return d, nil
}

// Augment returns a copy of the features with the decision's action type
// and modifier appended
func Augment(features []float64, d types.Decision) []float64 {
	out := make([]float64, 0, len(features)+2)
	out = append(out, features...)
	return append(out, float64(d.Type), float64(d.Modifier))
}
