package features

import "github.com/zeu5/tablesim-decider/types"

// Vectorizer flattens a snapshot, plus up to HistoryBuffer prior
// snapshots, into the classifier input
type Vectorizer struct {
	Positions     bool
	Semantics     bool
	HistoryBuffer int
}

func boolf(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func (v Vectorizer) state(s *types.WorldState) []float64 {
	out := make([]float64, 0, len(s.Objects)*6+15)
	for _, o := range s.Objects {
		if v.Positions {
			out = append(out, float64(o.Position.X), float64(o.Position.Y), float64(o.Position.Z))
		}
		if v.Semantics {
			out = append(out, boolf(o.InDrawer), boolf(o.InBox), boolf(o.Lost))
		}
	}
	out = append(out,
		float64(s.DrawerPosition.X), float64(s.DrawerPosition.Y), float64(s.DrawerPosition.Theta),
		float64(s.DrawerOpening),
		float64(s.BoxPosition.X), float64(s.BoxPosition.Y), float64(s.BoxPosition.Z),
		float64(s.LidPosition.X), float64(s.LidPosition.Y), float64(s.LidPosition.Z),
		float64(s.GripperPosition.X), float64(s.GripperPosition.Y), float64(s.GripperPosition.Z),
		boolf(s.GripperOpen),
		float64(CodeOf(s.ObjectInGripper)),
	)
	return out
}

// Vector returns the feature vector of the state. history holds prior
// snapshots oldest first; missing entries are zero padded.
func (v Vectorizer) Vector(s *types.WorldState, history []*types.WorldState) []float64 {
	current := v.state(s)
	out := make([]float64, 0, len(current)*(v.HistoryBuffer+1))
	out = append(out, current...)
	for i := 1; i <= v.HistoryBuffer; i++ {
		idx := len(history) - i
		if idx < 0 {
			out = append(out, make([]float64, len(current))...)
			continue
		}
		prior := v.state(history[idx])
		if len(prior) != len(current) {
			// object set changed, keep the vector length stable
			prior = fit(prior, len(current))
		}
		out = append(out, prior...)
	}
	return out
}

func fit(vals []float64, n int) []float64 {
	out := make([]float64, n)
	copy(out, vals)
	return out
}
