package geometry

import (
	"encoding/json"
	"fmt"

	"github.com/zeu5/tablesim-decider/types"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

const (
	cellOutside = 0.0
	cellBlocked = 1.0
	cellFree    = 2.0
)

// FootprintDataSet is the occupancy of a container footprint laid out as
// a grid heat map: free cells, blocked or excluded cells and cells outside
// the footprint
type FootprintDataSet struct {
	Container string                  `json:"container"`
	Region    Region                  `json:"region"`
	Cells     map[int]map[int]float64 `json:"cells"`
}

var _ plotter.GridXYZ = &FootprintDataSet{}

// NewFootprintDataSet evaluates the search on the objects of the state
func NewFootprintDataSet(s Search, state *types.WorldState) *FootprintDataSet {
	ds := &FootprintDataSet{
		Container: s.Container.String(),
		Region:    s.Region,
		Cells:     make(map[int]map[int]float64),
	}
	for x := s.Region.MinX; x <= s.Region.MaxX; x++ {
		ds.Cells[x] = make(map[int]float64)
		for y := s.Region.MinY; y <= s.Region.MaxY; y++ {
			ds.Cells[x][y] = cellBlocked
		}
	}
	for _, p := range s.FreeCells(state.Objects) {
		ds.Cells[p.X][p.Y] = cellFree
	}
	return ds
}

func (f *FootprintDataSet) Dims() (int, int) {
	return f.Region.Width(), f.Region.Height()
}

func (f *FootprintDataSet) Z(c, r int) float64 {
	col, ok := f.Cells[f.Region.MinX+c]
	if !ok {
		return cellOutside
	}
	v, ok := col[f.Region.MinY+r]
	if !ok {
		return cellOutside
	}
	return v
}

func (f *FootprintDataSet) X(c int) float64 {
	return float64(f.Region.MinX + c)
}

func (f *FootprintDataSet) Y(r int) float64 {
	return float64(f.Region.MinY + r)
}

func (f *FootprintDataSet) Min() float64 {
	return cellOutside
}

func (f *FootprintDataSet) Max() float64 {
	return cellFree
}

// Free counts the free cells of the dataset
func (f *FootprintDataSet) Free() int {
	count := 0
	for _, col := range f.Cells {
		for _, v := range col {
			if v == cellFree {
				count++
			}
		}
	}
	return count
}

func (f *FootprintDataSet) JSON() ([]byte, error) {
	return json.Marshal(f)
}

// PlotFootprint renders the dataset as a heat map image at figPath
func PlotFootprint(f *FootprintDataSet, figPath string) error {
	if f.Region.Empty() {
		return fmt.Errorf("footprint of %s is empty", f.Container)
	}
	p := plot.New()
	p.Title.Text = f.Container + " footprint"
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"
	p.Add(plotter.NewHeatMap(f, palette.Heat(3, 1)))
	return p.Save(4*vg.Inch, 4*vg.Inch, figPath)
}
