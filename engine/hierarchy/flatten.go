package hierarchy

import (
	"fmt"
	"strings"

	"github.com/spaghettifunk/strata/engine/core"
	"github.com/spaghettifunk/strata/engine/layout"
	"github.com/spaghettifunk/strata/engine/math"
)

// Placement is one concrete instance of a child cell inside its parent.
type Placement struct {
	Parent      string
	Child       string
	Instance    string
	Origin      layout.Point
	Rotation    float64 // radians
	XReflection bool
}

// Matrix returns the instance transform as the viewer composes it.
func (p Placement) Matrix() math.Mat4 {
	origin := math.NewVec2(float32(p.Origin.X), float32(p.Origin.Y))
	return math.NewPlacement(origin, float32(p.Rotation), p.XReflection).Matrix()
}

// Emitter receives the placements produced by a Flattener.
type Emitter interface {
	ReferencePlacement(p Placement)
	ReferencesComplete()
}

// Flattener expands every reference of a library into placements, one per
// repetition offset.
type Flattener struct {
	Namer Namer
}

func NewFlattener(namer Namer) *Flattener {
	if namer == nil {
		namer = FirstGDSProperty
	}
	return &Flattener{Namer: namer}
}

// Flatten walks every cell of lib and emits its placements followed by
// ReferencesComplete. A reference cycle is reported before anything is
// emitted. It returns the number of placements.
func (f *Flattener) Flatten(lib *layout.Library, out Emitter) (int, error) {
	if err := CheckCycles(lib); err != nil {
		return 0, err
	}

	count := 0
	for _, cell := range lib.Cells {
		for _, ref := range cell.References {
			if ref.Cell == nil {
				core.LogWarn("cell '%s' holds a reference without target, skipping", cell.Name)
				continue
			}
			name, ok := f.Namer.InstanceName(ref.Properties)
			if !ok {
				name = PlaceholderName
			}
			p := Placement{
				Parent:      cell.Name,
				Child:       ref.Cell.Name,
				Instance:    name,
				Origin:      ref.Origin,
				Rotation:    ref.Rotation,
				XReflection: ref.XReflection,
			}
			if ref.Repetition.Type == layout.RepetitionNone {
				out.ReferencePlacement(p)
				count++
				continue
			}
			for _, off := range ref.Repetition.GetOffsets() {
				p.Origin = ref.Origin.Add(off)
				out.ReferencePlacement(p)
				count++
			}
		}
	}
	out.ReferencesComplete()
	return count, nil
}

const (
	white = iota
	grey
	black
)

// CheckCycles runs a depth first search over the cells of lib and returns
// an error wrapping core.ErrReferenceCycle that names the first cycle found.
func CheckCycles(lib *layout.Library) error {
	index := make(map[*layout.Cell]int, len(lib.Cells))
	for i, c := range lib.Cells {
		index[c] = i
	}
	colour := make([]int, len(lib.Cells))
	var path []int

	var visit func(i int) error
	visit = func(i int) error {
		colour[i] = grey
		path = append(path, i)
		for _, ref := range lib.Cells[i].References {
			j, ok := index[ref.Cell]
			if !ok {
				continue
			}
			switch colour[j] {
			case grey:
				return fmt.Errorf("%w: %s", core.ErrReferenceCycle, describeCycle(lib, path, j))
			case white:
				if err := visit(j); err != nil {
					return err
				}
			}
		}
		path = path[:len(path)-1]
		colour[i] = black
		return nil
	}

	for i := range lib.Cells {
		if colour[i] == white {
			if err := visit(i); err != nil {
				return err
			}
		}
	}
	return nil
}

func describeCycle(lib *layout.Library, path []int, start int) string {
	var names []string
	for k, i := range path {
		if i == start {
			for _, j := range path[k:] {
				names = append(names, lib.Cells[j].Name)
			}
			break
		}
	}
	names = append(names, lib.Cells[start].Name)
	return strings.Join(names, " -> ")
}
