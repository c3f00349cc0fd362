package layout

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/spaghettifunk/strata/engine/core"
)

// GetPolygons returns the polygons of the cell on tag. depth bounds how many
// reference levels are flattened into the result: 0 returns only the cell's
// own polygons, a negative depth flattens the whole subtree. Repetitions are
// expanded into individual polygons.
func (c *Cell) GetPolygons(tag Tag, depth int) ([]*Polygon, error) {
	var out []*Polygon
	err := c.walk(depth, identity(), nil, func(cell *Cell, m affine, transformed bool) {
		for _, p := range cell.Polygons {
			if p.Tag != tag {
				continue
			}
			out = appendPolygon(out, p, m, transformed)
		}
	})
	return out, err
}

func appendPolygon(out []*Polygon, p *Polygon, m affine, transformed bool) []*Polygon {
	if p.Repetition.Type == RepetitionNone {
		if !transformed {
			return append(out, p)
		}
		return append(out, &Polygon{Tag: p.Tag, Points: transformPoints(m, p.Points)})
	}
	for _, off := range p.Repetition.GetOffsets() {
		copyM := translation(off).then(m)
		out = append(out, &Polygon{Tag: p.Tag, Points: transformPoints(copyM, p.Points)})
	}
	return out
}

// GetLabels returns the labels of the cell on tag, flattened to depth like
// GetPolygons.
func (c *Cell) GetLabels(tag Tag, depth int) ([]*Label, error) {
	var out []*Label
	err := c.walk(depth, identity(), nil, func(cell *Cell, m affine, transformed bool) {
		for _, l := range cell.Labels {
			if l.Tag != tag {
				continue
			}
			if !transformed {
				out = append(out, l)
				continue
			}
			out = append(out, &Label{Tag: l.Tag, Text: l.Text, Origin: m.apply(l.Origin)})
		}
	})
	return out, err
}

// walk visits the cell and, up to depth levels, every referenced instance
// with its accumulated transform. stack holds the cells on the current
// path and turns a reference cycle into core.ErrReferenceCycle.
func (c *Cell) walk(depth int, m affine, stack []*Cell, visit func(*Cell, affine, bool)) error {
	for _, s := range stack {
		if s == c {
			return fmt.Errorf("%w: %s", core.ErrReferenceCycle, cyclePath(stack, c))
		}
	}
	visit(c, m, len(stack) > 0)
	if depth == 0 {
		return nil
	}
	stack = append(stack, c)
	for _, ref := range c.References {
		if ref.Cell == nil {
			continue
		}
		for _, inst := range ref.instances() {
			if err := ref.Cell.walk(depth-1, inst.then(m), stack, visit); err != nil {
				return err
			}
		}
	}
	return nil
}

func cyclePath(stack []*Cell, c *Cell) string {
	names := make([]string, 0, len(stack)+1)
	start := 0
	for i, s := range stack {
		if s == c {
			start = i
			break
		}
	}
	for _, s := range stack[start:] {
		names = append(names, s.Name)
	}
	names = append(names, c.Name)
	return strings.Join(names, " -> ")
}

// Box is an axis aligned bounding box. Empty is set when nothing
// contributed to it.
type Box struct {
	Min, Max Point
	Empty    bool
}

func emptyBox() Box {
	return Box{
		Min:   Point{math.Inf(1), math.Inf(1)},
		Max:   Point{math.Inf(-1), math.Inf(-1)},
		Empty: true,
	}
}

func (b *Box) extend(p Point) {
	b.Min.X = math.Min(b.Min.X, p.X)
	b.Min.Y = math.Min(b.Min.Y, p.Y)
	b.Max.X = math.Max(b.Max.X, p.X)
	b.Max.Y = math.Max(b.Max.Y, p.Y)
	b.Empty = false
}

// BoundingBoxes computes the bounds of every cell, including the geometry of
// referenced cells. Results are memoized so shared subcells are visited once.
func (lib *Library) BoundingBoxes() (map[*Cell]Box, error) {
	boxes := make(map[*Cell]Box, len(lib.Cells))
	for _, c := range lib.Cells {
		if _, err := c.boundingBox(boxes, nil); err != nil {
			return nil, err
		}
	}
	return boxes, nil
}

// BoundingBox returns the bounds of the cell and its subtree.
func (c *Cell) BoundingBox() (Box, error) {
	return c.boundingBox(map[*Cell]Box{}, nil)
}

func (c *Cell) boundingBox(memo map[*Cell]Box, stack []*Cell) (Box, error) {
	if b, ok := memo[c]; ok {
		return b, nil
	}
	for _, s := range stack {
		if s == c {
			return Box{}, fmt.Errorf("%w: %s", core.ErrReferenceCycle, cyclePath(stack, c))
		}
	}
	stack = append(stack, c)

	box := emptyBox()
	for _, p := range c.Polygons {
		offsets := []Point{{}}
		if p.Repetition.Type != RepetitionNone {
			offsets = p.Repetition.GetOffsets()
		}
		for _, off := range offsets {
			for _, pt := range p.Points {
				box.extend(pt.Add(off))
			}
		}
	}
	for _, ref := range c.References {
		if ref.Cell == nil {
			continue
		}
		child, err := ref.Cell.boundingBox(memo, stack)
		if err != nil {
			return Box{}, err
		}
		if child.Empty {
			continue
		}
		corners := []Point{
			child.Min,
			{child.Max.X, child.Min.Y},
			child.Max,
			{child.Min.X, child.Max.Y},
		}
		for _, inst := range ref.instances() {
			for _, corner := range corners {
				box.extend(inst.apply(corner))
			}
		}
	}
	memo[c] = box
	return box, nil
}

// TopLevel returns the cells no other cell references, in library order.
func (lib *Library) TopLevel() []*Cell {
	referenced := make(map[*Cell]bool)
	for _, c := range lib.Cells {
		for _, ref := range c.References {
			if ref.Cell != nil && ref.Cell != c {
				referenced[ref.Cell] = true
			}
		}
	}
	var top []*Cell
	for _, c := range lib.Cells {
		if !referenced[c] {
			top = append(top, c)
		}
	}
	return top
}

// LibraryInfo summarizes a library for the statistics message.
type LibraryInfo struct {
	CellNames     []string
	ShapeTags     []Tag
	LabelTags     []Tag
	NumPolygons   uint64
	NumReferences uint64
	NumLabels     uint64
	Unit          float64
	Precision     float64
}

// Info counts the library's content. Tags are sorted by layer then datatype.
func (lib *Library) Info() LibraryInfo {
	info := LibraryInfo{
		Unit:      lib.Unit,
		Precision: lib.Precision,
	}
	shapeTags := map[Tag]bool{}
	labelTags := map[Tag]bool{}
	for _, c := range lib.Cells {
		info.CellNames = append(info.CellNames, c.Name)
		info.NumPolygons += uint64(len(c.Polygons))
		info.NumReferences += uint64(len(c.References))
		info.NumLabels += uint64(len(c.Labels))
		for _, p := range c.Polygons {
			shapeTags[p.Tag] = true
		}
		for _, l := range c.Labels {
			labelTags[l.Tag] = true
		}
	}
	info.ShapeTags = sortedTags(shapeTags)
	info.LabelTags = sortedTags(labelTags)
	return info
}

func sortedTags(set map[Tag]bool) []Tag {
	out := make([]Tag, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Layer != out[j].Layer {
			return out[i].Layer < out[j].Layer
		}
		return out[i].Datatype < out[j].Datatype
	})
	return out
}
