package layout

import "fmt"

// Tag identifies a drawing plane by layer number and datatype.
type Tag struct {
	Layer    uint32 `json:"layer" yaml:"layer" toml:"layer"`
	Datatype uint32 `json:"datatype" yaml:"datatype" toml:"datatype"`
}

func MakeTag(layer, datatype uint32) Tag {
	return Tag{Layer: layer, Datatype: datatype}
}

func (t Tag) String() string {
	return fmt.Sprintf("%d/%d", t.Layer, t.Datatype)
}

// Point is a 2D coordinate in user units.
type Point struct {
	X, Y float64
}

func (p Point) Add(o Point) Point {
	return Point{p.X + o.X, p.Y + o.Y}
}

// Polygon is a closed loop of points. The closing edge from the last point
// back to the first is implicit. Holes are separate polygons or keyhole
// cuts in the ring.
type Polygon struct {
	Tag        Tag
	Points     []Point
	Repetition Repetition
}

// SignedArea computes the shoelace area of a closed ring. It is positive for
// counter-clockwise rings.
func SignedArea(ring []Point) float64 {
	n := len(ring)
	if n < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		a := ring[i]
		b := ring[(i+1)%n]
		sum += a.X*b.Y - b.X*a.Y
	}
	return sum / 2
}

// Label is a text annotation anchored at Origin.
type Label struct {
	Tag    Tag
	Text   string
	Origin Point
}

// PropertyType is the type of one property value.
type PropertyType int

const (
	PropertyUnsignedInteger PropertyType = iota
	PropertyInteger
	PropertyReal
	PropertyString
)

// PropertyValue holds one typed value; only the field matching Type is set.
type PropertyValue struct {
	Type     PropertyType
	Unsigned uint64
	Integer  int64
	Real     float64
	String   string
}

// Property is a named list of values attached to a reference.
type Property struct {
	Name   string
	Values []PropertyValue
}

// Reference places Cell inside its owner.
type Reference struct {
	Cell          *Cell
	Origin        Point
	Rotation      float64 // radians, counter-clockwise
	Magnification float64
	XReflection   bool
	Repetition    Repetition
	Properties    []Property
}

// Cell is a named, reusable layout definition.
type Cell struct {
	Name       string
	Polygons   []*Polygon
	Labels     []*Label
	References []*Reference
}

// Library owns every cell of one layout.
type Library struct {
	Name      string
	Unit      float64
	Precision float64
	Cells     []*Cell
}

// Cell returns the cell called name or nil.
func (lib *Library) Cell(name string) *Cell {
	for _, c := range lib.Cells {
		if c.Name == name {
			return c
		}
	}
	return nil
}
