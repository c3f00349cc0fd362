package layout

import (
	"fmt"
	"math"
	"strings"
)

// Document is the serialized form of a Library used by the json and yaml
// readers. Rotations are in degrees, as layout tools present them.
type Document struct {
	Name      string        `json:"name,omitempty" yaml:"name,omitempty"`
	Unit      float64       `json:"unit,omitempty" yaml:"unit,omitempty"`
	Precision float64       `json:"precision,omitempty" yaml:"precision,omitempty"`
	Cells     []CellDocument `json:"cells" yaml:"cells"`
}

type CellDocument struct {
	Name       string              `json:"name" yaml:"name"`
	Polygons   []PolygonDocument   `json:"polygons,omitempty" yaml:"polygons,omitempty"`
	Labels     []LabelDocument     `json:"labels,omitempty" yaml:"labels,omitempty"`
	References []ReferenceDocument `json:"references,omitempty" yaml:"references,omitempty"`
}

type PolygonDocument struct {
	Layer      uint32              `json:"layer" yaml:"layer"`
	Datatype   uint32              `json:"datatype" yaml:"datatype"`
	Points     [][2]float64        `json:"points" yaml:"points"`
	Repetition *RepetitionDocument `json:"repetition,omitempty" yaml:"repetition,omitempty"`
}

type LabelDocument struct {
	Layer    uint32     `json:"layer" yaml:"layer"`
	Datatype uint32     `json:"datatype" yaml:"datatype"`
	Text     string     `json:"text" yaml:"text"`
	Origin   [2]float64 `json:"origin" yaml:"origin"`
}

type ReferenceDocument struct {
	Cell          string              `json:"cell" yaml:"cell"`
	Origin        [2]float64          `json:"origin" yaml:"origin"`
	Rotation      float64             `json:"rotation,omitempty" yaml:"rotation,omitempty"`
	Magnification float64             `json:"magnification,omitempty" yaml:"magnification,omitempty"`
	XReflection   bool                `json:"x_reflection,omitempty" yaml:"x_reflection,omitempty"`
	Repetition    *RepetitionDocument `json:"repetition,omitempty" yaml:"repetition,omitempty"`
	Properties    []PropertyDocument  `json:"properties,omitempty" yaml:"properties,omitempty"`
}

type RepetitionDocument struct {
	Type    string       `json:"type" yaml:"type"`
	Columns uint64       `json:"columns,omitempty" yaml:"columns,omitempty"`
	Rows    uint64       `json:"rows,omitempty" yaml:"rows,omitempty"`
	Spacing [2]float64   `json:"spacing,omitempty" yaml:"spacing,omitempty"`
	V1      [2]float64   `json:"v1,omitempty" yaml:"v1,omitempty"`
	V2      [2]float64   `json:"v2,omitempty" yaml:"v2,omitempty"`
	Offsets [][2]float64 `json:"offsets,omitempty" yaml:"offsets,omitempty"`
	Coords  []float64    `json:"coords,omitempty" yaml:"coords,omitempty"`
}

type PropertyDocument struct {
	Name   string                  `json:"name" yaml:"name"`
	Values []PropertyValueDocument `json:"values" yaml:"values"`
}

// PropertyValueDocument holds a value tagged with one of uint, int, real
// or string.
type PropertyValueDocument struct {
	Type  string      `json:"type" yaml:"type"`
	Value interface{} `json:"value" yaml:"value"`
}

// Build resolves cell names and returns the Library the document describes.
func (d *Document) Build() (*Library, error) {
	lib := &Library{
		Name:      d.Name,
		Unit:      d.Unit,
		Precision: d.Precision,
	}
	if lib.Unit == 0 {
		lib.Unit = 1e-6
	}
	if lib.Precision == 0 {
		lib.Precision = 1e-9
	}

	byName := make(map[string]*Cell, len(d.Cells))
	for _, cd := range d.Cells {
		if _, ok := byName[cd.Name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateCell, cd.Name)
		}
		c := &Cell{Name: cd.Name}
		byName[cd.Name] = c
		lib.Cells = append(lib.Cells, c)
	}

	for i, cd := range d.Cells {
		c := lib.Cells[i]
		for _, pd := range cd.Polygons {
			rep, err := pd.Repetition.build()
			if err != nil {
				return nil, fmt.Errorf("cell %q: %w", cd.Name, err)
			}
			c.Polygons = append(c.Polygons, &Polygon{
				Tag:        MakeTag(pd.Layer, pd.Datatype),
				Points:     toPoints(pd.Points),
				Repetition: rep,
			})
		}
		for _, ld := range cd.Labels {
			c.Labels = append(c.Labels, &Label{
				Tag:    MakeTag(ld.Layer, ld.Datatype),
				Text:   ld.Text,
				Origin: Point{ld.Origin[0], ld.Origin[1]},
			})
		}
		for _, rd := range cd.References {
			target, ok := byName[rd.Cell]
			if !ok {
				return nil, fmt.Errorf("%w: %q referenced from %q", ErrUnknownCell, rd.Cell, cd.Name)
			}
			rep, err := rd.Repetition.build()
			if err != nil {
				return nil, fmt.Errorf("cell %q: %w", cd.Name, err)
			}
			props, err := buildProperties(rd.Properties)
			if err != nil {
				return nil, fmt.Errorf("cell %q: %w", cd.Name, err)
			}
			mag := rd.Magnification
			if mag == 0 {
				mag = 1
			}
			c.References = append(c.References, &Reference{
				Cell:          target,
				Origin:        Point{rd.Origin[0], rd.Origin[1]},
				Rotation:      rd.Rotation * math.Pi / 180,
				Magnification: mag,
				XReflection:   rd.XReflection,
				Repetition:    rep,
				Properties:    props,
			})
		}
	}
	return lib, nil
}

func toPoints(raw [][2]float64) []Point {
	pts := make([]Point, len(raw))
	for i, p := range raw {
		pts[i] = Point{p[0], p[1]}
	}
	return pts
}

func (rd *RepetitionDocument) build() (Repetition, error) {
	if rd == nil {
		return Repetition{}, nil
	}
	rep := Repetition{
		Columns: rd.Columns,
		Rows:    rd.Rows,
		Spacing: Point{rd.Spacing[0], rd.Spacing[1]},
		V1:      Point{rd.V1[0], rd.V1[1]},
		V2:      Point{rd.V2[0], rd.V2[1]},
		Offsets: toPoints(rd.Offsets),
		Coords:  rd.Coords,
	}
	switch strings.ToLower(rd.Type) {
	case "", "none":
		rep.Type = RepetitionNone
	case "rectangular":
		rep.Type = RepetitionRectangular
	case "regular":
		rep.Type = RepetitionRegular
	case "explicit":
		rep.Type = RepetitionExplicit
	case "explicit_x":
		rep.Type = RepetitionExplicitX
	case "explicit_y":
		rep.Type = RepetitionExplicitY
	default:
		return Repetition{}, fmt.Errorf("%w: repetition type %q", ErrInvalidValue, rd.Type)
	}
	return rep, nil
}

func buildProperties(docs []PropertyDocument) ([]Property, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	props := make([]Property, 0, len(docs))
	for _, pd := range docs {
		p := Property{Name: pd.Name}
		for _, vd := range pd.Values {
			v, err := vd.build()
			if err != nil {
				return nil, fmt.Errorf("property %q: %w", pd.Name, err)
			}
			p.Values = append(p.Values, v)
		}
		props = append(props, p)
	}
	return props, nil
}

func (vd PropertyValueDocument) build() (PropertyValue, error) {
	switch strings.ToLower(vd.Type) {
	case "uint", "unsigned":
		f, ok := toFloat(vd.Value)
		if !ok || f < 0 {
			return PropertyValue{}, fmt.Errorf("%w: unsigned value %v", ErrInvalidValue, vd.Value)
		}
		return PropertyValue{Type: PropertyUnsignedInteger, Unsigned: uint64(f)}, nil
	case "int", "integer":
		f, ok := toFloat(vd.Value)
		if !ok {
			return PropertyValue{}, fmt.Errorf("%w: integer value %v", ErrInvalidValue, vd.Value)
		}
		return PropertyValue{Type: PropertyInteger, Integer: int64(f)}, nil
	case "real":
		f, ok := toFloat(vd.Value)
		if !ok {
			return PropertyValue{}, fmt.Errorf("%w: real value %v", ErrInvalidValue, vd.Value)
		}
		return PropertyValue{Type: PropertyReal, Real: f}, nil
	case "string":
		s, ok := vd.Value.(string)
		if !ok {
			return PropertyValue{}, fmt.Errorf("%w: string value %v", ErrInvalidValue, vd.Value)
		}
		return PropertyValue{Type: PropertyString, String: s}, nil
	default:
		return PropertyValue{}, fmt.Errorf("%w: property type %q", ErrInvalidValue, vd.Type)
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint64:
		return float64(x), true
	default:
		return 0, false
	}
}
