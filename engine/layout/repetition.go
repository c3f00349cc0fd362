package layout

// RepetitionType selects how a Repetition lays out its copies.
type RepetitionType int

const (
	RepetitionNone RepetitionType = iota
	// Columns x Rows grid with axis aligned Spacing.
	RepetitionRectangular
	// Columns x Rows grid along arbitrary vectors V1 and V2.
	RepetitionRegular
	// Arbitrary list of Offsets.
	RepetitionExplicit
	// Offsets along X given by Coords.
	RepetitionExplicitX
	// Offsets along Y given by Coords.
	RepetitionExplicitY
)

// Repetition describes copies of an element at offsets from its origin.
type Repetition struct {
	Type    RepetitionType
	Columns uint64
	Rows    uint64
	Spacing Point
	V1      Point
	V2      Point
	Offsets []Point
	Coords  []float64
}

// Count returns the number of copies, 1 when there is no repetition.
func (r *Repetition) Count() uint64 {
	switch r.Type {
	case RepetitionRectangular, RepetitionRegular:
		return r.Columns * r.Rows
	case RepetitionExplicit:
		return uint64(len(r.Offsets))
	case RepetitionExplicitX, RepetitionExplicitY:
		return uint64(len(r.Coords))
	default:
		return 1
	}
}

// GetOffsets returns the ordered offsets of all copies. Grid repetitions
// iterate rows fastest within each column. RepetitionNone yields nil.
func (r *Repetition) GetOffsets() []Point {
	switch r.Type {
	case RepetitionRectangular:
		out := make([]Point, 0, r.Count())
		for i := uint64(0); i < r.Columns; i++ {
			for j := uint64(0); j < r.Rows; j++ {
				out = append(out, Point{float64(i) * r.Spacing.X, float64(j) * r.Spacing.Y})
			}
		}
		return out
	case RepetitionRegular:
		out := make([]Point, 0, r.Count())
		for i := uint64(0); i < r.Columns; i++ {
			for j := uint64(0); j < r.Rows; j++ {
				out = append(out, Point{
					float64(i)*r.V1.X + float64(j)*r.V2.X,
					float64(i)*r.V1.Y + float64(j)*r.V2.Y,
				})
			}
		}
		return out
	case RepetitionExplicit:
		out := make([]Point, len(r.Offsets))
		copy(out, r.Offsets)
		return out
	case RepetitionExplicitX:
		out := make([]Point, len(r.Coords))
		for i, c := range r.Coords {
			out[i] = Point{X: c}
		}
		return out
	case RepetitionExplicitY:
		out := make([]Point, len(r.Coords))
		for i, c := range r.Coords {
			out[i] = Point{Y: c}
		}
		return out
	default:
		return nil
	}
}
