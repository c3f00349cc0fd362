package sink

import (
	"github.com/spaghettifunk/strata/engine/hierarchy"
	"github.com/spaghettifunk/strata/engine/layout"
	"github.com/spaghettifunk/strata/engine/mesh"
)

type LogRecord struct {
	Text    string
	Elapsed float64
}

type StatsRecord struct {
	Top  string
	Info layout.LibraryInfo
}

type CellRecord struct {
	Cell     string
	Min, Max layout.Point
	Top      bool
}

// MeshRecord holds copies of the buffers handed to Mesh or Lines.
type MeshRecord struct {
	Cell      string
	Name      string
	Tag       layout.Tag
	Positions []float32
	Indices   []uint32
}

type LabelRecord struct {
	Cell    string
	Tag     layout.Tag
	Text    string
	X, Y, Z float64
}

// Recorder keeps every event in memory. It is not safe for concurrent use;
// wrap it with Synchronize when cells are processed in parallel.
type Recorder struct {
	Logs       []LogRecord
	Summaries  []StatsRecord
	Cells      []CellRecord
	Meshes     []MeshRecord
	Wireframes []MeshRecord
	Labels     []LabelRecord
	Placements []hierarchy.Placement
	Completed  int
	Progresses []float64
	EndedCount int
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Log(text string, elapsed float64) {
	r.Logs = append(r.Logs, LogRecord{Text: text, Elapsed: elapsed})
}

func (r *Recorder) Stats(top string, info layout.LibraryInfo) {
	r.Summaries = append(r.Summaries, StatsRecord{Top: top, Info: info})
}

func (r *Recorder) CellBounds(cell string, min, max layout.Point, top bool) {
	r.Cells = append(r.Cells, CellRecord{Cell: cell, Min: min, Max: max, Top: top})
}

func (r *Recorder) Mesh(cell, name string, tag layout.Tag, m *mesh.Mesh) {
	r.Meshes = append(r.Meshes, copyMesh(cell, name, tag, m))
}

func (r *Recorder) Lines(cell, name string, tag layout.Tag, m *mesh.Mesh) {
	r.Wireframes = append(r.Wireframes, copyMesh(cell, name, tag, m))
}

func (r *Recorder) Label(cell string, tag layout.Tag, text string, x, y, z float64) {
	r.Labels = append(r.Labels, LabelRecord{Cell: cell, Tag: tag, Text: text, X: x, Y: y, Z: z})
}

func (r *Recorder) ReferencePlacement(p hierarchy.Placement) {
	r.Placements = append(r.Placements, p)
}

func (r *Recorder) ReferencesComplete() {
	r.Completed++
}

func (r *Recorder) Progress(percent float64) {
	r.Progresses = append(r.Progresses, percent)
}

func (r *Recorder) Ended() {
	r.EndedCount++
}

// Find returns the first recorded mesh or wireframe called name.
func (r *Recorder) Find(name string) (MeshRecord, bool) {
	for _, list := range [][]MeshRecord{r.Meshes, r.Wireframes} {
		for _, m := range list {
			if m.Name == name {
				return m, true
			}
		}
	}
	return MeshRecord{}, false
}

func copyMesh(cell, name string, tag layout.Tag, m *mesh.Mesh) MeshRecord {
	return MeshRecord{
		Cell:      cell,
		Name:      name,
		Tag:       tag,
		Positions: append([]float32(nil), m.Positions.Data()...),
		Indices:   append([]uint32(nil), m.Indices.Data()...),
	}
}
