package sink

import (
	"github.com/spaghettifunk/strata/engine/hierarchy"
	"github.com/spaghettifunk/strata/engine/layout"
	"github.com/spaghettifunk/strata/engine/mesh"
)

// Sink receives everything a processing run produces. Calls are fire and
// forget. Mesh buffers are only valid for the duration of the call and must
// be copied by implementations that keep them.
type Sink interface {
	Log(text string, elapsed float64)
	Stats(top string, info layout.LibraryInfo)
	CellBounds(cell string, min, max layout.Point, top bool)
	Mesh(cell, name string, tag layout.Tag, m *mesh.Mesh)
	Lines(cell, name string, tag layout.Tag, m *mesh.Mesh)
	Label(cell string, tag layout.Tag, text string, x, y, z float64)
	ReferencePlacement(p hierarchy.Placement)
	ReferencesComplete()
	Progress(percent float64)
	Ended()
}

var _ hierarchy.Emitter = Sink(nil)

// Discard drops every event.
type Discard struct{}

func (Discard) Log(string, float64) {}
func (Discard) Stats(string, layout.LibraryInfo) {}
func (Discard) CellBounds(string, layout.Point, layout.Point, bool) {}
func (Discard) Mesh(string, string, layout.Tag, *mesh.Mesh) {}
func (Discard) Lines(string, string, layout.Tag, *mesh.Mesh) {}
func (Discard) Label(string, layout.Tag, string, float64, float64, float64) {}
func (Discard) ReferencePlacement(hierarchy.Placement) {}
func (Discard) ReferencesComplete() {}
func (Discard) Progress(float64) {}
func (Discard) Ended() {}

// Multi forwards every event to each sink in order.
type Multi []Sink

func (ms Multi) Log(text string, elapsed float64) {
	for _, s := range ms {
		s.Log(text, elapsed)
	}
}

func (ms Multi) Stats(top string, info layout.LibraryInfo) {
	for _, s := range ms {
		s.Stats(top, info)
	}
}

func (ms Multi) CellBounds(cell string, min, max layout.Point, top bool) {
	for _, s := range ms {
		s.CellBounds(cell, min, max, top)
	}
}

func (ms Multi) Mesh(cell, name string, tag layout.Tag, m *mesh.Mesh) {
	for _, s := range ms {
		s.Mesh(cell, name, tag, m)
	}
}

func (ms Multi) Lines(cell, name string, tag layout.Tag, m *mesh.Mesh) {
	for _, s := range ms {
		s.Lines(cell, name, tag, m)
	}
}

func (ms Multi) Label(cell string, tag layout.Tag, text string, x, y, z float64) {
	for _, s := range ms {
		s.Label(cell, tag, text, x, y, z)
	}
}

func (ms Multi) ReferencePlacement(p hierarchy.Placement) {
	for _, s := range ms {
		s.ReferencePlacement(p)
	}
}

func (ms Multi) ReferencesComplete() {
	for _, s := range ms {
		s.ReferencesComplete()
	}
}

func (ms Multi) Progress(percent float64) {
	for _, s := range ms {
		s.Progress(percent)
	}
}

func (ms Multi) Ended() {
	for _, s := range ms {
		s.Ended()
	}
}
