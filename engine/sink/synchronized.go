package sink

import (
	"sync"

	"github.com/spaghettifunk/strata/engine/hierarchy"
	"github.com/spaghettifunk/strata/engine/layout"
	"github.com/spaghettifunk/strata/engine/mesh"
)

// Synchronized serializes calls to a Sink that is not safe for concurrent
// use.
type Synchronized struct {
	mu   sync.Mutex
	next Sink
}

func Synchronize(s Sink) *Synchronized {
	if already, ok := s.(*Synchronized); ok {
		return already
	}
	return &Synchronized{next: s}
}

func (s *Synchronized) Log(text string, elapsed float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next.Log(text, elapsed)
}

func (s *Synchronized) Stats(top string, info layout.LibraryInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next.Stats(top, info)
}

func (s *Synchronized) CellBounds(cell string, min, max layout.Point, top bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next.CellBounds(cell, min, max, top)
}

func (s *Synchronized) Mesh(cell, name string, tag layout.Tag, m *mesh.Mesh) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next.Mesh(cell, name, tag, m)
}

func (s *Synchronized) Lines(cell, name string, tag layout.Tag, m *mesh.Mesh) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next.Lines(cell, name, tag, m)
}

func (s *Synchronized) Label(cell string, tag layout.Tag, text string, x, y, z float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next.Label(cell, tag, text, x, y, z)
}

func (s *Synchronized) ReferencePlacement(p hierarchy.Placement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next.ReferencePlacement(p)
}

func (s *Synchronized) ReferencesComplete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next.ReferencesComplete()
}

func (s *Synchronized) Progress(percent float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next.Progress(percent)
}

func (s *Synchronized) Ended() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next.Ended()
}
