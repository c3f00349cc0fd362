package core

import "sync/atomic"

// Metrics accumulates counters over one processing session. All methods are
// safe for concurrent use so the parallel cell jobs can share one instance.
type Metrics struct {
	cells      atomic.Uint64
	meshes     atomic.Uint64
	lines      atomic.Uint64
	labels     atomic.Uint64
	placements atomic.Uint64
	polygons   atomic.Uint64
	skipped    atomic.Uint64
	vertices   atomic.Uint64
	triangles  atomic.Uint64
}

// MetricsSnapshot is a point-in-time copy of Metrics.
type MetricsSnapshot struct {
	Cells      uint64
	Meshes     uint64
	Lines      uint64
	Labels     uint64
	Placements uint64
	Polygons   uint64
	Skipped    uint64
	Vertices   uint64
	Triangles  uint64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) CellProcessed() { m.cells.Add(1) }
func (m *Metrics) MeshEmitted() { m.meshes.Add(1) }
func (m *Metrics) LinesEmitted() { m.lines.Add(1) }
func (m *Metrics) LabelEmitted() { m.labels.Add(1) }
func (m *Metrics) PlacementsEmitted(n uint64) { m.placements.Add(n) }

// Triangulation adds the result of one extrusion batch.
func (m *Metrics) Triangulation(polygons, skipped, vertices, triangles uint64) {
	m.polygons.Add(polygons)
	m.skipped.Add(skipped)
	m.vertices.Add(vertices)
	m.triangles.Add(triangles)
}

func (m *Metrics) Reset() {
	m.cells.Store(0)
	m.meshes.Store(0)
	m.lines.Store(0)
	m.labels.Store(0)
	m.placements.Store(0)
	m.polygons.Store(0)
	m.skipped.Store(0)
	m.vertices.Store(0)
	m.triangles.Store(0)
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Cells:      m.cells.Load(),
		Meshes:     m.meshes.Load(),
		Lines:      m.lines.Load(),
		Labels:     m.labels.Load(),
		Placements: m.placements.Load(),
		Polygons:   m.polygons.Load(),
		Skipped:    m.skipped.Load(),
		Vertices:   m.vertices.Load(),
		Triangles:  m.triangles.Load(),
	}
}
