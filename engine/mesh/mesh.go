package mesh

import (
	"fmt"

	"github.com/spaghettifunk/strata/engine/containers"
	"github.com/spaghettifunk/strata/engine/math"
)

// RestartIndex separates line strips in a wireframe index buffer.
const RestartIndex uint32 = 0xFFFFFFFF

/**
 * @brief A pair of buffers holding one (cell, layer) mesh: flat xyz
 * positions and uint32 indices. Indices are triangle triples for solid
 * meshes and restart separated runs for wireframes.
 */
type Mesh struct {
	Positions *containers.GrowBuffer[float32]
	Indices   *containers.GrowBuffer[uint32]
}

// NewMesh reserves reserveBytes for each buffer. Non-positive sizes use
// containers.DefaultBufferBytes.
func NewMesh(reserveBytes int) *Mesh {
	return &Mesh{
		Positions: containers.NewGrowBuffer[float32](reserveBytes/4, reserveBytes/4),
		Indices:   containers.NewGrowBuffer[uint32](reserveBytes/4, reserveBytes/4),
	}
}

// Reset empties both buffers and keeps their storage.
func (m *Mesh) Reset() {
	m.Positions.Reset()
	m.Indices.Reset()
}

// VertexCount returns the number of xyz triples in Positions.
func (m *Mesh) VertexCount() int {
	return m.Positions.Size() / 3
}

// Empty reports whether nothing has been written since the last Reset.
func (m *Mesh) Empty() bool {
	return m.Indices.Size() == 0
}

func (m *Mesh) addVertex(x, y, z float64) {
	m.Positions.InsertMany(float32(x), float32(y), float32(z))
}

// Extents returns the axis aligned bounds of the positions.
func (m *Mesh) Extents() math.Extents3D {
	return math.GeometryExtents(m.Positions.Data())
}

// Validate checks that every index refers to a vertex, the restart value
// excepted.
func (m *Mesh) Validate() error {
	n := uint32(m.VertexCount())
	for i, idx := range m.Indices.Data() {
		if idx != RestartIndex && idx >= n {
			return fmt.Errorf("index %d at %d out of range for %d vertices", idx, i, n)
		}
	}
	return nil
}

// BatchStats counts what one Extrude or BuildLines call produced.
type BatchStats struct {
	Polygons   uint64
	Rectangles uint64
	Skipped    uint64
	Vertices   uint64
	Triangles  uint64
}
