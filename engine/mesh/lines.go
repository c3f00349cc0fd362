package mesh

import "github.com/spaghettifunk/strata/engine/layout"

// BuildLines appends a wireframe cage per polygon to m: the ring at zmin
// closed back to its first vertex, the ring at zmax, and one vertical
// segment per vertex, each strip terminated by RestartIndex. A polygon of K
// points adds 2K vertices and 5K+4 indices.
func BuildLines(polys []*layout.Polygon, zmin, zmax float64, m *Mesh) BatchStats {
	var stats BatchStats
	for _, poly := range polys {
		k := uint32(len(poly.Points))
		if k < 2 {
			stats.Skipped++
			continue
		}

		bottom := uint32(m.VertexCount())
		for i, p := range poly.Points {
			m.addVertex(p.X, p.Y, zmin)
			m.Indices.Insert(bottom + uint32(i))
		}
		m.Indices.InsertMany(bottom, RestartIndex)

		top := bottom + k
		for i, p := range poly.Points {
			m.addVertex(p.X, p.Y, zmax)
			m.Indices.Insert(top + uint32(i))
		}
		m.Indices.InsertMany(top, RestartIndex)

		for i := uint32(0); i < k; i++ {
			m.Indices.InsertMany(top+i, bottom+i, RestartIndex)
		}

		stats.Polygons++
		stats.Vertices += uint64(2 * k)
	}
	return stats
}
