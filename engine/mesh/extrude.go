package mesh

import (
	stdmath "math"

	"github.com/spaghettifunk/strata/engine/core"
	"github.com/spaghettifunk/strata/engine/layout"
	"github.com/spaghettifunk/strata/engine/mesh/triangulation"
)

// TriangulateFunc is the triangulation service used for non-rectangular
// polygons.
type TriangulateFunc func(points []triangulation.Point, edges []triangulation.Edge) (*triangulation.Result, error)

// Extruder lofts the 2D polygons of one layer into a closed solid between
// zmin and zmax.
type Extruder struct {
	Triangulate TriangulateFunc
}

func NewExtruder() *Extruder {
	return &Extruder{Triangulate: triangulation.Triangulate}
}

// prism is the footprint of one polygon ready for extrusion.
type prism struct {
	vertices []triangulation.Point
	// counter-clockwise cap triangles over vertices
	triangles []triangulation.Triangle
	// ring lists the boundary vertices in ring order, one entry per wall
	ring []int
	ccw  bool
}

var (
	rectangleTrianglesCCW = []triangulation.Triangle{{0, 1, 2}, {0, 2, 3}}
	rectangleTrianglesCW  = []triangulation.Triangle{{0, 2, 1}, {0, 3, 2}}
	identityRing4         = []int{0, 1, 2, 3}
)

// Extrude appends the solids of polys to m. The caller resets m between
// layers. Polygons that cannot be triangulated are skipped and counted.
func (e *Extruder) Extrude(polys []*layout.Polygon, zmin, zmax float64, m *Mesh) BatchStats {
	var stats BatchStats
	for _, poly := range polys {
		pr, rect, err := e.footprint(poly)
		if err != nil {
			core.LogDebug("skipping polygon %s with %d points: %s", poly.Tag, len(poly.Points), err.Error())
			stats.Skipped++
			continue
		}
		pr.extrude(zmin, zmax, m)

		stats.Polygons++
		if rect {
			stats.Rectangles++
		}
		stats.Vertices += uint64(2 * len(pr.vertices))
		stats.Triangles += uint64(2*len(pr.triangles) + 2*countWalls(pr.ring))
	}
	return stats
}

func (e *Extruder) footprint(poly *layout.Polygon) (*prism, bool, error) {
	pts := poly.Points
	if len(pts) < 3 {
		return nil, false, triangulation.ErrTooFewPoints
	}
	area := layout.SignedArea(pts)
	if stdmath.Abs(area) <= degenerateArea(pts) {
		return nil, false, triangulation.ErrDegenerate
	}
	ccw := area > 0

	if isRectangle(pts) {
		pr := &prism{
			vertices:  make([]triangulation.Point, 4),
			triangles: rectangleTrianglesCCW,
			ring:      identityRing4,
			ccw:       ccw,
		}
		for i, p := range pts {
			pr.vertices[i] = triangulation.Point(p)
		}
		if !ccw {
			pr.triangles = rectangleTrianglesCW
		}
		return pr, true, nil
	}

	points := make([]triangulation.Point, len(pts))
	for i, p := range pts {
		points[i] = triangulation.Point(p)
	}
	res, err := e.Triangulate(points, triangulation.Ring(len(points)))
	if err != nil {
		return nil, false, err
	}
	return &prism{
		vertices:  res.Vertices,
		triangles: res.Triangles,
		ring:      boundary(res),
		ccw:       ccw,
	}, false, nil
}

// boundary walks the input ring through the dedup mapping. Ring edges that
// were split at a touching vertex contribute one wall per piece, matching
// the cap edges.
func boundary(res *triangulation.Result) []int {
	n := len(res.Mapping)
	ring := make([]int, 0, n)
	for i := 0; i < n; i++ {
		a, b := res.Mapping[i], res.Mapping[(i+1)%n]
		if a == b {
			continue
		}
		path := res.Path(a, b)
		ring = append(ring, path[:len(path)-1]...)
	}
	return ring
}

// degenerateArea is the area under which a ring is treated as flat.
func degenerateArea(pts []layout.Point) float64 {
	minX, minY := stdmath.Inf(1), stdmath.Inf(1)
	maxX, maxY := stdmath.Inf(-1), stdmath.Inf(-1)
	for _, p := range pts {
		minX, maxX = stdmath.Min(minX, p.X), stdmath.Max(maxX, p.X)
		minY, maxY = stdmath.Min(minY, p.Y), stdmath.Max(maxY, p.Y)
	}
	size := stdmath.Max(maxX-minX, maxY-minY)
	return 1e-12 * size * size
}

// isRectangle detects an axis aligned 4 point ring starting with either a
// vertical or a horizontal side.
func isRectangle(p []layout.Point) bool {
	if len(p) != 4 {
		return false
	}
	return (p[0].X == p[1].X && p[2].X == p[3].X && p[0].Y == p[3].Y && p[1].Y == p[2].Y) ||
		(p[0].X == p[3].X && p[1].X == p[2].X && p[0].Y == p[1].Y && p[2].Y == p[3].Y)
}

func countWalls(ring []int) int {
	n := 0
	for i := range ring {
		if ring[i] != ring[(i+1)%len(ring)] {
			n++
		}
	}
	return n
}

// extrude writes the bottom cap at zmin with reversed winding, the top cap
// at zmax and two triangles per ring edge, all facing outwards.
func (pr *prism) extrude(zmin, zmax float64, m *Mesh) {
	bottom := uint32(m.VertexCount())
	top := bottom + uint32(len(pr.vertices))

	for _, v := range pr.vertices {
		m.addVertex(v.X, v.Y, zmin)
	}
	for _, v := range pr.vertices {
		m.addVertex(v.X, v.Y, zmax)
	}

	for _, t := range pr.triangles {
		m.Indices.InsertMany(bottom+uint32(t[2]), bottom+uint32(t[1]), bottom+uint32(t[0]))
	}
	for _, t := range pr.triangles {
		m.Indices.InsertMany(top+uint32(t[0]), top+uint32(t[1]), top+uint32(t[2]))
	}

	n := len(pr.ring)
	for i := 0; i < n; i++ {
		a, b := uint32(pr.ring[i]), uint32(pr.ring[(i+1)%n])
		if a == b {
			continue
		}
		if pr.ccw {
			m.Indices.InsertMany(
				bottom+a, bottom+b, top+b,
				bottom+a, top+b, top+a,
			)
		} else {
			m.Indices.InsertMany(
				bottom+a, top+b, bottom+b,
				bottom+a, top+a, top+b,
			)
		}
	}
}
