package triangulation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func area(res *Result) float64 {
	var sum float64
	for _, tri := range res.Triangles {
		a, b, c := res.Vertices[tri[0]], res.Vertices[tri[1]], res.Vertices[tri[2]]
		sum += ((b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)) / 2
	}
	return sum
}

func assertCounterClockwise(t *testing.T, res *Result) {
	t.Helper()
	for _, tri := range res.Triangles {
		a, b, c := res.Vertices[tri[0]], res.Vertices[tri[1]], res.Vertices[tri[2]]
		assert.Greater(t, (b.X-a.X)*(c.Y-a.Y)-(b.Y-a.Y)*(c.X-a.X), 0.0, "triangle %v", tri)
	}
}

func TestTriangulatePolygons(t *testing.T) {
	tests := []struct {
		name      string
		points    []Point
		triangles int
		area      float64
	}{
		{
			name:      "triangle",
			points:    []Point{{0, 0}, {4, 0}, {0, 3}},
			triangles: 1,
			area:      6,
		},
		{
			name:      "square",
			points:    []Point{{0, 0}, {10, 0}, {10, 10}, {0, 10}},
			triangles: 2,
			area:      100,
		},
		{
			name:      "clockwise square",
			points:    []Point{{0, 0}, {0, 10}, {10, 10}, {10, 0}},
			triangles: 2,
			area:      100,
		},
		{
			name:      "L shape",
			points:    []Point{{0, 0}, {4, 0}, {4, 1}, {1, 1}, {1, 4}, {0, 4}},
			triangles: 4,
			area:      7,
		},
		{
			name:      "collinear side points",
			points:    []Point{{0, 0}, {1, 0}, {2, 0}, {3, 0}, {3, 1}, {2, 1}, {1, 1}, {0, 1}},
			triangles: 6,
			area:      3,
		},
		{
			name:      "comb",
			points:    []Point{{0, 0}, {5, 0}, {5, 3}, {4, 3}, {4, 1}, {3, 1}, {3, 3}, {2, 3}, {2, 1}, {1, 1}, {1, 3}, {0, 3}},
			triangles: 10,
			area:      11,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Triangulate(tt.points, Ring(len(tt.points)))
			require.NoError(t, err)
			assert.Len(t, res.Vertices, len(tt.points))
			assert.Empty(t, res.Duplicates)
			assert.Len(t, res.Triangles, tt.triangles)
			assert.InDelta(t, tt.area, area(res), 1e-9)
			assertCounterClockwise(t, res)
		})
	}
}

func TestTriangulateRemovesDuplicates(t *testing.T) {
	points := []Point{{0, 0}, {10, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}
	res, err := Triangulate(points, Ring(len(points)))
	require.NoError(t, err)

	assert.Len(t, res.Vertices, 4)
	assert.Equal(t, []int{0, 1, 1, 2, 3, 0}, res.Mapping)
	assert.Equal(t, []int{2, 5}, res.Duplicates)
	assert.Len(t, res.Edges, 4)
	assert.Len(t, res.Triangles, 2)
	assert.InDelta(t, 100, area(res), 1e-9)
}

func TestTriangulateKeyholeErasesHole(t *testing.T) {
	// outer square, bridge to a clockwise inner square and back
	points := []Point{
		{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0},
		{3, 3}, {3, 7}, {7, 7}, {7, 3}, {3, 3},
	}
	res, err := Triangulate(points, Ring(len(points)))
	require.NoError(t, err)

	assert.Len(t, res.Vertices, 8)
	assert.Len(t, res.Edges, 9)
	assert.InDelta(t, 84, area(res), 1e-9)
	assertCounterClockwise(t, res)

	for _, tri := range res.Triangles {
		var cx, cy float64
		for _, v := range tri {
			cx += res.Vertices[v].X / 3
			cy += res.Vertices[v].Y / 3
		}
		inHole := cx > 3 && cx < 7 && cy > 3 && cy < 7
		assert.False(t, inHole, "triangle %v lies in the hole", tri)
	}
}

func TestTriangulateSeparateLoops(t *testing.T) {
	points := []Point{
		{0, 0}, {10, 0}, {10, 10}, {0, 10},
		{2, 2}, {2, 4}, {4, 4}, {4, 2},
	}
	edges := []Edge{{0, 1}, {1, 2}, {2, 3}, {3, 0}, {4, 5}, {5, 6}, {6, 7}, {7, 4}}
	res, err := Triangulate(points, edges)
	require.NoError(t, err)
	assert.InDelta(t, 96, area(res), 1e-9)
}

func TestTriangulateIsDelaunay(t *testing.T) {
	points := []Point{{0, 0}, {6, -1}, {12, 0}, {13, 5}, {12, 10}, {6, 11}, {0, 10}, {-1, 5}}
	res, err := Triangulate(points, Ring(len(points)))
	require.NoError(t, err)
	require.Len(t, res.Triangles, 6)

	tr := newTriangulator(res.Vertices)
	for _, tri := range res.Triangles {
		for v := range res.Vertices {
			if v == tri[0] || v == tri[1] || v == tri[2] {
				continue
			}
			assert.LessOrEqual(t, tr.inCircle(tri, v), tr.eps, "vertex %d inside circumcircle of %v", v, tri)
		}
	}
}

func TestTriangulateErrors(t *testing.T) {
	tests := []struct {
		name   string
		points []Point
		err    error
	}{
		{"two points", []Point{{0, 0}, {1, 1}}, ErrTooFewPoints},
		{"repeated point", []Point{{1, 1}, {1, 1}, {1, 1}, {2, 2}}, ErrTooFewPoints},
		{"bowtie", []Point{{0, 0}, {10, 10}, {10, 0}, {0, 10}}, ErrIntersectingConstraints},
		{"collinear", []Point{{0, 0}, {1, 0}, {2, 0}}, ErrDegenerate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Triangulate(tt.points, Ring(len(tt.points)))
			assert.ErrorIs(t, err, tt.err)
		})
	}

	_, err := Triangulate([]Point{{0, 0}, {1, 0}, {0, 1}}, []Edge{{0, 7}})
	assert.ErrorIs(t, err, ErrDegenerate)
}

func TestRing(t *testing.T) {
	assert.Nil(t, Ring(1))
	assert.Equal(t, []Edge{{0, 1}, {1, 2}, {2, 0}}, Ring(3))
}

func TestTriangulateLargeCoordinates(t *testing.T) {
	off := 1e6
	points := []Point{{off, off}, {off + 0.5, off}, {off + 0.5, off + 0.2}, {off + 0.25, off + 0.3}, {off, off + 0.2}}
	res, err := Triangulate(points, Ring(len(points)))
	require.NoError(t, err)
	assert.Len(t, res.Triangles, 3)
	assert.InDelta(t, 0.5*0.2+0.5*0.5*0.1, area(res), 1e-6)
	assert.False(t, math.IsNaN(area(res)))
}

func regularPolygon(cx, cy, r float64, n int, grid float64) []Point {
	pts := make([]Point, n)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / float64(n)
		x, y := cx+r*math.Cos(a), cy+r*math.Sin(a)
		if grid > 0 {
			x = math.Round(x/grid) * grid
			y = math.Round(y/grid) * grid
		}
		pts[i] = Point{x, y}
	}
	return pts
}

func shoelace(pts []Point) float64 {
	var sum float64
	for i, p := range pts {
		q := pts[(i+1)%len(pts)]
		sum += p.X*q.Y - q.X*p.Y
	}
	return sum / 2
}

func TestTriangulateRegularPolygons(t *testing.T) {
	tests := []struct {
		name   string
		cx, cy float64
		r      float64
		grid   float64
	}{
		{"small snapped", 0, 0, 3, 0.005},
		{"large snapped", 0, 0, 50, 0.005},
		{"offset snapped", 120.5, 80.25, 10, 0.005},
		{"far away", 500, 700, 3, 0},
		{"exact", 0, 0, 1, 0},
	}
	sizes := []int{75, 100, 200, 255}
	for n := 16; n <= 256; n += 16 {
		sizes = append(sizes, n)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, n := range sizes {
				pts := regularPolygon(tt.cx, tt.cy, tt.r, n, tt.grid)
				res, err := Triangulate(pts, Ring(n))
				require.NoError(t, err, "%d-gon", n)
				assert.InDelta(t, shoelace(pts), area(res), 1e-6*tt.r*tt.r, "%d-gon", n)
				if tt.grid == 0 {
					assert.Len(t, res.Triangles, n-2, "%d-gon", n)
				}
			}
		})
	}
}

func TestTriangulateSplitsTouchingConstraint(t *testing.T) {
	// the notch from the top touches the bottom edge at (5, 0)
	points := []Point{{0, 0}, {10, 0}, {10, 10}, {6, 10}, {5, 0}, {4, 10}, {0, 10}}
	res, err := Triangulate(points, Ring(len(points)))
	require.NoError(t, err)

	assert.Len(t, res.Edges, 8)
	assert.Contains(t, res.Edges, Edge{0, 4})
	assert.Contains(t, res.Edges, Edge{4, 1})
	assert.NotContains(t, res.Edges, Edge{0, 1})
	assert.Equal(t, []int{0, 4, 1}, res.Path(0, 1))
	assert.Equal(t, []int{1, 4, 0}, res.Path(1, 0))
	assert.Equal(t, []int{1, 2}, res.Path(1, 2))

	assert.Len(t, res.Triangles, 4)
	assert.InDelta(t, 90, area(res), 1e-9)
	assertCounterClockwise(t, res)
}

func TestTriangulateOverlappingConstraints(t *testing.T) {
	// the last edge runs back along the first two
	points := []Point{{0, 0}, {5, 0}, {10, 0}, {10, 10}, {0, 10}}
	edges := append(Ring(len(points)), Edge{2, 0})
	res, err := Triangulate(points, edges)
	require.NoError(t, err)
	assert.Len(t, res.Edges, 5)
	assert.Equal(t, []int{2, 1, 0}, res.Path(2, 0))
	assert.InDelta(t, 100, area(res), 1e-9)
}
