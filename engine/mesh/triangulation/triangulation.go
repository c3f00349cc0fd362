package triangulation

import (
	"errors"
	"math"
	"sort"
)

var (
	ErrTooFewPoints            = errors.New("triangulation needs at least 3 distinct points")
	ErrIntersectingConstraints = errors.New("constraint edges intersect")
	ErrDegenerate              = errors.New("degenerate triangulation input")
)

// Point is a 2D input vertex.
type Point struct {
	X, Y float64
}

// Edge is a constraint between two point indices.
type Edge [2]int

// Triangle holds three vertex indices in counter-clockwise order.
type Triangle [3]int

// Result is a constrained Delaunay triangulation of the interior of the
// constraint loops. Indices in Triangles and Edges refer to Vertices.
type Result struct {
	// Vertices are the input points with duplicates removed, first
	// occurrence kept, in input order.
	Vertices []Point
	// Mapping maps every input index to its index in Vertices.
	Mapping []int
	// Duplicates lists the input indices that were merged into an earlier
	// point.
	Duplicates []int
	// Triangles covers the area enclosed by the constraints. Exterior
	// triangles and triangles inside holes are erased.
	Triangles []Triangle
	// Edges are the constraint edges remapped to Vertices and split at the
	// vertices they pass through, without repeats or zero-length edges.
	Edges []Edge

	// splits holds, per remapped input edge, the vertices strictly inside
	// it ordered from its first to its second end.
	splits map[Edge][]int
}

// Ring returns the edges of a closed loop over n points: i -> i+1 and the
// closing edge n-1 -> 0.
func Ring(n int) []Edge {
	if n < 2 {
		return nil
	}
	edges := make([]Edge, n)
	for i := 0; i < n; i++ {
		edges[i] = Edge{i, (i + 1) % n}
	}
	return edges
}

// Triangulate computes the constrained Delaunay triangulation of points
// with edges as constraints and keeps only the triangles enclosed an odd
// number of times by the constraint loops. A constraint that passes through
// another vertex is split there, so rings may touch themselves.
func Triangulate(points []Point, edges []Edge) (*Result, error) {
	res := &Result{Mapping: make([]int, len(points))}

	seen := make(map[Point]int, len(points))
	for i, p := range points {
		if j, ok := seen[p]; ok {
			res.Mapping[i] = j
			res.Duplicates = append(res.Duplicates, i)
			continue
		}
		seen[p] = len(res.Vertices)
		res.Mapping[i] = len(res.Vertices)
		res.Vertices = append(res.Vertices, p)
	}
	if len(res.Vertices) < 3 {
		return nil, ErrTooFewPoints
	}

	var remapped []Edge
	unique := make(map[Edge]bool, len(edges))
	for _, e := range edges {
		if e[0] < 0 || e[0] >= len(points) || e[1] < 0 || e[1] >= len(points) {
			return nil, ErrDegenerate
		}
		a, b := res.Mapping[e[0]], res.Mapping[e[1]]
		if a == b {
			continue
		}
		key := undirected(a, b)
		if unique[key] {
			continue
		}
		unique[key] = true
		remapped = append(remapped, Edge{a, b})
	}

	t := newTriangulator(res.Vertices)
	res.Edges, res.splits = t.splitConstraints(remapped)
	t.constraints = make(map[Edge]bool, len(res.Edges))
	for _, e := range res.Edges {
		t.constraints[undirected(e[0], e[1])] = true
	}
	if err := t.validate(res.Edges); err != nil {
		return nil, err
	}
	for v := 0; v < t.n; v++ {
		if err := t.insertVertex(v); err != nil {
			return nil, err
		}
	}
	for _, e := range res.Edges {
		if err := t.insertConstraint(e[0], e[1]); err != nil {
			return nil, err
		}
	}
	t.legalize()
	res.Triangles = t.interior()
	if len(res.Triangles) == 0 {
		return nil, ErrDegenerate
	}
	return res, nil
}

// Path returns the vertices along the constraint a-b, from a to b
// inclusive. It lists more than the two ends when the constraint was split
// at vertices lying on it.
func (r *Result) Path(a, b int) []int {
	if mid, ok := r.splits[Edge{a, b}]; ok {
		out := make([]int, 0, len(mid)+2)
		out = append(out, a)
		out = append(out, mid...)
		return append(out, b)
	}
	if mid, ok := r.splits[Edge{b, a}]; ok {
		out := make([]int, 0, len(mid)+2)
		out = append(out, a)
		for i := len(mid) - 1; i >= 0; i-- {
			out = append(out, mid[i])
		}
		return append(out, b)
	}
	return []int{a, b}
}

func undirected(a, b int) Edge {
	if a > b {
		a, b = b, a
	}
	return Edge{a, b}
}

type triangulator struct {
	// pts are the vertices centred on their bounding box followed by the
	// three vertices of the enclosing super triangle.
	pts         []Point
	n           int
	tris        []Triangle
	alive       []bool
	owner       map[Edge]int
	constraints map[Edge]bool
	eps         float64
	// last is the most recently created triangle, where point location
	// starts walking.
	last int
}

func newTriangulator(vertices []Point) *triangulator {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range vertices {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	cx, cy := (minX+maxX)/2, (minY+maxY)/2
	size := math.Max(maxX-minX, maxY-minY)
	if size == 0 {
		size = 1
	}

	t := &triangulator{
		pts:   make([]Point, 0, len(vertices)+3),
		n:     len(vertices),
		owner: make(map[Edge]int, len(vertices)*6),
		eps:   1e-12 * size * size * size * size,
	}
	for _, p := range vertices {
		t.pts = append(t.pts, Point{p.X - cx, p.Y - cy})
	}
	t.pts = append(t.pts,
		Point{-20 * size, -10 * size},
		Point{20 * size, -10 * size},
		Point{0, 20 * size},
	)
	t.add(Triangle{t.n, t.n + 1, t.n + 2})
	return t
}

func (t *triangulator) isSuper(v int) bool {
	return v >= t.n
}

func (t *triangulator) add(tri Triangle) int {
	t.tris = append(t.tris, tri)
	t.alive = append(t.alive, true)
	idx := len(t.tris) - 1
	t.link(idx)
	return idx
}

func (t *triangulator) link(idx int) {
	tri := t.tris[idx]
	for i := 0; i < 3; i++ {
		t.owner[Edge{tri[i], tri[(i+1)%3]}] = idx
	}
}

func (t *triangulator) unlink(idx int) {
	tri := t.tris[idx]
	for i := 0; i < 3; i++ {
		e := Edge{tri[i], tri[(i+1)%3]}
		if t.owner[e] == idx {
			delete(t.owner, e)
		}
	}
}

func (t *triangulator) remove(idx int) {
	t.unlink(idx)
	t.alive[idx] = false
}

// splitConstraints cuts every edge at the vertices lying strictly inside
// it and returns the resulting sub-edges without repeats, along with the
// inner vertices of each edge that was cut.
func (t *triangulator) splitConstraints(edges []Edge) ([]Edge, map[Edge][]int) {
	var out []Edge
	splits := make(map[Edge][]int)
	seen := make(map[Edge]bool, len(edges))
	for _, e := range edges {
		a, b := t.pts[e[0]], t.pts[e[1]]
		minX, maxX := math.Min(a.X, b.X), math.Max(a.X, b.X)
		minY, maxY := math.Min(a.Y, b.Y), math.Max(a.Y, b.Y)

		var inner []int
		for v := 0; v < t.n; v++ {
			p := t.pts[v]
			if p.X < minX || p.X > maxX || p.Y < minY || p.Y > maxY {
				continue
			}
			if t.onSegment(v, e[0], e[1]) {
				inner = append(inner, v)
			}
		}
		chain := []int{e[0], e[1]}
		if len(inner) > 0 {
			dx, dy := b.X-a.X, b.Y-a.Y
			param := func(v int) float64 {
				return (t.pts[v].X-a.X)*dx + (t.pts[v].Y-a.Y)*dy
			}
			sort.Slice(inner, func(i, j int) bool { return param(inner[i]) < param(inner[j]) })
			splits[e] = inner
			chain = make([]int, 0, len(inner)+2)
			chain = append(chain, e[0])
			chain = append(chain, inner...)
			chain = append(chain, e[1])
		}
		for i := 0; i+1 < len(chain); i++ {
			key := undirected(chain[i], chain[i+1])
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, Edge{chain[i], chain[i+1]})
		}
	}
	return out, splits
}

// validate rejects constraints that cross each other.
func (t *triangulator) validate(edges []Edge) error {
	type span struct {
		e          Edge
		minX, maxX float64
		minY, maxY float64
	}
	spans := make([]span, len(edges))
	for i, e := range edges {
		a, b := t.pts[e[0]], t.pts[e[1]]
		spans[i] = span{
			e:    e,
			minX: math.Min(a.X, b.X), maxX: math.Max(a.X, b.X),
			minY: math.Min(a.Y, b.Y), maxY: math.Max(a.Y, b.Y),
		}
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].minX < spans[j].minX })

	for i := range spans {
		si := spans[i]
		for j := i + 1; j < len(spans) && spans[j].minX <= si.maxX; j++ {
			sj := spans[j]
			if sj.minY > si.maxY || sj.maxY < si.minY {
				continue
			}
			if t.crosses(si.e[0], si.e[1], sj.e[0], sj.e[1]) {
				return ErrIntersectingConstraints
			}
		}
	}
	return nil
}

// insertVertex adds v to the triangulation: the triangle containing it is
// split in three, or the two triangles sharing the edge it lies on are
// split in four, and the new triangles are made locally Delaunay by
// flipping.
func (t *triangulator) insertVertex(v int) error {
	idx, ok := t.locate(v)
	if !ok {
		return ErrDegenerate
	}
	tri := t.tris[idx]
	on, zeros := -1, 0
	for i := 0; i < 3; i++ {
		if t.orient(tri[i], tri[(i+1)%3], v) == 0 {
			on = i
			zeros++
		}
	}

	var outer []Edge
	switch zeros {
	case 0:
		a, b, c := tri[0], tri[1], tri[2]
		t.remove(idx)
		t.add(Triangle{a, b, v})
		t.add(Triangle{b, c, v})
		t.last = t.add(Triangle{c, a, v})
		outer = []Edge{{a, b}, {b, c}, {c, a}}
	case 1:
		a, b, c := tri[on], tri[(on+1)%3], tri[(on+2)%3]
		nb, ok := t.owner[Edge{b, a}]
		if !ok {
			return ErrDegenerate
		}
		d := third(t.tris[nb], a, b)
		t.remove(idx)
		t.remove(nb)
		t.add(Triangle{a, v, c})
		t.add(Triangle{v, b, c})
		t.add(Triangle{b, v, d})
		t.last = t.add(Triangle{v, a, d})
		outer = []Edge{{b, c}, {c, a}, {a, d}, {d, b}}
	default:
		// v coincides with a vertex of tri
		return ErrDegenerate
	}
	t.legalizeAround(v, outer)
	return nil
}

// locate returns a triangle that contains v, inside or on its boundary. It
// walks from the last created triangle towards v and scans every triangle
// when the walk does not settle.
func (t *triangulator) locate(v int) (int, bool) {
	idx := t.last
	if idx < len(t.alive) && t.alive[idx] {
	walk:
		for steps := 0; steps < len(t.tris); steps++ {
			tri := t.tris[idx]
			for k := 0; k < 3; k++ {
				i := (k + steps) % 3
				a, b := tri[i], tri[(i+1)%3]
				if t.orient(a, b, v) < 0 {
					nb, ok := t.owner[Edge{b, a}]
					if !ok {
						break walk
					}
					idx = nb
					continue walk
				}
			}
			return idx, true
		}
	}

	for idx, tri := range t.tris {
		if !t.alive[idx] {
			continue
		}
		if t.orient(tri[0], tri[1], v) >= 0 && t.orient(tri[1], tri[2], v) >= 0 && t.orient(tri[2], tri[0], v) >= 0 {
			return idx, true
		}
	}
	return -1, false
}

// legalizeAround restores the Delaunay property after v was inserted. Each
// edge in edges has the triangle holding v on its left.
func (t *triangulator) legalizeAround(v int, edges []Edge) {
	stack := append([]Edge(nil), edges...)
	limit := 4*len(t.tris) + 64
	for flips := 0; len(stack) > 0 && flips < limit; {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		u, w := e[0], e[1]

		left, ok := t.owner[Edge{u, w}]
		if !ok || third(t.tris[left], u, w) != v {
			continue
		}
		right, ok := t.owner[Edge{w, u}]
		if !ok {
			continue
		}
		opp := third(t.tris[right], u, w)
		if t.inCircle(Triangle{u, w, v}, opp) <= t.eps || !t.crosses(u, w, v, opp) {
			continue
		}
		flips++
		t.flip(u, w, v, opp)
		stack = append(stack, Edge{u, opp}, Edge{opp, w})
	}
}

// insertConstraint forces the edge a-b into the triangulation by flipping
// the edges that cross it.
func (t *triangulator) insertConstraint(a, b int) error {
	if t.hasEdge(a, b) {
		return nil
	}

	var queue []Edge
	for idx, tri := range t.tris {
		if !t.alive[idx] {
			continue
		}
		for i := 0; i < 3; i++ {
			u, v := tri[i], tri[(i+1)%3]
			if u > v {
				if _, ok := t.owner[Edge{v, u}]; ok {
					continue
				}
			}
			if t.crosses(a, b, u, v) {
				queue = append(queue, Edge{u, v})
			}
		}
	}

	limit := 64 * (len(queue) + 1) * (len(queue) + 1)
	for steps := 0; len(queue) > 0; steps++ {
		if steps > limit {
			return ErrDegenerate
		}
		e := queue[0]
		queue = queue[1:]

		w1, w2, ok := t.quad(e[0], e[1])
		if !ok {
			return ErrDegenerate
		}
		if !t.crosses(e[0], e[1], w1, w2) {
			queue = append(queue, e)
			continue
		}
		t.flip(e[0], e[1], w1, w2)
		if t.crosses(a, b, w1, w2) {
			queue = append(queue, Edge{w1, w2})
		}
	}
	if !t.hasEdge(a, b) {
		return ErrIntersectingConstraints
	}
	return nil
}

// legalize flips non-constraint edges until every one of them is locally
// Delaunay, up to a bounded number of flips.
func (t *triangulator) legalize() {
	var stack []Edge
	for idx, tri := range t.tris {
		if !t.alive[idx] {
			continue
		}
		for i := 0; i < 3; i++ {
			if u, v := tri[i], tri[(i+1)%3]; u < v {
				stack = append(stack, Edge{u, v})
			}
		}
	}

	limit := 4*t.n*t.n + 64
	for flips := 0; len(stack) > 0; {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		u, v := e[0], e[1]
		if t.constraints[undirected(u, v)] || t.isSuper(u) || t.isSuper(v) {
			continue
		}
		w1, w2, ok := t.quad(u, v)
		if !ok || t.isSuper(w1) || t.isSuper(w2) {
			continue
		}
		if t.inCircle(t.tris[t.owner[Edge{u, v}]], w2) <= t.eps || !t.crosses(u, v, w1, w2) {
			continue
		}
		if flips++; flips > limit {
			return
		}
		t.flip(u, v, w1, w2)
		stack = append(stack, Edge{u, w2}, Edge{w2, v}, Edge{v, w1}, Edge{w1, u})
	}
}

// quad returns the vertices opposite to u-v in the triangle left of u->v
// (w1) and the one right of it (w2).
func (t *triangulator) quad(u, v int) (w1, w2 int, ok bool) {
	t1, ok1 := t.owner[Edge{u, v}]
	t2, ok2 := t.owner[Edge{v, u}]
	if !ok1 || !ok2 {
		return 0, 0, false
	}
	return third(t.tris[t1], u, v), third(t.tris[t2], u, v), true
}

// flip replaces u-v by w1-w2 in the two triangles sharing it.
func (t *triangulator) flip(u, v, w1, w2 int) {
	t1 := t.owner[Edge{u, v}]
	t2 := t.owner[Edge{v, u}]
	t.unlink(t1)
	t.unlink(t2)
	t.tris[t1] = Triangle{u, w2, w1}
	t.tris[t2] = Triangle{w2, v, w1}
	t.link(t1)
	t.link(t2)
}

func (t *triangulator) hasEdge(a, b int) bool {
	if _, ok := t.owner[Edge{a, b}]; ok {
		return true
	}
	_, ok := t.owner[Edge{b, a}]
	return ok
}

func third(tri Triangle, u, v int) int {
	for _, w := range tri {
		if w != u && w != v {
			return w
		}
	}
	return -1
}

// interior flood fills from the super triangle and counts how many
// constraint edges are crossed to reach each triangle. Odd depths are
// inside the loops.
func (t *triangulator) interior() []Triangle {
	depth := make([]int, len(t.tris))
	for i := range depth {
		depth[i] = -1
	}
	seed := -1
	for idx, tri := range t.tris {
		if t.alive[idx] && (t.isSuper(tri[0]) || t.isSuper(tri[1]) || t.isSuper(tri[2])) {
			seed = idx
			break
		}
	}
	if seed < 0 {
		return nil
	}

	level := []int{seed}
	depth[seed] = 0
	for d := 0; len(level) > 0; d++ {
		var crossed []int
		for len(level) > 0 {
			idx := level[len(level)-1]
			level = level[:len(level)-1]
			tri := t.tris[idx]
			for i := 0; i < 3; i++ {
				u, v := tri[i], tri[(i+1)%3]
				nb, ok := t.owner[Edge{v, u}]
				if !ok || depth[nb] >= 0 {
					continue
				}
				if t.constraints[undirected(u, v)] {
					crossed = append(crossed, nb)
					continue
				}
				depth[nb] = d
				level = append(level, nb)
			}
		}
		for _, idx := range crossed {
			if depth[idx] < 0 {
				depth[idx] = d + 1
				level = append(level, idx)
			}
		}
	}

	var out []Triangle
	for idx, tri := range t.tris {
		if t.alive[idx] && depth[idx]%2 == 1 {
			out = append(out, tri)
		}
	}
	return out
}

// orient is positive when a, b, c turn counter-clockwise. The vertices are
// put in index order before evaluating so that every permutation of the
// same three vertices yields the same magnitude with the matching sign.
func (t *triangulator) orient(a, b, c int) float64 {
	sign := 1.0
	if a > b {
		a, b = b, a
		sign = -sign
	}
	if b > c {
		b, c = c, b
		sign = -sign
	}
	if a > b {
		a, b = b, a
		sign = -sign
	}
	pa, pb, pc := t.pts[a], t.pts[b], t.pts[c]
	return sign * ((pb.X-pa.X)*(pc.Y-pa.Y) - (pb.Y-pa.Y)*(pc.X-pa.X))
}

// inCircle is positive when d lies inside the circumcircle of the
// counter-clockwise triangle tri.
func (t *triangulator) inCircle(tri Triangle, d int) float64 {
	pa, pb, pc, pd := t.pts[tri[0]], t.pts[tri[1]], t.pts[tri[2]], t.pts[d]
	adx, ady := pa.X-pd.X, pa.Y-pd.Y
	bdx, bdy := pb.X-pd.X, pb.Y-pd.Y
	cdx, cdy := pc.X-pd.X, pc.Y-pd.Y
	return (adx*adx+ady*ady)*(bdx*cdy-cdx*bdy) -
		(bdx*bdx+bdy*bdy)*(adx*cdy-cdx*ady) +
		(cdx*cdx+cdy*cdy)*(adx*bdy-bdx*ady)
}

// crosses reports whether segments a-b and c-d cross at a point interior
// to both.
func (t *triangulator) crosses(a, b, c, d int) bool {
	if a == c || a == d || b == c || b == d {
		return false
	}
	o1, o2 := t.orient(a, b, c), t.orient(a, b, d)
	o3, o4 := t.orient(c, d, a), t.orient(c, d, b)
	return ((o1 > 0 && o2 < 0) || (o1 < 0 && o2 > 0)) &&
		((o3 > 0 && o4 < 0) || (o3 < 0 && o4 > 0))
}

// onSegment reports whether vertex v lies strictly between a and b.
func (t *triangulator) onSegment(v, a, b int) bool {
	if v == a || v == b || t.orient(a, b, v) != 0 {
		return false
	}
	pa, pb, pv := t.pts[a], t.pts[b], t.pts[v]
	dot := (pv.X-pa.X)*(pb.X-pa.X) + (pv.Y-pa.Y)*(pb.Y-pa.Y)
	lenSq := (pb.X-pa.X)*(pb.X-pa.X) + (pb.Y-pa.Y)*(pb.Y-pa.Y)
	return dot > 0 && dot < lenSq
}
