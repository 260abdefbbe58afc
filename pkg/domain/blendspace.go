package domain

import (
	"math"
	"sort"
)

// blendLayout is the per-tree data derived from child points whenever the
// children change, so weight queries never mutate the tree.
type blendLayout struct {
	// order holds child indices sorted along the blend axis
	// (coordinate for 1D, angle for angular and directional blends).
	order []int
	// origin is the directional child sitting at (0,0), or -1.
	origin int
	// simplices are triangles (4th index -1) or tetrahedra of a barycentric blend.
	simplices [][4]int
	// flat marks a 2D barycentric layout; the third coordinate is ignored.
	flat bool
}

// dvec is a float64 working vector for the geometric predicates.
type dvec [3]float64

func toD(v Vec3) dvec               { return dvec{float64(v[0]), float64(v[1]), float64(v[2])} }
func (a dvec) sub(b dvec) dvec      { return dvec{a[0] - b[0], a[1] - b[1], a[2] - b[2]} }
func (a dvec) add(b dvec) dvec      { return dvec{a[0] + b[0], a[1] + b[1], a[2] + b[2]} }
func (a dvec) scale(s float64) dvec { return dvec{a[0] * s, a[1] * s, a[2] * s} }
func (a dvec) dot(b dvec) float64   { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }
func (a dvec) cross(b dvec) dvec {
	return dvec{a[1]*b[2] - a[2]*b[1], a[2]*b[0] - a[0]*b[2], a[0]*b[1] - a[1]*b[0]}
}

// --- 1D ---

func prepareLinear(points []Vec3) blendLayout {
	order := make([]int, len(points))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return points[order[a]][0] < points[order[b]][0]
	})
	return blendLayout{order: order, origin: -1}
}

func weighLinear(points []Vec3, layout *blendLayout, query Vec3, out []float32) {
	order := layout.order
	switch len(order) {
	case 0:
		return
	case 1:
		out[order[0]] = 1
		return
	}

	x := query[0]
	first, last := order[0], order[len(order)-1]
	if x <= points[first][0] {
		out[first] = 1
		return
	}
	if x >= points[last][0] {
		out[last] = 1
		return
	}

	for k := 0; k < len(order)-1; k++ {
		a, b := order[k], order[k+1]
		xa, xb := points[a][0], points[b][0]
		if x < xa || x > xb {
			continue
		}
		if xb == xa {
			out[a] = 1
			return
		}
		t := (x - xa) / (xb - xa)
		out[a] = 1 - t
		out[b] = t
		return
	}
}

// --- Angle ---

func prepareAngle(points []Vec3) blendLayout {
	order := make([]int, len(points))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return WrapAngle(points[order[a]][0]) < WrapAngle(points[order[b]][0])
	})
	return blendLayout{order: order, origin: -1}
}

// angularBracket finds the two entries of ring (sorted by angle) surrounding
// angle on the circle and the interpolation factor between them.
func angularBracket(ring []int, angleOf func(int) float32, angle float32) (lower, upper int, t float32) {
	n := len(ring)
	if n == 1 {
		return ring[0], ring[0], 0
	}

	k := 0
	for k < n && angleOf(ring[k]) <= angle {
		k++
	}
	if k == 0 || k == n {
		lower, upper = ring[n-1], ring[0]
	} else {
		lower, upper = ring[k-1], ring[k]
	}

	span := WrapAngle(angleOf(upper) - angleOf(lower))
	if span == 0 {
		return lower, upper, 0
	}
	return lower, upper, clamp01(WrapAngle(angle-angleOf(lower)) / span)
}

func weighAngle(points []Vec3, layout *blendLayout, query Vec3, out []float32) {
	order := layout.order
	if len(order) == 0 {
		return
	}

	angleOf := func(i int) float32 { return WrapAngle(points[i][0]) }
	angle := WrapAngle(query[0])
	for _, i := range order {
		if angleOf(i) == angle {
			out[i] = 1
			return
		}
	}

	lower, upper, t := angularBracket(order, angleOf, angle)
	out[lower] += 1 - t
	out[upper] += t
}

// --- 2D directional ---

func prepareDirectional(points []Vec3) blendLayout {
	layout := blendLayout{origin: -1}
	for i, p := range points {
		if p.XY().IsZero() {
			if layout.origin < 0 {
				layout.origin = i
			}
			continue
		}
		layout.order = append(layout.order, i)
	}
	sort.SliceStable(layout.order, func(a, b int) bool {
		return points[layout.order[a]].XY().Angle() < points[layout.order[b]].XY().Angle()
	})
	return layout
}

// weighDirectional interpolates between the two children whose directions
// surround the query direction. When a child sits at the origin, the query's
// magnitude relative to the ring radius moves weight between the origin and
// the ring.
func weighDirectional(points []Vec3, layout *blendLayout, query Vec3, out []float32) {
	ring := layout.order
	origin := layout.origin

	p := query.XY()
	radius := p.Length()

	if len(ring) == 0 {
		if origin >= 0 {
			out[origin] = 1
		}
		return
	}
	if radius == 0 && origin >= 0 {
		out[origin] = 1
		return
	}

	angleOf := func(i int) float32 { return points[i].XY().Angle() }
	lower, upper, t := angularBracket(ring, angleOf, p.Angle())

	s := float32(1)
	if origin >= 0 {
		ringRadius := lerp(points[lower].XY().Length(), points[upper].XY().Length(), t)
		if ringRadius > 0 && radius < ringRadius {
			s = radius / ringRadius
		}
		out[origin] += 1 - s
	}
	out[lower] += (1 - t) * s
	out[upper] += t * s
}

// --- Barycentric ---

func extent(points []Vec3) float64 {
	var lo, hi dvec
	for i, p := range points {
		d := toD(p)
		if i == 0 {
			lo, hi = d, d
			continue
		}
		for k := 0; k < 3; k++ {
			lo[k] = math.Min(lo[k], d[k])
			hi[k] = math.Max(hi[k], d[k])
		}
	}
	e := hi.sub(lo)
	return math.Max(e[0], math.Max(e[1], math.Max(e[2], 1e-6)))
}

// prepareTriangles builds a Delaunay triangulation of the XY coordinates.
// Child counts are capped by MaxBlendTreeChildren, so the brute-force empty
// circumcircle test stays cheap.
func prepareTriangles(points []Vec3) blendLayout {
	n := len(points)
	pts := make([]dvec, n)
	for i, p := range points {
		pts[i] = dvec{float64(p[0]), float64(p[1]), 0}
	}
	scale := extent(points)
	minArea := 1e-9 * scale * scale

	layout := blendLayout{origin: -1, flat: true}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			for k := j + 1; k < n; k++ {
				u := pts[j].sub(pts[i])
				v := pts[k].sub(pts[i])
				cross := u[0]*v[1] - u[1]*v[0]
				if math.Abs(cross) < minArea {
					continue
				}
				uu, vv := u.dot(u), v.dot(v)
				center := pts[i].add(dvec{
					(v[1]*uu - u[1]*vv) / (2 * cross),
					(u[0]*vv - v[0]*uu) / (2 * cross),
					0,
				})
				r2 := center.sub(pts[i]).dot(center.sub(pts[i]))
				if emptySphere(pts, center, r2, i, j, k, -1) {
					layout.simplices = append(layout.simplices, [4]int{i, j, k, -1})
				}
			}
		}
	}
	return layout
}

// prepareTetrahedra builds a Delaunay tetrahedralization of the points.
func prepareTetrahedra(points []Vec3) blendLayout {
	n := len(points)
	pts := make([]dvec, n)
	for i, p := range points {
		pts[i] = toD(p)
	}
	scale := extent(points)
	minVolume := 1e-9 * scale * scale * scale

	layout := blendLayout{origin: -1}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			for k := j + 1; k < n; k++ {
				for l := k + 1; l < n; l++ {
					u := pts[j].sub(pts[i])
					v := pts[k].sub(pts[i])
					w := pts[l].sub(pts[i])
					det := u.dot(v.cross(w))
					if math.Abs(det) < minVolume {
						continue
					}
					rel := v.cross(w).scale(u.dot(u)).
						add(w.cross(u).scale(v.dot(v))).
						add(u.cross(v).scale(w.dot(w))).
						scale(1 / (2 * det))
					center := pts[i].add(rel)
					if emptySphere(pts, center, rel.dot(rel), i, j, k, l) {
						layout.simplices = append(layout.simplices, [4]int{i, j, k, l})
					}
				}
			}
		}
	}

	// Coplanar sets have no tetrahedra; fall back to triangles in 3D.
	if len(layout.simplices) == 0 {
		layout.simplices = allTriangles(pts, 1e-9*scale*scale)
	}
	return layout
}

func allTriangles(pts []dvec, minArea float64) [][4]int {
	var out [][4]int
	for i := 0; i < len(pts); i++ {
		for j := i + 1; j < len(pts); j++ {
			for k := j + 1; k < len(pts); k++ {
				c := pts[j].sub(pts[i]).cross(pts[k].sub(pts[i]))
				if math.Sqrt(c.dot(c)) >= minArea {
					out = append(out, [4]int{i, j, k, -1})
				}
			}
		}
	}
	return out
}

func emptySphere(pts []dvec, center dvec, r2 float64, skip ...int) bool {
	limit := r2 * (1 - 1e-7)
	for m, p := range pts {
		if containsInt(skip, m) {
			continue
		}
		d := p.sub(center)
		if d.dot(d) < limit {
			return false
		}
	}
	return true
}

func containsInt(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// weighSimplices assigns barycentric weights from the simplex containing the
// query. Outside every simplex, the closest point on the simplices is used,
// which clamps the query onto the hull.
func weighSimplices(points []Vec3, layout *blendLayout, query Vec3, out []float32) {
	n := len(points)
	switch n {
	case 0:
		return
	case 1:
		out[0] = 1
		return
	}

	if layout.flat {
		flat := make([]Vec3, n)
		for i, pt := range points {
			flat[i] = Vec3{pt[0], pt[1], 0}
		}
		points = flat
		query[2] = 0
	}
	p := toD(query)

	if len(layout.simplices) == 0 {
		weighSegments(points, p, out)
		return
	}

	bestDist := math.Inf(1)
	var bestIdx [4]int
	var bestW [4]float64

	for _, s := range layout.simplices {
		if s[3] >= 0 {
			if w, ok := tetraWeights(points, s, p); ok {
				assign(out, s, w)
				return
			}
			for _, face := range [4][3]int{{0, 1, 2}, {0, 1, 3}, {0, 2, 3}, {1, 2, 3}} {
				tri := [4]int{s[face[0]], s[face[1]], s[face[2]], -1}
				w, d := closestOnTriangle(points, tri, p)
				if d < bestDist {
					bestDist, bestIdx, bestW = d, tri, w
				}
			}
			continue
		}

		w, d := closestOnTriangle(points, s, p)
		if d < 1e-12 {
			assign(out, s, w)
			return
		}
		if d < bestDist {
			bestDist, bestIdx, bestW = d, s, w
		}
	}

	assign(out, bestIdx, bestW)
}

func assign(out []float32, idx [4]int, w [4]float64) {
	sum := 0.0
	for k := 0; k < 4; k++ {
		if idx[k] >= 0 {
			w[k] = math.Max(w[k], 0)
			sum += w[k]
		}
	}
	if sum == 0 {
		return
	}
	for k := 0; k < 4; k++ {
		if idx[k] >= 0 {
			out[idx[k]] += float32(w[k] / sum)
		}
	}
}

func tetraWeights(points []Vec3, s [4]int, p dvec) ([4]float64, bool) {
	a, b, c, d := toD(points[s[0]]), toD(points[s[1]]), toD(points[s[2]]), toD(points[s[3]])
	vol := func(p0, p1, p2, p3 dvec) float64 {
		return p1.sub(p0).dot(p2.sub(p0).cross(p3.sub(p0)))
	}
	total := vol(a, b, c, d)
	if total == 0 {
		return [4]float64{}, false
	}
	w := [4]float64{
		vol(p, b, c, d) / total,
		vol(a, p, c, d) / total,
		vol(a, b, p, d) / total,
		vol(a, b, c, p) / total,
	}
	const eps = -1e-6
	for _, x := range w {
		if x < eps {
			return w, false
		}
	}
	return w, true
}

// closestOnTriangle returns the barycentric weights of the point of triangle
// s closest to p, and the squared distance to it.
func closestOnTriangle(points []Vec3, s [4]int, p dvec) ([4]float64, float64) {
	a, b, c := toD(points[s[0]]), toD(points[s[1]]), toD(points[s[2]])
	u, v, w := closestBarycentric(a, b, c, p)
	q := a.scale(u).add(b.scale(v)).add(c.scale(w))
	d := q.sub(p)
	return [4]float64{u, v, w, 0}, d.dot(d)
}

// closestBarycentric finds the closest point of triangle abc to p by Voronoi
// region classification and returns its barycentric coordinates.
func closestBarycentric(a, b, c, p dvec) (float64, float64, float64) {
	ab := b.sub(a)
	ac := c.sub(a)
	ap := p.sub(a)
	d1 := ab.dot(ap)
	d2 := ac.dot(ap)
	if d1 <= 0 && d2 <= 0 {
		return 1, 0, 0
	}

	bp := p.sub(b)
	d3 := ab.dot(bp)
	d4 := ac.dot(bp)
	if d3 >= 0 && d4 <= d3 {
		return 0, 1, 0
	}

	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		v := d1 / (d1 - d3)
		return 1 - v, v, 0
	}

	cp := p.sub(c)
	d5 := ab.dot(cp)
	d6 := ac.dot(cp)
	if d6 >= 0 && d5 <= d6 {
		return 0, 0, 1
	}

	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		w := d2 / (d2 - d6)
		return 1 - w, 0, w
	}

	va := d3*d6 - d5*d4
	if va <= 0 && (d4-d3) >= 0 && (d5-d6) >= 0 {
		w := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		return 0, 1 - w, w
	}

	denom := 1 / (va + vb + vc)
	v := vb * denom
	w := vc * denom
	return 1 - v - w, v, w
}

// weighSegments handles collinear point sets: the closest point on any
// segment between two children decides the weights.
func weighSegments(points []Vec3, p dvec, out []float32) {
	bestDist := math.Inf(1)
	bestA, bestB := 0, -1
	var bestT float64

	for i := 0; i < len(points); i++ {
		for j := i + 1; j < len(points); j++ {
			a, b := toD(points[i]), toD(points[j])
			ab := b.sub(a)
			l := ab.dot(ab)
			t := 0.0
			if l > 0 {
				t = math.Max(0, math.Min(1, p.sub(a).dot(ab)/l))
			}
			q := a.add(ab.scale(t))
			d := q.sub(p).dot(q.sub(p))
			if d < bestDist {
				bestDist, bestA, bestB, bestT = d, i, j, t
			}
		}
	}

	if bestB < 0 {
		out[bestA] = 1
		return
	}
	out[bestA] += float32(1 - bestT)
	out[bestB] += float32(bestT)
}
