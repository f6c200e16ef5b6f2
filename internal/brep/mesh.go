package brep

import (
	"math"

	"github.com/leefowlercu/aocxchange/internal/kernel"
)

// Triangle is a facet of a tessellated shape.
type Triangle struct {
	Normal   Vec3
	Vertices [3]Vec3
}

// Tessellate triangulates every face of s. Triangles keep the winding of
// their face.
func Tessellate(s Shape) []Triangle {
	var out []Triangle
	for _, f := range Explore(s, kernel.Face) {
		n := FaceNormal(f)
		for _, tri := range Triangulate(FacePoints(f)) {
			out = append(out, Triangle{Normal: n, Vertices: tri})
		}
	}
	return out
}

// Triangulate splits a simple planar polygon into triangles by ear clipping.
// The polygon is projected on the plane most perpendicular to its normal.
// If no ear can be found (self-intersecting input) the rest is fanned.
func Triangulate(pts []Vec3) [][3]Vec3 {
	pts = dedupeRing(pts)
	if len(pts) < 3 {
		return nil
	}
	if len(pts) == 3 {
		return [][3]Vec3{{pts[0], pts[1], pts[2]}}
	}

	n := Newell(pts)
	ax, ay := projectionAxes(n)
	p2 := make([][2]float64, len(pts))
	for i, p := range pts {
		c := [3]float64{p.X, p.Y, p.Z}
		p2[i] = [2]float64{c[ax], c[ay]}
	}
	sign := 1.0
	if signedArea(p2) < 0 {
		sign = -1
	}

	idx := make([]int, len(pts))
	for i := range idx {
		idx[i] = i
	}
	out := make([][3]Vec3, 0, len(pts)-2)
	for len(idx) > 3 {
		ear := -1
		for i := range idx {
			a, b, c := idx[(i+len(idx)-1)%len(idx)], idx[i], idx[(i+1)%len(idx)]
			if sign*cross2(p2[a], p2[b], p2[c]) <= 0 {
				continue
			}
			if containsAny(p2, idx, a, b, c, sign) {
				continue
			}
			ear = i
			break
		}
		if ear < 0 {
			break
		}
		a, b, c := idx[(ear+len(idx)-1)%len(idx)], idx[ear], idx[(ear+1)%len(idx)]
		out = append(out, [3]Vec3{pts[a], pts[b], pts[c]})
		idx = append(idx[:ear], idx[ear+1:]...)
	}
	for i := 1; i+1 < len(idx); i++ {
		out = append(out, [3]Vec3{pts[idx[0]], pts[idx[i]], pts[idx[i+1]]})
	}
	return out
}

func projectionAxes(n Vec3) (int, int) {
	x, y, z := math.Abs(n.X), math.Abs(n.Y), math.Abs(n.Z)
	switch {
	case z >= x && z >= y:
		return 0, 1
	case y >= x:
		return 2, 0
	default:
		return 1, 2
	}
}

func signedArea(p [][2]float64) float64 {
	var a float64
	for i := range p {
		j := (i + 1) % len(p)
		a += p[i][0]*p[j][1] - p[j][0]*p[i][1]
	}
	return a / 2
}

func cross2(a, b, c [2]float64) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

func containsAny(p [][2]float64, idx []int, a, b, c int, sign float64) bool {
	for _, i := range idx {
		if i == a || i == b || i == c {
			continue
		}
		if p[i] == p[a] || p[i] == p[b] || p[i] == p[c] {
			continue
		}
		if sign*cross2(p[a], p[b], p[i]) >= 0 &&
			sign*cross2(p[b], p[c], p[i]) >= 0 &&
			sign*cross2(p[c], p[a], p[i]) >= 0 {
			return true
		}
	}
	return false
}
