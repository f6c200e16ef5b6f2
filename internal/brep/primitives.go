package brep

import (
	"fmt"
	"math"
)

// DefaultSegments is the facet count used for curved primitives when the
// caller passes fewer than 3.
const DefaultSegments = 32

// MakeBox returns a solid box with one corner at the origin and extents
// dx, dy, dz. Faces are wound counter-clockwise seen from outside.
func MakeBox(dx, dy, dz float64) (Shape, error) {
	if dx <= 0 || dy <= 0 || dz <= 0 {
		return Null, fmt.Errorf("box %gx%gx%g; %w", dx, dy, dz, ErrInvalidPrimDim)
	}
	p := func(x, y, z float64) Vec3 { return Vec3{x * dx, y * dy, z * dz} }
	faces := [][]Vec3{
		{p(0, 0, 0), p(0, 1, 0), p(1, 1, 0), p(1, 0, 0)},
		{p(0, 0, 1), p(1, 0, 1), p(1, 1, 1), p(0, 1, 1)},
		{p(0, 0, 0), p(1, 0, 0), p(1, 0, 1), p(0, 0, 1)},
		{p(0, 1, 0), p(0, 1, 1), p(1, 1, 1), p(1, 1, 0)},
		{p(0, 0, 0), p(0, 0, 1), p(0, 1, 1), p(0, 1, 0)},
		{p(1, 0, 0), p(1, 1, 0), p(1, 1, 1), p(1, 0, 1)},
	}
	return sewSolid(faces, minf(dx, dy, dz))
}

// MakeCylinder returns a faceted cylinder of radius r and height h standing
// on the XY plane, with its axis along Z.
func MakeCylinder(r, h float64, segments int) (Shape, error) {
	if r <= 0 || h <= 0 {
		return Null, fmt.Errorf("cylinder r=%g h=%g; %w", r, h, ErrInvalidPrimDim)
	}
	if segments < 3 {
		segments = DefaultSegments
	}
	bottom := make([]Vec3, segments)
	top := make([]Vec3, segments)
	for i := range segments {
		a := 2 * math.Pi * float64(i) / float64(segments)
		x, y := r*math.Cos(a), r*math.Sin(a)
		bottom[i] = Vec3{x, y, 0}
		top[i] = Vec3{x, y, h}
	}
	faces := make([][]Vec3, 0, segments+2)
	rev := make([]Vec3, segments)
	for i := range bottom {
		rev[i] = bottom[segments-1-i]
	}
	faces = append(faces, rev, top)
	for i := range segments {
		j := (i + 1) % segments
		faces = append(faces, []Vec3{bottom[i], bottom[j], top[j], top[i]})
	}
	return sewSolid(faces, minf(r, h))
}

// MakeSphere returns a faceted UV sphere of radius r centred on the origin.
// segments is the number of meridians; there are half as many parallels.
func MakeSphere(r float64, segments int) (Shape, error) {
	if r <= 0 {
		return Null, fmt.Errorf("sphere r=%g; %w", r, ErrInvalidPrimDim)
	}
	if segments < 3 {
		segments = DefaultSegments
	}
	stacks := max(2, segments/2)
	north, south := Vec3{0, 0, r}, Vec3{0, 0, -r}
	ring := make([][]Vec3, stacks-1)
	for k := range ring {
		phi := math.Pi * float64(k+1) / float64(stacks)
		ring[k] = make([]Vec3, segments)
		for j := range segments {
			theta := 2 * math.Pi * float64(j) / float64(segments)
			ring[k][j] = Vec3{
				r * math.Sin(phi) * math.Cos(theta),
				r * math.Sin(phi) * math.Sin(theta),
				r * math.Cos(phi),
			}
		}
	}
	var faces [][]Vec3
	last := len(ring) - 1
	for j := range segments {
		n := (j + 1) % segments
		faces = append(faces, []Vec3{north, ring[0][j], ring[0][n]})
		for k := 0; k < last; k++ {
			faces = append(faces, []Vec3{ring[k][j], ring[k+1][j], ring[k+1][n], ring[k][n]})
		}
		faces = append(faces, []Vec3{south, ring[last][n], ring[last][j]})
	}
	return sewSolid(faces, r)
}

func sewSolid(faces [][]Vec3, scale float64) (Shape, error) {
	sw := NewSewer(scale * 1e-9)
	for _, f := range faces {
		if _, err := sw.AddFace(f...); err != nil {
			return Null, err
		}
	}
	shell, err := sw.Shell()
	if err != nil {
		return Null, err
	}
	return MakeSolid(shell)
}

func minf(v ...float64) float64 {
	m := v[0]
	for _, x := range v[1:] {
		m = math.Min(m, x)
	}
	return m
}
