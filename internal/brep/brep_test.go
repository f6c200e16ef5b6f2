package brep

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leefowlercu/aocxchange/internal/kernel"
)

func TestMakeBox_Topology(t *testing.T) {
	box, err := MakeBox(10, 20, 30)
	require.NoError(t, err)

	assert.Equal(t, kernel.Solid, box.Type())
	assert.Len(t, Explore(box, kernel.Shell), 1)
	assert.Len(t, Explore(box, kernel.Face), 6)
	assert.Len(t, Explore(box, kernel.Edge), 24)
	assert.Equal(t, 12, Count(box, kernel.Edge))
	assert.Equal(t, 8, Count(box, kernel.Vertex))

	shell := Explore(box, kernel.Shell)[0]
	assert.True(t, IsClosedShell(shell))

	b := Bounds(box)
	assert.Equal(t, V(0, 0, 0), b.Min)
	assert.Equal(t, V(10, 20, 30), b.Max)
}

func TestMakeBox_OutwardNormals(t *testing.T) {
	box, err := MakeBox(1, 1, 1)
	require.NoError(t, err)

	centre := V(0.5, 0.5, 0.5)
	for i, f := range Explore(box, kernel.Face) {
		pts := FacePoints(f)
		require.Len(t, pts, 4)
		n := FaceNormal(f)
		assert.Greater(t, n.Dot(pts[0].Sub(centre)), 0.0, "face %d points inward", i)
	}
}

func TestMakeBox_InvalidDimensions(t *testing.T) {
	_, err := MakeBox(0, 1, 1)
	assert.ErrorIs(t, err, ErrInvalidPrimDim)
}

func TestMakeCylinder(t *testing.T) {
	cyl, err := MakeCylinder(40, 80, 16)
	require.NoError(t, err)

	assert.Len(t, Explore(cyl, kernel.Face), 18)
	assert.Equal(t, 32, Count(cyl, kernel.Vertex))
	assert.True(t, IsClosedShell(Explore(cyl, kernel.Shell)[0]))

	b := Bounds(cyl)
	assert.InDelta(t, -40, b.Min.X, 1e-9)
	assert.InDelta(t, 80, b.Max.Z, 1e-9)
}

func TestMakeSphere(t *testing.T) {
	sph, err := MakeSphere(5, 12)
	require.NoError(t, err)

	shell := Explore(sph, kernel.Shell)[0]
	assert.True(t, IsClosedShell(shell))
	// 12 meridians, 6 stacks: two caps of triangles and four bands of quads.
	assert.Len(t, Explore(sph, kernel.Face), 12*6)
	assert.Equal(t, 2+12*5, Count(sph, kernel.Vertex))

	for _, v := range Unique(Explore(sph, kernel.Vertex)) {
		assert.InDelta(t, 5, v.Point().Len(), 1e-9)
	}
}

func TestShape_NullAndOrientation(t *testing.T) {
	assert.True(t, Null.IsNull())
	assert.False(t, Null.Type().Valid())

	v1, v2 := MakeVertex(V(0, 0, 0)), MakeVertex(V(1, 0, 0))
	e, err := MakeEdge(v1, v2)
	require.NoError(t, err)

	first, last := EdgeVertices(e)
	assert.True(t, first.Same(v1))
	assert.True(t, last.Same(v2))

	first, last = EdgeVertices(e.Reversed())
	assert.True(t, first.Same(v2))
	assert.True(t, last.Same(v1))
	assert.True(t, e.Same(e.Reversed()))
	assert.False(t, e.Equal(e.Reversed()))
}

func TestMakeEdge_Degenerate(t *testing.T) {
	_, err := MakeEdge(MakeVertex(V(1, 1, 1)), MakeVertex(V(1, 1, 1)))
	assert.ErrorIs(t, err, ErrDegenerate)
}

func TestMakeWire_NotConnected(t *testing.T) {
	e1, err := MakeEdge(MakeVertex(V(0, 0, 0)), MakeVertex(V(1, 0, 0)))
	require.NoError(t, err)
	e2, err := MakeEdge(MakeVertex(V(5, 0, 0)), MakeVertex(V(6, 0, 0)))
	require.NoError(t, err)

	_, err = MakeWire(e1, e2)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestMakeFace(t *testing.T) {
	tests := []struct {
		name    string
		pts     []Vec3
		wantErr error
	}{
		{
			name: "square",
			pts:  []Vec3{V(0, 0, 0), V(1, 0, 0), V(1, 1, 0), V(0, 1, 0)},
		},
		{
			name:    "skew quad",
			pts:     []Vec3{V(0, 0, 0), V(1, 0, 0), V(1, 1, 1), V(0, 1, 0)},
			wantErr: ErrNotPlanar,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := MakePolygon(tt.pts...)
			require.NoError(t, err)
			f, err := MakeFace(w)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, kernel.Face, f.Type())
			assert.InDelta(t, 1, FaceNormal(f).Z, 1e-12)
		})
	}
}

func TestMakeFace_OpenWire(t *testing.T) {
	a, b, c := MakeVertex(V(0, 0, 0)), MakeVertex(V(1, 0, 0)), MakeVertex(V(1, 1, 0))
	e1, err := MakeEdge(a, b)
	require.NoError(t, err)
	e2, err := MakeEdge(b, c)
	require.NoError(t, err)
	w, err := MakeWire(e1, e2)
	require.NoError(t, err)

	_, err = MakeFace(w)
	assert.ErrorIs(t, err, ErrNotClosed)
}

func TestMakePolygon_TooFewPoints(t *testing.T) {
	_, err := MakePolygon(V(0, 0, 0), V(1, 0, 0), V(0, 0, 0))
	assert.ErrorIs(t, err, ErrDegenerate)
}

func TestReversedFace_FlipsNormal(t *testing.T) {
	w, err := MakePolygon(V(0, 0, 0), V(1, 0, 0), V(1, 1, 0))
	require.NoError(t, err)
	f, err := MakeFace(w)
	require.NoError(t, err)

	assert.InDelta(t, 1, FaceNormal(f).Z, 1e-12)
	assert.InDelta(t, -1, FaceNormal(f.Reversed()).Z, 1e-12)
}

func TestMakeCompound_SkipsNull(t *testing.T) {
	box, err := MakeBox(1, 1, 1)
	require.NoError(t, err)

	c := MakeCompound(box, Null, box)
	assert.Equal(t, kernel.Compound, c.Type())
	assert.Equal(t, 2, c.NumChildren())
	assert.Len(t, Explore(c, kernel.Face), 12)
	assert.Equal(t, 6, Count(c, kernel.Face))
}

func TestTranslate(t *testing.T) {
	box, err := MakeBox(1, 1, 1)
	require.NoError(t, err)

	moved := Translate(box, V(10, 0, 0))
	assert.False(t, moved.Same(box))
	assert.Equal(t, 12, Count(moved, kernel.Edge))
	assert.Equal(t, V(10, 0, 0), Bounds(moved).Min)
	assert.Equal(t, V(0, 0, 0), Bounds(box).Min)
	assert.True(t, IsClosedShell(Explore(moved, kernel.Shell)[0]))

	assert.True(t, Translate(Null, V(1, 1, 1)).IsNull())
}

func TestTriangulate(t *testing.T) {
	tests := []struct {
		name string
		pts  []Vec3
		want int
	}{
		{"triangle", []Vec3{V(0, 0, 0), V(1, 0, 0), V(0, 1, 0)}, 1},
		{"square", []Vec3{V(0, 0, 0), V(1, 0, 0), V(1, 1, 0), V(0, 1, 0)}, 2},
		{"clockwise L", []Vec3{V(0, 0, 0), V(0, 2, 0), V(1, 2, 0), V(1, 1, 0), V(2, 1, 0), V(2, 0, 0)}, 4},
		{"vertical", []Vec3{V(0, 0, 0), V(0, 1, 0), V(0, 1, 1), V(0, 0, 1)}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tris := Triangulate(tt.pts)
			require.Len(t, tris, tt.want)

			polyN := Newell(tt.pts)
			area := polyN.Len() / 2
			var sum float64
			for _, tri := range tris {
				n := tri[1].Sub(tri[0]).Cross(tri[2].Sub(tri[0]))
				assert.GreaterOrEqual(t, n.Dot(polyN), 0.0, "triangle wound against polygon")
				sum += n.Len() / 2
			}
			assert.InDelta(t, area, sum, 1e-12)
		})
	}
}

func TestTessellate_Box(t *testing.T) {
	box, err := MakeBox(2, 2, 2)
	require.NoError(t, err)

	tris := Tessellate(box)
	require.Len(t, tris, 12)

	var area float64
	for _, tri := range tris {
		v := tri.Vertices
		area += v[1].Sub(v[0]).Cross(v[2].Sub(v[0])).Len() / 2
		geomN := TriangleNormal(v[0], v[1], v[2])
		assert.InDelta(t, 1, geomN.Dot(tri.Normal), 1e-12)
	}
	assert.InDelta(t, 24, area, 1e-12)
}

func TestSewer_SharesEdges(t *testing.T) {
	sw := NewSewer(1e-6)
	_, err := sw.AddFace(V(0, 0, 0), V(1, 0, 0), V(0, 1, 0))
	require.NoError(t, err)
	_, err = sw.AddFace(V(1, 0, 0), V(1, 1, 0), V(0, 1, 0))
	require.NoError(t, err)
	_, err = sw.AddFace(V(0, 0, 0), V(0, 0, 0), V(1e-9, 0, 0))
	assert.ErrorIs(t, err, ErrDegenerate)

	shell, err := sw.Shell()
	require.NoError(t, err)
	assert.Equal(t, 2, sw.Len())
	assert.Equal(t, 5, Count(shell, kernel.Edge))
	assert.Equal(t, 4, Count(shell, kernel.Vertex))
	assert.False(t, IsClosedShell(shell))
}

func TestBuilder(t *testing.T) {
	var b Builder
	box, err := MakeBox(1, 1, 1)
	require.NoError(t, err)

	faces := b.Explore(box, kernel.Face)
	require.Len(t, faces, 6)

	shell, err := b.MakeShell(faces...)
	require.NoError(t, err)
	assert.Equal(t, kernel.Shell, shell.Type())

	solid, err := b.MakeSolid(shell)
	require.NoError(t, err)
	assert.Equal(t, kernel.Solid, solid.Type())

	c := b.MakeCompound(box, solid)
	assert.Len(t, b.Explore(c, kernel.Face), 12)

	_, err = b.MakeShell(box)
	assert.ErrorIs(t, err, ErrWrongType)

	_, err = b.MakeSolid(nil)
	assert.ErrorIs(t, err, ErrForeignShape)
}

func TestNewell_Area(t *testing.T) {
	n := Newell([]Vec3{V(0, 0, 0), V(3, 0, 0), V(3, 4, 0), V(0, 4, 0)})
	assert.InDelta(t, 24, n.Z, 1e-12)
	assert.InDelta(t, 24, n.Len(), 1e-12)
}
