package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eps = 1e-4

// weighTree builds a single tree of valid leaves at points and returns the
// child weights for query.
func weighTree(t *testing.T, typ BlendType, points []Vec3, query Vec3) []float32 {
	t.Helper()
	l := NewLayer("test")
	tree := l.CreateBlendTree("tree", typ)
	for k := 0; k < typ.Dimensions(); k++ {
		require.NoError(t, l.BindParameter(tree, k, k))
	}
	for i, p := range points {
		_, err := l.AddChildClip(tree, NewClipHandle("clip", i), p)
		require.NoError(t, err)
	}
	w, err := l.ComputeWeights(tree, query[:], nil)
	require.NoError(t, err)
	require.Len(t, w, len(points))
	return w
}

func sum(w []float32) float32 {
	var s float32
	for _, x := range w {
		s += x
	}
	return s
}

func TestBlend1D(t *testing.T) {
	points := []Vec3{{2}, {0}, {1}}

	tests := []struct {
		name  string
		query float32
		want  []float32
	}{
		{"between", 0.5, []float32{0, 0.5, 0.5}},
		{"upper bracket", 1.75, []float32{0.75, 0, 0.25}},
		{"exact", 1, []float32{0, 0, 1}},
		{"clamped below", -3, []float32{0, 1, 0}},
		{"clamped above", 9, []float32{1, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := weighTree(t, Blend1D, points, Vec3{tt.query})
			assert.InDeltaSlice(t, tt.want, w, eps)
		})
	}
}

func TestBlendAngle(t *testing.T) {
	points := []Vec3{{0}, {90}, {180}, {270}}

	tests := []struct {
		name  string
		query float32
		want  []float32
	}{
		{"exact", 90, []float32{0, 1, 0, 0}},
		{"exact after wrap", 360, []float32{1, 0, 0, 0}},
		{"between", 45, []float32{0.5, 0.5, 0, 0}},
		{"across zero", 315, []float32{0.5, 0, 0, 0.5}},
		{"negative", -67.5, []float32{0.25, 0, 0, 0.75}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := weighTree(t, BlendAngle, points, Vec3{tt.query})
			assert.InDeltaSlice(t, tt.want, w, eps)
		})
	}
}

func TestBlendAngle_TwoChildrenWrap(t *testing.T) {
	w := weighTree(t, BlendAngle, []Vec3{{350}, {10}}, Vec3{0})
	assert.InDeltaSlice(t, []float32{0.5, 0.5}, w, eps)
}

func TestBlend2DDirectional(t *testing.T) {
	points := []Vec3{{0, 0}, {1, 0}, {0, 1}, {-1, 0}, {0, -1}}

	t.Run("on ring", func(t *testing.T) {
		w := weighTree(t, Blend2DDirectional, points, Vec3{0, 2})
		assert.InDeltaSlice(t, []float32{0, 0, 1, 0, 0}, w, eps)
	})

	t.Run("origin", func(t *testing.T) {
		w := weighTree(t, Blend2DDirectional, points, Vec3{})
		assert.InDeltaSlice(t, []float32{1, 0, 0, 0, 0}, w, eps)
	})

	t.Run("inside ring", func(t *testing.T) {
		w := weighTree(t, Blend2DDirectional, points, Vec3{0.5, 0})
		assert.InDeltaSlice(t, []float32{0.5, 0.5, 0, 0, 0}, w, eps)
	})

	t.Run("diagonal sums to one", func(t *testing.T) {
		w := weighTree(t, Blend2DDirectional, points, Vec3{0.5, 0.5})
		assert.InDelta(t, 1, sum(w), eps)
		assert.InDelta(t, w[1], w[2], eps)
		assert.Greater(t, w[0], float32(0))
		assert.Zero(t, w[3])
	})

	t.Run("without origin", func(t *testing.T) {
		w := weighTree(t, Blend2DDirectional, points[1:], Vec3{-0.1, -0.1})
		assert.InDeltaSlice(t, []float32{0, 0, 0.5, 0.5}, w, eps)
	})
}

func TestBlend2DBarycentric(t *testing.T) {
	points := []Vec3{{0, 0}, {1, 0}, {0, 1}}

	t.Run("inside", func(t *testing.T) {
		w := weighTree(t, Blend2DBarycentric, points, Vec3{0.25, 0.25})
		assert.InDeltaSlice(t, []float32{0.5, 0.25, 0.25}, w, eps)
	})

	t.Run("outside clamps to hull", func(t *testing.T) {
		w := weighTree(t, Blend2DBarycentric, points, Vec3{1, 1})
		assert.InDeltaSlice(t, []float32{0, 0.5, 0.5}, w, eps)
	})

	t.Run("outside near vertex", func(t *testing.T) {
		w := weighTree(t, Blend2DBarycentric, points, Vec3{-2, -2})
		assert.InDeltaSlice(t, []float32{1, 0, 0}, w, eps)
	})

	t.Run("square corner", func(t *testing.T) {
		square := []Vec3{{0, 0}, {1, 0}, {0, 1}, {1, 1}}
		w := weighTree(t, Blend2DBarycentric, square, Vec3{1, 1})
		assert.InDeltaSlice(t, []float32{0, 0, 0, 1}, w, eps)
	})

	t.Run("square center sums to one", func(t *testing.T) {
		square := []Vec3{{0, 0}, {1, 0}, {0, 1}, {1, 1}, {0.5, 0.5}}
		w := weighTree(t, Blend2DBarycentric, square, Vec3{0.5, 0.5})
		assert.InDelta(t, 1, w[4], eps)
		assert.InDelta(t, 1, sum(w), eps)
	})

	t.Run("collinear falls back to segments", func(t *testing.T) {
		line := []Vec3{{0, 0}, {1, 0}, {2, 0}}
		w := weighTree(t, Blend2DBarycentric, line, Vec3{0.5, 1})
		assert.InDeltaSlice(t, []float32{0.5, 0.5, 0}, w, eps)
	})
}

func TestBlend3DBarycentric(t *testing.T) {
	points := []Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

	t.Run("inside", func(t *testing.T) {
		w := weighTree(t, Blend3DBarycentric, points, Vec3{0.25, 0.25, 0.25})
		assert.InDeltaSlice(t, []float32{0.25, 0.25, 0.25, 0.25}, w, eps)
	})

	t.Run("outside clamps to face", func(t *testing.T) {
		w := weighTree(t, Blend3DBarycentric, points, Vec3{1, 1, 1})
		third := float32(1) / 3
		assert.InDeltaSlice(t, []float32{0, third, third, third}, w, eps)
	})

	t.Run("coplanar falls back to triangles", func(t *testing.T) {
		w := weighTree(t, Blend3DBarycentric, points[:3], Vec3{0.25, 0.25, 5})
		assert.InDeltaSlice(t, []float32{0.5, 0.25, 0.25}, w, eps)
	})
}

// reconstruct returns the weighted sum of points.
func reconstruct(points []Vec3, w []float32) Vec3 {
	var out Vec3
	for i, p := range points {
		for k := range out {
			out[k] += w[i] * p[k]
		}
	}
	return out
}

func assertConvex(t *testing.T, w []float32) {
	t.Helper()
	assert.InDelta(t, 1, sum(w), eps)
	for i, x := range w {
		assert.GreaterOrEqual(t, x, float32(0), "weight %d", i)
	}
}

func TestBlend1D_MonotoneAcrossAxis(t *testing.T) {
	points := []Vec3{{3}, {0}, {1}}
	prevLow, prevHigh := float32(2), float32(-1)

	for x := float32(-1); x <= 4; x += 0.05 {
		w := weighTree(t, Blend1D, points, Vec3{x})
		assertConvex(t, w)
		assert.InDelta(t, min(max(x, 0), 3), reconstruct(points, w)[0], eps, "x=%v", x)

		assert.LessOrEqual(t, w[1], prevLow+eps, "weight of the lowest child never grows")
		assert.GreaterOrEqual(t, w[0], prevHigh-eps, "weight of the highest child never shrinks")
		prevLow, prevHigh = w[1], w[0]

		switch {
		case x <= 0:
			assert.InDelta(t, 1, w[1], eps)
		case x >= 3:
			assert.InDelta(t, 1, w[0], eps)
		}
	}
}

func TestBlend2DBarycentric_ReconstructsQuery(t *testing.T) {
	square := []Vec3{{0, 0}, {2, 0}, {0, 2}, {2, 2}, {1, 1}}

	for x := float32(0.1); x < 2; x += 0.3 {
		for y := float32(0.1); y < 2; y += 0.3 {
			q := Vec3{x, y}
			w := weighTree(t, Blend2DBarycentric, square, q)
			assertConvex(t, w)
			got := reconstruct(square, w)
			assert.InDelta(t, q[0], got[0], eps, "query %v", q)
			assert.InDelta(t, q[1], got[1], eps, "query %v", q)
		}
	}

	outside := []struct {
		query, closest Vec3
	}{
		{Vec3{3, 1}, Vec3{2, 1}},
		{Vec3{1, 5}, Vec3{1, 2}},
		{Vec3{-1, -1}, Vec3{0, 0}},
		{Vec3{-0.5, 1.5}, Vec3{0, 1.5}},
	}
	for _, tt := range outside {
		w := weighTree(t, Blend2DBarycentric, square, tt.query)
		assertConvex(t, w)
		got := reconstruct(square, w)
		assert.InDelta(t, tt.closest[0], got[0], eps, "query %v", tt.query)
		assert.InDelta(t, tt.closest[1], got[1], eps, "query %v", tt.query)
	}
}

func TestBlend3DBarycentric_ReconstructsQuery(t *testing.T) {
	points := []Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {1, 1, 1}}

	inside := []Vec3{
		{0.1, 0.1, 0.1},
		{0.2, 0.3, 0.1},
		{0.6, 0.2, 0.1},
		{0.5, 0.5, 0.5},
		{0.7, 0.6, 0.5},
	}
	for _, q := range inside {
		w := weighTree(t, Blend3DBarycentric, points, q)
		assertConvex(t, w)
		got := reconstruct(points, w)
		for k := range q {
			assert.InDelta(t, q[k], got[k], eps, "query %v", q)
		}
	}

	outside := []struct {
		query, closest Vec3
	}{
		{Vec3{-1, 0.2, 0.2}, Vec3{0, 0.2, 0.2}},
		{Vec3{0.2, 0.2, -3}, Vec3{0.2, 0.2, 0}},
		{Vec3{-1, -1, -1}, Vec3{0, 0, 0}},
	}
	for _, tt := range outside {
		w := weighTree(t, Blend3DBarycentric, points, tt.query)
		assertConvex(t, w)
		got := reconstruct(points, w)
		for k := range tt.closest {
			assert.InDelta(t, tt.closest[k], got[k], eps, "query %v", tt.query)
		}
	}
}

func TestBlend_DegenerateCounts(t *testing.T) {
	for _, typ := range BlendTypes() {
		t.Run(typ.String(), func(t *testing.T) {
			assert.Empty(t, weighTree(t, typ, nil, Vec3{}))

			w := weighTree(t, typ, []Vec3{{3, 4, 5}}, Vec3{-1, 2, 7})
			assert.InDeltaSlice(t, []float32{1}, w, eps)
		})
	}
}

func TestParseBlendType(t *testing.T) {
	for _, typ := range BlendTypes() {
		got, err := ParseBlendType(typ.String())
		require.NoError(t, err)
		assert.Equal(t, typ, got)
	}
	_, err := ParseBlendType("blend4D")
	assert.Error(t, err)
}
