package domain

import "fmt"

// BlendType selects how a blend tree turns parameter values into child weights.
type BlendType int

const (
	BlendAngle BlendType = iota
	Blend1D
	Blend2DDirectional
	Blend2DBarycentric
	Blend3DBarycentric
)

// blendStrategy is one row of the blend type table: how many coordinates a
// child point carries, how the child layout is prepared when the tree changes,
// and how weights are computed from a query point.
type blendStrategy struct {
	keyword string
	dims    int
	prepare func(points []Vec3) blendLayout
	weigh   func(points []Vec3, layout *blendLayout, query Vec3, out []float32)
}

var blendStrategies = [...]blendStrategy{
	BlendAngle: {
		keyword: "blendAngle",
		dims:    1,
		prepare: prepareAngle,
		weigh:   weighAngle,
	},
	Blend1D: {
		keyword: "blend1D",
		dims:    1,
		prepare: prepareLinear,
		weigh:   weighLinear,
	},
	Blend2DDirectional: {
		keyword: "blend2DDirectional",
		dims:    2,
		prepare: prepareDirectional,
		weigh:   weighDirectional,
	},
	Blend2DBarycentric: {
		keyword: "blend2DBarycentric",
		dims:    2,
		prepare: prepareTriangles,
		weigh:   weighSimplices,
	},
	Blend3DBarycentric: {
		keyword: "blend3DBarycentric",
		dims:    3,
		prepare: prepareTetrahedra,
		weigh:   weighSimplices,
	},
}

// BlendTypes lists every blend type in declaration order.
func BlendTypes() []BlendType {
	return []BlendType{BlendAngle, Blend1D, Blend2DDirectional, Blend2DBarycentric, Blend3DBarycentric}
}

func (t BlendType) valid() bool {
	return t >= 0 && int(t) < len(blendStrategies)
}

func (t BlendType) strategy() *blendStrategy {
	if !t.valid() {
		return &blendStrategies[Blend1D]
	}
	return &blendStrategies[t]
}

// String returns the keyword used by the text format.
func (t BlendType) String() string {
	if !t.valid() {
		return fmt.Sprintf("BlendType(%d)", int(t))
	}
	return blendStrategies[t].keyword
}

// Dimensions returns how many blend-space coordinates (and parameters) the type uses.
func (t BlendType) Dimensions() int {
	if !t.valid() {
		return 0
	}
	return blendStrategies[t].dims
}

// ParseBlendType maps a text-format keyword to a BlendType.
func ParseBlendType(keyword string) (BlendType, error) {
	for i := range blendStrategies {
		if blendStrategies[i].keyword == keyword {
			return BlendType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown blend type %q", keyword)
}
