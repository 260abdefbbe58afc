package domain

// BlendTree maps up to three parameter values to weights over its children.
// A tree is owned by exactly one state or one AnimNode of its layer.
type BlendTree struct {
	Name string
	Type BlendType
	// Parameters holds the controller parameter index bound to each blend
	// dimension, or -1 when unbound.
	Parameters [3]int

	children []NodeRef
	layout   blendLayout
}

func newBlendTree(name string, typ BlendType) BlendTree {
	return BlendTree{
		Name:       name,
		Type:       typ,
		Parameters: [3]int{-1, -1, -1},
		layout:     blendLayout{origin: -1},
	}
}

// Children returns a copy of the tree's child references in order.
func (t *BlendTree) Children() []NodeRef {
	out := make([]NodeRef, len(t.children))
	copy(out, t.children)
	return out
}

// NumChildren returns the number of children.
func (t *BlendTree) NumChildren() int {
	return len(t.children)
}

// Query reads the blend-space point for the given parameter values. Unbound
// dimensions and out-of-range indices read as zero.
func (t *BlendTree) Query(params []float32) Vec3 {
	var q Vec3
	for k := 0; k < t.Type.Dimensions(); k++ {
		idx := t.Parameters[k]
		if idx >= 0 && idx < len(params) {
			q[k] = params[idx]
		}
	}
	return q
}

func (t *BlendTree) clone() BlendTree {
	c := *t
	c.children = append([]NodeRef(nil), t.children...)
	c.layout.order = append([]int(nil), t.layout.order...)
	c.layout.simplices = append([][4]int(nil), t.layout.simplices...)
	return c
}

// LeafWeight is a clip together with its normalized contribution to a pose.
type LeafWeight struct {
	Clip   ClipHandle
	Weight float32
}
