package domain

const (
	// MaxBlendTreeChildren caps the children of a single blend tree.
	MaxBlendTreeChildren = 32

	// MaxLayers caps the layers of a controller.
	MaxLayers = 8

	// MaxBlendersPerLayer is the depth of the per-layer crossfade stack.
	MaxBlendersPerLayer = 8

	// BaseLayerName is the name given to layer 0.
	BaseLayerName = "Base Layer"

	// DefaultTransitionDuration is the crossfade length of a new transition, in seconds.
	DefaultTransitionDuration float32 = 0.25
)
