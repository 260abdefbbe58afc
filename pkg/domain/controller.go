package domain

import (
	"fmt"
	"slices"
)

// Parameter is a named float input of a controller.
type Parameter struct {
	Name    string  `json:"name"`
	Default float32 `json:"default"`
}

// ClipLoader resolves clip guids into handles. It is the subset of a clip
// source a controller needs to build its clip cache.
type ClipLoader interface {
	LoadClip(guid string) (ClipHandle, error)
}

type clipEntry struct {
	handle ClipHandle
	refs   int
}

// Controller is a compiled animation graph: parameters, layers and the clips
// they reference. A controller is shared read-only by every animator built
// from it.
type Controller struct {
	Name         string
	SkeletonGUID string
	Skeleton     *Skeleton
	// RootOffset is added to the root joint of model-space poses.
	RootOffset Vec3

	parameters []Parameter
	layers     []*Layer
	clips      map[string]*clipEntry
	clipOrder  []string
}

// NewController creates a controller holding only the base layer.
func NewController(name string) *Controller {
	c := &Controller{
		Name:  name,
		clips: make(map[string]*clipEntry),
	}
	c.CreateBaseLayer()
	return c
}

// --- Parameters ---

// CreateParameter registers a parameter and returns its index.
func (c *Controller) CreateParameter(name string, def float32) (int, error) {
	if c.FindParameterIndex(name) >= 0 {
		return -1, fmt.Errorf("%q: %w", name, ErrParameterExists)
	}
	c.parameters = append(c.parameters, Parameter{Name: name, Default: def})
	return len(c.parameters) - 1, nil
}

// FindParameterIndex returns the index of the named parameter, or -1.
func (c *Controller) FindParameterIndex(name string) int {
	for i, p := range c.parameters {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// Parameter returns the parameter at index i.
func (c *Controller) Parameter(i int) (Parameter, bool) {
	if i < 0 || i >= len(c.parameters) {
		return Parameter{}, false
	}
	return c.parameters[i], true
}

// Parameters returns a copy of every parameter in index order.
func (c *Controller) Parameters() []Parameter {
	return slices.Clone(c.parameters)
}

// NumParameters returns the number of parameters.
func (c *Controller) NumParameters() int {
	return len(c.parameters)
}

// Defaults returns the default value of every parameter in index order.
func (c *Controller) Defaults() []float32 {
	out := make([]float32, len(c.parameters))
	for i, p := range c.parameters {
		out[i] = p.Default
	}
	return out
}

// DeleteParameter removes a parameter. Conditions on it are dropped, trees
// bound to it become unbound and higher indices shift down by one.
func (c *Controller) DeleteParameter(name string) error {
	idx := c.FindParameterIndex(name)
	if idx < 0 {
		return fmt.Errorf("%q: %w", name, ErrParameterNotFound)
	}
	c.parameters = slices.Delete(c.parameters, idx, idx+1)

	remap := func(p int) int {
		switch {
		case p == idx:
			return -1
		case p > idx:
			return p - 1
		}
		return p
	}

	for _, l := range c.layers {
		for _, t := range l.transitions {
			t.Conditions = slices.DeleteFunc(t.Conditions, func(cond Condition) bool {
				return cond.Parameter == idx
			})
			for i := range t.Conditions {
				t.Conditions[i].Parameter = remap(t.Conditions[i].Parameter)
			}
		}
		l.trees.Each(func(_ Handle, t *BlendTree) {
			for k := range t.Parameters {
				if t.Parameters[k] >= 0 {
					t.Parameters[k] = remap(t.Parameters[k])
				}
			}
		})
	}
	return nil
}

// --- Layers ---

// CreateBaseLayer creates layer 0 if missing and returns it.
func (c *Controller) CreateBaseLayer() *Layer {
	if len(c.layers) > 0 {
		return c.layers[0]
	}
	l := c.adopt(NewLayer(BaseLayerName))
	l.MaskJoints = c.Skeleton.AllJoints()
	c.layers = append(c.layers, l)
	return l
}

// CreateLayer appends a new override layer.
func (c *Controller) CreateLayer(name string) (*Layer, error) {
	if c.FindLayer(name) != nil {
		return nil, fmt.Errorf("%q: %w", name, ErrLayerExists)
	}
	if len(c.layers) >= MaxLayers {
		return nil, fmt.Errorf("%q: %w", name, ErrTooManyLayers)
	}
	l := c.adopt(NewLayer(name))
	c.layers = append(c.layers, l)
	return l, nil
}

func (c *Controller) adopt(l *Layer) *Layer {
	l.releaseClip = c.ReleaseClip
	return l
}

// Layer returns the layer at index i, or nil.
func (c *Controller) Layer(i int) *Layer {
	if i < 0 || i >= len(c.layers) {
		return nil
	}
	return c.layers[i]
}

// BaseLayer returns layer 0.
func (c *Controller) BaseLayer() *Layer {
	return c.layers[0]
}

// FindLayer returns the named layer, or nil.
func (c *Controller) FindLayer(name string) *Layer {
	for _, l := range c.layers {
		if l.Name == name {
			return l
		}
	}
	return nil
}

// LayerIndex returns the index of the named layer, or -1.
func (c *Controller) LayerIndex(name string) int {
	for i, l := range c.layers {
		if l.Name == name {
			return i
		}
	}
	return -1
}

// Layers returns the layers in evaluation order.
func (c *Controller) Layers() []*Layer {
	return slices.Clone(c.layers)
}

// NumLayers returns the number of layers.
func (c *Controller) NumLayers() int {
	return len(c.layers)
}

// DeleteLayer removes a non-base layer and releases its clips.
func (c *Controller) DeleteLayer(name string) error {
	i := c.LayerIndex(name)
	if i < 0 {
		return fmt.Errorf("%q: %w", name, ErrLayerNotFound)
	}
	if i == 0 {
		return fmt.Errorf("%q: %w", name, ErrBaseLayer)
	}
	l := c.layers[i]
	for _, s := range l.States() {
		_ = l.DeleteState(s.Name)
	}
	c.layers = slices.Delete(c.layers, i, i+1)
	return nil
}

// SetSkeleton attaches the skeleton the controller animates. The base
// layer's mask becomes every joint.
func (c *Controller) SetSkeleton(s *Skeleton) {
	c.Skeleton = s
	if s != nil {
		c.SkeletonGUID = s.GUID
	}
	c.BaseLayer().MaskJoints = s.AllJoints()
}

// --- Clip cache ---

// AcquireClip returns the cached handle for guid, loading it on first use.
// A failed load yields an invalid handle, which is cached like a valid one.
func (c *Controller) AcquireClip(guid string, loader ClipLoader) ClipHandle {
	if e, ok := c.clips[guid]; ok {
		e.refs++
		return e.handle
	}

	h := InvalidClip(guid)
	if loader != nil {
		if loaded, err := loader.LoadClip(guid); err == nil {
			h = loaded
		}
	}
	c.clips[guid] = &clipEntry{handle: h, refs: 1}
	c.clipOrder = append(c.clipOrder, guid)
	return h
}

// ReleaseClip drops one reference to the clip; the cache entry is removed
// when the last reference goes.
func (c *Controller) ReleaseClip(h ClipHandle) {
	e, ok := c.clips[h.GUID]
	if !ok {
		return
	}
	e.refs--
	if e.refs > 0 {
		return
	}
	delete(c.clips, h.GUID)
	c.clipOrder = slices.DeleteFunc(c.clipOrder, func(g string) bool { return g == h.GUID })
}

// Clips returns every cached clip handle in first-use order.
func (c *Controller) Clips() []ClipHandle {
	out := make([]ClipHandle, 0, len(c.clipOrder))
	for _, g := range c.clipOrder {
		out = append(out, c.clips[g].handle)
	}
	return out
}

// ClipRefs returns the reference count of the clip cached under guid.
func (c *Controller) ClipRefs(guid string) int {
	if e, ok := c.clips[guid]; ok {
		return e.refs
	}
	return 0
}

// Clone returns a deep copy. The skeleton is shared; it is never mutated
// through a controller.
func (c *Controller) Clone() *Controller {
	out := &Controller{
		Name:         c.Name,
		SkeletonGUID: c.SkeletonGUID,
		Skeleton:     c.Skeleton,
		RootOffset:   c.RootOffset,
		parameters:   slices.Clone(c.parameters),
		clips:        make(map[string]*clipEntry, len(c.clips)),
		clipOrder:    slices.Clone(c.clipOrder),
	}
	for g, e := range c.clips {
		cp := *e
		out.clips[g] = &cp
	}
	for _, l := range c.layers {
		out.layers = append(out.layers, out.adopt(l.Clone()))
	}
	return out
}
