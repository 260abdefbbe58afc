package domain

import (
	"fmt"
	"slices"
)

// BlendMode selects how a layer composites onto the layers below it.
type BlendMode uint8

const (
	BlendOverride BlendMode = iota
	BlendAdditive
)

func (m BlendMode) String() string {
	if m == BlendAdditive {
		return "additive"
	}
	return "override"
}

// ParseBlendMode maps "override" or "additive" to a BlendMode.
func ParseBlendMode(s string) (BlendMode, error) {
	switch s {
	case "override":
		return BlendOverride, nil
	case "additive":
		return BlendAdditive, nil
	}
	return 0, fmt.Errorf("unknown blending mode %q", s)
}

// Layer is one state machine of a controller. It owns its states, their blend
// trees and every node and leaf below them.
//
// A layer must not be mutated while it is being evaluated.
type Layer struct {
	Name string
	// MaskJoints lists the joints the layer writes, sorted and unique.
	MaskJoints []int
	// MaskExpr is the mask expression MaskJoints was resolved from, if any.
	MaskExpr string
	Blending BlendMode
	Weight   float32

	states       map[string]*State
	order        []string
	trees        Arena[BlendTree]
	nodes        Arena[AnimNode]
	leaves       Arena[AnimLeaf]
	transitions  []*Transition
	defaultState string

	// releaseClip is called for every clip handle the layer drops.
	releaseClip func(ClipHandle)
}

// NewLayer creates an empty override layer with full weight.
func NewLayer(name string) *Layer {
	return &Layer{
		Name:     name,
		Blending: BlendOverride,
		Weight:   1,
		states:   make(map[string]*State),
	}
}

// SetMask replaces the mask joints, sorting and deduplicating them. An empty
// list masks out every joint.
func (l *Layer) SetMask(joints []int) {
	m := append(make([]int, 0, len(joints)), joints...)
	slices.Sort(m)
	l.MaskJoints = slices.Compact(m)
}

func (l *Layer) dropClip(h ClipHandle) {
	if l.releaseClip != nil && (h.Valid() || h.GUID != "") {
		l.releaseClip(h)
	}
}

// --- States ---

// CreateState adds an empty state. Names are unique within a layer.
func (l *Layer) CreateState(name string) (*State, error) {
	if _, ok := l.states[name]; ok {
		return nil, fmt.Errorf("%q in layer %q: %w", name, l.Name, ErrStateExists)
	}
	s := &State{Name: name}
	l.states[name] = s
	l.order = append(l.order, name)
	return s, nil
}

// FindState returns the named state, or nil.
func (l *Layer) FindState(name string) *State {
	return l.states[name]
}

// States returns the states in creation order.
func (l *Layer) States() []*State {
	out := make([]*State, 0, len(l.order))
	for _, name := range l.order {
		out = append(out, l.states[name])
	}
	return out
}

// NumStates returns the number of states.
func (l *Layer) NumStates() int {
	return len(l.order)
}

// DeleteState removes a state together with its blend tree and every
// transition naming it. The default state is cleared if it was this one.
func (l *Layer) DeleteState(name string) error {
	s, ok := l.states[name]
	if !ok {
		return fmt.Errorf("%q in layer %q: %w", name, l.Name, ErrStateNotFound)
	}
	l.clearMotion(s)

	delete(l.states, name)
	l.order = slices.DeleteFunc(l.order, func(n string) bool { return n == name })
	l.transitions = slices.DeleteFunc(l.transitions, func(t *Transition) bool {
		return t.Src == name || t.Dst == name
	})
	if l.defaultState == name {
		l.defaultState = ""
	}
	return nil
}

// SetDefaultState makes the named state the entry point of the layer.
func (l *Layer) SetDefaultState(name string) error {
	if _, ok := l.states[name]; !ok {
		return fmt.Errorf("%q in layer %q: %w", name, l.Name, ErrStateNotFound)
	}
	l.defaultState = name
	return nil
}

// DefaultState resolves the default state, or returns nil when none is set.
func (l *Layer) DefaultState() *State {
	if l.defaultState == "" {
		return nil
	}
	return l.states[l.defaultState]
}

// DefaultStateName returns the stored default state key, which may be empty.
func (l *Layer) DefaultStateName() string {
	return l.defaultState
}

func (l *Layer) clearMotion(s *State) {
	if s.HasTree() {
		_ = l.DeleteBlendTree(s.Tree)
	}
	l.dropClip(s.Clip)
	s.Tree = Handle{}
	s.Clip = ClipHandle{}
}

// SetStateClip makes the state play a single clip, freeing any blend tree it had.
func (l *Layer) SetStateClip(s *State, clip ClipHandle) {
	l.clearMotion(s)
	s.Clip = clip
}

// SetStateTree makes the state play a new blend tree, freeing any previous
// tree or clip, and returns the tree's handle.
func (l *Layer) SetStateTree(s *State, name string, typ BlendType) Handle {
	l.clearMotion(s)
	s.Tree = l.CreateBlendTree(name, typ)
	return s.Tree
}

// --- Blend trees, nodes and leaves ---

// CreateBlendTree allocates an unowned blend tree.
func (l *Layer) CreateBlendTree(name string, typ BlendType) Handle {
	return l.trees.Insert(newBlendTree(name, typ))
}

// BlendTree returns the tree behind h.
func (l *Layer) BlendTree(h Handle) (*BlendTree, error) {
	if h.IsZero() {
		return nil, fmt.Errorf("blend tree %s: %w", h, ErrInvalidRef)
	}
	t, ok := l.trees.Get(h)
	if !ok {
		return nil, fmt.Errorf("blend tree %s: %w", h, ErrStaleRef)
	}
	return t, nil
}

// NumBlendTrees returns the number of live blend trees.
func (l *Layer) NumBlendTrees() int {
	return l.trees.Len()
}

// DeleteBlendTree frees a tree and, recursively, every node, leaf and
// sub-tree below it.
func (l *Layer) DeleteBlendTree(h Handle) error {
	t, err := l.BlendTree(h)
	if err != nil {
		return err
	}
	for _, child := range t.children {
		_ = l.freeNode(child)
	}
	l.trees.Remove(h)
	return nil
}

// SetBlendType changes how the tree weighs its children.
func (l *Layer) SetBlendType(h Handle, typ BlendType) error {
	t, err := l.BlendTree(h)
	if err != nil {
		return err
	}
	if !typ.valid() {
		return fmt.Errorf("blend type %d: %w", int(typ), ErrInvalidRef)
	}
	t.Type = typ
	l.prepare(t)
	return nil
}

// BindParameter binds blend dimension slot of the tree to a parameter index
// (-1 unbinds).
func (l *Layer) BindParameter(h Handle, slot, param int) error {
	t, err := l.BlendTree(h)
	if err != nil {
		return err
	}
	if slot < 0 || slot >= len(t.Parameters) {
		return fmt.Errorf("parameter slot %d: %w", slot, ErrChildIndex)
	}
	t.Parameters[slot] = param
	return nil
}

// CreateNode allocates an interior node owning the tree sub.
func (l *Layer) CreateNode(point Vec3, sub Handle) NodeRef {
	return NodeOf(l.nodes.Insert(AnimNode{Point: point, Tree: sub}))
}

// CreateLeaf allocates a leaf sampling clip.
func (l *Layer) CreateLeaf(point Vec3, clip ClipHandle) NodeRef {
	return LeafOf(l.leaves.Insert(AnimLeaf{Point: point, Clip: clip}))
}

// Node returns the interior node behind ref.
func (l *Layer) Node(ref NodeRef) (*AnimNode, error) {
	if !ref.IsNode() || ref.Handle.IsZero() {
		return nil, fmt.Errorf("node %s: %w", ref, ErrInvalidRef)
	}
	n, ok := l.nodes.Get(ref.Handle)
	if !ok {
		return nil, fmt.Errorf("node %s: %w", ref, ErrStaleRef)
	}
	return n, nil
}

// Leaf returns the leaf behind ref.
func (l *Layer) Leaf(ref NodeRef) (*AnimLeaf, error) {
	if !ref.IsLeaf() || ref.Handle.IsZero() {
		return nil, fmt.Errorf("leaf %s: %w", ref, ErrInvalidRef)
	}
	lf, ok := l.leaves.Get(ref.Handle)
	if !ok {
		return nil, fmt.Errorf("leaf %s: %w", ref, ErrStaleRef)
	}
	return lf, nil
}

// RemoveNode frees a node or leaf (a node frees its sub-tree too) and
// detaches it from any tree listing it.
func (l *Layer) RemoveNode(ref NodeRef) error {
	if err := l.freeNode(ref); err != nil {
		return err
	}
	l.trees.Each(func(_ Handle, t *BlendTree) {
		if i := slices.Index(t.children, ref); i >= 0 {
			t.children = slices.Delete(t.children, i, i+1)
			l.prepare(t)
		}
	})
	return nil
}

func (l *Layer) freeNode(ref NodeRef) error {
	switch ref.Kind {
	case NodeKindNode:
		n, err := l.Node(ref)
		if err != nil {
			return err
		}
		if !n.Tree.IsZero() {
			_ = l.DeleteBlendTree(n.Tree)
		}
		l.nodes.Remove(ref.Handle)
	case NodeKindLeaf:
		lf, err := l.Leaf(ref)
		if err != nil {
			return err
		}
		l.dropClip(lf.Clip)
		l.leaves.Remove(ref.Handle)
	default:
		return fmt.Errorf("node %s: %w", ref, ErrInvalidRef)
	}
	return nil
}

func (l *Layer) point(ref NodeRef) Vec3 {
	switch ref.Kind {
	case NodeKindNode:
		if n, ok := l.nodes.Get(ref.Handle); ok {
			return n.Point
		}
	case NodeKindLeaf:
		if lf, ok := l.leaves.Get(ref.Handle); ok {
			return lf.Point
		}
	}
	return Vec3{}
}

func (l *Layer) points(t *BlendTree) []Vec3 {
	pts := make([]Vec3, len(t.children))
	for i, c := range t.children {
		pts[i] = l.point(c)
	}
	return pts
}

// prepare recomputes the tree's derived layout. It runs on every mutation so
// evaluation never writes to the tree.
func (l *Layer) prepare(t *BlendTree) {
	t.layout = t.Type.strategy().prepare(l.points(t))
}

// --- Tree children ---

// AddChildClip appends a leaf sampling clip at point.
func (l *Layer) AddChildClip(tree Handle, clip ClipHandle, point Vec3) (NodeRef, error) {
	return l.InsertChildClip(tree, -1, clip, point)
}

// AddChildTree appends a node owning sub at point.
func (l *Layer) AddChildTree(tree, sub Handle, point Vec3) (NodeRef, error) {
	return l.InsertChildTree(tree, -1, sub, point)
}

// InsertChildClip inserts a leaf at index; a negative index appends.
func (l *Layer) InsertChildClip(tree Handle, index int, clip ClipHandle, point Vec3) (NodeRef, error) {
	t, err := l.insertable(tree, index)
	if err != nil {
		return NodeRef{}, err
	}
	ref := l.CreateLeaf(point, clip)
	l.insertChild(t, index, ref)
	return ref, nil
}

// InsertChildTree inserts a node owning sub at index; a negative index appends.
func (l *Layer) InsertChildTree(tree Handle, index int, sub Handle, point Vec3) (NodeRef, error) {
	if sub == tree {
		return NodeRef{}, fmt.Errorf("blend tree %s cannot own itself: %w", tree, ErrInvalidRef)
	}
	if _, err := l.BlendTree(sub); err != nil {
		return NodeRef{}, err
	}
	t, err := l.insertable(tree, index)
	if err != nil {
		return NodeRef{}, err
	}
	ref := l.CreateNode(point, sub)
	l.insertChild(t, index, ref)
	return ref, nil
}

func (l *Layer) insertable(tree Handle, index int) (*BlendTree, error) {
	t, err := l.BlendTree(tree)
	if err != nil {
		return nil, err
	}
	if len(t.children) >= MaxBlendTreeChildren {
		return nil, fmt.Errorf("blend tree %q: %w", t.Name, ErrTooManyChildren)
	}
	if index > len(t.children) {
		return nil, fmt.Errorf("blend tree %q index %d: %w", t.Name, index, ErrChildIndex)
	}
	return t, nil
}

func (l *Layer) insertChild(t *BlendTree, index int, ref NodeRef) {
	if index < 0 {
		index = len(t.children)
	}
	t.children = slices.Insert(t.children, index, ref)
	l.prepare(t)
}

// RemoveChild detaches and frees the child at index.
func (l *Layer) RemoveChild(tree Handle, index int) error {
	t, err := l.BlendTree(tree)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(t.children) {
		return fmt.Errorf("blend tree %q index %d: %w", t.Name, index, ErrChildIndex)
	}
	ref := t.children[index]
	t.children = slices.Delete(t.children, index, index+1)
	l.prepare(t)
	return l.freeNode(ref)
}

// Children returns the child references of a tree.
func (l *Layer) Children(tree Handle) ([]NodeRef, error) {
	t, err := l.BlendTree(tree)
	if err != nil {
		return nil, err
	}
	return t.Children(), nil
}

// ChildPoint returns the blend-space point of the child at index.
func (l *Layer) ChildPoint(tree Handle, index int) (Vec3, error) {
	t, err := l.BlendTree(tree)
	if err != nil {
		return Vec3{}, err
	}
	if index < 0 || index >= len(t.children) {
		return Vec3{}, fmt.Errorf("blend tree %q index %d: %w", t.Name, index, ErrChildIndex)
	}
	return l.point(t.children[index]), nil
}

// SetChildPoint moves the child at index to point.
func (l *Layer) SetChildPoint(tree Handle, index int, point Vec3) error {
	t, err := l.BlendTree(tree)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(t.children) {
		return fmt.Errorf("blend tree %q index %d: %w", t.Name, index, ErrChildIndex)
	}
	ref := t.children[index]
	switch ref.Kind {
	case NodeKindNode:
		n, err := l.Node(ref)
		if err != nil {
			return err
		}
		n.Point = point
	case NodeKindLeaf:
		lf, err := l.Leaf(ref)
		if err != nil {
			return err
		}
		lf.Point = point
	default:
		return fmt.Errorf("child %d: %w", index, ErrInvalidRef)
	}
	l.prepare(t)
	return nil
}

// --- Weights ---

// ComputeWeights writes the weight of each child of tree into out, resized
// to the number of children, and returns it.
func (l *Layer) ComputeWeights(tree Handle, params []float32, out []float32) ([]float32, error) {
	t, err := l.BlendTree(tree)
	if err != nil {
		return out[:0], err
	}
	return l.weights(t, params, out), nil
}

func (l *Layer) weights(t *BlendTree, params []float32, out []float32) []float32 {
	n := len(t.children)
	if cap(out) < n {
		out = make([]float32, n)
	}
	out = out[:n]
	clear(out)
	if n == 0 {
		return out
	}
	t.Type.strategy().weigh(l.points(t), &t.layout, t.Query(params), out)
	return out
}

// LeafWeights flattens tree into the clips it blends, multiplying weights
// down through sub-trees. Leaves whose clip is invalid or rejected by valid
// are dropped and the remaining weights renormalized to sum to one.
func (l *Layer) LeafWeights(tree Handle, params []float32, valid func(ClipHandle) bool) []LeafWeight {
	t, ok := l.trees.Get(tree)
	if !ok {
		return nil
	}

	var out []LeafWeight
	l.collectLeaves(t, params, 1, valid, &out, 0)

	var sum float32
	for _, lw := range out {
		sum += lw.Weight
	}
	if sum <= 0 {
		return nil
	}
	for i := range out {
		out[i].Weight /= sum
	}
	return out
}

func (l *Layer) collectLeaves(t *BlendTree, params []float32, scale float32, valid func(ClipHandle) bool, out *[]LeafWeight, depth int) {
	// Trees own their sub-trees, so depth only exceeds the arena size on a cycle.
	if depth > l.trees.Cap() {
		return
	}
	w := l.weights(t, params, make([]float32, len(t.children)))
	for i, ref := range t.children {
		if w[i] <= 0 {
			continue
		}
		switch ref.Kind {
		case NodeKindLeaf:
			lf, ok := l.leaves.Get(ref.Handle)
			if !ok || !lf.Clip.Valid() || (valid != nil && !valid(lf.Clip)) {
				continue
			}
			*out = append(*out, LeafWeight{Clip: lf.Clip, Weight: w[i] * scale})
		case NodeKindNode:
			n, ok := l.nodes.Get(ref.Handle)
			if !ok {
				continue
			}
			if sub, ok := l.trees.Get(n.Tree); ok {
				l.collectLeaves(sub, params, w[i]*scale, valid, out, depth+1)
			}
		}
	}
}

// StateLeaves returns the weighted clips a state plays for params.
func (l *Layer) StateLeaves(s *State, params []float32, valid func(ClipHandle) bool) []LeafWeight {
	if s.HasTree() {
		return l.LeafWeights(s.Tree, params, valid)
	}
	if !s.Clip.Valid() || (valid != nil && !valid(s.Clip)) {
		return nil
	}
	return []LeafWeight{{Clip: s.Clip, Weight: 1}}
}

// --- Transitions ---

// CreateTransition adds a transition between two existing states.
func (l *Layer) CreateTransition(src, dst string) (*Transition, error) {
	if _, ok := l.states[src]; !ok {
		return nil, fmt.Errorf("transition source %q: %w", src, ErrStateNotFound)
	}
	if _, ok := l.states[dst]; !ok {
		return nil, fmt.Errorf("transition destination %q: %w", dst, ErrStateNotFound)
	}
	if l.FindTransition(src, dst) != nil {
		return nil, fmt.Errorf("%s -> %s: %w", src, dst, ErrDuplicateTransition)
	}
	t := newTransition(src, dst)
	l.transitions = append(l.transitions, t)
	return t, nil
}

// RemoveTransition deletes t and reports whether it belonged to the layer.
func (l *Layer) RemoveTransition(t *Transition) bool {
	i := slices.Index(l.transitions, t)
	if i < 0 {
		return false
	}
	l.transitions = slices.Delete(l.transitions, i, i+1)
	return true
}

// FindTransition returns the transition from src to dst, or nil.
func (l *Layer) FindTransition(src, dst string) *Transition {
	for _, t := range l.transitions {
		if t.Src == src && t.Dst == dst {
			return t
		}
	}
	return nil
}

// TransitionsFrom returns the transitions leaving src in creation order.
func (l *Layer) TransitionsFrom(src string) []*Transition {
	var out []*Transition
	for _, t := range l.transitions {
		if t.Src == src {
			out = append(out, t)
		}
	}
	return out
}

// Transitions returns every transition in creation order.
func (l *Layer) Transitions() []*Transition {
	return slices.Clone(l.transitions)
}

// --- Copying ---

// Clone returns a deep copy of the layer. Arenas are copied slot for slot,
// so handles held by states, nodes and trees remain valid in the copy.
func (l *Layer) Clone() *Layer {
	c := &Layer{
		Name:         l.Name,
		MaskJoints:   slices.Clone(l.MaskJoints),
		MaskExpr:     l.MaskExpr,
		Blending:     l.Blending,
		Weight:       l.Weight,
		states:       make(map[string]*State, len(l.states)),
		order:        slices.Clone(l.order),
		trees:        l.trees.Clone((*BlendTree).clone),
		nodes:        l.nodes.Clone(nil),
		leaves:       l.leaves.Clone(nil),
		transitions:  make([]*Transition, len(l.transitions)),
		defaultState: l.defaultState,
	}
	for name, s := range l.states {
		c.states[name] = s.clone()
	}
	for i, t := range l.transitions {
		c.transitions[i] = t.clone()
	}
	return c
}

// EachLeaf calls fn for every live leaf of the layer.
func (l *Layer) EachLeaf(fn func(NodeRef, *AnimLeaf)) {
	l.leaves.Each(func(h Handle, lf *AnimLeaf) {
		fn(LeafOf(h), lf)
	})
}

// EachBlendTree calls fn for every live blend tree of the layer.
func (l *Layer) EachBlendTree(fn func(Handle, *BlendTree)) {
	l.trees.Each(fn)
}
