package dsl

import (
	"strings"

	"github.com/aretw0/animgraph/internal/textfmt"
	"github.com/aretw0/animgraph/pkg/domain"
)

// StateBuilder configures one state.
type StateBuilder struct {
	layer    *LayerBuilder
	name     string
	clip     string
	tree     *TreeBuilder
	isDef    bool
	position *domain.Vec2
	events   []domain.TimeEvent
}

// Clip makes the state play a single clip.
func (s *StateBuilder) Clip(guid string) *StateBuilder {
	s.clip, s.tree = guid, nil
	return s
}

// Tree makes the state play a blend tree and returns it.
func (s *StateBuilder) Tree(name string, typ domain.BlendType) *TreeBuilder {
	s.clip = ""
	s.tree = &TreeBuilder{state: s, name: name, typ: typ}
	return s.tree
}

// Default makes the state the layer's default.
func (s *StateBuilder) Default() *StateBuilder {
	for _, other := range s.layer.states {
		other.isDef = false
	}
	s.isDef = true
	return s
}

// Position sets the editor position.
func (s *StateBuilder) Position(x, y float32) *StateBuilder {
	s.position = &domain.Vec2{x, y}
	return s
}

// Event fires name when the state's normalized time crosses t.
func (s *StateBuilder) Event(name string, t float32) *StateBuilder {
	s.events = append(s.events, domain.TimeEvent{Time: t, Name: name})
	return s
}

// Layer returns the owning layer.
func (s *StateBuilder) Layer() *LayerBuilder {
	return s.layer
}

func (s *StateBuilder) write(w *textfmt.Writer) {
	w.Open("state %s", textfmt.Quote(s.name))
	if s.position != nil {
		w.Line("position %s %s", textfmt.Num(s.position[0]), textfmt.Num(s.position[1]))
	}
	if s.isDef {
		w.Line("default")
	}
	switch {
	case s.tree != nil:
		w.Open("blendTree %s %s", textfmt.Quote(s.tree.name), s.tree.typ)
		s.tree.write(w)
		w.Close()
	case s.clip != "":
		w.Line("animClip %s", textfmt.Quote(s.clip))
	}
	if len(s.events) > 0 {
		w.Open("events")
		for _, e := range s.events {
			w.Line("%s %s", textfmt.Quote(e.Name), textfmt.Num(e.Time))
		}
		w.Close()
	}
	w.Close()
}

type treeChild struct {
	point []float32
	clip  string
	tree  *TreeBuilder
}

// TreeBuilder configures a blend tree.
type TreeBuilder struct {
	state    *StateBuilder
	parent   *TreeBuilder
	name     string
	typ      domain.BlendType
	params   []string
	children []treeChild
}

// Params binds the tree's blend dimensions to parameters, in order.
func (t *TreeBuilder) Params(names ...string) *TreeBuilder {
	t.params = append([]string{}, names...)
	return t
}

// Clip adds a clip child at point.
func (t *TreeBuilder) Clip(guid string, point ...float32) *TreeBuilder {
	t.children = append(t.children, treeChild{point: point, clip: guid})
	return t
}

// Tree adds a nested blend tree child at point and returns it.
func (t *TreeBuilder) Tree(name string, typ domain.BlendType, point ...float32) *TreeBuilder {
	sub := &TreeBuilder{state: t.state, parent: t, name: name, typ: typ}
	t.children = append(t.children, treeChild{point: point, tree: sub})
	return sub
}

// Up returns the parent tree, or t itself at the root.
func (t *TreeBuilder) Up() *TreeBuilder {
	if t.parent == nil {
		return t
	}
	return t.parent
}

// State returns the state owning the tree.
func (t *TreeBuilder) State() *StateBuilder {
	return t.state
}

func (t *TreeBuilder) coords(p []float32) string {
	return textfmt.Coords(p, t.typ.Dimensions())
}

func (t *TreeBuilder) write(w *textfmt.Writer) {
	if len(t.params) > 0 {
		names := make([]string, len(t.params))
		for i, p := range t.params {
			names[i] = textfmt.Quote(p)
		}
		w.Line("parameter %s", strings.Join(names, " "))
	}
	for _, c := range t.children {
		if c.tree == nil {
			w.Line("animClip %s %s", t.coords(c.point), textfmt.Quote(c.clip))
			continue
		}
		w.Open("blendTree %s %s %s", t.coords(c.point), textfmt.Quote(c.tree.name), c.tree.typ)
		c.tree.write(w)
		w.Close()
	}
}
