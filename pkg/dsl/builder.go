package dsl

import (
	"fmt"
	"strings"

	"github.com/aretw0/animgraph/internal/compiler"
	"github.com/aretw0/animgraph/internal/textfmt"
	"github.com/aretw0/animgraph/pkg/adapters/memory"
	"github.com/aretw0/animgraph/pkg/domain"
	"github.com/aretw0/animgraph/pkg/ports"
)

type param struct {
	name string
	def  float32
}

// Builder collects the definition of one controller.
type Builder struct {
	name     string
	skeleton string
	params   []param
	offset   *domain.Vec3
	base     *LayerBuilder
	layers   []*LayerBuilder
}

// New starts a controller named name.
func New(name string) *Builder {
	b := &Builder{name: name}
	b.base = &LayerBuilder{builder: b, base: true}
	return b
}

// Name returns the controller name.
func (b *Builder) Name() string {
	return b.name
}

// Skeleton sets the skeleton guid.
func (b *Builder) Skeleton(guid string) *Builder {
	b.skeleton = guid
	return b
}

// Param declares a parameter with its default value.
func (b *Builder) Param(name string, def float32) *Builder {
	b.params = append(b.params, param{name: name, def: def})
	return b
}

// Offset sets the root offset.
func (b *Builder) Offset(x, y, z float32) *Builder {
	b.offset = &domain.Vec3{x, y, z}
	return b
}

// Base returns the base layer.
func (b *Builder) Base() *LayerBuilder {
	return b.base
}

// Layer returns the named layer, creating it on first use. Layers keep
// the order in which they were first requested.
func (b *Builder) Layer(name string) *LayerBuilder {
	for _, l := range b.layers {
		if l.name == name {
			return l
		}
	}
	l := &LayerBuilder{builder: b, name: name, blending: domain.BlendOverride, weight: 1}
	b.layers = append(b.layers, l)
	return l
}

// Source renders the controller in the text format.
func (b *Builder) Source() string {
	var sb strings.Builder
	w := textfmt.New(&sb)
	w.Open("animController")
	if b.skeleton != "" {
		w.Line("skeleton %s", textfmt.Quote(b.skeleton))
	}
	for _, p := range b.params {
		w.Line("parameter %s %s", textfmt.Quote(p.name), textfmt.Num(p.def))
	}
	if b.offset != nil {
		w.Line("offset ( %s %s %s )", textfmt.Num(b.offset[0]), textfmt.Num(b.offset[1]), textfmt.Num(b.offset[2]))
	}

	w.Open("baseLayer")
	b.base.write(w)
	w.Close()
	for _, l := range b.layers {
		w.Open("animLayer %s", textfmt.Quote(l.name))
		w.Line("blending %s", l.blending)
		w.Line("weight %s", textfmt.Num(l.weight))
		if l.mask != nil {
			w.Line("mask ( %s )", strings.Join(l.mask, " "))
		}
		l.write(w)
		w.Close()
	}
	w.Close()
	return sb.String()
}

// Build compiles the controller, resolving clips and the skeleton through
// assets. A nil assets leaves clips unresolved.
func (b *Builder) Build(assets ports.AssetSource) (*domain.Controller, error) {
	var opts []compiler.Option
	if assets != nil {
		opts = append(opts, compiler.WithClips(assets), compiler.WithSkeletons(assets))
	}
	ctrl, err := compiler.NewParser(opts...).Parse(b.name, []byte(b.Source()))
	if err != nil {
		return nil, fmt.Errorf("failed to build controller %s: %w", b.name, err)
	}
	return ctrl, nil
}

// Loader returns a definition loader serving the rendered source of every
// builder under its controller name.
func Loader(builders ...*Builder) *memory.Loader {
	defs := make(map[string]string, len(builders))
	for _, b := range builders {
		defs[b.name] = b.Source()
	}
	return memory.NewLoader(defs)
}

// LayerBuilder configures one layer.
type LayerBuilder struct {
	builder     *Builder
	base        bool
	name        string
	blending    domain.BlendMode
	weight      float32
	mask        []string
	states      []*StateBuilder
	transitions []*TransitionBuilder
}

// Blending sets how the layer combines with the layers below it. Ignored on
// the base layer.
func (l *LayerBuilder) Blending(mode domain.BlendMode) *LayerBuilder {
	l.blending = mode
	return l
}

// Weight sets the layer weight. Ignored on the base layer.
func (l *LayerBuilder) Weight(w float32) *LayerBuilder {
	l.weight = w
	return l
}

// Mask sets the mask terms: a joint name, "*name" for the joint and its
// descendants, or a leading "-" to remove. Ignored on the base layer.
func (l *LayerBuilder) Mask(terms ...string) *LayerBuilder {
	l.mask = append([]string{}, terms...)
	return l
}

// State returns the named state, creating it on first use.
func (l *LayerBuilder) State(name string) *StateBuilder {
	for _, s := range l.states {
		if s.name == name {
			return s
		}
	}
	s := &StateBuilder{layer: l, name: name}
	l.states = append(l.states, s)
	return s
}

// Transition adds a transition from src to dst.
func (l *LayerBuilder) Transition(src, dst string) *TransitionBuilder {
	t := &TransitionBuilder{layer: l, src: src, dst: dst}
	l.transitions = append(l.transitions, t)
	return t
}

// End returns the controller builder.
func (l *LayerBuilder) End() *Builder {
	return l.builder
}

func (l *LayerBuilder) write(w *textfmt.Writer) {
	for _, s := range l.states {
		s.write(w)
	}
	for _, t := range l.transitions {
		t.write(w)
	}
}
