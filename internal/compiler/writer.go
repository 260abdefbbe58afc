package compiler

import (
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/animgraph/internal/textfmt"
	"github.com/aretw0/animgraph/pkg/domain"
)

func coords(p domain.Vec3, dims int) string {
	return textfmt.Coords(p[:], dims)
}

// Write emits c in the text format read by Parser. A condition whose
// parameter is neither declared nor named fails the write.
func Write(w io.Writer, c *domain.Controller) error {
	tw := textfmt.New(w)

	tw.Open("animController")
	if c.SkeletonGUID != "" {
		tw.Line("skeleton %s", textfmt.Quote(c.SkeletonGUID))
	}
	for _, p := range c.Parameters() {
		tw.Line("parameter %s %s", textfmt.Quote(p.Name), textfmt.Num(p.Default))
	}
	if c.RootOffset != (domain.Vec3{}) {
		tw.Line("offset %s", coords(c.RootOffset, 3))
	}

	for i, l := range c.Layers() {
		if i == 0 {
			tw.Open("baseLayer")
		} else {
			tw.Open("animLayer %s", textfmt.Quote(l.Name))
			tw.Line("blending %s", l.Blending)
			tw.Line("weight %s", textfmt.Num(l.Weight))
			switch mask, ok := maskText(c, l); {
			case !ok:
			case mask == "":
				tw.Line("mask ( )")
			default:
				tw.Line("mask ( %s )", mask)
			}
		}
		writeLayer(tw, c, l)
		tw.Close()
	}

	tw.Close()
	return tw.Err()
}

// maskText returns the mask expression of l and whether l has a mask at
// all. A nil mask covers every joint; an empty one covers none.
func maskText(c *domain.Controller, l *domain.Layer) (string, bool) {
	if l.MaskExpr != "" {
		return l.MaskExpr, true
	}
	if l.MaskJoints == nil {
		return "", false
	}
	if c.Skeleton == nil {
		return "", true
	}
	names := make([]string, 0, len(l.MaskJoints))
	for _, j := range l.MaskJoints {
		if j >= 0 && j < c.Skeleton.NumJoints() {
			names = append(names, c.Skeleton.Joints[j].Name)
		}
	}
	return strings.Join(names, " "), true
}

func writeLayer(tw *textfmt.Writer, c *domain.Controller, l *domain.Layer) {
	for _, s := range l.States() {
		tw.Open("state %s", textfmt.Quote(s.Name))
		tw.Line("position %s %s", textfmt.Num(s.Position[0]), textfmt.Num(s.Position[1]))
		if l.DefaultStateName() == s.Name {
			tw.Line("default")
		}
		if s.HasTree() {
			if t, err := l.BlendTree(s.Tree); err == nil {
				tw.Open("blendTree %s %s", textfmt.Quote(t.Name), t.Type)
				writeTree(tw, c, l, t)
				tw.Close()
			}
		} else if s.Clip.GUID != "" {
			tw.Line("animClip %s", textfmt.Quote(s.Clip.GUID))
		}
		if len(s.Events) > 0 {
			tw.Open("events")
			for _, e := range s.Events {
				tw.Line("%s %s", textfmt.Quote(e.Name), textfmt.Num(e.Time))
			}
			tw.Close()
		}
		tw.Close()
	}

	for _, t := range l.Transitions() {
		tw.Open("transition %s %s", textfmt.Quote(t.Src), textfmt.Quote(t.Dst))
		for _, cond := range t.Conditions {
			name := cond.Unbound
			if p, ok := c.Parameter(cond.Parameter); ok {
				name = p.Name
			}
			if name == "" {
				tw.Fail(fmt.Errorf("transition %s -> %s: condition on %w: index %d",
					t.Src, t.Dst, domain.ErrParameterNotFound, cond.Parameter))
				continue
			}
			tw.Line("condition %s %s %s", textfmt.Quote(name), cond.Compare, textfmt.Num(cond.Value))
		}
		if t.Atomic {
			tw.Line("atomic")
		}
		if t.HasExitTime {
			tw.Line("hasExitTime")
		}
		tw.Line("fixedDuration %t", t.FixedDuration)
		tw.Line("exitTime %s", textfmt.Num(t.ExitTime))
		tw.Line("startTime %s", textfmt.Num(t.StartTime))
		tw.Line("duration %s", textfmt.Num(t.Duration))
		tw.Close()
	}
}

func writeTree(tw *textfmt.Writer, c *domain.Controller, l *domain.Layer, t *domain.BlendTree) {
	dims := t.Type.Dimensions()

	names := make([]string, dims)
	for k := range names {
		p, _ := c.Parameter(t.Parameters[k])
		names[k] = textfmt.Quote(p.Name)
	}
	tw.Line("parameter %s", strings.Join(names, " "))

	for _, ref := range t.Children() {
		switch ref.Kind {
		case domain.NodeKindLeaf:
			lf, err := l.Leaf(ref)
			if err != nil {
				continue
			}
			tw.Line("animClip %s %s", coords(lf.Point, dims), textfmt.Quote(lf.Clip.GUID))
		case domain.NodeKindNode:
			n, err := l.Node(ref)
			if err != nil {
				continue
			}
			sub, err := l.BlendTree(n.Tree)
			if err != nil {
				continue
			}
			tw.Open("blendTree %s %s %s", coords(n.Point, dims), textfmt.Quote(sub.Name), sub.Type)
			writeTree(tw, c, l, sub)
			tw.Close()
		}
	}
}
