package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/animgraph/pkg/domain"
	"github.com/aretw0/animgraph/pkg/ports"
)

// InspectMarkdown describes a controller as a markdown document: parameters,
// then per layer its blending, mask, states and transitions. When clips is
// non-nil, state durations at the default parameter values are included.
func InspectMarkdown(c *domain.Controller, clips ports.ClipSource) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", c.Name)

	skel := "none"
	if c.Skeleton != nil {
		skel = fmt.Sprintf("`%s` (%d joints)", c.Skeleton.GUID, c.Skeleton.NumJoints())
	} else if c.SkeletonGUID != "" {
		skel = fmt.Sprintf("`%s` (missing)", c.SkeletonGUID)
	}
	fmt.Fprintf(&b, "- **Skeleton**: %s\n", skel)
	if c.RootOffset != (domain.Vec3{}) {
		fmt.Fprintf(&b, "- **Root offset**: %g %g %g\n", c.RootOffset[0], c.RootOffset[1], c.RootOffset[2])
	}
	fmt.Fprintf(&b, "- **Clips**: %d\n\n", len(c.Clips()))

	if params := c.Parameters(); len(params) > 0 {
		b.WriteString("## Parameters\n\n| Name | Default |\n|---|---|\n")
		for _, p := range params {
			fmt.Fprintf(&b, "| %s | %g |\n", p.Name, p.Default)
		}
		b.WriteString("\n")
	}

	defaults := c.Defaults()
	for _, l := range c.Layers() {
		fmt.Fprintf(&b, "## Layer: %s\n\n", l.Name)
		if l.Name != domain.BaseLayerName {
			fmt.Fprintf(&b, "- **Blending**: %s\n- **Weight**: %g\n", l.Blending, l.Weight)
		}
		fmt.Fprintf(&b, "- **Mask**: %s\n\n", maskText(c, l))

		if states := l.States(); len(states) > 0 {
			b.WriteString("| State | Motion | Duration | Events |\n|---|---|---|---|\n")
			for _, s := range states {
				name := s.Name
				if s.Name == l.DefaultStateName() {
					name += " *(default)*"
				}
				fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", name, motionText(l, s), durationText(l, s, defaults, clips), eventsText(s))
			}
			b.WriteString("\n")
		}

		if trs := l.Transitions(); len(trs) > 0 {
			b.WriteString("| From | To | Conditions | Blend |\n|---|---|---|---|\n")
			for _, t := range trs {
				fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", t.Src, t.Dst, conditionsText(c, t), blendText(t))
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

func maskText(c *domain.Controller, l *domain.Layer) string {
	if l.MaskJoints == nil {
		return "all joints"
	}
	if len(l.MaskJoints) == 0 {
		return "no joints"
	}
	if c.Skeleton == nil {
		return fmt.Sprintf("%d joints", len(l.MaskJoints))
	}
	names := make([]string, 0, len(l.MaskJoints))
	for _, j := range l.MaskJoints {
		if j >= 0 && j < c.Skeleton.NumJoints() {
			names = append(names, c.Skeleton.Joints[j].Name)
		}
	}
	return strings.Join(names, ", ")
}

func motionText(l *domain.Layer, s *domain.State) string {
	if s.HasTree() {
		t, err := l.BlendTree(s.Tree)
		if err != nil {
			return "invalid tree"
		}
		return fmt.Sprintf("%s `%s` (%d children)", t.Type, t.Name, t.NumChildren())
	}
	if s.Clip.GUID == "" {
		return "-"
	}
	if !s.Clip.Valid() {
		return fmt.Sprintf("`%s` (missing)", s.Clip.GUID)
	}
	return fmt.Sprintf("`%s`", s.Clip.GUID)
}

func durationText(l *domain.Layer, s *domain.State, params []float32, clips ports.ClipSource) string {
	if clips == nil {
		return "-"
	}
	var d float32
	for _, lw := range l.StateLeaves(s, params, nil) {
		d += lw.Weight * clips.ClipLength(lw.Clip)
	}
	return fmt.Sprintf("%.3gs", d)
}

func eventsText(s *domain.State) string {
	if len(s.Events) == 0 {
		return "-"
	}
	parts := make([]string, len(s.Events))
	for i, e := range s.Events {
		parts[i] = fmt.Sprintf("%s@%g", e.Name, e.Time)
	}
	return strings.Join(parts, ", ")
}

func conditionsText(c *domain.Controller, t *domain.Transition) string {
	var parts []string
	for _, cond := range t.Conditions {
		name := "?"
		if p, ok := c.Parameter(cond.Parameter); ok {
			name = p.Name
		}
		parts = append(parts, fmt.Sprintf("%s %s %g", name, cond.Compare, cond.Value))
	}
	if t.HasExitTime {
		parts = append(parts, fmt.Sprintf("exit time %g", t.ExitTime))
	}
	if len(parts) == 0 {
		return "always"
	}
	return strings.Join(parts, " and ")
}

func blendText(t *domain.Transition) string {
	s := fmt.Sprintf("%gs", t.Duration)
	if !t.FixedDuration {
		s = fmt.Sprintf("%g× destination", t.Duration)
	}
	if t.StartTime != 0 {
		s += fmt.Sprintf(", start %g", t.StartTime)
	}
	if t.Atomic {
		s += ", atomic"
	}
	return s
}
