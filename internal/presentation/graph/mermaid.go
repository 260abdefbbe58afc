package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/animgraph/pkg/domain"
)

// Overlay marks runtime state on the diagram.
type Overlay struct {
	// Current maps layer names to the state on top of their stack.
	Current map[string]string
	// Blending lists, per layer, the states still fading out.
	Blending map[string][]string
}

// OverlayFromSnapshot builds an overlay from an animator snapshot.
func OverlayFromSnapshot(snap *domain.Snapshot) *Overlay {
	o := &Overlay{Current: map[string]string{}, Blending: map[string][]string{}}
	for _, l := range snap.Layers {
		for i, b := range l.Blenders {
			if i == 0 {
				o.Current[l.Name] = b.State
				continue
			}
			o.Blending[l.Name] = append(o.Blending[l.Name], b.State)
		}
	}
	return o
}

// GenerateMermaid renders a controller as a Mermaid stateDiagram-v2 with one
// composite state per layer. The default state is entered from [*], blend
// tree states are labelled with their tree, and transitions carry their
// conditions and crossfade duration. Overlay styles are applied if provided.
func GenerateMermaid(c *domain.Controller, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("stateDiagram-v2\n")

	for _, l := range c.Layers() {
		lid := sanitizeMermaidID(l.Name)
		fmt.Fprintf(&sb, "    state %q as %s {\n", layerLabel(l), lid)

		if def := l.DefaultState(); def != nil {
			fmt.Fprintf(&sb, "        [*] --> %s\n", stateID(l, def.Name))
		}
		for _, s := range l.States() {
			fmt.Fprintf(&sb, "        %s : %s\n", stateID(l, s.Name), stateLabel(l, s))
		}
		for _, t := range l.Transitions() {
			fmt.Fprintf(&sb, "        %s --> %s : %s\n", stateID(l, t.Src), stateID(l, t.Dst), transitionLabel(c, t))
		}
		sb.WriteString("    }\n")
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef blending fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000\n")

		for _, l := range c.Layers() {
			for _, name := range overlay.Blending[l.Name] {
				if l.FindState(name) != nil {
					fmt.Fprintf(&sb, "    class %s blending\n", stateID(l, name))
				}
			}
			if name, ok := overlay.Current[l.Name]; ok && l.FindState(name) != nil {
				fmt.Fprintf(&sb, "    class %s current\n", stateID(l, name))
			}
		}
	}

	return sb.String()
}

func layerLabel(l *domain.Layer) string {
	if l.Name == domain.BaseLayerName {
		return l.Name
	}
	return fmt.Sprintf("%s (%s %.2g)", l.Name, l.Blending, l.Weight)
}

func stateLabel(l *domain.Layer, s *domain.State) string {
	label := s.Name
	if s.HasTree() {
		if t, err := l.BlendTree(s.Tree); err == nil {
			label = fmt.Sprintf("%s [%s %s]", s.Name, t.Type, t.Name)
		}
	} else if s.Clip.GUID != "" {
		label = fmt.Sprintf("%s [%s]", s.Name, s.Clip.GUID)
	}
	for _, e := range s.Events {
		label += fmt.Sprintf(" @%s=%.2g", e.Name, e.Time)
	}
	return strings.ReplaceAll(label, ":", "#58;")
}

var compareSymbols = map[domain.CompareFunc]string{
	domain.CompareGT: ">",
	domain.CompareGE: ">=",
	domain.CompareLT: "<",
	domain.CompareLE: "<=",
	domain.CompareEQ: "==",
}

func transitionLabel(c *domain.Controller, t *domain.Transition) string {
	var parts []string
	for _, cond := range t.Conditions {
		name := "?"
		if p, ok := c.Parameter(cond.Parameter); ok {
			name = p.Name
		}
		parts = append(parts, fmt.Sprintf("%s %s %g", name, compareSymbols[cond.Compare], cond.Value))
	}
	if t.HasExitTime {
		parts = append(parts, fmt.Sprintf("exit %g", t.ExitTime))
	}
	label := strings.Join(parts, " and ")
	if label == "" {
		label = "always"
	}

	dur := fmt.Sprintf("%gs", t.Duration)
	if !t.FixedDuration {
		dur = fmt.Sprintf("%g%%", t.Duration*100)
	}
	label += " / " + dur
	if t.Atomic {
		label += " atomic"
	}
	return strings.ReplaceAll(label, ":", "#58;")
}

func stateID(l *domain.Layer, state string) string {
	return sanitizeMermaidID(l.Name + "__" + state)
}

func sanitizeMermaidID(id string) string {
	r := strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_")
	return r.Replace(id)
}
