package validator

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/aretw0/animgraph/pkg/domain"
	"github.com/aretw0/animgraph/pkg/ports"
)

// Severity ranks an issue.
type Severity int

const (
	Warning Severity = iota
	Error
)

func (s Severity) String() string {
	if s == Error {
		return "error"
	}
	return "warning"
}

// Issue is one finding about a controller.
type Issue struct {
	Severity Severity `json:"severity"`
	Layer    string   `json:"layer,omitempty"`
	State    string   `json:"state,omitempty"`
	Message  string   `json:"message"`
}

func (i Issue) String() string {
	var where []string
	if i.Layer != "" {
		where = append(where, "layer "+quoteName(i.Layer))
	}
	if i.State != "" {
		where = append(where, "state "+quoteName(i.State))
	}
	if len(where) == 0 {
		return fmt.Sprintf("%s: %s", i.Severity, i.Message)
	}
	return fmt.Sprintf("%s: %s: %s", i.Severity, strings.Join(where, " "), i.Message)
}

func quoteName(s string) string { return fmt.Sprintf("%q", s) }

// Report collects the issues found in one controller.
type Report struct {
	Controller string  `json:"controller"`
	Issues     []Issue `json:"issues"`
}

func (r *Report) add(sev Severity, layer, state, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{Severity: sev, Layer: layer, State: state, Message: fmt.Sprintf(format, args...)})
}

// Errors returns only the error-level issues.
func (r *Report) Errors() []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Severity == Error {
			out = append(out, i)
		}
	}
	return out
}

// Err returns a *ValidationError when the report has error-level issues.
func (r *Report) Err() error {
	errs := r.Errors()
	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Controller: r.Controller, Issues: errs}
}

// ValidationError is returned for controllers with error-level issues.
type ValidationError struct {
	Controller string
	Issues     []Issue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 1 {
		return fmt.Sprintf("%s: %s", e.Controller, e.Issues[0])
	}
	msg := fmt.Sprintf("%s: %d validation errors:\n", e.Controller, len(e.Issues))
	for i, issue := range e.Issues {
		msg += fmt.Sprintf("  %d. %s\n", i+1, issue)
	}
	return msg
}

// ValidateController checks a compiled controller for states that can never
// play, unresolved clips, unbound blend parameters and masks that select
// nothing.
func ValidateController(c *domain.Controller) *Report {
	r := &Report{Controller: c.Name}
	if c.SkeletonGUID != "" && c.Skeleton == nil {
		r.add(Warning, "", "", "skeleton %q is not resolved, poses stay empty", c.SkeletonGUID)
	}
	for _, l := range c.Layers() {
		validateLayer(r, c, l)
	}
	return r
}

func validateLayer(r *Report, c *domain.Controller, l *domain.Layer) {
	states := l.States()
	if len(states) == 0 {
		r.add(Warning, l.Name, "", "layer has no states")
		return
	}

	if l != c.BaseLayer() && l.MaskExpr != "" && len(l.MaskJoints) == 0 {
		r.add(Warning, l.Name, "", "mask %q selects no joints", l.MaskExpr)
	}

	start := l.DefaultState()
	if start == nil {
		start = states[0]
		r.add(Warning, l.Name, "", "no default state, %q is used", start.Name)
	}

	for _, s := range states {
		validateState(r, c, l, s)
	}

	for _, t := range l.Transitions() {
		if t.Src == t.Dst {
			r.add(Warning, l.Name, t.Src, "transition loops back to itself")
		}
		if len(t.Conditions) == 0 && !t.HasExitTime {
			r.add(Warning, l.Name, t.Src, "transition to %q has no condition and no exit time, so it fires on every update", t.Dst)
		}
		for _, cond := range t.Conditions {
			if _, ok := c.Parameter(cond.Parameter); !ok {
				r.add(Error, l.Name, t.Src, "transition to %q tests an unknown parameter", t.Dst)
			}
		}
	}

	for _, name := range unreachable(l, start.Name) {
		r.add(Warning, l.Name, name, "state is unreachable from %q", start.Name)
	}
}

func validateState(r *Report, c *domain.Controller, l *domain.Layer, s *domain.State) {
	for _, e := range s.Events {
		if e.Time < 0 || e.Time > 1 {
			r.add(Warning, l.Name, s.Name, "event %q at %v is outside [0, 1]", e.Name, e.Time)
		}
	}

	if !s.HasTree() {
		if s.Clip.GUID != "" && !s.Clip.Valid() {
			r.add(Error, l.Name, s.Name, "clip %q not found", s.Clip.GUID)
		}
		return
	}

	t, err := l.BlendTree(s.Tree)
	if err != nil {
		r.add(Error, l.Name, s.Name, "blend tree: %v", err)
		return
	}
	validateTree(r, c, l, s, t, 0)
}

func validateTree(r *Report, c *domain.Controller, l *domain.Layer, s *domain.State, t *domain.BlendTree, depth int) {
	if depth > l.NumBlendTrees() {
		r.add(Error, l.Name, s.Name, "blend tree %q contains itself", t.Name)
		return
	}
	if t.NumChildren() == 0 {
		r.add(Warning, l.Name, s.Name, "blend tree %q has no children", t.Name)
	}
	for k := 0; k < t.Type.Dimensions(); k++ {
		if _, ok := c.Parameter(t.Parameters[k]); !ok {
			r.add(Error, l.Name, s.Name, "blend tree %q has no parameter bound to dimension %d", t.Name, k+1)
		}
	}

	for _, ref := range t.Children() {
		switch ref.Kind {
		case domain.NodeKindLeaf:
			lf, err := l.Leaf(ref)
			if err != nil {
				r.add(Error, l.Name, s.Name, "blend tree %q: %v", t.Name, err)
				continue
			}
			if !lf.Clip.Valid() {
				r.add(Error, l.Name, s.Name, "blend tree %q: clip %q not found", t.Name, lf.Clip.GUID)
			}
		case domain.NodeKindNode:
			n, err := l.Node(ref)
			if err != nil {
				r.add(Error, l.Name, s.Name, "blend tree %q: %v", t.Name, err)
				continue
			}
			sub, err := l.BlendTree(n.Tree)
			if err != nil {
				r.add(Error, l.Name, s.Name, "blend tree %q: %v", t.Name, err)
				continue
			}
			validateTree(r, c, l, s, sub, depth+1)
		}
	}
}

// unreachable crawls transitions from start and returns the states never visited.
func unreachable(l *domain.Layer, start string) []string {
	visited := map[string]bool{}
	queue := []string{start}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if visited[current] {
			continue
		}
		visited[current] = true
		for _, t := range l.TransitionsFrom(current) {
			if !visited[t.Dst] {
				queue = append(queue, t.Dst)
			}
		}
	}

	var out []string
	for _, s := range l.States() {
		if !visited[s.Name] {
			out = append(out, s.Name)
		}
	}
	return out
}

// Compiler turns a named definition into a controller.
type Compiler func(name string, src []byte) (*domain.Controller, error)

// ValidateAll compiles and validates every definition of loader. Parse
// failures become single error-level issues. The returned error joins the
// error-level findings of every controller.
func ValidateAll(loader ports.DefinitionLoader, compile Compiler) ([]*Report, error) {
	names, err := loader.ListDefinitions()
	if err != nil {
		return nil, fmt.Errorf("failed to list definitions: %w", err)
	}
	slices.Sort(names)

	var reports []*Report
	var errs []error
	for _, name := range names {
		r := validateDefinition(loader, compile, name)
		reports = append(reports, r)
		if err := r.Err(); err != nil {
			errs = append(errs, err)
		}
	}
	return reports, errors.Join(errs...)
}

func validateDefinition(loader ports.DefinitionLoader, compile Compiler, name string) *Report {
	src, err := loader.GetDefinition(name)
	if err != nil {
		r := &Report{Controller: name}
		r.add(Error, "", "", "load: %v", err)
		return r
	}
	c, err := compile(name, src)
	if err != nil {
		r := &Report{Controller: name}
		r.add(Error, "", "", "%v", err)
		return r
	}
	return ValidateController(c)
}
