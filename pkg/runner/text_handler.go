package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aretw0/animgraph/pkg/domain"
	"github.com/aretw0/animgraph/pkg/observability"
)

// ContentRenderer transforms markdown before it is written, e.g. into ANSI.
type ContentRenderer func(string) (string, error)

// TextHandler writes a human readable trace.
type TextHandler struct {
	Reader   *bufio.Reader
	Writer   io.Writer
	Renderer ContentRenderer
	// Quiet suppresses frames and keeps failures and the summary.
	Quiet bool
}

// TextHandlerOption defines configuration for TextHandler.
type TextHandlerOption func(*TextHandler)

// WithTextHandlerRenderer configures the renderer used for the summary.
func WithTextHandlerRenderer(renderer ContentRenderer) TextHandlerOption {
	return func(h *TextHandler) {
		h.Renderer = renderer
	}
}

// WithQuiet suppresses per-frame output.
func WithQuiet(quiet bool) TextHandlerOption {
	return func(h *TextHandler) {
		h.Quiet = quiet
	}
}

// NewTextHandler creates a handler reading answers from r and writing to w.
func NewTextHandler(r io.Reader, w io.Writer, opts ...TextHandlerOption) *TextHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	h := &TextHandler{Reader: bufio.NewReader(r), Writer: w}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Frame writes one line per layer and one per event:
//
//	[#1] t=0.100
//	  Base Layer: Move 0.00 <- Idle
//	  + transition Base Layer: Idle -> Move (0.25s)
func (h *TextHandler) Frame(ctx context.Context, f Frame) error {
	if h.Quiet {
		return nil
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] t=%.3f\n", f.Name, f.Time)
	for _, l := range f.Layers {
		if len(l.Blenders) == 0 {
			fmt.Fprintf(&sb, "  %s: -\n", l.Name)
			continue
		}
		top := l.Blenders[0]
		fmt.Fprintf(&sb, "  %s: %s %.2f", l.Name, top.State, top.NormalizedTime)
		for _, b := range l.Blenders[1:] {
			fmt.Fprintf(&sb, " <- %s", b.State)
		}
		sb.WriteString("\n")
	}
	for _, e := range f.Events {
		if line := eventLine(e); line != "" {
			fmt.Fprintf(&sb, "  + %s\n", line)
		}
	}
	_, err := io.WriteString(h.Writer, sb.String())
	return err
}

func eventLine(e observability.Event) string {
	switch {
	case e.Transition != nil:
		t := e.Transition
		from := t.From
		if from == "" {
			from = "(empty)"
		}
		line := fmt.Sprintf("transition %s: %s -> %s (%gs)", t.Layer, from, t.To, t.Duration)
		if t.Atomic {
			line += " atomic"
		}
		return line
	case e.TimeEvent != nil:
		return fmt.Sprintf("event %q in %s at %g (weight %.2f)", e.TimeEvent.Name, e.TimeEvent.State, e.TimeEvent.Time, e.TimeEvent.Weight)
	case e.State != nil && e.Type == domain.EventStateExit:
		return fmt.Sprintf("exit %s: %s", e.State.Layer, e.State.State)
	}
	return ""
}

// SystemOutput writes msg on its own line with a [System] prefix.
func (h *TextHandler) SystemOutput(ctx context.Context, msg string) error {
	_, err := fmt.Fprintf(h.Writer, "[System] %s\n", msg)
	return err
}

// Input prompts with "> " and reads one line.
func (h *TextHandler) Input(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fmt.Fprint(h.Writer, "> ")

	type result struct {
		text string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		text, err := h.Reader.ReadString('\n')
		if text != "" && err == io.EOF {
			err = nil
		}
		ch <- result{strings.TrimSpace(text), err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		return res.text, res.err
	}
}

// Summary writes the result as markdown, through the renderer if set.
func (h *TextHandler) Summary(ctx context.Context, r *Result) error {
	var sb strings.Builder
	status := "PASS"
	if !r.Passed() {
		status = "FAIL"
	}
	fmt.Fprintf(&sb, "## %s: %s\n\n", r.Scenario, status)
	fmt.Fprintf(&sb, "- **Frames**: %d\n", r.Frames)
	fmt.Fprintf(&sb, "- **Time**: %.3fs\n", r.Time)
	for _, l := range r.Snapshot.Layers {
		state := "-"
		if len(l.Blenders) > 0 {
			state = l.Blenders[0].State
		}
		fmt.Fprintf(&sb, "- **%s**: %s\n", l.Name, state)
	}
	for _, f := range r.Failures {
		fmt.Fprintf(&sb, "- step %s: %s\n", f.Name, f.Message)
	}

	out := sb.String()
	if h.Renderer != nil {
		if rendered, err := h.Renderer(out); err == nil {
			out = rendered
		}
	}
	_, err := fmt.Fprintln(h.Writer, strings.TrimSpace(out))
	return err
}
