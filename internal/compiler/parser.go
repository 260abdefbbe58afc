package compiler

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/aretw0/animgraph/internal/logging"
	"github.com/aretw0/animgraph/pkg/domain"
)

// ParseError reports malformed controller text.
type ParseError struct {
	Line   int
	Column int
	Msg    string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Msg)
}

func (e *ParseError) Unwrap() error { return e.Err }

// reader wraps the lexer with one token of lookahead.
type reader struct {
	lex *Lexer
	tok Token
}

func newReader(src []byte) (*reader, error) {
	r := &reader{lex: NewLexer(src)}
	if _, err := r.next(); err != nil {
		return nil, err
	}
	return r, nil
}

// next returns the current token and advances.
func (r *reader) next() (Token, error) {
	cur := r.tok
	tok, err := r.lex.Next()
	if err != nil {
		return cur, err
	}
	r.tok = tok
	return cur, nil
}

func (r *reader) peek() Token {
	return r.tok
}

func errorAt(tok Token, format string, args ...any) error {
	return &ParseError{Line: tok.Line, Column: tok.Column, Msg: fmt.Sprintf(format, args...)}
}

func isWord(tok Token, text string) bool {
	return (tok.Kind == TokenIdent || tok.Kind == TokenPunct) && tok.Text == text
}

// check consumes the next token if it is the given keyword or punctuation.
func (r *reader) check(text string) (bool, error) {
	if !isWord(r.tok, text) {
		return false, nil
	}
	_, err := r.next()
	return err == nil, err
}

func (r *reader) expect(text string) error {
	tok := r.peek()
	ok, err := r.check(text)
	if err != nil {
		return err
	}
	if !ok {
		return errorAt(tok, "expected '%s', found %s", text, tok)
	}
	return nil
}

// name reads an identifier or a quoted string.
func (r *reader) name(what string) (string, Token, error) {
	tok, err := r.next()
	if err != nil {
		return "", tok, err
	}
	if tok.Kind != TokenIdent && tok.Kind != TokenString {
		return "", tok, errorAt(tok, "expected %s, found %s", what, tok)
	}
	return tok.Text, tok, nil
}

func (r *reader) number(what string) (float32, error) {
	tok, err := r.next()
	if err != nil {
		return 0, err
	}
	if tok.Kind != TokenNumber {
		return 0, errorAt(tok, "expected %s, found %s", what, tok)
	}
	v, err := strconv.ParseFloat(tok.Text, 32)
	if err != nil {
		return 0, errorAt(tok, "invalid number %q", tok.Text)
	}
	return float32(v), nil
}

// point reads dims coordinates, optionally wrapped in parentheses.
func (r *reader) point(dims int) (domain.Vec3, error) {
	var p domain.Vec3
	paren, err := r.check("(")
	if err != nil {
		return p, err
	}
	for k := 0; k < dims; k++ {
		if p[k], err = r.number("coordinate"); err != nil {
			return p, err
		}
	}
	if paren {
		if err := r.expect(")"); err != nil {
			return p, err
		}
	}
	return p, nil
}

// block runs fn for every token up to the closing brace of a block whose
// opening brace has already been consumed.
func (r *reader) block(fn func(tok Token) error) error {
	for {
		tok, err := r.next()
		if err != nil {
			return err
		}
		switch {
		case isWord(tok, "}"):
			return nil
		case tok.Kind == TokenEOF:
			return errorAt(tok, "unexpected end of file, expected '}'")
		}
		if err := fn(tok); err != nil {
			return err
		}
	}
}

func unknown(tok Token) error {
	return errorAt(tok, "unknown token '%s'", tok.Text)
}

// Parser compiles controller text into a domain.Controller.
type Parser struct {
	logger *slog.Logger
	clips  domain.ClipLoader
	skels  skeletonLoader
}

type skeletonLoader interface {
	LoadSkeleton(guid string) (*domain.Skeleton, error)
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger sets the logger used for warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) {
		p.logger = logger
	}
}

// WithClips resolves clip guids through loader. Without it every clip
// handle is invalid.
func WithClips(loader domain.ClipLoader) Option {
	return func(p *Parser) {
		p.clips = loader
	}
}

// WithSkeletons resolves the controller's skeleton, which is required to
// resolve layer masks.
func WithSkeletons(loader skeletonLoader) Option {
	return func(p *Parser) {
		p.skels = loader
	}
}

// NewParser creates a new parser instance.
func NewParser(opts ...Option) *Parser {
	p := &Parser{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse compiles src into a controller named name. Parsing is all or
// nothing: on any error no controller is returned.
func (p *Parser) Parse(name string, src []byte) (*domain.Controller, error) {
	draft, err := parseDraft(src)
	if err == nil {
		var ctrl *domain.Controller
		if ctrl, err = p.build(name, draft); err == nil {
			return ctrl, nil
		}
	}
	p.logger.Warn("failed to parse controller", "controller", name, "error", err)
	return nil, fmt.Errorf("controller %q: %w", name, err)
}

func parseDraft(src []byte) (*controllerDraft, error) {
	r, err := newReader(src)
	if err != nil {
		return nil, err
	}
	if err := r.expect("animController"); err != nil {
		return nil, err
	}
	if err := r.expect("{"); err != nil {
		return nil, err
	}

	d := &controllerDraft{}
	hasBase := false
	err = r.block(func(tok Token) error {
		if tok.Kind != TokenIdent {
			return unknown(tok)
		}
		switch tok.Text {
		case "skeleton":
			guid, _, err := r.name("skeleton guid")
			d.skeleton, d.skeletonPos = guid, pos{tok.Line, tok.Column}
			return err
		case "parameter":
			name, _, err := r.name("parameter name")
			if err != nil {
				return err
			}
			def, err := r.number("parameter default")
			d.params = append(d.params, paramDraft{pos: pos{tok.Line, tok.Column}, name: name, def: def})
			return err
		case "baseLayer":
			if hasBase {
				return errorAt(tok, "duplicate baseLayer")
			}
			hasBase = true
			l := &layerDraft{pos: pos{tok.Line, tok.Column}, name: domain.BaseLayerName, base: true, weight: 1}
			d.layers = append(d.layers, l)
			return parseLayer(r, l)
		case "animLayer":
			name, _, err := r.name("layer name")
			if err != nil {
				return err
			}
			l := &layerDraft{pos: pos{tok.Line, tok.Column}, name: name, weight: 1}
			d.layers = append(d.layers, l)
			return parseLayer(r, l)
		case "offset":
			p, err := r.point(3)
			d.offset = &p
			return err
		}
		return unknown(tok)
	})
	if err != nil {
		return nil, err
	}

	if tok := r.peek(); tok.Kind != TokenEOF {
		return nil, errorAt(tok, "unexpected %s after controller", tok)
	}
	return d, nil
}

func parseLayer(r *reader, l *layerDraft) error {
	if err := r.expect("{"); err != nil {
		return err
	}
	return r.block(func(tok Token) error {
		if tok.Kind != TokenIdent {
			return unknown(tok)
		}
		switch tok.Text {
		case "state":
			s, err := parseState(r, tok)
			l.states = append(l.states, s)
			return err
		case "transition":
			t, err := parseTransition(r, tok)
			l.transitions = append(l.transitions, t)
			return err
		}
		if l.base {
			return unknown(tok)
		}

		switch tok.Text {
		case "blending":
			mode, modeTok, err := r.name("blending mode")
			if err != nil {
				return err
			}
			if l.blending, err = domain.ParseBlendMode(mode); err != nil {
				return errorAt(modeTok, "%v", err)
			}
			return nil
		case "weight":
			w, err := r.number("layer weight")
			l.weight = w
			return err
		case "mask":
			expr, err := parseMask(r)
			l.mask = &expr
			return err
		}
		return unknown(tok)
	})
}

// parseMask reads "( terms )" into a mask expression, gluing '-' and '*'
// prefixes onto the joint name that follows them.
func parseMask(r *reader) (string, error) {
	if err := r.expect("("); err != nil {
		return "", err
	}
	var b strings.Builder
	for {
		tok, err := r.next()
		if err != nil {
			return "", err
		}
		switch {
		case isWord(tok, ")"):
			return strings.TrimSpace(b.String()), nil
		case tok.Kind == TokenEOF:
			return "", errorAt(tok, "unexpected end of file in mask")
		case isWord(tok, "-"), isWord(tok, "*"):
			b.WriteString(tok.Text)
		case tok.Kind == TokenIdent, tok.Kind == TokenString:
			b.WriteString(tok.Text)
			b.WriteByte(' ')
		default:
			return "", errorAt(tok, "unexpected %s in mask", tok)
		}
	}
}

func parseBlendType(r *reader) (domain.BlendType, error) {
	kw, tok, err := r.name("blend type")
	if err != nil {
		return 0, err
	}
	typ, err := domain.ParseBlendType(kw)
	if err != nil {
		return 0, errorAt(tok, "%v", err)
	}
	return typ, nil
}

func parseState(r *reader, at Token) (*stateDraft, error) {
	name, _, err := r.name("state name")
	if err != nil {
		return nil, err
	}
	s := &stateDraft{pos: pos{at.Line, at.Column}, name: name}
	if err := r.expect("{"); err != nil {
		return s, err
	}

	err = r.block(func(tok Token) error {
		if tok.Kind != TokenIdent {
			return unknown(tok)
		}
		switch tok.Text {
		case "animClip":
			guid, _, err := r.name("clip guid")
			s.clip, s.tree = &guid, nil
			return err
		case "blendTree":
			tree, err := parseTree(r, tok)
			s.tree, s.clip = tree, nil
			return err
		case "default":
			s.isDefault = true
			return nil
		case "position":
			p, err := r.point(2)
			s.position = domain.Vec2{p[0], p[1]}
			return err
		case "events":
			return parseEvents(r, s)
		}
		return unknown(tok)
	})
	return s, err
}

func parseEvents(r *reader, s *stateDraft) error {
	if err := r.expect("{"); err != nil {
		return err
	}
	return r.block(func(tok Token) error {
		if tok.Kind != TokenIdent && tok.Kind != TokenString {
			return errorAt(tok, "expected event name, found %s", tok)
		}
		t, err := r.number("event time")
		s.events = append(s.events, domain.TimeEvent{Time: t, Name: tok.Text})
		return err
	})
}

// parseTree reads "<name> <type> { ... }" after a blendTree keyword.
func parseTree(r *reader, at Token) (*treeDraft, error) {
	name, _, err := r.name("blend tree name")
	if err != nil {
		return nil, err
	}
	typ, err := parseBlendType(r)
	if err != nil {
		return nil, err
	}
	t := &treeDraft{pos: pos{at.Line, at.Column}, name: name, typ: typ}
	return t, parseTreeBody(r, t)
}

func parseTreeBody(r *reader, t *treeDraft) error {
	if err := r.expect("{"); err != nil {
		return err
	}
	dims := t.typ.Dimensions()

	return r.block(func(tok Token) error {
		if tok.Kind != TokenIdent {
			return unknown(tok)
		}
		switch tok.Text {
		case "parameter":
			t.params = t.params[:0]
			for k := 0; k < dims; k++ {
				name, _, err := r.name("parameter name")
				if err != nil {
					return err
				}
				t.params = append(t.params, name)
			}
			return nil
		case "animClip":
			p, err := r.point(dims)
			if err != nil {
				return err
			}
			guid, _, err := r.name("clip guid")
			t.children = append(t.children, childDraft{point: p, clip: guid})
			return err
		case "blendTree":
			p, err := r.point(dims)
			if err != nil {
				return err
			}
			sub, err := parseTree(r, tok)
			t.children = append(t.children, childDraft{point: p, tree: sub})
			return err
		}
		return unknown(tok)
	})
}

func parseTransition(r *reader, at Token) (*transitionDraft, error) {
	src, _, err := r.name("source state")
	if err != nil {
		return nil, err
	}
	dst, _, err := r.name("destination state")
	if err != nil {
		return nil, err
	}
	t := &transitionDraft{pos: pos{at.Line, at.Column}, src: src, dst: dst}
	if err := r.expect("{"); err != nil {
		return t, err
	}

	number := func(dst **float32, what string) error {
		v, err := r.number(what)
		*dst = &v
		return err
	}

	err = r.block(func(tok Token) error {
		if tok.Kind != TokenIdent {
			return unknown(tok)
		}
		switch tok.Text {
		case "atomic":
			t.atomic = true
			return nil
		case "hasExitTime":
			t.hasExitTime = true
			return nil
		case "fixedDuration":
			fixed := true
			if next := r.peek(); isWord(next, "true") || isWord(next, "false") {
				fixed = next.Text == "true"
				if _, err := r.next(); err != nil {
					return err
				}
			}
			t.fixed = &fixed
			return nil
		case "exitTime":
			return number(&t.exitTime, "exit time")
		case "startTime":
			return number(&t.startTime, "start time")
		case "duration":
			return number(&t.duration, "duration")
		case "condition":
			param, _, err := r.name("parameter name")
			if err != nil {
				return err
			}
			cmpName, cmpTok, err := r.name("comparison")
			if err != nil {
				return err
			}
			cmp, err := domain.ParseCompareFunc(cmpName)
			if err != nil {
				return errorAt(cmpTok, "%v", err)
			}
			v, err := r.number("condition value")
			t.conditions = append(t.conditions, conditionDraft{
				pos:     pos{tok.Line, tok.Column},
				param:   param,
				compare: cmp,
				value:   v,
			})
			return err
		}
		return unknown(tok)
	})
	return t, err
}
