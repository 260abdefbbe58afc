package compiler

import (
	"errors"
	"fmt"

	"github.com/aretw0/animgraph/pkg/domain"
)

func buildError(p pos, err error) error {
	return &ParseError{Line: p.line, Column: p.col, Msg: err.Error(), Err: err}
}

// build commits a fully parsed draft into a new controller.
func (p *Parser) build(name string, d *controllerDraft) (*domain.Controller, error) {
	c := domain.NewController(name)

	if d.skeleton != "" {
		c.SkeletonGUID = d.skeleton
		if p.skels != nil {
			skel, err := p.skels.LoadSkeleton(d.skeleton)
			if err != nil {
				return nil, buildError(d.skeletonPos, fmt.Errorf("skeleton %q: %w", d.skeleton, err))
			}
			c.SetSkeleton(skel)
		}
	}
	if d.offset != nil {
		c.RootOffset = *d.offset
	}

	for _, pd := range d.params {
		if _, err := c.CreateParameter(pd.name, pd.def); err != nil {
			return nil, buildError(pd.pos, err)
		}
	}

	for _, ld := range d.layers {
		if err := p.buildLayer(c, ld); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (p *Parser) buildLayer(c *domain.Controller, ld *layerDraft) error {
	l := c.BaseLayer()
	if !ld.base {
		var err error
		if l, err = c.CreateLayer(ld.name); err != nil {
			return buildError(ld.pos, err)
		}
		l.Blending = ld.blending
		l.Weight = ld.weight
	}

	if ld.mask != nil {
		l.MaskExpr = *ld.mask
		switch {
		case *ld.mask == "":
			l.SetMask(nil)
		case c.Skeleton == nil:
			p.logger.Warn("mask without skeleton", "controller", c.Name, "layer", l.Name)
		default:
			joints, unknown := c.Skeleton.ResolveMask(*ld.mask)
			if len(unknown) > 0 {
				p.logger.Warn("unknown mask joints", "controller", c.Name, "layer", l.Name, "joints", unknown)
			}
			l.SetMask(joints)
		}
	}

	// States first so transitions may name states declared after them.
	for _, sd := range ld.states {
		if err := p.buildState(c, l, sd); err != nil {
			return err
		}
	}
	for _, td := range ld.transitions {
		if err := p.buildTransition(c, l, td); err != nil {
			return err
		}
	}
	return nil
}

func (p *Parser) acquire(c *domain.Controller, guid string) domain.ClipHandle {
	h := c.AcquireClip(guid, p.clips)
	if !h.Valid() {
		p.logger.Warn("clip not found", "controller", c.Name, "clip", guid)
	}
	return h
}

func (p *Parser) buildState(c *domain.Controller, l *domain.Layer, sd *stateDraft) error {
	s, err := l.CreateState(sd.name)
	if err != nil {
		return buildError(sd.pos, err)
	}
	s.Position = sd.position
	for _, e := range sd.events {
		s.AddEvent(e.Time, e.Name)
	}

	switch {
	case sd.tree != nil:
		h := l.SetStateTree(s, sd.tree.name, sd.tree.typ)
		if err := p.buildTree(c, l, h, sd.tree); err != nil {
			return err
		}
	case sd.clip != nil:
		l.SetStateClip(s, p.acquire(c, *sd.clip))
	}

	if sd.isDefault {
		return l.SetDefaultState(s.Name)
	}
	return nil
}

func (p *Parser) paramIndex(c *domain.Controller, name string) int {
	idx := c.FindParameterIndex(name)
	if idx < 0 && name != "" {
		p.logger.Warn("unknown parameter", "controller", c.Name, "parameter", name)
	}
	return idx
}

func (p *Parser) buildTree(c *domain.Controller, l *domain.Layer, h domain.Handle, td *treeDraft) error {
	for k, name := range td.params {
		if err := l.BindParameter(h, k, p.paramIndex(c, name)); err != nil {
			return buildError(td.pos, err)
		}
	}

	for _, child := range td.children {
		if child.tree == nil {
			if _, err := l.AddChildClip(h, p.acquire(c, child.clip), child.point); err != nil {
				return buildError(td.pos, err)
			}
			continue
		}

		sub := l.CreateBlendTree(child.tree.name, child.tree.typ)
		if err := p.buildTree(c, l, sub, child.tree); err != nil {
			return err
		}
		if _, err := l.AddChildTree(h, sub, child.point); err != nil {
			return buildError(td.pos, err)
		}
	}
	return nil
}

func (p *Parser) buildTransition(c *domain.Controller, l *domain.Layer, td *transitionDraft) error {
	t, err := l.CreateTransition(td.src, td.dst)
	if errors.Is(err, domain.ErrDuplicateTransition) {
		p.logger.Warn("duplicate transition ignored", "controller", c.Name, "layer", l.Name,
			"from", td.src, "to", td.dst, "line", td.line)
		return nil
	}
	if err != nil {
		return buildError(td.pos, err)
	}

	t.Atomic = td.atomic
	t.HasExitTime = td.hasExitTime
	if td.fixed != nil {
		t.FixedDuration = *td.fixed
	}
	if td.exitTime != nil {
		t.ExitTime = *td.exitTime
	}
	if td.startTime != nil {
		t.StartTime = *td.startTime
	}
	if td.duration != nil {
		t.Duration = *td.duration
	}
	for _, cd := range td.conditions {
		idx := p.paramIndex(c, cd.param)
		t.AddCondition(idx, cd.compare, cd.value)
		if idx < 0 {
			t.Conditions[len(t.Conditions)-1].Unbound = cd.param
		}
	}
	return nil
}
