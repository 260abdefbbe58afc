package compiler

import "github.com/aretw0/animgraph/pkg/domain"

// The parser reads the whole text into these drafts first. Nothing touches a
// controller until every draft parsed, so a malformed state or transition
// never leaves a partial graph behind.

type pos struct {
	line, col int
}

type controllerDraft struct {
	skeleton    string
	skeletonPos pos
	params      []paramDraft
	layers      []*layerDraft
	offset      *domain.Vec3
}

type paramDraft struct {
	pos
	name string
	def  float32
}

type layerDraft struct {
	pos
	name        string
	base        bool
	blending    domain.BlendMode
	weight      float32
	mask        *string
	states      []*stateDraft
	transitions []*transitionDraft
}

type stateDraft struct {
	pos
	name      string
	clip      *string
	tree      *treeDraft
	isDefault bool
	position  domain.Vec2
	events    []domain.TimeEvent
}

type treeDraft struct {
	pos
	name     string
	typ      domain.BlendType
	params   []string
	children []childDraft
}

type childDraft struct {
	point domain.Vec3
	clip  string
	tree  *treeDraft
}

type transitionDraft struct {
	pos
	src, dst    string
	atomic      bool
	hasExitTime bool
	fixed       *bool
	exitTime    *float32
	startTime   *float32
	duration    *float32
	conditions  []conditionDraft
}

type conditionDraft struct {
	pos
	param   string
	compare domain.CompareFunc
	value   float32
}
