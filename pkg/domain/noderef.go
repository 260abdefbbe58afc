package domain

import "fmt"

// NodeKind tags what a NodeRef points at.
type NodeKind uint8

const (
	NodeKindNone NodeKind = iota
	NodeKindNode          // interior node owning a child blend tree
	NodeKindLeaf          // terminal point referencing a clip
)

func (k NodeKind) String() string {
	switch k {
	case NodeKindNode:
		return "node"
	case NodeKindLeaf:
		return "leaf"
	default:
		return "none"
	}
}

// NodeRef references a child of a blend tree: either an AnimNode or an AnimLeaf
// in the owning layer's arenas.
type NodeRef struct {
	Kind   NodeKind `json:"kind"`
	Handle Handle   `json:"handle"`
}

// NodeOf references an interior node.
func NodeOf(h Handle) NodeRef { return NodeRef{Kind: NodeKindNode, Handle: h} }

// LeafOf references a leaf.
func LeafOf(h Handle) NodeRef { return NodeRef{Kind: NodeKindLeaf, Handle: h} }

func (r NodeRef) IsNode() bool { return r.Kind == NodeKindNode }
func (r NodeRef) IsLeaf() bool { return r.Kind == NodeKindLeaf }
func (r NodeRef) IsNone() bool { return r.Kind == NodeKindNone }

func (r NodeRef) String() string {
	return fmt.Sprintf("%s(%s)", r.Kind, r.Handle)
}

// AnimNode is an interior blend-space point that owns a child blend tree.
type AnimNode struct {
	Point Vec3
	Tree  Handle
}

// AnimLeaf is a terminal blend-space point sampling one clip.
type AnimLeaf struct {
	Point Vec3
	Clip  ClipHandle
}

// ClipHandle identifies a clip loaded through a clip source.
// The zero value is an invalid handle.
type ClipHandle struct {
	GUID string `json:"guid"`
	slot int
}

// NewClipHandle builds a valid handle for the clip stored at index by a clip source.
func NewClipHandle(guid string, index int) ClipHandle {
	return ClipHandle{GUID: guid, slot: index + 1}
}

// InvalidClip returns an invalid handle that remembers which guid failed to resolve.
func InvalidClip(guid string) ClipHandle {
	return ClipHandle{GUID: guid}
}

// Valid reports whether the clip resolved.
func (h ClipHandle) Valid() bool { return h.slot > 0 }

// Index returns the clip source's index for h, or -1 when invalid.
func (h ClipHandle) Index() int { return h.slot - 1 }
