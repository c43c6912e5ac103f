package core

import "fmt"

// Op identifies a single idempotent graph mutation kind.
type Op string

const (
	// OpAddNode creates a node, merging by (label, key). Re-applying an
	// identical AddNode must not duplicate the node.
	OpAddNode Op = "AddNode"
	// OpUpdateProps merges property values into an existing node.
	OpUpdateProps Op = "UpdateProps"
	// OpAddEdge creates an edge, merging by (source, relation, destination).
	OpAddEdge Op = "AddEdge"
	// OpDelete removes a node (cascading incident edges) or a single edge.
	OpDelete Op = "Delete"
)

// NodeSpec identifies a node by label + key and carries its property map.
// Key is unique within a label.
type NodeSpec struct {
	Label string         `json:"label"`
	Key   string         `json:"key"`
	Props map[string]any `json:"props"`
}

// Ref returns the canonical "<label>:<key>" identity used by the stores.
func (n NodeSpec) Ref() string { return n.Label + ":" + n.Key }

// EdgeSpec identifies a directed edge by source, relation and destination.
type EdgeSpec struct {
	SrcLabel string         `json:"src_label"`
	SrcKey   string         `json:"src_key"`
	Rel      string         `json:"rel"`
	DstLabel string         `json:"dst_label"`
	DstKey   string         `json:"dst_key"`
	Props    map[string]any `json:"props"`
}

// SrcRef returns the canonical identity of the source endpoint.
func (e EdgeSpec) SrcRef() string { return e.SrcLabel + ":" + e.SrcKey }

// DstRef returns the canonical identity of the destination endpoint.
func (e EdgeSpec) DstRef() string { return e.DstLabel + ":" + e.DstKey }

// Ref returns the canonical "<src>|<rel>|<dst>" edge identity.
func (e EdgeSpec) Ref() string {
	return fmt.Sprintf("%s|%s|%s", e.SrcRef(), e.Rel, e.DstRef())
}

// Patch is a single graph mutation instruction. Exactly one of Node or Edge is
// populated per the op's contract (node ops require Node, edge ops require
// Edge, Delete accepts either). Reason carries the free-text justification
// produced by extraction; it is informational only.
//
// The JSON shape is stable wire format:
//
//	{op, node?: {label, key, props}, edge?: {src_label, src_key, rel, dst_label, dst_key, props}, reason}
type Patch struct {
	OpType Op        `json:"op"`
	Node   *NodeSpec `json:"node,omitempty"`
	Edge   *EdgeSpec `json:"edge,omitempty"`
	Reason string    `json:"reason,omitempty"`
}

// IsNodeOp reports whether the patch's op targets a node spec.
func (p Patch) IsNodeOp() bool { return p.OpType == OpAddNode || p.OpType == OpUpdateProps }

// String renders a short human-readable description for logs and errors.
func (p Patch) String() string {
	switch {
	case p.Node != nil:
		return fmt.Sprintf("%s %s", p.OpType, p.Node.Ref())
	case p.Edge != nil:
		return fmt.Sprintf("%s %s", p.OpType, p.Edge.Ref())
	default:
		return string(p.OpType)
	}
}
