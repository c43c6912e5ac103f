package graphstore

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/puntini/puntini/core"
	"github.com/puntini/puntini/logging"
)

// MemoryStore is a volatile, process-local core.GraphStore. It is safe for
// concurrent access and best suited for tests, demos and single-process
// deployments that can tolerate losing the graph on restart.
//
// Transactionality policy (non-transactional): each patch in a batch applies
// independently. A failing patch is recorded in UpsertResult.Errors and the
// remaining patches still apply; AppliedCount reports the partial total and
// Success stays true. Per-patch failures are data, not a batch failure.
//
// Missing-endpoint policy: an AddEdge whose endpoint does not exist in the
// store at apply time is reported as an error, never a silent no-op.
type MemoryStore struct {
	mu       sync.RWMutex
	nodes    map[string]*memNode
	edges    map[string]*memEdge
	incident map[string]map[string]struct{} // node ref -> set of edge refs
	logger   logging.Logger
}

type memNode struct {
	label string
	key   string
	props map[string]any
}

type memEdge struct {
	src   string
	rel   string
	dst   string
	props map[string]any
}

// MemoryStoreOptions configures a MemoryStore.
type MemoryStoreOptions struct {
	Logger logging.Logger
}

// NewMemoryStore constructs an empty in-memory graph store.
func NewMemoryStore(optFns ...func(o *MemoryStoreOptions)) *MemoryStore {
	opts := MemoryStoreOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &MemoryStore{
		nodes:    make(map[string]*memNode),
		edges:    make(map[string]*memEdge),
		incident: make(map[string]map[string]struct{}),
		logger:   opts.Logger,
	}
}

// Upsert applies the batch under the non-transactional policy documented on
// MemoryStore.
func (s *MemoryStore) Upsert(ctx context.Context, patches []core.Patch) (*core.UpsertResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res := &core.UpsertResult{Success: true}
	for i, patch := range patches {
		if err := s.applyLocked(patch); err != nil {
			msg := fmt.Sprintf("patch %d (%s): %v", i, patch.String(), err)
			res.Errors = append(res.Errors, msg)
			s.logger.Warn("graphstore: %s", msg)
			continue
		}
		res.AppliedCount++
	}
	return res, nil
}

func (s *MemoryStore) applyLocked(patch core.Patch) error {
	switch patch.OpType {
	case core.OpAddNode:
		if patch.Node == nil {
			return fmt.Errorf("AddNode requires a node spec")
		}
		ref := patch.Node.Ref()
		existing, ok := s.nodes[ref]
		if !ok {
			existing = &memNode{label: patch.Node.Label, key: patch.Node.Key, props: map[string]any{}}
			s.nodes[ref] = existing
		}
		// Merge-then-set: properties present in the patch refresh the node.
		for k, v := range patch.Node.Props {
			existing.props[k] = v
		}
		return nil

	case core.OpUpdateProps:
		if patch.Node == nil {
			return fmt.Errorf("UpdateProps requires a node spec")
		}
		ref := patch.Node.Ref()
		existing, ok := s.nodes[ref]
		if !ok {
			return fmt.Errorf("%w: %s", core.ErrNodeNotFound, ref)
		}
		for k, v := range patch.Node.Props {
			existing.props[k] = v
		}
		return nil

	case core.OpAddEdge:
		if patch.Edge == nil {
			return fmt.Errorf("AddEdge requires an edge spec")
		}
		srcRef, dstRef := patch.Edge.SrcRef(), patch.Edge.DstRef()
		if _, ok := s.nodes[srcRef]; !ok {
			return fmt.Errorf("%w: source %s", core.ErrNodeNotFound, srcRef)
		}
		if _, ok := s.nodes[dstRef]; !ok {
			return fmt.Errorf("%w: destination %s", core.ErrNodeNotFound, dstRef)
		}
		ref := patch.Edge.Ref()
		existing, ok := s.edges[ref]
		if !ok {
			existing = &memEdge{src: srcRef, rel: patch.Edge.Rel, dst: dstRef, props: map[string]any{}}
			s.edges[ref] = existing
			s.addIncidentLocked(srcRef, ref)
			s.addIncidentLocked(dstRef, ref)
		}
		for k, v := range patch.Edge.Props {
			existing.props[k] = v
		}
		return nil

	case core.OpDelete:
		switch {
		case patch.Node != nil:
			s.deleteNodeLocked(patch.Node.Ref())
			return nil
		case patch.Edge != nil:
			s.deleteEdgeLocked(patch.Edge.Ref())
			return nil
		default:
			return fmt.Errorf("Delete requires a node or edge spec")
		}

	default:
		return fmt.Errorf("unknown op %q", patch.OpType)
	}
}

func (s *MemoryStore) addIncidentLocked(nodeRef, edgeRef string) {
	set, ok := s.incident[nodeRef]
	if !ok {
		set = make(map[string]struct{})
		s.incident[nodeRef] = set
	}
	set[edgeRef] = struct{}{}
}

// deleteNodeLocked removes the node and cascades removal of incident edges.
// Deleting an absent node is an idempotent no-op.
func (s *MemoryStore) deleteNodeLocked(ref string) {
	if _, ok := s.nodes[ref]; !ok {
		return
	}
	for edgeRef := range s.incident[ref] {
		s.deleteEdgeLocked(edgeRef)
	}
	delete(s.incident, ref)
	delete(s.nodes, ref)
}

func (s *MemoryStore) deleteEdgeLocked(ref string) {
	edge, ok := s.edges[ref]
	if !ok {
		return
	}
	delete(s.edges, ref)
	if set, ok := s.incident[edge.src]; ok {
		delete(set, ref)
	}
	if set, ok := s.incident[edge.dst]; ok {
		delete(set, ref)
	}
}

// Query supports only the minimal "keys" dialect: raw is a node-ref prefix
// (e.g. "Project:") or "*" for all nodes. Cypher and nGQL are rejected with
// core.ErrUnsupportedQueryEngine.
func (s *MemoryStore) Query(ctx context.Context, raw string, engine core.QueryEngine) ([]map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if engine != core.QueryEngineKeys {
		return nil, fmt.Errorf("%w: %s", core.ErrUnsupportedQueryEngine, engine)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []map[string]any
	for ref, node := range s.nodes {
		if raw != "*" && !strings.HasPrefix(ref, raw) {
			continue
		}
		props := make(map[string]any, len(node.props))
		for k, v := range node.props {
			props[k] = v
		}
		rows = append(rows, map[string]any{
			"id":    ref,
			"label": node.label,
			"key":   node.key,
			"props": props,
		})
	}
	return rows, nil
}

// Health reports the current graph size; an in-memory store is always healthy.
func (s *MemoryStore) Health(ctx context.Context) (*core.HealthStatus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &core.HealthStatus{
		Status: "healthy",
		Nodes:  int64(len(s.nodes)),
		Edges:  int64(len(s.edges)),
	}, nil
}

// NodeCount returns the number of nodes currently stored.
func (s *MemoryStore) NodeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// EdgeCount returns the number of edges currently stored.
func (s *MemoryStore) EdgeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.edges)
}

// NodeProps returns a copy of a node's property map and whether it exists.
func (s *MemoryStore) NodeProps(ref string) (map[string]any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	node, ok := s.nodes[ref]
	if !ok {
		return nil, false
	}
	props := make(map[string]any, len(node.props))
	for k, v := range node.props {
		props[k] = v
	}
	return props, true
}
