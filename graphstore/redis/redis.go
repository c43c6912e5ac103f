// Package redis implements the persistent, transactional core.GraphStore
// backend on Redis.
//
// Transactionality policy (transactional): the whole batch is first staged
// against a snapshot of the store, checking every patch in order, and only a
// fully valid batch is written, in a single
// TxPipeline EXEC. Any single patch failure aborts the batch before anything
// is written: the result reports Success=false and AppliedCount=0.
//
// Missing-endpoint policy: an AddEdge whose endpoint neither pre-exists in
// the store nor is created earlier in the same batch fails the whole batch.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/puntini/puntini/core"
	"github.com/puntini/puntini/logging"
)

const (
	nodeKeyPrefix     = "graph:node:"
	edgeKeyPrefix     = "graph:edge:"
	incidentKeyPrefix = "graph:incident:"
	nodeIndexKey      = "graph:nodes"
	edgeIndexKey      = "graph:edges"
	propFieldPrefix   = "prop:"
)

// Options configures the Redis graph store.
type Options struct {
	Logger logging.Logger
}

// Store is the transactional Redis-backed core.GraphStore.
type Store struct {
	client *redis.Client
	logger logging.Logger
}

// New connects to Redis via a redis:// URL, verifies the connection with a
// ping and returns the store.
func New(ctx context.Context, url string, optFns ...func(o *Options)) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewFromClient(client, optFns...), nil
}

// NewFromClient wraps an existing Redis client.
func NewFromClient(client *redis.Client, optFns ...func(o *Options)) *Store {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Store{client: client, logger: opts.Logger}
}

// Upsert applies the batch under the transactional policy documented on the
// package.
func (s *Store) Upsert(ctx context.Context, patches []core.Patch) (*core.UpsertResult, error) {
	if len(patches) == 0 {
		return &core.UpsertResult{Success: true}, nil
	}

	stage, errs, err := s.stage(ctx, patches)
	if err != nil {
		return nil, err
	}
	if len(errs) > 0 {
		s.logger.Warn("graphstore(redis): batch aborted with %d errors", len(errs))
		return &core.UpsertResult{Success: false, AppliedCount: 0, Errors: errs}, nil
	}

	pipe := s.client.TxPipeline()
	for _, op := range stage.writes {
		op(pipe)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to apply batch: %w", err)
	}
	return &core.UpsertResult{Success: true, AppliedCount: len(patches)}, nil
}

// staged accumulates the write closures plus the simulated existence state
// built while checking the batch.
type staged struct {
	nodes  map[string]bool // ref -> exists after patches so far
	edges  map[string]bool
	writes []func(redis.Pipeliner)
}

func (s *Store) stage(ctx context.Context, patches []core.Patch) (*staged, []string, error) {
	st := &staged{nodes: map[string]bool{}, edges: map[string]bool{}}
	var errs []string

	for i, patch := range patches {
		if err := s.stagePatch(ctx, st, patch); err != nil {
			errs = append(errs, fmt.Sprintf("patch %d (%s): %v", i, patch.String(), err))
		}
	}
	return st, errs, ctx.Err()
}

func (s *Store) stagePatch(ctx context.Context, st *staged, patch core.Patch) error {
	switch patch.OpType {
	case core.OpAddNode:
		if patch.Node == nil {
			return fmt.Errorf("AddNode requires a node spec")
		}
		ref := patch.Node.Ref()
		node := *patch.Node
		st.nodes[ref] = true
		st.writes = append(st.writes, func(pipe redis.Pipeliner) {
			pipe.HSet(ctx, nodeKeyPrefix+ref, nodeFields(node)...)
			pipe.SAdd(ctx, nodeIndexKey, ref)
		})
		return nil

	case core.OpUpdateProps:
		if patch.Node == nil {
			return fmt.Errorf("UpdateProps requires a node spec")
		}
		ref := patch.Node.Ref()
		exists, err := s.nodeExists(ctx, st, ref)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: %s", core.ErrNodeNotFound, ref)
		}
		node := *patch.Node
		st.writes = append(st.writes, func(pipe redis.Pipeliner) {
			pipe.HSet(ctx, nodeKeyPrefix+ref, propFields(node.Props)...)
		})
		return nil

	case core.OpAddEdge:
		if patch.Edge == nil {
			return fmt.Errorf("AddEdge requires an edge spec")
		}
		edge := *patch.Edge
		for _, endpoint := range []struct{ role, ref string }{
			{"source", edge.SrcRef()},
			{"destination", edge.DstRef()},
		} {
			exists, err := s.nodeExists(ctx, st, endpoint.ref)
			if err != nil {
				return err
			}
			if !exists {
				return fmt.Errorf("%w: %s %s", core.ErrNodeNotFound, endpoint.role, endpoint.ref)
			}
		}
		ref := edge.Ref()
		st.edges[ref] = true
		st.writes = append(st.writes, func(pipe redis.Pipeliner) {
			pipe.HSet(ctx, edgeKeyPrefix+ref, edgeFields(edge)...)
			pipe.SAdd(ctx, edgeIndexKey, ref)
			pipe.SAdd(ctx, incidentKeyPrefix+edge.SrcRef(), ref)
			pipe.SAdd(ctx, incidentKeyPrefix+edge.DstRef(), ref)
		})
		return nil

	case core.OpDelete:
		switch {
		case patch.Node != nil:
			return s.stageDeleteNode(ctx, st, patch.Node.Ref())
		case patch.Edge != nil:
			edge := *patch.Edge
			ref := edge.Ref()
			st.edges[ref] = false
			st.writes = append(st.writes, func(pipe redis.Pipeliner) {
				pipe.Del(ctx, edgeKeyPrefix+ref)
				pipe.SRem(ctx, edgeIndexKey, ref)
				pipe.SRem(ctx, incidentKeyPrefix+edge.SrcRef(), ref)
				pipe.SRem(ctx, incidentKeyPrefix+edge.DstRef(), ref)
			})
			return nil
		default:
			return fmt.Errorf("Delete requires a node or edge spec")
		}

	default:
		return fmt.Errorf("unknown op %q", patch.OpType)
	}
}

// stageDeleteNode stages removal of the node plus cascading removal of its
// incident edges. Deleting an absent node is an idempotent no-op.
func (s *Store) stageDeleteNode(ctx context.Context, st *staged, ref string) error {
	incident, err := s.client.SMembers(ctx, incidentKeyPrefix+ref).Result()
	if err != nil {
		return fmt.Errorf("failed to read incident edges: %w", err)
	}
	st.nodes[ref] = false
	for _, edgeRef := range incident {
		st.edges[edgeRef] = false
	}
	edgeRefs := incident
	st.writes = append(st.writes, func(pipe redis.Pipeliner) {
		for _, edgeRef := range edgeRefs {
			pipe.Del(ctx, edgeKeyPrefix+edgeRef)
			pipe.SRem(ctx, edgeIndexKey, edgeRef)
		}
		pipe.Del(ctx, incidentKeyPrefix+ref)
		pipe.Del(ctx, nodeKeyPrefix+ref)
		pipe.SRem(ctx, nodeIndexKey, ref)
	})
	return nil
}

// nodeExists consults the simulated batch state first, then the store.
func (s *Store) nodeExists(ctx context.Context, st *staged, ref string) (bool, error) {
	if exists, seen := st.nodes[ref]; seen {
		return exists, nil
	}
	n, err := s.client.Exists(ctx, nodeKeyPrefix+ref).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check node existence: %w", err)
	}
	exists := n > 0
	st.nodes[ref] = exists
	return exists, nil
}

func nodeFields(node core.NodeSpec) []any {
	fields := []any{"label", node.Label, "key", node.Key}
	return append(fields, propFields(node.Props)...)
}

func edgeFields(edge core.EdgeSpec) []any {
	fields := []any{
		"src", edge.SrcRef(),
		"rel", edge.Rel,
		"dst", edge.DstRef(),
	}
	return append(fields, propFields(edge.Props)...)
}

// propFields JSON-encodes each property into its own hash field so HSet gives
// merge-then-set semantics per property.
func propFields(props map[string]any) []any {
	fields := make([]any, 0, len(props)*2)
	for k, v := range props {
		encoded, err := json.Marshal(v)
		if err != nil {
			encoded = []byte(fmt.Sprintf("%q", fmt.Sprint(v)))
		}
		fields = append(fields, propFieldPrefix+k, string(encoded))
	}
	return fields
}

// Query supports only the minimal "keys" dialect: raw is a node-ref prefix or
// "*". Cypher and nGQL are rejected with core.ErrUnsupportedQueryEngine.
func (s *Store) Query(ctx context.Context, raw string, engine core.QueryEngine) ([]map[string]any, error) {
	if engine != core.QueryEngineKeys {
		return nil, fmt.Errorf("%w: %s", core.ErrUnsupportedQueryEngine, engine)
	}

	refs, err := s.client.SMembers(ctx, nodeIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}

	var rows []map[string]any
	for _, ref := range refs {
		if raw != "*" && !strings.HasPrefix(ref, raw) {
			continue
		}
		fields, err := s.client.HGetAll(ctx, nodeKeyPrefix+ref).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read node %s: %w", ref, err)
		}
		props := map[string]any{}
		for field, value := range fields {
			if !strings.HasPrefix(field, propFieldPrefix) {
				continue
			}
			var decoded any
			if err := json.Unmarshal([]byte(value), &decoded); err != nil {
				decoded = value
			}
			props[strings.TrimPrefix(field, propFieldPrefix)] = decoded
		}
		rows = append(rows, map[string]any{
			"id":    ref,
			"label": fields["label"],
			"key":   fields["key"],
			"props": props,
		})
	}
	return rows, nil
}

// Health pings Redis and reports node/edge counts.
func (s *Store) Health(ctx context.Context) (*core.HealthStatus, error) {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return &core.HealthStatus{Status: "unhealthy", Detail: err.Error()}, nil
	}
	nodes, err := s.client.SCard(ctx, nodeIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to count nodes: %w", err)
	}
	edges, err := s.client.SCard(ctx, edgeIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to count edges: %w", err)
	}
	return &core.HealthStatus{Status: "healthy", Nodes: nodes, Edges: edges}, nil
}
