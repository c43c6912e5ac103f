package core

import "context"

// QueryEngine names the raw query dialect handed to GraphStore.Query.
type QueryEngine string

const (
	QueryEngineCypher QueryEngine = "cypher"
	QueryEngineNGQL   QueryEngine = "ngql"
	// QueryEngineKeys is the minimal key-pattern dialect the bundled
	// backends support natively.
	QueryEngineKeys QueryEngine = "keys"
)

// UpsertResult reports the outcome of applying a patch batch.
//
// Backend policies differ and are documented on each implementation:
// transactional backends report AppliedCount=0 whenever any patch fails;
// non-transactional backends report a partial AppliedCount with the failures
// accumulated in Errors.
type UpsertResult struct {
	Success      bool     `json:"success"`
	AppliedCount int      `json:"applied_count"`
	Errors       []string `json:"errors,omitempty"`
}

// HealthStatus reports a store's connectivity and size.
type HealthStatus struct {
	Status string `json:"status"`
	Nodes  int64  `json:"nodes"`
	Edges  int64  `json:"edges"`
	Detail string `json:"detail,omitempty"`
}

// GraphStore applies idempotent patch batches to a property graph.
//
// Idempotency contract:
//   - AddNode merges by (label, key): re-applying an identical AddNode never
//     duplicates the node but refreshes any properties present in the patch
//     (merge-then-set).
//   - AddEdge merges by (source, relation, destination) and requires both
//     endpoints to already exist at apply time.
//   - Delete on a node cascades removal of incident edges.
type GraphStore interface {
	// Upsert applies the batch under the backend's transactionality policy.
	Upsert(ctx context.Context, patches []Patch) (*UpsertResult, error)

	// Query executes a raw query in the named dialect. Backends that do not
	// speak the dialect return ErrUnsupportedQueryEngine.
	Query(ctx context.Context, raw string, engine QueryEngine) ([]map[string]any, error)

	// Health reports connectivity plus node/edge counts.
	Health(ctx context.Context) (*HealthStatus, error)
}

// Checkpointer persists WorkflowState snapshots keyed by caller-supplied
// thread id so a later Process call can resume instead of reinitializing.
type Checkpointer interface {
	Save(ctx context.Context, threadID string, state *WorkflowState) error
	// Load returns (nil, false, nil) when no checkpoint exists for the id.
	Load(ctx context.Context, threadID string) (*WorkflowState, bool, error)
	Delete(ctx context.Context, threadID string) error
}
