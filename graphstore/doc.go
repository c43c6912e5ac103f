// Package graphstore houses concrete implementations of core.GraphStore.
// The interface itself lives in the core package to centralize domain
// contracts; keeping only implementations here prevents higher level packages
// (engine, session) from depending on concrete storage.
//
// Two backends ship with different transactionality policies:
//
//   - MemoryStore (this package): volatile, non-transactional. Patches apply
//     independently; a later failure does not undo earlier successes.
//   - redis.Store (sub-package): persistent, transactional. The whole batch
//     applies in one all-or-nothing pipeline.
//
// Additional backends (Neo4j, Postgres, ...) belong in sub-packages without
// changing any calling code; only the wiring layer decides which
// implementation to instantiate.
package graphstore
