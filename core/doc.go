// Package core contains the domain contracts shared by every other package:
// the request-scoped WorkflowState and its typed update/merge rules, the Patch
// wire types describing graph mutations, the GraphStore and Checkpointer
// interfaces, and the escalation signal types.
//
// Keeping the contracts here (and only here) prevents higher-level packages
// (engine, session, tool) from depending on concrete storage or provider
// implementations; wiring happens in the root package and cmd/.
package core
