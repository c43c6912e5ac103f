package core

import "errors"

var (
	// ErrUnsupportedQueryEngine is returned by GraphStore.Query for dialects
	// the backend cannot execute.
	ErrUnsupportedQueryEngine = errors.New("unsupported query engine")

	// ErrNodeNotFound is returned when an operation references a node absent
	// from the store.
	ErrNodeNotFound = errors.New("node not found")
)
