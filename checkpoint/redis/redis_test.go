package redis

import (
	"testing"

	"github.com/puntini/puntini/core"
)

// Interface compliance (compile-time assertion)
var _ core.Checkpointer = (*Checkpointer)(nil)

func TestRedisCheckpointer_InterfaceOnly(t *testing.T) {
	// Behavior is covered against a live Redis in integration environments;
	// this file pins the interface contract at compile time.
}
