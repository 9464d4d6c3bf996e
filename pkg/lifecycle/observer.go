package lifecycle

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Operation names a mutating lifecycle operation.
type Operation string

// Observed operations.
const (
	OpCreate        Operation = "create"
	OpDelete        Operation = "delete"
	OpUpdateAliases Operation = "update_aliases"
	OpUpdateMapping Operation = "update_mapping"
	OpReset         Operation = "reset"
)

// Event describes one finished operation.
type Event struct {
	ID        uuid.UUID
	Operation Operation
	Cluster   string
	// Index is the canonical name of the definition.
	Index string
	// Target is the physical index the operation addressed.
	Target    string
	Suffix    string
	Err       error
	StartedAt time.Time
	Duration  time.Duration
}

// Outcome is "success" or "error".
func (e Event) Outcome() string {
	if e.Err != nil {
		return "error"
	}
	return "success"
}

// Observer receives an Event after every mutating operation, whatever its
// outcome. Observe must not block for long; it runs on the caller's
// goroutine.
type Observer interface {
	Observe(ctx context.Context, e Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, e Event)

// Observe calls f.
func (f ObserverFunc) Observe(ctx context.Context, e Event) {
	f(ctx, e)
}
