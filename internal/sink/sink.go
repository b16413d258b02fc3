// Package sink publishes what a run changed in the dataset to external
// observability backends.
package sink

import (
	"context"

	"github.com/Boakye-20/charity-compliance-tracker/internal/store"
)

// Sink is the minimal interface all sinks must implement.
type Sink interface {
	Name() string
	Push(ctx context.Context, changes []store.Change) error
}
