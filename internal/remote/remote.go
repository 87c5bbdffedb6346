// Package remote defines the push-based replica of the user document.
//
// Implementations live in the subpackages: memory (in process), redisdoc
// (Redis GET/SET with PUBLISH/SUBSCRIBE notifications) and mongodoc (MongoDB
// with change streams).
package remote

import (
	"context"
	"errors"

	"github.com/makstermee/Gym-planner/internal/workout"
)

// ErrNotFound reports that no document exists under the key.
var ErrNotFound = errors.New("remote document not found")

// Snapshot is one push delivery. Exists is false when the document was
// deleted or was never written.
type Snapshot struct {
	Document workout.Document
	Exists   bool
}

// Channel is a keyed document store that pushes changes to subscribers.
type Channel interface {
	// ReadOnce fetches the current document. It returns ErrNotFound when the
	// key holds no document.
	ReadOnce(ctx context.Context, key string) (workout.Document, error)

	// Subscribe delivers the current state of key once and then every change
	// until the returned cancel function is called. Callbacks may run on any
	// goroutine, and one already in flight may still complete after cancel
	// returns. Cancel must not block.
	Subscribe(ctx context.Context, key string, onSnapshot func(Snapshot), onError func(error)) (cancel func(), err error)

	// Write replaces the document under key. Writes are idempotent and the
	// last write wins.
	Write(ctx context.Context, key string, doc workout.Document) error
}

// Key returns the per-user document key.
func Key(identity string) string {
	return "users/" + identity + "/data/user_state"
}
