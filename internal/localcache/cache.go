// Package localcache keeps the last known user document on the device so the
// app can render before the remote replica answers.
package localcache

import "github.com/makstermee/Gym-planner/internal/workout"

// Cache is a keyed document cache. Get reports ok=false when nothing is
// stored under key.
type Cache interface {
	Get(key string) (doc workout.Document, ok bool, err error)
	Set(key string, doc workout.Document) error
	Clear(key string) error
}
