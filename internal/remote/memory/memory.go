// Package memory implements remote.Channel in process. It backs offline mode
// and the tests of the components built on top of the channel. A channel
// created with NewPersistent keeps its documents in a localcache.Cache so the
// offline replica survives restarts.
package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/makstermee/Gym-planner/internal/localcache"
	"github.com/makstermee/Gym-planner/internal/remote"
	"github.com/makstermee/Gym-planner/internal/workout"
)

// ErrClosed is returned by operations on a closed channel.
var ErrClosed = errors.New("memory channel closed")

type subscription struct {
	id       int
	key      string
	canceled atomic.Bool
	onSnap   func(remote.Snapshot)
	onErr    func(error)
}

func (s *subscription) deliver(snap remote.Snapshot) {
	if s.canceled.Load() {
		return
	}
	s.onSnap(snap)
}

func (s *subscription) fail(err error) {
	if s.canceled.Load() || s.onErr == nil {
		return
	}
	s.onErr(err)
}

// Channel is a goroutine-safe in-memory remote. Deliveries are made
// synchronously on the goroutine that caused them.
type Channel struct {
	mu     sync.Mutex
	docs   map[string]workout.Document
	subs   map[int]*subscription
	nextID int
	writes int

	backing localcache.Cache
	loaded  map[string]bool

	writeErr error
}

// New returns an empty channel.
func New() *Channel {
	return &Channel{
		docs: make(map[string]workout.Document),
		subs: make(map[int]*subscription),
	}
}

// NewPersistent returns a channel whose documents are read from and written
// through to backing.
func NewPersistent(backing localcache.Cache) *Channel {
	c := New()
	c.backing = backing
	c.loaded = make(map[string]bool)
	return c
}

var _ remote.Channel = (*Channel)(nil)

// ReadOnce implements remote.Channel.
func (c *Channel) ReadOnce(ctx context.Context, key string) (workout.Document, error) {
	if err := ctx.Err(); err != nil {
		return workout.Document{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.loadLocked(key); err != nil {
		return workout.Document{}, err
	}
	doc, ok := c.docs[key]
	if !ok {
		return workout.Document{}, remote.ErrNotFound
	}
	return doc.Clone(), nil
}

// Subscribe implements remote.Channel. The current state is delivered before
// Subscribe returns. Cancel may be called from inside a callback.
func (c *Channel) Subscribe(ctx context.Context, key string, onSnapshot func(remote.Snapshot), onError func(error)) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	if err := c.loadLocked(key); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.nextID++
	sub := &subscription{id: c.nextID, key: key, onSnap: onSnapshot, onErr: onError}
	c.subs[sub.id] = sub
	snap := c.snapshotLocked(key)
	c.mu.Unlock()

	sub.deliver(snap)

	return func() {
		c.mu.Lock()
		delete(c.subs, sub.id)
		c.mu.Unlock()
		sub.canceled.Store(true)
	}, nil
}

// Write implements remote.Channel.
func (c *Channel) Write(ctx context.Context, key string, doc workout.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	if c.writeErr != nil {
		err := c.writeErr
		c.mu.Unlock()
		return err
	}
	if c.backing != nil {
		if err := c.backing.Set(key, doc); err != nil {
			c.mu.Unlock()
			return err
		}
		c.loaded[key] = true
	}
	c.writes++
	c.docs[key] = doc.Clone()
	snap := c.snapshotLocked(key)
	subs := c.subscribersLocked(key)
	c.mu.Unlock()

	for _, sub := range subs {
		sub.deliver(remote.Snapshot{Document: snap.Document.Clone(), Exists: true})
	}
	return nil
}

// Delete removes the document under key and notifies subscribers.
func (c *Channel) Delete(key string) {
	c.mu.Lock()
	delete(c.docs, key)
	if c.backing != nil {
		_ = c.backing.Clear(key)
		c.loaded[key] = true
	}
	subs := c.subscribersLocked(key)
	c.mu.Unlock()

	for _, sub := range subs {
		sub.deliver(remote.Snapshot{Exists: false})
	}
}

// Put stores doc as if another device had written it.
func (c *Channel) Put(key string, doc workout.Document) {
	c.mu.Lock()
	c.docs[key] = doc.Clone()
	if c.backing != nil {
		_ = c.backing.Set(key, doc)
		c.loaded[key] = true
	}
	subs := c.subscribersLocked(key)
	c.mu.Unlock()

	for _, sub := range subs {
		sub.deliver(remote.Snapshot{Document: doc.Clone(), Exists: true})
	}
}

// Fail delivers err to every subscriber of key.
func (c *Channel) Fail(key string, err error) {
	c.mu.Lock()
	subs := c.subscribersLocked(key)
	c.mu.Unlock()
	for _, sub := range subs {
		sub.fail(err)
	}
}

// SetWriteError makes subsequent writes fail with err. Pass nil to restore.
func (c *Channel) SetWriteError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeErr = err
}

// Writes returns the number of successful writes so far.
func (c *Channel) Writes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes
}

// Subscribers returns the number of open subscriptions on key.
func (c *Channel) Subscribers(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subscribersLocked(key))
}

// loadLocked pulls key from the backing cache the first time it is used.
func (c *Channel) loadLocked(key string) error {
	if c.backing == nil || c.loaded[key] {
		return nil
	}
	doc, ok, err := c.backing.Get(key)
	if err != nil {
		return err
	}
	c.loaded[key] = true
	if ok {
		c.docs[key] = doc
	}
	return nil
}

func (c *Channel) snapshotLocked(key string) remote.Snapshot {
	doc, ok := c.docs[key]
	if !ok {
		return remote.Snapshot{Exists: false}
	}
	return remote.Snapshot{Document: doc.Clone(), Exists: true}
}

func (c *Channel) subscribersLocked(key string) []*subscription {
	var out []*subscription
	for id := 1; id <= c.nextID; id++ {
		if sub, ok := c.subs[id]; ok && sub.key == key {
			out = append(out, sub)
		}
	}
	return out
}
