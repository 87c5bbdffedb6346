// Package event provides an ordered, asynchronous fan-out used by the core
// components to notify the view layer.
package event

import "sync"

type subscriber[T any] struct {
	id int
	fn func(T)
}

// Bus delivers published values to every subscriber, in publish order, on a
// single goroutine owned by the bus. Publish never blocks and never runs
// subscriber code on the caller's goroutine.
type Bus[T any] struct {
	mu     sync.Mutex
	subs   []subscriber[T]
	nextID int
	queue  []T
	closed bool

	wake chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
}

// NewBus starts the delivery goroutine. Call Close to stop it.
func NewBus[T any]() *Bus[T] {
	b := &Bus[T]{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	b.wg.Add(1)
	go b.run()
	return b
}

// Subscribe registers fn and returns a function that removes it.
func (b *Bus[T]) Subscribe(fn func(T)) (cancel func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscriber[T]{id: id, fn: fn})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, sub := range b.subs {
			if sub.id == id {
				b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// Publish queues v for delivery. It is a no-op after Close.
func (b *Bus[T]) Publish(v T) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.queue = append(b.queue, v)
	b.mu.Unlock()

	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// Close stops delivery and waits for the delivery goroutine to exit. Queued
// values that were not delivered yet are dropped. Close must not be called
// from a subscriber.
func (b *Bus[T]) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.queue = nil
	b.mu.Unlock()

	close(b.done)
	b.wg.Wait()
}

func (b *Bus[T]) run() {
	defer b.wg.Done()
	for {
		select {
		case <-b.done:
			return
		case <-b.wake:
		}
		for b.deliverNext() {
		}
	}
}

func (b *Bus[T]) deliverNext() bool {
	b.mu.Lock()
	if b.closed || len(b.queue) == 0 {
		b.mu.Unlock()
		return false
	}
	v := b.queue[0]
	var zero T
	b.queue[0] = zero
	b.queue = b.queue[1:]
	subs := make([]subscriber[T], len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, sub := range subs {
		sub.fn(v)
	}
	return true
}
