// Package state keeps the user document consistent across memory, the local
// cache and the remote channel.
//
// # Overview
//
// A Store is bound to one identity at a time. Binding loads the cached copy
// so the UI can render immediately, then opens the remote subscription. The
// first snapshot decides the document; local edits made before it arrives
// stay local and are replaced by it.
//
//	Bind(identity)
//	  ├─ cache.Get → Document          (EventHydrated)
//	  ├─ phase = AwaitingFirstSnapshot
//	  └─ remote.Subscribe
//	        first snapshot ─────────→ phase = Synced (EventRemoteChanged)
//	        not found      ─────────→ Default(), phase = Synced, one write
//
// # Write Path
//
// Update applies a function to a copy of the document. A failing function
// leaves the document as it was. Committed edits go to the cache right away.
// Remote writes are gated on the phase:
//
//	AwaitingFirstSnapshot: nothing is written, View.Blocked is set
//	Synced:                the debounce timer is (re)armed; on expiry the
//	                       current document is written once
//
// Writes are serialized. A failed write keeps the edit, leaves the write
// pending and surfaces ErrRemoteWriteFailed; Flush retries it.
//
// # Snapshots After The First
//
// While no local edit is pending a snapshot replaces the document. While one
// is pending (debounce armed, write in flight, or last write failed) the
// snapshot is dropped: the pending write carries the newer document and the
// channel is last-write-wins. A snapshot reporting the document as missing
// schedules a write of the in-memory copy.
//
// # Errors And Recovery
//
// Subscription errors surface as ErrRemoteReadFailed. The last good document
// is kept and the subscription is reopened after calculateBackoff, which
// doubles from ResubscribeBase up to 30s.
//
// # Concurrency Model
//
// Every entry point and every remote callback runs under one mutex. Each
// binding has a generation number; callbacks and timers carry the generation
// they were created for and return early once it is stale, so nothing from a
// previous identity can touch the next one. Events are published on an
// event.Bus and delivered on the bus goroutine, so listeners can call back
// into the store.
//
// # Usage Example
//
//	store := state.New(state.Options{Remote: ch, Cache: cache})
//	defer store.Close()
//	store.OnChange(func(ev state.Event) { ... })
//	if err := store.Bind(ctx, "user-1"); err != nil { ... }
//	_ = store.Update(func(doc *workout.Document) error {
//		return doc.AddExercise("Poniedziałek", tmpl)
//	})
package state
