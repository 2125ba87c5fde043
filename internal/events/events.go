// Package events is an in-process pub/sub channel for sync progress.
// Transfer workers and the reconciliation engine publish; the UI layer or
// the log observer subscribes. Nothing in the engine depends on a
// subscriber being present.
package events

import (
	"sync"
	"time"
)

// Kind labels what happened.
type Kind string

const (
	// KindFolderSynced is published after every folder reconciliation
	// pass, successful or not.
	KindFolderSynced Kind = "folder_synced"

	// KindTransferStarted and KindTransferFinished bracket each upload
	// or download executed by the transfer layer.
	KindTransferStarted  Kind = "transfer_started"
	KindTransferFinished Kind = "transfer_finished"

	// KindConflictFound is published when a pass records a new conflict
	// marker.
	KindConflictFound Kind = "conflict_found"
)

// Event is one sync occurrence.
type Event struct {
	Kind       Kind
	Account    string
	RemotePath string

	// Success qualifies folder_synced and transfer_finished events.
	Success bool

	// Conflicts and Failures carry the counters of a folder pass.
	Conflicts int
	Failures  int

	Timestamp int64
}

// Bus fans events out to subscribers. Publishing never blocks: slow
// subscribers lose events rather than stalling a sync pass.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[chan Event]struct{}
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[chan Event]struct{})}
}

// Subscribe registers a new subscriber channel. Call Unsubscribe when done.
func (b *Bus) Subscribe() chan Event {
	ch := make(chan Event, 64)

	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()

	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Bus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	delete(b.subscribers, ch)
	close(ch)
	b.mu.Unlock()
}

// Publish delivers an event to every subscriber, dropping it for any
// whose buffer is full.
func (b *Bus) Publish(e Event) {
	if e.Timestamp == 0 {
		e.Timestamp = time.Now().UnixMilli()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers {
		select {
		case ch <- e:
		default:
		}
	}
}
