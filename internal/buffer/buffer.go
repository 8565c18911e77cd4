// Package buffer implements the durable embedding buffer: a bounded,
// mutex-guarded queue of deferred embedding jobs with retry/backoff,
// snapshot persistence and a terminal failure state. It decouples
// "record persisted" from "record has a usable embedding".
package buffer

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Errors returned by buffer operations.
var (
	// ErrBufferFull is the admission-control rejection: the queue holds
	// maxSize in-flight items and the caller must back off.
	ErrBufferFull = errors.New("buffer: queue full")

	// ErrItemNotFound is returned when a transition references an unknown item.
	ErrItemNotFound = errors.New("buffer: item not found")

	// ErrBadTransition is returned when a mark is applied to an item that is
	// not currently held by a consumer.
	ErrBadTransition = errors.New("buffer: invalid status transition")
)

// Status is the lifecycle state of a buffered item.
type Status string

const (
	StatusPending   Status = "pending"
	StatusWriting   Status = "writing"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusRetrying  Status = "retrying"
)

// Terminal reports whether the status is an end state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Item is a pending unit of deferred embedding work. Payload is a stable
// snapshot taken at enqueue time; it is never re-read from the record.
type Item struct {
	ID             string    `json:"id"`
	TargetRecordID string    `json:"target_record_id"`
	Payload        string    `json:"payload"`
	Status         Status    `json:"status"`
	Attempts       int       `json:"attempts"`
	MaxAttempts    int       `json:"max_attempts"`
	NextRetryAt    time.Time `json:"next_retry_at,omitempty"`
	LastError      string    `json:"last_error,omitempty"`
	EnqueuedAt     time.Time `json:"enqueued_at"`
}

// Metrics reports per-status counts for backpressure signaling.
type Metrics struct {
	Pending   int `json:"pending"`
	Writing   int `json:"writing"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Retrying  int `json:"retrying"`
	// QueueDepth is pending+retrying: work still owed to the drain loop.
	QueueDepth int `json:"queue_depth"`
}

// Options configures a Buffer.
type Options struct {
	// MaxSize bounds the number of in-flight (pending/writing/retrying)
	// items. Zero means DefaultMaxSize.
	MaxSize int
	// MaxAttempts bounds retries per item. Zero means DefaultMaxAttempts.
	MaxAttempts int
	// Snapshot is the durable target for Persist/Restore. Nil disables
	// persistence (Persist becomes a no-op, Restore finds nothing).
	Snapshot SnapshotTarget
	// Now is the clock, injectable for tests. Nil means time.Now.
	Now func() time.Time
}

const (
	DefaultMaxSize     = 1000
	DefaultMaxAttempts = 3
)

// Buffer is the in-memory queue. All state transitions happen under a
// single mutex so no two drain workers can hold the same item in writing.
type Buffer struct {
	mu       sync.Mutex
	items    map[string]*Item
	order    []string // enqueue order, drives FIFO dequeue
	maxSize  int
	maxTries int
	snapshot SnapshotTarget
	now      func() time.Time
}

// New creates a Buffer with the given options.
func New(opts Options) *Buffer {
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultMaxSize
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Buffer{
		items:    make(map[string]*Item),
		maxSize:  opts.MaxSize,
		maxTries: opts.MaxAttempts,
		snapshot: opts.Snapshot,
		now:      opts.Now,
	}
}

// inflightLocked counts items still owed work. Terminal items retained for
// inspection do not count against capacity.
func (b *Buffer) inflightLocked() int {
	n := 0
	for _, it := range b.items {
		if !it.Status.Terminal() {
			n++
		}
	}
	return n
}

// Enqueue admits a new pending item and returns its ID. The capacity check
// and the insert happen under the same critical section, so concurrent
// callers can never push the queue past MaxSize.
func (b *Buffer) Enqueue(targetRecordID, payload string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.inflightLocked() >= b.maxSize {
		return "", fmt.Errorf("%w (max %d)", ErrBufferFull, b.maxSize)
	}

	it := &Item{
		ID:             uuid.NewString(),
		TargetRecordID: targetRecordID,
		Payload:        payload,
		Status:         StatusPending,
		MaxAttempts:    b.maxTries,
		EnqueuedAt:     b.now().UTC(),
	}
	b.items[it.ID] = it
	b.order = append(b.order, it.ID)
	return it.ID, nil
}

// DequeueNext returns the oldest pending item, transitioned to writing,
// or nil if nothing is pending. The returned copy is owned by the caller.
func (b *Buffer) DequeueNext() *Item {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, id := range b.order {
		it, ok := b.items[id]
		if !ok || it.Status != StatusPending {
			continue
		}
		it.Status = StatusWriting
		cp := *it
		return &cp
	}
	return nil
}

// DequeueRetryable returns the oldest retrying item whose NextRetryAt has
// elapsed, transitioned to writing, or nil if none is due yet.
func (b *Buffer) DequeueRetryable() *Item {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	for _, id := range b.order {
		it, ok := b.items[id]
		if !ok || it.Status != StatusRetrying {
			continue
		}
		if now.Before(it.NextRetryAt) {
			continue
		}
		it.Status = StatusWriting
		cp := *it
		return &cp
	}
	return nil
}

// MarkCompleted finishes a writing item.
func (b *Buffer) MarkCompleted(id string) error {
	return b.transition(id, StatusCompleted, "")
}

// MarkFailed puts a writing item into the terminal failed state.
func (b *Buffer) MarkFailed(id, reason string) error {
	return b.transition(id, StatusFailed, reason)
}

func (b *Buffer) transition(id string, to Status, reason string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	it, ok := b.items[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	if it.Status != StatusWriting {
		return fmt.Errorf("%w: %s is %s, want writing", ErrBadTransition, id, it.Status)
	}
	it.Status = to
	it.LastError = reason
	return nil
}

// ScheduleRetry moves a writing item back into the retrying state with the
// given delay, incrementing its attempt count. Once attempts reach
// MaxAttempts the item is marked failed instead. Returns the resulting
// status so the drain loop can log retry exhaustion.
func (b *Buffer) ScheduleRetry(id string, delay time.Duration, reason string) (Status, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	it, ok := b.items[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	if it.Status != StatusWriting {
		return "", fmt.Errorf("%w: %s is %s, want writing", ErrBadTransition, id, it.Status)
	}

	it.Attempts++
	it.LastError = reason
	if it.Attempts >= it.MaxAttempts {
		it.Status = StatusFailed
		return StatusFailed, nil
	}
	it.Status = StatusRetrying
	it.NextRetryAt = b.now().Add(delay).UTC()
	return StatusRetrying, nil
}

// Get returns a copy of an item for inspection.
func (b *Buffer) Get(id string) (*Item, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	it, ok := b.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	cp := *it
	return &cp, nil
}

// Items returns copies of all items in enqueue order.
func (b *Buffer) Items() []Item {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Item, 0, len(b.items))
	for _, id := range b.order {
		if it, ok := b.items[id]; ok {
			out = append(out, *it)
		}
	}
	return out
}

// Clear removes items in the given terminal statuses (both terminal states
// when none are given) and returns the number removed. In-flight items are
// never cleared.
func (b *Buffer) Clear(statuses ...Status) int {
	if len(statuses) == 0 {
		statuses = []Status{StatusCompleted, StatusFailed}
	}
	want := make(map[Status]bool, len(statuses))
	for _, s := range statuses {
		if s.Terminal() {
			want[s] = true
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	removed := 0
	keep := b.order[:0]
	for _, id := range b.order {
		it, ok := b.items[id]
		if ok && want[it.Status] {
			delete(b.items, id)
			removed++
			continue
		}
		keep = append(keep, id)
	}
	b.order = keep
	return removed
}

// Metrics returns per-status counts plus queue depth.
func (b *Buffer) Metrics() Metrics {
	b.mu.Lock()
	defer b.mu.Unlock()

	var m Metrics
	for _, it := range b.items {
		switch it.Status {
		case StatusPending:
			m.Pending++
		case StatusWriting:
			m.Writing++
		case StatusCompleted:
			m.Completed++
		case StatusFailed:
			m.Failed++
		case StatusRetrying:
			m.Retrying++
		}
	}
	m.QueueDepth = m.Pending + m.Retrying
	return m
}

// snapshotState is the persisted layout: enough to fully reconstruct queue
// state across a restart, including status, attempts and retry times.
type snapshotState struct {
	Items []Item `json:"items"`
}

// Persist writes the full item set to the snapshot target. Items caught in
// writing are demoted to pending so a restart retries them instead of
// leaving them orphaned.
func (b *Buffer) Persist() error {
	if b.snapshot == nil {
		return nil
	}

	b.mu.Lock()
	state := snapshotState{Items: make([]Item, 0, len(b.items))}
	for _, id := range b.order {
		it, ok := b.items[id]
		if !ok {
			continue
		}
		cp := *it
		if cp.Status == StatusWriting {
			cp.Status = StatusPending
		}
		state.Items = append(state.Items, cp)
	}
	b.mu.Unlock()

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := b.snapshot.Save(data); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Restore reloads the item set from the snapshot target, replacing current
// state, and returns the number of items loaded. A missing snapshot is a
// valid cold start: zero items, no error.
func (b *Buffer) Restore() (int, error) {
	if b.snapshot == nil {
		return 0, nil
	}

	data, err := b.snapshot.Load()
	if err != nil {
		return 0, fmt.Errorf("load snapshot: %w", err)
	}
	if len(data) == 0 {
		return 0, nil
	}

	var state snapshotState
	if err := json.Unmarshal(data, &state); err != nil {
		return 0, fmt.Errorf("decode snapshot: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.items = make(map[string]*Item, len(state.Items))
	b.order = b.order[:0]
	for i := range state.Items {
		it := state.Items[i]
		b.items[it.ID] = &it
		b.order = append(b.order, it.ID)
	}
	return len(state.Items), nil
}
