package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/memtide/memtide/internal/buffer"
)

// Drainer runs the background loop that turns buffered items into stored
// embeddings. It polls on a ticker, never in the request path.
type Drainer struct {
	svc      *Service
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewDrainer creates a drainer polling at the given interval.
func NewDrainer(svc *Service, interval time.Duration) *Drainer {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Drainer{svc: svc, interval: interval}
}

// Start launches the drain loop. It stops when ctx is cancelled or Stop is
// called; either way the buffer is persisted before the loop exits so no
// enqueued work is silently lost.
func (d *Drainer) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		return // already running
	}

	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.done = make(chan struct{})

	go func() {
		defer close(d.done)
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				if err := d.svc.buf.Persist(); err != nil {
					d.svc.logger.Error("persist buffer on shutdown", "error", err)
				}
				return
			case <-ticker.C:
				d.svc.DrainOnce(ctx)
			}
		}
	}()
}

// Stop halts the loop and waits for it to persist and exit.
func (d *Drainer) Stop() {
	d.mu.Lock()
	cancel, done := d.cancel, d.done
	d.cancel = nil
	d.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// DrainOnce processes every currently due item: pending first, then
// retryable. Returns the number of items it attempted.
func (s *Service) DrainOnce(ctx context.Context) int {
	n := 0
	for {
		if ctx.Err() != nil {
			return n
		}
		item := s.buf.DequeueNext()
		if item == nil {
			item = s.buf.DequeueRetryable()
		}
		if item == nil {
			return n
		}
		n++
		s.processItem(ctx, item)
	}
}

// processItem embeds one item's payload and updates the target record.
// Failures back off exponentially (base * 2^attempts) until the buffer
// exhausts the item's attempts and marks it failed.
func (s *Service) processItem(ctx context.Context, item *buffer.Item) {
	err := s.embedItem(ctx, item)
	if err == nil {
		if mErr := s.buf.MarkCompleted(item.ID); mErr != nil {
			s.logger.Error("mark completed", "item", item.ID, "error", mErr)
		}
		s.logger.Debug("embedding stored", "record", item.TargetRecordID, "item", item.ID)
		return
	}

	delay := s.baseRetryDelay * (1 << item.Attempts)
	status, sErr := s.buf.ScheduleRetry(item.ID, delay, err.Error())
	if sErr != nil {
		s.logger.Error("schedule retry", "item", item.ID, "error", sErr)
		return
	}
	if status == buffer.StatusFailed {
		s.logger.Warn("embedding retries exhausted",
			"record", item.TargetRecordID, "item", item.ID, "error", err)
		return
	}
	s.logger.Debug("embedding retry scheduled",
		"record", item.TargetRecordID, "item", item.ID, "delay", delay, "error", err)
}

func (s *Service) embedItem(ctx context.Context, item *buffer.Item) error {
	if s.embedder == nil {
		return errNoProvider
	}
	vec, err := s.embedder.Embed(ctx, item.Payload)
	if err != nil {
		return err
	}
	return s.store.UpdateEmbedding(ctx, item.TargetRecordID, vec)
}

var errNoProvider = errors.New("no embedding provider configured")
