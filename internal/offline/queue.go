package offline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
)

// Item is one queued completion submission.
type Item struct {
	ChoreID int64 `json:"chore_id"`
	KidID   int64 `json:"kid_id"`
}

// Repository persists the queue across client restarts: a flat ordered list
// under a single well-known key. Any durable key-value store can back it.
type Repository interface {
	Load() ([]Item, error)
	Save(items []Item) error
}

// Submitter replays one item through the normal completion entry point.
// Failures that can never succeed on retry are wrapped with ErrPermanent.
type Submitter interface {
	Submit(ctx context.Context, item Item) error
}

// ErrPermanent marks a rejection that retrying cannot fix (already completed
// today, chore gone, access revoked). Flush drops such items instead of
// retrying them forever.
var ErrPermanent = errors.New("permanent rejection")

// ErrFlushInProgress is returned when a flush is triggered while another is
// still running (connectivity flapping).
var ErrFlushInProgress = errors.New("flush already in progress")

// FlushReport summarizes one flush pass.
type FlushReport struct {
	Submitted int
	Dropped   int
	Remaining int
}

// Queue buffers completion submissions while the client is offline and
// replays them in enqueue order. Delivery is at least once; the server's
// per-day completion rule is the deduplication backstop.
type Queue struct {
	repo     Repository
	sub      Submitter
	flushing atomic.Bool
	logger   *slog.Logger
}

func NewQueue(repo Repository, sub Submitter, logger *slog.Logger) *Queue {
	return &Queue{repo: repo, sub: sub, logger: logger}
}

// Enqueue appends an item to the durable queue.
func (q *Queue) Enqueue(item Item) error {
	items, err := q.repo.Load()
	if err != nil {
		return fmt.Errorf("load queue: %w", err)
	}
	items = append(items, item)
	if err := q.repo.Save(items); err != nil {
		return fmt.Errorf("save queue: %w", err)
	}
	q.logger.Info("queued completion", "chore_id", item.ChoreID, "kid_id", item.KidID, "depth", len(items))
	return nil
}

// Len returns the current queue depth.
func (q *Queue) Len() (int, error) {
	items, err := q.repo.Load()
	if err != nil {
		return 0, fmt.Errorf("load queue: %w", err)
	}
	return len(items), nil
}

// Flush replays every queued item in order through the Submitter. Items that
// succeed or fail permanently are removed; items that fail transiently stay
// queued for the next flush, and later items are still attempted. A flush in
// progress is not re-entered.
func (q *Queue) Flush(ctx context.Context) (FlushReport, error) {
	if !q.flushing.CompareAndSwap(false, true) {
		return FlushReport{}, ErrFlushInProgress
	}
	defer q.flushing.Store(false)

	items, err := q.repo.Load()
	if err != nil {
		return FlushReport{}, fmt.Errorf("load queue: %w", err)
	}
	if len(items) == 0 {
		return FlushReport{}, nil
	}

	var report FlushReport
	var remaining []Item
	for _, item := range items {
		err := q.sub.Submit(ctx, item)
		switch {
		case err == nil:
			report.Submitted++
		case errors.Is(err, ErrPermanent):
			// Retrying can never succeed; drop to avoid an infinite loop.
			q.logger.Warn("dropping queued completion", "chore_id", item.ChoreID, "kid_id", item.KidID, "error", err)
			report.Dropped++
		default:
			q.logger.Info("keeping queued completion", "chore_id", item.ChoreID, "kid_id", item.KidID, "error", err)
			remaining = append(remaining, item)
		}
	}
	report.Remaining = len(remaining)

	if err := q.repo.Save(remaining); err != nil {
		return report, fmt.Errorf("save queue: %w", err)
	}
	return report, nil
}
