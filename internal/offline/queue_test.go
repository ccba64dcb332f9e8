package offline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
)

type memRepository struct {
	items []Item
}

func (r *memRepository) Load() ([]Item, error) {
	return append([]Item(nil), r.items...), nil
}

func (r *memRepository) Save(items []Item) error {
	r.items = append([]Item(nil), items...)
	return nil
}

// fakeSubmitter records call order and answers per chore id.
type fakeSubmitter struct {
	results map[int64]error
	calls   []int64
}

func (s *fakeSubmitter) Submit(_ context.Context, item Item) error {
	s.calls = append(s.calls, item.ChoreID)
	return s.results[item.ChoreID]
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFlushSubmitsInEnqueueOrder(t *testing.T) {
	repo := &memRepository{}
	sub := &fakeSubmitter{results: map[int64]error{}}
	q := NewQueue(repo, sub, discardLogger())

	for _, choreID := range []int64{3, 1, 2} {
		if err := q.Enqueue(Item{ChoreID: choreID, KidID: 10}); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}

	report, err := q.Flush(context.Background())
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if report.Submitted != 3 || report.Dropped != 0 || report.Remaining != 0 {
		t.Errorf("report = %+v, want 3 submitted", report)
	}
	want := []int64{3, 1, 2}
	if len(sub.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", sub.calls, want)
	}
	for i := range want {
		if sub.calls[i] != want[i] {
			t.Errorf("call %d = chore %d, want %d", i, sub.calls[i], want[i])
		}
	}
	if n, _ := q.Len(); n != 0 {
		t.Errorf("queue depth after flush = %d, want 0", n)
	}
}

func TestFlushDropsPermanentAndContinues(t *testing.T) {
	repo := &memRepository{}
	sub := &fakeSubmitter{results: map[int64]error{
		1: fmt.Errorf("%w: 409 Conflict", ErrPermanent),
	}}
	q := NewQueue(repo, sub, discardLogger())

	q.Enqueue(Item{ChoreID: 1, KidID: 10})
	q.Enqueue(Item{ChoreID: 2, KidID: 10})

	report, err := q.Flush(context.Background())
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if report.Dropped != 1 || report.Submitted != 1 || report.Remaining != 0 {
		t.Errorf("report = %+v, want 1 dropped and 1 submitted", report)
	}
	// The later item is still attempted after the drop.
	if len(sub.calls) != 2 || sub.calls[1] != 2 {
		t.Errorf("calls = %v, want [1 2]", sub.calls)
	}
	if n, _ := q.Len(); n != 0 {
		t.Errorf("queue depth = %d, want 0 (dropped item gone for good)", n)
	}
}

func TestFlushKeepsTransientFailures(t *testing.T) {
	repo := &memRepository{}
	sub := &fakeSubmitter{results: map[int64]error{
		2: errors.New("connection refused"),
	}}
	q := NewQueue(repo, sub, discardLogger())

	q.Enqueue(Item{ChoreID: 1, KidID: 10})
	q.Enqueue(Item{ChoreID: 2, KidID: 10})
	q.Enqueue(Item{ChoreID: 3, KidID: 10})

	report, err := q.Flush(context.Background())
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if report.Submitted != 2 || report.Remaining != 1 {
		t.Errorf("report = %+v, want 2 submitted and 1 remaining", report)
	}

	// The kept item is retried on the next flush, still in order.
	sub.results = map[int64]error{}
	sub.calls = nil
	report, err = q.Flush(context.Background())
	if err != nil {
		t.Fatalf("second flush: %v", err)
	}
	if report.Submitted != 1 || report.Remaining != 0 {
		t.Errorf("second report = %+v, want 1 submitted", report)
	}
	if len(sub.calls) != 1 || sub.calls[0] != 2 {
		t.Errorf("second flush calls = %v, want [2]", sub.calls)
	}
}

func TestFlushEmptyQueue(t *testing.T) {
	q := NewQueue(&memRepository{}, &fakeSubmitter{}, discardLogger())

	report, err := q.Flush(context.Background())
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if report != (FlushReport{}) {
		t.Errorf("report = %+v, want zero", report)
	}
}

// blockingSubmitter holds Submit until released, to trap a flush mid-pass.
type blockingSubmitter struct {
	entered chan struct{}
	release chan struct{}
}

func (s *blockingSubmitter) Submit(context.Context, Item) error {
	s.entered <- struct{}{}
	<-s.release
	return nil
}

func TestFlushIsSingleFlight(t *testing.T) {
	repo := &memRepository{}
	sub := &blockingSubmitter{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	q := NewQueue(repo, sub, discardLogger())
	q.Enqueue(Item{ChoreID: 1, KidID: 10})

	done := make(chan error, 1)
	go func() {
		_, err := q.Flush(context.Background())
		done <- err
	}()
	<-sub.entered

	if _, err := q.Flush(context.Background()); !errors.Is(err, ErrFlushInProgress) {
		t.Errorf("concurrent flush err = %v, want ErrFlushInProgress", err)
	}

	close(sub.release)
	if err := <-done; err != nil {
		t.Fatalf("first flush: %v", err)
	}

	// After the first flush finishes, flushing is allowed again.
	if _, err := q.Flush(context.Background()); err != nil {
		t.Errorf("flush after completion: %v", err)
	}
}

func TestFileRepositoryRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue", "completionQueue.json")
	repo := NewFileRepository(path)

	// Missing file reads as an empty queue.
	items, err := repo.Load()
	if err != nil {
		t.Fatalf("load missing: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("missing file items = %v, want none", items)
	}

	want := []Item{{ChoreID: 1, KidID: 10}, {ChoreID: 2, KidID: 11}}
	if err := repo.Save(want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := repo.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("round trip = %v, want %v", got, want)
	}
}

func TestQueueSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "completionQueue.json")
	sub := &fakeSubmitter{results: map[int64]error{}}

	first := NewQueue(NewFileRepository(path), sub, discardLogger())
	first.Enqueue(Item{ChoreID: 1, KidID: 10})
	first.Enqueue(Item{ChoreID: 2, KidID: 10})

	// A new queue over the same file sees the buffered items.
	second := NewQueue(NewFileRepository(path), sub, discardLogger())
	if n, _ := second.Len(); n != 2 {
		t.Fatalf("depth after restart = %d, want 2", n)
	}
	report, err := second.Flush(context.Background())
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if report.Submitted != 2 {
		t.Errorf("report = %+v, want 2 submitted", report)
	}
}
