package storage

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrWriterClosed is returned by Submit after Close.
var ErrWriterClosed = errors.New("writer closed")

const defaultSaveTimeout = 10 * time.Second

// FailureRecorder receives persistence counters.
type FailureRecorder interface {
	IncrementPersistenceFailure(op string)
	IncrementStaleWrite()
}

// Writer serializes saves per interview id. Each id has at most one save in flight;
// snapshots submitted meanwhile are coalesced so only the latest is written next.
type Writer struct {
	store    Store
	recorder FailureRecorder
	logger   *slog.Logger
	timeout  time.Duration

	mu     sync.Mutex
	idle   *sync.Cond
	lanes  map[string]*lane
	busy   int
	closed bool
}

type lane struct {
	version int64
	pending *InterviewRecord
	running bool
}

func NewWriter(store Store, recorder FailureRecorder, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Writer{
		store:    store,
		recorder: recorder,
		logger:   logger,
		timeout:  defaultSaveTimeout,
		lanes:    make(map[string]*lane),
	}
	w.idle = sync.NewCond(&w.mu)
	return w
}

// Submit stamps rec with the next version for its id and queues it. The writer owns rec
// afterwards. rec.Version on input is a floor, used when resuming a stored interview.
func (w *Writer) Submit(rec *InterviewRecord) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, ErrWriterClosed
	}

	l, ok := w.lanes[rec.ID]
	if !ok {
		l = &lane{}
		w.lanes[rec.ID] = l
	}
	if rec.Version > l.version {
		l.version = rec.Version
	}
	l.version++
	rec.Version = l.version
	l.pending = rec

	if !l.running {
		l.running = true
		w.busy++
		go w.drain(rec.ID, l)
	}
	return rec.Version, nil
}

func (w *Writer) drain(id string, l *lane) {
	for {
		w.mu.Lock()
		rec := l.pending
		l.pending = nil
		if rec == nil {
			l.running = false
			w.busy--
			w.idle.Broadcast()
			w.mu.Unlock()
			return
		}
		w.mu.Unlock()

		w.save(id, rec)
	}
}

func (w *Writer) save(id string, rec *InterviewRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	err := w.store.Save(ctx, rec)
	switch {
	case err == nil:
		w.logger.Debug("interview saved", "interview_id", id, "version", rec.Version, "status", rec.Status)
	case errors.Is(err, ErrStaleWrite):
		w.logger.Debug("stale write skipped", "interview_id", id, "version", rec.Version)
		if w.recorder != nil {
			w.recorder.IncrementStaleWrite()
		}
	default:
		w.logger.Error("persistence failed", "interview_id", id, "version", rec.Version, "op", "save", "error", err)
		if w.recorder != nil {
			w.recorder.IncrementPersistenceFailure("save")
		}
	}
}

// Forget drops the version counter of an idle id.
func (w *Writer) Forget(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if l, ok := w.lanes[id]; ok && !l.running {
		delete(w.lanes, id)
	}
}

// Flush blocks until every queued snapshot has been written or ctx is done.
func (w *Writer) Flush(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		w.mu.Lock()
		w.idle.Broadcast()
		w.mu.Unlock()
	})
	defer stop()

	w.mu.Lock()
	defer w.mu.Unlock()
	for w.busy > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		w.idle.Wait()
	}
	return nil
}

// Close rejects new snapshots and flushes the queued ones.
func (w *Writer) Close(ctx context.Context) error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	return w.Flush(ctx)
}
