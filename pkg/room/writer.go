package room

import (
	"context"
	"sync"
	"time"

	"blackjack-server/pkg/blackjack"
	"blackjack-server/pkg/store"

	"github.com/sirupsen/logrus"
)

const writeTimeout = time.Second * 5

// writeQueueSize is how many writes may be pending before the table waits on storage
const writeQueueSize = 1024

type writeJob struct {
	name string
	fn   func(ctx context.Context) error
}

// writer applies a table's persistence calls one at a time in the order they were queued
type writer struct {
	store store.Mirror
	log   logrus.FieldLogger

	lock   sync.Mutex
	closed bool
	jobs   chan writeJob
	done   chan struct{}
}

func newWriter(s store.Mirror, log logrus.FieldLogger) *writer {
	w := &writer{
		store: s,
		log:   log,
		jobs:  make(chan writeJob, writeQueueSize),
		done:  make(chan struct{}),
	}

	go w.run()
	return w
}

func (w *writer) run() {
	defer close(w.done)

	for job := range w.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := job.fn(ctx); err != nil {
			w.log.WithError(err).WithField("write", job.name).Error("could not persist table state")
		}
		cancel()
	}
}

func (w *writer) enqueue(name string, fn func(ctx context.Context) error) bool {
	w.lock.Lock()
	defer w.lock.Unlock()

	if w.closed {
		w.log.WithField("write", name).Warn("writer is stopped, dropping write")
		return false
	}

	w.jobs <- writeJob{name: name, fn: fn}
	return true
}

func (w *writer) saveTable(snapshot *blackjack.Snapshot) {
	w.enqueue("saveTable", func(ctx context.Context) error {
		return w.store.SaveTable(ctx, snapshot)
	})
}

func (w *writer) saveBalance(playerID string, balance int) {
	w.enqueue("saveBalance", func(ctx context.Context) error {
		return w.store.SaveBalance(ctx, playerID, balance)
	})
}

func (w *writer) recordRound(result *blackjack.RoundResult) {
	w.enqueue("recordRound", func(ctx context.Context) error {
		return w.store.RecordRound(ctx, result)
	})
}

func (w *writer) deleteTable(tableID string) {
	w.enqueue("deleteTable", func(ctx context.Context) error {
		return w.store.DeleteTable(ctx, tableID)
	})
}

// flush waits until every write queued before the call was applied
func (w *writer) flush(ctx context.Context) error {
	applied := make(chan struct{})
	if !w.enqueue("flush", func(context.Context) error {
		close(applied)
		return nil
	}) {
		// stopped writers drain before done is closed
		applied = w.done
	}

	select {
	case <-applied:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// stop applies the remaining writes and stops the writer
func (w *writer) stop() {
	w.lock.Lock()
	if !w.closed {
		w.closed = true
		close(w.jobs)
	}
	w.lock.Unlock()
}

// wait blocks until a stopped writer has applied everything
func (w *writer) wait(ctx context.Context) error {
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
