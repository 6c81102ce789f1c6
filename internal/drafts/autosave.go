package drafts

import (
	"context"
	"sync"
	"time"

	pkgerrors "github.com/angelmondragon/quotation-engine/pkg/errors"
	"github.com/angelmondragon/quotation-engine/pkg/logger"
	"github.com/angelmondragon/quotation-engine/pkg/metrics"
)

const defaultWriteTimeout = 5 * time.Second

// AutosaverParams wires the autosaver dependencies.
type AutosaverParams struct {
	Store        Store
	Logger       *logger.Logger
	Metrics      *metrics.QuoteMetrics
	WriteTimeout time.Duration
}

// Autosaver writes drafts in the background. Save never blocks; pending saves for the
// same request collapse so only the latest draft is written.
type Autosaver struct {
	store   Store
	logg    *logger.Logger
	metrics *metrics.QuoteMetrics
	timeout time.Duration

	mu      sync.Mutex
	pending map[string]Draft
	writing bool
	closed  bool
	waiters []chan struct{}

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

// NewAutosaver starts the background writer. Call Close to stop it.
func NewAutosaver(params AutosaverParams) (*Autosaver, error) {
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "draft store is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	timeout := params.WriteTimeout
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}
	a := &Autosaver{
		store:   params.Store,
		logg:    logg,
		metrics: params.Metrics,
		timeout: timeout,
		pending: map[string]Draft{},
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go a.run()
	return a, nil
}

// Save queues the draft for writing and returns immediately.
func (a *Autosaver) Save(requestID string, draft Draft) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		ctx := a.logg.WithQuoteRequestID(context.Background(), requestID)
		a.logg.Warn(ctx, "draft autosave dropped after close")
		a.metrics.IncAutosaveFailure()
		return
	}
	a.pending[requestID] = draft
	a.mu.Unlock()

	select {
	case a.wake <- struct{}{}:
	default:
	}
}

// Load flushes pending writes and then reads the stored draft.
func (a *Autosaver) Load(ctx context.Context, requestID string) (Draft, bool, error) {
	if err := a.Flush(ctx); err != nil {
		return Draft{}, false, err
	}
	return a.store.Load(ctx, requestID)
}

// Clear drops any queued write for the request, waits for in-flight writes and
// removes the stored draft.
func (a *Autosaver) Clear(ctx context.Context, requestID string) error {
	a.mu.Lock()
	delete(a.pending, requestID)
	a.mu.Unlock()
	if err := a.Flush(ctx); err != nil {
		return err
	}
	return a.store.Clear(ctx, requestID)
}

// Flush blocks until every queued draft has been written or ctx is done.
func (a *Autosaver) Flush(ctx context.Context) error {
	a.mu.Lock()
	if len(a.pending) == 0 && !a.writing {
		a.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	a.waiters = append(a.waiters, ch)
	a.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drains queued drafts and stops the writer. It is safe to call more than once.
func (a *Autosaver) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		<-a.done
		return nil
	}
	a.closed = true
	a.mu.Unlock()
	close(a.stop)
	<-a.done
	return nil
}

func (a *Autosaver) run() {
	defer close(a.done)
	for {
		select {
		case <-a.wake:
			a.drain()
		case <-a.stop:
			a.drain()
			return
		}
	}
}

func (a *Autosaver) drain() {
	for {
		a.mu.Lock()
		if len(a.pending) == 0 {
			a.writing = false
			waiters := a.waiters
			a.waiters = nil
			a.mu.Unlock()
			for _, ch := range waiters {
				close(ch)
			}
			return
		}
		batch := a.pending
		a.pending = map[string]Draft{}
		a.writing = true
		a.mu.Unlock()

		for requestID, draft := range batch {
			a.write(requestID, draft)
		}
	}
}

func (a *Autosaver) write(requestID string, draft Draft) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()
	if err := a.store.Save(ctx, requestID, draft); err != nil {
		a.metrics.IncAutosaveFailure()
		a.logg.Error(a.logg.WithQuoteRequestID(ctx, requestID), "draft autosave failed", err)
	}
}
