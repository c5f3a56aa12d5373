package gateway

import (
	"context"
	"log/slog"
	"sync"

	"signage-studio/internal/model"
	"signage-studio/pkg/apierror"
)

// Async sends writes in the background so the console loop never waits on the
// network. Each write is stamped before Async returns. Writes that touch the
// same block or timeline are sent one at a time in issue order, so a removal
// can never overtake an earlier index or length write. Block lengths with
// writes still in flight are read back from the pending value.
type Async struct {
	inner   Gateway
	stamper *Stamper
	wg      sync.WaitGroup
	log     *slog.Logger

	mu      sync.Mutex
	queues  map[string][]func()
	lengths map[int64]pendingLength

	onError func(op string, err error)
}

type pendingLength struct {
	length   model.Length
	inFlight int
}

func NewAsync(inner Gateway, stamper *Stamper) *Async {
	if stamper == nil {
		stamper = NewStamper()
	}
	return &Async{
		inner:   inner,
		stamper: stamper,
		queues:  make(map[string][]func()),
		lengths: make(map[int64]pendingLength),
		log:     slog.With("component", "gateway.async"),
	}
}

// OnError registers a callback for failed background writes, in addition to the
// error log line. It runs on the write's goroutine.
func (a *Async) OnError(fn func(op string, err error)) {
	a.onError = fn
}

// BlockLength returns the newest length issued for the block while any of its
// writes is in flight, and asks the wrapped gateway otherwise.
func (a *Async) BlockLength(ctx context.Context, blockID int64) (model.Length, error) {
	a.mu.Lock()
	p, ok := a.lengths[blockID]
	a.mu.Unlock()
	if ok {
		return p.length, nil
	}
	return a.inner.BlockLength(ctx, blockID)
}

func (a *Async) SetBlockLength(ctx context.Context, blockID int64, length model.Length) error {
	if err := length.Validate(); err != nil {
		return err
	}

	a.mu.Lock()
	p := a.lengths[blockID]
	a.lengths[blockID] = pendingLength{length: length, inFlight: p.inFlight + 1}
	a.mu.Unlock()

	version := a.stamper.Next(LengthKey(blockID))
	a.send(ctx, "set block length", BlockKey(blockID), version, func(ctx context.Context) error {
		defer a.settleLength(blockID)
		return a.inner.SetBlockLength(ctx, blockID, length)
	}, "block_id", blockID, "length", length.String())
	return nil
}

func (a *Async) settleLength(blockID int64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	p, ok := a.lengths[blockID]
	if !ok {
		return
	}
	if p.inFlight <= 1 {
		delete(a.lengths, blockID)
		return
	}
	p.inFlight--
	a.lengths[blockID] = p
}

func (a *Async) RemoveBlockFromChannel(ctx context.Context, blockID int64) error {
	a.mu.Lock()
	delete(a.lengths, blockID)
	a.mu.Unlock()

	version := a.stamper.Next(BlockKey(blockID))
	a.send(ctx, "remove block", BlockKey(blockID), version, func(ctx context.Context) error {
		return a.inner.RemoveBlockFromChannel(ctx, blockID)
	}, "block_id", blockID)
	return nil
}

func (a *Async) RemoveTimelineFromSequence(ctx context.Context, timelineID int64) error {
	key := SequenceKey(timelineID)
	a.send(ctx, "remove timeline from sequence", key, a.stamper.Next(key), func(ctx context.Context) error {
		return a.inner.RemoveTimelineFromSequence(ctx, timelineID)
	}, "timeline_id", timelineID)
	return nil
}

func (a *Async) SetTimelineSequenceIndex(ctx context.Context, campaignID, timelineID int64, index int) error {
	if index < 0 {
		return model.ErrInvalidIndex
	}
	key := SequenceKey(timelineID)
	a.send(ctx, "set sequence index", key, a.stamper.Next(key), func(ctx context.Context) error {
		return a.inner.SetTimelineSequenceIndex(ctx, campaignID, timelineID, index)
	}, "campaign_id", campaignID, "timeline_id", timelineID, "index", index)
	return nil
}

func (a *Async) Subscribe() (<-chan model.Notification, func()) {
	return a.inner.Subscribe()
}

// Timelines passes through when the wrapped gateway can list timelines.
func (a *Async) Timelines(ctx context.Context, campaignID int64) ([]model.Timeline, error) {
	lister, ok := a.inner.(TimelineLister)
	if !ok {
		return nil, nil
	}
	return lister.Timelines(ctx, campaignID)
}

// Wait blocks until every write issued so far has finished.
func (a *Async) Wait() {
	a.wg.Wait()
}

// send queues write behind earlier writes on the same key. The first write on
// an idle key starts a goroutine that drains the key's queue.
func (a *Async) send(ctx context.Context, op, key string, version uint64, write func(context.Context) error, attrs ...any) {
	ctx = WithVersion(context.WithoutCancel(ctx), version)
	task := func() {
		defer a.wg.Done()
		if err := write(ctx); err != nil {
			if apiErr, ok := apierror.From(err); ok {
				attrs = append(attrs, "code", apiErr.Code, "retryable", apiErr.Retryable())
			}
			a.log.Error(op+" failed", append(attrs, "error", err)...)
			if a.onError != nil {
				a.onError(op, err)
			}
		}
	}

	a.wg.Add(1)
	a.mu.Lock()
	pending, busy := a.queues[key]
	a.queues[key] = append(pending, task)
	a.mu.Unlock()

	if !busy {
		go a.drain(key)
	}
}

func (a *Async) drain(key string) {
	for {
		a.mu.Lock()
		pending := a.queues[key]
		if len(pending) == 0 {
			delete(a.queues, key)
			a.mu.Unlock()
			return
		}
		task := pending[0]
		a.queues[key] = pending[1:]
		a.mu.Unlock()

		task()
	}
}
