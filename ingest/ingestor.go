package ingest

import (
	"context"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"blockwal/metrics"
)

// PollingIngestor runs Parallelism worker goroutines against a shared,
// FIFO connection pool, each repeatedly pulling one EventBatch, handing
// its events to a StoreFunc, and acking or nacking the batch's sequence
// number depending on outcome (spec §4.5's state machine).
//
// Like Generator, the worker goroutines are joined with an errgroup.Group
// used purely as a WaitGroup: every worker function always returns nil,
// so one worker's fatal error never cancels its siblings (spec §7:
// failure in one worker iteration does not affect other workers).
type PollingIngestor struct {
	cfg     Config
	source  Source
	store   StoreFunc
	metrics *metrics.Ingest
	logger  *zap.Logger

	pool    *connPool
	stopped atomic.Bool
	cancel  context.CancelFunc
	group   *errgroup.Group
}

// NewPollingIngestor constructs a PollingIngestor. source is dialed
// cfg.SourceCount times at Start to build the connection pool; the same
// Source implementation answers every GetEventBatch/Ack/Nack call,
// keyed off whichever Connection the worker is holding.
func NewPollingIngestor(cfg Config, source Source, store StoreFunc, mtr *metrics.Ingest, logger *zap.Logger) *PollingIngestor {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PollingIngestor{
		cfg:     cfg,
		source:  source,
		store:   store,
		metrics: mtr,
		logger:  logger,
	}
}

// Start dials cfg.SourceCount connections — retrying each dial with
// exponential backoff, since a cold-started remote source rejecting the
// first few dials is expected, not fatal — then launches cfg.Parallelism
// worker goroutines.
func (ing *PollingIngestor) Start(ctx context.Context) error {
	conns := make([]Connection, 0, ing.cfg.SourceCount)
	for i := 0; i < ing.cfg.SourceCount; i++ {
		conn, err := ing.dialWithRetry(ctx)
		if err != nil {
			for _, c := range conns {
				_ = c.Close()
			}
			return errors.Wrapf(err, "dial source %d", i)
		}
		conns = append(conns, conn)
	}
	ing.pool = newConnPool(conns)

	runCtx, cancel := context.WithCancel(ctx)
	ing.cancel = cancel
	ing.group = &errgroup.Group{}
	for i := 0; i < ing.cfg.Parallelism; i++ {
		ing.group.Go(func() error {
			ing.workerLoop(runCtx)
			return nil
		})
	}
	return nil
}

func (ing *PollingIngestor) dialWithRetry(ctx context.Context) (Connection, error) {
	var conn Connection
	op := func() error {
		var err error
		conn, err = ing.source.Dial(ctx)
		return err
	}
	bo := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return nil, err
	}
	return conn, nil
}

// Stop marks the ingestor stopped, cancels the worker context so an
// in-flight borrow/poll unblocks, waits for every worker to exit, then
// closes all pooled connections.
func (ing *PollingIngestor) Stop() error {
	ing.stopped.Store(true)
	if ing.cancel != nil {
		ing.cancel()
	}
	var groupErr error
	if ing.group != nil {
		groupErr = ing.group.Wait()
	}
	var closeErr error
	if ing.pool != nil {
		closeErr = ing.pool.closeAll()
	}
	if groupErr != nil {
		return groupErr
	}
	return closeErr
}

// workerLoop is one worker goroutine: borrow, poll, store, ack/nack,
// return — until stopped is observed.
func (ing *PollingIngestor) workerLoop(ctx context.Context) {
	for !ing.stopped.Load() {
		conn, err := ing.pool.borrow(ctx)
		if err != nil {
			// ctx is cancelled by Stop or by the context passed to Start;
			// either way this worker takes the shutdown path and exits.
			return
		}
		if ing.runIteration(ctx, conn) {
			return
		}
	}
}

// runIteration runs exactly one poll-store-ack cycle on a connection the
// caller borrowed, guaranteeing the connection is returned to the pool on
// every exit path. It reports
// whether the worker that called it should stop iterating: true only for
// outcomeFatal, since a *FatalError from the Source or StoreFunc means
// this worker's connection (or the store it feeds) is no longer usable
// (spec §4.5 step 4, §7).
func (ing *PollingIngestor) runIteration(ctx context.Context, conn Connection) (terminate bool) {
	defer ing.pool.ret(conn)

	batchReceived, seq, kind, cause := ing.attempt(ctx, conn)
	if batchReceived && ing.metrics != nil {
		ing.metrics.Batches.Inc()
	}

	switch kind {
	case outcomeOK:
		if ing.metrics != nil {
			ing.metrics.Acks.Inc()
		}

	case outcomeErrorBatch:
		ing.logger.Warn("source returned an error batch, skipping", zap.Error(cause))
		if ing.metrics != nil {
			ing.metrics.Errors.Inc()
		}
		// No ack, no nack: the spec treats an error batch as a terminal
		// non-outcome for this sequence number, not a retryable failure.

	case outcomeInterrupted:
		if ing.stopped.Load() {
			return false
		}
		ing.logger.Warn("worker iteration interrupted unexpectedly", zap.Error(cause))
		ing.attemptNack(ctx, conn, seq, batchReceived)

	case outcomeRPCFailed:
		ing.logger.Error("worker iteration failed", zap.Error(cause))
		if ing.metrics != nil {
			ing.metrics.Errors.Inc()
		}
		ing.attemptNack(ctx, conn, seq, batchReceived)

	case outcomeFatal:
		ing.logger.Error("worker iteration hit a fatal error, ending this worker", zap.Error(cause))
		if ing.metrics != nil {
			ing.metrics.Errors.Inc()
		}
		ing.attemptNack(ctx, conn, seq, batchReceived)
		return true
	}

	return false
}

// attempt runs the get-batch/store/ack sequence for one iteration. It
// never returns an error directly — every failure is folded into the
// returned outcomeKind and cause, classified by root cause via
// errors.Cause (pkg/errors), so the caller can do a straight match
// instead of unwinding a chain of exceptions.
func (ing *PollingIngestor) attempt(ctx context.Context, conn Connection) (batchReceived bool, seq string, kind outcomeKind, cause error) {
	batch, err := ing.source.GetEventBatch(ctx, conn, ing.cfg.MaxBatchSize)
	if err != nil {
		wrapped := errors.Wrap(err, ErrRemoteRPCFailure.Error())
		return false, "", classify(ctx, wrapped), wrapped
	}

	seq = batch.SequenceNumber

	if batch.IsError() {
		return true, seq, outcomeErrorBatch, errors.Wrap(ErrRemoteErrorBatch, batch.ErrorMessage)
	}

	if err := ing.store(ctx, batch.Events); err != nil {
		return true, seq, classify(ctx, err), err
	}

	if err := ing.source.Ack(ctx, conn, seq); err != nil {
		wrapped := errors.Wrap(err, ErrRemoteRPCFailure.Error())
		return true, seq, classify(ctx, wrapped), wrapped
	}

	return true, seq, outcomeOK, nil
}

// attemptNack nacks seq if a batch was actually received; a failed nack
// is logged and not retried (spec §4.5 step 5: the remote source is
// likely unreachable, and retrying a nack is explicitly out of scope).
func (ing *PollingIngestor) attemptNack(ctx context.Context, conn Connection, seq string, batchReceived bool) {
	if !batchReceived {
		return
	}
	if err := ing.source.Nack(ctx, conn, seq); err != nil {
		ing.logger.Error("nack failed, remote source likely unreachable", zap.String("sequence_number", seq), zap.Error(err))
		if ing.metrics != nil {
			ing.metrics.Errors.Inc()
		}
		return
	}
	if ing.metrics != nil {
		ing.metrics.Nacks.Inc()
	}
}
