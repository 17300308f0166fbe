// Package worker copies recorded transactions into a secondary ledger.
package worker

import (
	"context"
	"fmt"
	"time"

	"bookkeeper/internal/amqp"
	"bookkeeper/internal/cache"
	"bookkeeper/internal/core"
	"bookkeeper/internal/ledger"
	"bookkeeper/internal/log"
)

// Consumer delivers TransactionRecorded events to a handler until ctx ends.
type Consumer interface {
	ConsumeTransactionRecorded(ctx context.Context, handler amqp.Handler) error
}

// MirrorWorker appends every recorded transaction to a second backend,
// typically a Google Sheet that mirrors the primary ledger.
type MirrorWorker struct {
	target ledger.Appender
	logger *log.Logger
	// seen remembers recently mirrored event ids so a redelivered message
	// is not appended twice.
	seen *cache.LRU[string]
}

func NewMirrorWorker(target ledger.Appender, logger *log.Logger) *MirrorWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentWorker)
	}
	return &MirrorWorker{
		target: target,
		logger: logger,
		seen:   cache.NewLRU[string](4096, 24*time.Hour),
	}
}

// Run consumes events until ctx is cancelled.
func (w *MirrorWorker) Run(ctx context.Context, consumer Consumer) error {
	w.logger.InfoContext(ctx, "Mirror worker started")
	return consumer.ConsumeTransactionRecorded(ctx, w.HandleTransactionRecorded)
}

// HandleTransactionRecorded mirrors one event. Records that fail validation
// are dropped; storage failures are returned for a retry.
func (w *MirrorWorker) HandleTransactionRecorded(ctx context.Context, msg *amqp.TransactionRecorded) error {
	if ref, ok := w.seen.Get(msg.EventID); ok {
		w.logger.DebugContext(ctx, "Event already mirrored", log.FieldEventID, msg.EventID, "row_ref", ref)
		return nil
	}

	rec, err := msg.TransactionRecord()
	if err != nil {
		return amqp.Permanent(core.ValidationError(core.OpAppend, err))
	}

	ref, err := w.target.Append(ctx, rec)
	if err != nil {
		if core.KindOf(err) == core.KindValidation {
			return amqp.Permanent(err)
		}
		return fmt.Errorf("mirror event %s: %w", msg.EventID, err)
	}
	w.seen.Set(msg.EventID, ref)

	w.logger.InfoContext(ctx, "Transaction mirrored",
		append(log.NewFields().
			WithOperation(log.OpMirror).
			WithSession(msg.Session).
			WithRecord(rec).
			ToSlice(), log.FieldEventID, msg.EventID, "row_ref", ref)...)
	return nil
}
