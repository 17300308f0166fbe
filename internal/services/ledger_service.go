// Package services implements the operations callers use to talk to the
// bookkeeper: record a transaction, summarize the ledger and tell the date.
package services

import (
	"context"
	"strings"
	"time"

	"bookkeeper/internal/amqp"
	"bookkeeper/internal/cache"
	"bookkeeper/internal/core"
	"bookkeeper/internal/ledger"
	"bookkeeper/internal/log"

	"golang.org/x/sync/singleflight"
)

// Publisher announces appended transactions.
type Publisher interface {
	PublishTransactionRecorded(ctx context.Context, msg *amqp.TransactionRecorded) error
}

// Summarizer aggregates the ledger over an optional date range.
type Summarizer interface {
	Summarize(ctx context.Context, start, end core.Date) (core.SummaryResult, error)
}

// LedgerServiceConfig carries the optional collaborators.
type LedgerServiceConfig struct {
	Currency    string
	Publisher   Publisher
	Idempotency *cache.Idempotency
	Logger      *log.Logger
	Clock       func() time.Time
}

// LedgerService orchestrates appends, summaries and event publication.
type LedgerService struct {
	store      ledger.Appender
	summarizer Summarizer
	publisher  Publisher
	idem       *cache.Idempotency
	currency   string
	logger     *log.Logger
	now        func() time.Time

	records   singleflight.Group
	summaries singleflight.Group
}

func NewLedgerService(store ledger.Appender, summarizer Summarizer, cfg LedgerServiceConfig) *LedgerService {
	if cfg.Logger == nil {
		cfg.Logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentLedger)
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Currency == "" {
		cfg.Currency = "RM"
	}
	return &LedgerService{
		store:      store,
		summarizer: summarizer,
		publisher:  cfg.Publisher,
		idem:       cfg.Idempotency,
		currency:   cfg.Currency,
		logger:     cfg.Logger,
		now:        cfg.Clock,
	}
}

// RecordTransaction validates in, appends it and returns the confirmation
// shown to the end user. A repeated idempotency key within the same session
// returns the first confirmation without appending again.
func (s *LedgerService) RecordTransaction(ctx context.Context, session core.Session, in core.RecordInput) (string, error) {
	key := strings.TrimSpace(in.IdempotencyKey)
	if key == "" || s.idem == nil {
		return s.record(ctx, session, in, "")
	}

	if confirmation, ok := s.idem.Lookup(session, key); ok {
		s.logger.InfoContext(ctx, "Duplicate submission answered from cache",
			log.NewFields().WithSession(session).WithOperation(log.OpAppend).ToSlice()...)
		return confirmation, nil
	}

	// Concurrent retries with the same key share one append. The flight is
	// detached from the caller that started it so its cancellation does not
	// fail the others.
	flightCtx := context.WithoutCancel(ctx)
	v, err, _ := s.records.Do(session.Key()+"#"+key, func() (any, error) {
		if confirmation, ok := s.idem.Lookup(session, key); ok {
			return confirmation, nil
		}
		return s.record(flightCtx, session, in, key)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (s *LedgerService) record(ctx context.Context, session core.Session, in core.RecordInput, key string) (string, error) {
	rec, err := in.Record()
	if err != nil {
		verr := core.ValidationError(core.OpAppend, err)
		s.logger.WarnContext(ctx, "Rejected transaction",
			log.NewFields().WithSession(session).WithError(verr).ToSlice()...)
		return "", verr
	}

	confirmation, ref, err := ledger.Record(ctx, s.store, rec, s.currency)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to record transaction",
			log.NewFields().WithSession(session).WithRecord(rec).WithError(err).ToSlice()...)
		return "", err
	}

	if key != "" && s.idem != nil {
		confirmation = s.idem.Remember(session, key, confirmation)
	}

	s.logger.InfoContext(ctx, "Transaction recorded",
		append(log.NewFields().WithSession(session).WithRecord(rec).ToSlice(), "row_ref", ref)...)

	// The ledger is already written; a failed publish must not undo it.
	s.publish(ctx, session, rec, ref)

	return confirmation, nil
}

func (s *LedgerService) publish(ctx context.Context, session core.Session, rec core.TransactionRecord, ref string) {
	if s.publisher == nil {
		return
	}
	msg := amqp.NewTransactionRecorded(session, rec, ref)
	if err := s.publisher.PublishTransactionRecorded(ctx, msg); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish transaction event",
			log.NewFields().WithOperation(log.OpPublish).WithError(err).ToSlice()...)
	}
}

// Summarize returns the ledger summary for [start, end]. Identical
// concurrent calls share one scan.
func (s *LedgerService) Summarize(ctx context.Context, session core.Session, start, end core.Date) (core.SummaryResult, error) {
	key := start.Format(core.QueryDateLayout) + "|" + end.Format(core.QueryDateLayout)
	flightCtx := context.WithoutCancel(ctx)
	ch := s.summaries.DoChan(key, func() (any, error) {
		return s.summarizer.Summarize(flightCtx, start, end)
	})

	var r singleflight.Result
	select {
	case <-ctx.Done():
		return core.SummaryResult{}, ctx.Err()
	case r = <-ch:
	}
	v, err, shared := r.Val, r.Err, r.Shared
	if err != nil {
		s.logger.WarnContext(ctx, "Summary failed",
			log.NewFields().WithSession(session).WithOperation(log.OpSummarize).WithError(err).ToSlice()...)
		return core.SummaryResult{}, err
	}

	res := v.(core.SummaryResult)
	s.logger.DebugContext(ctx, "Summary computed",
		log.FieldPeriod, res.Period,
		log.FieldMatched, res.Matched,
		"shared", shared)
	return res, nil
}

// CurrentDate returns today's date and weekday in local time.
func (s *LedgerService) CurrentDate() string {
	return core.CurrentDate(s.now())
}
