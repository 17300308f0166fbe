package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"bookkeeper/internal/amqp"
	"bookkeeper/internal/cache"
	"bookkeeper/internal/core"
	"bookkeeper/internal/ledger/memory"
	"bookkeeper/internal/log"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishTransactionRecorded(ctx context.Context, msg *amqp.TransactionRecorded) error {
	return m.Called(ctx, msg).Error(0)
}

type mockSummarizer struct {
	mock.Mock
}

func (m *mockSummarizer) Summarize(ctx context.Context, start, end core.Date) (core.SummaryResult, error) {
	args := m.Called(ctx, start, end)
	return args.Get(0).(core.SummaryResult), args.Error(1)
}

var testSession = core.Session{AppName: "Bookkeeper_App", UserID: "u1", SessionID: "s1"}

func lunch() core.RecordInput {
	return core.NewRecordInput("Payment", "HongXuang", "Lunch", "25/12/2023", "12:30:00", "15.00", "Expense")
}

func withKey(in core.RecordInput, key string) core.RecordInput {
	in.IdempotencyKey = key
	return in
}

func TestRecordTransactionPublishesEvent(t *testing.T) {
	store := memory.New()
	pub := &mockPublisher{}
	pub.On("PublishTransactionRecorded", mock.Anything, mock.MatchedBy(func(msg *amqp.TransactionRecorded) bool {
		return msg.Session == testSession && msg.Record.Merchant == "HongXuang" && msg.RowRef == "mem:1"
	})).Return(nil).Once()

	svc := NewLedgerService(store, &mockSummarizer{}, LedgerServiceConfig{
		Publisher: pub,
		Logger:    log.Discard(),
	})

	msg, err := svc.RecordTransaction(context.Background(), testSession, lunch())
	require.NoError(t, err)
	assert.Equal(t, "✅ Saved Payment at HongXuang (Lunch) for Expense:RM15.00 on 25/12/2023 12:30:00.", msg)
	assert.Equal(t, 1, store.Len())
	pub.AssertExpectations(t)
}

func TestRecordTransactionPublishFailureIsNotFatal(t *testing.T) {
	store := memory.New()
	pub := &mockPublisher{}
	pub.On("PublishTransactionRecorded", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	svc := NewLedgerService(store, &mockSummarizer{}, LedgerServiceConfig{Publisher: pub, Logger: log.Discard()})
	_, err := svc.RecordTransaction(context.Background(), testSession, lunch())
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())
}

func TestRecordTransactionValidation(t *testing.T) {
	store := memory.New()
	pub := &mockPublisher{}
	svc := NewLedgerService(store, &mockSummarizer{}, LedgerServiceConfig{Publisher: pub, Logger: log.Discard()})

	in := core.NewRecordInput("Payment", "X", "Y", "2023-12-25", "10:00", "-1", "Refund")
	_, err := svc.RecordTransaction(context.Background(), testSession, in)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrValidation)
	assert.Contains(t, err.Error(), "ERROR: Invalid transaction")
	assert.Equal(t, 0, store.Len())
	pub.AssertNotCalled(t, "PublishTransactionRecorded", mock.Anything, mock.Anything)
}

type failingAppender struct{}

func (failingAppender) Append(context.Context, core.TransactionRecord) (string, error) {
	return "", errors.New("disk full")
}

func TestRecordTransactionIOFailure(t *testing.T) {
	svc := NewLedgerService(failingAppender{}, &mockSummarizer{}, LedgerServiceConfig{Logger: log.Discard()})
	_, err := svc.RecordTransaction(context.Background(), testSession, lunch())
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrIOFailure)
	assert.Equal(t, "ERROR: Failed to save - disk full", err.Error())
}

func TestRecordTransactionIdempotencyKey(t *testing.T) {
	store := memory.New()
	svc := NewLedgerService(store, &mockSummarizer{}, LedgerServiceConfig{
		Currency:    "$",
		Idempotency: cache.NewIdempotency(10, time.Minute),
		Logger:      log.Discard(),
	})
	ctx := context.Background()

	first, err := svc.RecordTransaction(ctx, testSession, withKey(lunch(), "msg-42"))
	require.NoError(t, err)
	assert.Contains(t, first, "Expense:$15.00")

	again, err := svc.RecordTransaction(ctx, testSession, withKey(lunch(), "msg-42"))
	require.NoError(t, err)
	assert.Equal(t, first, again)
	assert.Equal(t, 1, store.Len())

	other := core.Session{AppName: "Bookkeeper_App", UserID: "u2", SessionID: "s9"}
	_, err = svc.RecordTransaction(ctx, other, withKey(lunch(), "msg-42"))
	require.NoError(t, err)
	assert.Equal(t, 2, store.Len())

	// No key, no deduplication.
	_, err = svc.RecordTransaction(ctx, testSession, lunch())
	require.NoError(t, err)
	assert.Equal(t, 3, store.Len())
}

func TestRecordTransactionConcurrentDuplicates(t *testing.T) {
	store := memory.New()
	svc := NewLedgerService(store, &mockSummarizer{}, LedgerServiceConfig{
		Idempotency: cache.NewIdempotency(10, time.Minute),
		Logger:      log.Discard(),
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RecordTransaction(context.Background(), testSession, withKey(lunch(), "same"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, store.Len())
}

// blockingSummarizer holds every call until release is closed and reports
// the context state it saw at that point.
type blockingSummarizer struct {
	once    sync.Once
	started chan struct{}
	release chan struct{}
	seen    chan error
}

func newBlockingSummarizer() *blockingSummarizer {
	return &blockingSummarizer{
		started: make(chan struct{}),
		release: make(chan struct{}),
		seen:    make(chan error, 4),
	}
}

func (b *blockingSummarizer) Summarize(ctx context.Context, _, _ core.Date) (core.SummaryResult, error) {
	b.once.Do(func() { close(b.started) })
	<-b.release
	b.seen <- ctx.Err()
	if err := ctx.Err(); err != nil {
		return core.SummaryResult{}, err
	}
	return core.SummaryResult{Period: "Start to End"}, nil
}

func TestSummarizeSurvivesFirstCallerCancel(t *testing.T) {
	sum := newBlockingSummarizer()
	svc := NewLedgerService(memory.New(), sum, LedgerServiceConfig{Logger: log.Discard()})

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := svc.Summarize(ctx, testSession, core.Date{}, core.Date{})
		errc <- err
	}()

	<-sum.started
	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)

	close(sum.release)
	assert.NoError(t, <-sum.seen, "the shared scan must not inherit the caller's cancellation")

	res, err := svc.Summarize(context.Background(), testSession, core.Date{}, core.Date{})
	require.NoError(t, err)
	assert.Equal(t, "Start to End", res.Period)
}

// blockingAppender holds the append until release is closed and then
// honours the context it was given.
type blockingAppender struct {
	started chan struct{}
	release chan struct{}
	store   *memory.Store
}

func (b *blockingAppender) Append(ctx context.Context, r core.TransactionRecord) (string, error) {
	close(b.started)
	<-b.release
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return b.store.Append(ctx, r)
}

func TestRecordTransactionWithKeySurvivesCallerCancel(t *testing.T) {
	app := &blockingAppender{started: make(chan struct{}), release: make(chan struct{}), store: memory.New()}
	svc := NewLedgerService(app, &mockSummarizer{}, LedgerServiceConfig{
		Idempotency: cache.NewIdempotency(10, time.Minute),
		Logger:      log.Discard(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := svc.RecordTransaction(ctx, testSession, withKey(lunch(), "retry-1"))
		errc <- err
	}()

	<-app.started
	cancel()
	close(app.release)

	require.NoError(t, <-errc)
	assert.Equal(t, 1, app.store.Len())

	again, err := svc.RecordTransaction(context.Background(), testSession, withKey(lunch(), "retry-1"))
	require.NoError(t, err)
	assert.Contains(t, again, "HongXuang")
	assert.Equal(t, 1, app.store.Len())
}

func TestSummarizeDelegates(t *testing.T) {
	start := core.NewDate(2024, 1, 1)
	want := core.SummaryResult{
		Period:        "2024-01-01 to End",
		TotalIncome:   decimal.NewFromInt(43),
		TotalExpenses: decimal.Zero,
		NetFlow:       decimal.NewFromInt(43),
	}
	sum := &mockSummarizer{}
	sum.On("Summarize", mock.Anything, start, core.Date{}).Return(want, nil).Once()

	svc := NewLedgerService(memory.New(), sum, LedgerServiceConfig{Logger: log.Discard()})
	got, err := svc.Summarize(context.Background(), testSession, start, core.Date{})
	require.NoError(t, err)
	assert.Equal(t, want, got)
	sum.AssertExpectations(t)
}

func TestSummarizePropagatesNotFound(t *testing.T) {
	sum := &mockSummarizer{}
	sum.On("Summarize", mock.Anything, mock.Anything, mock.Anything).
		Return(core.SummaryResult{}, core.NotFoundError(core.OpLoad, "expenses.csv"))

	svc := NewLedgerService(memory.New(), sum, LedgerServiceConfig{Logger: log.Discard()})
	_, err := svc.Summarize(context.Background(), testSession, core.Date{}, core.Date{})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestCurrentDateUsesClock(t *testing.T) {
	svc := NewLedgerService(memory.New(), &mockSummarizer{}, LedgerServiceConfig{
		Logger: log.Discard(),
		Clock:  func() time.Time { return time.Date(2024, 1, 5, 9, 0, 0, 0, time.Local) },
	})
	assert.Equal(t, "2024-01-05 (Friday)", svc.CurrentDate())
}
