package observer

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ninebridge/relayer/pkg/db"
	"github.com/ninebridge/relayer/pkg/db/models"
	"github.com/ninebridge/relayer/pkg/notify"
	"github.com/ninebridge/relayer/pkg/planet"
	"github.com/ninebridge/relayer/pkg/policy"
	"github.com/ninebridge/relayer/pkg/transfer"
	"github.com/ninebridge/relayer/pkg/types"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fakeStore struct {
	rows        map[string]*models.ExchangeHistory
	transferred decimal.Decimal
	existErr    error
	sumErr      error
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[string]*models.ExchangeHistory)}
}

func (s *fakeStore) PutExchangeHistory(history *models.ExchangeHistory) error {
	if _, ok := s.rows[history.TxID]; ok {
		return db.ErrDuplicateKey
	}
	clone := *history
	s.rows[history.TxID] = &clone
	return nil
}

func (s *fakeStore) ExchangeHistoryExist(txID string) (bool, error) {
	if s.existErr != nil {
		return false, s.existErr
	}
	_, ok := s.rows[txID]
	return ok, nil
}

func (s *fakeStore) UpdateExchangeStatus(txID string, status types.TransactionStatus) error {
	row, ok := s.rows[txID]
	if !ok {
		return db.ErrNotFound
	}
	if row.Status.IsTerminal() && row.Status != status {
		return db.ErrTerminalStatus
	}
	row.Status = status
	return nil
}

func (s *fakeStore) TransferredAmountInLast24Hours(network, sender string) (decimal.Decimal, error) {
	if s.sumErr != nil {
		return decimal.Zero, s.sumErr
	}
	return s.transferred, nil
}

type fakeExecutor struct {
	calls     int
	recipient string
	amount    decimal.Decimal
	memo      string
	err       error
}

func (e *fakeExecutor) Transfer(ctx context.Context, recipient string, amount decimal.Decimal, memo, idempotencyKey string) (string, error) {
	e.calls++
	e.recipient = recipient
	e.amount = amount
	e.memo = memo
	if e.err != nil {
		return "", e.err
	}
	return "NCG-TX-1", nil
}

type fakeSender struct{ messages []notify.Message }

func (s *fakeSender) Send(ctx context.Context, message notify.Message) error {
	s.messages = append(s.messages, message)
	return nil
}

type fakePager struct{ triggered int }

func (p *fakePager) Trigger(ctx context.Context, summary string, details map[string]any) error {
	p.triggered++
	return nil
}

type fakeRecorder struct{ records []notify.ExchangeRecord }

func (r *fakeRecorder) Record(ctx context.Context, record notify.ExchangeRecord) error {
	r.records = append(r.records, record)
	return nil
}

type fixture struct {
	observer *BurnEventObserver
	store    *fakeStore
	executor *fakeExecutor
	chat     *fakeSender
	pager    *fakePager
	recorder *fakeRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	// The policy ceiling tracks the whitelist maximum, as the service
	// wires it, so whitelisted amounts above the regular maximum still
	// price at the range2 ratio.
	feePolicy, err := policy.NewFixedExchangeFeeRatioPolicy(
		d("1000000"), d("500"), d("50"), d("1"), d("0.01"), d("0.02"))
	require.NoError(t, err)
	planets, err := planet.NewRegistry("odin", []planet.Planet{
		{Name: "odin", ID: "0x100000000000"},
		{Name: "heimdall", ID: "0x100000000001", VaultAddress: "0xVaultOnOdin"},
	})
	require.NoError(t, err)

	f := &fixture{
		store:    newFakeStore(),
		executor: &fakeExecutor{},
		chat:     &fakeSender{},
		pager:    &fakePager{},
		recorder: &fakeRecorder{},
	}
	f.observer = NewBurnEventObserver(
		f.store,
		feePolicy,
		f.executor,
		planets,
		f.chat,
		f.pager,
		[]notify.Recorder{f.recorder},
		notify.ExplorerURLs{Source: "https://bscscan.com", Destination: "https://9cscan.com"},
		Limits{
			MinimumAmount:    d("100"),
			MaximumAmount:    d("100000"),
			WhitelistMaximum: d("1000000"),
			DailyLimit:       d("5000"),
			Whitelist:        map[string]bool{"0xwhitelistedsender": true},
		},
		time.Minute,
	)
	return f
}

func event(txID, amount string) *types.BurnEvent {
	return &types.BurnEvent{
		SourceNetwork: "bsc",
		BlockHeight:   1234,
		TxID:          txID,
		Sender:        "0xSender",
		Recipient:     "0x1000000000009c09b254b5f84838ffa89136b0bd",
		Amount:        decimal.RequireFromString(amount),
	}
}

func TestOnEventCompletesExchange(t *testing.T) {
	f := newFixture(t)

	err := f.observer.OnEvent(context.Background(), event("TX-1", "100"))
	require.NoError(t, err)

	require.Equal(t, 1, f.executor.calls)
	require.True(t, f.executor.amount.Equal(d("99")), "got %s", f.executor.amount)
	require.Equal(t, "0x9c09b254b5f84838ffa89136b0bd", f.executor.recipient)
	require.Empty(t, f.executor.memo)

	require.Equal(t, types.StatusCompleted, f.store.rows["TX-1"].Status)
	require.Len(t, f.chat.messages, 1)
	require.IsType(t, notify.TransferCompleteMessage{}, f.chat.messages[0])
	require.Len(t, f.recorder.records, 1)
	require.Equal(t, "NCG-TX-1", f.recorder.records[0].DestinationTxID)
}

func TestOnEventRoutesThroughVault(t *testing.T) {
	f := newFixture(t)
	ev := event("TX-1", "100")
	ev.Recipient = "0x1000000000019c09b254b5f84838ffa89136b0bd"

	require.NoError(t, f.observer.OnEvent(context.Background(), ev))
	require.Equal(t, "0xVaultOnOdin", f.executor.recipient)
	require.Equal(t, "0x9c09b254b5f84838ffa89136b0bd", f.executor.memo)
}

func TestOnEventIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ev := event("TX-1", "100")

	require.NoError(t, f.observer.OnEvent(context.Background(), ev))
	require.NoError(t, f.observer.OnEvent(context.Background(), ev))

	require.Equal(t, 1, f.executor.calls)
	require.Len(t, f.store.rows, 1)
	require.Len(t, f.chat.messages, 1)
}

func TestOnEventRejectsBelowMinimum(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.observer.OnEvent(context.Background(), event("TX-1", "99.99")))

	require.Zero(t, f.executor.calls)
	require.Equal(t, types.StatusFailed, f.store.rows["TX-1"].Status)
	require.Len(t, f.chat.messages, 1)
	require.IsType(t, notify.TransferRejectedMessage{}, f.chat.messages[0])
}

func TestOnEventRejectsExcessPrecision(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.observer.OnEvent(context.Background(), event("TX-1", "100.123")))

	require.Zero(t, f.executor.calls)
	require.Equal(t, types.StatusFailed, f.store.rows["TX-1"].Status)
}

func TestOnEventRejectsAboveMaximum(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.observer.OnEvent(context.Background(), event("TX-1", "100000.01")))
	require.Zero(t, f.executor.calls)
	require.Equal(t, types.StatusFailed, f.store.rows["TX-1"].Status)
}

func TestOnEventWhitelistedSenderUsesAlternateCeiling(t *testing.T) {
	f := newFixture(t)
	f.observer.limits.DailyLimit = d("1000000")
	ev := event("TX-1", "200000")
	ev.Sender = "0xWhitelistedSender"

	require.NoError(t, f.observer.OnEvent(context.Background(), ev))
	// Above MaximumAmount but under the whitelist ceiling: the request
	// passes validation and completes, with the fee priced at the
	// range2 ratio.
	require.Equal(t, 1, f.executor.calls)
	require.True(t, f.executor.amount.Equal(d("196000")), "got %s", f.executor.amount)
	require.Equal(t, types.StatusCompleted, f.store.rows["TX-1"].Status)
	require.Len(t, f.chat.messages, 1)
	require.IsType(t, notify.TransferCompleteMessage{}, f.chat.messages[0])
}

func TestOnEventFailsWhenFeeConsumesAmount(t *testing.T) {
	f := newFixture(t)
	// A schedule whose base fee swallows small amounts whole.
	feePolicy, err := policy.NewFixedExchangeFeeRatioPolicy(
		d("1000000"), d("500"), d("50"), d("40"), d("0.01"), d("0.02"))
	require.NoError(t, err)
	f.observer.policy = feePolicy
	f.observer.limits.MinimumAmount = d("1")

	require.NoError(t, f.observer.OnEvent(context.Background(), event("TX-1", "40")))

	// Fee equals the amount: nothing would reach the recipient.
	require.Zero(t, f.executor.calls)
	require.Equal(t, types.StatusFailed, f.store.rows["TX-1"].Status)
	require.Len(t, f.chat.messages, 1)
	require.IsType(t, notify.TransferFailedMessage{}, f.chat.messages[0])
}

func TestOnEventEnforcesDailyLimit(t *testing.T) {
	f := newFixture(t)
	f.store.transferred = d("4950")

	require.NoError(t, f.observer.OnEvent(context.Background(), event("TX-1", "100")))

	require.Zero(t, f.executor.calls)
	require.Equal(t, types.StatusFailed, f.store.rows["TX-1"].Status)
	require.IsType(t, notify.TransferRejectedMessage{}, f.chat.messages[0])
}

func TestOnEventLeavesPendingOnTransientFault(t *testing.T) {
	f := newFixture(t)
	f.executor.err = fmt.Errorf("%w: connection refused", transfer.ErrSignerUnavailable)

	require.NoError(t, f.observer.OnEvent(context.Background(), event("TX-1", "100")))

	require.Equal(t, types.StatusPending, f.store.rows["TX-1"].Status)
	require.Zero(t, f.pager.triggered)
	require.Empty(t, f.chat.messages)
}

func TestOnEventFailsOnDefinitiveFault(t *testing.T) {
	f := newFixture(t)
	f.executor.err = fmt.Errorf("%w: balance too low", transfer.ErrInsufficientFunds)

	require.NoError(t, f.observer.OnEvent(context.Background(), event("TX-1", "100")))

	require.Equal(t, types.StatusFailed, f.store.rows["TX-1"].Status)
	require.Equal(t, 1, f.pager.triggered)
	require.Len(t, f.chat.messages, 1)
	require.IsType(t, notify.TransferFailedMessage{}, f.chat.messages[0])
}

func TestOnEventPropagatesStoreFaults(t *testing.T) {
	f := newFixture(t)
	f.store.existErr = fmt.Errorf("database unavailable")

	err := f.observer.OnEvent(context.Background(), event("TX-1", "100"))
	require.Error(t, err)
}
