package relayer

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
	"github.com/ninebridge/relayer/pkg/types"
)

type fakePendingStore struct {
	pending   []models.ExchangeHistory
	fetchErr  error
	updateErr map[string]error
	updated   []string
}

func (s *fakePendingStore) GetPendingTransactions() ([]models.ExchangeHistory, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return s.pending, nil
}

func (s *fakePendingStore) UpdateExchangeStatus(txID string, status types.TransactionStatus) error {
	if err := s.updateErr[txID]; err != nil {
		return err
	}
	s.updated = append(s.updated, txID)
	return nil
}

type capturingSender struct{ messages []notify.Message }

func (s *capturingSender) Send(ctx context.Context, message notify.Message) error {
	s.messages = append(s.messages, message)
	return nil
}

type stubNamer struct{}

func (stubNamer) PlanetName(string) string { return "odin" }

func pendingRow(txID string) models.ExchangeHistory {
	return models.ExchangeHistory{
		Network:   "bsc",
		TxID:      txID,
		Sender:    "0xSender",
		Recipient: "0xRecipient",
		Timestamp: time.Now().UTC(),
		Amount:    decimal.RequireFromString("100"),
		Status:    types.StatusPending,
	}
}

func newHandler(store *fakePendingStore, chat *capturingSender) *PendingTransactionRetryHandler {
	return NewPendingTransactionRetryHandler(store, stubNamer{}, chat, notify.ExplorerURLs{Source: "https://bscscan.com"}, time.Hour)
}

func TestSweepFailsAllPendingWithOneMessage(t *testing.T) {
	store := &fakePendingStore{pending: []models.ExchangeHistory{pendingRow("TX-1"), pendingRow("TX-2")}}
	chat := &capturingSender{}
	handler := newHandler(store, chat)

	require.NoError(t, handler.sweep(context.Background(), false))

	require.Equal(t, []string{"TX-1", "TX-2"}, store.updated)
	require.Len(t, chat.messages, 1)
	message, ok := chat.messages[0].(notify.PendingTransactionMessage)
	require.True(t, ok)
	require.Equal(t, "2 Pending Transactions Found", message.Render().Text)
}

func TestSweepEmptyIsSilent(t *testing.T) {
	store := &fakePendingStore{}
	chat := &capturingSender{}
	handler := newHandler(store, chat)

	require.NoError(t, handler.sweep(context.Background(), false))
	require.Empty(t, chat.messages)
	require.Empty(t, store.updated)
}

func TestStartupSweepAnnouncesRestart(t *testing.T) {
	store := &fakePendingStore{}
	chat := &capturingSender{}
	handler := newHandler(store, chat)

	require.NoError(t, handler.sweep(context.Background(), true))
	require.Len(t, chat.messages, 1)
	require.Equal(t, "No pending transactions", chat.messages[0].Render().Text)
}

func TestSweepSkipsRowsFinalizedMeanwhile(t *testing.T) {
	store := &fakePendingStore{
		pending:   []models.ExchangeHistory{pendingRow("TX-1"), pendingRow("TX-2")},
		updateErr: map[string]error{"TX-1": db.ErrTerminalStatus},
	}
	chat := &capturingSender{}
	handler := newHandler(store, chat)

	require.NoError(t, handler.sweep(context.Background(), false))
	require.Equal(t, []string{"TX-2"}, store.updated)
}

func TestSweepStopsOnStoreFault(t *testing.T) {
	store := &fakePendingStore{fetchErr: fmt.Errorf("database unavailable")}
	handler := newHandler(store, &capturingSender{})

	require.Error(t, handler.sweep(context.Background(), false))
}
