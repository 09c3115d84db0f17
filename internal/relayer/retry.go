package relayer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ninebridge/relayer/pkg/db"
	"github.com/ninebridge/relayer/pkg/db/models"
	"github.com/ninebridge/relayer/pkg/notify"
	"github.com/ninebridge/relayer/pkg/types"
)

const defaultSweepInterval = time.Hour

// PendingStore is the slice of the database adapter the sweep needs.
type PendingStore interface {
	GetPendingTransactions() ([]models.ExchangeHistory, error)
	UpdateExchangeStatus(txID string, status types.TransactionStatus) error
}

// PendingTransactionRetryHandler sweeps transactions stuck in PENDING.
// A pending row means a transfer with an unknown outcome: the sweep
// never re-submits it. It reports all pending rows in one batched
// message and marks them FAILED so an operator settles them by hand.
type PendingTransactionRetryHandler struct {
	store    PendingStore
	planets  notify.PlanetNamer
	chat     notify.Sender
	explorer notify.ExplorerURLs
	interval time.Duration
}

func NewPendingTransactionRetryHandler(
	store PendingStore,
	planets notify.PlanetNamer,
	chat notify.Sender,
	explorer notify.ExplorerURLs,
	interval time.Duration,
) *PendingTransactionRetryHandler {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &PendingTransactionRetryHandler{
		store:    store,
		planets:  planets,
		chat:     chat,
		explorer: explorer,
		interval: interval,
	}
}

// Run sweeps once at startup, announcing even an empty result as the
// restart notice, then keeps sweeping on the interval until ctx is
// cancelled. Store faults stop the loop.
func (h *PendingTransactionRetryHandler) Run(ctx context.Context) error {
	if err := h.sweep(ctx, true); err != nil {
		return err
	}
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := h.sweep(ctx, false); err != nil {
				return err
			}
		}
	}
}

func (h *PendingTransactionRetryHandler) sweep(ctx context.Context, announceEmpty bool) error {
	pending, err := h.store.GetPendingTransactions()
	if err != nil {
		return fmt.Errorf("failed to fetch pending transactions: %w", err)
	}
	if len(pending) == 0 && !announceEmpty {
		return nil
	}
	log.Info().
		Int("pending", len(pending)).
		Msg("[PendingTransactionRetryHandler] [sweep] sweeping pending transactions")
	h.send(ctx, notify.PendingTransactionMessage{
		Transactions: pending,
		Planets:      h.planets,
		Explorer:     h.explorer,
	})
	for _, tx := range pending {
		if err := h.store.UpdateExchangeStatus(tx.TxID, types.StatusFailed); err != nil {
			if errors.Is(err, db.ErrTerminalStatus) {
				// The observer finalized this row between the fetch and
				// the update. Its outcome wins.
				log.Warn().
					Str("txId", tx.TxID).
					Msg("[PendingTransactionRetryHandler] [sweep] row already finalized, skipping")
				continue
			}
			return fmt.Errorf("failed to mark pending transaction %s failed: %w", tx.TxID, err)
		}
	}
	return nil
}

func (h *PendingTransactionRetryHandler) send(ctx context.Context, message notify.Message) {
	if h.chat == nil {
		return
	}
	if err := h.chat.Send(ctx, message); err != nil {
		log.Error().Err(err).Msg("[PendingTransactionRetryHandler] [send] failed to deliver notification")
	}
}
