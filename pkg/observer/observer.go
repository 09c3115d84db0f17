package observer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/ninebridge/relayer/pkg/db"
	"github.com/ninebridge/relayer/pkg/db/models"
	"github.com/ninebridge/relayer/pkg/notify"
	"github.com/ninebridge/relayer/pkg/planet"
	"github.com/ninebridge/relayer/pkg/policy"
	"github.com/ninebridge/relayer/pkg/transfer"
	"github.com/ninebridge/relayer/pkg/types"
)

// HistoryStore is the slice of the database adapter the observer needs.
type HistoryStore interface {
	PutExchangeHistory(history *models.ExchangeHistory) error
	ExchangeHistoryExist(txID string) (bool, error)
	UpdateExchangeStatus(txID string, status types.TransactionStatus) error
	TransferredAmountInLast24Hours(network, sender string) (decimal.Decimal, error)
}

// Limits bounds a single exchange request. Whitelisted senders trade
// under the alternate ceiling instead of MaximumAmount; the rolling
// 24-hour cap applies to everyone.
type Limits struct {
	MinimumAmount    decimal.Decimal
	MaximumAmount    decimal.Decimal
	WhitelistMaximum decimal.Decimal
	DailyLimit       decimal.Decimal
	Whitelist        map[string]bool
}

func (l Limits) ceilingFor(sender string) decimal.Decimal {
	if l.Whitelist[strings.ToLower(sender)] {
		return l.WhitelistMaximum
	}
	return l.MaximumAmount
}

// BurnEventObserver turns one confirmed burn event into one
// destination-chain transfer. Business failures (validation
// rejections, definitive transfer failures) are absorbed into FAILED
// rows and notifications; only store faults surface as errors, which
// stop the monitor.
type BurnEventObserver struct {
	store           HistoryStore
	policy          policy.FeeRatioPolicy
	executor        transfer.Executor
	planets         *planet.Registry
	chat            notify.Sender
	pager           notify.Pager
	recorders       []notify.Recorder
	explorer        notify.ExplorerURLs
	limits          Limits
	transferTimeout time.Duration
}

func NewBurnEventObserver(
	store HistoryStore,
	feePolicy policy.FeeRatioPolicy,
	executor transfer.Executor,
	planets *planet.Registry,
	chat notify.Sender,
	pager notify.Pager,
	recorders []notify.Recorder,
	explorer notify.ExplorerURLs,
	limits Limits,
	transferTimeout time.Duration,
) *BurnEventObserver {
	return &BurnEventObserver{
		store:           store,
		policy:          feePolicy,
		executor:        executor,
		planets:         planets,
		chat:            chat,
		pager:           pager,
		recorders:       recorders,
		explorer:        explorer,
		limits:          limits,
		transferTimeout: transferTimeout,
	}
}

func (o *BurnEventObserver) OnEvent(ctx context.Context, event *types.BurnEvent) error {
	exist, err := o.store.ExchangeHistoryExist(event.TxID)
	if err != nil {
		return fmt.Errorf("failed to check history for %s: %w", event.TxID, err)
	}
	if exist {
		log.Debug().
			Str("txId", event.TxID).
			Msg("[BurnEventObserver] [OnEvent] event already recorded, skipping")
		return nil
	}

	if reason, err := o.validate(event); err != nil {
		return err
	} else if reason != "" {
		return o.reject(ctx, event, reason)
	}

	history := &models.ExchangeHistory{
		Network:   event.SourceNetwork,
		TxID:      event.TxID,
		Sender:    event.Sender,
		Recipient: event.Recipient,
		Timestamp: time.Now().UTC(),
		Amount:    event.Amount,
		Status:    types.StatusPending,
	}
	if err := o.store.PutExchangeHistory(history); err != nil {
		if errors.Is(err, db.ErrDuplicateKey) {
			log.Debug().
				Str("txId", event.TxID).
				Msg("[BurnEventObserver] [OnEvent] concurrent insert, skipping")
			return nil
		}
		return fmt.Errorf("failed to record exchange %s: %w", event.TxID, err)
	}

	fee, err := o.policy.Apply(event.Amount)
	if err != nil {
		return o.fail(ctx, event, fmt.Sprintf("fee policy rejected amount: %v", err))
	}
	if fee.GreaterThanOrEqual(event.Amount) {
		return o.fail(ctx, event, fmt.Sprintf("fee %s consumes the whole amount %s", fee, event.Amount))
	}
	netAmount := event.Amount.Sub(fee)
	route := o.planets.Resolve(event.Recipient)

	destinationTxID, err := o.transfer(ctx, route, netAmount, event.TxID)
	if err != nil {
		if isDefinitiveFailure(err) {
			if failErr := o.fail(ctx, event, err.Error()); failErr != nil {
				return failErr
			}
			o.page(ctx, event, err)
			return nil
		}
		// Outcome unknown. The row stays PENDING so the retry sweep
		// surfaces it instead of risking a double payout.
		log.Warn().Err(err).
			Str("txId", event.TxID).
			Msg("[BurnEventObserver] [OnEvent] transfer outcome unknown, leaving transaction pending")
		return nil
	}

	if err := o.store.UpdateExchangeStatus(event.TxID, types.StatusCompleted); err != nil {
		if errors.Is(err, db.ErrTerminalStatus) {
			log.Warn().
				Str("txId", event.TxID).
				Str("destinationTxId", destinationTxID).
				Msg("[BurnEventObserver] [OnEvent] transfer succeeded but row was already finalized")
		} else {
			return fmt.Errorf("failed to complete exchange %s: %w", event.TxID, err)
		}
	}
	log.Info().
		Str("txId", event.TxID).
		Str("destinationTxId", destinationTxID).
		Str("planet", route.Planet).
		Str("amount", event.Amount.String()).
		Str("fee", fee.String()).
		Msg("[BurnEventObserver] [OnEvent] exchange completed")

	o.announce(ctx, event, fee, netAmount, destinationTxID, route.Planet)
	return nil
}

// validate returns a non-empty rejection reason for business-rule
// violations. An error is a store fault.
func (o *BurnEventObserver) validate(event *types.BurnEvent) (string, error) {
	amount := event.Amount
	if !amount.Equal(amount.Truncate(policy.NCGPrecision)) {
		return fmt.Sprintf("amount %s has more than %d decimal places", amount, policy.NCGPrecision), nil
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return fmt.Sprintf("amount %s should be positive", amount), nil
	}
	if amount.LessThan(o.limits.MinimumAmount) {
		return fmt.Sprintf("amount %s is less than the minimum %s", amount, o.limits.MinimumAmount), nil
	}
	ceiling := o.limits.ceilingFor(event.Sender)
	if amount.GreaterThan(ceiling) {
		return fmt.Sprintf("amount %s is greater than the maximum %s", amount, ceiling), nil
	}
	transferred, err := o.store.TransferredAmountInLast24Hours(event.SourceNetwork, event.Sender)
	if err != nil {
		return "", fmt.Errorf("failed to sum 24h transfers for %s: %w", event.Sender, err)
	}
	if transferred.Add(amount).GreaterThan(o.limits.DailyLimit) {
		return fmt.Sprintf(
			"sender exceeds the 24h transfer limit %s: already transferred %s, requested %s",
			o.limits.DailyLimit, transferred, amount), nil
	}
	return "", nil
}

// reject records a validation failure as a terminal FAILED row. No
// transfer was attempted, so there is nothing to retry.
func (o *BurnEventObserver) reject(ctx context.Context, event *types.BurnEvent, reason string) error {
	log.Info().
		Str("txId", event.TxID).
		Str("reason", reason).
		Msg("[BurnEventObserver] [reject] exchange request rejected")
	history := &models.ExchangeHistory{
		Network:   event.SourceNetwork,
		TxID:      event.TxID,
		Sender:    event.Sender,
		Recipient: event.Recipient,
		Timestamp: time.Now().UTC(),
		Amount:    event.Amount,
		Status:    types.StatusFailed,
	}
	if err := o.store.PutExchangeHistory(history); err != nil {
		if errors.Is(err, db.ErrDuplicateKey) {
			return nil
		}
		return fmt.Errorf("failed to record rejection of %s: %w", event.TxID, err)
	}
	o.send(ctx, notify.TransferRejectedMessage{
		Event:    event,
		Reason:   reason,
		Planet:   o.planets.PlanetName(event.Recipient),
		Explorer: o.explorer,
	})
	return nil
}

// fail finalizes an already-recorded PENDING row as FAILED and sends
// the failure notification.
func (o *BurnEventObserver) fail(ctx context.Context, event *types.BurnEvent, reason string) error {
	log.Error().
		Str("txId", event.TxID).
		Str("reason", reason).
		Msg("[BurnEventObserver] [fail] exchange failed")
	if err := o.store.UpdateExchangeStatus(event.TxID, types.StatusFailed); err != nil {
		if !errors.Is(err, db.ErrTerminalStatus) {
			return fmt.Errorf("failed to mark exchange %s failed: %w", event.TxID, err)
		}
	}
	o.send(ctx, notify.TransferFailedMessage{
		Event:    event,
		Reason:   reason,
		Planet:   o.planets.PlanetName(event.Recipient),
		Explorer: o.explorer,
	})
	return nil
}

func (o *BurnEventObserver) transfer(ctx context.Context, route planet.Route, amount decimal.Decimal, idempotencyKey string) (string, error) {
	if o.transferTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.transferTimeout)
		defer cancel()
	}
	return o.executor.Transfer(ctx, route.Recipient, amount, route.Memo, idempotencyKey)
}

func (o *BurnEventObserver) announce(ctx context.Context, event *types.BurnEvent, fee, netAmount decimal.Decimal, destinationTxID, planetName string) {
	o.send(ctx, notify.TransferCompleteMessage{
		Event:           event,
		Fee:             fee,
		NetAmount:       netAmount,
		DestinationTxID: destinationTxID,
		Planet:          planetName,
		Explorer:        o.explorer,
	})
	record := notify.ExchangeRecord{
		Network:         event.SourceNetwork,
		TxID:            event.TxID,
		DestinationTxID: destinationTxID,
		Sender:          event.Sender,
		Recipient:       event.Recipient,
		Planet:          planetName,
		Amount:          event.Amount,
		Fee:             fee,
		Timestamp:       time.Now().UTC(),
	}
	for _, recorder := range o.recorders {
		if err := recorder.Record(ctx, record); err != nil {
			log.Error().Err(err).
				Str("txId", event.TxID).
				Msg("[BurnEventObserver] [announce] failed to record exchange")
		}
	}
}

func (o *BurnEventObserver) send(ctx context.Context, message notify.Message) {
	if o.chat == nil {
		return
	}
	if err := o.chat.Send(ctx, message); err != nil {
		log.Error().Err(err).Msg("[BurnEventObserver] [send] failed to deliver notification")
	}
}

func (o *BurnEventObserver) page(ctx context.Context, event *types.BurnEvent, cause error) {
	if o.pager == nil {
		return
	}
	details := map[string]any{
		"network": event.SourceNetwork,
		"txId":    event.TxID,
		"sender":  event.Sender,
		"amount":  event.Amount.String(),
		"cause":   cause.Error(),
	}
	if err := o.pager.Trigger(ctx, fmt.Sprintf("wNCG → NCG transfer failed for %s", event.TxID), details); err != nil {
		log.Error().Err(err).
			Str("txId", event.TxID).
			Msg("[BurnEventObserver] [page] failed to raise incident")
	}
}

func isDefinitiveFailure(err error) bool {
	return errors.Is(err, transfer.ErrInsufficientFunds) || errors.Is(err, transfer.ErrRejectedByChain)
}
