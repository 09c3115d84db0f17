package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ninebridge/relayer/pkg/types"
)

const (
	defaultPollInterval = 15 * time.Second
	maxRetryInterval    = 5 * time.Minute
)

// ChainClient reads the source chain. BurnEvents must return events in
// ascending block/transaction order.
type ChainClient interface {
	CurrentHeight(ctx context.Context) (uint64, error)
	BurnEvents(ctx context.Context, contract types.ContractDescription, fromBlock, toBlock uint64) ([]types.BurnEvent, error)
}

// Observer consumes confirmed burn events. A non-nil error means the
// observer could not durably record the event (a store fault, not a
// business outcome) and stops the monitor rather than skipping it.
type Observer interface {
	OnEvent(ctx context.Context, event *types.BurnEvent) error
}

// StateStore persists the per-network watermark.
type StateStore interface {
	SaveMonitorState(network string, blockHeight uint64) error
}

// BurnEventMonitor polls the source chain and delivers newly confirmed
// burn events, in order, to every attached observer. Delivery is
// at-least-once: after a crash the same events may be delivered again,
// and observers absorb that through their dedup check. The watermark only
// advances after a whole batch has been handed off, so no height range is
// ever skipped.
type BurnEventMonitor struct {
	chain         ChainClient
	stateStore    StateStore
	contract      types.ContractDescription
	network       string
	lastProcessed uint64
	confirmations uint64
	pollInterval  time.Duration
	retryInterval time.Duration
	observers     []Observer
}

func NewBurnEventMonitor(
	chain ChainClient,
	stateStore StateStore,
	contract types.ContractDescription,
	network string,
	startHeight uint64,
	confirmations uint64,
	pollInterval time.Duration,
) (*BurnEventMonitor, error) {
	if confirmations == 0 {
		return nil, fmt.Errorf("confirmation depth must be positive")
	}
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &BurnEventMonitor{
		chain:         chain,
		stateStore:    stateStore,
		contract:      contract,
		network:       network,
		lastProcessed: startHeight,
		confirmations: confirmations,
		pollInterval:  pollInterval,
		retryInterval: pollInterval,
	}, nil
}

// Attach registers an observer. Observers are invoked sequentially, in
// attachment order, awaiting full processing of each event before the
// next is delivered.
func (m *BurnEventMonitor) Attach(observer Observer) {
	m.observers = append(m.observers, observer)
}

// Run polls until ctx is cancelled. Chain read errors are retried with
// backoff; observer and state-store errors stop the loop, because losing
// the ability to persist progress is worse than stalling.
func (m *BurnEventMonitor) Run(ctx context.Context) error {
	log.Info().
		Str("network", m.network).
		Str("contract", m.contract.Address).
		Uint64("startHeight", m.lastProcessed).
		Uint64("confirmations", m.confirmations).
		Msg("[BurnEventMonitor] [Run] starting poll loop")
	for {
		delivered, err := m.tick(ctx)
		if err != nil {
			return err
		}
		wait := m.retryInterval
		if delivered {
			wait = m.pollInterval
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
}

// tick runs one fetch-deliver-persist cycle. The bool result reports
// whether the cycle completed without a transient chain fault, which
// resets the retry backoff.
func (m *BurnEventMonitor) tick(ctx context.Context) (bool, error) {
	head, err := m.chain.CurrentHeight(ctx)
	if err != nil {
		m.backoff()
		log.Warn().Err(err).
			Str("network", m.network).
			Dur("retryIn", m.retryInterval).
			Msg("[BurnEventMonitor] [tick] failed to read chain head, will retry")
		return false, nil
	}
	if head < m.confirmations {
		return true, nil
	}
	safeHeight := head - m.confirmations
	if safeHeight <= m.lastProcessed {
		return true, nil
	}
	events, err := m.chain.BurnEvents(ctx, m.contract, m.lastProcessed+1, safeHeight)
	if err != nil {
		m.backoff()
		log.Warn().Err(err).
			Str("network", m.network).
			Uint64("fromBlock", m.lastProcessed+1).
			Uint64("toBlock", safeHeight).
			Dur("retryIn", m.retryInterval).
			Msg("[BurnEventMonitor] [tick] failed to fetch burn events, will retry")
		return false, nil
	}
	m.retryInterval = m.pollInterval
	if len(events) > 0 {
		log.Info().
			Str("network", m.network).
			Uint64("fromBlock", m.lastProcessed+1).
			Uint64("toBlock", safeHeight).
			Int("events", len(events)).
			Msg("[BurnEventMonitor] [tick] delivering confirmed burn events")
	}
	for i := range events {
		for _, observer := range m.observers {
			if err := observer.OnEvent(ctx, &events[i]); err != nil {
				return false, fmt.Errorf("observer failed on event %s: %w", events[i].TxID, err)
			}
		}
	}
	if err := m.stateStore.SaveMonitorState(m.network, safeHeight); err != nil {
		return false, fmt.Errorf("failed to persist watermark %d for %s: %w", safeHeight, m.network, err)
	}
	m.lastProcessed = safeHeight
	return true, nil
}

func (m *BurnEventMonitor) backoff() {
	m.retryInterval *= 2
	if m.retryInterval > maxRetryInterval {
		m.retryInterval = maxRetryInterval
	}
}
