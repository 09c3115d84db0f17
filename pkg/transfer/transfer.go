package transfer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Definitive transfer failures. Anything not wrapping one of these is
// treated by callers as a transient fault with an unknown outcome.
var (
	ErrInsufficientFunds = errors.New("transfer account has insufficient funds")
	ErrRejectedByChain   = errors.New("transfer transaction rejected by destination chain")
)

// ErrSignerUnavailable marks a fault reaching the remote signing
// service. The transfer was never submitted.
var ErrSignerUnavailable = errors.New("remote signer unavailable")

// Executor submits one destination-chain transfer. Implementations are
// idempotent on idempotencyKey: repeating a key that already produced a
// transaction returns the same transaction id without submitting again.
type Executor interface {
	Transfer(ctx context.Context, recipient string, amount decimal.Decimal, memo, idempotencyKey string) (string, error)
}

// RemoteSigner signs destination-chain transactions with a key held
// outside this process.
type RemoteSigner interface {
	Address() string
	Sign(ctx context.Context, unsignedTx string) (string, error)
}

// Node builds, submits and classifies destination-chain transactions.
type Node interface {
	NextTxNonce(ctx context.Context, address string) (int64, error)
	CreateUnsignedTransfer(ctx context.Context, sender, recipient string, amount decimal.Decimal, memo string, nonce int64) (string, error)
	StageTransaction(ctx context.Context, signedTx string) (string, error)
}

// SignerTransfer is an Executor backed by a remote signer and a
// destination node. Completed transfers are remembered per idempotency
// key so redelivered events never double-spend within a process.
type SignerTransfer struct {
	signer RemoteSigner
	node   Node

	mu        sync.Mutex
	completed map[string]string
}

func NewSignerTransfer(signer RemoteSigner, node Node) *SignerTransfer {
	return &SignerTransfer{
		signer:    signer,
		node:      node,
		completed: make(map[string]string),
	}
}

func (s *SignerTransfer) Transfer(ctx context.Context, recipient string, amount decimal.Decimal, memo, idempotencyKey string) (string, error) {
	s.mu.Lock()
	if txID, ok := s.completed[idempotencyKey]; ok {
		s.mu.Unlock()
		log.Debug().
			Str("idempotencyKey", idempotencyKey).
			Str("txId", txID).
			Msg("[SignerTransfer] [Transfer] returning previously submitted transaction")
		return txID, nil
	}
	s.mu.Unlock()

	nonce, err := s.node.NextTxNonce(ctx, s.signer.Address())
	if err != nil {
		return "", fmt.Errorf("failed to read next nonce: %w", err)
	}
	unsignedTx, err := s.node.CreateUnsignedTransfer(ctx, s.signer.Address(), recipient, amount, memo, nonce)
	if err != nil {
		return "", fmt.Errorf("failed to build transfer transaction: %w", err)
	}
	signedTx, err := s.signer.Sign(ctx, unsignedTx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSignerUnavailable, err)
	}
	txID, err := s.node.StageTransaction(ctx, signedTx)
	if err != nil {
		return "", fmt.Errorf("failed to stage transfer transaction: %w", err)
	}

	s.mu.Lock()
	s.completed[idempotencyKey] = txID
	s.mu.Unlock()
	log.Info().
		Str("idempotencyKey", idempotencyKey).
		Str("recipient", recipient).
		Str("amount", amount.String()).
		Str("txId", txID).
		Msg("[SignerTransfer] [Transfer] transfer staged")
	return txID, nil
}
