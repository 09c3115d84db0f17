package types

import (
	"github.com/shopspring/decimal"
)

// TransactionStatus is the lifecycle state of an exchange history row.
// A row is created PENDING and moves to COMPLETED or FAILED exactly once.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "PENDING"
	StatusCompleted TransactionStatus = "COMPLETED"
	StatusFailed    TransactionStatus = "FAILED"
)

func (s TransactionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ContractDescription identifies the bridge contract and the burn event
// topic the monitor filters for.
type ContractDescription struct {
	Address    string
	EventTopic string
}

// BurnEvent is one confirmed wrapped-token burn observed on the source
// chain. TxID is globally unique per network and serves as the dedup key
// for the whole pipeline.
type BurnEvent struct {
	SourceNetwork string
	BlockHeight   uint64
	BlockHash     string
	TxID          string
	Sender        string
	Recipient     string
	Amount        decimal.Decimal
}
