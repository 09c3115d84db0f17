package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ninebridge/relayer/pkg/types"
)

// ExchangeHistory is the persisted record of one transfer attempt.
// TxID is the source-chain transaction id and the primary dedup key.
type ExchangeHistory struct {
	gorm.Model
	Network   string                  `gorm:"type:varchar(64);index:idx_network_sender"`
	TxID      string                  `gorm:"column:tx_id;uniqueIndex;type:varchar(255)"`
	Sender    string                  `gorm:"type:varchar(255);index:idx_network_sender"`
	Recipient string                  `gorm:"type:varchar(255)"`
	Timestamp time.Time               `gorm:"index"`
	Amount    decimal.Decimal         `gorm:"type:numeric(32,2)"`
	Status    types.TransactionStatus `gorm:"type:varchar(16);index"`
}

// MonitorState is the per-network watermark: the last block whose events
// have been fully delivered and recorded.
type MonitorState struct {
	gorm.Model
	Network     string `gorm:"uniqueIndex;type:varchar(64)"`
	BlockHeight uint64 `gorm:"type:bigint"`
}
