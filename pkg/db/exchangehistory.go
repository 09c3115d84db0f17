package db

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ninebridge/relayer/pkg/db/models"
	"github.com/ninebridge/relayer/pkg/types"
)

// PutExchangeHistory inserts a new transfer record. Returns
// ErrDuplicateKey when a row with the same tx_id already exists.
func (db *DatabaseAdapter) PutExchangeHistory(history *models.ExchangeHistory) error {
	result := db.Client.Create(history)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("failed to create exchange history %s: %w", history.TxID, result.Error)
	}
	log.Debug().
		Str("txId", history.TxID).
		Str("status", string(history.Status)).
		Msg("[DatabaseAdapter] [PutExchangeHistory] created")
	return nil
}

// ExchangeHistoryExist reports whether a row with the given tx_id exists.
func (db *DatabaseAdapter) ExchangeHistoryExist(txID string) (bool, error) {
	var count int64
	result := db.Client.Model(&models.ExchangeHistory{}).
		Where("tx_id = ?", txID).
		Count(&count)
	if result.Error != nil {
		return false, fmt.Errorf("failed to check exchange history %s: %w", txID, result.Error)
	}
	return count > 0, nil
}

// UpdateExchangeStatus moves a row to COMPLETED or FAILED. The update is
// idempotent when the row is already in the target status, returns
// ErrTerminalStatus when the row is in the other terminal status, and
// ErrNotFound when no row exists for tx_id. Rows never leave a terminal
// status; a race between the observer and the retry sweep resolves to
// whichever write lands first.
func (db *DatabaseAdapter) UpdateExchangeStatus(txID string, status types.TransactionStatus) error {
	if !status.IsTerminal() {
		return fmt.Errorf("invalid target status %q for tx %s", status, txID)
	}
	result := db.Client.Model(&models.ExchangeHistory{}).
		Where("tx_id = ?", txID).
		Where("status IN ?", []types.TransactionStatus{types.StatusPending, status}).
		Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("failed to update exchange history %s: %w", txID, result.Error)
	}
	if result.RowsAffected == 0 {
		exist, err := db.ExchangeHistoryExist(txID)
		if err != nil {
			return err
		}
		if !exist {
			return ErrNotFound
		}
		return ErrTerminalStatus
	}
	log.Debug().
		Str("txId", txID).
		Str("status", string(status)).
		Msg("[DatabaseAdapter] [UpdateExchangeStatus] updated")
	return nil
}

// TransferredAmountInLast24Hours sums the amounts a sender moved on a
// network within the trailing 24 hours, regardless of status. Pending
// transfers count against the cap on purpose. The sum is computed with
// decimal arithmetic in process rather than in SQL so no backend coerces
// the amounts through floats.
func (db *DatabaseAdapter) TransferredAmountInLast24Hours(network, sender string) (decimal.Decimal, error) {
	cutoff := time.Now().UTC().Add(-24 * time.Hour)
	var rows []models.ExchangeHistory
	result := db.Client.
		Where("network = ? AND sender = ?", network, sender).
		Where("timestamp >= ?", cutoff).
		Find(&rows)
	if result.Error != nil {
		return decimal.Zero, fmt.Errorf("failed to sum transfers for %s on %s: %w", sender, network, result.Error)
	}
	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.Amount)
	}
	return total, nil
}

// GetPendingTransactions returns every row still in PENDING status.
func (db *DatabaseAdapter) GetPendingTransactions() ([]models.ExchangeHistory, error) {
	var rows []models.ExchangeHistory
	result := db.Client.
		Where("status = ?", types.StatusPending).
		Find(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to fetch pending transactions: %w", result.Error)
	}
	return rows, nil
}
