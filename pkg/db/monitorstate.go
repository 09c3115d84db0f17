package db

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ninebridge/relayer/pkg/db/models"
)

// LoadMonitorState returns the persisted watermark for a network, or the
// supplied genesis height when no record exists yet. First run never
// fails.
func (db *DatabaseAdapter) LoadMonitorState(network string, genesis uint64) (uint64, error) {
	var state models.MonitorState
	result := db.Client.Where("network = ?", network).First(&state)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			log.Info().
				Str("network", network).
				Uint64("genesis", genesis).
				Msg("[DatabaseAdapter] [LoadMonitorState] no watermark yet, starting from genesis")
			return genesis, nil
		}
		return 0, fmt.Errorf("failed to load monitor state for %s: %w", network, result.Error)
	}
	return state.BlockHeight, nil
}

// SaveMonitorState persists the watermark for a network. The watermark is
// monotonic: an attempt to move it backward is ignored with a warning, so
// the stored value is always the maximum ever written.
func (db *DatabaseAdapter) SaveMonitorState(network string, blockHeight uint64) error {
	return db.Client.Transaction(func(tx *gorm.DB) error {
		var state models.MonitorState
		result := tx.Where("network = ?", network).First(&state)
		if result.Error != nil {
			if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return fmt.Errorf("failed to load monitor state for %s: %w", network, result.Error)
			}
			state = models.MonitorState{Network: network, BlockHeight: blockHeight}
			if err := tx.Create(&state).Error; err != nil {
				return fmt.Errorf("failed to create monitor state for %s: %w", network, err)
			}
			return nil
		}
		if blockHeight <= state.BlockHeight {
			if blockHeight < state.BlockHeight {
				log.Warn().
					Str("network", network).
					Uint64("stored", state.BlockHeight).
					Uint64("requested", blockHeight).
					Msg("[DatabaseAdapter] [SaveMonitorState] ignoring backward watermark move")
			}
			return nil
		}
		err := tx.Model(&models.MonitorState{}).
			Where("network = ?", network).
			Update("block_height", blockHeight).Error
		if err != nil {
			return fmt.Errorf("failed to save monitor state for %s: %w", network, err)
		}
		return nil
	})
}
