package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ninebridge/relayer/pkg/db/models"
)

// Store-level error taxonomy. Callers branch on these with errors.Is.
var (
	ErrDuplicateKey   = errors.New("exchange history already exists for tx_id")
	ErrNotFound       = errors.New("exchange history not found")
	ErrTerminalStatus = errors.New("exchange history already in terminal status")
)

// DatabaseAdapter wraps the gorm client backing both the exchange history
// store and the monitor state store.
type DatabaseAdapter struct {
	Client *gorm.DB
}

// NewDatabaseAdapter opens the database behind url and migrates the
// schema. A postgres:// URL selects the postgres driver; anything else is
// treated as a sqlite file path.
func NewDatabaseAdapter(url string) (*DatabaseAdapter, error) {
	if url == "" {
		return nil, fmt.Errorf("database url is not set")
	}
	var dialector gorm.Dialector
	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		dialector = postgres.Open(url)
	} else {
		dialector = sqlite.Open(url)
	}
	client, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	err = client.AutoMigrate(
		&models.ExchangeHistory{},
		&models.MonitorState{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	log.Info().Str("url", redactURL(url)).Msg("[DatabaseAdapter] connected")
	return &DatabaseAdapter{Client: client}, nil
}

// redactURL drops credentials from a postgres DSN before logging it.
func redactURL(url string) string {
	at := strings.LastIndex(url, "@")
	scheme := strings.Index(url, "://")
	if at == -1 || scheme == -1 || at < scheme {
		return url
	}
	return url[:scheme+3] + "***" + url[at:]
}
