package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type NetworkConfig struct {
	Name            string `mapstructure:"name"`
	RPCUrl          string `mapstructure:"rpc_url"`
	ContractAddress string `mapstructure:"contract_address"`
	EventTopic      string `mapstructure:"event_topic"`
	Confirmations   uint64 `mapstructure:"confirmations"`
	StartBlock      uint64 `mapstructure:"start_block"`
	PollIntervalMs  int64  `mapstructure:"poll_interval_ms"`
}

type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

type NcgConfig struct {
	HeadlessURL   string `mapstructure:"headless_url"`
	SignerURL     string `mapstructure:"signer_url"`
	SignerAddress string `mapstructure:"signer_address"`
}

type ExchangeConfig struct {
	MinimumNCG            string   `mapstructure:"minimum_ncg"`
	MaximumNCG            string   `mapstructure:"maximum_ncg"`
	MaximumWhitelistNCG   string   `mapstructure:"maximum_whitelist_ncg"`
	DailyLimitNCG         string   `mapstructure:"daily_limit_ncg"`
	BaseFee               string   `mapstructure:"base_fee"`
	BaseFeeCriterion      string   `mapstructure:"base_fee_criterion"`
	FeeRangeDividerAmount string   `mapstructure:"fee_range_divider_amount"`
	FeeRange1Ratio        string   `mapstructure:"fee_range1_ratio"`
	FeeRange2Ratio        string   `mapstructure:"fee_range2_ratio"`
	WhitelistSenders      []string `mapstructure:"whitelist_senders"`
}

type PlanetConfig struct {
	Name         string `mapstructure:"name"`
	ID           string `mapstructure:"id"`
	VaultAddress string `mapstructure:"vault_address"`
}

type SlackConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
}

type PagerDutyConfig struct {
	RoutingKey string `mapstructure:"routing_key"`
}

type IndexerConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Index    string `mapstructure:"index"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type SpreadsheetConfig struct {
	AppendURL string `mapstructure:"append_url"`
	Sheet     string `mapstructure:"sheet"`
}

type ExplorerConfig struct {
	SourceURL      string `mapstructure:"source_url"`
	DestinationURL string `mapstructure:"destination_url"`
}

type Config struct {
	Network                NetworkConfig     `mapstructure:"network"`
	Database               DatabaseConfig    `mapstructure:"database"`
	Ncg                    NcgConfig         `mapstructure:"ncg"`
	Exchange               ExchangeConfig    `mapstructure:"exchange"`
	DefaultPlanet          string            `mapstructure:"default_planet"`
	Planets                []PlanetConfig    `mapstructure:"planets"`
	Slack                  SlackConfig       `mapstructure:"slack"`
	PagerDuty              PagerDutyConfig   `mapstructure:"pagerduty"`
	Indexer                IndexerConfig     `mapstructure:"indexer"`
	Spreadsheet            SpreadsheetConfig `mapstructure:"spreadsheet"`
	Explorer               ExplorerConfig    `mapstructure:"explorer"`
	SweepIntervalMinutes   int64             `mapstructure:"sweep_interval_minutes"`
	TransferTimeoutSeconds int64             `mapstructure:"transfer_timeout_seconds"`
}

var GlobalConfig *Config

// Load reads data/<environment>/config.json, layered under any matching
// environment variables, validates the result and publishes it as
// GlobalConfig.
func Load(environment string) error {
	// Secrets live in .env during local development; absence is fine.
	_ = godotenv.Load()

	viper.SetConfigFile(fmt.Sprintf("data/%s/config.json", environment))
	viper.SetConfigType("json")
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config for environment %s: %w", environment, err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if url := viper.GetString("DATABASE_URL"); url != "" {
		cfg.Database.URL = url
	}
	if webhook := viper.GetString("SLACK_WEBHOOK_URL"); webhook != "" {
		cfg.Slack.WebhookURL = webhook
	}
	if routingKey := viper.GetString("PAGERDUTY_ROUTING_KEY"); routingKey != "" {
		cfg.PagerDuty.RoutingKey = routingKey
	}

	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}
	GlobalConfig = &cfg
	return nil
}

// setDefaults fills in the optional timing and depth fields.
func (c *Config) setDefaults() {
	if c.Network.Confirmations == 0 {
		c.Network.Confirmations = 10
	}
	if c.Network.PollIntervalMs <= 0 {
		c.Network.PollIntervalMs = 15_000
	}
	if c.SweepIntervalMinutes <= 0 {
		c.SweepIntervalMinutes = 60
	}
}

// Validate checks required fields without modifying the config. Fee
// tier ordering is enforced later by the fee policy constructor.
func (c *Config) Validate() error {
	if c.Network.RPCUrl == "" {
		return fmt.Errorf("network.rpc_url is required")
	}
	if c.Network.ContractAddress == "" {
		return fmt.Errorf("network.contract_address is required")
	}
	if c.Network.EventTopic == "" {
		return fmt.Errorf("network.event_topic is required")
	}
	if c.Database.URL == "" {
		return fmt.Errorf("database.url is required")
	}
	if c.Ncg.HeadlessURL == "" {
		return fmt.Errorf("ncg.headless_url is required")
	}
	if c.Ncg.SignerAddress == "" {
		return fmt.Errorf("ncg.signer_address is required")
	}
	if c.DefaultPlanet == "" {
		return fmt.Errorf("default_planet is required")
	}
	if len(c.Planets) == 0 {
		return fmt.Errorf("at least one planet is required")
	}
	amounts := map[string]string{
		"exchange.minimum_ncg":              c.Exchange.MinimumNCG,
		"exchange.maximum_ncg":              c.Exchange.MaximumNCG,
		"exchange.maximum_whitelist_ncg":    c.Exchange.MaximumWhitelistNCG,
		"exchange.daily_limit_ncg":          c.Exchange.DailyLimitNCG,
		"exchange.base_fee":                 c.Exchange.BaseFee,
		"exchange.base_fee_criterion":       c.Exchange.BaseFeeCriterion,
		"exchange.fee_range_divider_amount": c.Exchange.FeeRangeDividerAmount,
		"exchange.fee_range1_ratio":         c.Exchange.FeeRange1Ratio,
		"exchange.fee_range2_ratio":         c.Exchange.FeeRange2Ratio,
	}
	for field, value := range amounts {
		if value == "" {
			return fmt.Errorf("%s is required", field)
		}
		if _, err := decimal.NewFromString(value); err != nil {
			return fmt.Errorf("%s is not a valid decimal amount: %w", field, err)
		}
	}
	return nil
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Network.PollIntervalMs) * time.Millisecond
}

func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalMinutes) * time.Minute
}

func (c *Config) TransferTimeout() time.Duration {
	return time.Duration(c.TransferTimeoutSeconds) * time.Second
}
