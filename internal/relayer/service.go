package relayer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/ninebridge/relayer/config"
	"github.com/ninebridge/relayer/pkg/clients/evm"
	"github.com/ninebridge/relayer/pkg/clients/headless"
	"github.com/ninebridge/relayer/pkg/clients/signer"
	"github.com/ninebridge/relayer/pkg/db"
	"github.com/ninebridge/relayer/pkg/monitor"
	"github.com/ninebridge/relayer/pkg/notify"
	"github.com/ninebridge/relayer/pkg/observer"
	"github.com/ninebridge/relayer/pkg/planet"
	"github.com/ninebridge/relayer/pkg/policy"
	"github.com/ninebridge/relayer/pkg/transfer"
	"github.com/ninebridge/relayer/pkg/types"
)

// Service owns the wired relayer: one monitor feeding one observer,
// plus the pending-transaction sweep.
type Service struct {
	DbAdapter *db.DatabaseAdapter
	EvmClient *evm.Client
	Monitor   *monitor.BurnEventMonitor
	Retry     *PendingTransactionRetryHandler

	cancel context.CancelFunc
	done   chan struct{}
}

func NewService(cfg *config.Config, dbAdapter *db.DatabaseAdapter) (*Service, error) {
	feePolicy, err := newFeePolicy(&cfg.Exchange)
	if err != nil {
		return nil, fmt.Errorf("failed to create fee policy: %w", err)
	}

	planets := make([]planet.Planet, 0, len(cfg.Planets))
	for _, p := range cfg.Planets {
		planets = append(planets, planet.Planet{Name: p.Name, ID: p.ID, VaultAddress: p.VaultAddress})
	}
	registry, err := planet.NewRegistry(cfg.DefaultPlanet, planets)
	if err != nil {
		return nil, fmt.Errorf("failed to create planet registry: %w", err)
	}

	var chat notify.Sender
	if cfg.Slack.WebhookURL != "" {
		chat = notify.NewSlackSender(cfg.Slack.WebhookURL)
	}
	var pager notify.Pager
	if cfg.PagerDuty.RoutingKey != "" {
		pager = notify.NewPagerDutyPager(cfg.PagerDuty.RoutingKey)
	}
	var recorders []notify.Recorder
	if cfg.Indexer.Endpoint != "" {
		recorders = append(recorders, notify.NewIndexerRecorder(
			cfg.Indexer.Endpoint, cfg.Indexer.Index, cfg.Indexer.Username, cfg.Indexer.Password))
	}
	if cfg.Spreadsheet.AppendURL != "" {
		recorders = append(recorders, notify.NewSpreadsheetRecorder(cfg.Spreadsheet.AppendURL, cfg.Spreadsheet.Sheet))
	}
	explorer := notify.ExplorerURLs{
		Source:      cfg.Explorer.SourceURL,
		Destination: cfg.Explorer.DestinationURL,
	}

	node := headless.NewClient(cfg.Ncg.HeadlessURL)
	remoteSigner := signer.NewClient(cfg.Ncg.SignerURL, cfg.Ncg.SignerAddress)
	executor := transfer.NewSignerTransfer(remoteSigner, node)

	limits, err := newLimits(&cfg.Exchange)
	if err != nil {
		return nil, err
	}
	burnObserver := observer.NewBurnEventObserver(
		dbAdapter,
		feePolicy,
		executor,
		registry,
		chat,
		pager,
		recorders,
		explorer,
		limits,
		cfg.TransferTimeout(),
	)

	evmClient, err := evm.NewClient(context.Background(), cfg.Network.Name, cfg.Network.RPCUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to create evm client: %w", err)
	}
	startHeight, err := dbAdapter.LoadMonitorState(cfg.Network.Name, cfg.Network.StartBlock)
	if err != nil {
		return nil, fmt.Errorf("failed to load monitor state: %w", err)
	}
	contract := types.ContractDescription{
		Address:    cfg.Network.ContractAddress,
		EventTopic: cfg.Network.EventTopic,
	}
	burnMonitor, err := monitor.NewBurnEventMonitor(
		evmClient,
		dbAdapter,
		contract,
		cfg.Network.Name,
		startHeight,
		cfg.Network.Confirmations,
		cfg.PollInterval(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create burn event monitor: %w", err)
	}
	burnMonitor.Attach(burnObserver)

	retry := NewPendingTransactionRetryHandler(dbAdapter, registry, chat, explorer, cfg.SweepInterval())

	return &Service{
		DbAdapter: dbAdapter,
		EvmClient: evmClient,
		Monitor:   burnMonitor,
		Retry:     retry,
	}, nil
}

// Start launches the retry sweep and the monitor loop. The first sweep
// settles transactions left PENDING by a previous run before new events
// flow in.
func (s *Service) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		if err := s.Retry.Run(ctx); err != nil {
			log.Error().Err(err).Msg("[Relayer] [Start] pending transaction sweep stopped")
		}
	}()
	go func() {
		if err := s.Monitor.Run(ctx); err != nil {
			log.Error().Err(err).Msg("[Relayer] [Start] burn event monitor stopped")
		}
	}()
	log.Info().Msg("[Relayer] [Start] relayer service started")
	return nil
}

func (s *Service) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.done != nil {
		select {
		case <-s.done:
		case <-time.After(5 * time.Second):
		}
	}
	log.Info().Msg("[Relayer] [Stop] relayer service stopped")
}

func newFeePolicy(cfg *config.ExchangeConfig) (policy.FeeRatioPolicy, error) {
	maximum, err := decimal.NewFromString(cfg.MaximumNCG)
	if err != nil {
		return nil, err
	}
	whitelistMaximum, err := decimal.NewFromString(cfg.MaximumWhitelistNCG)
	if err != nil {
		return nil, err
	}
	// Whitelisted senders clear validation up to their own ceiling, so
	// the policy must price that range too; range2 covers it.
	if whitelistMaximum.GreaterThan(maximum) {
		maximum = whitelistMaximum
	}
	divider, err := decimal.NewFromString(cfg.FeeRangeDividerAmount)
	if err != nil {
		return nil, err
	}
	criterion, err := decimal.NewFromString(cfg.BaseFeeCriterion)
	if err != nil {
		return nil, err
	}
	baseFee, err := decimal.NewFromString(cfg.BaseFee)
	if err != nil {
		return nil, err
	}
	range1, err := decimal.NewFromString(cfg.FeeRange1Ratio)
	if err != nil {
		return nil, err
	}
	range2, err := decimal.NewFromString(cfg.FeeRange2Ratio)
	if err != nil {
		return nil, err
	}
	return policy.NewFixedExchangeFeeRatioPolicy(maximum, divider, criterion, baseFee, range1, range2)
}

func newLimits(cfg *config.ExchangeConfig) (observer.Limits, error) {
	minimum, err := decimal.NewFromString(cfg.MinimumNCG)
	if err != nil {
		return observer.Limits{}, fmt.Errorf("invalid minimum amount: %w", err)
	}
	maximum, err := decimal.NewFromString(cfg.MaximumNCG)
	if err != nil {
		return observer.Limits{}, fmt.Errorf("invalid maximum amount: %w", err)
	}
	whitelistMaximum, err := decimal.NewFromString(cfg.MaximumWhitelistNCG)
	if err != nil {
		return observer.Limits{}, fmt.Errorf("invalid whitelist maximum amount: %w", err)
	}
	dailyLimit, err := decimal.NewFromString(cfg.DailyLimitNCG)
	if err != nil {
		return observer.Limits{}, fmt.Errorf("invalid daily limit: %w", err)
	}
	whitelist := make(map[string]bool, len(cfg.WhitelistSenders))
	for _, sender := range cfg.WhitelistSenders {
		whitelist[strings.ToLower(sender)] = true
	}
	return observer.Limits{
		MinimumAmount:    minimum,
		MaximumAmount:    maximum,
		WhitelistMaximum: whitelistMaximum,
		DailyLimit:       dailyLimit,
		Whitelist:        whitelist,
	}, nil
}
