package evm

import (
	"context"
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog/log"

	"github.com/ninebridge/relayer/pkg/types"
)

// Client reads burn events from an EVM network over JSON-RPC.
type Client struct {
	Client  *ethclient.Client
	network string
}

func NewClient(ctx context.Context, network, rpcURL string) (*Client, error) {
	log.Info().
		Str("network", network).
		Msgf("[EvmClient] [NewClient] connecting to EVM network")
	conn, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to EVM network %s: %w", network, err)
	}
	return &Client{
		Client:  ethclient.NewClient(conn),
		network: network,
	}, nil
}

func (c *Client) CurrentHeight(ctx context.Context) (uint64, error) {
	height, err := c.Client.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read block number for %s: %w", c.network, err)
	}
	return height, nil
}

// BurnEvents fetches the bridge contract's burn logs in [fromBlock, toBlock]
// and returns them ordered by block height and log index.
func (c *Client) BurnEvents(ctx context.Context, contract types.ContractDescription, fromBlock, toBlock uint64) ([]types.BurnEvent, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{common.HexToAddress(contract.Address)},
		Topics:    [][]common.Hash{{common.HexToHash(contract.EventTopic)}},
	}
	logs, err := c.Client.FilterLogs(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to filter logs on %s [%d, %d]: %w", c.network, fromBlock, toBlock, err)
	}
	sort.SliceStable(logs, func(i, j int) bool {
		if logs[i].BlockNumber != logs[j].BlockNumber {
			return logs[i].BlockNumber < logs[j].BlockNumber
		}
		return logs[i].Index < logs[j].Index
	})
	events := make([]types.BurnEvent, 0, len(logs))
	for _, entry := range logs {
		event, err := ParseBurnLog(c.network, entry)
		if err != nil {
			return nil, fmt.Errorf("failed to parse burn log %s: %w", entry.TxHash.Hex(), err)
		}
		events = append(events, event)
	}
	return events, nil
}
