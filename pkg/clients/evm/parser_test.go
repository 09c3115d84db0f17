package evm

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func burnLog(t *testing.T, sender common.Address, recipient common.Address, amount *big.Int) ethtypes.Log {
	t.Helper()
	data := make([]byte, 64)
	copy(data[12:32], recipient.Bytes())
	amount.FillBytes(data[32:64])
	return ethtypes.Log{
		Address: common.HexToAddress("0xBridgeContract"),
		Topics: []common.Hash{
			common.HexToHash("0xburnTopic"),
			common.BytesToHash(sender.Bytes()),
		},
		Data:        data,
		BlockNumber: 1234,
		BlockHash:   common.HexToHash("0xblock"),
		TxHash:      common.HexToHash("0xtx"),
		Index:       3,
	}
}

func TestParseBurnLog(t *testing.T) {
	sender := common.HexToAddress("0x9093dd96c4bb6b44a9e0a522e2de49641f146223")
	recipient := common.HexToAddress("0x2734048eC2892d111b4fbAB224400847544FC72e")
	// 10.5 wNCG at 18 decimals.
	amount, ok := new(big.Int).SetString("10500000000000000000", 10)
	require.True(t, ok)

	event, err := ParseBurnLog("bsc", burnLog(t, sender, recipient, amount))
	require.NoError(t, err)
	require.Equal(t, "bsc", event.SourceNetwork)
	require.Equal(t, uint64(1234), event.BlockHeight)
	require.Equal(t, sender.Hex(), event.Sender)
	require.Equal(t, "0x2734048ec2892d111b4fbab224400847544fc72e", event.Recipient)
	require.True(t, event.Amount.Equal(decimal.RequireFromString("10.5")), "got %s", event.Amount)
}

func TestParseBurnLogRejectsShortData(t *testing.T) {
	entry := ethtypes.Log{
		Topics: []common.Hash{common.HexToHash("0x1"), common.HexToHash("0x2")},
		Data:   make([]byte, 32),
	}
	_, err := ParseBurnLog("bsc", entry)
	require.Error(t, err)
}

func TestParseBurnLogRejectsMissingTopics(t *testing.T) {
	entry := ethtypes.Log{
		Topics: []common.Hash{common.HexToHash("0x1")},
		Data:   make([]byte, 64),
	}
	_, err := ParseBurnLog("bsc", entry)
	require.Error(t, err)
}
