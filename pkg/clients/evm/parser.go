package evm

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"

	"github.com/ninebridge/relayer/pkg/types"
)

// wNCG carries 18 decimals on the EVM side.
const tokenDecimals = 18

// ParseBurnLog decodes one Burn(address indexed sender, bytes32 to,
// uint256 amount) log into a BurnEvent. The destination address is a
// bytes32 left-padded chain address, rendered as 0x-prefixed hex of its
// low 20 bytes.
func ParseBurnLog(network string, entry ethtypes.Log) (types.BurnEvent, error) {
	if len(entry.Topics) < 2 {
		return types.BurnEvent{}, fmt.Errorf("burn log %s has %d topics, want at least 2", entry.TxHash.Hex(), len(entry.Topics))
	}
	if len(entry.Data) < 64 {
		return types.BurnEvent{}, fmt.Errorf("burn log %s data is %d bytes, want at least 64", entry.TxHash.Hex(), len(entry.Data))
	}
	sender := common.BytesToAddress(entry.Topics[1].Bytes())
	recipient := hexutil.Encode(entry.Data[12:32])
	rawAmount := new(big.Int).SetBytes(entry.Data[32:64])
	return types.BurnEvent{
		SourceNetwork: network,
		BlockHeight:   entry.BlockNumber,
		BlockHash:     entry.BlockHash.Hex(),
		TxID:          entry.TxHash.Hex(),
		Sender:        sender.Hex(),
		Recipient:     recipient,
		Amount:        decimal.NewFromBigInt(rawAmount, -tokenDecimals),
	}, nil
}
