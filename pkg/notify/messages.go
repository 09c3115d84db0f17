package notify

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ninebridge/relayer/pkg/db/models"
	"github.com/ninebridge/relayer/pkg/types"
)

const (
	colorSuccess = "#2eb886"
	colorFailure = "#a30200"
	colorWarning = "#daa038"
)

// PlanetNamer reports which destination-chain variant a recipient
// address targets.
type PlanetNamer interface {
	PlanetName(recipient string) string
}

// ExplorerURLs builds links to the block explorers for both ends of an
// exchange.
type ExplorerURLs struct {
	Source      string
	Destination string
}

func (e ExplorerURLs) sourceTx(txID string) string {
	return fmt.Sprintf("%s/tx/%s", e.Source, txID)
}

func (e ExplorerURLs) destinationTx(txID string) string {
	return fmt.Sprintf("%s/tx/%s", e.Destination, txID)
}

// TransferCompleteMessage announces one finished exchange.
type TransferCompleteMessage struct {
	Event           *types.BurnEvent
	Fee             decimal.Decimal
	NetAmount       decimal.Decimal
	DestinationTxID string
	Planet          string
	Explorer        ExplorerURLs
}

func (m TransferCompleteMessage) Render() Payload {
	return Payload{
		Text: "wNCG → NCG event occurred.",
		Attachments: []Attachment{{
			AuthorName: "[BSC] wNCG → NCG event",
			Color:      colorSuccess,
			Fields: []Field{
				{Title: "BSC transaction", Value: m.Explorer.sourceTx(m.Event.TxID)},
				{Title: "9c transaction", Value: m.Explorer.destinationTx(m.DestinationTxID)},
				{Title: "Planet Name", Value: m.Planet},
				{Title: "Sender(BSC)", Value: m.Event.Sender},
				{Title: "Recipient(9c)", Value: m.Event.Recipient},
				{Title: "Amount", Value: m.Event.Amount.String()},
				{Title: "Fee", Value: m.Fee.String()},
				{Title: "Transferred amount", Value: m.NetAmount.String()},
			},
		}},
	}
}

// TransferRejectedMessage announces a request refused by validation.
// Rejected requests are terminal; nothing will be retried.
type TransferRejectedMessage struct {
	Event    *types.BurnEvent
	Reason   string
	Planet   string
	Explorer ExplorerURLs
}

func (m TransferRejectedMessage) Render() Payload {
	return Payload{
		Text: "wNCG → NCG exchange request rejected.",
		Attachments: []Attachment{{
			AuthorName: "[BSC] wNCG → NCG rejected event",
			Color:      colorWarning,
			Fields: []Field{
				{Title: "BSC transaction", Value: m.Explorer.sourceTx(m.Event.TxID)},
				{Title: "Planet Name", Value: m.Planet},
				{Title: "Sender(BSC)", Value: m.Event.Sender},
				{Title: "Recipient(9c)", Value: m.Event.Recipient},
				{Title: "Amount", Value: m.Event.Amount.String()},
				{Title: "Reason", Value: m.Reason},
			},
		}},
	}
}

// TransferFailedMessage announces an exchange whose destination-side
// transfer definitively failed and needs operator attention.
type TransferFailedMessage struct {
	Event    *types.BurnEvent
	Reason   string
	Planet   string
	Explorer ExplorerURLs
}

func (m TransferFailedMessage) Render() Payload {
	return Payload{
		Text: "wNCG → NCG exchange failed.",
		Attachments: []Attachment{{
			AuthorName: "[BSC] wNCG → NCG failed event",
			Color:      colorFailure,
			Fields: []Field{
				{Title: "BSC transaction", Value: m.Explorer.sourceTx(m.Event.TxID)},
				{Title: "Planet Name", Value: m.Planet},
				{Title: "Sender(BSC)", Value: m.Event.Sender},
				{Title: "Recipient(9c)", Value: m.Event.Recipient},
				{Title: "Amount", Value: m.Event.Amount.String()},
				{Title: "Reason", Value: m.Reason},
			},
		}},
	}
}

// PendingTransactionMessage lists the exchanges found stuck in PENDING
// at startup, one attachment per transaction. With no pending rows it
// renders a plain restart notice.
type PendingTransactionMessage struct {
	Transactions []models.ExchangeHistory
	Planets      PlanetNamer
	Explorer     ExplorerURLs
}

func (m PendingTransactionMessage) Render() Payload {
	if len(m.Transactions) == 0 {
		return Payload{
			Text: "No pending transactions",
			Attachments: []Attachment{{
				AuthorName: "BSC Bridge Restarted",
				Color:      colorSuccess,
			}},
		}
	}
	attachments := make([]Attachment, 0, len(m.Transactions))
	for _, tx := range m.Transactions {
		attachments = append(attachments, Attachment{
			AuthorName: "[BSC] wNCG → NCG pending event",
			Color:      colorWarning,
			Fields: []Field{
				{Title: "BSC transaction", Value: m.Explorer.sourceTx(tx.TxID)},
				{Title: "Planet Name", Value: m.Planets.PlanetName(tx.Recipient)},
				{Title: "Sender(BSC)", Value: tx.Sender},
				{Title: "Recipient(9c)", Value: tx.Recipient},
				{Title: "Amount", Value: tx.Amount.String()},
				{Title: "Timestamp", Value: tx.Timestamp.Format(time.RFC3339)},
			},
		})
	}
	return Payload{
		Text:        fmt.Sprintf("%d Pending Transactions Found", len(m.Transactions)),
		Attachments: attachments,
	}
}
