package notify

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Field is one title/value pair inside an attachment.
type Field struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short,omitempty"`
}

// Attachment is one block of a chat payload.
type Attachment struct {
	AuthorName string  `json:"author_name,omitempty"`
	Color      string  `json:"color,omitempty"`
	Fields     []Field `json:"fields,omitempty"`
}

// Payload is a rendered chat message, webhook-ready.
type Payload struct {
	Text        string       `json:"text"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Message renders itself into a chat payload.
type Message interface {
	Render() Payload
}

// Sender delivers rendered messages to a chat channel.
type Sender interface {
	Send(ctx context.Context, message Message) error
}

// Pager raises an incident with the on-call rotation.
type Pager interface {
	Trigger(ctx context.Context, summary string, details map[string]any) error
}

// ExchangeRecord describes one completed exchange for downstream
// bookkeeping surfaces.
type ExchangeRecord struct {
	Network         string          `json:"network"`
	TxID            string          `json:"txId"`
	DestinationTxID string          `json:"destinationTxId"`
	Sender          string          `json:"sender"`
	Recipient       string          `json:"recipient"`
	Planet          string          `json:"planet"`
	Amount          decimal.Decimal `json:"amount"`
	Fee             decimal.Decimal `json:"fee"`
	Timestamp       time.Time       `json:"timestamp"`
}

// Recorder persists completed exchanges to an auxiliary surface, such
// as a search index or a spreadsheet. Recorder failures are logged and
// never block the exchange itself.
type Recorder interface {
	Record(ctx context.Context, record ExchangeRecord) error
}
