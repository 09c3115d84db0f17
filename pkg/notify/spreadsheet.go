package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// SpreadsheetRecorder appends completed exchanges as rows through a
// sheet-append webhook, for the bookkeeping sheet operators maintain.
type SpreadsheetRecorder struct {
	appendURL  string
	sheet      string
	httpClient *http.Client
}

func NewSpreadsheetRecorder(appendURL, sheet string) *SpreadsheetRecorder {
	return &SpreadsheetRecorder{
		appendURL:  appendURL,
		sheet:      sheet,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (r *SpreadsheetRecorder) Record(ctx context.Context, record ExchangeRecord) error {
	row := map[string]any{
		"sheet": r.sheet,
		"values": []string{
			record.Timestamp.Format(time.RFC3339),
			record.Network,
			record.TxID,
			record.DestinationTxID,
			record.Planet,
			record.Sender,
			record.Recipient,
			record.Amount.String(),
			record.Fee.String(),
		},
	}
	body, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("failed to encode sheet row: %w", err)
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, r.appendURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create sheet request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := r.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("sheet request failed: %w", err)
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("sheet append returned status %d for %s", response.StatusCode, record.TxID)
	}
	return nil
}
