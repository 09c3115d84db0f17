package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// IndexerRecorder writes completed exchanges as documents into an
// OpenSearch-compatible index for operator queries.
type IndexerRecorder struct {
	endpoint   string
	index      string
	username   string
	password   string
	httpClient *http.Client
}

func NewIndexerRecorder(endpoint, index, username, password string) *IndexerRecorder {
	return &IndexerRecorder{
		endpoint:   endpoint,
		index:      index,
		username:   username,
		password:   password,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (r *IndexerRecorder) Record(ctx context.Context, record ExchangeRecord) error {
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode exchange document: %w", err)
	}
	url := fmt.Sprintf("%s/%s/_doc", r.endpoint, r.index)
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create index request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	if r.username != "" {
		request.SetBasicAuth(r.username, r.password)
	}

	response, err := r.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("index request failed: %w", err)
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusCreated && response.StatusCode != http.StatusOK {
		return fmt.Errorf("indexer returned status %d for %s", response.StatusCode, record.TxID)
	}
	return nil
}
