package signer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client signs destination-chain transactions through a remote signing
// service that keeps the exchange account's key out of this process.
type Client struct {
	endpoint   string
	address    string
	httpClient *http.Client
}

func NewClient(endpoint, address string) *Client {
	return &Client{
		endpoint:   endpoint,
		address:    address,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) Address() string {
	return c.address
}

func (c *Client) Sign(ctx context.Context, unsignedTx string) (string, error) {
	body, err := json.Marshal(map[string]string{
		"address":    c.address,
		"unsignedTx": unsignedTx,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode sign request: %w", err)
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/sign", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create sign request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return "", fmt.Errorf("sign request failed: %w", err)
	}
	defer response.Body.Close()
	raw, err := io.ReadAll(response.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read sign response: %w", err)
	}
	if response.StatusCode != http.StatusOK {
		return "", fmt.Errorf("signer returned status %d: %s", response.StatusCode, strings.TrimSpace(string(raw)))
	}
	var parsed struct {
		SignedTx string `json:"signedTx"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode sign response: %w", err)
	}
	if parsed.SignedTx == "" {
		return "", fmt.Errorf("signer returned an empty transaction")
	}
	return parsed.SignedTx, nil
}
