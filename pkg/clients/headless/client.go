package headless

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/ninebridge/relayer/pkg/transfer"
)

const defaultRequestTimeout = 30 * time.Second

// Client talks GraphQL over HTTP to a destination-chain headless node.
// It satisfies the transfer.Node contract: nonce lookup, unsigned
// transaction construction and staging of signed payloads.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

func NewClient(endpoint string) *Client {
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
	}
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlError struct {
	Message string `json:"message"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphqlError  `json:"errors"`
}

func (c *Client) NextTxNonce(ctx context.Context, address string) (int64, error) {
	const query = `query($address: Address!) {
		transaction { nextTxNonce(address: $address) }
	}`
	var payload struct {
		Transaction struct {
			NextTxNonce int64 `json:"nextTxNonce"`
		} `json:"transaction"`
	}
	if err := c.execute(ctx, query, map[string]any{"address": address}, &payload); err != nil {
		return 0, fmt.Errorf("failed to query next nonce for %s: %w", address, err)
	}
	return payload.Transaction.NextTxNonce, nil
}

func (c *Client) CreateUnsignedTransfer(ctx context.Context, sender, recipient string, amount decimal.Decimal, memo string, nonce int64) (string, error) {
	const query = `query($sender: Address!, $recipient: Address!, $amount: String!, $memo: String, $nonce: Long!) {
		transaction {
			unsignedTransferAssetTransaction(sender: $sender, recipient: $recipient, amount: $amount, memo: $memo, nonce: $nonce)
		}
	}`
	variables := map[string]any{
		"sender":    sender,
		"recipient": recipient,
		"amount":    amount.String(),
		"memo":      memo,
		"nonce":     nonce,
	}
	var payload struct {
		Transaction struct {
			UnsignedTransferAssetTransaction string `json:"unsignedTransferAssetTransaction"`
		} `json:"transaction"`
	}
	if err := c.execute(ctx, query, variables, &payload); err != nil {
		return "", fmt.Errorf("failed to build unsigned transfer: %w", err)
	}
	return payload.Transaction.UnsignedTransferAssetTransaction, nil
}

func (c *Client) StageTransaction(ctx context.Context, signedTx string) (string, error) {
	const query = `mutation($payload: String!) {
		stageTransaction(payload: $payload)
	}`
	var payload struct {
		StageTransaction string `json:"stageTransaction"`
	}
	if err := c.execute(ctx, query, map[string]any{"payload": signedTx}, &payload); err != nil {
		return "", classifyStageError(err)
	}
	return payload.StageTransaction, nil
}

// classifyStageError maps node rejections onto the definitive transfer
// sentinels so the observer can tell a lost transfer from a refused one.
func classifyStageError(err error) error {
	message := strings.ToLower(err.Error())
	switch {
	case strings.Contains(message, "insufficient"):
		return fmt.Errorf("%w: %v", transfer.ErrInsufficientFunds, err)
	case strings.Contains(message, "invalid"), strings.Contains(message, "rejected"):
		return fmt.Errorf("%w: %v", transfer.ErrRejectedByChain, err)
	default:
		return fmt.Errorf("failed to stage transaction: %w", err)
	}
}

func (c *Client) execute(ctx context.Context, query string, variables map[string]any, out any) error {
	body, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("failed to encode graphql request: %w", err)
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create graphql request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("graphql request failed: %w", err)
	}
	defer response.Body.Close()
	raw, err := io.ReadAll(response.Body)
	if err != nil {
		return fmt.Errorf("failed to read graphql response: %w", err)
	}
	if response.StatusCode != http.StatusOK {
		log.Warn().
			Int("status", response.StatusCode).
			Str("endpoint", c.endpoint).
			Msg("[HeadlessClient] [execute] non-200 graphql response")
		return fmt.Errorf("graphql endpoint returned status %d: %s", response.StatusCode, strings.TrimSpace(string(raw)))
	}
	var parsed graphqlResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("failed to decode graphql response: %w", err)
	}
	if len(parsed.Errors) > 0 {
		return fmt.Errorf("graphql error: %s", parsed.Errors[0].Message)
	}
	if out != nil {
		if err := json.Unmarshal(parsed.Data, out); err != nil {
			return fmt.Errorf("failed to decode graphql data: %w", err)
		}
	}
	return nil
}
