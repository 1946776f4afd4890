package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"cardroom/domain/entities"
	"cardroom/domain/utils"

	log "github.com/sirupsen/logrus"
)

// Client talks to the external USDC payment gateway over HTTP. Outbound
// transfers carry the payout's idempotency key, so resending the same request
// can never move money twice.
//
// Error semantics matter here: a transport error or timeout from Send means
// the transfer outcome is UNKNOWN, never failed. Callers must treat such
// errors as ambiguous and resolve them through VerifyStatus.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a gateway client. The http.Client's own timeout stays
// zero; callers bound each request with a context deadline.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{},
	}
}

type sendRequestBody struct {
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Destination string `json:"destination"`
}

type transactionResponse struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Send submits one outbound transfer. A non-nil error means the outcome is
// unknown; a SendResult with Accepted=false means the gateway definitively
// rejected it.
func (c *Client) Send(ctx context.Context, req entities.SendRequest) (*entities.SendResult, error) {
	body, err := json.Marshal(sendRequestBody{
		Amount:      utils.FormatUSDC(req.Amount),
		Currency:    "USDC",
		Destination: req.Destination,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal send request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/transactions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build send request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// Timeout or transport failure: the request may have reached the
		// gateway. Outcome unknown.
		return nil, fmt.Errorf("gateway send: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var tx transactionResponse
		if err := json.Unmarshal(respBody, &tx); err != nil {
			return nil, fmt.Errorf("failed to decode gateway response: %w", err)
		}
		if tx.Status == "failed" || tx.Status == "rejected" {
			return &entities.SendResult{Accepted: false, Reference: tx.ID, Message: tx.Message}, nil
		}
		return &entities.SendResult{Accepted: true, Reference: tx.ID, Message: tx.Message}, nil

	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		// The gateway understood the request and said no. Definitive.
		var tx transactionResponse
		if err := json.Unmarshal(respBody, &tx); err != nil || tx.Message == "" {
			tx.Message = fmt.Sprintf("gateway rejected transfer with status %d", resp.StatusCode)
		}
		return &entities.SendResult{Accepted: false, Reference: tx.ID, Message: tx.Message}, nil

	default:
		// 5xx: the gateway may have processed the transfer before failing.
		log.WithFields(log.Fields{
			"status":         resp.StatusCode,
			"idempotencyKey": req.IdempotencyKey,
		}).Warn("Gateway returned server error on send")
		return nil, fmt.Errorf("gateway send returned status %d", resp.StatusCode)
	}
}

// VerifyStatus asks the gateway for the authoritative state of a transfer,
// looked up by gateway reference or idempotency key.
func (c *Client) VerifyStatus(ctx context.Context, reference string) (entities.PaymentStatus, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v2/transactions/"+reference, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build status request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("gateway status check: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		// The gateway never saw the transfer, so it cannot have moved money.
		return entities.PaymentStatusFailed, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("gateway status check returned status %d", resp.StatusCode)
	}

	var tx transactionResponse
	if err := json.NewDecoder(resp.Body).Decode(&tx); err != nil {
		return "", fmt.Errorf("failed to decode gateway status response: %w", err)
	}

	switch tx.Status {
	case "completed":
		return entities.PaymentStatusCompleted, nil
	case "failed", "rejected":
		return entities.PaymentStatusFailed, nil
	case "pending", "processing":
		return entities.PaymentStatusPending, nil
	default:
		return "", fmt.Errorf("gateway reported unknown status %q", tx.Status)
	}
}
