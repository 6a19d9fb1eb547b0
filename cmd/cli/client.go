package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/iho/bankledger/internal/adapter/http/dto"
)

const idempotencyKeyHeader = "Idempotency-Key"

// apiError is a non-2xx answer of the API.
type apiError struct {
	Status int
	Body   dto.ErrorResponse
}

func (e *apiError) Error() string {
	msg := e.Body.Error
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Body.Outcome != "" {
		return fmt.Sprintf("%s (%s, HTTP %d)", msg, e.Body.Outcome, e.Status)
	}
	return fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
}

type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(opts *options) *apiClient {
	return &apiClient{
		baseURL: strings.TrimSuffix(opts.baseURL, "/"),
		http:    &http.Client{Timeout: opts.timeout},
	}
}

// do sends a request and decodes a 2xx JSON answer into out. The raw body
// is returned for --json output.
func (c *apiClient) do(ctx context.Context, method, path string, in, out any, headers map[string]string) ([]byte, error) {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &apiError{Status: resp.StatusCode}
		_ = json.Unmarshal(raw, &apiErr.Body)
		return raw, apiErr
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return raw, fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return raw, nil
}

func accountPath(accountID string, segments ...string) string {
	parts := append([]string{"/api/v1/accounts", url.PathEscape(accountID)}, segments...)
	return strings.Join(parts, "/")
}

func (c *apiClient) ledger(ctx context.Context, accountID string) (*dto.LedgerResponse, []byte, error) {
	var resp dto.LedgerResponse
	raw, err := c.do(ctx, http.MethodGet, accountPath(accountID, "ledger"), nil, &resp, nil)
	return &resp, raw, err
}

func (c *apiClient) reconcile(ctx context.Context, accountID string) (*dto.ReconciliationResponse, []byte, error) {
	var resp dto.ReconciliationResponse
	raw, err := c.do(ctx, http.MethodPost, accountPath(accountID, "reconcile"), nil, &resp, nil)
	return &resp, raw, err
}

func (c *apiClient) createMovement(ctx context.Context, accountID string, req dto.CreateMovementRequest, idempotencyKey string) (*dto.MovementResponse, []byte, error) {
	var resp dto.MovementResponse
	raw, err := c.do(ctx, http.MethodPost, accountPath(accountID, "movements"), req, &resp,
		map[string]string{idempotencyKeyHeader: idempotencyKey})
	return &resp, raw, err
}

func (c *apiClient) deleteMovement(ctx context.Context, accountID, movementID string) error {
	_, err := c.do(ctx, http.MethodDelete, accountPath(accountID, "movements", url.PathEscape(movementID)), nil, nil, nil)
	return err
}

func (c *apiClient) customerAccounts(ctx context.Context, customerID string) (*dto.PortfolioResponse, []byte, error) {
	var resp dto.PortfolioResponse
	path := "/api/v1/customers/" + url.PathEscape(customerID) + "/accounts"
	raw, err := c.do(ctx, http.MethodGet, path, nil, &resp, nil)
	return &resp, raw, err
}

func (c *apiClient) openAccount(ctx context.Context, req dto.OpenAccountRequest) (*dto.AccountResponse, []byte, error) {
	var resp dto.AccountResponse
	raw, err := c.do(ctx, http.MethodPost, "/api/v1/accounts", req, &resp, nil)
	return &resp, raw, err
}

func (c *apiClient) closeAccount(ctx context.Context, accountID string) error {
	_, err := c.do(ctx, http.MethodDelete, accountPath(accountID), nil, nil, nil)
	return err
}
