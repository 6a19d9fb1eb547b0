// Package rest talks to the remote persistence service that owns accounts
// and movements.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/infrastructure/retry"
	"github.com/iho/bankledger/internal/usecase"
)

const maxResponseBytes = 4 << 20

// Config configures a Client.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	// Retrier is applied to idempotent reads only.
	Retrier usecase.Retrier
	Logger  zerolog.Logger
}

// Client implements usecase.AccountStore and usecase.MovementStore over the
// persistence service's JSON API.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	retrier usecase.Retrier
	logger  zerolog.Logger
}

// NewClient creates a new Client.
func NewClient(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse persistence URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("persistence URL %q must be http or https", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	retrier := cfg.Retrier
	if retrier == nil {
		retrier = retry.NewRetrier(
			retry.WithClassifier(func(err error) bool { return errors.Is(err, domain.ErrUpstreamUnavailable) }),
			retry.WithLogger(cfg.Logger),
		)
	}

	return &Client{
		baseURL: base,
		http:    httpClient,
		retrier: retrier,
		logger:  cfg.Logger,
	}, nil
}

// GetByID fetches an account snapshot.
func (c *Client) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	var dto accountDTO
	err := c.retrier.Retry(ctx, func() error {
		return c.do(ctx, http.MethodGet, c.path("account", id), nil, &dto, domain.ErrAccountNotFound)
	})
	if err != nil {
		return nil, fmt.Errorf("get account %s: %w", id, err)
	}
	if dto.ID == "" {
		return nil, fmt.Errorf("%w: account %s has no id", domain.ErrUpstreamRejected, id)
	}
	return dto.toDomain(), nil
}

// Update stores account.CurrentBalance. The service expects the full account
// document, so the current document is fetched and only its balance replaced;
// fields this client does not model (linked customers, for instance) survive.
func (c *Client) Update(ctx context.Context, account *domain.Account) error {
	var doc map[string]json.RawMessage
	err := c.retrier.Retry(ctx, func() error {
		return c.do(ctx, http.MethodGet, c.path("account", account.ID), nil, &doc, domain.ErrAccountNotFound)
	})
	if err != nil {
		return fmt.Errorf("get account %s for update: %w", account.ID, err)
	}
	if doc == nil {
		return fmt.Errorf("%w: empty account %s", domain.ErrUpstreamRejected, account.ID)
	}

	doc["balance"] = json.RawMessage(account.CurrentBalance.StringFixed(domain.AmountScale))

	if err := c.do(ctx, http.MethodPut, c.path("account"), doc, nil, domain.ErrAccountNotFound); err != nil {
		return fmt.Errorf("put account %s: %w", account.ID, err)
	}
	return nil
}

// ListByCustomer fetches every account and keeps those linked to customerID.
// The service has no per-customer query.
func (c *Client) ListByCustomer(ctx context.Context, customerID string) ([]domain.Account, error) {
	var dtos []accountDTO
	err := c.retrier.Retry(ctx, func() error {
		dtos = nil
		return c.do(ctx, http.MethodGet, c.path("account"), nil, &dtos, domain.ErrAccountNotFound)
	})
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	accounts := []domain.Account{}
	for _, dto := range dtos {
		if dto.ID != "" && dto.ownedBy(customerID) {
			accounts = append(accounts, *dto.toDomain())
		}
	}
	return accounts, nil
}

// CreateAccount posts a new account document.
func (c *Client) CreateAccount(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	if err := c.do(ctx, http.MethodPost, c.path("account"), newCreateAccountRequest(account), nil, domain.ErrAccountNotFound); err != nil {
		return nil, fmt.Errorf("post account %s: %w", account.ID, err)
	}
	created := *account
	return &created, nil
}

// DeleteAccount removes an account. The service answers 409 while the
// account still has movements.
func (c *Client) DeleteAccount(ctx context.Context, id string) error {
	err := c.doWith(ctx, http.MethodDelete, c.path("account", id), nil, nil, map[int]error{
		http.StatusNotFound: domain.ErrAccountNotFound,
		http.StatusConflict: domain.ErrAccountHasMovements,
	})
	if err != nil {
		return fmt.Errorf("delete account %s: %w", id, err)
	}
	return nil
}

// ListByAccount fetches the raw movements of an account.
func (c *Client) ListByAccount(ctx context.Context, accountID string) ([]domain.Movement, error) {
	var dtos []movementDTO
	err := c.retrier.Retry(ctx, func() error {
		dtos = nil
		return c.do(ctx, http.MethodGet, c.path("movement", "account", accountID), nil, &dtos, domain.ErrAccountNotFound)
	})
	if err != nil {
		return nil, fmt.Errorf("list movements of %s: %w", accountID, err)
	}

	movements := make([]domain.Movement, 0, len(dtos))
	for _, dto := range dtos {
		m, err := dto.toDomain(accountID)
		if err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, nil
}

// Create posts a movement. When the service answers without a body the
// movement is looked up in the reloaded list instead.
func (c *Client) Create(ctx context.Context, accountID string, movement domain.Movement) (*domain.Movement, error) {
	var dto *movementDTO
	err := c.do(ctx, http.MethodPost, c.path("movement", accountID), newCreateMovementRequest(movement), &dto, domain.ErrAccountNotFound)
	if err != nil {
		return nil, fmt.Errorf("post movement: %w", err)
	}

	if dto != nil && dto.ID != "" {
		created, err := dto.toDomain(accountID)
		if err != nil {
			return nil, err
		}
		return &created, nil
	}

	c.logger.Debug().Str("account_id", accountID).Msg("movement created without response body, reloading")

	movements, err := c.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("reload after create: %w", err)
	}

	created, ok := domain.FindPosted(movements, movement)
	if !ok {
		return nil, fmt.Errorf("%w: created movement not found in account %s", domain.ErrUpstreamRejected, accountID)
	}
	return &created, nil
}

// Delete removes a movement by ID.
func (c *Client) Delete(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, c.path("movement", id), nil, nil, domain.ErrMovementNotFound); err != nil {
		return fmt.Errorf("delete movement %s: %w", id, err)
	}
	return nil
}

// Ping checks that the service answers at all.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL.String(), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return transportError(ctx, err)
	}
	resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: status %d", domain.ErrUpstreamUnavailable, resp.StatusCode)
	}
	return nil
}

// path joins segments under the base URL. Identifiers are validated upstream
// and never contain separators.
func (c *Client) path(segments ...string) string {
	u := *c.baseURL
	u.Path = u.Path + "/" + strings.Join(segments, "/")
	return u.String()
}

func (c *Client) do(ctx context.Context, method, target string, in, out any, notFound error) error {
	return c.doWith(ctx, method, target, in, out, map[int]error{http.StatusNotFound: notFound})
}

// doWith sends one request. statusErrs overrides the error of specific statuses.
func (c *Client) doWith(ctx context.Context, method, target string, in, out any, statusErrs map[int]error) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return transportError(ctx, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return transportError(ctx, err)
	}

	c.logger.Debug().
		Str("method", method).
		Str("url", target).
		Int("status", resp.StatusCode).
		Msg("persistence call")

	if err := statusError(resp.StatusCode, statusErrs); err != nil {
		return fmt.Errorf("%s %s: %w", method, req.URL.Path, err)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decode %s response: %w", domain.ErrUpstreamRejected, req.URL.Path, err)
	}
	return nil
}

func statusError(status int, statusErrs map[int]error) error {
	if err, ok := statusErrs[status]; ok && status >= 300 {
		return err
	}
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusNotFound:
		return domain.ErrAccountNotFound
	case status == http.StatusRequestTimeout || status == http.StatusTooManyRequests || status >= 500:
		return fmt.Errorf("%w: status %d", domain.ErrUpstreamUnavailable, status)
	default:
		return fmt.Errorf("%w: status %d", domain.ErrUpstreamRejected, status)
	}
}

func transportError(ctx context.Context, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %w", domain.ErrTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrUpstreamUnavailable, err)
}
