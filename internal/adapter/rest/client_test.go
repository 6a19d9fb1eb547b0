package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/infrastructure/retry"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{
		BaseURL: srv.URL + "/webresources",
		Retrier: retry.NewRetrier(
			retry.WithIntervals(time.Millisecond, 2*time.Millisecond, time.Second),
			retry.WithClassifier(func(err error) bool { return errors.Is(err, domain.ErrUpstreamUnavailable) }),
		),
		Logger: zerolog.Nop(),
	})
	require.NoError(t, err)
	return c
}

func TestClient_GetByID(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /webresources/account/42", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		io.WriteString(w, `{
			"id": 42,
			"description": "Savings",
			"balance": 150.5,
			"creditLine": null,
			"beginBalance": 100,
			"beginBalanceTimestamp": "2026-01-10T08:00:00Z[UTC]",
			"type": "STANDARD",
			"customerId": "7"
		}`)
	})

	c := newTestClient(t, mux)
	acc, err := c.GetByID(context.Background(), "42")

	require.NoError(t, err)
	assert.Equal(t, "42", acc.ID)
	assert.Equal(t, "Savings", acc.Description)
	assert.Equal(t, "7", acc.CustomerID)
	assert.True(t, acc.CurrentBalance.Equal(decimal.RequireFromString("150.5")))
	assert.True(t, acc.OpeningBalance.Equal(decimal.NewFromInt(100)))
	assert.True(t, acc.CreditLine.IsZero())
	assert.Equal(t, domain.AccountTypeStandard, acc.Type())
	assert.Equal(t, time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC), acc.OpeningBalanceAt)
}

func TestClient_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"not found", http.StatusNotFound, domain.ErrAccountNotFound},
		{"server error", http.StatusInternalServerError, domain.ErrUpstreamUnavailable},
		{"bad request", http.StatusBadRequest, domain.ErrUpstreamRejected},
		{"conflict", http.StatusConflict, domain.ErrUpstreamRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))

			_, err := c.GetByID(context.Background(), "1")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestClient_RetriesUnavailableReads(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		io.WriteString(w, `[]`)
	}))

	movements, err := c.ListByAccount(context.Background(), "1")

	require.NoError(t, err)
	assert.Empty(t, movements)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_DoesNotRetryWrites(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))

	err := c.Delete(context.Background(), "9")

	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_Timeout(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.GetByID(ctx, "1")
	assert.ErrorIs(t, err, domain.ErrTimeout)
}

func TestClient_ListByAccount(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /webresources/movement/account/1", func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `[
			{"id": 2, "timestamp": 1767254400000, "amount": 30, "balance": 999, "description": "Payment", "accountId": 1},
			{"id": "1", "timestamp": "2026-01-01T07:00:00.000Z", "amount": "50.25", "balance": 0, "description": "deposit"}
		]`)
	})

	c := newTestClient(t, mux)
	movements, err := c.ListByAccount(context.Background(), "1")

	require.NoError(t, err)
	require.Len(t, movements, 2)
	assert.Equal(t, "2", movements[0].ID)
	assert.Equal(t, domain.MovementKindPayment, movements[0].Kind)
	assert.Equal(t, time.UnixMilli(1767254400000).UTC(), movements[0].Timestamp)
	assert.Equal(t, domain.MovementKindDeposit, movements[1].Kind)
	assert.Equal(t, "1", movements[1].AccountID)
	assert.True(t, movements[1].Amount.Equal(decimal.RequireFromString("50.25")))
}

func TestClient_ListByAccountRejectsUnknownKind(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `[{"id": 1, "timestamp": 0, "amount": 5, "description": "Transfer"}]`)
	}))

	_, err := c.ListByAccount(context.Background(), "1")

	assert.ErrorIs(t, err, domain.ErrUpstreamRejected)
	assert.ErrorIs(t, err, domain.ErrUnknownMovementKind)
}

func TestClient_Create(t *testing.T) {
	at := time.Date(2026, 2, 2, 9, 30, 0, 0, time.UTC)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /webresources/movement/1", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Deposit", body["description"])
		assert.Equal(t, 50.0, body["amount"])
		assert.Equal(t, 150.0, body["balance"])
		assert.Equal(t, "2026-02-02T09:30:00.000Z", body["timestamp"])

		io.WriteString(w, `{"id": 77, "timestamp": "2026-02-02T09:30:00Z", "amount": 50, "description": "Deposit"}`)
	})

	c := newTestClient(t, mux)
	created, err := c.Create(context.Background(), "1", domain.Movement{
		Kind:           domain.MovementKindDeposit,
		Amount:         decimal.NewFromInt(50),
		RunningBalance: decimal.NewFromInt(150),
		Timestamp:      at,
	})

	require.NoError(t, err)
	assert.Equal(t, "77", created.ID)
	assert.Equal(t, "1", created.AccountID)
}

func TestClient_CreateWithEmptyBodyFallsBackToReload(t *testing.T) {
	at := time.Date(2026, 2, 2, 9, 30, 0, 0, time.UTC)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /webresources/movement/1", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /webresources/movement/account/1", func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `[
			{"id": 3, "timestamp": "2026-02-02T09:00:00Z", "amount": 50, "description": "Deposit"},
			{"id": 4, "timestamp": "2026-02-02T09:30:00Z", "amount": 50, "description": "Deposit"}
		]`)
	})

	c := newTestClient(t, mux)
	created, err := c.Create(context.Background(), "1", domain.Movement{
		Kind:      domain.MovementKindDeposit,
		Amount:    decimal.NewFromInt(50),
		Timestamp: at,
	})

	require.NoError(t, err)
	assert.Equal(t, "4", created.ID)
}

func TestClient_UpdateKeepsUnmodelledFields(t *testing.T) {
	var put map[string]any

	mux := http.NewServeMux()
	mux.HandleFunc("GET /webresources/account/5", func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `{"id": 5, "balance": 10, "beginBalance": 10, "customers": [{"id": 7}]}`)
	})
	mux.HandleFunc("PUT /webresources/account", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&put))
		w.WriteHeader(http.StatusNoContent)
	})

	c := newTestClient(t, mux)
	err := c.Update(context.Background(), &domain.Account{ID: "5", CurrentBalance: decimal.RequireFromString("42.5")})

	require.NoError(t, err)
	assert.Equal(t, 42.5, put["balance"])
	assert.NotNil(t, put["customers"])
}

func TestClient_DeleteNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /webresources/movement/9", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	c := newTestClient(t, mux)
	err := c.Delete(context.Background(), "9")

	assert.ErrorIs(t, err, domain.ErrMovementNotFound)
}

func TestNewClient_RejectsBadURL(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "ftp://example.com"})
	assert.Error(t, err)
}

func TestClient_ListByCustomer(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /webresources/account", func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `[
			{"id": 1, "description": "Current", "balance": 100, "beginBalance": 100, "type": "STANDARD", "customers": [{"id": 7}]},
			{"id": 2, "description": "Other", "balance": 5, "beginBalance": 5, "type": "STANDARD", "customers": [{"id": 8}]},
			{"id": 3, "description": "Credit", "balance": -20, "beginBalance": 0, "creditLine": 500, "type": "CREDIT", "customerId": "7"}
		]`)
	})

	c := newTestClient(t, mux)
	accounts, err := c.ListByCustomer(context.Background(), "7")

	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "1", accounts[0].ID)
	assert.Equal(t, "7", accounts[0].CustomerID)
	assert.Equal(t, "3", accounts[1].ID)
	assert.Equal(t, domain.AccountTypeCredit, accounts[1].Type())
}

func TestClient_CreateAccount(t *testing.T) {
	var body map[string]any

	mux := http.NewServeMux()
	mux.HandleFunc("POST /webresources/account", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusNoContent)
	})

	c := newTestClient(t, mux)
	created, err := c.CreateAccount(context.Background(), &domain.Account{
		ID:               "12",
		CustomerID:       "7",
		Description:      "Holidays",
		OpeningBalance:   decimal.NewFromInt(80),
		CurrentBalance:   decimal.NewFromInt(80),
		CreditLine:       decimal.NewFromInt(300),
		OpeningBalanceAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	})

	require.NoError(t, err)
	assert.Equal(t, "12", created.ID)
	assert.Equal(t, 12.0, body["id"])
	assert.Equal(t, "Holidays", body["description"])
	assert.Equal(t, 80.0, body["beginBalance"])
	assert.Equal(t, 300.0, body["creditLine"])
	assert.Equal(t, "CREDIT", body["type"])
	assert.Equal(t, "2026-03-01T10:00:00Z", body["beginBalanceTimestamp"])
	assert.Equal(t, []any{map[string]any{"id": 7.0}}, body["customers"])
}

func TestClient_DeleteAccountStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"not found", http.StatusNotFound, domain.ErrAccountNotFound},
		{"has movements", http.StatusConflict, domain.ErrAccountHasMovements},
		{"server error", http.StatusInternalServerError, domain.ErrUpstreamUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("DELETE /webresources/account/5", func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			})

			c := newTestClient(t, mux)
			err := c.DeleteAccount(context.Background(), "5")

			assert.ErrorIs(t, err, tt.want)
		})
	}
}
