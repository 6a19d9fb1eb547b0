package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/bankledger/internal/adapter/http/dto"
	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

type ledgerServiceStub struct {
	loadFn      func(ctx context.Context, accountID string) (*domain.Ledger, error)
	createFn    func(ctx context.Context, input usecase.CreateMovementInput) (*domain.Movement, error)
	deleteFn    func(ctx context.Context, accountID, movementID string) error
	reconcileFn func(ctx context.Context, accountID string) (*usecase.ReconciliationResult, error)
}

func (s *ledgerServiceStub) LoadLedger(ctx context.Context, accountID string) (*domain.Ledger, error) {
	return s.loadFn(ctx, accountID)
}

func (s *ledgerServiceStub) CreateMovement(ctx context.Context, input usecase.CreateMovementInput) (*domain.Movement, error) {
	return s.createFn(ctx, input)
}

func (s *ledgerServiceStub) DeleteLastMovement(ctx context.Context, accountID, movementID string) error {
	return s.deleteFn(ctx, accountID, movementID)
}

func (s *ledgerServiceStub) ReconcileAccount(ctx context.Context, accountID string) (*usecase.ReconciliationResult, error) {
	return s.reconcileFn(ctx, accountID)
}

// serve routes req through a chi router so URL params resolve.
func serve(method, pattern string, h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Method(method, pattern, h)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func sampleLedger() *domain.Ledger {
	account := &domain.Account{ID: "1", OpeningBalance: decimal.NewFromInt(100), CurrentBalance: decimal.NewFromInt(80)}
	return mustLedger(account, []domain.Movement{
		{ID: "10", Timestamp: time.Unix(10, 0), Kind: domain.MovementKindPayment, Amount: decimal.NewFromInt(20)},
	})
}

func TestLedgerHandler_Get(t *testing.T) {
	h := NewLedgerHandler(&ledgerServiceStub{
		loadFn: func(ctx context.Context, accountID string) (*domain.Ledger, error) {
			assert.Equal(t, "1", accountID)
			return sampleLedger(), nil
		},
	})

	rec := serve(http.MethodGet, "/accounts/{id}/ledger", h.Get,
		httptest.NewRequest(http.MethodGet, "/accounts/1/ledger", nil))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp dto.LedgerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "10", resp.LastMovementID)
	assert.Equal(t, 1, resp.MovementCount)
	assert.True(t, decimal.NewFromInt(80).Equal(resp.Total))
}

func TestLedgerHandler_CreateMovement(t *testing.T) {
	var captured usecase.CreateMovementInput
	h := NewLedgerHandler(&ledgerServiceStub{
		createFn: func(ctx context.Context, input usecase.CreateMovementInput) (*domain.Movement, error) {
			captured = input
			return &domain.Movement{ID: "11", AccountID: input.AccountID, Kind: input.Kind, Amount: input.Amount, RunningBalance: decimal.NewFromInt(130)}, nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/accounts/1/movements", strings.NewReader(`{"amount":"50","kind":"Deposit"}`))
	rec := serve(http.MethodPost, "/accounts/{id}/movements", h.CreateMovement, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "1", captured.AccountID)
	assert.Equal(t, domain.MovementKindDeposit, captured.Kind)
	assert.Equal(t, string(usecase.OutcomeSuccess), rec.Header().Get(dto.OutcomeHeader))

	var resp dto.MovementResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "11", resp.ID)
}

func TestLedgerHandler_CreateMovement_InvalidJSON(t *testing.T) {
	h := NewLedgerHandler(&ledgerServiceStub{
		createFn: func(ctx context.Context, input usecase.CreateMovementInput) (*domain.Movement, error) {
			t.Fatal("CreateMovement should not be called for invalid payload")
			return nil, nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/accounts/1/movements", strings.NewReader(`{`))
	rec := serve(http.MethodPost, "/accounts/{id}/movements", h.CreateMovement, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLedgerHandler_CreateMovement_ValidationError(t *testing.T) {
	h := NewLedgerHandler(&ledgerServiceStub{
		createFn: func(ctx context.Context, input usecase.CreateMovementInput) (*domain.Movement, error) {
			t.Fatal("CreateMovement should not be called for invalid input")
			return nil, nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/accounts/1/movements", strings.NewReader(`{"amount":"-5","kind":"Deposit"}`))
	rec := serve(http.MethodPost, "/accounts/{id}/movements", h.CreateMovement, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, string(usecase.OutcomeValidationError), rec.Header().Get(dto.OutcomeHeader))
}

func TestLedgerHandler_CreateMovement_ReconciliationFailureCarriesMovement(t *testing.T) {
	h := NewLedgerHandler(&ledgerServiceStub{
		createFn: func(ctx context.Context, input usecase.CreateMovementInput) (*domain.Movement, error) {
			return &domain.Movement{ID: "12", Kind: input.Kind, Amount: input.Amount}, &domain.ReconciliationError{
				AccountID:  "1",
				MovementID: "12",
				Cause:      domain.ErrUpstreamUnavailable,
			}
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/accounts/1/movements", strings.NewReader(`{"amount":5,"kind":"Payment"}`))
	rec := serve(http.MethodPost, "/accounts/{id}/movements", h.CreateMovement, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(usecase.OutcomeReconciliationFailure), resp.Outcome)
	assert.False(t, resp.Retryable)
	require.NotNil(t, resp.Movement)
	assert.Equal(t, "12", resp.Movement.ID)
}

func TestLedgerHandler_DeleteMovement(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"deleted", nil, http.StatusNoContent},
		{"not last", fmt.Errorf("%w: last movement is 3", domain.ErrNotLastMovement), http.StatusConflict},
		{"not found", domain.ErrMovementNotFound, http.StatusNotFound},
		{"busy", domain.ErrLedgerBusy, http.StatusConflict},
		{"timeout", domain.ErrTimeout, http.StatusGatewayTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewLedgerHandler(&ledgerServiceStub{
				deleteFn: func(ctx context.Context, accountID, movementID string) error {
					assert.Equal(t, "1", accountID)
					assert.Equal(t, "2", movementID)
					return tt.err
				},
			})

			req := httptest.NewRequest(http.MethodDelete, "/accounts/1/movements/2", nil)
			rec := serve(http.MethodDelete, "/accounts/{id}/movements/{movementId}", h.DeleteMovement, req)

			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestLedgerHandler_Reconcile(t *testing.T) {
	h := NewLedgerHandler(&ledgerServiceStub{
		reconcileFn: func(ctx context.Context, accountID string) (*usecase.ReconciliationResult, error) {
			return &usecase.ReconciliationResult{
				AccountID:         accountID,
				RecordedBalance:   decimal.NewFromInt(90),
				CalculatedBalance: decimal.NewFromInt(80),
				Difference:        decimal.NewFromInt(10),
				Corrected:         true,
			}, nil
		},
	})

	rec := serve(http.MethodPost, "/accounts/{id}/reconcile", h.Reconcile,
		httptest.NewRequest(http.MethodPost, "/accounts/1/reconcile", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp dto.ReconciliationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Corrected)
	assert.Equal(t, "1", resp.AccountID)
}

func TestStatusForOutcome(t *testing.T) {
	tests := []struct {
		outcome usecase.Outcome
		status  int
	}{
		{usecase.OutcomeSuccess, http.StatusOK},
		{usecase.OutcomeValidationError, http.StatusUnprocessableEntity},
		{usecase.OutcomeInsufficientFunds, http.StatusUnprocessableEntity},
		{usecase.OutcomeNotLastMovement, http.StatusConflict},
		{usecase.OutcomeBusy, http.StatusConflict},
		{usecase.OutcomeAccountNotEmpty, http.StatusConflict},
		{usecase.OutcomeNotFound, http.StatusNotFound},
		{usecase.OutcomeUpstreamUnavailable, http.StatusBadGateway},
		{usecase.OutcomeUpstreamRejected, http.StatusBadGateway},
		{usecase.OutcomeTimeout, http.StatusGatewayTimeout},
		{usecase.OutcomeReconciliationFailure, http.StatusInternalServerError},
		{usecase.OutcomeUnclassified, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.status, statusForOutcome(tt.outcome), tt.outcome)
	}
}

// mustLedger builds a ledger from well-formed fixtures.
func mustLedger(account *domain.Account, movements []domain.Movement) *domain.Ledger {
	ledger, err := domain.NewLedger(account, movements)
	if err != nil {
		panic(err)
	}
	return ledger
}
