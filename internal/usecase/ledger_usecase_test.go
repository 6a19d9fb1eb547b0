package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/bankledger/internal/adapter/repository/memory"
	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

var baseTime = time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC)

type ledgerFixture struct {
	store *memory.Store
	uc    *usecase.LedgerUseCase
}

// newLedgerFixture seeds account "1" and returns a use case whose clock
// advances one minute per movement.
func newLedgerFixture(t *testing.T, opening, creditLine string) *ledgerFixture {
	t.Helper()

	store := memory.NewStore(memory.NewSequenceGenerator(1))
	store.PutAccount(domain.Account{
		ID:             "1",
		Description:    "Main account",
		OpeningBalance: decimal.RequireFromString(opening),
		CreditLine:     decimal.RequireFromString(creditLine),
		CurrentBalance: decimal.RequireFromString(opening),
	})

	tick := baseTime
	uc := usecase.NewLedgerUseCase(usecase.LedgerConfig{
		Accounts:  store,
		Movements: store,
		Logger:    zerolog.Nop(),
		Now: func() time.Time {
			tick = tick.Add(time.Minute)
			return tick
		},
	})

	return &ledgerFixture{store: store, uc: uc}
}

func (f *ledgerFixture) storedBalance(t *testing.T) decimal.Decimal {
	t.Helper()
	acc, err := f.store.GetByID(context.Background(), "1")
	require.NoError(t, err)
	return acc.CurrentBalance
}

func (f *ledgerFixture) create(t *testing.T, kind domain.MovementKind, amount string) *domain.Movement {
	t.Helper()
	m, err := f.uc.CreateMovement(context.Background(), usecase.CreateMovementInput{
		AccountID: "1",
		Kind:      kind,
		Amount:    decimal.RequireFromString(amount),
	})
	require.NoError(t, err)
	return m
}

func TestLedgerUseCase_DepositOnStandardAccount(t *testing.T) {
	f := newLedgerFixture(t, "100", "0")

	m := f.create(t, domain.MovementKindDeposit, "50")

	assert.True(t, m.RunningBalance.Equal(decimal.NewFromInt(150)))

	ledger, err := f.uc.LoadLedger(context.Background(), "1")
	require.NoError(t, err)
	assert.True(t, ledger.Balance.Equal(decimal.NewFromInt(150)))
	assert.True(t, ledger.Available.Equal(decimal.NewFromInt(150)))
	assert.True(t, f.storedBalance(t).Equal(decimal.NewFromInt(150)))
}

func TestLedgerUseCase_PaymentExceedingBalanceRejected(t *testing.T) {
	f := newLedgerFixture(t, "100", "0")

	_, err := f.uc.CreateMovement(context.Background(), usecase.CreateMovementInput{
		AccountID: "1",
		Kind:      domain.MovementKindPayment,
		Amount:    decimal.NewFromInt(150),
	})

	require.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.Equal(t, usecase.OutcomeInsufficientFunds, usecase.Classify(err))

	ledger, err := f.uc.LoadLedger(context.Background(), "1")
	require.NoError(t, err)
	assert.Empty(t, ledger.Movements)
	assert.True(t, f.storedBalance(t).Equal(decimal.NewFromInt(100)))
}

func TestLedgerUseCase_PaymentWithinCreditLine(t *testing.T) {
	f := newLedgerFixture(t, "100", "50")

	m := f.create(t, domain.MovementKindPayment, "130")

	assert.True(t, m.RunningBalance.Equal(decimal.NewFromInt(-30)))
	assert.True(t, f.storedBalance(t).Equal(decimal.NewFromInt(-30)), "stored balance excludes the credit line")

	ledger, err := f.uc.LoadLedger(context.Background(), "1")
	require.NoError(t, err)
	assert.True(t, ledger.Available.Equal(decimal.NewFromInt(20)))
}

func TestLedgerUseCase_DeleteLastMovement(t *testing.T) {
	f := newLedgerFixture(t, "100", "0")
	deposit := f.create(t, domain.MovementKindDeposit, "50")
	payment := f.create(t, domain.MovementKindPayment, "30")
	require.True(t, f.storedBalance(t).Equal(decimal.NewFromInt(120)))

	require.NoError(t, f.uc.DeleteLastMovement(context.Background(), "1", payment.ID))

	ledger, err := f.uc.LoadLedger(context.Background(), "1")
	require.NoError(t, err)
	require.Len(t, ledger.Movements, 1)
	assert.Equal(t, deposit.ID, ledger.Movements[0].ID)
	assert.True(t, ledger.Movements[0].RunningBalance.Equal(decimal.NewFromInt(150)))
	assert.True(t, f.storedBalance(t).Equal(decimal.NewFromInt(150)))
}

func TestLedgerUseCase_DeleteNonLastMovementRejected(t *testing.T) {
	f := newLedgerFixture(t, "100", "0")
	deposit := f.create(t, domain.MovementKindDeposit, "50")
	f.create(t, domain.MovementKindPayment, "30")

	err := f.uc.DeleteLastMovement(context.Background(), "1", deposit.ID)

	require.ErrorIs(t, err, domain.ErrNotLastMovement)
	ledger, err := f.uc.LoadLedger(context.Background(), "1")
	require.NoError(t, err)
	assert.Len(t, ledger.Movements, 2)
	assert.True(t, f.storedBalance(t).Equal(decimal.NewFromInt(120)))
}

func TestLedgerUseCase_DeleteOnlyMovementRestoresOpeningBalance(t *testing.T) {
	f := newLedgerFixture(t, "100", "0")
	m := f.create(t, domain.MovementKindDeposit, "0.10")

	require.NoError(t, f.uc.DeleteLastMovement(context.Background(), "1", m.ID))

	assert.True(t, f.storedBalance(t).Equal(decimal.NewFromInt(100)))
}

func TestLedgerUseCase_DeleteUnknownMovement(t *testing.T) {
	f := newLedgerFixture(t, "100", "0")
	f.create(t, domain.MovementKindDeposit, "10")

	err := f.uc.DeleteLastMovement(context.Background(), "1", "999")

	assert.ErrorIs(t, err, domain.ErrMovementNotFound)
}

func TestLedgerUseCase_BalanceMatchesTailAfterEveryMutation(t *testing.T) {
	f := newLedgerFixture(t, "250.75", "100")
	steps := []struct {
		kind   domain.MovementKind
		amount string
	}{
		{domain.MovementKindDeposit, "0.10"},
		{domain.MovementKindDeposit, "0.20"},
		{domain.MovementKindPayment, "300"},
		{domain.MovementKindDeposit, "12.34"},
		{domain.MovementKindPayment, "63.39"},
	}

	var ids []string
	for _, s := range steps {
		ids = append(ids, f.create(t, s.kind, s.amount).ID)
		assertInSync(t, f)
	}

	for i := len(ids) - 1; i >= 0; i-- {
		require.NoError(t, f.uc.DeleteLastMovement(context.Background(), "1", ids[i]))
		assertInSync(t, f)
	}

	assert.True(t, f.storedBalance(t).Equal(decimal.RequireFromString("250.75")))
}

func assertInSync(t *testing.T, f *ledgerFixture) {
	t.Helper()
	ledger, err := f.uc.LoadLedger(context.Background(), "1")
	require.NoError(t, err)
	assert.True(t, ledger.InSync(), "stored %s, tail %s", ledger.Account.CurrentBalance, ledger.Balance)
}

func TestLedgerUseCase_ValidationHappensBeforeAnyCall(t *testing.T) {
	tests := []struct {
		name  string
		input usecase.CreateMovementInput
	}{
		{"zero amount", usecase.CreateMovementInput{AccountID: "1", Kind: domain.MovementKindDeposit, Amount: decimal.Zero}},
		{"negative amount", usecase.CreateMovementInput{AccountID: "1", Kind: domain.MovementKindDeposit, Amount: decimal.NewFromInt(-1)}},
		{"sub-cent amount", usecase.CreateMovementInput{AccountID: "1", Kind: domain.MovementKindDeposit, Amount: decimal.RequireFromString("0.005")}},
		{"unknown kind", usecase.CreateMovementInput{AccountID: "1", Kind: "Transfer", Amount: decimal.NewFromInt(1)}},
		{"missing account", usecase.CreateMovementInput{Kind: domain.MovementKindDeposit, Amount: decimal.NewFromInt(1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Stores are nil: any collaborator call would panic.
			uc := usecase.NewLedgerUseCase(usecase.LedgerConfig{Logger: zerolog.Nop()})

			_, err := uc.CreateMovement(context.Background(), tt.input)

			assert.ErrorIs(t, err, domain.ErrValidation)
			assert.Equal(t, usecase.OutcomeValidationError, usecase.Classify(err))
		})
	}
}

func TestLedgerUseCase_LoadLedgerUnknownAccount(t *testing.T) {
	f := newLedgerFixture(t, "0", "0")

	_, err := f.uc.LoadLedger(context.Background(), "404")

	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	assert.Equal(t, usecase.OutcomeNotFound, usecase.Classify(err))
}
