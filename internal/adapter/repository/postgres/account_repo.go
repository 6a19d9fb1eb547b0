package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
)

const accountColumns = `id, description, COALESCE(customer_id, ''), opening_balance::text, ` +
	`opening_balance_at, credit_line::text, current_balance::text`

const getAccountByID = `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

const listAccountsByCustomer = `SELECT ` + accountColumns + ` FROM accounts WHERE customer_id = $1 ORDER BY id`

const updateAccountBalance = `UPDATE accounts SET current_balance = $2, updated_at = now() WHERE id = $1`

const insertAccount = `INSERT INTO accounts (id, description, customer_id, opening_balance, opening_balance_at, credit_line, current_balance)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

const countMovements = `SELECT count(*) FROM movements WHERE account_id = $1`

const deleteAccount = `DELETE FROM accounts WHERE id = $1`

// AccountRepository implements usecase.AccountStore and usecase.AccountDirectory.
type AccountRepository struct {
	db DB
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	account, err := scanAccount(r.db.QueryRow(ctx, getAccountByID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	return account, err
}

// ListByCustomer returns the accounts owned by a customer.
func (r *AccountRepository) ListByCustomer(ctx context.Context, customerID string) ([]domain.Account, error) {
	rows, err := r.db.Query(ctx, listAccountsByCustomer, customerID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	accounts := []domain.Account{}
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return accounts, nil
}

// CreateAccount inserts a new account.
func (r *AccountRepository) CreateAccount(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	created := *account
	created.OpeningBalanceAt = account.OpeningBalanceAt.UTC().Truncate(time.Microsecond)

	_, err := r.db.Exec(ctx, insertAccount,
		created.ID,
		created.Description,
		created.CustomerID,
		created.OpeningBalance.StringFixed(domain.AmountScale),
		created.OpeningBalanceAt,
		created.CreditLine.StringFixed(domain.AmountScale),
		created.CurrentBalance.StringFixed(domain.AmountScale),
	)
	if err != nil {
		return nil, mapError(err)
	}
	return &created, nil
}

// DeleteAccount removes an account once it has no movements. The account
// row is locked so no movement can be inserted between the check and the delete.
func (r *AccountRepository) DeleteAccount(ctx context.Context, id string) error {
	err := withTx(ctx, r.db, func(tx pgx.Tx) error {
		var locked string
		if err := tx.QueryRow(ctx, lockAccount, id).Scan(&locked); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrAccountNotFound
			}
			return err
		}

		var count int64
		if err := tx.QueryRow(ctx, countMovements, id).Scan(&count); err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: %d movements", domain.ErrAccountHasMovements, count)
		}

		_, err := tx.Exec(ctx, deleteAccount, id)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) || errors.Is(err, domain.ErrAccountHasMovements) {
			return err
		}
		return mapError(err)
	}
	return nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		account                          domain.Account
		opening, creditLine, currentText string
	)

	err := row.Scan(
		&account.ID,
		&account.Description,
		&account.CustomerID,
		&opening,
		&account.OpeningBalanceAt,
		&creditLine,
		&currentText,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, mapError(err)
	}

	if account.OpeningBalance, err = parseNumeric(opening); err != nil {
		return nil, err
	}
	if account.CreditLine, err = parseNumeric(creditLine); err != nil {
		return nil, err
	}
	if account.CurrentBalance, err = parseNumeric(currentText); err != nil {
		return nil, err
	}

	return &account, nil
}

// Update stores the account's current balance. Opening balance and credit
// line are fixed at creation and never rewritten here.
func (r *AccountRepository) Update(ctx context.Context, account *domain.Account) error {
	tag, err := r.db.Exec(ctx, updateAccountBalance, account.ID, account.CurrentBalance.StringFixed(domain.AmountScale))
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func parseNumeric(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: numeric %q: %w", domain.ErrUpstreamRejected, s, err)
	}
	return d, nil
}
