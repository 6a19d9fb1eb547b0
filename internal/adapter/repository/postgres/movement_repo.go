package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

const listMovementsByAccount = `SELECT id, account_id, kind, amount::text, running_balance::text, occurred_at
FROM movements WHERE account_id = $1 ORDER BY occurred_at, id`

const lockAccount = `SELECT id FROM accounts WHERE id = $1 FOR UPDATE`

const insertMovement = `INSERT INTO movements (id, account_id, kind, amount, running_balance, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6)`

const deleteMovement = `DELETE FROM movements WHERE id = $1`

// MovementRepository implements usecase.MovementStore.
type MovementRepository struct {
	db    DB
	idGen usecase.IDGenerator
}

// NewMovementRepository creates a new MovementRepository.
func NewMovementRepository(db DB, idGen usecase.IDGenerator) *MovementRepository {
	return &MovementRepository{db: db, idGen: idGen}
}

// ListByAccount returns the movements of an account in ledger order.
func (r *MovementRepository) ListByAccount(ctx context.Context, accountID string) ([]domain.Movement, error) {
	rows, err := r.db.Query(ctx, listMovementsByAccount, accountID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	movements := []domain.Movement{}
	for rows.Next() {
		var (
			m                     domain.Movement
			kind, amount, running string
		)
		if err := rows.Scan(&m.ID, &m.AccountID, &kind, &amount, &running, &m.Timestamp); err != nil {
			return nil, mapError(err)
		}

		if m.Kind, err = domain.ParseMovementKind(kind); err != nil {
			return nil, fmt.Errorf("%w: movement %s: %w", domain.ErrUpstreamRejected, m.ID, err)
		}
		if m.Amount, err = parseNumeric(amount); err != nil {
			return nil, err
		}
		if m.RunningBalance, err = parseNumeric(running); err != nil {
			return nil, err
		}

		movements = append(movements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	return movements, nil
}

// Create inserts a movement after locking its account row, so writers on
// other server instances queue behind each other.
func (r *MovementRepository) Create(ctx context.Context, accountID string, movement domain.Movement) (*domain.Movement, error) {
	created := movement
	created.ID = r.idGen.Generate()
	created.AccountID = accountID
	created.Timestamp = movement.Timestamp.UTC().Truncate(time.Microsecond)

	err := withTx(ctx, r.db, func(tx pgx.Tx) error {
		var locked string
		if err := tx.QueryRow(ctx, lockAccount, accountID).Scan(&locked); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrAccountNotFound
			}
			return err
		}

		_, err := tx.Exec(ctx, insertMovement,
			created.ID,
			created.AccountID,
			created.Kind.String(),
			created.Amount.StringFixed(domain.AmountScale),
			created.RunningBalance.StringFixed(domain.AmountScale),
			created.Timestamp,
		)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, err
		}
		return nil, mapError(err)
	}

	return &created, nil
}

// Delete removes a movement by ID.
func (r *MovementRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, deleteMovement, id)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrMovementNotFound
	}
	return nil
}
