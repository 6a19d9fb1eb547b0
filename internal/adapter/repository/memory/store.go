package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

// Store keeps accounts, movements and session selections in memory.
// It implements usecase.AccountStore, usecase.AccountDirectory,
// usecase.MovementStore and usecase.SelectionStore.
type Store struct {
	mu         sync.RWMutex
	accounts   map[string]domain.Account
	movements  map[string][]domain.Movement
	selections map[string]selection
	idGen      usecase.IDGenerator
	now        func() time.Time
}

type selection struct {
	accountID string
	expiresAt time.Time
}

// NewStore creates an empty Store.
func NewStore(idGen usecase.IDGenerator) *Store {
	return &Store{
		accounts:   make(map[string]domain.Account),
		movements:  make(map[string][]domain.Movement),
		selections: make(map[string]selection),
		idGen:      idGen,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// PutAccount inserts or replaces an account. Used for seeding.
func (s *Store) PutAccount(account domain.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[account.ID] = account
}

// GetByID retrieves an account by ID.
func (s *Store) GetByID(_ context.Context, id string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, id)
	}
	return &account, nil
}

// Update replaces the stored account snapshot.
func (s *Store) Update(_ context.Context, account *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[account.ID]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrAccountNotFound, account.ID)
	}
	s.accounts[account.ID] = *account
	return nil
}

// ListByCustomer returns the accounts owned by a customer.
func (s *Store) ListByCustomer(_ context.Context, customerID string) ([]domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var accounts []domain.Account
	for _, account := range s.accounts {
		if account.CustomerID == customerID {
			accounts = append(accounts, account)
		}
	}
	return accounts, nil
}

// CreateAccount stores a new account. IDs are never reused.
func (s *Store) CreateAccount(_ context.Context, account *domain.Account) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[account.ID]; ok {
		return nil, fmt.Errorf("%w: account %s already exists", domain.ErrUpstreamRejected, account.ID)
	}
	created := *account
	s.accounts[created.ID] = created
	return &created, nil
}

// DeleteAccount removes an account without movements.
func (s *Store) DeleteAccount(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[id]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrAccountNotFound, id)
	}
	if len(s.movements[id]) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrAccountHasMovements, id)
	}
	delete(s.accounts, id)
	delete(s.movements, id)
	return nil
}

// ListByAccount returns the movements of an account in insertion order.
func (s *Store) ListByAccount(_ context.Context, accountID string) ([]domain.Movement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.accounts[accountID]; !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, accountID)
	}
	return slices.Clone(s.movements[accountID]), nil
}

// Create appends a movement and assigns its ID.
func (s *Store) Create(_ context.Context, accountID string, movement domain.Movement) (*domain.Movement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[accountID]; !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, accountID)
	}

	movement.ID = s.idGen.Generate()
	movement.AccountID = accountID
	s.movements[accountID] = append(s.movements[accountID], movement)

	return &movement, nil
}

// Delete removes a movement by ID.
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for accountID, movements := range s.movements {
		for i, m := range movements {
			if m.ID == id {
				s.movements[accountID] = slices.Delete(movements, i, i+1)
				return nil
			}
		}
	}
	return fmt.Errorf("%w: %s", domain.ErrMovementNotFound, id)
}

// Get returns the account selected by a session.
func (s *Store) Get(_ context.Context, sessionID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sel, ok := s.selections[sessionID]
	if !ok || s.now().After(sel.expiresAt) {
		return "", usecase.ErrNoAccountSelected
	}
	return sel.accountID, nil
}

// Set remembers the account selected by a session.
func (s *Store) Set(_ context.Context, sessionID, accountID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.selections[sessionID] = selection{accountID: accountID, expiresAt: s.now().Add(ttl)}
	return nil
}

// Clear forgets a session's selection.
func (s *Store) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.selections, sessionID)
	return nil
}
