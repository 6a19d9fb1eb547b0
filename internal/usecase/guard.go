package usecase

import (
	"sync"

	"github.com/iho/bankledger/internal/domain"
)

// accountGuard admits a single ledger mutation per account at a time.
type accountGuard struct {
	mu   sync.Mutex
	busy map[string]struct{}
}

func newAccountGuard() *accountGuard {
	return &accountGuard{busy: make(map[string]struct{})}
}

// acquire marks accountID busy or fails with ErrLedgerBusy.
func (g *accountGuard) acquire(accountID string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.busy[accountID]; ok {
		return nil, domain.ErrLedgerBusy
	}
	g.busy[accountID] = struct{}{}

	return func() {
		g.mu.Lock()
		delete(g.busy, accountID)
		g.mu.Unlock()
	}, nil
}
