package rest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
)

// wireID accepts identifiers sent either as JSON strings or numbers.
type wireID string

func (id *wireID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = wireID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*id = wireID(n.String())
	return nil
}

// wireTime accepts RFC 3339 strings, zone-suffixed Java timestamps
// ("...Z[UTC]") and epoch milliseconds.
type wireTime time.Time

func (t *wireTime) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*t = wireTime{}
		return nil
	}
	if len(data) > 0 && data[0] != '"' {
		ms, err := strconv.ParseInt(string(data), 10, 64)
		if err != nil {
			return fmt.Errorf("timestamp: %w", err)
		}
		*t = wireTime(time.UnixMilli(ms).UTC())
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if i := strings.IndexByte(s, '['); i > 0 {
		s = s[:i]
	}
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	*t = wireTime(parsed.UTC())
	return nil
}

type accountDTO struct {
	ID                    wireID              `json:"id"`
	Description           string              `json:"description"`
	Balance               decimal.NullDecimal `json:"balance"`
	CreditLine            decimal.NullDecimal `json:"creditLine"`
	BeginBalance          decimal.NullDecimal `json:"beginBalance"`
	BeginBalanceTimestamp wireTime            `json:"beginBalanceTimestamp"`
	Type                  string              `json:"type"`
	CustomerID            wireID              `json:"customerId"`
	Customers             []customerRef       `json:"customers"`
}

type customerRef struct {
	ID wireID `json:"id"`
}

// ownerID prefers the explicit customerId over the first linked customer.
func (a accountDTO) ownerID() string {
	if a.CustomerID != "" || len(a.Customers) == 0 {
		return string(a.CustomerID)
	}
	return string(a.Customers[0].ID)
}

// ownedBy reports whether customerID is linked to the account.
func (a accountDTO) ownedBy(customerID string) bool {
	if string(a.CustomerID) == customerID {
		return true
	}
	for _, c := range a.Customers {
		if string(c.ID) == customerID {
			return true
		}
	}
	return false
}

func (a accountDTO) toDomain() *domain.Account {
	return &domain.Account{
		ID:               string(a.ID),
		Description:      a.Description,
		CustomerID:       a.ownerID(),
		OpeningBalance:   a.BeginBalance.Decimal,
		OpeningBalanceAt: time.Time(a.BeginBalanceTimestamp),
		CreditLine:       a.CreditLine.Decimal,
		CurrentBalance:   a.Balance.Decimal,
	}
}

type movementDTO struct {
	ID          wireID          `json:"id"`
	Timestamp   wireTime        `json:"timestamp"`
	Amount      decimal.Decimal `json:"amount"`
	Balance     decimal.Decimal `json:"balance"`
	Description string          `json:"description"`
	AccountID   wireID          `json:"accountId"`
}

// toDomain rejects kinds the ledger cannot fold so they never reach the calculator.
func (m movementDTO) toDomain(accountID string) (domain.Movement, error) {
	kind, err := domain.ParseMovementKind(m.Description)
	if err != nil {
		return domain.Movement{}, fmt.Errorf("%w: movement %s: %w", domain.ErrUpstreamRejected, m.ID, err)
	}
	if m.AccountID != "" {
		accountID = string(m.AccountID)
	}
	return domain.Movement{
		ID:        string(m.ID),
		AccountID: accountID,
		Timestamp: time.Time(m.Timestamp),
		Kind:      kind,
		Amount:    m.Amount,
		// The stored balance is recomputed by the ledger; keep it only as a hint.
		RunningBalance: m.Balance,
	}, nil
}

type createMovementRequest struct {
	Amount      json.Number `json:"amount"`
	Description string      `json:"description"`
	Balance     json.Number `json:"balance"`
	Timestamp   string      `json:"timestamp"`
}

func newCreateMovementRequest(m domain.Movement) createMovementRequest {
	return createMovementRequest{
		Amount:      json.Number(m.Amount.StringFixed(domain.AmountScale)),
		Description: m.Kind.String(),
		Balance:     json.Number(m.RunningBalance.StringFixed(domain.AmountScale)),
		Timestamp:   m.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}
}

type createAccountRequest struct {
	ID                    any              `json:"id"`
	Description           string           `json:"description"`
	Balance               json.Number      `json:"balance"`
	BeginBalance          json.Number      `json:"beginBalance"`
	BeginBalanceTimestamp string           `json:"beginBalanceTimestamp"`
	CreditLine            json.Number      `json:"creditLine"`
	Type                  string           `json:"type"`
	Customers             []map[string]any `json:"customers"`
}

// wireIDValue sends numeric identifiers as JSON numbers, as the service stores them.
func wireIDValue(id string) any {
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		return n
	}
	return id
}

func newCreateAccountRequest(a *domain.Account) createAccountRequest {
	return createAccountRequest{
		ID:                    wireIDValue(a.ID),
		Description:           a.Description,
		Balance:               json.Number(a.CurrentBalance.StringFixed(domain.AmountScale)),
		BeginBalance:          json.Number(a.OpeningBalance.StringFixed(domain.AmountScale)),
		BeginBalanceTimestamp: a.OpeningBalanceAt.UTC().Format(time.RFC3339),
		CreditLine:            json.Number(a.CreditLine.StringFixed(domain.AmountScale)),
		Type:                  string(a.Type()),
		Customers:             []map[string]any{{"id": wireIDValue(a.CustomerID)}},
	}
}
