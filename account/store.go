// Package account owns Account records: id assignment, owner and currency
// indexes, and the only code permitted to mutate balances.
package account

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	ledger "go-exchange-ledger"
)

// CurrencyExistsFunc reports whether a currency code is known to the rate
// history. Injected so the store does not depend on the rate package.
type CurrencyExistsFunc func(ledger.Currency) bool

// Store in-memory account store. All methods are concurrency safe and hand
// out value copies, never internal pointers.
type Store struct {
	mu       sync.RWMutex
	nextID   int64
	accounts map[int64]*ledger.Account
	byOwner  map[string][]int64

	currencyExists CurrencyExistsFunc
	now            func() time.Time
}

// New constructs an empty Store.
func New(currencyExists CurrencyExistsFunc) *Store {
	return &Store{
		accounts:       map[int64]*ledger.Account{},
		byOwner:        map[string][]int64{},
		currencyExists: currencyExists,
		now:            time.Now,
	}
}

// Create opens an ACTIVE account with zero balance and a fresh id.
func (s *Store) Create(ownerEmail string, currency ledger.Currency, title string) (ledger.Account, error) {
	return s.create(ownerEmail, currency, title, ledger.StatusActive)
}

// CreateSystem opens a SYSTEM account: a fee sink, never subject to fees
// itself.
func (s *Store) CreateSystem(ownerEmail string, currency ledger.Currency, title string) (ledger.Account, error) {
	return s.create(ownerEmail, currency, title, ledger.StatusSystem)
}

func (s *Store) create(ownerEmail string, currency ledger.Currency, title string, status ledger.AccountStatus) (ledger.Account, error) {
	if ownerEmail == "" {
		return ledger.Account{}, &ledger.ValidationError{Field: "ownerEmail", Reason: "required"}
	}
	currency = currency.Norm()
	if s.currencyExists != nil && !s.currencyExists(currency) {
		return ledger.Account{}, &ledger.ValidationError{Field: "currency", Reason: "unknown currency code: " + string(currency)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	a := &ledger.Account{
		ID:         atomic.AddInt64(&s.nextID, 1),
		OwnerEmail: ownerEmail,
		Currency:   currency,
		Balance:    decimal.Zero,
		Status:     status,
		Title:      title,
		CreatedAt:  s.now(),
	}
	s.accounts[a.ID] = a
	s.byOwner[ownerEmail] = append(s.byOwner[ownerEmail], a.ID)
	return *a, nil
}

// ByID returns a snapshot of the account.
func (s *Store) ByID(id int64) (ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return ledger.Account{}, &ledger.NotFoundError{Entity: "account", Key: id}
	}
	return *a, nil
}

// ByOwner returns all accounts of an owner, in creation order. Empty slice
// if none.
func (s *Store) ByOwner(ownerEmail string) []ledger.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byOwner[ownerEmail]
	out := make([]ledger.Account, 0, len(ids))
	for _, id := range ids {
		out = append(out, *s.accounts[id])
	}
	return out
}

// ByOwnerAndCurrency returns the owner's accounts held in the given currency.
func (s *Store) ByOwnerAndCurrency(ownerEmail string, currency ledger.Currency) []ledger.Account {
	currency = currency.Norm()
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []ledger.Account{}
	for _, id := range s.byOwner[ownerEmail] {
		if a := s.accounts[id]; a.Currency == currency {
			out = append(out, *a)
		}
	}
	return out
}

// ApplyDelta atomically adds delta (possibly negative) to the balance.
// The resulting balance must not go negative.
func (s *Store) ApplyDelta(id int64, delta decimal.Decimal) (ledger.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return ledger.Account{}, &ledger.NotFoundError{Entity: "account", Key: id}
	}
	next := a.Balance.Add(delta)
	if next.IsNegative() {
		return ledger.Account{}, &ledger.StateConflictError{Reason: "insufficient funds"}
	}
	a.Balance = next
	return *a, nil
}

// SetTitle updates the account title, the only mutable descriptive field.
func (s *Store) SetTitle(id int64, title string) (ledger.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return ledger.Account{}, &ledger.NotFoundError{Entity: "account", Key: id}
	}
	a.Title = title
	return *a, nil
}

// Remove deletes an account. Rejected while any funds remain.
func (s *Store) Remove(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return &ledger.NotFoundError{Entity: "account", Key: id}
	}
	if !a.Balance.IsZero() {
		return &ledger.StateConflictError{Reason: "cannot remove account with positive balance"}
	}
	delete(s.accounts, id)
	ids := s.byOwner[a.OwnerEmail]
	for i, v := range ids {
		if v == id {
			s.byOwner[a.OwnerEmail] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return nil
}
