package account

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	ledger "go-exchange-ledger"
)

func known(codes ...ledger.Currency) CurrencyExistsFunc {
	set := map[ledger.Currency]bool{}
	for _, c := range codes {
		set[c] = true
	}
	return func(c ledger.Currency) bool { return set[c] }
}

func TestStore_Create(t *testing.T) {
	s := New(known("USD", "EUR"))

	a, err := s.Create("alice@example.com", "usd", "salary")
	assert.NoError(t, err)
	assert.Equal(t, int64(1), a.ID)
	assert.Equal(t, ledger.Currency("USD"), a.Currency)
	assert.Equal(t, ledger.StatusActive, a.Status)
	assert.True(t, a.Balance.IsZero())
	assert.False(t, a.CreatedAt.IsZero())

	b, err := s.Create("alice@example.com", "EUR", "travel")
	assert.NoError(t, err)
	assert.Equal(t, int64(2), b.ID, "ids are monotonic")
}

func TestStore_Create_UnknownCurrency(t *testing.T) {
	s := New(known("USD"))
	_, err := s.Create("alice@example.com", "XXX", "nope")
	var ve *ledger.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestStore_CreateSystem(t *testing.T) {
	s := New(known("USD"))
	a, err := s.CreateSystem("system@exchange.local", "USD", "commissions")
	assert.NoError(t, err)
	assert.Equal(t, ledger.StatusSystem, a.Status)
}

func TestStore_ByOwner(t *testing.T) {
	s := New(known("USD", "EUR"))
	_, _ = s.Create("alice@example.com", "USD", "a")
	_, _ = s.Create("bob@example.com", "USD", "b")
	_, _ = s.Create("alice@example.com", "EUR", "c")

	accts := s.ByOwner("alice@example.com")
	assert.Len(t, accts, 2)
	assert.Equal(t, "a", accts[0].Title)
	assert.Equal(t, "c", accts[1].Title)

	assert.Empty(t, s.ByOwner("nobody@example.com"))

	usd := s.ByOwnerAndCurrency("alice@example.com", "usd")
	assert.Len(t, usd, 1)
	assert.Equal(t, "a", usd[0].Title)
}

func TestStore_ApplyDelta(t *testing.T) {
	s := New(known("USD"))
	a, _ := s.Create("alice@example.com", "USD", "")

	got, err := s.ApplyDelta(a.ID, decimal.RequireFromString("10.50"))
	assert.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.RequireFromString("10.50")))

	got, err = s.ApplyDelta(a.ID, decimal.RequireFromString("-4.50"))
	assert.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.RequireFromString("6")))
}

func TestStore_ApplyDelta_NeverNegative(t *testing.T) {
	s := New(known("USD"))
	a, _ := s.Create("alice@example.com", "USD", "")
	_, _ = s.ApplyDelta(a.ID, decimal.NewFromInt(5))

	_, err := s.ApplyDelta(a.ID, decimal.NewFromInt(-6))
	var conflict *ledger.StateConflictError
	assert.True(t, errors.As(err, &conflict))

	// the failed delta must not leak into the balance
	cur, _ := s.ByID(a.ID)
	assert.True(t, cur.Balance.Equal(decimal.NewFromInt(5)))
}

func TestStore_ApplyDelta_Missing(t *testing.T) {
	s := New(known("USD"))
	_, err := s.ApplyDelta(42, decimal.NewFromInt(1))
	var nf *ledger.NotFoundError
	assert.True(t, errors.As(err, &nf))
}

func TestStore_Remove(t *testing.T) {
	s := New(known("USD"))
	a, _ := s.Create("alice@example.com", "USD", "")

	_, _ = s.ApplyDelta(a.ID, decimal.NewFromInt(1))
	var conflict *ledger.StateConflictError
	assert.True(t, errors.As(s.Remove(a.ID), &conflict), "funded account cannot be removed")

	_, _ = s.ApplyDelta(a.ID, decimal.NewFromInt(-1))
	assert.NoError(t, s.Remove(a.ID))

	_, err := s.ByID(a.ID)
	var nf *ledger.NotFoundError
	assert.True(t, errors.As(err, &nf))
	assert.Empty(t, s.ByOwner("alice@example.com"))
}

func TestStore_SnapshotsAreCopies(t *testing.T) {
	s := New(known("USD"))
	a, _ := s.Create("alice@example.com", "USD", "")

	snapshot, _ := s.ByID(a.ID)
	snapshot.Balance = decimal.NewFromInt(1000000)

	cur, _ := s.ByID(a.ID)
	assert.True(t, cur.Balance.IsZero(), "mutating a snapshot must not touch the store")
}
