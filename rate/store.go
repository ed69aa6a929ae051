// Package rate owns the append-only currency-rate history and the cross-rate
// arithmetic. Rates are quoted against a common reference currency; a new
// rate never overwrites an old one.
package rate

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	ledger "go-exchange-ledger"
)

// crossPlaces decimal places kept when dividing two rates. The quotient is
// rounded half away from zero.
const crossPlaces = 34

// Store in-memory rate history, concurrency safe.
type Store struct {
	// histories are append-only and existing entries never mutate, so
	// readers only need the RLock to copy values out.
	mu      sync.RWMutex
	history map[ledger.Currency][]ledger.Rate
	seq     int64
}

// New constructs an empty Store.
func New() *Store {
	return &Store{history: map[ledger.Currency][]ledger.Rate{}}
}

// Add appends a new rate entry for the currency. Value must be strictly
// positive.
func (s *Store) Add(currency ledger.Currency, value decimal.Decimal, timestamp time.Time) (ledger.Rate, error) {
	if currency == "" {
		return ledger.Rate{}, &ledger.ValidationError{Field: "currency", Reason: "required"}
	}
	if !value.IsPositive() {
		return ledger.Rate{}, &ledger.ValidationError{Field: "value", Reason: "rate must be > 0"}
	}
	currency = currency.Norm()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	r := ledger.Rate{
		Currency:  currency,
		Value:     value,
		Timestamp: timestamp,
		Seq:       s.seq,
	}
	s.history[currency] = append(s.history[currency], r)
	return r, nil
}

// Latest returns the entry with the maximum timestamp; equal timestamps are
// broken by the most recently inserted entry.
func (s *Store) Latest(currency ledger.Currency) (ledger.Rate, error) {
	currency = currency.Norm()
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.history[currency]
	if len(entries) == 0 {
		return ledger.Rate{}, &ledger.NotFoundError{Entity: "rate", Key: currency}
	}
	latest := entries[0]
	for _, r := range entries[1:] {
		if r.Timestamp.After(latest.Timestamp) ||
			(r.Timestamp.Equal(latest.Timestamp) && r.Seq > latest.Seq) {
			latest = r
		}
	}
	return latest, nil
}

// Cross returns the conversion factor from source to target:
//
//	Cross(target, source) = Latest(target).Value / Latest(source).Value
//
// rounded to 34 decimal places, half away from zero. Equal codes compare
// case-insensitively and return exactly 1 without touching the history.
func (s *Store) Cross(target, source ledger.Currency) (decimal.Decimal, error) {
	target, source = target.Norm(), source.Norm()
	if target == source {
		return decimal.NewFromInt(1), nil
	}
	targetRate, err := s.Latest(target)
	if err != nil {
		return decimal.Decimal{}, err
	}
	sourceRate, err := s.Latest(source)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return targetRate.Value.DivRound(sourceRate.Value, crossPlaces), nil
}

// Exists reports whether any rate has been recorded for the currency.
func (s *Store) Exists(currency ledger.Currency) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history[currency.Norm()]) > 0
}

// History returns the full recorded history for a currency in insertion
// order. Empty slice if none.
func (s *Store) History(currency ledger.Currency) []ledger.Rate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.history[currency.Norm()]
	out := make([]ledger.Rate, len(entries))
	copy(out, entries)
	return out
}

// Currencies returns every currency with at least one recorded rate.
func (s *Store) Currencies() []ledger.Currency {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Currency, 0, len(s.history))
	for c := range s.history {
		out = append(out, c)
	}
	return out
}
