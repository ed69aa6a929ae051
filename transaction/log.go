// Package transaction owns the append-only ledger of completed operations.
// Entries are immutable once recorded; everything else is a pure filter.
package transaction

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	ledger "go-exchange-ledger"
)

// Entry the input to Record. Course and Comment are optional.
type Entry struct {
	Type          ledger.TransactionType
	UserEmailFrom string
	AccountIDFrom int64
	CurrencyFrom  ledger.Currency
	UserEmailTo   string
	AccountIDTo   int64
	CurrencyTo    ledger.Currency
	Amount        decimal.Decimal
	Course        decimal.NullDecimal
	Comment       string
}

// Log in-memory append-only transaction log, concurrency safe.
type Log struct {
	mu      sync.RWMutex
	nextID  int64
	entries []ledger.Transaction
	byID    map[int64]int

	now func() time.Time
}

// New constructs an empty Log.
func New() *Log {
	return &Log{
		byID: map[int64]int{},
		now:  time.Now,
	}
}

// Record appends a transaction with the next id and the current timestamp.
func (l *Log) Record(e Entry) ledger.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	tx := ledger.Transaction{
		ID:            l.nextID,
		Timestamp:     l.now(),
		Type:          e.Type,
		UserEmailFrom: e.UserEmailFrom,
		AccountIDFrom: e.AccountIDFrom,
		CurrencyFrom:  e.CurrencyFrom,
		UserEmailTo:   e.UserEmailTo,
		AccountIDTo:   e.AccountIDTo,
		CurrencyTo:    e.CurrencyTo,
		Amount:        e.Amount,
		Course:        e.Course,
		Comment:       e.Comment,
	}
	l.byID[tx.ID] = len(l.entries)
	l.entries = append(l.entries, tx)
	return tx
}

// ByID returns the transaction with the given id.
func (l *Log) ByID(id int64) (ledger.Transaction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	idx, ok := l.byID[id]
	if !ok {
		return ledger.Transaction{}, &ledger.NotFoundError{Entity: "transaction", Key: id}
	}
	return l.entries[idx], nil
}

// All returns every transaction in creation order.
func (l *Log) All() []ledger.Transaction {
	return l.filter(func(ledger.Transaction) bool { return true })
}

// ByAccount returns transactions where the account appears on either side.
func (l *Log) ByAccount(accountID int64) []ledger.Transaction {
	return l.filter(func(tx ledger.Transaction) bool {
		return tx.AccountIDFrom == accountID || tx.AccountIDTo == accountID
	})
}

// ByDate returns transactions recorded on the given calendar day, in the
// timestamp's location.
func (l *Log) ByDate(date time.Time) []ledger.Transaction {
	y, m, d := date.Date()
	return l.filter(func(tx ledger.Transaction) bool {
		ty, tm, td := tx.Timestamp.Date()
		return ty == y && tm == m && td == d
	})
}

// Filter optional narrowing criteria for the ByUser queries. A nil field
// means "any".
type Filter struct {
	AccountID *int64
	Date      *time.Time
}

// ByUserFrom returns transactions sent by the user, optionally narrowed to
// an account and/or calendar day.
func (l *Log) ByUserFrom(email string, f Filter) []ledger.Transaction {
	return l.filter(func(tx ledger.Transaction) bool {
		return tx.UserEmailFrom == email && f.match(tx.AccountIDFrom, tx.Timestamp)
	})
}

// ByUserTo returns transactions received by the user, optionally narrowed to
// an account and/or calendar day.
func (l *Log) ByUserTo(email string, f Filter) []ledger.Transaction {
	return l.filter(func(tx ledger.Transaction) bool {
		return tx.UserEmailTo == email && f.match(tx.AccountIDTo, tx.Timestamp)
	})
}

func (f Filter) match(accountID int64, ts time.Time) bool {
	if f.AccountID != nil && *f.AccountID != accountID {
		return false
	}
	if f.Date != nil {
		y, m, d := f.Date.Date()
		ty, tm, td := ts.Date()
		if ty != y || tm != m || td != d {
			return false
		}
	}
	return true
}

func (l *Log) filter(keep func(ledger.Transaction) bool) []ledger.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := []ledger.Transaction{}
	for _, tx := range l.entries {
		if keep(tx) {
			out = append(out, tx)
		}
	}
	return out
}
