package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Currency a currency code, e.g. "USD"
type Currency string

// Norm returns the canonical upper-case form of the code.
func (c Currency) Norm() Currency {
	out := make([]byte, len(c))
	for i := 0; i < len(c); i++ {
		b := c[i]
		if 'a' <= b && b <= 'z' {
			b -= 'a' - 'A'
		}
		out[i] = b
	}
	return Currency(out)
}

// AccountStatus lifecycle state of an account
type AccountStatus string

const (
	StatusActive  AccountStatus = "ACTIVE"
	StatusSystem  AccountStatus = "SYSTEM"
	StatusBlocked AccountStatus = "BLOCKED"
	StatusClosed  AccountStatus = "CLOSED"
)

// Account a single-currency account. Balance is never negative.
type Account struct {
	ID         int64           `json:"id"`
	OwnerEmail string          `json:"ownerEmail"`
	Currency   Currency        `json:"currency"`
	Balance    decimal.Decimal `json:"balance"`
	Status     AccountStatus   `json:"status"`
	Title      string          `json:"title"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// Rate one entry of a currency's append-only rate history, quoted against
// the common reference currency. Value is strictly positive.
type Rate struct {
	Currency  Currency        `json:"currency"`
	Value     decimal.Decimal `json:"value"`
	Timestamp time.Time       `json:"timestamp"`

	// Seq insertion order within the history, breaks equal-timestamp ties.
	Seq int64 `json:"-"`
}

// TransactionType kind of ledger movement
type TransactionType string

const (
	TypeDeposit  TransactionType = "DEPOSIT"
	TypeWithdraw TransactionType = "WITHDRAW"
	TypeTransfer TransactionType = "TRANSFER"
)

// Transaction an immutable ledger entry. Amount is the net amount actually
// moved; Course is set only for TRANSFER entries.
type Transaction struct {
	ID            int64               `json:"id"`
	Timestamp     time.Time           `json:"timestamp"`
	Type          TransactionType     `json:"type"`
	UserEmailFrom string              `json:"userEmailFrom"`
	AccountIDFrom int64               `json:"accountIdFrom"`
	CurrencyFrom  Currency            `json:"currencyFrom"`
	UserEmailTo   string              `json:"userEmailTo"`
	AccountIDTo   int64               `json:"accountIdTo"`
	CurrencyTo    Currency            `json:"currencyTo"`
	Amount        decimal.Decimal     `json:"amount"`
	Course        decimal.NullDecimal `json:"course,omitempty"`
	Comment       string              `json:"comment,omitempty"`
}

// Role of a registered user
type Role string

const (
	RoleUser    Role = "USER"
	RoleAdmin   Role = "ADMIN"
	RoleBlocked Role = "BLOCKED"
)

// User a registered user of the exchange
type User struct {
	Email    string `json:"email"`
	Password string `json:"-"`
	Role     Role   `json:"role"`
}

// Identity the acting identity supplied by the caller on every engine call.
// The engine never stores sessions; a zero Identity means unauthenticated.
type Identity struct {
	Email string
	Role  Role
}

// IsZero reports whether no identity was supplied.
func (id Identity) IsZero() bool {
	return id.Email == ""
}
