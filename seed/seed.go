// Package seed loads demo data so a fresh server is usable immediately:
// admins, regular users, one blocked user, reference rates, and the
// per-currency system accounts that collect commissions.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	ledger "go-exchange-ledger"
	"go-exchange-ledger/engine"
	"go-exchange-ledger/rate"
	"go-exchange-ledger/user"
)

type demoUser struct {
	email    string
	password string
	role     ledger.Role
}

var demoUsers = []demoUser{
	{"admin@exchange.local", "admin4you1", ledger.RoleAdmin},
	{"auditor@exchange.local", "audit4you1", ledger.RoleAdmin},
	{"alice@example.com", "alice1234", ledger.RoleUser},
	{"bob@example.com", "bob123456", ledger.RoleUser},
	{"carol@example.com", "carol1234", ledger.RoleUser},
	{"dave@example.com", "dave12345", ledger.RoleUser},
	{"erin@example.com", "erin12345", ledger.RoleUser},
	{"mallory@example.com", "mallory12", ledger.RoleBlocked},
}

// Rates against USD as the reference currency.
var demoRates = map[ledger.Currency]string{
	"USD": "1",
	"EUR": "1.05",
	"GBP": "1.27",
	"CHF": "1.12",
	"PLN": "0.25",
}

// Demo populates the stores. The engine is driven through its public
// surface so seeding exercises the same paths as live traffic; only rates
// and system accounts go in as the admin identity.
func Demo(ctx context.Context, users *user.Store, rates rate.Service, svc engine.Service) error {
	for _, du := range demoUsers {
		if _, err := users.Register(du.email, du.password, du.role); err != nil {
			return fmt.Errorf("seed user %s: %w", du.email, err)
		}
	}

	admin := ledger.Identity{Email: demoUsers[0].email, Role: ledger.RoleAdmin}
	now := time.Now()
	for currency, value := range demoRates {
		if _, err := rates.Add(currency, decimal.RequireFromString(value), now); err != nil {
			return fmt.Errorf("seed rate %s: %w", currency, err)
		}
		if _, err := svc.CreateSystemAccount(ctx, admin, currency, "commissions "+string(currency)); err != nil {
			return fmt.Errorf("seed system account %s: %w", currency, err)
		}
	}

	accounts := []struct {
		email    string
		currency ledger.Currency
		title    string
	}{
		{"alice@example.com", "USD", "salary"},
		{"alice@example.com", "EUR", "travel"},
		{"alice@example.com", "GBP", "savings"},
		{"bob@example.com", "USD", "main"},
		{"bob@example.com", "PLN", "side"},
		{"carol@example.com", "EUR", "main"},
		{"carol@example.com", "CHF", "savings"},
	}
	for _, a := range accounts {
		owner := ledger.Identity{Email: a.email, Role: ledger.RoleUser}
		if _, err := svc.CreateAccount(ctx, owner, a.currency, a.title); err != nil {
			return fmt.Errorf("seed account %s/%s: %w", a.email, a.currency, err)
		}
	}
	return nil
}
