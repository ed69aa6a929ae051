package seed

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ledger "go-exchange-ledger"
	"go-exchange-ledger/account"
	"go-exchange-ledger/engine"
	"go-exchange-ledger/rate"
	"go-exchange-ledger/transaction"
	"go-exchange-ledger/user"
)

func TestDemo(t *testing.T) {
	rates := rate.New()
	accounts := account.New(rates.Exists)
	users := user.New()
	svc := engine.New(accounts, rates, transaction.New(), users, engine.Config{
		FeeRate:     decimal.RequireFromString("0.02"),
		SystemOwner: "system@exchange.local",
	})

	require.NoError(t, Demo(context.Background(), users, rates, svc))

	assert.Len(t, users.Blocked(), 1)
	assert.NotEmpty(t, users.ByRole(ledger.RoleAdmin))

	// every seeded currency has a rate and a commission sink
	for currency := range demoRates {
		assert.True(t, rates.Exists(currency), string(currency))
		sinks := accounts.ByOwnerAndCurrency("system@exchange.local", currency)
		require.Len(t, sinks, 1, string(currency))
		assert.Equal(t, ledger.StatusSystem, sinks[0].Status)
	}

	// seeded user accounts start empty and are immediately usable
	alice, err := users.Identity("alice@example.com")
	require.NoError(t, err)
	accts, err := svc.AccountsByOwner(context.Background(), alice)
	require.NoError(t, err)
	require.NotEmpty(t, accts)
	_, err = svc.Deposit(context.Background(), alice, accts[0].ID, decimal.NewFromInt(10))
	assert.NoError(t, err)

	// seeding twice conflicts on registration rather than duplicating data
	assert.Error(t, Demo(context.Background(), users, rates, svc))
}
