package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-kit/log"
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

// newTestServer wires a real engine: the transport is thin enough that
// mocking the whole service interface would test less than this does.
func newTestServer(t *testing.T) (*Server, *user.Store) {
	t.Helper()
	rates := rate.New()
	accounts := account.New(rates.Exists)
	txLog := transaction.New()
	users := user.New()
	svc := engine.New(accounts, rates, txLog, users, engine.Config{
		FeeRate:     decimal.RequireFromString("0.02"),
		SystemOwner: "system@exchange.local",
	})

	now := time.Now()
	_, err := rates.Add("USD", decimal.NewFromInt(1), now)
	require.NoError(t, err)
	_, err = rates.Add("EUR", decimal.RequireFromString("1.05"), now)
	require.NoError(t, err)

	_, err = users.Register("admin@exchange.local", "admin4you1", ledger.RoleAdmin)
	require.NoError(t, err)
	_, err = users.Register("alice@example.com", "alice1234", ledger.RoleUser)
	require.NoError(t, err)

	ctx := context.Background()
	adminID, err := users.Identity("admin@exchange.local")
	require.NoError(t, err)
	_, err = svc.CreateSystemAccount(ctx, adminID, "USD", "commissions")
	require.NoError(t, err)

	return NewServer(svc, users), users
}

func TestServer_DepositFlow(t *testing.T) {
	server, _ := newTestServer(t)

	// create an account as alice
	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/api/accounts/create", strings.NewReader(`{"currency":"USD","title":"salary"}`))
	r.Header.Set(identityHeader, "alice@example.com")
	server.ServeHTTP(w, r)
	require.Equal(t, 200, w.Code, w.Body.String())

	var acct ledger.Account
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &acct))
	assert.Equal(t, "alice@example.com", acct.OwnerEmail)

	// deposit 100, expect the 2% fee withheld
	w = httptest.NewRecorder()
	r = httptest.NewRequest("POST", "/api/deposit", strings.NewReader(fmt.Sprintf(`{"accountId":%d,"amount":"100"}`, acct.ID)))
	r.Header.Set(identityHeader, "alice@example.com")
	server.ServeHTTP(w, r)
	require.Equal(t, 200, w.Code, w.Body.String())

	var tx ledger.Transaction
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tx))
	assert.Equal(t, ledger.TypeDeposit, tx.Type)
	assert.True(t, tx.Amount.Equal(decimal.NewFromInt(98)))
}

func TestServer_UnauthenticatedIs401(t *testing.T) {
	server, _ := newTestServer(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/api/accounts/create", strings.NewReader(`{"currency":"USD","title":"x"}`))
	server.ServeHTTP(w, r)

	assert.Equal(t, 401, w.Code)
}

func TestServer_CrossCourse(t *testing.T) {
	server, _ := newTestServer(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/api/rates/cross?target=EUR&source=USD", nil)
	server.ServeHTTP(w, r)

	require.Equal(t, 200, w.Code)
	var resp struct {
		Course decimal.Decimal `json:"course"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Course.Equal(decimal.RequireFromString("1.05")))
}

func TestServer_CrossCourseUnknownCurrency(t *testing.T) {
	server, _ := newTestServer(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/api/rates/cross?target=JPY&source=USD", nil)
	server.ServeHTTP(w, r)

	assert.Equal(t, 422, w.Code)
	assert.Contains(t, w.Body.String(), "no rate available")
}

func TestServer_RegisterValidation(t *testing.T) {
	server, _ := newTestServer(t)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"bad email", `{"email":"not-an-email","password":"good1234"}`, 400},
		{"weak password", `{"email":"new@example.com","password":"short"}`, 400},
		{"duplicate", `{"email":"alice@example.com","password":"good1234"}`, 409},
		{"ok", `{"email":"new@example.com","password":"good1234"}`, 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest("POST", "/api/users/register", strings.NewReader(tt.body))
			server.ServeHTTP(w, r)
			assert.Equal(t, tt.code, w.Code, w.Body.String())
		})
	}
}

func TestServer_Login(t *testing.T) {
	server, _ := newTestServer(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/api/users/login", strings.NewReader(`{"email":"alice@example.com","password":"alice1234"}`))
	server.ServeHTTP(w, r)
	require.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), `"role":"USER"`)

	w = httptest.NewRecorder()
	r = httptest.NewRequest("POST", "/api/users/login", strings.NewReader(`{"email":"alice@example.com","password":"wrong"}`))
	server.ServeHTTP(w, r)
	assert.Equal(t, 403, w.Code)
}

func TestWithRequestID(t *testing.T) {
	server, _ := newTestServer(t)
	handler := WithRequestID(log.NewNopLogger(), server)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/api/rates/cross?target=USD&source=USD", nil)
	handler.ServeHTTP(w, r)
	assert.NotEmpty(t, w.Header().Get(requestIDHeader), "generated when absent")

	w = httptest.NewRecorder()
	r = httptest.NewRequest("GET", "/api/rates/cross?target=USD&source=USD", nil)
	r.Header.Set(requestIDHeader, "req-123")
	handler.ServeHTTP(w, r)
	assert.Equal(t, "req-123", w.Header().Get(requestIDHeader), "incoming id is propagated")
}
