package rate

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	ledger "go-exchange-ledger"
)

func seeded(t *testing.T) *Store {
	t.Helper()
	s := New()
	now := time.Now()
	for code, value := range map[ledger.Currency]string{
		"USD": "1",
		"EUR": "1.05",
		"GBP": "1.27",
	} {
		_, err := s.Add(code, decimal.RequireFromString(value), now)
		assert.NoError(t, err)
	}
	return s
}

func TestStore_Add_RejectsNonPositive(t *testing.T) {
	s := New()
	for _, value := range []string{"0", "-1", "-0.0001"} {
		_, err := s.Add("USD", decimal.RequireFromString(value), time.Now())
		var ve *ledger.ValidationError
		assert.True(t, errors.As(err, &ve), "value %s", value)
	}
	assert.False(t, s.Exists("USD"))
}

func TestStore_Latest_MaxTimestampWins(t *testing.T) {
	s := New()
	base := time.Now()
	_, _ = s.Add("USD", decimal.RequireFromString("1.00"), base)
	_, _ = s.Add("USD", decimal.RequireFromString("1.10"), base.Add(2*time.Hour))
	_, _ = s.Add("USD", decimal.RequireFromString("1.05"), base.Add(time.Hour))

	latest, err := s.Latest("usd")
	assert.NoError(t, err)
	assert.True(t, latest.Value.Equal(decimal.RequireFromString("1.10")))

	// history stays append-only
	assert.Len(t, s.History("USD"), 3)
}

func TestStore_Latest_TieBrokenByInsertionOrder(t *testing.T) {
	s := New()
	ts := time.Now()
	_, _ = s.Add("EUR", decimal.RequireFromString("1.04"), ts)
	_, _ = s.Add("EUR", decimal.RequireFromString("1.06"), ts)

	latest, err := s.Latest("EUR")
	assert.NoError(t, err)
	assert.True(t, latest.Value.Equal(decimal.RequireFromString("1.06")))
}

func TestStore_Latest_Missing(t *testing.T) {
	s := New()
	_, err := s.Latest("JPY")
	var nf *ledger.NotFoundError
	assert.True(t, errors.As(err, &nf))
}

func TestStore_Cross(t *testing.T) {
	s := seeded(t)

	tests := []struct {
		name    string
		target  ledger.Currency
		source  ledger.Currency
		want    string
		wantErr bool
	}{
		{"same code", "USD", "USD", "1", false},
		{"same code case-insensitive", "eur", "EUR", "1", false},
		{"eur vs usd", "EUR", "USD", "1.05", false},
		{"usd vs eur, rounded to 34 places", "USD", "EUR", "0.9523809523809523809523809523809524", false},
		{"gbp vs eur", "GBP", "EUR", "1.2095238095238095238095238095238095", false},
		{"unknown target", "JPY", "USD", "", true},
		{"unknown source", "USD", "JPY", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Cross(tt.target, tt.source)
			if tt.wantErr {
				var nf *ledger.NotFoundError
				assert.True(t, errors.As(err, &nf))
				return
			}
			assert.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)),
				"got %s want %s", got, tt.want)
		})
	}
}

func TestStore_Cross_EqualCodesNeedNoHistory(t *testing.T) {
	s := New()
	got, err := s.Cross("XXX", "xxx")
	assert.NoError(t, err)
	assert.True(t, got.Equal(decimal.NewFromInt(1)))
}

func TestStore_Currencies(t *testing.T) {
	s := seeded(t)
	assert.ElementsMatch(t, []ledger.Currency{"USD", "EUR", "GBP"}, s.Currencies())
}
