package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmail(t *testing.T) {
	valid := []string{"alice@example.com", "a.b+c@sub.domain.org"}
	invalid := []string{"", "alice", "alice@", "@example.com", "a b@example.com"}

	for _, s := range valid {
		assert.True(t, Email(s), s)
	}
	for _, s := range invalid {
		assert.False(t, Email(s), s)
	}
}

func TestPassword(t *testing.T) {
	valid := []string{"alice1234", "p4ssword", "00000000a"}
	invalid := []string{"", "short1", "onlyletters", "12345678", "        1"}

	for _, s := range valid {
		assert.True(t, Password(s), s)
	}
	for _, s := range invalid {
		assert.False(t, Password(s), s)
	}
}

func TestCurrencyCode(t *testing.T) {
	valid := []string{"USD", "eur", "Gbp"}
	invalid := []string{"", "US", "USDT", "U$D", "123"}

	for _, s := range valid {
		assert.True(t, CurrencyCode(s), s)
	}
	for _, s := range invalid {
		assert.False(t, CurrencyCode(s), s)
	}
}
