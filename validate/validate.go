// Package validate holds the boundary predicates for user-supplied syntax.
// They run before requests reach the engine, never inside ledger logic.
package validate

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	v = validator.New()

	currencyCodeRe = regexp.MustCompile(`^[A-Za-z]{3}$`)
	passwordLetter = regexp.MustCompile(`[A-Za-z]`)
	passwordDigit  = regexp.MustCompile(`[0-9]`)
)

// Email reports whether s is a syntactically valid email address.
func Email(s string) bool {
	return v.Var(s, "required,email") == nil
}

// Password reports whether s satisfies the password policy: at least 8
// characters containing at least one letter and one digit.
func Password(s string) bool {
	return len(s) >= 8 && passwordLetter.MatchString(s) && passwordDigit.MatchString(s)
}

// CurrencyCode reports whether s looks like a three-letter currency code.
// Whether the code is actually traded is the rate store's call.
func CurrencyCode(s string) bool {
	return currencyCodeRe.MatchString(s)
}
