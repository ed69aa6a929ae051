package user

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	ledger "go-exchange-ledger"
)

func TestStore_Register(t *testing.T) {
	s := New()

	u, err := s.Register("alice@example.com", "alice1234", "")
	assert.NoError(t, err)
	assert.Equal(t, ledger.RoleUser, u.Role, "default role is USER")

	admin, err := s.Register("admin@exchange.local", "admin4you1", ledger.RoleAdmin)
	assert.NoError(t, err)
	assert.Equal(t, ledger.RoleAdmin, admin.Role)
}

func TestStore_Register_DuplicateConflicts(t *testing.T) {
	s := New()
	_, _ = s.Register("alice@example.com", "alice1234", "")

	_, err := s.Register("alice@example.com", "other9999", "")
	var conflict *ledger.StateConflictError
	assert.True(t, errors.As(err, &conflict))
}

func TestStore_Authenticate(t *testing.T) {
	s := New()
	_, _ = s.Register("alice@example.com", "alice1234", "")

	id, err := s.Authenticate("alice@example.com", "alice1234")
	assert.NoError(t, err)
	assert.Equal(t, ledger.Identity{Email: "alice@example.com", Role: ledger.RoleUser}, id)

	var authz *ledger.AuthorizationError
	_, err = s.Authenticate("alice@example.com", "wrong")
	assert.True(t, errors.As(err, &authz))
	_, err = s.Authenticate("nobody@example.com", "alice1234")
	assert.True(t, errors.As(err, &authz), "unknown email fails the same way as a bad password")
}

func TestStore_Roles(t *testing.T) {
	s := New()
	_, _ = s.Register("alice@example.com", "alice1234", "")
	_, _ = s.Register("bob@example.com", "bob123456", "")
	_, _ = s.Register("admin@exchange.local", "admin4you1", ledger.RoleAdmin)

	_, err := s.SetRole("bob@example.com", ledger.RoleBlocked)
	assert.NoError(t, err)

	assert.Len(t, s.All(), 3)
	assert.Len(t, s.ByRole(ledger.RoleUser), 1)
	blocked := s.Blocked()
	assert.Len(t, blocked, 1)
	assert.Equal(t, "bob@example.com", blocked[0].Email)

	id, err := s.Identity("bob@example.com")
	assert.NoError(t, err)
	assert.Equal(t, ledger.RoleBlocked, id.Role)

	var nf *ledger.NotFoundError
	_, err = s.SetRole("nobody@example.com", ledger.RoleBlocked)
	assert.True(t, errors.As(err, &nf))
}
