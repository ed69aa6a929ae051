// Package user owns the registry of users and their roles. The engine only
// ever sees a ledger.Identity resolved from here by the caller.
package user

import (
	"sync"

	ledger "go-exchange-ledger"
)

// Store in-memory user registry, concurrency safe.
type Store struct {
	mu    sync.RWMutex
	users map[string]*ledger.User
	order []string
}

// New constructs an empty Store.
func New() *Store {
	return &Store{users: map[string]*ledger.User{}}
}

// Register adds a user. Registering an email twice is a conflict, never a
// silent false.
func (s *Store) Register(email, password string, role ledger.Role) (ledger.User, error) {
	if email == "" {
		return ledger.User{}, &ledger.ValidationError{Field: "email", Reason: "required"}
	}
	if password == "" {
		return ledger.User{}, &ledger.ValidationError{Field: "password", Reason: "required"}
	}
	if role == "" {
		role = ledger.RoleUser
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[email]; ok {
		return ledger.User{}, &ledger.StateConflictError{Reason: "user already registered: " + email}
	}
	u := &ledger.User{Email: email, Password: password, Role: role}
	s.users[email] = u
	s.order = append(s.order, email)
	return *u, nil
}

// Authenticate checks credentials and returns the acting identity. Wrong
// email and wrong password are indistinguishable to the caller.
func (s *Store) Authenticate(email, password string) (ledger.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[email]
	if !ok || u.Password != password {
		return ledger.Identity{}, &ledger.AuthorizationError{Reason: "invalid email or password"}
	}
	return ledger.Identity{Email: u.Email, Role: u.Role}, nil
}

// ByEmail returns the user registered under email.
func (s *Store) ByEmail(email string) (ledger.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[email]
	if !ok {
		return ledger.User{}, &ledger.NotFoundError{Entity: "user", Key: email}
	}
	return *u, nil
}

// Identity returns the current acting identity for a registered email.
func (s *Store) Identity(email string) (ledger.Identity, error) {
	u, err := s.ByEmail(email)
	if err != nil {
		return ledger.Identity{}, err
	}
	return ledger.Identity{Email: u.Email, Role: u.Role}, nil
}

// All returns every user in registration order.
func (s *Store) All() []ledger.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.User, 0, len(s.order))
	for _, email := range s.order {
		out = append(out, *s.users[email])
	}
	return out
}

// ByRole returns users holding the given role, in registration order.
func (s *Store) ByRole(role ledger.Role) []ledger.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []ledger.User{}
	for _, email := range s.order {
		if u := s.users[email]; u.Role == role {
			out = append(out, *u)
		}
	}
	return out
}

// Blocked returns all blocked users.
func (s *Store) Blocked() []ledger.User {
	return s.ByRole(ledger.RoleBlocked)
}

// SetRole changes a user's role.
func (s *Store) SetRole(email string, role ledger.Role) (ledger.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[email]
	if !ok {
		return ledger.User{}, &ledger.NotFoundError{Entity: "user", Key: email}
	}
	u.Role = role
	return *u, nil
}
