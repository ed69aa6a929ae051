// Package engine orchestrates every balance-mutating operation of the
// exchange: deposits, withdrawals, cross-currency exchanges, commission
// routing, and account and user lifecycle. It is the only package with
// business rules; the stores it drives are leaves.
package engine

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	ledger "go-exchange-ledger"
	"go-exchange-ledger/account"
	"go-exchange-ledger/rate"
	"go-exchange-ledger/transaction"
	"go-exchange-ledger/user"
)

// Service the public surface of the ledger engine. Every operation resolves
// the acting identity passed by the caller; the engine never stores sessions.
type Service interface {
	RegisterUser(ctx context.Context, email, password string) (ledger.User, error)

	CreateAccount(ctx context.Context, id ledger.Identity, currency ledger.Currency, title string) (ledger.Account, error)
	CreateSystemAccount(ctx context.Context, id ledger.Identity, currency ledger.Currency, title string) (ledger.Account, error)
	AccountByID(ctx context.Context, id ledger.Identity, accountID int64) (ledger.Account, error)
	AccountsByOwner(ctx context.Context, id ledger.Identity) ([]ledger.Account, error)
	AccountsByCurrency(ctx context.Context, id ledger.Identity, currency ledger.Currency) ([]ledger.Account, error)
	RemoveAccount(ctx context.Context, id ledger.Identity, accountID int64) error

	Deposit(ctx context.Context, id ledger.Identity, accountID int64, amount decimal.Decimal) (ledger.Transaction, error)
	Withdraw(ctx context.Context, id ledger.Identity, accountID int64, amount decimal.Decimal) (ledger.Transaction, error)
	Exchange(ctx context.Context, id ledger.Identity, fromID, toID int64, amount decimal.Decimal) (ledger.Transaction, error)

	CrossCourse(ctx context.Context, target, source ledger.Currency) (decimal.Decimal, error)
	LatestRate(ctx context.Context, currency ledger.Currency) (ledger.Rate, error)
	RateHistory(ctx context.Context, currency ledger.Currency) ([]ledger.Rate, error)
	AddRate(ctx context.Context, id ledger.Identity, currency ledger.Currency, value decimal.Decimal, timestamp time.Time) (ledger.Rate, error)

	TransactionByID(ctx context.Context, id ledger.Identity, txID int64) (ledger.Transaction, error)
	TransactionsByAccount(ctx context.Context, id ledger.Identity, accountID int64) ([]ledger.Transaction, error)
	TransactionsByUserFrom(ctx context.Context, id ledger.Identity, email string, f transaction.Filter) ([]ledger.Transaction, error)
	TransactionsByUserTo(ctx context.Context, id ledger.Identity, email string, f transaction.Filter) ([]ledger.Transaction, error)

	BlockUser(ctx context.Context, id ledger.Identity, email string) error
	UnblockUser(ctx context.Context, id ledger.Identity, email string) error
}

// Config engine policy knobs.
type Config struct {
	// FeeRate fraction of each operation withheld as commission. Zero
	// disables commissions entirely.
	FeeRate decimal.Decimal

	// SystemOwner email owning the per-currency SYSTEM accounts that
	// accumulate commissions.
	SystemOwner string
}

type service struct {
	accounts *account.Store
	rates    rate.Service
	log      *transaction.Log
	users    *user.Store
	cfg      Config

	// locks serializes operations per account id. Balance mutation(s) and
	// the resulting log append form one atomic unit under these locks;
	// operations on disjoint accounts run in parallel.
	locks accountLocks
}

// New constructs a Service over the given stores.
func New(accounts *account.Store, rates rate.Service, log *transaction.Log, users *user.Store, cfg Config) Service {
	return &service{
		accounts: accounts,
		rates:    rates,
		log:      log,
		users:    users,
		cfg:      cfg,
		locks:    accountLocks{held: map[int64]*sync.Mutex{}},
	}
}

// RegisterUser adds a USER-role user. Duplicate emails conflict.
func (s *service) RegisterUser(_ context.Context, email, password string) (ledger.User, error) {
	return s.users.Register(email, password, ledger.RoleUser)
}

// CreateAccount opens an account owned by the acting identity.
func (s *service) CreateAccount(_ context.Context, id ledger.Identity, currency ledger.Currency, title string) (ledger.Account, error) {
	if err := s.authenticated(id); err != nil {
		return ledger.Account{}, err
	}
	return s.accounts.Create(id.Email, currency, title)
}

// CreateSystemAccount opens a commission sink for the configured system
// owner in the given currency. Admin only.
func (s *service) CreateSystemAccount(_ context.Context, id ledger.Identity, currency ledger.Currency, title string) (ledger.Account, error) {
	if err := s.requireAdmin(id); err != nil {
		return ledger.Account{}, err
	}
	return s.accounts.CreateSystem(s.cfg.SystemOwner, currency, title)
}

// AccountByID returns an account visible to the identity: its own, or any
// account for an admin.
func (s *service) AccountByID(_ context.Context, id ledger.Identity, accountID int64) (ledger.Account, error) {
	if err := s.authenticated(id); err != nil {
		return ledger.Account{}, err
	}
	a, err := s.accounts.ByID(accountID)
	if err != nil {
		return ledger.Account{}, err
	}
	if a.OwnerEmail != id.Email && id.Role != ledger.RoleAdmin {
		return ledger.Account{}, &ledger.AuthorizationError{Reason: "account does not belong to the acting user"}
	}
	return a, nil
}

// AccountsByOwner lists the acting identity's accounts.
func (s *service) AccountsByOwner(_ context.Context, id ledger.Identity) ([]ledger.Account, error) {
	if err := s.authenticated(id); err != nil {
		return nil, err
	}
	return s.accounts.ByOwner(id.Email), nil
}

// AccountsByCurrency lists the acting identity's accounts in one currency.
func (s *service) AccountsByCurrency(_ context.Context, id ledger.Identity, currency ledger.Currency) ([]ledger.Account, error) {
	if err := s.authenticated(id); err != nil {
		return nil, err
	}
	return s.accounts.ByOwnerAndCurrency(id.Email, currency), nil
}

// RemoveAccount deletes an owned account. Accounts still holding funds are
// rejected with a conflict and left unchanged.
func (s *service) RemoveAccount(_ context.Context, id ledger.Identity, accountID int64) error {
	a, err := s.resolveOwned(id, accountID, false)
	if err != nil {
		return err
	}
	unlock := s.locks.acquire(a.ID)
	defer unlock()
	return s.accounts.Remove(accountID)
}

// Deposit credits an account with amount minus commission. The owner may
// deposit into their own account; an ADMIN may deposit into any account
// (administrative deposits). The commission is withheld from the credited
// amount and routed to the system account in the account's currency;
// deposits into SYSTEM accounts are fee-exempt.
func (s *service) Deposit(_ context.Context, id ledger.Identity, accountID int64, amount decimal.Decimal) (ledger.Transaction, error) {
	if err := positive(amount); err != nil {
		return ledger.Transaction{}, err
	}
	acct, err := s.resolveOwned(id, accountID, true)
	if err != nil {
		return ledger.Transaction{}, err
	}

	fee := s.fee(amount, acct.Status)
	net := amount.Sub(fee)
	sys, err := s.commissionSink(acct.Currency, fee)
	if err != nil {
		return ledger.Transaction{}, err
	}

	unlock := s.locks.acquire(acct.ID, sys.ID)
	defer unlock()

	if _, err := s.accounts.ApplyDelta(acct.ID, net); err != nil {
		return ledger.Transaction{}, err
	}
	if err := s.routeCommission(id, sys, fee); err != nil {
		s.compensate(acct.ID, net.Neg())
		return ledger.Transaction{}, err
	}
	return s.log.Record(transaction.Entry{
		Type:          ledger.TypeDeposit,
		UserEmailFrom: id.Email,
		AccountIDFrom: acct.ID,
		CurrencyFrom:  acct.Currency,
		UserEmailTo:   acct.OwnerEmail,
		AccountIDTo:   acct.ID,
		CurrencyTo:    acct.Currency,
		Amount:        net,
	}), nil
}

// Withdraw debits the full requested amount from an owned account. The
// commission is withheld from the amount paid out: the holder receives
// amount minus fee, the transaction records the net. SYSTEM accounts are
// fee-exempt.
func (s *service) Withdraw(_ context.Context, id ledger.Identity, accountID int64, amount decimal.Decimal) (ledger.Transaction, error) {
	if err := positive(amount); err != nil {
		return ledger.Transaction{}, err
	}
	acct, err := s.resolveOwned(id, accountID, false)
	if err != nil {
		return ledger.Transaction{}, err
	}

	fee := s.fee(amount, acct.Status)
	net := amount.Sub(fee)
	sys, err := s.commissionSink(acct.Currency, fee)
	if err != nil {
		return ledger.Transaction{}, err
	}

	unlock := s.locks.acquire(acct.ID, sys.ID)
	defer unlock()

	if _, err := s.accounts.ApplyDelta(acct.ID, amount.Neg()); err != nil {
		return ledger.Transaction{}, err
	}
	if err := s.routeCommission(id, sys, fee); err != nil {
		s.compensate(acct.ID, amount)
		return ledger.Transaction{}, err
	}
	return s.log.Record(transaction.Entry{
		Type:          ledger.TypeWithdraw,
		UserEmailFrom: id.Email,
		AccountIDFrom: acct.ID,
		CurrencyFrom:  acct.Currency,
		UserEmailTo:   id.Email,
		AccountIDTo:   acct.ID,
		CurrencyTo:    acct.Currency,
		Amount:        net,
	}), nil
}

// Exchange moves amount from an owned source account into a destination
// account, converting at the current cross rate with the source account's
// currency as the numerator: credited = amount * Cross(fromCurrency,
// toCurrency) - fee. The commission is withheld from the converted amount
// before crediting. A failed rate lookup aborts before any balance moves.
func (s *service) Exchange(_ context.Context, id ledger.Identity, fromID, toID int64, amount decimal.Decimal) (ledger.Transaction, error) {
	if err := positive(amount); err != nil {
		return ledger.Transaction{}, err
	}
	from, err := s.resolveOwned(id, fromID, false)
	if err != nil {
		return ledger.Transaction{}, err
	}
	to, err := s.accounts.ByID(toID)
	if err != nil {
		return ledger.Transaction{}, err
	}

	// Snapshot read: rate history is append-only, so the course can be
	// fixed before entering the critical section.
	course, err := s.cross(from.Currency, to.Currency)
	if err != nil {
		return ledger.Transaction{}, err
	}
	converted := amount.Mul(course)
	fee := s.fee(converted, to.Status)
	credited := converted.Sub(fee)
	sys, err := s.commissionSink(to.Currency, fee)
	if err != nil {
		return ledger.Transaction{}, err
	}

	unlock := s.locks.acquire(from.ID, to.ID, sys.ID)
	defer unlock()

	if _, err := s.accounts.ApplyDelta(from.ID, amount.Neg()); err != nil {
		return ledger.Transaction{}, err
	}
	if _, err := s.accounts.ApplyDelta(to.ID, credited); err != nil {
		s.compensate(from.ID, amount)
		return ledger.Transaction{}, err
	}
	if err := s.routeCommission(id, sys, fee); err != nil {
		s.compensate(to.ID, credited.Neg())
		s.compensate(from.ID, amount)
		return ledger.Transaction{}, err
	}
	return s.log.Record(transaction.Entry{
		Type:          ledger.TypeTransfer,
		UserEmailFrom: id.Email,
		AccountIDFrom: from.ID,
		CurrencyFrom:  from.Currency,
		UserEmailTo:   to.OwnerEmail,
		AccountIDTo:   to.ID,
		CurrencyTo:    to.Currency,
		Amount:        credited,
		Course:        decimal.NewNullDecimal(course),
	}), nil
}

// CrossCourse returns the conversion factor from source to target. Equal
// codes return exactly 1; unresolvable codes fail with RateUnavailableError,
// never a silent default.
func (s *service) CrossCourse(_ context.Context, target, source ledger.Currency) (decimal.Decimal, error) {
	return s.cross(target, source)
}

// LatestRate returns the most recent rate entry for a currency.
func (s *service) LatestRate(_ context.Context, currency ledger.Currency) (ledger.Rate, error) {
	return s.rates.Latest(currency)
}

// RateHistory returns the recorded history for a currency.
func (s *service) RateHistory(_ context.Context, currency ledger.Currency) ([]ledger.Rate, error) {
	if !s.rates.Exists(currency) {
		return nil, &ledger.NotFoundError{Entity: "rate", Key: currency.Norm()}
	}
	return s.rates.History(currency), nil
}

// AddRate appends a rate entry. Admin only.
func (s *service) AddRate(_ context.Context, id ledger.Identity, currency ledger.Currency, value decimal.Decimal, timestamp time.Time) (ledger.Rate, error) {
	if err := s.requireAdmin(id); err != nil {
		return ledger.Rate{}, err
	}
	if timestamp.IsZero() {
		timestamp = time.Now()
	}
	return s.rates.Add(currency, value, timestamp)
}

// TransactionByID returns a recorded transaction. Non-admins may only read
// transactions they appear in.
func (s *service) TransactionByID(_ context.Context, id ledger.Identity, txID int64) (ledger.Transaction, error) {
	if err := s.authenticated(id); err != nil {
		return ledger.Transaction{}, err
	}
	tx, err := s.log.ByID(txID)
	if err != nil {
		return ledger.Transaction{}, err
	}
	if id.Role != ledger.RoleAdmin && tx.UserEmailFrom != id.Email && tx.UserEmailTo != id.Email {
		return ledger.Transaction{}, &ledger.AuthorizationError{Reason: "transaction does not involve the acting user"}
	}
	return tx, nil
}

// TransactionsByAccount lists transactions touching an account the identity
// may see.
func (s *service) TransactionsByAccount(ctx context.Context, id ledger.Identity, accountID int64) ([]ledger.Transaction, error) {
	if _, err := s.AccountByID(ctx, id, accountID); err != nil {
		return nil, err
	}
	return s.log.ByAccount(accountID), nil
}

// TransactionsByUserFrom lists transactions sent by a user. Non-admins may
// only query themselves.
func (s *service) TransactionsByUserFrom(_ context.Context, id ledger.Identity, email string, f transaction.Filter) ([]ledger.Transaction, error) {
	if err := s.mayQueryUser(id, email); err != nil {
		return nil, err
	}
	return s.log.ByUserFrom(email, f), nil
}

// TransactionsByUserTo lists transactions received by a user. Non-admins may
// only query themselves.
func (s *service) TransactionsByUserTo(_ context.Context, id ledger.Identity, email string, f transaction.Filter) ([]ledger.Transaction, error) {
	if err := s.mayQueryUser(id, email); err != nil {
		return nil, err
	}
	return s.log.ByUserTo(email, f), nil
}

// BlockUser sets a user's role to BLOCKED. Admin only. Balances are not
// touched, but every subsequent balance-mutating call acting as that
// identity fails with AuthorizationError.
func (s *service) BlockUser(_ context.Context, id ledger.Identity, email string) error {
	if err := s.requireAdmin(id); err != nil {
		return err
	}
	_, err := s.users.SetRole(email, ledger.RoleBlocked)
	return err
}

// UnblockUser restores a blocked user to the USER role. Admin only.
func (s *service) UnblockUser(_ context.Context, id ledger.Identity, email string) error {
	if err := s.requireAdmin(id); err != nil {
		return err
	}
	_, err := s.users.SetRole(email, ledger.RoleUser)
	return err
}

// --- internals ---

func (s *service) authenticated(id ledger.Identity) error {
	if id.IsZero() {
		return &ledger.AuthorizationError{Reason: "not authenticated"}
	}
	if id.Role == ledger.RoleBlocked {
		return &ledger.AuthorizationError{Reason: "user is blocked"}
	}
	return nil
}

func (s *service) requireAdmin(id ledger.Identity) error {
	if err := s.authenticated(id); err != nil {
		return err
	}
	if id.Role != ledger.RoleAdmin {
		return &ledger.AuthorizationError{Reason: "admin role required"}
	}
	return nil
}

func (s *service) mayQueryUser(id ledger.Identity, email string) error {
	if err := s.authenticated(id); err != nil {
		return err
	}
	if id.Role != ledger.RoleAdmin && id.Email != email {
		return &ledger.AuthorizationError{Reason: "may only query own transactions"}
	}
	return nil
}

// resolveOwned loads an account and checks the identity may operate on it.
// adminOverride permits ADMINs to act on accounts they do not own
// (administrative deposits).
func (s *service) resolveOwned(id ledger.Identity, accountID int64, adminOverride bool) (ledger.Account, error) {
	if err := s.authenticated(id); err != nil {
		return ledger.Account{}, err
	}
	a, err := s.accounts.ByID(accountID)
	if err != nil {
		return ledger.Account{}, err
	}
	if a.OwnerEmail == id.Email {
		return a, nil
	}
	if adminOverride && id.Role == ledger.RoleAdmin {
		return a, nil
	}
	return ledger.Account{}, &ledger.AuthorizationError{Reason: "account does not belong to the acting user"}
}

func positive(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return &ledger.ValidationError{Field: "amount", Reason: "must be > 0"}
	}
	return nil
}

// fee returns the commission for an amount, zero for SYSTEM accounts and
// when no fee rate is configured.
func (s *service) fee(amount decimal.Decimal, status ledger.AccountStatus) decimal.Decimal {
	if status == ledger.StatusSystem || s.cfg.FeeRate.IsZero() {
		return decimal.Zero
	}
	return amount.Mul(s.cfg.FeeRate)
}

// cross wraps the rate store's cross query, translating a missing rate into
// the taxonomy's RateUnavailableError.
func (s *service) cross(target, source ledger.Currency) (decimal.Decimal, error) {
	course, err := s.rates.Cross(target, source)
	var nf *ledger.NotFoundError
	if errors.As(err, &nf) {
		if c, ok := nf.Key.(ledger.Currency); ok {
			return decimal.Decimal{}, &ledger.RateUnavailableError{Currency: c}
		}
		return decimal.Decimal{}, &ledger.RateUnavailableError{}
	}
	return course, err
}

// commissionSink resolves the SYSTEM account accumulating fees in the given
// currency. With a zero fee no sink is needed and a zero Account is
// returned. A nonzero fee with no sink is a conflict, detected before any
// balance moves.
func (s *service) commissionSink(currency ledger.Currency, fee decimal.Decimal) (ledger.Account, error) {
	if fee.IsZero() {
		return ledger.Account{}, nil
	}
	for _, a := range s.accounts.ByOwnerAndCurrency(s.cfg.SystemOwner, currency) {
		if a.Status == ledger.StatusSystem {
			return a, nil
		}
	}
	return ledger.Account{}, &ledger.StateConflictError{Reason: "no system account for currency " + string(currency.Norm())}
}

// routeCommission credits the fee to the system account and appends the
// attributing transaction. Callers roll back the enclosing operation when
// this fails.
func (s *service) routeCommission(id ledger.Identity, sys ledger.Account, fee decimal.Decimal) error {
	if fee.IsZero() {
		return nil
	}
	if _, err := s.accounts.ApplyDelta(sys.ID, fee); err != nil {
		return err
	}
	s.log.Record(transaction.Entry{
		Type:          ledger.TypeDeposit,
		UserEmailFrom: id.Email,
		AccountIDFrom: sys.ID,
		CurrencyFrom:  sys.Currency,
		UserEmailTo:   sys.OwnerEmail,
		AccountIDTo:   sys.ID,
		CurrencyTo:    sys.Currency,
		Amount:        fee,
		Comment:       "commission",
	})
	return nil
}

// compensate reverses a previously applied delta while unwinding a failed
// operation. The reversal restores a balance that existed moments ago under
// the same account locks, so it cannot itself go negative.
func (s *service) compensate(accountID int64, delta decimal.Decimal) {
	_, _ = s.accounts.ApplyDelta(accountID, delta)
}

// accountLocks hands out one mutex per account id. acquire locks ids in
// ascending order so overlapping operations cannot deadlock.
type accountLocks struct {
	mu   sync.Mutex
	held map[int64]*sync.Mutex
}

func (l *accountLocks) acquire(ids ...int64) (unlock func()) {
	uniq := make([]int64, 0, len(ids))
	seen := map[int64]bool{}
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		uniq = append(uniq, id)
	}
	sort.Slice(uniq, func(i, j int) bool { return uniq[i] < uniq[j] })

	locked := make([]*sync.Mutex, 0, len(uniq))
	for _, id := range uniq {
		l.mu.Lock()
		m, ok := l.held[id]
		if !ok {
			m = &sync.Mutex{}
			l.held[id] = m
		}
		l.mu.Unlock()
		m.Lock()
		locked = append(locked, m)
	}
	return func() {
		for i := len(locked) - 1; i >= 0; i-- {
			locked[i].Unlock()
		}
	}
}
