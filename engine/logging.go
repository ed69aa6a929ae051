package engine

import (
	"context"
	"time"

	"github.com/go-kit/log"
	"github.com/shopspring/decimal"

	ledger "go-exchange-ledger"
	"go-exchange-ledger/transaction"
)

// loggingService decorates an engine.Service with logging
type loggingService struct {
	next   Service
	logger log.Logger
}

// NewLoggingService returns a new instance of a logging Service
func NewLoggingService(logger log.Logger, s Service) Service {
	return &loggingService{
		next:   s,
		logger: logger,
	}
}

func (s *loggingService) RegisterUser(ctx context.Context, email, password string) (u ledger.User, err error) {
	defer func(begin time.Time) {
		s.logger.Log(
			"method", "register_user",
			"email", email,
			"took", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.RegisterUser(ctx, email, password)
}

func (s *loggingService) CreateAccount(ctx context.Context, id ledger.Identity, currency ledger.Currency, title string) (a ledger.Account, err error) {
	defer func(begin time.Time) {
		s.logger.Log(
			"method", "create_account",
			"user", id.Email,
			"currency", currency,
			"account_id", a.ID,
			"took", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.CreateAccount(ctx, id, currency, title)
}

func (s *loggingService) CreateSystemAccount(ctx context.Context, id ledger.Identity, currency ledger.Currency, title string) (a ledger.Account, err error) {
	defer func(begin time.Time) {
		s.logger.Log(
			"method", "create_system_account",
			"user", id.Email,
			"currency", currency,
			"account_id", a.ID,
			"took", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.CreateSystemAccount(ctx, id, currency, title)
}

func (s *loggingService) AccountByID(ctx context.Context, id ledger.Identity, accountID int64) (ledger.Account, error) {
	return s.next.AccountByID(ctx, id, accountID)
}

func (s *loggingService) AccountsByOwner(ctx context.Context, id ledger.Identity) ([]ledger.Account, error) {
	return s.next.AccountsByOwner(ctx, id)
}

func (s *loggingService) AccountsByCurrency(ctx context.Context, id ledger.Identity, currency ledger.Currency) ([]ledger.Account, error) {
	return s.next.AccountsByCurrency(ctx, id, currency)
}

func (s *loggingService) RemoveAccount(ctx context.Context, id ledger.Identity, accountID int64) (err error) {
	defer func(begin time.Time) {
		s.logger.Log(
			"method", "remove_account",
			"user", id.Email,
			"account_id", accountID,
			"took", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.RemoveAccount(ctx, id, accountID)
}

func (s *loggingService) Deposit(ctx context.Context, id ledger.Identity, accountID int64, amount decimal.Decimal) (tx ledger.Transaction, err error) {
	defer func(begin time.Time) {
		s.logger.Log(
			"method", "deposit",
			"user", id.Email,
			"account_id", accountID,
			"amount", amount,
			"net", tx.Amount,
			"took", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Deposit(ctx, id, accountID, amount)
}

func (s *loggingService) Withdraw(ctx context.Context, id ledger.Identity, accountID int64, amount decimal.Decimal) (tx ledger.Transaction, err error) {
	defer func(begin time.Time) {
		s.logger.Log(
			"method", "withdraw",
			"user", id.Email,
			"account_id", accountID,
			"amount", amount,
			"net", tx.Amount,
			"took", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Withdraw(ctx, id, accountID, amount)
}

func (s *loggingService) Exchange(ctx context.Context, id ledger.Identity, fromID, toID int64, amount decimal.Decimal) (tx ledger.Transaction, err error) {
	defer func(begin time.Time) {
		s.logger.Log(
			"method", "exchange",
			"user", id.Email,
			"from_account", fromID,
			"to_account", toID,
			"amount", amount,
			"course", tx.Course.Decimal,
			"credited", tx.Amount,
			"took", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Exchange(ctx, id, fromID, toID, amount)
}

func (s *loggingService) CrossCourse(ctx context.Context, target, source ledger.Currency) (course decimal.Decimal, err error) {
	defer func(begin time.Time) {
		s.logger.Log(
			"method", "cross_course",
			"target", target,
			"source", source,
			"course", course,
			"took", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.CrossCourse(ctx, target, source)
}

func (s *loggingService) LatestRate(ctx context.Context, currency ledger.Currency) (ledger.Rate, error) {
	return s.next.LatestRate(ctx, currency)
}

func (s *loggingService) RateHistory(ctx context.Context, currency ledger.Currency) ([]ledger.Rate, error) {
	return s.next.RateHistory(ctx, currency)
}

func (s *loggingService) AddRate(ctx context.Context, id ledger.Identity, currency ledger.Currency, value decimal.Decimal, timestamp time.Time) (r ledger.Rate, err error) {
	defer func(begin time.Time) {
		s.logger.Log(
			"method", "add_rate",
			"user", id.Email,
			"currency", currency,
			"value", value,
			"took", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.AddRate(ctx, id, currency, value, timestamp)
}

func (s *loggingService) TransactionByID(ctx context.Context, id ledger.Identity, txID int64) (ledger.Transaction, error) {
	return s.next.TransactionByID(ctx, id, txID)
}

func (s *loggingService) TransactionsByAccount(ctx context.Context, id ledger.Identity, accountID int64) ([]ledger.Transaction, error) {
	return s.next.TransactionsByAccount(ctx, id, accountID)
}

func (s *loggingService) TransactionsByUserFrom(ctx context.Context, id ledger.Identity, email string, f transaction.Filter) ([]ledger.Transaction, error) {
	return s.next.TransactionsByUserFrom(ctx, id, email, f)
}

func (s *loggingService) TransactionsByUserTo(ctx context.Context, id ledger.Identity, email string, f transaction.Filter) ([]ledger.Transaction, error) {
	return s.next.TransactionsByUserTo(ctx, id, email, f)
}

func (s *loggingService) BlockUser(ctx context.Context, id ledger.Identity, email string) (err error) {
	defer func(begin time.Time) {
		s.logger.Log(
			"method", "block_user",
			"admin", id.Email,
			"email", email,
			"took", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.BlockUser(ctx, id, email)
}

func (s *loggingService) UnblockUser(ctx context.Context, id ledger.Identity, email string) (err error) {
	defer func(begin time.Time) {
		s.logger.Log(
			"method", "unblock_user",
			"admin", id.Email,
			"email", email,
			"took", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.UnblockUser(ctx, id, email)
}
