package rate

import (
	"time"

	"github.com/go-kit/log"
	"github.com/shopspring/decimal"

	ledger "go-exchange-ledger"
)

// Service access to the rate history. Implemented by *Store and by the
// logging decorator below.
type Service interface {
	Add(currency ledger.Currency, value decimal.Decimal, timestamp time.Time) (ledger.Rate, error)
	Latest(currency ledger.Currency) (ledger.Rate, error)
	Cross(target, source ledger.Currency) (decimal.Decimal, error)
	Exists(currency ledger.Currency) bool
	History(currency ledger.Currency) []ledger.Rate
	Currencies() []ledger.Currency
}

var _ Service = (*Store)(nil)

// loggingService decorates a rate.Service with logging
type loggingService struct {
	next   Service
	logger log.Logger
}

// NewLoggingService returns a new logging Service
func NewLoggingService(logger log.Logger, s Service) Service {
	return &loggingService{
		next:   s,
		logger: logger,
	}
}

func (s *loggingService) Add(currency ledger.Currency, value decimal.Decimal, timestamp time.Time) (r ledger.Rate, err error) {
	defer func(begin time.Time) {
		s.logger.Log(
			"method", "add",
			"currency", currency,
			"value", value,
			"took", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Add(currency, value, timestamp)
}

func (s *loggingService) Cross(target, source ledger.Currency) (course decimal.Decimal, err error) {
	defer func(begin time.Time) {
		s.logger.Log(
			"method", "cross",
			"target", target,
			"source", source,
			"course", course,
			"took", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Cross(target, source)
}

func (s *loggingService) Latest(currency ledger.Currency) (ledger.Rate, error) {
	return s.next.Latest(currency)
}

func (s *loggingService) Exists(currency ledger.Currency) bool {
	return s.next.Exists(currency)
}

func (s *loggingService) History(currency ledger.Currency) []ledger.Rate {
	return s.next.History(currency)
}

func (s *loggingService) Currencies() []ledger.Currency {
	return s.next.Currencies()
}
