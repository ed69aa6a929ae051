package main

import (
	"context"
	"os"

	"github.com/go-kit/log"

	"go-exchange-ledger/account"
	"go-exchange-ledger/config"
	"go-exchange-ledger/engine"
	"go-exchange-ledger/httpapi"
	"go-exchange-ledger/rate"
	"go-exchange-ledger/seed"
	"go-exchange-ledger/transaction"
	"go-exchange-ledger/user"

	nhttp "net/http"
)

func main() {
	w := log.NewSyncWriter(os.Stderr)
	logger := log.NewLogfmtLogger(w)
	logger = log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)

	cfg, err := config.Load()
	if err != nil {
		logger.Log("msg", "loading config", "err", err)
		os.Exit(1)
	}
	feeRate, err := cfg.Fee()
	if err != nil {
		logger.Log("msg", "parsing fee rate", "err", err)
		os.Exit(1)
	}

	rates := rate.NewLoggingService(log.With(logger, "component", "rates"), rate.New())
	accounts := account.New(rates.Exists)
	txLog := transaction.New()
	users := user.New()

	svc := engine.New(accounts, rates, txLog, users, engine.Config{
		FeeRate:     feeRate,
		SystemOwner: cfg.SystemOwner,
	})
	svc = engine.NewLoggingService(log.With(logger, "component", "engine"), svc)

	if cfg.SeedDemo {
		if err := seed.Demo(context.Background(), users, rates, svc); err != nil {
			logger.Log("msg", "seeding demo data", "err", err)
			os.Exit(1)
		}
		logger.Log("msg", "demo data seeded")
	}

	handler := httpapi.WithRequestID(log.With(logger, "component", "http"), httpapi.NewServer(svc, users))

	logger.Log("msg", "listening", "addr", cfg.Addr, "fee_rate", cfg.FeeRate)
	if err := nhttp.ListenAndServe(cfg.Addr, handler); err != nil {
		logger.Log("msg", "server stopped", "err", err)
		os.Exit(1)
	}
}
