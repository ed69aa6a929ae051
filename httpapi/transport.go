// Package httpapi exposes the ledger engine over HTTP. Handlers decode a
// request struct, call the engine, and encode the returned record or a
// typed error; no business rules live here.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	ledger "go-exchange-ledger"
	"go-exchange-ledger/engine"
	"go-exchange-ledger/transaction"
	"go-exchange-ledger/user"
	"go-exchange-ledger/validate"
)

// identityHeader carries the acting user's email, resolved against the user
// registry on every call. The engine itself never stores sessions.
const identityHeader = "X-User-Email"

// Server dependencies for HTTP Server functions
type Server struct {
	Service engine.Service
	Users   *user.Store
	router  http.ServeMux
}

func NewServer(s engine.Service, users *user.Store) *Server {
	server := &Server{
		Service: s,
		Users:   users,
	}
	server.routes()
	return server
}

func (s *Server) routes() {
	s.router.Handle("/api/users/register", s.registerUser())
	s.router.Handle("/api/users/login", s.login())
	s.router.Handle("/api/users/block", s.blockUser(true))
	s.router.Handle("/api/users/unblock", s.blockUser(false))
	s.router.Handle("/api/accounts/create", s.createAccount(false))
	s.router.Handle("/api/accounts/create-system", s.createAccount(true))
	s.router.Handle("/api/accounts", s.listAccounts())
	s.router.Handle("/api/accounts/get", s.getAccount())
	s.router.Handle("/api/accounts/remove", s.removeAccount())
	s.router.Handle("/api/deposit", s.deposit())
	s.router.Handle("/api/withdraw", s.withdraw())
	s.router.Handle("/api/exchange", s.exchange())
	s.router.Handle("/api/rates/add", s.addRate())
	s.router.Handle("/api/rates/cross", s.crossCourse())
	s.router.Handle("/api/rates/latest", s.latestRate())
	s.router.Handle("/api/rates/history", s.rateHistory())
	s.router.Handle("/api/transactions/get", s.getTransaction())
	s.router.Handle("/api/transactions", s.listTransactions())
}

func (s *Server) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(rw, r)
}

// identity resolves the acting identity from the request header. A missing
// or unknown email yields a zero identity, which the engine rejects.
func (s *Server) identity(r *http.Request) ledger.Identity {
	email := r.Header.Get(identityHeader)
	if email == "" {
		return ledger.Identity{}
	}
	id, err := s.Users.Identity(email)
	if err != nil {
		return ledger.Identity{}
	}
	return id
}

func (s *Server) registerUser() http.HandlerFunc {
	type request struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	return func(rw http.ResponseWriter, r *http.Request) {
		var req request
		if !decode(rw, r, &req) {
			return
		}
		if !validate.Email(req.Email) {
			writeError(rw, &ledger.ValidationError{Field: "email", Reason: "invalid email address"})
			return
		}
		if !validate.Password(req.Password) {
			writeError(rw, &ledger.ValidationError{Field: "password", Reason: "min 8 chars with a letter and a digit"})
			return
		}
		u, err := s.Service.RegisterUser(r.Context(), req.Email, req.Password)
		respond(rw, u, err)
	}
}

func (s *Server) login() http.HandlerFunc {
	type request struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	type response struct {
		Email string      `json:"email"`
		Role  ledger.Role `json:"role"`
	}
	return func(rw http.ResponseWriter, r *http.Request) {
		var req request
		if !decode(rw, r, &req) {
			return
		}
		id, err := s.Users.Authenticate(req.Email, req.Password)
		if err != nil {
			writeError(rw, err)
			return
		}
		respond(rw, response{Email: id.Email, Role: id.Role}, nil)
	}
}

func (s *Server) blockUser(block bool) http.HandlerFunc {
	type request struct {
		Email string `json:"email"`
	}
	return func(rw http.ResponseWriter, r *http.Request) {
		var req request
		if !decode(rw, r, &req) {
			return
		}
		var err error
		if block {
			err = s.Service.BlockUser(r.Context(), s.identity(r), req.Email)
		} else {
			err = s.Service.UnblockUser(r.Context(), s.identity(r), req.Email)
		}
		respond(rw, map[string]bool{"ok": err == nil}, err)
	}
}

func (s *Server) createAccount(system bool) http.HandlerFunc {
	type request struct {
		Currency string `json:"currency"`
		Title    string `json:"title"`
	}
	return func(rw http.ResponseWriter, r *http.Request) {
		var req request
		if !decode(rw, r, &req) {
			return
		}
		if !validate.CurrencyCode(req.Currency) {
			writeError(rw, &ledger.ValidationError{Field: "currency", Reason: "must be a three-letter code"})
			return
		}
		var (
			a   ledger.Account
			err error
		)
		if system {
			a, err = s.Service.CreateSystemAccount(r.Context(), s.identity(r), ledger.Currency(req.Currency), req.Title)
		} else {
			a, err = s.Service.CreateAccount(r.Context(), s.identity(r), ledger.Currency(req.Currency), req.Title)
		}
		respond(rw, a, err)
	}
}

func (s *Server) listAccounts() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if c := r.URL.Query().Get("currency"); c != "" {
			accts, err := s.Service.AccountsByCurrency(r.Context(), s.identity(r), ledger.Currency(c))
			respond(rw, accts, err)
			return
		}
		accts, err := s.Service.AccountsByOwner(r.Context(), s.identity(r))
		respond(rw, accts, err)
	}
}

func (s *Server) getAccount() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		id, ok := queryID(rw, r, "id")
		if !ok {
			return
		}
		a, err := s.Service.AccountByID(r.Context(), s.identity(r), id)
		respond(rw, a, err)
	}
}

func (s *Server) removeAccount() http.HandlerFunc {
	type request struct {
		AccountID int64 `json:"accountId"`
	}
	return func(rw http.ResponseWriter, r *http.Request) {
		var req request
		if !decode(rw, r, &req) {
			return
		}
		err := s.Service.RemoveAccount(r.Context(), s.identity(r), req.AccountID)
		respond(rw, map[string]bool{"ok": err == nil}, err)
	}
}

// moneyRequest shared shape of the deposit and withdraw bodies.
type moneyRequest struct {
	AccountID int64  `json:"accountId"`
	Amount    string `json:"amount"`
}

func (s *Server) deposit() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		var req moneyRequest
		if !decode(rw, r, &req) {
			return
		}
		amount, ok := parseAmount(rw, req.Amount)
		if !ok {
			return
		}
		tx, err := s.Service.Deposit(r.Context(), s.identity(r), req.AccountID, amount)
		respond(rw, tx, err)
	}
}

func (s *Server) withdraw() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		var req moneyRequest
		if !decode(rw, r, &req) {
			return
		}
		amount, ok := parseAmount(rw, req.Amount)
		if !ok {
			return
		}
		tx, err := s.Service.Withdraw(r.Context(), s.identity(r), req.AccountID, amount)
		respond(rw, tx, err)
	}
}

func (s *Server) exchange() http.HandlerFunc {
	type request struct {
		FromAccountID int64  `json:"fromAccountId"`
		ToAccountID   int64  `json:"toAccountId"`
		Amount        string `json:"amount"`
	}
	return func(rw http.ResponseWriter, r *http.Request) {
		var req request
		if !decode(rw, r, &req) {
			return
		}
		amount, ok := parseAmount(rw, req.Amount)
		if !ok {
			return
		}
		tx, err := s.Service.Exchange(r.Context(), s.identity(r), req.FromAccountID, req.ToAccountID, amount)
		respond(rw, tx, err)
	}
}

func (s *Server) addRate() http.HandlerFunc {
	type request struct {
		Currency  string     `json:"currency"`
		Value     string     `json:"value"`
		Timestamp *time.Time `json:"timestamp,omitempty"`
	}
	return func(rw http.ResponseWriter, r *http.Request) {
		var req request
		if !decode(rw, r, &req) {
			return
		}
		if !validate.CurrencyCode(req.Currency) {
			writeError(rw, &ledger.ValidationError{Field: "currency", Reason: "must be a three-letter code"})
			return
		}
		value, err := decimal.NewFromString(req.Value)
		if err != nil {
			writeError(rw, &ledger.ValidationError{Field: "value", Reason: "not a decimal number"})
			return
		}
		ts := time.Time{}
		if req.Timestamp != nil {
			ts = *req.Timestamp
		}
		rate, err := s.Service.AddRate(r.Context(), s.identity(r), ledger.Currency(req.Currency), value, ts)
		respond(rw, rate, err)
	}
}

func (s *Server) crossCourse() http.HandlerFunc {
	type response struct {
		Target ledger.Currency `json:"target"`
		Source ledger.Currency `json:"source"`
		Course decimal.Decimal `json:"course"`
	}
	return func(rw http.ResponseWriter, r *http.Request) {
		target := ledger.Currency(r.URL.Query().Get("target"))
		source := ledger.Currency(r.URL.Query().Get("source"))
		course, err := s.Service.CrossCourse(r.Context(), target, source)
		if err != nil {
			writeError(rw, err)
			return
		}
		respond(rw, response{Target: target.Norm(), Source: source.Norm(), Course: course}, nil)
	}
}

func (s *Server) latestRate() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rate, err := s.Service.LatestRate(r.Context(), ledger.Currency(r.URL.Query().Get("currency")))
		respond(rw, rate, err)
	}
}

func (s *Server) rateHistory() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		history, err := s.Service.RateHistory(r.Context(), ledger.Currency(r.URL.Query().Get("currency")))
		respond(rw, history, err)
	}
}

func (s *Server) getTransaction() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		id, ok := queryID(rw, r, "id")
		if !ok {
			return
		}
		tx, err := s.Service.TransactionByID(r.Context(), s.identity(r), id)
		respond(rw, tx, err)
	}
}

func (s *Server) listTransactions() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if acct := q.Get("account"); acct != "" {
			id, err := strconv.ParseInt(acct, 10, 64)
			if err != nil {
				writeError(rw, &ledger.ValidationError{Field: "account", Reason: "not a number"})
				return
			}
			txs, err := s.Service.TransactionsByAccount(r.Context(), s.identity(r), id)
			respond(rw, txs, err)
			return
		}

		f := transaction.Filter{}
		if d := q.Get("date"); d != "" {
			date, err := time.Parse("2006-01-02", d)
			if err != nil {
				writeError(rw, &ledger.ValidationError{Field: "date", Reason: "want YYYY-MM-DD"})
				return
			}
			f.Date = &date
		}
		if to := q.Get("to"); to != "" {
			txs, err := s.Service.TransactionsByUserTo(r.Context(), s.identity(r), to, f)
			respond(rw, txs, err)
			return
		}
		from := q.Get("from")
		if from == "" {
			from = r.Header.Get(identityHeader)
		}
		txs, err := s.Service.TransactionsByUserFrom(r.Context(), s.identity(r), from, f)
		respond(rw, txs, err)
	}
}

// --- encoding helpers ---

func decode(rw http.ResponseWriter, r *http.Request, v any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		rw.Header().Set("Content-Type", "application/json")
		rw.WriteHeader(http.StatusBadRequest)
		rw.Write([]byte(`{"error": "invalid json"}`))
		return false
	}
	return true
}

func parseAmount(rw http.ResponseWriter, s string) (decimal.Decimal, bool) {
	amount, err := decimal.NewFromString(s)
	if err != nil {
		writeError(rw, &ledger.ValidationError{Field: "amount", Reason: "not a decimal number"})
		return decimal.Decimal{}, false
	}
	return amount, true
}

func queryID(rw http.ResponseWriter, r *http.Request, key string) (int64, bool) {
	id, err := strconv.ParseInt(r.URL.Query().Get(key), 10, 64)
	if err != nil {
		writeError(rw, &ledger.ValidationError{Field: key, Reason: "not a number"})
		return 0, false
	}
	return id, true
}

func respond(rw http.ResponseWriter, v any, err error) {
	if err != nil {
		writeError(rw, err)
		return
	}
	rw.Header().Set("Content-Type", "application/json")
	if encodeErr := json.NewEncoder(rw).Encode(v); encodeErr != nil {
		rw.WriteHeader(http.StatusInternalServerError)
		rw.Write([]byte(`{"error": "failed json encoding"}`))
	}
}

// writeError maps the typed taxonomy onto status codes.
func writeError(rw http.ResponseWriter, err error) {
	var (
		validation  *ledger.ValidationError
		notFound    *ledger.NotFoundError
		authz       *ledger.AuthorizationError
		conflict    *ledger.StateConflictError
		unavailable *ledger.RateUnavailableError
	)
	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &validation):
		status = http.StatusBadRequest
	case errors.As(err, &notFound):
		status = http.StatusNotFound
	case errors.As(err, &authz):
		status = http.StatusForbidden
		if authz.Reason == "not authenticated" {
			status = http.StatusUnauthorized
		}
	case errors.As(err, &conflict):
		status = http.StatusConflict
	case errors.As(err, &unavailable):
		status = http.StatusUnprocessableEntity
	}
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(map[string]string{"error": err.Error()})
}
