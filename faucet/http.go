package faucet

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"treasury-faucet/faucet/application"
	"treasury-faucet/faucet/domain"
)

// DefaultCallerHeader identifica o caller de cada operação.
const DefaultCallerHeader = "X-Caller-Address"

// Services agrupa os casos de uso expostos pelo handler.
type Services struct {
	Throttle application.Throttle
	Withdraw application.WithdrawalService
	Mint     application.MintProxyService
	Roles    application.RoleManager
	Admin    application.Admin
	Pool     application.Pool
}

type Options struct {
	Services     Services
	CallerHeader string
}

// Handler monta a superfície pública de operações.
//
// Consultas são livres; operações que mutam exigem o header do caller e passam
// pela checagem de permissão da camada application.
func Handler(opts Options) http.Handler {
	if opts.CallerHeader == "" {
		opts.CallerHeader = DefaultCallerHeader
	}
	h := handlers{svcs: opts.Services, callerHeader: opts.CallerHeader}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /pool", h.poolBalance)
	mux.HandleFunc("POST /fund", h.fund)
	mux.HandleFunc("GET /users/{addr}/limit", h.userLimit)
	mux.HandleFunc("GET /users/{addr}/withdrawn", h.userWithdrawn)
	mux.HandleFunc("GET /users/{addr}/allowance", h.userAllowance)
	mux.HandleFunc("POST /withdraw", h.withdraw)
	mux.HandleFunc("POST /mint", h.mint)
	mux.HandleFunc("POST /admin/epoch", h.setEpochParams)
	mux.HandleFunc("POST /admin/override", h.setUserLimitOverride)
	mux.HandleFunc("POST /users/add", h.addUsers)
	mux.HandleFunc("POST /users/remove", h.removeUsers)
	return mux
}

type handlers struct {
	svcs         Services
	callerHeader string
}

// caller extrai a identidade do header. Header ausente vira o endereço nulo —
// que nunca tem permissão — e header malformado é InvalidInput do caller.
func (h handlers) caller(r *http.Request) (common.Address, error) {
	v := r.Header.Get(h.callerHeader)
	if v == "" {
		return common.Address{}, nil
	}
	return parseAddress(v)
}

func (h handlers) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrQuotaExceeded):
		status = http.StatusTooManyRequests
		if next, nerr := h.svcs.Throttle.NextEpochStart(); nerr == nil {
			secs := int(time.Until(next).Seconds())
			if secs < 1 {
				secs = 1
			}
			w.Header().Set("Retry-After", formatInt(secs))
		}
	case errors.Is(err, domain.ErrPoolExhausted):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrValueOutOfRange):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrProxyCallFailed):
		status = http.StatusBadGateway
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

type amountResponse struct {
	Amount string `json:"amount"`
}

func (h handlers) userQuery(w http.ResponseWriter, r *http.Request, fn func(common.Address) (*big.Int, error)) {
	addr, err := parseAddress(r.PathValue("addr"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	v, err := fn(addr)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, amountResponse{Amount: v.String()})
}

func (h handlers) userLimit(w http.ResponseWriter, r *http.Request) {
	h.userQuery(w, r, h.svcs.Throttle.EffectiveLimit)
}

func (h handlers) userWithdrawn(w http.ResponseWriter, r *http.Request) {
	h.userQuery(w, r, h.svcs.Throttle.WithdrawnInEpoch)
}

func (h handlers) userAllowance(w http.ResponseWriter, r *http.Request) {
	h.userQuery(w, r, h.svcs.Throttle.RemainingAllowance)
}

func (h handlers) poolBalance(w http.ResponseWriter, r *http.Request) {
	bal, err := h.svcs.Pool.Balance()
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, struct {
		Balance string `json:"balance"`
	}{Balance: bal.String()})
}

type fundRequest struct {
	Amount string `json:"amount"`
}

// entrada de valor no pool: incondicional, sem caller
func (h handlers) fund(w http.ResponseWriter, r *http.Request) {
	var req fundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.svcs.Pool.Fund(amount); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type withdrawRequest struct {
	To     string `json:"to"`
	Amount string `json:"amount"`
}

func (h handlers) withdraw(w http.ResponseWriter, r *http.Request) {
	caller, err := h.caller(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req withdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	to, err := parseAddress(req.To)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.svcs.Withdraw.Withdraw(r.Context(), caller, to, amount); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type mintRequest struct {
	Target string `json:"target"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

func (h handlers) mint(w http.ResponseWriter, r *http.Request) {
	caller, err := h.caller(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req mintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	target, err := parseAddress(req.Target)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	to, err := parseAddress(req.To)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.svcs.Mint.Mint(r.Context(), caller, target, to, amount); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type epochParamsRequest struct {
	EpochSeconds int64  `json:"epoch_seconds"`
	DefaultLimit string `json:"default_limit"`
}

func (h handlers) setEpochParams(w http.ResponseWriter, r *http.Request) {
	caller, err := h.caller(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req epochParamsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	limit, err := parseAmount(req.DefaultLimit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	length := time.Duration(req.EpochSeconds) * time.Second
	if err := h.svcs.Admin.SetEpochParams(r.Context(), caller, length, limit); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type overrideRequest struct {
	User  string `json:"user"`
	Limit string `json:"limit"`
}

func (h handlers) setUserLimitOverride(w http.ResponseWriter, r *http.Request) {
	caller, err := h.caller(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req overrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	user, err := parseAddress(req.User)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	limit, err := parseAmount(req.Limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.svcs.Admin.SetUserLimitOverride(r.Context(), caller, user, limit); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type usersRequest struct {
	Addresses []string `json:"addresses"`
}

func (h handlers) bulkUsers(w http.ResponseWriter, r *http.Request, apply func(r *http.Request, caller common.Address, list []common.Address) error) {
	caller, err := h.caller(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req usersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	list := make([]common.Address, 0, len(req.Addresses))
	for _, s := range req.Addresses {
		addr, err := parseAddress(s)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		list = append(list, addr)
	}
	if err := apply(r, caller, list); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h handlers) addUsers(w http.ResponseWriter, r *http.Request) {
	h.bulkUsers(w, r, func(r *http.Request, caller common.Address, list []common.Address) error {
		return h.svcs.Roles.AddUsers(r.Context(), caller, list)
	})
}

func (h handlers) removeUsers(w http.ResponseWriter, r *http.Request) {
	h.bulkUsers(w, r, func(r *http.Request, caller common.Address, list []common.Address) error {
		return h.svcs.Roles.RemoveUsers(r.Context(), caller, list)
	})
}
