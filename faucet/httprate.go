package faucet

import (
	"net/http"
	"time"

	"treasury-faucet/faucet/infra"
)

// RateOptions configura o token bucket por caller da porta de entrada.
//
// Esta camada é só proteção contra rajadas de requisições; a cota por época
// do domínio continua valendo por baixo dela.
type RateOptions struct {
	Store               *infra.RateStore
	CallerHeader        string
	RejectStatus        int
	RetryAfter          time.Duration
	AddRateLimitHeaders bool
}

func RateMiddleware(opts RateOptions) func(next http.Handler) http.Handler {
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusTooManyRequests
	}
	if opts.RetryAfter == 0 {
		opts.RetryAfter = 1 * time.Second
	}
	if opts.CallerHeader == "" {
		opts.CallerHeader = DefaultCallerHeader
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if opts.Store == nil {
				next.ServeHTTP(w, r)
				return
			}

			// caller ausente ou malformado compartilha o bucket do endereço nulo
			caller, _ := parseAddress(r.Header.Get(opts.CallerHeader))

			if opts.AddRateLimitHeaders {
				w.Header().Set("X-RateLimit-RPS", formatFloat(opts.Store.RPS()))
				w.Header().Set("X-RateLimit-Burst", formatInt(opts.Store.Burst()))
			}

			if !opts.Store.Allow(caller) {
				w.Header().Set("Retry-After", formatInt(int(opts.RetryAfter.Seconds())))
				http.Error(w, http.StatusText(opts.RejectStatus), opts.RejectStatus)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
