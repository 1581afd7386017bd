package infra

import (
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"golang.org/x/time/rate"
)

// RateStore é o token-bucket por caller (x/time/rate) da porta de entrada HTTP,
// com cache por endereço e limpeza periódica. Ele protege o serviço contra
// rajadas de requisições; a cota por época é outra camada, dentro do domain.
type RateStore struct {
	mu           sync.Mutex
	entries      map[common.Address]*rateEntry
	rps          rate.Limit
	burst        int
	idleTTL      time.Duration
	cleanupEvery time.Duration
}

type rateEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

type RateStoreOption func(*RateStore)

func WithIdleTTL(d time.Duration) RateStoreOption {
	return func(s *RateStore) { s.idleTTL = d }
}

func WithCleanupEvery(d time.Duration) RateStoreOption {
	return func(s *RateStore) { s.cleanupEvery = d }
}

func NewRateStore(rps float64, burst int, opts ...RateStoreOption) *RateStore {
	s := &RateStore{
		entries:      make(map[common.Address]*rateEntry),
		rps:          rate.Limit(rps),
		burst:        burst,
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RateStore) RPS() float64 { return float64(s.rps) }
func (s *RateStore) Burst() int   { return s.burst }

// Allow busca (ou cria) o limiter do caller e consulta o bucket.
func (s *RateStore) Allow(caller common.Address) bool {
	return s.get(caller).Allow()
}

func (s *RateStore) get(caller common.Address) *rate.Limiter {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if ent, ok := s.entries[caller]; ok {
		ent.lastSeen = now
		return ent.lim
	}

	lim := rate.NewLimiter(s.rps, s.burst)
	s.entries[caller] = &rateEntry{lim: lim, lastSeen: now}
	return lim
}

func (s *RateStore) Cleanup() {
	cutoff := time.Now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, ent := range s.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(s.entries, k)
		}
	}
}

// StartJanitor inicia uma goroutine que limpa callers inativos periodicamente.
// Pare cancelando o contexto.
func (s *RateStore) StartJanitor(ctx DoneContext) {
	if s.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(s.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Cleanup()
			}
		}
	}()
}

// DoneContext é o mínimo necessário para aceitar context.Context sem importar context aqui.
// (Permite reuso em libs sem acoplar.)
type DoneContext interface {
	Done() <-chan struct{}
}
