package infra

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"treasury-faucet/faucet/domain"
)

// MemoryEvents é um sink de eventos em memória.
// Útil para testes e desenvolvimento.
//
// Não faz expiração e não é indicado para produção.
type MemoryEvents struct {
	mu     sync.Mutex
	total  map[domain.EventKind]int64
	byUser map[common.Address]map[domain.EventKind]int64
	all    []domain.Event

	trackUsers bool
}

type MemoryEventsOption func(*MemoryEvents)

func WithTrackUsers(track bool) MemoryEventsOption {
	return func(s *MemoryEvents) { s.trackUsers = track }
}

func NewMemoryEvents(opts ...MemoryEventsOption) *MemoryEvents {
	s := &MemoryEvents{
		total:  make(map[domain.EventKind]int64),
		byUser: make(map[common.Address]map[domain.EventKind]int64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryEvents) Record(_ context.Context, ev domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total[ev.Kind]++
	s.all = append(s.all, ev)
	if s.trackUsers && ev.User != (common.Address{}) {
		m := s.byUser[ev.User]
		if m == nil {
			m = make(map[domain.EventKind]int64)
			s.byUser[ev.User] = m
		}
		m[ev.Kind]++
	}
	return nil
}

func (s *MemoryEvents) Total() map[domain.EventKind]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[domain.EventKind]int64, len(s.total))
	for k, v := range s.total {
		out[k] = v
	}
	return out
}

func (s *MemoryEvents) ByUser(user common.Address) map[domain.EventKind]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[domain.EventKind]int64, len(s.byUser[user]))
	for k, v := range s.byUser[user] {
		out[k] = v
	}
	return out
}

// Events devolve uma cópia de tudo que foi registrado, na ordem de chegada.
func (s *MemoryEvents) Events() []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Event, len(s.all))
	copy(out, s.all)
	return out
}
