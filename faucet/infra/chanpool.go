package infra

import (
	"context"
	"time"

	"treasury-faucet/faucet/domain"
)

// chanPool limita invocações externas de mint em voo: cada chamada ocupa um
// slot do channel até terminar. O prazo de espera por slot mora aqui, junto da
// fila, e não em quem chama.
type chanPool struct {
	sem     chan struct{}
	timeout time.Duration
}

type ChanPoolOption func(*chanPool)

// WithAcquireTimeout limita quanto tempo uma chamada espera por um slot livre.
// Zero espera até o ctx do caller desistir.
func WithAcquireTimeout(d time.Duration) ChanPoolOption {
	return func(p *chanPool) { p.timeout = d }
}

func NewChanPool(max int, opts ...ChanPoolOption) domain.SlotPool {
	p := &chanPool{sem: make(chan struct{}, max)}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *chanPool) Acquire(ctx context.Context) (func(), bool) {
	// caminho rápido: slot livre não paga timer
	select {
	case p.sem <- struct{}{}:
		return p.release, true
	default:
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	select {
	case p.sem <- struct{}{}:
		return p.release, true
	case <-ctx.Done():
		return nil, false
	}
}

func (p *chanPool) release() { <-p.sem }
