package application

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"treasury-faucet/faucet/domain"
)

// fakes compartilhados pelos testes do pacote

type fakeGate struct {
	masks map[common.Address]domain.CapabilitySet

	// failSetFor força erro na escrita de um endereço específico
	failSetFor map[common.Address]bool
	// setErrQueue devolve um erro por chamada de SetBitmask, na ordem (nil = ok)
	setErrQueue []error
	// authorities registra com qual autoridade cada escrita foi feita
	authorities []common.Address
}

func newFakeGate() *fakeGate {
	return &fakeGate{
		masks:      make(map[common.Address]domain.CapabilitySet),
		failSetFor: make(map[common.Address]bool),
	}
}

func (g *fakeGate) HasCapability(_ context.Context, addr common.Address, c domain.CapabilitySet) (bool, error) {
	return g.masks[addr].Has(c), nil
}

func (g *fakeGate) Bitmask(_ context.Context, addr common.Address) (domain.CapabilitySet, error) {
	return g.masks[addr], nil
}

func (g *fakeGate) SetBitmask(_ context.Context, authority, addr common.Address, mask domain.CapabilitySet) error {
	if len(g.setErrQueue) > 0 {
		err := g.setErrQueue[0]
		g.setErrQueue = g.setErrQueue[1:]
		if err != nil {
			return err
		}
	} else if g.failSetFor[addr] {
		return errors.New("gate write failed")
	}
	g.authorities = append(g.authorities, authority)
	g.masks[addr] = mask
	return nil
}

type fakeTransferor struct {
	err   error
	calls []transferCall
	// hook roda com a transferência em voo, antes do resultado
	hook func(to common.Address, amount *big.Int)
}

type transferCall struct {
	to     common.Address
	amount *big.Int
}

func (f *fakeTransferor) Transfer(_ context.Context, to common.Address, amount *big.Int) error {
	if f.hook != nil {
		f.hook(to, amount)
	}
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, transferCall{to: to, amount: new(big.Int).Set(amount)})
	return nil
}

type fakeInvoker struct {
	err   error
	calls []domain.MintCall
}

func (f *fakeInvoker) Invoke(_ context.Context, call domain.MintCall) error {
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, call)
	return nil
}

type deniedPool struct{}

func (deniedPool) Acquire(ctx context.Context) (func(), bool) { return nil, false }
