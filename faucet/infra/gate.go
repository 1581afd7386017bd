package infra

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"treasury-faucet/faucet/domain"
)

// MemoryGate é um AccessGate em memória.
//
// A escrita exige que a autoridade passada possua CapGateAdmin — é isso que
// força o padrão de auto-invocação: um manager sem esse bit só consegue editar
// usuários através do RoleManager, que escreve com a identidade do serviço.
type MemoryGate struct {
	mu    sync.RWMutex
	masks map[common.Address]domain.CapabilitySet
}

func NewMemoryGate() *MemoryGate {
	return &MemoryGate{masks: make(map[common.Address]domain.CapabilitySet)}
}

// Grant liga bits diretamente, sem autoridade. Só para o seed de boot
// (identidade do serviço, managers da policy); não é parte do contrato AccessGate.
func (g *MemoryGate) Grant(addr common.Address, c domain.CapabilitySet) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.masks[addr] = g.masks[addr].With(c)
}

func (g *MemoryGate) HasCapability(_ context.Context, addr common.Address, c domain.CapabilitySet) (bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.masks[addr].Has(c), nil
}

func (g *MemoryGate) Bitmask(_ context.Context, addr common.Address) (domain.CapabilitySet, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.masks[addr], nil
}

func (g *MemoryGate) SetBitmask(_ context.Context, authority, addr common.Address, mask domain.CapabilitySet) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.masks[authority].Has(domain.CapGateAdmin) {
		return fmt.Errorf("%w: authority %s lacks gate-admin capability", domain.ErrUnauthorized, authority.Hex())
	}
	if mask == 0 {
		delete(g.masks, addr)
		return nil
	}
	g.masks[addr] = mask
	return nil
}
