package application

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"treasury-faucet/faucet/domain"
)

// RoleManager edita o bit de usuário de vários endereços de uma vez.
//
// A escrita no gate usa a identidade do próprio serviço (Self), não a do
// caller: auto-invocação deliberada para que um manager conceda/revogue o bit
// de usuário sem precisar de autoridade direta de escrita no gate.
type RoleManager struct {
	Gate   domain.AccessGate
	Self   common.Address
	Events domain.EventSink
}

func (m RoleManager) AddUsers(ctx context.Context, caller common.Address, list []common.Address) error {
	return m.apply(ctx, caller, list, true)
}

func (m RoleManager) RemoveUsers(ctx context.Context, caller common.Address, list []common.Address) error {
	return m.apply(ctx, caller, list, false)
}

func (m RoleManager) apply(ctx context.Context, caller common.Address, list []common.Address, add bool) error {
	if err := requireCapability(ctx, m.Gate, caller, domain.CapManager); err != nil {
		return err
	}
	if len(list) == 0 {
		return fmt.Errorf("%w: empty address list", domain.ErrInvalidInput)
	}

	// fase 1: lê todos os bitmasks atuais antes de escrever qualquer coisa
	before := make([]domain.CapabilitySet, len(list))
	for i, addr := range list {
		mask, err := m.Gate.Bitmask(ctx, addr)
		if err != nil {
			return fmt.Errorf("read bitmask %s: %w", addr.Hex(), err)
		}
		before[i] = mask
	}

	// fase 2: escreve só o bit de usuário, preservando todos os outros bits.
	// Tudo-ou-nada: se uma escrita falhar, as anteriores são restauradas.
	for i, addr := range list {
		mask := before[i].With(domain.CapUser)
		if !add {
			mask = before[i].Without(domain.CapUser)
		}
		if err := m.Gate.SetBitmask(ctx, m.Self, addr, mask); err != nil {
			for j := i - 1; j >= 0; j-- {
				if rerr := m.Gate.SetBitmask(ctx, m.Self, list[j], before[j]); rerr != nil {
					// restauração falhou: o gate ficou com estado parcial
					log.Printf("role restore failed for %s: %v", list[j].Hex(), rerr)
				}
			}
			return fmt.Errorf("set bitmask %s: %w", addr.Hex(), err)
		}
	}

	if m.Events != nil {
		kind := domain.EventUserAdded
		if !add {
			kind = domain.EventUserRemoved
		}
		now := time.Now()
		for _, addr := range list {
			_ = m.Events.Record(ctx, domain.Event{Kind: kind, User: addr, At: now})
		}
	}
	return nil
}
