package application

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"treasury-faucet/faucet/domain"
)

// MintGasBudget limita o custo da invocação externa de mint e o estrago que um
// alvo malicioso ou bugado pode causar.
const MintGasBudget uint64 = 81000

// MintProxyService repassa uma requisição de mint ao entry point fixo
// mint(address,uint256) de um alvo escolhido pelo caller. Mesmo bit de
// permissão do saque direto: é um canal secundário de distribuição sob o mesmo
// nível de confiança. Não tem contabilidade de cota própria; fora do log de
// eventos, nenhum estado é mutado aqui.
type MintProxyService struct {
	Gate    domain.AccessGate
	Invoker domain.MintInvoker
	Events  domain.EventSink

	// Slots limita invocações externas em voo. nil desliga o limite; o prazo
	// de espera por slot é configurado no próprio pool.
	Slots domain.SlotPool
	Now   func() time.Time
}

func (s MintProxyService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s MintProxyService) Mint(ctx context.Context, caller, target, to common.Address, amount *big.Int) error {
	if err := requireCapability(ctx, s.Gate, caller, domain.CapUser); err != nil {
		return err
	}
	if target == (common.Address{}) || to == (common.Address{}) {
		return fmt.Errorf("%w: target and to must be non-null", domain.ErrInvalidInput)
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: amount must be positive", domain.ErrInvalidInput)
	}
	if amount.Cmp(domain.MaxMintAmount) > 0 {
		return fmt.Errorf("%w: amount %s exceeds 2^192-1", domain.ErrValueOutOfRange, amount)
	}

	if s.Slots != nil {
		release, ok := s.Slots.Acquire(ctx)
		if !ok {
			return fmt.Errorf("%w: no slot for external call", domain.ErrProxyCallFailed)
		}
		defer release()
	}

	call := domain.MintCall{Target: target, To: to, Amount: amount, GasBudget: MintGasBudget}
	if err := s.Invoker.Invoke(ctx, call); err != nil {
		return fmt.Errorf("%w: mint on %s: %v", domain.ErrProxyCallFailed, target.Hex(), err)
	}

	if s.Events != nil {
		_ = s.Events.Record(ctx, domain.Event{
			Kind:   domain.EventMintProxied,
			User:   to,
			Target: target,
			Amount: new(big.Int).Set(amount),
			At:     s.now(),
		})
	}
	return nil
}
