package application

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"treasury-faucet/faucet/domain"
)

// WithdrawalService orquestra o saque: permissão → validação → cota → saldo do
// pool → atualização do stat → transferência, nessa ordem, com curto-circuito.
type WithdrawalService struct {
	State    domain.State
	Gate     domain.AccessGate
	Transfer domain.Transferor
	Events   domain.EventSink
	Now      func() time.Time
}

func (s WithdrawalService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s WithdrawalService) Withdraw(ctx context.Context, caller, to common.Address, amount *big.Int) error {
	if err := requireCapability(ctx, s.Gate, caller, domain.CapUser); err != nil {
		return err
	}
	if to == (common.Address{}) {
		return fmt.Errorf("%w: destination is the null address", domain.ErrInvalidInput)
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: amount must be positive", domain.ErrInvalidInput)
	}

	now := s.now()
	err := s.State.Update(func(tx domain.StateWriter) error {
		if rem := remainingAllowance(tx, caller, now); amount.Cmp(rem) > 0 {
			return fmt.Errorf("%w: amount %s exceeds remaining allowance %s", domain.ErrQuotaExceeded, amount, rem)
		}
		if amount.Cmp(tx.PoolBalance()) > 0 {
			return fmt.Errorf("%w: amount %s exceeds pool balance %s", domain.ErrPoolExhausted, amount, tx.PoolBalance())
		}

		// Cota e pool são atualizados antes de o controle sair para a
		// transferência: uma operação reentrante durante a chamada externa
		// serializa depois do commit e já enxerga a cota gasta — sem
		// double-spend da mesma época. Se a transferência falhar, a unidade
		// de trabalho descarta todas as mutações.
		recordWithdrawal(tx, caller, amount, now)
		tx.DebitPool(amount)

		if err := s.Transfer.Transfer(ctx, to, amount); err != nil {
			return fmt.Errorf("%w: transfer to %s: %v", domain.ErrProxyCallFailed, to.Hex(), err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.Events != nil {
		_ = s.Events.Record(ctx, domain.Event{
			Kind:   domain.EventWithdrawn,
			User:   to,
			Amount: new(big.Int).Set(amount),
			At:     now,
		})
	}
	return nil
}
