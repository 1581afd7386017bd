package application

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"treasury-faucet/faucet/domain"
)

// Admin muta os parâmetros globais da cota e os overrides por usuário.
type Admin struct {
	State  domain.State
	Gate   domain.AccessGate
	Events domain.EventSink
}

func (a Admin) SetEpochParams(ctx context.Context, caller common.Address, length time.Duration, limit *big.Int) error {
	if err := requireCapability(ctx, a.Gate, caller, domain.CapManager); err != nil {
		return err
	}
	if length <= 0 {
		return fmt.Errorf("%w: epoch length must be positive", domain.ErrInvalidInput)
	}
	if limit == nil {
		limit = new(big.Int)
	}

	// Sobrescreve sem reconciliar stats já gravados: um acumulado que exceder
	// o novo limite vale cota zero até o próximo saque resetar o stat.
	err := a.State.Update(func(tx domain.StateWriter) error {
		tx.SetConfig(domain.EpochConfig{EpochLength: length, DefaultLimit: new(big.Int).Set(limit)})
		return nil
	})
	if err != nil {
		return err
	}

	if a.Events != nil {
		_ = a.Events.Record(ctx, domain.Event{
			Kind:   domain.EventEpochParamsUpdated,
			Amount: new(big.Int).Set(limit),
			At:     time.Now(),
		})
	}
	return nil
}

func (a Admin) SetUserLimitOverride(ctx context.Context, caller, user common.Address, limit *big.Int) error {
	if err := requireCapability(ctx, a.Gate, caller, domain.CapManager); err != nil {
		return err
	}
	if user == (common.Address{}) {
		return fmt.Errorf("%w: user is the null address", domain.ErrInvalidInput)
	}
	if limit == nil {
		limit = new(big.Int)
	}

	// zero limpa o override; o usuário volta ao DefaultLimit
	err := a.State.Update(func(tx domain.StateWriter) error {
		tx.SetOverride(user, new(big.Int).Set(limit))
		return nil
	})
	if err != nil {
		return err
	}

	if a.Events != nil {
		_ = a.Events.Record(ctx, domain.Event{
			Kind:   domain.EventUserLimitUpdated,
			User:   user,
			Amount: new(big.Int).Set(limit),
			At:     time.Now(),
		})
	}
	return nil
}
