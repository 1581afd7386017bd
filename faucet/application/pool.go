package application

import (
	"fmt"
	"math/big"

	"treasury-faucet/faucet/domain"
)

// Pool expõe o saldo compartilhado. Entradas são aceitas incondicionalmente:
// não há permissão nem cota para financiar o tesouro.
type Pool struct {
	State domain.State
}

func (p Pool) Fund(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: amount must be positive", domain.ErrInvalidInput)
	}
	return p.State.Update(func(tx domain.StateWriter) error {
		tx.CreditPool(amount)
		return nil
	})
}

func (p Pool) Balance() (*big.Int, error) {
	var out *big.Int
	err := p.State.View(func(r domain.StateReader) error {
		out = new(big.Int).Set(r.PoolBalance())
		return nil
	})
	return out, err
}
