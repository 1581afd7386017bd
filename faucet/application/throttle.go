package application

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"treasury-faucet/faucet/domain"
)

// Contabilidade pura da cota por época. As funções operam sobre uma visão do
// estado e nunca tocam infraestrutura, para permitir teste de unidade direto.

func effectiveLimit(r domain.StateReader, user common.Address) *big.Int {
	if ov := r.Override(user); ov != nil && ov.Sign() != 0 {
		return new(big.Int).Set(ov)
	}
	if d := r.Config().DefaultLimit; d != nil {
		return new(big.Int).Set(d)
	}
	return new(big.Int)
}

// withdrawnInEpoch retorna o acumulado da época atual; um stat de época antiga
// vale zero (o reset acontece de fato só no próximo saque).
func withdrawnInEpoch(r domain.StateReader, user common.Address, now time.Time) *big.Int {
	st, ok := r.Stat(user)
	if !ok || st.WithdrawnInEpoch == nil {
		return new(big.Int)
	}
	cfg := r.Config()
	if cfg.EpochIndex(st.LastWithdrawal) != cfg.EpochIndex(now) {
		return new(big.Int)
	}
	return new(big.Int).Set(st.WithdrawnInEpoch)
}

// remainingAllowance nunca retorna negativo: se um manager baixar o limite no
// meio da época, o acumulado pode exceder o novo limite e a cota vale zero.
func remainingAllowance(r domain.StateReader, user common.Address, now time.Time) *big.Int {
	rem := effectiveLimit(r, user)
	rem.Sub(rem, withdrawnInEpoch(r, user, now))
	if rem.Sign() < 0 {
		rem.SetInt64(0)
	}
	return rem
}

// recordWithdrawal: stat de época antiga é sobrescrito, da época atual acumula;
// o timestamp sempre avança para now.
func recordWithdrawal(w domain.StateWriter, user common.Address, amount *big.Int, now time.Time) {
	st, ok := w.Stat(user)
	cfg := w.Config()
	if !ok || st.WithdrawnInEpoch == nil || cfg.EpochIndex(st.LastWithdrawal) != cfg.EpochIndex(now) {
		st.WithdrawnInEpoch = new(big.Int).Set(amount)
	} else {
		st.WithdrawnInEpoch = new(big.Int).Add(st.WithdrawnInEpoch, amount)
	}
	st.LastWithdrawal = now
	w.SetStat(user, st)
}

// Throttle expõe as consultas read-only da cota. Não exige permissão.
type Throttle struct {
	State domain.State
	// Now permite injetar o relógio nos testes; nil usa time.Now.
	Now func() time.Time
}

func (t Throttle) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

func (t Throttle) EffectiveLimit(user common.Address) (*big.Int, error) {
	var out *big.Int
	err := t.State.View(func(r domain.StateReader) error {
		out = effectiveLimit(r, user)
		return nil
	})
	return out, err
}

func (t Throttle) WithdrawnInEpoch(user common.Address) (*big.Int, error) {
	var out *big.Int
	err := t.State.View(func(r domain.StateReader) error {
		out = withdrawnInEpoch(r, user, t.now())
		return nil
	})
	return out, err
}

func (t Throttle) RemainingAllowance(user common.Address) (*big.Int, error) {
	var out *big.Int
	err := t.State.View(func(r domain.StateReader) error {
		out = remainingAllowance(r, user, t.now())
		return nil
	})
	return out, err
}

// NextEpochStart informa quando a época atual termina (base do Retry-After).
func (t Throttle) NextEpochStart() (time.Time, error) {
	var out time.Time
	err := t.State.View(func(r domain.StateReader) error {
		out = r.Config().NextEpochStart(t.now())
		return nil
	})
	return out, err
}
