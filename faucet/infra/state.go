package infra

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"treasury-faucet/faucet/domain"
)

// MemoryState é o store de estado em memória com semântica tudo-ou-nada.
//
// Update clona o estado, roda fn sobre o clone e só troca o estado vivo quando
// fn retorna nil: qualquer erro descarta todas as mutações da operação. O mutex
// serializa as operações — é ele que dá a ordem global única de execução.
type MemoryState struct {
	mu   sync.Mutex
	data stateData
}

type stateData struct {
	cfg       domain.EpochConfig
	overrides map[common.Address]*big.Int
	stats     map[common.Address]domain.WithdrawalStat
	pool      *big.Int
}

func NewMemoryState(cfg domain.EpochConfig) *MemoryState {
	if cfg.DefaultLimit == nil {
		cfg.DefaultLimit = new(big.Int)
	}
	return &MemoryState{data: stateData{
		cfg:       domain.EpochConfig{EpochLength: cfg.EpochLength, DefaultLimit: new(big.Int).Set(cfg.DefaultLimit)},
		overrides: make(map[common.Address]*big.Int),
		stats:     make(map[common.Address]domain.WithdrawalStat),
		pool:      new(big.Int),
	}}
}

func (s *MemoryState) View(fn func(domain.StateReader) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&stateView{d: &s.data})
}

func (s *MemoryState) Update(fn func(domain.StateWriter) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := s.data.clone()
	if err := fn(&stateTx{stateView{d: tx}}); err != nil {
		return err
	}
	s.data = *tx
	return nil
}

func (d *stateData) clone() *stateData {
	out := &stateData{
		cfg:       domain.EpochConfig{EpochLength: d.cfg.EpochLength, DefaultLimit: new(big.Int).Set(d.cfg.DefaultLimit)},
		overrides: make(map[common.Address]*big.Int, len(d.overrides)),
		stats:     make(map[common.Address]domain.WithdrawalStat, len(d.stats)),
		pool:      new(big.Int).Set(d.pool),
	}
	for k, v := range d.overrides {
		out.overrides[k] = new(big.Int).Set(v)
	}
	for k, v := range d.stats {
		out.stats[k] = domain.WithdrawalStat{
			LastWithdrawal:   v.LastWithdrawal,
			WithdrawnInEpoch: new(big.Int).Set(v.WithdrawnInEpoch),
		}
	}
	return out
}

// stateView implementa domain.StateReader. Sempre devolve cópias dos big.Int
// para que nenhum caller mute o estado por fora da unidade de trabalho.
type stateView struct {
	d *stateData
}

func (v *stateView) Config() domain.EpochConfig {
	return domain.EpochConfig{EpochLength: v.d.cfg.EpochLength, DefaultLimit: new(big.Int).Set(v.d.cfg.DefaultLimit)}
}

func (v *stateView) Override(user common.Address) *big.Int {
	ov, ok := v.d.overrides[user]
	if !ok {
		return nil
	}
	return new(big.Int).Set(ov)
}

func (v *stateView) Stat(user common.Address) (domain.WithdrawalStat, bool) {
	st, ok := v.d.stats[user]
	if !ok {
		return domain.WithdrawalStat{}, false
	}
	return domain.WithdrawalStat{
		LastWithdrawal:   st.LastWithdrawal,
		WithdrawnInEpoch: new(big.Int).Set(st.WithdrawnInEpoch),
	}, true
}

func (v *stateView) PoolBalance() *big.Int { return new(big.Int).Set(v.d.pool) }

// stateTx implementa domain.StateWriter sobre o clone da operação.
type stateTx struct {
	stateView
}

func (t *stateTx) SetConfig(cfg domain.EpochConfig) {
	if cfg.DefaultLimit == nil {
		cfg.DefaultLimit = new(big.Int)
	}
	t.d.cfg = domain.EpochConfig{EpochLength: cfg.EpochLength, DefaultLimit: new(big.Int).Set(cfg.DefaultLimit)}
}

func (t *stateTx) SetOverride(user common.Address, limit *big.Int) {
	if limit == nil || limit.Sign() == 0 {
		delete(t.d.overrides, user)
		return
	}
	t.d.overrides[user] = new(big.Int).Set(limit)
}

func (t *stateTx) SetStat(user common.Address, st domain.WithdrawalStat) {
	if st.WithdrawnInEpoch == nil {
		st.WithdrawnInEpoch = new(big.Int)
	}
	t.d.stats[user] = domain.WithdrawalStat{
		LastWithdrawal:   st.LastWithdrawal,
		WithdrawnInEpoch: new(big.Int).Set(st.WithdrawnInEpoch),
	}
}

func (t *stateTx) CreditPool(amount *big.Int) {
	if amount == nil {
		return
	}
	t.d.pool.Add(t.d.pool, amount)
}

func (t *stateTx) DebitPool(amount *big.Int) {
	if amount == nil {
		return
	}
	t.d.pool.Sub(t.d.pool, amount)
	if t.d.pool.Sign() < 0 {
		t.d.pool.SetInt64(0)
	}
}
