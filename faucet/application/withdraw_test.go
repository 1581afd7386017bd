package application

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"treasury-faucet/faucet/domain"
	"treasury-faucet/faucet/infra"
)

func withdrawalFixture(epoch time.Duration, limit, pool int64) (WithdrawalService, *infra.MemoryState, *fakeGate, *fakeTransferor, *infra.MemoryEvents) {
	st := newState(epoch, limit)
	_ = st.Update(func(tx domain.StateWriter) error {
		tx.CreditPool(big.NewInt(pool))
		return nil
	})

	gate := newFakeGate()
	tr := &fakeTransferor{}
	ev := infra.NewMemoryEvents()
	svc := WithdrawalService{State: st, Gate: gate, Transfer: tr, Events: ev}
	return svc, st, gate, tr, ev
}

func TestWithdraw_UnauthorizedWithoutUserCapability(t *testing.T) {
	svc, _, _, tr, _ := withdrawalFixture(10*time.Second, 10, 100)
	caller := common.HexToAddress("0x01")

	err := svc.Withdraw(context.Background(), caller, common.HexToAddress("0x02"), big.NewInt(1))
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if len(tr.calls) != 0 {
		t.Fatalf("expected no transfer on failure")
	}
}

func TestWithdraw_InvalidInput(t *testing.T) {
	svc, _, gate, _, _ := withdrawalFixture(10*time.Second, 10, 100)
	caller := common.HexToAddress("0x01")
	gate.masks[caller] = domain.CapUser

	ctx := context.Background()
	if err := svc.Withdraw(ctx, caller, common.Address{}, big.NewInt(1)); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for null destination, got %v", err)
	}
	if err := svc.Withdraw(ctx, caller, common.HexToAddress("0x02"), big.NewInt(0)); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for zero amount, got %v", err)
	}
	if err := svc.Withdraw(ctx, caller, common.HexToAddress("0x02"), nil); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for nil amount, got %v", err)
	}
}

func TestWithdraw_QuotaBoundary(t *testing.T) {
	svc, _, gate, _, _ := withdrawalFixture(10*time.Second, 10, 100)
	caller := common.HexToAddress("0x01")
	gate.masks[caller] = domain.CapUser
	ctx := context.Background()

	// limit+1 falha, limit exato passa
	if err := svc.Withdraw(ctx, caller, common.HexToAddress("0x02"), big.NewInt(11)); !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded for limit+1, got %v", err)
	}
	if err := svc.Withdraw(ctx, caller, common.HexToAddress("0x02"), big.NewInt(10)); err != nil {
		t.Fatalf("expected exact-limit withdrawal to succeed, got %v", err)
	}
}

func TestWithdraw_PoolExhausted(t *testing.T) {
	svc, _, gate, _, _ := withdrawalFixture(10*time.Second, 10, 5)
	caller := common.HexToAddress("0x01")
	gate.masks[caller] = domain.CapUser

	err := svc.Withdraw(context.Background(), caller, common.HexToAddress("0x02"), big.NewInt(6))
	if !errors.Is(err, domain.ErrPoolExhausted) {
		t.Fatalf("expected ErrPoolExhausted, got %v", err)
	}
}

func TestWithdraw_SuccessUpdatesStatPoolAndTransfers(t *testing.T) {
	svc, st, gate, tr, ev := withdrawalFixture(10*time.Second, 10, 100)
	caller := common.HexToAddress("0x01")
	dest := common.HexToAddress("0x02")
	gate.masks[caller] = domain.CapUser
	now := time.Unix(105, 0)
	svc.Now = func() time.Time { return now }

	if err := svc.Withdraw(context.Background(), caller, dest, big.NewInt(3)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_ = st.View(func(r domain.StateReader) error {
		got, ok := r.Stat(caller)
		if !ok || got.WithdrawnInEpoch.Cmp(big.NewInt(3)) != 0 || !got.LastWithdrawal.Equal(now) {
			t.Fatalf("expected stat {105, 3}, got %+v ok=%v", got, ok)
		}
		if r.PoolBalance().Cmp(big.NewInt(97)) != 0 {
			t.Fatalf("expected pool 97, got %s", r.PoolBalance())
		}
		return nil
	})

	if len(tr.calls) != 1 || tr.calls[0].to != dest || tr.calls[0].amount.Cmp(big.NewInt(3)) != 0 {
		t.Fatalf("expected one transfer of 3 to %s, got %+v", dest.Hex(), tr.calls)
	}
	if ev.Total()[domain.EventWithdrawn] != 1 {
		t.Fatalf("expected one Withdrawn event")
	}
}

func TestWithdraw_AccumulatesWithinEpoch(t *testing.T) {
	svc, st, gate, _, _ := withdrawalFixture(10*time.Second, 10, 100)
	caller := common.HexToAddress("0x01")
	gate.masks[caller] = domain.CapUser
	svc.Now = func() time.Time { return time.Unix(105, 0) }
	ctx := context.Background()

	if err := svc.Withdraw(ctx, caller, common.HexToAddress("0x02"), big.NewInt(4)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.Withdraw(ctx, caller, common.HexToAddress("0x02"), big.NewInt(5)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_ = st.View(func(r domain.StateReader) error {
		got, _ := r.Stat(caller)
		if got.WithdrawnInEpoch.Cmp(big.NewInt(9)) != 0 {
			t.Fatalf("expected 4+5=9 within the epoch, got %s", got.WithdrawnInEpoch)
		}
		return nil
	})
}

func TestWithdraw_TransferFailureRollsBackEverything(t *testing.T) {
	svc, st, gate, tr, ev := withdrawalFixture(10*time.Second, 10, 100)
	caller := common.HexToAddress("0x01")
	gate.masks[caller] = domain.CapUser
	tr.err = errors.New("wire down")

	err := svc.Withdraw(context.Background(), caller, common.HexToAddress("0x02"), big.NewInt(3))
	if !errors.Is(err, domain.ErrProxyCallFailed) {
		t.Fatalf("expected ErrProxyCallFailed, got %v", err)
	}

	// sem mutação parcial: stat e pool intactos, nenhum evento
	_ = st.View(func(r domain.StateReader) error {
		if _, ok := r.Stat(caller); ok {
			t.Fatalf("expected no stat after rollback")
		}
		if r.PoolBalance().Cmp(big.NewInt(100)) != 0 {
			t.Fatalf("expected pool 100 after rollback, got %s", r.PoolBalance())
		}
		return nil
	})
	if ev.Total()[domain.EventWithdrawn] != 0 {
		t.Fatalf("expected no event after rollback")
	}
}

// Uma leitura concorrente disparada durante a transferência externa só pode
// voltar depois do commit — e já enxergando a cota gasta e o pool debitado.
func TestWithdraw_ReentrantReadSerializesAfterCommit(t *testing.T) {
	svc, st, gate, tr, _ := withdrawalFixture(10*time.Second, 10, 100)
	caller := common.HexToAddress("0x01")
	gate.masks[caller] = domain.CapUser
	now := time.Unix(105, 0)
	svc.Now = func() time.Time { return now }
	thr := Throttle{State: st, Now: svc.Now}

	type observation struct {
		allowance *big.Int
		pool      *big.Int
	}
	results := make(chan observation, 1)

	tr.hook = func(common.Address, *big.Int) {
		go func() {
			rem, err := thr.RemainingAllowance(caller)
			if err != nil {
				t.Errorf("reentrant read failed: %v", err)
			}
			var pool *big.Int
			_ = st.View(func(r domain.StateReader) error {
				pool = r.PoolBalance()
				return nil
			})
			results <- observation{allowance: rem, pool: pool}
		}()

		// com a transferência em voo, a leitura precisa ficar bloqueada
		select {
		case obs := <-results:
			t.Errorf("reentrant read returned mid-transfer: %+v", obs)
			results <- obs
		case <-time.After(50 * time.Millisecond):
		}
	}

	if err := svc.Withdraw(context.Background(), caller, common.HexToAddress("0x02"), big.NewInt(3)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	obs := <-results
	if obs.allowance.Cmp(big.NewInt(7)) != 0 {
		t.Fatalf("expected reentrant read to see allowance 7 after commit, got %s", obs.allowance)
	}
	if obs.pool.Cmp(big.NewInt(97)) != 0 {
		t.Fatalf("expected reentrant read to see pool 97 after commit, got %s", obs.pool)
	}
}

// Quando a transferência falha, a leitura concorrente nunca enxerga o débito
// descartado: nem stat, nem pool.
func TestWithdraw_ReentrantReadNeverSeesRolledBackDebit(t *testing.T) {
	svc, st, gate, tr, _ := withdrawalFixture(10*time.Second, 10, 100)
	caller := common.HexToAddress("0x01")
	gate.masks[caller] = domain.CapUser
	now := time.Unix(105, 0)
	svc.Now = func() time.Time { return now }
	thr := Throttle{State: st, Now: svc.Now}
	tr.err = errors.New("wire down")

	type observation struct {
		allowance *big.Int
		pool      *big.Int
	}
	results := make(chan observation, 1)

	tr.hook = func(common.Address, *big.Int) {
		go func() {
			rem, _ := thr.RemainingAllowance(caller)
			var pool *big.Int
			_ = st.View(func(r domain.StateReader) error {
				pool = r.PoolBalance()
				return nil
			})
			results <- observation{allowance: rem, pool: pool}
		}()
	}

	if err := svc.Withdraw(context.Background(), caller, common.HexToAddress("0x02"), big.NewInt(3)); !errors.Is(err, domain.ErrProxyCallFailed) {
		t.Fatalf("expected ErrProxyCallFailed, got %v", err)
	}

	obs := <-results
	if obs.allowance.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("expected full allowance after rollback, got %s", obs.allowance)
	}
	if obs.pool.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("expected untouched pool after rollback, got %s", obs.pool)
	}
}

// Cenário de ponta a ponta: época de 1s, limite 1, pool com 20 unidades.
func TestWithdraw_EndToEndEpochRollover(t *testing.T) {
	svc, _, gate, _, _ := withdrawalFixture(1*time.Second, 1, 20)
	caller := common.HexToAddress("0x01")
	gate.masks[caller] = domain.CapUser
	ctx := context.Background()

	now := time.Unix(1000, 0)
	svc.Now = func() time.Time { return now }

	if err := svc.Withdraw(ctx, caller, common.HexToAddress("0x02"), big.NewInt(1)); err != nil {
		t.Fatalf("expected first withdrawal to succeed, got %v", err)
	}
	// mesmo instante: cota da época esgotada
	if err := svc.Withdraw(ctx, caller, common.HexToAddress("0x02"), big.NewInt(1)); !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded at same instant, got %v", err)
	}

	// época seguinte: cota volta inteira
	now = time.Unix(1001, 0)
	if err := svc.Withdraw(ctx, caller, common.HexToAddress("0x02"), big.NewInt(1)); err != nil {
		t.Fatalf("expected withdrawal in next epoch to succeed, got %v", err)
	}
}
