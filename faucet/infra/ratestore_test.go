package infra

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

func TestRateStore_LowBurstRejectsSecondImmediateAllow(t *testing.T) {
	s := NewRateStore(0.02, 1)
	caller := common.HexToAddress("0x01")

	if !s.Allow(caller) {
		t.Fatalf("expected first Allow to be true")
	}
	if s.Allow(caller) {
		t.Fatalf("expected second immediate Allow to be false (burst=1)")
	}
}

func TestRateStore_DifferentCallersHaveIndependentBuckets(t *testing.T) {
	s := NewRateStore(0.02, 1)

	if !s.Allow(common.HexToAddress("0x01")) {
		t.Fatalf("expected first caller to pass")
	}
	if !s.Allow(common.HexToAddress("0x02")) {
		t.Fatalf("expected second caller to pass with its own bucket")
	}
}

func TestRateStore_CleanupRemovesIdleEntries(t *testing.T) {
	s := NewRateStore(0.02, 1, WithIdleTTL(2*time.Millisecond), WithCleanupEvery(0))
	caller := common.HexToAddress("0x01")

	if !s.Allow(caller) {
		t.Fatalf("expected first Allow to be true")
	}
	time.Sleep(4 * time.Millisecond)

	s.Cleanup()

	// bucket recriado depois da limpeza => o burst volta a estar disponível
	if !s.Allow(caller) {
		t.Fatalf("expected Allow after cleanup to pass with a fresh bucket")
	}
}
