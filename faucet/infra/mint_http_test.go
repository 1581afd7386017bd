package infra

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"treasury-faucet/faucet/domain"
)

func TestHTTPMintInvoker_EncodesCalldataAndGasBudget(t *testing.T) {
	target := common.HexToAddress("0x000000000000000000000000000000000000dEaD")
	to := common.HexToAddress("0xbeef")
	amount := big.NewInt(42)

	var gotPath, gotGas, gotInput string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotGas = r.Header.Get("X-Gas-Budget")
		var req struct {
			Input string `json:"input"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotInput = req.Input
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	inv := &HTTPMintInvoker{BaseURL: srv.URL}
	err := inv.Invoke(context.Background(), domain.MintCall{
		Target:    target,
		To:        to,
		Amount:    amount,
		GasBudget: 81000,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotPath != "/"+target.Hex() {
		t.Fatalf("expected path /%s, got %s", target.Hex(), gotPath)
	}
	if gotGas != "81000" {
		t.Fatalf("expected gas budget header 81000, got %q", gotGas)
	}

	data, err := hexutil.Decode(gotInput)
	if err != nil {
		t.Fatalf("input is not hex: %v", err)
	}
	if len(data) != 4+32+32 {
		t.Fatalf("expected 68 bytes of calldata, got %d", len(data))
	}
	if string(data[:4]) != string(mintSelector) {
		t.Fatalf("expected mint selector %x, got %x", mintSelector, data[:4])
	}
	if string(data[4:36]) != string(common.LeftPadBytes(to.Bytes(), 32)) {
		t.Fatalf("expected padded to address in first word")
	}
	if new(big.Int).SetBytes(data[36:68]).Cmp(amount) != 0 {
		t.Fatalf("expected amount 42 in second word, got %s", new(big.Int).SetBytes(data[36:68]))
	}
}

func TestHTTPMintInvoker_NonSuccessStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "mint reverted", http.StatusBadRequest)
	}))
	defer srv.Close()

	inv := &HTTPMintInvoker{BaseURL: srv.URL}
	err := inv.Invoke(context.Background(), domain.MintCall{
		Target:    common.HexToAddress("0x01"),
		To:        common.HexToAddress("0x02"),
		Amount:    big.NewInt(1),
		GasBudget: 81000,
	})
	if err == nil {
		t.Fatalf("expected error for non-2xx response")
	}
	if !strings.Contains(err.Error(), "mint reverted") {
		t.Fatalf("expected target message in error, got %v", err)
	}
}

func TestHTTPSettler_PostsPayout(t *testing.T) {
	var got settleRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := &HTTPSettler{URL: srv.URL}
	to := common.HexToAddress("0x0a")
	if err := s.Transfer(context.Background(), to, big.NewInt(7)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.To != to.Hex() || got.Amount != "7" {
		t.Fatalf("expected payout to=%s amount=7, got %+v", to.Hex(), got)
	}
}

func TestMemoryLedger_AccumulatesCredits(t *testing.T) {
	l := NewMemoryLedger()
	to := common.HexToAddress("0x0a")

	_ = l.Transfer(context.Background(), to, big.NewInt(3))
	_ = l.Transfer(context.Background(), to, big.NewInt(4))

	if got := l.BalanceOf(to); got.Cmp(big.NewInt(7)) != 0 {
		t.Fatalf("expected balance 7, got %s", got)
	}
}
