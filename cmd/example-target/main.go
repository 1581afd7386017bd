package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Exemplo: um "alvo mintável" de mentira, para testar o proxy localmente.
// Aceita POST /{target}, decodifica o calldata de mint e acumula os saldos
// em memória. GET /{target}/balances mostra o que foi cunhado.

var mintSelector = crypto.Keccak256([]byte("mint(address,uint256)"))[:4]

type target struct {
	mu       sync.Mutex
	balances map[common.Address]*big.Int
}

type mintRequest struct {
	Input string `json:"input"`
}

func (t *target) mint(w http.ResponseWriter, r *http.Request) {
	var req mintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	data, err := hexutil.Decode(req.Input)
	if err != nil || len(data) != 4+32+32 {
		http.Error(w, "invalid calldata", http.StatusBadRequest)
		return
	}
	if !bytes.Equal(data[:4], mintSelector) {
		http.Error(w, "unknown selector", http.StatusBadRequest)
		return
	}
	to := common.BytesToAddress(data[4:36])
	amount := new(big.Int).SetBytes(data[36:68])

	t.mu.Lock()
	if t.balances[to] == nil {
		t.balances[to] = new(big.Int)
	}
	t.balances[to].Add(t.balances[to], amount)
	t.mu.Unlock()

	log.Printf("mint target=%s to=%s amount=%s gasBudget=%s",
		r.PathValue("addr"), to.Hex(), amount, r.Header.Get("X-Gas-Budget"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (t *target) listBalances(w http.ResponseWriter, _ *http.Request) {
	t.mu.Lock()
	out := make(map[string]string, len(t.balances))
	for addr, bal := range t.balances {
		out[addr.Hex()] = bal.String()
	}
	t.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	t := &target{balances: map[common.Address]*big.Int{}}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /{addr}", t.mint)
	mux.HandleFunc("GET /{addr}/balances", t.listBalances)

	addr := ":8082"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		addr = v
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("example mint target listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}
