package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// MemoryLedger é um Transferor que credita saldos por endereço em memória.
// Útil para testes e desenvolvimento.
type MemoryLedger struct {
	mu       sync.Mutex
	balances map[common.Address]*big.Int
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{balances: make(map[common.Address]*big.Int)}
}

func (l *MemoryLedger) Transfer(_ context.Context, to common.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	bal := l.balances[to]
	if bal == nil {
		bal = new(big.Int)
		l.balances[to] = bal
	}
	bal.Add(bal, amount)
	return nil
}

func (l *MemoryLedger) BalanceOf(addr common.Address) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if bal := l.balances[addr]; bal != nil {
		return new(big.Int).Set(bal)
	}
	return new(big.Int)
}

// HTTPSettler entrega o valor a um webhook de liquidação externo.
type HTTPSettler struct {
	URL     string
	Client  *http.Client
	Timeout time.Duration
}

type settleRequest struct {
	To     string `json:"to"`
	Amount string `json:"amount"`
}

func (s *HTTPSettler) Transfer(ctx context.Context, to common.Address, amount *big.Int) error {
	body, err := json.Marshal(settleRequest{To: to.Hex(), Amount: amount.String()})
	if err != nil {
		return err
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("settlement returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}
