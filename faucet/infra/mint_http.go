package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"treasury-faucet/faucet/domain"
)

// seletor canônico do entry point fixo dos alvos
var mintSelector = crypto.Keccak256([]byte("mint(address,uint256)"))[:4]

// HTTPMintInvoker entrega a invocação de mint a um alvo via HTTP.
//
// O custo é limitado dos dois lados: o budget de gás segue no request para o
// alvo aplicar, e aqui o prazo e a leitura da resposta são limitados — um alvo
// malicioso ou pendurado não segura o serviço.
type HTTPMintInvoker struct {
	// BaseURL é a raiz dos alvos; a chamada vai para BaseURL/<target-hex>.
	BaseURL string
	Client  *http.Client
	// Timeout por invocação; zero usa 5s.
	Timeout time.Duration
	// MaxResponseBytes limita a leitura da resposta; zero usa 4096.
	MaxResponseBytes int64
}

type mintRequest struct {
	Input string `json:"input"`
}

func (i *HTTPMintInvoker) Invoke(ctx context.Context, call domain.MintCall) error {
	data := make([]byte, 0, 4+32+32)
	data = append(data, mintSelector...)
	data = append(data, common.LeftPadBytes(call.To.Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(call.Amount.Bytes(), 32)...)

	body, err := json.Marshal(mintRequest{Input: hexutil.Encode(data)})
	if err != nil {
		return err
	}

	timeout := i.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	url := strings.TrimRight(i.BaseURL, "/") + "/" + call.Target.Hex()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Gas-Budget", strconv.FormatUint(call.GasBudget, 10))

	client := i.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	maxBytes := i.MaxResponseBytes
	if maxBytes <= 0 {
		maxBytes = 4096
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxBytes))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("target %s returned %d: %s", call.Target.Hex(), resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}
