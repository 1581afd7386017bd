package domain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
)

// MaxMintAmount é o teto de largura fixa (2^192 - 1) para valores repassados
// pelo proxy de mint: impede passar um valor que estoure um alvo de largura menor.
var MaxMintAmount = new(big.Int).Sub(math.BigPow(2, 192), common.Big1)

// MintCall descreve a invocação do entry point fixo mint(address,uint256) de um alvo.
type MintCall struct {
	Target common.Address
	To     common.Address
	Amount *big.Int
	// GasBudget limita o custo da invocação; a implementação traduz o budget
	// em prazo e leitura limitada de resposta.
	GasBudget uint64
}

// MintInvoker executa a chamada externa limitada. É o único ponto, junto com
// Transferor, em que o controle sai do código deste sistema.
type MintInvoker interface {
	Invoke(ctx context.Context, call MintCall) error
}

// Transferor entrega valor a um destino externo.
type Transferor interface {
	Transfer(ctx context.Context, to common.Address, amount *big.Int) error
}

// SlotPool representa um recurso com capacidade finita (ex: invocações externas
// em voo).
//
// A semântica é: Acquire bloqueia até conseguir uma vaga ou até o ctx encerrar.
// Ao adquirir, retorna uma função de release que deve ser chamada exatamente uma vez.
type SlotPool interface {
	Acquire(ctx context.Context) (release func(), ok bool)
}
