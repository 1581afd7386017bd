package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// StateReader é a visão de leitura do estado do tesouro.
type StateReader interface {
	Config() EpochConfig
	// Override retorna o limite por usuário, ou nil quando não há entrada.
	// Valor zero também significa "sem override, use DefaultLimit".
	Override(user common.Address) *big.Int
	Stat(user common.Address) (WithdrawalStat, bool)
	PoolBalance() *big.Int
}

// StateWriter é a visão de escrita dentro de uma unidade de trabalho.
type StateWriter interface {
	StateReader
	SetConfig(cfg EpochConfig)
	// SetOverride grava o override do usuário; zero limpa a entrada.
	SetOverride(user common.Address, limit *big.Int)
	SetStat(user common.Address, st WithdrawalStat)
	CreditPool(amount *big.Int)
	// DebitPool reduz o saldo do pool. O chamador já validou que o saldo cobre
	// o valor; a implementação nunca deixa o pool negativo.
	DebitPool(amount *big.Int)
}

// State é o store de estado com semântica tudo-ou-nada por operação.
//
// Update executa fn sobre um buffer de mutações e só comita quando fn retorna
// nil; qualquer erro descarta todas as mutações feitas pela operação. As
// operações são serializadas: nunca duas intercalando suas mutações.
type State interface {
	View(fn func(StateReader) error) error
	Update(fn func(StateWriter) error) error
}
