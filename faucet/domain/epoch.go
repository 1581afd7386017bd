package domain

import (
	"math/big"
	"time"
)

// EpochConfig são os parâmetros globais da cota por época.
//
// As épocas são janelas absolutas e alinhadas no tempo Unix: a mesma época para
// todos os endereços, não uma janela deslizante por usuário.
type EpochConfig struct {
	// EpochLength é o comprimento da época. Invariante: > 0 após a inicialização.
	EpochLength time.Duration
	// DefaultLimit é a cota por época de quem não tem override.
	DefaultLimit *big.Int
}

// EpochIndex retorna o índice da época que contém t: floor(unix(t) / epochLength).
func (c EpochConfig) EpochIndex(t time.Time) int64 {
	secs := int64(c.EpochLength / time.Second)
	if secs <= 0 {
		secs = 1
	}
	return t.Unix() / secs
}

// NextEpochStart retorna o instante em que começa a época seguinte à de t.
// Útil para informar ao caller quando a cota volta a ficar disponível.
func (c EpochConfig) NextEpochStart(t time.Time) time.Time {
	secs := int64(c.EpochLength / time.Second)
	if secs <= 0 {
		secs = 1
	}
	return time.Unix((c.EpochIndex(t)+1)*secs, 0)
}

// WithdrawalStat é a contabilidade de saques de um endereço.
//
// Criada de forma preguiçosa no primeiro saque; sobrescrita (reset) quando um
// saque ocorre em uma época nova, acumulada caso contrário.
type WithdrawalStat struct {
	// LastWithdrawal é não-decrescente por endereço.
	LastWithdrawal time.Time
	WithdrawnInEpoch *big.Int
}
