package domain

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type EventKind string

const (
	EventWithdrawn          EventKind = "withdrawn"
	EventMintProxied        EventKind = "mint_proxied"
	EventEpochParamsUpdated EventKind = "epoch_params_updated"
	EventUserLimitUpdated   EventKind = "user_limit_updated"
	EventUserAdded          EventKind = "user_added"
	EventUserRemoved        EventKind = "user_removed"
)

// Event é um registro observável para auditoria/telemetria.
//
// Observação: cuidado com cardinalidade ao persistir por endereço — salvar
// User/Target sem controle pode explodir o número de chaves em uma base como Redis.
type Event struct {
	Kind EventKind
	// User é o endereço afetado (destino do saque, beneficiário do mint,
	// usuário adicionado/removido ou com override alterado).
	User common.Address
	// Target é o alvo externo, só preenchido em EventMintProxied.
	Target common.Address
	Amount *big.Int

	At time.Time
}

// EventSink é a estratégia de persistência de eventos.
//
// Implementações podem armazenar em Redis, memória, etc. Os serviços tratam
// erro como best-effort: falha ao registrar evento não derruba a operação.
type EventSink interface {
	Record(ctx context.Context, ev Event) error
}
