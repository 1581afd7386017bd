package domain

import "errors"

// Taxonomia de falhas das operações públicas.
//
// Toda falha aborta a operação inteira sem mutação parcial de estado.
// Nenhuma delas é fatal para o serviço: o escopo é sempre uma única operação.
var (
	// ErrUnauthorized: o caller não possui o bit de permissão exigido.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidInput: argumento nulo, zero ou lista vazia.
	ErrInvalidInput = errors.New("invalid input")
	// ErrQuotaExceeded: a cota restante da época atual é insuficiente.
	ErrQuotaExceeded = errors.New("quota exceeded")
	// ErrPoolExhausted: o saldo do pool é insuficiente.
	ErrPoolExhausted = errors.New("pool exhausted")
	// ErrValueOutOfRange: o valor excede o teto de largura fixa (2^192 - 1).
	ErrValueOutOfRange = errors.New("value out of range")
	// ErrProxyCallFailed: a invocação externa não reportou sucesso.
	ErrProxyCallFailed = errors.New("proxy call failed")
)
