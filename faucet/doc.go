// Package faucet fornece os adapters HTTP (net/http) do tesouro com cota por época.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: casos de uso (cota por época, saque, proxy de mint, usuários, admin)
//   - infra: implementações concretas (state store, gate, token bucket, sinks, chamadas externas)
//   - faucet (este pacote): handlers HTTP + extração do caller + tradução de erro para status
//
// Fluxo de uma operação:
//
//  1. Extrai o caller do header X-Caller-Address
//  2. Chama a camada application, que valida permissão e executa a operação inteira
//     dentro da unidade de trabalho (falha = nenhuma mutação)
//  3. Traduz a taxonomia de erro para status HTTP (403/400/429/409/422/502)
//  4. Em QuotaExceeded, responde Retry-After com os segundos até a próxima época
//
// Variáveis de ambiente do binário (cmd/treasury) controlam o comportamento,
// como EPOCH_SECONDS, DEFAULT_LIMIT, MINT_TARGET_BASE_URL e EVENTS_REDIS_ADDR.
package faucet
