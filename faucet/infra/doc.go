// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - MemoryState: unidade de trabalho copy-commit com rollback por operação
//   - MemoryGate: gate de permissões que honra o parâmetro de autoridade
//   - RateStore: token bucket por caller usando golang.org/x/time/rate
//   - ChanPool: semáforo simples para limitar chamadas externas em voo
//   - MemoryEvents / RedisEvents: sinks de eventos de auditoria
//   - HTTPMintInvoker / HTTPSettler: as duas saídas de controle do sistema
package infra
