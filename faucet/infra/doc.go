// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - KeyedGate: tabela de semáforos por chave (usuário / carteira)
//   - Ledgers: memória, Redis, SQLite, Postgres (GORM), Google Sheets
//   - Stats: memória, Redis, OpenTelemetry
//   - Colaboradores: validação de endereço EVM, disburser EVM/stub, membership estática
//   - ThrottleStore: token bucket por chave usando golang.org/x/time/rate
package infra
