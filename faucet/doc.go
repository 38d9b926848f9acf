// Package faucet expõe o coordinator de claims por HTTP (net/http) e concentra
// o texto mostrado ao usuário.
//
// Visão geral (camadas):
//
//   - domain: registros, veredito, contratos (ledger, gate, colaboradores) e erros
//   - application: engine de elegibilidade, gate com timeout e o coordinator
//   - infra: backends de ledger, gate por chave, disbursers, stats e throttle
//   - telegram: bot de chat e membership por canal
//   - faucet (este pacote): handler HTTP, throttle por cliente e tradução de erro para status/texto
//
// Fluxo de um POST /claim:
//
//  1. Throttle por cliente (IP/header/XFF); excedeu, 429
//  2. Decodifica o corpo e lê o id do usuário do header confiável
//  3. Chama o coordinator
//  4. Traduz o resultado para status HTTP e mensagem (Renderer)
package faucet
