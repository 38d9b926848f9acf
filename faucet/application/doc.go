// Package application contém os casos de uso do faucet: a engine de
// elegibilidade (decisão pura sobre um snapshot do histórico), o serviço de
// gate (aquisição com timeout) e o coordinator que orquestra um claim.
//
// Ele depende apenas do pacote domain e não conhece net/http nem drivers.
// Ex.: Engine.Evaluate(history, candidate) retorna um Verdict
// (eligible / cooldown + remaining / wallet mismatch / wallet já usada).
package application
