package domain

import (
	"context"
	"errors"
)

// LockKey identifica um recurso serializado pelo gate (usuário ou carteira).
type LockKey string

func UserKey(userID string) LockKey { return LockKey("user:" + userID) }
func WalletKey(addr string) LockKey { return LockKey("wallet:" + NormalizeAddress(addr)) }

var ErrGateBusy = errors.New("claim gate busy")

// Gate serializa o ciclo ler-avaliar-agir-gravar.
//
// A semântica é: Acquire bloqueia até obter exclusão sobre TODAS as chaves ou
// até o ctx encerrar. Dois holders cujos conjuntos de chaves se intersectam
// nunca executam ao mesmo tempo; conjuntos disjuntos podem.
// Ao adquirir, retorna uma função de release que deve ser chamada exatamente uma vez.
type Gate interface {
	Acquire(ctx context.Context, keys []LockKey) (release func(), ok bool)
}
