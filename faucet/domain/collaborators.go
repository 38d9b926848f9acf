package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// AddressValidator valida a sintaxe do endereço de destino.
type AddressValidator interface {
	Valid(addr string) bool
}

// Membership verifica se o usuário pertence à comunidade que libera o faucet.
type Membership interface {
	IsMember(ctx context.Context, userID string) (bool, error)
}

// Disburser transfere o valor fixo para o endereço.
//
// Não é idempotente: uma chamada que expira depois de ter sido aceita pela rede
// pode já ter transferido. Por isso quem chama nunca reenvia automaticamente.
type Disburser interface {
	Send(ctx context.Context, to string, amount decimal.Decimal) (txRef string, err error)
}
