package application

import (
	"context"
	"time"

	"faucet-gateway/faucet/domain"
)

// GateService concentra a regra de aquisição/liberação do gate com timeout,
// sem saber nada sobre HTTP ou sobre o ledger.
type GateService struct {
	Gate           domain.Gate
	AcquireTimeout time.Duration
}

// WithExclusiveAccess executa fn segurando exclusão sobre keys.
//   - Se `AcquireTimeout <= 0`, espera indefinidamente (até ctx cancelar).
//   - Se `AcquireTimeout > 0`, espera até o timeout.
//
// Se o ctx do chamador foi cancelado durante a espera, retorna ctx.Err();
// se apenas o timeout estourou, retorna domain.ErrGateBusy. Em ambos os casos
// fn não é executada.
func (s GateService) WithExclusiveAccess(ctx context.Context, keys []domain.LockKey, fn func(context.Context) error) error {
	if s.Gate == nil {
		return fn(ctx)
	}

	acqCtx := ctx
	if s.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		acqCtx, cancel = context.WithTimeout(ctx, s.AcquireTimeout)
		defer cancel()
	}

	release, ok := s.Gate.Acquire(acqCtx, keys)
	if !ok {
		if err := ctx.Err(); err != nil {
			return err
		}
		return domain.ErrGateBusy
	}
	defer release()

	return fn(ctx)
}

// ClaimKeys deriva as chaves de exclusão de um pedido.
func ClaimKeys(userID, wallet string) []domain.LockKey {
	return []domain.LockKey{domain.UserKey(userID), domain.WalletKey(wallet)}
}
