package application

import (
	"context"
	"errors"
	"time"

	"faucet-gateway/faucet/domain"

	"github.com/cenkalti/backoff/v5"
)

// Retry controla novas tentativas de leitura/gravação no ledger.
//
// Só erros ErrStoreUnavailable são repetidos; ErrStoreConflict e demais erros
// voltam na hora. Nunca é usado para o disburser.
type Retry struct {
	Attempts int
	Backoff  time.Duration // espera antes da 2ª tentativa; dobra a cada nova
}

func (r Retry) backOff() backoff.BackOff {
	if r.Backoff <= 0 {
		return &backoff.ZeroBackOff{}
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.Backoff
	b.Multiplier = 2
	b.RandomizationFactor = 0
	if b.MaxInterval < r.Backoff {
		b.MaxInterval = r.Backoff
	}
	return b
}

func (r Retry) do(ctx context.Context, op func(context.Context) error) error {
	attempts := r.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	// last guarda o erro do store: com o contexto encerrado no meio do
	// backoff ele diz mais que context.Canceled.
	var last error
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		last = op(ctx)
		switch {
		case last == nil:
			return struct{}{}, nil
		case errors.Is(last, domain.ErrStoreUnavailable):
			return struct{}{}, last
		}
		return struct{}{}, backoff.Permanent(last)
	},
		backoff.WithBackOff(r.backOff()),
		backoff.WithMaxTries(uint(attempts)),
		backoff.WithMaxElapsedTime(0),
	)
	if err == nil {
		return nil
	}
	if last != nil {
		return last
	}
	return err
}
