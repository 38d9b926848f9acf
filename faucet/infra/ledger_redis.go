package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"faucet-gateway/faucet/domain"

	"github.com/redis/go-redis/v9"
)

// RedisLedger guarda o histórico numa lista Redis (um JSON por concessão).
//
// RPUSH/LRANGE não dão atomicidade entre leitura e escrita; as invariantes
// continuam sendo responsabilidade do gate + engine.
type RedisLedger struct {
	rdb    *redis.Client
	prefix string
}

type RedisLedgerOption func(*RedisLedger)

func WithLedgerPrefix(prefix string) RedisLedgerOption {
	return func(l *RedisLedger) {
		l.prefix = strings.Trim(prefix, ":")
	}
}

func NewRedisLedger(rdb *redis.Client, opts ...RedisLedgerOption) *RedisLedger {
	l := &RedisLedger{
		rdb:    rdb,
		prefix: "faucet:ledger",
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *RedisLedger) key() string { return l.prefix + ":records" }

func (l *RedisLedger) ListAll(ctx context.Context) ([]domain.Record, error) {
	vals, err := l.rdb.LRange(ctx, l.key(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: redis lrange: %w", domain.ErrStoreUnavailable, err)
	}

	out := make([]domain.Record, 0, len(vals))
	for i, v := range vals {
		var rec domain.Record
		if err := json.Unmarshal([]byte(v), &rec); err != nil {
			return nil, fmt.Errorf("%w: corrupt record at index %d: %w", domain.ErrStoreUnavailable, i, err)
		}
		rec.WalletAddress = domain.NormalizeAddress(rec.WalletAddress)
		out = append(out, rec)
	}
	return out, nil
}

func (l *RedisLedger) Append(ctx context.Context, rec domain.Record) error {
	rec.WalletAddress = domain.NormalizeAddress(rec.WalletAddress)
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if err := l.rdb.RPush(ctx, l.key(), b).Err(); err != nil {
		return fmt.Errorf("%w: redis rpush: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

var _ domain.Ledger = (*RedisLedger)(nil)
