package infra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"faucet-gateway/faucet/domain"

	"github.com/redis/go-redis/v9"
)

type RedisStatsStore struct {
	rdb *redis.Client

	prefix string
	// ttl aplica apenas em chaves de série temporal / por usuário.
	// total é cumulativo e não expira.
	ttl time.Duration

	bucket string // "hour" (padrão) ou "none"

	trackUsers bool
}

type RedisStatsOption func(*RedisStatsStore)

func WithStatsPrefix(prefix string) RedisStatsOption {
	return func(s *RedisStatsStore) {
		s.prefix = strings.Trim(prefix, ":")
	}
}

func WithStatsTTL(d time.Duration) RedisStatsOption {
	return func(s *RedisStatsStore) { s.ttl = d }
}

func WithStatsBucket(bucket string) RedisStatsOption {
	return func(s *RedisStatsStore) { s.bucket = strings.ToLower(strings.TrimSpace(bucket)) }
}

func WithStatsTrackUsers(track bool) RedisStatsOption {
	return func(s *RedisStatsStore) { s.trackUsers = track }
}

func NewRedisStatsStore(rdb *redis.Client, opts ...RedisStatsOption) *RedisStatsStore {
	s := &RedisStatsStore{
		rdb:    rdb,
		prefix: "faucet:stats",
		ttl:    7 * 24 * time.Hour,
		bucket: "hour",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record incrementa o campo do outcome em:
//   - <prefix>:total
//   - <prefix>:hour:<yyyymmddhh> (se bucket == "hour")
//   - <prefix>:user:<id> (se trackUsers)
func (s *RedisStatsStore) Record(ctx context.Context, ev domain.ClaimEvent) error {
	if s == nil || s.rdb == nil {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	field := strings.TrimSpace(ev.Outcome)
	if field == "" {
		field = "unknown"
	}

	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, s.prefix+":total", field, 1)

	if s.bucket == "hour" {
		bucketKey := fmt.Sprintf("%s:hour:%s", s.prefix, at.UTC().Format("2006010215"))
		pipe.HIncrBy(ctx, bucketKey, field, 1)
		if s.ttl > 0 {
			pipe.Expire(ctx, bucketKey, s.ttl)
		}
	}

	if s.trackUsers {
		if u := strings.TrimSpace(ev.UserID); u != "" {
			userKey := s.prefix + ":user:" + u
			pipe.HIncrBy(ctx, userKey, field, 1)
			if s.ttl > 0 {
				pipe.Expire(ctx, userKey, s.ttl)
			}
		}
	}

	_, err := pipe.Exec(ctx)
	return err
}

var _ domain.StatsStore = (*RedisStatsStore)(nil)
