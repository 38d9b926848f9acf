package infra

import (
	"context"
	"testing"
	"time"

	"faucet-gateway/faucet/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRedisLedger_AppendThenListAll(t *testing.T) {
	_, rdb := newTestRedis(t)
	l := NewRedisLedger(rdb, WithLedgerPrefix("test:ledger:"))
	ctx := context.Background()

	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, l.Append(ctx, domain.Record{UserID: "u1", Username: "alice", WalletAddress: "0xAAA", LastRequestTime: t0, TxReference: "0x1"}))
	require.NoError(t, l.Append(ctx, domain.Record{UserID: "u2", WalletAddress: "0xbbb", LastRequestTime: t0.Add(time.Hour), TxReference: "0x2"}))

	got, err := l.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "u1", got[0].UserID)
	assert.Equal(t, "alice", got[0].Username)
	assert.Equal(t, "0xaaa", got[0].WalletAddress)
	assert.True(t, got[0].LastRequestTime.Equal(t0))
	assert.Equal(t, "0x2", got[1].TxReference)
}

func TestRedisLedger_EmptyListIsEmptyHistory(t *testing.T) {
	_, rdb := newTestRedis(t)
	got, err := NewRedisLedger(rdb).ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRedisLedger_FailsClosedWhenStoreDown(t *testing.T) {
	mr, rdb := newTestRedis(t)
	l := NewRedisLedger(rdb)
	mr.Close()

	got, err := l.ListAll(context.Background())
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.Nil(t, got)

	err = l.Append(context.Background(), domain.Record{UserID: "u"})
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestRedisLedger_CorruptEntryFailsRead(t *testing.T) {
	mr, rdb := newTestRedis(t)
	_, err := mr.Push("faucet:ledger:records", "{not json")
	require.NoError(t, err)

	_, err = NewRedisLedger(rdb).ListAll(context.Background())
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}
