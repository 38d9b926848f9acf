package infra

import (
	"context"
	"testing"
	"time"

	"faucet-gateway/faucet/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLLedger(t *testing.T) *SQLLedger {
	t.Helper()
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	l := NewSQLLedger(db)
	require.NoError(t, l.Init(context.Background()))
	return l
}

func TestSQLLedger_AppendThenListAll(t *testing.T) {
	l := newTestSQLLedger(t)
	ctx := context.Background()
	t0 := time.Date(2025, 3, 1, 12, 0, 0, 123, time.UTC)

	require.NoError(t, l.Append(ctx, domain.Record{
		UserID: "u1", Username: "alice", FirstName: "Alice", LastName: "L",
		LastRequestTime: t0, WalletAddress: "0xAAA", TxReference: "0x01",
	}))
	require.NoError(t, l.Append(ctx, domain.Record{
		UserID: "u2", LastRequestTime: t0.Add(time.Minute), WalletAddress: "0xbbb", TxReference: "0x02",
	}))

	got, err := l.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "u1", got[0].UserID)
	assert.Equal(t, "Alice", got[0].FirstName)
	assert.Equal(t, "0xaaa", got[0].WalletAddress)
	assert.True(t, got[0].LastRequestTime.Equal(t0))
	assert.Equal(t, "0x02", got[1].TxReference)
}

func TestSQLLedger_DuplicateTxIsConflict(t *testing.T) {
	l := newTestSQLLedger(t)
	ctx := context.Background()
	rec := domain.Record{UserID: "u1", LastRequestTime: time.Now(), WalletAddress: "0xaaa", TxReference: "0x01"}

	require.NoError(t, l.Append(ctx, rec))
	err := l.Append(ctx, rec)
	assert.ErrorIs(t, err, domain.ErrStoreConflict)
}

func TestSQLLedger_SameWalletTwiceIsNotAStoreError(t *testing.T) {
	// unicidade de carteira é regra da engine, não do store.
	l := newTestSQLLedger(t)
	ctx := context.Background()

	require.NoError(t, l.Append(ctx, domain.Record{UserID: "u1", LastRequestTime: time.Now(), WalletAddress: "0xaaa", TxReference: "0x01"}))
	require.NoError(t, l.Append(ctx, domain.Record{UserID: "u1", LastRequestTime: time.Now(), WalletAddress: "0xaaa", TxReference: "0x02"}))
}

func TestSQLLedger_FailsClosedWhenDatabaseClosed(t *testing.T) {
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	l := NewSQLLedger(db)
	require.NoError(t, l.Init(context.Background()))
	require.NoError(t, db.Close())

	got, err := l.ListAll(context.Background())
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.Nil(t, got)
}

func TestSQLLedger_UnparseableTimestampFailsRead(t *testing.T) {
	l := newTestSQLLedger(t)
	_, err := l.db.Exec(`INSERT INTO faucet_claims (user_id, last_request, wallet_address, tx_hash) VALUES ('u', 'garbage', '0xaaa', '0x01')`)
	require.NoError(t, err)

	_, err = l.ListAll(context.Background())
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}
