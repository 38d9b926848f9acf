package infra

import (
	"context"
	"errors"
	"testing"
	"time"

	"faucet-gateway/faucet/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockGormLedger(t *testing.T) (*GormLedger, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return NewGormLedger(db), mock
}

var claimColumns = []string{"id", "user_id", "username", "first_name", "last_name", "last_request", "wallet_address", "tx_hash"}

func TestGormLedger_ListAll(t *testing.T) {
	l, mock := newMockGormLedger(t)
	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT \* FROM "faucet_claims" ORDER BY id ASC`).
		WillReturnRows(sqlmock.NewRows(claimColumns).
			AddRow(1, "u1", "alice", "", "", t0, "0xAAA", "0x01").
			AddRow(2, "u2", "", "", "", t0.Add(time.Hour), "0xbbb", "0x02"))

	got, err := l.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "0xaaa", got[0].WalletAddress)
	assert.True(t, got[1].LastRequestTime.Equal(t0.Add(time.Hour)))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGormLedger_ListAllFailsClosed(t *testing.T) {
	l, mock := newMockGormLedger(t)
	mock.ExpectQuery(`SELECT \* FROM "faucet_claims"`).WillReturnError(errors.New("connection reset"))

	got, err := l.ListAll(context.Background())
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.Nil(t, got)
}

func TestGormLedger_Append(t *testing.T) {
	l, mock := newMockGormLedger(t)
	mock.ExpectQuery(`INSERT INTO "faucet_claims"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	err := l.Append(context.Background(), domain.Record{UserID: "u1", WalletAddress: "0xAAA", LastRequestTime: time.Now(), TxReference: "0x01"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGormLedger_AppendUniqueViolationIsConflict(t *testing.T) {
	l, mock := newMockGormLedger(t)
	mock.ExpectQuery(`INSERT INTO "faucet_claims"`).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})

	err := l.Append(context.Background(), domain.Record{UserID: "u1", TxReference: "0x01"})
	assert.ErrorIs(t, err, domain.ErrStoreConflict)
}

func TestGormLedger_AppendOtherErrorIsUnavailable(t *testing.T) {
	l, mock := newMockGormLedger(t)
	mock.ExpectQuery(`INSERT INTO "faucet_claims"`).WillReturnError(errors.New("connection refused"))

	err := l.Append(context.Background(), domain.Record{UserID: "u1", TxReference: "0x01"})
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}
