package infra

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"faucet-gateway/faucet/domain"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// GormLedger implementa domain.Ledger sobre Postgres via GORM.
type GormLedger struct {
	db *gorm.DB
}

func NewGormLedger(db *gorm.DB) *GormLedger {
	return &GormLedger{db: db}
}

// OpenPostgres conecta e faz ping, no formato do bootstrap das outras bases.
func OpenPostgres(ctx context.Context, dsn string) (*gorm.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("postgres dsn is required")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		return nil, fmt.Errorf("open gorm postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("resolve postgres sql db handle: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Init aplica o schema. Chamado uma vez no start.
func (l *GormLedger) Init(ctx context.Context) error {
	return l.db.WithContext(ctx).AutoMigrate(&claimModel{})
}

func (l *GormLedger) ListAll(ctx context.Context) ([]domain.Record, error) {
	var rows []claimModel
	if err := l.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}

	out := make([]domain.Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toRecord())
	}
	return out, nil
}

func (l *GormLedger) Append(ctx context.Context, rec domain.Record) error {
	row := claimModelFromRecord(rec)
	if err := l.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: tx %s already recorded", domain.ErrStoreConflict, rec.TxReference)
		}
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

type claimModel struct {
	ID            uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	UserID        string    `gorm:"column:user_id;not null;index"`
	Username      string    `gorm:"column:username"`
	FirstName     string    `gorm:"column:first_name"`
	LastName      string    `gorm:"column:last_name"`
	LastRequest   time.Time `gorm:"column:last_request;not null"`
	WalletAddress string    `gorm:"column:wallet_address;not null;index"`
	TxHash        string    `gorm:"column:tx_hash;not null;uniqueIndex"`
}

func (claimModel) TableName() string {
	return "faucet_claims"
}

func claimModelFromRecord(rec domain.Record) claimModel {
	return claimModel{
		UserID:        rec.UserID,
		Username:      rec.Username,
		FirstName:     rec.FirstName,
		LastName:      rec.LastName,
		LastRequest:   rec.LastRequestTime.UTC(),
		WalletAddress: domain.NormalizeAddress(rec.WalletAddress),
		TxHash:        rec.TxReference,
	}
}

func (m claimModel) toRecord() domain.Record {
	return domain.Record{
		UserID:          m.UserID,
		Username:        m.Username,
		FirstName:       m.FirstName,
		LastName:        m.LastName,
		LastRequestTime: m.LastRequest.UTC(),
		WalletAddress:   domain.NormalizeAddress(m.WalletAddress),
		TxReference:     m.TxHash,
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ domain.Ledger = (*GormLedger)(nil)
