package infra

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"faucet-gateway/faucet/domain"

	_ "modernc.org/sqlite"
)

// SQLLedger implementa domain.Ledger com database/sql sobre SQLite.
//
// A tabela só tem unicidade em tx_hash (uma transação nunca gera dois
// registros). Usuário e carteira NÃO têm constraint: quem garante I1/I2 é o
// gate + engine.
type SQLLedger struct {
	db *sql.DB
}

func NewSQLLedger(db *sql.DB) *SQLLedger {
	return &SQLLedger{db: db}
}

// OpenSQLite abre o banco com uma única conexão (SQLite serializa escrita de
// qualquer forma, e ":memory:" só existe dentro de uma conexão).
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

const claimsSchema = `
CREATE TABLE IF NOT EXISTS faucet_claims (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL,
	username TEXT NOT NULL DEFAULT '',
	first_name TEXT NOT NULL DEFAULT '',
	last_name TEXT NOT NULL DEFAULT '',
	last_request TEXT NOT NULL,
	wallet_address TEXT NOT NULL,
	tx_hash TEXT NOT NULL UNIQUE
);
`

// Init cria a tabela. Chamado uma vez no start, nunca durante um claim.
func (s *SQLLedger) Init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, claimsSchema)
	return err
}

func (s *SQLLedger) ListAll(ctx context.Context) ([]domain.Record, error) {
	query := `SELECT user_id, username, first_name, last_name, last_request, wallet_address, tx_hash FROM faucet_claims ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	defer func() { _ = rows.Close() }()

	result := make([]domain.Record, 0)
	for rows.Next() {
		var rec domain.Record
		var ts string
		if err := rows.Scan(&rec.UserID, &rec.Username, &rec.FirstName, &rec.LastName, &ts, &rec.WalletAddress, &rec.TxReference); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
		}
		if rec.LastRequestTime, err = domain.ParseTime(ts); err != nil {
			return nil, fmt.Errorf("%w: row for tx %s: %w", domain.ErrStoreUnavailable, rec.TxReference, err)
		}
		rec.WalletAddress = domain.NormalizeAddress(rec.WalletAddress)
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return result, nil
}

func (s *SQLLedger) Append(ctx context.Context, rec domain.Record) error {
	query := `
		INSERT INTO faucet_claims (user_id, username, first_name, last_name, last_request, wallet_address, tx_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.UserID, rec.Username, rec.FirstName, rec.LastName,
		domain.FormatTime(rec.LastRequestTime), domain.NormalizeAddress(rec.WalletAddress), rec.TxReference,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: tx %s already recorded", domain.ErrStoreConflict, rec.TxReference)
		}
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

var _ domain.Ledger = (*SQLLedger)(nil)
