package infra

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"faucet-gateway/faucet/domain"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsLedger usa uma aba do Google Sheets como histórico: uma linha por
// concessão, colunas em domain.Columns, cabeçalho na linha 1.
//
// A API só oferece leitura de faixa e append; não há transação nem
// unicidade. Linhas com timestamp ilegível fazem a leitura falhar (pular a
// linha apagaria um vínculo de carteira).
type SheetsLedger struct {
	svc           *sheets.Service
	spreadsheetID string
	sheet         string
}

// NewSheetsService autentica com um arquivo de service account.
func NewSheetsService(ctx context.Context, credsFile string) (*sheets.Service, error) {
	svc, err := sheets.NewService(ctx,
		option.WithCredentialsFile(credsFile),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

func NewSheetsLedger(svc *sheets.Service, spreadsheetID, sheet string) *SheetsLedger {
	if strings.TrimSpace(sheet) == "" {
		sheet = "Sheet1"
	}
	return &SheetsLedger{svc: svc, spreadsheetID: spreadsheetID, sheet: sheet}
}

var ErrSheetHeaderMismatch = errors.New("sheet header does not match ledger columns")

// EnsureHeader é o bootstrap explícito: grava o cabeçalho numa aba vazia.
// Uma aba com outro cabeçalho é erro; o conteúdo nunca é apagado.
func (l *SheetsLedger) EnsureHeader(ctx context.Context) error {
	resp, err := l.svc.Spreadsheets.Values.Get(l.spreadsheetID, l.sheet+"!1:1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%w: read header: %w", domain.ErrStoreUnavailable, err)
	}

	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		got := resp.Values[0]
		if len(got) < len(domain.Columns) {
			return fmt.Errorf("%w: got %v", ErrSheetHeaderMismatch, got)
		}
		for i, col := range domain.Columns {
			if strings.TrimSpace(fmt.Sprint(got[i])) != col {
				return fmt.Errorf("%w: got %v", ErrSheetHeaderMismatch, got)
			}
		}
		return nil
	}

	header := make([]interface{}, len(domain.Columns))
	for i, col := range domain.Columns {
		header[i] = col
	}
	_, err = l.svc.Spreadsheets.Values.Update(l.spreadsheetID, l.sheet+"!A1:G1", &sheets.ValueRange{
		Values: [][]interface{}{header},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%w: write header: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

func (l *SheetsLedger) ListAll(ctx context.Context) ([]domain.Record, error) {
	resp, err := l.svc.Spreadsheets.Values.Get(l.spreadsheetID, l.sheet+"!A2:G").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: read rows: %w", domain.ErrStoreUnavailable, err)
	}

	out := make([]domain.Record, 0, len(resp.Values))
	for i, row := range resp.Values {
		if isBlankRow(row) {
			continue
		}
		rec, err := parseSheetRow(row)
		if err != nil {
			return nil, fmt.Errorf("%w: sheet row %d: %w", domain.ErrStoreUnavailable, i+2, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (l *SheetsLedger) Append(ctx context.Context, rec domain.Record) error {
	row := []interface{}{
		rec.UserID,
		rec.Username,
		rec.FirstName,
		rec.LastName,
		domain.FormatTime(rec.LastRequestTime),
		domain.NormalizeAddress(rec.WalletAddress),
		rec.TxReference,
	}
	_, err := l.svc.Spreadsheets.Values.Append(l.spreadsheetID, l.sheet+"!A:G", &sheets.ValueRange{
		Values: [][]interface{}{row},
	}).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%w: append row: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

func parseSheetRow(row []interface{}) (domain.Record, error) {
	cell := func(i int) string {
		if i >= len(row) || row[i] == nil {
			return ""
		}
		return strings.TrimSpace(fmt.Sprint(row[i]))
	}

	rec := domain.Record{
		UserID:        cell(0),
		Username:      cell(1),
		FirstName:     cell(2),
		LastName:      cell(3),
		WalletAddress: domain.NormalizeAddress(cell(5)),
		TxReference:   cell(6),
	}
	if rec.UserID == "" {
		return domain.Record{}, errors.New("missing user id")
	}
	t, err := domain.ParseTime(cell(4))
	if err != nil {
		return domain.Record{}, err
	}
	rec.LastRequestTime = t
	return rec, nil
}

func isBlankRow(row []interface{}) bool {
	for _, c := range row {
		if strings.TrimSpace(fmt.Sprint(c)) != "" {
			return false
		}
	}
	return true
}

var _ domain.Ledger = (*SheetsLedger)(nil)
