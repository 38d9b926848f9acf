package domain

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Record é uma linha do histórico: uma concessão concluída com sucesso.
//
// Username/FirstName/LastName são apenas metadados de auditoria; a engine de
// elegibilidade nunca os consulta.
type Record struct {
	UserID          string    `json:"user_id"`
	Username        string    `json:"username,omitempty"`
	FirstName       string    `json:"first_name,omitempty"`
	LastName        string    `json:"last_name,omitempty"`
	LastRequestTime time.Time `json:"last_request"`
	WalletAddress   string    `json:"wallet_address"`
	TxReference     string    `json:"tx_hash"`
}

// Columns é a ordem das colunas do ledger (planilha / export).
var Columns = []string{
	"User ID", "Username", "First Name", "Last Name",
	"Last Request", "Wallet Address", "Tx Hash",
}

var (
	ErrStoreUnavailable = errors.New("ledger store unavailable")
	ErrStoreConflict    = errors.New("ledger store conflict")
)

// Ledger é o histórico append-only de concessões.
//
// ListAll devolve o histórico completo no momento da chamada (snapshot).
// Deve falhar fechado: se o store não responde, retorna erro envolvendo
// ErrStoreUnavailable, nunca uma lista vazia.
//
// Append não oferece compare-and-swap; as invariantes de unicidade são
// responsabilidade da engine + gate, não do store.
type Ledger interface {
	ListAll(ctx context.Context) ([]Record, error)
	Append(ctx context.Context, rec Record) error
}

// NormalizeAddress aplica a normalização de caixa usada em todo o histórico.
func NormalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// FormatTime serializa LastRequestTime para os backends textuais.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ParseTime aceita RFC 3339 e o formato ISO sem fuso gravado pelo bot antigo
// (datetime.isoformat()), interpretado como UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05.999999999", "2006-01-02 15:04:05.999999999"} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("invalid timestamp " + strings.TrimSpace(s))
}
