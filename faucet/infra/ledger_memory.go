package infra

import (
	"context"
	"sync"

	"faucet-gateway/faucet/domain"
)

// MemoryLedger é um ledger em memória.
// Útil para testes e desenvolvimento; não sobrevive a restart.
type MemoryLedger struct {
	mu      sync.RWMutex
	records []domain.Record
}

func NewMemoryLedger(seed ...domain.Record) *MemoryLedger {
	l := &MemoryLedger{}
	for _, rec := range seed {
		rec.WalletAddress = domain.NormalizeAddress(rec.WalletAddress)
		l.records = append(l.records, rec)
	}
	return l
}

func (l *MemoryLedger) ListAll(_ context.Context) ([]domain.Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.Record, len(l.records))
	copy(out, l.records)
	return out, nil
}

func (l *MemoryLedger) Append(_ context.Context, rec domain.Record) error {
	rec.WalletAddress = domain.NormalizeAddress(rec.WalletAddress)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, rec)
	return nil
}

func (l *MemoryLedger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

var _ domain.Ledger = (*MemoryLedger)(nil)
