package infra

import (
	"context"
	"errors"
	"sync"

	"faucet-gateway/faucet/domain"
)

// MemoryStatsStore conta outcomes em memória.
// Útil para testes e desenvolvimento.
//
// Não faz expiração e não é indicada para produção.
type MemoryStatsStore struct {
	mu        sync.Mutex
	byOutcome map[string]int64
	byUser    map[string]map[string]int64

	trackUsers bool
}

type MemoryStatsOption func(*MemoryStatsStore)

func WithTrackUsers(track bool) MemoryStatsOption {
	return func(s *MemoryStatsStore) { s.trackUsers = track }
}

func NewMemoryStatsStore(opts ...MemoryStatsOption) *MemoryStatsStore {
	s := &MemoryStatsStore{
		byOutcome: make(map[string]int64),
		byUser:    make(map[string]map[string]int64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStatsStore) Record(_ context.Context, ev domain.ClaimEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byOutcome[ev.Outcome]++
	if s.trackUsers && ev.UserID != "" {
		u := s.byUser[ev.UserID]
		if u == nil {
			u = make(map[string]int64)
			s.byUser[ev.UserID] = u
		}
		u[ev.Outcome]++
	}
	return nil
}

func (s *MemoryStatsStore) Count(outcome string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byOutcome[outcome]
}

func (s *MemoryStatsStore) ByOutcome() map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int64, len(s.byOutcome))
	for k, v := range s.byOutcome {
		out[k] = v
	}
	return out
}

func (s *MemoryStatsStore) ByUser(userID string) map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int64, len(s.byUser[userID]))
	for k, v := range s.byUser[userID] {
		out[k] = v
	}
	return out
}

// MultiStats repassa o evento para vários stores; erros são agregados.
type MultiStats []domain.StatsStore

func (m MultiStats) Record(ctx context.Context, ev domain.ClaimEvent) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Record(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var (
	_ domain.StatsStore = (*MemoryStatsStore)(nil)
	_ domain.StatsStore = MultiStats(nil)
)
