package infra

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ThrottleStore é um token bucket (x/time/rate) por chave, com cache e limpeza
// periódica. Fica na borda: protege o ledger de rajadas de um mesmo cliente
// antes que o pedido chegue ao gate. Não substitui o cooldown da engine.
type ThrottleStore struct {
	mu           sync.Mutex
	entries      map[string]*throttleEntry
	rps          rate.Limit
	burst        int
	idleTTL      time.Duration
	cleanupEvery time.Duration
	now          func() time.Time
}

type throttleEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

type ThrottleOption func(*ThrottleStore)

func WithIdleTTL(d time.Duration) ThrottleOption {
	return func(s *ThrottleStore) { s.idleTTL = d }
}

func WithCleanupEvery(d time.Duration) ThrottleOption {
	return func(s *ThrottleStore) { s.cleanupEvery = d }
}

func NewThrottleStore(rps float64, burst int, opts ...ThrottleOption) *ThrottleStore {
	s := &ThrottleStore{
		entries:      make(map[string]*throttleEntry),
		rps:          rate.Limit(rps),
		burst:        burst,
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ThrottleStore) RPS() float64 { return float64(s.rps) }
func (s *ThrottleStore) Burst() int   { return s.burst }

// Allow consome um token da chave. Quando nega, devolve quanto tempo falta
// para o próximo token (0 se a chave nunca terá token, ex. burst 0).
func (s *ThrottleStore) Allow(key string) (bool, time.Duration) {
	now := s.now()
	lim := s.limiter(key, now)

	r := lim.ReserveN(now, 1)
	if !r.OK() {
		return false, 0
	}
	if d := r.DelayFrom(now); d > 0 {
		r.CancelAt(now)
		return false, d
	}
	return true, 0
}

func (s *ThrottleStore) limiter(key string, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ent, ok := s.entries[key]; ok {
		ent.lastSeen = now
		return ent.lim
	}

	lim := rate.NewLimiter(s.rps, s.burst)
	s.entries[key] = &throttleEntry{lim: lim, lastSeen: now}
	return lim
}

func (s *ThrottleStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *ThrottleStore) Cleanup() {
	cutoff := s.now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, ent := range s.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(s.entries, k)
		}
	}
}

// StartJanitor inicia uma goroutine que limpa chaves inativas periodicamente.
// Pare cancelando o contexto.
func (s *ThrottleStore) StartJanitor(ctx DoneContext) {
	if s.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(s.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Cleanup()
			}
		}
	}()
}

// DoneContext é o mínimo necessário para aceitar context.Context sem importar context aqui.
type DoneContext interface {
	Done() <-chan struct{}
}
