package infra

import (
	"context"
	"sort"
	"sync"

	"faucet-gateway/faucet/domain"
)

type gateSlot struct {
	sem  chan struct{}
	refs int
}

// KeyedGate é um gate baseado em channel: um semáforo de capacidade 1 por chave.
//
// As chaves de um Acquire são deduplicadas e adquiridas em ordem lexicográfica,
// então dois pedidos com conjuntos sobrepostos nunca entram em deadlock.
// Entradas sem holders nem waiters são removidas da tabela.
type KeyedGate struct {
	mu    sync.Mutex
	slots map[domain.LockKey]*gateSlot
}

func NewKeyedGate() *KeyedGate {
	return &KeyedGate{slots: make(map[domain.LockKey]*gateSlot)}
}

func (g *KeyedGate) Acquire(ctx context.Context, keys []domain.LockKey) (func(), bool) {
	ordered := sortedKeys(keys)
	held := make([]domain.LockKey, 0, len(ordered))

	for _, k := range ordered {
		s := g.ref(k)
		select {
		case s.sem <- struct{}{}:
			held = append(held, k)
		case <-ctx.Done():
			g.unref(k)
			g.releaseAll(held)
			return nil, false
		}
	}

	var once sync.Once
	return func() { once.Do(func() { g.releaseAll(held) }) }, true
}

// Len devolve quantas chaves estão na tabela (holders + waiters).
func (g *KeyedGate) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.slots)
}

func (g *KeyedGate) ref(k domain.LockKey) *gateSlot {
	g.mu.Lock()
	defer g.mu.Unlock()

	s, ok := g.slots[k]
	if !ok {
		s = &gateSlot{sem: make(chan struct{}, 1)}
		g.slots[k] = s
	}
	s.refs++
	return s
}

func (g *KeyedGate) unref(k domain.LockKey) {
	g.mu.Lock()
	defer g.mu.Unlock()

	s, ok := g.slots[k]
	if !ok {
		return
	}
	s.refs--
	if s.refs <= 0 {
		delete(g.slots, k)
	}
}

func (g *KeyedGate) releaseAll(held []domain.LockKey) {
	for i := len(held) - 1; i >= 0; i-- {
		g.mu.Lock()
		s := g.slots[held[i]]
		g.mu.Unlock()

		<-s.sem
		g.unref(held[i])
	}
}

func sortedKeys(keys []domain.LockKey) []domain.LockKey {
	seen := make(map[domain.LockKey]struct{}, len(keys))
	out := make([]domain.LockKey, 0, len(keys))
	for _, k := range keys {
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

var _ domain.Gate = (*KeyedGate)(nil)
