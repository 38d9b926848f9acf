package infra

import (
	"context"
	"strings"
)

// StaticMembership é uma lista fixa de membros. Com allowAll, todos passam
// (ambiente de desenvolvimento ou faucet sem comunidade).
type StaticMembership struct {
	allowAll bool
	ids      map[string]struct{}
}

func NewOpenMembership() *StaticMembership {
	return &StaticMembership{allowAll: true}
}

func NewAllowList(ids ...string) *StaticMembership {
	m := &StaticMembership{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			m.ids[id] = struct{}{}
		}
	}
	return m
}

func (m *StaticMembership) IsMember(_ context.Context, userID string) (bool, error) {
	if m.allowAll {
		return true, nil
	}
	_, ok := m.ids[userID]
	return ok, nil
}
