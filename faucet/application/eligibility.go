package application

import (
	"time"

	"faucet-gateway/faucet/domain"
)

const DefaultCooldown = 24 * time.Hour

// Candidate é o pedido sendo avaliado.
type Candidate struct {
	UserID        string
	WalletAddress string
	Now           time.Time
}

// Engine concentra as regras anti-abuso.
//
// Ela não faz I/O: recebe o histórico completo e decide. A ordem das regras é
// fixa e para na primeira negação: cooldown, vínculo de carteira, unicidade de
// carteira.
type Engine struct {
	Cooldown time.Duration
}

func (e Engine) Evaluate(history []domain.Record, c Candidate) domain.Verdict {
	cooldown := e.Cooldown
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	wallet := domain.NormalizeAddress(c.WalletAddress)

	// A ordem de retorno do store não é confiável: mais recente e primeiro
	// registro saem sempre de LastRequestTime.
	var latest, first *domain.Record
	for i := range history {
		rec := &history[i]
		if rec.UserID != c.UserID {
			continue
		}
		if latest == nil || rec.LastRequestTime.After(latest.LastRequestTime) {
			latest = rec
		}
		if first == nil || rec.LastRequestTime.Before(first.LastRequestTime) {
			first = rec
		}
	}

	if latest != nil {
		elapsed := c.Now.Sub(latest.LastRequestTime)
		if elapsed < cooldown {
			return domain.Verdict{Reason: domain.CooldownActive, Remaining: cooldown - elapsed}
		}

		bound := domain.NormalizeAddress(first.WalletAddress)
		if wallet != bound {
			return domain.Verdict{Reason: domain.WalletMismatch, BoundWallet: bound}
		}
		// Usuário já vinculado a esta carteira: unicidade não se aplica.
		return domain.Verdict{Reason: domain.Eligible}
	}

	for _, rec := range history {
		if domain.NormalizeAddress(rec.WalletAddress) == wallet {
			return domain.Verdict{Reason: domain.WalletAlreadyClaimed}
		}
	}
	return domain.Verdict{Reason: domain.Eligible}
}
