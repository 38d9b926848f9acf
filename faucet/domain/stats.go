package domain

import (
	"context"
	"errors"
	"time"
)

// ClaimEvent representa o desfecho de uma tentativa de claim.
//
// Outcome é "success" ou o motivo da falha (ver OutcomeOf). Cuidado com
// cardinalidade ao indexar por UserID em bases como Redis/Prometheus.
type ClaimEvent struct {
	ClaimID string
	UserID  string
	Outcome string
	At      time.Time
}

// StatsStore é a estratégia de persistência para estatísticas de claims.
//
// O coordinator trata erro como best-effort (não derruba o claim).
type StatsStore interface {
	Record(ctx context.Context, ev ClaimEvent) error
}

const OutcomeSuccess = "success"

// OutcomeOf mapeia o erro de Claim para um rótulo estável.
func OutcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrInvalidAddress):
		return "invalid_address"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, ErrNotMember):
		return "not_member"
	case errors.Is(err, ErrMembershipCheckFailed):
		return "membership_check_failed"
	case errors.Is(err, ErrCooldownActive):
		return string(CooldownActive)
	case errors.Is(err, ErrWalletMismatch):
		return string(WalletMismatch)
	case errors.Is(err, ErrWalletAlreadyClaimed):
		return string(WalletAlreadyClaimed)
	case errors.Is(err, ErrLedgerUnavailable):
		return "ledger_unavailable"
	case errors.Is(err, ErrGateBusy):
		return "gate_busy"
	case errors.Is(err, ErrDisbursementFailed):
		return "disbursement_failed"
	case errors.Is(err, ErrPostDisbursementRecord):
		return "post_disbursement_record_failure"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	}
	return "error"
}
