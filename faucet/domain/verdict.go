package domain

import "time"

type Reason string

const (
	Eligible             Reason = "eligible"
	CooldownActive       Reason = "cooldown_active"
	WalletMismatch       Reason = "wallet_mismatch"
	WalletAlreadyClaimed Reason = "wallet_already_claimed"
)

// Verdict é a decisão da engine de elegibilidade.
type Verdict struct {
	Reason Reason
	// Remaining só é preenchido quando Reason == CooldownActive.
	Remaining time.Duration
	// BoundWallet só é preenchido quando Reason == WalletMismatch.
	BoundWallet string
}

func (v Verdict) Eligible() bool { return v.Reason == Eligible }
