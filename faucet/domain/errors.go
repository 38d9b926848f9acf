package domain

import (
	"errors"
	"fmt"
	"time"
)

// Taxonomia de erros do claim.
var (
	// Validação (corrigível pelo usuário).
	ErrInvalidAddress = errors.New("invalid wallet address")
	ErrInvalidRequest = errors.New("invalid claim request")

	// Membership.
	ErrNotMember             = errors.New("not a community member")
	ErrMembershipCheckFailed = errors.New("membership check failed")

	// Negações de política: terminais, visíveis ao usuário, sem efeito colateral.
	ErrCooldownActive       = errors.New("cooldown active")
	ErrWalletMismatch       = errors.New("wallet does not match bound wallet")
	ErrWalletAlreadyClaimed = errors.New("wallet already claimed")

	// Infraestrutura.
	ErrLedgerUnavailable      = errors.New("ledger unavailable")
	ErrDisbursementFailed     = errors.New("disbursement failed")
	ErrPostDisbursementRecord = errors.New("disbursement sent but record not written")
)

// DenialError carrega o veredito que negou o claim.
type DenialError struct {
	Verdict Verdict
}

func (e *DenialError) Error() string {
	switch e.Verdict.Reason {
	case CooldownActive:
		return fmt.Sprintf("%s: %s remaining", ErrCooldownActive, e.Verdict.Remaining)
	case WalletMismatch:
		return fmt.Sprintf("%s: bound to %s", ErrWalletMismatch, e.Verdict.BoundWallet)
	}
	return e.Unwrap().Error()
}

func (e *DenialError) Unwrap() error {
	switch e.Verdict.Reason {
	case CooldownActive:
		return ErrCooldownActive
	case WalletMismatch:
		return ErrWalletMismatch
	case WalletAlreadyClaimed:
		return ErrWalletAlreadyClaimed
	}
	return nil
}

// ReconciliationError indica que o valor foi enviado mas o registro não foi
// gravado. É o único caso com efeito colateral não reconciliado; o operador
// usa TxReference para conciliar manualmente.
type ReconciliationError struct {
	Record Record
	Err    error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("%s (tx %s): %v", ErrPostDisbursementRecord, e.Record.TxReference, e.Err)
}

func (e *ReconciliationError) Unwrap() []error {
	return []error{ErrPostDisbursementRecord, e.Err}
}

// RetryAfter devolve a espera sugerida quando err é uma negação por cooldown.
func RetryAfter(err error) (time.Duration, bool) {
	var de *DenialError
	if errors.As(err, &de) && de.Verdict.Reason == CooldownActive {
		return de.Verdict.Remaining, true
	}
	return 0, false
}

type Category string

const (
	CategoryNone           Category = ""
	CategoryValidation     Category = "validation"
	CategoryMembership     Category = "membership"
	CategoryPolicy         Category = "policy"
	CategoryInfrastructure Category = "infrastructure"
)

// Classify separa usuário negado de dependência quebrada.
func Classify(err error) Category {
	switch {
	case err == nil:
		return CategoryNone
	case errors.Is(err, ErrInvalidAddress), errors.Is(err, ErrInvalidRequest):
		return CategoryValidation
	case errors.Is(err, ErrNotMember):
		return CategoryMembership
	case errors.Is(err, ErrCooldownActive),
		errors.Is(err, ErrWalletMismatch),
		errors.Is(err, ErrWalletAlreadyClaimed):
		return CategoryPolicy
	}
	return CategoryInfrastructure
}
