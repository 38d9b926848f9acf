package faucet

import (
	"errors"
	"strings"

	"faucet-gateway/faucet/application"
	"faucet-gateway/faucet/domain"
)

const (
	MsgInvalidAddress  = "❌ Invalid wallet address!"
	MsgIncorrectFormat = "❌ Incorrect format!\nUse: /faucet <wallet_address>\nExample: /faucet 0x1234...abcd"
	MsgNotMember       = "⛔ You must join our channel first!"
	MsgWalletMismatch  = "❌ Request denied! You can only use one wallet address."
	MsgWalletClaimed   = "❌ Wallet address limit reached. This wallet address has already been used."
	MsgRequestFailed   = "❌ Request failed! Please try again later."
	MsgPendingRecord   = "⚠️ The transfer was sent but could not be saved yet. It is pending reconciliation; please try again later if it does not show up."
)

// BadRequestMessage é o texto de pedido malformado na superfície HTTP.
func BadRequestMessage(userHeader string) string {
	return `❌ Invalid request! Send a JSON body like {"wallet_address": "0x..."} with the ` + userHeader + ` header set.`
}

// Renderer transforma o resultado de um claim no texto mostrado ao usuário.
type Renderer struct {
	Symbol        string // ex. "MON"
	ExplorerTxURL string // prefixo; o hash é concatenado ao fim
}

// ExplorerURL devolve "" quando não há explorer configurado.
func (r Renderer) ExplorerURL(txRef string) string {
	if r.ExplorerTxURL == "" || txRef == "" {
		return ""
	}
	return r.ExplorerTxURL + txRef
}

func (r Renderer) Message(rcpt application.Receipt, err error) string {
	if err == nil {
		return r.success(rcpt)
	}

	if wait, ok := domain.RetryAfter(err); ok {
		return "⏳ Request denied! You must wait " + FormatWait(wait) + " before making another request."
	}

	switch {
	case errors.Is(err, domain.ErrInvalidAddress):
		return MsgInvalidAddress
	case errors.Is(err, domain.ErrInvalidRequest):
		return MsgIncorrectFormat
	case errors.Is(err, domain.ErrNotMember):
		return MsgNotMember
	case errors.Is(err, domain.ErrWalletMismatch):
		return MsgWalletMismatch
	case errors.Is(err, domain.ErrWalletAlreadyClaimed):
		return MsgWalletClaimed
	case errors.Is(err, domain.ErrPostDisbursementRecord):
		// o valor saiu; o usuário precisa do hash mesmo sem registro
		return r.success(rcpt) + "\n\n" + MsgPendingRecord
	}
	return MsgRequestFailed
}

func (r Renderer) success(rcpt application.Receipt) string {
	var b strings.Builder
	b.WriteString("✅ Transaction successful! You have received ")
	b.WriteString(rcpt.Amount.String())
	if r.Symbol != "" {
		b.WriteString(" ")
		b.WriteString(r.Symbol)
	}
	b.WriteString(".")
	if rcpt.TxReference != "" {
		b.WriteString("\n\n🔗 Tx Hash: ")
		b.WriteString(rcpt.TxReference)
	}
	if u := r.ExplorerURL(rcpt.TxReference); u != "" {
		b.WriteString("\n🌐 View transaction: ")
		b.WriteString(u)
	}
	return b.String()
}
