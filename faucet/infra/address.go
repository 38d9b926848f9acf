package infra

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// EVMAddressValidator aceita endereços hex de 20 bytes com prefixo 0x.
//
// O prefixo é obrigatório: sem ele "abc…" e "0xabc…" virariam carteiras
// distintas no histórico depois da normalização.
type EVMAddressValidator struct{}

func (EVMAddressValidator) Valid(addr string) bool {
	addr = strings.TrimSpace(addr)
	if !strings.HasPrefix(addr, "0x") && !strings.HasPrefix(addr, "0X") {
		return false
	}
	return common.IsHexAddress(addr)
}
