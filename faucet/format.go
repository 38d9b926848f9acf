package faucet

import (
	"strconv"
	"time"
)

func formatInt(v int) string { return strconv.Itoa(v) }

func formatFloat(v float64) string {
	// sem notação científica para valores comuns
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// retryAfterSeconds arredonda para cima: Retry-After 0 convidaria a repetir na hora.
func retryAfterSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	s := int(d / time.Second)
	if d%time.Second != 0 {
		s++
	}
	return s
}

// FormatWait escreve uma espera como "{h}h {m}m", truncando para baixo.
func FormatWait(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	return formatInt(h) + "h " + formatInt(m) + "m"
}
