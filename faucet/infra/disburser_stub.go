package infra

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// StubDisburser simula transferências: loga, espera e devolve um hash falso.
type StubDisburser struct {
	Delay time.Duration
	Log   logrus.FieldLogger
}

func NewStubDisburser(delay time.Duration, log logrus.FieldLogger) *StubDisburser {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &StubDisburser{Delay: delay, Log: log}
}

func (s *StubDisburser) Send(ctx context.Context, to string, amount decimal.Decimal) (string, error) {
	s.Log.WithFields(logrus.Fields{"to": to, "amount": amount.String()}).Info("stub disburser sending")

	if s.Delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(s.Delay):
		}
	}

	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("generate fake tx hash: %w", err)
	}
	txRef := "0x" + hex.EncodeToString(b[:])
	s.Log.WithField("tx_hash", txRef).Info("stub disburser sent")
	return txRef, nil
}
