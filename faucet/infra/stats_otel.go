package infra

import (
	"context"
	"fmt"

	"faucet-gateway/faucet/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OtelStatsStore publica um contador por outcome via OpenTelemetry.
// O user id não vira atributo (cardinalidade).
type OtelStatsStore struct {
	claims metric.Int64Counter
}

func NewOtelStatsStore(meter metric.Meter) (*OtelStatsStore, error) {
	claims, err := meter.Int64Counter("faucet.claims",
		metric.WithDescription("Claim attempts by outcome"),
		metric.WithUnit("{claim}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create claims counter: %w", err)
	}
	return &OtelStatsStore{claims: claims}, nil
}

func (s *OtelStatsStore) Record(ctx context.Context, ev domain.ClaimEvent) error {
	s.claims.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", ev.Outcome)))
	return nil
}

var _ domain.StatsStore = (*OtelStatsStore)(nil)
