package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"faucet-gateway/faucet"
	"faucet-gateway/faucet/application"
	"faucet-gateway/faucet/infra"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

func main() {
	// Exemplo: faucet completo em memória, sem chain, sem planilha, sem bot.
	//
	//   curl -XPOST localhost:8081/claim -H 'X-User-ID: 1' \
	//     -d '{"wallet_address":"0x52908400098527886E0F7030069857D2E4169EE7"}'
	logrus.SetLevel(logrus.DebugLevel)
	log := logrus.WithField("component", "example-server")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	stats := infra.NewMemoryStatsStore(infra.WithTrackUsers(true))
	coord := application.NewCoordinator(
		infra.NewMemoryLedger(),
		infra.NewKeyedGate(),
		infra.NewStubDisburser(500*time.Millisecond, log),
		decimal.RequireFromString("0.25"),
		application.WithCooldown(2*time.Minute),
		application.WithGateTimeout(5*time.Second),
		application.WithAddressValidator(infra.EVMAddressValidator{}),
		application.WithMembership(infra.NewOpenMembership()),
		application.WithStats(stats),
		application.WithLogger(log),
	)

	store := infra.NewThrottleStore(5, 10)
	store.StartJanitor(ctx)

	mux := http.NewServeMux()
	mux.Handle("/", faucet.NewHandler(faucet.HandlerOptions{
		Claimer:  coord,
		Renderer: faucet.Renderer{Symbol: "MON", ExplorerTxURL: "https://testnet.monadexplorer.com/tx/"},
		Throttle: &faucet.ThrottleOptions{
			Store:               store,
			KeyHeader:           "X-User-ID", // ou vazio para usar IP
			TrustXForwardedFor:  true,
			AddRateLimitHeaders: true,
		},
		Log: log,
	}))
	mux.HandleFunc("GET /stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(stats.ByOutcome())
	})

	addr := ":8081"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		addr = v
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Infof("example server listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("server error")
	}
}
