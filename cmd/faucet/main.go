package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"faucet-gateway/faucet"
	"faucet-gateway/faucet/application"
	"faucet-gateway/faucet/domain"
	"faucet-gateway/faucet/infra"
	"faucet-gateway/faucet/telegram"

	"github.com/ethereum/go-ethereum/ethclient"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

func main() {
	cfg, err := readConfig()
	if err != nil {
		logrus.WithError(err).Fatal("config error")
	}
	initLogger(cfg.LogLevel)
	log := logrus.WithField("component", "faucet")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("faucet stopped")
	}
}

func initLogger(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetFormatter(&logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})
	logrus.SetOutput(os.Stdout)
	logrus.SetLevel(lvl)
}

// closers roda em ordem inversa à de abertura.
type closers []func()

func (c *closers) add(fn func()) { *c = append(*c, fn) }

func (c closers) run() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

// shutdownTimeout cobre um claim inteiro (espera no gate mais o envio), para
// que nenhum envio em andamento fique sem registro.
const shutdownTimeout = 150 * time.Second

func run(ctx context.Context, cfg config, log logrus.FieldLogger) error {
	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.close()

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.ListenAddr, err)
	}
	return a.serve(ctx, ln)
}

// app junta o que run monta: ledger, coordinator, servidor HTTP e bot.
type app struct {
	cfg       config
	log       logrus.FieldLogger
	ledger    domain.Ledger
	disburser domain.Disburser
	coord     *application.Coordinator
	srv       *http.Server
	botAPI    *tgbotapi.BotAPI
	bot       *telegram.Bot
	cleanup   closers
}

type appOption func(*app)

// withDisburser substitui o disburser vindo da config.
func withDisburser(d domain.Disburser) appOption {
	return func(a *app) { a.disburser = d }
}

func newApp(ctx context.Context, cfg config, log logrus.FieldLogger, opts ...appOption) (_ *app, err error) {
	a := &app{cfg: cfg, log: log}
	for _, opt := range opts {
		opt(a)
	}
	defer func() {
		if err != nil {
			a.cleanup.run()
		}
	}()

	var rdb *redis.Client
	if cfg.needsRedis() {
		if rdb, err = openRedis(ctx, cfg); err != nil {
			return nil, err
		}
		a.cleanup.add(func() { _ = rdb.Close() })
	}

	if a.ledger, err = openLedger(ctx, cfg, rdb, &a.cleanup); err != nil {
		return nil, err
	}

	stats, err := newStats(ctx, cfg, rdb, &a.cleanup)
	if err != nil {
		return nil, err
	}

	if a.disburser == nil {
		if a.disburser, err = newDisburser(ctx, cfg, log, &a.cleanup); err != nil {
			return nil, err
		}
	}

	if cfg.BotToken != "" {
		if a.botAPI, err = tgbotapi.NewBotAPI(cfg.BotToken); err != nil {
			return nil, fmt.Errorf("telegram bot: %w", err)
		}
		log.WithField("bot", a.botAPI.Self.UserName).Info("telegram bot authorized")
	}

	membership, joinURL := newMembership(cfg, a.botAPI)

	a.coord = application.NewCoordinator(a.ledger, infra.NewKeyedGate(), a.disburser, cfg.amount,
		application.WithCooldown(cfg.Cooldown),
		application.WithGateTimeout(cfg.GateTimeout),
		application.WithAddressValidator(infra.EVMAddressValidator{}),
		application.WithMembership(membership),
		application.WithStats(stats),
		application.WithLogger(log.WithField("component", "coordinator")),
	)
	a.coord.StartReconciler(ctx, cfg.ReconcileEvery)

	renderer := faucet.Renderer{Symbol: cfg.Symbol, ExplorerTxURL: cfg.ExplorerTxURL}

	var throttle *faucet.ThrottleOptions
	if cfg.ThrottleRPS > 0 {
		store := infra.NewThrottleStore(cfg.ThrottleRPS, cfg.ThrottleBurst)
		store.StartJanitor(ctx)
		throttle = &faucet.ThrottleOptions{
			Store:              store,
			KeyHeader:          cfg.UserHeader,
			TrustXForwardedFor: cfg.TrustXFF,
			Log:                log,
		}
	}

	a.srv = &http.Server{
		Handler: faucet.NewHandler(faucet.HandlerOptions{
			Claimer:    a.coord,
			Renderer:   renderer,
			UserHeader: cfg.UserHeader,
			Throttle:   throttle,
			Log:        log.WithField("component", "http"),
		}),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// um claim pode esperar o gate e a confirmação do envio
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  90 * time.Second,
	}

	if a.botAPI != nil {
		a.bot = telegram.NewBot(a.botAPI, a.coord,
			telegram.WithRenderer(renderer),
			telegram.WithCooldown(cfg.Cooldown),
			telegram.WithJoinURL(joinURL),
			telegram.WithBotLogger(log.WithField("component", "telegram")),
		)
	}
	return a, nil
}

// serve atende até ctx ser cancelado. Só retorna depois que os claims em
// andamento (HTTP e bot) terminaram e a fila de reconciliação foi tentada.
func (a *app) serve(ctx context.Context, ln net.Listener) error {
	var wg sync.WaitGroup
	if a.bot != nil {
		u := tgbotapi.NewUpdate(0)
		u.Timeout = 60
		updates := a.botAPI.GetUpdatesChan(u)

		wg.Add(1)
		go func() {
			defer wg.Done()
			a.bot.Run(ctx, updates)
		}()
		go func() {
			<-ctx.Done()
			a.botAPI.StopReceivingUpdates()
		}()
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.srv.Shutdown(shutdownCtx); err != nil {
			a.log.WithError(err).WithField("event", "http_shutdown_incomplete").Error("in-flight requests did not finish")
		}
	}()

	a.log.WithFields(logrus.Fields{
		"addr":       ln.Addr().String(),
		"ledger":     a.cfg.LedgerBackend,
		"disburser":  a.cfg.Disburser,
		"membership": a.cfg.Membership,
		"stats":      a.cfg.StatsBackend,
		"amount":     a.cfg.amount.String(),
		"cooldown":   a.cfg.Cooldown.String(),
	}).Info("faucet listening")

	if err := a.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	// Serve volta assim que Shutdown começa; os handlers só terminaram
	// quando Shutdown retorna.
	<-shutdownDone
	wg.Wait()

	a.flush()
	return nil
}

// flush tenta gravar o que ficou na fila de reconciliação antes de sair.
func (a *app) flush() {
	if len(a.coord.Pending()) == 0 {
		return
	}
	flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := a.coord.Reconcile(flushCtx); err != nil {
		a.log.WithError(err).WithFields(logrus.Fields{
			"event":   "ledger_reconcile_failed",
			"pending": a.coord.Pending(),
		}).Error("exiting with unrecorded grants; reconcile manually")
	}
}

func (a *app) close() { a.cleanup.run() }

// newMembership devolve o pré-filtro e, quando houver, o link para entrar na
// comunidade.
func newMembership(cfg config, botAPI *tgbotapi.BotAPI) (domain.Membership, string) {
	switch cfg.Membership {
	case "telegram":
		ch := telegram.NewChannelMembership(botAPI, cfg.ChannelID)
		return ch, ch.JoinURL()
	case "allowlist":
		return infra.NewAllowList(cfg.allowedUsers()...), ""
	}
	return infra.NewOpenMembership(), ""
}

func openRedis(ctx context.Context, cfg config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if _, err := rdb.Ping(pingCtx).Result(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// openLedger abre o backend e faz o bootstrap explícito (tabela, cabeçalho).
func openLedger(ctx context.Context, cfg config, rdb *redis.Client, cleanup *closers) (domain.Ledger, error) {
	switch cfg.LedgerBackend {
	case "redis":
		return infra.NewRedisLedger(rdb, infra.WithLedgerPrefix(cfg.RedisPrefix+":ledger")), nil

	case "sqlite":
		db, err := infra.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		cleanup.add(func() { _ = db.Close() })
		l := infra.NewSQLLedger(db)
		if err := l.Init(ctx); err != nil {
			return nil, err
		}
		return l, nil

	case "postgres":
		db, err := infra.OpenPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if sqlDB, err := db.DB(); err == nil {
			cleanup.add(func() { _ = sqlDB.Close() })
		}
		l := infra.NewGormLedger(db)
		if err := l.Init(ctx); err != nil {
			return nil, err
		}
		return l, nil

	case "sheets":
		svc, err := infra.NewSheetsService(ctx, cfg.GoogleCredsFile)
		if err != nil {
			return nil, err
		}
		l := infra.NewSheetsLedger(svc, cfg.SpreadsheetID, cfg.SheetName)
		if err := l.EnsureHeader(ctx); err != nil {
			return nil, err
		}
		return l, nil
	}
	return infra.NewMemoryLedger(), nil
}

// newStats monta um store por backend listado; mais de um vira MultiStats.
func newStats(ctx context.Context, cfg config, rdb *redis.Client, cleanup *closers) (domain.StatsStore, error) {
	var stores infra.MultiStats
	for _, backend := range cfg.statsBackends() {
		switch backend {
		case "memory":
			stores = append(stores, infra.NewMemoryStatsStore())

		case "redis":
			stores = append(stores, infra.NewRedisStatsStore(rdb, infra.WithStatsPrefix(cfg.RedisPrefix+":stats")))

		case "otel":
			opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint)}
			if cfg.OTLPInsecure {
				opts = append(opts, otlpmetricgrpc.WithInsecure())
			}
			exp, err := otlpmetricgrpc.New(ctx, opts...)
			if err != nil {
				return nil, fmt.Errorf("otlp metric exporter: %w", err)
			}
			mp := sdkmetric.NewMeterProvider(
				sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(15*time.Second))),
			)
			cleanup.add(func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = mp.Shutdown(shutdownCtx)
			})
			s, err := infra.NewOtelStatsStore(mp.Meter("faucet-gateway"))
			if err != nil {
				return nil, err
			}
			stores = append(stores, s)
		}
	}

	switch len(stores) {
	case 0:
		return nil, nil
	case 1:
		return stores[0], nil
	}
	return stores, nil
}

func newDisburser(ctx context.Context, cfg config, log logrus.FieldLogger, cleanup *closers) (domain.Disburser, error) {
	if cfg.Disburser != "evm" {
		return infra.NewStubDisburser(2*time.Second, log.WithField("component", "disburser")), nil
	}

	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	cleanup.add(client.Close)

	d, err := infra.NewEVMDisburser(client, cfg.PrivateKey, cfg.ChainID,
		infra.WithGasPriceGwei(cfg.GasPriceGwei),
		infra.WithEVMLogger(log.WithField("component", "disburser")),
	)
	if err != nil {
		return nil, err
	}
	log.WithField("from", d.From().Hex()).Info("evm disburser ready")
	return d, nil
}
