package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// config é lido uma vez no start: defaults, depois o YAML de FAUCET_CONFIG
// (se houver), depois variáveis de ambiente.
type config struct {
	ListenAddr    string        `yaml:"listen_addr"`
	LogLevel      string        `yaml:"log_level"`
	Cooldown      time.Duration `yaml:"cooldown"`
	Amount        string        `yaml:"faucet_amount"`
	Symbol        string        `yaml:"faucet_symbol"`
	ExplorerTxURL string        `yaml:"explorer_tx_url"`

	LedgerBackend   string `yaml:"ledger_backend"`
	RedisAddr       string `yaml:"redis_addr"`
	RedisPassword   string `yaml:"redis_password"`
	RedisDB         int    `yaml:"redis_db"`
	RedisPrefix     string `yaml:"redis_prefix"`
	SQLitePath      string `yaml:"sqlite_path"`
	PostgresDSN     string `yaml:"postgres_dsn"`
	GoogleCredsFile string `yaml:"google_creds_file"`
	SpreadsheetID   string `yaml:"spreadsheet_id"`
	SheetName       string `yaml:"sheet_name"`

	Disburser    string `yaml:"disburser"`
	RPCURL       string `yaml:"rpc_url"`
	ChainID      int64  `yaml:"chain_id"`
	PrivateKey   string `yaml:"private_key"`
	GasPriceGwei int64  `yaml:"gas_price_gwei"`

	Membership   string `yaml:"membership"`
	AllowedUsers string `yaml:"allowed_users"`
	BotToken     string `yaml:"bot_token"`
	ChannelID    string `yaml:"channel_id"`
	UserHeader   string `yaml:"user_header"`

	ThrottleRPS    float64       `yaml:"throttle_rps"`
	ThrottleBurst  int           `yaml:"throttle_burst"`
	TrustXFF       bool          `yaml:"trust_xff"`
	GateTimeout    time.Duration `yaml:"gate_timeout"`
	ReconcileEvery time.Duration `yaml:"reconcile_every"`

	StatsBackend string `yaml:"stats_backend"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`

	amount decimal.Decimal
}

func defaultConfig() config {
	return config{
		ListenAddr:     ":8080",
		LogLevel:       "info",
		Cooldown:       24 * time.Hour,
		Amount:         "0.25",
		Symbol:         "MON",
		ExplorerTxURL:  "https://testnet.monadexplorer.com/tx/",
		LedgerBackend:  "memory",
		RedisPrefix:    "faucet",
		SQLitePath:     "faucet.db",
		SheetName:      "Sheet1",
		Disburser:      "stub",
		GasPriceGwei:   55,
		Membership:     "open",
		UserHeader:     "X-User-ID",
		ThrottleRPS:    1,
		ThrottleBurst:  5,
		GateTimeout:    30 * time.Second,
		ReconcileEvery: time.Minute,
		StatsBackend:   "none",
		OTLPEndpoint:   "localhost:4317",
	}
}

func readConfig() (config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("FAUCET_CONFIG"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return config{}, fmt.Errorf("read FAUCET_CONFIG: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return config{}, fmt.Errorf("parse FAUCET_CONFIG: %w", err)
		}
	}

	cfg.ListenAddr = getenvDefault("LISTEN_ADDR", cfg.ListenAddr)
	cfg.LogLevel = getenvDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.Cooldown = getenvDurationDefault("COOLDOWN", cfg.Cooldown)
	cfg.Amount = getenvDefault("FAUCET_AMOUNT", cfg.Amount)
	cfg.Symbol = getenvDefault("FAUCET_SYMBOL", cfg.Symbol)
	cfg.ExplorerTxURL = getenvDefault("EXPLORER_TX_URL", cfg.ExplorerTxURL)

	cfg.LedgerBackend = strings.ToLower(getenvDefault("LEDGER_BACKEND", cfg.LedgerBackend))
	cfg.RedisAddr = getenvDefault("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = getenvDefault("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = getenvIntDefault("REDIS_DB", cfg.RedisDB)
	cfg.RedisPrefix = getenvDefault("REDIS_PREFIX", cfg.RedisPrefix)
	cfg.SQLitePath = getenvDefault("SQLITE_PATH", cfg.SQLitePath)
	cfg.PostgresDSN = getenvDefault("POSTGRES_DSN", cfg.PostgresDSN)
	cfg.GoogleCredsFile = getenvDefault("GOOGLE_CREDS_FILE", cfg.GoogleCredsFile)
	cfg.SpreadsheetID = getenvDefault("SPREADSHEET_ID", cfg.SpreadsheetID)
	cfg.SheetName = getenvDefault("SHEET_NAME", cfg.SheetName)

	cfg.Disburser = strings.ToLower(getenvDefault("DISBURSER", cfg.Disburser))
	cfg.RPCURL = getenvDefault("RPC_URL", cfg.RPCURL)
	cfg.ChainID = getenvInt64Default("CHAIN_ID", cfg.ChainID)
	cfg.PrivateKey = getenvDefault("PRIVATE_KEY", cfg.PrivateKey)
	cfg.GasPriceGwei = getenvInt64Default("GAS_PRICE_GWEI", cfg.GasPriceGwei)

	cfg.Membership = strings.ToLower(getenvDefault("MEMBERSHIP", cfg.Membership))
	cfg.AllowedUsers = getenvDefault("ALLOWED_USERS", cfg.AllowedUsers)
	cfg.BotToken = getenvDefault("BOT_TOKEN", cfg.BotToken)
	cfg.ChannelID = getenvDefault("CHANNEL_ID", cfg.ChannelID)
	cfg.UserHeader = getenvDefault("USER_HEADER", cfg.UserHeader)

	cfg.ThrottleRPS = getenvFloatDefault("THROTTLE_RPS", cfg.ThrottleRPS)
	// Com RPS muito baixo (ex: 0.02) o burst padrão deixaria passar várias
	// requisições seguidas; sem THROTTLE_BURST explícito usa 1.
	if burst, ok := getenvInt("THROTTLE_BURST"); ok {
		cfg.ThrottleBurst = burst
	} else if getenvIsSet("THROTTLE_RPS") && cfg.ThrottleRPS > 0 && cfg.ThrottleRPS < 1 {
		cfg.ThrottleBurst = 1
	}
	cfg.TrustXFF = getenvBoolDefault("TRUST_XFF", cfg.TrustXFF)
	cfg.GateTimeout = getenvDurationDefault("GATE_TIMEOUT", cfg.GateTimeout)
	cfg.ReconcileEvery = getenvDurationDefault("RECONCILE_EVERY", cfg.ReconcileEvery)

	cfg.StatsBackend = strings.ToLower(getenvDefault("STATS_BACKEND", cfg.StatsBackend))
	cfg.OTLPEndpoint = getenvDefault("OTLP_ENDPOINT", cfg.OTLPEndpoint)
	cfg.OTLPInsecure = getenvBoolDefault("OTLP_INSECURE", cfg.OTLPInsecure)

	if err := cfg.validate(); err != nil {
		return config{}, err
	}
	return cfg, nil
}

func (c *config) validate() error {
	amount, err := decimal.NewFromString(strings.TrimSpace(c.Amount))
	if err != nil {
		return fmt.Errorf("FAUCET_AMOUNT: %w", err)
	}
	if !amount.IsPositive() {
		return errors.New("FAUCET_AMOUNT must be > 0")
	}
	c.amount = amount

	if c.Cooldown <= 0 {
		return errors.New("COOLDOWN must be > 0")
	}

	switch c.LedgerBackend {
	case "memory":
	case "redis":
		if strings.TrimSpace(c.RedisAddr) == "" {
			return errors.New("REDIS_ADDR is required when LEDGER_BACKEND=redis")
		}
	case "sqlite":
		if strings.TrimSpace(c.SQLitePath) == "" {
			return errors.New("SQLITE_PATH is required when LEDGER_BACKEND=sqlite")
		}
	case "postgres":
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return errors.New("POSTGRES_DSN is required when LEDGER_BACKEND=postgres")
		}
	case "sheets":
		if c.GoogleCredsFile == "" || c.SpreadsheetID == "" {
			return errors.New("GOOGLE_CREDS_FILE and SPREADSHEET_ID are required when LEDGER_BACKEND=sheets")
		}
	default:
		return fmt.Errorf("unknown LEDGER_BACKEND %q", c.LedgerBackend)
	}

	switch c.Disburser {
	case "stub":
	case "evm":
		if c.RPCURL == "" || c.PrivateKey == "" {
			return errors.New("RPC_URL and PRIVATE_KEY are required when DISBURSER=evm")
		}
		if c.ChainID <= 0 {
			return errors.New("CHAIN_ID must be > 0 when DISBURSER=evm")
		}
	default:
		return fmt.Errorf("unknown DISBURSER %q", c.Disburser)
	}

	switch c.Membership {
	case "open":
	case "telegram":
		if c.BotToken == "" || c.ChannelID == "" {
			return errors.New("BOT_TOKEN and CHANNEL_ID are required when MEMBERSHIP=telegram")
		}
	case "allowlist":
		if len(c.allowedUsers()) == 0 {
			return errors.New("ALLOWED_USERS is required when MEMBERSHIP=allowlist")
		}
	default:
		return fmt.Errorf("unknown MEMBERSHIP %q", c.Membership)
	}

	for _, b := range c.statsBackends() {
		switch b {
		case "none", "memory", "otel":
		case "redis":
			if strings.TrimSpace(c.RedisAddr) == "" {
				return errors.New("REDIS_ADDR is required when STATS_BACKEND includes redis")
			}
		default:
			return fmt.Errorf("unknown STATS_BACKEND %q", b)
		}
	}

	if c.ThrottleRPS < 0 {
		return errors.New("THROTTLE_RPS must be >= 0")
	}
	if c.ThrottleRPS > 0 && c.ThrottleBurst <= 0 {
		return errors.New("THROTTLE_BURST must be > 0")
	}
	return nil
}

// statsBackends aceita lista separada por vírgula, ex. "redis,otel".
func (c config) statsBackends() []string { return splitList(c.StatsBackend) }

// allowedUsers são os ids de usuário aceitos com MEMBERSHIP=allowlist.
func (c config) allowedUsers() []string { return splitList(c.AllowedUsers) }

func splitList(v string) []string {
	var out []string
	for _, b := range strings.Split(v, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func (c config) needsRedis() bool {
	if c.LedgerBackend == "redis" {
		return true
	}
	for _, b := range c.statsBackends() {
		if b == "redis" {
			return true
		}
	}
	return false
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvInt64Default(k string, def int64) int64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return i
}

func getenvInt(k string) (int, bool) {
	v, ok := os.LookupEnv(k)
	if !ok || v == "" {
		return 0, false
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return i, true
}

func getenvIsSet(k string) bool {
	v, ok := os.LookupEnv(k)
	return ok && v != ""
}

func getenvFloatDefault(k string, def float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getenvBoolDefault(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDurationDefault(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
