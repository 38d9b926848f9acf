package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadConfig_Defaults(t *testing.T) {
	cfg, err := readConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 24*time.Hour, cfg.Cooldown)
	assert.Equal(t, "0.25", cfg.amount.String())
	assert.Equal(t, "memory", cfg.LedgerBackend)
	assert.Equal(t, "stub", cfg.Disburser)
	assert.Equal(t, "open", cfg.Membership)
	assert.Equal(t, int64(55), cfg.GasPriceGwei)
	assert.False(t, cfg.needsRedis())
}

func TestReadConfig_EnvOverridesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "faucet.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
cooldown: 12h
faucet_amount: "0.5"
faucet_symbol: ETH
ledger_backend: sqlite
sqlite_path: /tmp/faucet.db
stats_backend: redis
redis_addr: localhost:6379
`), 0o600))

	t.Setenv("FAUCET_CONFIG", path)
	t.Setenv("FAUCET_SYMBOL", "MON")
	t.Setenv("GATE_TIMEOUT", "5s")

	cfg, err := readConfig()
	require.NoError(t, err)

	assert.Equal(t, 12*time.Hour, cfg.Cooldown)
	assert.Equal(t, "0.5", cfg.amount.String())
	assert.Equal(t, "MON", cfg.Symbol)
	assert.Equal(t, "sqlite", cfg.LedgerBackend)
	assert.Equal(t, "/tmp/faucet.db", cfg.SQLitePath)
	assert.Equal(t, 5*time.Second, cfg.GateTimeout)
	assert.True(t, cfg.needsRedis())
}

func TestReadConfig_LowRPSDefaultsBurstToOne(t *testing.T) {
	t.Setenv("THROTTLE_RPS", "0.02")

	cfg, err := readConfig()
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.ThrottleBurst)

	t.Setenv("THROTTLE_BURST", "3")
	cfg, err = readConfig()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.ThrottleBurst)
}

func TestReadConfig_Validation(t *testing.T) {
	cases := map[string]map[string]string{
		"bad amount":           {"FAUCET_AMOUNT": "abc"},
		"zero amount":          {"FAUCET_AMOUNT": "0"},
		"unknown ledger":       {"LEDGER_BACKEND": "mysql"},
		"redis without addr":   {"LEDGER_BACKEND": "redis"},
		"postgres without dsn": {"LEDGER_BACKEND": "postgres"},
		"sheets without id":    {"LEDGER_BACKEND": "sheets", "GOOGLE_CREDS_FILE": "creds.json"},
		"evm without key":      {"DISBURSER": "evm", "RPC_URL": "http://localhost:8545", "CHAIN_ID": "1"},
		"evm without chain":    {"DISBURSER": "evm", "RPC_URL": "http://localhost:8545", "PRIVATE_KEY": "ab"},
		"telegram no token":    {"MEMBERSHIP": "telegram", "CHANNEL_ID": "@c"},
		"empty allowlist":      {"MEMBERSHIP": "allowlist", "ALLOWED_USERS": " , "},
		"unknown stats":        {"STATS_BACKEND": "prometheus"},
		"negative rps":         {"THROTTLE_RPS": "-1"},
	}

	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := readConfig()
			assert.Error(t, err)
		})
	}
}

func TestReadConfig_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "faucet.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cooldown: [nope"), 0o600))
	t.Setenv("FAUCET_CONFIG", path)

	_, err := readConfig()
	assert.Error(t, err)
}

func TestReadConfig_StatsList(t *testing.T) {
	t.Setenv("STATS_BACKEND", "memory, otel")

	cfg, err := readConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"memory", "otel"}, cfg.statsBackends())
	assert.False(t, cfg.needsRedis())

	t.Setenv("STATS_BACKEND", "memory,redis")
	_, err = readConfig()
	assert.Error(t, err, "redis stats without REDIS_ADDR")
}

func TestReadConfig_AllowList(t *testing.T) {
	t.Setenv("MEMBERSHIP", "allowlist")
	t.Setenv("ALLOWED_USERS", "42, 7,")

	cfg, err := readConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"42", "7"}, cfg.allowedUsers())

	m, joinURL := newMembership(cfg, nil)
	assert.Empty(t, joinURL)

	ok, err := m.IsMember(context.Background(), "42")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.IsMember(context.Background(), "43")
	require.NoError(t, err)
	assert.False(t, ok)
}
