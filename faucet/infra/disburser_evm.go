package infra

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// EVMBackend é o subconjunto de ethclient.Client usado pelo disburser.
type EVMBackend interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// EVMDisburser assina e transmite uma transferência nativa (legacy tx).
//
// Envios são serializados: o nonce vem de PendingNonceAt e duas transferências
// simultâneas da mesma conta pegariam o mesmo nonce.
type EVMDisburser struct {
	backend  EVMBackend
	key      *ecdsa.PrivateKey
	from     common.Address
	chainID  *big.Int
	gasPrice *big.Int // nil => SuggestGasPrice
	log      logrus.FieldLogger

	mu sync.Mutex
}

type EVMOption func(*EVMDisburser)

// WithGasPriceGwei fixa o gas price. O bot original usava 55 gwei.
func WithGasPriceGwei(gwei int64) EVMOption {
	return func(d *EVMDisburser) {
		if gwei > 0 {
			d.gasPrice = new(big.Int).Mul(big.NewInt(gwei), big.NewInt(1_000_000_000))
		}
	}
}

func WithEVMLogger(l logrus.FieldLogger) EVMOption {
	return func(d *EVMDisburser) { d.log = l }
}

func NewEVMDisburser(backend EVMBackend, hexKey string, chainID int64, opts ...EVMOption) (*EVMDisburser, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	if chainID <= 0 {
		return nil, errors.New("chain id must be > 0")
	}

	d := &EVMDisburser{
		backend: backend,
		key:     key,
		from:    crypto.PubkeyToAddress(key.PublicKey),
		chainID: big.NewInt(chainID),
		log:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

func (d *EVMDisburser) From() common.Address { return d.from }

// ToWei converte um valor em unidades inteiras (ether) para wei.
func ToWei(amount decimal.Decimal) *big.Int {
	return amount.Shift(18).BigInt()
}

func (d *EVMDisburser) Send(ctx context.Context, to string, amount decimal.Decimal) (string, error) {
	if !common.IsHexAddress(to) {
		return "", fmt.Errorf("invalid destination %q", to)
	}
	value := ToWei(amount)
	if value.Sign() <= 0 {
		return "", fmt.Errorf("amount must be > 0, got %s", amount)
	}
	dest := common.HexToAddress(to)

	d.mu.Lock()
	defer d.mu.Unlock()

	nonce, err := d.backend.PendingNonceAt(ctx, d.from)
	if err != nil {
		return "", fmt.Errorf("pending nonce: %w", err)
	}

	gasPrice := d.gasPrice
	if gasPrice == nil {
		if gasPrice, err = d.backend.SuggestGasPrice(ctx); err != nil {
			return "", fmt.Errorf("suggest gas price: %w", err)
		}
	}

	gas, err := d.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:     d.from,
		To:       &dest,
		GasPrice: gasPrice,
		Value:    value,
	})
	if err != nil {
		return "", fmt.Errorf("estimate gas: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &dest,
		Value:    value,
		Gas:      gas,
		GasPrice: gasPrice,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(d.chainID), d.key)
	if err != nil {
		return "", fmt.Errorf("sign tx: %w", err)
	}

	if err := d.backend.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("send tx: %w", err)
	}

	txRef := signed.Hash().Hex()
	d.log.WithFields(logrus.Fields{
		"event":   "evm_tx_sent",
		"to":      dest.Hex(),
		"nonce":   nonce,
		"gas":     gas,
		"tx_hash": txRef,
	}).Info("transfer broadcast")
	return txRef, nil
}
