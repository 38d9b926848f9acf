package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"faucet-gateway/faucet/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// ClaimRequest é o pedido vindo da superfície de comando (HTTP, chat).
type ClaimRequest struct {
	UserID        string
	WalletAddress string

	// Metadados de exibição, gravados só para auditoria.
	Username  string
	FirstName string
	LastName  string
}

// Receipt é o resultado de um claim concluído e registrado.
type Receipt struct {
	ClaimID     string
	TxReference string
	Amount      decimal.Decimal
	Record      domain.Record
}

// Coordinator orquestra um claim:
// gate -> snapshot do ledger -> elegibilidade -> disbursement -> append -> release.
//
// Registros cujo append falhou depois de um disbursement confirmado ficam numa
// fila de reconciliação em memória. Eles entram em todo snapshot, então o
// mesmo usuário/carteira não recebe de novo enquanto o processo viver.
type Coordinator struct {
	ledger    domain.Ledger
	gate      GateService
	disburser domain.Disburser
	amount    decimal.Decimal

	engine     Engine
	validator  domain.AddressValidator
	membership domain.Membership
	stats      domain.StatsStore
	retry      Retry
	now        func() time.Time
	log        logrus.FieldLogger

	mu      sync.Mutex
	pending []domain.Record

	// uma rodada de Reconcile por vez (ticker e flush do shutdown)
	reconcileMu sync.Mutex
}

type CoordinatorOption func(*Coordinator)

func WithCooldown(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) { c.engine.Cooldown = d }
}

func WithGateTimeout(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) { c.gate.AcquireTimeout = d }
}

func WithAddressValidator(v domain.AddressValidator) CoordinatorOption {
	return func(c *Coordinator) { c.validator = v }
}

// WithMembership liga o pré-filtro de comunidade. Sem ele todo usuário passa.
func WithMembership(m domain.Membership) CoordinatorOption {
	return func(c *Coordinator) { c.membership = m }
}

func WithStats(s domain.StatsStore) CoordinatorOption {
	return func(c *Coordinator) { c.stats = s }
}

func WithRetry(r Retry) CoordinatorOption {
	return func(c *Coordinator) { c.retry = r }
}

func WithClock(now func() time.Time) CoordinatorOption {
	return func(c *Coordinator) { c.now = now }
}

func WithLogger(l logrus.FieldLogger) CoordinatorOption {
	return func(c *Coordinator) { c.log = l }
}

func NewCoordinator(ledger domain.Ledger, gate domain.Gate, disburser domain.Disburser, amount decimal.Decimal, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		ledger:    ledger,
		gate:      GateService{Gate: gate},
		disburser: disburser,
		amount:    amount,
		engine:    Engine{Cooldown: DefaultCooldown},
		retry:     Retry{Attempts: 3, Backoff: 100 * time.Millisecond},
		now:       time.Now,
		log:       logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Coordinator) Amount() decimal.Decimal { return c.amount }
func (c *Coordinator) Cooldown() time.Duration { return c.engine.Cooldown }

// Claim executa um pedido completo. Erros seguem a taxonomia de domain
// (use errors.Is / domain.Classify).
//
// Cancelar ctx antes do disbursement aborta sem efeito colateral. Depois que a
// transferência foi submetida, o coordinator espera o resultado definitivo e
// grava o registro mesmo que o chamador tenha desistido.
func (c *Coordinator) Claim(ctx context.Context, req ClaimRequest) (rcpt Receipt, err error) {
	claimID := uuid.NewString()
	wallet := domain.NormalizeAddress(req.WalletAddress)
	log := c.log.WithFields(logrus.Fields{
		"claim_id": claimID,
		"user_id":  req.UserID,
		"wallet":   wallet,
	})
	defer func() { c.finish(ctx, claimID, req.UserID, log, rcpt, err) }()

	if strings.TrimSpace(req.UserID) == "" {
		return Receipt{}, domain.ErrInvalidRequest
	}
	if wallet == "" || (c.validator != nil && !c.validator.Valid(wallet)) {
		return Receipt{}, domain.ErrInvalidAddress
	}

	if c.membership != nil {
		ok, merr := c.membership.IsMember(ctx, req.UserID)
		if merr != nil {
			return Receipt{}, fmt.Errorf("%w: %w", domain.ErrMembershipCheckFailed, merr)
		}
		if !ok {
			return Receipt{}, domain.ErrNotMember
		}
	}

	err = c.gate.WithExclusiveAccess(ctx, ClaimKeys(req.UserID, wallet), func(ctx context.Context) error {
		var cerr error
		rcpt, cerr = c.claimLocked(ctx, claimID, req, wallet, log)
		return cerr
	})
	return rcpt, err
}

func (c *Coordinator) claimLocked(ctx context.Context, claimID string, req ClaimRequest, wallet string, log logrus.FieldLogger) (Receipt, error) {
	history, err := c.snapshot(ctx)
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: %w", domain.ErrLedgerUnavailable, err)
	}

	now := c.now()
	verdict := c.engine.Evaluate(history, Candidate{UserID: req.UserID, WalletAddress: wallet, Now: now})
	if !verdict.Eligible() {
		return Receipt{}, &domain.DenialError{Verdict: verdict}
	}

	// Último ponto em que desistir não deixa rastro.
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}

	sendCtx := context.WithoutCancel(ctx)
	log.WithField("event", "disbursement_submitted").Debug("sending grant")
	txRef, err := c.disburser.Send(sendCtx, wallet, c.amount)
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: %w", domain.ErrDisbursementFailed, err)
	}
	if strings.TrimSpace(txRef) == "" {
		return Receipt{}, fmt.Errorf("%w: empty transaction reference", domain.ErrDisbursementFailed)
	}

	rec := domain.Record{
		UserID:          req.UserID,
		Username:        req.Username,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		LastRequestTime: now,
		WalletAddress:   wallet,
		TxReference:     txRef,
	}
	rcpt := Receipt{ClaimID: claimID, TxReference: txRef, Amount: c.amount, Record: rec}

	if err := c.appendRecord(sendCtx, rec); err != nil {
		c.enqueue(rec)
		return rcpt, &domain.ReconciliationError{Record: rec, Err: err}
	}
	return rcpt, nil
}

func (c *Coordinator) snapshot(ctx context.Context) ([]domain.Record, error) {
	var history []domain.Record
	err := c.retry.do(ctx, func(ctx context.Context) error {
		var lerr error
		history, lerr = c.ledger.ListAll(ctx)
		return lerr
	})
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.pending) == 0 {
		return history, nil
	}
	out := make([]domain.Record, 0, len(history)+len(c.pending))
	out = append(out, history...)
	return append(out, c.pending...), nil
}

// appendRecord grava com retry. Conflito significa que uma tentativa anterior
// já gravou a mesma referência de transação, então conta como sucesso.
func (c *Coordinator) appendRecord(ctx context.Context, rec domain.Record) error {
	err := c.retry.do(ctx, func(ctx context.Context) error {
		return c.ledger.Append(ctx, rec)
	})
	if errors.Is(err, domain.ErrStoreConflict) {
		c.log.WithFields(logrus.Fields{
			"event":   "ledger_append_conflict",
			"user_id": rec.UserID,
			"tx_hash": rec.TxReference,
		}).Warn("record already present in ledger")
		return nil
	}
	return err
}

func (c *Coordinator) enqueue(rec domain.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = append(c.pending, rec)
}

// Pending devolve uma cópia da fila de reconciliação.
func (c *Coordinator) Pending() []domain.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Record, len(c.pending))
	copy(out, c.pending)
	return out
}

// Reconcile tenta gravar de novo os registros pendentes. Retorna quantos
// foram gravados; o primeiro erro encontrado interrompe a rodada.
// Chamadas concorrentes são serializadas.
func (c *Coordinator) Reconcile(ctx context.Context) (int, error) {
	c.reconcileMu.Lock()
	defer c.reconcileMu.Unlock()

	written := 0
	for _, rec := range c.Pending() {
		if err := c.appendRecord(ctx, rec); err != nil {
			return written, err
		}
		c.remove(rec.TxReference)
		written++
		c.log.WithFields(logrus.Fields{
			"event":   "ledger_reconciled",
			"user_id": rec.UserID,
			"wallet":  rec.WalletAddress,
			"tx_hash": rec.TxReference,
		}).Info("pending record written")
	}
	return written, nil
}

func (c *Coordinator) remove(txRef string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, rec := range c.pending {
		if rec.TxReference == txRef {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			return
		}
	}
}

// StartReconciler inicia uma goroutine que chama Reconcile periodicamente.
// Pare cancelando o contexto.
func (c *Coordinator) StartReconciler(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}

	t := time.NewTicker(every)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if _, err := c.Reconcile(ctx); err != nil {
					c.log.WithError(err).WithField("event", "ledger_reconcile_failed").Warn("reconciliation round failed")
				}
			}
		}
	}()
}

func (c *Coordinator) finish(ctx context.Context, claimID, userID string, log logrus.FieldLogger, rcpt Receipt, err error) {
	outcome := domain.OutcomeOf(err)
	entry := log.WithField("outcome", outcome)

	switch domain.Classify(err) {
	case domain.CategoryNone:
		entry.WithField("tx_hash", rcpt.TxReference).Info("claim recorded")
	case domain.CategoryInfrastructure:
		if rcpt.TxReference != "" {
			entry = entry.WithField("tx_hash", rcpt.TxReference)
		}
		entry.WithError(err).Error("claim failed")
	default:
		entry.WithError(err).Info("claim denied")
	}

	if c.stats == nil {
		return
	}
	serr := c.stats.Record(context.WithoutCancel(ctx), domain.ClaimEvent{
		ClaimID: claimID,
		UserID:  userID,
		Outcome: outcome,
		At:      c.now(),
	})
	if serr != nil {
		log.WithError(serr).WithField("event", "stats_record_failed").Warn("stats store error")
	}
}
