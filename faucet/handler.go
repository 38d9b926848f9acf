package faucet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"faucet-gateway/faucet/application"
	"faucet-gateway/faucet/domain"

	"github.com/sirupsen/logrus"
)

// Claimer é o que o handler precisa do coordinator.
type Claimer interface {
	Claim(ctx context.Context, req application.ClaimRequest) (application.Receipt, error)
}

type HandlerOptions struct {
	Claimer  Claimer
	Renderer Renderer

	// UserHeader carrega o id do usuário já autenticado por quem está na frente
	// (proxy, bot bridge). Default "X-User-ID".
	UserHeader string

	// RetryAfter sugerido em falhas de infraestrutura (503). Default 30s.
	RetryAfter time.Duration

	// Throttle opcional na frente de /claim.
	Throttle *ThrottleOptions

	Log logrus.FieldLogger
}

type claimBody struct {
	WalletAddress string `json:"wallet_address"`
	Username      string `json:"username"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
}

type claimResponse struct {
	OK                bool   `json:"ok"`
	Message           string `json:"message"`
	Reason            string `json:"reason,omitempty"`
	TxHash            string `json:"tx_hash,omitempty"`
	ExplorerURL       string `json:"explorer_url,omitempty"`
	RetryAfterSeconds int    `json:"retry_after_seconds,omitempty"`
}

const maxBodyBytes = 4 << 10

// NewHandler monta o mux com POST /claim e GET /healthz.
func NewHandler(opts HandlerOptions) http.Handler {
	if opts.UserHeader == "" {
		opts.UserHeader = "X-User-ID"
	}
	if opts.RetryAfter <= 0 {
		opts.RetryAfter = 30 * time.Second
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}

	var claim http.Handler = &claimHandler{opts: opts}
	if opts.Throttle != nil {
		claim = ThrottleMiddleware(*opts.Throttle)(claim)
	}

	mux := http.NewServeMux()
	mux.Handle("POST /claim", claim)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}

type claimHandler struct {
	opts HandlerOptions
}

func (h *claimHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body claimBody
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		h.write(w, application.Receipt{}, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err))
		return
	}

	req := application.ClaimRequest{
		UserID:        strings.TrimSpace(r.Header.Get(h.opts.UserHeader)),
		WalletAddress: body.WalletAddress,
		Username:      body.Username,
		FirstName:     body.FirstName,
		LastName:      body.LastName,
	}
	rcpt, err := h.opts.Claimer.Claim(r.Context(), req)
	if errors.Is(err, context.Canceled) && r.Context().Err() != nil {
		// cliente foi embora; ninguém para ler a resposta
		return
	}
	h.write(w, rcpt, err)
}

func (h *claimHandler) write(w http.ResponseWriter, rcpt application.Receipt, err error) {
	status := StatusFor(err)
	resp := claimResponse{
		OK:      err == nil,
		Message: h.opts.Renderer.Message(rcpt, err),
		TxHash:  rcpt.TxReference,
	}
	if err != nil {
		resp.Reason = domain.OutcomeOf(err)
	}
	if errors.Is(err, domain.ErrInvalidRequest) {
		resp.Message = BadRequestMessage(h.opts.UserHeader)
	}
	if rcpt.TxReference != "" {
		resp.ExplorerURL = h.opts.Renderer.ExplorerURL(rcpt.TxReference)
	}

	if wait, ok := domain.RetryAfter(err); ok {
		resp.RetryAfterSeconds = retryAfterSeconds(wait)
	} else if status == http.StatusServiceUnavailable {
		resp.RetryAfterSeconds = retryAfterSeconds(h.opts.RetryAfter)
	}
	if resp.RetryAfterSeconds > 0 {
		w.Header().Set("Retry-After", formatInt(resp.RetryAfterSeconds))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if eerr := json.NewEncoder(w).Encode(resp); eerr != nil {
		h.opts.Log.WithError(eerr).WithField("event", "http_write_failed").Warn("could not write claim response")
	}
}

// StatusFor traduz o erro de um claim para status HTTP.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, domain.ErrInvalidAddress), errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotMember):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrCooldownActive):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrWalletMismatch), errors.Is(err, domain.ErrWalletAlreadyClaimed):
		return http.StatusConflict
	case errors.Is(err, domain.ErrPostDisbursementRecord):
		return http.StatusBadGateway
	}
	return http.StatusServiceUnavailable
}
