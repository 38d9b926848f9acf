package faucet

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"faucet-gateway/faucet/infra"
)

func TestDefaultKeyFunc_PrefersHeaderWhenSet(t *testing.T) {
	fn := DefaultKeyFunc("X-User-ID", false)

	r := httptest.NewRequest(http.MethodPost, "http://example/claim", nil)
	r.RemoteAddr = "10.0.0.1:1234"
	r.Header.Set("X-User-ID", " 4242 ")

	if got := fn(r); got != "4242" {
		t.Fatalf("expected header key, got %q", got)
	}
}

func TestDefaultKeyFunc_TrustXForwardedForUsesFirstIP(t *testing.T) {
	fn := DefaultKeyFunc("", true)

	r := httptest.NewRequest(http.MethodPost, "http://example/claim", nil)
	r.RemoteAddr = "10.0.0.9:5555"
	r.Header.Set("X-Forwarded-For", "1.2.3.4, 5.6.7.8")

	if got := fn(r); got != "1.2.3.4" {
		t.Fatalf("expected first XFF ip, got %q", got)
	}
}

func TestDefaultKeyFunc_FallbacksToRemoteAddrHost(t *testing.T) {
	fn := DefaultKeyFunc("", false)

	r := httptest.NewRequest(http.MethodPost, "http://example/claim", nil)
	r.RemoteAddr = "10.0.0.9:5555"
	r.Header.Set("X-Forwarded-For", "1.2.3.4")

	if got := fn(r); got != "10.0.0.9" {
		t.Fatalf("expected remote host (XFF not trusted), got %q", got)
	}
}

func TestThrottleMiddleware_AllowsThenRejectsSameKey(t *testing.T) {
	store := infra.NewThrottleStore(0.02, 1)

	calls := 0
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "ok")
	})

	h := ThrottleMiddleware(ThrottleOptions{
		Store:               store,
		AddRateLimitHeaders: true,
		Log:                 quietLogger(),
	})(next)

	// 1) primeira passa
	r1 := httptest.NewRequest(http.MethodPost, "http://example/claim", nil)
	r1.RemoteAddr = "10.0.0.1:1234"
	w1 := httptest.NewRecorder()
	h.ServeHTTP(w1, r1)
	if w1.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w1.Code)
	}
	if got := w1.Header().Get("X-RateLimit-RPS"); got != "0.02" {
		t.Fatalf("expected X-RateLimit-RPS 0.02, got %q", got)
	}
	if got := w1.Header().Get("X-RateLimit-Burst"); got != "1" {
		t.Fatalf("expected X-RateLimit-Burst 1, got %q", got)
	}

	// 2) segunda bloqueia (burst=1 e rps bem baixo)
	r2 := httptest.NewRequest(http.MethodPost, "http://example/claim", nil)
	r2.RemoteAddr = "10.0.0.1:1234"
	w2 := httptest.NewRecorder()
	h.ServeHTTP(w2, r2)
	if w2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w2.Code)
	}
	if got := w2.Header().Get("Retry-After"); got != "50" {
		t.Fatalf("expected Retry-After 50, got %q", got)
	}

	// 3) outro cliente tem seu próprio bucket
	r3 := httptest.NewRequest(http.MethodPost, "http://example/claim", nil)
	r3.RemoteAddr = "10.0.0.2:1234"
	w3 := httptest.NewRecorder()
	h.ServeHTTP(w3, r3)
	if w3.Code != http.StatusOK {
		t.Fatalf("expected 200 for a different client, got %d", w3.Code)
	}

	if calls != 2 {
		t.Fatalf("expected next handler to be called twice, got %d", calls)
	}
}

func TestThrottleMiddleware_NoStoreIsTransparent(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })

	h := ThrottleMiddleware(ThrottleOptions{})(next)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "http://example/claim", nil))

	if !called {
		t.Fatalf("expected next handler to run")
	}
}
