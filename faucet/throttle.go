package faucet

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

type KeyFunc func(r *http.Request) string

// Throttler decide por chave; infra.ThrottleStore implementa.
type Throttler interface {
	Allow(key string) (bool, time.Duration)
}

type ThrottleOptions struct {
	Store               Throttler
	KeyFn               KeyFunc
	KeyHeader           string
	TrustXForwardedFor  bool
	RejectStatus        int
	AddRateLimitHeaders bool
	Log                 logrus.FieldLogger
}

type rateInfo interface {
	RPS() float64
	Burst() int
}

func DefaultKeyFunc(keyHeader string, trustXFF bool) KeyFunc {
	return func(r *http.Request) string {
		if keyHeader != "" {
			if v := strings.TrimSpace(r.Header.Get(keyHeader)); v != "" {
				return v
			}
		}

		if trustXFF {
			// primeiro IP do X-Forwarded-For (cliente original)
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				ip, _, _ := strings.Cut(xff, ",")
				if ip = strings.TrimSpace(ip); ip != "" {
					return ip
				}
			}
		}

		host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
		if err == nil && host != "" {
			return host
		}
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return "unknown"
	}
}

// ThrottleMiddleware limita rajadas por cliente antes do coordinator.
// Sem Store o middleware é transparente.
func ThrottleMiddleware(opts ThrottleOptions) func(next http.Handler) http.Handler {
	if opts.Store == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusTooManyRequests
	}
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.KeyHeader, opts.TrustXForwardedFor)
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := opts.KeyFn(r)

			if opts.AddRateLimitHeaders {
				w.Header().Set("X-RateLimit-Key", key)
				if ri, ok := opts.Store.(rateInfo); ok {
					w.Header().Set("X-RateLimit-RPS", formatFloat(ri.RPS()))
					w.Header().Set("X-RateLimit-Burst", formatInt(ri.Burst()))
				}
			}

			ok, wait := opts.Store.Allow(key)
			if !ok {
				if secs := retryAfterSeconds(wait); secs > 0 {
					w.Header().Set("Retry-After", formatInt(secs))
				}
				opts.Log.WithFields(logrus.Fields{
					"event": "throttled",
					"key":   key,
					"path":  r.URL.Path,
				}).Debug("request throttled")
				http.Error(w, http.StatusText(opts.RejectStatus), opts.RejectStatus)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
