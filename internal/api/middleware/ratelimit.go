// ratelimit.go — ограничение частоты запросов по адресу клиента.
// Скользящее окно httprate: не более requests запросов за window.
package middleware

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/httprate"

	apierrors "github.com/VigneshMurugan/pdf-utils/internal/api/errors"
)

// RateLimit возвращает middleware ограничения частоты запросов.
// trustProxy = true: адрес клиента определяется по заголовкам
// доверенного reverse proxy (см. forwardedClientIP), иначе по RemoteAddr.
func RateLimit(requests int, window time.Duration, trustProxy bool) func(http.Handler) http.Handler {
	keyFunc := httprate.KeyByIP
	if trustProxy {
		keyFunc = keyByForwardedIP
	}

	return httprate.Limit(requests, window,
		httprate.WithKeyFuncs(keyFunc),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			apierrors.RateLimited(w)
		}),
	)
}

// RealIP заменяет RemoteAddr адресом клиента за доверенным reverse proxy,
// чтобы журнал запросов видел тот же адрес, что и rate limit.
func RealIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ip := forwardedClientIP(r); ip != "" {
			r.RemoteAddr = ip
		}
		next.ServeHTTP(w, r)
	})
}

// keyByForwardedIP — ключ rate limit за reverse proxy.
func keyByForwardedIP(r *http.Request) (string, error) {
	if ip := forwardedClientIP(r); ip != "" {
		return ip, nil
	}
	return httprate.KeyByIP(r)
}

// forwardedClientIP возвращает последний адрес X-Forwarded-For, затем
// X-Real-IP. Последний адрес добавляет сам прокси; адреса левее
// присылает клиент, и доверять им нельзя. Пустая строка, если
// заголовков нет или адрес некорректен.
func forwardedClientIP(r *http.Request) string {
	if xff := r.Header.Values("X-Forwarded-For"); len(xff) > 0 {
		last := xff[len(xff)-1]
		if i := strings.LastIndexByte(last, ','); i >= 0 {
			last = last[i+1:]
		}
		if ip := net.ParseIP(strings.TrimSpace(last)); ip != nil {
			return ip.String()
		}
		return ""
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		if ip := net.ParseIP(xri); ip != nil {
			return ip.String()
		}
	}
	return ""
}
