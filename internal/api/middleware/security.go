package middleware

import "net/http"

// securityHeaders — заголовки защиты, выставляемые на каждый ответ.
var securityHeaders = map[string]string{
	"X-Content-Type-Options":       "nosniff",
	"X-Frame-Options":              "SAMEORIGIN",
	"X-DNS-Prefetch-Control":       "off",
	"Referrer-Policy":              "no-referrer",
	"Cross-Origin-Resource-Policy": "same-origin",
	"Cross-Origin-Opener-Policy":   "same-origin",
	"Strict-Transport-Security":    "max-age=15552000; includeSubDomains",
	"Content-Security-Policy":      "default-src 'self'; frame-ancestors 'self'; object-src 'none'",
}

// SecurityHeaders выставляет заголовки защиты до передачи запроса дальше.
// Обработчик может переопределить любой из них.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		for k, v := range securityHeaders {
			h.Set(k, v)
		}
		next.ServeHTTP(w, r)
	})
}
