package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS возвращает middleware cross-origin доступа для фронтендов из allowedOrigins.
// Поддерживаются шаблоны вида https://*.vercel.app.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           600,
	})
}
