// routes.go — регистрация маршрутов ServerInterface в chi-роутере
// и привязка path-параметров по правилам OpenAPI.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	apierrors "github.com/VigneshMurugan/pdf-utils/internal/api/errors"
	"github.com/VigneshMurugan/pdf-utils/internal/service"
)

// ServerInterfaceWrapper разбирает параметры запроса и вызывает ServerInterface.
type ServerInterfaceWrapper struct {
	Handler ServerInterface
}

// DownloadPDF привязывает {token} как UUID. Некорректный токен
// неотличим от неизвестного: 404.
func (siw *ServerInterfaceWrapper) DownloadPDF(w http.ResponseWriter, r *http.Request) {
	var token openapi_types.UUID

	err := runtime.BindStyledParameterWithOptions("simple", "token", chi.URLParam(r, "token"), &token,
		runtime.BindStyledParameterOptions{
			ParamLocation: runtime.ParamLocationPath,
			Explode:       false,
			Required:      true,
		})
	if err != nil {
		apierrors.NotFound(w, service.MsgFileNotFound)
		return
	}

	siw.Handler.DownloadPDF(w, r, token)
}

// HandlerFromMux регистрирует все маршруты в r.
// apiMiddlewares применяются только к группе /api (rate limit),
// /health/* и /metrics остаются без них.
func HandlerFromMux(si ServerInterface, r chi.Router, apiMiddlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapper := ServerInterfaceWrapper{Handler: si}

	r.Route("/api", func(r chi.Router) {
		r.Use(apiMiddlewares...)

		r.Post("/unlock-pdf", si.UnlockPDF)
		r.Get("/download/{token}", wrapper.DownloadPDF)
		r.Get("/health", si.APIHealth)
		r.Get("/donation-link", si.DonationLink)
		r.Get("/donation-button", si.DonationButton)
		r.Get("/openapi.json", si.GetOpenAPI)

		r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
			apierrors.NotFound(w, "Route not found")
		})
	})

	r.Get("/health/live", si.HealthLive)
	r.Get("/health/ready", si.HealthReady)
	r.Get("/metrics", si.GetMetrics)

	return r
}
