package handlers

import (
	"bytes"
	"html/template"
	"log/slog"
	"net/http"

	apierrors "github.com/VigneshMurugan/pdf-utils/internal/api/errors"
)

// donationButtonTmpl — HTML-фрагмент кнопки пожертвования.
// URL экранируется html/template.
var donationButtonTmpl = template.Must(template.New("donation-button").Parse(`
<div class="card bg-gradient-to-r from-yellow-50 to-orange-50 border-yellow-200" style="padding: 1rem; text-align: center; border-radius: 0.5rem; border: 1px solid #fbbf24;">
  <div style="display: flex; align-items: center; justify-content: center; margin-bottom: 1rem;">
    <span style="font-size: 1.5rem;">☕</span>
    <span style="font-size: 1rem; color: #ef4444; margin-left: 0.5rem;">❤️</span>
  </div>
  <h3 style="font-size: 1.125rem; font-weight: 600; color: #111827; margin-bottom: 0.5rem;">Enjoying PDF Utils?</h3>
  <p style="font-size: 0.875rem; color: #6b7280; margin-bottom: 1rem;">Support the development of this free tool by buying me a coffee!</p>
  <a href="{{.URL}}" target="_blank" rel="noopener noreferrer"
     style="display: inline-flex; align-items: center; background-color: #eab308; color: white; font-weight: 500; padding: 0.5rem 1rem; border-radius: 0.5rem; text-decoration: none;">
    <span style="margin-right: 0.5rem;">☕</span>
    <span>Buy me a coffee</span>
  </a>
  <p style="font-size: 0.75rem; color: #9ca3af; margin-top: 1rem;">Your support helps keep this service free and ad-free</p>
</div>
`))

// DonationHandler отдаёт ссылку на страницу пожертвований.
type DonationHandler struct {
	url      string
	platform string
	logger   *slog.Logger
}

// NewDonationHandler создаёт обработчик donation endpoints.
func NewDonationHandler(url, platform string, logger *slog.Logger) *DonationHandler {
	return &DonationHandler{
		url:      url,
		platform: platform,
		logger:   logger.With(slog.String("component", "donation_handler")),
	}
}

// DonationLink обрабатывает GET /api/donation-link.
func (h *DonationHandler) DonationLink(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"url":      h.url,
		"platform": h.platform,
	})
}

// DonationButton обрабатывает GET /api/donation-button.
func (h *DonationHandler) DonationButton(w http.ResponseWriter, _ *http.Request) {
	var buf bytes.Buffer
	if err := donationButtonTmpl.Execute(&buf, struct{ URL string }{URL: h.url}); err != nil {
		h.logger.Error("Ошибка рендеринга кнопки", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Internal server error")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
