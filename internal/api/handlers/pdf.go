// pdf.go — HTTP handlers снятия пароля и одноразового скачивания.
package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	openapi_types "github.com/oapi-codegen/runtime/types"

	apierrors "github.com/VigneshMurugan/pdf-utils/internal/api/errors"
	"github.com/VigneshMurugan/pdf-utils/internal/service"
)

const (
	// multipartOverhead — запас на заголовки и поле password сверх лимита файла.
	multipartOverhead = 1 << 20
	// maxPasswordBytes — предел длины поля password.
	maxPasswordBytes = 4 << 10
)

// msgUnlocked — сообщение об успешном снятии пароля.
const msgUnlocked = "PDF unlocked successfully"

// Unlocker — сервис снятия пароля. Загрузка принимается потоком
// (Accept), пароль применяется после разбора всей формы (Process).
type Unlocker interface {
	Accept(req service.UnlockRequest) (*service.Upload, error)
	Process(ctx context.Context, up *service.Upload, password string) (*service.UnlockResult, error)
	Discard(up *service.Upload)
}

// Downloader — сервис одноразового скачивания.
type Downloader interface {
	Serve(w http.ResponseWriter, token string) error
}

// PDFHandler — обработчик PDF endpoints.
type PDFHandler struct {
	pipeline    Unlocker
	downloads   Downloader
	maxFileSize int64
	logger      *slog.Logger
}

// NewPDFHandler создаёт обработчик PDF endpoints.
func NewPDFHandler(pipeline Unlocker, downloads Downloader, maxFileSize int64, logger *slog.Logger) *PDFHandler {
	return &PDFHandler{
		pipeline:    pipeline,
		downloads:   downloads,
		maxFileSize: maxFileSize,
		logger:      logger.With(slog.String("component", "pdf_handler")),
	}
}

// unlockResponse — тело успешного ответа POST /api/unlock-pdf.
type unlockResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	DownloadURL string `json:"downloadUrl"`
	FileName    string `json:"fileName"`
	Size        int64  `json:"size"`
	Pages       int    `json:"pages,omitempty"`
}

// UnlockPDF обрабатывает POST /api/unlock-pdf.
// Multipart form: pdf (файл, обязательно), password (обязательно).
// Поле pdf пишется в хранилище прямо из тела запроса, без временных
// файлов multipart; поля могут идти в любом порядке.
func (h *PDFHandler) UnlockPDF(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize+multipartOverhead)

	mr, err := r.MultipartReader()
	if err != nil {
		apierrors.ValidationError(w, service.MsgNoFile)
		return
	}

	var (
		upload   *service.Upload
		password string
	)
	defer func() {
		if upload != nil {
			h.pipeline.Discard(upload)
		}
	}()

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			h.writeFormError(w, err)
			return
		}

		switch part.FormName() {
		case "password":
			value, err := io.ReadAll(io.LimitReader(part, maxPasswordBytes+1))
			if err != nil {
				h.writeFormError(w, err)
				return
			}
			if len(value) > maxPasswordBytes {
				apierrors.WriteServiceError(w, &service.Error{
					Kind:    service.KindInvalidPassword,
					Message: service.MsgInvalidPassword,
				})
				return
			}
			password = string(value)

		case "pdf":
			if upload != nil || part.FileName() == "" {
				break
			}
			upload, err = h.pipeline.Accept(service.UnlockRequest{
				File:        part,
				FileName:    part.FileName(),
				ContentType: part.Header.Get("Content-Type"),
				Size:        -1,
			})
			if err != nil {
				apierrors.WriteServiceError(w, err)
				return
			}
		}
		// Остаток части (лишние поля, повторный pdf) пропускается
		_ = part.Close()
	}

	if upload == nil {
		apierrors.ValidationError(w, service.MsgNoFile)
		return
	}

	up := upload
	upload = nil
	result, err := h.pipeline.Process(r.Context(), up, password)
	if err != nil {
		apierrors.WriteServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, unlockResponse{
		Success:     true,
		Message:     msgUnlocked,
		DownloadURL: result.DownloadURL,
		FileName:    result.FileName,
		Size:        result.Size,
		Pages:       result.Pages,
	})
}

// writeFormError отвечает на ошибку чтения multipart-тела.
func (h *PDFHandler) writeFormError(w http.ResponseWriter, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		apierrors.FileTooLarge(w, service.TooLargeMessage(h.maxFileSize))
		return
	}
	h.logger.Warn("Ошибка чтения multipart-формы", slog.String("error", err.Error()))
	apierrors.ValidationError(w, service.MsgNoFile)
}

// DownloadPDF обрабатывает GET /api/download/{token}.
// Артефакт отдаётся один раз; повторный запрос получает 404.
func (h *PDFHandler) DownloadPDF(w http.ResponseWriter, _ *http.Request, token openapi_types.UUID) {
	if err := h.downloads.Serve(w, token.String()); err != nil {
		apierrors.WriteServiceError(w, err)
	}
}
