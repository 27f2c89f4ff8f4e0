// pipeline.go — приём загрузки и снятие пароля.
//
// Порядок:
//  1. Валидация (файл, content type, пароль, размер) до записи на диск
//  2. Accept: сохранение оригинала upload-{token}-{name}.pdf (стадия uploaded)
//  3. Process: снятие пароля в unlocked-{token}-{name}.pdf и проверка результата
//  4. Удаление оригинала при любом исходе
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/VigneshMurugan/pdf-utils/internal/config"
	"github.com/VigneshMurugan/pdf-utils/internal/domain/model"
	"github.com/VigneshMurugan/pdf-utils/internal/storage/filestore"
	"github.com/VigneshMurugan/pdf-utils/internal/storage/index"
	"github.com/VigneshMurugan/pdf-utils/internal/unlock"
)

// pdfContentType — единственный допустимый тип загрузки.
const pdfContentType = "application/pdf"

// CodeFileTooLarge — код ответа для превышения лимита размера.
const CodeFileTooLarge = "FILE_TOO_LARGE"

// ArtifactVerifier проверяет, что результат открывается без пароля.
type ArtifactVerifier interface {
	Verify(rs io.ReadSeeker) (*unlock.Report, error)
}

// UnlockRequest — входные данные снятия пароля.
type UnlockRequest struct {
	// File — содержимое загруженного файла; nil, если файла нет
	File io.Reader
	// FileName — имя файла от клиента
	FileName string
	// ContentType — заявленный клиентом тип
	ContentType string
	// Size — заявленный размер; < 0, если неизвестен
	Size int64
	// Password — пароль документа
	Password string
}

// UnlockResult — результат успешного снятия пароля.
type UnlockResult struct {
	// Token — staging token артефакта
	Token string
	// DownloadURL — относительный URL одноразового скачивания
	DownloadURL string
	// FileName — имя, под которым клиент получит файл
	FileName string
	// Size — размер артефакта в байтах
	Size int64
	// Pages — количество страниц (0, если проверка отключена)
	Pages int
}

// PipelineService — приём загрузок и снятие пароля.
type PipelineService struct {
	store         *filestore.FileStore
	idx           *index.Index
	engine        unlock.Engine
	verifier      ArtifactVerifier
	maxFileSize   int64
	unlockTimeout time.Duration
	logger        *slog.Logger
}

// NewPipelineService создаёт сервис. verifier может быть nil,
// тогда результат не проверяется.
func NewPipelineService(
	cfg *config.Config,
	store *filestore.FileStore,
	idx *index.Index,
	engine unlock.Engine,
	verifier ArtifactVerifier,
	logger *slog.Logger,
) *PipelineService {
	return &PipelineService{
		store:         store,
		idx:           idx,
		engine:        engine,
		verifier:      verifier,
		maxFileSize:   cfg.MaxFileSize,
		unlockTimeout: cfg.UnlockTimeout,
		logger:        logger.With(slog.String("component", "pipeline")),
	}
}

// Upload — загрузка, сохранённая на диске и ожидающая снятия пароля.
type Upload struct {
	token       string
	name        string
	storagePath string
}

// Token возвращает staging token загрузки.
func (u *Upload) Token() string {
	return u.token
}

// Unlock принимает загрузку, снимает пароль и готовит артефакт
// к одноразовому скачиванию. Ошибки — *Error.
func (s *PipelineService) Unlock(ctx context.Context, req UnlockRequest) (*UnlockResult, error) {
	if err := s.validate(req); err != nil {
		unlockTotal.WithLabelValues("invalid_input").Inc()
		return nil, err
	}

	up, err := s.Accept(req)
	if err != nil {
		return nil, err
	}
	return s.Process(ctx, up, req.Password)
}

// Accept проверяет файл и сохраняет его в стадии uploaded.
// Пароль не проверяется: в потоке multipart он может идти после файла.
// req.File читается не более чем на maxFileSize+1 байт.
func (s *PipelineService) Accept(req UnlockRequest) (*Upload, error) {
	if err := s.validateFile(req); err != nil {
		unlockTotal.WithLabelValues("invalid_input").Inc()
		return nil, err
	}

	token := filestore.NewToken()
	originalName := filestore.CleanName(displayName(req.FileName))
	uploadName := filestore.StorageName(model.StageUploaded, token, originalName)

	saved, err := s.store.SaveFile(uploadName, req.File, s.maxFileSize)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.Is(err, filestore.ErrTooLarge) || errors.As(err, &maxErr) {
			unlockTotal.WithLabelValues("invalid_input").Inc()
			return nil, s.tooLarge()
		}
		s.logger.Error("Ошибка сохранения загрузки",
			slog.String("token", token),
			slog.String("error", err.Error()),
		)
		unlockTotal.WithLabelValues("processing_failed").Inc()
		return nil, newError(KindProcessingFailed, MsgProcessingFailed, err)
	}
	uploadBytes.Observe(float64(saved.Size))

	s.idx.Add(&model.StagedFile{
		ID:           token,
		OriginalName: originalName,
		StoragePath:  uploadName,
		Stage:        model.StageUploaded,
		Size:         saved.Size,
		CreatedAt:    time.Now().UTC(),
	})

	return &Upload{token: token, name: originalName, storagePath: uploadName}, nil
}

// Discard удаляет принятую загрузку без обработки.
func (s *PipelineService) Discard(up *Upload) {
	s.idx.Remove(up.token)
	s.deleteFile(s.logger.With(slog.String("token", up.token)), up.storagePath, "post_unlock")
}

// Process снимает пароль с принятой загрузки.
// Оригинал удаляется при любом исходе.
func (s *PipelineService) Process(ctx context.Context, up *Upload, password string) (*UnlockResult, error) {
	if password == "" {
		s.Discard(up)
		unlockTotal.WithLabelValues("invalid_input").Inc()
		return nil, newError(KindInvalidInput, MsgPasswordRequired, nil)
	}

	token := up.token
	log := s.logger.With(slog.String("token", token))

	defer s.deleteFile(log, up.storagePath, "post_unlock")

	start := time.Now()
	artifactName, size, report, err := s.unlockStaged(ctx, token, up.storagePath, up.name, password)
	unlockDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		if _, tErr := s.idx.Transition(token, model.StageDeleted, ""); tErr != nil {
			s.idx.Remove(token)
		}
		if errors.Is(err, unlock.ErrInvalidPassword) {
			log.Warn("Неверный пароль или документ не зашифрован")
			unlockTotal.WithLabelValues("invalid_password").Inc()
			return nil, newError(KindInvalidPassword, MsgInvalidPassword, err)
		}
		log.Error("Ошибка снятия пароля",
			slog.String("file", up.name),
			slog.String("error", err.Error()),
		)
		unlockTotal.WithLabelValues("processing_failed").Inc()
		return nil, newError(KindProcessingFailed, MsgProcessingFailed, err)
	}

	staged, err := s.idx.Transition(token, model.StageUnlocked, artifactName)
	if err != nil {
		// Токен вытеснен или удалён sweep во время обработки
		s.deleteFile(log, artifactName, "post_unlock")
		log.Error("Ошибка перехода в unlocked", slog.String("error", err.Error()))
		unlockTotal.WithLabelValues("processing_failed").Inc()
		return nil, newError(KindProcessingFailed, MsgProcessingFailed, err)
	}
	staged.Size = size
	s.idx.Add(staged)

	result := &UnlockResult{
		Token:       token,
		DownloadURL: "/api/download/" + token,
		FileName:    staged.DownloadName(),
		Size:        size,
	}
	attrs := []any{slog.Int64("size", size)}
	if report != nil {
		result.Pages = report.Pages
		attrs = append(attrs,
			slog.Int("pages", report.Pages),
			slog.String("pdf_version", report.Version),
		)
	}

	log.Info("PDF разблокирован", attrs...)
	unlockTotal.WithLabelValues("success").Inc()
	return result, nil
}

// validate проверяет входные данные до записи на диск.
// Порядок проверок: файл, content type, пароль, размер.
func (s *PipelineService) validate(req UnlockRequest) error {
	if req.File != nil && isPDFContentType(req.ContentType) && req.Password == "" {
		return newError(KindInvalidInput, MsgPasswordRequired, nil)
	}
	return s.validateFile(req)
}

// validateFile — validate без проверки пароля.
func (s *PipelineService) validateFile(req UnlockRequest) error {
	if req.File == nil {
		return newError(KindInvalidInput, MsgNoFile, nil)
	}
	if !isPDFContentType(req.ContentType) {
		return newError(KindInvalidInput, MsgOnlyPDF,
			fmt.Errorf("content type %q", req.ContentType))
	}
	if req.Size > s.maxFileSize {
		return s.tooLarge()
	}
	return nil
}

// tooLarge — ошибка превышения лимита размера.
func (s *PipelineService) tooLarge() *Error {
	return &Error{
		Kind:    KindInvalidInput,
		Code:    CodeFileTooLarge,
		Message: TooLargeMessage(s.maxFileSize),
	}
}

// unlockStaged снимает пароль с сохранённого оригинала и проверяет результат.
// При ошибке артефакт не остаётся на диске.
func (s *PipelineService) unlockStaged(
	ctx context.Context,
	token, uploadName, originalName, password string,
) (string, int64, *unlock.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, s.unlockTimeout)
	defer cancel()

	src, err := s.store.Open(uploadName)
	if err != nil {
		return "", 0, nil, err
	}
	defer src.Close()

	artifactName := filestore.StorageName(model.StageUnlocked, token, originalName)
	saved, err := s.store.WriteFile(artifactName, func(w io.Writer) error {
		return s.engine.Unlock(ctx, src, w, password)
	})
	if err != nil {
		return "", 0, nil, err
	}

	if s.verifier == nil {
		return artifactName, saved.Size, nil, nil
	}

	report, err := s.verify(artifactName)
	if err != nil {
		s.deleteFile(s.logger.With(slog.String("token", token)), artifactName, "post_unlock")
		return "", 0, nil, fmt.Errorf("проверка результата: %w", err)
	}
	return artifactName, saved.Size, report, nil
}

// verify открывает артефакт и передаёт его verifier.
func (s *PipelineService) verify(name string) (*unlock.Report, error) {
	f, err := s.store.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return s.verifier.Verify(f)
}

// deleteFile удаляет временный файл; ошибка только логируется.
func (s *PipelineService) deleteFile(log *slog.Logger, name, phase string) {
	if err := s.store.DeleteFile(name); err != nil {
		cleanupFailuresTotal.WithLabelValues(phase).Inc()
		log.Error("Ошибка удаления временного файла",
			slog.String("file", name),
			slog.String("phase", phase),
			slog.String("error", err.Error()),
		)
	}
}

// TooLargeMessage — сообщение клиенту о превышении лимита.
// Лимит округляется вверх до целых мегабайт, но не меньше 1MB.
func TooLargeMessage(maxFileSize int64) string {
	mb := (maxFileSize + 1<<20 - 1) >> 20
	if mb < 1 {
		mb = 1
	}
	return fmt.Sprintf("File too large. Maximum size is %dMB.", mb)
}

// isPDFContentType проверяет заявленный тип (параметры игнорируются).
func isPDFContentType(ct string) bool {
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	return strings.EqualFold(mediaType, pdfContentType)
}

// displayName — имя файла без пути; пустое заменяется на document.pdf.
func displayName(name string) string {
	name = filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "document.pdf"
	}
	return name
}
