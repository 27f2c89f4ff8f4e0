// download.go — одноразовая отдача разблокированного артефакта.
//
// Захват: unlocked-{token}-… атомарно переименовывается в downloading-{token}-…
// (стадия downloaded). Из конкурентных запросов одного токена захват
// получает ровно один, остальные — NotFound. После отдачи файл удаляется
// сразу, не дожидаясь sweep.
package service

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"strconv"

	"github.com/VigneshMurugan/pdf-utils/internal/domain/model"
	"github.com/VigneshMurugan/pdf-utils/internal/storage/filestore"
	"github.com/VigneshMurugan/pdf-utils/internal/storage/index"
)

// DownloadService — сервис скачивания артефактов.
type DownloadService struct {
	store  *filestore.FileStore
	idx    *index.Index
	logger *slog.Logger
}

// NewDownloadService создаёт сервис скачивания.
func NewDownloadService(
	store *filestore.FileStore,
	idx *index.Index,
	logger *slog.Logger,
) *DownloadService {
	return &DownloadService{
		store:  store,
		idx:    idx,
		logger: logger.With(slog.String("component", "download_service")),
	}
}

// claimedFile — захваченный артефакт.
type claimedFile struct {
	staged *model.StagedFile
	file   *os.File
	size   int64
}

// Serve захватывает артефакт токена и отдаёт его клиенту как application/pdf.
// Возвращает *Error, если ответ ещё не начат (NotFound, ошибка до первого байта).
// Ошибка посреди передачи только логируется: статус уже отправлен.
// Артефакт удаляется после передачи при любом исходе.
func (s *DownloadService) Serve(w http.ResponseWriter, token string) error {
	claimed, err := s.claim(token)
	if err != nil {
		return err
	}
	defer s.finish(claimed)

	log := s.logger.With(slog.String("token", token))

	h := w.Header()
	h.Set("Content-Type", pdfContentType)
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": claimed.staged.DownloadName(),
	}))
	h.Set("Content-Length", strconv.FormatInt(claimed.size, 10))
	h.Set("Cache-Control", "no-store")

	n, err := io.Copy(w, claimed.file)
	if err != nil {
		downloadsTotal.WithLabelValues("stream_error").Inc()
		log.Error("Ошибка передачи файла",
			slog.Int64("written", n),
			slog.String("error", err.Error()),
		)
		if n == 0 {
			h.Del("Content-Disposition")
			h.Del("Content-Length")
			return newError(KindInternal, MsgDownloadFailed, err)
		}
		return nil
	}

	downloadsTotal.WithLabelValues("success").Inc()
	log.Info("Файл отдан клиенту", slog.Int64("size", n))
	return nil
}

// claim находит артефакт токена и захватывает его переименованием.
func (s *DownloadService) claim(token string) (*claimedFile, error) {
	if !filestore.ValidToken(token) {
		downloadsTotal.WithLabelValues("not_found").Inc()
		return nil, newError(KindNotFound, MsgFileNotFound, nil)
	}

	staged, err := s.idx.Get(token)
	if err != nil {
		if errors.Is(err, index.ErrNotFound) {
			downloadsTotal.WithLabelValues("not_found").Inc()
			return nil, newError(KindNotFound, MsgFileNotFound, err)
		}
		s.logger.Error("Ошибка поиска артефакта",
			slog.String("token", token),
			slog.String("error", err.Error()),
		)
		downloadsTotal.WithLabelValues("error").Inc()
		return nil, newError(KindInternal, MsgDownloadFailed, err)
	}

	if staged.Stage != model.StageUnlocked {
		downloadsTotal.WithLabelValues("not_found").Inc()
		return nil, newError(KindNotFound, MsgFileNotFound, nil)
	}

	claimedName, err := filestore.Restage(staged.StoragePath, model.StageDownloaded)
	if err != nil {
		downloadsTotal.WithLabelValues("error").Inc()
		return nil, newError(KindInternal, MsgDownloadFailed, err)
	}

	if err := s.store.Rename(staged.StoragePath, claimedName); err != nil {
		if errors.Is(err, filestore.ErrNotFound) {
			// Захвачен другим запросом или удалён sweep
			s.idx.Forget(token, staged.StoragePath)
			downloadsTotal.WithLabelValues("not_found").Inc()
			return nil, newError(KindNotFound, MsgFileNotFound, err)
		}
		s.logger.Error("Ошибка захвата артефакта",
			slog.String("token", token),
			slog.String("error", err.Error()),
		)
		downloadsTotal.WithLabelValues("error").Inc()
		return nil, newError(KindInternal, MsgDownloadFailed, err)
	}

	if next, err := s.idx.Transition(token, model.StageDownloaded, claimedName); err == nil {
		staged = next
	} else {
		s.logger.Warn("Ошибка перехода в downloaded",
			slog.String("token", token),
			slog.String("error", err.Error()),
		)
		staged.StoragePath = claimedName
	}

	f, err := s.store.Open(claimedName)
	if err != nil {
		s.discard(token, claimedName)
		downloadsTotal.WithLabelValues("not_found").Inc()
		return nil, newError(KindNotFound, MsgFileNotFound, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		s.discard(token, claimedName)
		downloadsTotal.WithLabelValues("error").Inc()
		return nil, newError(KindInternal, MsgDownloadFailed, err)
	}

	return &claimedFile{staged: staged, file: f, size: info.Size()}, nil
}

// finish закрывает и удаляет захваченный артефакт.
func (s *DownloadService) finish(c *claimedFile) {
	c.file.Close()
	s.discard(c.staged.ID, c.staged.StoragePath)
}

// discard удаляет файл и переводит токен в deleted.
// Ошибка удаления логируется, файл останется до sweep.
func (s *DownloadService) discard(token, name string) {
	if err := s.store.DeleteFile(name); err != nil {
		cleanupFailuresTotal.WithLabelValues("post_download").Inc()
		s.logger.Error("Ошибка удаления артефакта после скачивания",
			slog.String("token", token),
			slog.String("file", name),
			slog.String("error", err.Error()),
		)
	}
	if _, err := s.idx.Transition(token, model.StageDeleted, ""); err != nil {
		s.idx.Forget(token, name)
	}
}
