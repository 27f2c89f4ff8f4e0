package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/VigneshMurugan/pdf-utils/internal/config"
	"github.com/VigneshMurugan/pdf-utils/internal/service"
	"github.com/VigneshMurugan/pdf-utils/internal/storage/filestore"
	"github.com/VigneshMurugan/pdf-utils/internal/storage/index"
	"github.com/VigneshMurugan/pdf-utils/internal/unlock"
)

// testLogger возвращает логгер для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeEngine «снимает» пароль: принимает только пароль "secret"
// и пишет вход без изменений.
type fakeEngine struct{}

func (fakeEngine) Unlock(_ context.Context, src io.ReadSeeker, dst io.Writer, password string) error {
	if password != "secret" {
		return fmt.Errorf("%w: wrong password", unlock.ErrInvalidPassword)
	}
	_, err := io.Copy(dst, src)
	return err
}

// fakeDeps — зависимости с заданным состоянием.
type fakeDeps map[string]bool

func (d fakeDeps) Health() map[string]bool { return d }

// testEnv — собранный роутер и его зависимости.
type testEnv struct {
	router http.Handler
	idx    *index.Index
	store  *filestore.FileStore
}

// setupTestEnv собирает все handlers поверх временной директории.
func setupTestEnv(t *testing.T, maxFileSize int64, deps DependencyHealth) *testEnv {
	t.Helper()

	store, err := filestore.New(t.TempDir())
	if err != nil {
		t.Fatalf("Ошибка создания FileStore: %v", err)
	}
	idx := index.New(store, time.Hour, testLogger())
	if err := idx.BuildFromSource(); err != nil {
		t.Fatalf("Ошибка построения индекса: %v", err)
	}

	cfg := &config.Config{MaxFileSize: maxFileSize, UnlockTimeout: 10 * time.Second}
	pipeline := service.NewPipelineService(cfg, store, idx, fakeEngine{}, nil, testLogger())
	downloads := service.NewDownloadService(store, idx, testLogger())

	api := NewAPIHandler(
		NewPDFHandler(pipeline, downloads, maxFileSize, testLogger()),
		NewDonationHandler("https://www.buymeacoffee.com/test", "buymeacoffee", testLogger()),
		NewHealthHandler(store.DataDir(), idx, deps),
		NewOpenAPIHandler([]byte(`{"openapi":"3.0.3"}`)),
		NewMetricsHandler(),
	)

	return &testEnv{
		router: HandlerFromMux(api, chi.NewRouter()),
		idx:    idx,
		store:  store,
	}
}

// uploadRequest строит multipart-запрос POST /api/unlock-pdf.
// При пустом contentType поле pdf не добавляется.
func uploadRequest(t *testing.T, data []byte, contentType, password string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if contentType != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="pdf"; filename="report.pdf"`)
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = part.Write(data)
	}
	if password != "" {
		_ = mw.WriteField("password", password)
	}
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/unlock-pdf", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// errorResponse — тело ответа ошибки.
type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// serve выполняет запрос через роутер.
func (e *testEnv) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// assertError проверяет статус и код ответа ошибки.
func assertError(t *testing.T, rec *httptest.ResponseRecorder, status int, code, message string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("статус: ожидалось %d, получено %d (%s)", status, rec.Code, rec.Body.String())
	}
	var body errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("ошибка разбора тела: %v", err)
	}
	if body.Error.Code != code {
		t.Errorf("code: ожидалось %s, получено %s", code, body.Error.Code)
	}
	if message != "" && body.Error.Message != message {
		t.Errorf("message: ожидалось %q, получено %q", message, body.Error.Message)
	}
}

func TestUnlockAndDownload(t *testing.T) {
	env := setupTestEnv(t, 1<<20, nil)
	content := []byte("%PDF-1.7 test document")

	rec := env.serve(uploadRequest(t, content, "application/pdf", "secret"))
	if rec.Code != http.StatusOK {
		t.Fatalf("unlock: ожидалось 200, получено %d (%s)", rec.Code, rec.Body.String())
	}

	var resp struct {
		Success     bool   `json:"success"`
		Message     string `json:"message"`
		DownloadURL string `json:"downloadUrl"`
		FileName    string `json:"fileName"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("ошибка разбора ответа: %v", err)
	}
	if !resp.Success || resp.Message != "PDF unlocked successfully" {
		t.Errorf("неверный ответ: %+v", resp)
	}
	if resp.FileName != "unlocked-report.pdf" {
		t.Errorf("fileName: получено %s", resp.FileName)
	}
	if !strings.HasPrefix(resp.DownloadURL, "/api/download/") {
		t.Fatalf("downloadUrl: получено %s", resp.DownloadURL)
	}

	// Первое скачивание отдаёт содержимое
	rec = env.serve(httptest.NewRequest(http.MethodGet, resp.DownloadURL, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("download: ожидалось 200, получено %d", rec.Code)
	}
	if !bytes.Equal(rec.Body.Bytes(), content) {
		t.Errorf("тело не совпадает: %q", rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("Content-Type: получено %s", ct)
	}

	// Повторное: 404
	rec = env.serve(httptest.NewRequest(http.MethodGet, resp.DownloadURL, nil))
	assertError(t, rec, http.StatusNotFound, "NOT_FOUND", service.MsgFileNotFound)
}

func TestUnlock_WrongType(t *testing.T) {
	env := setupTestEnv(t, 1<<20, nil)

	rec := env.serve(uploadRequest(t, []byte("0123456789"), "text/plain", "secret"))
	assertError(t, rec, http.StatusBadRequest, "VALIDATION_ERROR", service.MsgOnlyPDF)

	entries, _ := env.store.Scan()
	if len(entries) != 0 {
		t.Errorf("файлы не должны сохраняться, найдено %d", len(entries))
	}
}

func TestUnlock_MissingFile(t *testing.T) {
	env := setupTestEnv(t, 1<<20, nil)

	rec := env.serve(uploadRequest(t, nil, "", "secret"))
	assertError(t, rec, http.StatusBadRequest, "VALIDATION_ERROR", service.MsgNoFile)
}

func TestUnlock_NotMultipart(t *testing.T) {
	env := setupTestEnv(t, 1<<20, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/unlock-pdf", strings.NewReader(`{"password":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	assertError(t, env.serve(req), http.StatusBadRequest, "VALIDATION_ERROR", service.MsgNoFile)
}

func TestUnlock_MissingPassword(t *testing.T) {
	env := setupTestEnv(t, 1<<20, nil)

	rec := env.serve(uploadRequest(t, []byte("%PDF"), "application/pdf", ""))
	assertError(t, rec, http.StatusBadRequest, "VALIDATION_ERROR", service.MsgPasswordRequired)
}

func TestUnlock_WrongPassword(t *testing.T) {
	env := setupTestEnv(t, 1<<20, nil)

	rec := env.serve(uploadRequest(t, []byte("%PDF"), "application/pdf", "wrong"))
	assertError(t, rec, http.StatusBadRequest, "INVALID_PASSWORD", service.MsgInvalidPassword)

	entries, _ := env.store.Scan()
	if len(entries) != 0 {
		t.Errorf("после неверного пароля файлов не остаётся, найдено %d", len(entries))
	}
}

func TestUnlock_TooLarge(t *testing.T) {
	t.Run("файл больше лимита", func(t *testing.T) {
		env := setupTestEnv(t, 1<<20, nil)
		data := bytes.Repeat([]byte("x"), 1<<20+10)

		rec := env.serve(uploadRequest(t, data, "application/pdf", "secret"))
		assertError(t, rec, http.StatusBadRequest, "FILE_TOO_LARGE", "File too large. Maximum size is 1MB.")
	})

	t.Run("тело больше лимита с запасом", func(t *testing.T) {
		env := setupTestEnv(t, 1<<20, nil)
		data := bytes.Repeat([]byte("x"), 3<<20)

		rec := env.serve(uploadRequest(t, data, "application/pdf", "secret"))
		assertError(t, rec, http.StatusBadRequest, "FILE_TOO_LARGE", "File too large. Maximum size is 1MB.")
	})
}

func TestUnlock_Streaming(t *testing.T) {
	t.Run("пароль перед файлом", func(t *testing.T) {
		env := setupTestEnv(t, 1<<20, nil)

		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		_ = mw.WriteField("password", "secret")
		_ = mw.WriteField("comment", "ignored")
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="pdf"; filename="my report.pdf"`)
		h.Set("Content-Type", "application/pdf")
		part, _ := mw.CreatePart(h)
		_, _ = part.Write([]byte("%PDF-1.7 streamed"))
		_ = mw.Close()

		req := httptest.NewRequest(http.MethodPost, "/api/unlock-pdf", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		rec := env.serve(req)
		if rec.Code != http.StatusOK {
			t.Fatalf("ожидалось 200, получено %d (%s)", rec.Code, rec.Body.String())
		}
		var resp struct {
			FileName string `json:"fileName"`
		}
		_ = json.NewDecoder(rec.Body).Decode(&resp)
		if resp.FileName != "unlocked-my_report.pdf" {
			t.Errorf("fileName: ожидалось unlocked-my_report.pdf, получено %s", resp.FileName)
		}
	})

	t.Run("тело оборвано после файла", func(t *testing.T) {
		env := setupTestEnv(t, 1<<20, nil)

		full := uploadRequest(t, []byte("%PDF-1.7 cut"), "application/pdf", "secret")
		raw, _ := io.ReadAll(full.Body)
		// Отрезаем поле password и закрывающую границу
		cut := raw[:bytes.Index(raw, []byte(`name="password"`))]

		req := httptest.NewRequest(http.MethodPost, "/api/unlock-pdf", bytes.NewReader(cut))
		req.Header.Set("Content-Type", full.Header.Get("Content-Type"))
		assertError(t, env.serve(req), http.StatusBadRequest, "VALIDATION_ERROR", service.MsgNoFile)

		if entries, _ := env.store.Scan(); len(entries) != 0 {
			t.Errorf("принятая загрузка должна удаляться, найдено %d", len(entries))
		}
		if n := env.idx.Count(); n != 0 {
			t.Errorf("индекс должен быть пустым, записей: %d", n)
		}
	})

	t.Run("слишком длинный пароль", func(t *testing.T) {
		env := setupTestEnv(t, 1<<20, nil)

		rec := env.serve(uploadRequest(t, []byte("%PDF-1.7"), "application/pdf", strings.Repeat("p", maxPasswordBytes+1)))
		assertError(t, rec, http.StatusBadRequest, "INVALID_PASSWORD", service.MsgInvalidPassword)

		if entries, _ := env.store.Scan(); len(entries) != 0 {
			t.Errorf("файлы не должны оставаться, найдено %d", len(entries))
		}
	})
}

func TestDownload_InvalidToken(t *testing.T) {
	env := setupTestEnv(t, 1<<20, nil)

	for _, path := range []string{
		"/api/download/not-a-uuid",
		"/api/download/6f1c2a9e-1d1b-4c1e-9a53-3e4b1f6f0d2a",
		"/api/download/..%2F..%2Fetc%2Fpasswd",
	} {
		rec := env.serve(httptest.NewRequest(http.MethodGet, path, nil))
		assertError(t, rec, http.StatusNotFound, "NOT_FOUND", "")
	}
}

func TestAPIHealth(t *testing.T) {
	env := setupTestEnv(t, 1<<20, nil)

	rec := env.serve(httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("ожидалось 200, получено %d", rec.Code)
	}
	var body map[string]string
	_ = json.NewDecoder(rec.Body).Decode(&body)
	if body["status"] != "OK" || body["message"] != "PDF Utils API is running" {
		t.Errorf("неверный ответ: %v", body)
	}
}

func TestHealthLive(t *testing.T) {
	env := setupTestEnv(t, 1<<20, nil)

	rec := env.serve(httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("ожидалось 200, получено %d", rec.Code)
	}
}

func TestHealthReady(t *testing.T) {
	readyStatus := func(t *testing.T, env *testEnv) (int, string) {
		t.Helper()
		rec := env.serve(httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		var body struct {
			Status string `json:"status"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("ошибка разбора тела: %v", err)
		}
		return rec.Code, body.Status
	}

	t.Run("ok", func(t *testing.T) {
		env := setupTestEnv(t, 1<<20, fakeDeps{"donation:example.com:443": true})
		if code, status := readyStatus(t, env); code != http.StatusOK || status != "ok" {
			t.Errorf("ожидалось 200/ok, получено %d/%s", code, status)
		}
	})

	t.Run("зависимость недоступна", func(t *testing.T) {
		env := setupTestEnv(t, 1<<20, fakeDeps{"donation:example.com:443": false})
		if code, status := readyStatus(t, env); code != http.StatusOK || status != "degraded" {
			t.Errorf("ожидалось 200/degraded, получено %d/%s", code, status)
		}
	})

	t.Run("счётчики индекса", func(t *testing.T) {
		env := setupTestEnv(t, 1<<20, nil)
		if rec := env.serve(uploadRequest(t, []byte("%PDF-1.7"), "application/pdf", "secret")); rec.Code != http.StatusOK {
			t.Fatalf("unlock: ожидалось 200, получено %d", rec.Code)
		}

		rec := env.serve(httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		var body struct {
			Checks struct {
				Index struct {
					Total    int `json:"total"`
					Uploaded int `json:"uploaded"`
					Unlocked int `json:"unlocked"`
				} `json:"index"`
			} `json:"checks"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("ошибка разбора тела: %v", err)
		}
		got := body.Checks.Index
		if got.Total != 1 || got.Uploaded != 0 || got.Unlocked != 1 {
			t.Errorf("ожидалось total=1 uploaded=0 unlocked=1, получено %+v", got)
		}
	})

	t.Run("индекс не построен", func(t *testing.T) {
		env := setupTestEnv(t, 1<<20, nil)
		env.router = HandlerFromMux(NewAPIHandler(nil, nil,
			NewHealthHandler(env.store.DataDir(), index.New(env.store, time.Hour, testLogger()), nil),
			nil, nil), chi.NewRouter())
		if code, status := readyStatus(t, env); code != http.StatusServiceUnavailable || status != "fail" {
			t.Errorf("ожидалось 503/fail, получено %d/%s", code, status)
		}
	})

	t.Run("директория недоступна", func(t *testing.T) {
		env := setupTestEnv(t, 1<<20, nil)
		if err := os.RemoveAll(env.store.DataDir()); err != nil {
			t.Fatal(err)
		}
		if code, status := readyStatus(t, env); code != http.StatusServiceUnavailable || status != "fail" {
			t.Errorf("ожидалось 503/fail, получено %d/%s", code, status)
		}
	})
}

func TestDonationLink(t *testing.T) {
	env := setupTestEnv(t, 1<<20, nil)

	rec := env.serve(httptest.NewRequest(http.MethodGet, "/api/donation-link", nil))
	var body map[string]string
	_ = json.NewDecoder(rec.Body).Decode(&body)
	if body["url"] != "https://www.buymeacoffee.com/test" || body["platform"] != "buymeacoffee" {
		t.Errorf("неверный ответ: %v", body)
	}
}

func TestDonationButton_Escaping(t *testing.T) {
	h := NewDonationHandler(`https://example.com/?a="><script>alert(1)</script>`, "x", testLogger())

	rec := httptest.NewRecorder()
	h.DonationButton(rec, httptest.NewRequest(http.MethodGet, "/api/donation-button", nil))

	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type: получено %s", ct)
	}
	if strings.Contains(rec.Body.String(), "<script>") {
		t.Error("URL должен экранироваться")
	}
	if !strings.Contains(rec.Body.String(), "Buy me a coffee") {
		t.Error("нет текста кнопки")
	}
}

func TestOpenAPIAndMetrics(t *testing.T) {
	env := setupTestEnv(t, 1<<20, nil)

	rec := env.serve(httptest.NewRequest(http.MethodGet, "/api/openapi.json", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "3.0.3") {
		t.Errorf("openapi.json: %d %s", rec.Code, rec.Body.String())
	}

	rec = env.serve(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("/metrics: ожидалось 200, получено %d", rec.Code)
	}
}

func TestUnknownAPIRoute(t *testing.T) {
	env := setupTestEnv(t, 1<<20, nil)

	rec := env.serve(httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	assertError(t, rec, http.StatusNotFound, "NOT_FOUND", "")
}
