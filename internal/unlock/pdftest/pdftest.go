// Пакет pdftest — генерация PDF-фикстур для тестов.
package pdftest

import (
	"bytes"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/document"
)

// Plain возвращает одностраничный незашифрованный PDF формата A4.
func Plain(t testing.TB) []byte {
	t.Helper()

	var buf bytes.Buffer
	page, err := document.WriteSinglePage(&buf, document.A4, pdf.V1_7, nil)
	if err != nil {
		t.Fatalf("ошибка создания PDF: %v", err)
	}
	if err := page.Close(); err != nil {
		t.Fatalf("ошибка записи PDF: %v", err)
	}
	return buf.Bytes()
}

// Encrypted возвращает PDF, зашифрованный AES-256 паролем password
// (пароль пользователя и владельца совпадают).
func Encrypted(t testing.TB, password string) []byte {
	t.Helper()
	api.DisableConfigDir()

	conf := model.NewAESConfiguration(password, password, 256)

	var out bytes.Buffer
	if err := api.Encrypt(bytes.NewReader(Plain(t)), &out, conf); err != nil {
		t.Fatalf("ошибка шифрования PDF: %v", err)
	}
	return out.Bytes()
}
