// Пакет unlock — снятие пароля с PDF и проверка результата.
//
// Снятие пароля выполняет pdfcpu (PdfcpuEngine). Проверка, что
// результат открывается без пароля, выполняется независимым
// парсером seehuhn.de/go/pdf (Verifier).
package unlock

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrInvalidPassword — пароль не подошёл либо документ не зашифрован.
var ErrInvalidPassword = errors.New("invalid password or PDF is not encrypted")

// Engine снимает пароль с PDF: читает src, пишет незашифрованный документ в dst.
// Ошибки неверного пароля и незашифрованного документа оборачивают
// ErrInvalidPassword.
type Engine interface {
	Unlock(ctx context.Context, src io.ReadSeeker, dst io.Writer, password string) error
}

// Classify приводит ошибку движка к таксономии: ошибки, в тексте
// которых есть "password" или "encrypt", считаются ErrInvalidPassword.
// Прочие ошибки возвращаются без изменений.
func Classify(err error) error {
	if err == nil || errors.Is(err, ErrInvalidPassword) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "password") || strings.Contains(msg, "encrypt") {
		return fmt.Errorf("%w: %v", ErrInvalidPassword, err)
	}
	return err
}
