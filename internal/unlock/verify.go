package unlock

import (
	"errors"
	"fmt"
	"io"

	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/pagetree"
)

// ErrStillEncrypted — результат по-прежнему требует пароль.
var ErrStillEncrypted = errors.New("документ по-прежнему зашифрован")

// Report — сведения о проверенном документе.
type Report struct {
	// Pages — количество страниц
	Pages int
	// Version — версия PDF, например "1.7"
	Version string
}

// Verifier открывает документ seehuhn-парсером без пароля.
type Verifier struct{}

// NewVerifier создаёт Verifier.
func NewVerifier() *Verifier {
	return &Verifier{}
}

// Verify проверяет, что rs открывается как PDF без пароля.
func (v *Verifier) Verify(rs io.ReadSeeker) (*Report, error) {
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("ошибка позиционирования: %w", err)
	}

	asked := false
	opt := &pdf.ReaderOptions{
		// Непустой пароль не предлагается; "" завершает попытки
		ReadPassword: func(_ []byte, _ int) string {
			asked = true
			return ""
		},
	}

	r, err := pdf.NewReader(rs, opt)
	if err != nil {
		if asked {
			return nil, ErrStillEncrypted
		}
		return nil, fmt.Errorf("ошибка разбора PDF: %w", err)
	}
	defer r.Close()

	meta := r.GetMeta()
	if _, ok := meta.Trailer["Encrypt"]; ok {
		return nil, ErrStillEncrypted
	}

	pages, err := pagetree.NumPages(r)
	if err != nil {
		if asked {
			return nil, ErrStillEncrypted
		}
		return nil, fmt.Errorf("ошибка чтения дерева страниц: %w", err)
	}
	if asked {
		return nil, ErrStillEncrypted
	}

	return &Report{
		Pages:   pages,
		Version: meta.Version.String(),
	}, nil
}
