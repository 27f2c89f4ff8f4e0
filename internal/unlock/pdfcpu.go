package unlock

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var disableConfigDir sync.Once

// PdfcpuEngine — Engine на базе pdfcpu api.Decrypt.
type PdfcpuEngine struct{}

// NewPdfcpuEngine создаёт движок. pdfcpu не должен создавать
// конфигурационную директорию в $HOME процесса.
func NewPdfcpuEngine() *PdfcpuEngine {
	disableConfigDir.Do(api.DisableConfigDir)
	return &PdfcpuEngine{}
}

// Unlock расшифровывает src паролем password и пишет результат в dst.
// pdfcpu не принимает context, поэтому расшифровка идёт в отдельной
// горутине в буфер; при отмене ctx в dst ничего не пишется.
func (e *PdfcpuEngine) Unlock(ctx context.Context, src io.ReadSeeker, dst io.Writer, password string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	conf := model.NewDefaultConfiguration()
	conf.UserPW = password
	conf.OwnerPW = password

	type result struct {
		buf *bytes.Buffer
		err error
	}
	done := make(chan result, 1)

	go func() {
		var buf bytes.Buffer
		err := decrypt(src, &buf, conf)
		done <- result{buf: &buf, err: err}
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("снятие пароля прервано: %w", ctx.Err())
	case res := <-done:
		if res.err != nil {
			return Classify(res.err)
		}
		if _, err := res.buf.WriteTo(dst); err != nil {
			return fmt.Errorf("ошибка записи результата: %w", err)
		}
		return nil
	}
}

// decrypt вызывает pdfcpu, превращая панику парсера в ошибку.
func decrypt(src io.ReadSeeker, w io.Writer, conf *model.Configuration) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdfcpu: паника при обработке документа: %v", r)
		}
	}()
	return api.Decrypt(src, w, conf)
}
