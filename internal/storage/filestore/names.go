package filestore

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/VigneshMurugan/pdf-utils/internal/domain/model"
)

// Префиксы имён файлов по стадиям.
const (
	prefixUploaded   = "upload-"
	prefixUnlocked   = "unlocked-"
	prefixDownloaded = "downloading-"

	tmpSuffix = ".tmp"
	pdfExt    = ".pdf"
	tokenLen  = 36

	// maxNameBytes — предел длины имени файла в большинстве ФС (ext4, xfs, APFS)
	maxNameBytes = 255
	// maxBaseBytes — остаток для очищенного имени в самом длинном
	// варианте: downloading-{token}-{base}.pdf.tmp
	maxBaseBytes = maxNameBytes - len(prefixDownloaded) - tokenLen - len("-") - len(pdfExt) - len(tmpSuffix)
)

var stagePrefixes = map[model.Stage]string{
	model.StageUploaded:   prefixUploaded,
	model.StageUnlocked:   prefixUnlocked,
	model.StageDownloaded: prefixDownloaded,
}

// NewToken генерирует новый staging token.
func NewToken() string {
	return uuid.NewString()
}

// ValidToken проверяет, что token — UUID в каноническом виде.
func ValidToken(token string) bool {
	if len(token) != tokenLen {
		return false
	}
	_, err := uuid.Parse(token)
	return err == nil
}

// StorageName формирует имя файла на диске.
// Формат: {prefix}{token}-{base}.pdf
// Пример: unlocked-0b6f…-report.pdf
func StorageName(stage model.Stage, token, originalName string) string {
	return stagePrefixes[stage] + token + "-" + sanitizeBase(originalName) + pdfExt
}

// ParseStorageName разбирает имя файла, созданное StorageName.
// Для временных и чужих файлов возвращает Entry с одним Name и false.
func ParseStorageName(name string) (Entry, bool) {
	entry := Entry{Name: name}
	if strings.HasSuffix(name, tmpSuffix) {
		return entry, false
	}

	for stage, prefix := range stagePrefixes {
		rest, ok := strings.CutPrefix(name, prefix)
		if !ok || len(rest) < tokenLen+1 || rest[tokenLen] != '-' {
			continue
		}
		token := rest[:tokenLen]
		if !ValidToken(token) {
			continue
		}
		entry.Stage = stage
		entry.Token = token
		entry.BaseName = strings.TrimSuffix(rest[tokenLen+1:], pdfExt) + pdfExt
		return entry, true
	}
	return entry, false
}

// Restage возвращает имя того же файла в стадии stage.
func Restage(name string, stage model.Stage) (string, error) {
	entry, ok := ParseStorageName(name)
	if !ok {
		return "", fmt.Errorf("имя %q не является именем временного файла", name)
	}
	if _, ok := stagePrefixes[stage]; !ok {
		return "", fmt.Errorf("стадия %s не хранится на диске", stage)
	}
	return StorageName(stage, entry.Token, entry.BaseName), nil
}

// CleanName возвращает имя файла в том виде, в каком оно хранится на диске:
// очищенная основа и расширение .pdf.
func CleanName(name string) string {
	return sanitizeBase(name) + pdfExt
}

// sanitizeBase убирает из имени расширение и небезопасные символы.
// Оставляет буквы, цифры, дефис, подчёркивание и точку; пробелы → "_".
// Результат не длиннее maxBaseBytes байт UTF-8, руны не разрезаются.
func sanitizeBase(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if ext := filepath.Ext(name); strings.EqualFold(ext, pdfExt) {
		name = name[:len(name)-len(ext)]
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' || r == '.':
		case unicode.IsSpace(r):
			r = '_'
		default:
			continue
		}
		if b.Len()+utf8.RuneLen(r) > maxBaseBytes {
			break
		}
		b.WriteRune(r)
	}

	base := strings.Trim(b.String(), ".")
	if base == "" {
		return "document"
	}
	return base
}
