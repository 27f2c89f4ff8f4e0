package service

import "fmt"

// Kind — категория ошибки конвейера.
type Kind string

const (
	// KindInvalidInput — нет файла, не PDF, нет пароля, превышен размер
	KindInvalidInput Kind = "InvalidInput"
	// KindInvalidPassword — пароль не подошёл или документ не зашифрован
	KindInvalidPassword Kind = "InvalidPassword"
	// KindProcessingFailed — прочие ошибки расшифровки и перекодирования
	KindProcessingFailed Kind = "ProcessingFailed"
	// KindNotFound — токен не указывает на существующий артефакт
	KindNotFound Kind = "NotFound"
	// KindInternal — ошибка хранилища вне шага обработки
	KindInternal Kind = "Internal"
)

// Сообщения клиенту. Внутренние подробности клиенту не передаются.
const (
	MsgNoFile           = "No PDF file uploaded"
	MsgOnlyPDF          = "Only PDF files are allowed"
	MsgPasswordRequired = "Password is required"
	MsgInvalidPassword  = "Invalid password or PDF is not encrypted"
	MsgProcessingFailed = "Failed to unlock PDF. Please try again."
	MsgFileNotFound     = "File not found"
	MsgDownloadFailed   = "Error downloading file"
)

// Error — ошибка сервисного слоя с категорией для HTTP-слоя.
type Error struct {
	Kind Kind
	// Code — машиночитаемый код, если отличается от кода по умолчанию для Kind
	Code string
	// Message — безопасное сообщение для клиента
	Message string
	// Err — исходная причина, только для логов
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}
