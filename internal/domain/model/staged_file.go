// Пакет model — доменная модель временного файла конвейера
// upload → unlock → download → purge.
//
// Жизненный цикл одного токена:
//
//	uploaded --(unlock ok)--> unlocked --(download claim)--> downloaded --(stream done)--> deleted
//	uploaded --(unlock fail)--> deleted
//	uploaded | unlocked | downloaded --(age > retention)--> deleted   [sweep]
//
// deleted — конечное состояние.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Stage — стадия жизненного цикла временного файла.
type Stage string

const (
	// StageUploaded — оригинал загружен и ждёт снятия пароля
	StageUploaded Stage = "uploaded"
	// StageUnlocked — разблокированный артефакт ждёт скачивания
	StageUnlocked Stage = "unlocked"
	// StageDownloaded — артефакт захвачен загрузкой и отдаётся клиенту
	StageDownloaded Stage = "downloaded"
	// StageDeleted — файл удалён, терминальная стадия
	StageDeleted Stage = "deleted"
)

// validTransitions — матрица допустимых переходов между стадиями.
var validTransitions = map[Stage]map[Stage]bool{
	StageUploaded:   {StageUnlocked: true, StageDeleted: true},
	StageUnlocked:   {StageDownloaded: true, StageDeleted: true},
	StageDownloaded: {StageDeleted: true},
	StageDeleted:    {},
}

// stageOrder — порядок стадий вдоль жизненного цикла.
var stageOrder = map[Stage]int{
	StageUploaded:   1,
	StageUnlocked:   2,
	StageDownloaded: 3,
	StageDeleted:    4,
}

// Order возвращает порядковый номер стадии; 0 для неизвестной.
func (s Stage) Order() int {
	return stageOrder[s]
}

// DownloadPrefix — маркер имени, предлагаемого клиенту при скачивании.
const DownloadPrefix = "unlocked-"

// StagedFile — временный файл, принадлежащий одному staging token.
type StagedFile struct {
	// ID — staging token (UUID), пространство имён файла на диске
	ID string `json:"id"`
	// OriginalName — имя файла, переданное клиентом
	OriginalName string `json:"original_name"`
	// StoragePath — имя файла в директории временного хранения
	StoragePath string `json:"storage_path"`
	// Stage — текущая стадия
	Stage Stage `json:"stage"`
	// Size — размер файла в байтах
	Size int64 `json:"size"`
	// CreatedAt — момент создания (mtime для файлов, найденных на диске)
	CreatedAt time.Time `json:"created_at"`
}

// CanTransition проверяет допустимость перехода from → to.
func CanTransition(from, to Stage) bool {
	return validTransitions[from][to]
}

// TransitionTo переводит файл в стадию target.
// Возвращает *TransitionError, если переход недопустим.
func (f *StagedFile) TransitionTo(target Stage) error {
	if !CanTransition(f.Stage, target) {
		return &TransitionError{From: f.Stage, To: target}
	}
	f.Stage = target
	return nil
}

// IsExpired возвращает true, если возраст файла превышает retention.
func (f *StagedFile) IsExpired(now time.Time, retention time.Duration) bool {
	return now.Sub(f.CreatedAt) > retention
}

// DownloadName — имя, предлагаемое клиенту: "unlocked-" + исходное имя.
func (f *StagedFile) DownloadName() string {
	name := strings.TrimSpace(f.OriginalName)
	if name == "" {
		name = "document.pdf"
	}
	return DownloadPrefix + name
}

// Clone возвращает независимую копию.
func (f *StagedFile) Clone() *StagedFile {
	c := *f
	return &c
}

// TransitionError — недопустимый переход между стадиями.
type TransitionError struct {
	From Stage
	To   Stage
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("переход %s → %s недопустим", e.From, e.To)
}
