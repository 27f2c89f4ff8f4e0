// Пакет filestore — операции с файлами во временной директории хранения.
// Обеспечивает атомарную запись (temp → fsync → rename), открытие,
// захват переименованием, идемпотентное удаление и сканирование.
//
// Стадия файла и его staging token кодируются в имени:
// {prefix}{token}-{base}.pdf, см. StorageName.
package filestore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/VigneshMurugan/pdf-utils/internal/domain/model"
)

var (
	// ErrNotFound — файл отсутствует во временном хранилище.
	ErrNotFound = errors.New("файл не найден")
	// ErrTooLarge — поток длиннее допустимого размера.
	ErrTooLarge = errors.New("превышен максимальный размер файла")
)

// FileStore — управление файлами во временной директории.
type FileStore struct {
	// dataDir — директория временного хранения (PDFU_DATA_DIR)
	dataDir string
}

// SaveResult — результат сохранения файла на диск.
type SaveResult struct {
	// StoragePath — имя файла в dataDir
	StoragePath string
	// FullPath — абсолютный путь файла на диске
	FullPath string
	// Size — размер записанных данных в байтах
	Size int64
}

// Entry — файл, найденный при сканировании директории.
type Entry struct {
	// Name — имя файла в dataDir
	Name string
	// Stage — стадия, определённая по префиксу; пустая для чужих файлов
	Stage model.Stage
	// Token — staging token из имени; пустой для чужих файлов
	Token string
	// BaseName — исходное имя файла (после санитизации)
	BaseName string
	Size     int64
	ModTime  time.Time
	// Err — ошибка получения информации о файле
	Err error
}

// StagedFile восстанавливает запись модели по имени файла на диске.
func (e Entry) StagedFile() *model.StagedFile {
	return &model.StagedFile{
		ID:           e.Token,
		OriginalName: e.BaseName,
		StoragePath:  e.Name,
		Stage:        e.Stage,
		Size:         e.Size,
		CreatedAt:    e.ModTime,
	}
}

// New создаёт FileStore. Создаёт директорию, если она не существует.
func New(dataDir string) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию данных %s: %w", dataDir, err)
	}

	return &FileStore{dataDir: dataDir}, nil
}

// SaveFile записывает данные из reader в файл name.
// maxSize > 0 ограничивает размер: при превышении временный файл
// удаляется и возвращается ErrTooLarge.
//
// Паттерн: temp файл → запись → fsync → atomic rename.
func (fs *FileStore) SaveFile(name string, reader io.Reader, maxSize int64) (*SaveResult, error) {
	return fs.WriteFile(name, func(w io.Writer) error {
		src := reader
		if maxSize > 0 {
			src = io.LimitReader(reader, maxSize+1)
		}
		n, err := io.Copy(w, src)
		if err != nil {
			return err
		}
		if maxSize > 0 && n > maxSize {
			return ErrTooLarge
		}
		return nil
	})
}

// WriteFile создаёт файл name, передавая write временный файл.
// Файл появляется под итоговым именем только после успешной записи и fsync.
func (fs *FileStore) WriteFile(name string, write func(w io.Writer) error) (*SaveResult, error) {
	fullPath := fs.FullPath(name)
	tmpPath := fullPath + tmpSuffix

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	cw := &countingWriter{w: f}
	if err := write(cw); err != nil {
		f.Close()
		os.Remove(tmpPath)
		if errors.Is(err, ErrTooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("ошибка записи данных: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return &SaveResult{
		StoragePath: name,
		FullPath:    fullPath,
		Size:        cw.n,
	}, nil
}

// Open открывает файл для чтения. Вызывающий код обязан закрыть файл.
// Возвращает ErrNotFound, если файла нет.
func (fs *FileStore) Open(name string) (*os.File, error) {
	f, err := os.Open(fs.FullPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("ошибка открытия файла %s: %w", name, err)
	}
	return f, nil
}

// Rename атомарно переименовывает файл from в to.
// Из двух конкурентных вызовов с одним from успешен ровно один,
// второй получает ErrNotFound.
func (fs *FileStore) Rename(from, to string) error {
	if err := os.Rename(fs.FullPath(from), fs.FullPath(to)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, from)
		}
		return fmt.Errorf("ошибка переименования %s: %w", from, err)
	}
	return nil
}

// DeleteFile удаляет файл. Возвращает nil, если файл уже не существует.
func (fs *FileStore) DeleteFile(name string) error {
	err := os.Remove(fs.FullPath(name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ошибка удаления файла %s: %w", name, err)
	}
	return nil
}

// Scan возвращает все файлы директории хранения (без поддиректорий).
// Ошибка stat отдельного файла не прерывает сканирование и
// возвращается в Entry.Err.
func (fs *FileStore) Scan() ([]Entry, error) {
	dirEntries, err := os.ReadDir(fs.dataDir)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения директории %s: %w", fs.dataDir, err)
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}

		entry, _ := ParseStorageName(de.Name())
		info, err := de.Info()
		if err != nil {
			// Файл мог исчезнуть между ReadDir и stat
			if os.IsNotExist(err) {
				continue
			}
			entry.Err = err
		} else {
			entry.Size = info.Size()
			entry.ModTime = info.ModTime()
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// FindByToken ищет на диске файл с указанным staging token.
// При нескольких совпадениях возвращается файл с самой поздней стадией.
func (fs *FileStore) FindByToken(token string) (*Entry, error) {
	if !ValidToken(token) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, token)
	}

	entries, err := fs.Scan()
	if err != nil {
		return nil, err
	}

	var found *Entry
	for i := range entries {
		e := &entries[i]
		if e.Token != token || e.Err != nil {
			continue
		}
		if found == nil || e.Stage.Order() > found.Stage.Order() {
			found = e
		}
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, token)
	}
	return found, nil
}

// FullPath возвращает абсолютный путь к файлу на диске.
func (fs *FileStore) FullPath(name string) string {
	return filepath.Join(fs.dataDir, filepath.Base(name))
}

// DataDir возвращает путь к директории данных.
func (fs *FileStore) DataDir() string {
	return fs.dataDir
}

// countingWriter считает записанные байты.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
