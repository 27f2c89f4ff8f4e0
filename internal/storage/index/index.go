// Пакет index — потокобезопасный in-memory индекс стадий временных файлов,
// ключ — staging token.
//
// Хранилище — expirable LRU (hashicorp/golang-lru/v2): записи старше
// retention вытесняются сами. Источник истины — директория хранения:
// при промахе индекс ищет файл токена на диске (Source.FindByToken).
// При старте индекс строится сканированием директории (BuildFromSource).
package index

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/VigneshMurugan/pdf-utils/internal/domain/model"
	"github.com/VigneshMurugan/pdf-utils/internal/storage/filestore"
)

// ErrNotFound — для токена нет ни записи, ни файла на диске.
var ErrNotFound = errors.New("staging token не найден")

// Prometheus-метрики индекса.
var (
	indexHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pdfu_index_hits_total",
		Help: "Общее количество попаданий в индекс стадий.",
	})
	indexMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pdfu_index_misses_total",
		Help: "Общее количество промахов индекса стадий (поиск на диске).",
	})
)

// Source — источник истины о файлах (директория хранения).
type Source interface {
	Scan() ([]filestore.Entry, error)
	FindByToken(token string) (*filestore.Entry, error)
}

// Index — индекс стадий по staging token.
type Index struct {
	// mu сериализует read-modify-write (Transition, досчитывание с диска)
	mu     sync.Mutex
	files  *expirable.LRU[string, *model.StagedFile]
	source Source
	ready  atomic.Bool
	logger *slog.Logger
}

// New создаёт пустой индекс. ttl — время жизни записи (retention).
// Для заполнения вызовите BuildFromSource.
func New(source Source, ttl time.Duration, logger *slog.Logger) *Index {
	return &Index{
		files:  expirable.NewLRU[string, *model.StagedFile](0, nil, ttl),
		source: source,
		logger: logger.With(slog.String("component", "index")),
	}
}

// BuildFromSource строит индекс по файлам директории хранения.
// Заменяет текущее содержимое. Для токена с несколькими файлами
// берётся самая поздняя стадия. После построения индекс готов.
func (idx *Index) BuildFromSource() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	entries, err := idx.source.Scan()
	if err != nil {
		return fmt.Errorf("ошибка сканирования хранилища: %w", err)
	}

	latest := make(map[string]*model.StagedFile, len(entries))
	for _, e := range entries {
		if e.Token == "" || e.Err != nil {
			continue
		}
		cur, ok := latest[e.Token]
		if !ok || e.Stage.Order() > cur.Stage.Order() {
			latest[e.Token] = e.StagedFile()
		}
	}

	idx.files.Purge()
	for token, f := range latest {
		idx.files.Add(token, f)
	}

	idx.ready.Store(true)

	idx.logger.Info("Индекс стадий построен",
		slog.Int("files", len(latest)),
	)
	return nil
}

// IsReady возвращает true, если индекс построен.
func (idx *Index) IsReady() bool {
	return idx.ready.Load()
}

// Add добавляет или заменяет запись. Хранится копия.
func (idx *Index) Add(f *model.StagedFile) {
	idx.files.Add(f.ID, f.Clone())
}

// Get возвращает копию записи по токену.
// При промахе ищет файл на диске и кэширует найденное.
func (idx *Index) Get(token string) (*model.StagedFile, error) {
	if f, ok := idx.files.Get(token); ok {
		indexHitsTotal.Inc()
		return f.Clone(), nil
	}
	indexMissesTotal.Inc()

	idx.mu.Lock()
	defer idx.mu.Unlock()

	f, err := idx.loadLocked(token)
	if err != nil {
		return nil, err
	}
	return f.Clone(), nil
}

// Transition переводит запись токена в стадию target.
// storagePath, если не пуст, заменяет имя файла (переименование при захвате).
// Переход в deleted удаляет запись из индекса.
func (idx *Index) Transition(token string, target model.Stage, storagePath string) (*model.StagedFile, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	f, ok := idx.files.Peek(token)
	if !ok {
		var err error
		if f, err = idx.loadLocked(token); err != nil {
			return nil, err
		}
	}

	next := f.Clone()
	if err := next.TransitionTo(target); err != nil {
		return nil, err
	}
	if storagePath != "" {
		next.StoragePath = storagePath
	}

	if target == model.StageDeleted {
		idx.files.Remove(token)
	} else {
		idx.files.Add(token, next)
	}
	return next.Clone(), nil
}

// Remove удаляет запись. Возвращает true, если запись была.
func (idx *Index) Remove(token string) bool {
	return idx.files.Remove(token)
}

// Forget удаляет запись токена, только если она указывает на storagePath.
// Используется, когда файл исчез с диска (sweep, проигранный захват).
func (idx *Index) Forget(token, storagePath string) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	f, ok := idx.files.Peek(token)
	if !ok || f.StoragePath != storagePath {
		return false
	}
	return idx.files.Remove(token)
}

// Count возвращает количество непросроченных записей.
func (idx *Index) Count() int {
	return len(idx.files.Values())
}

// CountByStage возвращает количество записей в стадии.
func (idx *Index) CountByStage(stage model.Stage) int {
	count := 0
	for _, f := range idx.files.Values() {
		if f.Stage == stage {
			count++
		}
	}
	return count
}

// loadLocked ищет файл токена на диске. Вызывается под idx.mu.
func (idx *Index) loadLocked(token string) (*model.StagedFile, error) {
	entry, err := idx.source.FindByToken(token)
	if err != nil {
		if errors.Is(err, filestore.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, token)
		}
		return nil, fmt.Errorf("ошибка поиска токена %s: %w", token, err)
	}

	f := entry.StagedFile()
	idx.files.Add(token, f)

	idx.logger.Debug("Запись восстановлена с диска",
		slog.String("token", token),
		slog.String("stage", string(f.Stage)),
	)
	return f, nil
}
