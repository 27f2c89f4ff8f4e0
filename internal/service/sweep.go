// sweep.go — фоновая очистка временной директории.
//
// Каждый запуск удаляет все файлы директории, чей возраст (now − mtime)
// больше retention, независимо от стадии: забытые загрузки, нескачанные
// артефакты, незавершённые .tmp. Ошибка по одному файлу логируется
// и не прерывает проход.
//
// Запускается как горутина с периодическим тикером (PDFU_SWEEP_INTERVAL).
package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/VigneshMurugan/pdf-utils/internal/storage/filestore"
	"github.com/VigneshMurugan/pdf-utils/internal/storage/index"
)

// Prometheus метрики sweep
var (
	// sweepRunsTotal — количество запусков sweep.
	sweepRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pdfu_sweep_runs_total",
		Help: "Общее количество запусков sweep",
	})

	// sweepFilesDeletedTotal — количество удалённых sweep файлов.
	sweepFilesDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pdfu_sweep_files_deleted_total",
		Help: "Общее количество файлов, удалённых sweep",
	})

	// sweepErrorsTotal — ошибки stat/удаления при sweep.
	sweepErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pdfu_sweep_errors_total",
		Help: "Общее количество ошибок обработки файлов при sweep",
	})

	// sweepDurationSeconds — длительность выполнения sweep.
	sweepDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pdfu_sweep_duration_seconds",
		Help:    "Длительность выполнения sweep в секундах",
		Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
	})
)

// SweepResult — результат одного запуска sweep.
type SweepResult struct {
	// Scanned — количество просмотренных файлов
	Scanned int
	// Deleted — количество удалённых файлов
	Deleted int
	// Errors — количество ошибок при обработке файлов
	Errors int
	// Duration — длительность выполнения
	Duration time.Duration
}

// SweepService — сервис фоновой очистки временной директории.
type SweepService struct {
	store     *filestore.FileStore
	idx       *index.Index
	retention time.Duration
	interval  time.Duration
	logger    *slog.Logger

	mu     sync.Mutex // защита от параллельного запуска RunOnce
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSweepService создаёт сервис sweep.
func NewSweepService(
	store *filestore.FileStore,
	idx *index.Index,
	retention time.Duration,
	interval time.Duration,
	logger *slog.Logger,
) *SweepService {
	return &SweepService{
		store:     store,
		idx:       idx,
		retention: retention,
		interval:  interval,
		logger:    logger.With(slog.String("component", "sweep")),
	}
}

// Start запускает фоновую горутину sweep: первый проход сразу,
// далее по тикеру. Вызывается один раз при старте приложения.
func (s *SweepService) Start(ctx context.Context) {
	sweepCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(sweepCtx)

	s.logger.Info("Sweep запущен",
		slog.String("interval", s.interval.String()),
		slog.String("retention", s.retention.String()),
	)
}

// Stop останавливает sweep и ждёт завершения текущего прохода.
func (s *SweepService) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.logger.Info("Sweep остановлен")
}

// run — основной цикл фоновой горутины.
func (s *SweepService) run(ctx context.Context) {
	defer close(s.done)

	s.RunOnce(time.Now())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(time.Now())
		}
	}
}

// RunOnce выполняет один проход sweep относительно момента now.
// Потокобезопасен: использует mutex для защиты от параллельного запуска.
func (s *SweepService) RunOnce(now time.Time) *SweepResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	result := &SweepResult{}

	entries, err := s.store.Scan()
	if err != nil {
		s.logger.Error("Sweep: ошибка сканирования директории",
			slog.String("error", err.Error()),
		)
		result.Errors++
	}

	for _, e := range entries {
		result.Scanned++

		if e.Err != nil {
			s.logger.Error("Sweep: ошибка получения информации о файле",
				slog.String("file", e.Name),
				slog.String("error", e.Err.Error()),
			)
			result.Errors++
			continue
		}

		// Чужие файлы и .tmp тоже удаляются по возрасту
		if !e.StagedFile().IsExpired(now, s.retention) {
			continue
		}

		if err := s.store.DeleteFile(e.Name); err != nil {
			cleanupFailuresTotal.WithLabelValues("sweep").Inc()
			s.logger.Error("Sweep: ошибка удаления файла",
				slog.String("file", e.Name),
				slog.String("error", err.Error()),
			)
			result.Errors++
			continue
		}

		if e.Token != "" {
			s.idx.Forget(e.Token, e.Name)
		}

		s.logger.Debug("Sweep: файл удалён",
			slog.String("file", e.Name),
			slog.Duration("age", now.Sub(e.ModTime)),
		)
		result.Deleted++
	}

	result.Duration = time.Since(start)

	sweepRunsTotal.Inc()
	sweepFilesDeletedTotal.Add(float64(result.Deleted))
	sweepErrorsTotal.Add(float64(result.Errors))
	sweepDurationSeconds.Observe(result.Duration.Seconds())

	s.logger.Info("Sweep завершён",
		slog.Int("scanned", result.Scanned),
		slog.Int("deleted", result.Deleted),
		slog.Int("errors", result.Errors),
		slog.Duration("duration", result.Duration),
	)

	return result
}
