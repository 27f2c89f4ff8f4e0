package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus метрики конвейера
var (
	// unlockTotal — результаты снятия пароля.
	unlockTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pdfu_unlock_total",
			Help: "Общее количество запросов на снятие пароля по результату",
		},
		[]string{"result"},
	)

	// unlockDuration — длительность расшифровки и перекодирования.
	unlockDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pdfu_unlock_duration_seconds",
		Help:    "Длительность снятия пароля в секундах",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	})

	// uploadBytes — размер принятых загрузок.
	uploadBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pdfu_upload_bytes",
		Help:    "Размер принятых PDF в байтах",
		Buckets: prometheus.ExponentialBuckets(16<<10, 4, 8),
	})

	// downloadsTotal — результаты скачиваний.
	downloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pdfu_downloads_total",
			Help: "Общее количество скачиваний по результату",
		},
		[]string{"result"},
	)

	// cleanupFailuresTotal — неудачные удаления временных файлов.
	cleanupFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pdfu_cleanup_failures_total",
			Help: "Количество неудачных удалений временных файлов",
		},
		[]string{"phase"},
	)
)
