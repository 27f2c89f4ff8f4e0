// dephealth.go — проверка доступности платформы пожертвований через topologymetrics.
// Зависимость некритичная: её недоступность только понижает /health/ready до degraded.
// Метрики SDK публикуются на /metrics.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/BigKAA/topologymetrics/sdk-go/dephealth"
	_ "github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks" // HTTP checker
	"github.com/prometheus/client_golang/prometheus"
)

// DephealthService — фоновые проверки внешних зависимостей.
type DephealthService struct {
	dh     *dephealth.DepHealth
	logger *slog.Logger
}

// NewDephealthService создаёт мониторинг одной HTTP-зависимости depName.
// Путь depURL используется как health path. Метрики попадают
// в глобальный Prometheus registry.
func NewDephealthService(
	serviceID, group, depName, depURL string,
	checkInterval time.Duration,
	logger *slog.Logger,
) (*DephealthService, error) {
	return newDephealthService(serviceID, group, depName, depURL, checkInterval, logger)
}

// NewDephealthServiceWithRegisterer — то же с отдельным registerer (для тестов).
func NewDephealthServiceWithRegisterer(
	serviceID, group, depName, depURL string,
	checkInterval time.Duration,
	logger *slog.Logger,
	registerer prometheus.Registerer,
) (*DephealthService, error) {
	return newDephealthService(serviceID, group, depName, depURL, checkInterval,
		logger, dephealth.WithRegisterer(registerer))
}

func newDephealthService(
	serviceID, group, depName, depURL string,
	checkInterval time.Duration,
	logger *slog.Logger,
	extraOpts ...dephealth.Option,
) (*DephealthService, error) {
	parsed, err := url.Parse(depURL)
	if err != nil || parsed.Host == "" {
		return nil, fmt.Errorf("некорректный URL зависимости %q", depURL)
	}

	healthPath := parsed.EscapedPath()
	if healthPath == "" {
		healthPath = "/"
	}

	// Для https:// FromURL включает TLS с проверкой сертификата
	depOpts := []dephealth.DependencyOption{
		dephealth.FromURL(depURL),
		dephealth.WithHTTPHealthPath(healthPath),
		dephealth.CheckInterval(checkInterval),
		dephealth.Critical(false),
	}

	opts := make([]dephealth.Option, 0, 2+len(extraOpts))
	opts = append(opts,
		dephealth.WithLogger(logger),
		dephealth.HTTP(depName, depOpts...),
	)
	opts = append(opts, extraOpts...)

	dh, err := dephealth.New(serviceID, group, opts...)
	if err != nil {
		return nil, err
	}

	return &DephealthService{
		dh:     dh,
		logger: logger.With(slog.String("component", "dephealth")),
	}, nil
}

// Start запускает периодические проверки. Не блокирует.
func (ds *DephealthService) Start(ctx context.Context) error {
	if err := ds.dh.Start(ctx); err != nil {
		return err
	}
	ds.logger.Info("Проверки зависимостей запущены")
	return nil
}

// Stop останавливает проверки.
func (ds *DephealthService) Stop() {
	ds.dh.Stop()
	ds.logger.Info("Проверки зависимостей остановлены")
}

// Health — последний результат проверок. Ключ начинается с "<имя зависимости>:".
func (ds *DephealthService) Health() map[string]bool {
	return ds.dh.Health()
}
