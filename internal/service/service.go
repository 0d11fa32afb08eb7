// Пакет service — бизнес-логика metafinder.
// service.go — сборка сервисов из конфигурации.
package service

import (
	"fmt"
	"log/slog"

	"github.com/bigkaa/metafinder/internal/config"
	"github.com/bigkaa/metafinder/internal/extractor"
	"github.com/bigkaa/metafinder/internal/imagefmt"
	"github.com/bigkaa/metafinder/internal/metrics"
	"github.com/bigkaa/metafinder/internal/storage/filestore"
	"github.com/bigkaa/metafinder/internal/storage/report"
)

// Services — набор сервисов, используемых CLI и интерактивной сессией.
type Services struct {
	Extract *ExtractService
	Strip   *StripService
	Report  *ReportService
	Preview *PreviewService
}

// New создаёт сервисы по конфигурации.
func New(cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) (*Services, error) {
	store, err := filestore.New(cfg.MaxFileSize, cfg.ChecksumAlgorithm)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации FileStore: %w", err)
	}

	encodeOpts := imagefmt.EncodeOptions{JPEGQuality: cfg.JPEGQuality}

	return &Services{
		Extract: NewExtractService(extractor.New(store), m, logger),
		Strip:   NewStripService(store, cfg.StripSuffix, encodeOpts, m, logger),
		Report:  NewReportService(report.NewWriter(store, cfg.MapURL), m, logger),
		Preview: NewPreviewService(store, cfg.PreviewSize, m, logger),
	}, nil
}
