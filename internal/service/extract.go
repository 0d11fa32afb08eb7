// extract.go — сервис извлечения метаданных.
package service

import (
	"log/slog"
	"time"

	"github.com/bigkaa/metafinder/internal/extractor"
	"github.com/bigkaa/metafinder/internal/metrics"
)

// ExtractService — сервис извлечения метаданных.
type ExtractService struct {
	extractor *extractor.Extractor
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewExtractService создаёт сервис извлечения метаданных.
func NewExtractService(x *extractor.Extractor, m *metrics.Metrics, logger *slog.Logger) *ExtractService {
	return &ExtractService{
		extractor: x,
		metrics:   m,
		logger:    logger.With(slog.String("component", "extract_service")),
	}
}

// Extract извлекает метаданные изображения.
// Частичный результат (EXIF заменён заглушками) не является ошибкой,
// но логируется с уровнем WARN.
func (s *ExtractService) Extract(path string) (*extractor.Extraction, error) {
	start := time.Now()

	res, err := s.extractor.Extract(path)
	if err != nil {
		s.metrics.Observe(metrics.OpExtract, metrics.ResultError, start)
		s.logger.Error("Ошибка извлечения метаданных",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	s.metrics.ProcessedBytesTotal.Add(float64(res.Size))

	result := metrics.ResultSuccess
	if res.Partial() {
		result = metrics.ResultPartial
		s.metrics.PartialExtractionsTotal.Inc()
		s.logger.Warn("EXIF недоступен, поля заменены заглушками",
			slog.String("path", path),
			slog.String("reason", res.ExifErr.Error()),
		)
	}
	if res.GPSErr != nil {
		s.logger.Warn("GPS-теги некорректны",
			slog.String("path", path),
			slog.String("error", res.GPSErr.Error()),
		)
	}
	s.metrics.Observe(metrics.OpExtract, result, start)

	s.logger.Debug("Метаданные извлечены",
		slog.String("path", path),
		slog.String("format", string(res.Format)),
		slog.Int64("size", res.Size),
		slog.Bool("partial", res.Partial()),
	)
	return res, nil
}
