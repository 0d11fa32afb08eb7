// report.go — сервис сохранения отчёта.
package service

import (
	"log/slog"
	"time"

	"github.com/bigkaa/metafinder/internal/domain/model"
	"github.com/bigkaa/metafinder/internal/metrics"
	"github.com/bigkaa/metafinder/internal/storage/report"
)

// ReportService — сервис сохранения записи метаданных в файл и сверки
// сохранённых отчётов.
type ReportService struct {
	writer  *report.Writer
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewReportService создаёт сервис сохранения отчёта.
func NewReportService(w *report.Writer, m *metrics.Metrics, logger *slog.Logger) *ReportService {
	return &ReportService{
		writer:  w,
		metrics: m,
		logger:  logger.With(slog.String("component", "report_service")),
	}
}

// Save сохраняет запись в файл. Формат выбирается по расширению пути.
func (s *ReportService) Save(rec *model.Record, path string) (report.Format, error) {
	start := time.Now()

	format, err := s.writer.Save(path, rec)
	s.metrics.Observe(metrics.OpSave, metrics.ResultOf(err), start)
	if err != nil {
		s.logger.Error("Ошибка сохранения отчёта",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return format, err
	}

	s.logger.Info("Отчёт сохранён",
		slog.String("path", path),
		slog.String("format", string(format)),
		slog.Int("fields", rec.Len()),
	)
	return format, nil
}

// Verify сверяет сохранённый отчёт с записью.
// Расхождения не считаются ошибкой и возвращаются в report.Diff.
func (s *ReportService) Verify(rec *model.Record, path string) (report.Diff, error) {
	start := time.Now()

	diff, err := s.writer.Verify(path, rec)
	s.metrics.Observe(metrics.OpVerify, metrics.ResultOf(err), start)
	if err != nil {
		s.logger.Error("Ошибка сверки отчёта",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return diff, err
	}

	if !diff.Empty() {
		s.logger.Warn("Отчёт расходится с метаданными",
			slog.String("path", path),
			slog.Any("missing", diff.Missing),
			slog.Any("changed", diff.Changed),
		)
	}
	return diff, nil
}
