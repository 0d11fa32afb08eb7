// Пакет metrics — Prometheus метрики metafinder.
// Регистрирует метрики: mf_operations_total, mf_operation_duration_seconds,
// mf_partial_extractions_total, mf_processed_bytes_total.
// Метрики обновляются из сервисного слоя. При заданном MF_METRICS_FILE
// содержимое реестра сохраняется в textfile для node_exporter.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Операции.
const (
	OpExtract = "extract"
	OpStrip   = "strip"
	OpSave    = "save"
	OpPreview = "preview"
	OpVerify  = "verify"
)

// Результаты операций.
const (
	ResultSuccess = "success"
	ResultPartial = "partial"
	ResultError   = "error"
)

// Metrics — набор метрик на собственном реестре.
type Metrics struct {
	registry *prometheus.Registry

	// OperationsTotal — количество операций по типу и результату.
	OperationsTotal *prometheus.CounterVec
	// OperationDuration — длительность операций в секундах.
	OperationDuration *prometheus.HistogramVec
	// PartialExtractionsTotal — извлечения с заглушками вместо EXIF.
	PartialExtractionsTotal prometheus.Counter
	// ProcessedBytesTotal — объём прочитанных изображений.
	ProcessedBytesTotal prometheus.Counter
}

// New создаёт метрики на новом реестре.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		OperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mf_operations_total",
				Help: "Общее количество операций с изображениями",
			},
			[]string{"operation", "result"},
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mf_operation_duration_seconds",
				Help:    "Длительность операций с изображениями в секундах",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		PartialExtractionsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "mf_partial_extractions_total",
				Help: "Количество извлечений, в которых EXIF заменён заглушками",
			},
		),
		ProcessedBytesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "mf_processed_bytes_total",
				Help: "Объём прочитанных изображений в байтах",
			},
		),
	}
}

// Registry возвращает реестр метрик.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Observe учитывает завершённую операцию.
func (m *Metrics) Observe(operation, result string, start time.Time) {
	m.OperationsTotal.WithLabelValues(operation, result).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// ResultOf возвращает результат операции по ошибке.
func ResultOf(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultSuccess
}

// WriteTextfile сохраняет метрики в формате textfile-коллектора node_exporter.
// prometheus.WriteToTextfile пишет через временный файл и rename.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("ошибка записи метрик в %s: %w", path, err)
	}
	return nil
}
