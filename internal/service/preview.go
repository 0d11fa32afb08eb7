// preview.go — сервис построения превью.
package service

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/bigkaa/metafinder/internal/imagefmt"
	"github.com/bigkaa/metafinder/internal/metrics"
	"github.com/bigkaa/metafinder/internal/storage/filestore"
)

// PreviewSuffix — суффикс имени файла превью по умолчанию.
const PreviewSuffix = "_preview"

// PreviewService — сервис построения PNG-превью.
type PreviewService struct {
	store   *filestore.FileStore
	size    int
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewPreviewService создаёт сервис превью. size — сторона квадрата по умолчанию.
func NewPreviewService(store *filestore.FileStore, size int, m *metrics.Metrics, logger *slog.Logger) *PreviewService {
	return &PreviewService{
		store:   store,
		size:    size,
		metrics: m,
		logger:  logger.With(slog.String("component", "preview_service")),
	}
}

// DefaultOutput возвращает путь превью: "/data/photo.jpg" → "/data/photo_preview.png".
func DefaultOutput(path string) string {
	return filestore.DerivedPath(path, PreviewSuffix, ".png")
}

// Preview масштабирует изображение в квадрат size×size с сохранением
// пропорций и записывает PNG. Пустой output — путь по умолчанию,
// size <= 0 — размер из конфигурации. Возвращает путь превью.
func (s *PreviewService) Preview(path, output string, size int) (string, error) {
	start := time.Now()
	if output == "" {
		output = DefaultOutput(path)
	}
	if size <= 0 {
		size = s.size
	}

	err := s.preview(path, output, size)
	s.metrics.Observe(metrics.OpPreview, metrics.ResultOf(err), start)
	if err != nil {
		s.logger.Error("Ошибка построения превью",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return "", err
	}

	s.logger.Info("Превью записано",
		slog.String("path", path),
		slog.String("output", output),
		slog.Int("size", size),
	)
	return output, nil
}

func (s *PreviewService) preview(path, output string, size int) error {
	file, err := s.store.ReadFile(path)
	if err != nil {
		return err
	}
	s.metrics.ProcessedBytesTotal.Add(float64(file.Size))

	dec, err := imagefmt.Decode(file.Data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	thumb := imagefmt.Thumbnail(dec.Image, size)
	if err := s.store.WriteFile(output, func(w io.Writer) error {
		return imagefmt.Encode(w, thumb, imagefmt.FormatPNG, imagefmt.EncodeOptions{})
	}); err != nil {
		return fmt.Errorf("ошибка записи %s: %w", output, err)
	}
	return nil
}
