// strip.go — сервис удаления метаданных из изображения.
package service

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/bigkaa/metafinder/internal/exifdata"
	"github.com/bigkaa/metafinder/internal/imagefmt"
	"github.com/bigkaa/metafinder/internal/metrics"
	"github.com/bigkaa/metafinder/internal/storage/filestore"
)

// StripResult — результат удаления метаданных.
type StripResult struct {
	// Source — исходный файл
	Source string
	// Output — копия без метаданных
	Output string
	// Format — формат изображения
	Format imagefmt.Format
	// Width, Height — размеры изображения
	Width  int
	Height int
	// Checksum — контрольная сумма записанной копии
	Checksum string
}

// StripService — сервис удаления метаданных.
// Из JPEG и PNG вырезаются сегменты с метаданными, GIF и BMP
// перекодируются. Копия проверяется на отсутствие EXIF до записи и
// по контрольной сумме после.
type StripService struct {
	store   *filestore.FileStore
	suffix  string
	opts    imagefmt.EncodeOptions
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewStripService создаёт сервис удаления метаданных.
func NewStripService(
	store *filestore.FileStore,
	suffix string,
	opts imagefmt.EncodeOptions,
	m *metrics.Metrics,
	logger *slog.Logger,
) *StripService {
	return &StripService{
		store:   store,
		suffix:  suffix,
		opts:    opts,
		metrics: m,
		logger:  logger.With(slog.String("component", "strip_service")),
	}
}

// OutputPath возвращает путь копии без метаданных:
// "/data/photo.jpg" → "/data/photo_no_metadata.jpg".
func (s *StripService) OutputPath(path string) string {
	return filestore.DerivedPath(path, s.suffix, "")
}

// Strip записывает рядом с исходным файлом копию без метаданных.
// Запись атомарная: при ошибке копия не создаётся.
func (s *StripService) Strip(path string) (*StripResult, error) {
	start := time.Now()

	res, err := s.strip(path)
	s.metrics.Observe(metrics.OpStrip, metrics.ResultOf(err), start)
	if err != nil {
		s.logger.Error("Ошибка удаления метаданных",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	s.logger.Info("Метаданные удалены",
		slog.String("path", path),
		slog.String("output", res.Output),
		slog.String("format", string(res.Format)),
		slog.String("checksum", res.Checksum),
	)
	return res, nil
}

func (s *StripService) strip(path string) (*StripResult, error) {
	file, err := s.store.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s.metrics.ProcessedBytesTotal.Add(float64(file.Size))

	// Копия собирается в памяти: повреждённый файл не создаёт временных файлов
	var buf bytes.Buffer
	dec, err := imagefmt.Strip(&buf, file.Data, s.opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if exifdata.Present(buf.Bytes(), dec.Format) {
		return nil, fmt.Errorf("%s: EXIF не удалён из копии", path)
	}

	output := s.OutputPath(path)
	err = s.store.WriteFile(output, func(w io.Writer) error {
		_, err := w.Write(buf.Bytes())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка записи %s: %w", output, err)
	}

	checksum, err := s.store.ComputeChecksum(output)
	if err != nil {
		return nil, err
	}
	if checksum != s.store.Checksum(buf.Bytes()) {
		return nil, fmt.Errorf("контрольная сумма %s не совпадает с записанными данными", output)
	}

	return &StripResult{
		Source:   path,
		Output:   output,
		Format:   dec.Format,
		Width:    dec.Width(),
		Height:   dec.Height(),
		Checksum: checksum,
	}, nil
}
