// session.go — интерактивная сессия работы с одним изображением.
//
// Сессия хранит путь к загруженному изображению и последнюю извлечённую
// запись. Загрузка нового изображения сбрасывает запись.
// Порядок работы: load → check → remove/save/verify/preview.
package service

import (
	"errors"
	"fmt"
	"os"

	"github.com/bigkaa/metafinder/internal/extractor"
	"github.com/bigkaa/metafinder/internal/storage/report"
)

// Ошибки сессии.
var (
	// ErrNoImage — изображение не загружено.
	ErrNoImage = errors.New("Please upload an image first")
	// ErrNoMetadata — метаданные ещё не извлечены.
	ErrNoMetadata = errors.New("No metadata available to save")
)

// Session — состояние интерактивной работы с изображением.
type Session struct {
	services *Services
	path     string
	current  *extractor.Extraction
}

// NewSession создаёт пустую сессию.
func NewSession(services *Services) *Session {
	return &Session{services: services}
}

// Load делает файл текущим изображением и сбрасывает извлечённую запись.
func (s *Session) Load(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("ошибка открытия %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s является директорией", path)
	}

	s.path = path
	s.current = nil
	return nil
}

// Path возвращает путь к текущему изображению.
func (s *Session) Path() string {
	return s.path
}

// Current возвращает последнюю извлечённую запись или nil.
func (s *Session) Current() *extractor.Extraction {
	return s.current
}

// Check извлекает метаданные текущего изображения.
// При фатальной ошибке предыдущая запись сбрасывается.
func (s *Session) Check() (*extractor.Extraction, error) {
	if s.path == "" {
		return nil, ErrNoImage
	}

	res, err := s.services.Extract.Extract(s.path)
	if err != nil {
		s.current = nil
		return nil, err
	}
	s.current = res
	return res, nil
}

// Remove записывает копию текущего изображения без метаданных.
func (s *Session) Remove() (*StripResult, error) {
	if s.path == "" {
		return nil, ErrNoImage
	}
	return s.services.Strip.Strip(s.path)
}

// Save сохраняет последнюю извлечённую запись.
func (s *Session) Save(path string) (report.Format, error) {
	if s.current == nil {
		return "", ErrNoMetadata
	}
	return s.services.Report.Save(s.current.Record, path)
}

// Verify сверяет отчёт по пути с последней извлечённой записью.
func (s *Session) Verify(path string) (report.Diff, error) {
	if s.current == nil {
		return report.Diff{}, ErrNoMetadata
	}
	return s.services.Report.Verify(s.current.Record, path)
}

// Preview записывает превью текущего изображения.
func (s *Session) Preview(output string, size int) (string, error) {
	if s.path == "" {
		return "", ErrNoImage
	}
	return s.services.Preview.Preview(s.path, output, size)
}
