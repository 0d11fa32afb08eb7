// Пакет filestore — операции с файлами на диске.
// Обеспечивает чтение входного файла целиком с ограничением размера,
// подсчёт контрольной суммы и атомарную запись результатов.
package filestore

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	sha256 "github.com/minio/sha256-simd"
)

// ErrFileTooLarge — размер входного файла превышает допустимый.
var ErrFileTooLarge = errors.New("размер файла превышает допустимый максимум")

// Алгоритмы контрольной суммы.
const (
	AlgorithmMD5    = "md5"
	AlgorithmSHA256 = "sha256"
)

// File — прочитанный с диска файл.
type File struct {
	// Path — путь, по которому файл был прочитан
	Path string
	// Data — полное содержимое файла
	Data []byte
	// Size — размер файла в байтах
	Size int64
}

// Name возвращает имя файла без директории.
func (f *File) Name() string {
	return filepath.Base(f.Path)
}

// Ext возвращает расширение файла в нижнем регистре (с точкой).
func (f *File) Ext() string {
	return strings.ToLower(filepath.Ext(f.Path))
}

// FileStore — чтение и запись файлов с ограничением размера.
type FileStore struct {
	// maxFileSize — максимальный размер читаемого файла в байтах
	maxFileSize int64
	// algorithm — алгоритм контрольной суммы
	algorithm string
}

// New создаёт новый FileStore.
func New(maxFileSize int64, algorithm string) (*FileStore, error) {
	if maxFileSize <= 0 {
		return nil, fmt.Errorf("максимальный размер файла должен быть положительным, получено %d", maxFileSize)
	}
	if _, err := newHasher(algorithm); err != nil {
		return nil, err
	}
	return &FileStore{maxFileSize: maxFileSize, algorithm: algorithm}, nil
}

// Algorithm возвращает алгоритм контрольной суммы.
func (fs *FileStore) Algorithm() string {
	return fs.algorithm
}

// ReadFile читает файл целиком. Дескриптор закрывается до возврата.
// Возвращает ErrFileTooLarge, если размер превышает maxFileSize.
func (fs *FileStore) ReadFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("файл не найден: %s: %w", path, err)
		}
		return nil, fmt.Errorf("ошибка открытия файла %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("ошибка получения информации о файле %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s является директорией", path)
	}
	if info.Size() > fs.maxFileSize {
		return nil, fmt.Errorf("%s: %d байт при максимуме %d: %w", path, info.Size(), fs.maxFileSize, ErrFileTooLarge)
	}

	// Читаем на байт больше лимита, чтобы заметить рост файла после Stat
	data, err := io.ReadAll(io.LimitReader(f, fs.maxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения файла %s: %w", path, err)
	}
	if int64(len(data)) > fs.maxFileSize {
		return nil, fmt.Errorf("%s: %w", path, ErrFileTooLarge)
	}

	return &File{
		Path: path,
		Data: data,
		Size: int64(len(data)),
	}, nil
}

// Checksum вычисляет контрольную сумму содержимого в hex.
func (fs *FileStore) Checksum(data []byte) string {
	h, _ := newHasher(fs.algorithm)
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ComputeChecksum вычисляет контрольную сумму существующего файла потоково.
func (fs *FileStore) ComputeChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("ошибка открытия файла %s: %w", path, err)
	}
	defer f.Close()

	h, _ := newHasher(fs.algorithm)
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("ошибка вычисления checksum %s: %w", path, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// WriteFile атомарно записывает файл: write → temp файл → fsync → rename.
// При любой ошибке temp файл удаляется, а существующий файл по path
// остаётся нетронутым.
func (fs *FileStore) WriteFile(path string, write func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("не удалось создать директорию %s: %w", dir, err)
	}

	// Уникальное имя temp файла в той же директории, чтобы rename был атомарным
	tmpPath := filepath.Join(dir, "."+filepath.Base(path)+"."+uuid.New().String()[:8]+".tmp")

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	if err := write(f); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка записи: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return nil
}

// DerivedPath возвращает путь рядом с исходным файлом с суффиксом
// перед расширением.
// Пример: ("/data/photo.jpg", "_no_metadata", "") → "/data/photo_no_metadata.jpg"
// Непустой ext заменяет исходное расширение.
func DerivedPath(path, suffix, ext string) string {
	origExt := filepath.Ext(path)
	base := strings.TrimSuffix(path, origExt)
	if ext == "" {
		ext = origExt
	}
	return base + suffix + ext
}

// newHasher создаёт hash.Hash для алгоритма.
func newHasher(algorithm string) (hash.Hash, error) {
	switch algorithm {
	case AlgorithmMD5:
		return md5.New(), nil
	case AlgorithmSHA256:
		return sha256.New(), nil
	default:
		return nil, fmt.Errorf("неподдерживаемый алгоритм контрольной суммы %q", algorithm)
	}
}
