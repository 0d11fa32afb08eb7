// Пакет extractor — сборка записи метаданных изображения.
//
// Extract читает файл один раз и использует его содержимое для контрольной
// суммы, разбора EXIF, декодирования и разбора заголовка. Ошибки делятся на
// два уровня:
//   - отсутствие или повреждение EXIF не фатально: поля EXIF получают
//     значение model.NotAvailable, причина сохраняется в Extraction.ExifErr;
//   - нечитаемый файл или неподдерживаемый формат фатальны: возвращается
//     error, запись не создаётся.
package extractor

import (
	"fmt"
	"strconv"

	"github.com/bigkaa/metafinder/internal/domain/model"
	"github.com/bigkaa/metafinder/internal/exifdata"
	"github.com/bigkaa/metafinder/internal/imagefmt"
	"github.com/bigkaa/metafinder/internal/storage/filestore"
)

// Значения полей RGB и Interlace.
const (
	ValueYes           = "Yes"
	ValueNo            = "No"
	ValueInterlaced    = "Interlaced"
	ValueNoninterlaced = "Noninterlaced"
)

// Extraction — результат извлечения метаданных.
type Extraction struct {
	// Record — полная запись из 22 полей
	Record *model.Record
	// ExifErr — причина подстановки заглушек в поля EXIF (nil если EXIF прочитан)
	ExifErr error
	// GPSErr — причина отказа от GPS-координат при прочитанном EXIF
	GPSErr error
	// Path — путь к исходному файлу
	Path string
	// Format — декодированный формат изображения
	Format imagefmt.Format
	// Size — размер исходного файла в байтах
	Size int64
}

// Partial сообщает, были ли поля EXIF заменены заглушками.
func (e *Extraction) Partial() bool {
	return e.ExifErr != nil
}

// Extractor собирает записи метаданных.
type Extractor struct {
	store *filestore.FileStore
}

// New создаёт Extractor поверх файлового хранилища.
func New(store *filestore.FileStore) *Extractor {
	return &Extractor{store: store}
}

// Extract читает файл по пути и собирает запись метаданных.
func (x *Extractor) Extract(path string) (*Extraction, error) {
	file, err := x.store.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return x.ExtractFile(file)
}

// ExtractFile собирает запись метаданных по уже прочитанному файлу.
func (x *Extractor) ExtractFile(file *filestore.File) (*Extraction, error) {
	dec, err := imagefmt.Decode(file.Data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file.Path, err)
	}

	rec := model.NewPlaceholderRecord()
	result := &Extraction{
		Record: rec,
		Path:   file.Path,
		Format: dec.Format,
		Size:   file.Size,
	}

	// EXIF: любая ошибка оставляет заглушки
	tags, err := exifdata.Decode(file.Data, dec.Format)
	if err != nil {
		result.ExifErr = err
	} else {
		setString(rec, model.FieldDateTime, tags.DateTimeOriginal)
		setString(rec, model.FieldCameraModel, tags.Model)
		setString(rec, model.FieldDeviceName, tags.Make)
		setString(rec, model.FieldSoftware, tags.Software)
		if tags.GPS != nil {
			rec.Set(model.FieldGPS, *tags.GPS)
		}
		result.GPSErr = tags.GPSErr
	}

	rec.Set(model.FieldChecksum, x.store.Checksum(file.Data))
	rec.Set(model.FieldFileName, file.Name())
	rec.Set(model.FieldFileSize, file.Size)
	rec.Set(model.FieldFileType, string(dec.Format))
	setString(rec, model.FieldFileExtension, file.Ext())
	rec.Set(model.FieldMIMEType, dec.DetectedMIME)
	rec.Set(model.FieldImageWidth, dec.Width())
	rec.Set(model.FieldImageHeight, dec.Height())

	colorType := imagefmt.ColorModeName(dec.Image.ColorModel())
	interlaced := false
	if h, err := imagefmt.ReadHeader(file.Data, dec.Format); err == nil {
		if h.BitDepth > 0 {
			rec.Set(model.FieldBitDepth, strconv.Itoa(h.BitDepth))
		}
		if h.ColorType != "" {
			colorType = h.ColorType
		}
		setString(rec, model.FieldCompression, h.Compression)
		setString(rec, model.FieldFilter, h.Filter)
		interlaced = h.Interlaced
	}
	rec.Set(model.FieldColorType, colorType)
	rec.Set(model.FieldRGB, yesNo(colorType == "RGB"))
	if interlaced {
		rec.Set(model.FieldInterlace, ValueInterlaced)
	} else {
		rec.Set(model.FieldInterlace, ValueNoninterlaced)
	}

	rec.Set(model.FieldImageSize, fmt.Sprintf("%dx%d", dec.Width(), dec.Height()))
	rec.Set(model.FieldMegapixels, model.Megapixels(dec.Width(), dec.Height()))
	rec.Set(model.FieldCategory, model.CategoryImage)

	return result, nil
}

// setString записывает непустое значение; пустое оставляет заглушку.
func setString(rec *model.Record, name, value string) {
	if value != "" {
		rec.Set(name, value)
	}
}

func yesNo(b bool) string {
	if b {
		return ValueYes
	}
	return ValueNo
}
