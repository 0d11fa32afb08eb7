// Пакет exifdata — чтение EXIF-тегов изображения.
// Источник EXIF: сегмент APP1 в JPEG и чанк eXIf в PNG.
// GIF и BMP EXIF не содержат.
package exifdata

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/mknote"
	"github.com/rwcarlsen/goexif/tiff"

	"github.com/bigkaa/metafinder/internal/domain/model"
	"github.com/bigkaa/metafinder/internal/imagefmt"
)

func init() {
	// Парсеры maker notes производителей
	exif.RegisterParsers(mknote.All...)
}

// ErrNoExif — в файле нет EXIF-блока.
var ErrNoExif = errors.New("EXIF-данные не найдены")

// Tags — значения EXIF-тегов. Пустая строка означает отсутствие тега.
type Tags struct {
	DateTimeOriginal string
	Model            string
	Make             string
	Software         string
	// GPS — координаты; nil если GPS-тегов нет или они некорректны
	GPS *model.GPS
	// GPSErr — причина отказа, если GPS-теги есть, но не разобраны
	GPSErr error
}

// Decode извлекает EXIF-теги из содержимого файла.
// Возвращает ErrNoExif, если EXIF-блок отсутствует, или ошибку разбора.
func Decode(data []byte, format imagefmt.Format) (*Tags, error) {
	var payload []byte
	switch format {
	case imagefmt.FormatJPEG:
		seg, ok := jpegExifSegment(data)
		if !ok {
			return nil, ErrNoExif
		}
		payload = seg
	case imagefmt.FormatPNG:
		chunk, ok := pngExifChunk(data)
		if !ok {
			return nil, ErrNoExif
		}
		payload = chunk
	default:
		return nil, ErrNoExif
	}
	if len(payload) == 0 {
		return nil, ErrNoExif
	}

	x, err := exif.Decode(bytes.NewReader(payload))
	if err != nil && (x == nil || exif.IsCriticalError(err)) {
		return nil, fmt.Errorf("ошибка разбора EXIF: %w", err)
	}

	tags := &Tags{
		DateTimeOriginal: stringTag(x, exif.DateTimeOriginal),
		Model:            stringTag(x, exif.Model),
		Make:             stringTag(x, exif.Make),
		Software:         stringTag(x, exif.Software),
	}
	tags.GPS, tags.GPSErr = gpsCoordinates(x)

	return tags, nil
}

// Present сообщает, содержит ли файл разбираемый EXIF-блок.
func Present(data []byte, format imagefmt.Format) bool {
	_, err := Decode(data, format)
	return err == nil
}

// stringTag возвращает строковое значение тега без завершающих нулей и пробелов.
func stringTag(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}
	s, err := tag.StringVal()
	if err != nil {
		s = tag.String()
	}
	return strings.TrimSpace(strings.TrimRight(s, "\x00"))
}

// gpsCoordinates собирает координаты из GPS-тегов.
// Возвращает (nil, nil), если широты или долготы нет.
func gpsCoordinates(x *exif.Exif) (*model.GPS, error) {
	latTag, latErr := x.Get(exif.GPSLatitude)
	lonTag, lonErr := x.Get(exif.GPSLongitude)
	if latErr != nil || lonErr != nil {
		return nil, nil
	}

	lat, err := dmsTag(latTag)
	if err != nil {
		return nil, fmt.Errorf("GPSLatitude: %w", err)
	}
	lon, err := dmsTag(lonTag)
	if err != nil {
		return nil, fmt.Errorf("GPSLongitude: %w", err)
	}

	return &model.GPS{
		Lat: ApplyRef(lat, stringTag(x, exif.GPSLatitudeRef), "N"),
		Lon: ApplyRef(lon, stringTag(x, exif.GPSLongitudeRef), "E"),
	}, nil
}

// dmsTag переводит тег из трёх рациональных чисел в десятичные градусы.
func dmsTag(tag *tiff.Tag) (float64, error) {
	if tag.Count < 3 {
		return 0, fmt.Errorf("ожидалось 3 значения, получено %d", tag.Count)
	}

	var parts [3]float64
	for i := range parts {
		num, den, err := tag.Rat2(i)
		if err != nil {
			return 0, err
		}
		if den == 0 {
			return 0, fmt.Errorf("нулевой знаменатель в значении %d", i)
		}
		parts[i] = float64(num) / float64(den)
	}

	return ToDegrees(parts[0], parts[1], parts[2]), nil
}

// ToDegrees переводит градусы, минуты и секунды в десятичные градусы.
func ToDegrees(deg, min, sec float64) float64 {
	return deg + min/60.0 + sec/3600.0
}

// ApplyRef меняет знак координаты, если полушарие отличается от positive
// ("N" для широты, "E" для долготы). Отсутствующий ref тоже меняет знак.
func ApplyRef(v float64, ref, positive string) float64 {
	if strings.TrimSpace(ref) != positive {
		return -v
	}
	return v
}

// exifHeader — заголовок APP1-сегмента с EXIF.
var exifHeader = []byte("Exif\x00\x00")

// jpegExifSegment ищет среди сегментов до начала сканирования APP1 с
// заголовком EXIF и возвращает TIFF-структуру после заголовка.
// APP1 с XMP пропускаются, даже если стоят первыми.
func jpegExifSegment(data []byte) ([]byte, bool) {
	segs, _, _ := imagefmt.JPEGSegments(data)
	for _, seg := range segs {
		if seg.Marker == 0xE1 && bytes.HasPrefix(seg.Payload, exifHeader) {
			return seg.Payload[len(exifHeader):], true
		}
	}
	return nil, false
}

// pngExifChunk ищет чанк eXIf и возвращает его данные (TIFF-структуру).
func pngExifChunk(data []byte) ([]byte, bool) {
	chunks, _ := imagefmt.PNGChunks(data)
	for _, c := range chunks {
		if c.Type == "eXIf" {
			return c.Data, true
		}
	}
	return nil, false
}
