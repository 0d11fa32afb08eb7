// Пакет imagefmt — распознавание, декодирование и кодирование растровых
// изображений (JPEG, PNG, GIF, BMP).
package imagefmt

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"  // регистрация декодера GIF
	_ "image/jpeg" // регистрация декодера JPEG
	_ "image/png"  // регистрация декодера PNG
	"strings"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/bmp" // регистрация декодера BMP
)

// ErrUnsupportedFormat — содержимое не является поддерживаемым изображением.
var ErrUnsupportedFormat = errors.New("неподдерживаемый формат изображения")

// Format — имя формата изображения.
type Format string

const (
	FormatJPEG Format = "JPEG"
	FormatPNG  Format = "PNG"
	FormatGIF  Format = "GIF"
	FormatBMP  Format = "BMP"
)

// mimeTypes — соответствие формата и MIME-типа.
var mimeTypes = map[Format]string{
	FormatJPEG: "image/jpeg",
	FormatPNG:  "image/png",
	FormatGIF:  "image/gif",
	FormatBMP:  "image/bmp",
}

// MIMEType возвращает MIME-тип формата или пустую строку.
func (f Format) MIMEType() string {
	return mimeTypes[f]
}

// Decoded — результат декодирования изображения.
type Decoded struct {
	Image  image.Image
	Format Format
	// DetectedMIME — MIME-тип, определённый по содержимому. Совпадает с
	// MIME-типом формата или уточняет его (image/vnd.mozilla.apng для PNG)
	DetectedMIME string
}

// Width возвращает ширину изображения.
func (d *Decoded) Width() int {
	return d.Image.Bounds().Dx()
}

// Height возвращает высоту изображения.
func (d *Decoded) Height() int {
	return d.Image.Bounds().Dy()
}

// sniff определяет MIME-тип по содержимому и проверяет, что это изображение.
func sniff(data []byte) (*mimetype.MIME, error) {
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return mt, fmt.Errorf("содержимое определено как %s: %w", mt.String(), ErrUnsupportedFormat)
	}
	return mt, nil
}

// Decode распознаёт и полностью декодирует изображение.
// MIME-тип по содержимому должен соответствовать декодированному формату.
// Ошибка всегда оборачивает ErrUnsupportedFormat.
func Decode(data []byte) (*Decoded, error) {
	detected, err := sniff(data)
	if err != nil {
		return nil, err
	}

	img, name, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("ошибка декодирования (%s): %v: %w", detected, err, ErrUnsupportedFormat)
	}

	format := Format(strings.ToUpper(name))
	if _, ok := mimeTypes[format]; !ok {
		return nil, fmt.Errorf("формат %q: %w", name, ErrUnsupportedFormat)
	}
	if !conformsTo(detected, format) {
		return nil, fmt.Errorf("содержимое определено как %s, декодировано как %s: %w",
			detected, format, ErrUnsupportedFormat)
	}

	return &Decoded{
		Image:        img,
		Format:       format,
		DetectedMIME: detected.String(),
	}, nil
}

// conformsTo сообщает, является ли mt MIME-типом формата или его подтипом.
func conformsTo(mt *mimetype.MIME, format Format) bool {
	want := format.MIMEType()
	for m := mt; m != nil; m = m.Parent() {
		if m.Is(want) {
			return true
		}
	}
	return false
}

// ColorModeName возвращает имя цветовой модели в нотации режимов
// изображения (RGB, RGBA, L, P, CMYK, ...).
func ColorModeName(m color.Model) string {
	if _, ok := m.(color.Palette); ok {
		return "P"
	}
	switch m {
	case color.RGBAModel, color.NRGBAModel, color.RGBA64Model, color.NRGBA64Model, color.AlphaModel, color.Alpha16Model:
		return "RGBA"
	case color.GrayModel:
		return "L"
	case color.Gray16Model:
		return "I;16"
	case color.YCbCrModel:
		return "RGB"
	case color.CMYKModel:
		return "CMYK"
	}
	return "RGB"
}
