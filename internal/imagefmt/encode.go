package imagefmt

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

// EncodeOptions — параметры кодирования.
type EncodeOptions struct {
	// JPEGQuality — качество JPEG (1-100)
	JPEGQuality int
}

// Encode кодирует изображение в указанный формат. Кодировщики пишут только
// пиксельные данные и обязательные структуры формата, без EXIF и
// текстовых метаданных.
func Encode(w io.Writer, img image.Image, format Format, opts EncodeOptions) error {
	switch format {
	case FormatJPEG:
		quality := opts.JPEGQuality
		if quality <= 0 {
			quality = jpeg.DefaultQuality
		}
		return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	case FormatPNG:
		return png.Encode(w, img)
	case FormatGIF:
		return gif.Encode(w, img, nil)
	case FormatBMP:
		return bmp.Encode(w, img)
	default:
		return fmt.Errorf("кодирование %q: %w", format, ErrUnsupportedFormat)
	}
}

// reencode кодирует декодированное изображение заново в тот же формат.
// Анимированный GIF перекодируется со всеми кадрами.
func reencode(w io.Writer, data []byte, dec *Decoded, opts EncodeOptions) error {
	if dec.Format == FormatGIF {
		g, err := gif.DecodeAll(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("ошибка декодирования кадров GIF: %v: %w", err, ErrUnsupportedFormat)
		}
		if err := gif.EncodeAll(w, g); err != nil {
			return fmt.Errorf("ошибка кодирования GIF: %w", err)
		}
		return nil
	}

	if err := Encode(w, dec.Image, dec.Format, opts); err != nil {
		return fmt.Errorf("ошибка кодирования %s: %w", dec.Format, err)
	}
	return nil
}

// Strip записывает копию изображения без метаданных.
// Из JPEG и PNG удаляются сегменты с метаданными без перекодирования.
// GIF и BMP EXIF не содержат и перекодируются целиком. Перекодируется и
// JPEG или PNG, который декодер принял, но разобрать на сегменты не удалось
// (мусор между маркерами, обрезанный хвост).
// Данные предварительно декодируются: повреждённое изображение не копируется.
func Strip(w io.Writer, data []byte, opts EncodeOptions) (*Decoded, error) {
	dec, err := Decode(data)
	if err != nil {
		return nil, err
	}

	if dec.Format == FormatJPEG || dec.Format == FormatPNG {
		if clean, err := StripMetadata(data, dec.Format); err == nil {
			if _, err := w.Write(clean); err != nil {
				return nil, fmt.Errorf("ошибка записи %s: %w", dec.Format, err)
			}
			return dec, nil
		}
	}

	if err := reencode(w, data, dec, opts); err != nil {
		return nil, err
	}
	return dec, nil
}

// Thumbnail масштабирует изображение так, чтобы оно вписалось в квадрат
// size×size с сохранением пропорций.
func Thumbnail(img image.Image, size int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 || size <= 0 {
		return image.NewRGBA(image.Rect(0, 0, 0, 0))
	}

	tw, th := size, size
	if w > h {
		th = max(1, h*size/w)
	} else if h > w {
		tw = max(1, w*size/h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, tw, th))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
