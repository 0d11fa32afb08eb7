// Пакет testutil — генерация тестовых изображений и EXIF-блоков.
// Используется только из тестов.
package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/color/palette"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/bmp"
)

// Gradient создаёт непрозрачное RGBA-изображение с градиентом.
func Gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(x * 255 / max(1, w-1)),
				G: uint8(y * 255 / max(1, h-1)),
				B: 128,
				A: 255,
			})
		}
	}
	return img
}

// Translucent создаёт NRGBA-изображение с переменной прозрачностью.
func Translucent(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: 200, G: uint8(x), B: uint8(y), A: uint8((x + y) % 256)})
		}
	}
	return img
}

// Gray создаёт изображение в оттенках серого.
func Gray(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8((x + y) % 256)})
		}
	}
	return img
}

// Paletted создаёт палитровое изображение.
func Paletted(w, h int) *image.Paletted {
	img := image.NewPaletted(image.Rect(0, 0, w, h), palette.Plan9)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetColorIndex(x, y, uint8((x*7+y*3)%len(palette.Plan9)))
		}
	}
	return img
}

// PNG кодирует изображение в PNG.
func PNG(t testing.TB, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("ошибка кодирования PNG: %v", err)
	}
	return buf.Bytes()
}

// JPEG кодирует изображение в JPEG.
func JPEG(t testing.TB, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("ошибка кодирования JPEG: %v", err)
	}
	return buf.Bytes()
}

// GIF кодирует изображение в GIF.
func GIF(t testing.TB, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := gif.Encode(&buf, img, nil); err != nil {
		t.Fatalf("ошибка кодирования GIF: %v", err)
	}
	return buf.Bytes()
}

// AnimatedGIF кодирует GIF из нескольких кадров.
func AnimatedGIF(t testing.TB, w, h, frames int) []byte {
	t.Helper()
	g := &gif.GIF{LoopCount: 0}
	for i := 0; i < frames; i++ {
		frame := image.NewPaletted(image.Rect(0, 0, w, h), palette.Plan9)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				frame.SetColorIndex(x, y, uint8((x+y+i*16)%len(palette.Plan9)))
			}
		}
		g.Image = append(g.Image, frame)
		g.Delay = append(g.Delay, 10)
	}
	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, g); err != nil {
		t.Fatalf("ошибка кодирования GIF: %v", err)
	}
	return buf.Bytes()
}

// BMP кодирует изображение в BMP.
func BMP(t testing.TB, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := bmp.Encode(&buf, img); err != nil {
		t.Fatalf("ошибка кодирования BMP: %v", err)
	}
	return buf.Bytes()
}

// WriteFile записывает данные во временную директорию теста и возвращает путь.
func WriteFile(t testing.TB, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("ошибка записи %s: %v", path, err)
	}
	return path
}
