package imagefmt_test

import (
	"bytes"
	"errors"
	"image"
	"image/gif"
	"image/png"
	"testing"

	"github.com/bigkaa/metafinder/internal/imagefmt"
	"github.com/bigkaa/metafinder/internal/testutil"
)

// TestDecode проверяет распознавание всех поддерживаемых форматов.
func TestDecode(t *testing.T) {
	src := testutil.Gradient(64, 48)

	tests := []struct {
		name   string
		data   []byte
		format imagefmt.Format
		mime   string
	}{
		{"jpeg", testutil.JPEG(t, src), imagefmt.FormatJPEG, "image/jpeg"},
		{"png", testutil.PNG(t, src), imagefmt.FormatPNG, "image/png"},
		{"gif", testutil.GIF(t, src), imagefmt.FormatGIF, "image/gif"},
		{"bmp", testutil.BMP(t, src), imagefmt.FormatBMP, "image/bmp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec, err := imagefmt.Decode(tt.data)
			if err != nil {
				t.Fatalf("ошибка декодирования: %v", err)
			}
			if dec.Format != tt.format {
				t.Errorf("формат: ожидалось %s, получено %s", tt.format, dec.Format)
			}
			if dec.Width() != 64 || dec.Height() != 48 {
				t.Errorf("размеры: ожидалось 64x48, получено %dx%d", dec.Width(), dec.Height())
			}
			if dec.Format.MIMEType() != tt.mime {
				t.Errorf("MIME: ожидалось %s, получено %s", tt.mime, dec.Format.MIMEType())
			}
			if dec.DetectedMIME != tt.mime {
				t.Errorf("определённый MIME: ожидалось %s, получено %s", tt.mime, dec.DetectedMIME)
			}
		})
	}
}

// TestDecode_Unsupported проверяет фатальную ошибку для не-изображений.
func TestDecode_Unsupported(t *testing.T) {
	cases := map[string][]byte{
		"текст":          []byte("это не изображение, а обычный текст\n"),
		"пусто":          {},
		"обрезанный png": testutil.PNG(t, testutil.Gradient(8, 8))[:40],
	}

	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := imagefmt.Decode(data)
			if !errors.Is(err, imagefmt.ErrUnsupportedFormat) {
				t.Errorf("ожидалась ErrUnsupportedFormat, получено: %v", err)
			}
		})
	}
}

// TestDecode_DetectedMIME проверяет, что MIME-тип берётся из содержимого
// и может уточнять формат.
func TestDecode_DetectedMIME(t *testing.T) {
	// acTL сразу после IHDR делает PNG анимированным (APNG)
	apng := testutil.PNGWithChunk(testutil.PNG(t, testutil.Gradient(16, 16)), "acTL", make([]byte, 8))

	dec, err := imagefmt.Decode(apng)
	if err != nil {
		t.Fatalf("ошибка декодирования: %v", err)
	}
	if dec.Format != imagefmt.FormatPNG {
		t.Errorf("формат: ожидалось PNG, получено %s", dec.Format)
	}
	if dec.DetectedMIME != "image/vnd.mozilla.apng" {
		t.Errorf("определённый MIME: ожидалось image/vnd.mozilla.apng, получено %s", dec.DetectedMIME)
	}
}

// TestReadHeader проверяет параметры заголовков.
func TestReadHeader(t *testing.T) {
	tests := []struct {
		name        string
		data        []byte
		format      imagefmt.Format
		bitDepth    int
		colorType   string
		compression string
		filter      string
		interlaced  bool
	}{
		{"png rgb", testutil.PNG(t, testutil.Gradient(16, 16)), imagefmt.FormatPNG, 8, "RGB", "Deflate", "Adaptive", false},
		{"png rgba", testutil.PNG(t, testutil.Translucent(16, 16)), imagefmt.FormatPNG, 8, "RGBA", "Deflate", "Adaptive", false},
		{"png gray", testutil.PNG(t, testutil.Gray(16, 16)), imagefmt.FormatPNG, 8, "L", "Deflate", "Adaptive", false},
		{"png palette", testutil.PNG(t, testutil.Paletted(16, 16)), imagefmt.FormatPNG, 8, "P", "Deflate", "Adaptive", false},
		{"jpeg rgb", testutil.JPEG(t, testutil.Gradient(16, 16)), imagefmt.FormatJPEG, 8, "RGB", "DCT", "", false},
		{"jpeg gray", testutil.JPEG(t, testutil.Gray(16, 16)), imagefmt.FormatJPEG, 8, "L", "DCT", "", false},
		{"gif", testutil.GIF(t, testutil.Paletted(16, 16)), imagefmt.FormatGIF, 8, "P", "LZW", "", false},
		{"bmp 24", testutil.BMP(t, testutil.Gradient(16, 16)), imagefmt.FormatBMP, 24, "RGB", "None", "", false},
		{"bmp 8", testutil.BMP(t, testutil.Paletted(16, 16)), imagefmt.FormatBMP, 8, "P", "None", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := imagefmt.ReadHeader(tt.data, tt.format)
			if err != nil {
				t.Fatalf("ошибка разбора заголовка: %v", err)
			}
			if h.BitDepth != tt.bitDepth {
				t.Errorf("BitDepth: ожидалось %d, получено %d", tt.bitDepth, h.BitDepth)
			}
			if h.ColorType != tt.colorType {
				t.Errorf("ColorType: ожидалось %q, получено %q", tt.colorType, h.ColorType)
			}
			if h.Compression != tt.compression {
				t.Errorf("Compression: ожидалось %q, получено %q", tt.compression, h.Compression)
			}
			if h.Filter != tt.filter {
				t.Errorf("Filter: ожидалось %q, получено %q", tt.filter, h.Filter)
			}
			if h.Interlaced != tt.interlaced {
				t.Errorf("Interlaced: ожидалось %v, получено %v", tt.interlaced, h.Interlaced)
			}
		})
	}
}

// TestReadHeader_JPEGWithExifSegment проверяет пропуск сегмента APP1 перед SOF.
func TestReadHeader_JPEGWithExifSegment(t *testing.T) {
	data := testutil.JPEGWithExif(testutil.JPEG(t, testutil.Gradient(8, 8)), testutil.ExifSpec{
		Make:  "Canon",
		Model: "EOS 5D",
	})

	h, err := imagefmt.ReadHeader(data, imagefmt.FormatJPEG)
	if err != nil {
		t.Fatalf("ошибка разбора заголовка: %v", err)
	}
	if h.ColorType != "RGB" || h.BitDepth != 8 {
		t.Errorf("ожидалось RGB/8, получено %s/%d", h.ColorType, h.BitDepth)
	}
}

// TestReadHeader_Truncated проверяет ошибку на обрезанных заголовках.
func TestReadHeader_Truncated(t *testing.T) {
	cases := []struct {
		format imagefmt.Format
		data   []byte
	}{
		{imagefmt.FormatPNG, []byte("\x89PNG\r\n\x1a\n")},
		{imagefmt.FormatJPEG, []byte{0xFF, 0xD8}},
		{imagefmt.FormatGIF, []byte("GIF89a")},
		{imagefmt.FormatBMP, []byte("BM")},
	}
	for _, c := range cases {
		if _, err := imagefmt.ReadHeader(c.data, c.format); err == nil {
			t.Errorf("%s: ожидалась ошибка для обрезанного заголовка", c.format)
		}
	}

	if _, err := imagefmt.ReadHeader([]byte("RIFF"), imagefmt.Format("WEBP")); !errors.Is(err, imagefmt.ErrUnsupportedFormat) {
		t.Errorf("ожидалась ErrUnsupportedFormat для неизвестного формата, получено: %v", err)
	}
}

// TestStrip_PreservesGeometryAndMode проверяет сохранение размеров и режима.
// Режимы PNG, которые image/png не умеет записать, собраны вручную.
func TestStrip_PreservesGeometryAndMode(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		format imagefmt.Format
	}{
		{"jpeg", testutil.JPEGWithExif(testutil.JPEG(t, testutil.Gradient(40, 30)), testutil.ExifSpec{Make: "Nikon"}), imagefmt.FormatJPEG},
		{"jpeg gray", testutil.JPEG(t, testutil.Gray(40, 30)), imagefmt.FormatJPEG},
		{"png rgb", testutil.PNGWithExif(testutil.PNG(t, testutil.Gradient(40, 30)), testutil.ExifSpec{Model: "X100"}), imagefmt.FormatPNG},
		{"png rgba", testutil.PNG(t, testutil.Translucent(40, 30)), imagefmt.FormatPNG},
		{"png opaque rgba", testutil.PNGWithExif(testutil.RawPNG(t, 40, 30, 6, 8), testutil.ExifSpec{Make: "Sony"}), imagefmt.FormatPNG},
		{"png la", testutil.RawPNG(t, 40, 30, 4, 8), imagefmt.FormatPNG},
		{"png 1-bit gray", testutil.RawPNG(t, 40, 30, 0, 1), imagefmt.FormatPNG},
		{"png 16-bit gray", testutil.RawPNG(t, 40, 30, 0, 16), imagefmt.FormatPNG},
		{"png palette", testutil.PNG(t, testutil.Paletted(40, 30)), imagefmt.FormatPNG},
		{"gif", testutil.GIF(t, testutil.Paletted(40, 30)), imagefmt.FormatGIF},
		{"bmp", testutil.BMP(t, testutil.Gradient(40, 30)), imagefmt.FormatBMP},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before, err := imagefmt.ReadHeader(tt.data, tt.format)
			if err != nil {
				t.Fatalf("ошибка разбора исходного заголовка: %v", err)
			}

			var buf bytes.Buffer
			dec, err := imagefmt.Strip(&buf, tt.data, imagefmt.EncodeOptions{JPEGQuality: 90})
			if err != nil {
				t.Fatalf("ошибка удаления метаданных: %v", err)
			}
			if dec.Format != tt.format {
				t.Errorf("формат: ожидалось %s, получено %s", tt.format, dec.Format)
			}

			out, err := imagefmt.Decode(buf.Bytes())
			if err != nil {
				t.Fatalf("результат не декодируется: %v", err)
			}
			if out.Format != tt.format {
				t.Errorf("формат результата: ожидалось %s, получено %s", tt.format, out.Format)
			}
			if out.Width() != 40 || out.Height() != 30 {
				t.Errorf("размеры: ожидалось 40x30, получено %dx%d", out.Width(), out.Height())
			}

			after, err := imagefmt.ReadHeader(buf.Bytes(), tt.format)
			if err != nil {
				t.Fatalf("ошибка разбора заголовка результата: %v", err)
			}
			if after.ColorType != before.ColorType {
				t.Errorf("режим: ожидалось %s, получено %s", before.ColorType, after.ColorType)
			}
			if after.BitDepth != before.BitDepth {
				t.Errorf("глубина: ожидалось %d, получено %d", before.BitDepth, after.BitDepth)
			}
		})
	}
}

// TestStripMetadata_JPEG проверяет удаление APP1, APP13 и COM без
// изменения остальных байтов.
func TestStripMetadata_JPEG(t *testing.T) {
	plain := testutil.JPEG(t, testutil.Gradient(24, 16))

	data := testutil.JPEGWithExif(plain, testutil.ExifSpec{Make: "Canon", Software: "Lightroom"})
	data = testutil.JPEGWithSegment(data, 0xFE, []byte("shot on a rainy day"))
	data = testutil.JPEGWithSegment(data, 0xED, []byte("Photoshop 3.0\x008BIM"))
	data = testutil.JPEGWithXMP(data, `<x:xmpmeta xmlns:x="adobe:ns:meta/"/>`)

	clean, err := imagefmt.StripMetadata(data, imagefmt.FormatJPEG)
	if err != nil {
		t.Fatalf("ошибка удаления метаданных: %v", err)
	}
	if !bytes.Equal(clean, plain) {
		t.Errorf("ожидался исходный JPEG без вставленных сегментов: %d байт вместо %d", len(clean), len(plain))
	}

	segs, _, err := imagefmt.JPEGSegments(clean)
	if err != nil {
		t.Fatalf("ошибка разбора результата: %v", err)
	}
	for _, seg := range segs {
		if seg.Marker == 0xE1 || seg.Marker == 0xED || seg.Marker == 0xFE {
			t.Errorf("в результате остался сегмент 0x%02X", seg.Marker)
		}
	}
}

// TestStripMetadata_PNG проверяет удаление текстовых чанков, eXIf и tIME.
func TestStripMetadata_PNG(t *testing.T) {
	plain := testutil.RawPNG(t, 8, 4, 4, 8)

	data := testutil.PNGWithExif(plain, testutil.ExifSpec{Model: "GR III"})
	data = testutil.PNGWithChunk(data, "tEXt", []byte("Comment\x00hello"))
	data = testutil.PNGWithChunk(data, "iTXt", []byte("Author\x00\x00\x00\x00\x00Иван"))
	data = testutil.PNGWithChunk(data, "zTXt", []byte("Title\x00\x00x\x9c\x03\x00\x00\x00\x00\x01"))
	data = testutil.PNGWithChunk(data, "tIME", []byte{0x07, 0xE8, 1, 2, 3, 4, 5})

	clean, err := imagefmt.StripMetadata(data, imagefmt.FormatPNG)
	if err != nil {
		t.Fatalf("ошибка удаления метаданных: %v", err)
	}
	if !bytes.Equal(clean, plain) {
		t.Errorf("ожидался исходный PNG без вставленных чанков: %d байт вместо %d", len(clean), len(plain))
	}
}

func TestStripMetadata_Invalid(t *testing.T) {
	cases := []struct {
		name   string
		data   []byte
		format imagefmt.Format
	}{
		{"обрезанный jpeg", testutil.JPEG(t, testutil.Gradient(8, 8))[:20], imagefmt.FormatJPEG},
		{"png без сигнатуры", []byte("not a png at all"), imagefmt.FormatPNG},
		{"gif", testutil.GIF(t, testutil.Paletted(8, 8)), imagefmt.FormatGIF},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := imagefmt.StripMetadata(c.data, c.format); !errors.Is(err, imagefmt.ErrUnsupportedFormat) {
				t.Errorf("ожидалась ErrUnsupportedFormat, получено: %v", err)
			}
		})
	}
}

// TestStrip_JunkBetweenSegments проверяет перекодирование JPEG, который
// декодер принимает, но сегменты которого разобрать нельзя.
func TestStrip_JunkBetweenSegments(t *testing.T) {
	plain := testutil.JPEG(t, testutil.Gradient(40, 30))
	segs, _, err := imagefmt.JPEGSegments(plain)
	if err != nil || len(segs) == 0 {
		t.Fatalf("ошибка разбора исходного JPEG: %v", err)
	}

	cut := segs[0].End
	data := append([]byte{}, plain[:cut]...)
	data = append(data, 0x00, 0x17)
	data = append(data, plain[cut:]...)

	if _, err := imagefmt.StripMetadata(data, imagefmt.FormatJPEG); err == nil {
		t.Fatal("ожидалась ошибка разбора сегментов")
	}

	var buf bytes.Buffer
	if _, err := imagefmt.Strip(&buf, data, imagefmt.EncodeOptions{JPEGQuality: 90}); err != nil {
		t.Fatalf("ошибка удаления метаданных: %v", err)
	}
	out, err := imagefmt.Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("результат не декодируется: %v", err)
	}
	if out.Width() != 40 || out.Height() != 30 {
		t.Errorf("размеры: ожидалось 40x30, получено %dx%d", out.Width(), out.Height())
	}
}

// TestStrip_AnimatedGIF проверяет сохранение всех кадров.
func TestStrip_AnimatedGIF(t *testing.T) {
	data := testutil.AnimatedGIF(t, 20, 10, 3)

	var buf bytes.Buffer
	if _, err := imagefmt.Strip(&buf, data, imagefmt.EncodeOptions{}); err != nil {
		t.Fatalf("ошибка перекодирования: %v", err)
	}

	g, err := gif.DecodeAll(&buf)
	if err != nil {
		t.Fatalf("результат не декодируется: %v", err)
	}
	if len(g.Image) != 3 {
		t.Errorf("кадры: ожидалось 3, получено %d", len(g.Image))
	}
}

func TestThumbnail(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		size         int
		wantW, wantH int
	}{
		{"альбомная", 600, 300, 300, 300, 150},
		{"портретная", 200, 800, 100, 25, 100},
		{"квадрат", 50, 50, 300, 300, 300},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			thumb := imagefmt.Thumbnail(testutil.Gradient(tt.w, tt.h), tt.size)
			b := thumb.Bounds()
			if b.Dx() != tt.wantW || b.Dy() != tt.wantH {
				t.Errorf("размеры: ожидалось %dx%d, получено %dx%d", tt.wantW, tt.wantH, b.Dx(), b.Dy())
			}

			var buf bytes.Buffer
			if err := png.Encode(&buf, thumb); err != nil {
				t.Fatalf("превью не кодируется: %v", err)
			}
		})
	}
}

func TestColorModeName(t *testing.T) {
	tests := []struct {
		img  image.Image
		want string
	}{
		{image.NewRGBA(image.Rect(0, 0, 1, 1)), "RGBA"},
		{image.NewNRGBA(image.Rect(0, 0, 1, 1)), "RGBA"},
		{image.NewGray(image.Rect(0, 0, 1, 1)), "L"},
		{image.NewGray16(image.Rect(0, 0, 1, 1)), "I;16"},
		{image.NewCMYK(image.Rect(0, 0, 1, 1)), "CMYK"},
		{image.NewYCbCr(image.Rect(0, 0, 1, 1), image.YCbCrSubsampleRatio420), "RGB"},
		{testutil.Paletted(1, 1), "P"},
	}

	for _, tt := range tests {
		if got := imagefmt.ColorModeName(tt.img.ColorModel()); got != tt.want {
			t.Errorf("%T: ожидалось %s, получено %s", tt.img, tt.want, got)
		}
	}
}
