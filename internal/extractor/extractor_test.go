package extractor_test

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/bigkaa/metafinder/internal/domain/model"
	"github.com/bigkaa/metafinder/internal/exifdata"
	"github.com/bigkaa/metafinder/internal/extractor"
	"github.com/bigkaa/metafinder/internal/imagefmt"
	"github.com/bigkaa/metafinder/internal/storage/filestore"
	"github.com/bigkaa/metafinder/internal/testutil"
)

func newExtractor(t *testing.T) *extractor.Extractor {
	t.Helper()
	store, err := filestore.New(10<<20, filestore.AlgorithmMD5)
	if err != nil {
		t.Fatalf("ошибка создания FileStore: %v", err)
	}
	return extractor.New(store)
}

// TestExtract_FullExif проверяет заполнение всех полей для JPEG с EXIF и GPS.
func TestExtract_FullExif(t *testing.T) {
	data := testutil.JPEGWithExif(testutil.JPEG(t, testutil.Gradient(400, 300)), testutil.ExifSpec{
		Make:             "NIKON CORPORATION",
		Model:            "NIKON D750",
		Software:         "Ver.1.10",
		DateTimeOriginal: "2022:05:01 09:15:00",
		GPS: &testutil.ExifGPS{
			LatRef: "S",
			Lat:    testutil.DMSOf(33, 51, 3100),
			LonRef: "E",
			Lon:    testutil.DMSOf(151, 12, 5100),
		},
	})
	path := testutil.WriteFile(t, "Photo.JPG", data)

	res, err := newExtractor(t).Extract(path)
	if err != nil {
		t.Fatalf("ошибка извлечения: %v", err)
	}
	if res.Partial() {
		t.Fatalf("извлечение не должно быть частичным: %v", res.ExifErr)
	}
	if res.Format != imagefmt.FormatJPEG {
		t.Errorf("формат: ожидалось JPEG, получено %s", res.Format)
	}

	rec := res.Record
	want := map[string]string{
		model.FieldDateTime:      "2022:05:01 09:15:00",
		model.FieldCameraModel:   "NIKON D750",
		model.FieldDeviceName:    "NIKON CORPORATION",
		model.FieldSoftware:      "Ver.1.10",
		model.FieldFileName:      "Photo.JPG",
		model.FieldFileSize:      model.FormatValue(int64(len(data))),
		model.FieldFileType:      "JPEG",
		model.FieldFileExtension: ".jpg",
		model.FieldMIMEType:      "image/jpeg",
		model.FieldImageWidth:    "400",
		model.FieldImageHeight:   "300",
		model.FieldBitDepth:      "8",
		model.FieldColorType:     "RGB",
		model.FieldRGB:           extractor.ValueYes,
		model.FieldCompression:   "DCT",
		model.FieldFilter:        model.NotAvailable,
		model.FieldInterlace:     extractor.ValueNoninterlaced,
		model.FieldImageSize:     "400x300",
		model.FieldMegapixels:    "0.12",
		model.FieldCategory:      "Image",
	}
	for name, value := range want {
		if got := rec.Text(name); got != value {
			t.Errorf("%s: ожидалось %q, получено %q", name, value, got)
		}
	}

	g, ok := rec.GPS()
	if !ok {
		t.Fatalf("ожидались GPS-координаты, получено %q (GPSErr=%v)", rec.Text(model.FieldGPS), res.GPSErr)
	}
	wantLat := -exifdata.ToDegrees(33, 51, 31)
	wantLon := exifdata.ToDegrees(151, 12, 51)
	if math.Abs(g.Lat-wantLat) > 1e-9 || math.Abs(g.Lon-wantLon) > 1e-9 {
		t.Errorf("GPS: ожидалось (%v, %v), получено (%v, %v)", wantLat, wantLon, g.Lat, g.Lon)
	}

	// Значения хранятся с типами
	if v, _ := rec.Get(model.FieldFileSize); v != int64(len(data)) {
		t.Errorf("File Size должен быть int64, получено %T", v)
	}
	if v, _ := rec.Get(model.FieldImageWidth); v != 400 {
		t.Errorf("Image Width должен быть int, получено %T", v)
	}
	if v, _ := rec.Get(model.FieldMegapixels); v != 0.12 {
		t.Errorf("Megapixels: ожидалось 0.12, получено %v", v)
	}
}

// TestExtract_FieldOrder проверяет наличие всех 22 полей в фиксированном порядке.
func TestExtract_FieldOrder(t *testing.T) {
	path := testutil.WriteFile(t, "img.png", testutil.PNG(t, testutil.Gradient(10, 10)))

	res, err := newExtractor(t).Extract(path)
	if err != nil {
		t.Fatalf("ошибка извлечения: %v", err)
	}

	names := res.Record.Names()
	if len(names) != 22 {
		t.Fatalf("ожидалось 22 поля, получено %d", len(names))
	}
	for i, name := range model.FieldOrder {
		if names[i] != name {
			t.Errorf("поле %d: ожидалось %q, получено %q", i, name, names[i])
		}
	}
	if missing := res.Record.Missing(); len(missing) != 0 {
		t.Errorf("отсутствуют поля: %v", missing)
	}
}

// TestExtract_NoExif проверяет заглушки и успешное извлечение без EXIF.
func TestExtract_NoExif(t *testing.T) {
	tests := []struct {
		name string
		file string
		data []byte
	}{
		{"jpeg", "plain.jpg", testutil.JPEG(t, testutil.Gradient(32, 16))},
		{"png", "plain.png", testutil.PNG(t, testutil.Gradient(32, 16))},
		{"gif", "plain.gif", testutil.GIF(t, testutil.Paletted(32, 16))},
		{"bmp", "plain.bmp", testutil.BMP(t, testutil.Gradient(32, 16))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := testutil.WriteFile(t, tt.file, tt.data)

			res, err := newExtractor(t).Extract(path)
			if err != nil {
				t.Fatalf("извлечение без EXIF не должно завершаться ошибкой: %v", err)
			}
			if !res.Partial() {
				t.Error("ожидалось частичное извлечение")
			}
			if !errors.Is(res.ExifErr, exifdata.ErrNoExif) {
				t.Errorf("ExifErr: ожидалась ErrNoExif, получено %v", res.ExifErr)
			}

			for _, name := range model.ExifFields {
				if got := res.Record.Text(name); got != model.NotAvailable {
					t.Errorf("%s: ожидалось %q, получено %q", name, model.NotAvailable, got)
				}
			}

			for _, name := range []string{
				model.FieldChecksum, model.FieldFileName, model.FieldFileSize,
				model.FieldFileType, model.FieldMIMEType, model.FieldImageWidth,
				model.FieldImageHeight, model.FieldImageSize, model.FieldMegapixels,
			} {
				if got := res.Record.Text(name); got == model.NotAvailable || got == "" {
					t.Errorf("%s должно быть заполнено", name)
				}
			}
			if got := res.Record.Text(model.FieldImageSize); got != "32x16" {
				t.Errorf("Image Size: ожидалось 32x16, получено %q", got)
			}
		})
	}
}

// TestExtract_MIMEFromContent проверяет, что MIME-тип определяется по
// содержимому, а расширение берётся из имени файла.
func TestExtract_MIMEFromContent(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		data     []byte
		fileType string
		mime     string
		ext      string
	}{
		{"png под именем jpg", "disguised.jpg", testutil.PNG(t, testutil.Gradient(12, 12)), "PNG", "image/png", ".jpg"},
		{"apng", "anim.png", testutil.PNGWithChunk(testutil.PNG(t, testutil.Gradient(12, 12)), "acTL", make([]byte, 8)), "PNG", "image/vnd.mozilla.apng", ".png"},
		{"bmp", "scan.BMP", testutil.BMP(t, testutil.Gradient(12, 12)), "BMP", "image/bmp", ".bmp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := newExtractor(t).Extract(testutil.WriteFile(t, tt.file, tt.data))
			if err != nil {
				t.Fatalf("ошибка извлечения: %v", err)
			}
			if got := res.Record.Text(model.FieldFileType); got != tt.fileType {
				t.Errorf("File Type: ожидалось %s, получено %s", tt.fileType, got)
			}
			if got := res.Record.Text(model.FieldMIMEType); got != tt.mime {
				t.Errorf("MIME Type: ожидалось %s, получено %s", tt.mime, got)
			}
			if got := res.Record.Text(model.FieldFileExtension); got != tt.ext {
				t.Errorf("File Extension: ожидалось %s, получено %s", tt.ext, got)
			}
		})
	}
}

// TestExtract_ColorTypes проверяет Color Type и RGB для разных режимов.
func TestExtract_ColorTypes(t *testing.T) {
	tests := []struct {
		name      string
		file      string
		data      []byte
		colorType string
		rgb       string
		filter    string
	}{
		{"png rgba", "a.png", testutil.PNG(t, testutil.Translucent(8, 8)), "RGBA", "No", "Adaptive"},
		{"png gray", "g.png", testutil.PNG(t, testutil.Gray(8, 8)), "L", "No", "Adaptive"},
		{"gif", "p.gif", testutil.GIF(t, testutil.Paletted(8, 8)), "P", "No", model.NotAvailable},
		{"bmp", "c.bmp", testutil.BMP(t, testutil.Gradient(8, 8)), "RGB", "Yes", model.NotAvailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := newExtractor(t).Extract(testutil.WriteFile(t, tt.file, tt.data))
			if err != nil {
				t.Fatalf("ошибка извлечения: %v", err)
			}
			if got := res.Record.Text(model.FieldColorType); got != tt.colorType {
				t.Errorf("Color Type: ожидалось %q, получено %q", tt.colorType, got)
			}
			if got := res.Record.Text(model.FieldRGB); got != tt.rgb {
				t.Errorf("RGB: ожидалось %q, получено %q", tt.rgb, got)
			}
			if got := res.Record.Text(model.FieldFilter); got != tt.filter {
				t.Errorf("Filter: ожидалось %q, получено %q", tt.filter, got)
			}
		})
	}
}

// TestExtract_ChecksumDeterministic проверяет повторяемость контрольной суммы.
func TestExtract_ChecksumDeterministic(t *testing.T) {
	path := testutil.WriteFile(t, "same.png", testutil.PNG(t, testutil.Gradient(20, 20)))
	x := newExtractor(t)

	first, err := x.Extract(path)
	if err != nil {
		t.Fatalf("ошибка извлечения: %v", err)
	}
	second, err := x.Extract(path)
	if err != nil {
		t.Fatalf("ошибка извлечения: %v", err)
	}

	a := first.Record.Text(model.FieldChecksum)
	b := second.Record.Text(model.FieldChecksum)
	if a != b {
		t.Errorf("контрольные суммы различаются: %s != %s", a, b)
	}
	if len(a) != 32 {
		t.Errorf("ожидалась MD5-сумма из 32 символов, получено %q", a)
	}
}

// TestExtract_Fatal проверяет фатальные ошибки.
func TestExtract_Fatal(t *testing.T) {
	x := newExtractor(t)

	t.Run("нет файла", func(t *testing.T) {
		_, err := x.Extract(filepath.Join(t.TempDir(), "missing.jpg"))
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("ожидалась os.ErrNotExist, получено: %v", err)
		}
	})

	t.Run("не изображение", func(t *testing.T) {
		path := testutil.WriteFile(t, "notes.jpg", []byte("просто текст, а не JPEG"))
		res, err := x.Extract(path)
		if !errors.Is(err, imagefmt.ErrUnsupportedFormat) {
			t.Errorf("ожидалась ErrUnsupportedFormat, получено: %v", err)
		}
		if res != nil {
			t.Error("при фатальной ошибке запись не создаётся")
		}
	})

	t.Run("слишком большой", func(t *testing.T) {
		store, err := filestore.New(16, filestore.AlgorithmMD5)
		if err != nil {
			t.Fatalf("ошибка создания FileStore: %v", err)
		}
		path := testutil.WriteFile(t, "big.png", testutil.PNG(t, testutil.Gradient(8, 8)))
		if _, err := extractor.New(store).Extract(path); !errors.Is(err, filestore.ErrFileTooLarge) {
			t.Errorf("ожидалась ErrFileTooLarge, получено: %v", err)
		}
	})
}

// TestExtract_BadGPS проверяет, что ошибка GPS не затрагивает остальные поля.
func TestExtract_BadGPS(t *testing.T) {
	data := testutil.JPEGWithExif(testutil.JPEG(t, testutil.Gradient(8, 8)), testutil.ExifSpec{
		Model: "Pixel 7",
		GPS: &testutil.ExifGPS{
			LatRef: "N",
			Lat:    testutil.DMS{{Num: 1, Den: 0}, {Num: 0, Den: 1}, {Num: 0, Den: 1}},
			LonRef: "E",
			Lon:    testutil.DMSOf(1, 0, 0),
		},
	})

	res, err := newExtractor(t).Extract(testutil.WriteFile(t, "gps.jpg", data))
	if err != nil {
		t.Fatalf("ошибка извлечения: %v", err)
	}
	if res.Partial() {
		t.Errorf("EXIF прочитан, извлечение не частичное: %v", res.ExifErr)
	}
	if res.GPSErr == nil {
		t.Error("ожидалась GPSErr")
	}
	if got := res.Record.Text(model.FieldGPS); got != model.NotAvailable {
		t.Errorf("GPS: ожидалось %q, получено %q", model.NotAvailable, got)
	}
	if got := res.Record.Text(model.FieldCameraModel); got != "Pixel 7" {
		t.Errorf("Camera Model: ожидалось Pixel 7, получено %q", got)
	}
}
