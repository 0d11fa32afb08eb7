package testutil

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"hash/crc32"
	"testing"
)

// xmpNamespace — заголовок APP1-сегмента с XMP.
const xmpNamespace = "http://ns.adobe.com/xap/1.0/\x00"

// JPEGWithSegment вставляет сегмент с маркером 0xFF<marker> сразу после SOI.
// Повторные вызовы ставят новый сегмент перед ранее вставленными.
func JPEGWithSegment(jpegData []byte, marker byte, payload []byte) []byte {
	var out bytes.Buffer
	out.Write(jpegData[:2])
	out.Write([]byte{0xFF, marker})
	binary.Write(&out, binary.BigEndian, uint16(len(payload)+2))
	out.Write(payload)
	out.Write(jpegData[2:])
	return out.Bytes()
}

// JPEGWithXMP вставляет APP1-сегмент с XMP-пакетом сразу после SOI.
func JPEGWithXMP(jpegData []byte, xmp string) []byte {
	return JPEGWithSegment(jpegData, 0xE1, []byte(xmpNamespace+xmp))
}

// PNGWithChunk вставляет чанк сразу после IHDR.
func PNGWithChunk(pngData []byte, typ string, payload []byte) []byte {
	// сигнатура(8) + IHDR: длина(4) + тип(4) + данные(13) + CRC(4)
	const ihdrEnd = 8 + 4 + 4 + 13 + 4

	var out bytes.Buffer
	out.Write(pngData[:ihdrEnd])
	writeChunk(&out, typ, payload)
	out.Write(pngData[ihdrEnd:])
	return out.Bytes()
}

// RawPNG собирает PNG с заданными типом цвета и глубиной напрямую из
// чанков. image/png не позволяет выбрать их при кодировании: непрозрачный
// RGBA он пишет как RGB, а LA и 1-битный серый не пишет вовсе.
// Все отсчёты равны максимальному значению, альфа непрозрачная.
// Палитровый тип 3 не поддерживается.
func RawPNG(t *testing.T, w, h int, colorType, bitDepth byte) []byte {
	t.Helper()

	channels := map[byte]int{0: 1, 2: 3, 4: 2, 6: 4}[colorType]
	if channels == 0 {
		t.Fatalf("RawPNG: неподдерживаемый тип цвета %d", colorType)
	}
	stride := (w*channels*int(bitDepth) + 7) / 8

	var raw bytes.Buffer
	row := bytes.Repeat([]byte{0xFF}, stride)
	for y := 0; y < h; y++ {
		raw.WriteByte(0) // фильтр None
		raw.Write(row)
	}

	var idat bytes.Buffer
	zw := zlib.NewWriter(&idat)
	if _, err := zw.Write(raw.Bytes()); err != nil {
		t.Fatalf("RawPNG: ошибка сжатия: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("RawPNG: ошибка сжатия: %v", err)
	}

	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], uint32(w))
	binary.BigEndian.PutUint32(ihdr[4:8], uint32(h))
	ihdr[8] = bitDepth
	ihdr[9] = colorType

	var out bytes.Buffer
	out.WriteString("\x89PNG\r\n\x1a\n")
	writeChunk(&out, "IHDR", ihdr)
	writeChunk(&out, "IDAT", idat.Bytes())
	writeChunk(&out, "IEND", nil)
	return out.Bytes()
}

func writeChunk(out *bytes.Buffer, typ string, payload []byte) {
	binary.Write(out, binary.BigEndian, uint32(len(payload)))
	typed := append([]byte(typ), payload...)
	out.Write(typed)
	binary.Write(out, binary.BigEndian, crc32.ChecksumIEEE(typed))
}
