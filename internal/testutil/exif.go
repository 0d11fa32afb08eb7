package testutil

import (
	"bytes"
	"encoding/binary"
)

// Rational — рациональное число EXIF (числитель/знаменатель).
type Rational struct {
	Num uint32
	Den uint32
}

// DMS — координата в виде градусов, минут и секунд.
type DMS [3]Rational

// ExifGPS — GPS-теги для тестового EXIF.
type ExifGPS struct {
	LatRef string
	Lat    DMS
	LonRef string
	Lon    DMS
	// OmitRefs — не записывать теги LatitudeRef/LongitudeRef
	OmitRefs bool
}

// ExifSpec — содержимое тестового EXIF-блока. Пустые строки не записываются.
type ExifSpec struct {
	Make             string
	Model            string
	Software         string
	DateTimeOriginal string
	GPS              *ExifGPS
}

// Типы тегов TIFF.
const (
	tiffASCII    = 2
	tiffLong     = 4
	tiffRational = 5
)

type ifdEntry struct {
	tag   uint16
	typ   uint16
	count uint32
	data  []byte
}

func asciiEntry(tag uint16, s string) ifdEntry {
	data := append([]byte(s), 0)
	return ifdEntry{tag: tag, typ: tiffASCII, count: uint32(len(data)), data: data}
}

func dmsEntry(tag uint16, v DMS) ifdEntry {
	data := make([]byte, 0, 24)
	for _, r := range v {
		data = binary.LittleEndian.AppendUint32(data, r.Num)
		data = binary.LittleEndian.AppendUint32(data, r.Den)
	}
	return ifdEntry{tag: tag, typ: tiffRational, count: 3, data: data}
}

func ifdSize(entries []ifdEntry) uint32 {
	return uint32(2 + 12*len(entries) + 4)
}

// TIFF формирует little-endian TIFF-структуру с IFD0, Exif IFD и GPS IFD.
func TIFF(spec ExifSpec) []byte {
	var ifd0, exifIFD, gpsIFD []ifdEntry

	if spec.Make != "" {
		ifd0 = append(ifd0, asciiEntry(0x010F, spec.Make))
	}
	if spec.Model != "" {
		ifd0 = append(ifd0, asciiEntry(0x0110, spec.Model))
	}
	if spec.Software != "" {
		ifd0 = append(ifd0, asciiEntry(0x0131, spec.Software))
	}
	if spec.DateTimeOriginal != "" {
		exifIFD = append(exifIFD, asciiEntry(0x9003, spec.DateTimeOriginal))
	}
	if g := spec.GPS; g != nil {
		if !g.OmitRefs {
			gpsIFD = append(gpsIFD, asciiEntry(0x0001, g.LatRef))
		}
		gpsIFD = append(gpsIFD, dmsEntry(0x0002, g.Lat))
		if !g.OmitRefs {
			gpsIFD = append(gpsIFD, asciiEntry(0x0003, g.LonRef))
		}
		gpsIFD = append(gpsIFD, dmsEntry(0x0004, g.Lon))
	}

	// Указатели на вложенные IFD; значения заполняются после расчёта смещений
	exifPtr, gpsPtr := -1, -1
	if len(exifIFD) > 0 {
		exifPtr = len(ifd0)
		ifd0 = append(ifd0, ifdEntry{tag: 0x8769, typ: tiffLong, count: 1, data: make([]byte, 4)})
	}
	if len(gpsIFD) > 0 {
		gpsPtr = len(ifd0)
		ifd0 = append(ifd0, ifdEntry{tag: 0x8825, typ: tiffLong, count: 1, data: make([]byte, 4)})
	}

	ifd0Off := uint32(8)
	next := ifd0Off + ifdSize(ifd0)
	exifOff, gpsOff := uint32(0), uint32(0)
	if len(exifIFD) > 0 {
		exifOff = next
		next += ifdSize(exifIFD)
	}
	if len(gpsIFD) > 0 {
		gpsOff = next
		next += ifdSize(gpsIFD)
	}
	if exifPtr >= 0 {
		binary.LittleEndian.PutUint32(ifd0[exifPtr].data, exifOff)
	}
	if gpsPtr >= 0 {
		binary.LittleEndian.PutUint32(ifd0[gpsPtr].data, gpsOff)
	}

	dataStart := next
	var out, dataArea bytes.Buffer
	out.WriteString("II")
	binary.Write(&out, binary.LittleEndian, uint16(42))
	binary.Write(&out, binary.LittleEndian, ifd0Off)

	writeIFD := func(entries []ifdEntry) {
		binary.Write(&out, binary.LittleEndian, uint16(len(entries)))
		for _, e := range entries {
			binary.Write(&out, binary.LittleEndian, e.tag)
			binary.Write(&out, binary.LittleEndian, e.typ)
			binary.Write(&out, binary.LittleEndian, e.count)
			if len(e.data) <= 4 {
				val := make([]byte, 4)
				copy(val, e.data)
				out.Write(val)
				continue
			}
			binary.Write(&out, binary.LittleEndian, dataStart+uint32(dataArea.Len()))
			dataArea.Write(e.data)
			if dataArea.Len()%2 == 1 {
				dataArea.WriteByte(0)
			}
		}
		// следующий IFD отсутствует
		binary.Write(&out, binary.LittleEndian, uint32(0))
	}

	writeIFD(ifd0)
	if len(exifIFD) > 0 {
		writeIFD(exifIFD)
	}
	if len(gpsIFD) > 0 {
		writeIFD(gpsIFD)
	}

	out.Write(dataArea.Bytes())
	return out.Bytes()
}

// JPEGWithExif вставляет сегмент APP1 с EXIF сразу после маркера SOI.
func JPEGWithExif(jpegData []byte, spec ExifSpec) []byte {
	return JPEGWithSegment(jpegData, 0xE1, append([]byte("Exif\x00\x00"), TIFF(spec)...))
}

// PNGWithExif вставляет чанк eXIf сразу после IHDR.
func PNGWithExif(pngData []byte, spec ExifSpec) []byte {
	return PNGWithChunk(pngData, "eXIf", TIFF(spec))
}

// DMSOf раскладывает градусы, минуты и секунды в рациональные числа.
// Секунды задаются в сотых долях.
func DMSOf(deg, min, secHundredths uint32) DMS {
	return DMS{
		{Num: deg, Den: 1},
		{Num: min, Den: 1},
		{Num: secHundredths, Den: 100},
	}
}
