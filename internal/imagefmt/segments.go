package imagefmt

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// pngSignature — первые 8 байт любого PNG.
const pngSignature = "\x89PNG\r\n\x1a\n"

// Маркеры JPEG.
const (
	markerSOI  = 0xD8
	markerEOI  = 0xD9
	markerSOS  = 0xDA
	markerAPP1 = 0xE1
	// APP13 — Photoshop IRB и IPTC
	markerAPP13 = 0xED
	markerCOM   = 0xFE
)

// pngMetadataChunks — чанки PNG, которые не влияют на пиксели.
var pngMetadataChunks = map[string]bool{
	"eXIf": true,
	"tEXt": true,
	"iTXt": true,
	"zTXt": true,
	"tIME": true,
}

// JPEGSegment — сегмент JPEG между SOI и началом сканирования.
type JPEGSegment struct {
	// Marker — второй байт маркера, например 0xE1 для APP1
	Marker byte
	// Start, End — границы сегмента в файле вместе с маркером
	Start int
	End   int
	// Payload — данные после поля длины; nil у маркеров без длины
	Payload []byte
}

// JPEGSegments разбирает сегменты JPEG от SOI до первого SOS или EOI.
// Возвращает сегменты и смещение маркера, на котором разбор остановился:
// дальше идут сжатые данные, которые копируются как есть.
func JPEGSegments(data []byte) ([]JPEGSegment, int, error) {
	if len(data) < 4 || data[0] != 0xFF || data[1] != markerSOI {
		return nil, 0, errShortHeader
	}

	var segs []JPEGSegment
	pos := 2
	for pos+2 <= len(data) {
		if data[pos] != 0xFF {
			return segs, 0, fmt.Errorf("некорректный маркер JPEG по смещению %d", pos)
		}
		marker := data[pos+1]

		switch {
		case marker == 0xFF:
			// заполняющий байт
			pos++
			continue
		case marker == markerSOS || marker == markerEOI:
			return segs, pos, nil
		case marker == 0x01 || (marker >= 0xD0 && marker <= 0xD7):
			// TEM и RSTn не имеют длины
			segs = append(segs, JPEGSegment{Marker: marker, Start: pos, End: pos + 2})
			pos += 2
			continue
		}

		if pos+4 > len(data) {
			return segs, 0, errShortHeader
		}
		length := int(binary.BigEndian.Uint16(data[pos+2 : pos+4]))
		end := pos + 2 + length
		if length < 2 || end > len(data) {
			return segs, 0, fmt.Errorf("сегмент 0x%02X по смещению %d обрезан", marker, pos)
		}
		segs = append(segs, JPEGSegment{
			Marker:  marker,
			Start:   pos,
			End:     end,
			Payload: data[pos+4 : end],
		})
		pos = end
	}

	return segs, 0, errShortHeader
}

// PNGChunk — чанк PNG.
type PNGChunk struct {
	Type string
	// Start, End — границы чанка вместе с длиной и CRC
	Start int
	End   int
	Data  []byte
}

// PNGChunks разбирает чанки PNG до IEND включительно.
// При ошибке возвращает чанки, разобранные до повреждённого места.
func PNGChunks(data []byte) ([]PNGChunk, error) {
	if !bytes.HasPrefix(data, []byte(pngSignature)) {
		return nil, errShortHeader
	}

	var chunks []PNGChunk
	pos := len(pngSignature)
	for pos+8 <= len(data) {
		length := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		start := pos + 8
		end := start + length + 4
		if length < 0 || end > len(data) {
			return chunks, fmt.Errorf("чанк по смещению %d обрезан", pos)
		}

		chunk := PNGChunk{
			Type:  string(data[pos+4 : pos+8]),
			Start: pos,
			End:   end,
			Data:  data[start : start+length],
		}
		chunks = append(chunks, chunk)
		if chunk.Type == "IEND" {
			return chunks, nil
		}
		pos = end
	}

	return chunks, errShortHeader
}

// isJPEGMetadata сообщает, относится ли сегмент к метаданным:
// APP1 (EXIF, XMP), APP13 (IPTC) и комментарии.
func isJPEGMetadata(marker byte) bool {
	return marker == markerAPP1 || marker == markerAPP13 || marker == markerCOM
}

// StripMetadata удаляет из JPEG или PNG сегменты с метаданными.
// Остальные байты, включая сжатые пиксельные данные, копируются без
// изменений, поэтому размеры, режим и глубина цвета сохраняются.
func StripMetadata(data []byte, format Format) ([]byte, error) {
	switch format {
	case FormatJPEG:
		segs, scan, err := JPEGSegments(data)
		if err != nil {
			return nil, fmt.Errorf("разбор JPEG: %v: %w", err, ErrUnsupportedFormat)
		}
		out := make([]byte, 0, len(data))
		out = append(out, data[:2]...)
		for _, seg := range segs {
			if isJPEGMetadata(seg.Marker) {
				continue
			}
			out = append(out, data[seg.Start:seg.End]...)
		}
		return append(out, data[scan:]...), nil

	case FormatPNG:
		chunks, err := PNGChunks(data)
		if err != nil {
			return nil, fmt.Errorf("разбор PNG: %v: %w", err, ErrUnsupportedFormat)
		}
		out := make([]byte, 0, len(data))
		out = append(out, pngSignature...)
		for _, c := range chunks {
			if pngMetadataChunks[c.Type] {
				continue
			}
			out = append(out, data[c.Start:c.End]...)
		}
		return out, nil

	default:
		return nil, fmt.Errorf("удаление сегментов %q: %w", format, ErrUnsupportedFormat)
	}
}
