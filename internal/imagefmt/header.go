package imagefmt

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// errShortHeader — заголовок файла обрезан.
var errShortHeader = errors.New("заголовок изображения обрезан")

// Header — параметры кодирования, прочитанные из заголовка файла.
// Стандартные декодеры их не возвращают.
type Header struct {
	// BitDepth — бит на канал (PNG, JPEG) или на пиксель (GIF, BMP); 0 если неизвестно
	BitDepth int
	// ColorType — цветовой режим (RGB, RGBA, L, LA, P, CMYK, I;16, 1)
	ColorType string
	// Compression — метод сжатия; пусто если неизвестно
	Compression string
	// Filter — метод фильтрации (только PNG); пусто если неприменимо
	Filter string
	// Interlaced — чересстрочная / прогрессивная развёртка
	Interlaced bool
}

// ReadHeader читает заголовок изображения известного формата.
func ReadHeader(data []byte, format Format) (Header, error) {
	switch format {
	case FormatPNG:
		return headerPNG(data)
	case FormatJPEG:
		return headerJPEG(data)
	case FormatGIF:
		return headerGIF(data)
	case FormatBMP:
		return headerBMP(data)
	default:
		return Header{}, fmt.Errorf("формат %q: %w", format, ErrUnsupportedFormat)
	}
}

// headerPNG разбирает чанк IHDR, который всегда идёт первым после сигнатуры.
func headerPNG(data []byte) (Header, error) {
	// сигнатура(8) + длина(4) + "IHDR"(4) + 13 байт данных
	if len(data) < 29 || string(data[12:16]) != "IHDR" {
		return Header{}, errShortHeader
	}

	bitDepth := int(data[24])
	colorType := data[25]
	compression := data[26]
	filter := data[27]
	interlace := data[28]

	h := Header{
		BitDepth:   bitDepth,
		Interlaced: interlace == 1,
	}

	switch colorType {
	case 0:
		switch bitDepth {
		case 1:
			h.ColorType = "1"
		case 16:
			h.ColorType = "I;16"
		default:
			h.ColorType = "L"
		}
	case 2:
		h.ColorType = "RGB"
	case 3:
		h.ColorType = "P"
	case 4:
		h.ColorType = "LA"
	case 6:
		h.ColorType = "RGBA"
	default:
		return Header{}, fmt.Errorf("неизвестный тип цвета PNG %d", colorType)
	}

	if compression == 0 {
		h.Compression = "Deflate"
	}
	if filter == 0 {
		h.Filter = "Adaptive"
	}

	return h, nil
}

// headerJPEG ищет первый маркер SOFn и читает точность и число компонентов.
func headerJPEG(data []byte) (Header, error) {
	segs, _, err := JPEGSegments(data)
	if err != nil {
		return Header{}, err
	}

	for _, seg := range segs {
		if !isSOF(seg.Marker) {
			continue
		}
		// P Yh Yl Xh Xl Nf
		if len(seg.Payload) < 6 {
			return Header{}, errShortHeader
		}
		h := Header{
			BitDepth:    int(seg.Payload[0]),
			Compression: "DCT",
			Interlaced:  seg.Marker == 0xC2 || seg.Marker == 0xC6 || seg.Marker == 0xCA || seg.Marker == 0xCE,
		}
		if seg.Marker == 0xC3 || seg.Marker == 0xC7 || seg.Marker == 0xCB || seg.Marker == 0xCF {
			h.Compression = "Lossless JPEG"
		}
		switch seg.Payload[5] {
		case 1:
			h.ColorType = "L"
		case 3:
			h.ColorType = "RGB"
		case 4:
			h.ColorType = "CMYK"
		default:
			return Header{}, fmt.Errorf("неподдерживаемое число компонентов JPEG %d", seg.Payload[5])
		}
		return h, nil
	}

	return Header{}, errors.New("маркер SOF не найден до начала данных")
}

// isSOF сообщает, является ли маркер началом кадра (SOF0-SOF15,
// кроме DHT, JPG и DAC).
func isSOF(marker byte) bool {
	if marker < 0xC0 || marker > 0xCF {
		return false
	}
	return marker != 0xC4 && marker != 0xC8 && marker != 0xCC
}

// headerGIF читает дескриптор логического экрана и первый дескриптор кадра.
func headerGIF(data []byte) (Header, error) {
	if len(data) < 13 || (string(data[:6]) != "GIF87a" && string(data[:6]) != "GIF89a") {
		return Header{}, errShortHeader
	}

	h := Header{
		ColorType:   "P",
		Compression: "LZW",
	}

	packed := data[10]
	pos := 13
	if packed&0x80 != 0 {
		h.BitDepth = int(packed&0x07) + 1
		pos += 3 * (1 << (int(packed&0x07) + 1))
	}

	for pos < len(data) {
		switch data[pos] {
		case 0x21:
			// расширение: метка + последовательность подблоков
			pos += 2
			for pos < len(data) && data[pos] != 0 {
				pos += int(data[pos]) + 1
			}
			pos++
		case 0x2C:
			// дескриптор кадра: left(2) top(2) w(2) h(2) packed(1)
			if pos+9 >= len(data) {
				return h, nil
			}
			imgPacked := data[pos+9]
			h.Interlaced = imgPacked&0x40 != 0
			if h.BitDepth == 0 && imgPacked&0x80 != 0 {
				h.BitDepth = int(imgPacked&0x07) + 1
			}
			return h, nil
		default:
			// трейлер или мусор: первый кадр не найден
			return h, nil
		}
	}

	return h, nil
}

// bmpCompression — имена методов сжатия BMP.
var bmpCompression = map[uint32]string{
	0: "None",
	1: "RLE8",
	2: "RLE4",
	3: "Bitfields",
	4: "JPEG",
	5: "PNG",
	6: "Alpha Bitfields",
}

// headerBMP читает заголовок DIB.
func headerBMP(data []byte) (Header, error) {
	if len(data) < 18 || string(data[:2]) != "BM" {
		return Header{}, errShortHeader
	}

	dibSize := binary.LittleEndian.Uint32(data[14:18])
	var bpp int
	compression := uint32(0)

	switch {
	case dibSize == 12:
		// BITMAPCOREHEADER: w(2) h(2) planes(2) bpp(2)
		if len(data) < 26 {
			return Header{}, errShortHeader
		}
		bpp = int(binary.LittleEndian.Uint16(data[24:26]))
	case dibSize >= 40:
		// BITMAPINFOHEADER и расширения: w(4) h(4) planes(2) bpp(2) compression(4)
		if len(data) < 34 {
			return Header{}, errShortHeader
		}
		bpp = int(binary.LittleEndian.Uint16(data[28:30]))
		compression = binary.LittleEndian.Uint32(data[30:34])
	default:
		return Header{}, fmt.Errorf("неизвестный размер заголовка DIB %d", dibSize)
	}

	h := Header{
		BitDepth:    bpp,
		Compression: bmpCompression[compression],
	}
	switch {
	case bpp <= 8:
		h.ColorType = "P"
	default:
		h.ColorType = "RGB"
	}

	return h, nil
}
