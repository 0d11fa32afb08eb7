// Пакет model — доменные модели metafinder.
// Record — упорядоченная запись метаданных изображения: имя поля → значение.
// Порядок полей фиксирован и совпадает с порядком вывода в отчётах.
package model

import (
	"fmt"
	"math"
	"strconv"
)

// NotAvailable — значение-заглушка для отсутствующих данных.
const NotAvailable = "Not Available"

// CategoryImage — значение поля Category.
const CategoryImage = "Image"

// Имена полей записи.
const (
	FieldDateTime      = "Date and Time"
	FieldCameraModel   = "Camera Model"
	FieldDeviceName    = "Device Name"
	FieldSoftware      = "Software"
	FieldGPS           = "GPS Coordinates"
	FieldChecksum      = "Checksum"
	FieldFileName      = "File Name"
	FieldFileSize      = "File Size"
	FieldFileType      = "File Type"
	FieldFileExtension = "File Type Extension"
	FieldMIMEType      = "MIME Type"
	FieldImageWidth    = "Image Width"
	FieldImageHeight   = "Image Height"
	FieldBitDepth      = "Bit Depth"
	FieldColorType     = "Color Type"
	FieldRGB           = "RGB"
	FieldCompression   = "Compression"
	FieldFilter        = "Filter"
	FieldInterlace     = "Interlace"
	FieldImageSize     = "Image Size"
	FieldMegapixels    = "Megapixels"
	FieldCategory      = "Category"
)

// FieldOrder — порядок полей в записи.
var FieldOrder = []string{
	FieldDateTime,
	FieldCameraModel,
	FieldDeviceName,
	FieldSoftware,
	FieldGPS,
	FieldChecksum,
	FieldFileName,
	FieldFileSize,
	FieldFileType,
	FieldFileExtension,
	FieldMIMEType,
	FieldImageWidth,
	FieldImageHeight,
	FieldBitDepth,
	FieldColorType,
	FieldRGB,
	FieldCompression,
	FieldFilter,
	FieldInterlace,
	FieldImageSize,
	FieldMegapixels,
	FieldCategory,
}

// ExifFields — поля, источником которых является EXIF.
var ExifFields = []string{
	FieldDateTime,
	FieldCameraModel,
	FieldDeviceName,
	FieldSoftware,
	FieldGPS,
}

// GPS — координаты в десятичных градусах.
type GPS struct {
	Lat float64
	Lon float64
}

// String возвращает координаты в виде "(lat, lon)".
func (g GPS) String() string {
	return fmt.Sprintf("(%s, %s)", FormatFloat(g.Lat), FormatFloat(g.Lon))
}

// Field — одно поле записи.
type Field struct {
	Name  string
	Value any
}

// Record — упорядоченный набор полей. Нулевое значение готово к использованию.
type Record struct {
	fields []Field
	index  map[string]int
}

// NewRecord создаёт пустую запись.
func NewRecord() *Record {
	return &Record{index: make(map[string]int)}
}

// NewPlaceholderRecord создаёт запись, в которой все поля из FieldOrder
// заполнены значением NotAvailable. Последующие Set сохраняют порядок.
func NewPlaceholderRecord() *Record {
	r := &Record{
		fields: make([]Field, 0, len(FieldOrder)),
		index:  make(map[string]int, len(FieldOrder)),
	}
	for _, name := range FieldOrder {
		r.Set(name, NotAvailable)
	}
	return r
}

// Set устанавливает значение поля. Существующее поле сохраняет позицию,
// новое добавляется в конец.
func (r *Record) Set(name string, value any) {
	if r.index == nil {
		r.index = make(map[string]int)
	}
	if i, ok := r.index[name]; ok {
		r.fields[i].Value = value
		return
	}
	r.index[name] = len(r.fields)
	r.fields = append(r.fields, Field{Name: name, Value: value})
}

// Get возвращает значение поля.
func (r *Record) Get(name string) (any, bool) {
	i, ok := r.index[name]
	if !ok {
		return nil, false
	}
	return r.fields[i].Value, true
}

// Text возвращает текстовое представление значения поля
// или пустую строку, если поля нет.
func (r *Record) Text(name string) string {
	v, ok := r.Get(name)
	if !ok {
		return ""
	}
	return FormatValue(v)
}

// GPS возвращает координаты, если они присутствуют в записи.
func (r *Record) GPS() (GPS, bool) {
	v, ok := r.Get(FieldGPS)
	if !ok {
		return GPS{}, false
	}
	g, ok := v.(GPS)
	return g, ok
}

// Fields возвращает копию полей в порядке записи.
func (r *Record) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

// Names возвращает имена полей в порядке записи.
func (r *Record) Names() []string {
	out := make([]string, len(r.fields))
	for i, f := range r.fields {
		out[i] = f.Name
	}
	return out
}

// Len возвращает количество полей.
func (r *Record) Len() int {
	return len(r.fields)
}

// Missing возвращает поля из FieldOrder, которых нет в записи.
func (r *Record) Missing() []string {
	var missing []string
	for _, name := range FieldOrder {
		if _, ok := r.index[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// Megapixels вычисляет число мегапикселей, округлённое до двух знаков.
// Половина округляется к чётному: 0.125 → 0.12.
func Megapixels(width, height int) float64 {
	mp := float64(width) * float64(height) / 1e6
	return math.RoundToEven(mp*100) / 100
}

// FormatValue форматирует значение поля для текстового вывода.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return NotAvailable
	case string:
		return val
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return FormatFloat(val)
	case GPS:
		return val.String()
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// FormatFloat форматирует число с минимальным количеством знаков,
// достаточным для точного обратного разбора. Целые значения
// сохраняют дробную часть: 12 → "12.0".
func FormatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return s
	}
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			return s
		}
	}
	return s + ".0"
}
