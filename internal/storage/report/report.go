// Пакет report — сохранение записи метаданных в файл отчёта.
// Путь с расширением .json получает JSON-объект с полями в порядке записи,
// любой другой путь получает строки "Field: Value".
// GPS-координаты в обоих форматах записываются ссылкой на карту.
// Запись выполняется атомарно через filestore: temp → fsync → rename.
package report

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bigkaa/metafinder/internal/domain/model"
	"github.com/bigkaa/metafinder/internal/storage/filestore"
)

// Format — формат файла отчёта.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// jsonIndent — отступ JSON-отчёта.
const jsonIndent = "    "

// FormatForPath определяет формат отчёта по расширению пути.
func FormatForPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatText
}

// Render возвращает копию записи, в которой GPS-координаты заменены
// ссылкой на карту.
func Render(rec *model.Record, mapURL string) *model.Record {
	out := model.NewRecord()
	for _, f := range rec.Fields() {
		if g, ok := f.Value.(model.GPS); ok {
			out.Set(f.Name, model.MapURL(mapURL, g))
			continue
		}
		out.Set(f.Name, f.Value)
	}
	return out
}

// Encode записывает запись в выбранном формате.
func Encode(w io.Writer, rec *model.Record, format Format) error {
	if format == FormatJSON {
		return EncodeJSON(w, rec)
	}
	return EncodeText(w, rec)
}

// textEscaper экранирует переводы строк, чтобы значение заняло одну строку.
var textEscaper = strings.NewReplacer(`\`, `\\`, "\n", `\n`, "\r", `\r`)

// EncodeText записывает строки "Field: Value". Переводы строк и обратная
// косая черта в значениях экранируются: "\n", "\r", "\\".
func EncodeText(w io.Writer, rec *model.Record) error {
	bw := bufio.NewWriter(w)
	for _, f := range rec.Fields() {
		if _, err := fmt.Fprintf(bw, "%s: %s\n", f.Name, textEscaper.Replace(model.FormatValue(f.Value))); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// EncodeJSON записывает JSON-объект с полями в порядке записи.
// encoding/json сортирует ключи map, поэтому объект собирается вручную.
func EncodeJSON(w io.Writer, rec *model.Record) error {
	var buf bytes.Buffer
	fields := rec.Fields()
	if len(fields) == 0 {
		buf.WriteString("{}\n")
		_, err := w.Write(buf.Bytes())
		return err
	}

	buf.WriteString("{\n")
	for i, f := range fields {
		key, err := marshalString(f.Name)
		if err != nil {
			return err
		}
		value, err := marshalValue(f.Value)
		if err != nil {
			return fmt.Errorf("поле %q: %w", f.Name, err)
		}

		buf.WriteString(jsonIndent)
		buf.Write(key)
		buf.WriteString(": ")
		buf.Write(value)
		if i < len(fields)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteString("}\n")

	_, err := w.Write(buf.Bytes())
	return err
}

// marshalString кодирует строку в JSON без экранирования HTML-символов,
// чтобы ссылки на карту оставались читаемыми.
func marshalString(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func marshalValue(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return []byte("null"), nil
	case string:
		return marshalString(val)
	case int:
		return []byte(strconv.Itoa(val)), nil
	case int64:
		return []byte(strconv.FormatInt(val, 10)), nil
	case float64:
		s := model.FormatFloat(val)
		if !json.Valid([]byte(s)) {
			// NaN и Inf в JSON не представимы
			return marshalString(s)
		}
		return []byte(s), nil
	case model.GPS:
		return []byte("[" + model.FormatFloat(val.Lat) + ", " + model.FormatFloat(val.Lon) + "]"), nil
	default:
		return marshalString(model.FormatValue(val))
	}
}

// Writer сохраняет отчёты на диск.
type Writer struct {
	store  *filestore.FileStore
	mapURL string
}

// NewWriter создаёт Writer. mapURL — базовый адрес ссылки на координаты.
func NewWriter(store *filestore.FileStore, mapURL string) *Writer {
	return &Writer{store: store, mapURL: mapURL}
}

// Save атомарно записывает отчёт по пути. Формат определяется расширением.
// При ошибке файл по пути не создаётся и не изменяется.
func (w *Writer) Save(path string, rec *model.Record) (Format, error) {
	format := FormatForPath(path)
	rendered := Render(rec, w.mapURL)

	err := w.store.WriteFile(path, func(out io.Writer) error {
		return Encode(out, rendered, format)
	})
	if err != nil {
		return format, fmt.Errorf("ошибка сохранения отчёта %s: %w", path, err)
	}
	return format, nil
}

// ReadFile читает отчёт, определяя формат по расширению.
func ReadFile(path string) (*model.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения отчёта %s: %w", path, err)
	}
	defer f.Close()

	if FormatForPath(path) == FormatJSON {
		return ReadJSON(f)
	}
	return ReadText(f)
}

// ReadJSON разбирает JSON-отчёт с сохранением порядка полей.
// Целые числа возвращаются как int64, дробные как float64,
// массив из двух чисел как model.GPS.
func ReadJSON(r io.Reader) (*model.Record, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	rec := model.NewRecord()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("ошибка разбора JSON: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("ожидался ключ, получено %v", tok)
		}

		value, err := readValue(dec)
		if err != nil {
			return nil, fmt.Errorf("поле %q: %w", key, err)
		}
		rec.Set(key, value)
	}

	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	return rec, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("ошибка разбора JSON: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("ожидался %q, получено %v", want, tok)
	}
	return nil
}

func readValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch val := tok.(type) {
	case nil:
		return nil, nil
	case string:
		return val, nil
	case bool:
		return val, nil
	case json.Number:
		return parseNumber(val)
	case json.Delim:
		if val != '[' {
			return nil, fmt.Errorf("неожиданный разделитель %q", val)
		}
		return readGPS(dec)
	default:
		return nil, fmt.Errorf("неожиданное значение %v", tok)
	}
}

func parseNumber(n json.Number) (any, error) {
	if strings.ContainsAny(n.String(), ".eE") {
		return n.Float64()
	}
	return n.Int64()
}

func readGPS(dec *json.Decoder) (model.GPS, error) {
	var coords []float64
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return model.GPS{}, err
		}
		n, ok := tok.(json.Number)
		if !ok {
			return model.GPS{}, fmt.Errorf("ожидалось число, получено %v", tok)
		}
		f, err := n.Float64()
		if err != nil {
			return model.GPS{}, err
		}
		coords = append(coords, f)
	}
	if err := expectDelim(dec, ']'); err != nil {
		return model.GPS{}, err
	}
	if len(coords) != 2 {
		return model.GPS{}, fmt.Errorf("ожидалось 2 координаты, получено %d", len(coords))
	}
	return model.GPS{Lat: coords[0], Lon: coords[1]}, nil
}

// ErrMalformedLine — строка текстового отчёта не в формате "Field: Value".
var ErrMalformedLine = errors.New("некорректная строка отчёта")

// ReadText разбирает текстовый отчёт. Все значения возвращаются строками.
func ReadText(r io.Reader) (*model.Record, error) {
	rec := model.NewRecord()
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" {
			continue
		}
		name, value, ok := strings.Cut(line, ": ")
		if !ok {
			return nil, fmt.Errorf("строка %d: %w", lineNo, ErrMalformedLine)
		}
		rec.Set(name, unescapeText(value))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения отчёта: %w", err)
	}
	return rec, nil
}

// unescapeText восстанавливает значение, экранированное EncodeText.
// Неизвестные последовательности остаются как есть.
func unescapeText(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			b.WriteByte(s[i])
			continue
		}
		switch s[i+1] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case '\\':
			b.WriteByte('\\')
		default:
			b.WriteByte(s[i])
			continue
		}
		i++
	}
	return b.String()
}
