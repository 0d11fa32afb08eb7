package report

import (
	"github.com/bigkaa/metafinder/internal/domain/model"
)

// Diff — расхождения сохранённого отчёта с записью.
type Diff struct {
	// Missing — поля из model.FieldOrder, которых нет в отчёте
	Missing []string
	// Changed — поля, значения которых в отчёте другие
	Changed []string
}

// Empty сообщает, что отчёт совпадает с записью.
func (d Diff) Empty() bool {
	return len(d.Missing) == 0 && len(d.Changed) == 0
}

// Compare сверяет прочитанный отчёт с ожидаемой записью.
// Значения сравниваются в текстовом виде: JSON-отчёт и текстовый отчёт
// одной записи дают одинаковый результат.
func Compare(saved, expected *model.Record) Diff {
	d := Diff{Missing: saved.Missing()}
	for _, name := range expected.Names() {
		if _, ok := saved.Get(name); !ok {
			continue
		}
		if saved.Text(name) != expected.Text(name) {
			d.Changed = append(d.Changed, name)
		}
	}
	return d
}

// Verify читает отчёт по пути и сверяет его с записью в том виде,
// в котором Save её бы сохранил.
func (w *Writer) Verify(path string, rec *model.Record) (Diff, error) {
	saved, err := ReadFile(path)
	if err != nil {
		return Diff{}, err
	}
	return Compare(saved, Render(rec, w.mapURL)), nil
}
