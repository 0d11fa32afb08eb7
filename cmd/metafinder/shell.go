package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/bigkaa/metafinder/internal/service"
	"github.com/bigkaa/metafinder/internal/storage/report"
)

const shellHelp = `Команды:
  load <image>            загрузить изображение
  check                   извлечь и показать метаданные
  show                    показать последние извлечённые метаданные
  remove                  записать копию без метаданных
  save <output>           сохранить метаданные (.json или текст)
  verify <report>         сверить сохранённый отчёт с метаданными
  preview [output] [N]    записать PNG-превью
  help                    эта справка
  quit                    выход
`

// shell — интерактивный цикл поверх service.Session.
type shell struct {
	session *service.Session
	mapURL  string
	out     io.Writer
	logger  *slog.Logger
}

// run читает команды построчно до quit или конца ввода.
func (sh *shell) run(in io.Reader) error {
	scanner := bufio.NewScanner(in)
	sh.prompt()
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			sh.prompt()
			continue
		}

		cmd, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)
		if cmd == "quit" || cmd == "exit" {
			return nil
		}

		if err := sh.exec(cmd, arg); err != nil {
			sh.report(err)
		}
		sh.prompt()
	}
	return scanner.Err()
}

func (sh *shell) prompt() {
	fmt.Fprint(sh.out, "metafinder> ")
}

// report выводит ошибку команды. Ошибки сессии выводятся как предупреждения.
func (sh *shell) report(err error) {
	if errors.Is(err, service.ErrNoImage) || errors.Is(err, service.ErrNoMetadata) {
		fmt.Fprintf(sh.out, "Warning: %v\n", err)
		return
	}
	fmt.Fprintf(sh.out, "Error: %v\n", err)
}

func (sh *shell) exec(cmd, arg string) error {
	switch cmd {
	case "load":
		if arg == "" {
			return errors.New("укажите путь к изображению: load <image>")
		}
		if err := sh.session.Load(arg); err != nil {
			return err
		}
		fmt.Fprintf(sh.out, "Loaded %s\n", arg)
		return nil

	case "check":
		res, err := sh.session.Check()
		if err != nil {
			return err
		}
		if res.Partial() {
			fmt.Fprintf(sh.out, "EXIF data: %s\n", res.ExifErr)
		}
		return sh.printCurrent()

	case "show":
		return sh.printCurrent()

	case "remove":
		res, err := sh.session.Remove()
		if err != nil {
			return err
		}
		fmt.Fprintf(sh.out, "Metadata removed. Saved as %s\n", res.Output)
		return nil

	case "save":
		if arg == "" {
			return errors.New("укажите путь отчёта: save <output>")
		}
		if _, err := sh.session.Save(arg); err != nil {
			return err
		}
		fmt.Fprintf(sh.out, "Metadata saved to %s\n", arg)
		return nil

	case "verify":
		if arg == "" {
			return errors.New("укажите путь отчёта: verify <report>")
		}
		diff, err := sh.session.Verify(arg)
		if err != nil {
			return err
		}
		printDiff(sh.out, diff)
		return nil

	case "preview":
		output, size, err := parsePreviewArgs(arg)
		if err != nil {
			return err
		}
		path, err := sh.session.Preview(output, size)
		if err != nil {
			return err
		}
		fmt.Fprintf(sh.out, "Preview saved to %s\n", path)
		return nil

	case "help":
		fmt.Fprint(sh.out, shellHelp)
		return nil

	default:
		sh.logger.Debug("Неизвестная команда shell", slog.String("command", cmd))
		return fmt.Errorf("неизвестная команда %q, введите help", cmd)
	}
}

func (sh *shell) printCurrent() error {
	res := sh.session.Current()
	if res == nil {
		return service.ErrNoMetadata
	}
	return report.EncodeText(sh.out, report.Render(res.Record, sh.mapURL))
}

// parsePreviewArgs разбирает "[output] [N]". Размер 0 — значение по умолчанию.
func parsePreviewArgs(arg string) (string, int, error) {
	fields := strings.Fields(arg)
	switch len(fields) {
	case 0:
		return "", 0, nil
	case 1:
		if n, err := strconv.Atoi(fields[0]); err == nil {
			if n <= 0 {
				return "", 0, fmt.Errorf("некорректный размер превью: %d", n)
			}
			return "", n, nil
		}
		return fields[0], 0, nil
	case 2:
		n, err := strconv.Atoi(fields[1])
		if err != nil || n <= 0 {
			return "", 0, fmt.Errorf("некорректный размер превью: %q", fields[1])
		}
		return fields[0], n, nil
	default:
		return "", 0, errors.New("использование: preview [output] [N]")
	}
}
