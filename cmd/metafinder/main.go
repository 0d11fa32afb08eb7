// Точка входа metafinder — утилиты просмотра и удаления метаданных изображений.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/bigkaa/metafinder/internal/config"
	"github.com/bigkaa/metafinder/internal/metrics"
	"github.com/bigkaa/metafinder/internal/service"
	"github.com/bigkaa/metafinder/internal/storage/report"
)

// Коды завершения.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

const usage = `Использование: metafinder <команда> [аргументы]

Команды:
  check [-json] <image>               вывести метаданные изображения
  save <image> <output>               сохранить метаданные (.json или текст)
  verify <image> <report>             сверить сохранённый отчёт с изображением
  strip <image>                       записать копию без метаданных
  preview [-size N] <image> [output]  записать PNG-превью
  shell [image]                       интерактивный режим
  version                             версия программы
`

var (
	// errUsage — некорректные аргументы командной строки.
	errUsage = errors.New("некорректные аргументы")
	// errReportMismatch — отчёт не совпадает с метаданными изображения.
	errReportMismatch = errors.New("отчёт расходится с метаданными изображения")
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// app — окружение выполнения команды.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	metrics  *metrics.Metrics
	services *service.Services
	stdin    io.Reader
	stdout   io.Writer
	stderr   io.Writer
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return exitUsage
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "version":
		fmt.Fprintf(stdout, "metafinder %s\n", config.Version)
		return exitOK
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return exitOK
	}

	// Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "Ошибка конфигурации: %v\n", err)
		return exitError
	}

	// Логи пишутся в stderr, stdout остаётся для вывода записи
	logger := config.SetupLogger(cfg, stderr)
	logger.Debug("metafinder запускается",
		slog.String("version", config.Version),
		slog.String("command", cmd),
		slog.String("checksum", cfg.ChecksumAlgorithm),
	)

	m := metrics.New()
	services, err := service.New(cfg, m, logger)
	if err != nil {
		logger.Error("Ошибка инициализации сервисов", slog.String("error", err.Error()))
		return exitError
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		metrics:  m,
		services: services,
		stdin:    stdin,
		stdout:   stdout,
		stderr:   stderr,
	}
	defer a.flushMetrics()

	switch cmd {
	case "check":
		err = a.check(rest)
	case "save":
		err = a.save(rest)
	case "verify":
		err = a.verify(rest)
	case "strip":
		err = a.strip(rest)
	case "preview":
		err = a.preview(rest)
	case "shell":
		err = a.shell(rest)
	default:
		fmt.Fprintf(stderr, "Неизвестная команда: %s\n\n%s", cmd, usage)
		return exitUsage
	}

	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errUsage):
		return exitUsage
	default:
		fmt.Fprintf(stderr, "Ошибка: %v\n", err)
		return exitError
	}
}

// flushMetrics записывает textfile с метриками, если задан MF_METRICS_FILE.
func (a *app) flushMetrics() {
	if a.cfg.MetricsFile == "" {
		return
	}
	if err := a.metrics.WriteTextfile(a.cfg.MetricsFile); err != nil {
		a.logger.Error("Ошибка записи метрик", slog.String("error", err.Error()))
	}
}

func (a *app) newFlagSet(name, args string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	fs.Usage = func() {
		fmt.Fprintf(a.stderr, "Использование: metafinder %s %s\n", name, args)
		fs.PrintDefaults()
	}
	return fs
}

// parseFlags разбирает флаги команды. Сообщение об ошибке и справку
// flag уже вывел в stderr.
func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	return nil
}

// usageError печатает справку по команде и возвращает errUsage.
func usageError(fs *flag.FlagSet) error {
	fs.Usage()
	return errUsage
}

func (a *app) check(args []string) error {
	fs := a.newFlagSet("check", "[-json] <image>")
	asJSON := fs.Bool("json", false, "вывести запись в формате JSON")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usageError(fs)
	}

	res, err := a.services.Extract.Extract(fs.Arg(0))
	if err != nil {
		return err
	}

	format := report.FormatText
	if *asJSON {
		format = report.FormatJSON
	}
	return report.Encode(a.stdout, report.Render(res.Record, a.cfg.MapURL), format)
}

func (a *app) save(args []string) error {
	fs := a.newFlagSet("save", "<image> <output>")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return usageError(fs)
	}

	res, err := a.services.Extract.Extract(fs.Arg(0))
	if err != nil {
		return err
	}
	if _, err := a.services.Report.Save(res.Record, fs.Arg(1)); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Metadata saved to %s\n", fs.Arg(1))
	return nil
}

func (a *app) verify(args []string) error {
	fs := a.newFlagSet("verify", "<image> <report>")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return usageError(fs)
	}

	res, err := a.services.Extract.Extract(fs.Arg(0))
	if err != nil {
		return err
	}
	diff, err := a.services.Report.Verify(res.Record, fs.Arg(1))
	if err != nil {
		return err
	}
	printDiff(a.stdout, diff)
	if !diff.Empty() {
		return errReportMismatch
	}
	return nil
}

// printDiff выводит результат сверки отчёта.
func printDiff(w io.Writer, d report.Diff) {
	if d.Empty() {
		fmt.Fprintln(w, "Report matches metadata")
		return
	}
	if len(d.Missing) > 0 {
		fmt.Fprintf(w, "Missing fields: %s\n", strings.Join(d.Missing, ", "))
	}
	if len(d.Changed) > 0 {
		fmt.Fprintf(w, "Changed fields: %s\n", strings.Join(d.Changed, ", "))
	}
}

func (a *app) strip(args []string) error {
	fs := a.newFlagSet("strip", "<image>")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usageError(fs)
	}

	res, err := a.services.Strip.Strip(fs.Arg(0))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Metadata removed. Saved as %s\n", res.Output)
	return nil
}

func (a *app) preview(args []string) error {
	fs := a.newFlagSet("preview", "[-size N] <image> [output]")
	size := fs.Int("size", a.cfg.PreviewSize, "сторона превью в пикселях")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() < 1 || fs.NArg() > 2 || *size <= 0 {
		return usageError(fs)
	}

	out, err := a.services.Preview.Preview(fs.Arg(0), fs.Arg(1), *size)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Preview saved to %s\n", out)
	return nil
}

func (a *app) shell(args []string) error {
	fs := a.newFlagSet("shell", "[image]")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() > 1 {
		return usageError(fs)
	}

	session := service.NewSession(a.services)
	if fs.NArg() == 1 {
		if err := session.Load(fs.Arg(0)); err != nil {
			return err
		}
	}

	sh := &shell{
		session: session,
		mapURL:  a.cfg.MapURL,
		out:     a.stdout,
		logger:  a.logger,
	}
	return sh.run(a.stdin)
}
