package main

import (
	"BF4Report/internal/config"
	"BF4Report/internal/logging"
	"BF4Report/internal/report"
	"BF4Report/internal/scraper"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type options struct {
	output  string
	timeout time.Duration
	envFile string
}

func newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:           "scraper [url]",
		Short:         "Выгрузка отчётов игрока с bf4cheatreport.com в CSV",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var envFiles []string
			if opts.envFile != "" {
				envFiles = []string{opts.envFile}
			}
			cfg, err := config.Load(envFiles...)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("timeout") {
				if opts.timeout <= 0 {
					return errors.Newf("--timeout должен быть больше нуля, получено %s", opts.timeout)
				}
				cfg.RequestTimeout = opts.timeout
			}

			logger, err := logging.New(cfg.LogLevel, cfg.IsProduction())
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			var arg string
			if len(args) > 0 {
				arg = args[0]
			}
			pageURL, err := resolveURL(arg, cmd.InOrStdin(), cmd.OutOrStdout())
			if err != nil {
				return err
			}

			return run(pageURL, opts.output, cfg, logger, cmd.OutOrStdout())
		},
	}

	// Параметры командной строки
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Имя выходного файла (.csv или .xlsx), по умолчанию <persona>.csv")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "Таймаут HTTP запроса (перекрывает REQUEST_TIMEOUT)")
	cmd.Flags().StringVar(&opts.envFile, "env-file", "", "Файл переменных окружения (по умолчанию .env и .env.local)")

	return cmd
}

// run загружает отчёты по адресу страницы и сохраняет их в файл
func run(pageURL, output string, cfg *config.Config, log *zap.Logger, out io.Writer) error {
	log.Debug("=== Скрапер bf4cheatreport.com ===",
		zap.String("url", pageURL),
		zap.Duration("timeout", cfg.RequestTimeout),
	)

	s := scraper.NewScraper(scraper.Options{
		Timeout:            cfg.RequestTimeout,
		UserAgent:          cfg.UserAgent,
		InsecureSkipVerify: !cfg.SSLVerify,
		MaxBodySize:        cfg.MaxBodySize,
	}, log)

	res, err := s.Scrape(pageURL)
	if err != nil {
		return err
	}

	filename := report.FileName(res.Reports, output)
	log.Info("сохранение данных", zap.String("file", filename), zap.Int("reports", len(res.Reports)))
	if err := report.Save(filename, res.Reports); err != nil {
		return err
	}

	fmt.Fprintf(out, "✓ Готово! CSV сохранён как %s\n", filename)
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка: %v\n", err)
		os.Exit(1)
	}
}
