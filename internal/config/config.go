package config

import (
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
)

const Production = "production"

// DefaultEnvFiles файлы окружения, которые читаются если существуют
var DefaultEnvFiles = []string{".env", ".env.local"}

// Config настройки скрапера и HTTP сервиса
type Config struct {
	Environment    string        `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`
	UserAgent      string        `env:"USER_AGENT" envDefault:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"`
	SSLVerify      bool          `env:"SSL_VERIFY" envDefault:"true"`
	MaxBodySize    int           `env:"MAX_BODY_SIZE" envDefault:"0"` // 0 без ограничения
	ServerHost     string        `env:"SERVER_HOST" envDefault:"localhost"`
	ServerPort     string        `env:"SERVER_PORT" envDefault:"8080"`
	AllowedOrigins []string      `env:"ALLOWED_ORIGINS" envSeparator:","`
}

// IsProduction проверяет, запущены ли мы в production
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}

// Addr адрес для HTTP сервера
func (c *Config) Addr() string {
	return c.ServerHost + ":" + c.ServerPort
}

// LoadEnv загружает существующие файлы окружения и возвращает их количество.
// Отсутствующие файлы пропускаются.
func LoadEnv(envFiles []string) (int, error) {
	existing := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if file == "" {
			continue
		}
		if _, err := os.Stat(file); err == nil {
			existing = append(existing, file)
		}
	}

	if len(existing) == 0 {
		return 0, nil
	}

	if err := godotenv.Load(existing...); err != nil {
		return 0, errors.Wrap(err, "ошибка загрузки файлов окружения")
	}
	return len(existing), nil
}

// Load читает файлы окружения и разбирает переменные в Config
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = DefaultEnvFiles
	}
	if _, err := LoadEnv(envFiles); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, "ошибка разбора переменных окружения")
	}

	if cfg.RequestTimeout <= 0 {
		return nil, errors.Newf("REQUEST_TIMEOUT должен быть больше нуля, получено %s", cfg.RequestTimeout)
	}
	if cfg.MaxBodySize < 0 {
		return nil, errors.Newf("MAX_BODY_SIZE не может быть отрицательным, получено %d", cfg.MaxBodySize)
	}

	origins := cfg.AllowedOrigins[:0]
	for _, origin := range cfg.AllowedOrigins {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	cfg.AllowedOrigins = origins

	return cfg, nil
}
