package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config - структура для хранения конфигураций приложения
type Config struct {
	ServerAddress   string        `mapstructure:"SERVER_ADDRESS"`
	PostgresConn    string        `mapstructure:"POSTGRES_CONN"`
	MigrationURL    string        `mapstructure:"MIGRATION_URL"`
	JWTSecret       string        `mapstructure:"JWT_SECRET"`
	JWTTTL          time.Duration `mapstructure:"JWT_TTL"`
	RequestTimeout  time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
	LogLevel        string        `mapstructure:"LOG_LEVEL"`
	LogFormat       string        `mapstructure:"LOG_FORMAT"`
	WSSendBuffer    int           `mapstructure:"WS_SEND_BUFFER"`
}

var defaults = map[string]any{
	"SERVER_ADDRESS":   "0.0.0.0:8080",
	"POSTGRES_CONN":    "",
	"MIGRATION_URL":    "file://db/migration",
	"JWT_SECRET":       "",
	"JWT_TTL":          "72h",
	"REQUEST_TIMEOUT":  "5s",
	"SHUTDOWN_TIMEOUT": "10s",
	"LOG_LEVEL":        "info",
	"LOG_FORMAT":       "json",
	"WS_SEND_BUFFER":   64,
}

// LoadConfig загружает конфигурацию из файла app.env в каталоге path и из переменных окружения.
// Переменные окружения имеют приоритет над файлом. Отсутствие файла не является ошибкой.
func LoadConfig(path string) (cfg Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
	}
	if err = v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate проверяет обязательные параметры.
func (c Config) Validate() error {
	var missing []string
	if c.PostgresConn == "" {
		missing = append(missing, "POSTGRES_CONN")
	}
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	if c.WSSendBuffer <= 0 {
		return fmt.Errorf("WS_SEND_BUFFER must be positive, got %d", c.WSSendBuffer)
	}
	return nil
}
