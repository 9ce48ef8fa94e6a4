package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// NegativePolicy decides what happens to negative readings other than the
// -1 sentinel.
type NegativePolicy string

const (
	// NegativeKeep stores negative values as sent.
	NegativeKeep NegativePolicy = "keep"
	// NegativeClamp stores negative values as zero.
	NegativeClamp NegativePolicy = "clamp"
)

type Config struct {
	AppEnv   string `validate:"oneof=dev prod"`
	LogLevel slog.Level
	HTTPAddr string `validate:"required"`

	Driver          string        `validate:"oneof=sqlite3 pgx"`
	DSN             string        `validate:"required_if=Driver pgx"`
	SQLitePath      string        `validate:"required_if=Driver sqlite3"`
	MaxOpenConns    int           `validate:"gte=0"`
	MaxIdleConns    int           `validate:"gte=0"`
	ConnMaxLifetime time.Duration `validate:"gte=0"`
	LogSQL          bool

	// APIKey is the shared ingest secret. Empty disables authentication.
	APIKey string

	Location                 *time.Location `validate:"required"`
	NegativePolicy           NegativePolicy `validate:"oneof=keep clamp"`
	RequireRegisteredStation bool

	// StationCityCodes is the static station code -> city fallback table.
	StationCityCodes map[string]string

	MQTTBroker   string
	MQTTPort     int    `validate:"gte=0,lte=65535"`
	MQTTTopic    string `validate:"required_with=MQTTBroker"`
	MQTTClientID string `validate:"required_with=MQTTBroker"`
}

var validate = validator.New()

// LoadDotEnv loads variables from a .env file if it exists. Variables already
// present in the environment win.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func LoadFromEnv() (Config, error) {
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	level, err := parseLogLevel(getenvDefault("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, err
	}

	maxOpenConns, err := getenvInt("DB_MAX_OPEN_CONNS", 1)
	if err != nil {
		return Config{}, err
	}
	maxIdleConns, err := getenvInt("DB_MAX_IDLE_CONNS", 1)
	if err != nil {
		return Config{}, err
	}
	connMaxLifetime, err := time.ParseDuration(getenvDefault("DB_CONN_MAX_LIFETIME", "0s"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid DB_CONN_MAX_LIFETIME %q: %w", os.Getenv("DB_CONN_MAX_LIFETIME"), err)
	}
	logSQL, err := getenvBool("DB_LOG_SQL", false)
	if err != nil {
		return Config{}, err
	}

	tz := getenvDefault("TIMEZONE", "Europe/Kyiv")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return Config{}, fmt.Errorf("invalid TIMEZONE %q: %w", tz, err)
	}

	requireRegistered, err := getenvBool("REQUIRE_REGISTERED_STATION", true)
	if err != nil {
		return Config{}, err
	}

	codes, err := parseCodeTable(os.Getenv("STATION_CITY_CODES"))
	if err != nil {
		return Config{}, err
	}

	mqttPort, err := getenvInt("MQTT_PORT", 1883)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppEnv:                   appEnv,
		LogLevel:                 level,
		HTTPAddr:                 getenvDefault("HTTP_ADDR", ":8080"),
		Driver:                   getenvDefault("DB_DRIVER", DriverSQLite),
		DSN:                      strings.TrimSpace(os.Getenv("DATABASE_URL")),
		SQLitePath:               getenvDefault("SQLITE_PATH", "data/app.db"),
		MaxOpenConns:             maxOpenConns,
		MaxIdleConns:             maxIdleConns,
		ConnMaxLifetime:          connMaxLifetime,
		LogSQL:                   logSQL,
		APIKey:                   strings.TrimSpace(os.Getenv("INGEST_API_KEY")),
		Location:                 loc,
		NegativePolicy:           NegativePolicy(strings.ToLower(getenvDefault("NEGATIVE_VALUE_POLICY", string(NegativeKeep)))),
		RequireRegisteredStation: requireRegistered,
		StationCityCodes:         codes,
		MQTTBroker:               strings.TrimSpace(os.Getenv("MQTT_BROKER")),
		MQTTPort:                 mqttPort,
		MQTTTopic:                getenvDefault("MQTT_TOPIC", "sensors/+/readings"),
		MQTTClientID:             getenvDefault("MQTT_CLIENT_ID", "sensor-box-server"),
	}

	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// MQTTEnabled reports whether MQTT ingestion is configured.
func (c Config) MQTTEnabled() bool {
	return c.MQTTBroker != ""
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}

// parseCodeTable reads "CODE=City,CODE2=City2". Validation of the cities
// happens when the city table is built.
func parseCodeTable(s string) (map[string]string, error) {
	out := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		code, city, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(code) == "" || strings.TrimSpace(city) == "" {
			return nil, fmt.Errorf("invalid STATION_CITY_CODES entry %q (expected CODE=City)", pair)
		}
		out[strings.TrimSpace(code)] = strings.TrimSpace(city)
	}
	return out, nil
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return n, nil
}

func getenvBool(key string, def bool) (bool, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return b, nil
}
