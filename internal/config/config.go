package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultCities is the city selector list shown on the index page when
// KNOWN_CITIES is not set.
var DefaultCities = []string{
	"Moscow",
	"Saint Petersburg",
	"Novosibirsk",
	"Yekaterinburg",
	"Kazan",
	"Nizhny Novgorod",
	"Chelyabinsk",
	"Samara",
	"Ufa",
	"Rostov-on-Don",
}

type Config struct {
	AppEnv   string
	LogLevel slog.Level
	// LogFile, when set, receives a rotated copy of every log line.
	LogFile  string
	HTTPAddr string

	// StaticDir is the absolute path to the directory served at /static/.
	// Set via STATIC_DIR (relative paths are resolved against the process working directory at startup).
	StaticDir string

	SQLiteDriver          string
	SQLiteDSN             string
	SQLitePath            string
	SQLiteMaxOpenConns    int
	SQLiteMaxIdleConns    int
	SQLiteConnMaxLifetime time.Duration
	SQLiteLogSQL          bool

	// Location is the zone used for "today" windows, form timestamps and
	// series labels.
	Location *time.Location
	Cities   []string

	// MQTTBroker empty disables change-event publishing.
	MQTTBroker      string
	MQTTPort        int
	MQTTClientID    string
	MQTTTopicPrefix string

	SentryDSN string
}

// NewViper returns a viper instance bound to the process environment with
// every default registered.
func NewViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("STATIC_DIR", "static")
	v.SetDefault("DB_DRIVER", "sqlite3")
	v.SetDefault("DB_DSN", "")
	v.SetDefault("SQLITE_PATH", "data/weather1.db")
	v.SetDefault("DB_MAX_OPEN_CONNS", "1")
	v.SetDefault("DB_MAX_IDLE_CONNS", "1")
	v.SetDefault("DB_CONN_MAX_LIFETIME", "0s")
	v.SetDefault("DB_LOG_SQL", "false")
	v.SetDefault("TIMEZONE", "Local")
	v.SetDefault("KNOWN_CITIES", "")
	v.SetDefault("MQTT_BROKER", "")
	v.SetDefault("MQTT_PORT", "1883")
	v.SetDefault("MQTT_CLIENT_ID", "weather1-server")
	v.SetDefault("MQTT_TOPIC_PREFIX", "weather1/observations")
	v.SetDefault("SENTRY_DSN", "")
}

func LoadFromEnv() (Config, error) {
	return Load(NewViper())
}

func Load(v *viper.Viper) (Config, error) {
	appEnv := str(v, "APP_ENV")
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	level, err := parseLogLevel(str(v, "LOG_LEVEL"))
	if err != nil {
		return Config{}, err
	}

	staticDir, err := filepath.Abs(str(v, "STATIC_DIR"))
	if err != nil {
		return Config{}, fmt.Errorf("STATIC_DIR %q: %w", str(v, "STATIC_DIR"), err)
	}

	maxOpenConns, err := intValue(v, "DB_MAX_OPEN_CONNS")
	if err != nil {
		return Config{}, err
	}
	maxIdleConns, err := intValue(v, "DB_MAX_IDLE_CONNS")
	if err != nil {
		return Config{}, err
	}

	connMaxLifetimeStr := str(v, "DB_CONN_MAX_LIFETIME")
	connMaxLifetime, err := time.ParseDuration(connMaxLifetimeStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid DB_CONN_MAX_LIFETIME %q: %w", connMaxLifetimeStr, err)
	}

	logSQL, err := boolValue(v, "DB_LOG_SQL")
	if err != nil {
		return Config{}, err
	}

	loc, err := parseLocation(str(v, "TIMEZONE"))
	if err != nil {
		return Config{}, err
	}

	mqttPort, err := intValue(v, "MQTT_PORT")
	if err != nil {
		return Config{}, err
	}
	if mqttPort <= 0 || mqttPort > 65535 {
		return Config{}, fmt.Errorf("invalid MQTT_PORT %d (must be 1-65535)", mqttPort)
	}

	return Config{
		AppEnv:                appEnv,
		LogLevel:              level,
		LogFile:               str(v, "LOG_FILE"),
		HTTPAddr:              str(v, "HTTP_ADDR"),
		StaticDir:             staticDir,
		SQLiteDriver:          str(v, "DB_DRIVER"),
		SQLiteDSN:             str(v, "DB_DSN"),
		SQLitePath:            str(v, "SQLITE_PATH"),
		SQLiteMaxOpenConns:    maxOpenConns,
		SQLiteMaxIdleConns:    maxIdleConns,
		SQLiteConnMaxLifetime: connMaxLifetime,
		SQLiteLogSQL:          logSQL,
		Location:              loc,
		Cities:                parseCities(str(v, "KNOWN_CITIES")),
		MQTTBroker:            str(v, "MQTT_BROKER"),
		MQTTPort:              mqttPort,
		MQTTClientID:          str(v, "MQTT_CLIENT_ID"),
		MQTTTopicPrefix:       strings.TrimSuffix(str(v, "MQTT_TOPIC_PREFIX"), "/"),
		SentryDSN:             str(v, "SENTRY_DSN"),
	}, nil
}

func str(v *viper.Viper, key string) string {
	return strings.TrimSpace(v.GetString(key))
}

func intValue(v *viper.Viper, key string) (int, error) {
	s := str(v, key)
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return n, nil
}

func boolValue(v *viper.Viper, key string) (bool, error) {
	switch strings.ToLower(str(v, key)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid %s %q: expected boolean", key, str(v, key))
	}
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

func parseLocation(name string) (*time.Location, error) {
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", name, err)
	}
	return loc, nil
}

func parseCities(s string) []string {
	if s == "" {
		out := make([]string, len(DefaultCities))
		copy(out, DefaultCities)
		return out
	}
	var out []string
	for _, c := range strings.Split(s, ",") {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return parseCities("")
	}
	return out
}
