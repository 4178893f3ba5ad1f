// Пакет config — загрузка и валидация конфигурации портала регистрации
// из переменных окружения.
package config

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации портала.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- PostgreSQL ---

	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string

	// --- Каталог (LDAP / Active Directory) ---

	// URL сервера каталога (ldap://dc.example.local:389 или ldaps://...)
	LDAPURL string
	// Учётная запись сервиса для bind (UPN или DN)
	LDAPBindUser string
	// Пароль учётной записи сервиса
	LDAPBindPassword string
	// Корневой DN для поиска групп и пользователей
	LDAPBaseDN string
	// Контейнер пользователей (поиск и создание учётных записей)
	LDAPUsersOU string
	// Контейнер групп безопасности, доступных для назначения
	LDAPGroupsOU string
	// Домен по умолчанию для входа без "@"
	LDAPDomain string
	// Группа администраторов портала
	LDAPAdminGroup string
	// StartTLS поверх ldap://
	LDAPStartTLS bool
	// Путь к CA-сертификату каталога (опционально)
	LDAPCACertPath string
	// Отключить проверку сертификата (только для стендов)
	LDAPInsecureSkipVerify bool
	// Таймаут подключения и операций
	LDAPTimeout time.Duration

	// --- Admin UI ---

	// Секрет для шифрования cookie сессии
	SessionSecret string
	// Время жизни сессии администратора
	SessionTTL time.Duration
	// Secure flag для cookie (HTTPS)
	SecureCookies bool

	// --- API расширения ---

	// Разрешённые Origin для CORS (через запятую)
	CORSAllowedOrigins []string
	// Валидация запросов по OpenAPI контракту
	APIValidation bool

	// --- topologymetrics ---

	// Группа в метриках dephealth
	DephealthGroup string
	// Интервал проверки зависимостей
	DephealthCheckInterval time.Duration

	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	cfg.Port, err = getEnvInt("RP_PORT", 8080)
	if err != nil {
		return nil, err
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("RP_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	cfg.LogLevel, err = parseLogLevel(getEnvDefault("RP_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("RP_LOG_LEVEL: %w", err)
	}

	cfg.LogFormat = getEnvDefault("RP_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("RP_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- PostgreSQL ---

	if cfg.DBHost, err = getEnvRequired("RP_DB_HOST"); err != nil {
		return nil, err
	}
	cfg.DBPort, err = getEnvInt("RP_DB_PORT", 5432)
	if err != nil {
		return nil, err
	}
	if cfg.DBName, err = getEnvRequired("RP_DB_NAME"); err != nil {
		return nil, err
	}
	if cfg.DBUser, err = getEnvRequired("RP_DB_USER"); err != nil {
		return nil, err
	}
	if cfg.DBPassword, err = getEnvRequired("RP_DB_PASSWORD"); err != nil {
		return nil, err
	}

	cfg.DBSSLMode = getEnvDefault("RP_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("RP_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// --- Каталог ---

	if cfg.LDAPURL, err = getEnvRequired("RP_LDAP_URL"); err != nil {
		return nil, err
	}
	u, err := url.Parse(cfg.LDAPURL)
	if err != nil || (u.Scheme != "ldap" && u.Scheme != "ldaps") || u.Host == "" {
		return nil, fmt.Errorf("RP_LDAP_URL: некорректный адрес %q, ожидается ldap://host:port или ldaps://host:port", cfg.LDAPURL)
	}

	if cfg.LDAPBindUser, err = getEnvRequired("RP_LDAP_BIND_USER"); err != nil {
		return nil, err
	}
	if cfg.LDAPBindPassword, err = getEnvRequired("RP_LDAP_BIND_PASSWORD"); err != nil {
		return nil, err
	}
	if cfg.LDAPBaseDN, err = getEnvRequired("RP_LDAP_BASE_DN"); err != nil {
		return nil, err
	}

	// Контейнеры по умолчанию совпадают с корневым DN
	cfg.LDAPUsersOU = getEnvDefault("RP_LDAP_USERS_OU", cfg.LDAPBaseDN)
	cfg.LDAPGroupsOU = getEnvDefault("RP_LDAP_GROUPS_OU", cfg.LDAPBaseDN)

	cfg.LDAPDomain = strings.ToLower(getEnvDefault("RP_LDAP_DOMAIN", "kaushalya.local"))
	cfg.LDAPAdminGroup = getEnvDefault("RP_LDAP_ADMIN_GROUP", "VLauncher-Admins")

	if cfg.LDAPStartTLS, err = getEnvBool("RP_LDAP_START_TLS", false); err != nil {
		return nil, err
	}
	if cfg.LDAPStartTLS && u.Scheme == "ldaps" {
		return nil, fmt.Errorf("RP_LDAP_START_TLS: StartTLS несовместим со схемой ldaps://")
	}
	cfg.LDAPCACertPath = getEnvDefault("RP_LDAP_CA_CERT_PATH", "")
	if cfg.LDAPInsecureSkipVerify, err = getEnvBool("RP_LDAP_INSECURE_SKIP_VERIFY", false); err != nil {
		return nil, err
	}

	cfg.LDAPTimeout, err = getEnvDuration("RP_LDAP_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	// --- Admin UI ---

	cfg.SessionSecret = getEnvDefault("RP_SESSION_SECRET", "")
	cfg.SessionTTL, err = getEnvDuration("RP_SESSION_TTL", 8*time.Hour)
	if err != nil {
		return nil, err
	}
	if cfg.SessionTTL < time.Minute {
		return nil, fmt.Errorf("RP_SESSION_TTL: значение %s меньше минимального 1m", cfg.SessionTTL)
	}
	if cfg.SecureCookies, err = getEnvBool("RP_SECURE_COOKIES", false); err != nil {
		return nil, err
	}

	// --- API расширения ---

	cfg.CORSAllowedOrigins = parseCSV(getEnvDefault("RP_CORS_ALLOWED_ORIGINS", "chrome-extension://*"))
	if cfg.APIValidation, err = getEnvBool("RP_API_VALIDATION", true); err != nil {
		return nil, err
	}

	// --- topologymetrics ---

	cfg.DephealthGroup = getEnvDefault("RP_DEPHEALTH_GROUP", "regportal")
	cfg.DephealthCheckInterval, err = getEnvDuration("RP_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, err
	}

	cfg.ShutdownTimeout, err = getEnvDuration("RP_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате key=value.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL PostgreSQL (postgres://) без пароля.
// Используется для лейблов topologymetrics.
func (c *Config) DatabaseURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.User(c.DBUser),
		Host:     fmt.Sprintf("%s:%d", c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + c.DBSSLMode,
	}
	return u.String()
}

// MigrateURL возвращает URL для golang-migrate (схема pgx5, с паролем).
func (c *Config) MigrateURL() string {
	u := url.URL{
		Scheme:   "pgx5",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     fmt.Sprintf("%s:%d", c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + c.DBSSLMode,
	}
	return u.String()
}

// LDAPTLSConfig собирает TLS-конфигурацию для ldaps:// и StartTLS.
func (c *Config) LDAPTLSConfig() (*tls.Config, error) {
	u, err := url.Parse(c.LDAPURL)
	if err != nil {
		return nil, fmt.Errorf("ошибка разбора RP_LDAP_URL: %w", err)
	}

	tlsCfg := &tls.Config{
		ServerName:         u.Hostname(),
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: c.LDAPInsecureSkipVerify, //nolint:gosec // управляется конфигурацией
	}

	if c.LDAPCACertPath != "" {
		caCert, err := os.ReadFile(c.LDAPCACertPath)
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения CA-сертификата %s: %w", c.LDAPCACertPath, err)
		}
		pool, err := x509.SystemCertPool()
		if err != nil {
			pool = x509.NewCertPool()
		}
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("CA-сертификат %s не содержит PEM-блоков", c.LDAPCACertPath)
		}
		tlsCfg.RootCAs = pool
	}

	return tlsCfg, nil
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvParsed разбирает непустую переменную через parse.
// Ошибка содержит имя переменной и исходное значение.
func getEnvParsed[T any](key string, defaultVal T, parse func(string) (T, error), kind string) (T, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	v, err := parse(val)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("%s: некорректное %s: %q", key, kind, val)
	}
	return v, nil
}

func getEnvInt(key string, defaultVal int) (int, error) {
	return getEnvParsed(key, defaultVal, strconv.Atoi, "целое число")
}

// getEnvBool принимает значения strconv.ParseBool (true/false/1/0 и т.п.).
func getEnvBool(key string, defaultVal bool) (bool, error) {
	return getEnvParsed(key, defaultVal, strconv.ParseBool, "логическое значение")
}

// getEnvDuration принимает формат Go: 30s, 15m, 1h.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	return getEnvParsed(key, defaultVal, time.ParseDuration, "значение длительности")
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}

// parseCSV разбирает строку, разделённую запятыми, на срез строк.
// Пустые элементы игнорируются.
func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
