package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Session      SessionConfig
	Storage      StorageConfig
	Import       ImportConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"EDUGAMES_APP_ENV" required:"true"`
	Port         string `envconfig:"EDUGAMES_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"EDUGAMES_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"EDUGAMES_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"EDUGAMES_DB_DSN"`
	Driver string `envconfig:"EDUGAMES_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"EDUGAMES_DB_HOST"`
	LegacyPort     int    `envconfig:"EDUGAMES_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"EDUGAMES_DB_USER"`
	LegacyPassword string `envconfig:"EDUGAMES_DB_PASSWORD"`
	LegacyName     string `envconfig:"EDUGAMES_DB_NAME"`
	LegacySSLMode  string `envconfig:"EDUGAMES_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"EDUGAMES_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"EDUGAMES_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"EDUGAMES_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"EDUGAMES_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"EDUGAMES_REDIS_URL" required:"true"`
	Address      string        `envconfig:"EDUGAMES_REDIS_ADDR"`
	Password     string        `envconfig:"EDUGAMES_REDIS_PASSWORD"`
	DB           int           `envconfig:"EDUGAMES_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"EDUGAMES_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"EDUGAMES_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"EDUGAMES_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"EDUGAMES_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"EDUGAMES_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// SessionConfig drives the session cookie JWT and its Redis-backed lifetime.
type SessionConfig struct {
	Secret     string `envconfig:"EDUGAMES_SESSION_SECRET" required:"true"`
	Issuer     string `envconfig:"EDUGAMES_SESSION_ISSUER" required:"true"`
	TTLMinutes int    `envconfig:"EDUGAMES_SESSION_TTL_MINUTES" default:"720"`
	CookieName string `envconfig:"EDUGAMES_SESSION_COOKIE" default:"edugames_session"`
}

// TTL returns the session lifetime configured in minutes.
func (s SessionConfig) TTL() time.Duration {
	if s.TTLMinutes <= 0 {
		return 0
	}
	return time.Duration(s.TTLMinutes) * time.Minute
}

// StorageConfig addresses the S3 bucket holding game bundles and thumbnails.
type StorageConfig struct {
	Region            string        `envconfig:"EDUGAMES_AWS_REGION" default:"us-east-1"`
	Bucket            string        `envconfig:"EDUGAMES_S3_BUCKET"`
	UploadURLExpiry   time.Duration `envconfig:"EDUGAMES_S3_UPLOAD_URL_EXPIRY" default:"1h"`
	DownloadURLExpiry time.Duration `envconfig:"EDUGAMES_S3_DOWNLOAD_URL_EXPIRY" default:"1h"`
	DefaultFolder     string        `envconfig:"EDUGAMES_S3_DEFAULT_FOLDER" default:"games"`
	MaxUploadMB       int           `envconfig:"EDUGAMES_MAX_UPLOAD_MB" default:"200"`
}

// ImportConfig points at the roster service that ingests student CSVs.
type ImportConfig struct {
	BackendBaseURL string        `envconfig:"EDUGAMES_IMPORT_BACKEND_BASE_URL" default:"http://localhost:3000"`
	AdminAPIKey    string        `envconfig:"EDUGAMES_IMPORT_ADMIN_API_KEY"`
	Timeout        time.Duration `envconfig:"EDUGAMES_IMPORT_TIMEOUT" default:"30s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"EDUGAMES_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
