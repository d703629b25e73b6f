package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	Idempotency   IdempotencyConfig
	FeatureFlags  FeatureFlagsConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Cron          CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DriverSQLite
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if cfg.PubSub.Enabled && strings.TrimSpace(cfg.GCP.ProjectID) == "" {
		return nil, fmt.Errorf("%s is required when %s is set", EnvGCPProjectID, EnvPubSubEnable)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"PEMINJAMAN_APP_ENV" required:"true"`
	Port         string   `envconfig:"PEMINJAMAN_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"PEMINJAMAN_LOG_LEVEL" default:"info"`
	LogFormat    string   `envconfig:"PEMINJAMAN_LOG_FORMAT" default:"json"`
	LogWarnStack bool     `envconfig:"PEMINJAMAN_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"PEMINJAMAN_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"PEMINJAMAN_SERVICE_KIND" default:"api"`
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type DBConfig struct {
	DSN    string `envconfig:"PEMINJAMAN_DB_DSN"`
	Driver string `envconfig:"PEMINJAMAN_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"PEMINJAMAN_DB_HOST"`
	Port     int    `envconfig:"PEMINJAMAN_DB_PORT" default:"5432"`
	User     string `envconfig:"PEMINJAMAN_DB_USER"`
	Password string `envconfig:"PEMINJAMAN_DB_PASSWORD"`
	Name     string `envconfig:"PEMINJAMAN_DB_NAME"`
	SSLMode  string `envconfig:"PEMINJAMAN_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PEMINJAMAN_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PEMINJAMAN_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PEMINJAMAN_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PEMINJAMAN_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, DriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"PEMINJAMAN_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PEMINJAMAN_REDIS_ADDR"`
	Password     string        `envconfig:"PEMINJAMAN_REDIS_PASSWORD"`
	DB           int           `envconfig:"PEMINJAMAN_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PEMINJAMAN_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PEMINJAMAN_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PEMINJAMAN_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PEMINJAMAN_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PEMINJAMAN_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"PEMINJAMAN_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"PEMINJAMAN_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"PEMINJAMAN_JWT_EXPIRATION_MINUTES" default:"480"`
}

// TokenTTL returns the access token lifetime.
func (j JWTConfig) TokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"PEMINJAMAN_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"PEMINJAMAN_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"PEMINJAMAN_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"PEMINJAMAN_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"PEMINJAMAN_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow           time.Duration `envconfig:"PEMINJAMAN_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginUsernameLimit    int           `envconfig:"PEMINJAMAN_AUTH_RATE_LIMIT_LOGIN_USERNAME_LIMIT" default:"5"`
	LoginIPLimit          int           `envconfig:"PEMINJAMAN_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow        time.Duration `envconfig:"PEMINJAMAN_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterUsernameLimit int           `envconfig:"PEMINJAMAN_AUTH_RATE_LIMIT_REGISTER_USERNAME_LIMIT" default:"3"`
	RegisterIPLimit       int           `envconfig:"PEMINJAMAN_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type IdempotencyConfig struct {
	TTL time.Duration `envconfig:"PEMINJAMAN_IDEMPOTENCY_TTL" default:"24h"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"PEMINJAMAN_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"PEMINJAMAN_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"PEMINJAMAN_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"PEMINJAMAN_GCP_CREDENTIALS_JSON"`
}

// PubSubConfig controls the optional relay of committed domain events.
type PubSubConfig struct {
	Enabled     bool   `envconfig:"PEMINJAMAN_PUBSUB_ENABLED" default:"false"`
	EventsTopic string `envconfig:"PEMINJAMAN_PUBSUB_EVENTS_TOPIC" default:"peminjaman-domain-events"`
}

type CronConfig struct {
	Interval              time.Duration `envconfig:"PEMINJAMAN_CRON_INTERVAL" default:"1h"`
	LockTTL               time.Duration `envconfig:"PEMINJAMAN_CRON_LOCK_TTL" default:"10m"`
	OverdueBatchSize      int           `envconfig:"PEMINJAMAN_CRON_OVERDUE_BATCH_SIZE" default:"200"`
	NotificationRetention time.Duration `envconfig:"PEMINJAMAN_CRON_NOTIFICATION_RETENTION" default:"720h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = "file:peminjaman.db?_busy_timeout=5000&_txlock=immediate"
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range legacyDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}
	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}
	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}
	db.DSN = u.String()
	return nil
}
