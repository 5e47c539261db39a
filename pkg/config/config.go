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
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Pin          PinConfig
	Billing      BillingConfig
	Sessions     SessionsConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig

	AuthRateLimit AuthRateLimitConfig
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
	Env          string `envconfig:"STPARK_APP_ENV" required:"true"`
	Port         string `envconfig:"STPARK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"STPARK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STPARK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"STPARK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"STPARK_DB_DSN"`
	Driver string `envconfig:"STPARK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"STPARK_DB_HOST"`
	LegacyPort     int    `envconfig:"STPARK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STPARK_DB_USER"`
	LegacyPassword string `envconfig:"STPARK_DB_PASSWORD"`
	LegacyName     string `envconfig:"STPARK_DB_NAME"`
	LegacySSLMode  string `envconfig:"STPARK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STPARK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STPARK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STPARK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STPARK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STPARK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"STPARK_REDIS_ADDR"`
	Password     string        `envconfig:"STPARK_REDIS_PASSWORD"`
	DB           int           `envconfig:"STPARK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STPARK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STPARK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STPARK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STPARK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STPARK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"STPARK_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"STPARK_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"STPARK_JWT_EXPIRATION_MINUTES" required:"true"`
}

// Expiration returns the access token TTL configured in minutes.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PinConfig struct {
	ArgonMemoryKB    int `envconfig:"STPARK_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"STPARK_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"STPARK_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"STPARK_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"STPARK_ARGON_KEY_LEN" default:"32"`
}

type BillingConfig struct {
	// Timezone controls where the midnight day boundary falls when a
	// session spans more than one calendar day.
	Timezone string `envconfig:"STPARK_BILLING_TIMEZONE" default:"America/Santiago"`
}

// Location resolves the configured billing timezone, falling back to UTC.
func (b BillingConfig) Location() *time.Location {
	loc, err := time.LoadLocation(b.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type SessionsConfig struct {
	// MaxDuration is the TTL after which the cron worker force-closes an
	// abandoned active session into debt.
	MaxDuration time.Duration `envconfig:"STPARK_SESSION_MAX_DURATION" default:"24h"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"STPARK_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"STPARK_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"STPARK_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"STPARK_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"STPARK_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"STPARK_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	BillingTopic        string `envconfig:"STPARK_PUBSUB_BILLING_TOPIC" required:"true"`
	BillingSubscription string `envconfig:"STPARK_PUBSUB_BILLING_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"STPARK_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"STPARK_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"STPARK_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Retention      time.Duration `envconfig:"STPARK_OUTBOX_RETENTION" default:"168h"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"STPARK_AUTH_RL_LOGIN_WINDOW" default:"5m"`
	LoginIPLimit       int           `envconfig:"STPARK_AUTH_RL_LOGIN_IP_LIMIT" default:"30"`
	LoginOperatorLimit int           `envconfig:"STPARK_AUTH_RL_LOGIN_OPERATOR_LIMIT" default:"10"`
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
