package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces every environment variable consumed by the service.
const EnvPrefix = "LABSTOCK"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv = "LABSTOCK_APP_ENV"
	EnvDBDSN  = "LABSTOCK_DB_DSN"
	EnvDBHost = "LABSTOCK_DB_HOST"
	EnvDBUser = "LABSTOCK_DB_USER"
	EnvDBName = "LABSTOCK_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	GCP           GCPConfig
	GCS           GCSConfig
	PubSub        PubSubConfig
	Email         EmailConfig
	Cron          CronConfig
	Uploads       UploadsConfig
	Notifications NotificationsConfig
	FeatureFlags  FeatureFlagsConfig
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
	Env          string `envconfig:"LABSTOCK_APP_ENV" required:"true"`
	Port         string `envconfig:"LABSTOCK_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"LABSTOCK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LABSTOCK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"LABSTOCK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"LABSTOCK_DB_DSN"`
	Driver string `envconfig:"LABSTOCK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"LABSTOCK_DB_HOST"`
	LegacyPort     int    `envconfig:"LABSTOCK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"LABSTOCK_DB_USER"`
	LegacyPassword string `envconfig:"LABSTOCK_DB_PASSWORD"`
	LegacyName     string `envconfig:"LABSTOCK_DB_NAME"`
	LegacySSLMode  string `envconfig:"LABSTOCK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"LABSTOCK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LABSTOCK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LABSTOCK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LABSTOCK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"LABSTOCK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"LABSTOCK_REDIS_ADDR"`
	Password     string        `envconfig:"LABSTOCK_REDIS_PASSWORD"`
	DB           int           `envconfig:"LABSTOCK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LABSTOCK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LABSTOCK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LABSTOCK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LABSTOCK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LABSTOCK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"LABSTOCK_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"LABSTOCK_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"LABSTOCK_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName      string        `envconfig:"LABSTOCK_GCS_BUCKET_NAME" required:"true"`
	UploadURLExpiry time.Duration `envconfig:"LABSTOCK_GCS_UPLOAD_URL_EXPIRY" default:"1h"`
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"LABSTOCK_PUBSUB_DOMAIN_TOPIC" default:"labstock-domain-events"`
	DomainSubscription string `envconfig:"LABSTOCK_PUBSUB_DOMAIN_SUBSCRIPTION"`
}

type EmailConfig struct {
	APIKey   string `envconfig:"LABSTOCK_EMAIL_API_KEY"`
	Endpoint string `envconfig:"LABSTOCK_EMAIL_ENDPOINT" default:"https://api.sendgrid.com/v3/mail/send"`
	From     string `envconfig:"LABSTOCK_EMAIL_FROM"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"LABSTOCK_CRON_INTERVAL" default:"24h"`
	LockTTL  time.Duration `envconfig:"LABSTOCK_CRON_LOCK_TTL" default:"25h"`
}

type UploadsConfig struct {
	StaleAfter time.Duration `envconfig:"LABSTOCK_UPLOADS_STALE_AFTER" default:"20m"`
}

type NotificationsConfig struct {
	ExpiryLookaheadDays int `envconfig:"LABSTOCK_EXPIRY_LOOKAHEAD_DAYS" default:"180"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"LABSTOCK_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"LABSTOCK_AUTO_MIGRATE" default:"false"`
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
