package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App       AppConfig
	Service   ServiceConfig
	DB        DBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Pricing   PricingConfig
	Backend   BackendConfig
	Drafts    DraftsConfig
	AWS       AWSConfig
	RateLimit RateLimitConfig
	Eventing  EventingConfig
	GCP       GCPConfig
	PubSub    PubSubConfig
	Outbox    OutboxConfig
	Cron      CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.Pricing.JMDPerUSD <= 0 {
		return nil, fmt.Errorf("%s must be positive", EnvPricingJMDPerUSD)
	}
	return &cfg, nil
}

// ValidateFor checks the settings a given service kind cannot start without.
// The DSN is assembled from the legacy DB_* variables when needed.
func (c *Config) ValidateFor(kind string) error {
	var missing []string
	switch kind {
	case ServiceKindAPI:
		if err := c.DB.ensureDSN(); err != nil {
			return err
		}
		if c.JWT.Secret == "" {
			missing = append(missing, EnvJWTSecret)
		}
		if c.JWT.Issuer == "" {
			missing = append(missing, EnvJWTIssuer)
		}
	case ServiceKindOutboxPublisher:
		if err := c.DB.ensureDSN(); err != nil {
			return err
		}
		if c.GCP.ProjectID == "" {
			missing = append(missing, EnvGCPProjectID)
		}
		if c.PubSub.NotificationTopic == "" {
			missing = append(missing, EnvPubSubNotificationTopic)
		}
	case ServiceKindWorker:
		if err := c.DB.ensureDSN(); err != nil {
			return err
		}
		if c.GCP.ProjectID == "" {
			missing = append(missing, EnvGCPProjectID)
		}
		if c.PubSub.NotificationSubscription == "" {
			missing = append(missing, EnvPubSubNotificationSub)
		}
	case ServiceKindCLI:
		if c.Backend.BaseURL == "" {
			missing = append(missing, EnvBackendBaseURL)
		}
		switch c.Drafts.Store {
		case DraftStoreRedis, DraftStoreMemory:
		case DraftStoreDynamo:
			if c.Drafts.DynamoTable == "" {
				missing = append(missing, EnvDraftsDynamoTable)
			}
			if c.AWS.Region == "" {
				missing = append(missing, EnvAWSRegion)
			}
		default:
			return fmt.Errorf("%s must be one of %q, %q or %q", EnvDraftsStore, DraftStoreRedis, DraftStoreMemory, DraftStoreDynamo)
		}
	case ServiceKindMigrate, ServiceKindCron:
		if err := c.DB.ensureDSN(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown service kind %q", kind)
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings for %s: %s", kind, strings.Join(missing, ", "))
	}
	return nil
}

type AppConfig struct {
	Env          string `envconfig:"QUOTATION_APP_ENV" required:"true"`
	Port         string `envconfig:"QUOTATION_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"QUOTATION_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"QUOTATION_LOG_WARN_STACK" default:"false"`

	// CORSOrigins lists the browser origins allowed to call the API.
	CORSOrigins []string `envconfig:"QUOTATION_APP_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"QUOTATION_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN string `envconfig:"QUOTATION_DB_DSN"`

	LegacyHost     string `envconfig:"QUOTATION_DB_HOST"`
	LegacyPort     int    `envconfig:"QUOTATION_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"QUOTATION_DB_USER"`
	LegacyPassword string `envconfig:"QUOTATION_DB_PASSWORD"`
	LegacyName     string `envconfig:"QUOTATION_DB_NAME"`
	LegacySSLMode  string `envconfig:"QUOTATION_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"QUOTATION_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"QUOTATION_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"QUOTATION_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"QUOTATION_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	AutoMigrate     bool          `envconfig:"QUOTATION_DB_AUTO_MIGRATE" default:"false"`
	// SlowQuery is the duration above which statements are logged at warn.
	SlowQuery       time.Duration `envconfig:"QUOTATION_DB_SLOW_QUERY" default:"200ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"QUOTATION_REDIS_URL" default:"redis://localhost:6379/0"`
	Address      string        `envconfig:"QUOTATION_REDIS_ADDR"`
	Password     string        `envconfig:"QUOTATION_REDIS_PASSWORD"`
	DB           int           `envconfig:"QUOTATION_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"QUOTATION_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"QUOTATION_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"QUOTATION_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"QUOTATION_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"QUOTATION_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"QUOTATION_JWT_SECRET"`
	Issuer            string `envconfig:"QUOTATION_JWT_ISSUER" default:"quotation-engine"`
	ExpirationMinutes int    `envconfig:"QUOTATION_JWT_EXPIRATION_MINUTES" default:"60"`
}

// Expiration returns the access token lifetime.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// PricingConfig holds the constants the pricing calculator reads.
type PricingConfig struct {
	JMDPerUSD float64 `envconfig:"QUOTATION_PRICING_JMD_PER_USD" default:"155"`
}

// BackendConfig points the quote engine at the quote service.
type BackendConfig struct {
	BaseURL string        `envconfig:"QUOTATION_BACKEND_BASE_URL" default:"http://localhost:8080/api"`
	Token   string        `envconfig:"QUOTATION_BACKEND_TOKEN"`
	Timeout time.Duration `envconfig:"QUOTATION_BACKEND_TIMEOUT" default:"10s"`
}

type DraftsConfig struct {
	Store           string        `envconfig:"QUOTATION_DRAFTS_STORE" default:"redis"`
	AutosaveTimeout time.Duration `envconfig:"QUOTATION_DRAFTS_AUTOSAVE_TIMEOUT" default:"5s"`
	DynamoTable     string        `envconfig:"QUOTATION_DRAFTS_DYNAMO_TABLE" default:"quote_drafts"`
}

// AWSConfig reaches DynamoDB. Endpoint and static keys are for DynamoDB Local;
// left empty, the SDK's default credential chain applies.
type AWSConfig struct {
	Region          string `envconfig:"QUOTATION_AWS_REGION" default:"us-east-1"`
	Endpoint        string `envconfig:"QUOTATION_AWS_ENDPOINT"`
	AccessKeyID     string `envconfig:"QUOTATION_AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `envconfig:"QUOTATION_AWS_SECRET_ACCESS_KEY"`
}

type RateLimitConfig struct {
	QuoteWriteWindow time.Duration `envconfig:"QUOTATION_RATE_LIMIT_QUOTE_WRITE_WINDOW" default:"1m"`
	QuoteWriteLimit  int           `envconfig:"QUOTATION_RATE_LIMIT_QUOTE_WRITE_LIMIT" default:"30"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"QUOTATION_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"QUOTATION_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	NotificationTopic        string `envconfig:"QUOTATION_PUBSUB_NOTIFICATION_TOPIC" default:"quote-notification-events"`
	NotificationSubscription string `envconfig:"QUOTATION_PUBSUB_NOTIFICATION_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"QUOTATION_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"QUOTATION_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"QUOTATION_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// CronConfig drives the retention jobs. Retention values are in days.
type CronConfig struct {
	Interval                  time.Duration `envconfig:"QUOTATION_CRON_INTERVAL" default:"24h"`
	NotificationRetentionDays int           `envconfig:"QUOTATION_CRON_NOTIFICATION_RETENTION_DAYS" default:"30"`
	OutboxRetentionDays       int           `envconfig:"QUOTATION_CRON_OUTBOX_RETENTION_DAYS" default:"30"`
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
