package config

// EnvPrefix is passed to envconfig; every field also names its variable explicitly.
const EnvPrefix = "QUOTATION"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	ServiceKindAPI             = "api"
	ServiceKindOutboxPublisher = "outbox-publisher"
	ServiceKindWorker          = "worker"
	ServiceKindCLI             = "cli"
	ServiceKindMigrate         = "migrate"
	ServiceKindCron            = "cron-worker"
)

const (
	DraftStoreRedis  = "redis"
	DraftStoreMemory = "memory"
	DraftStoreDynamo = "dynamodb"
)

const (
	EnvAppEnv   = "QUOTATION_APP_ENV"
	EnvPort     = "QUOTATION_APP_PORT"
	EnvLogLevel = "QUOTATION_LOG_LEVEL"

	EnvDBDSN      = "QUOTATION_DB_DSN"
	EnvDBHost     = "QUOTATION_DB_HOST"
	EnvDBPort     = "QUOTATION_DB_PORT"
	EnvDBUser     = "QUOTATION_DB_USER"
	EnvDBPassword = "QUOTATION_DB_PASSWORD"
	EnvDBName     = "QUOTATION_DB_NAME"

	EnvRedisURL = "QUOTATION_REDIS_URL"

	EnvJWTSecret  = "QUOTATION_JWT_SECRET"
	EnvJWTIssuer  = "QUOTATION_JWT_ISSUER"
	EnvJWTExpMins = "QUOTATION_JWT_EXPIRATION_MINUTES"

	EnvPricingJMDPerUSD = "QUOTATION_PRICING_JMD_PER_USD"

	EnvBackendBaseURL = "QUOTATION_BACKEND_BASE_URL"
	EnvBackendToken   = "QUOTATION_BACKEND_TOKEN"
	EnvBackendTimeout = "QUOTATION_BACKEND_TIMEOUT"

	EnvDraftsStore       = "QUOTATION_DRAFTS_STORE"
	EnvDraftsDynamoTable = "QUOTATION_DRAFTS_DYNAMO_TABLE"
	EnvAWSRegion         = "QUOTATION_AWS_REGION"

	EnvGCPProjectID            = "QUOTATION_GCP_PROJECT_ID"
	EnvPubSubNotificationTopic = "QUOTATION_PUBSUB_NOTIFICATION_TOPIC"
	EnvPubSubNotificationSub   = "QUOTATION_PUBSUB_NOTIFICATION_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
