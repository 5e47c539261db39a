package config

// EnvPrefix is the envconfig prefix shared by every variable below.
const EnvPrefix = "STPARK"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

const (
	EnvAppEnv   = "STPARK_APP_ENV"
	EnvPort     = "STPARK_APP_PORT"
	EnvLogLevel = "STPARK_LOG_LEVEL"

	EnvDBDSN  = "STPARK_DB_DSN"
	EnvDBHost = "STPARK_DB_HOST"
	EnvDBUser = "STPARK_DB_USER"
	EnvDBName = "STPARK_DB_NAME"

	EnvRedisURL = "STPARK_REDIS_URL"

	EnvJWTSecret  = "STPARK_JWT_SECRET"
	EnvJWTIssuer  = "STPARK_JWT_ISSUER"
	EnvJWTExpMins = "STPARK_JWT_EXPIRATION_MINUTES"

	EnvGCPProjectID = "STPARK_GCP_PROJECT_ID"

	EnvPubSubBillingTopic = "STPARK_PUBSUB_BILLING_TOPIC"
	EnvPubSubBillingSub   = "STPARK_PUBSUB_BILLING_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
