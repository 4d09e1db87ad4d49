package config

// EnvPrefix is passed to envconfig; every field carries an explicit envconfig tag.
const EnvPrefix = "STOREFRONT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv       = "STOREFRONT_APP_ENV"
	EnvPort         = "STOREFRONT_APP_PORT"
	EnvDBDSN        = "STOREFRONT_DB_DSN"
	EnvDBHost       = "STOREFRONT_DB_HOST"
	EnvDBUser       = "STOREFRONT_DB_USER"
	EnvDBName       = "STOREFRONT_DB_NAME"
	EnvDBPassword   = "STOREFRONT_DB_PASSWORD"
	EnvRedisURL     = "STOREFRONT_REDIS_URL"
	EnvJWTSecret    = "STOREFRONT_JWT_SECRET"
	EnvJWTIssuer    = "STOREFRONT_JWT_ISSUER"
	EnvJWTExpMins   = "STOREFRONT_JWT_EXPIRATION_MINUTES"
	EnvCORSOrigins  = "STOREFRONT_CORS_ALLOWED_ORIGINS"
	EnvGCPProjectID = "STOREFRONT_GCP_PROJECT_ID"
	EnvMergeLockTTL = "STOREFRONT_CART_MERGE_LOCK_TTL"

	EnvCheckoutAttempts = "STOREFRONT_CHECKOUT_MAX_ATTEMPTS"
)

var discreteDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
