package config

const (
	EnvPrefix = "STOREFRONT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	EnvAppEnv   = "STOREFRONT_APP_ENV"
	EnvPort     = "STOREFRONT_APP_PORT"
	EnvLogLevel = "STOREFRONT_LOG_LEVEL"

	EnvDBDSN    = "STOREFRONT_DB_DSN"
	EnvDBDriver = "STOREFRONT_DB_DRIVER"
	EnvDBHost   = "STOREFRONT_DB_HOST"
	EnvDBUser   = "STOREFRONT_DB_USER"
	EnvDBName   = "STOREFRONT_DB_NAME"

	EnvRedisURL = "STOREFRONT_REDIS_URL"

	EnvJWTSecret       = "STOREFRONT_JWT_SECRET"
	EnvJWTIssuer       = "STOREFRONT_JWT_ISSUER"
	EnvProfileCacheTTL = "STOREFRONT_PROFILE_CACHE_TTL"

	EnvDeliveryFee            = "STOREFRONT_DELIVERY_FEE"
	EnvPartialFailureStrategy = "STOREFRONT_PARTIAL_FAILURE_STRATEGY"

	EnvPaymentsFunctionURL = "STOREFRONT_PAYMENTS_FUNCTION_URL"
	EnvPaymentsAnonKey     = "STOREFRONT_PAYMENTS_ANON_KEY"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
