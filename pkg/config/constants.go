package config

const (
	EnvPrefix = "RMJ"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv        = "RMJ_APP_ENV"
	EnvAppPort       = "RMJ_APP_PORT"
	EnvLogLevel      = "RMJ_LOG_LEVEL"
	EnvAPIBaseURL    = "RMJ_API_BASE_URL"
	EnvAPITimeout    = "RMJ_API_TIMEOUT"
	EnvStorageDriver = "RMJ_STORAGE_DRIVER"
	EnvStorageDSN    = "RMJ_STORAGE_DSN"
	EnvRedisURL      = "RMJ_REDIS_URL"
	EnvSquareEnv     = "RMJ_SQUARE_ENV"
	EnvSessionTTL    = "RMJ_AUTH_SESSION_TTL"
	EnvCardContainer = "RMJ_CHECKOUT_CARD_CONTAINER"
)

const (
	StorageDriverSQLite   = "sqlite"
	StorageDriverPostgres = "postgres"
	StorageDriverRedis    = "redis"
	StorageDriverMemory   = "memory"
)

var storageDrivers = []string{
	StorageDriverSQLite,
	StorageDriverPostgres,
	StorageDriverRedis,
	StorageDriverMemory,
}
