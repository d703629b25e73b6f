package config

const EnvPrefix = "PEMINJAMAN"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv       = "PEMINJAMAN_APP_ENV"
	EnvPort         = "PEMINJAMAN_APP_PORT"
	EnvLogLevel     = "PEMINJAMAN_LOG_LEVEL"
	EnvLogFormat    = "PEMINJAMAN_LOG_FORMAT"
	EnvCORSOrigins  = "PEMINJAMAN_CORS_ORIGINS"
	EnvServiceKind  = "PEMINJAMAN_SERVICE_KIND"
	EnvDBDSN        = "PEMINJAMAN_DB_DSN"
	EnvDBDriver     = "PEMINJAMAN_DB_DRIVER"
	EnvDBHost       = "PEMINJAMAN_DB_HOST"
	EnvDBUser       = "PEMINJAMAN_DB_USER"
	EnvDBName       = "PEMINJAMAN_DB_NAME"
	EnvRedisURL     = "PEMINJAMAN_REDIS_URL"
	EnvJWTSecret    = "PEMINJAMAN_JWT_SECRET"
	EnvJWTIssuer    = "PEMINJAMAN_JWT_ISSUER"
	EnvJWTExpMins   = "PEMINJAMAN_JWT_EXPIRATION_MINUTES"
	EnvUseSQLite    = "PEMINJAMAN_USE_SQLITE"
	EnvAutoMigrate  = "PEMINJAMAN_AUTO_MIGRATE"
	EnvGCPProjectID = "PEMINJAMAN_GCP_PROJECT_ID"
	EnvPubSubEnable = "PEMINJAMAN_PUBSUB_ENABLED"
	EnvPubSubTopic  = "PEMINJAMAN_PUBSUB_EVENTS_TOPIC"
	EnvCronInterval = "PEMINJAMAN_CRON_INTERVAL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
