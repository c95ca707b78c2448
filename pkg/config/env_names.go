package config

// EnvPrefix is passed to envconfig; individual fields carry explicit names so
// the prefix only matters for variables without a tag.
const EnvPrefix = "EDUGAMES"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv = "EDUGAMES_APP_ENV"
	EnvPort   = "EDUGAMES_APP_PORT"

	EnvDBDSN  = "EDUGAMES_DB_DSN"
	EnvDBHost = "EDUGAMES_DB_HOST"
	EnvDBUser = "EDUGAMES_DB_USER"
	EnvDBName = "EDUGAMES_DB_NAME"

	EnvRedisURL = "EDUGAMES_REDIS_URL"

	EnvSessionSecret = "EDUGAMES_SESSION_SECRET"
	EnvSessionIssuer = "EDUGAMES_SESSION_ISSUER"

	EnvS3Bucket         = "EDUGAMES_S3_BUCKET"
	EnvS3UploadExpiry   = "EDUGAMES_S3_UPLOAD_URL_EXPIRY"
	EnvS3DownloadExpiry = "EDUGAMES_S3_DOWNLOAD_URL_EXPIRY"

	EnvImportAdminKey = "EDUGAMES_IMPORT_ADMIN_API_KEY"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
