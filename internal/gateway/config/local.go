package config

import (
	"strings"

	"archigen/internal/gateway/repository/archive"
)

const (
	BackendMemory   = "memory"
	BackendS3       = "s3"
	BackendPostgres = "postgres"
)

func loadArchiveConfig(appEnv string, env func(string) string) ArchiveConfig {
	local := strings.EqualFold(appEnv, "local")
	cfg := ArchiveConfig{
		Backend:     strings.ToLower(firstNonEmpty(env("ARCHIVE_BACKEND"), BackendMemory)),
		Endpoint:    env("ARCHIVE_S3_ENDPOINT"),
		Region:      firstNonEmpty(env("ARCHIVE_S3_REGION"), "us-east-1"),
		AccessKey:   firstNonEmpty(env("ARCHIVE_S3_ACCESS_KEY"), env("MINIO_ROOT_USER")),
		SecretKey:   firstNonEmpty(env("ARCHIVE_S3_SECRET_KEY"), env("MINIO_ROOT_PASSWORD")),
		Bucket:      firstNonEmpty(env("ARCHIVE_S3_BUCKET"), "archigen-plans"),
		UseSSL:      parseBool(env("ARCHIVE_S3_USE_SSL"), !local),
		DatabaseURL: env("ARCHIVE_DATABASE_URL"),
	}
	if local {
		cfg.Endpoint = firstNonEmpty(cfg.Endpoint, "minio:9000")
		cfg.UseSSL = false
	}
	return cfg
}

// S3 converts the archive settings into the minio store config.
func (c ArchiveConfig) S3() archive.S3Config {
	return archive.S3Config{
		Endpoint:  c.Endpoint,
		Region:    c.Region,
		AccessKey: c.AccessKey,
		SecretKey: c.SecretKey,
		Bucket:    c.Bucket,
		UseSSL:    c.UseSSL,
	}
}
