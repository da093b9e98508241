package storage

import (
	"os"
	"strings"
	"time"
)

// MinIOConfig holds MinIO connection configuration
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Region    string
	Bucket    string
	// PublicBaseURL, when set, is the prefix under which uploaded objects are
	// publicly readable. Otherwise uploads are handed out as presigned URLs.
	PublicBaseURL string
	PresignExpiry time.Duration
}

// LoadMinIOConfig loads MinIO config from environment
func LoadMinIOConfig() *MinIOConfig {
	useSSL := false
	if os.Getenv("MINIO_USE_SSL") == "true" {
		useSSL = true
	}
	expiry, err := time.ParseDuration(getEnv("MINIO_PRESIGN_EXPIRY", "168h"))
	if err != nil {
		expiry = 7 * 24 * time.Hour
	}
	return &MinIOConfig{
		Endpoint:      os.Getenv("MINIO_ENDPOINT"),
		AccessKey:     os.Getenv("MINIO_ACCESS_KEY"),
		SecretKey:     os.Getenv("MINIO_SECRET_KEY"),
		UseSSL:        useSSL,
		Region:        getEnv("MINIO_REGION", "us-east-1"),
		Bucket:        getEnv("MINIO_BUCKET", "mealbox"),
		PublicBaseURL: strings.TrimRight(os.Getenv("MINIO_PUBLIC_BASE_URL"), "/"),
		PresignExpiry: expiry,
	}
}

func getEnv(k, d string) string {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	return v
}
