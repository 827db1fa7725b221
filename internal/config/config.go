// Package config loads server configuration from the environment.
//
// All runtime choices are resolved here, once, at startup — including
// which store backend (SQLite or Postgres) and which blob storage backend
// (local disk or S3) the process will use. Nothing else in the codebase
// branches on the environment.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds every setting the server reads from the environment.
type Config struct {
	Port    int
	BaseURL string // public origin, used in login links and local upload URLs

	// Store backend. DatabaseURL set → Postgres; otherwise SQLite at
	// SQLitePath.
	DatabaseURL string
	SQLitePath  string

	// Session signing secret. Required.
	JWTSecret string

	// GitHub OAuth. Optional — the routes are only registered when a
	// client ID is configured.
	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string

	// Blob storage backend. S3Bucket set → S3; otherwise local disk at
	// UploadDir, served by this process under /uploads/.
	UploadDir   string
	S3Bucket    string
	S3Region    string
	S3Endpoint  string // optional, for MinIO / R2 style S3-compatible stores
	S3AccessKey string
	S3SecretKey string
	S3PublicURL string // public base URL for stored objects
}

// Load reads the configuration from the environment. A .env file in the
// working directory is merged in first, if present — real environment
// variables win.
func Load() (*Config, error) {
	// Ignore the error: a missing .env file is the normal production case.
	_ = godotenv.Load()

	port, err := strconv.Atoi(getEnv("PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("config: invalid PORT: %w", err)
	}

	cfg := &Config{
		Port:    port,
		BaseURL: getEnv("BASE_URL", fmt.Sprintf("http://localhost:%d", port)),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		SQLitePath:  getEnv("SQLITE_PATH", "data/gallery.db"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		GitHubClientID:     os.Getenv("GITHUB_CLIENT_ID"),
		GitHubClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
		GitHubCallbackURL:  os.Getenv("GITHUB_CALLBACK_URL"),

		UploadDir:   getEnv("UPLOAD_DIR", "data/uploads"),
		S3Bucket:    os.Getenv("S3_BUCKET"),
		S3Region:    getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:  os.Getenv("S3_ENDPOINT"),
		S3AccessKey: os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey: os.Getenv("S3_SECRET_KEY"),
		S3PublicURL: os.Getenv("S3_PUBLIC_URL"),
	}

	if cfg.GitHubCallbackURL == "" {
		cfg.GitHubCallbackURL = cfg.BaseURL + "/auth/github/callback"
	}

	return cfg, nil
}

// UsesPostgres reports whether the Postgres store backend is selected.
func (c *Config) UsesPostgres() bool { return c.DatabaseURL != "" }

// UsesS3 reports whether the S3 storage backend is selected.
func (c *Config) UsesS3() bool { return c.S3Bucket != "" }

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
