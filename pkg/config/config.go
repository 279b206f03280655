package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Blob providers understood by storage.NewBlobStore.
const (
	BlobProviderCloudinary = "cloudinary"
	BlobProviderS3         = "s3"
	BlobProviderLocal      = "local"
)

type Config struct {
	Env             string
	Port            int
	APIPrefix       string
	PublicBaseURL   string
	ShutdownTimeout time.Duration

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Files     FilesConfig
	Blob      BlobConfig
	Deletion  DeletionConfig
	Cleanup   CleanupConfig
	Retrieval RetrievalConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	AutoMigrate  bool
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig describes how bearer tokens issued by the identity provider are verified.
// When JWKSURL is set, tokens are verified against the remote key set; otherwise the
// shared HS256 secret is used.
type JWTConfig struct {
	Secret   string
	JWKSURL  string
	Issuer   string
	Audience string
	Leeway   time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// FilesConfig governs upload validation, retention and access code shape.
type FilesConfig struct {
	MaxFileSizeBytes    int64
	Retention           time.Duration
	CodeLength          int
	CodeMaxAttempts     int
	CodeLegibleAlphabet bool
	StorageFolder       string
}

// BlobConfig selects and configures the object storage provider.
type BlobConfig struct {
	Provider    string
	HTTPTimeout time.Duration
	Cloudinary  CloudinaryConfig
	S3          S3Config
	Local       LocalBlobConfig
}

type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	BaseURL   string
}

type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PublicBaseURL   string
	UsePathStyle    bool
}

type LocalBlobConfig struct {
	Dir             string
	SignedURLSecret string
}

// DeletionConfig tunes the background worker pool that deletes claimed blobs.
type DeletionConfig struct {
	Workers    int
	BufferSize int
	Retries    int
	RetryDelay time.Duration
}

// CleanupConfig tunes the orphaned blob sweeper.
type CleanupConfig struct {
	Interval    time.Duration
	BatchSize   int
	Concurrency int
	Token       string
}

// RetrievalConfig throttles failed access code attempts per client.
type RetrievalConfig struct {
	MaxFailures   int
	FailureWindow time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")
	cfg.PublicBaseURL = strings.TrimRight(v.GetString("PUBLIC_BASE_URL"), "/")
	cfg.ShutdownTimeout = parseDuration(v.GetString("SHUTDOWN_TIMEOUT"), 15*time.Second)

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:   v.GetString("JWT_SECRET"),
		JWKSURL:  v.GetString("JWT_JWKS_URL"),
		Issuer:   v.GetString("JWT_ISSUER"),
		Audience: v.GetString("JWT_AUDIENCE"),
		Leeway:   parseDuration(v.GetString("JWT_LEEWAY"), 30*time.Second),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	maxSize := v.GetInt64("UPLOAD_MAX_FILE_SIZE")
	if maxSize <= 0 {
		maxSize = 10 * 1024 * 1024
	}
	cfg.Files = FilesConfig{
		MaxFileSizeBytes:    maxSize,
		Retention:           parseDuration(v.GetString("FILE_RETENTION"), 24*time.Hour),
		CodeLength:          v.GetInt("CODE_LENGTH"),
		CodeMaxAttempts:     v.GetInt("CODE_MAX_ATTEMPTS"),
		CodeLegibleAlphabet: v.GetBool("CODE_LEGIBLE_ALPHABET"),
		StorageFolder:       strings.Trim(v.GetString("STORAGE_FOLDER"), "/"),
	}

	cfg.Blob = BlobConfig{
		Provider:    strings.ToLower(v.GetString("BLOB_PROVIDER")),
		HTTPTimeout: parseDuration(v.GetString("BLOB_HTTP_TIMEOUT"), 30*time.Second),
		Cloudinary: CloudinaryConfig{
			CloudName: v.GetString("CLOUDINARY_CLOUD_NAME"),
			APIKey:    v.GetString("CLOUDINARY_API_KEY"),
			APISecret: v.GetString("CLOUDINARY_API_SECRET"),
			BaseURL:   strings.TrimRight(v.GetString("CLOUDINARY_BASE_URL"), "/"),
		},
		S3: S3Config{
			Bucket:          v.GetString("S3_BUCKET"),
			Region:          v.GetString("S3_REGION"),
			Endpoint:        v.GetString("S3_ENDPOINT"),
			AccessKeyID:     v.GetString("S3_ACCESS_KEY_ID"),
			SecretAccessKey: v.GetString("S3_SECRET_ACCESS_KEY"),
			PublicBaseURL:   strings.TrimRight(v.GetString("S3_PUBLIC_BASE_URL"), "/"),
			UsePathStyle:    v.GetBool("S3_USE_PATH_STYLE"),
		},
		Local: LocalBlobConfig{
			Dir:             v.GetString("LOCAL_STORAGE_DIR"),
			SignedURLSecret: v.GetString("LOCAL_SIGNED_URL_SECRET"),
		},
	}

	cfg.Deletion = DeletionConfig{
		Workers:    v.GetInt("DELETION_WORKERS"),
		BufferSize: v.GetInt("DELETION_BUFFER_SIZE"),
		Retries:    v.GetInt("DELETION_RETRIES"),
		RetryDelay: parseDuration(v.GetString("DELETION_RETRY_DELAY"), 5*time.Second),
	}

	cfg.Cleanup = CleanupConfig{
		Interval:    parseDuration(v.GetString("CLEANUP_INTERVAL"), 0),
		BatchSize:   v.GetInt("CLEANUP_BATCH_SIZE"),
		Concurrency: v.GetInt("CLEANUP_CONCURRENCY"),
		Token:       v.GetString("CLEANUP_TOKEN"),
	}

	cfg.Retrieval = RetrievalConfig{
		MaxFailures:   v.GetInt("RETRIEVE_MAX_FAILURES"),
		FailureWindow: parseDuration(v.GetString("RETRIEVE_FAILURE_WINDOW"), 15*time.Minute),
	}

	return cfg
}

// Validate reports missing provider credentials. Callers treat a non-nil result as fatal.
func (c *Config) Validate() error {
	var problems []string

	switch c.Blob.Provider {
	case BlobProviderCloudinary:
		if c.Blob.Cloudinary.CloudName == "" || c.Blob.Cloudinary.APIKey == "" || c.Blob.Cloudinary.APISecret == "" {
			problems = append(problems, "CLOUDINARY_CLOUD_NAME, CLOUDINARY_API_KEY and CLOUDINARY_API_SECRET are required")
		}
	case BlobProviderS3:
		if c.Blob.S3.Bucket == "" || c.Blob.S3.Region == "" {
			problems = append(problems, "S3_BUCKET and S3_REGION are required")
		}
	case BlobProviderLocal:
		if c.Env == EnvProduction {
			problems = append(problems, "local blob provider is not allowed in production")
		}
		if c.Blob.Local.SignedURLSecret == "" {
			problems = append(problems, "LOCAL_SIGNED_URL_SECRET is required")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown BLOB_PROVIDER %q", c.Blob.Provider))
	}

	if c.JWT.Secret == "" && c.JWT.JWKSURL == "" {
		problems = append(problems, "JWT_SECRET or JWT_JWKS_URL is required")
	}
	if c.Env == EnvProduction && c.JWT.JWKSURL == "" && c.JWT.Secret == "dev_secret" {
		problems = append(problems, "JWT_SECRET must be overridden in production")
	}
	if c.Files.CodeLength < 4 || c.Files.CodeLength > 32 {
		problems = append(problems, "CODE_LENGTH must be between 4 and 32")
	}

	if len(problems) > 0 {
		return &ConfigurationError{Problems: problems}
	}
	return nil
}

// ConfigurationError lists every missing or invalid setting found at boot.
type ConfigurationError struct {
	Problems []string
}

func (e *ConfigurationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:8080")
	v.SetDefault("SHUTDOWN_TIMEOUT", "15s")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "vapor_share")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", false)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_JWKS_URL", "")
	v.SetDefault("JWT_ISSUER", "")
	v.SetDefault("JWT_AUDIENCE", "authenticated")
	v.SetDefault("JWT_LEEWAY", "30s")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("UPLOAD_MAX_FILE_SIZE", 10*1024*1024)
	v.SetDefault("FILE_RETENTION", "24h")
	v.SetDefault("CODE_LENGTH", 8)
	v.SetDefault("CODE_MAX_ATTEMPTS", 10)
	v.SetDefault("CODE_LEGIBLE_ALPHABET", true)
	v.SetDefault("STORAGE_FOLDER", "vapor-share")

	v.SetDefault("BLOB_PROVIDER", BlobProviderCloudinary)
	v.SetDefault("BLOB_HTTP_TIMEOUT", "30s")
	v.SetDefault("CLOUDINARY_BASE_URL", "https://api.cloudinary.com")
	v.SetDefault("S3_USE_PATH_STYLE", false)
	v.SetDefault("LOCAL_STORAGE_DIR", "./blobs")
	v.SetDefault("LOCAL_SIGNED_URL_SECRET", "")

	v.SetDefault("DELETION_WORKERS", 2)
	v.SetDefault("DELETION_BUFFER_SIZE", 256)
	v.SetDefault("DELETION_RETRIES", 3)
	v.SetDefault("DELETION_RETRY_DELAY", "5s")

	v.SetDefault("CLEANUP_INTERVAL", "0")
	v.SetDefault("CLEANUP_BATCH_SIZE", 100)
	v.SetDefault("CLEANUP_CONCURRENCY", 4)
	v.SetDefault("CLEANUP_TOKEN", "")

	v.SetDefault("RETRIEVE_MAX_FAILURES", 20)
	v.SetDefault("RETRIEVE_FAILURE_WINDOW", "15m")
}

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
