package config

import (
	"errors"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestViper(overrides map[string]interface{}) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	for k, val := range overrides {
		v.Set(k, val)
	}
	return v
}

func TestFromViperDefaults(t *testing.T) {
	cfg := fromViper(newTestViper(nil))

	assert.Equal(t, int64(10*1024*1024), cfg.Files.MaxFileSizeBytes)
	assert.Equal(t, 24*time.Hour, cfg.Files.Retention)
	assert.Equal(t, 8, cfg.Files.CodeLength)
	assert.True(t, cfg.Files.CodeLegibleAlphabet)
	assert.Equal(t, "vapor-share", cfg.Files.StorageFolder)
	assert.Equal(t, BlobProviderCloudinary, cfg.Blob.Provider)
	assert.Equal(t, "https://api.cloudinary.com", cfg.Blob.Cloudinary.BaseURL)
	assert.Equal(t, time.Duration(0), cfg.Cleanup.Interval)
	assert.Equal(t, 100, cfg.Cleanup.BatchSize)
	assert.Equal(t, 15*time.Minute, cfg.Retrieval.FailureWindow)
}

func TestFromViperOverrides(t *testing.T) {
	cfg := fromViper(newTestViper(map[string]interface{}{
		"UPLOAD_MAX_FILE_SIZE": 2048,
		"FILE_RETENTION":       "2h",
		"BLOB_PROVIDER":        "S3",
		"ALLOWED_ORIGINS":      "https://a.example, https://b.example ,",
		"STORAGE_FOLDER":       "/shares/",
	}))

	assert.Equal(t, int64(2048), cfg.Files.MaxFileSizeBytes)
	assert.Equal(t, 2*time.Hour, cfg.Files.Retention)
	assert.Equal(t, BlobProviderS3, cfg.Blob.Provider)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "shares", cfg.Files.StorageFolder)
}

func TestValidateMissingCloudinaryCredentials(t *testing.T) {
	cfg := fromViper(newTestViper(nil))

	err := cfg.Validate()
	require.Error(t, err)
	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, cfgErr.Error(), "CLOUDINARY_CLOUD_NAME")
}

func TestValidateCloudinaryComplete(t *testing.T) {
	cfg := fromViper(newTestViper(map[string]interface{}{
		"CLOUDINARY_CLOUD_NAME": "demo",
		"CLOUDINARY_API_KEY":    "key",
		"CLOUDINARY_API_SECRET": "secret",
	}))

	assert.NoError(t, cfg.Validate())
}

func TestValidateLocalProviderRejectedInProduction(t *testing.T) {
	cfg := fromViper(newTestViper(map[string]interface{}{
		"ENV":                     EnvProduction,
		"BLOB_PROVIDER":           BlobProviderLocal,
		"LOCAL_SIGNED_URL_SECRET": "s",
		"JWT_SECRET":              "prod-secret",
	}))

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not allowed in production")
}

func TestValidateUnknownProvider(t *testing.T) {
	cfg := fromViper(newTestViper(map[string]interface{}{"BLOB_PROVIDER": "ftp"}))

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown BLOB_PROVIDER "ftp"`)
}
