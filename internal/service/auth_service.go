package service

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/noah-isme/vapor-share-api/internal/models"
	appErrors "github.com/noah-isme/vapor-share-api/pkg/errors"
)

// AuthConfig describes how bearer tokens from the identity provider are verified.
type AuthConfig struct {
	Secret          string
	JWKSURL         string
	Issuer          string
	Audience        string
	Leeway          time.Duration
	HTTPClient      *http.Client
	RefreshInterval time.Duration
}

// AuthService validates access tokens issued by the external identity provider. It never
// issues tokens itself.
type AuthService struct {
	keyfunc jwt.Keyfunc
	options []jwt.ParserOption
	logger  *zap.Logger
}

// NewAuthService verifies tokens against the JWKS endpoint when one is configured and
// falls back to the shared HS256 secret otherwise.
func NewAuthService(ctx context.Context, cfg AuthConfig, logger *zap.Logger) (*AuthService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if cfg.JWKSURL == "" {
		if cfg.Secret == "" {
			return nil, fmt.Errorf("jwt secret or jwks url is required")
		}
		secret := []byte(cfg.Secret)
		return NewAuthServiceWithKeyfunc(func(*jwt.Token) (interface{}, error) {
			return secret, nil
		}, []string{jwt.SigningMethodHS256.Alg()}, cfg, logger), nil
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	refresh := cfg.RefreshInterval
	if refresh <= 0 {
		refresh = time.Hour
	}
	storage, err := jwkset.NewStorageFromHTTP(cfg.JWKSURL, jwkset.HTTPClientStorageOptions{
		Client:                    client,
		Ctx:                       ctx,
		NoErrorReturnFirstHTTPReq: true,
		RefreshInterval:           refresh,
		RefreshErrorHandler: func(_ context.Context, err error) {
			logger.Error("jwks refresh failed", zap.String("url", cfg.JWKSURL), zap.Error(err))
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create jwks storage: %w", err)
	}
	k, err := keyfunc.New(keyfunc.Options{Storage: storage})
	if err != nil {
		return nil, fmt.Errorf("create jwks keyfunc: %w", err)
	}

	return NewAuthServiceWithKeyfunc(k.Keyfunc, []string{"RS256", "ES256"}, cfg, logger), nil
}

// NewAuthServiceWithKeyfunc builds a validator around an explicit key source.
func NewAuthServiceWithKeyfunc(kf jwt.Keyfunc, methods []string, cfg AuthConfig, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	options := []jwt.ParserOption{
		jwt.WithValidMethods(methods),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Leeway),
	}
	if cfg.Issuer != "" {
		options = append(options, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		options = append(options, jwt.WithAudience(cfg.Audience))
	}
	return &AuthService{keyfunc: kf, options: options, logger: logger}
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, s.keyfunc, s.options...)
	if err != nil {
		s.logger.Debug("token rejected", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, appErrors.ErrUnauthorized.Message)
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "")
	}

	return claims, nil
}
