package middleware

import (
	"context"
	"fmt"
	"time"

	"gstledger/internal/common"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// JWTConfig selects how bearer tokens are verified. When JWKSURL is set the signing keys are
// fetched from it, otherwise Secret is used as an HS256 key.
type JWTConfig struct {
	Secret  string
	JWKSURL string
}

// JWTMiddleware verifies bearer tokens and places the caller's id in the request context.
type JWTMiddleware struct {
	verify echo.MiddlewareFunc
	jwks   *keyfunc.JWKS
}

func NewJWTMiddleware(cfg JWTConfig, logger *zap.Logger) (*JWTMiddleware, error) {
	echoCfg := echojwt.Config{
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(jwt.RegisteredClaims)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			logger.Debug("jwt rejected", zap.Error(err))
			return common.SendUnauthorizedError(c)
		},
	}

	m := &JWTMiddleware{}
	if cfg.JWKSURL != "" {
		jwks, err := keyfunc.Get(cfg.JWKSURL, keyfunc.Options{
			RefreshInterval: time.Hour,
			RefreshErrorHandler: func(err error) {
				logger.Warn("jwks refresh failed", zap.Error(err))
			},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to load jwks: %w", err)
		}
		m.jwks = jwks
		echoCfg.KeyFunc = jwks.Keyfunc
	} else {
		echoCfg.SigningKey = []byte(cfg.Secret)
		echoCfg.SigningMethod = echojwt.AlgorithmHS256
	}

	m.verify = echojwt.WithConfig(echoCfg)
	return m, nil
}

// Handler verifies the token then resolves the caller from the subject claim.
func (m *JWTMiddleware) Handler() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return m.verify(SubjectToContext(next))
	}
}

// Close stops background JWKS refreshes.
func (m *JWTMiddleware) Close() {
	if m.jwks != nil {
		m.jwks.EndBackground()
	}
}

// SubjectToContext copies the verified token's subject into the request context.
func SubjectToContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := c.Get("user").(*jwt.Token)
		if !ok {
			return common.SendUnauthorizedError(c)
		}
		sub, err := token.Claims.GetSubject()
		if err != nil {
			return common.SendUnauthorizedError(c)
		}
		userID, err := uuid.Parse(sub)
		if err != nil {
			return common.SendUnauthorizedError(c)
		}

		ctx := context.WithValue(c.Request().Context(), common.UserIDKey, userID)
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}
