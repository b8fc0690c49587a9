package middleware

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	appctx "github.com/Ramsey-B/tulip/pkg/context"
	"github.com/Ramsey-B/tulip/pkg/errors"
	"github.com/Ramsey-B/tulip/pkg/models"
	"github.com/Ramsey-B/tulip/pkg/tracing"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/labstack/echo/v4"
)

const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

type UserClaims struct {
	Sub         string `json:"sub"`
	Email       string `json:"email"`
	RealmAccess struct {
		Roles []string `json:"roles"`
	} `json:"realm_access"`
}

// Role picks the strongest portal role among the realm roles.
func (c UserClaims) Role() models.Role {
	best := models.Role("")
	for _, r := range c.RealmAccess.Roles {
		switch models.Role(r) {
		case models.RoleAdmin:
			return models.RoleAdmin
		case models.RoleUploader:
			best = models.RoleUploader
		case models.RoleUser:
			if best == "" {
				best = models.RoleUser
			}
		}
	}
	return best
}

type tokenVerifier interface {
	verify(ctx context.Context, raw string) (UserClaims, error)
}

type oidcVerifier struct {
	verifier *oidc.IDTokenVerifier
}

func (v oidcVerifier) verify(ctx context.Context, raw string) (UserClaims, error) {
	var claims UserClaims
	idToken, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return claims, err
	}
	if err := idToken.Claims(&claims); err != nil {
		return claims, fmt.Errorf("cannot parse claims: %w", err)
	}
	return claims, nil
}

// Authentication verifies bearer tokens against the OIDC issuer and stores
// the subject and portal role on the request context.
func Authentication(ctx context.Context, logger ectologger.Logger, issuer, clientID string) (echo.MiddlewareFunc, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc provider: %w", err)
	}
	verifier := provider.Verifier(&oidc.Config{ClientID: clientID})
	return authenticate(logger, oidcVerifier{verifier: verifier}), nil
}

func authenticate(logger ectologger.Logger, verifier tokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, span := tracing.StartSpan(c.Request().Context(), "middleware.Authentication")
			defer span.End()

			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(auth, "Bearer ") {
				logger.WithContext(ctx).Warn("Request is missing bearer token")
				return errors.NotAuthenticated()
			}

			verifyCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			claims, err := verifier.verify(verifyCtx, strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				logger.WithContext(ctx).WithError(err).Warn("Token is invalid")
				return errors.NotAuthenticated()
			}

			ctx = appctx.SetUserID(ctx, claims.Sub)
			ctx = appctx.SetRole(ctx, string(claims.Role()))
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// HeaderAuth trusts X-User-ID and X-User-Role. Only for AUTH_ENABLED=false.
func HeaderAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()

			if userID := c.Request().Header.Get(HeaderUserID); userID != "" {
				ctx = appctx.SetUserID(ctx, userID)
			}
			if role := c.Request().Header.Get(HeaderUserRole); role != "" {
				ctx = appctx.SetRole(ctx, strings.ToLower(role))
			}

			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// RequireImportRole refuses anonymous callers with 401 and callers whose
// role cannot import with 403.
func RequireImportRole() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			if appctx.GetUserID(ctx) == "" {
				return errors.NotAuthenticated()
			}
			if !models.Role(appctx.GetRole(ctx)).CanImport() {
				return errors.Forbidden()
			}
			return next(c)
		}
	}
}

// RequireUser refuses anonymous callers.
func RequireUser() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if appctx.GetUserID(c.Request().Context()) == "" {
				return errors.NotAuthenticated()
			}
			return next(c)
		}
	}
}
