package middleware // middleware provides reusable HTTP middleware for the API

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sweetshop/api/internal/model"
	"github.com/sweetshop/api/internal/utils"
)

// Context keys populated by the auth middleware.
const (
	CtxUser        = "user"         // *model.User (user realm)
	CtxAdmin       = "admin"        // *model.Admin (admin realm)
	CtxPrincipalID = "principal_id" // hex ObjectID of the authenticated principal
	CtxRealm       = "realm"        // utils.RealmUser or utils.RealmAdmin
)

// Machine-readable error codes carried in the response envelope so clients
// can tell an expired token (worth one refresh-and-retry) from a bad one.
const (
	CodeNoToken      = "NO_TOKEN"
	CodeTokenExpired = "TOKEN_EXPIRED"
	CodeTokenInvalid = "TOKEN_INVALID"
	CodeDeactivated  = "DEACTIVATED"
	CodeForbidden    = "FORBIDDEN"
)

// UserSource loads customer principals for token verification.
type UserSource interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// AdminSource loads admin principals for token verification.
type AdminSource interface {
	GetByID(ctx context.Context, id string) (*model.Admin, error)
}

// Authenticate returns middleware that requires a valid user-realm access
// token, loads the customer and rejects deactivated accounts.
func Authenticate(secret string, users UserSource) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, errCode := verifyBearer(secret, c)
			if errCode != "" {
				return unauthorized(c, errCode)
			}
			if claims.Realm != utils.RealmUser {
				return unauthorized(c, CodeTokenInvalid)
			}
			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()
			u, err := users.GetByID(ctx, claims.Subject)
			if err != nil {
				return unauthorized(c, CodeTokenInvalid)
			}
			if !u.IsActive {
				return unauthorized(c, CodeDeactivated)
			}
			c.Set(CtxUser, u)
			c.Set(CtxPrincipalID, claims.Subject)
			c.Set(CtxRealm, claims.Realm)
			return next(c)
		}
	}
}

// AuthenticateAdmin returns middleware that requires a valid admin-realm
// access token. Tokens whose realm claim is not "admin" are rejected even
// when otherwise valid.
func AuthenticateAdmin(secret string, admins AdminSource) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, errCode := verifyBearer(secret, c)
			if errCode != "" {
				return unauthorized(c, errCode)
			}
			if claims.Realm != utils.RealmAdmin {
				return unauthorized(c, CodeTokenInvalid)
			}
			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()
			a, err := admins.GetByID(ctx, claims.Subject)
			if err != nil {
				return unauthorized(c, CodeTokenInvalid)
			}
			if !a.IsActive {
				return unauthorized(c, CodeDeactivated)
			}
			c.Set(CtxAdmin, a)
			c.Set(CtxPrincipalID, claims.Subject)
			c.Set(CtxRealm, claims.Realm)
			return next(c)
		}
	}
}

// AuthenticateOptional attaches the customer when a resolvable user-realm
// token is present and silently proceeds unauthenticated otherwise. Used on
// the sweet detail route for view tracking without forcing a login.
func AuthenticateOptional(secret string, users UserSource) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, errCode := verifyBearer(secret, c)
			if errCode != "" || claims.Realm != utils.RealmUser {
				return next(c)
			}
			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()
			if u, err := users.GetByID(ctx, claims.Subject); err == nil && u.IsActive {
				c.Set(CtxUser, u)
				c.Set(CtxPrincipalID, claims.Subject)
				c.Set(CtxRealm, claims.Realm)
			}
			return next(c)
		}
	}
}

// RequireAdminRole enforces that the authenticated admin holds one of the
// allowed roles. Must run after AuthenticateAdmin.
func RequireAdminRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			a, ok := c.Get(CtxAdmin).(*model.Admin)
			if !ok || !allowed[a.Role] {
				return c.JSON(http.StatusForbidden, echo.Map{
					"success": false,
					"message": "insufficient privileges",
					"error":   CodeForbidden,
				})
			}
			return next(c)
		}
	}
}

// verifyBearer extracts and verifies the Authorization bearer token,
// returning an error code on failure.
func verifyBearer(secret string, c echo.Context) (utils.Claims, string) {
	auth := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return utils.Claims{}, CodeNoToken
	}
	raw := strings.TrimPrefix(auth, "Bearer ")
	claims, err := utils.ParseAccessToken(secret, raw)
	if err != nil {
		if err == utils.ErrTokenExpired {
			return utils.Claims{}, CodeTokenExpired
		}
		return utils.Claims{}, CodeTokenInvalid
	}
	return claims, ""
}

func unauthorized(c echo.Context, code string) error {
	msg := "authentication required"
	switch code {
	case CodeTokenExpired:
		msg = "access token expired"
	case CodeTokenInvalid:
		msg = "invalid access token"
	case CodeDeactivated:
		msg = "account is deactivated"
	}
	return c.JSON(http.StatusUnauthorized, echo.Map{
		"success": false,
		"message": msg,
		"error":   code,
	})
}
