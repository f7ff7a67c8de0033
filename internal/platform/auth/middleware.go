package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Claims are the JWT claims the identity provider issues. Only the email is
// trusted from the token; the role is always re-derived server-side.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// JWTConfig configures token verification.
type JWTConfig struct {
	Issuer   string
	Audience string
	// SigningKey is the HMAC verification secret.
	SigningKey []byte
}

// AdminChecker reports whether an email belongs to the admin allowlist.
type AdminChecker interface {
	IsAdminEmail(email string) bool
}

// UserResolver upserts the portal user record for a verified email and
// returns its id. First sight of an email creates the row.
type UserResolver interface {
	ResolveUser(ctx context.Context, email string, role Role) (uuid.UUID, error)
}

// Middleware validates the bearer token, derives the caller's role from the
// admin allowlist, resolves the user row, and attaches the Identity to the
// request context. Requests without a resolvable identity get 401.
func Middleware(cfg JWTConfig, admins AdminChecker, users UserResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims := &Claims{}
			opts := []jwt.ParserOption{
				jwt.WithValidMethods([]string{"HS256", "RS256"}),
			}
			if cfg.Issuer != "" {
				opts = append(opts, jwt.WithIssuer(cfg.Issuer))
			}
			if cfg.Audience != "" {
				opts = append(opts, jwt.WithAudience(cfg.Audience))
			}

			token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
				return cfg.SigningKey, nil
			}, opts...)
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			email := strings.TrimSpace(strings.ToLower(claims.Email))
			if email == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "token has no email")
			}

			role := RoleDoctor
			if admins.IsAdminEmail(email) {
				role = RoleAdmin
			}

			userID, err := users.ResolveUser(c.Request().Context(), email, role)
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "identity resolution failed")
			}

			ctx := WithIdentity(c.Request().Context(), Identity{
				UserID: userID,
				Email:  email,
				Role:   role,
			})
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// DevMiddleware grants every request an admin identity. Development only.
func DevMiddleware(users UserResolver) echo.MiddlewareFunc {
	const devEmail = "admin@tocdoc.com"
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, err := users.ResolveUser(c.Request().Context(), devEmail, RoleAdmin)
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "identity resolution failed")
			}
			ctx := WithIdentity(c.Request().Context(), Identity{
				UserID: userID,
				Email:  devEmail,
				Role:   RoleAdmin,
			})
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}
