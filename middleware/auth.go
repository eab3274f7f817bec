package middleware

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"

	"sesi/internal/identity"
	"sesi/pkg/httpx"
	"sesi/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
)

type identityContextKey struct{}

// IdentityFromContext returns the identity attached by the access gate.
// The second return is false on anonymous requests.
func IdentityFromContext(ctx context.Context) (*identity.Identity, bool) {
	ident, ok := ctx.Value(identityContextKey{}).(*identity.Identity)
	return ident, ok
}

// AccessGate is the sole authentication boundary. It resolves a bearer token
// or cookie into an identity; all authorization (ownership checks) happens
// downstream in the session service.
type AccessGate struct {
	secret    []byte
	directory *identity.Directory
}

func NewAccessGate(secret string, directory *identity.Directory) *AccessGate {
	return &AccessGate{secret: []byte(secret), directory: directory}
}

// Require rejects the request with 401 before the handler runs unless a
// valid credential resolves to an existing user.
func (g *AccessGate) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident, err := g.resolve(r)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), identityContextKey{}, ident)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Optional resolves an identity when a credential is present and lets
// anonymous requests through. A credential that is present but invalid is
// still rejected, so a stale token never silently downgrades to anonymous.
func (g *AccessGate) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if extractToken(r) == "" {
			next.ServeHTTP(w, r)
			return
		}
		ident, err := g.resolve(r)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), identityContextKey{}, ident)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (g *AccessGate) resolve(r *http.Request) (*identity.Identity, error) {
	tokenString := extractToken(r)
	if tokenString == "" {
		return nil, httpx.Unauthenticated("Unauthorized request")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return g.secret, nil
	})
	if err != nil || !token.Valid {
		logger.Sugar.Debugf("Invalid token: %v", err)
		return nil, httpx.Unauthenticated("Invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, httpx.Unauthenticated("Could not parse token claims")
	}
	userID, ok := claims["sub"].(string)
	if !ok || userID == "" {
		return nil, httpx.Unauthenticated("User ID (sub) claim is missing or invalid")
	}

	ident, err := g.directory.Lookup(userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, httpx.Unauthenticated("Invalid access token")
		}
		return nil, err
	}
	return ident, nil
}

func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	if cookie, err := r.Cookie("accessToken"); err == nil {
		return cookie.Value
	}
	return ""
}
