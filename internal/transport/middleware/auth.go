package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/frahmantamala/association-treasury/internal"
	"github.com/frahmantamala/association-treasury/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
)

// ActorClaims are the claims issued for association members. The subject
// carries the membership user id.
type ActorClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator validates bearer tokens and injects the acting user into the
// request context.
type Authenticator struct {
	secret []byte
	logger *slog.Logger
}

func NewAuthenticator(secret string, lg *slog.Logger) *Authenticator {
	if lg == nil {
		lg = logger.L()
	}
	return &Authenticator{secret: []byte(secret), logger: lg}
}

func (a *Authenticator) parseToken(tokenString string) (*ActorClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ActorClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*ActorClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			a.logger.Warn("auth middleware: missing authorization token", "path", r.URL.Path)
			writeUnauthorized(w, "missing authorization token")
			return
		}

		claims, err := a.parseToken(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			a.logger.Warn("auth middleware: token validation failed", "error", err)
			writeUnauthorized(w, "invalid token")
			return
		}

		actorID, err := strconv.ParseInt(claims.Subject, 10, 64)
		if err != nil {
			a.logger.Warn("auth middleware: malformed subject claim", "subject", claims.Subject)
			writeUnauthorized(w, "invalid token")
			return
		}

		ctx := internal.ContextWithActorID(r.Context(), actorID)
		ctx = logger.With(ctx, "actorID", actorID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	fmt.Fprintf(w, `{"code": %d, "message": %q}`, http.StatusUnauthorized, message)
}
