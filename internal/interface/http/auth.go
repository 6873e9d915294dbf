package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/phishguard/phishguard-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// AUTHENTICATION
// Tokens are issued by an external identity provider. This service only
// verifies HS256 signatures and reads the user ID from the "sub" claim.
// ══════════════════════════════════════════════════════════════════════════════

// HeaderUserID carries the caller's user ID when header trust is enabled.
const HeaderUserID = "X-User-ID"

// AuthConfig configures request identity.
type AuthConfig struct {
	// JWTSecret is the HMAC key. Empty disables token verification.
	JWTSecret string

	// JWTIssuer, when set, must match the "iss" claim.
	JWTIssuer string

	// TrustUserHeader accepts X-User-ID without a token. Development only.
	TrustUserHeader bool

	// ClockSkew tolerated on exp/nbf/iat.
	ClockSkew time.Duration
}

var (
	errMissingToken   = errors.New("missing bearer token")
	errTokenDisabled  = errors.New("token verification is not configured")
	errInvalidSubject = errors.New("subject is not a user id")
)

// Authenticator resolves the caller's user ID.
type Authenticator struct {
	cfg    AuthConfig
	secret []byte
}

// NewAuthenticator creates an authenticator.
func NewAuthenticator(cfg AuthConfig) *Authenticator {
	if cfg.ClockSkew <= 0 {
		cfg.ClockSkew = time.Minute
	}
	return &Authenticator{cfg: cfg, secret: []byte(strings.TrimSpace(cfg.JWTSecret))}
}

type userIDKey struct{}

// WithUserID stores the authenticated user ID in ctx.
func WithUserID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, userIDKey{}, id)
}

// UserIDFromContext returns the authenticated user ID, if any.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey{}).(int64)
	return id, ok && id > 0
}

// Identify attaches the caller's identity to the request context. Requests
// without credentials pass through anonymously; bad credentials get 401.
func (a *Authenticator) Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := a.Resolve(r)
		switch {
		case errors.Is(err, errMissingToken):
			next.ServeHTTP(w, r)
		case err != nil:
			writeJSONError(w, r, http.StatusUnauthorized, "unauthorized", "Invalid credentials")
		default:
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), id)))
		}
	})
}

// RequireUser rejects anonymous requests with 401.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserIDFromContext(r.Context()); !ok {
			writeJSONError(w, r, http.StatusUnauthorized, "unauthorized", "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Resolve extracts the user ID from a bearer token or, when trusted, from
// the X-User-ID header. The token wins when both are present.
func (a *Authenticator) Resolve(r *http.Request) (int64, error) {
	if token := bearerToken(r.Header.Get("Authorization")); token != "" {
		return a.ParseToken(token)
	}
	if a.cfg.TrustUserHeader {
		if raw := strings.TrimSpace(r.Header.Get(HeaderUserID)); raw != "" {
			return parseUserID(raw)
		}
	}
	return 0, errMissingToken
}

// ParseToken verifies a signed token and returns its subject as a user ID.
func (a *Authenticator) ParseToken(token string) (int64, error) {
	if len(a.secret) == 0 {
		return 0, errTokenDisabled
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(a.cfg.ClockSkew),
		jwt.WithExpirationRequired(),
	}
	if a.cfg.JWTIssuer != "" {
		opts = append(opts, jwt.WithIssuer(a.cfg.JWTIssuer))
	}

	claims := &jwt.RegisteredClaims{}
	if _, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...); err != nil {
		return 0, fmt.Errorf("%w: %v", shared.ErrUnauthorized, err)
	}
	return parseUserID(claims.Subject)
}

func parseUserID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %w", shared.ErrUnauthorized, errInvalidSubject)
	}
	return id, nil
}

func bearerToken(header string) string {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
