package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/vncsmyrnk/election/internal/core/domain"
)

const accessTokenCookie = "access_token"

type contextKeyPrincipal struct{}

// PrincipalFrom returns the authenticated caller stored by Authenticator.
func PrincipalFrom(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(contextKeyPrincipal{}).(domain.Principal)
	return p, ok
}

func withPrincipal(ctx context.Context, p domain.Principal) context.Context {
	return context.WithValue(ctx, contextKeyPrincipal{}, p)
}

// Authenticator validates HS256 access tokens issued by the identity
// provider. The subject claim is the user id and the optional role claim
// defaults to voter.
type Authenticator struct {
	secret []byte
	logger *slog.Logger
}

func NewAuthenticator(secret string, logger *slog.Logger) *Authenticator {
	return &Authenticator{secret: []byte(secret), logger: logger}
}

// Authenticate attaches the principal when a token is present. Requests
// without a token pass through anonymously; invalid tokens are rejected.
func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := tokenFromRequest(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		principal, err := a.parse(token)
		if err != nil {
			a.logger.WarnContext(r.Context(), "unauthorized access - invalid token",
				"error", err,
				"request_id", middleware.GetReqID(r.Context()),
			)
			writeUnauthorized(w, "Invalid or expired token")
			return
		}

		next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), principal)))
	})
}

// RequireAuth rejects anonymous requests.
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := PrincipalFrom(r.Context()); !ok {
			a.logger.WarnContext(r.Context(), "unauthorized access - missing token",
				"request_id", middleware.GetReqID(r.Context()),
			)
			writeUnauthorized(w, "Missing or invalid Authorization header")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects anonymous and non-admin callers.
func (a *Authenticator) RequireAdmin(next http.Handler) http.Handler {
	return a.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, _ := PrincipalFrom(r.Context())
		if !principal.IsAdmin() {
			writeError(w, r, a.logger, domain.ErrAdminRequired)
			return
		}
		next.ServeHTTP(w, r)
	}))
}

func (a *Authenticator) parse(token string) (domain.Principal, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return domain.Principal{}, err
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return domain.Principal{}, err
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		return domain.Principal{}, errors.New("subject is not a user id")
	}

	role := domain.RoleVoter
	if raw, ok := claims["role"].(string); ok && raw != "" {
		role = domain.Role(raw)
	}
	if !role.Valid() {
		return domain.Principal{}, errors.New("unknown role claim")
	}

	return domain.Principal{ID: id, Role: role}, nil
}

func tokenFromRequest(r *http.Request) string {
	if after, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	if cookie, err := r.Cookie(accessTokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}

// RequestLogger logs one line per request once it completes.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			logger.InfoContext(r.Context(), "request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
