package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/autoparts-storefront/internal/backend"
	"github.com/fjod/autoparts-storefront/internal/domain"
	"github.com/fjod/autoparts-storefront/internal/session"
	"github.com/fjod/autoparts-storefront/internal/shopper"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	SessionCookie    = "sid"
	sessionCookieAge = 30 * 24 * time.Hour
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	shopperKey
)

// RequestIDMiddleware adds a unique request ID to each request
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = middleware.GetReqID(r.Context())
		}
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func getRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// RequestLogger logs one line per request.
func RequestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.InfoContext(r.Context(), "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", getRequestID(r.Context()),
			)
		})
	}
}

// SessionMiddleware resolves the browser session cookie to its shopper,
// issuing a new session id when the cookie is missing or malformed.
func SessionMiddleware(registry *shopper.Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid := ""
			if c, err := r.Cookie(SessionCookie); err == nil {
				if id, err := uuid.Parse(c.Value); err == nil {
					sid = id.String()
				}
			}
			if sid == "" {
				sid = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookie,
					Value:    sid,
					Path:     "/",
					MaxAge:   int(sessionCookieAge.Seconds()),
					HttpOnly: true,
					Secure:   r.TLS != nil,
					SameSite: http.SameSiteLaxMode,
				})
			}

			sh, err := registry.Get(r.Context(), sid)
			if err != nil {
				handleError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), shopperKey, sh)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func getShopper(ctx context.Context) *shopper.Shopper {
	sh, _ := ctx.Value(shopperKey).(*shopper.Shopper)
	return sh
}

type userClaims struct {
	UserID  string                 `json:"userId"`
	Name    string                 `json:"name"`
	Email   string                 `json:"email"`
	Phone   string                 `json:"phone"`
	Address domain.ShippingAddress `json:"address"`
	jwt.RegisteredClaims
}

var errNoSigningKey = errors.New("no token signing key configured")

// AuthMiddleware attaches the bearer token's principal to the request. A
// request without a token is anonymous; an invalid token is rejected. The
// shared session is never touched, so concurrent requests of one browser each
// see their own principal.
func AuthMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}

			scheme, tokenString, ok := strings.Cut(raw, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || tokenString == "" {
				respondError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
				return
			}

			user, err := parseUser(tokenString, secret)
			if err != nil {
				slog.WarnContext(r.Context(), "token validation failed", "error", err)
				respondError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
				return
			}

			ctx := domain.WithUser(r.Context(), user)
			ctx = backend.WithToken(ctx, tokenString)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// parseUser verifies an HS256 token. An empty secret verifies nothing, since
// anyone can sign with an empty key.
func parseUser(tokenString, secret string) (domain.User, error) {
	if secret == "" {
		return domain.User{}, errNoSigningKey
	}
	claims := &userClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return domain.User{}, err
	}

	id := claims.UserID
	if id == "" {
		id = claims.Subject
	}
	if strings.TrimSpace(id) == "" {
		return domain.User{}, jwt.ErrTokenInvalidClaims
	}

	return domain.User{
		ID:      id,
		Name:    claims.Name,
		Email:   claims.Email,
		Phone:   claims.Phone,
		Address: claims.Address,
		Token:   tokenString,
	}, nil
}

func requireUser(w http.ResponseWriter, r *http.Request) bool {
	if domain.UserFrom(r.Context()) != nil {
		return true
	}
	respondJSON(w, http.StatusUnauthorized, ErrorResponse{
		Error:    "please log in to continue",
		Code:     "login_required",
		Redirect: session.LoginRedirect(session.PathCheckout),
	})
	return false
}
