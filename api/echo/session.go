package echoapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/mimoto-id/mimoto/domain"
	"github.com/mimoto-id/mimoto/internal/interaction"
)

type ctxKey int

const (
	echoCtxKey ctxKey = iota
	principalCtxKey
)

// sessionClaims is the JWT payload of the session cookie.
type sessionClaims struct {
	Username         string `json:"username,omitempty"`
	IdentityProvider string `json:"idp,omitempty"`
	jwt.RegisteredClaims
}

// CookieSessionManager keeps the local login session in a signed JWT cookie.
// It implements interaction.SessionManager; the orchestrators call it with a
// request context carrying the echo context, which SessionMiddleware
// installs.
type CookieSessionManager struct {
	secret     []byte
	cookieName string
	lifetime   time.Duration
	secure     bool
}

func NewCookieSessionManager(secret []byte, cookieName string, lifetime time.Duration, secure bool) *CookieSessionManager {
	return &CookieSessionManager{
		secret:     secret,
		cookieName: cookieName,
		lifetime:   lifetime,
		secure:     secure,
	}
}

// SignIn issues the session cookie for the principal.
func (m *CookieSessionManager) SignIn(ctx context.Context, principal *domain.Principal) error {
	ec, err := echoFromContext(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	claims := sessionClaims{
		Username:         principal.Username,
		IdentityProvider: principal.IdentityProvider(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principal.SubjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.lifetime)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return fmt.Errorf("failed to sign session token: %w", err)
	}

	ec.SetCookie(&http.Cookie{
		Name:     m.cookieName,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(m.lifetime.Seconds()),
		Secure:   m.secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// SignOut expires the session cookie.
func (m *CookieSessionManager) SignOut(ctx context.Context) error {
	ec, err := echoFromContext(ctx)
	if err != nil {
		return err
	}
	ec.SetCookie(&http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   m.secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// principalFromCookie parses and verifies the session cookie. Any problem
// with the cookie yields the anonymous principal rather than an error; a
// broken session just means the user logs in again.
func (m *CookieSessionManager) principalFromCookie(ec echo.Context) *domain.Principal {
	cookie, err := ec.Cookie(m.cookieName)
	if err != nil || cookie.Value == "" {
		return domain.Anonymous
	}

	var claims sessionClaims
	token, err := jwt.ParseWithClaims(cookie.Value, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid || claims.Subject == "" {
		return domain.Anonymous
	}

	principal := &domain.Principal{
		SubjectID: claims.Subject,
		Username:  claims.Username,
	}
	if claims.IdentityProvider != "" {
		principal.Claims = []domain.Claim{{
			Type:  domain.ClaimIdentityProvider,
			Value: claims.IdentityProvider,
		}}
	}
	return principal
}

// SessionMiddleware resolves the request principal from the session cookie
// and threads both the principal and the echo context through the request
// context for the orchestrators and the session manager.
func SessionMiddleware(manager *CookieSessionManager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ec echo.Context) error {
			ctx := ec.Request().Context()
			ctx = context.WithValue(ctx, echoCtxKey, ec)
			ctx = context.WithValue(ctx, principalCtxKey, manager.principalFromCookie(ec))
			ec.SetRequest(ec.Request().WithContext(ctx))
			return next(ec)
		}
	}
}

// PrincipalFromContext returns the request principal, or domain.Anonymous
// when the middleware has not run.
func PrincipalFromContext(ctx context.Context) *domain.Principal {
	if p, ok := ctx.Value(principalCtxKey).(*domain.Principal); ok {
		return p
	}
	return domain.Anonymous
}

func echoFromContext(ctx context.Context) (echo.Context, error) {
	ec, ok := ctx.Value(echoCtxKey).(echo.Context)
	if !ok {
		return nil, errors.New("no echo context in request context; session middleware missing")
	}
	return ec, nil
}

var _ interaction.SessionManager = (*CookieSessionManager)(nil)
