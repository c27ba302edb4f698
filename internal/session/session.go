// Package session manages the signed cookie that carries the authenticated
// user identity between requests. Tokens are JWTs signed with a shared secret;
// the cookie is http-only so scripts never see it.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/ngocanhtran/product-catalog/internal/config"
	"github.com/ngocanhtran/product-catalog/internal/model"
)

// ErrNoSession is returned when a request carries no valid session.
var ErrNoSession = errors.New("no valid session")

// Claims represents the JWT claims used by the system.
type Claims struct {
	jwt.RegisteredClaims
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// CurrentUser is the authenticated identity, passed explicitly through
// context into every service call.
type CurrentUser struct {
	ID       uuid.UUID
	Username string
}

type contextKey struct{}

// NewContext returns a context carrying the authenticated user.
func NewContext(ctx context.Context, user CurrentUser) context.Context {
	return context.WithValue(ctx, contextKey{}, user)
}

// FromContext extracts the authenticated user from the context.
func FromContext(ctx context.Context) (CurrentUser, bool) {
	user, ok := ctx.Value(contextKey{}).(CurrentUser)
	return user, ok
}

// Manager mints, parses and clears session cookies.
type Manager struct {
	cfg config.Auth
}

func NewManager(cfg config.Auth) *Manager {
	return &Manager{cfg: cfg}
}

// Issue builds a signed session token for the given user.
func (m *Manager) Issue(user model.User, now time.Time) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.cfg.SessionTTL)),
		},
		UserID:   user.ID.String(),
		Username: user.Username,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(m.cfg.SessionSecret))
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}

	return signed, nil
}

// Parse validates a session token and returns the user it names.
func (m *Manager) Parse(tokenString string) (CurrentUser, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(m.cfg.SessionSecret), nil
	})
	if err != nil || !token.Valid {
		return CurrentUser{}, ErrNoSession
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return CurrentUser{}, ErrNoSession
	}

	return CurrentUser{ID: userID, Username: claims.Username}, nil
}

// FromRequest reads and validates the session cookie on the request.
func (m *Manager) FromRequest(r *http.Request) (CurrentUser, error) {
	cookie, err := r.Cookie(m.cfg.CookieName)
	if err != nil {
		return CurrentUser{}, ErrNoSession
	}
	return m.Parse(cookie.Value)
}

// SetCookie attaches the session token to the response.
func (m *Manager) SetCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   m.cfg.CookieSecure,
		MaxAge:   int(m.cfg.SessionTTL.Seconds()),
	})
}

// ClearCookie expires the session cookie.
func (m *Manager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   m.cfg.CookieSecure,
		MaxAge:   -1,
	})
}
