package session_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ngocanhtran/product-catalog/internal/config"
	"github.com/ngocanhtran/product-catalog/internal/model"
	"github.com/ngocanhtran/product-catalog/internal/session"
)

func newManager(secret string) *session.Manager {
	return session.NewManager(config.Auth{
		SessionSecret: secret,
		SessionTTL:    time.Hour,
		CookieName:    "catalog_session",
	})
}

func TestIssueAndParse(t *testing.T) {
	manager := newManager("test-secret")
	user := model.User{ID: uuid.New(), Username: "alice"}

	token, err := manager.Issue(user, time.Now())
	require.NoError(t, err)

	current, err := manager.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, current.ID)
	assert.Equal(t, "alice", current.Username)
}

func TestParseRejectsForgedTokens(t *testing.T) {
	user := model.User{ID: uuid.New(), Username: "alice"}

	token, err := newManager("other-secret").Issue(user, time.Now())
	require.NoError(t, err)

	_, err = newManager("test-secret").Parse(token)
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestParseRejectsExpiredTokens(t *testing.T) {
	manager := newManager("test-secret")
	user := model.User{ID: uuid.New(), Username: "alice"}

	token, err := manager.Issue(user, time.Now().Add(-2*time.Hour))
	require.NoError(t, err)

	_, err = manager.Parse(token)
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestFromRequest(t *testing.T) {
	manager := newManager("test-secret")
	user := model.User{ID: uuid.New(), Username: "alice"}

	t.Run("no cookie", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		_, err := manager.FromRequest(r)
		assert.ErrorIs(t, err, session.ErrNoSession)
	})

	t.Run("cookie set by SetCookie round-trips", func(t *testing.T) {
		token, err := manager.Issue(user, time.Now())
		require.NoError(t, err)

		w := httptest.NewRecorder()
		manager.SetCookie(w, token)

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		for _, cookie := range w.Result().Cookies() {
			r.AddCookie(cookie)
		}

		current, err := manager.FromRequest(r)
		require.NoError(t, err)
		assert.Equal(t, user.ID, current.ID)
	})

	t.Run("cleared cookie no longer authenticates", func(t *testing.T) {
		w := httptest.NewRecorder()
		manager.ClearCookie(w)

		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Negative(t, cookies[0].MaxAge)
	})
}
