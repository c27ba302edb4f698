package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/ngocanhtran/product-catalog/internal/service"
	"github.com/ngocanhtran/product-catalog/internal/session"
)

type authHandler struct {
	*Service
	authSvc  service.AuthService
	sessions *session.Manager
}

func newAuthHandler(s *Service, authSvc service.AuthService, sessions *session.Manager) *authHandler {
	return &authHandler{
		Service:  s,
		authSvc:  authSvc,
		sessions: sessions,
	}
}

// RegisterForm handles GET /register/. An authenticated caller is sent back
// to the listing.
func (h *authHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	if h.redirectIfAuthenticated(w, r) {
		return
	}
	h.writeJSON(w, r, http.StatusOK, viewResponse{View: "register"})
}

// Register handles POST /register/. Success establishes a session right away,
// no separate login needed.
func (h *authHandler) Register(w http.ResponseWriter, r *http.Request) {
	if h.redirectIfAuthenticated(w, r) {
		return
	}

	if err := r.ParseForm(); err != nil {
		h.writeError(w, r, err)
		return
	}

	params := service.RegisterParams{
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
	}

	user, err := h.authSvc.Register(r.Context(), params)
	if err != nil {
		// Echo the username, never the password.
		h.writeFormError(w, r, err, map[string]string{"username": params.Username})
		return
	}

	token, err := h.sessions.Issue(user, time.Now())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "error issuing session", slog.Any("error", err))
		h.writeError(w, r, err)
		return
	}

	h.sessions.SetCookie(w, token)
	setFlash(w, "Registration successful")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// LoginForm handles GET /login/.
func (h *authHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if h.redirectIfAuthenticated(w, r) {
		return
	}
	h.writeJSON(w, r, http.StatusOK, viewResponse{View: "login"})
}

// Login handles POST /login/.
func (h *authHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h.redirectIfAuthenticated(w, r) {
		return
	}

	if err := r.ParseForm(); err != nil {
		h.writeError(w, r, err)
		return
	}

	params := service.LoginParams{
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
	}

	user, err := h.authSvc.Login(r.Context(), params)
	if err != nil {
		h.writeFormError(w, r, err, map[string]string{"username": params.Username})
		return
	}

	token, err := h.sessions.Issue(user, time.Now())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "error issuing session", slog.Any("error", err))
		h.writeError(w, r, err)
		return
	}

	h.sessions.SetCookie(w, token)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout handles GET and POST /logout/.
func (h *authHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.ClearCookie(w)
	http.Redirect(w, r, "/login/", http.StatusSeeOther)
}

func (h *authHandler) redirectIfAuthenticated(w http.ResponseWriter, r *http.Request) bool {
	if _, err := h.sessions.FromRequest(r); err == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return true
	}
	return false
}

type viewResponse struct {
	View string `json:"view"`
}
