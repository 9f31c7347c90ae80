package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gatekeep/authserver/internal/services"
)

const maxFormBytes = 64 << 10

// CookieSettings controls the session cookie sent to browsers.
type CookieSettings struct {
	Name   string
	Secure bool
	// MaxAge of zero produces a browser-session cookie.
	MaxAge time.Duration
}

// AuthHandler serves the form-based register/login/logout flow and the
// protected dashboard.
type AuthHandler struct {
	auth   *services.AuthService
	guard  *services.Guard
	cookie CookieSettings
	pages  *pages
	logger *slog.Logger
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(auth *services.AuthService, guard *services.Guard, cookie CookieSettings, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		auth:   auth,
		guard:  guard,
		cookie: cookie,
		pages:  mustLoadPages(),
		logger: logger,
	}
}

// AuthRouter registers auth and page routes on the given router.
func AuthRouter(r chi.Router, h *AuthHandler) {
	r.Group(func(r chi.Router) {
		r.Use(h.Identify)

		r.Get("/", h.Index)
		r.Get("/register", h.RegisterPage)
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Get("/logout", h.Logout)
		r.With(h.RequireIdentity).Get("/dashboard", h.Dashboard)
	})
}

// Identify resolves the session cookie and stores the caller's identity in
// the request context. It never rejects a request.
func (h *AuthHandler) Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := services.Anonymous
		if cookie, err := r.Cookie(h.cookie.Name); err == nil {
			identity = h.guard.ResolveIdentity(cookie.Value)
		}
		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), identity)))
	})
}

// RequireIdentity sends anonymous callers to the index page instead of the
// protected handler.
func (h *AuthHandler) RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IdentityFromContext(r.Context()).Authenticated {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Index renders the landing page with the login form.
func (h *AuthHandler) Index(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "index", pageData{
		Title:    "Hello, world!",
		Message:  "Hello, world!",
		Identity: IdentityFromContext(r.Context()),
	})
}

// RegisterPage renders the registration form.
func (h *AuthHandler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "register", pageData{
		Title:    "Register",
		Identity: IdentityFromContext(r.Context()),
	})
}

// Register creates an account and sends the browser back to the login page.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	username, password, ok := readCredentials(w, r)
	if !ok {
		http.Redirect(w, r, "/register", http.StatusSeeOther)
		return
	}

	if err := h.auth.Register(r.Context(), username, password); err != nil {
		http.Redirect(w, r, "/register", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Login verifies credentials and sets the session cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	username, password, ok := readCredentials(w, r)
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	result, err := h.auth.Login(r.Context(), username, password)
	if err != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	http.SetCookie(w, h.sessionCookie(result.Token))
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// Logout tells the browser to drop the session cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	result := h.auth.Logout(r.Context(), IdentityFromContext(r.Context()))
	if result.DiscardToken {
		http.SetCookie(w, h.expiredCookie())
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Dashboard renders the protected page for the current user.
func (h *AuthHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "dashboard", pageData{
		Title:    "Dashboard",
		Message:  "Welcome to your dashboard",
		Identity: IdentityFromContext(r.Context()),
	})
}

func (h *AuthHandler) sessionCookie(token string) *http.Cookie {
	cookie := &http.Cookie{
		Name:     h.cookie.Name,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if h.cookie.MaxAge > 0 {
		cookie.MaxAge = int(h.cookie.MaxAge.Seconds())
		cookie.Expires = time.Now().Add(h.cookie.MaxAge)
	}
	return cookie
}

func (h *AuthHandler) expiredCookie() *http.Cookie {
	return &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (h *AuthHandler) render(w http.ResponseWriter, r *http.Request, name string, data pageData) {
	if err := h.pages.render(w, name, data); err != nil {
		h.logger.ErrorContext(r.Context(), "render page failed", "page", name, "error", err)
	}
}

// readCredentials parses a form body. Values are used exactly as submitted.
func readCredentials(w http.ResponseWriter, r *http.Request) (username, password string, ok bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		return "", "", false
	}
	return r.PostForm.Get("username"), r.PostForm.Get("password"), true
}
