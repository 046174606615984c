package handler

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/cikmis/examclient/internal/api"
	"github.com/cikmis/examclient/internal/handler/views"
	appI18n "github.com/cikmis/examclient/internal/i18n"
	"github.com/cikmis/examclient/internal/model"
)

const (
	adminCookieName    = "admin_session"
	csrfCookieName     = "csrf_token"
	visitorSessionName = "examclient"
	visitorKey         = "visitor"
)

func generateCSRFToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// setCSRFCookie issues a fresh token and stores it in the request context.
func (h *Handler) setCSRFCookie(w http.ResponseWriter, r *http.Request) (*http.Request, bool) {
	token, err := generateCSRFToken()
	if err != nil {
		slog.Error("failed to generate CSRF token", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return r, false
	}
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     cookiePath(h.config.BasePath),
		HttpOnly: false,
		Secure:   h.config.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return r.WithContext(model.ContextWithCSRFToken(r.Context(), token)), true
}

// csrfMiddleware implements the double-submit cookie check for unsafe methods.
func (h *Handler) csrfMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			cookie, err := r.Cookie(csrfCookieName)
			if err != nil || cookie.Value == "" {
				slog.Warn("CSRF cookie missing", "path", r.URL.Path)
				http.Error(w, "csrf token missing", http.StatusForbidden)
				return
			}
			formToken := r.FormValue("csrf_token")
			if formToken == "" {
				slog.Warn("CSRF form token missing", "path", r.URL.Path)
				http.Error(w, "csrf token missing", http.StatusForbidden)
				return
			}
			if len(formToken) != len(cookie.Value) || subtle.ConstantTimeCompare([]byte(formToken), []byte(cookie.Value)) != 1 {
				slog.Warn("CSRF token mismatch", "path", r.URL.Path)
				http.Error(w, "invalid csrf token", http.StatusForbidden)
				return
			}
		}

		r, ok := h.setCSRFCookie(w, r)
		if !ok {
			return
		}
		next.ServeHTTP(w, r)
	})
}

type visitorCtxKey struct{}

func visitorFromContext(ctx context.Context) string {
	v, _ := ctx.Value(visitorCtxKey{}).(string)
	return v
}

// visitorMiddleware gives every browser a stable anonymous id kept in a signed
// cookie session. Exam sessions are keyed by it.
func (h *Handler) visitorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := h.cookies.Get(r, visitorSessionName)
		if err != nil {
			// A cookie signed with an old key decodes with an error but
			// still yields a fresh session.
			slog.Debug("visitor session reset", "error", err)
		}
		id, _ := sess.Values[visitorKey].(string)
		if id == "" {
			id = uuid.NewString()
			sess.Values[visitorKey] = id
			if err := sess.Save(r, w); err != nil {
				slog.Error("failed to save visitor session", "error", err)
			}
		}
		ctx := context.WithValue(r.Context(), visitorCtxKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// loadAdmin attaches the admin session, if any, so every page can show the
// admin navigation.
func (h *Handler) loadAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(adminCookieName)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}
		admin, err := h.store.GetAdminSession(cookie.Value)
		if err != nil {
			slog.Error("failed to get admin session", "error", err)
		}
		if admin != nil {
			r = r.WithContext(model.ContextWithAdmin(r.Context(), admin))
		}
		next.ServeHTTP(w, r)
	})
}

// requireAdmin redirects to the login page unless an admin is signed in.
func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if model.AdminFromContext(r.Context()) == nil {
			http.Redirect(w, r, h.path("/admin/login"), http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if model.AdminFromContext(r.Context()) != nil {
		http.Redirect(w, r, h.path("/admin"), http.StatusSeeOther)
		return
	}
	h.render(w, r, http.StatusOK, views.LoginPage("", ""))
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")

	tok, err := h.api.Login(r.Context(), username, password)
	if err != nil {
		slog.Warn("admin login failed", "username", username, "error", err)
		msg := api.DetailOf(err)
		if msg == "" {
			msg = appI18n.T(r.Context(), "LoginError")
		}
		h.render(w, r, http.StatusUnauthorized, views.LoginPage(username, msg))
		return
	}

	id, err := h.store.CreateAdminSession(username, tok.AccessToken)
	if err != nil {
		slog.Error("failed to create admin session", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     adminCookieName,
		Value:    id,
		Path:     cookiePath(h.config.BasePath),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.config.SecureCookies,
	})
	slog.Info("admin logged in", "username", username)
	http.Redirect(w, r, h.path("/admin"), http.StatusSeeOther)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(adminCookieName); err == nil && cookie.Value != "" {
		if err := h.store.DeleteAdminSession(cookie.Value); err != nil {
			slog.Error("failed to delete admin session", "error", err)
		}
	}
	h.clearWizard(w, r)

	http.SetCookie(w, &http.Cookie{
		Name:     adminCookieName,
		Value:    "",
		Path:     cookiePath(h.config.BasePath),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.SecureCookies,
	})
	http.Redirect(w, r, h.path("/"), http.StatusSeeOther)
}
