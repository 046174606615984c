package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"

	"github.com/cikmis/examclient/internal/api"
	"github.com/cikmis/examclient/internal/exam"
	"github.com/cikmis/examclient/internal/handler/views"
	"github.com/cikmis/examclient/internal/model"
	"github.com/cikmis/examclient/internal/store"
)

const (
	defaultAssistTimeout = 60 * time.Second
	defaultSessionTTL    = 2 * time.Hour
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	api     *api.Client
	assist  exam.Assistant
	store   *store.Store
	cookies *sessions.CookieStore
	exams   *registry
	config  model.ClientConfig

	assistTimeout time.Duration
	now           func() time.Time
}

// New creates a new Handler. assist answers explain and similar-question
// requests; pass the api client itself to use the exam service.
func New(c *api.Client, assist exam.Assistant, s *store.Store, cfg model.ClientConfig) (*Handler, error) {
	key := []byte(cfg.SessionKey)
	if len(key) == 0 {
		slog.Warn("no session key configured, visitor cookies will not survive a restart")
		key = securecookie.GenerateRandomKey(32)
	}
	cookies := sessions.NewCookieStore(key)
	assistTimeout := cfg.AssistTimeout
	if assistTimeout <= 0 {
		assistTimeout = defaultAssistTimeout
	}

	cookies.Options = &sessions.Options{
		Path:     cookiePath(cfg.BasePath),
		MaxAge:   30 * 24 * 3600,
		HttpOnly: true,
		Secure:   cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}

	return &Handler{
		api:           c,
		assist:        assist,
		store:         s,
		cookies:       cookies,
		exams:         newRegistry(defaultSessionTTL),
		config:        cfg,
		assistTimeout: assistTimeout,
		now:           time.Now,
	}, nil
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Use(h.csrfMiddleware, h.visitorMiddleware, h.loadAdmin)

	r.Get("/", h.handleHome)

	r.Get("/exam/{examID}", h.handleExamPage)
	r.Post("/exam/{examID}/answer", h.handleAnswer)
	r.Post("/exam/{examID}/next", h.handleNext)
	r.Post("/exam/{examID}/retry", h.handleRetry)
	r.Post("/exam/{examID}/explain", h.handleExplain)
	r.Post("/exam/{examID}/similar", h.handleSimilar)
	r.Post("/exam/{examID}/similar/close", h.handleCloseSimilar)

	r.Get("/admin/login", h.handleLoginPage)
	r.Post("/admin/login", h.handleLogin)
	r.Group(func(r chi.Router) {
		r.Use(h.requireAdmin)
		r.Get("/admin", h.handleWizardPage)
		r.Post("/admin/unit", h.handleWizardUnit)
		r.Post("/admin/info", h.handleWizardInfo)
		r.Post("/admin/questions", h.handleWizardQuestions)
		r.Post("/admin/logout", h.handleLogout)
	})
}

// BasePathMiddleware injects the configured base path into the request context.
func (h *Handler) BasePathMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := model.ContextWithBasePath(r.Context(), h.config.BasePath)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// path prefixes p with the base path.
func (h *Handler) path(p string) string {
	return h.config.BasePath + p
}

func cookiePath(basePath string) string {
	if basePath == "" {
		return "/"
	}
	return basePath + "/"
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}

// assistContext detaches an assist call from the request so it can finish
// after the redirect.
func (h *Handler) assistContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), h.assistTimeout)
}

func queryID(r *http.Request, name string) int64 {
	id, err := strconv.ParseInt(r.URL.Query().Get(name), 10, 64)
	if err != nil || id <= 0 {
		return 0
	}
	return id
}

// handleHome walks universities, departments, class levels and exams. Each
// level is chosen by a query parameter; names are looked up from the parent
// list so a stale id simply falls back one level.
func (h *Handler) handleHome(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var d views.HomeData
	status := http.StatusOK

	fail := func(err error) bool {
		if err == nil {
			return false
		}
		if !api.IsNotFound(err) {
			slog.Error("directory listing failed", "error", err)
			d.ErrorID = "ListFailed"
			status = http.StatusBadGateway
		}
		return true
	}

	unis, err := h.api.Universities(ctx)
	if fail(err) {
		h.render(w, r, status, views.HomePage(d))
		return
	}
	d.Universities = unis
	uniID := queryID(r, "university")
	for i := range unis {
		if unis[i].ID == uniID {
			d.University = &unis[i]
		}
	}
	if d.University == nil {
		h.render(w, r, status, views.HomePage(d))
		return
	}

	deps, err := h.api.Departments(ctx, d.University.ID)
	if fail(err) {
		h.render(w, r, status, views.HomePage(d))
		return
	}
	d.Departments = deps
	depID := queryID(r, "department")
	for i := range deps {
		if deps[i].ID == depID {
			d.Department = &deps[i]
		}
	}
	if d.Department == nil {
		h.render(w, r, status, views.HomePage(d))
		return
	}

	cls, err := h.api.ClassLevels(ctx, d.Department.ID)
	if fail(err) {
		h.render(w, r, status, views.HomePage(d))
		return
	}
	d.ClassLevels = cls
	classID := queryID(r, "class")
	for i := range cls {
		if cls[i].ID == classID {
			d.ClassLevel = &cls[i]
		}
	}
	if d.ClassLevel == nil {
		h.render(w, r, status, views.HomePage(d))
		return
	}

	exams, err := h.api.Exams(ctx, model.ExamFilter{
		UniversityID: d.University.ID,
		DepartmentID: d.Department.ID,
		ClassLevel:   d.ClassLevel.Level,
	})
	if !fail(err) {
		d.Exams = exams
	}
	h.render(w, r, status, views.HomePage(d))
}
