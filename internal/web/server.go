// Package web serves the server-rendered pages and their form posts.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gofiber/template/html/v2"
	"github.com/staffdesk/staffdesk/internal/auth/middleware"
	"github.com/staffdesk/staffdesk/pkg/actor"
	"github.com/staffdesk/staffdesk/pkg/errors"
	"github.com/staffdesk/staffdesk/pkg/logger"
)

//go:embed templates
var templateFS embed.FS

const layout = "layouts/main"

// Server renders pages for signed-in users
type Server struct {
	svc          Services
	views        *html.Engine
	auth         *middleware.Authenticator
	secureCookie bool
	logger       *logger.Logger
}

// New creates the web server. Unauthenticated requests to protected pages
// are redirected to the login form.
func New(svc Services, auth *middleware.Authenticator, secureCookie bool, log *logger.Logger) (*Server, error) {
	views, err := newEngine()
	if err != nil {
		return nil, err
	}

	s := &Server{
		svc:          svc,
		views:        views,
		secureCookie: secureCookie,
		logger:       log.WithComponent("web"),
	}
	s.auth = auth.WithFailureHandler(s.authFailure)
	return s, nil
}

func newEngine() (*html.Engine, error) {
	root, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, err
	}

	engine := html.NewFileSystem(http.FS(root), ".html")
	engine.AddFunc("date", func(t time.Time) string {
		return t.Format("2006-01-02")
	})
	engine.AddFunc("clock", func(t *time.Time) string {
		if t == nil {
			return "-"
		}
		return t.Format("15:04:05")
	})
	engine.AddFunc("money", func(v float64) string {
		return fmt.Sprintf("BDT %.2f", v)
	})
	engine.AddFunc("hours", func(v float64) string {
		return fmt.Sprintf("%.2f", v)
	})
	if err := engine.Load(); err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}
	return engine, nil
}

// Routes returns the handler for every page
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/login", s.LoginPage)
	r.Post("/login", s.Login)

	r.Group(func(r chi.Router) {
		r.Use(s.auth.Require)

		r.Post("/logout", s.Logout)
		r.Post("/password", s.ChangePassword)
		r.Get("/", s.Dashboard)

		r.Get("/attendance", s.AttendancePage)
		r.Post("/attendance/check-in", s.CheckIn)
		r.Post("/attendance/check-out", s.CheckOut)

		r.Get("/tasks", s.TasksPage)
		r.Post("/tasks", s.CreateTask)
		r.Post("/tasks/{id}/status", s.UpdateTaskStatus)

		r.Get("/payroll", s.PayrollPage)
		r.Post("/payroll", s.GeneratePayslip)
		r.Get("/payroll/{id}/pdf", s.PayslipPDF)

		r.Get("/departments", s.DepartmentsPage)
		r.Post("/departments", s.CreateDepartment)
		r.Post("/departments/{id}", s.UpdateDepartment)
		r.Post("/departments/{id}/delete", s.DeleteDepartment)

		r.Get("/users", s.UsersPage)
		r.Post("/users", s.CreateUser)
		r.Post("/users/{username}/active", s.SetUserActive)
		r.Post("/users/{username}/role", s.ChangeUserRole)

		r.Get("/notifications", s.NotificationsPage)
		r.Post("/notifications/read-all", s.MarkAllNotificationsRead)
		r.Post("/notifications/{id}/read", s.MarkNotificationRead)

		r.Get("/reports", s.ReportsPage)
		r.Get("/reports/download", s.DownloadReport)
		r.Get("/reports/employee/{username}/pdf", s.TaskReportPDF)
	})
	return r
}

// ============================================================================
// RENDERING
// ============================================================================

// view is the data every page template receives
type view map[string]any

// render executes a page inside the layout. Flash messages come from ?msg= and ?err=.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page, title string, data view) {
	if data == nil {
		data = view{}
	}
	data["Title"] = title
	data["Path"] = r.URL.Path
	data["User"] = actor.FromContext(r.Context())
	if _, ok := data["Msg"]; !ok {
		data["Msg"] = r.URL.Query().Get("msg")
	}
	if _, ok := data["Err"]; !ok {
		data["Err"] = r.URL.Query().Get("err")
	}

	var buf bytes.Buffer
	if err := s.views.Render(&buf, page, data, layout); err != nil {
		s.logger.Error().Err(err).Str("page", page).Msg("failed to render page")
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

// fail renders an AppError into the error page
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	appErr := errors.AsAppError(err)
	if appErr.StatusCode >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("page request failed")
	}
	if appErr.StatusCode == http.StatusUnauthorized {
		s.redirectLogin(w, r)
		return
	}
	s.render(w, r, appErr.StatusCode, "pages/error", "Error", view{
		"Err":     appErr.Message,
		"Details": appErr.Details,
	})
}

// authFailure handles requests the authenticator rejected
func (s *Server) authFailure(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, errors.ErrForbidden) {
		s.fail(w, r, err)
		return
	}
	s.clearCookie(w)
	s.redirectLogin(w, r)
}

func (s *Server) redirectLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// back redirects to path with a flash message
func back(w http.ResponseWriter, r *http.Request, path, msg string) {
	http.Redirect(w, r, withFlash(path, "msg", msg), http.StatusSeeOther)
}

// backWithError redirects to path carrying the error message
func backWithError(w http.ResponseWriter, r *http.Request, path string, err error) {
	msg := errors.Message(err)
	if details := errors.AsAppError(err).Details; len(details) > 0 {
		fields := make([]string, 0, len(details))
		for field := range details {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		msg = fields[0] + " " + details[fields[0]]
	}
	http.Redirect(w, r, withFlash(path, "err", msg), http.StatusSeeOther)
}

func withFlash(path, key, msg string) string {
	if msg == "" {
		return path
	}
	return path + "?" + url.Values{key: {msg}}.Encode()
}

func (s *Server) setCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}
