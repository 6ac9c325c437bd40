package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/staffdesk/staffdesk/internal/auth/middleware"
	"github.com/staffdesk/staffdesk/internal/auth/session"
	"github.com/staffdesk/staffdesk/pkg/actor"
	"github.com/staffdesk/staffdesk/pkg/errors"
	"github.com/staffdesk/staffdesk/pkg/logger"
	"github.com/staffdesk/staffdesk/pkg/permissions"
	"github.com/stretchr/testify/assert"
)

type staticValidator map[string]*session.Session

func (v staticValidator) ValidateToken(token string) (*session.Session, error) {
	if s, ok := v[token]; ok {
		return s, nil
	}
	return nil, errors.TokenInvalid()
}

func echoActor() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a := actor.FromContext(r.Context())
		if a == nil {
			w.Write([]byte("anonymous"))
			return
		}
		w.Write([]byte(a.String()))
	})
}

func newAuthenticator() *middleware.Authenticator {
	return middleware.NewAuthenticator(staticValidator{
		"emp-token": {ID: "s1", Username: "bob", Role: "Employee"},
	}, logger.Nop())
}

func TestTokenFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "", middleware.TokenFromRequest(req))

	req.AddCookie(&http.Cookie{Name: middleware.CookieName, Value: "cookie-token"})
	assert.Equal(t, "cookie-token", middleware.TokenFromRequest(req))

	req.Header.Set("Authorization", "Bearer header-token")
	assert.Equal(t, "header-token", middleware.TokenFromRequest(req))
}

func TestRequire(t *testing.T) {
	handler := newAuthenticator().Require(echoActor())

	t.Run("missing token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer bogus")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid cookie sets actor", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: middleware.CookieName, Value: "emp-token"})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "bob (Employee)", rec.Body.String())
	})
}

func TestOptional(t *testing.T) {
	handler := newAuthenticator().Optional(echoActor())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "anonymous", rec.Body.String())
}

func TestRequirePermission(t *testing.T) {
	auth := newAuthenticator()
	handler := auth.Require(auth.RequirePermission(permissions.PayrollGenerate)(echoActor()))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer emp-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestWithFailureHandler(t *testing.T) {
	auth := newAuthenticator().WithFailureHandler(func(w http.ResponseWriter, r *http.Request, err error) {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	})

	rec := httptest.NewRecorder()
	auth.Require(echoActor()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tasks", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}
