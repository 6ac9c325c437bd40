// Package middleware authenticates requests by bearer token or session
// cookie and puts the signed-in actor into the request context.
package middleware

import (
	"net/http"
	"strings"

	"github.com/staffdesk/staffdesk/internal/auth/session"
	"github.com/staffdesk/staffdesk/pkg/actor"
	"github.com/staffdesk/staffdesk/pkg/errors"
	"github.com/staffdesk/staffdesk/pkg/httputil"
	"github.com/staffdesk/staffdesk/pkg/logger"
)

// CookieName is the session cookie set by the web login form
const CookieName = "staffdesk_session"

// TokenValidator resolves a token to a live session
type TokenValidator interface {
	ValidateToken(token string) (*session.Session, error)
}

// FailureHandler writes the response for an unauthenticated or forbidden request
type FailureHandler func(w http.ResponseWriter, r *http.Request, err error)

// Authenticator guards routes that need a signed-in user
type Authenticator struct {
	validator TokenValidator
	onFailure FailureHandler
	logger    *logger.Logger
}

// NewAuthenticator creates an authenticator that answers failures with the JSON error envelope
func NewAuthenticator(validator TokenValidator, log *logger.Logger) *Authenticator {
	return &Authenticator{
		validator: validator,
		onFailure: func(w http.ResponseWriter, r *http.Request, err error) {
			httputil.Error(w, err)
		},
		logger: log,
	}
}

// WithFailureHandler returns a copy that reports failures through fn
func (a *Authenticator) WithFailureHandler(fn FailureHandler) *Authenticator {
	c := *a
	c.onFailure = fn
	return &c
}

// TokenFromRequest reads the bearer token, falling back to the session cookie
func TokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(CookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// Require rejects requests without a valid session
func (a *Authenticator) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r, err := a.authenticate(w, r)
		if err != nil {
			a.onFailure(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Optional attaches the actor when a valid session is present and continues either way
func (a *Authenticator) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if authed, err := a.authenticate(w, r); err == nil {
			r = authed
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Authenticator) authenticate(w http.ResponseWriter, r *http.Request) (*http.Request, error) {
	token := TokenFromRequest(r)
	if token == "" {
		return r, errUnauthenticated
	}

	sess, err := a.validator.ValidateToken(token)
	if err != nil {
		a.logger.Debug().Err(err).Str("path", r.URL.Path).Msg("session token rejected")
		return r, err
	}

	ctx := actor.WithActor(r.Context(), sess.Actor())
	ctx = httputil.WithUserContext(ctx, sess.Username, sess.Role)
	httputil.RecordUsername(w, sess.Username)
	return r.WithContext(ctx), nil
}

// RequirePermission rejects requests whose actor lacks permission. It must
// run after Require.
func (a *Authenticator) RequirePermission(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := actor.Require(r.Context(), permission); err != nil {
				a.onFailure(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

var errUnauthenticated = errors.Unauthorized("authentication required")
