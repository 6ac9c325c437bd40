package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/staffdesk/staffdesk/pkg/actor"
	"github.com/staffdesk/staffdesk/pkg/httputil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// NewHTTPRequest creates a new HTTP request for testing handlers
func NewHTTPRequest(method, path string, body interface{}) *http.Request {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req := httptest.NewRequest(method, path, bodyReader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

// NewFormRequest creates a urlencoded form post
func NewFormRequest(method, path string, form url.Values) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// WithActor attaches an authenticated actor the way the auth middleware does
func WithActor(req *http.Request, a *actor.Actor) *http.Request {
	ctx := actor.WithActor(req.Context(), a)
	ctx = httputil.WithUserContext(ctx, a.Username, a.Role)
	return req.WithContext(ctx)
}

// ActorContext returns a background context carrying a
func ActorContext(a *actor.Actor) context.Context {
	return actor.WithActor(context.Background(), a)
}

// Admin, Manager and Employee build actors for tests.
func Admin(username string) *actor.Actor {
	return &actor.Actor{Username: username, Role: actor.RoleAdmin}
}

func Manager(username string, departmentID int64) *actor.Actor {
	return &actor.Actor{Username: username, Role: actor.RoleManager, DepartmentID: &departmentID}
}

func Employee(username string, departmentID int64) *actor.Actor {
	return &actor.Actor{Username: username, Role: actor.RoleEmployee, DepartmentID: &departmentID}
}

// ExecuteRequest executes an HTTP request and returns the response recorder
func ExecuteRequest(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

// AssertStatus asserts the response status code
func AssertStatus(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	assert.Equal(t, expected, rr.Code, "unexpected status code. Body: %s", rr.Body.String())
}

// ParseJSONBody parses the response envelope and decodes its data into target
func ParseJSONBody(t *testing.T, rr *httptest.ResponseRecorder, target interface{}) httputil.Response {
	t.Helper()
	var resp struct {
		httputil.Response
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp), "failed to parse response body: %s", rr.Body.String())
	if target != nil && len(resp.Data) > 0 {
		require.NoError(t, json.Unmarshal(resp.Data, target))
	}
	return resp.Response
}

// FixedClock returns a clock function that always reports t
func FixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// SkipIfShort skips the test if running with -short flag
func SkipIfShort(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
}

// PtrString returns a pointer to the string
func PtrString(s string) *string {
	return &s
}

// PtrInt64 returns a pointer to the int64
func PtrInt64(i int64) *int64 {
	return &i
}

// PtrTime returns a pointer to the time
func PtrTime(t time.Time) *time.Time {
	return &t
}
