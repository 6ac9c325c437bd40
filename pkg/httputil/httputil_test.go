package httputil

import (
	"encoding/json"
	stderrors "errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/staffdesk/staffdesk/pkg/errors"
	"github.com/staffdesk/staffdesk/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestError_AppError(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, errors.BadRequest("Already checked in today."))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode(t, rec)
	assert.False(t, resp.Success)
	assert.Equal(t, "BAD_REQUEST", resp.Error.Code)
	assert.Equal(t, "Already checked in today.", resp.Error.Message)
}

func TestError_UnknownErrorIsInternal(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, stderrors.New("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decode(t, rec)
	assert.Equal(t, "an unexpected error occurred", resp.Error.Message)
}

func TestJSONWithMeta(t *testing.T) {
	rec := httptest.NewRecorder()
	JSONWithMeta(rec, http.StatusOK, []string{"a"}, &Meta{Total: 1})

	resp := decode(t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, int64(1), resp.Meta.Total)
}

func TestAttachment(t *testing.T) {
	rec := httptest.NewRecorder()
	Attachment(rec, "application/pdf", "payslip.pdf", []byte("%PDF-1.3"))

	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="payslip.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "8", rec.Header().Get("Content-Length"))
}

func TestQueryInt64(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/reports?department_id=7&bad=x", nil)

	v, err := QueryInt64(r, "department_id")
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)

	v, err = QueryInt64(r, "missing")
	require.NoError(t, err)
	assert.Zero(t, v)

	_, err = QueryInt64(r, "bad")
	assert.True(t, errors.Is(err, errors.ErrBadRequest))
}

func TestQueryDateAndList(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/attendance?from=2025-03-01&to=03/09&employees=bob,%20dan,,", nil)

	from, err := QueryDate(r, "from")
	require.NoError(t, err)
	require.NotNil(t, from)
	assert.Equal(t, 2025, from.Year())
	assert.Equal(t, 1, from.Day())

	_, err = QueryDate(r, "to")
	assert.True(t, errors.Is(err, errors.ErrBadRequest))

	missing, err := QueryDate(r, "since")
	require.NoError(t, err)
	assert.Nil(t, missing)

	assert.Equal(t, []string{"bob", "dan"}, QueryList(r, "employees"))
	assert.Nil(t, QueryList(r, "none"))
}

type loginForm struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,min=6"`
}

func TestValidate_UsesJSONNames(t *testing.T) {
	err := Validate(loginForm{Password: "abc"})

	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "this field is required", appErr.Details["username"])
	assert.Equal(t, "must be at least 6", appErr.Details["password"])

	assert.NoError(t, Validate(loginForm{Username: "alice", Password: "secret1"}))
}

type amountForm struct {
	Amount float64 `json:"amount" validate:"finite,gte=0"`
}

func TestValidate_Finite(t *testing.T) {
	for _, v := range []float64{math.Inf(1), math.Inf(-1), math.NaN()} {
		err := Validate(amountForm{Amount: v})

		var appErr *errors.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, "must be a finite number", appErr.Details["amount"])
	}

	assert.NoError(t, Validate(amountForm{Amount: 12.5}))
}

func TestDecodeJSON_Invalid(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{"))
	var v loginForm
	assert.True(t, errors.Is(DecodeJSON(r, &v), errors.ErrBadRequest))
}

func TestMiddleware_RequestIDAndRecover(t *testing.T) {
	var seen string
	panicky := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		RecordUsername(w, "alice")
		panic("boom")
	})

	h := RequestID(Logger(logger.Nop())(Recoverer(logger.Nop())(panicky)))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-1")
	h.ServeHTTP(rec, req)

	assert.Equal(t, "req-1", seen)
	assert.Equal(t, "req-1", rec.Header().Get("X-Request-ID"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestWithUserContext(t *testing.T) {
	ctx := WithUserContext(httptest.NewRequest(http.MethodGet, "/", nil).Context(), "bob", "Manager")
	assert.Equal(t, "bob", GetUsername(ctx))
	assert.Equal(t, "Manager", GetUserRole(ctx))
}
