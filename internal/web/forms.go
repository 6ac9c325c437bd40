package web

import (
	"net/http"
	"strings"

	"github.com/staffdesk/staffdesk/pkg/httputil"
)

// formString returns a trimmed form value
func formString(r *http.Request, name string) string {
	return strings.TrimSpace(r.FormValue(name))
}

// decodeForm fills req from the posted form through its form tags and validates it
func decodeForm(r *http.Request, req interface{}) error {
	if err := httputil.DecodeForm(r, req); err != nil {
		return err
	}
	return httputil.Validate(req)
}
