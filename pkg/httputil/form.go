package httputil

import (
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/form/v4"
	"github.com/staffdesk/staffdesk/pkg/errors"
)

var formDecoder = form.NewDecoder()

// DecodeForm decodes the request's form values into v using its form tags.
// Fields that fail to parse are reported as validation details.
func DecodeForm(r *http.Request, v interface{}) error {
	if err := r.ParseForm(); err != nil {
		return errors.BadRequest("invalid form body")
	}
	if err := formDecoder.Decode(v, r.Form); err != nil {
		decodeErrs, ok := err.(form.DecodeErrors)
		if !ok {
			return errors.BadRequest("invalid form body")
		}
		details := make(map[string]string, len(decodeErrs))
		for field := range decodeErrs {
			details[field] = formFieldMessage(v, field)
		}
		return errors.Validation(details)
	}
	return nil
}

// formFieldMessage describes what the field named by its form tag expects
func formFieldMessage(v interface{}, field string) string {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return "invalid value"
	}

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if strings.SplitN(f.Tag.Get("form"), ",", 2)[0] != field {
			continue
		}
		kind := f.Type.Kind()
		if kind == reflect.Ptr {
			kind = f.Type.Elem().Kind()
		}
		switch kind {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return "must be a whole number"
		case reflect.Float32, reflect.Float64:
			return "must be a number"
		case reflect.Bool:
			return "must be true or false"
		}
		return "invalid value"
	}
	return "invalid value"
}
