package http

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/km-arc/go-interop/framework/http/validation"
)

// Request wraps *http.Request with the input helpers the framework's
// handlers need.
type Request struct {
	raw *http.Request
}

// NewRequest wraps a standard *http.Request.
func NewRequest(r *http.Request) *Request {
	return &Request{raw: r}
}

// RouteParam returns a chi URL parameter, path-unescaped so container keys
// may carry '/' as %2F. A malformed escape is returned as-is.
func (req *Request) RouteParam(key string) string {
	v := chi.URLParam(req.raw, key)
	if unescaped, err := url.PathUnescape(v); err == nil {
		return unescaped
	}
	return v
}

// OptionalBool parses a boolean query parameter. ok is false when the
// parameter is missing or empty; a malformed value returns *validation.Errors.
func (req *Request) OptionalBool(key string) (value, ok bool, err error) {
	raw := req.raw.URL.Query().Get(key)
	if err := validation.Check(map[string]string{key: raw}, validation.Rules{key: "sometimes|boolean"}); err != nil {
		return false, false, err
	}
	if raw == "" {
		return false, false, nil
	}
	value, _ = strconv.ParseBool(raw)
	return value, true, nil
}
