package daraja

import (
	"net/http"
	"strings"
)

// Endpoint describes one remote operation. The dispatcher is driven entirely
// by these descriptors; typed front doors live in pkg/mpesa.
type Endpoint struct {
	// Name labels logs and metrics (e.g. "b2c")
	Name string

	// Method is the HTTP method, POST for every business operation
	Method string

	// Path is relative to the environment base URL, without a leading slash
	Path string

	// Unauthenticated skips the bearer token. No provider endpoint sets it today.
	Unauthenticated bool

	// RequiresSecurityCredential marks payloads that carry the encrypted initiator password
	RequiresSecurityCredential bool
}

// Post builds a bearer-authenticated POST endpoint descriptor
func Post(name, path string) Endpoint {
	return Endpoint{Name: name, Method: http.MethodPost, Path: path}
}

// WithSecurityCredential marks the endpoint as carrying an encrypted initiator password
func (e Endpoint) WithSecurityCredential() Endpoint {
	e.RequiresSecurityCredential = true
	return e
}

// URL joins the endpoint path onto a base URL
func (e Endpoint) URL(baseURL string) string {
	return joinURL(baseURL, e.Path)
}

func joinURL(baseURL, path string) string {
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(path, "/")
}
