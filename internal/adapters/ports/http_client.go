package ports

import "net/http"

// HTTPClient is the transport capability the dispatcher and authenticator need:
// perform one request and return the status and body, or a transport failure.
// *http.Client satisfies it; tests inject mocks.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
