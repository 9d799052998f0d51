// Package testutil provides a stub GitHub GraphQL upstream for tests.
package testutil

import (
	_ "embed"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// IntrospectionResponse is the upstream answer to the introspection query.
// The schema has Query.viewer: User!, Query.repository(owner, name): Repository and Mutation.addStar.
//
//go:embed testdata/introspection_response.json
var IntrospectionResponse []byte

// Request is the decoded body of a request received by the stub.
type Request struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
}

// RecordedRequest is a request received by the stub together with its headers.
type RecordedRequest struct {
	Header http.Header
	Body   Request
}

// IsIntrospection reports whether the recorded request asked for the schema.
func (r RecordedRequest) IsIntrospection() bool {
	return strings.Contains(r.Body.Query, "__schema")
}

// Responder answers a non-introspection request with a status code and a raw body.
type Responder func(request Request) (status int, body string)

// Upstream is an httptest server imitating the GitHub GraphQL endpoint.
type Upstream struct {
	server *httptest.Server

	mu            sync.Mutex
	requests      []RecordedRequest
	introspection []byte
	responder     Responder
}

type UpstreamOption func(u *Upstream)

// WithIntrospection replaces the body returned for introspection requests.
func WithIntrospection(body string) UpstreamOption {
	return func(u *Upstream) {
		u.introspection = []byte(body)
	}
}

func WithResponder(responder Responder) UpstreamOption {
	return func(u *Upstream) {
		u.responder = responder
	}
}

// StaticResponder always answers with status 200 and body.
func StaticResponder(body string) Responder {
	return func(Request) (int, string) {
		return http.StatusOK, body
	}
}

// NewUpstream starts the stub. It is closed when the test finishes.
// Without options it serves IntrospectionResponse and answers every other request
// with a viewer whose login is octocat.
func NewUpstream(t testing.TB, opts ...UpstreamOption) *Upstream {
	u := &Upstream{
		introspection: IntrospectionResponse,
		responder:     StaticResponder(`{"data":{"viewer":{"login":"octocat"}}}`),
	}
	for _, opt := range opts {
		opt(u)
	}

	u.server = httptest.NewServer(http.HandlerFunc(u.serveHTTP))
	t.Cleanup(u.server.Close)

	return u
}

func (u *Upstream) URL() string {
	return u.server.URL
}

// Client returns an http.Client for the stub without any authentication.
func (u *Upstream) Client() *http.Client {
	return u.server.Client()
}

// Requests returns a copy of all requests received so far.
func (u *Upstream) Requests() []RecordedRequest {
	u.mu.Lock()
	defer u.mu.Unlock()

	requests := make([]RecordedRequest, len(u.requests))
	copy(requests, u.requests)
	return requests
}

func (u *Upstream) RequestCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.requests)
}

func (u *Upstream) serveHTTP(w http.ResponseWriter, r *http.Request) {
	recorded := RecordedRequest{Header: r.Header.Clone()}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := json.Unmarshal(data, &recorded.Body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	u.mu.Lock()
	u.requests = append(u.requests, recorded)
	introspection, responder := u.introspection, u.responder
	u.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if recorded.IsIntrospection() {
		_, _ = w.Write(introspection)
		return
	}

	status, body := responder(recorded.Body)
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}
