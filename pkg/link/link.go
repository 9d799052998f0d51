// Package link binds a single upstream endpoint to a bearer token. Every GraphQL client
// talking to the upstream dispatches through the link's HTTP client.
package link

import (
	"net/http"

	log "github.com/jensneuse/abstractlogger"
)

// TokenFunc produces the bearer token. It is called once when the Link is created.
type TokenFunc func() string

// StaticToken returns a TokenFunc for a fixed token.
func StaticToken(token string) TokenFunc {
	return func() string {
		return token
	}
}

type Option func(l *Link)

func WithLogger(logger log.Logger) Option {
	return func(l *Link) {
		l.log = logger
	}
}

// Link is a stateless, reusable request dispatcher bound to one upstream URL.
type Link struct {
	endpoint   string
	httpClient *http.Client
	log        log.Logger
}

// New wraps a copy of httpClient so that every request carries the token produced by token.
// A nil httpClient is replaced by a zero http.Client.
func New(httpClient *http.Client, endpoint string, token TokenFunc, opts ...Option) *Link {
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	l := &Link{
		endpoint: endpoint,
		log:      log.NoopLogger,
	}
	for _, opt := range opts {
		opt(l)
	}

	authenticated := *httpClient
	authenticated.Transport = &bearerTransport{
		token: token(),
		base:  httpClient.Transport,
		log:   l.log,
	}
	l.httpClient = &authenticated

	return l
}

func (l *Link) Endpoint() string {
	return l.endpoint
}

// HTTPClient returns the authenticated client.
func (l *Link) HTTPClient() *http.Client {
	return l.httpClient
}
