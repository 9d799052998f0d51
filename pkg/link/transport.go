package link

import (
	"net/http"

	log "github.com/jensneuse/abstractlogger"
)

const (
	authorizationHeader = "Authorization"
	bearerPrefix        = "Bearer "
)

// bearerTransport attaches a fixed bearer token to every request.
type bearerTransport struct {
	token string
	base  http.RoundTripper
	log   log.Logger
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTrippers must not modify the caller's request.
	req = req.Clone(req.Context())
	req.Header.Set(authorizationHeader, bearerPrefix+t.token)

	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}

	resp, err := base.RoundTrip(req)
	if err != nil {
		t.log.Error("link.RoundTrip",
			log.String("url", req.URL.String()),
			log.Error(err),
		)
		return nil, err
	}

	t.log.Debug("link.RoundTrip",
		log.String("method", req.Method),
		log.String("url", req.URL.String()),
		log.Int("status", resp.StatusCode),
	)
	return resp, nil
}
