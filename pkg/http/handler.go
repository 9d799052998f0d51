package http

import (
	"context"
	"io"
	"net/http"
	"strings"

	log "github.com/jensneuse/abstractlogger"
	"github.com/wundergraph/graphql-go-tools/execution/graphql"
)

// Executor runs a GraphQL request and writes its response to w.
type Executor interface {
	Execute(ctx context.Context, request *graphql.Request, w io.Writer) error
}

// NewGraphqlHTTPHandler returns a handler answering GraphQL requests with executor.
// A GET request from a browser is answered by console when it is not nil.
func NewGraphqlHTTPHandler(executor Executor, console http.Handler, logger log.Logger) http.Handler {
	if logger == nil {
		logger = log.NoopLogger
	}
	return &GraphQLHTTPRequestHandler{
		log:      logger,
		executor: executor,
		console:  console,
	}
}

type GraphQLHTTPRequestHandler struct {
	log      log.Logger
	executor Executor
	console  http.Handler
}

func (g *GraphQLHTTPRequestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if g.console != nil && g.wantsConsole(r) {
			g.console.ServeHTTP(w, r)
			return
		}
		g.handleGet(w, r)
	case http.MethodPost:
		g.handlePost(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, "GraphQL only supports GET and POST requests.")
	}
}

// wantsConsole reports whether r is a browser navigation rather than a GraphQL GET request.
func (g *GraphQLHTTPRequestHandler) wantsConsole(r *http.Request) bool {
	if r.URL.Query().Get("query") != "" {
		return false
	}
	return strings.Contains(r.Header.Get(httpHeaderAccept), httpContentTypeTextHTML)
}
