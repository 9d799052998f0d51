package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/jensneuse/abstractlogger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wundergraph/graphql-go-tools/execution/graphql"
)

type recordingExecutor struct {
	mu       sync.Mutex
	requests []*graphql.Request
	response string
}

func (r *recordingExecutor) Execute(_ context.Context, request *graphql.Request, w io.Writer) error {
	r.mu.Lock()
	r.requests = append(r.requests, request)
	response := r.response
	r.mu.Unlock()

	if response == "" {
		response = fmt.Sprintf(`{"data":{"operation":%q}}`, request.OperationName)
	}
	_, err := io.WriteString(w, response)
	return err
}

func (r *recordingExecutor) Requests() []*graphql.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*graphql.Request(nil), r.requests...)
}

func newTestHandler() (*recordingExecutor, http.Handler) {
	executor := &recordingExecutor{
		response: `{"data":{"viewer":{"login":"octocat"}}}`,
	}
	console := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(httpHeaderContentType, "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html>console</html>"))
	})
	return executor, NewGraphqlHTTPHandler(executor, console, abstractlogger.NoopLogger)
}

func TestGraphQLHTTPRequestHandler_ServeHTTP(t *testing.T) {
	t.Run("should successfully handle a POST request and return 200 OK", func(t *testing.T) {
		executor, handler := newTestHandler()

		body := `{"query":"query Viewer($first: Int) { viewer { login } }","operationName":"Viewer","variables":{"first":10}}`
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, httpContentTypeApplicationJson, w.Header().Get(httpHeaderContentType))
		assert.JSONEq(t, `{"data":{"viewer":{"login":"octocat"}}}`, w.Body.String())

		requests := executor.Requests()
		require.Len(t, requests, 1)
		assert.Equal(t, "Viewer", requests[0].OperationName)
		assert.JSONEq(t, `{"first":10}`, string(requests[0].Variables))
	})

	t.Run("should handle a GET request with query parameters", func(t *testing.T) {
		executor, handler := newTestHandler()

		params := url.Values{}
		params.Set("query", "{ viewer { login } }")
		params.Set("variables", `{"login":"octocat"}`)
		req := httptest.NewRequest(http.MethodGet, "/?"+params.Encode(), nil)
		req.Header.Set(httpHeaderAccept, "text/html,application/json")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		requests := executor.Requests()
		require.Len(t, requests, 1)
		assert.Equal(t, "{ viewer { login } }", requests[0].Query)
		assert.JSONEq(t, `{"login":"octocat"}`, string(requests[0].Variables))
	})

	t.Run("should allow a named query next to a mutation on GET", func(t *testing.T) {
		executor, handler := newTestHandler()

		params := url.Values{}
		params.Set("query", `query Viewer { viewer { login } } mutation Star { addStar(input: {starrableId: "1"}) { clientMutationId } }`)
		params.Set("operationName", "Viewer")
		req := httptest.NewRequest(http.MethodGet, "/?"+params.Encode(), nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, executor.Requests(), 1)
	})

	t.Run("should return 405 Method Not Allowed for a mutation on GET", func(t *testing.T) {
		executor, handler := newTestHandler()

		for _, params := range []url.Values{
			{"query": {`mutation { addStar(input: {starrableId: "1"}) { clientMutationId } }`}},
			{
				"query":         {`query Viewer { viewer { login } } mutation Star { addStar(input: {starrableId: "1"}) { clientMutationId } }`},
				"operationName": {"Star"},
			},
		} {
			req := httptest.NewRequest(http.MethodGet, "/?"+params.Encode(), nil)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
			assert.Equal(t, http.MethodPost, w.Header().Get(httpHeaderAllow))
			assert.Contains(t, w.Body.String(), "GET supports only query operation")
		}

		assert.Empty(t, executor.Requests())
	})

	t.Run("should return 405 Method Not Allowed for a subscription on GET", func(t *testing.T) {
		executor, handler := newTestHandler()

		req := httptest.NewRequest(http.MethodGet, "/?query="+url.QueryEscape("subscription { starred { name } }"), nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
		assert.Equal(t, http.MethodPost, w.Header().Get(httpHeaderAllow))
		assert.Empty(t, executor.Requests())
	})

	t.Run("should execute a mutation sent with POST", func(t *testing.T) {
		executor, handler := newTestHandler()

		body := `{"query":"mutation { addStar(input: {starrableId: \"1\"}) { clientMutationId } }"}`
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, executor.Requests(), 1)
	})

	t.Run("should serve the console to browsers", func(t *testing.T) {
		executor, handler := newTestHandler()

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(httpHeaderAccept, "text/html,application/xhtml+xml")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "<html>console</html>", w.Body.String())
		assert.Empty(t, executor.Requests())
	})

	t.Run("should return 400 Bad Request when the body is not a GraphQL request", func(t *testing.T) {
		executor, handler := newTestHandler()

		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"query":`))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "POST body is not a valid GraphQL request")
		assert.Empty(t, executor.Requests())
	})

	t.Run("should return 400 Bad Request when the query is missing", func(t *testing.T) {
		_, handler := newTestHandler()

		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"variables":{}}`))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), `{"message":"GraphQL operations must contain a non-empty `+"`query`"+`."}`)
	})

	t.Run("should return 400 Bad Request when variables are not JSON", func(t *testing.T) {
		_, handler := newTestHandler()

		req := httptest.NewRequest(http.MethodGet, "/?query=%7B__typename%7D&variables=%7B", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), errInvalidVariables.Error())
	})

	t.Run("should return 200 OK with the errors written by the executor", func(t *testing.T) {
		executor, handler := newTestHandler()
		executor.response = `{"errors":[{"message":"field: nope not defined on type: Query"}]}`

		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"query":"{ nope }"}`))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"errors":[{"message":"field: nope not defined on type: Query"}]}`, w.Body.String())
	})

	t.Run("should reject other methods", func(t *testing.T) {
		_, handler := newTestHandler()

		req := httptest.NewRequest(http.MethodPut, "/", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
		assert.Equal(t, "GET, POST", w.Header().Get(httpHeaderAllow))
	})
}

func TestGraphQLHTTPRequestHandler_Batch(t *testing.T) {
	t.Run("should answer every operation in request order", func(t *testing.T) {
		executor, handler := newTestHandler()
		executor.response = ""

		body := `[
			{"query":"query A { viewer { login } }","operationName":"A"},
			{"query":"query B { viewer { login } }","operationName":"B"},
			{"query":"mutation C { addStar(input: {starrableId: \"1\"}) { clientMutationId } }","operationName":"C"}
		]`
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, httpContentTypeApplicationJson, w.Header().Get(httpHeaderContentType))
		assert.JSONEq(t, `[
			{"data":{"operation":"A"}},
			{"data":{"operation":"B"}},
			{"data":{"operation":"C"}}
		]`, w.Body.String())
		assert.Len(t, executor.Requests(), 3)
	})

	t.Run("should return 400 Bad Request for an empty batch", func(t *testing.T) {
		executor, handler := newTestHandler()

		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(` [] `))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), errEmptyBatch.Error())
		assert.Empty(t, executor.Requests())
	})

	t.Run("should return 400 Bad Request when one operation is invalid", func(t *testing.T) {
		executor, handler := newTestHandler()

		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`[{"query":"{ viewer { login } }"},{"variables":{}}]`))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "batched request 1")
		assert.Empty(t, executor.Requests())
	})

	t.Run("should return 400 Bad Request when an item is not an object", func(t *testing.T) {
		_, handler := newTestHandler()

		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`["{ viewer { login } }"]`))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "batched request 0 is not an object")
	})
}
