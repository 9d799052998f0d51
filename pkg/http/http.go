// Package http handles GraphQL requests over HTTP.
package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/buger/jsonparser"
	log "github.com/jensneuse/abstractlogger"
	"github.com/pkg/errors"
	"github.com/tidwall/sjson"
	"github.com/wundergraph/graphql-go-tools/execution/graphql"
	"github.com/wundergraph/graphql-go-tools/v2/pkg/graphqlerrors"
	"golang.org/x/sync/errgroup"
)

const (
	httpHeaderContentType string = "Content-Type"
	httpHeaderAccept      string = "Accept"
	httpHeaderAllow       string = "Allow"

	httpContentTypeApplicationJson string = "application/json"
	httpContentTypeTextHTML        string = "text/html"
)

const (
	// maxBodySize bounds the size of a GraphQL request body.
	maxBodySize = 8 << 20
	// maxBatchConcurrency bounds how many operations of one batch run at the same time.
	maxBatchConcurrency = 8
)

var (
	errMissingQuery      = errors.New("GraphQL operations must contain a non-empty `query`.")
	errEmptyBatch        = errors.New("batched requests must contain at least one operation")
	errGetNotQuery       = errors.New("GET supports only query operation")
	errInvalidVariables  = errors.New("variables are invalid JSON")
	errInvalidExtensions = errors.New("extensions are invalid JSON")
)

func (g *GraphQLHTTPRequestHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	request, err := decodeQueryParameters(r)
	if err != nil {
		g.badRequest(w, r, err)
		return
	}

	// A GET request must not change state upstream.
	if operationType, err := request.OperationType(); err == nil &&
		operationType != graphql.OperationTypeQuery && operationType != graphql.OperationTypeUnknown {
		w.Header().Set(httpHeaderAllow, http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, errGetNotQuery.Error())
		return
	}

	g.execute(w, r, request)
}

func (g *GraphQLHTTPRequestHandler) handlePost(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		g.badRequest(w, r, errors.Wrap(err, "reading request body"))
		return
	}

	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		requests, err := decodeBatch(data)
		if err != nil {
			g.badRequest(w, r, err)
			return
		}
		g.executeBatch(w, r, requests)
		return
	}

	request, err := decodeRequest(data)
	if err != nil {
		g.badRequest(w, r, err)
		return
	}
	g.execute(w, r, request)
}

func (g *GraphQLHTTPRequestHandler) execute(w http.ResponseWriter, r *http.Request, request *graphql.Request) {
	buf := bytes.NewBuffer(make([]byte, 0, 4096))
	if err := g.executor.Execute(r.Context(), request, buf); err != nil {
		g.log.Error("GraphQLHTTPRequestHandler.execute", log.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, buf.Bytes())
}

// executeBatch runs the operations of a batch concurrently and answers with their responses in request order.
func (g *GraphQLHTTPRequestHandler) executeBatch(w http.ResponseWriter, r *http.Request, requests []*graphql.Request) {
	responses := make([]*bytes.Buffer, len(requests))

	var eg errgroup.Group
	eg.SetLimit(maxBatchConcurrency)
	for i, request := range requests {
		responses[i] = &bytes.Buffer{}
		eg.Go(func() error {
			return g.executor.Execute(r.Context(), request, responses[i])
		})
	}
	if err := eg.Wait(); err != nil {
		g.log.Error("GraphQLHTTPRequestHandler.executeBatch", log.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	body := []byte("[]")
	for _, response := range responses {
		var err error
		if body, err = sjson.SetRawBytes(body, "-1", response.Bytes()); err != nil {
			g.log.Error("GraphQLHTTPRequestHandler.executeBatch", log.Error(err))
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func (g *GraphQLHTTPRequestHandler) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	g.log.Debug("GraphQLHTTPRequestHandler.badRequest",
		log.String("method", r.Method),
		log.Error(err),
	)
	writeError(w, http.StatusBadRequest, err.Error())
}

func decodeRequest(data []byte) (*graphql.Request, error) {
	var request graphql.Request
	if err := graphql.UnmarshalRequest(bytes.NewReader(data), &request); err != nil {
		return nil, errors.Wrap(err, "POST body is not a valid GraphQL request")
	}
	if strings.TrimSpace(request.Query) == "" {
		return nil, errMissingQuery
	}
	return &request, nil
}

func decodeBatch(data []byte) ([]*graphql.Request, error) {
	var (
		requests []*graphql.Request
		itemErr  error
	)
	_, err := jsonparser.ArrayEach(data, func(value []byte, dataType jsonparser.ValueType, _ int, _ error) {
		if itemErr != nil {
			return
		}
		if dataType != jsonparser.Object {
			itemErr = errors.Errorf("batched request %d is not an object", len(requests))
			return
		}
		request, err := decodeRequest(value)
		if err != nil {
			itemErr = errors.Wrapf(err, "batched request %d", len(requests))
			return
		}
		requests = append(requests, request)
	})
	if err != nil {
		return nil, errors.Wrap(err, "POST body is not a valid GraphQL batch")
	}
	if itemErr != nil {
		return nil, itemErr
	}
	if len(requests) == 0 {
		return nil, errEmptyBatch
	}
	return requests, nil
}

func decodeQueryParameters(r *http.Request) (*graphql.Request, error) {
	params := r.URL.Query()
	request := &graphql.Request{
		Query:         params.Get("query"),
		OperationName: params.Get("operationName"),
	}
	if strings.TrimSpace(request.Query) == "" {
		return nil, errMissingQuery
	}

	if raw := params.Get("variables"); raw != "" {
		if !json.Valid([]byte(raw)) {
			return nil, errInvalidVariables
		}
		request.Variables = json.RawMessage(raw)
	}
	if raw := params.Get("extensions"); raw != "" {
		if !json.Valid([]byte(raw)) {
			return nil, errInvalidExtensions
		}
		request.Extensions = json.RawMessage(raw)
	}
	return request, nil
}

func writeError(w http.ResponseWriter, status int, message string) {
	body := &bytes.Buffer{}
	_, _ = graphqlerrors.RequestErrors{{Message: message}}.WriteResponse(body)
	writeJSON(w, status, body.Bytes())
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set(httpHeaderContentType, httpContentTypeApplicationJson)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
