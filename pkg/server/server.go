// Package server exposes a GraphQL executor and its consoles over HTTP.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	gqlplayground "github.com/99designs/gqlgen/graphql/playground"
	log "github.com/jensneuse/abstractlogger"
	"github.com/pkg/errors"

	graphqlhttp "github.com/wundergraph/github-graphql-proxy/pkg/http"
	"github.com/wundergraph/github-graphql-proxy/pkg/playground"
)

const (
	GraphqlPath  = "/"
	GraphiQLPath = "/graphiql"

	shutdownTimeout = 5 * time.Second
)

type Config struct {
	// Addr is the listen address, host:port.
	Addr       string
	Playground playground.Settings
	Title      string
}

// Server serves one executor. It is started once and never reconfigured.
type Server struct {
	cfg      Config
	executor graphqlhttp.Executor
	log      log.Logger

	listener net.Listener
	http     *http.Server
	url      string

	announce sync.Once
}

func New(cfg Config, executor graphqlhttp.Executor, logger log.Logger) *Server {
	if logger == nil {
		logger = log.NoopLogger
	}
	if cfg.Title == "" {
		cfg.Title = "GitHub GraphQL"
	}
	return &Server{
		cfg:      cfg,
		executor: executor,
		log:      logger,
	}
}

// Handler builds the routes: GraphQL and the playground on /, GraphiQL on /graphiql.
func (s *Server) Handler() (http.Handler, error) {
	console := playground.New(playground.Config{
		PlaygroundPath:      GraphqlPath,
		GraphqlEndpointPath: GraphqlPath,
		Title:               s.cfg.Title,
		Settings:            s.cfg.Playground,
	})
	handlers, err := console.Handlers()
	if err != nil {
		return nil, errors.Wrap(err, "configuring playground")
	}

	mux := http.NewServeMux()
	mux.Handle(GraphqlPath, graphqlhttp.NewGraphqlHTTPHandler(s.executor, handlers[0].Handler, s.log))
	// GraphiQL keeps its own defaults; the console settings only reach the playground page.
	mux.Handle(GraphiQLPath, gqlplayground.Handler(s.cfg.Title, GraphqlPath))
	return mux, nil
}

// Listen binds the listen address. Bind failures are returned here, before anything is served.
func (s *Server) Listen() error {
	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return errors.Wrapf(err, "listening on %s", s.cfg.Addr)
	}
	s.Use(listener)
	return nil
}

// Use makes the server accept connections from an already bound listener.
func (s *Server) Use(listener net.Listener) {
	s.listener = listener
	s.url = ReachableURL(listener.Addr())
}

// URL is the externally reachable URL, available once the server is bound.
func (s *Server) URL() string {
	return s.url
}

// Serve serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		return errors.New("server is not bound, call Listen first")
	}

	handler, err := s.Handler()
	if err != nil {
		_ = s.listener.Close()
		return err
	}
	s.http = &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.announce.Do(func() {
		s.log.Info(fmt.Sprintf("Running at %s", s.url))
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.Serve(s.listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutting down")
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ReachableURL reports addr as a URL, unspecified hosts are reported as localhost.
func ReachableURL(addr net.Addr) string {
	host, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		return "http://" + addr.String() + GraphqlPath
	}
	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port) + GraphqlPath
}
