// Package gateway runs the startup sequence of the proxy: configuration, introspection,
// composition and serving. Every stage completes or stops the sequence with a StartupError.
package gateway

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/jensneuse/abstractlogger"
	"github.com/pkg/errors"
	"github.com/shurcooL/graphql"
	"go.uber.org/atomic"

	"github.com/wundergraph/github-graphql-proxy/pkg/config"
	"github.com/wundergraph/github-graphql-proxy/pkg/link"
	"github.com/wundergraph/github-graphql-proxy/pkg/merge"
	"github.com/wundergraph/github-graphql-proxy/pkg/proxy"
	"github.com/wundergraph/github-graphql-proxy/pkg/remoteschema"
	"github.com/wundergraph/github-graphql-proxy/pkg/server"
)

// UpstreamName names the GitHub schema inside the composite.
const UpstreamName = "github"

type options struct {
	httpClient *http.Client
	logger     abstractlogger.Logger
	listener   net.Listener
}

type Option func(o *options)

// WithHTTPClient sets the client used for all upstream requests. Its transport is wrapped, not modified.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

func WithLogger(logger abstractlogger.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithListener serves on an already bound listener instead of binding the configured address.
func WithListener(listener net.Listener) Option {
	return func(o *options) {
		o.listener = listener
	}
}

func newOptions(opts []Option) *options {
	o := &options{
		httpClient: &http.Client{},
		logger:     abstractlogger.NoopLogger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Gateway is a started proxy. It moves from starting to serving once and stays there until closed.
type Gateway struct {
	cfg       config.Config
	composite *merge.Composite
	server    *server.Server
	log       abstractlogger.Logger

	serving *atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
	err     error
}

// Start runs all stages in order and returns once the server accepts connections.
// No server is bound when an earlier stage fails.
func Start(ctx context.Context, load config.Loader, opts ...Option) (*Gateway, error) {
	o := newOptions(opts)

	cfg, err := load()
	if err != nil {
		return nil, stageError(StageConfiguration, err)
	}

	composite, err := compose(ctx, cfg, o)
	if err != nil {
		return nil, err
	}

	serveCtx, cancel := context.WithCancel(ctx)
	executor, err := proxy.New(serveCtx, composite, proxy.WithLogger(o.logger))
	if err != nil {
		cancel()
		return nil, stageError(StageComposition, err)
	}

	srv := server.New(server.Config{
		Addr:       cfg.Addr(),
		Playground: cfg.Playground,
	}, executor, o.logger)

	if o.listener != nil {
		srv.Use(o.listener)
	} else if err := srv.Listen(); err != nil {
		cancel()
		return nil, stageError(StageBind, err)
	}

	g := &Gateway{
		cfg:       cfg,
		composite: composite,
		server:    srv,
		log:       o.logger,
		serving:   atomic.NewBool(true),
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	go func() {
		defer close(g.done)
		g.err = srv.Serve(serveCtx)
		g.serving.Store(false)
		if g.err != nil {
			g.log.Error("gateway.Serve", abstractlogger.Error(g.err))
		}
	}()

	return g, nil
}

// Compose runs the introspection and composition stages without serving.
func Compose(ctx context.Context, cfg config.Config, opts ...Option) (*merge.Composite, error) {
	return compose(ctx, cfg, newOptions(opts))
}

func compose(ctx context.Context, cfg config.Config, o *options) (*merge.Composite, error) {
	l := link.New(o.httpClient, cfg.Endpoint, link.StaticToken(cfg.Token), link.WithLogger(o.logger))

	if cfg.VerifyToken {
		login, err := verifyToken(ctx, l)
		if err != nil {
			return nil, stageError(StageIntrospection, err)
		}
		o.logger.Info("gateway.verifyToken", abstractlogger.String("login", login))
	}

	doc, err := remoteschema.Introspect(ctx, l)
	if err != nil {
		return nil, stageError(StageIntrospection, err)
	}
	o.logger.Debug("gateway.compose",
		abstractlogger.String("endpoint", cfg.Endpoint),
		abstractlogger.Int("types", len(doc.Definitions)),
	)

	remote, err := remoteschema.MakeExecutable(UpstreamName, doc, l)
	if err != nil {
		return nil, stageError(StageComposition, err)
	}

	composite, err := merge.Merge(remote)
	if err != nil {
		return nil, stageError(StageComposition, err)
	}
	o.logger.Info("gateway.compose",
		abstractlogger.String("endpoint", cfg.Endpoint),
		abstractlogger.String("fingerprint", fmt.Sprintf("%016x", composite.Fingerprint)),
	)
	return composite, nil
}

// verifyToken asks the upstream for the login of the token owner.
func verifyToken(ctx context.Context, l *link.Link) (string, error) {
	var query struct {
		Viewer struct {
			Login graphql.String
		}
	}

	client := graphql.NewClient(l.Endpoint(), l.HTTPClient())
	if err := client.Query(ctx, &query, nil); err != nil {
		return "", errors.Wrap(err, "verifying token")
	}
	return string(query.Viewer.Login), nil
}

func (g *Gateway) Config() config.Config {
	return g.cfg
}

func (g *Gateway) Composite() *merge.Composite {
	return g.composite
}

// Serving reports whether the server still accepts connections.
func (g *Gateway) Serving() bool {
	return g.serving.Load()
}

// URL is the externally reachable URL of the server.
func (g *Gateway) URL() string {
	return g.server.URL()
}

// Wait blocks until the server stopped and returns the reason.
func (g *Gateway) Wait() error {
	<-g.done
	return g.err
}

// Close shuts the server down gracefully.
func (g *Gateway) Close() error {
	g.cancel()
	return g.Wait()
}
