// Package proxy executes GraphQL requests against a composite schema. Every upstream of the
// composite becomes a data source of the execution engine, introspection is answered by the
// engine itself.
package proxy

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	log "github.com/jensneuse/abstractlogger"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"github.com/wundergraph/graphql-go-tools/execution/engine"
	"github.com/wundergraph/graphql-go-tools/execution/graphql"
	"github.com/wundergraph/graphql-go-tools/v2/pkg/engine/datasource/graphql_datasource"
	"github.com/wundergraph/graphql-go-tools/v2/pkg/engine/plan"
	"github.com/wundergraph/graphql-go-tools/v2/pkg/engine/resolve"
	"github.com/wundergraph/graphql-go-tools/v2/pkg/graphqlerrors"

	"github.com/wundergraph/github-graphql-proxy/pkg/merge"
)

const DefaultMaxConcurrency = 1024

var (
	ErrSubscriptionsUnsupported = errors.New("subscriptions are not supported")
	ErrEmptyRequest             = errors.New("the request does not contain a query")
)

type options struct {
	logger         log.Logger
	maxConcurrency int
}

type Option func(o *options)

func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMaxConcurrency bounds the number of requests resolved at the same time.
func WithMaxConcurrency(n int) Option {
	return func(o *options) {
		o.maxConcurrency = n
	}
}

// Executor is safe for concurrent use.
type Executor struct {
	schema *graphql.Schema
	engine *engine.ExecutionEngine
	log    log.Logger
}

// New configures an execution engine for composite. The engine lives as long as ctx.
func New(ctx context.Context, composite *merge.Composite, opts ...Option) (*Executor, error) {
	o := &options{
		logger:         log.NoopLogger,
		maxConcurrency: DefaultMaxConcurrency,
	}
	for _, opt := range opts {
		opt(o)
	}

	schema, err := graphql.NewSchemaFromString(composite.SDL)
	if err != nil {
		return nil, errors.Wrap(err, "loading composite schema")
	}

	engineConfig := engine.NewConfiguration(schema)
	for i, upstream := range composite.Upstreams {
		id := fmt.Sprintf("%s-%x", upstream.Remote.Name, composite.Fingerprint)
		dataSource, err := newDataSource(ctx, id, upstream, composite.RootFields(i))
		if err != nil {
			return nil, errors.Wrapf(err, "configuring upstream %s", upstream.Remote.Name)
		}
		engineConfig.AddDataSource(dataSource)
	}
	engineConfig.SetFieldConfigurations(fieldConfigurations(schema))

	executionEngine, err := engine.NewExecutionEngine(ctx, o.logger, engineConfig, resolve.ResolverOptions{
		MaxConcurrency:               o.maxConcurrency,
		PropagateSubgraphErrors:      true,
		PropagateSubgraphStatusCodes: true,
		SubgraphErrorPropagationMode: resolve.SubgraphErrorPropagationModePassThrough,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating execution engine")
	}

	return &Executor{
		schema: schema,
		engine: executionEngine,
		log:    o.logger,
	}, nil
}

// newDataSource binds the root fields routed to upstream to a GraphQL data source.
// Requests go through the authenticated client of the upstream's link.
func newDataSource(ctx context.Context, id string, upstream *merge.Upstream, roots []merge.RootFields) (plan.DataSource, error) {
	remote := upstream.Remote
	client := remote.Link.HTTPClient()

	subscriptionClient := graphql_datasource.NewGraphQLSubscriptionClient(client, client, ctx)
	factory, err := graphql_datasource.NewFactory(ctx, client, subscriptionClient)
	if err != nil {
		return nil, err
	}

	schemaConfiguration, err := graphql_datasource.NewSchemaConfiguration(remote.SDL, nil)
	if err != nil {
		return nil, err
	}

	configuration, err := graphql_datasource.NewConfiguration(graphql_datasource.ConfigurationInput{
		Fetch: &graphql_datasource.FetchConfiguration{
			URL:    remote.Link.Endpoint(),
			Method: http.MethodPost,
		},
		SchemaConfiguration: schemaConfiguration,
	})
	if err != nil {
		return nil, err
	}

	upstreamSchema, err := graphql.NewSchemaFromString(remote.SDL)
	if err != nil {
		return nil, err
	}
	upstreamRootNodes, childNodes := engine.NewLocalTypeFieldExtractor(upstreamSchema.Document()).GetAllNodes()
	if !upstream.StandardRoots {
		// Non-standard root types are plain types of the composite.
		childNodes = append(childNodes, upstreamRootNodes...)
	}

	rootNodes := make([]plan.TypeField, 0, len(roots))
	for _, root := range roots {
		rootNodes = append(rootNodes, plan.TypeField{
			TypeName:   root.TypeName,
			FieldNames: root.FieldNames,
		})
	}

	return plan.NewDataSourceConfiguration[graphql_datasource.Configuration](
		id,
		factory,
		&plan.DataSourceMetadata{
			RootNodes:  rootNodes,
			ChildNodes: childNodes,
		},
		configuration,
	)
}

// fieldConfigurations forwards the arguments of every field to the upstream.
func fieldConfigurations(schema *graphql.Schema) plan.FieldConfigurations {
	var configurations plan.FieldConfigurations
	for _, field := range schema.GetAllFieldArguments(graphql.NewSkipReservedNamesFunc()) {
		configuration := plan.FieldConfiguration{
			TypeName:  field.TypeName,
			FieldName: field.FieldName,
		}
		for _, name := range field.ArgumentNames {
			configuration.Arguments = append(configuration.Arguments, plan.ArgumentConfiguration{
				Name:       name,
				SourceType: plan.FieldArgumentSource,
			})
		}
		configurations = append(configurations, configuration)
	}
	return configurations
}

// Schema returns the composite schema requests are validated against.
func (e *Executor) Schema() *graphql.Schema {
	return e.schema
}

// Execute runs request and writes the GraphQL response to w. Request level failures are
// written as a response without data; the returned error only reports a failed write.
func (e *Executor) Execute(ctx context.Context, request *graphql.Request, w io.Writer) error {
	buf := bytes.NewBuffer(make([]byte, 0, 4096))
	if err := e.execute(ctx, request, buf); err != nil {
		e.log.Debug("proxy.Execute",
			log.String("operationName", request.OperationName),
			log.Error(err),
		)
		_, err = graphqlerrors.RequestErrorsFromError(err).WriteResponse(w)
		return err
	}

	if errorCount := gjson.GetBytes(buf.Bytes(), "errors.#").Int(); errorCount > 0 {
		e.log.Debug("proxy.Execute",
			log.String("operationName", request.OperationName),
			log.Int("errors", int(errorCount)),
		)
	}

	_, err := w.Write(buf.Bytes())
	return err
}

func (e *Executor) execute(ctx context.Context, request *graphql.Request, buf *bytes.Buffer) error {
	if strings.TrimSpace(request.Query) == "" {
		return ErrEmptyRequest
	}

	operationType, err := request.OperationType()
	if err != nil {
		return err
	}
	if operationType == graphql.OperationTypeSubscription {
		return ErrSubscriptionsUnsupported
	}

	resultWriter := graphql.NewEngineResultWriterFromBuffer(buf)
	return e.engine.Execute(ctx, request, &resultWriter)
}
