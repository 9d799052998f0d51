// Package remoteschema turns an upstream GraphQL endpoint into an executable schema
// whose fields are all resolved by the upstream it was introspected from.
package remoteschema

import (
	"bytes"
	"context"

	"github.com/machinebox/graphql"
	"github.com/pkg/errors"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"

	"github.com/wundergraph/github-graphql-proxy/pkg/introspection"
	"github.com/wundergraph/github-graphql-proxy/pkg/link"
)

// ErrNoSchema is returned when the upstream answers the introspection query without a usable __schema.
var ErrNoSchema = errors.New("introspection response does not describe a schema")

// Introspect sends the introspection query through l and converts the result into a schema document.
func Introspect(ctx context.Context, l *link.Link) (*ast.SchemaDocument, error) {
	client := graphql.NewClient(l.Endpoint(), graphql.WithHTTPClient(l.HTTPClient()))

	var data introspection.Data
	if err := client.Run(ctx, graphql.NewRequest(introspection.Query), &data); err != nil {
		return nil, errors.Wrap(err, "introspecting upstream schema")
	}

	if data.Schema.QueryType == nil || len(data.Schema.Types) == 0 {
		return nil, ErrNoSchema
	}

	converter := introspection.JsonConverter{}
	doc, err := converter.SchemaDocument(&data.Schema)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// RemoteSchema is a schema whose every field is resolved by forwarding requests through Link.
// SDL is what the execution engine plans upstream requests against.
type RemoteSchema struct {
	Name   string
	Link   *link.Link
	Schema *ast.Schema
	SDL    string
}

// MakeExecutable validates doc and binds it to l.
func MakeExecutable(name string, doc *ast.SchemaDocument, l *link.Link) (*RemoteSchema, error) {
	sdl := &bytes.Buffer{}
	formatter.NewFormatter(sdl, formatter.WithIndent("  ")).FormatSchemaDocument(doc)

	schema, err := gqlparser.LoadSchema(&ast.Source{Name: name, Input: sdl.String()})
	if err != nil {
		return nil, errors.Wrapf(err, "loading schema of %s", name)
	}

	return &RemoteSchema{
		Name:   name,
		Link:   l,
		Schema: schema,
		SDL:    sdl.String(),
	}, nil
}
