// Package merge composes remote schemas into a single schema and remembers which
// upstream serves each root field. The execution engine plans one data source per
// upstream from these routes.
package merge

import (
	"bytes"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"

	"github.com/wundergraph/github-graphql-proxy/pkg/remoteschema"
)

var ErrNoSchemas = errors.New("merge requires at least one schema")

var (
	source   = &ast.Source{Name: "composite"}
	position = &ast.Position{Src: source}
)

var rootTypeNames = map[ast.Operation]string{
	ast.Query:        "Query",
	ast.Mutation:     "Mutation",
	ast.Subscription: "Subscription",
}

var operations = []ast.Operation{ast.Query, ast.Mutation, ast.Subscription}

// Upstream is one merged input.
type Upstream struct {
	Remote *remoteschema.RemoteSchema
	// StandardRoots is true when the input names its root types Query, Mutation and Subscription.
	StandardRoots bool
}

// Composite is the merged schema.
type Composite struct {
	Schema    *ast.Schema
	SDL       string
	Upstreams []*Upstream
	// Routes maps each root field to the index of the upstream resolving it.
	Routes map[ast.Operation]map[string]int
	// Fingerprint identifies the composite SDL.
	Fingerprint uint64
}

// RootFields are the fields of one root type served by one upstream.
type RootFields struct {
	TypeName   string
	FieldNames []string
}

// RootFields lists the root fields routed to the upstream at index, in schema order.
func (c *Composite) RootFields(index int) []RootFields {
	var result []RootFields
	for _, operation := range operations {
		definition := c.rootDefinition(operation)
		if definition == nil {
			continue
		}

		fields := RootFields{TypeName: definition.Name}
		for _, field := range definition.Fields {
			if at, ok := c.Routes[operation][field.Name]; ok && at == index {
				fields.FieldNames = append(fields.FieldNames, field.Name)
			}
		}
		if len(fields.FieldNames) > 0 {
			result = append(result, fields)
		}
	}
	return result
}

func (c *Composite) rootDefinition(operation ast.Operation) *ast.Definition {
	switch operation {
	case ast.Query:
		return c.Schema.Query
	case ast.Mutation:
		return c.Schema.Mutation
	case ast.Subscription:
		return c.Schema.Subscription
	}
	return nil
}

// Merge combines schemas into one. Types and directives declared by more than one
// input are taken from the last input declaring them, and so are root fields.
func Merge(schemas ...*remoteschema.RemoteSchema) (*Composite, error) {
	if len(schemas) == 0 {
		return nil, ErrNoSchemas
	}

	m := &merger{
		types:      map[string]*ast.Definition{},
		directives: map[string]*ast.DirectiveDefinition{},
		roots:      map[ast.Operation]*root{},
		composite: &Composite{
			Routes: map[ast.Operation]map[string]int{},
		},
	}

	for i, schema := range schemas {
		if schema == nil || schema.Schema == nil {
			return nil, errors.Errorf("schema %d is nil", i)
		}
		if err := m.add(i, schema); err != nil {
			return nil, errors.Wrapf(err, "merging %s", schema.Name)
		}
	}

	doc := m.document()
	sdl := &bytes.Buffer{}
	formatter.NewFormatter(sdl, formatter.WithIndent("  ")).FormatSchemaDocument(doc)

	schema, err := gqlparser.LoadSchema(&ast.Source{Name: "composite", Input: sdl.String()})
	if err != nil {
		return nil, errors.Wrap(err, "loading composite schema")
	}

	m.composite.Schema = schema
	m.composite.SDL = sdl.String()
	m.composite.Fingerprint = xxhash.Sum64String(m.composite.SDL)

	return m.composite, nil
}

type root struct {
	fields ast.FieldList
	index  map[string]int
}

type merger struct {
	types      map[string]*ast.Definition
	directives map[string]*ast.DirectiveDefinition
	roots      map[ast.Operation]*root
	composite  *Composite
}

func (m *merger) add(index int, remote *remoteschema.RemoteSchema) error {
	schema := remote.Schema
	rootDefinitions := map[ast.Operation]*ast.Definition{
		ast.Query:        schema.Query,
		ast.Mutation:     schema.Mutation,
		ast.Subscription: schema.Subscription,
	}

	upstream := &Upstream{Remote: remote, StandardRoots: true}
	rootNames := map[string]bool{}
	for _, operation := range operations {
		definition := rootDefinitions[operation]
		if definition == nil {
			continue
		}
		rootNames[definition.Name] = true
		if definition.Name != rootTypeNames[operation] {
			upstream.StandardRoots = false
		}
		m.addRootFields(operation, index, definition)
	}
	m.composite.Upstreams = append(m.composite.Upstreams, upstream)

	for _, name := range sortedKeys(schema.Types) {
		definition := schema.Types[name]
		if definition.BuiltIn || strings.HasPrefix(name, "__") {
			continue
		}
		if rootNames[name] && isRootTypeName(name) {
			continue
		}
		if isRootTypeName(name) {
			return errors.Errorf("type %s is not a root type but uses a root type name", name)
		}
		m.types[name] = withoutIntrospectionFields(definition)
	}

	for _, name := range sortedKeys(schema.Directives) {
		directive := schema.Directives[name]
		if directive.Position != nil && directive.Position.Src != nil && directive.Position.Src.BuiltIn {
			continue
		}
		m.directives[name] = directive
	}

	return nil
}

func (m *merger) addRootFields(operation ast.Operation, index int, definition *ast.Definition) {
	r, ok := m.roots[operation]
	if !ok {
		r = &root{index: map[string]int{}}
		m.roots[operation] = r
		m.composite.Routes[operation] = map[string]int{}
	}

	for _, field := range definition.Fields {
		if strings.HasPrefix(field.Name, "__") {
			continue
		}
		if at, exists := r.index[field.Name]; exists {
			r.fields[at] = field
		} else {
			r.index[field.Name] = len(r.fields)
			r.fields = append(r.fields, field)
		}
		m.composite.Routes[operation][field.Name] = index
	}
}

func (m *merger) document() *ast.SchemaDocument {
	doc := &ast.SchemaDocument{}
	schemaDefinition := &ast.SchemaDefinition{Position: position}

	for _, operation := range operations {
		r, ok := m.roots[operation]
		if !ok || len(r.fields) == 0 {
			continue
		}
		name := rootTypeNames[operation]
		schemaDefinition.OperationTypes = append(schemaDefinition.OperationTypes, &ast.OperationTypeDefinition{
			Operation: operation,
			Type:      name,
			Position:  position,
		})
		doc.Definitions = append(doc.Definitions, &ast.Definition{
			Kind:     ast.Object,
			Name:     name,
			Fields:   r.fields,
			Position: position,
		})
	}
	doc.Schema = append(doc.Schema, schemaDefinition)

	for _, name := range sortedKeys(m.types) {
		doc.Definitions = append(doc.Definitions, m.types[name])
	}
	for _, name := range sortedKeys(m.directives) {
		doc.Directives = append(doc.Directives, m.directives[name])
	}

	return doc
}

func isRootTypeName(name string) bool {
	for _, rootName := range rootTypeNames {
		if name == rootName {
			return true
		}
	}
	return false
}

// withoutIntrospectionFields drops __schema and __type from a non-standard query root kept as a plain type.
func withoutIntrospectionFields(definition *ast.Definition) *ast.Definition {
	var introspection bool
	for _, field := range definition.Fields {
		if strings.HasPrefix(field.Name, "__") {
			introspection = true
			break
		}
	}
	if !introspection {
		return definition
	}

	copied := *definition
	copied.Fields = nil
	for _, field := range definition.Fields {
		if !strings.HasPrefix(field.Name, "__") {
			copied.Fields = append(copied.Fields, field)
		}
	}
	return &copied
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
