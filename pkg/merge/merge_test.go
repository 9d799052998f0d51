package merge

import (
	"sort"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/wundergraph/github-graphql-proxy/pkg/remoteschema"
)

func remote(t *testing.T, name, sdl string) *remoteschema.RemoteSchema {
	t.Helper()

	doc, err := parser.ParseSchema(&ast.Source{Name: name, Input: sdl})
	require.NoError(t, err)

	schema, err := remoteschema.MakeExecutable(name, doc, nil)
	require.NoError(t, err)
	return schema
}

func typeNames(schema *ast.Schema) []string {
	names := make([]string, 0, len(schema.Types))
	for name := range schema.Types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func fieldNames(definition *ast.Definition) []string {
	var names []string
	for _, field := range definition.Fields {
		names = append(names, field.Name)
	}
	return names
}

const githubSDL = `
schema {
	query: Query
	mutation: Mutation
}

directive @preview(toggledBy: String!) on FIELD_DEFINITION

type Query {
	viewer: User!
	repository(owner: String!, name: String!): Repository
}

type Mutation {
	addStar(starrableId: ID!): Repository
}

interface Node {
	id: ID!
}

type User implements Node {
	id: ID!
	login: String!
}

type Repository implements Node {
	id: ID!
	name: String!
	state: RepositoryState @preview(toggledBy: "nebula")
}

enum RepositoryState {
	ACTIVE
	ARCHIVED
}
`

func TestMerge_SingleInput(t *testing.T) {
	input := remote(t, "github", githubSDL)

	composite, err := Merge(input)
	require.NoError(t, err)

	if diff := cmp.Diff(typeNames(input.Schema), typeNames(composite.Schema)); diff != "" {
		t.Errorf("queryable types differ (-input +composite):\n%s", diff)
	}

	for _, name := range typeNames(input.Schema) {
		if diff := cmp.Diff(fieldNames(input.Schema.Types[name]), fieldNames(composite.Schema.Types[name])); diff != "" {
			t.Errorf("fields of %s differ (-input +composite):\n%s", name, diff)
		}
	}

	assert.Equal(t, "Query", composite.Schema.Query.Name)
	assert.Equal(t, "Mutation", composite.Schema.Mutation.Name)
	assert.Nil(t, composite.Schema.Subscription)
	assert.NotNil(t, composite.Schema.Directives["preview"])

	require.Len(t, composite.Upstreams, 1)
	assert.True(t, composite.Upstreams[0].StandardRoots)
	assert.Equal(t, map[ast.Operation]map[string]int{
		ast.Query:    {"viewer": 0, "repository": 0},
		ast.Mutation: {"addStar": 0},
	}, composite.Routes, spew.Sdump(composite.Routes))

	assert.Same(t, input, composite.Upstreams[0].Remote)
	assert.Equal(t, []RootFields{
		{TypeName: "Query", FieldNames: []string{"viewer", "repository"}},
		{TypeName: "Mutation", FieldNames: []string{"addStar"}},
	}, composite.RootFields(0))
	assert.Empty(t, composite.RootFields(1))
}

func TestMerge_LastInputWins(t *testing.T) {
	first := remote(t, "first", `
		type Query { viewer: User shared: String }
		type User { login: String }
	`)
	second := remote(t, "second", `
		type Query { shared: Int other: Boolean }
		type User { login: String name: String }
	`)

	composite, err := Merge(first, second)
	require.NoError(t, err)

	assert.Equal(t, []string{"viewer", "shared", "other"}, fieldNames(composite.Schema.Query)[:3])
	assert.Equal(t, "Int", composite.Schema.Query.Fields.ForName("shared").Type.Name())
	assert.Equal(t, []string{"login", "name"}, fieldNames(composite.Schema.Types["User"]))
	assert.Equal(t, map[string]int{"viewer": 0, "shared": 1, "other": 1}, composite.Routes[ast.Query])
	assert.Equal(t, []RootFields{{TypeName: "Query", FieldNames: []string{"viewer"}}}, composite.RootFields(0))
	assert.Equal(t, []RootFields{{TypeName: "Query", FieldNames: []string{"shared", "other"}}}, composite.RootFields(1))
}

func TestMerge_NonStandardRootNames(t *testing.T) {
	input := remote(t, "relay", `
		schema { query: QueryRoot }
		type QueryRoot { version: String root: QueryRoot }
	`)

	composite, err := Merge(input)
	require.NoError(t, err)

	assert.False(t, composite.Upstreams[0].StandardRoots)
	assert.Equal(t, "Query", composite.Schema.Query.Name)
	assert.Equal(t, "QueryRoot", composite.Schema.Query.Fields.ForName("root").Type.Name())

	queryRoot := composite.Schema.Types["QueryRoot"]
	require.NotNil(t, queryRoot)
	assert.Equal(t, []string{"version", "root"}, fieldNames(queryRoot))
}

func TestMerge_Errors(t *testing.T) {
	t.Run("no input", func(t *testing.T) {
		_, err := Merge()
		assert.ErrorIs(t, err, ErrNoSchemas)
	})

	t.Run("root type name used by a plain type", func(t *testing.T) {
		input := remote(t, "odd", `
			schema { query: Root }
			type Root { a: String }
			type Mutation { b: String }
		`)
		_, err := Merge(input)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "merging odd")
	})
}

func TestMerge_Fingerprint(t *testing.T) {
	a, err := Merge(remote(t, "github", githubSDL))
	require.NoError(t, err)
	b, err := Merge(remote(t, "github", githubSDL))
	require.NoError(t, err)
	c, err := Merge(remote(t, "other", `type Query { a: String }`))
	require.NoError(t, err)

	assert.Equal(t, a.Fingerprint, b.Fingerprint)
	assert.NotEqual(t, a.Fingerprint, c.Fingerprint)
	assert.Equal(t, a.SDL, b.SDL)
}
