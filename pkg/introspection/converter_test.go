package introspection

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"
)

func loadFixtureSchema(t testing.TB) (*ast.SchemaDocument, *ast.Schema) {
	t.Helper()

	fixture, err := os.ReadFile("./testdata/github_introspection_data.json")
	require.NoError(t, err)

	converter := JsonConverter{}
	doc, err := converter.GraphQLDocument(bytes.NewReader(fixture))
	require.NoError(t, err)

	buf := &bytes.Buffer{}
	formatter.NewFormatter(buf).FormatSchemaDocument(doc)

	schema, err := gqlparser.LoadSchema(&ast.Source{Name: "github", Input: buf.String()})
	require.NoError(t, err, buf.String())

	return doc, schema
}

func TestJSONConverter_GraphQLDocument(t *testing.T) {
	doc, schema := loadFixtureSchema(t)

	t.Run("root operation types", func(t *testing.T) {
		require.Len(t, doc.Schema, 1)
		assert.Equal(t, "Query", schema.Query.Name)
		assert.Equal(t, "Mutation", schema.Mutation.Name)
		assert.Nil(t, schema.Subscription)
	})

	t.Run("built-ins are left out of the document", func(t *testing.T) {
		for _, definition := range doc.Definitions {
			assert.False(t, builtInScalars[definition.Name], definition.Name)
			assert.False(t, strings.HasPrefix(definition.Name, "__"), definition.Name)
		}
		require.Len(t, doc.Directives, 1)
		assert.Equal(t, "preview", doc.Directives[0].Name)
	})

	t.Run("type kinds", func(t *testing.T) {
		for name, kind := range map[string]ast.DefinitionKind{
			"User":             ast.Object,
			"Node":             ast.Interface,
			"SearchResultItem": ast.Union,
			"IssueState":       ast.Enum,
			"AddStarInput":     ast.InputObject,
			"DateTime":         ast.Scalar,
		} {
			require.NotNil(t, schema.Types[name], name)
			assert.Equal(t, kind, schema.Types[name].Kind, name)
		}
		assert.Equal(t, []string{"Node"}, schema.Types["User"].Interfaces)
		assert.Equal(t, []string{"Issue", "Repository", "User"}, schema.Types["SearchResultItem"].Types)
		assert.Equal(t, "An ISO-8601 encoded UTC date string.", schema.Types["DateTime"].Description)
	})

	t.Run("wrapped types", func(t *testing.T) {
		search := schema.Query.Fields.ForName("search")
		require.NotNil(t, search)
		assert.Equal(t, "[SearchResultItem!]!", search.Type.String())

		first := search.Arguments.ForName("first")
		require.NotNil(t, first)
		require.NotNil(t, first.DefaultValue)
		assert.Equal(t, "10", first.DefaultValue.String())

		states := schema.Types["Repository"].Fields.ForName("issues").Arguments.ForName("states")
		assert.Equal(t, "[IssueState!]", states.Type.String())
	})

	t.Run("deprecations", func(t *testing.T) {
		bio := schema.Types["User"].Fields.ForName("bio").Directives.ForName("deprecated")
		require.NotNil(t, bio)
		assert.Equal(t, "Use `profile` instead.", bio.Arguments.ForName("reason").Value.Raw)

		isLocked := schema.Types["Repository"].Fields.ForName("isLocked").Directives.ForName("deprecated")
		require.NotNil(t, isLocked)
		assert.Nil(t, isLocked.Arguments.ForName("reason"))

		assert.Nil(t, schema.Types["User"].Fields.ForName("login").Directives.ForName("deprecated"))
	})
}

func TestJSONConverter_Errors(t *testing.T) {
	run := func(input string, expectErr string) func(t *testing.T) {
		return func(t *testing.T) {
			converter := JsonConverter{}
			_, err := converter.GraphQLDocument(strings.NewReader(input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), expectErr)
		}
	}

	t.Run("invalid json", run(`{"__schema": `, "failed to parse introspection json"))
	t.Run("no query type", run(`{"__schema": {"types": []}}`, "introspection result has no query type"))
	t.Run("unknown kind", run(`{"__schema": {"queryType": {"name": "Query"}, "types": [{"kind": "THING", "name": "Query"}]}}`,
		`type Query: unknown kind "THING"`))
	t.Run("list without ofType", run(`{"__schema": {"queryType": {"name": "Query"}, "types": [
		{"kind": "OBJECT", "name": "Query", "fields": [{"name": "a", "type": {"kind": "LIST"}}]}
	]}}`, "Query.a: list type without ofType"))
	t.Run("invalid default value", run(`{"__schema": {"queryType": {"name": "Query"}, "types": [
		{"kind": "OBJECT", "name": "Query", "fields": [{"name": "a", "args": [{"name": "x", "defaultValue": "{", "type": {"kind": "SCALAR", "name": "Int"}}], "type": {"kind": "SCALAR", "name": "Int"}}]}
	]}}`, "invalid default value {"))
}

func TestDescription(t *testing.T) {
	assert.Equal(t, `say \"""hi\"""`, description(`say """hi"""`))
	assert.Equal(t, "plain", description("plain"))
}

func BenchmarkJsonConverter_GraphQLDocument(b *testing.B) {
	introspectedBytes, err := os.ReadFile("./testdata/github_introspection_data.json")
	require.NoError(b, err)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		converter := JsonConverter{}
		_, _ = converter.GraphQLDocument(bytes.NewReader(introspectedBytes))
	}
}
