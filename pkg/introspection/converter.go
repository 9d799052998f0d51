package introspection

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

const defaultDeprecationReason = "No longer supported"

var (
	source   = &ast.Source{Name: "introspection"}
	position = &ast.Position{Src: source}
)

var builtInScalars = map[string]bool{
	"String":  true,
	"Int":     true,
	"Float":   true,
	"Boolean": true,
	"ID":      true,
}

var builtInDirectives = map[string]bool{
	"include":     true,
	"skip":        true,
	"deprecated":  true,
	"specifiedBy": true,
	"defer":       true,
	"oneOf":       true,
}

// JsonConverter converts an introspection result into a schema document.
// Built-in scalars, built-in directives and introspection types are left out,
// a schema definition naming the root operation types is always emitted.
type JsonConverter struct {
	schema *Schema
	doc    *ast.SchemaDocument
}

func (j *JsonConverter) GraphQLDocument(introspectionJSON io.Reader) (*ast.SchemaDocument, error) {
	var data Data
	if err := json.NewDecoder(introspectionJSON).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to parse introspection json: %v", err)
	}

	return j.SchemaDocument(&data.Schema)
}

func (j *JsonConverter) SchemaDocument(schema *Schema) (*ast.SchemaDocument, error) {
	j.schema = schema
	j.doc = &ast.SchemaDocument{}

	if err := j.importSchema(); err != nil {
		return nil, fmt.Errorf("failed to convert graphql schema: %v", err)
	}

	return j.doc, nil
}

func (j *JsonConverter) importSchema() error {
	query, mutation, subscription := j.schema.TypeNames()
	if query == "" {
		return fmt.Errorf("introspection result has no query type")
	}

	schemaDefinition := &ast.SchemaDefinition{Position: position}
	for _, operation := range []struct {
		operation ast.Operation
		typeName  string
	}{
		{ast.Query, query},
		{ast.Mutation, mutation},
		{ast.Subscription, subscription},
	} {
		if operation.typeName == "" {
			continue
		}
		schemaDefinition.OperationTypes = append(schemaDefinition.OperationTypes, &ast.OperationTypeDefinition{
			Operation: operation.operation,
			Type:      operation.typeName,
			Position:  position,
		})
	}
	j.doc.Schema = append(j.doc.Schema, schemaDefinition)

	for i := range j.schema.Types {
		fullType := &j.schema.Types[i]
		if strings.HasPrefix(fullType.Name, "__") || builtInScalars[fullType.Name] {
			continue
		}
		if err := j.importFullType(fullType); err != nil {
			return err
		}
	}

	for i := range j.schema.Directives {
		if builtInDirectives[j.schema.Directives[i].Name] {
			continue
		}
		if err := j.importDirective(&j.schema.Directives[i]); err != nil {
			return err
		}
	}

	return nil
}

func (j *JsonConverter) importFullType(fullType *FullType) error {
	switch fullType.Kind {
	case SCALAR:
		j.importScalar(fullType)
	case OBJECT:
		return j.importObject(fullType, ast.Object)
	case INTERFACE:
		return j.importObject(fullType, ast.Interface)
	case UNION:
		j.importUnion(fullType)
	case ENUM:
		j.importEnum(fullType)
	case INPUTOBJECT:
		return j.importInputObject(fullType)
	default:
		return fmt.Errorf("type %s: unknown kind %q", fullType.Name, fullType.Kind)
	}

	return nil
}

func (j *JsonConverter) importScalar(fullType *FullType) {
	j.doc.Definitions = append(j.doc.Definitions, j.definition(ast.Scalar, fullType))
}

func (j *JsonConverter) importObject(fullType *FullType, kind ast.DefinitionKind) error {
	definition := j.definition(kind, fullType)

	for _, field := range fullType.Fields {
		fieldDefinition, err := j.importField(field)
		if err != nil {
			return fmt.Errorf("%s.%s: %v", fullType.Name, field.Name, err)
		}
		definition.Fields = append(definition.Fields, fieldDefinition)
	}

	for _, ref := range fullType.Interfaces {
		if ref.Name == nil {
			return fmt.Errorf("%s: interface reference without name", fullType.Name)
		}
		definition.Interfaces = append(definition.Interfaces, *ref.Name)
	}

	j.doc.Definitions = append(j.doc.Definitions, definition)
	return nil
}

func (j *JsonConverter) importUnion(fullType *FullType) {
	definition := j.definition(ast.Union, fullType)
	for _, ref := range fullType.PossibleTypes {
		if ref.Name != nil {
			definition.Types = append(definition.Types, *ref.Name)
		}
	}
	j.doc.Definitions = append(j.doc.Definitions, definition)
}

func (j *JsonConverter) importEnum(fullType *FullType) {
	definition := j.definition(ast.Enum, fullType)
	for _, value := range fullType.EnumValues {
		definition.EnumValues = append(definition.EnumValues, &ast.EnumValueDefinition{
			Description: description(value.Description),
			Name:        value.Name,
			Directives:  deprecated(value.IsDeprecated, value.DeprecationReason),
			Position:    position,
		})
	}
	j.doc.Definitions = append(j.doc.Definitions, definition)
}

func (j *JsonConverter) importInputObject(fullType *FullType) error {
	definition := j.definition(ast.InputObject, fullType)
	for _, inputField := range fullType.InputFields {
		argument, err := j.importArgument(inputField)
		if err != nil {
			return fmt.Errorf("%s.%s: %v", fullType.Name, inputField.Name, err)
		}
		definition.Fields = append(definition.Fields, &ast.FieldDefinition{
			Description:  argument.Description,
			Name:         argument.Name,
			DefaultValue: argument.DefaultValue,
			Type:         argument.Type,
			Position:     position,
		})
	}
	j.doc.Definitions = append(j.doc.Definitions, definition)
	return nil
}

func (j *JsonConverter) importDirective(directive *Directive) error {
	definition := &ast.DirectiveDefinition{
		Description: description(directive.Description),
		Name:        directive.Name,
		Position:    position,
	}

	for _, arg := range directive.Args {
		argument, err := j.importArgument(arg)
		if err != nil {
			return fmt.Errorf("@%s(%s): %v", directive.Name, arg.Name, err)
		}
		definition.Arguments = append(definition.Arguments, argument)
	}

	for _, location := range directive.Locations {
		definition.Locations = append(definition.Locations, ast.DirectiveLocation(location))
	}

	j.doc.Directives = append(j.doc.Directives, definition)
	return nil
}

func (j *JsonConverter) importField(field Field) (*ast.FieldDefinition, error) {
	typ, err := j.importType(field.Type)
	if err != nil {
		return nil, err
	}

	fieldDefinition := &ast.FieldDefinition{
		Description: description(field.Description),
		Name:        field.Name,
		Type:        typ,
		Directives:  deprecated(field.IsDeprecated, field.DeprecationReason),
		Position:    position,
	}

	for _, arg := range field.Args {
		argument, err := j.importArgument(arg)
		if err != nil {
			return nil, err
		}
		fieldDefinition.Arguments = append(fieldDefinition.Arguments, argument)
	}

	return fieldDefinition, nil
}

func (j *JsonConverter) importArgument(value InputValue) (*ast.ArgumentDefinition, error) {
	typ, err := j.importType(value.Type)
	if err != nil {
		return nil, err
	}

	defaultValue, err := j.importDefaultValue(value.DefaultValue)
	if err != nil {
		return nil, err
	}

	return &ast.ArgumentDefinition{
		Description:  description(value.Description),
		Name:         value.Name,
		DefaultValue: defaultValue,
		Type:         typ,
		Position:     position,
	}, nil
}

func (j *JsonConverter) importType(typeRef TypeRef) (*ast.Type, error) {
	switch typeRef.Kind {
	case LIST:
		if typeRef.OfType == nil {
			return nil, fmt.Errorf("list type without ofType")
		}
		elem, err := j.importType(*typeRef.OfType)
		if err != nil {
			return nil, err
		}
		return &ast.Type{Elem: elem, Position: position}, nil
	case NONNULL:
		if typeRef.OfType == nil {
			return nil, fmt.Errorf("non-null type without ofType")
		}
		inner, err := j.importType(*typeRef.OfType)
		if err != nil {
			return nil, err
		}
		if inner.NonNull {
			return nil, fmt.Errorf("non-null type wrapping a non-null type")
		}
		nonNull := *inner
		nonNull.NonNull = true
		return &nonNull, nil
	}

	if typeRef.Name == nil {
		return nil, fmt.Errorf("named type of kind %q without name", typeRef.Kind)
	}

	return &ast.Type{NamedType: *typeRef.Name, Position: position}, nil
}

// importDefaultValue parses the GraphQL literal of a default value.
func (j *JsonConverter) importDefaultValue(defaultValue *string) (*ast.Value, error) {
	if defaultValue == nil {
		return nil, nil
	}

	doc, err := parser.ParseQuery(&ast.Source{
		Name:  "defaultValue",
		Input: "query ($value: Boolean = " + *defaultValue + ") { __typename }",
	})
	if err != nil {
		return nil, fmt.Errorf("invalid default value %s: %v", *defaultValue, err)
	}

	return doc.Operations[0].VariableDefinitions[0].DefaultValue, nil
}

func (j *JsonConverter) definition(kind ast.DefinitionKind, fullType *FullType) *ast.Definition {
	return &ast.Definition{
		Kind:        kind,
		Description: description(fullType.Description),
		Name:        fullType.Name,
		Position:    position,
	}
}

func deprecated(isDeprecated bool, reason *string) ast.DirectiveList {
	if !isDeprecated {
		return nil
	}

	directive := &ast.Directive{
		Name:     "deprecated",
		Position: position,
	}
	if reason != nil && *reason != defaultDeprecationReason {
		directive.Arguments = ast.ArgumentList{
			{
				Name:     "reason",
				Value:    &ast.Value{Kind: ast.StringValue, Raw: *reason, Position: position},
				Position: position,
			},
		}
	}

	return ast.DirectiveList{directive}
}

// description escapes block string terminators, descriptions are printed as block strings.
func description(s string) string {
	return strings.ReplaceAll(s, `"""`, `\"""`)
}
