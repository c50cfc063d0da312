// Package graphql is the runtime shared by every service: it validates
// operations with gqlparser, executes them against registered resolvers, and
// answers the federation fields (_service, _entities) the gateway relies on.
package graphql

import (
	"context"
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
	"github.com/vektah/gqlparser/v2/validator"
)

const federationPrelude = `
scalar _Any
scalar _FieldSet
directive @key(fields: _FieldSet!) on OBJECT | INTERFACE
directive @external on FIELD_DEFINITION | OBJECT
directive @requires(fields: _FieldSet!) on FIELD_DEFINITION
directive @provides(fields: _FieldSet!) on FIELD_DEFINITION
directive @extends on OBJECT | INTERFACE
type _Service { sdl: String }
`

// ResolveFunc resolves one field. Source is the parent object, nil for root
// fields.
type ResolveFunc func(ctx context.Context, p ResolveParams) (any, error)

type ResolveParams struct {
	Source any
	Args   Args
	Field  *ast.Field
}

// EntityFunc turns a federation representation ({__typename, key...}) into
// the full object. Returning nil, nil yields a null entity.
type EntityFunc func(ctx context.Context, rep Args) (any, error)

// Typed tags a value with its concrete GraphQL type for abstract fields.
type Typed struct {
	TypeName string
	Value    any
}

type Schema struct {
	sdl       string
	schema    *ast.Schema
	keyed     []string
	resolvers map[string]map[string]ResolveFunc
	entities  map[string]EntityFunc
}

// NewSchema parses a subgraph SDL. Extensions of types the subgraph does not
// define itself (extend type Query, extend type Customer @key(...)) become
// local definitions so the document validates on its own.
func NewSchema(sdl string) (*Schema, error) {
	doc, err := parser.ParseSchemas(
		validator.Prelude,
		&ast.Source{Name: "federation", Input: federationPrelude, BuiltIn: true},
		&ast.Source{Name: "schema", Input: sdl},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}

	promoteOrphanExtensions(doc)
	keyed := keyedTypes(doc)
	addFederationFields(doc, keyed)

	schema, err := validator.ValidateSchemaDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to validate schema: %w", err)
	}

	s := &Schema{
		sdl:       sdl,
		schema:    schema,
		keyed:     keyed,
		resolvers: make(map[string]map[string]ResolveFunc),
		entities:  make(map[string]EntityFunc),
	}
	s.Resolve("Query", "_service", func(context.Context, ResolveParams) (any, error) {
		return map[string]any{"sdl": s.sdl}, nil
	})
	if len(keyed) > 0 {
		s.Resolve("Query", "_entities", s.resolveEntities)
	}
	return s, nil
}

// SDL returns the subgraph SDL as written, without the federation prelude.
func (s *Schema) SDL() string { return s.sdl }

// Resolve registers fn for typeName.fieldName. Fields without a resolver read
// the parent's map key or struct field (graphql tag, then json tag).
func (s *Schema) Resolve(typeName, fieldName string, fn ResolveFunc) *Schema {
	fields, ok := s.resolvers[typeName]
	if !ok {
		fields = make(map[string]ResolveFunc)
		s.resolvers[typeName] = fields
	}
	fields[fieldName] = fn
	return s
}

// Entity registers the reference resolver for a @key type.
func (s *Schema) Entity(typeName string, fn EntityFunc) *Schema {
	s.entities[typeName] = fn
	return s
}

func (s *Schema) resolver(typeName, fieldName string) ResolveFunc {
	if fields, ok := s.resolvers[typeName]; ok {
		return fields[fieldName]
	}
	return nil
}

func (s *Schema) resolveEntities(ctx context.Context, p ResolveParams) (any, error) {
	reps := p.Args.List("representations")
	out := make([]any, len(reps))
	for i, raw := range reps {
		rep := AsArgs(raw)
		typeName := rep.String("__typename")
		fn, ok := s.entities[typeName]
		if !ok {
			return nil, fmt.Errorf("no reference resolver for entity %q", typeName)
		}
		v, err := fn(ctx, rep)
		if err != nil {
			return nil, fmt.Errorf("resolve %s reference: %w", typeName, err)
		}
		if isNil(v) {
			continue
		}
		out[i] = Typed{TypeName: typeName, Value: v}
	}
	return out, nil
}

func promoteOrphanExtensions(doc *ast.SchemaDocument) {
	defined := make(map[string]bool, len(doc.Definitions))
	for _, d := range doc.Definitions {
		defined[d.Name] = true
	}
	var rest ast.DefinitionList
	for _, ext := range doc.Extensions {
		if defined[ext.Name] {
			rest = append(rest, ext)
			continue
		}
		defined[ext.Name] = true
		doc.Definitions = append(doc.Definitions, ext)
	}
	doc.Extensions = rest
}

func keyedTypes(doc *ast.SchemaDocument) []string {
	seen := make(map[string]bool)
	var names []string
	collect := func(list ast.DefinitionList) {
		for _, d := range list {
			if d.Kind != ast.Object || d.Directives.ForName("key") == nil || seen[d.Name] {
				continue
			}
			seen[d.Name] = true
			names = append(names, d.Name)
		}
	}
	collect(doc.Definitions)
	collect(doc.Extensions)
	return names
}

func addFederationFields(doc *ast.SchemaDocument, keyed []string) {
	pos := &ast.Position{Src: &ast.Source{Name: "federation", BuiltIn: true}}

	query := doc.Definitions.ForName("Query")
	if query == nil {
		query = &ast.Definition{Kind: ast.Object, Name: "Query", Position: pos}
		doc.Definitions = append(doc.Definitions, query)
	}
	query.Fields = append(query.Fields, &ast.FieldDefinition{
		Name:     "_service",
		Type:     ast.NonNullNamedType("_Service", pos),
		Position: pos,
	})

	if len(keyed) == 0 {
		return
	}
	doc.Definitions = append(doc.Definitions, &ast.Definition{
		Kind:     ast.Union,
		Name:     "_Entity",
		Types:    keyed,
		Position: pos,
	})
	query.Fields = append(query.Fields, &ast.FieldDefinition{
		Name: "_entities",
		Arguments: ast.ArgumentDefinitionList{{
			Name:     "representations",
			Type:     ast.NonNullListType(ast.NonNullNamedType("_Any", pos), pos),
			Position: pos,
		}},
		Type:     ast.NonNullListType(ast.NamedType("_Entity", pos), pos),
		Position: pos,
	})
}
