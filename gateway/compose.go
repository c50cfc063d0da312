package gateway

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/example/shipmesh/pkg/graphql"
	"github.com/example/shipmesh/pkg/metrics"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"
	"github.com/vektah/gqlparser/v2/parser"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const serviceSDLQuery = `query ServiceSDL { _service { sdl } }`

// Fetcher sends one operation to a subgraph.
type Fetcher interface {
	Post(ctx context.Context, req graphql.Request) (*graphql.RawResponse, error)
}

type Subgraph struct {
	Name    string
	Fetcher Fetcher
}

// federation-only definitions never reach the supergraph.
var federationTypes = map[string]bool{
	"_Service":  true,
	"_Any":      true,
	"_FieldSet": true,
	"_Entity":   true,
}

// Supergraph is the composed schema plus the ownership tables the planner
// reads.
type Supergraph struct {
	Schema *ast.Schema
	SDL    string

	fetchers map[string]Fetcher
	// owners[type][field] is the subgraph that resolves the field.
	owners map[string]map[string]string
	// declares[subgraph][type][field] covers @external key fields too.
	declares map[string]map[string]map[string]bool
	// keys[type][subgraph] are the @key fields that subgraph resolves
	// the type by.
	keys map[string]map[string][]string
}

// Introspect asks every subgraph for its SDL concurrently.
func Introspect(ctx context.Context, subgraphs []Subgraph) (map[string]string, error) {
	sdls := make([]string, len(subgraphs))
	g, ctx := errgroup.WithContext(ctx)
	for i, sg := range subgraphs {
		g.Go(func() error {
			resp, err := sg.Fetcher.Post(ctx, graphql.Request{Query: serviceSDLQuery, OperationName: "ServiceSDL"})
			if err == nil && len(resp.Errors) > 0 {
				err = &graphql.RemoteError{Endpoint: sg.Name, Errors: resp.Errors}
			}
			metrics.SubgraphFetchesTotal.WithLabelValues(sg.Name, metrics.Outcome(err)).Inc()
			if err != nil {
				return fmt.Errorf("failed to introspect subgraph %s: %w", sg.Name, err)
			}
			var out struct {
				Service struct {
					SDL string `json:"sdl"`
				} `json:"_service"`
			}
			if err := decode(resp.Data, &out); err != nil {
				return fmt.Errorf("failed to decode sdl of subgraph %s: %w", sg.Name, err)
			}
			sdls[i] = out.Service.SDL
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byName := make(map[string]string, len(subgraphs))
	for i, sg := range subgraphs {
		byName[sg.Name] = sdls[i]
	}
	return byName, nil
}

// Compose introspects subgraphs and merges them into one supergraph.
func Compose(ctx context.Context, subgraphs []Subgraph, logger *zap.Logger) (*Supergraph, error) {
	sdls, err := Introspect(ctx, subgraphs)
	if err != nil {
		return nil, err
	}
	sg, err := ComposeSDL(subgraphs, sdls)
	if err != nil {
		return nil, err
	}
	for _, s := range subgraphs {
		logger.Info("Subgraph composed", zap.String("subgraph", s.Name))
	}
	return sg, nil
}

// ComposeSDL merges already fetched SDLs. Subgraphs are merged in the order
// given; a field declared by two subgraphs belongs to the first.
func ComposeSDL(subgraphs []Subgraph, sdls map[string]string) (*Supergraph, error) {
	sg := &Supergraph{
		fetchers: make(map[string]Fetcher, len(subgraphs)),
		owners:   make(map[string]map[string]string),
		declares: make(map[string]map[string]map[string]bool),
		keys:     make(map[string]map[string][]string),
	}

	merged := make(map[string]*ast.Definition)
	var order []string

	for _, s := range subgraphs {
		sg.fetchers[s.Name] = s.Fetcher
		doc, err := parser.ParseSchema(&ast.Source{Name: s.Name, Input: sdls[s.Name]})
		if err != nil {
			return nil, fmt.Errorf("failed to parse sdl of subgraph %s: %w", s.Name, err)
		}

		defs := append(append(ast.DefinitionList{}, doc.Definitions...), doc.Extensions...)
		for _, def := range defs {
			if federationTypes[def.Name] {
				continue
			}
			m, ok := merged[def.Name]
			if !ok {
				m = &ast.Definition{Kind: def.Kind, Name: def.Name, Description: def.Description}
				merged[def.Name] = m
				order = append(order, def.Name)
			}
			mergeDefinition(m, def)
			if def.Kind == ast.Object {
				sg.register(s.Name, def)
			}
		}
	}

	doc := &ast.SchemaDocument{}
	for _, name := range order {
		doc.Definitions = append(doc.Definitions, merged[name])
	}
	var buf bytes.Buffer
	formatter.NewFormatter(&buf).FormatSchemaDocument(doc)
	sg.SDL = buf.String()

	schema, err := gqlparser.LoadSchema(&ast.Source{Name: "supergraph", Input: sg.SDL})
	if err != nil {
		return nil, fmt.Errorf("failed to validate supergraph: %w", err)
	}
	sg.Schema = schema
	return sg, nil
}

func mergeDefinition(into, def *ast.Definition) {
	for _, f := range def.Fields {
		if into.Fields.ForName(f.Name) != nil {
			continue
		}
		into.Fields = append(into.Fields, &ast.FieldDefinition{
			Name:         f.Name,
			Description:  f.Description,
			Arguments:    f.Arguments,
			DefaultValue: f.DefaultValue,
			Type:         f.Type,
		})
	}
	for _, v := range def.EnumValues {
		if into.EnumValues.ForName(v.Name) == nil {
			into.EnumValues = append(into.EnumValues, &ast.EnumValueDefinition{Name: v.Name, Description: v.Description})
		}
	}
	for _, t := range def.Types {
		if !contains(into.Types, t) {
			into.Types = append(into.Types, t)
		}
	}
}

func (sg *Supergraph) register(subgraph string, def *ast.Definition) {
	declared := sg.declares[subgraph]
	if declared == nil {
		declared = make(map[string]map[string]bool)
		sg.declares[subgraph] = declared
	}
	if declared[def.Name] == nil {
		declared[def.Name] = make(map[string]bool)
	}
	if sg.owners[def.Name] == nil {
		sg.owners[def.Name] = make(map[string]string)
	}

	for _, f := range def.Fields {
		declared[def.Name][f.Name] = true
		if f.Directives.ForName("external") != nil {
			continue
		}
		if _, taken := sg.owners[def.Name][f.Name]; !taken {
			sg.owners[def.Name][f.Name] = subgraph
		}
	}

	if key := def.Directives.ForName("key"); key != nil {
		if arg := key.Arguments.ForName("fields"); arg != nil && arg.Value != nil {
			if sg.keys[def.Name] == nil {
				sg.keys[def.Name] = make(map[string][]string)
			}
			sg.keys[def.Name][subgraph] = strings.Fields(arg.Value.Raw)
		}
	}
}

// Owner returns the subgraph resolving typeName.field.
func (sg *Supergraph) Owner(typeName, field string) string {
	return sg.owners[typeName][field]
}

func (sg *Supergraph) declaresField(subgraph, typeName, field string) bool {
	return sg.declares[subgraph][typeName][field]
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
