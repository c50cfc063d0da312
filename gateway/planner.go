package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/example/shipmesh/pkg/graphql"
	"github.com/example/shipmesh/pkg/metrics"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/validator"
	"golang.org/x/sync/errgroup"
)

// Injected aliases carry entity keys between subgraphs. They are removed
// before the response reaches the client.
const (
	typenameAlias   = "_gw_typename"
	keyAliasPrefix  = "_gw_k_"
	representations = "_gw_representations"
)

// selection is one client field after fragments are inlined and fields
// sharing a response key are merged.
type selection struct {
	alias    string
	name     string
	field    *ast.Field
	typeName string
	children []*selection
	index    map[string]*selection
}

type execution struct {
	sg   *Supergraph
	op   *ast.OperationDefinition
	raw  map[string]any
	vars map[string]any

	mu     sync.Mutex
	errors []*graphql.Error
}

// Result is a gateway response. Rejected is set when the operation never
// reached a subgraph.
type Result struct {
	*graphql.Response
	Rejected bool
}

func rejectedResult(code string, errs ...*graphql.Error) *Result {
	for _, e := range errs {
		if e.Extensions == nil {
			e.Extensions = map[string]any{}
		}
		e.Extensions["code"] = code
	}
	return &Result{Response: &graphql.Response{Errors: errs}, Rejected: true}
}

func fromGQLErrors(list gqlerror.List) []*graphql.Error {
	out := make([]*graphql.Error, 0, len(list))
	for _, e := range list {
		out = append(out, &graphql.Error{Message: e.Message})
	}
	return out
}

// Execute validates req against the supergraph, fans it out to the owning
// subgraphs and stitches the answers back into the client's shape.
func (sg *Supergraph) Execute(ctx context.Context, req graphql.Request) *Result {
	doc, gerrs := gqlparser.LoadQuery(sg.Schema, req.Query)
	if len(gerrs) > 0 {
		return rejectedResult("GRAPHQL_VALIDATION_FAILED", fromGQLErrors(gerrs)...)
	}
	op := doc.Operations.ForName(req.OperationName)
	if op == nil {
		return rejectedResult("BAD_USER_INPUT", &graphql.Error{Message: fmt.Sprintf("unknown operation %q", req.OperationName)})
	}
	if op.Operation == ast.Subscription {
		return rejectedResult("BAD_USER_INPUT", &graphql.Error{Message: "subscriptions are not supported"})
	}
	vars, verr := validator.VariableValues(sg.Schema, op, req.Variables)
	if verr != nil {
		return rejectedResult("BAD_USER_INPUT", &graphql.Error{Message: verr.Error()})
	}

	e := &execution{sg: sg, op: op, raw: req.Variables, vars: vars}
	rootType := "Query"
	if op.Operation == ast.Mutation {
		rootType = "Mutation"
	}
	root, cerr := e.collect(rootType, op.SelectionSet, nil, map[string]*selection{})
	if cerr != nil {
		return rejectedResult("GRAPHQL_VALIDATION_FAILED", &graphql.Error{Message: cerr.Error()})
	}

	data := e.run(ctx, rootType, root)
	return &Result{Response: &graphql.Response{Data: project(data, root), Errors: e.errors}}
}

func (e *execution) include(dirs ast.DirectiveList) bool {
	for _, d := range dirs {
		if d.Name != "skip" && d.Name != "include" {
			continue
		}
		arg := d.Arguments.ForName("if")
		if arg == nil {
			continue
		}
		v, err := arg.Value.Value(e.vars)
		if err != nil {
			continue
		}
		b, _ := v.(bool)
		if (d.Name == "skip" && b) || (d.Name == "include" && !b) {
			return false
		}
	}
	return true
}

// collect inlines fragments into a flat, merged field list for typeName.
func (e *execution) collect(typeName string, set ast.SelectionSet, out []*selection, index map[string]*selection) ([]*selection, error) {
	var err error
	for _, s := range set {
		switch s := s.(type) {
		case *ast.Field:
			if !e.include(s.Directives) {
				continue
			}
			alias := s.Alias
			if alias == "" {
				alias = s.Name
			}
			sel, ok := index[alias]
			if !ok {
				sel = &selection{alias: alias, name: s.Name, field: s, index: map[string]*selection{}}
				if s.Definition != nil {
					sel.typeName = s.Definition.Type.Name()
				}
				if def := e.sg.Schema.Types[sel.typeName]; def != nil && def.IsAbstractType() {
					return nil, fmt.Errorf("field %s.%s returns abstract type %s, which the gateway cannot plan", typeName, s.Name, sel.typeName)
				}
				index[alias] = sel
				out = append(out, sel)
			}
			if len(s.SelectionSet) > 0 {
				if sel.children, err = e.collect(sel.typeName, s.SelectionSet, sel.children, sel.index); err != nil {
					return nil, err
				}
			}
		case *ast.InlineFragment:
			if !e.include(s.Directives) || (s.TypeCondition != "" && s.TypeCondition != typeName) {
				continue
			}
			if out, err = e.collect(typeName, s.SelectionSet, out, index); err != nil {
				return nil, err
			}
		case *ast.FragmentSpread:
			if !e.include(s.Directives) || s.Definition == nil || s.Definition.TypeCondition != typeName {
				continue
			}
			if out, err = e.collect(typeName, s.Definition.SelectionSet, out, index); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func (e *execution) addError(err *graphql.Error) {
	e.mu.Lock()
	e.errors = append(e.errors, err)
	e.mu.Unlock()
}

// rootGroup is a run of root fields served by one subgraph.
type rootGroup struct {
	subgraph string
	fields   []*selection
}

func (e *execution) groupRoot(rootType string, root []*selection) []*rootGroup {
	var groups []*rootGroup
	byOwner := map[string]*rootGroup{}
	for _, sel := range root {
		if sel.name == "__typename" {
			continue
		}
		owner := e.sg.Owner(rootType, sel.name)
		if owner == "" {
			e.addError(&graphql.Error{Message: fmt.Sprintf("no subgraph resolves %s.%s", rootType, sel.name), Path: []any{sel.alias}})
			continue
		}
		// Mutations run in document order, so only consecutive fields share
		// a request.
		if rootType == "Mutation" {
			if n := len(groups); n > 0 && groups[n-1].subgraph == owner {
				groups[n-1].fields = append(groups[n-1].fields, sel)
				continue
			}
			groups = append(groups, &rootGroup{subgraph: owner, fields: []*selection{sel}})
			continue
		}
		if g, ok := byOwner[owner]; ok {
			g.fields = append(g.fields, sel)
			continue
		}
		g := &rootGroup{subgraph: owner, fields: []*selection{sel}}
		byOwner[owner] = g
		groups = append(groups, g)
	}
	return groups
}

func (e *execution) run(ctx context.Context, rootType string, root []*selection) map[string]any {
	data := map[string]any{}
	for _, sel := range root {
		if sel.name == "__typename" {
			data[sel.alias] = rootType
		}
	}

	groups := e.groupRoot(rootType, root)
	results := make([]map[string]any, len(groups))
	fetch := func(ctx context.Context, i int) {
		g := groups[i]
		query, vars, err := e.operation(rootType, g.subgraph, g.fields)
		if err != nil {
			e.addError(&graphql.Error{Message: err.Error()})
			return
		}
		results[i] = e.fetch(ctx, g.subgraph, query, vars)
	}

	if rootType == "Mutation" {
		for i := range groups {
			fetch(ctx, i)
		}
	} else {
		var wg errgroup.Group
		for i := range groups {
			wg.Go(func() error {
				fetch(ctx, i)
				return nil
			})
		}
		_ = wg.Wait()
	}

	var pending []*entityRef
	for i, g := range groups {
		for k, v := range results[i] {
			data[k] = v
		}
		pending = e.pending(data, rootType, g.subgraph, g.fields, pending)
	}
	e.resolveEntities(ctx, pending)
	return data
}

// operation renders the sub-operation a subgraph receives for fields of
// rootType, declaring only the variables it uses.
func (e *execution) operation(rootType, subgraph string, fields []*selection) (string, map[string]any, error) {
	used := map[string]bool{}
	var body strings.Builder
	if err := e.render(&body, subgraph, rootType, fields, used); err != nil {
		return "", nil, err
	}
	keyword := "query"
	if rootType == "Mutation" {
		keyword = "mutation"
	}
	defs, vars := e.variables(used)
	return fmt.Sprintf("%s%s { %s}", keyword, defs, body.String()), vars, nil
}

func (e *execution) variables(used map[string]bool) (string, map[string]any) {
	vars := map[string]any{}
	var defs []string
	for _, vd := range e.op.VariableDefinitions {
		if !used[vd.Variable] {
			continue
		}
		def := fmt.Sprintf("$%s: %s", vd.Variable, vd.Type.String())
		if vd.DefaultValue != nil {
			def += " = " + vd.DefaultValue.String()
		}
		defs = append(defs, def)
		if v, ok := e.raw[vd.Variable]; ok {
			vars[vd.Variable] = v
		}
	}
	if len(defs) == 0 {
		return "", vars
	}
	return "(" + strings.Join(defs, ", ") + ")", vars
}

// render writes the part of sels that subgraph can answer on typeName.
// Fields owned elsewhere are replaced by the __typename and key fields
// needed to fetch them later.
func (e *execution) render(b *strings.Builder, subgraph, typeName string, sels []*selection, used map[string]bool) error {
	foreign := map[string]bool{}
	var owners []string
	for _, sel := range sels {
		if sel.name != "__typename" && !e.sg.declaresField(subgraph, typeName, sel.name) {
			owner := e.sg.Owner(typeName, sel.name)
			if owner == "" {
				return fmt.Errorf("no subgraph resolves %s.%s", typeName, sel.name)
			}
			if !foreign[owner] {
				foreign[owner] = true
				owners = append(owners, owner)
			}
			continue
		}

		fmt.Fprintf(b, "%s: %s", sel.alias, sel.name)
		if args := sel.field.Arguments; len(args) > 0 {
			parts := make([]string, 0, len(args))
			for _, a := range args {
				parts = append(parts, a.Name+": "+a.Value.String())
				collectVariables(a.Value, used)
			}
			fmt.Fprintf(b, "(%s)", strings.Join(parts, ", "))
		}
		if len(sel.children) > 0 {
			b.WriteString(" { ")
			if err := e.render(b, subgraph, sel.typeName, sel.children, used); err != nil {
				return err
			}
			b.WriteString("}")
		}
		b.WriteString(" ")
	}

	if len(owners) == 0 {
		return nil
	}
	fmt.Fprintf(b, "%s: __typename ", typenameAlias)
	injected := map[string]bool{}
	for _, owner := range owners {
		keys := e.sg.keys[typeName][owner]
		if len(keys) == 0 {
			return fmt.Errorf("subgraph %s has no @key for %s", owner, typeName)
		}
		for _, k := range keys {
			if !injected[k] {
				injected[k] = true
				fmt.Fprintf(b, "%s%s: %s ", keyAliasPrefix, k, k)
			}
		}
	}
	return nil
}

func collectVariables(v *ast.Value, used map[string]bool) {
	if v == nil {
		return
	}
	if v.Kind == ast.Variable {
		used[v.Raw] = true
		return
	}
	for _, c := range v.Children {
		collectVariables(c.Value, used)
	}
}

// entityRef is an object waiting for fields owned by another subgraph.
type entityRef struct {
	obj      map[string]any
	typeName string
	owner    string
	fields   []*selection
}

// pending walks obj as answered by subgraph and queues every object that
// still lacks foreign fields.
func (e *execution) pending(obj map[string]any, typeName, subgraph string, sels []*selection, out []*entityRef) []*entityRef {
	byOwner := map[string]*entityRef{}
	for _, sel := range sels {
		if sel.name == "__typename" {
			continue
		}
		if e.sg.declaresField(subgraph, typeName, sel.name) {
			if len(sel.children) > 0 {
				out = e.pendingValue(obj[sel.alias], sel.typeName, subgraph, sel.children, out)
			}
			continue
		}
		owner := e.sg.Owner(typeName, sel.name)
		ref, ok := byOwner[owner]
		if !ok {
			ref = &entityRef{obj: obj, typeName: typeName, owner: owner}
			byOwner[owner] = ref
			out = append(out, ref)
		}
		ref.fields = append(ref.fields, sel)
	}
	return out
}

func (e *execution) pendingValue(v any, typeName, subgraph string, sels []*selection, out []*entityRef) []*entityRef {
	switch v := v.(type) {
	case map[string]any:
		return e.pending(v, typeName, subgraph, sels, out)
	case []any:
		for _, item := range v {
			out = e.pendingValue(item, typeName, subgraph, sels, out)
		}
	}
	return out
}

// entityBatch is one _entities request: same owner, type and selection.
type entityBatch struct {
	owner    string
	typeName string
	fields   []*selection
	refs     []*entityRef
	reps     []any
}

// resolveEntities fetches pending objects level by level until nothing is
// left. Each level sends one _entities request per owner, type and
// selection.
func (e *execution) resolveEntities(ctx context.Context, pending []*entityRef) {
	for len(pending) > 0 {
		var batches []*entityBatch
		byKey := map[string]*entityBatch{}
		for _, ref := range pending {
			rep, ok := e.representation(ref)
			if !ok {
				for _, sel := range ref.fields {
					ref.obj[sel.alias] = nil
				}
				continue
			}
			key := fmt.Sprintf("%s|%s|%p", ref.owner, ref.typeName, ref.fields[0])
			b, ok := byKey[key]
			if !ok {
				b = &entityBatch{owner: ref.owner, typeName: ref.typeName, fields: ref.fields}
				byKey[key] = b
				batches = append(batches, b)
			}
			b.refs = append(b.refs, ref)
			b.reps = append(b.reps, rep)
		}

		results := make([][]any, len(batches))
		var g errgroup.Group
		for i, b := range batches {
			g.Go(func() error {
				results[i] = e.fetchEntities(ctx, b)
				return nil
			})
		}
		_ = g.Wait()

		pending = nil
		for i, b := range batches {
			for j, ref := range b.refs {
				var ent map[string]any
				if j < len(results[i]) {
					ent, _ = results[i][j].(map[string]any)
				}
				if ent == nil {
					for _, sel := range ref.fields {
						ref.obj[sel.alias] = nil
					}
					continue
				}
				for k, v := range ent {
					ref.obj[k] = v
				}
				pending = e.pending(ref.obj, ref.typeName, ref.owner, ref.fields, pending)
			}
		}
	}
}

func (e *execution) representation(ref *entityRef) (map[string]any, bool) {
	rep := map[string]any{"__typename": ref.typeName}
	for _, k := range e.sg.keys[ref.typeName][ref.owner] {
		v, ok := ref.obj[keyAliasPrefix+k]
		if !ok || v == nil {
			return nil, false
		}
		rep[k] = v
	}
	return rep, true
}

func (e *execution) fetchEntities(ctx context.Context, b *entityBatch) []any {
	used := map[string]bool{}
	var body strings.Builder
	if err := e.render(&body, b.owner, b.typeName, b.fields, used); err != nil {
		e.addError(&graphql.Error{Message: err.Error()})
		return nil
	}
	defs, vars := e.variables(used)
	repDef := fmt.Sprintf("$%s: [_Any!]!", representations)
	if defs == "" {
		defs = "(" + repDef + ")"
	} else {
		defs = "(" + repDef + ", " + defs[1:]
	}
	vars[representations] = b.reps

	query := fmt.Sprintf("query%s { _entities(representations: $%s) { ... on %s { %s} } }",
		defs, representations, b.typeName, body.String())
	data := e.fetch(ctx, b.owner, query, vars)
	list, _ := data["_entities"].([]any)
	return list
}

// fetch posts one operation and records subgraph errors. It returns
// whatever data came back, possibly nil.
func (e *execution) fetch(ctx context.Context, subgraph, query string, vars map[string]any) map[string]any {
	resp, err := e.sg.fetchers[subgraph].Post(ctx, graphql.Request{Query: query, Variables: vars})
	if err == nil && len(resp.Errors) > 0 {
		err = &graphql.RemoteError{Endpoint: subgraph, Errors: resp.Errors}
	}
	metrics.SubgraphFetchesTotal.WithLabelValues(subgraph, metrics.Outcome(err)).Inc()
	if resp == nil {
		e.addError(&graphql.Error{
			Message:    fmt.Sprintf("subgraph %s unavailable: %v", subgraph, err),
			Extensions: map[string]any{"code": "SUBGRAPH_FETCH_FAILED", "serviceName": subgraph},
		})
		return nil
	}
	for _, re := range resp.Errors {
		ext := map[string]any{"serviceName": subgraph}
		for k, v := range re.Extensions {
			ext[k] = v
		}
		e.addError(&graphql.Error{Message: re.Message, Path: re.Path, Extensions: ext})
	}

	var data map[string]any
	if err := decode(resp.Data, &data); err != nil {
		e.addError(&graphql.Error{Message: fmt.Sprintf("subgraph %s sent undecodable data: %v", subgraph, err)})
		return nil
	}
	return data
}

func decode(raw json.RawMessage, out any) error {
	if len(raw) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(out)
}

// project shapes obj like the client's selection: response keys in document
// order, injected fields dropped, missing fields null. A null in a non-null
// field nulls the nearest nullable parent.
func project(obj map[string]any, sels []*selection) any {
	if obj == nil {
		return nil
	}
	out := graphql.NewOrderedMap()
	for _, sel := range sels {
		var typ *ast.Type
		if sel.field.Definition != nil {
			typ = sel.field.Definition.Type
		}
		val := projectValue(obj[sel.alias], typ, sel.children)
		if val == nil && typ != nil && typ.NonNull {
			return nil
		}
		out.Set(sel.alias, val)
	}
	return out
}

func projectValue(v any, typ *ast.Type, sels []*selection) any {
	if v == nil {
		return nil
	}
	if typ != nil && typ.Elem != nil {
		items, ok := v.([]any)
		if !ok {
			return nil
		}
		list := make([]any, len(items))
		for i, item := range items {
			list[i] = projectValue(item, typ.Elem, sels)
			if list[i] == nil && typ.Elem.NonNull {
				return nil
			}
		}
		return list
	}
	if len(sels) > 0 {
		obj, _ := v.(map[string]any)
		return project(obj, sels)
	}
	return v
}
