package graphql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/example/shipmesh/pkg/apperr"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/validator"
)

// TimeLayout is the wire format for timestamps: UTC with milliseconds.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

type Request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

type Response struct {
	Data   any      `json:"data"`
	Errors []*Error `json:"errors,omitempty"`

	// rejected is set when the operation never reached execution.
	rejected  bool
	operation string
}

type Error struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

func (e *Error) Error() string { return e.Message }

func newError(err error, path []any) *Error {
	gerr := &Error{Message: err.Error(), Path: path}
	if code := apperr.Code(err); code != "" {
		gerr.Extensions = map[string]any{"code": code}
	}
	return gerr
}

func rejected(code string, errs ...*Error) *Response {
	for _, e := range errs {
		if e.Extensions == nil {
			e.Extensions = map[string]any{"code": code}
		}
	}
	return &Response{Errors: errs, rejected: true}
}

// Execute validates and runs one operation. Resolver errors become entries in
// Errors with their path; the rest of the selection still resolves.
func (s *Schema) Execute(ctx context.Context, req Request) (resp *Response) {
	doc, gerrs := gqlparser.LoadQuery(s.schema, req.Query)
	if len(gerrs) > 0 {
		return rejected("GRAPHQL_VALIDATION_FAILED", fromGQLErrors(gerrs)...)
	}

	op := doc.Operations.ForName(req.OperationName)
	if op == nil {
		return rejected("BAD_REQUEST", &Error{Message: fmt.Sprintf("unknown operation %q", req.OperationName)})
	}

	vars, verr := validator.VariableValues(s.schema, op, req.Variables)
	if verr != nil {
		return rejected("BAD_USER_INPUT", &Error{Message: verr.Error()})
	}

	var root *ast.Definition
	switch op.Operation {
	case ast.Query:
		root = s.schema.Query
	case ast.Mutation:
		root = s.schema.Mutation
	}
	if root == nil {
		return rejected("BAD_REQUEST", &Error{Message: fmt.Sprintf("%s operations are not supported", op.Operation)})
	}

	ex := &execution{schema: s, doc: doc, vars: vars}
	defer func() {
		if r := recover(); r != nil {
			resp = &Response{Errors: append(ex.errors, &Error{Message: fmt.Sprintf("internal error: %v", r)}), operation: string(op.Operation)}
		}
	}()

	data := ex.executeSelectionSet(ctx, root, nil, op.SelectionSet, nil)
	resp = &Response{Errors: ex.errors, operation: string(op.Operation)}
	if data != nil {
		resp.Data = data
	}
	return resp
}

func fromGQLErrors(list gqlerror.List) []*Error {
	out := make([]*Error, 0, len(list))
	for _, e := range list {
		out = append(out, &Error{Message: e.Message})
	}
	return out
}

type execution struct {
	schema *Schema
	doc    *ast.QueryDocument
	vars   map[string]any
	errors []*Error
}

func (e *execution) addError(err error, path []any) {
	e.errors = append(e.errors, newError(err, path))
}

type collectedField struct {
	key    string
	fields []*ast.Field
}

func (e *execution) collectFields(objType *ast.Definition, sel ast.SelectionSet, out []*collectedField, index map[string]int) []*collectedField {
	for _, s := range sel {
		switch s := s.(type) {
		case *ast.Field:
			if !e.shouldInclude(s.Directives) {
				continue
			}
			key := s.Alias
			if key == "" {
				key = s.Name
			}
			if i, ok := index[key]; ok {
				out[i].fields = append(out[i].fields, s)
				continue
			}
			index[key] = len(out)
			out = append(out, &collectedField{key: key, fields: []*ast.Field{s}})
		case *ast.InlineFragment:
			if !e.shouldInclude(s.Directives) || !e.typeApplies(objType, s.TypeCondition) {
				continue
			}
			out = e.collectFields(objType, s.SelectionSet, out, index)
		case *ast.FragmentSpread:
			if !e.shouldInclude(s.Directives) {
				continue
			}
			def := s.Definition
			if def == nil {
				def = e.doc.Fragments.ForName(s.Name)
			}
			if def == nil || !e.typeApplies(objType, def.TypeCondition) {
				continue
			}
			out = e.collectFields(objType, def.SelectionSet, out, index)
		}
	}
	return out
}

func (e *execution) shouldInclude(dirs ast.DirectiveList) bool {
	if d := dirs.ForName("skip"); d != nil && d.Definition != nil {
		if skip, _ := d.ArgumentMap(e.vars)["if"].(bool); skip {
			return false
		}
	}
	if d := dirs.ForName("include"); d != nil && d.Definition != nil {
		if include, _ := d.ArgumentMap(e.vars)["if"].(bool); !include {
			return false
		}
	}
	return true
}

func (e *execution) typeApplies(objType *ast.Definition, condition string) bool {
	if condition == "" || condition == objType.Name {
		return true
	}
	abstract := e.schema.schema.Types[condition]
	if abstract == nil {
		return false
	}
	for _, t := range e.schema.schema.GetPossibleTypes(abstract) {
		if t.Name == objType.Name {
			return true
		}
	}
	return false
}

// executeSelectionSet returns nil when a non-null field resolved to null,
// which nulls the enclosing object.
func (e *execution) executeSelectionSet(ctx context.Context, objType *ast.Definition, source any, sel ast.SelectionSet, path []any) *OrderedMap {
	result := NewOrderedMap()
	for _, cf := range e.collectFields(objType, sel, nil, map[string]int{}) {
		fieldPath := appendPath(path, cf.key)
		v, ok := e.executeField(ctx, objType, source, cf.fields, fieldPath)
		if !ok {
			return nil
		}
		result.Set(cf.key, v)
	}
	return result
}

func (e *execution) executeField(ctx context.Context, objType *ast.Definition, source any, fields []*ast.Field, path []any) (any, bool) {
	f := fields[0]
	switch f.Name {
	case "__typename":
		return objType.Name, true
	case "__schema", "__type":
		e.addError(errors.New("introspection is not supported; query _service { sdl } instead"), path)
		return nil, true
	}

	def := f.Definition
	if def == nil {
		def = objType.Fields.ForName(f.Name)
	}
	if def == nil {
		e.addError(fmt.Errorf("unknown field %s.%s", objType.Name, f.Name), path)
		return nil, true
	}

	var (
		val any
		err error
	)
	if fn := e.schema.resolver(objType.Name, f.Name); fn != nil {
		val, err = fn(ctx, ResolveParams{Source: source, Args: Args(f.ArgumentMap(e.vars)), Field: f})
	} else {
		val, err = defaultResolve(source, f.Name)
	}
	if err != nil {
		e.addError(err, path)
		return nil, !def.Type.NonNull
	}

	return e.completeValue(ctx, def.Type, mergeSelections(fields), val, path)
}

func mergeSelections(fields []*ast.Field) ast.SelectionSet {
	if len(fields) == 1 {
		return fields[0].SelectionSet
	}
	var sel ast.SelectionSet
	for _, f := range fields {
		sel = append(sel, f.SelectionSet...)
	}
	return sel
}

func (e *execution) completeValue(ctx context.Context, typ *ast.Type, sel ast.SelectionSet, val any, path []any) (any, bool) {
	// A nil slice from a store means "no rows", not null.
	if typ.Elem != nil && val != nil && reflect.TypeOf(val).Kind() == reflect.Slice && reflect.ValueOf(val).IsNil() {
		return []any{}, true
	}
	if isNil(val) {
		if typ.NonNull {
			e.addError(errors.New("cannot return null for non-nullable field"), path)
			return nil, false
		}
		return nil, true
	}

	if typ.Elem != nil {
		rv := reflect.ValueOf(val)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			e.addError(fmt.Errorf("expected a list, got %T", val), path)
			return nil, !typ.NonNull
		}
		out := make([]any, rv.Len())
		for i := range out {
			item, ok := e.completeValue(ctx, typ.Elem, sel, rv.Index(i).Interface(), appendPath(path, i))
			if !ok {
				return nil, !typ.NonNull
			}
			out[i] = item
		}
		return out, true
	}

	def := e.schema.schema.Types[typ.NamedType]
	if def == nil {
		e.addError(fmt.Errorf("unknown type %s", typ.NamedType), path)
		return nil, !typ.NonNull
	}

	switch def.Kind {
	case ast.Scalar:
		v, err := serializeScalar(def.Name, val)
		if err != nil {
			e.addError(err, path)
			return nil, !typ.NonNull
		}
		return v, true
	case ast.Enum:
		return fmt.Sprint(deref(val)), true
	case ast.Interface, ast.Union:
		concrete, inner := e.resolveAbstract(val)
		objType := e.schema.schema.Types[concrete]
		if objType == nil || !e.typeApplies(objType, def.Name) {
			e.addError(fmt.Errorf("cannot resolve concrete type for %s", def.Name), path)
			return nil, !typ.NonNull
		}
		def, val = objType, inner
	}

	obj := e.executeSelectionSet(ctx, def, val, sel, path)
	if obj == nil {
		return nil, !typ.NonNull
	}
	return obj, true
}

func (e *execution) resolveAbstract(val any) (string, any) {
	switch v := val.(type) {
	case Typed:
		return v.TypeName, v.Value
	case *Typed:
		return v.TypeName, v.Value
	case map[string]any:
		name, _ := v["__typename"].(string)
		return name, v
	}
	return "", val
}

func appendPath(path []any, elem any) []any {
	out := make([]any, len(path)+1)
	copy(out, path)
	out[len(path)] = elem
	return out
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func deref(v any) any {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil
	}
	return rv.Interface()
}

func serializeScalar(name string, val any) (any, error) {
	v := deref(val)
	switch name {
	case "ID":
		return ToString(v), nil
	case "String":
		if t, ok := v.(time.Time); ok {
			return t.UTC().Format(TimeLayout), nil
		}
		return ToString(v), nil
	case "Int":
		n, err := ToInt64(v)
		if err != nil {
			return nil, fmt.Errorf("Int cannot represent %v: %w", v, err)
		}
		return n, nil
	case "Float":
		f, err := ToFloat(v)
		if err != nil {
			return nil, fmt.Errorf("Float cannot represent %v: %w", v, err)
		}
		return f, nil
	case "Boolean":
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("Boolean cannot represent %v", v)
		}
		return b, nil
	}
	return v, nil
}

var fieldIndexCache sync.Map // reflect.Type -> map[string][]int

func structFields(t reflect.Type) map[string][]int {
	if cached, ok := fieldIndexCache.Load(t); ok {
		return cached.(map[string][]int)
	}
	index := make(map[string][]int)
	var walk func(t reflect.Type, prefix []int)
	walk = func(t reflect.Type, prefix []int) {
		for i := 0; i < t.NumField(); i++ {
			sf := t.Field(i)
			idx := append(append([]int{}, prefix...), i)
			if sf.Anonymous && sf.Type.Kind() == reflect.Struct {
				walk(sf.Type, idx)
				continue
			}
			if !sf.IsExported() {
				continue
			}
			name := sf.Tag.Get("graphql")
			if name == "" {
				name, _, _ = strings.Cut(sf.Tag.Get("json"), ",")
			}
			if name == "" || name == "-" {
				name = sf.Name
			}
			if _, taken := index[name]; !taken {
				index[name] = idx
			}
		}
	}
	walk(t, nil)
	fieldIndexCache.Store(t, index)
	return index
}

func defaultResolve(source any, name string) (any, error) {
	switch src := source.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return src[name], nil
	case Args:
		return src[name], nil
	}

	rv := reflect.ValueOf(source)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("cannot resolve field %q on %T", name, source)
	}
	idx, ok := structFields(rv.Type())[name]
	if !ok {
		return nil, nil
	}
	return rv.FieldByIndex(idx).Interface(), nil
}

// OrderedMap keeps response keys in selection order when encoded.
type OrderedMap struct {
	keys   []string
	values map[string]any
}

func NewOrderedMap() *OrderedMap {
	return &OrderedMap{values: make(map[string]any)}
}

func (m *OrderedMap) Set(key string, value any) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

func (m *OrderedMap) Get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *OrderedMap) Keys() []string { return m.keys }

func (m *OrderedMap) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			b.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		b.Write(kb)
		b.WriteByte(':')
		vb, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}
		b.Write(vb)
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}

// FormatFloat renders a float the way JavaScript template strings do.
func FormatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
