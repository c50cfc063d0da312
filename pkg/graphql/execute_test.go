package graphql

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/example/shipmesh/pkg/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSDL = `
type Parcel @key(fields: "parcel_id") {
  parcel_id: ID!
  label: String
  weight: Float!
  count: Int
  owner: Owner
  created_at: String
}

extend type Owner @key(fields: "owner_id") {
  owner_id: ID! @external
}

type Query {
  parcels: [Parcel!]!
  parcel(id: ID!): Parcel
  mustParcel(id: ID!): Parcel!
}

type Mutation {
  relabel(id: ID!, label: String): Parcel
}
`

type parcel struct {
	ID        int64     `json:"parcel_id"`
	Label     *string   `json:"label"`
	Weight    float64   `json:"weight"`
	Count     int       `json:"count"`
	OwnerID   int64     `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

func strPtr(s string) *string { return &s }

func newTestSchema(t *testing.T) (*Schema, map[int64]*parcel) {
	t.Helper()
	store := map[int64]*parcel{
		1: {ID: 1, Label: strPtr("fragile"), Weight: 2.5, Count: 3, OwnerID: 7, CreatedAt: time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)},
		2: {ID: 2, Weight: 1, OwnerID: 8},
	}

	s, err := NewSchema(testSDL)
	require.NoError(t, err)

	lookup := func(id int64) (any, error) {
		if p, ok := store[id]; ok {
			return p, nil
		}
		return nil, nil
	}
	s.Resolve("Query", "parcels", func(ctx context.Context, p ResolveParams) (any, error) {
		return []*parcel{store[1], store[2]}, nil
	}).Resolve("Query", "parcel", func(ctx context.Context, p ResolveParams) (any, error) {
		id, err := p.Args.ID("id")
		if err != nil {
			return nil, err
		}
		return lookup(id)
	}).Resolve("Query", "mustParcel", func(ctx context.Context, p ResolveParams) (any, error) {
		return nil, fmt.Errorf("parcel %s: %w", p.Args.String("id"), apperr.ErrNotFound)
	}).Resolve("Mutation", "relabel", func(ctx context.Context, p ResolveParams) (any, error) {
		id, _ := p.Args.ID("id")
		pc := store[id]
		pc.Label = p.Args.StringPtr("label")
		return pc, nil
	}).Resolve("Parcel", "owner", func(ctx context.Context, p ResolveParams) (any, error) {
		return map[string]any{"owner_id": p.Source.(*parcel).OwnerID}, nil
	}).Entity("Parcel", func(ctx context.Context, rep Args) (any, error) {
		id, err := rep.ID("parcel_id")
		if err != nil {
			return nil, err
		}
		return lookup(id)
	})
	return s, store
}

func encode(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestExecuteSelectionOrderAndAliases(t *testing.T) {
	s, _ := newTestSchema(t)

	resp := s.Execute(context.Background(), Request{
		Query: `{ parcels { w: weight parcel_id label created_at owner { owner_id } } }`,
	})

	require.Empty(t, resp.Errors)
	assert.JSONEq(t, `{"parcels":[
		{"w":2.5,"parcel_id":"1","label":"fragile","created_at":"2024-05-01T08:30:00.000Z","owner":{"owner_id":"7"}},
		{"w":1,"parcel_id":"2","label":null,"created_at":"0001-01-01T00:00:00.000Z","owner":{"owner_id":"8"}}
	]}`, encode(t, resp.Data))
	assert.Regexp(t, `^\{"parcels":\[\{"w":`, encode(t, resp.Data))
}

func TestExecuteVariablesAndFragments(t *testing.T) {
	s, _ := newTestSchema(t)

	resp := s.Execute(context.Background(), Request{
		Query: `
query One($id: ID!, $withCount: Boolean!) {
  parcel(id: $id) { ...Basics count @include(if: $withCount) __typename }
}
fragment Basics on Parcel { parcel_id weight }`,
		OperationName: "One",
		Variables:     map[string]any{"id": json.Number("1"), "withCount": false},
	})

	require.Empty(t, resp.Errors)
	assert.JSONEq(t, `{"parcel":{"parcel_id":"1","weight":2.5,"__typename":"Parcel"}}`, encode(t, resp.Data))
}

func TestExecuteMissingRecordIsNull(t *testing.T) {
	s, _ := newTestSchema(t)

	resp := s.Execute(context.Background(), Request{
		Query: `{ parcel(id: "1") { parcel_id } missing: parcel(id: "99") { parcel_id } }`,
	})

	require.Empty(t, resp.Errors)
	assert.JSONEq(t, `{"parcel":{"parcel_id":"1"},"missing":null}`, encode(t, resp.Data))
}

func TestExecuteNonNullErrorBubblesToData(t *testing.T) {
	s, _ := newTestSchema(t)

	resp := s.Execute(context.Background(), Request{Query: `{ mustParcel(id: "5") { parcel_id } }`})

	require.Len(t, resp.Errors, 1)
	assert.Nil(t, resp.Data)
	assert.Equal(t, []any{"mustParcel"}, resp.Errors[0].Path)
	assert.Equal(t, "NOT_FOUND", resp.Errors[0].Extensions["code"])
	assert.Contains(t, resp.Errors[0].Message, "parcel 5")
}

func TestExecuteMutation(t *testing.T) {
	s, store := newTestSchema(t)

	resp := s.Execute(context.Background(), Request{
		Query: `mutation { relabel(id: 2, label: "heavy") { parcel_id label } }`,
	})

	require.Empty(t, resp.Errors)
	assert.JSONEq(t, `{"relabel":{"parcel_id":"2","label":"heavy"}}`, encode(t, resp.Data))
	assert.Equal(t, "heavy", *store[2].Label)
}

func TestExecuteRejectsInvalidDocuments(t *testing.T) {
	s, _ := newTestSchema(t)

	resp := s.Execute(context.Background(), Request{Query: `{ parcels { nope } }`})
	assert.True(t, resp.rejected)
	require.NotEmpty(t, resp.Errors)
	assert.Equal(t, "GRAPHQL_VALIDATION_FAILED", resp.Errors[0].Extensions["code"])

	resp = s.Execute(context.Background(), Request{
		Query:     `query Q($id: ID!) { parcel(id: $id) { parcel_id } }`,
		Variables: map[string]any{},
	})
	assert.True(t, resp.rejected)
	assert.Equal(t, "BAD_USER_INPUT", resp.Errors[0].Extensions["code"])
}

func TestFederationService(t *testing.T) {
	s, _ := newTestSchema(t)

	resp := s.Execute(context.Background(), Request{Query: `{ _service { sdl } }`})

	require.Empty(t, resp.Errors)
	assert.JSONEq(t, encode(t, map[string]any{"_service": map[string]any{"sdl": testSDL}}), encode(t, resp.Data))
}

func TestFederationEntities(t *testing.T) {
	s, _ := newTestSchema(t)

	resp := s.Execute(context.Background(), Request{
		Query: `query($representations: [_Any!]!) {
  _entities(representations: $representations) { __typename ... on Parcel { parcel_id weight } }
}`,
		Variables: map[string]any{"representations": []any{
			map[string]any{"__typename": "Parcel", "parcel_id": "2"},
			map[string]any{"__typename": "Parcel", "parcel_id": "404"},
			map[string]any{"__typename": "Parcel", "parcel_id": "1"},
		}},
	})

	require.Empty(t, resp.Errors)
	assert.JSONEq(t, `{"_entities":[
		{"__typename":"Parcel","parcel_id":"2","weight":1},
		null,
		{"__typename":"Parcel","parcel_id":"1","weight":2.5}
	]}`, encode(t, resp.Data))
}

func TestNewSchemaRejectsBrokenSDL(t *testing.T) {
	_, err := NewSchema(`type Query { broken: Missing }`)
	assert.Error(t, err)
}

func TestArgsConversions(t *testing.T) {
	a := Args{"n": json.Number("42"), "f": json.Number("2.5"), "s": "7", "nil": nil}

	assert.Equal(t, int64(42), a.Int("n"))
	assert.Equal(t, 2.5, a.Float("f"))
	assert.Nil(t, a.StringPtr("nil"))
	assert.True(t, a.Has("nil"))
	assert.False(t, a.Has("absent"))

	id, err := a.ID("s")
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)

	_, err = a.ID("absent")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = ParseID("abc")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestFormatFloat(t *testing.T) {
	assert.Equal(t, "150000", FormatFloat(150000))
	assert.Equal(t, "12.5", FormatFloat(12.5))
}

func TestIDAcceptsStringsAndNumbers(t *testing.T) {
	var out struct {
		A ID  `json:"a"`
		B ID  `json:"b"`
		C *ID `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"12","b":7,"c":null}`), &out))
	assert.Equal(t, ID("12"), out.A)
	assert.Equal(t, "7", out.B.String())
	assert.Nil(t, out.C)
}
