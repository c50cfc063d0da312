package graphql

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/example/shipmesh/pkg/apperr"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	s, _ := newTestSchema(t)
	router := gin.New()
	Mount(router, "/graphql", s, zap.NewNop())
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientDoDecodesData(t *testing.T) {
	srv := newTestServer(t)
	client := NewClient(srv.URL+"/graphql", srv.Client())

	var out struct {
		Parcel struct {
			ID     string  `json:"parcel_id"`
			Weight float64 `json:"weight"`
		} `json:"parcel"`
	}
	err := client.Do(context.Background(), `query GetParcel($id: ID!) { parcel(id: $id) { parcel_id weight } }`,
		map[string]any{"id": 1}, &out)

	require.NoError(t, err)
	assert.Equal(t, "1", out.Parcel.ID)
	assert.Equal(t, 2.5, out.Parcel.Weight)
}

func TestClientDoSurfacesRemoteErrors(t *testing.T) {
	srv := newTestServer(t)
	client := NewClient(srv.URL+"/graphql", srv.Client())

	err := client.Do(context.Background(), `query Must { mustParcel(id: "3") { parcel_id } }`, nil, &struct{}{})

	require.Error(t, err)
	assert.True(t, IsRemote(err))
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestClientDoRejectedOperation(t *testing.T) {
	srv := newTestServer(t)
	client := NewClient(srv.URL+"/graphql", srv.Client())

	err := client.Do(context.Background(), `{ nope }`, nil, nil)
	require.Error(t, err)
	assert.True(t, IsRemote(err))
}

func TestClientTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	err := NewClient(srv.URL, srv.Client()).Do(context.Background(), `query X { a }`, nil, nil)
	require.Error(t, err)
	assert.False(t, IsRemote(err))
	assert.Contains(t, err.Error(), "502")
}

func TestHandlerRejectsMalformedBody(t *testing.T) {
	srv := newTestServer(t)

	resp, err := srv.Client().Post(srv.URL+"/graphql", "application/json", http.NoBody)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body RawResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Errors, 1)
	assert.Equal(t, "BAD_REQUEST", body.Errors[0].Extensions["code"])
}

func TestOperationName(t *testing.T) {
	assert.Equal(t, "GetUser", OperationName("query GetUser($id: ID!) { user(id: $id) { user_id } }"))
	assert.Equal(t, "UpdateStock", OperationName("\n  mutation UpdateStock($id: ID!) { x }"))
	assert.Equal(t, "", OperationName("{ users { user_id } }"))
}
