package user

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/example/shipmesh/pkg/apperr"
	"github.com/example/shipmesh/pkg/database/sqlitetest"
	"github.com/example/shipmesh/pkg/graphql"
	"github.com/example/shipmesh/pkg/models"
	"github.com/example/shipmesh/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type memoryCache struct {
	items map[string][]byte
	gets  int
	hits  int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: map[string][]byte{}}
}

func (m *memoryCache) GetJSON(ctx context.Context, key string, dest any) error {
	m.gets++
	b, ok := m.items[key]
	if !ok {
		return repository.ErrCacheMiss
	}
	m.hits++
	return json.Unmarshal(b, dest)
}

func (m *memoryCache) SetJSON(ctx context.Context, key string, value any, expiration time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.items[key] = b
	return nil
}

func (m *memoryCache) Del(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.items, k)
	}
	return nil
}

func strPtr(s string) *string { return &s }

func newStore(t *testing.T) (*Store, *memoryCache, *gorm.DB) {
	t.Helper()
	db := sqlitetest.New(t, &models.User{})
	cache := newMemoryCache()
	return NewStore(db, cache, repository.NopAuditLog{}, zap.NewNop()), cache, db
}

func TestCreateUserHashesPassword(t *testing.T) {
	store, _, db := newStore(t)
	ctx := context.Background()

	u, err := store.Create(ctx, RegisterInput{Name: "Dewi", Email: "dewi@example.com", Phone: strPtr(""), Password: "rahasia"})
	require.NoError(t, err)
	assert.NotZero(t, u.UserID)
	assert.Nil(t, u.Phone)

	var stored models.User
	require.NoError(t, db.First(&stored, u.UserID).Error)
	assert.NotEqual(t, "rahasia", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("rahasia")))

	_, err = store.Create(ctx, RegisterInput{Name: "Other", Email: "dewi@example.com", Password: "x"})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestGetUserReadsThroughCache(t *testing.T) {
	store, cache, _ := newStore(t)
	ctx := context.Background()

	u, err := store.Create(ctx, RegisterInput{Name: "Dewi", Email: "dewi@example.com", Address: strPtr("Bandung"), Password: "pw"})
	require.NoError(t, err)

	first, err := store.Get(ctx, u.UserID)
	require.NoError(t, err)
	second, err := store.Get(ctx, u.UserID)
	require.NoError(t, err)

	assert.Equal(t, 1, cache.hits)
	assert.Equal(t, first.Email, second.Email)
	assert.Empty(t, second.PasswordHash)

	_, err = store.Get(ctx, 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUpdateUserInvalidatesCache(t *testing.T) {
	store, cache, _ := newStore(t)
	ctx := context.Background()

	u, err := store.Create(ctx, RegisterInput{Name: "Dewi", Email: "dewi@example.com", Phone: strPtr("0812"), Password: "pw"})
	require.NoError(t, err)
	_, err = store.Get(ctx, u.UserID)
	require.NoError(t, err)
	require.Len(t, cache.items, 1)

	updated, err := store.Update(ctx, u.UserID, UpdateInput{Address: strPtr("Jl. Braga 3"), SetAddress: true, SetPhone: true})
	require.NoError(t, err)
	assert.Equal(t, "Jl. Braga 3", *updated.Address)
	assert.Nil(t, updated.Phone)
	assert.Empty(t, cache.items)

	_, err = store.Update(ctx, u.UserID, UpdateInput{})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = store.Update(ctx, 999, UpdateInput{Name: "x"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUserSchema(t *testing.T) {
	store, _, _ := newStore(t)
	s, err := NewSchema(store)
	require.NoError(t, err)
	ctx := context.Background()

	resp := s.Execute(ctx, graphql.Request{Query: `mutation {
  createUser(input: {name: "Dewi", email: "dewi@example.com", password: "pw"}) { user_id name password }
}`})
	require.Empty(t, resp.Errors)
	b, _ := json.Marshal(resp.Data)
	assert.JSONEq(t, `{"createUser":{"user_id":"1","name":"Dewi","password":null}}`, string(b))

	resp = s.Execute(ctx, graphql.Request{Query: `{ user(id: "42") { name } }`})
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "NOT_FOUND", resp.Errors[0].Extensions["code"])

	resp = s.Execute(ctx, graphql.Request{Query: `mutation { a: deleteUser(id: "1") b: deleteUser(id: "1") }`})
	require.Empty(t, resp.Errors)
	b, _ = json.Marshal(resp.Data)
	assert.JSONEq(t, `{"a":true,"b":false}`, string(b))
}
