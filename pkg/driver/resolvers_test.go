package driver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/example/shipmesh/pkg/database"
	"github.com/example/shipmesh/pkg/graphql"
	"github.com/example/shipmesh/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	rows map[int64]*models.Driver
	sets []database.Assignments
}

func (f *fakeRepo) List(ctx context.Context) ([]*models.Driver, error) { return nil, nil }

func (f *fakeRepo) ListByVehicle(ctx context.Context, vehicleID int64) ([]*models.Driver, error) {
	var out []*models.Driver
	for _, d := range f.rows {
		if d.VehicleID != nil && *d.VehicleID == vehicleID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeRepo) Get(ctx context.Context, id int64) (*models.Driver, error) { return f.rows[id], nil }

func (f *fakeRepo) Create(ctx context.Context, d *models.Driver) (*models.Driver, error) {
	d.DriverID = int64(len(f.rows) + 1)
	f.rows[d.DriverID] = d
	return d, nil
}

func (f *fakeRepo) Update(ctx context.Context, id int64, set database.Assignments) (*models.Driver, error) {
	f.sets = append(f.sets, set)
	return f.rows[id], nil
}

func (f *fakeRepo) Delete(ctx context.Context, id int64) (bool, error) { return false, nil }

func int64Ptr(v int64) *int64 { return &v }

func TestAvatarURL(t *testing.T) {
	assert.Equal(t, "https://ui-avatars.com/api/?name=Joko%20Widodo&background=FAB12F&color=fff&size=200", AvatarURL("Joko Widodo"))
}

func TestDriverFields(t *testing.T) {
	photo := "https://cdn.example.com/rina.png"
	repo := &fakeRepo{rows: map[int64]*models.Driver{
		1: {DriverID: 1, NameDriver: "Joko Widodo", VehicleID: int64Ptr(3)},
		2: {DriverID: 2, NameDriver: "Rina", ProfilePhoto: &photo},
	}}
	s, err := NewSchema(repo)
	require.NoError(t, err)

	resp := s.Execute(context.Background(), graphql.Request{Query: `{
  a: driver(id: "1") { profile_photo vehicle { vehicle_id } }
  b: driver(id: "2") { profile_photo vehicle { vehicle_id } }
  driversByVehicle(vehicle_id: "3") { driver_id }
}`})
	require.Empty(t, resp.Errors)
	b, _ := json.Marshal(resp.Data)
	assert.JSONEq(t, `{
  "a": {"profile_photo": "https://ui-avatars.com/api/?name=Joko%20Widodo&background=FAB12F&color=fff&size=200", "vehicle": {"vehicle_id": "3"}},
  "b": {"profile_photo": "https://cdn.example.com/rina.png", "vehicle": null},
  "driversByVehicle": [{"driver_id": "1"}]
}`, string(b))
}

func TestUpdateDriverClearsVehicle(t *testing.T) {
	repo := &fakeRepo{rows: map[int64]*models.Driver{1: {DriverID: 1, NameDriver: "Joko"}}}
	s, err := NewSchema(repo)
	require.NoError(t, err)

	resp := s.Execute(context.Background(), graphql.Request{Query: `mutation { updateDriver(id: "1", vehicle_id: null) { driver_id } }`})
	require.Empty(t, resp.Errors)
	require.Len(t, repo.sets, 1)
	assert.Equal(t, "vehicle_id", repo.sets[0][0].Column)
	assert.Nil(t, repo.sets[0][0].Value)
}
