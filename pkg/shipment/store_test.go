package shipment

import (
	"context"
	"strings"
	"testing"

	"github.com/example/shipmesh/pkg/customer"
	"github.com/example/shipmesh/pkg/database"
	"github.com/example/shipmesh/pkg/database/pgtest"
	"github.com/example/shipmesh/pkg/models"
	"github.com/example/shipmesh/pkg/tracking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreCreateIsAtomic(t *testing.T) {
	db := pgtest.New(t)
	store := NewStore(db)
	ctx := context.Background()

	shadow := &models.Customer{CustomerID: 42, Name: "Dewi", Email: "dewi@example.com", Phone: "-", Address: "Bandung"}
	created, err := store.Create(ctx, shadow, &models.Shipment{
		CustomerID: 42, OriginAddress: "Warehouse", DestinationAddress: "Bandung", SType: "Marketplace Order", Weight: 2, Status: "Processing",
	}, func(sh *models.Shipment) *models.TrackingUpdate {
		return &models.TrackingUpdate{Location: sh.OriginAddress, Status: sh.Status}
	})
	require.NoError(t, err)

	cust, err := store.Customer(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, customer.MarketplaceType, cust.CType)

	history, err := tracking.NewStore(db).ListByShipment(ctx, created.ShipmentID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Warehouse", history[0].Location)

	// status is VARCHAR(50), so this tracking insert fails and must take the
	// shadow row and the shipment down with it.
	_, err = store.Create(ctx, &models.Customer{CustomerID: 43, Name: "X", Email: "x@example.com", Phone: "-", Address: "-"},
		&models.Shipment{CustomerID: 43, OriginAddress: "W", DestinationAddress: "D", SType: "R", Weight: 1, Status: "pending"},
		func(sh *models.Shipment) *models.TrackingUpdate {
			return &models.TrackingUpdate{Location: "W", Status: strings.Repeat("x", 60)}
		})
	require.Error(t, err)

	gone, err := store.Customer(ctx, 43)
	require.NoError(t, err)
	assert.Nil(t, gone)

	all, err := store.ListByCustomer(ctx, 43)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestStoreUpdateAppendsTracking(t *testing.T) {
	db := pgtest.New(t)
	store := NewStore(db)
	ctx := context.Background()

	created, err := store.Create(ctx, &models.Customer{CustomerID: 7, Name: "Rina", Email: "rina@example.com", Phone: "0812", Address: "Jakarta"},
		&models.Shipment{CustomerID: 7, OriginAddress: "W", DestinationAddress: "Jakarta", SType: "R", Weight: 1, Status: "pending"}, nil)
	require.NoError(t, err)

	status := "In Transit"
	var set database.Assignments
	set.Set("status", &status)
	updated, err := store.Update(ctx, created.ShipmentID, set, func(sh *models.Shipment) *models.TrackingUpdate {
		return &models.TrackingUpdate{Location: LocationFor(sh.Status), Status: sh.Status}
	})
	require.NoError(t, err)
	assert.Equal(t, "In Transit", updated.Status)

	history, err := tracking.NewStore(db).ListByShipment(ctx, created.ShipmentID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "In transit", history[0].Location)

	missing, err := store.Update(ctx, 999, set, nil)
	require.NoError(t, err)
	assert.Nil(t, missing)

	byStatus, err := store.ListByStatus(ctx, "In Transit")
	require.NoError(t, err)
	assert.Len(t, byStatus, 1)
}
