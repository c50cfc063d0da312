package models

import "time"

// ShipXpress rows, read and written with raw SQL against Postgres.

type Customer struct {
	CustomerID int64     `json:"customer_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	Address    string    `json:"address"`
	CType      string    `json:"C_type"`
	CreatedAt  time.Time `json:"created_at"`
}

type Vehicle struct {
	VehicleID    int64     `json:"vehicle_id"`
	VType        string    `json:"V_type"`
	LicensePlate string    `json:"license_plate"`
	Capacity     float64   `json:"capacity"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

type Driver struct {
	DriverID      int64     `json:"driver_id"`
	NameDriver    string    `json:"name_driver"`
	PhoneDriver   string    `json:"phone_driver"`
	LicenseDriver string    `json:"license_driver"`
	VehicleID     *int64    `json:"vehicle_id"`
	ProfilePhoto  *string   `json:"profile_photo"`
	CreatedAt     time.Time `json:"created_at"`
}

type Shipment struct {
	ShipmentID         int64     `json:"shipment_id"`
	CustomerID         int64     `json:"customer_id"`
	OriginAddress      string    `json:"origin_address"`
	DestinationAddress string    `json:"destination_address"`
	SType              string    `json:"S_type"`
	Weight             float64   `json:"weight"`
	Status             string    `json:"status"`
	VehicleID          *int64    `json:"vehicle_id"`
	CreatedAt          time.Time `json:"created_at"`
}

type TrackingUpdate struct {
	TrackingID       int64     `json:"tracking_id"`
	ShipmentID       int64     `json:"shipment_id"`
	Location         string    `json:"location"`
	Status           string    `json:"status"`
	RecipientName    *string   `json:"recipient_name"`
	RecipientPhone   *string   `json:"recipient_phone"`
	RecipientAddress *string   `json:"recipient_address"`
	ItemName         *string   `json:"item_name"`
	Barcode          *string   `json:"barcode"`
	UpdatedAt        time.Time `json:"updated_at"`
}
