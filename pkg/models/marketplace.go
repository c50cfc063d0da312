package models

import "time"

// Marketplace (YapPerce) tables, stored in MySQL through gorm.

type User struct {
	UserID       int64     `gorm:"primaryKey;column:user_id;autoIncrement" json:"user_id"`
	Name         string    `gorm:"type:varchar(100);not null" json:"name"`
	Email        string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"email"`
	Phone        *string   `gorm:"type:varchar(20)" json:"phone"`
	Address      *string   `gorm:"type:text" json:"address"`
	PasswordHash string    `gorm:"column:password;type:varchar(255);not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

func (User) TableName() string {
	return "users"
}

type Category struct {
	CategoryID   int64  `gorm:"primaryKey;column:category_id;autoIncrement" json:"category_id"`
	CategoryName string `gorm:"type:varchar(100);not null" json:"category_name"`
}

func (Category) TableName() string {
	return "categories"
}

type Product struct {
	ProductID   int64   `gorm:"primaryKey;column:product_id;autoIncrement" json:"product_id"`
	Name        string  `gorm:"type:varchar(255);not null" json:"name"`
	Description *string `gorm:"type:text" json:"description"`
	Price       float64 `gorm:"type:decimal(12,2);not null" json:"price"`
	Stock       int     `gorm:"not null;default:0" json:"stock"`
	CategoryID  *int64  `gorm:"index" json:"category_id"`
	UserID      int64   `gorm:"not null;index" json:"user_id"`
}

func (Product) TableName() string {
	return "products"
}

type Order struct {
	OrderID        int64     `gorm:"primaryKey;column:order_id;autoIncrement" json:"order_id"`
	UserID         int64     `gorm:"not null;index" json:"user_id"`
	OrderDate      time.Time `gorm:"autoCreateTime" json:"order_date"`
	TotalAmount    float64   `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	Status         string    `gorm:"type:varchar(32);not null" json:"status"`
	ShipmentStatus *string   `gorm:"type:varchar(64)" json:"shipment_status"`
	ShipmentID     *string   `gorm:"type:varchar(64)" json:"shipment_id"`
}

func (Order) TableName() string {
	return "orders"
}

type OrderItem struct {
	OrderItemID int64   `gorm:"primaryKey;column:order_item_id;autoIncrement" json:"order_item_id"`
	OrderID     int64   `gorm:"not null;index" json:"order_id"`
	ProductID   int64   `gorm:"not null" json:"product_id"`
	Quantity    int     `gorm:"not null" json:"quantity"`
	Price       float64 `gorm:"type:decimal(12,2);not null" json:"price"`
}

func (OrderItem) TableName() string {
	return "order_items"
}

// OrderTransition is one recorded change of orders.status.
type OrderTransition struct {
	TransitionID int64     `gorm:"primaryKey;column:transition_id;autoIncrement" json:"transition_id"`
	OrderID      int64     `gorm:"not null;index" json:"order_id"`
	FromStatus   string    `gorm:"type:varchar(32)" json:"from_status"`
	ToStatus     string    `gorm:"type:varchar(32);not null" json:"to_status"`
	Cause        string    `gorm:"type:varchar(64);not null" json:"cause"`
	CreatedAt    time.Time `json:"created_at"`
}

func (OrderTransition) TableName() string {
	return "order_transitions"
}

type Payment struct {
	PaymentID     int64     `gorm:"primaryKey;column:payment_id;autoIncrement" json:"payment_id"`
	OrderID       int64     `gorm:"not null;index" json:"order_id"`
	PaymentDate   time.Time `gorm:"autoCreateTime" json:"payment_date"`
	Amount        float64   `gorm:"type:decimal(12,2);not null" json:"amount"`
	PaymentStatus string    `gorm:"type:varchar(32);not null" json:"payment_status"`
}

func (Payment) TableName() string {
	return "payments"
}
