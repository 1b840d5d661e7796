package orders

import "time"

// Order is immutable after creation except for Status.
type Order struct {
	ID          string      `json:"id"`
	OrderNumber string      `json:"order_number"`
	UserID      string      `json:"user_id"`
	Status      Status      `json:"status"` // see status.go
	TotalCents  int         `json:"total_cents"`
	Items       []OrderItem `json:"items"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// OrderItem snapshots name and price at creation time so historical orders
// stay accurate when the catalog changes.
type OrderItem struct {
	ID             string `json:"id"`
	OrderID        string `json:"order_id"`
	ProductID      string `json:"product_id"`
	Name           string `json:"name"`
	UnitPriceCents int    `json:"unit_price_cents"`
	Qty            int    `json:"qty"`
}

type Reservation struct {
	OrderID   string    `json:"order_id"`
	ProductID string    `json:"product_id"`
	Qty       int       `json:"qty"`
	Status    string    `json:"status"` // RESERVED | RELEASED
	CreatedAt time.Time `json:"created_at"`
}
