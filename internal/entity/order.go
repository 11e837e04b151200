package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Order represents the customer_order table.
type Order struct {
	ID        int         `db:"id" json:"id"`
	UUID      string      `db:"uuid" json:"uuid"`
	ShopID    int         `db:"shop_id" json:"shopId"`
	OrderDate time.Time   `db:"order_date" json:"orderDate"`
	Status    OrderStatus `db:"status" json:"status"`
	CreatedAt time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time   `db:"updated_at" json:"updatedAt"`
}

func (o *Order) Month() YearMonth {
	return YearMonthOf(o.OrderDate)
}

type OrderItemInsert struct {
	ProductID int             `json:"productId" valid:"required"`
	UnitPrice decimal.Decimal `json:"unitPrice" valid:"required"`
	Quantity  int             `json:"quantity" valid:"required"`
}

type OrderNew struct {
	ShopID    int               `json:"shopId" valid:"required"`
	OrderDate time.Time         `json:"orderDate" valid:"required"`
	Items     []OrderItemInsert `json:"items"`
}

// OrderItem represents the order_item table.
type OrderItem struct {
	ID        int             `db:"id"`
	OrderID   int             `db:"order_id"`
	ProductID int             `db:"product_id"`
	UnitPrice decimal.Decimal `db:"unit_price"`
	Quantity  int             `db:"quantity"`
}

// OrderItemSales is an order line joined with the product device flag,
// the unit the decomposer works on.
type OrderItemSales struct {
	ProductID int             `db:"product_id"`
	UnitPrice decimal.Decimal `db:"unit_price"`
	Quantity  int             `db:"quantity"`
	IsDevice  bool            `db:"is_device"`
}

func (i OrderItemSales) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// SalesBreakdown is the decomposed sales of a single order.
type SalesBreakdown struct {
	ProductSales decimal.Decimal `json:"productSales"`
	DeviceSales  decimal.Decimal `json:"deviceSales"`
	TotalSales   decimal.Decimal `json:"totalSales"`
}
