package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductSalesRatio represents the product_sales_ratio table.
// sales_amount accumulates additively; sales_ratio is recomputed against
// the shop's monthly product sales and renormalized so the set for one
// (kol, shop, month) sums to 1.
type ProductSalesRatio struct {
	ID          int             `db:"id" json:"id"`
	KolID       int             `db:"kol_id" json:"kolId"`
	ShopID      int             `db:"shop_id" json:"shopId"`
	YearMonth   YearMonth       `db:"sales_month" json:"yearMonth"`
	ProductID   int             `db:"product_id" json:"productId"`
	SalesAmount decimal.Decimal `db:"sales_amount" json:"salesAmount"`
	SalesRatio  decimal.Decimal `db:"sales_ratio" json:"salesRatio"`
	CreatedAt   time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updatedAt"`
}
