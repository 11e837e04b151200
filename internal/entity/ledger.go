package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// MonthlyLedgerEntry represents the monthly_ledger table: the per-shop
// per-month additive accumulation row. Never deleted, never overwritten,
// only accumulated into.
type MonthlyLedgerEntry struct {
	ID           int             `db:"id" json:"id"`
	KolID        int             `db:"kol_id" json:"kolId"`
	ShopID       int             `db:"shop_id" json:"shopId"`
	YearMonth    YearMonth       `db:"sales_month" json:"yearMonth"`
	ProductSales decimal.Decimal `db:"product_sales" json:"productSales"`
	DeviceSales  decimal.Decimal `db:"device_sales" json:"deviceSales"`
	TotalSales   decimal.Decimal `db:"total_sales" json:"totalSales"`
	Commission   decimal.Decimal `db:"commission" json:"commission"`
	CreatedAt    time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updatedAt"`
}

// LedgerDelta is a single order's contribution to a ledger row.
type LedgerDelta struct {
	KolID        int
	ShopID       int
	YearMonth    YearMonth
	ProductSales decimal.Decimal
	DeviceSales  decimal.Decimal
	TotalSales   decimal.Decimal
	Commission   decimal.Decimal
}

// MonthlyTotals is the per-KOL ledger sum for a single month.
type MonthlyTotals struct {
	TotalSales decimal.Decimal `db:"total_sales"`
	Commission decimal.Decimal `db:"commission"`
}

// MonthSales is the ledger total of one distinct month, used for the
// trailing average.
type MonthSales struct {
	YearMonth  YearMonth       `db:"sales_month"`
	TotalSales decimal.Decimal `db:"total_sales"`
}
