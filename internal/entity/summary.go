package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// KolMonthlySummary represents the kol_monthly_summary table. It is a
// derived view: every field is recomputed from the ledger (and referral
// credits) on each roll-up, so re-running a roll-up is a no-op.
type KolMonthlySummary struct {
	ID                      int             `db:"id" json:"id"`
	KolID                   int             `db:"kol_id" json:"kolId"`
	YearMonth               YearMonth       `db:"sales_month" json:"yearMonth"`
	MonthlySales            decimal.Decimal `db:"monthly_sales" json:"monthlySales"`
	MonthlyCommission       decimal.Decimal `db:"monthly_commission" json:"monthlyCommission"`
	AvgMonthlySales         decimal.Decimal `db:"avg_monthly_sales" json:"avgMonthlySales"`
	CumulativeCommission    decimal.Decimal `db:"cumulative_commission" json:"cumulativeCommission"`
	PreviousMonthSales      decimal.Decimal `db:"previous_month_sales" json:"previousMonthSales"`
	PreviousMonthCommission decimal.Decimal `db:"previous_month_commission" json:"previousMonthCommission"`
	ActiveShopsCount        int             `db:"active_shops_count" json:"activeShopsCount"`
	TotalShopsCount         int             `db:"total_shops_count" json:"totalShopsCount"`
	CreatedAt               time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt               time.Time       `db:"updated_at" json:"updatedAt"`
}
