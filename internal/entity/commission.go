package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Commission represents the commission table: the append-only audit log,
// one row per processed order. Distinct from the aggregated ledger.
type Commission struct {
	ID        int             `db:"id" json:"id"`
	KolID     int             `db:"kol_id" json:"kolId"`
	OrderID   int             `db:"order_id" json:"orderId"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	Settled   bool            `db:"settled" json:"settled"`
	CreatedAt time.Time       `db:"created_at" json:"createdAt"`
}

type CommissionInsert struct {
	KolID   int
	OrderID int
	Amount  decimal.Decimal
}
