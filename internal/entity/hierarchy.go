package entity

import (
	"github.com/shopspring/decimal"
)

// HierarchyLink represents the kol_hierarchy table. Externally managed;
// the pipeline only reads it to detect a child's first active month.
type HierarchyLink struct {
	ID              int       `db:"id"`
	ChildKolID      int       `db:"child_kol_id"`
	ParentKolID     int       `db:"parent_kol_id"`
	ChildStartMonth YearMonth `db:"child_start_month"`
}

// ReferralCredit represents the referral_credit table: the one-time 10%
// credit a parent KOL earns from a child's first active month. Keyed
// uniquely by child, so re-triggering the propagator can only update the
// amount, never add a second credit. The summary roll-up sums these in,
// which keeps the recompute from clobbering referral earnings.
type ReferralCredit struct {
	ID          int             `db:"id"`
	ParentKolID int             `db:"parent_kol_id"`
	ChildKolID  int             `db:"child_kol_id"`
	YearMonth   YearMonth       `db:"sales_month"`
	Amount      decimal.Decimal `db:"amount"`
}
