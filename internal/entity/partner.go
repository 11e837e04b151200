package entity

// Kol is a reseller entity, the aggregation root for commission
// reporting. Managed by the upstream admin flow; this service only needs
// identity.
type Kol struct {
	ID   int    `db:"id"`
	Name string `db:"name"`
}

// Shop is a retail location belonging to exactly one KOL.
type Shop struct {
	ID    int    `db:"id"`
	KolID int    `db:"kol_id"`
	Name  string `db:"name"`
}

// Product classifies order lines as device or consumable revenue.
type Product struct {
	ID       int    `db:"id"`
	Name     string `db:"name"`
	IsDevice bool   `db:"is_device"`
}
