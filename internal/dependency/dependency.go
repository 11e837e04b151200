package dependency

import (
	"context"
	"database/sql"
	"time"

	"github.com/glowdist/commission-manager/internal/entity"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type (
	Orders interface {
		// CreateOrder inserts an order with its line items.
		CreateOrder(ctx context.Context, orderNew *entity.OrderNew) (*entity.Order, error)
		GetOrderById(ctx context.Context, orderId int) (*entity.Order, error)
		// GetOrderItemSales returns the order's line items joined with the
		// product device flag.
		GetOrderItemSales(ctx context.Context, orderId int) ([]entity.OrderItemSales, error)
		UpdateOrderStatus(ctx context.Context, orderId int, status entity.OrderStatus) error
	}

	Ledger interface {
		// AccumulateEntry adds the delta to the (kol, shop, month) ledger row,
		// creating it if absent. The accumulation must be atomic: concurrent
		// orders for the same key must not lose updates.
		AccumulateEntry(ctx context.Context, delta entity.LedgerDelta) error
		GetEntry(ctx context.Context, kolId, shopId int, ym entity.YearMonth) (*entity.MonthlyLedgerEntry, error)
		ListEntriesByKolMonth(ctx context.Context, kolId int, ym entity.YearMonth) ([]entity.MonthlyLedgerEntry, error)
		// GetMonthlyTotals sums total_sales and commission over all of the
		// KOL's ledger rows in the given month.
		GetMonthlyTotals(ctx context.Context, kolId int, ym entity.YearMonth) (entity.MonthlyTotals, error)
		// GetTrailingMonthSales returns per-month ledger sums for the most
		// recent distinct months at or before ym, newest first.
		GetTrailingMonthSales(ctx context.Context, kolId int, ym entity.YearMonth, months int) ([]entity.MonthSales, error)
		// GetCumulativeCommission sums commission over every ledger row the
		// KOL has ever recorded.
		GetCumulativeCommission(ctx context.Context, kolId int) (decimal.Decimal, error)
		// CountActiveShops counts distinct shops with a ledger row in the month.
		CountActiveShops(ctx context.Context, kolId int, ym entity.YearMonth) (int, error)
		// ListActiveKols returns the distinct KOL ids with ledger data in the month.
		ListActiveKols(ctx context.Context, ym entity.YearMonth) ([]int, error)
	}

	Summaries interface {
		// UpsertSummary overwrites the (kol, month) summary row entirely.
		UpsertSummary(ctx context.Context, summary *entity.KolMonthlySummary) error
		GetSummary(ctx context.Context, kolId int, ym entity.YearMonth) (*entity.KolMonthlySummary, error)
	}

	Ratios interface {
		// AccumulateRatio adds amount to the (kol, shop, month, product) row
		// and sets its ratio, creating the row if absent.
		AccumulateRatio(ctx context.Context, ratio entity.ProductSalesRatio) error
		ListRatios(ctx context.Context, kolId, shopId int, ym entity.YearMonth) ([]entity.ProductSalesRatio, error)
		SetRatio(ctx context.Context, id int, ratio decimal.Decimal) error
	}

	Hierarchy interface {
		AddLink(ctx context.Context, link *entity.HierarchyLink) error
		// GetLinkByChild returns nil without error when the child has no parent.
		GetLinkByChild(ctx context.Context, childKolId int) (*entity.HierarchyLink, error)
		// UpsertReferralCredit records the one-time credit; the unique child
		// key makes re-triggers update the amount instead of adding rows.
		UpsertReferralCredit(ctx context.Context, credit *entity.ReferralCredit) error
		// SumReferralCredits sums credits earned by the parent in the month.
		SumReferralCredits(ctx context.Context, parentKolId int, ym entity.YearMonth) (decimal.Decimal, error)
		// SumAllReferralCredits sums every credit the parent has ever earned.
		SumAllReferralCredits(ctx context.Context, parentKolId int) (decimal.Decimal, error)
	}

	Commissions interface {
		AddCommission(ctx context.Context, insert *entity.CommissionInsert) (int, error)
		ListCommissionsByKol(ctx context.Context, kolId int) ([]entity.Commission, error)
	}

	Partners interface {
		AddKol(ctx context.Context, kol *entity.Kol) (int, error)
		AddShop(ctx context.Context, shop *entity.Shop) (int, error)
		GetShopById(ctx context.Context, shopId int) (*entity.Shop, error)
		CountShopsByKol(ctx context.Context, kolId int) (int, error)
		AddProduct(ctx context.Context, product *entity.Product) (int, error)
	}

	Repository interface {
		Orders() Orders
		Ledger() Ledger
		Summaries() Summaries
		Ratios() Ratios
		Hierarchy() Hierarchy
		Commissions() Commissions
		Partners() Partners
		Tx(ctx context.Context, f func(context.Context, Repository) error) error
		TxBegin(ctx context.Context) (Repository, error)
		TxCommit(ctx context.Context) error
		TxRollback(ctx context.Context) error
		Now() time.Time
		InTx() bool
		Close()
		IsErrUniqueViolation(err error) bool
		IsErrorRepeat(err error) bool
		DB() DB
	}

	// DB represents database interface.
	DB interface {
		BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
		ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)

		// sqlx methods
		GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
		NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
		NamedQuery(query string, arg interface{}) (*sqlx.Rows, error)
		PrepareNamedContext(ctx context.Context, query string) (*sqlx.NamedStmt, error)
		PreparexContext(ctx context.Context, query string) (*sqlx.Stmt, error)
		QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row
		QueryxContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error)
		SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	}
)
