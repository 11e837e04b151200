package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/glowdist/commission-manager/internal/dependency"
	"github.com/glowdist/commission-manager/internal/entity"
	"github.com/shopspring/decimal"
)

type ledgerStore struct {
	*MYSQLStore
}

// Ledger returns an object implementing the Ledger interface
func (ms *MYSQLStore) Ledger() dependency.Ledger {
	return &ledgerStore{
		MYSQLStore: ms,
	}
}

// AccumulateEntry adds the order's deltas to the (kol, shop, month)
// ledger row. The increment happens inside the UPDATE so concurrent
// orders for the same key can't lose each other's writes.
func (ms *MYSQLStore) AccumulateEntry(ctx context.Context, delta entity.LedgerDelta) error {
	err := ExecNamed(ctx, ms.DB(), `
	INSERT INTO monthly_ledger (kol_id, shop_id, sales_month, product_sales, device_sales, total_sales, commission)
	VALUES (:kolId, :shopId, :yearMonth, :productSales, :deviceSales, :totalSales, :commission)
	ON DUPLICATE KEY UPDATE
		product_sales = product_sales + VALUES(product_sales),
		device_sales = device_sales + VALUES(device_sales),
		total_sales = total_sales + VALUES(total_sales),
		commission = commission + VALUES(commission),
		updated_at = CURRENT_TIMESTAMP`, map[string]any{
		"kolId":        delta.KolID,
		"shopId":       delta.ShopID,
		"yearMonth":    delta.YearMonth.String(),
		"productSales": delta.ProductSales,
		"deviceSales":  delta.DeviceSales,
		"totalSales":   delta.TotalSales,
		"commission":   delta.Commission,
	})
	if err != nil {
		return fmt.Errorf("can't accumulate monthly ledger entry: %w", err)
	}
	return nil
}

func (ms *MYSQLStore) GetEntry(ctx context.Context, kolId, shopId int, ym entity.YearMonth) (*entity.MonthlyLedgerEntry, error) {
	entry, err := QueryNamedOne[entity.MonthlyLedgerEntry](ctx, ms.DB(), `
	SELECT id, kol_id, shop_id, sales_month, product_sales, device_sales, total_sales, commission, created_at, updated_at
	FROM monthly_ledger
	WHERE kol_id = :kolId AND shop_id = :shopId AND sales_month = :yearMonth`, map[string]any{
		"kolId":     kolId,
		"shopId":    shopId,
		"yearMonth": ym.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("can't get ledger entry: %w", err)
	}
	return &entry, nil
}

func (ms *MYSQLStore) ListEntriesByKolMonth(ctx context.Context, kolId int, ym entity.YearMonth) ([]entity.MonthlyLedgerEntry, error) {
	entries, err := QueryListNamed[entity.MonthlyLedgerEntry](ctx, ms.DB(), `
	SELECT id, kol_id, shop_id, sales_month, product_sales, device_sales, total_sales, commission, created_at, updated_at
	FROM monthly_ledger
	WHERE kol_id = :kolId AND sales_month = :yearMonth
	ORDER BY shop_id`, map[string]any{
		"kolId":     kolId,
		"yearMonth": ym.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("can't list ledger entries: %w", err)
	}
	return entries, nil
}

func (ms *MYSQLStore) GetMonthlyTotals(ctx context.Context, kolId int, ym entity.YearMonth) (entity.MonthlyTotals, error) {
	totals, err := QueryNamedOne[entity.MonthlyTotals](ctx, ms.DB(), `
	SELECT COALESCE(SUM(total_sales), 0) AS total_sales, COALESCE(SUM(commission), 0) AS commission
	FROM monthly_ledger
	WHERE kol_id = :kolId AND sales_month = :yearMonth`, map[string]any{
		"kolId":     kolId,
		"yearMonth": ym.String(),
	})
	if err != nil {
		return entity.MonthlyTotals{}, fmt.Errorf("can't get monthly totals: %w", err)
	}
	return totals, nil
}

func (ms *MYSQLStore) GetTrailingMonthSales(ctx context.Context, kolId int, ym entity.YearMonth, months int) ([]entity.MonthSales, error) {
	sales, err := QueryListNamed[entity.MonthSales](ctx, ms.DB(), `
	SELECT sales_month, SUM(total_sales) AS total_sales
	FROM monthly_ledger
	WHERE kol_id = :kolId AND sales_month <= :yearMonth
	GROUP BY sales_month
	ORDER BY sales_month DESC
	LIMIT :months`, map[string]any{
		"kolId":     kolId,
		"yearMonth": ym.String(),
		"months":    months,
	})
	if err != nil {
		return nil, fmt.Errorf("can't get trailing month sales: %w", err)
	}
	return sales, nil
}

func (ms *MYSQLStore) GetCumulativeCommission(ctx context.Context, kolId int) (decimal.Decimal, error) {
	type row struct {
		Commission decimal.Decimal `db:"commission"`
	}
	r, err := QueryNamedOne[row](ctx, ms.DB(), `
	SELECT COALESCE(SUM(commission), 0) AS commission
	FROM monthly_ledger
	WHERE kol_id = :kolId`, map[string]any{
		"kolId": kolId,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("can't get cumulative commission: %w", err)
	}
	return r.Commission, nil
}

func (ms *MYSQLStore) CountActiveShops(ctx context.Context, kolId int, ym entity.YearMonth) (int, error) {
	count, err := QueryCountNamed(ctx, ms.DB(), `
	SELECT COUNT(DISTINCT shop_id)
	FROM monthly_ledger
	WHERE kol_id = :kolId AND sales_month = :yearMonth`, map[string]any{
		"kolId":     kolId,
		"yearMonth": ym.String(),
	})
	if err != nil {
		return 0, fmt.Errorf("can't count active shops: %w", err)
	}
	return int(count), nil
}

func (ms *MYSQLStore) ListActiveKols(ctx context.Context, ym entity.YearMonth) ([]int, error) {
	type row struct {
		KolID int `db:"kol_id"`
	}
	rows, err := QueryListNamed[row](ctx, ms.DB(), `
	SELECT DISTINCT kol_id
	FROM monthly_ledger
	WHERE sales_month = :yearMonth
	ORDER BY kol_id`, map[string]any{
		"yearMonth": ym.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("can't list active kols: %w", err)
	}
	ids := make([]int, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.KolID)
	}
	return ids, nil
}
