package store

import (
	"context"
	"fmt"

	"github.com/glowdist/commission-manager/internal/dependency"
	"github.com/glowdist/commission-manager/internal/entity"
)

type summaryStore struct {
	*MYSQLStore
}

// Summaries returns an object implementing the Summaries interface
func (ms *MYSQLStore) Summaries() dependency.Summaries {
	return &summaryStore{
		MYSQLStore: ms,
	}
}

// UpsertSummary overwrites every derived column of the (kol, month)
// summary row. The roll-up recomputes from source, so overwrite is the
// correct semantics here, unlike the ledger's accumulate.
func (ms *MYSQLStore) UpsertSummary(ctx context.Context, summary *entity.KolMonthlySummary) error {
	err := ExecNamed(ctx, ms.DB(), `
	INSERT INTO kol_monthly_summary (
		kol_id, sales_month, monthly_sales, monthly_commission, avg_monthly_sales,
		cumulative_commission, previous_month_sales, previous_month_commission,
		active_shops_count, total_shops_count
	) VALUES (
		:kolId, :yearMonth, :monthlySales, :monthlyCommission, :avgMonthlySales,
		:cumulativeCommission, :previousMonthSales, :previousMonthCommission,
		:activeShopsCount, :totalShopsCount
	)
	ON DUPLICATE KEY UPDATE
		monthly_sales = VALUES(monthly_sales),
		monthly_commission = VALUES(monthly_commission),
		avg_monthly_sales = VALUES(avg_monthly_sales),
		cumulative_commission = VALUES(cumulative_commission),
		previous_month_sales = VALUES(previous_month_sales),
		previous_month_commission = VALUES(previous_month_commission),
		active_shops_count = VALUES(active_shops_count),
		total_shops_count = VALUES(total_shops_count),
		updated_at = CURRENT_TIMESTAMP`, map[string]any{
		"kolId":                   summary.KolID,
		"yearMonth":               summary.YearMonth.String(),
		"monthlySales":            summary.MonthlySales,
		"monthlyCommission":       summary.MonthlyCommission,
		"avgMonthlySales":         summary.AvgMonthlySales,
		"cumulativeCommission":    summary.CumulativeCommission,
		"previousMonthSales":      summary.PreviousMonthSales,
		"previousMonthCommission": summary.PreviousMonthCommission,
		"activeShopsCount":        summary.ActiveShopsCount,
		"totalShopsCount":         summary.TotalShopsCount,
	})
	if err != nil {
		return fmt.Errorf("can't upsert kol monthly summary: %w", err)
	}
	return nil
}

func (ms *MYSQLStore) GetSummary(ctx context.Context, kolId int, ym entity.YearMonth) (*entity.KolMonthlySummary, error) {
	summary, err := QueryNamedOne[entity.KolMonthlySummary](ctx, ms.DB(), `
	SELECT id, kol_id, sales_month, monthly_sales, monthly_commission, avg_monthly_sales,
		cumulative_commission, previous_month_sales, previous_month_commission,
		active_shops_count, total_shops_count, created_at, updated_at
	FROM kol_monthly_summary
	WHERE kol_id = :kolId AND sales_month = :yearMonth`, map[string]any{
		"kolId":     kolId,
		"yearMonth": ym.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("can't get kol monthly summary: %w", err)
	}
	return &summary, nil
}
