package store

import (
	"context"
	"fmt"

	"github.com/glowdist/commission-manager/internal/dependency"
	"github.com/glowdist/commission-manager/internal/entity"
	"github.com/shopspring/decimal"
)

type ratioStore struct {
	*MYSQLStore
}

// Ratios returns an object implementing the Ratios interface
func (ms *MYSQLStore) Ratios() dependency.Ratios {
	return &ratioStore{
		MYSQLStore: ms,
	}
}

// AccumulateRatio adds the delta to the product's monthly sales amount
// and stores the freshly computed ratio. The amount increment is atomic;
// the ratio is overwritten because the caller recomputes it against the
// current monthly denominator.
func (ms *MYSQLStore) AccumulateRatio(ctx context.Context, ratio entity.ProductSalesRatio) error {
	err := ExecNamed(ctx, ms.DB(), `
	INSERT INTO product_sales_ratio (kol_id, shop_id, sales_month, product_id, sales_amount, sales_ratio)
	VALUES (:kolId, :shopId, :yearMonth, :productId, :salesAmount, :salesRatio)
	ON DUPLICATE KEY UPDATE
		sales_amount = sales_amount + VALUES(sales_amount),
		sales_ratio = VALUES(sales_ratio),
		updated_at = CURRENT_TIMESTAMP`, map[string]any{
		"kolId":       ratio.KolID,
		"shopId":      ratio.ShopID,
		"yearMonth":   ratio.YearMonth.String(),
		"productId":   ratio.ProductID,
		"salesAmount": ratio.SalesAmount,
		"salesRatio":  ratio.SalesRatio,
	})
	if err != nil {
		return fmt.Errorf("can't accumulate product sales ratio: %w", err)
	}
	return nil
}

func (ms *MYSQLStore) ListRatios(ctx context.Context, kolId, shopId int, ym entity.YearMonth) ([]entity.ProductSalesRatio, error) {
	ratios, err := QueryListNamed[entity.ProductSalesRatio](ctx, ms.DB(), `
	SELECT id, kol_id, shop_id, sales_month, product_id, sales_amount, sales_ratio, created_at, updated_at
	FROM product_sales_ratio
	WHERE kol_id = :kolId AND shop_id = :shopId AND sales_month = :yearMonth
	ORDER BY product_id`, map[string]any{
		"kolId":     kolId,
		"shopId":    shopId,
		"yearMonth": ym.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("can't list product sales ratios: %w", err)
	}
	return ratios, nil
}

func (ms *MYSQLStore) SetRatio(ctx context.Context, id int, ratio decimal.Decimal) error {
	err := ExecNamed(ctx, ms.DB(), `
	UPDATE product_sales_ratio SET sales_ratio = :salesRatio, updated_at = CURRENT_TIMESTAMP
	WHERE id = :id`, map[string]any{
		"id":         id,
		"salesRatio": ratio,
	})
	if err != nil {
		return fmt.Errorf("can't set product sales ratio: %w", err)
	}
	return nil
}
