package store

import (
	"context"
	"fmt"

	"github.com/glowdist/commission-manager/internal/dependency"
	"github.com/glowdist/commission-manager/internal/entity"
)

type commissionStore struct {
	*MYSQLStore
}

// Commissions returns an object implementing the Commissions interface
func (ms *MYSQLStore) Commissions() dependency.Commissions {
	return &commissionStore{
		MYSQLStore: ms,
	}
}

// AddCommission appends one audit row per processed order. Always an
// insert, never an upsert.
func (ms *MYSQLStore) AddCommission(ctx context.Context, insert *entity.CommissionInsert) (int, error) {
	id, err := ExecNamedLastId(ctx, ms.DB(), `
	INSERT INTO commission (kol_id, order_id, amount, settled)
	VALUES (:kolId, :orderId, :amount, FALSE)`, map[string]any{
		"kolId":   insert.KolID,
		"orderId": insert.OrderID,
		"amount":  insert.Amount,
	})
	if err != nil {
		return 0, fmt.Errorf("can't add commission: %w", err)
	}
	return id, nil
}

func (ms *MYSQLStore) ListCommissionsByKol(ctx context.Context, kolId int) ([]entity.Commission, error) {
	commissions, err := QueryListNamed[entity.Commission](ctx, ms.DB(), `
	SELECT id, kol_id, order_id, amount, settled, created_at
	FROM commission
	WHERE kol_id = :kolId
	ORDER BY id`, map[string]any{
		"kolId": kolId,
	})
	if err != nil {
		return nil, fmt.Errorf("can't list commissions: %w", err)
	}
	return commissions, nil
}
