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

type hierarchyStore struct {
	*MYSQLStore
}

// Hierarchy returns an object implementing the Hierarchy interface
func (ms *MYSQLStore) Hierarchy() dependency.Hierarchy {
	return &hierarchyStore{
		MYSQLStore: ms,
	}
}

func (ms *MYSQLStore) AddLink(ctx context.Context, link *entity.HierarchyLink) error {
	err := ExecNamed(ctx, ms.DB(), `
	INSERT INTO kol_hierarchy (child_kol_id, parent_kol_id, child_start_month)
	VALUES (:childKolId, :parentKolId, :childStartMonth)`, map[string]any{
		"childKolId":      link.ChildKolID,
		"parentKolId":     link.ParentKolID,
		"childStartMonth": link.ChildStartMonth.String(),
	})
	if err != nil {
		return fmt.Errorf("can't add hierarchy link: %w", err)
	}
	return nil
}

// GetLinkByChild returns nil without error when the child has no parent.
func (ms *MYSQLStore) GetLinkByChild(ctx context.Context, childKolId int) (*entity.HierarchyLink, error) {
	link, err := QueryNamedOne[entity.HierarchyLink](ctx, ms.DB(), `
	SELECT id, child_kol_id, parent_kol_id, child_start_month
	FROM kol_hierarchy
	WHERE child_kol_id = :childKolId`, map[string]any{
		"childKolId": childKolId,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("can't get hierarchy link: %w", err)
	}
	return &link, nil
}

// UpsertReferralCredit records the parent's one-time credit. The unique
// key on child_kol_id means a re-trigger replaces the amount instead of
// crediting twice.
func (ms *MYSQLStore) UpsertReferralCredit(ctx context.Context, credit *entity.ReferralCredit) error {
	err := ExecNamed(ctx, ms.DB(), `
	INSERT INTO referral_credit (parent_kol_id, child_kol_id, sales_month, amount)
	VALUES (:parentKolId, :childKolId, :yearMonth, :amount)
	ON DUPLICATE KEY UPDATE
		amount = VALUES(amount),
		sales_month = VALUES(sales_month)`, map[string]any{
		"parentKolId": credit.ParentKolID,
		"childKolId":  credit.ChildKolID,
		"yearMonth":   credit.YearMonth.String(),
		"amount":      credit.Amount,
	})
	if err != nil {
		return fmt.Errorf("can't upsert referral credit: %w", err)
	}
	return nil
}

func (ms *MYSQLStore) SumReferralCredits(ctx context.Context, parentKolId int, ym entity.YearMonth) (decimal.Decimal, error) {
	type row struct {
		Amount decimal.Decimal `db:"amount"`
	}
	r, err := QueryNamedOne[row](ctx, ms.DB(), `
	SELECT COALESCE(SUM(amount), 0) AS amount
	FROM referral_credit
	WHERE parent_kol_id = :parentKolId AND sales_month = :yearMonth`, map[string]any{
		"parentKolId": parentKolId,
		"yearMonth":   ym.String(),
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("can't sum referral credits: %w", err)
	}
	return r.Amount, nil
}

func (ms *MYSQLStore) SumAllReferralCredits(ctx context.Context, parentKolId int) (decimal.Decimal, error) {
	type row struct {
		Amount decimal.Decimal `db:"amount"`
	}
	r, err := QueryNamedOne[row](ctx, ms.DB(), `
	SELECT COALESCE(SUM(amount), 0) AS amount
	FROM referral_credit
	WHERE parent_kol_id = :parentKolId`, map[string]any{
		"parentKolId": parentKolId,
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("can't sum referral credits: %w", err)
	}
	return r.Amount, nil
}
