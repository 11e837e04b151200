package store

import (
	"context"
	"fmt"

	"github.com/glowdist/commission-manager/internal/dependency"
	"github.com/glowdist/commission-manager/internal/entity"
)

type partnerStore struct {
	*MYSQLStore
}

// Partners returns an object implementing the Partners interface
func (ms *MYSQLStore) Partners() dependency.Partners {
	return &partnerStore{
		MYSQLStore: ms,
	}
}

func (ms *MYSQLStore) AddKol(ctx context.Context, kol *entity.Kol) (int, error) {
	id, err := ExecNamedLastId(ctx, ms.DB(), `
	INSERT INTO kol (name) VALUES (:name)`, map[string]any{
		"name": kol.Name,
	})
	if err != nil {
		return 0, fmt.Errorf("can't add kol: %w", err)
	}
	return id, nil
}

func (ms *MYSQLStore) AddShop(ctx context.Context, shop *entity.Shop) (int, error) {
	id, err := ExecNamedLastId(ctx, ms.DB(), `
	INSERT INTO shop (kol_id, name) VALUES (:kolId, :name)`, map[string]any{
		"kolId": shop.KolID,
		"name":  shop.Name,
	})
	if err != nil {
		return 0, fmt.Errorf("can't add shop: %w", err)
	}
	return id, nil
}

func (ms *MYSQLStore) GetShopById(ctx context.Context, shopId int) (*entity.Shop, error) {
	shop, err := QueryNamedOne[entity.Shop](ctx, ms.DB(), `
	SELECT id, kol_id, name FROM shop WHERE id = :shopId`, map[string]any{
		"shopId": shopId,
	})
	if err != nil {
		return nil, fmt.Errorf("can't get shop by id %d: %w", shopId, err)
	}
	return &shop, nil
}

// CountShopsByKol counts every shop currently assigned to the KOL,
// independent of monthly activity.
func (ms *MYSQLStore) CountShopsByKol(ctx context.Context, kolId int) (int, error) {
	count, err := QueryCountNamed(ctx, ms.DB(), `
	SELECT COUNT(*) FROM shop WHERE kol_id = :kolId`, map[string]any{
		"kolId": kolId,
	})
	if err != nil {
		return 0, fmt.Errorf("can't count shops: %w", err)
	}
	return int(count), nil
}

func (ms *MYSQLStore) AddProduct(ctx context.Context, product *entity.Product) (int, error) {
	id, err := ExecNamedLastId(ctx, ms.DB(), `
	INSERT INTO product (name, is_device) VALUES (:name, :isDevice)`, map[string]any{
		"name":     product.Name,
		"isDevice": product.IsDevice,
	})
	if err != nil {
		return 0, fmt.Errorf("can't add product: %w", err)
	}
	return id, nil
}
