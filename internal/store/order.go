package store

import (
	"context"
	"fmt"

	"github.com/glowdist/commission-manager/internal/dependency"
	"github.com/glowdist/commission-manager/internal/entity"
	"github.com/google/uuid"
)

type orderStore struct {
	*MYSQLStore
}

// Orders returns an object implementing the Orders interface
func (ms *MYSQLStore) Orders() dependency.Orders {
	return &orderStore{
		MYSQLStore: ms,
	}
}

func (ms *MYSQLStore) CreateOrder(ctx context.Context, orderNew *entity.OrderNew) (*entity.Order, error) {
	var order *entity.Order
	err := ms.Tx(ctx, func(ctx context.Context, rep dependency.Repository) error {
		orderUUID := uuid.New().String()
		orderId, err := ExecNamedLastId(ctx, rep.DB(), `
		INSERT INTO customer_order (uuid, shop_id, order_date, status)
		VALUES (:uuid, :shopId, :orderDate, :status)`, map[string]any{
			"uuid":      orderUUID,
			"shopId":    orderNew.ShopID,
			"orderDate": orderNew.OrderDate,
			"status":    entity.OrderStatusPending,
		})
		if err != nil {
			return fmt.Errorf("can't insert order: %w", err)
		}

		for _, item := range orderNew.Items {
			err := ExecNamed(ctx, rep.DB(), `
			INSERT INTO order_item (order_id, product_id, unit_price, quantity)
			VALUES (:orderId, :productId, :unitPrice, :quantity)`, map[string]any{
				"orderId":   orderId,
				"productId": item.ProductID,
				"unitPrice": item.UnitPrice,
				"quantity":  item.Quantity,
			})
			if err != nil {
				return fmt.Errorf("can't insert order item: %w", err)
			}
		}

		order = &entity.Order{
			ID:        orderId,
			UUID:      orderUUID,
			ShopID:    orderNew.ShopID,
			OrderDate: orderNew.OrderDate,
			Status:    entity.OrderStatusPending,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (ms *MYSQLStore) GetOrderById(ctx context.Context, orderId int) (*entity.Order, error) {
	order, err := QueryNamedOne[entity.Order](ctx, ms.DB(), `
	SELECT id, uuid, shop_id, order_date, status, created_at, updated_at
	FROM customer_order
	WHERE id = :orderId`, map[string]any{
		"orderId": orderId,
	})
	if err != nil {
		return nil, fmt.Errorf("can't get order by id %d: %w", orderId, err)
	}
	return &order, nil
}

// GetOrderItemSales returns the order's line items joined with the
// product device flag. Orders without line items yield an empty slice.
func (ms *MYSQLStore) GetOrderItemSales(ctx context.Context, orderId int) ([]entity.OrderItemSales, error) {
	items, err := QueryListNamed[entity.OrderItemSales](ctx, ms.DB(), `
	SELECT oi.product_id, oi.unit_price, oi.quantity, COALESCE(p.is_device, FALSE) AS is_device
	FROM order_item oi
	LEFT JOIN product p ON p.id = oi.product_id
	WHERE oi.order_id = :orderId`, map[string]any{
		"orderId": orderId,
	})
	if err != nil {
		return nil, fmt.Errorf("can't get order item sales: %w", err)
	}
	return items, nil
}

func (ms *MYSQLStore) UpdateOrderStatus(ctx context.Context, orderId int, status entity.OrderStatus) error {
	err := ExecNamed(ctx, ms.DB(), `
	UPDATE customer_order SET status = :status, updated_at = CURRENT_TIMESTAMP
	WHERE id = :orderId`, map[string]any{
		"orderId": orderId,
		"status":  status,
	})
	if err != nil {
		return fmt.Errorf("can't update order status: %w", err)
	}
	return nil
}
