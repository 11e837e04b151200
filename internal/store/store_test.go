package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/glowdist/commission-manager/internal/entity"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *MYSQLStore {
	dsn := os.Getenv("MYSQL_TEST_DSN")
	if dsn == "" {
		t.Skip("MYSQL_TEST_DSN not set")
	}
	db, err := New(context.Background(), Config{
		DSN:         dsn,
		Automigrate: true,
	})
	require.NoError(t, err)

	ctx := context.Background()
	for _, table := range []string{
		"referral_credit", "commission", "kol_hierarchy", "product_sales_ratio",
		"kol_monthly_summary", "monthly_ledger", "order_item", "customer_order",
		"product", "shop", "kol",
	} {
		_, err = db.db.ExecContext(ctx, "DELETE FROM "+table)
		require.NoError(t, err)
	}

	return db
}

func TestOrderRoundtrip(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()
	ctx := context.Background()

	kolId, err := db.Partners().AddKol(ctx, &entity.Kol{Name: "kol one"})
	require.NoError(t, err)
	shopId, err := db.Partners().AddShop(ctx, &entity.Shop{KolID: kolId, Name: "shop one"})
	require.NoError(t, err)
	serumId, err := db.Partners().AddProduct(ctx, &entity.Product{Name: "serum", IsDevice: false})
	require.NoError(t, err)
	deviceId, err := db.Partners().AddProduct(ctx, &entity.Product{Name: "device", IsDevice: true})
	require.NoError(t, err)

	order, err := db.Orders().CreateOrder(ctx, &entity.OrderNew{
		ShopID:    shopId,
		OrderDate: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		Items: []entity.OrderItemInsert{
			{ProductID: serumId, UnitPrice: decimal.NewFromInt(2000), Quantity: 10},
			{ProductID: deviceId, UnitPrice: decimal.NewFromInt(25000), Quantity: 2},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusPending, order.Status)
	assert.NotEmpty(t, order.UUID)

	got, err := db.Orders().GetOrderById(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.UUID, got.UUID)

	items, err := db.Orders().GetOrderItemSales(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)

	breakdownTotal := decimal.Zero
	for _, item := range items {
		breakdownTotal = breakdownTotal.Add(item.LineTotal())
	}
	assert.True(t, breakdownTotal.Equal(decimal.NewFromInt(70000)))
}

func TestLedgerAccumulate(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()
	ctx := context.Background()

	kolId, err := db.Partners().AddKol(ctx, &entity.Kol{Name: "kol one"})
	require.NoError(t, err)
	shopId, err := db.Partners().AddShop(ctx, &entity.Shop{KolID: kolId, Name: "shop one"})
	require.NoError(t, err)

	delta := entity.LedgerDelta{
		KolID:        kolId,
		ShopID:       shopId,
		YearMonth:    "2025-03",
		ProductSales: decimal.NewFromInt(100),
		DeviceSales:  decimal.NewFromInt(50),
		TotalSales:   decimal.NewFromInt(150),
		Commission:   decimal.NewFromInt(30),
	}
	require.NoError(t, db.Ledger().AccumulateEntry(ctx, delta))
	require.NoError(t, db.Ledger().AccumulateEntry(ctx, delta))

	entry, err := db.Ledger().GetEntry(ctx, kolId, shopId, "2025-03")
	require.NoError(t, err)
	assert.True(t, entry.ProductSales.Equal(decimal.NewFromInt(200)))
	assert.True(t, entry.TotalSales.Equal(decimal.NewFromInt(300)))
	assert.True(t, entry.Commission.Equal(decimal.NewFromInt(60)))

	totals, err := db.Ledger().GetMonthlyTotals(ctx, kolId, "2025-03")
	require.NoError(t, err)
	assert.True(t, totals.TotalSales.Equal(decimal.NewFromInt(300)))

	shops, err := db.Ledger().CountActiveShops(ctx, kolId, "2025-03")
	require.NoError(t, err)
	assert.Equal(t, 1, shops)
}

func TestSummaryUpsertOverwrites(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()
	ctx := context.Background()

	kolId, err := db.Partners().AddKol(ctx, &entity.Kol{Name: "kol one"})
	require.NoError(t, err)

	summary := &entity.KolMonthlySummary{
		KolID:        kolId,
		YearMonth:    "2025-03",
		MonthlySales: decimal.NewFromInt(100),
	}
	require.NoError(t, db.Summaries().UpsertSummary(ctx, summary))

	summary.MonthlySales = decimal.NewFromInt(250)
	require.NoError(t, db.Summaries().UpsertSummary(ctx, summary))

	got, err := db.Summaries().GetSummary(ctx, kolId, "2025-03")
	require.NoError(t, err)
	assert.True(t, got.MonthlySales.Equal(decimal.NewFromInt(250)))
}

func TestReferralCreditUpsertKeyedByChild(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()
	ctx := context.Background()

	parentId, err := db.Partners().AddKol(ctx, &entity.Kol{Name: "parent"})
	require.NoError(t, err)
	childId, err := db.Partners().AddKol(ctx, &entity.Kol{Name: "child"})
	require.NoError(t, err)

	require.NoError(t, db.Hierarchy().UpsertReferralCredit(ctx, &entity.ReferralCredit{
		ParentKolID: parentId,
		ChildKolID:  childId,
		YearMonth:   "2025-03",
		Amount:      decimal.NewFromInt(2000),
	}))
	require.NoError(t, db.Hierarchy().UpsertReferralCredit(ctx, &entity.ReferralCredit{
		ParentKolID: parentId,
		ChildKolID:  childId,
		YearMonth:   "2025-03",
		Amount:      decimal.NewFromInt(3000),
	}))

	total, err := db.Hierarchy().SumAllReferralCredits(ctx, parentId)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromInt(3000)))
}
