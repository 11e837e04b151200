package rollup

import (
	"context"
	"testing"
	"time"

	"github.com/glowdist/commission-manager/internal/entity"
	"github.com/glowdist/commission-manager/internal/store/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store    *memory.Store
	svc      *Service
	kolId    int
	shopId   int
	serumId  int
	deviceId int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	s := memory.New()

	kolId, err := s.Partners().AddKol(ctx, &entity.Kol{Name: "kol one"})
	require.NoError(t, err)
	shopId, err := s.Partners().AddShop(ctx, &entity.Shop{KolID: kolId, Name: "shop one"})
	require.NoError(t, err)
	serumId, err := s.Partners().AddProduct(ctx, &entity.Product{Name: "serum", IsDevice: false})
	require.NoError(t, err)
	deviceId, err := s.Partners().AddProduct(ctx, &entity.Product{Name: "device", IsDevice: true})
	require.NoError(t, err)

	return &fixture{
		store:    s,
		svc:      New(s),
		kolId:    kolId,
		shopId:   shopId,
		serumId:  serumId,
		deviceId: deviceId,
	}
}

func (f *fixture) placeOrder(t *testing.T, shopId int, date time.Time, items []entity.OrderItemInsert) int {
	t.Helper()
	order, err := f.store.Orders().CreateOrder(context.Background(), &entity.OrderNew{
		ShopID:    shopId,
		OrderDate: date,
		Items:     items,
	})
	require.NoError(t, err)
	return order.ID
}

func date(y int, m time.Month) time.Time {
	return time.Date(y, m, 15, 12, 0, 0, 0, time.UTC)
}

func TestProcessOrderEndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	orderId := f.placeOrder(t, f.shopId, date(2025, 3), []entity.OrderItemInsert{
		{ProductID: f.serumId, UnitPrice: decimal.NewFromInt(2000), Quantity: 10},
		{ProductID: f.deviceId, UnitPrice: decimal.NewFromInt(25000), Quantity: 2},
	})

	result, err := f.svc.ProcessOrder(ctx, orderId)
	require.NoError(t, err)
	assert.True(t, result.Processed)
	assert.True(t, result.Breakdown.ProductSales.Equal(decimal.NewFromInt(20000)))
	assert.True(t, result.Breakdown.DeviceSales.Equal(decimal.NewFromInt(50000)))
	assert.True(t, result.Breakdown.TotalSales.Equal(decimal.NewFromInt(70000)))
	assert.True(t, result.Commission.Equal(decimal.NewFromInt(6000)))

	entry, err := f.store.Ledger().GetEntry(ctx, f.kolId, f.shopId, "2025-03")
	require.NoError(t, err)
	assert.True(t, entry.ProductSales.Equal(decimal.NewFromInt(20000)))
	assert.True(t, entry.DeviceSales.Equal(decimal.NewFromInt(50000)))
	assert.True(t, entry.TotalSales.Equal(decimal.NewFromInt(70000)))
	assert.True(t, entry.Commission.Equal(decimal.NewFromInt(6000)))

	summary, err := f.store.Summaries().GetSummary(ctx, f.kolId, "2025-03")
	require.NoError(t, err)
	assert.True(t, summary.MonthlySales.Equal(decimal.NewFromInt(70000)))
	assert.True(t, summary.MonthlyCommission.Equal(decimal.NewFromInt(6000)))
	assert.True(t, summary.CumulativeCommission.Equal(decimal.NewFromInt(6000)))
	assert.True(t, summary.AvgMonthlySales.Equal(decimal.NewFromInt(70000)))
	assert.True(t, summary.PreviousMonthSales.IsZero())
	assert.Equal(t, 1, summary.ActiveShopsCount)
	assert.Equal(t, 1, summary.TotalShopsCount)

	commissions, err := f.store.Commissions().ListCommissionsByKol(ctx, f.kolId)
	require.NoError(t, err)
	require.Len(t, commissions, 1)
	assert.Equal(t, orderId, commissions[0].OrderID)
	assert.True(t, commissions[0].Amount.Equal(decimal.NewFromInt(6000)))
	assert.False(t, commissions[0].Settled)

	order, err := f.store.Orders().GetOrderById(ctx, orderId)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusCompleted, order.Status)
}

func TestProcessOrderCancelledIsSkipped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	orderId := f.placeOrder(t, f.shopId, date(2025, 3), []entity.OrderItemInsert{
		{ProductID: f.serumId, UnitPrice: decimal.NewFromInt(1000), Quantity: 1},
	})
	require.NoError(t, f.store.Orders().UpdateOrderStatus(ctx, orderId, entity.OrderStatusCancelled))

	result, err := f.svc.ProcessOrder(ctx, orderId)
	require.NoError(t, err)
	assert.False(t, result.Processed)
	assert.NotEmpty(t, result.SkipReason)

	_, err = f.store.Ledger().GetEntry(ctx, f.kolId, f.shopId, "2025-03")
	assert.Error(t, err)
	totals, err := f.store.Ledger().GetMonthlyTotals(ctx, f.kolId, "2025-03")
	require.NoError(t, err)
	assert.True(t, totals.TotalSales.IsZero())
}

func TestProcessOrderNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ProcessOrder(context.Background(), 12345)
	assert.Error(t, err)
}

func TestProcessOrderTwiceDoesNotDoubleCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	orderId := f.placeOrder(t, f.shopId, date(2025, 3), []entity.OrderItemInsert{
		{ProductID: f.serumId, UnitPrice: decimal.NewFromInt(100), Quantity: 1},
	})

	first, err := f.svc.ProcessOrder(ctx, orderId)
	require.NoError(t, err)
	assert.True(t, first.Processed)

	second, err := f.svc.ProcessOrder(ctx, orderId)
	require.NoError(t, err)
	assert.False(t, second.Processed)

	entry, err := f.store.Ledger().GetEntry(ctx, f.kolId, f.shopId, "2025-03")
	require.NoError(t, err)
	assert.True(t, entry.TotalSales.Equal(decimal.NewFromInt(100)))
}

func TestLedgerAccumulationIsOrderIndependent(t *testing.T) {
	ctx := context.Background()
	items := [][]entity.OrderItemInsert{
		{{ProductID: 0, UnitPrice: decimal.NewFromInt(300), Quantity: 1}},
		{{ProductID: 0, UnitPrice: decimal.NewFromInt(700), Quantity: 2}},
		{{ProductID: 0, UnitPrice: decimal.NewFromInt(150), Quantity: 4}},
	}

	run := func(order []int) entity.MonthlyTotals {
		f := newFixture(t)
		var ids []int
		for _, set := range items {
			for i := range set {
				set[i].ProductID = f.serumId
			}
			ids = append(ids, f.placeOrder(t, f.shopId, date(2025, 5), set))
		}
		for _, i := range order {
			_, err := f.svc.ProcessOrder(ctx, ids[i])
			require.NoError(t, err)
		}
		totals, err := f.store.Ledger().GetMonthlyTotals(ctx, f.kolId, "2025-05")
		require.NoError(t, err)
		return totals
	}

	forward := run([]int{0, 1, 2})
	backward := run([]int{2, 1, 0})

	assert.True(t, forward.TotalSales.Equal(backward.TotalSales))
	assert.True(t, forward.Commission.Equal(backward.Commission))
	assert.True(t, forward.TotalSales.Equal(decimal.NewFromInt(2300)))
}

func TestRefreshSummaryIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	orderId := f.placeOrder(t, f.shopId, date(2025, 4), []entity.OrderItemInsert{
		{ProductID: f.serumId, UnitPrice: decimal.NewFromInt(500), Quantity: 3},
	})
	_, err := f.svc.ProcessOrder(ctx, orderId)
	require.NoError(t, err)

	before, err := f.store.Summaries().GetSummary(ctx, f.kolId, "2025-04")
	require.NoError(t, err)

	require.NoError(t, f.svc.RefreshSummary(ctx, f.kolId, "2025-04"))
	require.NoError(t, f.svc.RefreshSummary(ctx, f.kolId, "2025-04"))

	after, err := f.store.Summaries().GetSummary(ctx, f.kolId, "2025-04")
	require.NoError(t, err)
	assert.True(t, before.MonthlySales.Equal(after.MonthlySales))
	assert.True(t, before.MonthlyCommission.Equal(after.MonthlyCommission))
	assert.True(t, before.CumulativeCommission.Equal(after.CumulativeCommission))
	assert.True(t, before.AvgMonthlySales.Equal(after.AvgMonthlySales))
	assert.Equal(t, before.ActiveShopsCount, after.ActiveShopsCount)
}

func TestTrailingAverageAndPreviousMonth(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	months := []struct {
		m     time.Month
		price int64
	}{
		{time.January, 30000},
		{time.February, 60000},
		{time.March, 30000},
	}
	for _, mo := range months {
		id := f.placeOrder(t, f.shopId, date(2025, mo.m), []entity.OrderItemInsert{
			{ProductID: f.serumId, UnitPrice: decimal.NewFromInt(mo.price), Quantity: 1},
		})
		_, err := f.svc.ProcessOrder(ctx, id)
		require.NoError(t, err)
	}

	summary, err := f.store.Summaries().GetSummary(ctx, f.kolId, "2025-03")
	require.NoError(t, err)
	assert.True(t, summary.AvgMonthlySales.Equal(decimal.NewFromInt(40000)), "got %s", summary.AvgMonthlySales)
	assert.True(t, summary.PreviousMonthSales.Equal(decimal.NewFromInt(60000)))
	assert.True(t, summary.PreviousMonthCommission.Equal(decimal.NewFromInt(18000)))
}

func TestRatiosNormalized(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	lotionId, err := f.store.Partners().AddProduct(ctx, &entity.Product{Name: "lotion", IsDevice: false})
	require.NoError(t, err)

	orderId := f.placeOrder(t, f.shopId, date(2025, 6), []entity.OrderItemInsert{
		{ProductID: f.serumId, UnitPrice: decimal.NewFromInt(1000), Quantity: 1},
		{ProductID: lotionId, UnitPrice: decimal.NewFromInt(2000), Quantity: 1},
		{ProductID: f.deviceId, UnitPrice: decimal.NewFromInt(3000), Quantity: 1},
	})
	_, err = f.svc.ProcessOrder(ctx, orderId)
	require.NoError(t, err)

	// device revenue stays out of the ratio rows entirely
	ratios, err := f.store.Ratios().ListRatios(ctx, f.kolId, f.shopId, "2025-06")
	require.NoError(t, err)
	require.Len(t, ratios, 2)

	sum := decimal.Zero
	for _, ratio := range ratios {
		assert.NotEqual(t, f.deviceId, ratio.ProductID)
		sum = sum.Add(ratio.SalesRatio)
	}
	deviation := sum.Sub(decimal.NewFromInt(1)).Abs()
	assert.True(t, deviation.LessThan(decimal.RequireFromString("0.001")), "ratio sum %s", sum)

	assert.True(t, ratios[0].SalesRatio.Equal(decimal.RequireFromString("0.3333")), "got %s", ratios[0].SalesRatio)
	assert.True(t, ratios[1].SalesRatio.Equal(decimal.RequireFromString("0.6667")), "got %s", ratios[1].SalesRatio)
}

func TestRatiosDeviceAgainstProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	orderId := f.placeOrder(t, f.shopId, date(2025, 6), []entity.OrderItemInsert{
		{ProductID: f.serumId, UnitPrice: decimal.NewFromInt(1000), Quantity: 1},
		{ProductID: f.deviceId, UnitPrice: decimal.NewFromInt(3000), Quantity: 1},
	})
	_, err := f.svc.ProcessOrder(ctx, orderId)
	require.NoError(t, err)

	// the serum carries the whole product share; the device dilutes nothing
	ratios, err := f.store.Ratios().ListRatios(ctx, f.kolId, f.shopId, "2025-06")
	require.NoError(t, err)
	require.Len(t, ratios, 1)
	assert.Equal(t, f.serumId, ratios[0].ProductID)
	assert.True(t, ratios[0].SalesAmount.Equal(decimal.NewFromInt(1000)))
	assert.True(t, ratios[0].SalesRatio.Equal(decimal.NewFromInt(1)), "got %s", ratios[0].SalesRatio)
}

func TestRatiosDeviceOnlyOrderWritesNoRows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	orderId := f.placeOrder(t, f.shopId, date(2025, 6), []entity.OrderItemInsert{
		{ProductID: f.deviceId, UnitPrice: decimal.NewFromInt(25000), Quantity: 2},
	})
	_, err := f.svc.ProcessOrder(ctx, orderId)
	require.NoError(t, err)

	ratios, err := f.store.Ratios().ListRatios(ctx, f.kolId, f.shopId, "2025-06")
	require.NoError(t, err)
	assert.Empty(t, ratios)
}

func TestRatiosRenormalizedAcrossOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	lotionId, err := f.store.Partners().AddProduct(ctx, &entity.Product{Name: "lotion", IsDevice: false})
	require.NoError(t, err)

	orders := [][]entity.OrderItemInsert{
		{
			{ProductID: f.serumId, UnitPrice: decimal.NewFromInt(1000), Quantity: 1},
			{ProductID: lotionId, UnitPrice: decimal.NewFromInt(2000), Quantity: 1},
		},
		{
			// overlapping product plus device noise
			{ProductID: f.serumId, UnitPrice: decimal.NewFromInt(3000), Quantity: 1},
			{ProductID: f.deviceId, UnitPrice: decimal.NewFromInt(50000), Quantity: 1},
		},
	}
	for _, items := range orders {
		id := f.placeOrder(t, f.shopId, date(2025, 8), items)
		_, err := f.svc.ProcessOrder(ctx, id)
		require.NoError(t, err)
	}

	ratios, err := f.store.Ratios().ListRatios(ctx, f.kolId, f.shopId, "2025-08")
	require.NoError(t, err)
	require.Len(t, ratios, 2)

	// monthly product sales: serum 4000, lotion 2000, total 6000
	monthlyProductSales := decimal.NewFromInt(6000)
	sum := decimal.Zero
	for _, ratio := range ratios {
		want := ratio.SalesAmount.Div(monthlyProductSales).Round(4)
		assert.True(t, ratio.SalesRatio.Equal(want), "product %d ratio %s, want %s", ratio.ProductID, ratio.SalesRatio, want)
		sum = sum.Add(ratio.SalesRatio)
	}
	deviation := sum.Sub(decimal.NewFromInt(1)).Abs()
	assert.True(t, deviation.LessThan(decimal.RequireFromString("0.001")), "ratio sum %s", sum)
}

func TestReferralCreditGatedOnStartMonth(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	parentId, err := f.store.Partners().AddKol(ctx, &entity.Kol{Name: "parent"})
	require.NoError(t, err)
	require.NoError(t, f.store.Hierarchy().AddLink(ctx, &entity.HierarchyLink{
		ChildKolID:      f.kolId,
		ParentKolID:     parentId,
		ChildStartMonth: "2025-03",
	}))

	// outside the start month: no credit
	earlyId := f.placeOrder(t, f.shopId, date(2025, 2), []entity.OrderItemInsert{
		{ProductID: f.serumId, UnitPrice: decimal.NewFromInt(5000), Quantity: 1},
	})
	_, err = f.svc.ProcessOrder(ctx, earlyId)
	require.NoError(t, err)

	credit, err := f.store.Hierarchy().SumAllReferralCredits(ctx, parentId)
	require.NoError(t, err)
	assert.True(t, credit.IsZero())

	// in the start month: credit appears
	orderId := f.placeOrder(t, f.shopId, date(2025, 3), []entity.OrderItemInsert{
		{ProductID: f.serumId, UnitPrice: decimal.NewFromInt(20000), Quantity: 1},
	})
	_, err = f.svc.ProcessOrder(ctx, orderId)
	require.NoError(t, err)

	credit, err = f.store.Hierarchy().SumReferralCredits(ctx, parentId, "2025-03")
	require.NoError(t, err)
	assert.True(t, credit.Equal(decimal.NewFromInt(2000)))

	parentSummary, err := f.store.Summaries().GetSummary(ctx, parentId, "2025-03")
	require.NoError(t, err)
	assert.True(t, parentSummary.MonthlySales.IsZero())
	assert.True(t, parentSummary.MonthlyCommission.Equal(decimal.NewFromInt(2000)))
	assert.True(t, parentSummary.CumulativeCommission.Equal(decimal.NewFromInt(2000)))
}

func TestReferralCreditRecomputedNotStacked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	parentId, err := f.store.Partners().AddKol(ctx, &entity.Kol{Name: "parent"})
	require.NoError(t, err)
	require.NoError(t, f.store.Hierarchy().AddLink(ctx, &entity.HierarchyLink{
		ChildKolID:      f.kolId,
		ParentKolID:     parentId,
		ChildStartMonth: "2025-03",
	}))

	firstId := f.placeOrder(t, f.shopId, date(2025, 3), []entity.OrderItemInsert{
		{ProductID: f.serumId, UnitPrice: decimal.NewFromInt(20000), Quantity: 1},
	})
	_, err = f.svc.ProcessOrder(ctx, firstId)
	require.NoError(t, err)

	secondId := f.placeOrder(t, f.shopId, date(2025, 3), []entity.OrderItemInsert{
		{ProductID: f.serumId, UnitPrice: decimal.NewFromInt(10000), Quantity: 1},
	})
	_, err = f.svc.ProcessOrder(ctx, secondId)
	require.NoError(t, err)

	// second trigger replaces the credit with 10% of the new monthly
	// total instead of adding another 10% on top
	credit, err := f.store.Hierarchy().SumAllReferralCredits(ctx, parentId)
	require.NoError(t, err)
	assert.True(t, credit.Equal(decimal.NewFromInt(3000)), "got %s", credit)
}

func TestMultipleShopsCountedInSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	shop2, err := f.store.Partners().AddShop(ctx, &entity.Shop{KolID: f.kolId, Name: "shop two"})
	require.NoError(t, err)
	shop3, err := f.store.Partners().AddShop(ctx, &entity.Shop{KolID: f.kolId, Name: "shop three"})
	require.NoError(t, err)
	_ = shop3

	for _, shopId := range []int{f.shopId, shop2} {
		id := f.placeOrder(t, shopId, date(2025, 7), []entity.OrderItemInsert{
			{ProductID: f.serumId, UnitPrice: decimal.NewFromInt(1000), Quantity: 1},
		})
		_, err := f.svc.ProcessOrder(ctx, id)
		require.NoError(t, err)
	}

	summary, err := f.store.Summaries().GetSummary(ctx, f.kolId, "2025-07")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.ActiveShopsCount)
	assert.Equal(t, 3, summary.TotalShopsCount)
	assert.True(t, summary.MonthlySales.Equal(decimal.NewFromInt(2000)))
}
