package rollup

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/glowdist/commission-manager/internal/dependency"
	"github.com/glowdist/commission-manager/internal/entity"
	"github.com/shopspring/decimal"
)

const trailingMonths = 3

// ratioDriftTolerance is the maximum deviation of a shop's ratio set
// from 1 before the set gets renormalized.
var ratioDriftTolerance = decimal.New(1, -3)

// Result reports what processing an order did.
type Result struct {
	OrderID    int                   `json:"orderId"`
	Processed  bool                  `json:"processed"`
	SkipReason string                `json:"skipReason,omitempty"`
	Breakdown  entity.SalesBreakdown `json:"breakdown"`
	Commission decimal.Decimal       `json:"commission"`
}

// Service runs the per-order aggregation pipeline.
type Service struct {
	rep dependency.Repository
}

func New(rep dependency.Repository) *Service {
	return &Service{rep: rep}
}

// ProcessOrder runs the whole pipeline for one order inside a single
// transaction: decompose line items, accumulate the monthly ledger,
// record the commission audit row, refresh the KOL's summary, update
// the shop's product ratios and propagate the referral credit. Orders
// that are cancelled or already completed are skipped without touching
// any aggregate.
func (s *Service) ProcessOrder(ctx context.Context, orderId int) (Result, error) {
	result := Result{OrderID: orderId}
	err := s.rep.Tx(ctx, func(ctx context.Context, rep dependency.Repository) error {
		order, err := rep.Orders().GetOrderById(ctx, orderId)
		if err != nil {
			return err
		}
		switch order.Status {
		case entity.OrderStatusCancelled:
			result.SkipReason = "order is cancelled"
			return nil
		case entity.OrderStatusCompleted:
			result.SkipReason = "order is already processed"
			return nil
		}

		shop, err := rep.Partners().GetShopById(ctx, order.ShopID)
		if err != nil {
			return err
		}

		items, err := rep.Orders().GetOrderItemSales(ctx, orderId)
		if err != nil {
			return err
		}

		ym := order.Month()
		breakdown := DecomposeLineItems(items)
		commission := CalculateCommission(breakdown.ProductSales)

		err = rep.Ledger().AccumulateEntry(ctx, entity.LedgerDelta{
			KolID:        shop.KolID,
			ShopID:       shop.ID,
			YearMonth:    ym,
			ProductSales: breakdown.ProductSales,
			DeviceSales:  breakdown.DeviceSales,
			TotalSales:   breakdown.TotalSales,
			Commission:   commission,
		})
		if err != nil {
			return err
		}

		_, err = rep.Commissions().AddCommission(ctx, &entity.CommissionInsert{
			KolID:   shop.KolID,
			OrderID: orderId,
			Amount:  commission,
		})
		if err != nil {
			return err
		}

		err = rep.Orders().UpdateOrderStatus(ctx, orderId, entity.OrderStatusCompleted)
		if err != nil {
			return err
		}

		err = refreshSummary(ctx, rep, shop.KolID, ym)
		if err != nil {
			return err
		}

		err = updateRatios(ctx, rep, shop.KolID, shop.ID, ym, items)
		if err != nil {
			return err
		}

		err = propagateReferral(ctx, rep, shop.KolID, ym)
		if err != nil {
			return err
		}

		result.Processed = true
		result.Breakdown = breakdown
		result.Commission = commission
		return nil
	})
	if err != nil {
		return Result{OrderID: orderId}, fmt.Errorf("can't process order %d: %w", orderId, err)
	}

	if result.Processed {
		slog.Default().InfoContext(ctx, "order processed",
			slog.Int("orderId", orderId),
			slog.String("commission", result.Commission.String()),
		)
	} else {
		slog.Default().InfoContext(ctx, "order skipped",
			slog.Int("orderId", orderId),
			slog.String("reason", result.SkipReason),
		)
	}
	return result, nil
}

// RefreshSummary recomputes the (kol, month) summary from the ledger
// and referral credits. Safe to call any number of times.
func (s *Service) RefreshSummary(ctx context.Context, kolId int, ym entity.YearMonth) error {
	return s.rep.Tx(ctx, func(ctx context.Context, rep dependency.Repository) error {
		return refreshSummary(ctx, rep, kolId, ym)
	})
}

// refreshSummary derives every summary field from source tables and
// overwrites the row. Referral credits live in their own table and are
// summed in here, so the recompute can never lose them.
func refreshSummary(ctx context.Context, rep dependency.Repository, kolId int, ym entity.YearMonth) error {
	totals, err := rep.Ledger().GetMonthlyTotals(ctx, kolId, ym)
	if err != nil {
		return err
	}
	referral, err := rep.Hierarchy().SumReferralCredits(ctx, kolId, ym)
	if err != nil {
		return err
	}

	prev := ym.Previous()
	prevTotals, err := rep.Ledger().GetMonthlyTotals(ctx, kolId, prev)
	if err != nil {
		return err
	}
	prevReferral, err := rep.Hierarchy().SumReferralCredits(ctx, kolId, prev)
	if err != nil {
		return err
	}

	avg, err := trailingAverage(ctx, rep, kolId, ym)
	if err != nil {
		return err
	}

	ledgerCommission, err := rep.Ledger().GetCumulativeCommission(ctx, kolId)
	if err != nil {
		return err
	}
	allReferral, err := rep.Hierarchy().SumAllReferralCredits(ctx, kolId)
	if err != nil {
		return err
	}

	activeShops, err := rep.Ledger().CountActiveShops(ctx, kolId, ym)
	if err != nil {
		return err
	}
	totalShops, err := rep.Partners().CountShopsByKol(ctx, kolId)
	if err != nil {
		return err
	}

	return rep.Summaries().UpsertSummary(ctx, &entity.KolMonthlySummary{
		KolID:                   kolId,
		YearMonth:               ym,
		MonthlySales:            totals.TotalSales,
		MonthlyCommission:       totals.Commission.Add(referral),
		AvgMonthlySales:         avg,
		CumulativeCommission:    ledgerCommission.Add(allReferral),
		PreviousMonthSales:      prevTotals.TotalSales,
		PreviousMonthCommission: prevTotals.Commission.Add(prevReferral),
		ActiveShopsCount:        activeShops,
		TotalShopsCount:         totalShops,
	})
}

// trailingAverage is the mean of the per-month ledger sums over the
// most recent months at or before ym, rounded to 2 decimal places.
// Months with no data simply don't count toward the divisor.
func trailingAverage(ctx context.Context, rep dependency.Repository, kolId int, ym entity.YearMonth) (decimal.Decimal, error) {
	sales, err := rep.Ledger().GetTrailingMonthSales(ctx, kolId, ym, trailingMonths)
	if err != nil {
		return decimal.Zero, err
	}
	if len(sales) == 0 {
		return decimal.Zero, nil
	}
	sum := decimal.Zero
	for _, month := range sales {
		sum = sum.Add(month.TotalSales)
	}
	return sum.Div(decimal.NewFromInt(int64(len(sales)))).Round(2), nil
}

// updateRatios accumulates the order's per-product amounts into the
// shop's monthly ratio rows, then recomputes every ratio against the
// shop's monthly product total and renormalizes the set when rounding
// drift pushes the sum too far from 1. Device lines never enter the
// ratio rows; the denominator is the shop's monthly product sales only.
func updateRatios(ctx context.Context, rep dependency.Repository, kolId, shopId int, ym entity.YearMonth, items []entity.OrderItemSales) error {
	amounts := make(map[int]decimal.Decimal)
	order := make([]int, 0, len(items))
	for _, item := range items {
		if item.IsDevice {
			continue
		}
		if _, ok := amounts[item.ProductID]; !ok {
			order = append(order, item.ProductID)
		}
		amounts[item.ProductID] = amounts[item.ProductID].Add(item.LineTotal())
	}
	if len(order) == 0 {
		return nil
	}

	for _, productId := range order {
		err := rep.Ratios().AccumulateRatio(ctx, entity.ProductSalesRatio{
			KolID:       kolId,
			ShopID:      shopId,
			YearMonth:   ym,
			ProductID:   productId,
			SalesAmount: amounts[productId],
		})
		if err != nil {
			return err
		}
	}

	ratios, err := rep.Ratios().ListRatios(ctx, kolId, shopId, ym)
	if err != nil {
		return err
	}

	total := decimal.Zero
	for _, ratio := range ratios {
		total = total.Add(ratio.SalesAmount)
	}
	if total.IsZero() {
		return nil
	}

	rounded := make([]decimal.Decimal, len(ratios))
	sum := decimal.Zero
	for i, ratio := range ratios {
		rounded[i] = ratio.SalesAmount.Div(total).Round(4)
		sum = sum.Add(rounded[i])
	}

	if sum.Sub(decimal.NewFromInt(1)).Abs().GreaterThanOrEqual(ratioDriftTolerance) && !sum.IsZero() {
		for i := range rounded {
			rounded[i] = rounded[i].Div(sum).Round(4)
		}
	}

	for i, ratio := range ratios {
		err := rep.Ratios().SetRatio(ctx, ratio.ID, rounded[i])
		if err != nil {
			return err
		}
	}
	return nil
}

// propagateReferral credits the parent KOL with 10% of the child's
// monthly sales, but only in the child's configured start month. The
// credit is keyed uniquely by child, so reprocessing replaces the
// amount instead of stacking a second credit. The parent's summary is
// refreshed but the propagation never recurses further up.
func propagateReferral(ctx context.Context, rep dependency.Repository, childKolId int, ym entity.YearMonth) error {
	link, err := rep.Hierarchy().GetLinkByChild(ctx, childKolId)
	if err != nil {
		return err
	}
	if link == nil || link.ChildStartMonth != ym {
		return nil
	}

	childTotals, err := rep.Ledger().GetMonthlyTotals(ctx, childKolId, ym)
	if err != nil {
		return err
	}
	if !childTotals.TotalSales.IsPositive() {
		return nil
	}

	credit := CalculateReferralCommission(childTotals.TotalSales)
	if !credit.IsPositive() {
		return nil
	}

	err = rep.Hierarchy().UpsertReferralCredit(ctx, &entity.ReferralCredit{
		ParentKolID: link.ParentKolID,
		ChildKolID:  childKolId,
		YearMonth:   ym,
		Amount:      credit,
	})
	if err != nil {
		return err
	}

	return refreshSummary(ctx, rep, link.ParentKolID, ym)
}
