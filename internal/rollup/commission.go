package rollup

import (
	"github.com/glowdist/commission-manager/internal/entity"
	"github.com/shopspring/decimal"
)

var (
	// commissionRate is the share of non-device sales paid to the KOL.
	commissionRate = decimal.New(3, -1)
	// referralRate is the one-time share of a child's first-month sales
	// credited to its parent.
	referralRate = decimal.New(1, -1)
)

// CalculateCommission returns floor(productSales * 0.3). Device revenue
// never enters the base, and the floor keeps payouts at whole currency
// units in the KOL's favor never exceeding the rate.
func CalculateCommission(productSales decimal.Decimal) decimal.Decimal {
	return productSales.Mul(commissionRate).Floor()
}

// CalculateReferralCommission returns floor(childMonthlySales * 0.1).
func CalculateReferralCommission(childMonthlySales decimal.Decimal) decimal.Decimal {
	return childMonthlySales.Mul(referralRate).Floor()
}

// DecomposeLineItems splits an order's line items into device and
// non-device revenue. Lines without a known product count as non-device.
func DecomposeLineItems(items []entity.OrderItemSales) entity.SalesBreakdown {
	var breakdown entity.SalesBreakdown
	for _, item := range items {
		total := item.LineTotal()
		if item.IsDevice {
			breakdown.DeviceSales = breakdown.DeviceSales.Add(total)
		} else {
			breakdown.ProductSales = breakdown.ProductSales.Add(total)
		}
		breakdown.TotalSales = breakdown.TotalSales.Add(total)
	}
	return breakdown
}
