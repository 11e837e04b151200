// Package memory implements dependency.Repository on in-process maps.
// It backs the pipeline and handler tests and mirrors the MySQL store's
// behavior, including sql.ErrNoRows on missing rows and additive
// accumulation on the ledger and ratio tables.
package memory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/glowdist/commission-manager/internal/dependency"
	"github.com/glowdist/commission-manager/internal/entity"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrUniqueViolation mirrors MySQL error 1062 for the in-memory store.
var ErrUniqueViolation = errors.New("unique constraint violation")

type ledgerKey struct {
	kolId  int
	shopId int
	month  entity.YearMonth
}

type summaryKey struct {
	kolId int
	month entity.YearMonth
}

type ratioKey struct {
	kolId     int
	shopId    int
	month     entity.YearMonth
	productId int
}

// Store holds every table in maps guarded by a single mutex.
type Store struct {
	mu   sync.Mutex
	ts   time.Time
	inTx bool

	nextId int

	kols     map[int]entity.Kol
	shops    map[int]entity.Shop
	products map[int]entity.Product

	orders     map[int]entity.Order
	orderItems map[int][]entity.OrderItem

	ledger    map[ledgerKey]*entity.MonthlyLedgerEntry
	summaries map[summaryKey]*entity.KolMonthlySummary
	ratios    map[ratioKey]*entity.ProductSalesRatio
	ratioById map[int]*entity.ProductSalesRatio

	links       map[int]entity.HierarchyLink
	credits     map[int]*entity.ReferralCredit
	commissions []entity.Commission
}

func New() *Store {
	return &Store{
		ts:         time.Now(),
		kols:       make(map[int]entity.Kol),
		shops:      make(map[int]entity.Shop),
		products:   make(map[int]entity.Product),
		orders:     make(map[int]entity.Order),
		orderItems: make(map[int][]entity.OrderItem),
		ledger:     make(map[ledgerKey]*entity.MonthlyLedgerEntry),
		summaries:  make(map[summaryKey]*entity.KolMonthlySummary),
		ratios:     make(map[ratioKey]*entity.ProductSalesRatio),
		ratioById:  make(map[int]*entity.ProductSalesRatio),
		links:      make(map[int]entity.HierarchyLink),
		credits:    make(map[int]*entity.ReferralCredit),
	}
}

func (s *Store) id() int {
	s.nextId++
	return s.nextId
}

func (s *Store) Orders() dependency.Orders           { return s }
func (s *Store) Ledger() dependency.Ledger           { return s }
func (s *Store) Summaries() dependency.Summaries     { return s }
func (s *Store) Ratios() dependency.Ratios           { return s }
func (s *Store) Hierarchy() dependency.Hierarchy     { return s }
func (s *Store) Commissions() dependency.Commissions { return s }
func (s *Store) Partners() dependency.Partners       { return s }

// Tx runs f against the store itself. The single mutex inside each
// operation already serializes writers, so there is nothing to retry or
// roll back here.
func (s *Store) Tx(ctx context.Context, f func(context.Context, dependency.Repository) error) error {
	s.mu.Lock()
	wasInTx := s.inTx
	if !wasInTx {
		s.ts = time.Now()
	}
	s.inTx = true
	s.mu.Unlock()

	err := f(ctx, s)

	if !wasInTx {
		s.mu.Lock()
		s.inTx = false
		s.mu.Unlock()
	}
	return err
}

func (s *Store) TxBegin(ctx context.Context) (dependency.Repository, error) {
	s.mu.Lock()
	s.inTx = true
	s.ts = time.Now()
	s.mu.Unlock()
	return s, nil
}

func (s *Store) TxCommit(ctx context.Context) error {
	s.mu.Lock()
	s.inTx = false
	s.mu.Unlock()
	return nil
}

func (s *Store) TxRollback(ctx context.Context) error {
	s.mu.Lock()
	s.inTx = false
	s.mu.Unlock()
	return nil
}

func (s *Store) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inTx {
		return s.ts
	}
	return time.Now()
}

func (s *Store) InTx() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inTx
}

func (s *Store) Close() {}

func (s *Store) IsErrUniqueViolation(err error) bool {
	return errors.Is(err, ErrUniqueViolation)
}

func (s *Store) IsErrorRepeat(err error) bool { return false }

// DB is only meaningful for the SQL-backed store.
func (s *Store) DB() dependency.DB { return nil }

// Orders

func (s *Store) CreateOrder(ctx context.Context, orderNew *entity.OrderNew) (*entity.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order := entity.Order{
		ID:        s.id(),
		UUID:      uuid.New().String(),
		ShopID:    orderNew.ShopID,
		OrderDate: orderNew.OrderDate,
		Status:    entity.OrderStatusPending,
		CreatedAt: s.ts,
		UpdatedAt: s.ts,
	}
	s.orders[order.ID] = order

	items := make([]entity.OrderItem, 0, len(orderNew.Items))
	for _, item := range orderNew.Items {
		items = append(items, entity.OrderItem{
			ID:        s.id(),
			OrderID:   order.ID,
			ProductID: item.ProductID,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		})
	}
	s.orderItems[order.ID] = items

	return &order, nil
}

func (s *Store) GetOrderById(ctx context.Context, orderId int) (*entity.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[orderId]
	if !ok {
		return nil, fmt.Errorf("can't get order by id %d: %w", orderId, sql.ErrNoRows)
	}
	return &order, nil
}

func (s *Store) GetOrderItemSales(ctx context.Context, orderId int) ([]entity.OrderItemSales, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.orderItems[orderId]
	sales := make([]entity.OrderItemSales, 0, len(items))
	for _, item := range items {
		isDevice := false
		if p, ok := s.products[item.ProductID]; ok {
			isDevice = p.IsDevice
		}
		sales = append(sales, entity.OrderItemSales{
			ProductID: item.ProductID,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			IsDevice:  isDevice,
		})
	}
	return sales, nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, orderId int, status entity.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[orderId]
	if !ok {
		return fmt.Errorf("can't update order status: %w", sql.ErrNoRows)
	}
	order.Status = status
	order.UpdatedAt = s.ts
	s.orders[orderId] = order
	return nil
}

// Ledger

func (s *Store) AccumulateEntry(ctx context.Context, delta entity.LedgerDelta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := ledgerKey{kolId: delta.KolID, shopId: delta.ShopID, month: delta.YearMonth}
	entry, ok := s.ledger[key]
	if !ok {
		entry = &entity.MonthlyLedgerEntry{
			ID:        s.id(),
			KolID:     delta.KolID,
			ShopID:    delta.ShopID,
			YearMonth: delta.YearMonth,
			CreatedAt: s.ts,
		}
		s.ledger[key] = entry
	}
	entry.ProductSales = entry.ProductSales.Add(delta.ProductSales)
	entry.DeviceSales = entry.DeviceSales.Add(delta.DeviceSales)
	entry.TotalSales = entry.TotalSales.Add(delta.TotalSales)
	entry.Commission = entry.Commission.Add(delta.Commission)
	entry.UpdatedAt = s.ts
	return nil
}

func (s *Store) GetEntry(ctx context.Context, kolId, shopId int, ym entity.YearMonth) (*entity.MonthlyLedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.ledger[ledgerKey{kolId: kolId, shopId: shopId, month: ym}]
	if !ok {
		return nil, fmt.Errorf("can't get ledger entry: %w", sql.ErrNoRows)
	}
	copied := *entry
	return &copied, nil
}

func (s *Store) ListEntriesByKolMonth(ctx context.Context, kolId int, ym entity.YearMonth) ([]entity.MonthlyLedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []entity.MonthlyLedgerEntry
	for _, entry := range s.ledger {
		if entry.KolID == kolId && entry.YearMonth == ym {
			entries = append(entries, *entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ShopID < entries[j].ShopID })
	return entries, nil
}

func (s *Store) GetMonthlyTotals(ctx context.Context, kolId int, ym entity.YearMonth) (entity.MonthlyTotals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var totals entity.MonthlyTotals
	for _, entry := range s.ledger {
		if entry.KolID == kolId && entry.YearMonth == ym {
			totals.TotalSales = totals.TotalSales.Add(entry.TotalSales)
			totals.Commission = totals.Commission.Add(entry.Commission)
		}
	}
	return totals, nil
}

func (s *Store) GetTrailingMonthSales(ctx context.Context, kolId int, ym entity.YearMonth, months int) ([]entity.MonthSales, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byMonth := make(map[entity.YearMonth]decimal.Decimal)
	for _, entry := range s.ledger {
		if entry.KolID == kolId && entry.YearMonth <= ym {
			byMonth[entry.YearMonth] = byMonth[entry.YearMonth].Add(entry.TotalSales)
		}
	}

	sales := make([]entity.MonthSales, 0, len(byMonth))
	for month, total := range byMonth {
		sales = append(sales, entity.MonthSales{YearMonth: month, TotalSales: total})
	}
	sort.Slice(sales, func(i, j int) bool { return sales[i].YearMonth > sales[j].YearMonth })
	if len(sales) > months {
		sales = sales[:months]
	}
	return sales, nil
}

func (s *Store) GetCumulativeCommission(ctx context.Context, kolId int) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := decimal.Zero
	for _, entry := range s.ledger {
		if entry.KolID == kolId {
			total = total.Add(entry.Commission)
		}
	}
	return total, nil
}

func (s *Store) CountActiveShops(ctx context.Context, kolId int, ym entity.YearMonth) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	shops := make(map[int]struct{})
	for _, entry := range s.ledger {
		if entry.KolID == kolId && entry.YearMonth == ym {
			shops[entry.ShopID] = struct{}{}
		}
	}
	return len(shops), nil
}

func (s *Store) ListActiveKols(ctx context.Context, ym entity.YearMonth) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[int]struct{})
	for _, entry := range s.ledger {
		if entry.YearMonth == ym {
			seen[entry.KolID] = struct{}{}
		}
	}
	ids := make([]int, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}

// Summaries

func (s *Store) UpsertSummary(ctx context.Context, summary *entity.KolMonthlySummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := summaryKey{kolId: summary.KolID, month: summary.YearMonth}
	stored := *summary
	if existing, ok := s.summaries[key]; ok {
		stored.ID = existing.ID
		stored.CreatedAt = existing.CreatedAt
	} else {
		stored.ID = s.id()
		stored.CreatedAt = s.ts
	}
	stored.UpdatedAt = s.ts
	s.summaries[key] = &stored
	return nil
}

func (s *Store) GetSummary(ctx context.Context, kolId int, ym entity.YearMonth) (*entity.KolMonthlySummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary, ok := s.summaries[summaryKey{kolId: kolId, month: ym}]
	if !ok {
		return nil, fmt.Errorf("can't get kol monthly summary: %w", sql.ErrNoRows)
	}
	copied := *summary
	return &copied, nil
}

// Ratios

func (s *Store) AccumulateRatio(ctx context.Context, ratio entity.ProductSalesRatio) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := ratioKey{kolId: ratio.KolID, shopId: ratio.ShopID, month: ratio.YearMonth, productId: ratio.ProductID}
	existing, ok := s.ratios[key]
	if !ok {
		stored := ratio
		stored.ID = s.id()
		stored.CreatedAt = s.ts
		stored.UpdatedAt = s.ts
		s.ratios[key] = &stored
		s.ratioById[stored.ID] = &stored
		return nil
	}
	existing.SalesAmount = existing.SalesAmount.Add(ratio.SalesAmount)
	existing.SalesRatio = ratio.SalesRatio
	existing.UpdatedAt = s.ts
	return nil
}

func (s *Store) ListRatios(ctx context.Context, kolId, shopId int, ym entity.YearMonth) ([]entity.ProductSalesRatio, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ratios []entity.ProductSalesRatio
	for _, ratio := range s.ratios {
		if ratio.KolID == kolId && ratio.ShopID == shopId && ratio.YearMonth == ym {
			ratios = append(ratios, *ratio)
		}
	}
	sort.Slice(ratios, func(i, j int) bool { return ratios[i].ProductID < ratios[j].ProductID })
	return ratios, nil
}

func (s *Store) SetRatio(ctx context.Context, id int, ratio decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.ratioById[id]
	if !ok {
		return fmt.Errorf("can't set sales ratio: %w", sql.ErrNoRows)
	}
	existing.SalesRatio = ratio
	existing.UpdatedAt = s.ts
	return nil
}

// Hierarchy

func (s *Store) AddLink(ctx context.Context, link *entity.HierarchyLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.links[link.ChildKolID]; ok {
		return fmt.Errorf("can't add hierarchy link: %w", ErrUniqueViolation)
	}
	link.ID = s.id()
	s.links[link.ChildKolID] = *link
	return nil
}

func (s *Store) GetLinkByChild(ctx context.Context, childKolId int) (*entity.HierarchyLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, ok := s.links[childKolId]
	if !ok {
		return nil, nil
	}
	return &link, nil
}

func (s *Store) UpsertReferralCredit(ctx context.Context, credit *entity.ReferralCredit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.credits[credit.ChildKolID]; ok {
		existing.YearMonth = credit.YearMonth
		existing.Amount = credit.Amount
		return nil
	}
	stored := *credit
	stored.ID = s.id()
	s.credits[credit.ChildKolID] = &stored
	return nil
}

func (s *Store) SumReferralCredits(ctx context.Context, parentKolId int, ym entity.YearMonth) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := decimal.Zero
	for _, credit := range s.credits {
		if credit.ParentKolID == parentKolId && credit.YearMonth == ym {
			total = total.Add(credit.Amount)
		}
	}
	return total, nil
}

func (s *Store) SumAllReferralCredits(ctx context.Context, parentKolId int) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := decimal.Zero
	for _, credit := range s.credits {
		if credit.ParentKolID == parentKolId {
			total = total.Add(credit.Amount)
		}
	}
	return total, nil
}

// Commissions

func (s *Store) AddCommission(ctx context.Context, insert *entity.CommissionInsert) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	commission := entity.Commission{
		ID:        s.id(),
		KolID:     insert.KolID,
		OrderID:   insert.OrderID,
		Amount:    insert.Amount,
		Settled:   false,
		CreatedAt: s.ts,
	}
	s.commissions = append(s.commissions, commission)
	return commission.ID, nil
}

func (s *Store) ListCommissionsByKol(ctx context.Context, kolId int) ([]entity.Commission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var commissions []entity.Commission
	for _, commission := range s.commissions {
		if commission.KolID == kolId {
			commissions = append(commissions, commission)
		}
	}
	return commissions, nil
}

// Partners

func (s *Store) AddKol(ctx context.Context, kol *entity.Kol) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kol.ID = s.id()
	s.kols[kol.ID] = *kol
	return kol.ID, nil
}

func (s *Store) AddShop(ctx context.Context, shop *entity.Shop) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	shop.ID = s.id()
	s.shops[shop.ID] = *shop
	return shop.ID, nil
}

func (s *Store) GetShopById(ctx context.Context, shopId int) (*entity.Shop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	shop, ok := s.shops[shopId]
	if !ok {
		return nil, fmt.Errorf("can't get shop by id %d: %w", shopId, sql.ErrNoRows)
	}
	return &shop, nil
}

func (s *Store) CountShopsByKol(ctx context.Context, kolId int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, shop := range s.shops {
		if shop.KolID == kolId {
			count++
		}
	}
	return count, nil
}

func (s *Store) AddProduct(ctx context.Context, product *entity.Product) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product.ID = s.id()
	s.products[product.ID] = *product
	return product.ID, nil
}
