package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"storefront/internal/models"
	"storefront/internal/service"
)

// MemStore is an in-memory implementation of the storage ports, used by
// tests and local development. A single mutex held for the whole transaction
// stands in for row-level locking: transactions are fully serialized, which
// is a strict superset of the per-product serialization the checkout needs.
type MemStore struct {
	mu sync.Mutex

	products      map[int64]models.Product
	cartLines     map[int64]map[int64]models.CartLine
	orders        map[int64]models.Order
	orderLines    map[int64][]models.OrderLine
	orderIdemKeys map[string]int64
	notifications []models.Notification
	processed     map[string]string

	nextProductID  int64
	nextCartLineID int64
	nextOrderID    int64
	nextLineID     int64
	nextNotifID    int64
}

var (
	_ service.UnitOfWork        = (*MemStore)(nil)
	_ service.CartStore         = (*MemStore)(nil)
	_ service.ProductCatalog    = (*MemStore)(nil)
	_ service.OrderReader       = (*MemStore)(nil)
	_ service.ReportStore       = (*MemStore)(nil)
	_ service.NotificationStore = (*MemStore)(nil)
)

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		products:       make(map[int64]models.Product),
		cartLines:      make(map[int64]map[int64]models.CartLine),
		orders:         make(map[int64]models.Order),
		orderLines:     make(map[int64][]models.OrderLine),
		orderIdemKeys:  make(map[string]int64),
		processed:      make(map[string]string),
		nextProductID:  1,
		nextCartLineID: 1,
		nextOrderID:    1,
		nextLineID:     1,
		nextNotifID:    1,
	}
}

// snapshot deep-copies all mutable state so a failed transaction can be
// restored wholesale.
type memSnapshot struct {
	products      map[int64]models.Product
	cartLines     map[int64]map[int64]models.CartLine
	orders        map[int64]models.Order
	orderLines    map[int64][]models.OrderLine
	orderIdemKeys map[string]int64

	nextCartLineID, nextOrderID, nextLineID int64
}

func (m *MemStore) snapshot() *memSnapshot {
	s := &memSnapshot{
		products:       make(map[int64]models.Product, len(m.products)),
		cartLines:      make(map[int64]map[int64]models.CartLine, len(m.cartLines)),
		orders:         make(map[int64]models.Order, len(m.orders)),
		orderLines:     make(map[int64][]models.OrderLine, len(m.orderLines)),
		orderIdemKeys:  make(map[string]int64, len(m.orderIdemKeys)),
		nextCartLineID: m.nextCartLineID,
		nextOrderID:    m.nextOrderID,
		nextLineID:     m.nextLineID,
	}
	for k, v := range m.products {
		s.products[k] = v
	}
	for userID, lines := range m.cartLines {
		cp := make(map[int64]models.CartLine, len(lines))
		for pid, l := range lines {
			cp[pid] = l
		}
		s.cartLines[userID] = cp
	}
	for k, v := range m.orders {
		s.orders[k] = v
	}
	for k, v := range m.orderLines {
		s.orderLines[k] = append([]models.OrderLine(nil), v...)
	}
	for k, v := range m.orderIdemKeys {
		s.orderIdemKeys[k] = v
	}
	return s
}

func (m *MemStore) restore(s *memSnapshot) {
	m.products = s.products
	m.cartLines = s.cartLines
	m.orders = s.orders
	m.orderLines = s.orderLines
	m.orderIdemKeys = s.orderIdemKeys
	m.nextCartLineID = s.nextCartLineID
	m.nextOrderID = s.nextOrderID
	m.nextLineID = s.nextLineID
}

// InTx runs fn under the store mutex. Any error restores the pre-transaction
// state, so partial writes are never observable.
func (m *MemStore) InTx(ctx context.Context, fn func(tx service.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	defer func() {
		if r := recover(); r != nil {
			m.restore(snap)
			panic(r)
		}
	}()

	if err := fn(&memTx{m: m}); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

// CreateProduct seeds a catalog product.
func (m *MemStore) CreateProduct(ctx context.Context, product *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	product.ID = m.nextProductID
	m.nextProductID++
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now()
	}
	m.products[product.ID] = *product
	return nil
}

func (m *MemStore) Products(ctx context.Context) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemStore) ProductByID(ctx context.Context, id int64) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[id]
	if !ok {
		return nil, fmt.Errorf("product not found: %d", id)
	}
	cp := p
	return &cp, nil
}

func (m *MemStore) CartLines(ctx context.Context, userID int64) ([]models.CartLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cartLinesLocked(m, userID), nil
}

func (m *MemStore) AddCartLine(ctx context.Context, userID, productID int64, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	lines, ok := m.cartLines[userID]
	if !ok {
		lines = make(map[int64]models.CartLine)
		m.cartLines[userID] = lines
	}

	now := time.Now()
	if line, ok := lines[productID]; ok {
		line.Quantity += qty
		line.UpdatedAt = now
		lines[productID] = line
		return nil
	}

	lines[productID] = models.CartLine{
		ID:        m.nextCartLineID,
		UserID:    userID,
		ProductID: productID,
		Quantity:  qty,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.nextCartLineID++
	return nil
}

func (m *MemStore) UpdateCartLineQuantity(ctx context.Context, userID, productID int64, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	lines := m.cartLines[userID]
	line, ok := lines[productID]
	if !ok {
		return fmt.Errorf("cart line not found for product %d", productID)
	}
	line.Quantity = qty
	line.UpdatedAt = time.Now()
	lines[productID] = line
	return nil
}

func (m *MemStore) RemoveCartLine(ctx context.Context, userID, productID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if lines, ok := m.cartLines[userID]; ok {
		delete(lines, productID)
	}
	return nil
}

func (m *MemStore) OrderByID(ctx context.Context, orderID int64) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("order not found: %d", orderID)
	}
	cp := o
	return &cp, nil
}

func (m *MemStore) OrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.orderIdemKeys[key]
	if !ok {
		return nil, nil
	}
	o := m.orders[id]
	return &o, nil
}

func (m *MemStore) OrdersByUserID(ctx context.Context, userID int64) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemStore) OrderLinesByOrderID(ctx context.Context, orderID int64) ([]models.OrderLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.OrderLine(nil), m.orderLines[orderID]...), nil
}

func (m *MemStore) RevenueSummary(ctx context.Context, from, to time.Time) (*models.RevenueSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	summary := &models.RevenueSummary{From: from, To: to}
	for _, o := range m.orders {
		if o.Status == models.OrderStatusCanceled {
			continue
		}
		if o.CreatedAt.Before(from) || !o.CreatedAt.Before(to) {
			continue
		}
		summary.OrderCount++
		summary.GrossAmount += o.TotalAmount
		summary.TaxAmount += o.Tax
		summary.ShippingFee += o.ShippingFee
	}
	return summary, nil
}

func (m *MemStore) InsertNotification(ctx context.Context, n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n.ID = m.nextNotifID
	m.nextNotifID++
	n.CreatedAt = time.Now()
	m.notifications = append(m.notifications, *n)
	return nil
}

// Notifications returns all recorded notifications.
func (m *MemStore) Notifications(ctx context.Context) ([]models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Notification(nil), m.notifications...), nil
}

func (m *MemStore) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.processed[eventID]
	return ok, nil
}

func (m *MemStore) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processed[eventID] = eventType
	return nil
}

func cartLinesLocked(m *MemStore, userID int64) []models.CartLine {
	lines := m.cartLines[userID]
	out := make([]models.CartLine, 0, len(lines))
	for _, l := range lines {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

// memTx operates on the store while InTx holds the mutex.
type memTx struct {
	m *MemStore
}

var _ service.Tx = (*memTx)(nil)

func (t *memTx) CartLines(ctx context.Context, userID int64) ([]models.CartLine, error) {
	return cartLinesLocked(t.m, userID), nil
}

func (t *memTx) ClearCart(ctx context.Context, userID int64) error {
	delete(t.m.cartLines, userID)
	return nil
}

func (t *memTx) ProductForUpdate(ctx context.Context, productID int64) (*models.Product, error) {
	p, ok := t.m.products[productID]
	if !ok {
		return nil, fmt.Errorf("product not found: %d", productID)
	}
	cp := p
	return &cp, nil
}

func (t *memTx) DecrementStock(ctx context.Context, productID int64, qty int) error {
	p, ok := t.m.products[productID]
	if !ok {
		return fmt.Errorf("product not found: %d", productID)
	}
	if p.StockQuantity < qty {
		return fmt.Errorf("stock decrement refused for product %d", productID)
	}
	p.StockQuantity -= qty
	t.m.products[productID] = p
	return nil
}

func (t *memTx) IncrementStock(ctx context.Context, productID int64, qty int) error {
	p, ok := t.m.products[productID]
	if !ok {
		return fmt.Errorf("product not found: %d", productID)
	}
	p.StockQuantity += qty
	t.m.products[productID] = p
	return nil
}

func (t *memTx) InsertOrder(ctx context.Context, order *models.Order) error {
	if order.IdempotencyKey != "" {
		if _, exists := t.m.orderIdemKeys[order.IdempotencyKey]; exists {
			return fmt.Errorf("duplicate idempotency key: %s", order.IdempotencyKey)
		}
	}

	order.ID = t.m.nextOrderID
	t.m.nextOrderID++
	now := time.Now()
	order.CreatedAt = now
	order.UpdatedAt = now
	t.m.orders[order.ID] = *order
	if order.IdempotencyKey != "" {
		t.m.orderIdemKeys[order.IdempotencyKey] = order.ID
	}
	return nil
}

func (t *memTx) InsertOrderLines(ctx context.Context, lines []models.OrderLine) error {
	for i := range lines {
		lines[i].ID = t.m.nextLineID
		t.m.nextLineID++
		t.m.orderLines[lines[i].OrderID] = append(t.m.orderLines[lines[i].OrderID], lines[i])
	}
	return nil
}

func (t *memTx) OrderForUpdate(ctx context.Context, orderID int64) (*models.Order, error) {
	o, ok := t.m.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("order not found: %d", orderID)
	}
	cp := o
	return &cp, nil
}

func (t *memTx) UpdateOrderStatus(ctx context.Context, orderID int64, status string) error {
	o, ok := t.m.orders[orderID]
	if !ok {
		return fmt.Errorf("order not found: %d", orderID)
	}
	o.Status = status
	o.UpdatedAt = time.Now()
	t.m.orders[orderID] = o
	return nil
}

func (t *memTx) OrderLines(ctx context.Context, orderID int64) ([]models.OrderLine, error) {
	return append([]models.OrderLine(nil), t.m.orderLines[orderID]...), nil
}
