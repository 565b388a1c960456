package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"storefront/internal/models"
	"storefront/internal/service"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Store is the Postgres implementation of the storage ports.
type Store struct {
	db *sqlx.DB
}

// Compile-time port checks.
var (
	_ service.UnitOfWork        = (*Store)(nil)
	_ service.CartStore         = (*Store)(nil)
	_ service.ProductCatalog    = (*Store)(nil)
	_ service.OrderReader       = (*Store)(nil)
	_ service.ReportStore       = (*Store)(nil)
	_ service.NotificationStore = (*Store)(nil)
)

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// InTx runs fn inside a database transaction. The transaction is rolled back
// unless fn returns nil, including when fn panics.
func (s *Store) InTx(ctx context.Context, fn func(tx service.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Products retrieves all products
func (s *Store) Products(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := s.db.SelectContext(ctx, &products, "SELECT * FROM products ORDER BY id")
	return products, err
}

// ProductByID retrieves a product by ID
func (s *Store) ProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("product not found: %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// CreateProduct inserts a catalog product
func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	query := `
		INSERT INTO products (name, price, stock_quantity)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	return s.db.GetContext(ctx, product, query,
		product.Name, product.Price, product.StockQuantity)
}

// pgTx adapts an open sqlx transaction to the service.Tx port.
type pgTx struct {
	tx *sqlx.Tx
}

var _ service.Tx = (*pgTx)(nil)

func (t *pgTx) CartLines(ctx context.Context, userID int64) ([]models.CartLine, error) {
	var lines []models.CartLine
	err := t.tx.SelectContext(ctx, &lines,
		"SELECT * FROM cart_lines WHERE user_id = $1", userID)
	return lines, err
}

func (t *pgTx) ClearCart(ctx context.Context, userID int64) error {
	_, err := t.tx.ExecContext(ctx, "DELETE FROM cart_lines WHERE user_id = $1", userID)
	return err
}

// ProductForUpdate locks the product row until the transaction ends.
func (t *pgTx) ProductForUpdate(ctx context.Context, productID int64) (*models.Product, error) {
	var product models.Product
	err := t.tx.GetContext(ctx, &product,
		"SELECT * FROM products WHERE id = $1 FOR UPDATE", productID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("product not found: %d", productID)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// DecrementStock applies a guarded decrement: the WHERE clause refuses any
// update that would drive stock negative.
func (t *pgTx) DecrementStock(ctx context.Context, productID int64, qty int) error {
	res, err := t.tx.ExecContext(ctx,
		"UPDATE products SET stock_quantity = stock_quantity - $1 WHERE id = $2 AND stock_quantity >= $1",
		qty, productID)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("stock decrement refused for product %d", productID)
	}
	return nil
}

func (t *pgTx) IncrementStock(ctx context.Context, productID int64, qty int) error {
	_, err := t.tx.ExecContext(ctx,
		"UPDATE products SET stock_quantity = stock_quantity + $1 WHERE id = $2",
		qty, productID)
	return err
}

func (t *pgTx) InsertOrder(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (user_id, first_name, last_name, phone, address, country,
			total_amount, tax, shipping_fee, status, payment_method, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at`

	return t.tx.GetContext(ctx, order, query,
		order.UserID, order.FirstName, order.LastName, order.Phone, order.Address,
		order.Country, order.TotalAmount, order.Tax, order.ShippingFee,
		order.Status, order.PaymentMethod, order.IdempotencyKey)
}

func (t *pgTx) InsertOrderLines(ctx context.Context, lines []models.OrderLine) error {
	query := `
		INSERT INTO order_lines (order_id, product_id, quantity, product_name, product_price)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	for i := range lines {
		err := t.tx.GetContext(ctx, &lines[i].ID, query,
			lines[i].OrderID, lines[i].ProductID, lines[i].Quantity,
			lines[i].ProductName, lines[i].ProductPrice)
		if err != nil {
			return fmt.Errorf("failed to insert order line: %w", err)
		}
	}
	return nil
}

func (t *pgTx) OrderForUpdate(ctx context.Context, orderID int64) (*models.Order, error) {
	var order models.Order
	err := t.tx.GetContext(ctx, &order,
		"SELECT * FROM orders WHERE id = $1 FOR UPDATE", orderID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("order not found: %d", orderID)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (t *pgTx) UpdateOrderStatus(ctx context.Context, orderID int64, status string) error {
	_, err := t.tx.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2",
		status, orderID)
	return err
}

func (t *pgTx) OrderLines(ctx context.Context, orderID int64) ([]models.OrderLine, error) {
	var lines []models.OrderLine
	err := t.tx.SelectContext(ctx, &lines,
		"SELECT * FROM order_lines WHERE order_id = $1", orderID)
	return lines, err
}
