package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestDB represents a test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB creates a PostgreSQL test container and connection pool.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	// Create PostgreSQL container
	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	// Get connection string
	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	// Create connection pool
	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		t.Fatalf("failed to parse connection string: %v", err)
	}
	poolConfig.MaxConns = 10

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("failed to ping database: %v", err)
	}

	// Create schema
	createSchema(t, pool)

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}
}

// createSchema creates the database schema for testing.
func createSchema(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	schema := `
		CREATE TABLE IF NOT EXISTS categories (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			active BOOLEAN NOT NULL DEFAULT TRUE
		);

		CREATE TABLE IF NOT EXISTS products (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			price DECIMAL(12, 2) NOT NULL,
			stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
			unit_label VARCHAR(50) NOT NULL DEFAULT '',
			image_url TEXT NOT NULL DEFAULT '',
			active BOOLEAN NOT NULL DEFAULT TRUE,
			category_id BIGINT NOT NULL REFERENCES categories(id),
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS orders (
			id UUID PRIMARY KEY,
			user_id BIGINT,
			customer_name VARCHAR(255),
			customer_email VARCHAR(255),
			guest_name VARCHAR(255),
			guest_email VARCHAR(255),
			status VARCHAR(20) NOT NULL,
			payment_method VARCHAR(20) NOT NULL,
			subtotal_amount DECIMAL(12, 2) NOT NULL,
			delivery_fee DECIMAL(12, 2) NOT NULL,
			total_amount DECIMAL(12, 2) NOT NULL,
			delivery_address TEXT,
			note TEXT,
			contact_phone VARCHAR(50),
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS order_lines (
			id UUID PRIMARY KEY,
			order_id UUID NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
			product_id BIGINT NOT NULL REFERENCES products(id),
			product_name VARCHAR(255) NOT NULL,
			unit_label VARCHAR(50) NOT NULL DEFAULT '',
			quantity INTEGER NOT NULL CHECK (quantity > 0),
			unit_price DECIMAL(12, 2) NOT NULL,
			line_total DECIMAL(12, 2) NOT NULL
		);

		CREATE TABLE IF NOT EXISTS stock_movements (
			id BIGSERIAL PRIMARY KEY,
			product_id BIGINT NOT NULL REFERENCES products(id),
			type VARCHAR(20) NOT NULL,
			delta INTEGER NOT NULL,
			before_stock INTEGER NOT NULL,
			after_stock INTEGER NOT NULL,
			reference_type VARCHAR(20),
			reference_id VARCHAR(64),
			note TEXT,
			actor VARCHAR(255),
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS settings (
			setting_key VARCHAR(100) PRIMARY KEY,
			setting_value TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_order_lines_order_id ON order_lines(order_id);
		CREATE INDEX IF NOT EXISTS idx_orders_user_id ON orders(user_id);
		CREATE INDEX IF NOT EXISTS idx_stock_movements_product_id ON stock_movements(product_id);
	`

	_, err := pool.Exec(ctx, schema)
	if err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
}

// SeedCatalogue inserts test category and product data into the database.
func SeedCatalogue(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	categories := []struct {
		id     int64
		name   string
		active bool
	}{
		{1, "Groceries", true},
		{2, "Dairy", true},
		{3, "Discontinued", false},
	}
	for _, c := range categories {
		_, err := pool.Exec(ctx,
			"INSERT INTO categories (id, name, active) VALUES ($1, $2, $3)",
			c.id, c.name, c.active,
		)
		if err != nil {
			t.Fatalf("failed to seed category %d: %v", c.id, err)
		}
	}

	products := []struct {
		id         int64
		name       string
		price      string
		stock      int
		active     bool
		categoryID int64
	}{
		{1, "Tomatoes", "12.50", 40, true, 1},
		{2, "Olive Oil", "180.00", 10, true, 1},
		{3, "White Cheese", "95.00", 8, true, 2},
		{4, "Sold Out Tea", "45.00", 0, true, 1},
		{5, "Retired Soda", "20.00", 15, false, 1},
		{6, "Old Stock Rice", "60.00", 30, true, 3},
	}
	for _, p := range products {
		_, err := pool.Exec(ctx,
			`INSERT INTO products (id, name, price, stock, unit_label, active, category_id)
			 VALUES ($1, $2, $3, $4, 'unit', $5, $6)`,
			p.id, p.name, decimal.RequireFromString(p.price), p.stock, p.active, p.categoryID,
		)
		if err != nil {
			t.Fatalf("failed to seed product %d: %v", p.id, err)
		}
	}
}

// CleanupDB cleans all data from test tables.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	tables := []string{"stock_movements", "order_lines", "orders", "products", "categories", "settings"}
	for _, table := range tables {
		_, err := pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}
}
