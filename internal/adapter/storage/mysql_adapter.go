package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/rl1809/storefront/internal/core/domain"
)

const MySQLScheme = "mysql://"

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS catalog_items (
		id          VARCHAR(64)   NOT NULL PRIMARY KEY,
		name        VARCHAR(200)  NOT NULL,
		category    VARCHAR(100)  NOT NULL,
		description TEXT          NOT NULL,
		price       DOUBLE        NOT NULL,
		stock       INT           NOT NULL DEFAULT 0,
		owner_id    VARCHAR(64)   NOT NULL,
		created_at  DATETIME(6)   NOT NULL,
		updated_at  DATETIME(6)   NOT NULL,
		CONSTRAINT chk_stock CHECK (stock >= 0),
		INDEX idx_category (category)
	)`,
	`CREATE TABLE IF NOT EXISTS carts (
		user_id    VARCHAR(64) NOT NULL PRIMARY KEY,
		created_at DATETIME(6) NOT NULL,
		updated_at DATETIME(6) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS cart_lines (
		user_id  VARCHAR(64) NOT NULL,
		item_id  VARCHAR(64) NOT NULL,
		quantity INT         NOT NULL,
		position INT         NOT NULL,
		PRIMARY KEY (user_id, item_id)
	)`,
}

const catalogColumns = `id, name, category, description, price, stock, owner_id, created_at, updated_at`

// MySQLAdapter serves catalog and cart storage from MySQL. Like MongoStore
// it holds no connection until Connect succeeds.
type MySQLAdapter struct {
	db atomic.Pointer[sql.DB]
}

func NewMySQLAdapter() *MySQLAdapter {
	return &MySQLAdapter{}
}

// Connect accepts a go-sql-driver DSN, optionally prefixed with mysql://.
func (m *MySQLAdapter) Connect(ctx context.Context, uri string) error {
	cfg, err := mysql.ParseDSN(strings.TrimPrefix(uri, MySQLScheme))
	if err != nil {
		return fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.ClientFoundRows = true

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return fmt.Errorf("open mysql: %w", err)
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("ping mysql: %w", err)
	}

	for _, stmt := range mysqlSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return fmt.Errorf("apply mysql schema: %w", err)
		}
	}

	if old := m.db.Swap(db); old != nil {
		old.Close()
	}
	return nil
}

func (m *MySQLAdapter) Disconnect(ctx context.Context) error {
	db := m.db.Swap(nil)
	if db == nil {
		return nil
	}
	return db.Close()
}

func (m *MySQLAdapter) conn() (*sql.DB, error) {
	db := m.db.Load()
	if db == nil {
		return nil, domain.ErrUnavailable
	}
	return db, nil
}

func (m *MySQLAdapter) List(ctx context.Context, filter domain.CatalogFilter) ([]domain.CatalogItem, error) {
	db, err := m.conn()
	if err != nil {
		return nil, err
	}

	var where []string
	var args []any
	if filter.Query != "" {
		where = append(where, "name LIKE ?")
		args = append(args, "%"+escapeLike(filter.Query)+"%")
	}
	if filter.Category != "" {
		where = append(where, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.MinPrice != nil {
		where = append(where, "price >= ?")
		args = append(args, *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		where = append(where, "price <= ?")
		args = append(args, *filter.MaxPrice)
	}

	query := `SELECT ` + catalogColumns + ` FROM catalog_items`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at, id`

	return queryCatalog(ctx, db, query, args...)
}

func (m *MySQLAdapter) FindByID(ctx context.Context, itemID string) (*domain.CatalogItem, error) {
	db, err := m.conn()
	if err != nil {
		return nil, err
	}
	return getCatalogItem(ctx, db, itemID)
}

func (m *MySQLAdapter) FindByIDs(ctx context.Context, itemIDs []string) ([]domain.CatalogItem, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	db, err := m.conn()
	if err != nil {
		return nil, err
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(itemIDs)), ",")
	args := make([]any, len(itemIDs))
	for i, id := range itemIDs {
		args[i] = id
	}

	return queryCatalog(ctx, db,
		`SELECT `+catalogColumns+` FROM catalog_items WHERE id IN (`+placeholders+`)`, args...)
}

func (m *MySQLAdapter) Create(ctx context.Context, item domain.CatalogItem) error {
	db, err := m.conn()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO catalog_items (`+catalogColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Name, item.Category, item.Description, item.Price, item.Stock,
		item.OwnerID, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert catalog item: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) Update(ctx context.Context, itemID string, patch domain.CatalogPatch) (*domain.CatalogItem, error) {
	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC()}
	if patch.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *patch.Name)
	}
	if patch.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, *patch.Category)
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.Price != nil {
		sets = append(sets, "price = ?")
		args = append(args, *patch.Price)
	}
	args = append(args, itemID)

	return m.updateAndRead(ctx, itemID,
		`UPDATE catalog_items SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
}

func (m *MySQLAdapter) Delete(ctx context.Context, itemID string) (bool, error) {
	db, err := m.conn()
	if err != nil {
		return false, err
	}

	result, err := db.ExecContext(ctx, `DELETE FROM catalog_items WHERE id = ?`, itemID)
	if err != nil {
		return false, fmt.Errorf("delete catalog item: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// DecrementStock relies on the WHERE clause: the row only matches while
// stock >= quantity, and InnoDB's row lock serializes competing updates.
func (m *MySQLAdapter) DecrementStock(ctx context.Context, itemID string, quantity int) (*domain.CatalogItem, error) {
	return m.updateAndRead(ctx, itemID, `
		UPDATE catalog_items
		SET stock = stock - ?, updated_at = ?
		WHERE id = ? AND stock >= ?`,
		quantity, time.Now().UTC(), itemID, quantity,
	)
}

func (m *MySQLAdapter) IncrementStock(ctx context.Context, itemID string, quantity int) (*domain.CatalogItem, error) {
	return m.updateAndRead(ctx, itemID, `
		UPDATE catalog_items
		SET stock = stock + ?, updated_at = ?
		WHERE id = ?`,
		quantity, time.Now().UTC(), itemID,
	)
}

// updateAndRead runs a single-row UPDATE and reads the row back inside the
// same transaction, while the row lock is still held. A nil item means the
// UPDATE matched nothing.
func (m *MySQLAdapter) updateAndRead(ctx context.Context, itemID, stmt string, args ...any) (*domain.CatalogItem, error) {
	db, err := m.conn()
	if err != nil {
		return nil, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("update catalog item: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, nil
	}

	item, err := getCatalogItem(ctx, tx, itemID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return item, nil
}

func (m *MySQLAdapter) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	db, err := m.conn()
	if err != nil {
		return nil, err
	}

	cart := domain.Cart{UserID: userID, Items: []domain.CartLine{}}
	err = db.QueryRowContext(ctx, `SELECT updated_at FROM carts WHERE user_id = ?`, userID).Scan(&cart.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query cart: %w", err)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT item_id, quantity FROM cart_lines
		WHERE user_id = ? ORDER BY position`, userID)
	if err != nil {
		return nil, fmt.Errorf("query cart lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line domain.CartLine
		if err := rows.Scan(&line.ItemID, &line.Quantity); err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		cart.Items = append(cart.Items, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart lines: %w", err)
	}
	return &cart, nil
}

func (m *MySQLAdapter) SaveCart(ctx context.Context, cart domain.Cart) error {
	db, err := m.conn()
	if err != nil {
		return err
	}

	updatedAt := cart.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO carts (user_id, created_at, updated_at) VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE updated_at = VALUES(updated_at)`,
		cart.UserID, updatedAt, updatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert cart: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM cart_lines WHERE user_id = ?`, cart.UserID); err != nil {
		return fmt.Errorf("clear cart lines: %w", err)
	}

	for i, line := range cart.Items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO cart_lines (user_id, item_id, quantity, position) VALUES (?, ?, ?, ?)`,
			cart.UserID, line.ItemID, line.Quantity, i,
		)
		if err != nil {
			return fmt.Errorf("insert cart line: %w", err)
		}
	}

	return tx.Commit()
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCatalogItem(row rowScanner) (domain.CatalogItem, error) {
	var item domain.CatalogItem
	err := row.Scan(&item.ID, &item.Name, &item.Category, &item.Description, &item.Price,
		&item.Stock, &item.OwnerID, &item.CreatedAt, &item.UpdatedAt)
	return item, err
}

func getCatalogItem(ctx context.Context, q queryer, itemID string) (*domain.CatalogItem, error) {
	item, err := scanCatalogItem(q.QueryRowContext(ctx,
		`SELECT `+catalogColumns+` FROM catalog_items WHERE id = ?`, itemID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query catalog item: %w", err)
	}
	return &item, nil
}

func queryCatalog(ctx context.Context, q queryer, query string, args ...any) ([]domain.CatalogItem, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query catalog: %w", err)
	}
	defer rows.Close()

	items := []domain.CatalogItem{}
	for rows.Next() {
		item, err := scanCatalogItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan catalog item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate catalog: %w", err)
	}
	return items, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
