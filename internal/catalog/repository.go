// Package catalog is the read-only product source the cart adds from.
package catalog

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ahinestrog/cartengine/internal/cart"
)

//go:embed db/schema.sql
var schemaSQL string

//go:embed db/products.json
var seedJSON []byte

var ErrNotFound = errors.New("product not found")

// Product is a catalog row. The embedded cart.Product is what gets
// snapshotted into the cart.
type Product struct {
	cart.Product
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	Brand       string `json:"brand,omitempty"`
}

type Repository interface {
	Count(ctx context.Context, q string) (int64, error)
	List(ctx context.Context, q string, limit, offset int) ([]Product, error)
	Get(ctx context.Context, id int64) (Product, error)
}

type SQLiteRepo struct{ db *sql.DB }

func NewSQLiteRepo(db *sql.DB) *SQLiteRepo { return &SQLiteRepo{db: db} }

func (r *SQLiteRepo) Init(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schemaSQL)
	return err
}

// Seed loads the bundled products when the table is empty. It reports how
// many rows were inserted.
func (r *SQLiteRepo) Seed(ctx context.Context) (int, error) {
	var c int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM products`).Scan(&c); err != nil {
		return 0, err
	}
	if c > 0 {
		return 0, nil
	}
	var products []Product
	if err := json.Unmarshal(seedJSON, &products); err != nil {
		return 0, fmt.Errorf("catalog: seed fixture: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()
	for _, p := range products {
		if err := insert(ctx, tx, p); err != nil {
			return 0, err
		}
	}
	return len(products), tx.Commit()
}

// Upsert writes one product, replacing any row with the same id.
func (r *SQLiteRepo) Upsert(ctx context.Context, p Product) error {
	return insert(ctx, r.db, p)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insert(ctx context.Context, db execer, p Product) error {
	variants, err := json.Marshal(p.Variants)
	if err != nil {
		return err
	}
	if p.Variants == nil {
		variants = []byte("[]")
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO products(id,title,description,category,brand,sku,price,discount_percentage,stock,variants,created_unix)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			title=excluded.title, description=excluded.description, category=excluded.category,
			brand=excluded.brand, sku=excluded.sku, price=excluded.price,
			discount_percentage=excluded.discount_percentage, stock=excluded.stock,
			variants=excluded.variants`,
		p.ID, p.Title, p.Description, p.Category, p.Brand, p.SKU, p.Price, p.DiscountPercentage, p.Stock,
		string(variants), time.Now().Unix())
	return err
}

const searchWhere = `WHERE lower(title) LIKE ? OR lower(description) LIKE ? OR lower(category) LIKE ?`

func (r *SQLiteRepo) Count(ctx context.Context, q string) (int64, error) {
	var c int64
	if strings.TrimSpace(q) == "" {
		err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM products`).Scan(&c)
		return c, err
	}
	qp := likePattern(q)
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM products `+searchWhere, qp, qp, qp).Scan(&c)
	return c, err
}

const productCols = `id,title,description,category,brand,sku,price,discount_percentage,stock,variants`

func (r *SQLiteRepo) List(ctx context.Context, q string, limit, offset int) ([]Product, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows *sql.Rows
	var err error
	if strings.TrimSpace(q) == "" {
		rows, err = r.db.QueryContext(ctx, `
			SELECT `+productCols+` FROM products ORDER BY id LIMIT ? OFFSET ?`, limit, offset)
	} else {
		qp := likePattern(q)
		rows, err = r.db.QueryContext(ctx, `
			SELECT `+productCols+` FROM products `+searchWhere+`
			ORDER BY id LIMIT ? OFFSET ?`, qp, qp, qp, limit, offset)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Product{}
	for rows.Next() {
		p, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLiteRepo) Get(ctx context.Context, id int64) (Product, error) {
	p, err := scan(r.db.QueryRowContext(ctx, `SELECT `+productCols+` FROM products WHERE id=?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Product{}, fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	return p, err
}

type scanner interface{ Scan(dest ...any) error }

func scan(s scanner) (Product, error) {
	var p Product
	var variants string
	if err := s.Scan(&p.ID, &p.Title, &p.Description, &p.Category, &p.Brand, &p.SKU,
		&p.Price, &p.DiscountPercentage, &p.Stock, &variants); err != nil {
		return Product{}, err
	}
	if variants != "" && variants != "[]" {
		if err := json.Unmarshal([]byte(variants), &p.Variants); err != nil {
			return Product{}, fmt.Errorf("product %d variants: %w", p.ID, err)
		}
	}
	return p, nil
}

func likePattern(q string) string { return "%" + strings.ToLower(strings.TrimSpace(q)) + "%" }
