// Package postgres implements the repository on PostgreSQL via
// database/sql and the pgx stdlib driver. Variant quantities live in a
// jsonb column on products; multi-record operations run in serializable
// transactions and re-read authoritative rows with FOR UPDATE.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"butikpos/backend/internal/domain"
	"butikpos/backend/internal/store"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, purchase_price_cents, sale_price_cents, variants, active, created_at, updated_at
		FROM products
		WHERE active = true
		ORDER BY name, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 128)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, purchase_price_cents, sale_price_cents, variants, active, created_at, updated_at
		FROM products
		WHERE id = $1
	`, id)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || strings.TrimSpace(product.Name) == "" || product.PurchasePriceCents < 0 {
		return nil, store.ErrInvalid
	}
	if product.Variants == nil {
		product.Variants = domain.VariantStock{}
	}
	variants, err := json.Marshal(product.Variants)
	if err != nil {
		return nil, err
	}

	product.Active = true
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	product.UpdatedAt = product.CreatedAt
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, purchase_price_cents, sale_price_cents, variants, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, product.ID, strings.TrimSpace(product.Name), product.PurchasePriceCents, product.SalePriceCents, variants, product.Active, product.CreatedAt, product.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalid
		}
		return nil, err
	}

	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || strings.TrimSpace(product.Name) == "" || product.PurchasePriceCents < 0 {
		return nil, store.ErrInvalid
	}

	// Variants are owned by the stock ledger and deliberately absent
	// from the SET list.
	row := s.db.QueryRowContext(ctx, `
		UPDATE products
		SET name = $2, purchase_price_cents = $3, sale_price_cents = $4, active = $5, updated_at = now()
		WHERE id = $1
		RETURNING id, name, purchase_price_cents, sale_price_cents, variants, active, created_at, updated_at
	`, product.ID, strings.TrimSpace(product.Name), product.PurchasePriceCents, product.SalePriceCents, product.Active)
	updated, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &updated, nil
}

func (s *Store) AdjustVariants(ctx context.Context, adjustments []domain.VariantAdjustment) ([]domain.VariantQuantity, error) {
	if len(adjustments) == 0 {
		return nil, nil
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	results, err := adjustVariantsTx(ctx, pgTx, adjustments)
	if err != nil {
		return nil, err
	}

	if err := pgTx.Commit(); err != nil {
		return nil, txErr(err)
	}
	return results, nil
}

// adjustVariantsTx locks every touched product row, applies the deltas
// to the in-memory variant maps, validates, and writes the maps back.
// Runs inside the caller's transaction so composed operations stay
// atomic.
func adjustVariantsTx(ctx context.Context, pgTx *sql.Tx, adjustments []domain.VariantAdjustment) ([]domain.VariantQuantity, error) {
	ids := make([]string, 0, len(adjustments))
	seen := make(map[string]bool, len(adjustments))
	for _, adj := range adjustments {
		if adj.ProductID == "" || adj.Color == "" || adj.Size == "" {
			return nil, store.ErrInvalid
		}
		if !seen[adj.ProductID] {
			seen[adj.ProductID] = true
			ids = append(ids, adj.ProductID)
		}
	}
	sort.Strings(ids)

	rows, err := pgTx.QueryContext(ctx, `
		SELECT id, variants
		FROM products
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE
	`, ids)
	if err != nil {
		return nil, txErr(err)
	}
	variantsByID := make(map[string]domain.VariantStock, len(ids))
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			_ = rows.Close()
			return nil, err
		}
		variants := domain.VariantStock{}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &variants); err != nil {
				_ = rows.Close()
				return nil, err
			}
		}
		variantsByID[id] = variants
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	results := make([]domain.VariantQuantity, 0, len(adjustments))
	for _, adj := range adjustments {
		variants, exists := variantsByID[adj.ProductID]
		if !exists {
			return nil, store.ErrNotFound
		}
		next := variants.Qty(adj.Color, adj.Size) + adj.Delta
		if next < 0 {
			return nil, store.ErrInsufficientStock
		}
		variants.Set(adj.Color, adj.Size, next)
		results = append(results, domain.VariantQuantity{
			ProductID: adj.ProductID,
			Color:     adj.Color,
			Size:      adj.Size,
			Qty:       next,
		})
	}

	for _, id := range ids {
		raw, err := json.Marshal(variantsByID[id])
		if err != nil {
			return nil, err
		}
		if _, err := pgTx.ExecContext(ctx, `
			UPDATE products
			SET variants = $2, updated_at = now()
			WHERE id = $1
		`, id, raw); err != nil {
			return nil, txErr(err)
		}
	}
	return results, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var product domain.Product
	var raw []byte
	if err := row.Scan(&product.ID, &product.Name, &product.PurchasePriceCents, &product.SalePriceCents, &raw, &product.Active, &product.CreatedAt, &product.UpdatedAt); err != nil {
		return product, err
	}
	product.Variants = domain.VariantStock{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &product.Variants); err != nil {
			return product, err
		}
	}
	product.CreatedAt = product.CreatedAt.UTC()
	product.UpdatedAt = product.UpdatedAt.UTC()
	return product, nil
}

// sortedKeys returns map keys in stable order so flattened shipment
// items come out deterministic.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// txErr maps serialization failures and deadlocks to ErrConflict so
// callers can retry the whole operation.
func txErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "40001" || pgErr.Code == "40P01" {
			return store.ErrConflict
		}
	}
	return err
}

// queryLimit turns a non-positive limit into a NULL parameter, which
// postgres reads as LIMIT ALL. Keeps list semantics in line with the
// memory store, where a non-positive limit returns every row.
func queryLimit(limit int) any {
	if limit < 1 {
		return nil
	}
	return limit
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func nullTime(val *time.Time) any {
	if val == nil {
		return nil
	}
	return *val
}
