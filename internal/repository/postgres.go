package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"farmerconnect/internal/marketerrors"
	"farmerconnect/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const uniqueViolation = "23505"

// querier is satisfied by both *pgxpool.Pool and pgx.Tx
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepo is the Postgres implementation of MarketDB
type PostgresRepo struct {
	pool *pgxpool.Pool
}

// NewPostgresRepo wraps an open pool
func NewPostgresRepo(pool *pgxpool.Pool) *PostgresRepo {
	return &PostgresRepo{pool: pool}
}

// Connect opens a tuned connection pool and verifies it with a ping
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	cfg.MaxConns = 10
	cfg.MinConns = 0
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Migrate applies the embedded goose migrations
func Migrate(databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// Close releases the pool
func (r *PostgresRepo) Close() {
	r.pool.Close()
}

// inTx runs fn in a transaction, committing only when fn succeeds
func (r *PostgresRepo) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// limitArg maps a zero limit to NULL, which Postgres treats as "no limit"
func limitArg(p models.Page) any {
	if p.Limit <= 0 {
		return nil
	}
	return p.Limit
}

// where accumulates positional SQL predicates
type where struct {
	clauses []string
	args    []any
}

func (w *where) add(clause string, arg any) {
	w.args = append(w.args, arg)
	w.clauses = append(w.clauses, strings.ReplaceAll(clause, "?", fmt.Sprintf("$%d", len(w.args))))
}

func (w *where) sql() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// next returns the next positional placeholder index
func (w *where) next() int {
	return len(w.args) + 1
}

// ---------- users ----------

const userColumns = `id, name, email, password_hash, role, phone, location, farm_name, business_name, verified, active, created_at, updated_at`

func scanUser(row pgx.Row) (models.User, error) {
	var u models.User
	err := row.Scan(&u.UserID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.Phone, &u.Location,
		&u.FarmName, &u.BusinessName, &u.Verified, &u.Active, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (r *PostgresRepo) CreateUser(ctx context.Context, u models.User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, u.UserID, u.Name, strings.ToLower(u.Email), u.PasswordHash, u.Role, u.Phone, u.Location,
		u.FarmName, u.BusinessName, u.Verified, u.Active, u.CreatedAt, u.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("create user %s: %w", u.Email, marketerrors.ErrEmailTaken)
	}
	if err != nil {
		return fmt.Errorf("create user %s: %w", u.Email, err)
	}
	return nil
}

func (r *PostgresRepo) GetUserByID(ctx context.Context, userID string) (models.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.User{}, fmt.Errorf("get user %s: %w", userID, marketerrors.ErrUserNotFound)
	}
	return u, err
}

func (r *PostgresRepo) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.User{}, fmt.Errorf("get user by email %s: %w", email, marketerrors.ErrUserNotFound)
	}
	return u, err
}

func (r *PostgresRepo) UpdateUser(ctx context.Context, userID string, mutate UserMutation) (models.User, error) {
	var updated models.User
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		u, err := scanUser(tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, userID))
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("update user %s: %w", userID, marketerrors.ErrUserNotFound)
		}
		if err != nil {
			return fmt.Errorf("update user %s: %w", userID, err)
		}
		if err := mutate(&u); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			UPDATE users SET name=$2, password_hash=$3, phone=$4, location=$5, farm_name=$6,
			       business_name=$7, verified=$8, active=$9, updated_at=$10
			WHERE id = $1
		`, userID, u.Name, u.PasswordHash, u.Phone, u.Location, u.FarmName, u.BusinessName, u.Verified, u.Active, u.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update user %s: %w", userID, err)
		}
		updated = u
		return nil
	})
	if err != nil {
		return models.User{}, err
	}
	return updated, nil
}

func (r *PostgresRepo) ListUsers(ctx context.Context, f models.UserFilter) ([]models.User, int, error) {
	var w where
	if f.Role != "" {
		w.add("role = ?", f.Role)
	}
	if f.Active != nil {
		w.add("active = ?", *f.Active)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		w.add("(name ILIKE ? OR email ILIKE $"+fmt.Sprint(w.next())+")", "%"+q+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	n := w.next()
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT `+userColumns+` FROM users%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, w.sql(), n, n+1),
		append(w.args, limitArg(f.Page), f.Page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	out := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, u)
	}
	return out, total, rows.Err()
}

func (r *PostgresRepo) CountUsersByRole(ctx context.Context) (map[string]int, error) {
	return r.countBy(ctx, `SELECT role, COUNT(*) FROM users GROUP BY role`)
}

func (r *PostgresRepo) countBy(ctx context.Context, query string) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		counts[key] = n
	}
	return counts, rows.Err()
}

// ---------- catalog ----------

func (r *PostgresRepo) CreateCategory(ctx context.Context, c models.Category) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO categories (id, name, description) VALUES ($1,$2,$3)`, c.CategoryID, c.Name, c.Description)
	if isUniqueViolation(err) {
		return fmt.Errorf("create category %s: %w", c.Name, marketerrors.ErrAlreadyExists)
	}
	return err
}

func (r *PostgresRepo) GetCategory(ctx context.Context, categoryID string) (models.Category, error) {
	var c models.Category
	err := r.pool.QueryRow(ctx, `SELECT id, name, description FROM categories WHERE id = $1`, categoryID).
		Scan(&c.CategoryID, &c.Name, &c.Description)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Category{}, fmt.Errorf("get category %s: %w", categoryID, marketerrors.ErrCategoryNotFound)
	}
	return c, err
}

func (r *PostgresRepo) ListCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, description FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := []models.Category{}
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.CategoryID, &c.Name, &c.Description); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

const productColumns = `id, farmer_id, category_id, name, description, unit, price, quantity, min_order_quantity,
	bidding_enabled, min_bid_price, bidding_ends_at, status, location, harvest_date, organic, created_at, updated_at`

func scanProduct(row pgx.Row) (models.Product, error) {
	var p models.Product
	err := row.Scan(&p.ProductID, &p.FarmerID, &p.CategoryID, &p.Name, &p.Description, &p.Unit, &p.Price,
		&p.Quantity, &p.MinOrderQuantity, &p.BiddingEnabled, &p.MinBidPrice, &p.BiddingEndsAt, &p.Status,
		&p.Location, &p.HarvestDate, &p.Organic, &p.CreatedAt, &p.UpdatedAt)
	p.Images = []models.ProductImage{}
	return p, err
}

func (r *PostgresRepo) CreateProduct(ctx context.Context, p models.Product) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
	`, p.ProductID, p.FarmerID, p.CategoryID, p.Name, p.Description, p.Unit, p.Price, p.Quantity, p.MinOrderQuantity,
		p.BiddingEnabled, p.MinBidPrice, p.BiddingEndsAt, p.Status, p.Location, p.HarvestDate, p.Organic, p.CreatedAt, p.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("create product %s: %w", p.ProductID, marketerrors.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("create product %s: %w", p.ProductID, err)
	}
	return nil
}

func (r *PostgresRepo) GetProduct(ctx context.Context, productID string) (models.Product, error) {
	p, err := r.getProduct(ctx, r.pool, productID, false)
	if err != nil {
		return models.Product{}, err
	}
	images, err := r.loadImages(ctx, []string{p.ProductID})
	if err != nil {
		return models.Product{}, err
	}
	p.Images = append(p.Images, images[p.ProductID]...)
	return p, nil
}

func (r *PostgresRepo) getProduct(ctx context.Context, q querier, productID string, forUpdate bool) (models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	p, err := scanProduct(q.QueryRow(ctx, query, productID))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Product{}, fmt.Errorf("get product %s: %w", productID, marketerrors.ErrProductNotFound)
	}
	if err != nil {
		return models.Product{}, fmt.Errorf("get product %s: %w", productID, err)
	}
	return p, nil
}

func (r *PostgresRepo) loadImages(ctx context.Context, productIDs []string) (map[string][]models.ProductImage, error) {
	out := make(map[string][]models.ProductImage)
	if len(productIDs) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, product_id, url, thumbnail_url, is_primary, created_at
		FROM product_images WHERE product_id = ANY($1) ORDER BY created_at
	`, productIDs)
	if err != nil {
		return nil, fmt.Errorf("load product images: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var img models.ProductImage
		if err := rows.Scan(&img.ImageID, &img.ProductID, &img.URL, &img.ThumbnailURL, &img.Primary, &img.CreatedAt); err != nil {
			return nil, err
		}
		out[img.ProductID] = append(out[img.ProductID], img)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) UpdateProduct(ctx context.Context, productID string, mutate ProductMutation) (models.Product, error) {
	var updated models.Product
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		p, err := r.getProduct(ctx, tx, productID, true)
		if err != nil {
			return err
		}
		if err := mutate(&p); err != nil {
			return err
		}
		p.ProductID = productID
		if err := r.updateProduct(ctx, tx, p); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return models.Product{}, err
	}
	images, err := r.loadImages(ctx, []string{productID})
	if err != nil {
		return models.Product{}, err
	}
	updated.Images = images[productID]
	return updated, nil
}

func (r *PostgresRepo) updateProduct(ctx context.Context, q querier, p models.Product) error {
	tag, err := q.Exec(ctx, `
		UPDATE products SET category_id=$2, name=$3, description=$4, unit=$5, price=$6, quantity=$7,
		       min_order_quantity=$8, bidding_enabled=$9, min_bid_price=$10, bidding_ends_at=$11, status=$12,
		       location=$13, harvest_date=$14, organic=$15, updated_at=$16
		WHERE id = $1
	`, p.ProductID, p.CategoryID, p.Name, p.Description, p.Unit, p.Price, p.Quantity, p.MinOrderQuantity,
		p.BiddingEnabled, p.MinBidPrice, p.BiddingEndsAt, p.Status, p.Location, p.HarvestDate, p.Organic, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update product %s: %w", p.ProductID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update product %s: %w", p.ProductID, marketerrors.ErrProductNotFound)
	}
	return nil
}

func (r *PostgresRepo) DeleteProduct(ctx context.Context, productID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, productID)
	if err != nil {
		return fmt.Errorf("delete product %s: %w", productID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete product %s: %w", productID, marketerrors.ErrProductNotFound)
	}
	return nil
}

func (r *PostgresRepo) ListProducts(ctx context.Context, f models.ProductFilter) ([]models.Product, int, error) {
	var w where
	if len(f.Statuses) > 0 {
		w.add("status = ANY(?)", f.Statuses)
	}
	if f.CategoryID != "" {
		w.add("category_id = ?", f.CategoryID)
	}
	if f.FarmerID != "" {
		w.add("farmer_id = ?", f.FarmerID)
	}
	if f.MinPrice != nil {
		w.add("price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		w.add("price <= ?", *f.MaxPrice)
	}
	if f.Bidding != nil {
		w.add("bidding_enabled = ?", *f.Bidding)
	}
	if f.Organic != nil {
		w.add("organic = ?", *f.Organic)
	}
	if f.Location != "" {
		w.add("location ILIKE ?", "%"+f.Location+"%")
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		w.add("(name ILIKE ? OR description ILIKE $"+fmt.Sprint(w.next())+")", "%"+q+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	order := "created_at DESC"
	switch f.Sort {
	case models.SortPriceAsc:
		order = "price ASC, created_at DESC"
	case models.SortPriceDesc:
		order = "price DESC, created_at DESC"
	}
	n := w.next()
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT `+productColumns+` FROM products%s ORDER BY %s LIMIT $%d OFFSET $%d`, w.sql(), order, n, n+1),
		append(w.args, limitArg(f.Page), f.Page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	out := []models.Product{}
	ids := []string{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
		ids = append(ids, p.ProductID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	rows.Close()

	images, err := r.loadImages(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range out {
		out[i].Images = append(out[i].Images, images[out[i].ProductID]...)
	}
	return out, total, nil
}

func (r *PostgresRepo) AddProductImage(ctx context.Context, img models.ProductImage, maxImages int) (models.ProductImage, error) {
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := r.getProduct(ctx, tx, img.ProductID, true); err != nil {
			return err
		}
		var count int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM product_images WHERE product_id = $1`, img.ProductID).Scan(&count); err != nil {
			return err
		}
		if maxImages > 0 && count >= maxImages {
			return fmt.Errorf("add image to product %s: %w", img.ProductID, marketerrors.ErrImageLimit)
		}
		img.Primary = count == 0
		_, err := tx.Exec(ctx, `
			INSERT INTO product_images (id, product_id, url, thumbnail_url, is_primary, created_at)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, img.ImageID, img.ProductID, img.URL, img.ThumbnailURL, img.Primary, img.CreatedAt)
		return err
	})
	if err != nil {
		return models.ProductImage{}, err
	}
	return img, nil
}

func (r *PostgresRepo) CountProductsByStatus(ctx context.Context) (map[string]int, error) {
	return r.countBy(ctx, `SELECT status, COUNT(*) FROM products GROUP BY status`)
}

// ---------- bids ----------

const bidColumns = `id, product_id, buyer_id, farmer_id, amount, quantity, message, status, created_at, updated_at`

func scanBid(row pgx.Row) (models.Bid, error) {
	var b models.Bid
	err := row.Scan(&b.BidID, &b.ProductID, &b.BuyerID, &b.FarmerID, &b.Amount, &b.Quantity, &b.Message, &b.Status, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

func collectBids(rows pgx.Rows) ([]models.Bid, error) {
	defer rows.Close()
	out := []models.Bid{}
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) highestActive(ctx context.Context, q querier, productID string) (*models.Bid, error) {
	b, err := scanBid(q.QueryRow(ctx, `
		SELECT `+bidColumns+` FROM bids
		WHERE product_id = $1 AND status = 'active'
		ORDER BY amount DESC, created_at ASC LIMIT 1
	`, productID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *PostgresRepo) PlaceBid(ctx context.Context, bid models.Bid, check BidCheck) ([]models.Bid, error) {
	var outbid []models.Bid
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		product, err := r.getProduct(ctx, tx, bid.ProductID, true)
		if err != nil {
			return fmt.Errorf("place bid: %w", err)
		}
		highest, err := r.highestActive(ctx, tx, bid.ProductID)
		if err != nil {
			return fmt.Errorf("place bid: load highest: %w", err)
		}
		if check != nil {
			if err := check(product, highest); err != nil {
				return err
			}
		}

		rows, err := tx.Query(ctx, `
			UPDATE bids SET status = 'outbid', updated_at = $2
			WHERE product_id = $1 AND status = 'active'
			RETURNING `+bidColumns, bid.ProductID, bid.CreatedAt)
		if err != nil {
			return fmt.Errorf("place bid: mark outbid: %w", err)
		}
		if outbid, err = collectBids(rows); err != nil {
			return err
		}

		bid.FarmerID = product.FarmerID
		bid.Status = models.BidActive
		_, err = tx.Exec(ctx, `
			INSERT INTO bids (`+bidColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		`, bid.BidID, bid.ProductID, bid.BuyerID, bid.FarmerID, bid.Amount, bid.Quantity, bid.Message, bid.Status, bid.CreatedAt, bid.UpdatedAt)
		return err
	})
	if err != nil {
		return nil, err
	}
	return outbid, nil
}

func (r *PostgresRepo) GetBid(ctx context.Context, bidID string) (models.Bid, error) {
	return r.getBid(ctx, r.pool, bidID, false)
}

func (r *PostgresRepo) getBid(ctx context.Context, q querier, bidID string, forUpdate bool) (models.Bid, error) {
	query := `SELECT ` + bidColumns + ` FROM bids WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	b, err := scanBid(q.QueryRow(ctx, query, bidID))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Bid{}, fmt.Errorf("get bid %s: %w", bidID, marketerrors.ErrBidNotFound)
	}
	return b, err
}

func (r *PostgresRepo) GetHighestBid(ctx context.Context, productID string) (models.Bid, error) {
	b, err := r.highestActive(ctx, r.pool, productID)
	if err != nil {
		return models.Bid{}, fmt.Errorf("get highest bid for product %s: %w", productID, err)
	}
	if b == nil {
		return models.Bid{}, fmt.Errorf("get highest bid for product %s: %w", productID, marketerrors.ErrNoBids)
	}
	return *b, nil
}

func (r *PostgresRepo) ListBidsByProduct(ctx context.Context, productID string) ([]models.Bid, error) {
	if _, err := r.getProduct(ctx, r.pool, productID, false); err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+bidColumns+` FROM bids WHERE product_id = $1 ORDER BY amount DESC, created_at ASC`, productID)
	if err != nil {
		return nil, fmt.Errorf("list bids for product %s: %w", productID, err)
	}
	return collectBids(rows)
}

func (r *PostgresRepo) ListBids(ctx context.Context, f models.BidFilter) ([]models.Bid, int, error) {
	var w where
	if f.BuyerID != "" {
		w.add("buyer_id = ?", f.BuyerID)
	}
	if f.FarmerID != "" {
		w.add("farmer_id = ?", f.FarmerID)
	}
	if f.Status != "" {
		w.add("status = ?", f.Status)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM bids`+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count bids: %w", err)
	}
	n := w.next()
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT `+bidColumns+` FROM bids%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, w.sql(), n, n+1),
		append(w.args, limitArg(f.Page), f.Page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("list bids: %w", err)
	}
	bids, err := collectBids(rows)
	return bids, total, err
}

func (r *PostgresRepo) AcceptBid(ctx context.Context, bidID string, build OrderBuilder) (models.Bid, models.Order, []models.Bid, error) {
	var (
		accepted models.Bid
		order    models.Order
		closed   []models.Bid
	)
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		bid, err := r.getBid(ctx, tx, bidID, false)
		if err != nil {
			return fmt.Errorf("accept bid: %w", err)
		}
		product, err := r.getProduct(ctx, tx, bid.ProductID, true)
		if err != nil {
			return fmt.Errorf("accept bid: %w", err)
		}
		// re-read under the product lock
		if bid, err = r.getBid(ctx, tx, bidID, true); err != nil {
			return fmt.Errorf("accept bid: %w", err)
		}

		if order, err = build(bid, product); err != nil {
			return err
		}
		if order.Quantity > product.Quantity {
			return fmt.Errorf("accept bid %s: %w", bidID, marketerrors.ErrInsufficientStock)
		}

		bid.Status = models.BidAccepted
		bid.UpdatedAt = order.CreatedAt
		if _, err := tx.Exec(ctx, `UPDATE bids SET status = $2, updated_at = $3 WHERE id = $1`, bid.BidID, bid.Status, bid.UpdatedAt); err != nil {
			return fmt.Errorf("accept bid: %w", err)
		}
		accepted = bid

		rows, err := tx.Query(ctx, `
			UPDATE bids SET status = 'rejected', updated_at = $3
			WHERE product_id = $1 AND id <> $2 AND status IN ('active', 'outbid')
			RETURNING `+bidColumns, bid.ProductID, bid.BidID, order.CreatedAt)
		if err != nil {
			return fmt.Errorf("accept bid: reject others: %w", err)
		}
		if closed, err = collectBids(rows); err != nil {
			return err
		}

		if err := r.takeStock(ctx, tx, product, order.Quantity, order.CreatedAt); err != nil {
			return err
		}
		return r.insertOrder(ctx, tx, order)
	})
	if err != nil {
		return models.Bid{}, models.Order{}, nil, err
	}
	return accepted, order, closed, nil
}

func (r *PostgresRepo) CloseBid(ctx context.Context, bidID string, mutate BidMutation) (models.Bid, *models.Bid, error) {
	var (
		closed   models.Bid
		promoted *models.Bid
	)
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		bid, err := r.getBid(ctx, tx, bidID, false)
		if err != nil {
			return fmt.Errorf("close bid: %w", err)
		}
		if _, err := r.getProduct(ctx, tx, bid.ProductID, true); err != nil {
			return fmt.Errorf("close bid: %w", err)
		}
		if bid, err = r.getBid(ctx, tx, bidID, true); err != nil {
			return fmt.Errorf("close bid: %w", err)
		}

		wasActive := bid.Status == models.BidActive
		if err := mutate(&bid); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE bids SET status = $2, updated_at = $3 WHERE id = $1`, bid.BidID, bid.Status, bid.UpdatedAt); err != nil {
			return fmt.Errorf("close bid: %w", err)
		}
		closed = bid
		if !wasActive || bid.Status == models.BidActive {
			return nil
		}

		next, err := scanBid(tx.QueryRow(ctx, `
			UPDATE bids SET status = 'active', updated_at = $2
			WHERE id = (
				SELECT id FROM bids WHERE product_id = $1 AND status = 'outbid'
				ORDER BY amount DESC, created_at ASC LIMIT 1
			)
			RETURNING `+bidColumns, bid.ProductID, bid.UpdatedAt))
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("close bid: promote next: %w", err)
		}
		promoted = &next
		return nil
	})
	if err != nil {
		return models.Bid{}, nil, err
	}
	return closed, promoted, nil
}

// takeStock decrements the locked product, marking it sold at zero
func (r *PostgresRepo) takeStock(ctx context.Context, tx pgx.Tx, p models.Product, qty float64, at time.Time) error {
	p.Quantity -= qty
	if p.Quantity <= 0 {
		p.Quantity = 0
		p.Status = models.ProductSold
	}
	p.UpdatedAt = at
	return r.updateProduct(ctx, tx, p)
}

// ---------- orders ----------

const orderColumns = `id, buyer_id, farmer_id, product_id, product_name, unit, COALESCE(bid_id, ''), quantity, unit_price, total,
	status, payment_status, payment_method, payment_ref, paid_at, delivery_address, notes, created_at, updated_at`

func scanOrder(row pgx.Row) (models.Order, error) {
	var o models.Order
	err := row.Scan(&o.OrderID, &o.BuyerID, &o.FarmerID, &o.ProductID, &o.ProductName, &o.Unit, &o.BidID, &o.Quantity,
		&o.UnitPrice, &o.Total, &o.Status, &o.PaymentStatus, &o.PaymentMethod, &o.PaymentRef, &o.PaidAt,
		&o.DeliveryAddress, &o.Notes, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

func (r *PostgresRepo) insertOrder(ctx context.Context, q querier, o models.Order) error {
	_, err := q.Exec(ctx, `
		INSERT INTO orders (id, buyer_id, farmer_id, product_id, product_name, unit, bid_id, quantity, unit_price, total,
		                    status, payment_status, payment_method, payment_ref, paid_at, delivery_address, notes, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,NULLIF($7, ''),$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
	`, o.OrderID, o.BuyerID, o.FarmerID, o.ProductID, o.ProductName, o.Unit, o.BidID, o.Quantity, o.UnitPrice, o.Total,
		o.Status, o.PaymentStatus, o.PaymentMethod, o.PaymentRef, o.PaidAt, o.DeliveryAddress, o.Notes, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order %s: %w", o.OrderID, err)
	}
	return nil
}

func (r *PostgresRepo) CreateOrder(ctx context.Context, order models.Order, check ProductCheck) (models.Order, error) {
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		product, err := r.getProduct(ctx, tx, order.ProductID, true)
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		if check != nil {
			if err := check(product, &order); err != nil {
				return err
			}
		}
		if order.Quantity > product.Quantity {
			return fmt.Errorf("create order for product %s: %w", order.ProductID, marketerrors.ErrInsufficientStock)
		}
		if err := r.takeStock(ctx, tx, product, order.Quantity, order.CreatedAt); err != nil {
			return err
		}
		return r.insertOrder(ctx, tx, order)
	})
	if err != nil {
		return models.Order{}, err
	}
	return order, nil
}

func (r *PostgresRepo) GetOrder(ctx context.Context, orderID string) (models.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Order{}, fmt.Errorf("get order %s: %w", orderID, marketerrors.ErrOrderNotFound)
	}
	return o, err
}

func (r *PostgresRepo) ListOrders(ctx context.Context, f models.OrderFilter) ([]models.Order, int, error) {
	var w where
	if f.BuyerID != "" {
		w.add("buyer_id = ?", f.BuyerID)
	}
	if f.FarmerID != "" {
		w.add("farmer_id = ?", f.FarmerID)
	}
	if f.Status != "" {
		w.add("status = ?", f.Status)
	}
	if f.PaymentStatus != "" {
		w.add("payment_status = ?", f.PaymentStatus)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders`+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}
	n := w.next()
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT `+orderColumns+` FROM orders%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, w.sql(), n, n+1),
		append(w.args, limitArg(f.Page), f.Page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	out := []models.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, o)
	}
	return out, total, rows.Err()
}

func (r *PostgresRepo) UpdateOrder(ctx context.Context, orderID string, mutate OrderMutation) (models.Order, error) {
	var updated models.Order
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		o, err := scanOrder(tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, orderID))
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("update order %s: %w", orderID, marketerrors.ErrOrderNotFound)
		}
		if err != nil {
			return fmt.Errorf("update order %s: %w", orderID, err)
		}
		prev := o.Status
		if err := mutate(&o); err != nil {
			return err
		}

		if prev != models.OrderCancelled && o.Status == models.OrderCancelled {
			p, err := r.getProduct(ctx, tx, o.ProductID, true)
			if err != nil {
				return fmt.Errorf("update order %s: restock: %w", orderID, err)
			}
			p.Quantity += o.Quantity
			if p.Status == models.ProductSold {
				p.Status = models.ProductActive
			}
			p.UpdatedAt = o.UpdatedAt
			if err := r.updateProduct(ctx, tx, p); err != nil {
				return err
			}
		}

		_, err = tx.Exec(ctx, `
			UPDATE orders SET status=$2, payment_status=$3, payment_method=$4, payment_ref=$5, paid_at=$6,
			       delivery_address=$7, notes=$8, updated_at=$9
			WHERE id = $1
		`, o.OrderID, o.Status, o.PaymentStatus, o.PaymentMethod, o.PaymentRef, o.PaidAt, o.DeliveryAddress, o.Notes, o.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update order %s: %w", orderID, err)
		}
		updated = o
		return nil
	})
	if err != nil {
		return models.Order{}, err
	}
	return updated, nil
}

func (r *PostgresRepo) ProductHasActivity(ctx context.Context, productID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM bids WHERE product_id = $1)
		    OR EXISTS (SELECT 1 FROM orders WHERE product_id = $1)
	`, productID).Scan(&exists)
	return exists, err
}

// ---------- reviews ----------

func (r *PostgresRepo) CreateReview(ctx context.Context, rv models.Review) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO reviews (id, order_id, product_id, buyer_id, farmer_id, rating, comment, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, rv.ReviewID, rv.OrderID, rv.ProductID, rv.BuyerID, rv.FarmerID, rv.Rating, rv.Comment, rv.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("create review for order %s: %w", rv.OrderID, marketerrors.ErrAlreadyReviewed)
	}
	return err
}

func reviewWhere(f models.ReviewFilter) where {
	var w where
	if f.FarmerID != "" {
		w.add("farmer_id = ?", f.FarmerID)
	}
	if f.ProductID != "" {
		w.add("product_id = ?", f.ProductID)
	}
	return w
}

func (r *PostgresRepo) ListReviews(ctx context.Context, f models.ReviewFilter) ([]models.Review, int, error) {
	w := reviewWhere(f)
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM reviews`+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count reviews: %w", err)
	}
	n := w.next()
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT id, order_id, product_id, buyer_id, farmer_id, rating, comment, created_at
		FROM reviews%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, w.sql(), n, n+1),
		append(w.args, limitArg(f.Page), f.Page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	out := []models.Review{}
	for rows.Next() {
		var rv models.Review
		if err := rows.Scan(&rv.ReviewID, &rv.OrderID, &rv.ProductID, &rv.BuyerID, &rv.FarmerID, &rv.Rating, &rv.Comment, &rv.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, rv)
	}
	return out, total, rows.Err()
}

func (r *PostgresRepo) RatingSummary(ctx context.Context, f models.ReviewFilter) (float64, int, error) {
	w := reviewWhere(f)
	var avg float64
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(AVG(rating), 0)::float8, COUNT(*) FROM reviews`+w.sql(), w.args...).Scan(&avg, &count)
	return avg, count, err
}

// ---------- notifications ----------

func (r *PostgresRepo) CreateNotification(ctx context.Context, n models.Notification) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notifications (id, user_id, kind, title, message, reference_id, read, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, n.NotificationID, n.UserID, n.Kind, n.Title, n.Message, n.ReferenceID, n.Read, n.CreatedAt)
	return err
}

func (r *PostgresRepo) ListNotifications(ctx context.Context, userID string, unreadOnly bool, page models.Page) ([]models.Notification, int, error) {
	var w where
	w.add("user_id = ?", userID)
	if unreadOnly {
		w.add("read = ?", false)
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notifications`+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}
	n := w.next()
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT id, user_id, kind, title, message, reference_id, read, created_at
		FROM notifications%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, w.sql(), n, n+1),
		append(w.args, limitArg(page), page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	out := []models.Notification{}
	for rows.Next() {
		var item models.Notification
		if err := rows.Scan(&item.NotificationID, &item.UserID, &item.Kind, &item.Title, &item.Message, &item.ReferenceID, &item.Read, &item.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, item)
	}
	return out, total, rows.Err()
}

func (r *PostgresRepo) MarkNotificationRead(ctx context.Context, userID, notificationID string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`, notificationID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("mark notification %s read: %w", notificationID, marketerrors.ErrNotificationNotFound)
	}
	return nil
}

func (r *PostgresRepo) MarkAllNotificationsRead(ctx context.Context, userID string) (int, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE notifications SET read = TRUE WHERE user_id = $1 AND read = FALSE`, userID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *PostgresRepo) CountUnread(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read = FALSE`, userID).Scan(&n)
	return n, err
}

// ---------- prices ----------

func (r *PostgresRepo) UpsertMarketPrice(ctx context.Context, p models.MarketPrice) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO market_prices (id, commodity, variety, market, district, state, min_price, max_price, modal_price, arrival_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (commodity, market, arrival_date) DO UPDATE SET
			variety = EXCLUDED.variety, district = EXCLUDED.district, state = EXCLUDED.state,
			min_price = EXCLUDED.min_price, max_price = EXCLUDED.max_price, modal_price = EXCLUDED.modal_price
	`, p.PriceID, p.Commodity, p.Variety, p.Market, p.District, p.State, p.MinPrice, p.MaxPrice, p.ModalPrice, p.ArrivalDate)
	return err
}

func (r *PostgresRepo) UpsertMSP(ctx context.Context, m models.MSPRate) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO msp_rates (id, commodity, season, year, price) VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (commodity, season, year) DO UPDATE SET price = EXCLUDED.price
	`, m.MSPID, m.Commodity, m.Season, m.Year, m.Price)
	return err
}

func (r *PostgresRepo) ListMarketPrices(ctx context.Context, f models.PriceFilter) ([]models.MarketPrice, int, error) {
	var w where
	if f.Commodity != "" {
		w.add("lower(commodity) = lower(?)", f.Commodity)
	}
	if f.State != "" {
		w.add("lower(state) = lower(?)", f.State)
	}
	if f.Market != "" {
		w.add("lower(market) = lower(?)", f.Market)
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM market_prices`+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count market prices: %w", err)
	}
	n := w.next()
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT id, commodity, variety, market, district, state, min_price, max_price, modal_price, arrival_date
		FROM market_prices%s ORDER BY arrival_date DESC, market LIMIT $%d OFFSET $%d`, w.sql(), n, n+1),
		append(w.args, limitArg(f.Page), f.Page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("list market prices: %w", err)
	}
	defer rows.Close()

	out := []models.MarketPrice{}
	for rows.Next() {
		var p models.MarketPrice
		if err := rows.Scan(&p.PriceID, &p.Commodity, &p.Variety, &p.Market, &p.District, &p.State, &p.MinPrice, &p.MaxPrice, &p.ModalPrice, &p.ArrivalDate); err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

func (r *PostgresRepo) ListMSP(ctx context.Context, f models.PriceFilter) ([]models.MSPRate, error) {
	var w where
	if f.Commodity != "" {
		w.add("lower(commodity) = lower(?)", f.Commodity)
	}
	if f.Season != "" {
		w.add("lower(season) = lower(?)", f.Season)
	}
	if f.Year != "" {
		w.add("year = ?", f.Year)
	}
	rows, err := r.pool.Query(ctx, `SELECT id, commodity, season, year, price FROM msp_rates`+w.sql()+` ORDER BY commodity, year DESC`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list msp: %w", err)
	}
	defer rows.Close()

	out := []models.MSPRate{}
	for rows.Next() {
		var m models.MSPRate
		if err := rows.Scan(&m.MSPID, &m.Commodity, &m.Season, &m.Year, &m.Price); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
