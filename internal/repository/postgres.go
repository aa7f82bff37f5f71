package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"resource-site-backend/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	db  *pgxpool.Pool
	log *slog.Logger
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore opens the pool and checks connectivity.
func NewPostgresStore(ctx context.Context, databaseURL string, log *slog.Logger) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.Info("postgres connection pool established")
	return &PostgresStore{db: pool, log: log}, nil
}

// Close closes the pool.
func (s *PostgresStore) Close() {
	s.db.Close()
}

// mapError translates driver errors into store errors.
func mapError(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%s: %w", what, ErrAlreadyExists)
		case pgForeignKeyViolation:
			return fmt.Errorf("%s references a missing row: %w", what, ErrNotFound)
		}
	}
	return fmt.Errorf("%s: %w", what, err)
}

// --- UserStore ---

const userColumns = `id, username, password_hash, nickname, email, avatar, role, created_at`

func scanUser(row pgx.Row) (*models.User, error) {
	user := &models.User{}
	var role *int32
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.Nickname,
		&user.Email,
		&user.Avatar,
		&role,
		&user.CreatedAt,
	); err != nil {
		return nil, err
	}
	if role != nil {
		r := uint(*role)
		user.Role = &r
	}
	return user, nil
}

func roleParam(role *uint) *int32 {
	if role == nil {
		return nil
	}
	r := int32(*role)
	return &r
}

func (s *PostgresStore) CreateUser(ctx context.Context, user *models.User) error {
	sql := `
        INSERT INTO users (` + userColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.db.Exec(ctx, sql,
		user.ID,
		user.Username,
		user.PasswordHash,
		user.Nickname,
		user.Email,
		user.Avatar,
		roleParam(user.Role),
		user.CreatedAt,
	)
	if err != nil {
		return mapError(err, fmt.Sprintf("create user %q", user.Username))
	}
	return nil
}

func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	sql := `SELECT ` + userColumns + ` FROM users WHERE username = $1`

	user, err := scanUser(s.db.QueryRow(ctx, sql, username))
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("user %q", username))
	}
	return user, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	sql := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(s.db.QueryRow(ctx, sql, id))
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("user %s", id))
	}
	return user, nil
}

func (s *PostgresStore) UpdateUser(ctx context.Context, user *models.User) error {
	sql := `
        UPDATE users
        SET username = $2, password_hash = $3, nickname = $4, email = $5, avatar = $6, role = $7
        WHERE id = $1`

	tag, err := s.db.Exec(ctx, sql,
		user.ID,
		user.Username,
		user.PasswordHash,
		user.Nickname,
		user.Email,
		user.Avatar,
		roleParam(user.Role),
	)
	if err != nil {
		return mapError(err, fmt.Sprintf("update user %s", user.ID))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", user.ID, ErrNotFound)
	}
	return nil
}

// --- ResourceStore ---

const resourceColumns = `id, owner_id, name, description, category, language, price,
        download_link, cover_image, images, created_at, updated_at`

func scanResource(row pgx.Row) (*models.Resource, error) {
	res := &models.Resource{}
	err := row.Scan(
		&res.ID,
		&res.OwnerID,
		&res.Name,
		&res.Description,
		&res.Category,
		&res.Language,
		&res.Price,
		&res.DownloadLink,
		&res.CoverImage,
		&res.Images,
		&res.CreatedAt,
		&res.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *PostgresStore) CreateResource(ctx context.Context, res *models.Resource) error {
	sql := `
        INSERT INTO resources (` + resourceColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	images := res.Images
	if images == nil {
		images = []string{}
	}
	_, err := s.db.Exec(ctx, sql,
		res.ID,
		res.OwnerID,
		res.Name,
		res.Description,
		res.Category,
		res.Language,
		res.Price,
		res.DownloadLink,
		res.CoverImage,
		images,
		res.CreatedAt,
		res.UpdatedAt,
	)
	if err != nil {
		return mapError(err, fmt.Sprintf("create resource %s", res.ID))
	}
	return nil
}

func (s *PostgresStore) GetResourceByID(ctx context.Context, id uuid.UUID) (*models.Resource, error) {
	sql := `SELECT ` + resourceColumns + ` FROM resources WHERE id = $1`

	res, err := scanResource(s.db.QueryRow(ctx, sql, id))
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("resource %s", id))
	}
	return res, nil
}

func (s *PostgresStore) ListResources(ctx context.Context, filter models.ResourceFilter, limit, offset int) ([]*models.Resource, error) {
	if offset < 0 {
		return []*models.Resource{}, nil
	}
	sql := `
        SELECT ` + resourceColumns + `
        FROM resources
        WHERE ($1 = '' OR category = $1) AND ($2 = '' OR language = $2)
        ORDER BY created_at DESC, id
        LIMIT $3 OFFSET $4`

	rows, err := s.db.Query(ctx, sql, filter.Category, filter.Language, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	defer rows.Close()

	resources := []*models.Resource{}
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, fmt.Errorf("scan resource row: %w", err)
		}
		resources = append(resources, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate resources: %w", err)
	}
	return resources, nil
}

func (s *PostgresStore) UpdateDownloadLink(ctx context.Context, id uuid.UUID, link string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE resources SET download_link = $2, updated_at = now() WHERE id = $1`, id, link)
	if err != nil {
		return mapError(err, fmt.Sprintf("update download link of %s", id))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("resource %s: %w", id, ErrNotFound)
	}
	return nil
}

// --- ImageStore ---

func (s *PostgresStore) SaveImages(ctx context.Context, images []*models.ResourceImage) error {
	if len(images) == 0 {
		return nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin image batch: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, img := range images {
		batch.Queue(
			`INSERT INTO resource_images (id, path, uploader_id, created_at) VALUES ($1, $2, $3, $4)`,
			img.ID, img.Path, img.UploaderID, img.CreatedAt,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return mapError(err, "save images")
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit image batch: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetImage(ctx context.Context, id uuid.UUID) (*models.ResourceImage, error) {
	img := &models.ResourceImage{}
	err := s.db.QueryRow(ctx,
		`SELECT id, path, uploader_id, created_at FROM resource_images WHERE id = $1`, id,
	).Scan(&img.ID, &img.Path, &img.UploaderID, &img.CreatedAt)
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("image %s", id))
	}
	return img, nil
}

func (s *PostgresStore) DeleteImage(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM resource_images WHERE id = $1`, id)
	if err != nil {
		return mapError(err, fmt.Sprintf("delete image %s", id))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("image %s: %w", id, ErrNotFound)
	}
	return nil
}

// --- OrderStore ---

func (s *PostgresStore) CreateOrder(ctx context.Context, order *models.Order) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO orders (id, user_id, resource_id, price, created_at) VALUES ($1, $2, $3, $4, $5)`,
		order.ID, order.UserID, order.ResourceID, order.Price, order.CreatedAt,
	)
	if err != nil {
		return mapError(err, fmt.Sprintf("order for resource %s", order.ResourceID))
	}
	return nil
}

func (s *PostgresStore) ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]*models.Order, error) {
	rows, err := s.db.Query(ctx, `
        SELECT id, user_id, resource_id, price, created_at
        FROM orders
        WHERE user_id = $1
        ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []*models.Order{}
	for rows.Next() {
		o := &models.Order{}
		if err := rows.Scan(&o.ID, &o.UserID, &o.ResourceID, &o.Price, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return orders, nil
}

func (s *PostgresStore) HasPurchased(ctx context.Context, userID, resourceID uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM orders WHERE user_id = $1 AND resource_id = $2)`,
		userID, resourceID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check purchase: %w", err)
	}
	return exists, nil
}
