package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bluecarbon/registry/internal/models"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

// DB is the PostgreSQL repository
type DB struct {
	Pool *pgxpool.Pool
	url  string
}

// New creates a new database connection
func New(ctx context.Context, databaseURL string) (*DB, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Pool: pool, url: databaseURL}, nil
}

// Close closes the database connection
func (db *DB) Close() {
	db.Pool.Close()
}

// Ping checks the database is reachable
func (db *DB) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// Migrate runs database migrations. An empty path uses the migrations
// embedded in the binary.
func (db *DB) Migrate(migrationsPath string) error {
	var (
		m   *migrate.Migrate
		err error
	)
	// Embedded migrations unless a directory is given
	if migrationsPath == "" {
		src, err := iofs.New(migrationFiles, "migrations/postgres")
		if err != nil {
			return fmt.Errorf("failed to open embedded migrations: %w", err)
		}
		m, err = migrate.NewWithSourceInstance("iofs", src, db.url)
		if err != nil {
			return fmt.Errorf("failed to create migrate instance: %w", err)
		}
	} else {
		absPath, err := filepath.Abs(migrationsPath)
		if err != nil {
			return fmt.Errorf("failed to get absolute path: %w", err)
		}
		if _, err := os.Stat(absPath); os.IsNotExist(err) {
			return fmt.Errorf("migrations directory does not exist: %s", absPath)
		}
		m, err = migrate.New("file://"+absPath, db.url)
		if err != nil {
			return fmt.Errorf("failed to create migrate instance: %w", err)
		}
	}
	defer m.Close()

	if err = m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// CreateLocalSubmission inserts a local submission and its file records
func (db *DB) CreateLocalSubmission(ctx context.Context, s *models.LocalSubmission, files []models.FileRecord) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, insertQuery("local_submissions", localColumns, true), localArgs(s)...); err != nil {
		return fmt.Errorf("failed to insert local submission: %w", err)
	}
	if err := db.insertFiles(ctx, tx, files); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// CreateOrgSubmission inserts an organization submission and its file records
func (db *DB) CreateOrgSubmission(ctx context.Context, s *models.OrgSubmission, files []models.FileRecord) error {
	args, err := orgArgs(s)
	if err != nil {
		return err
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, insertQuery("org_submissions", orgColumns, true), args...); err != nil {
		return fmt.Errorf("failed to insert org submission: %w", err)
	}
	if err := db.insertFiles(ctx, tx, files); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (db *DB) insertFiles(ctx context.Context, tx pgx.Tx, files []models.FileRecord) error {
	if len(files) == 0 {
		return nil
	}
	query := insertQuery("project_files", fileColumns, true)

	batch := &pgx.Batch{}
	for i := range files {
		batch.Queue(query, fileArgs(&files[i])...)
	}
	results := tx.SendBatch(ctx, batch)
	for i := range files {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("failed to insert file record %s: %w", files[i].OriginalName, err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("failed to insert file records: %w", err)
	}
	return nil
}

// ListRecentProjects returns the newest submissions of both kinds
func (db *DB) ListRecentProjects(ctx context.Context, limit int) ([]models.ProjectSummary, error) {
	rows, err := db.Pool.Query(ctx, recentProjectsQuery+"$1", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	projects := []models.ProjectSummary{}
	for rows.Next() {
		var p models.ProjectSummary
		if err := rows.Scan(&p.ID, &p.Type, &p.Title, &p.Submitter, &p.Country, &p.Ecosystem, &p.AreaHa, &p.Status, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// GetProject loads a submission of either kind with its file records
func (db *DB) GetProject(ctx context.Context, id uuid.UUID) (*models.ProjectDetail, error) {
	detail := &models.ProjectDetail{}

	local, err := scanLocal(db.Pool.QueryRow(ctx, `SELECT `+localColumns+` FROM local_submissions WHERE id = $1`, id))
	switch {
	case err == nil:
		detail.Type = models.TypeLocal
		detail.Local = local
	case errors.Is(err, pgx.ErrNoRows):
		org, err := scanOrg(db.Pool.QueryRow(ctx, `SELECT `+orgColumns+` FROM org_submissions WHERE id = $1`, id))
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get org submission: %w", err)
		}
		detail.Type = models.TypeOrg
		detail.Org = org
	default:
		return nil, fmt.Errorf("failed to get local submission: %w", err)
	}

	rows, err := db.Pool.Query(ctx, `SELECT `+fileColumns+` FROM project_files
		WHERE submission_id = $1 AND submission_type = $2
		ORDER BY kind, url`, id, detail.Type)
	if err != nil {
		return nil, fmt.Errorf("failed to get file records: %w", err)
	}
	defer rows.Close()

	detail.Files = []models.FileRecord{}
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan file record: %w", err)
		}
		detail.Files = append(detail.Files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get file records: %w", err)
	}
	return detail, nil
}

// CreateUser inserts a new account
func (db *DB) CreateUser(ctx context.Context, u *models.User) error {
	_, err := db.Pool.Exec(ctx, insertQuery("users", userColumns, true), userArgs(u)...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByEmail looks up an account by its lower-cased email
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(db.Pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// GetUserByID looks up an account by id
func (db *DB) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := scanUser(db.Pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// UpdateUserCredentials replaces the password and recovery code hashes
func (db *DB) UpdateUserCredentials(ctx context.Context, id uuid.UUID, passwordHash, recoveryHash string) error {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE users SET password_hash = $2, recovery_hash = $3, updated_at = NOW()
		WHERE id = $1
	`, id, passwordHash, recoveryHash)
	if err != nil {
		return fmt.Errorf("failed to update credentials: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
