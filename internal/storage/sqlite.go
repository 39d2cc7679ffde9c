package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/bluecarbon/registry/internal/models"
	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
)

const sqliteMigrationsDir = "migrations/sqlite"

// SQLite is the embedded repository used for development and tests
type SQLite struct {
	Conn *sql.DB
}

// NewSQLite opens the database at dbPath. ":memory:" keeps everything in a
// single in-process connection.
func NewSQLite(dbPath string) (*SQLite, error) {
	dsn := dbPath + "?_foreign_keys=on&_busy_timeout=5000"
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A second connection would see a different in-memory database, and
	// SQLite serialises writers anyway.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLite{Conn: conn}, nil
}

// Close closes the database connection
func (db *SQLite) Close() {
	db.Conn.Close()
}

// Ping checks the database is reachable
func (db *SQLite) Ping(ctx context.Context) error {
	return db.Conn.PingContext(ctx)
}

// Migrate executes the embedded schema files in name order
func (db *SQLite) Migrate() error {
	entries, err := fs.ReadDir(migrationFiles, sqliteMigrationsDir)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		data, err := fs.ReadFile(migrationFiles, sqliteMigrationsDir+"/"+entry.Name())
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", entry.Name(), err)
		}

		if _, err := db.Conn.Exec(string(data)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", entry.Name(), err)
		}
	}

	return nil
}

// CreateLocalSubmission inserts a local submission and its file records
func (db *SQLite) CreateLocalSubmission(ctx context.Context, s *models.LocalSubmission, files []models.FileRecord) error {
	tx, err := db.Conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, insertQuery("local_submissions", localColumns, false), localArgs(s)...); err != nil {
		return fmt.Errorf("failed to insert local submission: %w", err)
	}
	if err := insertFilesTx(ctx, tx, files); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// CreateOrgSubmission inserts an organization submission and its file records
func (db *SQLite) CreateOrgSubmission(ctx context.Context, s *models.OrgSubmission, files []models.FileRecord) error {
	args, err := orgArgs(s)
	if err != nil {
		return err
	}

	tx, err := db.Conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, insertQuery("org_submissions", orgColumns, false), args...); err != nil {
		return fmt.Errorf("failed to insert org submission: %w", err)
	}
	if err := insertFilesTx(ctx, tx, files); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func insertFilesTx(ctx context.Context, tx *sql.Tx, files []models.FileRecord) error {
	if len(files) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, insertQuery("project_files", fileColumns, false))
	if err != nil {
		return fmt.Errorf("failed to prepare file insert: %w", err)
	}
	defer stmt.Close()

	for i := range files {
		if _, err := stmt.ExecContext(ctx, fileArgs(&files[i])...); err != nil {
			return fmt.Errorf("failed to insert file record %s: %w", files[i].OriginalName, err)
		}
	}
	return nil
}

// sqliteTime scans timestamps from expressions SQLite cannot attach a
// declared type to, such as the columns of a compound select
type sqliteTime struct {
	time.Time
}

func (t *sqliteTime) Scan(v any) error {
	switch v := v.(type) {
	case time.Time:
		t.Time = v
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	case nil:
		t.Time = time.Time{}
		return nil
	default:
		return fmt.Errorf("cannot scan %T into timestamp", v)
	}
}

func (t *sqliteTime) parse(s string) error {
	for _, layout := range sqlite3.SQLiteTimestampFormats {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("cannot parse timestamp %q", s)
}

// ListRecentProjects returns the newest submissions of both kinds
func (db *SQLite) ListRecentProjects(ctx context.Context, limit int) ([]models.ProjectSummary, error) {
	rows, err := db.Conn.QueryContext(ctx, recentProjectsQuery+"?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	projects := []models.ProjectSummary{}
	for rows.Next() {
		var p models.ProjectSummary
		var created sqliteTime
		if err := rows.Scan(&p.ID, &p.Type, &p.Title, &p.Submitter, &p.Country, &p.Ecosystem, &p.AreaHa, &p.Status, &created); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		p.CreatedAt = created.Time
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// GetProject loads a submission of either kind with its file records
func (db *SQLite) GetProject(ctx context.Context, id uuid.UUID) (*models.ProjectDetail, error) {
	detail := &models.ProjectDetail{}

	local, err := scanLocal(db.Conn.QueryRowContext(ctx, `SELECT `+localColumns+` FROM local_submissions WHERE id = ?`, id))
	switch {
	case err == nil:
		detail.Type = models.TypeLocal
		detail.Local = local
	case errors.Is(err, sql.ErrNoRows):
		org, err := scanOrg(db.Conn.QueryRowContext(ctx, `SELECT `+orgColumns+` FROM org_submissions WHERE id = ?`, id))
		if errors.Is(err, sql.ErrNoRows) {
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

	rows, err := db.Conn.QueryContext(ctx, `SELECT `+fileColumns+` FROM project_files
		WHERE submission_id = ? AND submission_type = ?
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
func (db *SQLite) CreateUser(ctx context.Context, u *models.User) error {
	_, err := db.Conn.ExecContext(ctx, insertQuery("users", userColumns, false), userArgs(u)...)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByEmail looks up an account by its lower-cased email
func (db *SQLite) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(db.Conn.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// GetUserByID looks up an account by id
func (db *SQLite) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := scanUser(db.Conn.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// UpdateUserCredentials replaces the password and recovery code hashes
func (db *SQLite) UpdateUserCredentials(ctx context.Context, id uuid.UUID, passwordHash, recoveryHash string) error {
	res, err := db.Conn.ExecContext(ctx, `
		UPDATE users SET password_hash = ?, recovery_hash = ?, updated_at = ?
		WHERE id = ?
	`, passwordHash, recoveryHash, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update credentials: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update credentials: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
