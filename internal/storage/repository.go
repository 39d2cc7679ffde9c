package storage

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/bluecarbon/registry/internal/config"
	"github.com/bluecarbon/registry/internal/models"
	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a submission or user does not exist
	ErrNotFound = errors.New("not found")
	// ErrEmailTaken is returned when a user with the same email exists
	ErrEmailTaken = errors.New("email already registered")
)

//go:embed migrations
var migrationFiles embed.FS

// Repository persists submissions, their file records and user accounts
type Repository interface {
	// CreateLocalSubmission inserts the submission and its files in one transaction
	CreateLocalSubmission(ctx context.Context, s *models.LocalSubmission, files []models.FileRecord) error
	// CreateOrgSubmission inserts the submission and its files in one transaction
	CreateOrgSubmission(ctx context.Context, s *models.OrgSubmission, files []models.FileRecord) error
	// ListRecentProjects returns up to limit submissions of both kinds, newest first
	ListRecentProjects(ctx context.Context, limit int) ([]models.ProjectSummary, error)
	GetProject(ctx context.Context, id uuid.UUID) (*models.ProjectDetail, error)

	CreateUser(ctx context.Context, u *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateUserCredentials(ctx context.Context, id uuid.UUID, passwordHash, recoveryHash string) error

	Ping(ctx context.Context) error
	Close()
}

// Open connects to the database selected by cfg.Driver
func Open(ctx context.Context, cfg config.DatabaseConfig) (Repository, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return New(ctx, cfg.DatabaseURL())
	case config.DriverSQLite:
		return NewSQLite(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Migrate applies the schema for whichever backend repo is
func Migrate(repo Repository, migrationsPath string) error {
	switch r := repo.(type) {
	case *DB:
		return r.Migrate(migrationsPath)
	case *SQLite:
		return r.Migrate()
	default:
		return fmt.Errorf("unsupported repository %T", repo)
	}
}

const localColumns = `id, title, owner_name, owner_phone, owner_email, country, place,
	latitude, longitude, location_accuracy, area_ha, plant_count, start_date, description,
	ecosystem, permit_held, carbon_credit_intent, consent, status, submitted_by, created_at`

const orgColumns = `id, org_type, org_name, registration_number, title, contact_name,
	contact_email, contact_phone, wallet_address, start_date, base_date, end_date, ongoing,
	state, district, country, latitude, longitude, area_ha, map_reference, ecosystem,
	methodology, species, plant_types, mangrove_count, seagrass_count, tidal_marsh_count,
	monitoring_plan, sampling_plan, soil_bulk_density, soil_organic_carbon, water_salinity,
	water_ph, funding_source, partners, benefit_sharing, permits_held, eia_completed,
	community_consent, consent, status, submitted_by, created_at`

const fileColumns = `id, submission_id, submission_type, kind, original_name, url,
	size_bytes, mime_type, created_at`

const userColumns = `id, name, email, password_hash, recovery_hash, created_at, updated_at`

// recentProjectsQuery selects the listing columns from both tables. The
// caller appends its own placeholder for the limit.
const recentProjectsQuery = `
	SELECT id, 'local' AS type, title, owner_name AS submitter, country, ecosystem, area_ha, status, created_at
	FROM local_submissions
	UNION ALL
	SELECT id, 'org' AS type, title, org_name AS submitter, country, ecosystem, area_ha, status, created_at
	FROM org_submissions
	ORDER BY created_at DESC
	LIMIT `

// placeholders returns one bind parameter per column in columns, either
// numbered ($1, $2, ...) or positional (?, ?, ...)
func placeholders(columns string, numbered bool) string {
	n := strings.Count(columns, ",") + 1
	out := make([]string, n)
	for i := range out {
		if numbered {
			out[i] = fmt.Sprintf("$%d", i+1)
		} else {
			out[i] = "?"
		}
	}
	return strings.Join(out, ", ")
}

func insertQuery(table, columns string, numbered bool) string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, columns, placeholders(columns, numbered))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func localArgs(s *models.LocalSubmission) []any {
	return []any{
		s.ID, s.Title, s.OwnerName, s.OwnerPhone, s.OwnerEmail, s.Country, s.Place,
		s.Latitude, s.Longitude, s.LocationAccuracy, s.AreaHa, s.PlantCount, s.StartDate, s.Description,
		s.Ecosystem, s.PermitHeld, s.CarbonCreditIntent, s.Consent, s.Status, s.SubmittedBy, s.CreatedAt,
	}
}

func scanLocal(row rowScanner) (*models.LocalSubmission, error) {
	var s models.LocalSubmission
	err := row.Scan(
		&s.ID, &s.Title, &s.OwnerName, &s.OwnerPhone, &s.OwnerEmail, &s.Country, &s.Place,
		&s.Latitude, &s.Longitude, &s.LocationAccuracy, &s.AreaHa, &s.PlantCount, &s.StartDate, &s.Description,
		&s.Ecosystem, &s.PermitHeld, &s.CarbonCreditIntent, &s.Consent, &s.Status, &s.SubmittedBy, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func orgArgs(s *models.OrgSubmission) ([]any, error) {
	species, err := json.Marshal(nonNil(s.Species))
	if err != nil {
		return nil, fmt.Errorf("failed to encode species: %w", err)
	}
	plantTypes, err := json.Marshal(nonNil(s.PlantTypes))
	if err != nil {
		return nil, fmt.Errorf("failed to encode plant types: %w", err)
	}

	return []any{
		s.ID, s.OrgType, s.OrgName, s.RegistrationNumber, s.Title, s.ContactName,
		s.ContactEmail, s.ContactPhone, s.WalletAddress, s.StartDate, s.BaseDate, s.EndDate, s.Ongoing,
		s.State, s.District, s.Country, s.Latitude, s.Longitude, s.AreaHa, s.MapReference, s.Ecosystem,
		s.Methodology, species, plantTypes, s.MangroveCount, s.SeagrassCount, s.TidalMarshCount,
		s.MonitoringPlan, s.SamplingPlan, s.SoilBulkDensity, s.SoilOrganicCarbon, s.WaterSalinity,
		s.WaterPh, s.FundingSource, s.Partners, s.BenefitSharing, s.PermitsHeld, s.EIACompleted,
		s.CommunityConsent, s.Consent, s.Status, s.SubmittedBy, s.CreatedAt,
	}, nil
}

func scanOrg(row rowScanner) (*models.OrgSubmission, error) {
	var s models.OrgSubmission
	var species, plantTypes []byte
	err := row.Scan(
		&s.ID, &s.OrgType, &s.OrgName, &s.RegistrationNumber, &s.Title, &s.ContactName,
		&s.ContactEmail, &s.ContactPhone, &s.WalletAddress, &s.StartDate, &s.BaseDate, &s.EndDate, &s.Ongoing,
		&s.State, &s.District, &s.Country, &s.Latitude, &s.Longitude, &s.AreaHa, &s.MapReference, &s.Ecosystem,
		&s.Methodology, &species, &plantTypes, &s.MangroveCount, &s.SeagrassCount, &s.TidalMarshCount,
		&s.MonitoringPlan, &s.SamplingPlan, &s.SoilBulkDensity, &s.SoilOrganicCarbon, &s.WaterSalinity,
		&s.WaterPh, &s.FundingSource, &s.Partners, &s.BenefitSharing, &s.PermitsHeld, &s.EIACompleted,
		&s.CommunityConsent, &s.Consent, &s.Status, &s.SubmittedBy, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(species, &s.Species); err != nil {
		return nil, fmt.Errorf("failed to decode species: %w", err)
	}
	if err := json.Unmarshal(plantTypes, &s.PlantTypes); err != nil {
		return nil, fmt.Errorf("failed to decode plant types: %w", err)
	}
	return &s, nil
}

func fileArgs(f *models.FileRecord) []any {
	return []any{
		f.ID, f.SubmissionID, f.SubmissionType, f.Kind, f.OriginalName, f.URL,
		f.SizeBytes, f.MimeType, f.CreatedAt,
	}
}

func scanFile(row rowScanner) (models.FileRecord, error) {
	var f models.FileRecord
	err := row.Scan(
		&f.ID, &f.SubmissionID, &f.SubmissionType, &f.Kind, &f.OriginalName, &f.URL,
		&f.SizeBytes, &f.MimeType, &f.CreatedAt,
	)
	return f, err
}

func userArgs(u *models.User) []any {
	return []any{u.ID, u.Name, u.Email, u.PasswordHash, u.RecoveryHash, u.CreatedAt, u.UpdatedAt}
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.RecoveryHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// nonNil keeps empty lists encoded as [] rather than null
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
