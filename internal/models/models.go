package models

import (
	"time"

	"github.com/google/uuid"
)

// Submission types, used as the discriminator on file records
const (
	TypeLocal = "local"
	TypeOrg   = "org"
)

// StatusPending is the only status a submission is ever created with
const StatusPending = "pending"

// File kinds accepted on a submission form
const (
	KindPhotos           = "photos"
	KindSatelliteImages  = "satelliteImages"
	KindPermitDoc        = "permitDoc"
	KindGeoBoundaryFile  = "geoBoundaryFile"
	KindResearchDoc      = "researchDoc"
	KindLandOwnershipDoc = "landOwnershipDoc"
	KindSupportingDocs   = "supportingDocs"
)

// FileKinds lists every file field in form order
var FileKinds = []string{
	KindPhotos,
	KindSatelliteImages,
	KindPermitDoc,
	KindGeoBoundaryFile,
	KindResearchDoc,
	KindLandOwnershipDoc,
	KindSupportingDocs,
}

// User represents a registered account
type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	RecoveryHash string    `db:"recovery_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// LocalSubmission is a project registered by an individual
type LocalSubmission struct {
	ID                 uuid.UUID     `db:"id" json:"id"`
	Title              string        `db:"title" json:"title"`
	OwnerName          string        `db:"owner_name" json:"ownerName"`
	OwnerPhone         string        `db:"owner_phone" json:"ownerPhone"`
	OwnerEmail         string        `db:"owner_email" json:"ownerEmail"`
	Country            string        `db:"country" json:"country"`
	Place              string        `db:"place" json:"place"`
	Latitude           float64       `db:"latitude" json:"lat"`
	Longitude          float64       `db:"longitude" json:"lng"`
	LocationAccuracy   *float64      `db:"location_accuracy" json:"accuracy,omitempty"`
	AreaHa             float64       `db:"area_ha" json:"areaHa"`
	PlantCount         int64         `db:"plant_count" json:"plantCount"`
	StartDate          time.Time     `db:"start_date" json:"startDate"`
	Description        string        `db:"description" json:"description"`
	Ecosystem          string        `db:"ecosystem" json:"ecosystem"`
	PermitHeld         bool          `db:"permit_held" json:"permitHeld"`
	CarbonCreditIntent bool          `db:"carbon_credit_intent" json:"carbonCreditIntent"`
	Consent            bool          `db:"consent" json:"consent"`
	Status             string        `db:"status" json:"status"`
	SubmittedBy        uuid.NullUUID `db:"submitted_by" json:"submittedBy"`
	CreatedAt          time.Time     `db:"created_at" json:"createdAt"`
}

// Species describes one planted species on an organization project
type Species struct {
	Name            string  `json:"name"`
	Count           int64   `json:"count"`
	Density         float64 `json:"density"`
	SurvivalPercent float64 `json:"survivalPercent"`
	AgeClass        string  `json:"ageClass"`
}

// OrgSubmission is a project registered by an organization
type OrgSubmission struct {
	ID                 uuid.UUID     `db:"id" json:"id"`
	OrgType            string        `db:"org_type" json:"orgType"`
	OrgName            string        `db:"org_name" json:"orgName"`
	RegistrationNumber string        `db:"registration_number" json:"registrationNumber"`
	Title              string        `db:"title" json:"title"`
	ContactName        string        `db:"contact_name" json:"contactName"`
	ContactEmail       string        `db:"contact_email" json:"contactEmail"`
	ContactPhone       string        `db:"contact_phone" json:"contactPhone"`
	WalletAddress      string        `db:"wallet_address" json:"walletAddress,omitempty"`
	StartDate          time.Time     `db:"start_date" json:"startDate"`
	BaseDate           *time.Time    `db:"base_date" json:"baseDate,omitempty"`
	EndDate            *time.Time    `db:"end_date" json:"endDate,omitempty"`
	Ongoing            bool          `db:"ongoing" json:"ongoing"`
	State              string        `db:"state" json:"state"`
	District           string        `db:"district" json:"district"`
	Country            string        `db:"country" json:"country"`
	Latitude           float64       `db:"latitude" json:"lat"`
	Longitude          float64       `db:"longitude" json:"lng"`
	AreaHa             float64       `db:"area_ha" json:"areaHa"`
	MapReference       string        `db:"map_reference" json:"mapReference,omitempty"`
	Ecosystem          string        `db:"ecosystem" json:"ecosystem"`
	Methodology        string        `db:"methodology" json:"methodology"`
	Species            []Species     `db:"species" json:"species"`
	PlantTypes         []string      `db:"plant_types" json:"plantTypes"`
	MangroveCount      *int64        `db:"mangrove_count" json:"mangroveCount,omitempty"`
	SeagrassCount      *int64        `db:"seagrass_count" json:"seagrassCount,omitempty"`
	TidalMarshCount    *int64        `db:"tidal_marsh_count" json:"tidalMarshCount,omitempty"`
	MonitoringPlan     string        `db:"monitoring_plan" json:"monitoringPlan"`
	SamplingPlan       string        `db:"sampling_plan" json:"samplingPlan"`
	SoilBulkDensity    *float64      `db:"soil_bulk_density" json:"soilBulkDensity,omitempty"`
	SoilOrganicCarbon  *float64      `db:"soil_organic_carbon" json:"soilOrganicCarbon,omitempty"`
	WaterSalinity      *float64      `db:"water_salinity" json:"waterSalinity,omitempty"`
	WaterPh            *float64      `db:"water_ph" json:"waterPh,omitempty"`
	FundingSource      string        `db:"funding_source" json:"fundingSource,omitempty"`
	Partners           string        `db:"partners" json:"partners,omitempty"`
	BenefitSharing     string        `db:"benefit_sharing" json:"benefitSharing,omitempty"`
	PermitsHeld        bool          `db:"permits_held" json:"permitsHeld"`
	EIACompleted       bool          `db:"eia_completed" json:"eiaCompleted"`
	CommunityConsent   bool          `db:"community_consent" json:"communityConsent"`
	Consent            bool          `db:"consent" json:"consent"`
	Status             string        `db:"status" json:"status"`
	SubmittedBy        uuid.NullUUID `db:"submitted_by" json:"submittedBy"`
	CreatedAt          time.Time     `db:"created_at" json:"createdAt"`
}

// FileRecord is the metadata of one uploaded evidence file
type FileRecord struct {
	ID             uuid.UUID `db:"id" json:"id"`
	SubmissionID   uuid.UUID `db:"submission_id" json:"submissionId"`
	SubmissionType string    `db:"submission_type" json:"submissionType"`
	Kind           string    `db:"kind" json:"kind"`
	OriginalName   string    `db:"original_name" json:"originalName"`
	URL            string    `db:"url" json:"url"`
	SizeBytes      int64     `db:"size_bytes" json:"sizeBytes"`
	MimeType       string    `db:"mime_type" json:"mimeType"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}

// ProjectSummary is one row of the combined recent-submissions listing
type ProjectSummary struct {
	ID        uuid.UUID `json:"id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Submitter string    `json:"submitter"`
	Country   string    `json:"country"`
	Ecosystem string    `json:"ecosystem"`
	AreaHa    float64   `json:"areaHa"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// ProjectDetail is a single submission with its file records.
// Exactly one of Local and Org is set, matching Type.
type ProjectDetail struct {
	Type  string           `json:"type"`
	Local *LocalSubmission `json:"-"`
	Org   *OrgSubmission   `json:"-"`
	Files []FileRecord     `json:"files"`
}

// Project returns whichever submission the detail holds
func (d *ProjectDetail) Project() interface{} {
	if d.Type == TypeOrg {
		return d.Org
	}
	return d.Local
}

// FilesOfKind returns the file records tagged with kind
func (d *ProjectDetail) FilesOfKind(kind string) []FileRecord {
	var out []FileRecord
	for _, f := range d.Files {
		if f.Kind == kind {
			out = append(out, f)
		}
	}
	return out
}
