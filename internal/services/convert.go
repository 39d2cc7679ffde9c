package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/bluecarbon/registry/internal/models"
	"github.com/bluecarbon/registry/internal/validation"
	"github.com/google/uuid"
)

// The builders below run only after validation passed, so parse failures
// on required fields cannot happen and optional blanks become nil.

func optFloat(in validation.Input, key string) *float64 {
	if v, ok := validation.ParseFloat(in.Get(key)); ok {
		return &v
	}
	return nil
}

func optInt(in validation.Input, key string) *int64 {
	if v, ok := validation.ParseInt(in.Get(key)); ok {
		return &v
	}
	return nil
}

func optDate(in validation.Input, key string) *time.Time {
	if v, ok := validation.ParseDate(in.Get(key)); ok {
		return &v
	}
	return nil
}

func float(in validation.Input, key string) float64 {
	v, _ := validation.ParseFloat(in.Get(key))
	return v
}

func date(in validation.Input, key string) time.Time {
	v, _ := validation.ParseDate(in.Get(key))
	return v
}

func buildLocal(in validation.Input, id uuid.UUID, submittedBy uuid.NullUUID, now time.Time) *models.LocalSubmission {
	plants, _ := validation.ParseInt(in.Get("plantCount"))
	return &models.LocalSubmission{
		ID:                 id,
		Title:              in.Get("title"),
		OwnerName:          in.Get("ownerName"),
		OwnerPhone:         in.Get("ownerPhone"),
		OwnerEmail:         strings.ToLower(in.Get("ownerEmail")),
		Country:            in.Get("country"),
		Place:              in.Get("place"),
		Latitude:           float(in, "lat"),
		Longitude:          float(in, "lng"),
		LocationAccuracy:   optFloat(in, "accuracy"),
		AreaHa:             float(in, "areaHa"),
		PlantCount:         plants,
		StartDate:          date(in, "startDate"),
		Description:        in.Get("description"),
		Ecosystem:          in.Get("ecosystem"),
		PermitHeld:         validation.ParseBool(in.Get("permitHeld")),
		CarbonCreditIntent: validation.ParseBool(in.Get("carbonCreditIntent")),
		Consent:            true,
		Status:             models.StatusPending,
		SubmittedBy:        submittedBy,
		CreatedAt:          now,
	}
}

func buildOrg(in validation.Input, id uuid.UUID, submittedBy uuid.NullUUID, now time.Time) (*models.OrgSubmission, error) {
	species, err := validation.DecodeSpecies(in.Get("species"))
	if err != nil {
		return nil, fmt.Errorf("failed to decode species: %w", err)
	}

	var plantTypes []string
	seen := make(map[string]bool)
	for _, p := range in.List("plantTypes") {
		if !seen[p] {
			seen[p] = true
			plantTypes = append(plantTypes, p)
		}
	}

	ongoing := validation.ParseBool(in.Get("ongoing"))
	endDate := optDate(in, "endDate")

	return &models.OrgSubmission{
		ID:                 id,
		OrgType:            in.Get("orgType"),
		OrgName:            in.Get("orgName"),
		RegistrationNumber: in.Get("registrationNumber"),
		Title:              in.Get("title"),
		ContactName:        in.Get("contactName"),
		ContactEmail:       strings.ToLower(in.Get("contactEmail")),
		ContactPhone:       in.Get("contactPhone"),
		WalletAddress:      in.Get("walletAddress"),
		StartDate:          date(in, "startDate"),
		BaseDate:           optDate(in, "baseDate"),
		EndDate:            endDate,
		Ongoing:            ongoing,
		State:              in.Get("state"),
		District:           in.Get("district"),
		Country:            in.Get("country"),
		Latitude:           float(in, "lat"),
		Longitude:          float(in, "lng"),
		AreaHa:             float(in, "areaHa"),
		MapReference:       in.Get("mapReference"),
		Ecosystem:          in.Get("ecosystem"),
		Methodology:        in.Get("methodology"),
		Species:            species,
		PlantTypes:         plantTypes,
		MangroveCount:      optInt(in, validation.PlantTypeCountField[validation.PlantMangroves]),
		SeagrassCount:      optInt(in, validation.PlantTypeCountField[validation.PlantSeagrasses]),
		TidalMarshCount:    optInt(in, validation.PlantTypeCountField[validation.PlantTidalMarshes]),
		MonitoringPlan:     in.Get("monitoringPlan"),
		SamplingPlan:       in.Get("samplingPlan"),
		SoilBulkDensity:    optFloat(in, "soilBulkDensity"),
		SoilOrganicCarbon:  optFloat(in, "soilOrganicCarbon"),
		WaterSalinity:      optFloat(in, "waterSalinity"),
		WaterPh:            optFloat(in, "waterPh"),
		FundingSource:      in.Get("fundingSource"),
		Partners:           in.Get("partners"),
		BenefitSharing:     in.Get("benefitSharing"),
		PermitsHeld:        validation.ParseBool(in.Get("permitsHeld")),
		EIACompleted:       validation.ParseBool(in.Get("eiaCompleted")),
		CommunityConsent:   validation.ParseBool(in.Get("communityConsent")),
		Consent:            true,
		Status:             models.StatusPending,
		SubmittedBy:        submittedBy,
		CreatedAt:          now,
	}, nil
}
