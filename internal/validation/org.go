package validation

import (
	"fmt"

	"github.com/bluecarbon/registry/internal/models"
)

// Plant types an organization may select
const (
	PlantMangroves    = "mangroves"
	PlantSeagrasses   = "seagrasses"
	PlantTidalMarshes = "tidal_marshes"
)

// PlantTypeCountField maps each plant type to its per-type count field
var PlantTypeCountField = map[string]string{
	PlantMangroves:    "mangroveCount",
	PlantSeagrasses:   "seagrassCount",
	PlantTidalMarshes: "tidalMarshCount",
}

// plantTypeOrder fixes the order per-type count errors are reported in
var plantTypeOrder = []string{PlantMangroves, PlantSeagrasses, PlantTidalMarshes}

// OrgTypes accepted on the organization form
var OrgTypes = []string{"ngo", "government", "private", "community", "research", "other"}

// Photo evidence thresholds for organizations
const (
	MinOrgPhotos           = 5
	MinOrgPhotosWithSat    = 3
	MinOrgSatelliteImages  = 1
	maxSelectedWithoutDocs = 2
)

// Org validates an organization's submission
func (v *Validator) Org(in Input) *Errors {
	errs := &Errors{}

	check(in, errs, []field{
		f("orgType", OneOf("Select an organization type.", OrgTypes...)),
		f("orgName", Required("Organization name"), Length(2, 200)),
		f("registrationNumber", Required("Registration number"), MaxLength(100)),
		f("title", Required("Title"), Length(5, 250)),
		f("contactName", Required("Contact name"), Length(2, 100)),
		f("contactEmail", Required("Email"), v.Email),
		f("contactPhone", Required("Phone number"), Phone),
		f("walletAddress", Optional(Wallet)),
		f("startDate", Required("Start date"), Date),
		f("baseDate", Optional(Date)),
	})
	v.checkEndDate(in, errs)

	check(in, errs, []field{
		f("state", Required("State")),
		f("district", Required("District")),
		f("country", Required("Country")),
		f("lat", Required("Latitude"), Latitude),
		f("lng", Required("Longitude"), Longitude),
		f("areaHa", Required("Area"), Positive("Area")),
		f("mapReference", Optional(MaxLength(500))),
		f("ecosystem", OneOf("Select an ecosystem.", Ecosystems...)),
		f("methodology", Required("Methodology"), MaxLength(200)),
	})

	selected := v.checkPlantTypes(in, errs)
	v.checkSpecies(in, errs)

	check(in, errs, []field{
		f("monitoringPlan", Required("Monitoring plan"), Length(20, 5000)),
		f("samplingPlan", Required("Sampling plan"), Length(20, 5000)),
		f("soilBulkDensity", Optional(Range(0.1, 2.0, "Soil bulk density should be between 0.1 and 2.0 g/cm³."))),
		f("soilOrganicCarbon", Optional(Range(0, 60, "Soil organic carbon should be between 0 and 60%."))),
		f("waterSalinity", Optional(Range(0, 60, "Water salinity should be between 0 and 60 ppt."))),
		f("waterPh", Optional(Range(5, 9, "Water pH should be between 5 and 9."))),
		f("fundingSource", Optional(MaxLength(2000))),
		f("partners", Optional(MaxLength(2000))),
		f("benefitSharing", Optional(MaxLength(2000))),
	})

	if !PhotoEvidenceOK(in.Count(models.KindPhotos), in.Count(models.KindSatelliteImages)) {
		errs.Add(models.KindPhotos, "Upload at least 5 photos, or 1 satellite image and 3 photos.")
	}
	if len(selected) > maxSelectedWithoutDocs && in.Count(models.KindResearchDoc) == 0 {
		errs.Add(models.KindResearchDoc, "A research document is required when more than two plant types are selected.")
	}
	v.checkFiles(in, errs, []fileRule{
		{key: models.KindPhotos, maxFiles: 30, check: v.image},
		{key: models.KindSatelliteImages, maxFiles: 10, check: v.image},
		{key: models.KindPermitDoc, maxFiles: 1, check: v.document},
		{key: models.KindLandOwnershipDoc, maxFiles: 1, check: v.document},
		{key: models.KindResearchDoc, maxFiles: 1, check: v.document},
		{key: models.KindGeoBoundaryFile, maxFiles: 1, check: v.geoBoundary},
		{key: models.KindSupportingDocs, maxFiles: 10, check: v.document},
	})
	rejectUnexpectedFiles(in, errs, OrgFileKinds)

	check(in, errs, []field{
		f("consent", Checked("You must confirm the information is accurate.")),
	})

	return errs
}

// PhotoEvidenceOK applies the organization photo rule: five photos, or one
// satellite image plus three photos.
func PhotoEvidenceOK(photos, satellite int) bool {
	return photos >= MinOrgPhotos || (satellite >= MinOrgSatelliteImages && photos >= MinOrgPhotosWithSat)
}

func (v *Validator) checkEndDate(in Input, errs *Errors) {
	end := in.Get("endDate")
	if ParseBool(in.Get("ongoing")) && end == "" {
		return
	}
	if end == "" {
		errs.Add("endDate", "End date is required unless the project is ongoing.")
		return
	}
	endDate, ok := ParseDate(end)
	if !ok {
		errs.Add("endDate", "Enter a valid date.")
		return
	}
	if start, ok := ParseDate(in.Get("startDate")); ok && endDate.Before(start) {
		errs.Add("endDate", "End date must be after start date.")
	}
}

// checkPlantTypes returns the distinct valid plant types selected
func (v *Validator) checkPlantTypes(in Input, errs *Errors) []string {
	seen := make(map[string]bool)
	var selected []string
	for _, p := range in.List("plantTypes") {
		if _, ok := PlantTypeCountField[p]; !ok {
			errs.Add("plantTypes", fmt.Sprintf("Unknown plant type \"%s\".", p))
			return nil
		}
		if !seen[p] {
			seen[p] = true
			selected = append(selected, p)
		}
	}
	if len(selected) == 0 {
		errs.Add("plantTypes", "Select at least one plant type.")
		return nil
	}

	countRequired := len(selected) > maxSelectedWithoutDocs
	for _, p := range plantTypeOrder {
		key := PlantTypeCountField[p]
		value := in.Get(key)
		switch {
		case seen[p] && countRequired:
			if msg := PositiveInt("Count")(value); msg != "" {
				errs.Add(key, "Enter a count greater than 0 for each selected plant type.")
			}
		case value != "":
			if msg := PositiveInt("Count")(value); msg != "" {
				errs.Add(key, msg)
			}
		}
	}
	return selected
}
