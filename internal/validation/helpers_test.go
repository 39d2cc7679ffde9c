package validation

import (
	"fmt"
	"time"

	"github.com/bluecarbon/registry/internal/models"
)

var fixedNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func newTestValidator() *Validator {
	return New(Limits{MaxPhotoBytes: 1024 * 1024, MaxDocumentBytes: 2 * 1024 * 1024}).
		WithClock(func() time.Time { return fixedNow })
}

func photos(n int) []FileInfo {
	out := make([]FileInfo, n)
	for i := range out {
		out[i] = FileInfo{Name: fmt.Sprintf("site-%d.jpg", i), Size: 2048, MIME: "image/jpeg"}
	}
	return out
}

func validLocalInput() Input {
	return Input{
		Values: map[string][]string{
			"title":       {"Mangrove replanting at Pichavaram"},
			"ownerName":   {"Asha Raman"},
			"ownerPhone":  {"+91 98765 43210"},
			"ownerEmail":  {"asha@example.org"},
			"country":     {"India"},
			"place":       {"Pichavaram, Tamil Nadu"},
			"lat":         {"11.4290"},
			"lng":         {"79.7850"},
			"accuracy":    {"12.5"},
			"areaHa":      {"3.2"},
			"plantCount":  {"1500"},
			"startDate":   {"2025-06-01"},
			"description": {"Community planting of Rhizophora seedlings along the creek banks."},
			"ecosystem":   {"mangroves"},
			"consent":     {"true"},
		},
		Files: map[string][]FileInfo{
			models.KindPhotos: photos(2),
		},
	}
}

func validOrgInput() Input {
	return Input{
		Values: map[string][]string{
			"orgType":            {"ngo"},
			"orgName":            {"Coastal Green Trust"},
			"registrationNumber": {"NGO-2019-4411"},
			"title":              {"Seagrass meadow restoration, Palk Bay"},
			"contactName":        {"Ravi Kumar"},
			"contactEmail":       {"ravi@coastalgreen.org"},
			"contactPhone":       {"+91-44-2345-6789"},
			"walletAddress":      {"0x52908400098527886E0F7030069857D2E4169EE7"},
			"startDate":          {"2024-01-10"},
			"baseDate":           {"2023-12-01"},
			"endDate":            {"2029-01-10"},
			"state":              {"Tamil Nadu"},
			"district":           {"Ramanathapuram"},
			"country":            {"India"},
			"lat":                {"9.2876"},
			"lng":                {"79.3129"},
			"areaHa":             {"40"},
			"ecosystem":          {"seagrasses"},
			"methodology":        {"VM0033"},
			"plantTypes":         {"seagrasses"},
			"species":            {`[{"name":"Cymodocea serrulata","count":20000,"density":4.5,"survivalPercent":78,"ageClass":"sapling"}]`},
			"monitoringPlan":     {"Quarterly transect surveys with fixed quadrats and drone imagery."},
			"samplingPlan":       {"Stratified random cores at 30 cm depth, 12 strata, annual repeat."},
			"soilBulkDensity":    {"0.9"},
			"soilOrganicCarbon":  {"2.4"},
			"waterSalinity":      {"34"},
			"waterPh":            {"7.2"},
			"consent":            {"on"},
		},
		Files: map[string][]FileInfo{
			models.KindPhotos: photos(5),
		},
	}
}
