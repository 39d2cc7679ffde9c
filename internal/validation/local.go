package validation

import "github.com/bluecarbon/registry/internal/models"

// Ecosystems accepted on both forms
var Ecosystems = []string{"mangroves", "seagrasses", "tidal_marshes", "mixed"}

// MinLocalPhotos is the photo evidence threshold for individual submitters
const MinLocalPhotos = 2

// Local validates an individual's submission
func (v *Validator) Local(in Input) *Errors {
	errs := &Errors{}

	check(in, errs, []field{
		f("title", Required("Title"), Length(5, 200)),
		f("ownerName", Required("Name"), Length(2, 100)),
		f("ownerPhone", Required("Phone number"), Phone),
		f("ownerEmail", Required("Email"), v.Email),
		f("country", Required("Country")),
		f("place", Required("Place")),
		f("lat", Required("Latitude"), Latitude),
		f("lng", Required("Longitude"), Longitude),
		f("accuracy", Optional(NonNegative("Accuracy"))),
		f("areaHa", Required("Area"), Positive("Area")),
		f("plantCount", Required("Plant count"), PositiveInt("Plant count")),
		f("startDate", Required("Start date"), NotFuture(v.now, "Start date cannot be in the future.")),
		f("description", Required("Description"), Length(20, 2000)),
		f("ecosystem", OneOf("Select an ecosystem.", Ecosystems...)),
	})

	if n := in.Count(models.KindPhotos); n < MinLocalPhotos {
		errs.Add(models.KindPhotos, "Upload at least 2 photos.")
	}
	v.checkFiles(in, errs, []fileRule{
		{key: models.KindPhotos, maxFiles: 20, check: v.image},
		{key: models.KindPermitDoc, maxFiles: 1, check: v.document},
	})
	rejectUnexpectedFiles(in, errs, LocalFileKinds)

	check(in, errs, []field{
		f("consent", Checked("You must confirm the information is accurate.")),
	})

	return errs
}
