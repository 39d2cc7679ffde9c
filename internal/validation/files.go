package validation

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bluecarbon/registry/internal/models"
)

var (
	imageTypes    = []string{"image/jpeg", "image/png", "image/webp"}
	documentTypes = []string{"application/pdf", "image/jpeg", "image/png", "image/webp"}
	geoExtensions = []string{".kml", ".kmz", ".geojson", ".json", ".zip"}
)

// LocalFileKinds are the upload fields the individual form accepts
var LocalFileKinds = []string{models.KindPhotos, models.KindPermitDoc}

// OrgFileKinds are the upload fields the organization form accepts
var OrgFileKinds = models.FileKinds

// AcceptedFileKinds returns the upload fields submissionType accepts, or nil
// for an unknown type
func AcceptedFileKinds(submissionType string) []string {
	switch submissionType {
	case models.TypeLocal:
		return LocalFileKinds
	case models.TypeOrg:
		return OrgFileKinds
	}
	return nil
}

// rejectUnexpectedFiles flags every non-empty upload field outside accepted
func rejectUnexpectedFiles(in Input, errs *Errors, accepted []string) {
	var unexpected []string
	for key, files := range in.Files {
		if len(files) > 0 && !slices.Contains(accepted, key) {
			unexpected = append(unexpected, key)
		}
	}
	slices.Sort(unexpected)
	for _, key := range unexpected {
		errs.Add(key, fmt.Sprintf("This form does not accept %s uploads.", key))
	}
}

// fileRule describes what one file field accepts
type fileRule struct {
	key      string
	maxFiles int
	check    func(fi FileInfo) string
}

func (v *Validator) checkFiles(in Input, errs *Errors, rules []fileRule) {
	for _, r := range rules {
		files := in.Files[r.key]
		if r.maxFiles > 0 && len(files) > r.maxFiles {
			if r.maxFiles == 1 {
				errs.Add(r.key, "Upload a single file.")
			} else {
				errs.Add(r.key, fmt.Sprintf("At most %d files allowed.", r.maxFiles))
			}
			continue
		}
		for _, fi := range files {
			if msg := r.check(fi); msg != "" {
				errs.Add(r.key, msg)
				break
			}
		}
	}
}

func (v *Validator) image(fi FileInfo) string {
	if !mimeIn(fi.MIME, imageTypes) {
		return fmt.Sprintf("\"%s\" is not a supported image (JPEG, PNG or WebP).", fi.Name)
	}
	return sizeWithin(fi, v.limits.MaxPhotoBytes)
}

func (v *Validator) document(fi FileInfo) string {
	if !mimeIn(fi.MIME, documentTypes) {
		return fmt.Sprintf("\"%s\" must be a PDF or an image.", fi.Name)
	}
	return sizeWithin(fi, v.limits.MaxDocumentBytes)
}

func (v *Validator) geoBoundary(fi FileInfo) string {
	ext := strings.ToLower(filepath.Ext(fi.Name))
	ok := false
	for _, e := range geoExtensions {
		if ext == e {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Sprintf("\"%s\" must be a KML, KMZ, GeoJSON or zipped shapefile.", fi.Name)
	}
	return sizeWithin(fi, v.limits.MaxDocumentBytes)
}

func sizeWithin(fi FileInfo, limit int64) string {
	if limit > 0 && fi.Size > limit {
		return fmt.Sprintf("\"%s\" exceeds the %s limit.", fi.Name, HumanSize(limit))
	}
	return ""
}

func mimeIn(mime string, allowed []string) bool {
	base := strings.ToLower(strings.TrimSpace(strings.SplitN(mime, ";", 2)[0]))
	for _, a := range allowed {
		if base == a {
			return true
		}
	}
	return false
}

// HumanSize formats a byte count the way the form copy does
func HumanSize(n int64) string {
	switch {
	case n >= 1024*1024 && n%(1024*1024) == 0:
		return fmt.Sprintf("%d MB", n/(1024*1024))
	case n >= 1024*1024:
		return fmt.Sprintf("%.1f MB", float64(n)/(1024*1024))
	case n >= 1024:
		return fmt.Sprintf("%d KB", n/1024)
	}
	return fmt.Sprintf("%d bytes", n)
}
