package services

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"sync"
	"testing"
	"time"

	"github.com/bluecarbon/registry/internal/events"
	"github.com/bluecarbon/registry/internal/metrics"
	"github.com/bluecarbon/registry/internal/storage"
	"github.com/bluecarbon/registry/internal/uploads"
	"github.com/bluecarbon/registry/internal/validation"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var fixedNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

var (
	jpegBytes = append([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}, bytes.Repeat([]byte{0x11}, 256)...)
	pngBytes  = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 13, 'I', 'H', 'D', 'R'}
	pdfBytes  = []byte("%PDF-1.4\n1 0 obj << /Type /Catalog >> endobj\n%%EOF\n")
)

type upload struct {
	field string
	name  string
	data  []byte
}

func photoUploads(field string, n int) []upload {
	out := make([]upload, n)
	for i := range out {
		out[i] = upload{field: field, name: fmt.Sprintf("site %d.jpg", i+1), data: jpegBytes}
	}
	return out
}

// buildForm encodes values and files as a multipart body and parses it back,
// so file headers behave exactly as they do behind gin
func buildForm(t *testing.T, values map[string]string, files []upload) *multipart.Form {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range values {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		part, err := w.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(32 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })
	return form
}

func localValues() map[string]string {
	return map[string]string{
		"title":       "Mangrove replanting at Pichavaram",
		"ownerName":   "Asha Raman",
		"ownerPhone":  "+91 98765 43210",
		"ownerEmail":  "Asha@Example.org",
		"country":     "India",
		"place":       "Pichavaram, Tamil Nadu",
		"lat":         "11.4290",
		"lng":         "79.7850",
		"areaHa":      "3.2",
		"plantCount":  "1500",
		"startDate":   "2025-06-01",
		"description": "Community planting of Rhizophora seedlings along the creek banks.",
		"ecosystem":   "mangroves",
		"permitHeld":  "on",
		"consent":     "true",
	}
}

func orgValues() map[string]string {
	return map[string]string{
		"orgType":            "ngo",
		"orgName":            "Coastal Green Trust",
		"registrationNumber": "NGO-2019-4411",
		"title":              "Seagrass meadow restoration, Palk Bay",
		"contactName":        "Ravi Kumar",
		"contactEmail":       "ravi@coastalgreen.org",
		"contactPhone":       "+91-44-2345-6789",
		"startDate":          "2024-01-10",
		"ongoing":            "true",
		"state":              "Tamil Nadu",
		"district":           "Ramanathapuram",
		"country":            "India",
		"lat":                "9.2876",
		"lng":                "79.3129",
		"areaHa":             "40",
		"ecosystem":          "seagrasses",
		"methodology":        "VM0033",
		"plantTypes":         "mangroves,seagrasses",
		"species":            `[{"name":"Cymodocea serrulata","count":"20000","density":4.5,"survivalPercent":78,"ageClass":"sapling"}]`,
		"monitoringPlan":     "Quarterly transect surveys with fixed quadrats and drone imagery.",
		"samplingPlan":       "Stratified random cores at 30 cm depth, 12 strata, annual repeat.",
		"waterPh":            "7.2",
		"consent":            "on",
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.SubmissionEvent
}

func (p *recordingPublisher) PublishSubmitted(_ context.Context, ev events.SubmissionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Close() {}

type projectEnv struct {
	svc       *ProjectService
	repo      storage.Repository
	store     *uploads.Store
	metrics   *metrics.Metrics
	publisher *recordingPublisher
}

func newTestRepo(t *testing.T) *storage.SQLite {
	t.Helper()
	repo, err := storage.NewSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, repo.Migrate())
	t.Cleanup(repo.Close)
	return repo
}

func newProjectEnv(t *testing.T, repo storage.Repository) *projectEnv {
	t.Helper()
	if repo == nil {
		repo = newTestRepo(t)
	}
	store, err := uploads.NewStore(t.TempDir(), "/uploads")
	require.NoError(t, err)

	v := validation.New(validation.Limits{MaxPhotoBytes: 1 << 20, MaxDocumentBytes: 2 << 20}).
		WithClock(func() time.Time { return fixedNow })
	m := metrics.New()
	pub := &recordingPublisher{}

	svc := NewProjectService(repo, v, store, pub, m, zap.NewNop()).
		WithClock(func() time.Time { return fixedNow })
	return &projectEnv{svc: svc, repo: repo, store: store, metrics: m, publisher: pub}
}
