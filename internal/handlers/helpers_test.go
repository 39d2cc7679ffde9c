package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bluecarbon/registry/internal/metrics"
	"github.com/bluecarbon/registry/internal/middleware"
	"github.com/bluecarbon/registry/internal/services"
	"github.com/bluecarbon/registry/internal/storage"
	"github.com/bluecarbon/registry/internal/uploads"
	"github.com/bluecarbon/registry/internal/validation"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var fixedNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

var (
	jpegBytes = append([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}, bytes.Repeat([]byte{0x11}, 256)...)
	pngBytes  = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 13, 'I', 'H', 'D', 'R'}
)

var testJWT = middleware.JWTConfig{Secret: "handler-secret", Expiration: time.Hour, CookieName: "token"}

func init() {
	gin.SetMode(gin.TestMode)
}

type upload struct {
	field string
	name  string
	data  []byte
}

func photoUploads(field string, n int) []upload {
	out := make([]upload, n)
	for i := range out {
		out[i] = upload{field: field, name: fmt.Sprintf("plot-%d.jpg", i+1), data: jpegBytes}
	}
	return out
}

type testServer struct {
	router  *gin.Engine
	repo    *storage.SQLite
	store   *uploads.Store
	metrics *metrics.Metrics
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	repo, err := storage.NewSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, repo.Migrate())
	t.Cleanup(repo.Close)

	store, err := uploads.NewStore(t.TempDir(), "/uploads")
	require.NoError(t, err)

	v := validation.New(validation.Limits{MaxPhotoBytes: 1 << 20, MaxDocumentBytes: 2 << 20}).
		WithClock(func() time.Time { return fixedNow })
	m := metrics.New()
	logger := zap.NewNop()

	projectService := services.NewProjectService(repo, v, store, nil, m, logger).
		WithClock(func() time.Time { return fixedNow })
	authService := services.NewAuthService(repo, nil, logger).WithCost(bcrypt.MinCost)

	router := NewRouter(RouterDeps{
		Projects:       NewProjectHandler(projectService, 16<<20, logger),
		Auth:           NewAuthHandler(authService, testJWT, false, logger),
		Health:         NewHealthHandler(repo, logger),
		Metrics:        m,
		JWT:            testJWT,
		AllowedOrigins: []string{"http://localhost:3000"},
		UploadsDir:     store.Dir(),
		UploadsPrefix:  "/uploads",
		Logger:         logger,
	})
	return &testServer{router: router, repo: repo, store: store, metrics: m}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func multipartRequest(t *testing.T, projectType string, values map[string]string, files []upload) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if projectType != "" {
		require.NoError(t, w.WriteField("type", projectType))
	}
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

	req := httptest.NewRequest(http.MethodPost, "/api/projects", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func jsonRequest(t *testing.T, method, path string, payload any) *http.Request {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == testJWT.CookieName {
			return c
		}
	}
	return nil
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return fmt.Errorf("connection refused") }

func localValues() map[string]string {
	return map[string]string{
		"title":       "Mangrove replanting at Pichavaram",
		"ownerName":   "Asha Raman",
		"ownerPhone":  "+91 98765 43210",
		"ownerEmail":  "asha@example.org",
		"country":     "India",
		"place":       "Pichavaram, Tamil Nadu",
		"lat":         "11.4290",
		"lng":         "79.7850",
		"areaHa":      "3.2",
		"plantCount":  "1500",
		"startDate":   "2025-06-01",
		"description": "Community planting of Rhizophora seedlings along the creek banks.",
		"ecosystem":   "mangroves",
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
