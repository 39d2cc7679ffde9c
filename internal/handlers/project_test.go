package handlers

import (
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/bluecarbon/registry/internal/metrics"
	"github.com/bluecarbon/registry/internal/middleware"
	"github.com/bluecarbon/registry/internal/models"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateProject_PhotoCountSurvivesRoundTrip(t *testing.T) {
	for _, n := range []int{2, 4, 6} {
		srv := newTestServer(t)

		rec := srv.do(multipartRequest(t, models.TypeLocal, localValues(), photoUploads(models.KindPhotos, n)))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		created := decode(t, rec)
		assert.Equal(t, true, created["success"])
		assert.Equal(t, models.TypeLocal, created["type"])

		rec = srv.do(httptest.NewRequest(http.MethodGet, "/api/projects/"+created["id"].(string), nil))
		require.Equal(t, http.StatusOK, rec.Code)
		got := decode(t, rec)
		assert.Equal(t, models.TypeLocal, got["type"])

		photos := 0
		for _, f := range got["files"].([]any) {
			if f.(map[string]any)["kind"] == models.KindPhotos {
				photos++
			}
		}
		assert.Equal(t, n, photos, "photos=%d", n)
	}
}

func TestCreateProject_Org(t *testing.T) {
	srv := newTestServer(t)
	files := append(photoUploads(models.KindPhotos, 3), upload{field: models.KindSatelliteImages, name: "sentinel.png", data: pngBytes})

	rec := srv.do(multipartRequest(t, models.TypeOrg, orgValues(), files))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	id := decode(t, rec)["id"].(string)
	rec = srv.do(httptest.NewRequest(http.MethodGet, "/api/projects/"+id, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	project := decode(t, rec)["project"].(map[string]any)
	assert.Equal(t, "Coastal Green Trust", project["orgName"])
	assert.Equal(t, 1.0, testutil.ToFloat64(srv.metrics.Submissions.WithLabelValues(models.TypeOrg, metrics.ResultAccepted)))
}

func TestCreateProject_TypeFromQuery(t *testing.T) {
	srv := newTestServer(t)
	req := multipartRequest(t, "", localValues(), photoUploads(models.KindPhotos, 2))
	req.URL.RawQuery = "type=local"

	rec := srv.do(req)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestCreateProject_Rejections(t *testing.T) {
	tests := []struct {
		name        string
		projectType string
		override    map[string]string
		wantField   string
		wantMsg     string
	}{
		{name: "latitude out of range", projectType: models.TypeLocal, override: map[string]string{"lat": "95"}, wantField: "lat"},
		{name: "longitude out of range", projectType: models.TypeLocal, override: map[string]string{"lng": "-180.5"}, wantField: "lng"},
		{name: "four character title", projectType: models.TypeLocal, override: map[string]string{"title": "Mang"}, wantField: "title", wantMsg: "5–200 characters required."},
		{name: "water pH 10", projectType: models.TypeOrg, override: map[string]string{"waterPh": "10"}, wantField: "waterPh", wantMsg: "Water pH should be between 5 and 9."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t)

			values := localValues()
			files := photoUploads(models.KindPhotos, 2)
			if tt.projectType == models.TypeOrg {
				values = orgValues()
				files = photoUploads(models.KindPhotos, 5)
			}
			for k, v := range tt.override {
				values[k] = v
			}

			rec := srv.do(multipartRequest(t, tt.projectType, values, files))
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

			body := decode(t, rec)
			assert.Equal(t, "Validation failed", body["error"])
			fields := body["fields"].(map[string]any)
			require.Contains(t, fields, tt.wantField)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, fields[tt.wantField])
			}
			assert.NotEmpty(t, body["firstInvalid"])

			rec = srv.do(httptest.NewRequest(http.MethodGet, "/api/projects", nil))
			assert.JSONEq(t, `{"projects":[]}`, rec.Body.String())
		})
	}
}

func TestCreateProject_BadRequests(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(multipartRequest(t, "grant", localValues(), nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid project type"}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodPost, "/api/projects", strings.NewReader(`{"type":"local"}`))
	req.Header.Set("Content-Type", "application/json")
	rec = srv.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateProject_RecordsSubmitter(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(jsonRequest(t, http.MethodPost, "/api/signup", map[string]string{
		"name": "Asha Raman", "email": "asha@example.org", "password": "mangroves-2026",
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	userID := decode(t, rec)["user"].(map[string]any)["id"]

	req := multipartRequest(t, models.TypeLocal, localValues(), photoUploads(models.KindPhotos, 2))
	req.AddCookie(cookie)
	rec = srv.do(req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = srv.do(httptest.NewRequest(http.MethodGet, "/api/projects/"+decode(t, rec)["id"].(string), nil))
	project := decode(t, rec)["project"].(map[string]any)
	assert.Equal(t, userID, project["submittedBy"])
}

func TestCreateProject_LocalRejectsSupportingDocs(t *testing.T) {
	srv := newTestServer(t)

	files := append(photoUploads(models.KindPhotos, 2),
		upload{field: models.KindSupportingDocs, name: "x.html", data: []byte("<html><script>alert(document.cookie)</script></html>")})
	rec := srv.do(multipartRequest(t, models.TypeLocal, localValues(), files))
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	body := decode(t, rec)
	fields := body["fields"].(map[string]any)
	assert.Equal(t, "This form does not accept supportingDocs uploads.", fields[models.KindSupportingDocs])
	assert.Equal(t, models.KindSupportingDocs, body["firstInvalid"])

	entries, err := os.ReadDir(srv.store.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCreateProject_SessionForDeletedUser(t *testing.T) {
	srv := newTestServer(t)

	token, err := middleware.GenerateToken(uuid.NewString(), "gone@example.org", testJWT)
	require.NoError(t, err)

	req := multipartRequest(t, models.TypeLocal, localValues(), photoUploads(models.KindPhotos, 2))
	req.AddCookie(&http.Cookie{Name: testJWT.CookieName, Value: token})
	rec := srv.do(req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = srv.do(httptest.NewRequest(http.MethodGet, "/api/projects/"+decode(t, rec)["id"].(string), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decode(t, rec)["project"].(map[string]any)["submittedBy"])
}

func TestListProjects(t *testing.T) {
	srv := newTestServer(t)
	for i := 0; i < 3; i++ {
		rec := srv.do(multipartRequest(t, models.TypeLocal, localValues(), photoUploads(models.KindPhotos, 2)))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := srv.do(httptest.NewRequest(http.MethodGet, "/api/projects", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["projects"], 3)

	rec = srv.do(httptest.NewRequest(http.MethodGet, "/api/projects?limit=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	projects := decode(t, rec)["projects"].([]any)
	require.Len(t, projects, 2)
	assert.Equal(t, models.TypeLocal, projects[0].(map[string]any)["type"])
}

func TestGetProject_NotFound(t *testing.T) {
	srv := newTestServer(t)

	for _, id := range []string{uuid.NewString(), "not-a-uuid"} {
		rec := srv.do(httptest.NewRequest(http.MethodGet, "/api/projects/"+id, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t, `{"error":"Project not found"}`, rec.Body.String())
	}
}

func TestUploadsAreServed(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(multipartRequest(t, models.TypeLocal, localValues(), photoUploads(models.KindPhotos, 2)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = srv.do(httptest.NewRequest(http.MethodGet, "/api/projects/"+decode(t, rec)["id"].(string), nil))
	file := decode(t, rec)["files"].([]any)[0].(map[string]any)
	assert.Equal(t, "image/jpeg", file["mimeType"])

	rec = srv.do(httptest.NewRequest(http.MethodGet, file["url"].(string), nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, jpegBytes, rec.Body.Bytes())
}
