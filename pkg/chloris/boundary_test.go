package chloris

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// boundaryAPIServer accepts boundary submissions and records the request
// bodies.
func boundaryAPIServer(t *testing.T) (*httptest.Server, *[]map[string]any) {
	t.Helper()
	var bodies []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/boundary" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decoding submission body: %v", err)
		}
		bodies = append(bodies, body)
		w.Write([]byte("{}"))
	}))
	t.Cleanup(srv.Close)
	return srv, &bodies
}

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestUploadBoundaryFile(t *testing.T) {
	srv, bodies := boundaryAPIServer(t)
	broker := &fakeBroker{identityID: "us-east-1:abc-123", creds: testCreds()}
	store := &fakeStore{headResults: []headResult{
		{err: ErrNotFound("object", "k")},
		{err: ErrNotFound("object", "k")},
		{meta: map[string]string{}},
	}}
	c, slept := newTestClient(t, &Backends{Broker: broker, Store: store})
	c.apiEndpoint = srv.URL + "/api/"
	c.httpClient = srv.Client()

	file := writeTempFile(t, t.TempDir(), "site.geojson", `{"type":"FeatureCollection"}`)
	got, err := c.UploadBoundaryFile(context.Background(), file, "")
	if err != nil {
		t.Fatalf("UploadBoundaryFile() error = %v", err)
	}

	if len(store.putKeys) != 1 {
		t.Fatalf("put called %d times, want 1", len(store.putKeys))
	}
	key := store.putKeys[0]
	if !strings.HasPrefix(key, "private/us-east-1:abc-123/apiUploads/") || !strings.HasSuffix(key, ".geojson") {
		t.Errorf("upload key = %q", key)
	}
	if store.putMeta[0]["organization-id"] != "org-1" {
		t.Errorf("metadata = %v, missing organization-id", store.putMeta[0])
	}

	if len(*bodies) != 1 {
		t.Fatalf("submitted %d times, want 1", len(*bodies))
	}
	body := (*bodies)[0]
	if body["organizationId"] != "org-1" {
		t.Errorf("organizationId = %v", body["organizationId"])
	}
	if body["uploadPath"] != "s3://user-files/"+key {
		t.Errorf("uploadPath = %v", body["uploadPath"])
	}
	if v, ok := body["excludeGeometryPath"]; !ok || v != nil {
		t.Errorf("excludeGeometryPath = %v, want explicit null", v)
	}

	wantURI := "s3://user-files/protected/us-east-1:abc-123/uploads/" + body["uploadId"].(string) + ".geojson"
	if got != wantURI {
		t.Errorf("normalized path = %q, want %q", got, wantURI)
	}
	// Two not-yet-there polls mean two backoff sleeps of 5s and 6.5s.
	if len(*slept) != 2 || (*slept)[0] != 5*time.Second {
		t.Errorf("sleeps = %v", *slept)
	}
}

func TestUploadBoundaryFileShapefileSidecars(t *testing.T) {
	srv, _ := boundaryAPIServer(t)
	broker := &fakeBroker{identityID: "us-east-1:abc-123", creds: testCreds()}
	store := &fakeStore{headResults: []headResult{{meta: map[string]string{}}}}
	c, _ := newTestClient(t, &Backends{Broker: broker, Store: store})
	c.apiEndpoint = srv.URL + "/api/"
	c.httpClient = srv.Client()

	dir := t.TempDir()
	shp := writeTempFile(t, dir, "parcel.shp", "shp")
	writeTempFile(t, dir, "parcel.dbf", "dbf")
	writeTempFile(t, dir, "parcel.prj", "prj")
	// No .shx on disk; its absence must not fail the upload.

	if _, err := c.UploadBoundaryFile(context.Background(), shp, ""); err != nil {
		t.Fatalf("UploadBoundaryFile() error = %v", err)
	}
	if len(store.putKeys) != 3 {
		t.Fatalf("put called %d times, want 3 (dbf, prj, shp)", len(store.putKeys))
	}
	wantExts := []string{".dbf", ".prj", ".shp"}
	for i, key := range store.putKeys {
		if !strings.HasSuffix(key, wantExts[i]) {
			t.Errorf("putKeys[%d] = %q, want suffix %s", i, key, wantExts[i])
		}
	}
	// The submission must reference the .shp object, not a sidecar.
	if !strings.HasSuffix(store.putFiles[2], "parcel.shp") {
		t.Errorf("putFiles[2] = %q, want the .shp last", store.putFiles[2])
	}
}

func TestUploadBoundaryFileValidation(t *testing.T) {
	c, _ := newTestClient(t, &Backends{Broker: &fakeBroker{creds: testCreds()}, Store: &fakeStore{}})

	t.Run("http url rejected", func(t *testing.T) {
		_, err := c.UploadBoundaryFile(context.Background(), "http://example.com/b.geojson", "")
		if !IsKind(err, KindValidation) {
			t.Errorf("error = %v, want validation kind", err)
		}
	})
	t.Run("missing file", func(t *testing.T) {
		_, err := c.UploadBoundaryFile(context.Background(), filepath.Join(t.TempDir(), "nope.geojson"), "")
		if !IsKind(err, KindValidation) {
			t.Errorf("error = %v, want validation kind", err)
		}
	})
}

func TestUploadBoundaryRemoteGeoJSON(t *testing.T) {
	srv, bodies := boundaryAPIServer(t)
	broker := &fakeBroker{identityID: "us-east-1:abc-123", creds: testCreds()}
	store := &fakeStore{headResults: []headResult{{meta: map[string]string{}}}}
	c, _ := newTestClient(t, &Backends{Broker: broker, Store: store})
	c.apiEndpoint = srv.URL + "/api/"
	c.httpClient = srv.Client()

	got, err := c.UploadBoundaryRemoteGeoJSON(context.Background(), "https://example.com/b.geojson", "")
	if err != nil {
		t.Fatalf("UploadBoundaryRemoteGeoJSON() error = %v", err)
	}
	if len(store.putKeys) != 0 {
		t.Errorf("put called %d times, want 0 for a by-reference submission", len(store.putKeys))
	}
	if (*bodies)[0]["uploadPath"] != "https://example.com/b.geojson" {
		t.Errorf("uploadPath = %v", (*bodies)[0]["uploadPath"])
	}
	if !strings.HasPrefix(got, "s3://user-files/protected/us-east-1:abc-123/uploads/") {
		t.Errorf("normalized path = %q", got)
	}
}

func TestUploadBoundaryRemoteGeoJSONValidation(t *testing.T) {
	c, _ := newTestClient(t, &Backends{Broker: &fakeBroker{creds: testCreds()}, Store: &fakeStore{}})

	t.Run("http url rejected", func(t *testing.T) {
		_, err := c.UploadBoundaryRemoteGeoJSON(context.Background(), "http://example.com/b.geojson", "")
		if !IsKind(err, KindValidation) {
			t.Errorf("error = %v, want validation kind", err)
		}
	})
	t.Run("non-s3 exclude path rejected", func(t *testing.T) {
		_, err := c.UploadBoundaryRemoteGeoJSON(context.Background(), "https://example.com/b.geojson", "https://example.com/x.geojson")
		if !IsKind(err, KindValidation) {
			t.Errorf("error = %v, want validation kind", err)
		}
	})
}

func TestWaitForNormalizationRejection(t *testing.T) {
	srv, _ := boundaryAPIServer(t)
	broker := &fakeBroker{identityID: "us-east-1:abc-123", creds: testCreds()}
	store := &fakeStore{headResults: []headResult{
		{meta: map[string]string{"error": "boundary too complex"}},
	}}
	c, _ := newTestClient(t, &Backends{Broker: broker, Store: store})
	c.apiEndpoint = srv.URL + "/api/"
	c.httpClient = srv.Client()

	_, err := c.UploadBoundaryRemoteGeoJSON(context.Background(), "https://example.com/b.geojson", "")
	if !IsKind(err, KindNormalization) {
		t.Fatalf("error = %v, want normalization kind", err)
	}
	if !strings.Contains(err.Error(), "boundary too complex") {
		t.Errorf("error %q does not carry the server reason", err)
	}
}

func TestWaitForNormalizationTimeout(t *testing.T) {
	srv, _ := boundaryAPIServer(t)
	broker := &fakeBroker{identityID: "us-east-1:abc-123", creds: testCreds()}
	// The default head result with no canned entries is not_found forever.
	store := &fakeStore{}
	c, slept := newTestClient(t, &Backends{Broker: broker, Store: store})
	c.apiEndpoint = srv.URL + "/api/"
	c.httpClient = srv.Client()

	_, err := c.UploadBoundaryRemoteGeoJSON(context.Background(), "https://example.com/b.geojson", "")
	if !IsKind(err, KindTimeout) {
		t.Fatalf("error = %v, want timeout kind", err)
	}
	var total time.Duration
	for _, d := range *slept {
		total += d
	}
	if total >= pollBudget {
		t.Errorf("slept %v in total, budget is %v", total, pollBudget)
	}
	if len(*slept) == 0 {
		t.Error("expected some polling before timing out")
	}
}

func TestCompoundExt(t *testing.T) {
	tests := []struct {
		file string
		want string
	}{
		{"boundary.geojson", "geojson"},
		{"/tmp/a/boundary.kml", "kml"},
		{"archive.shp.zip", "shp.zip"},
		{"noext", ""},
	}
	for _, tt := range tests {
		if got := compoundExt(tt.file); got != tt.want {
			t.Errorf("compoundExt(%q) = %q, want %q", tt.file, got, tt.want)
		}
	}
}
