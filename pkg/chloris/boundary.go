package chloris

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// shapefileSidecarExts are the sidecar extensions discovered and uploaded
// alongside a .shp primary file. Absence of an optional sidecar is not an
// error; only this fixed set is attempted.
var shapefileSidecarExts = []string{".dbf", ".prj", ".shx"}

// pollBaseDelay and pollGrowth define the 5 * 1.3^i backoff schedule used
// while waiting for normalization.
const (
	pollBaseDelay = 5 * time.Second
	pollGrowth    = 1.3
)

// UploadBoundaryFile uploads a geospatial boundary file to the user files
// bucket and waits for it to be normalized server-side. For a shapefile,
// pass the path to the .shp; sidecar files sharing the base name are
// discovered and uploaded alongside it.
//
// excludeGeometryPath optionally references a previously normalized boundary
// whose footprint should be subtracted, used for control-site boundaries that
// must not overlap the treatment site.
//
// Returns the s3:// URI of the normalized boundary, to be used when
// submitting a new site. The normalization process may repair the boundary in
// unexpected ways; callers can fetch the result with DownloadGeoJSONBoundary
// and check it matches their expectation.
func (c *Client) UploadBoundaryFile(ctx context.Context, file, excludeGeometryPath string) (string, error) {
	if strings.HasPrefix(file, "http://") {
		return "", ErrValidation("http urls are not allowed, please use https")
	}

	var files []string
	if strings.HasSuffix(file, ".shp") {
		base := strings.TrimSuffix(file, ".shp")
		for _, ext := range shapefileSidecarExts {
			if _, err := os.Stat(base + ext); err == nil {
				files = append(files, base+ext)
			}
		}
	}
	files = append(files, file)
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return "", ErrValidation("file does not exist: " + f)
		}
	}

	uploadID := uuid.NewString()
	creds, err := c.temporaryCredentials(ctx)
	if err != nil {
		return "", err
	}

	// Metadata just for traceability.
	metadata := map[string]string{
		"upload-id":       uploadID,
		"organization-id": c.organizationID,
	}

	var uploadKey string
	for _, f := range files {
		uploadKey = scratchUploadKey(creds.IdentityID, uploadID, compoundExt(f))
		if err := c.uploadFile(ctx, uploadKey, f, metadata); err != nil {
			return "", err
		}
	}
	c.logger.Debug("boundary files uploaded",
		zap.String("uploadId", uploadID), zap.Int("files", len(files)))

	uploadPath := fmt.Sprintf("s3://%s/%s", c.env.UserFilesBucket, uploadKey)
	if err := c.submitBoundary(ctx, uploadID, uploadPath, excludeGeometryPath); err != nil {
		return "", err
	}
	return c.waitForNormalization(ctx, uploadID)
}

// UploadBoundaryRemoteGeoJSON submits a boundary hosted on a remote https
// server (or an s3 location) for normalization, passing the URL by reference
// without uploading any bytes, and waits for the normalized result.
func (c *Client) UploadBoundaryRemoteGeoJSON(ctx context.Context, geojsonURL, excludeGeometryPath string) (string, error) {
	if strings.HasPrefix(geojsonURL, "http://") {
		return "", ErrValidation("http urls are not allowed when uploading from a remote server, please use https")
	}
	if excludeGeometryPath != "" && !strings.HasPrefix(excludeGeometryPath, "s3://") {
		return "", ErrValidation("excludeGeometryPath must be a previously normalized s3 path")
	}
	uploadID := uuid.NewString()
	if err := c.submitBoundary(ctx, uploadID, geojsonURL, excludeGeometryPath); err != nil {
		return "", err
	}
	return c.waitForNormalization(ctx, uploadID)
}

// submitBoundary invokes the remote normalization endpoint once. A
// non-success response is terminal for the submission, with the status and
// body captured verbatim.
func (c *Client) submitBoundary(ctx context.Context, uploadID, uploadPath, excludeGeometryPath string) error {
	body := map[string]any{
		"organizationId": c.organizationID,
		"uploadId":       uploadID,
		"uploadPath":     uploadPath,
	}
	if excludeGeometryPath != "" {
		body["excludeGeometryPath"] = excludeGeometryPath
	} else {
		body["excludeGeometryPath"] = nil
	}
	return c.apiJSON(ctx, http.MethodPost, c.apiEndpoint+"boundary", body, nil, "submit boundary for normalization")
}

// waitForNormalization polls the user files bucket for the normalization
// result marker with exponential backoff under a hard wall-clock budget.
// The marker's presence without an error metadata field means success; with
// an error field, the boundary was rejected for the given reason; absence
// means the upload is still processing.
func (c *Client) waitForNormalization(ctx context.Context, uploadID string) (string, error) {
	creds, err := c.temporaryCredentials(ctx)
	if err != nil {
		return "", err
	}
	key := normalizedBoundaryKey(creds.IdentityID, uploadID)

	remaining := pollBudget
	for i := 0; ; i++ {
		meta, err := c.headObjectMetadata(ctx, key)
		switch {
		case err == nil:
			if reason := meta["error"]; reason != "" {
				return "", ErrNormalization(reason)
			}
			return fmt.Sprintf("s3://%s/%s", c.env.UserFilesBucket, key), nil
		case !IsKind(err, KindNotFound):
			return "", err
		}

		delay := time.Duration(float64(pollBaseDelay) * math.Pow(pollGrowth, float64(i)))
		remaining -= delay
		if remaining <= 0 {
			return "", ErrTimeout("could not process your file in the time allowed, please simplify your boundary and try again")
		}
		c.logger.Debug("boundary not normalized yet, backing off",
			zap.String("uploadId", uploadID), zap.Duration("delay", delay))
		c.sleep(delay)
	}
}

// scratchUploadKey is the per-upload scratch location in the caller's private
// space.
func scratchUploadKey(identityID, uploadID, ext string) string {
	return fmt.Sprintf("private/%s/apiUploads/%s.%s", identityID, uploadID, ext)
}

// normalizedBoundaryKey is where the server writes the normalization result
// marker for an upload.
func normalizedBoundaryKey(identityID, uploadID string) string {
	return fmt.Sprintf("protected/%s/uploads/%s.geojson", identityID, uploadID)
}

// compoundExt returns everything after the first dot of the file's base
// name, supporting compound extensions such as .aux.xml.
func compoundExt(file string) string {
	base := filepath.Base(file)
	parts := strings.SplitN(base, ".", 2)
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}
