package chloris

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// derivedEntryFields are read-only substructures the API does not accept on
// writes; they are stripped before a PUT.
var derivedEntryFields = []string{"downloads", "stats", "layersConfig"}

// yearFields are known numeric fields that some API surfaces return as
// strings; they are coerced to integers on read.
var yearFields = []string{"periodChangeStartYear", "periodChangeEndYear"}

// canonicalDataBucketURI is the canonical bucket prefix embedded in stored
// dataPath values, rewritten to the client's data endpoint on read.
const canonicalDataBucketURI = "s3://chloris-app-data/data/"

// PutReportingUnit creates or updates a reporting unit. Derived fields are
// stripped from the entry before the write; the server's canonical entry is
// returned.
func (c *Client) PutReportingUnit(ctx context.Context, entry ReportingUnit) (ReportingUnit, error) {
	payload := entry.clone()
	for _, field := range derivedEntryFields {
		delete(payload, field)
	}
	var result ReportingUnit
	err := c.apiJSON(ctx, http.MethodPut, c.apiEndpoint+"reportingUnit", payload, &result, "put reporting unit")
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListActiveSites lists the organization's active sites, paginating through
// the list endpoint until the server returns no further cursor. Soft-deleted
// entries and branch entries are filtered out client-side.
func (c *Client) ListActiveSites(ctx context.Context) ([]ReportingUnit, error) {
	var sites []ReportingUnit
	var nextToken any
	for {
		body := map[string]any{
			"organizationId": c.organizationID,
			"nextToken":      nextToken,
		}
		var page struct {
			ReportingUnits []ReportingUnit `json:"reportingUnits"`
			NextToken      any             `json:"nextToken"`
		}
		if err := c.apiJSON(ctx, http.MethodPost, c.apiEndpoint+"reportingUnit", body, &page, "list reporting units"); err != nil {
			return nil, err
		}
		for _, entry := range page.ReportingUnits {
			if entry["deletedAt"] != nil || entry["branchId"] != nil {
				continue
			}
			coerceYearFields(entry)
			sites = append(sites, entry)
		}
		if page.NextToken == nil {
			break
		}
		nextToken = page.NextToken
	}
	return sites, nil
}

// GetReportingUnitOptions selects the optional enrichments fetched by
// GetReportingUnit. Each enrichment is best-effort: a fetch failure is
// logged and the field simply omitted.
type GetReportingUnitOptions struct {
	IncludeStats        bool
	IncludeLayersConfig bool
	IncludeDownloads    bool
}

// GetReportingUnit fetches a site with its control site, if it has one. The
// server may return the linked control entry as a second element; when it
// does, the control entry is nested under controlReportingUnit on the first.
func (c *Client) GetReportingUnit(ctx context.Context, reportingUnitID string, opts GetReportingUnitOptions) (ReportingUnit, error) {
	body := map[string]any{
		"organizationId":  c.organizationID,
		"reportingUnitId": reportingUnitID,
	}
	var entries []ReportingUnit
	if err := c.apiJSON(ctx, http.MethodPost, c.apiEndpoint+"reportingUnit", body, &entries, "get reporting unit"); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrNotFound("reporting unit", reportingUnitID)
	}
	for i, entry := range entries {
		coerceYearFields(entry)
		entries[i] = c.enrichReportingUnit(ctx, entry, opts)
	}
	entry := entries[0]
	if len(entries) > 1 {
		entry["controlReportingUnit"] = entries[1]
	}
	return entry, nil
}

// enrichmentOutcome records what happened to one best-effort enrichment, so
// "not available" stays distinguishable from "fetch failed".
type enrichmentOutcome struct {
	name    string
	applied bool
	err     error
}

// enrichReportingUnit applies the requested best-effort enrichments to an
// entry. Failures are swallowed by design; they are logged and recorded as
// outcomes rather than propagated.
func (c *Client) enrichReportingUnit(ctx context.Context, entry ReportingUnit, opts GetReportingUnitOptions) ReportingUnit {
	var outcomes []enrichmentOutcome
	if opts.IncludeStats {
		outcome := enrichmentOutcome{name: "stats"}
		if stats, err := c.GetReportingUnitStats(ctx, entry); err != nil {
			outcome.err = err
		} else {
			// Merge stats into the entry; stats values win on conflicts.
			merged := entry.clone()
			for k, v := range stats {
				merged[k] = v
			}
			entry = merged
			outcome.applied = true
		}
		outcomes = append(outcomes, outcome)
	}
	if opts.IncludeLayersConfig {
		outcome := enrichmentOutcome{name: "layersConfig"}
		if layers, err := c.GetReportingUnitLayersConfig(ctx, entry); err != nil {
			outcome.err = err
		} else {
			entry["layersConfig"] = layers
			outcome.applied = true
		}
		outcomes = append(outcomes, outcome)
	}
	if opts.IncludeDownloads {
		outcome := enrichmentOutcome{name: "downloads"}
		if downloads, err := c.GetReportingUnitDownloads(ctx, entry); err != nil {
			outcome.err = err
		} else if downloads != nil {
			entry["downloads"] = downloads
			outcome.applied = true
		}
		outcomes = append(outcomes, outcome)
	}
	for _, outcome := range outcomes {
		if outcome.err != nil {
			c.logger.Debug("skipping reporting unit enrichment",
				zap.String("enrichment", outcome.name), zap.Error(outcome.err))
		}
	}
	return entry
}

// GetReportingUnitStats fetches the stats for a site from its data path.
// Refused locally, without a network call, until the site's analysis is
// complete and quality controlled.
func (c *Client) GetReportingUnitStats(ctx context.Context, entry ReportingUnit) (map[string]any, error) {
	if !analysisComplete(entry) {
		return nil, ErrValidation("analysis not completed")
	}
	var stats map[string]any
	url := c.reportingUnitDataPath(entry) + "stats.json"
	if err := c.apiJSON(ctx, http.MethodGet, url, nil, &stats, "get reporting unit stats"); err != nil {
		return nil, err
	}
	coerceYearFields(stats)
	// The stats document carries its own areaKm2 which conflicts with the
	// reporting unit's vector area.
	delete(stats, "areaKm2")
	return stats, nil
}

// GetReportingUnitLayersConfig fetches the layers config for a site from its
// data path, under the same local analysis-complete gate as stats.
func (c *Client) GetReportingUnitLayersConfig(ctx context.Context, entry ReportingUnit) (map[string]any, error) {
	if !analysisComplete(entry) {
		return nil, ErrValidation("analysis not completed")
	}
	var layers map[string]any
	url := c.reportingUnitDataPath(entry) + "layers.json"
	if err := c.apiJSON(ctx, http.MethodGet, url, nil, &layers, "get reporting unit layers config"); err != nil {
		return nil, err
	}
	return layers, nil
}

// GetReportingUnitDownloads fetches the downloads index for a site, if
// available. A site whose analysis is not yet complete yields nil, not an
// error, and so does an unavailable or unparsable index.
func (c *Client) GetReportingUnitDownloads(ctx context.Context, entry ReportingUnit) (map[string]any, error) {
	if !analysisComplete(entry) {
		return nil, nil
	}
	url := c.reportingUnitDataPath(entry) + "downloads.json"
	status, data, err := c.apiRequest(ctx, http.MethodGet, url, nil, "get reporting unit downloads")
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, nil
	}
	var downloads map[string]any
	if err := json.Unmarshal(data, &downloads); err != nil {
		return nil, nil
	}
	return downloads, nil
}

// SubmitSiteParams are the parameters for SubmitSite. Boundary paths are
// local file paths or https URLs to geojson files on a remote server.
type SubmitSiteParams struct {
	Label       string
	Description string
	Tags        []string

	// BoundaryPath is the primary site boundary.
	BoundaryPath string

	// ControlBoundaryPath optionally supplies a control site boundary. Its
	// normalized footprint is carved out of any overlap with the primary
	// boundary.
	ControlBoundaryPath string

	// Notify controls email notifications when the site is ready. Defaults
	// to true when nil.
	Notify *bool

	PeriodChangeStartYear *int
	PeriodChangeEndYear   *int

	// Resolution is the desired output resolution in meters, 30 or 10.
	Resolution *int

	ForestBaselineYear *int

	// Extra fields are merged into the reporting unit entry as-is.
	Extra map[string]any
}

// SubmitSite submits a new site: it uploads and normalizes the primary
// boundary, then the control boundary with the primary's normalized footprint
// excluded, then registers a reporting unit referencing both normalized
// paths. The upload method is chosen per boundary from its own path scheme.
func (c *Client) SubmitSite(ctx context.Context, params SubmitSiteParams) (ReportingUnit, error) {
	if strings.HasPrefix(params.BoundaryPath, "http://") ||
		strings.HasPrefix(params.ControlBoundaryPath, "http://") {
		return nil, ErrValidation("http urls are not allowed when uploading from a remote server, please use https")
	}

	var boundaryPath, controlBoundaryPath string
	var err error
	if isRemoteURL(params.BoundaryPath) {
		boundaryPath, err = c.UploadBoundaryRemoteGeoJSON(ctx, params.BoundaryPath, "")
	} else {
		boundaryPath, err = c.UploadBoundaryFile(ctx, params.BoundaryPath, "")
	}
	if err != nil {
		return nil, err
	}

	if params.ControlBoundaryPath != "" {
		if isRemoteURL(params.ControlBoundaryPath) {
			if !isGeoJSONName(params.ControlBoundaryPath) {
				return nil, ErrValidation("only geojson files are supported when submitting sites from a remote url")
			}
			controlBoundaryPath, err = c.UploadBoundaryRemoteGeoJSON(ctx, params.ControlBoundaryPath, boundaryPath)
		} else {
			controlBoundaryPath, err = c.UploadBoundaryFile(ctx, params.ControlBoundaryPath, boundaryPath)
		}
		if err != nil {
			return nil, err
		}
	}

	if boundaryPath == "" {
		return nil, ErrValidation("failed to upload boundary")
	}
	if params.ControlBoundaryPath != "" && controlBoundaryPath == "" {
		return nil, ErrValidation("failed to upload control boundary")
	}

	notify := true
	if params.Notify != nil {
		notify = *params.Notify
	}
	entry := ReportingUnit{
		"organizationId":        c.organizationID,
		"label":                 params.Label,
		"description":           params.Description,
		"tags":                  params.Tags,
		"boundaryPath":          boundaryPath,
		"notify":                notify,
		"periodChangeStartYear": intOrNil(params.PeriodChangeStartYear),
		"periodChangeEndYear":   intOrNil(params.PeriodChangeEndYear),
		"resolution":            intOrNil(params.Resolution),
		"forestBaselineYear":    intOrNil(params.ForestBaselineYear),
	}
	if controlBoundaryPath != "" {
		entry["controlBoundaryPath"] = controlBoundaryPath
	}
	for k, v := range params.Extra {
		entry[k] = v
	}
	return c.PutReportingUnit(ctx, entry)
}

// reportingUnitDataPath resolves the derived-data base path for an entry,
// always slash-terminated. Entries may carry an explicit dataPath, possibly
// as a canonical bucket URI that must be rewritten to the data endpoint;
// otherwise the path is derived from the organization, the reporting unit id
// and an optional version id.
func (c *Client) reportingUnitDataPath(entry ReportingUnit) string {
	dataPath, _ := entry["dataPath"].(string)
	if dataPath == "" {
		id, _ := entry["reportingUnitId"].(string)
		if version, _ := entry["versionId"].(string); version != "" {
			id = id + "_" + version
		}
		org, _ := entry["organizationId"].(string)
		if org == "" {
			org = c.organizationID
		}
		return strings.TrimRight(c.dataEndpoint, "/") + "/" + org + "/" + id + "/"
	}
	dataPath = strings.TrimRight(dataPath, "/") + "/"
	if strings.HasPrefix(dataPath, "s3://") {
		dataPath = strings.Replace(dataPath, canonicalDataBucketURI, c.dataEndpoint, 1)
	}
	return dataPath
}

// analysisComplete reports whether the site's analysis results are ready to
// read: both the analysis and its quality control must have completed.
func analysisComplete(entry ReportingUnit) bool {
	return truthy(entry["analysisCompletedAt"]) && truthy(entry["qualityControlledAt"])
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	default:
		return true
	}
}

// coerceYearFields normalizes string-typed year fields to integers in place.
func coerceYearFields(entry map[string]any) {
	for _, field := range yearFields {
		if s, ok := entry[field].(string); ok {
			if n, err := strconv.Atoi(s); err == nil {
				entry[field] = n
			}
		}
	}
}

func isRemoteURL(path string) bool {
	return strings.HasPrefix(strings.ToLower(path), "https://")
}

func isGeoJSONName(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".geojson") || strings.HasSuffix(lower, ".json")
}

func intOrNil(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
