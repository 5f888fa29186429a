// Package chloris is a client for the Chloris platform API.
//
// # Overview
//
// chloris lets you submit site boundaries for analysis and read back the
// resulting reporting units, their statistics, layer configuration and
// download indexes. It handles token refresh, short-lived storage credential
// exchange and the asynchronous boundary normalization workflow for you.
//
// # Core Concepts
//
// ## Client
//
// A Client is scoped to a single organization. It is configured with the
// organization id and a set of session tokens, either passed as options or
// read from the environment:
//   - CHLORIS_ORGANIZATION_ID
//   - CHLORIS_ID_TOKEN
//   - CHLORIS_ACCESS_TOKEN
//   - CHLORIS_REFRESH_TOKEN
//   - CHLORIS_API_ENDPOINT
//
// On construction the client discovers the platform environment from the
// unauthenticated info endpoint and wires up its storage and identity
// backends from that.
//
// ## Boundaries
//
// A boundary is a vector geometry describing a site. Boundaries are uploaded
// either from local files (geojson, gpkg, kml, zipped or bare shapefiles) or
// by reference to an https url, then normalized by the platform. Upload
// methods block until normalization completes and return the normalized
// s3 path.
//
// ## Reporting Units
//
// A reporting unit is a registered site, exposed as a loosely-typed entry
// map mirroring the API's JSON. SubmitSite composes the whole workflow:
// upload and normalize the primary boundary, optionally upload a control
// boundary with the primary's footprint excluded, then register the
// reporting unit.
//
// # Usage
//
//	client, err := chloris.New(ctx, "my-org",
//		chloris.WithRefreshToken(refreshToken))
//	if err != nil {
//		return err
//	}
//	entry, err := client.SubmitSite(ctx, chloris.SubmitSiteParams{
//		Label:        "My Site",
//		BoundaryPath: "boundary.geojson",
//	})
//
// Backends are provided by a registered factory; importing
// pkg/providers/awsauth for side effects installs the default AWS-backed
// implementation:
//
//	import _ "github.com/chloris-geospatial/chloris-app-sdk-go/pkg/providers/awsauth"
package chloris
