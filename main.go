// Package main is the entry point for the chloris CLI.
//
// The CLI wraps the SDK client for the common workflows: submitting a site
// boundary for analysis, listing and inspecting reporting units, and
// downloading normalized boundaries.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/chloris-geospatial/chloris-app-sdk-go/pkg/chloris"

	// Import the provider to register the default backends
	_ "github.com/chloris-geospatial/chloris-app-sdk-go/pkg/providers/awsauth"
)

const (
	exitError           = 1
	exitValidationError = 2
)

var version = "dev"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if chloris.IsKind(err, chloris.KindValidation) {
			os.Exit(exitValidationError)
		}
		os.Exit(exitError)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		printUsage()
		return nil
	}

	// Tokens and endpoints are commonly kept in a local .env file
	_ = godotenv.Load()

	// Setup context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	cmd := args[0]
	cmdArgs := args[1:]

	switch cmd {
	case "submit":
		return cmdSubmit(ctx, cmdArgs)
	case "sites":
		return cmdSites(ctx, cmdArgs)
	case "site":
		return cmdSite(ctx, cmdArgs)
	case "download":
		return cmdDownload(ctx, cmdArgs)
	case "version":
		return cmdVersion()
	case "help", "-h", "--help":
		printUsage()
		return nil
	default:
		return fmt.Errorf("unknown command: %s\nRun 'chloris help' for usage", cmd)
	}
}

func printUsage() {
	fmt.Println(`chloris - Chloris platform client

Usage:
  chloris <command> [options]

Commands:
  submit      Submit a site boundary for analysis
  sites       List the organization's active sites
  site        Show a reporting unit, optionally with stats and downloads
  download    Download a normalized boundary as GeoJSON
  version     Show version information
  help        Show this help message

Common Options:
  --org <id>              Organization id (default: CHLORIS_ORGANIZATION_ID)
  -v, --verbose           Enable debug logging

Submit Options:
  --label <text>          Site label (required)
  --description <text>    Site description
  --tags <a,b,c>          Comma-separated tags
  --boundary <path>       Boundary file path or https url (required)
  --control <path>        Control boundary file path or https url
  --start-year <year>     Period change start year
  --end-year <year>       Period change end year
  --resolution <meters>   Output resolution, 30 or 10
  --baseline-year <year>  Forest baseline year
  --no-notify             Do not send an email when the site is ready

Site Options:
  --id <id>               Reporting unit id (required)
  --stats                 Include analysis stats
  --layers                Include the layers config
  --downloads             Include the downloads index

Download Options:
  --path <s3-path>        Normalized boundary path (required)
  -o, --out <file>        Output file (default: stdout)

Environment:
  CHLORIS_ORGANIZATION_ID, CHLORIS_ID_TOKEN, CHLORIS_ACCESS_TOKEN,
  CHLORIS_REFRESH_TOKEN, CHLORIS_API_ENDPOINT
  A .env file in the working directory is loaded if present.

Examples:
  # Submit a local boundary
  chloris submit --label "North Parcel" --boundary boundary.geojson

  # Submit with a control site and a fixed analysis window
  chloris submit --label "North Parcel" \
    --boundary boundary.geojson \
    --control control.geojson \
    --start-year 2018 --end-year 2023

  # Inspect a site with its stats
  chloris site --id ru-123 --stats

  # Download a normalized boundary
  chloris download --path s3://bucket/protected/id/uploads/u-1.geojson -o out.geojson`)
}

type commonOpts struct {
	org     string
	verbose bool
}

// takeCommon consumes shared flags from args, returning the leftovers.
func takeCommon(args []string, opts *commonOpts) ([]string, error) {
	var rest []string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--org":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("--org requires an argument")
			}
			opts.org = args[i+1]
			i++
		case "-v", "--verbose":
			opts.verbose = true
		default:
			rest = append(rest, args[i])
		}
	}
	return rest, nil
}

func newClient(ctx context.Context, opts commonOpts) (*chloris.Client, error) {
	logger := zap.NewNop()
	if opts.verbose {
		var err error
		logger, err = zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
	}
	return chloris.New(ctx, opts.org, chloris.WithLogger(logger))
}

func cmdSubmit(ctx context.Context, args []string) error {
	var common commonOpts
	args, err := takeCommon(args, &common)
	if err != nil {
		return err
	}

	var params chloris.SubmitSiteParams
	notify := true
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--label":
			if i+1 >= len(args) {
				return fmt.Errorf("--label requires an argument")
			}
			params.Label = args[i+1]
			i++
		case "--description":
			if i+1 >= len(args) {
				return fmt.Errorf("--description requires an argument")
			}
			params.Description = args[i+1]
			i++
		case "--tags":
			if i+1 >= len(args) {
				return fmt.Errorf("--tags requires an argument")
			}
			params.Tags = strings.Split(args[i+1], ",")
			i++
		case "--boundary":
			if i+1 >= len(args) {
				return fmt.Errorf("--boundary requires an argument")
			}
			params.BoundaryPath = args[i+1]
			i++
		case "--control":
			if i+1 >= len(args) {
				return fmt.Errorf("--control requires an argument")
			}
			params.ControlBoundaryPath = args[i+1]
			i++
		case "--start-year":
			v, err := intArg(args, i, "--start-year")
			if err != nil {
				return err
			}
			params.PeriodChangeStartYear = &v
			i++
		case "--end-year":
			v, err := intArg(args, i, "--end-year")
			if err != nil {
				return err
			}
			params.PeriodChangeEndYear = &v
			i++
		case "--resolution":
			v, err := intArg(args, i, "--resolution")
			if err != nil {
				return err
			}
			params.Resolution = &v
			i++
		case "--baseline-year":
			v, err := intArg(args, i, "--baseline-year")
			if err != nil {
				return err
			}
			params.ForestBaselineYear = &v
			i++
		case "--no-notify":
			notify = false
		default:
			return fmt.Errorf("unknown option: %s", args[i])
		}
	}
	params.Notify = &notify

	if params.Label == "" {
		return fmt.Errorf("--label is required")
	}
	if params.BoundaryPath == "" {
		return fmt.Errorf("--boundary is required")
	}

	client, err := newClient(ctx, common)
	if err != nil {
		return err
	}
	entry, err := client.SubmitSite(ctx, params)
	if err != nil {
		return err
	}
	return printJSON(entry)
}

func cmdSites(ctx context.Context, args []string) error {
	var common commonOpts
	args, err := takeCommon(args, &common)
	if err != nil {
		return err
	}
	if len(args) > 0 {
		return fmt.Errorf("unknown option: %s", args[0])
	}

	client, err := newClient(ctx, common)
	if err != nil {
		return err
	}
	sites, err := client.ListActiveSites(ctx)
	if err != nil {
		return err
	}
	return printJSON(sites)
}

func cmdSite(ctx context.Context, args []string) error {
	var common commonOpts
	args, err := takeCommon(args, &common)
	if err != nil {
		return err
	}

	var id string
	var opts chloris.GetReportingUnitOptions
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--id":
			if i+1 >= len(args) {
				return fmt.Errorf("--id requires an argument")
			}
			id = args[i+1]
			i++
		case "--stats":
			opts.IncludeStats = true
		case "--layers":
			opts.IncludeLayersConfig = true
		case "--downloads":
			opts.IncludeDownloads = true
		default:
			return fmt.Errorf("unknown option: %s", args[i])
		}
	}
	if id == "" {
		return fmt.Errorf("--id is required")
	}

	client, err := newClient(ctx, common)
	if err != nil {
		return err
	}
	entry, err := client.GetReportingUnit(ctx, id, opts)
	if err != nil {
		return err
	}
	return printJSON(entry)
}

func cmdDownload(ctx context.Context, args []string) error {
	var common commonOpts
	args, err := takeCommon(args, &common)
	if err != nil {
		return err
	}

	var path, out string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--path":
			if i+1 >= len(args) {
				return fmt.Errorf("--path requires an argument")
			}
			path = args[i+1]
			i++
		case "-o", "--out":
			if i+1 >= len(args) {
				return fmt.Errorf("--out requires an argument")
			}
			out = args[i+1]
			i++
		default:
			return fmt.Errorf("unknown option: %s", args[i])
		}
	}
	if path == "" {
		return fmt.Errorf("--path is required")
	}

	client, err := newClient(ctx, common)
	if err != nil {
		return err
	}
	geojson, err := client.DownloadGeoJSONBoundary(ctx, path)
	if err != nil {
		return err
	}
	if out == "" {
		_, err = fmt.Print(geojson)
		return err
	}
	return os.WriteFile(out, []byte(geojson), 0o644)
}

func cmdVersion() error {
	fmt.Printf("chloris %s\n", version)
	return nil
}

func intArg(args []string, i int, flag string) (int, error) {
	if i+1 >= len(args) {
		return 0, fmt.Errorf("%s requires an argument", flag)
	}
	v, err := strconv.Atoi(args[i+1])
	if err != nil {
		return 0, fmt.Errorf("%s requires an integer argument: %v", flag, err)
	}
	return v, nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
