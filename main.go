package main

import (
	"context"
	"fmt"
	"github.com/alecthomas/kong"
	"github.com/hauke96/sigolo/v2"
	"osmextract/extract"
	"osmextract/region"
	"osmextract/web"
	"path"
	"strings"
)

const VERSION = "v0.1.0"

var cli struct {
	Logging string      `help:"Logging verbosity." enum:"info,debug,trace" short:"l" default:"info"`
	Version VersionFlag `help:"Print version information and quit" name:"version" short:"v"`
	Extract struct {
		Input       string            `help:"The input file. Either .osm or .osm.pbf, sorted by type and ID." placeholder:"<input-file>" arg:"" type:"existingfile"`
		Config      string            `help:"Extract config file (JSON) defining the regions." short:"c" type:"path"`
		Bbox        string            `help:"Single region given as bbox 'minLon,minLat,maxLon,maxLat'. Requires --output." short:"b"`
		Output      string            `help:"Output file (.osm) of the bbox region." short:"o"`
		Directory   string            `help:"Output directory. Overrides the directory of the config file." short:"d"`
		Option      map[string]string `help:"Strategy options, e.g. 'references=first'. Unknown options are ignored." short:"S"`
		MetricsFile string            `help:"Write extraction statistics to this file in the Prometheus text format." type:"path"`
		MetricsPort string            `help:"Serve extraction statistics on this port while extracting."`
	} `cmd:"" help:"Extracts one or more regions from the given OSM file in one single pass."`
}

type VersionFlag string

func (v VersionFlag) Decode(ctx *kong.DecodeContext) error { return nil }
func (v VersionFlag) IsBool() bool                         { return true }
func (v VersionFlag) BeforeApply(app *kong.Kong, vars kong.Vars) error {
	fmt.Println(vars["version"])
	app.Exit(0)
	return nil
}

func main() {
	ctx := kong.Parse(
		&cli,
		kong.Name("osmextract"),
		kong.Description("Extracts regions from sorted OSM data in one single pass."),
		kong.Vars{
			"version": VERSION,
		},
	)

	if strings.ToLower(cli.Logging) == "debug" {
		sigolo.SetDefaultLogLevel(sigolo.LOG_DEBUG)
	} else if strings.ToLower(cli.Logging) == "trace" {
		sigolo.SetDefaultLogLevel(sigolo.LOG_TRACE)
	} else if strings.ToLower(cli.Logging) == "info" {
		sigolo.SetDefaultLogLevel(sigolo.LOG_INFO)
		sigolo.SetDefaultFormatFunctionAll(sigolo.LogPlain)
	} else {
		sigolo.SetDefaultFormatFunctionAll(sigolo.LogPlain)
		sigolo.Fatalf("Unknown logging level '%s'", cli.Logging)
	}

	switch ctx.Command() {
	case "extract <input>":
		regions := loadRegions()

		strategy, err := extract.NewStrategy(regions, cli.Extract.Option)
		sigolo.FatalCheck(err)

		if cli.Extract.MetricsPort != "" {
			var regionNames []string
			for _, r := range regions {
				regionNames = append(regionNames, r.Name)
			}
			go web.StartServer(cli.Extract.MetricsPort, strategy.Metrics.Registry, web.StatusResponse{
				Strategy: strategy.Name(),
				Regions:  regionNames,
			})
		}

		err = strategy.Run(context.Background(), cli.Extract.Input)
		sigolo.FatalCheck(err)

		if cli.Extract.MetricsFile != "" {
			err = strategy.Metrics.WriteTextfile(cli.Extract.MetricsFile)
			sigolo.FatalCheck(err)
		}
	default:
		sigolo.Errorf("Unknown command '%s'", ctx.Command())
	}
}

func loadRegions() []*region.Region {
	if cli.Extract.Config != "" {
		if cli.Extract.Bbox != "" {
			sigolo.Fatalf("Use either --config or --bbox, not both")
		}
		regions, err := region.LoadRegions(cli.Extract.Config, cli.Extract.Directory)
		sigolo.FatalCheck(err)
		return regions
	}

	if cli.Extract.Bbox == "" || cli.Extract.Output == "" {
		sigolo.Fatalf("Either --config or --bbox together with --output is required")
	}

	bound, err := region.FromBBoxString(cli.Extract.Bbox)
	sigolo.FatalCheck(err)

	sink, err := region.NewFileSink(path.Join(cli.Extract.Directory, cli.Extract.Output))
	sigolo.FatalCheck(err)

	return []*region.Region{region.New(cli.Extract.Output, bound, sink)}
}
