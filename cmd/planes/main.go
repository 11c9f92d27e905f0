// Command planes reads a raster-ordered binary point cloud and reports the
// detected planes as JSON.
//
// Stream mode (default) reads width*height little-endian float32 point
// records from stdin:
//
//	planes [flags] <width> <height> < frame.bin
//
// Server mode exposes the same pipeline over HTTP:
//
//	planes -listen :8555
//
// The JSON report goes to stdout; diagnostics go to stderr and never
// interleave with the report.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/surface-data/planedetect/internal/pipeline"
	"github.com/surface-data/planedetect/internal/reportdb"
	"github.com/surface-data/planedetect/internal/server"
	"github.com/surface-data/planedetect/internal/version"
)

// options is the parsed command line. Flags live on an explicit FlagSet so
// parsing and the override mapping can be exercised without running main.
type options struct {
	fs *flag.FlagSet

	minNormalDiff *float64
	maxDist       *float64
	outlierRatio  *float64
	minNumPoints  *int
	nrNeighbors   *int
	workers       *int
	listen        *string
	dbFile        *string
	quiet         *bool
	showVersion   *bool
}

// newOptions defines the flag set. Parse errors and usage go to output.
func newOptions(name string, output io.Writer) *options {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(output)

	o := &options{
		fs:            fs,
		minNormalDiff: fs.Float64("min-normal-diff", pipeline.DefaultMinNormalDiff, "plane-merge normal-angle threshold in degrees"),
		maxDist:       fs.Float64("max-dist", pipeline.DefaultMaxDist, "plane-merge distance-angle threshold in degrees"),
		outlierRatio:  fs.Float64("outlier-ratio", pipeline.DefaultOutlierRatio, "max fraction of outlier points tolerated per plane"),
		minNumPoints:  fs.Int("min-num-points", pipeline.DefaultMinNumPoints, "minimum inliers for a valid plane"),
		nrNeighbors:   fs.Int("nr-neighbors", pipeline.DefaultNumNeighbors, "neighbor count for both neighbor graph and normal estimation"),
		workers:       fs.Int("workers", 0, "neighbor-query worker count (0 = all CPUs)"),
		listen:        fs.String("listen", "", "serve HTTP on this address instead of reading stdin"),
		dbFile:        fs.String("db", "", "archive runs to this SQLite database file"),
		quiet:         fs.Bool("quiet", false, "suppress stage diagnostics on stderr"),
		showVersion:   fs.Bool("version", false, "print version and exit"),
	}

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: %s [flags] <width> <height>\n", name)
		fmt.Fprintf(fs.Output(), "Reads width*height binary point records (3 x float32 LE) from stdin.\n\nFlags:\n")
		fs.PrintDefaults()
	}
	return o
}

// parse consumes the argument list. Unknown flags fail here, before any of
// the input stream is touched; the flag package names the offending option.
func (o *options) parse(args []string) error {
	return o.fs.Parse(args)
}

// params builds the pipeline parameters from the flags the user actually
// set. Defaulted flags stay nil so the detector's own built-in defaults
// apply; each override is independent of the others.
func (o *options) params() pipeline.Params {
	params := pipeline.Params{Workers: *o.workers}
	o.fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "min-normal-diff":
			params.MinNormalDiff = o.minNormalDiff
		case "max-dist":
			params.MaxDist = o.maxDist
		case "outlier-ratio":
			params.OutlierRatio = o.outlierRatio
		case "min-num-points":
			params.MinNumPoints = o.minNumPoints
		case "nr-neighbors":
			params.NumNeighbors = o.nrNeighbors
		}
	})
	return params
}

func main() {
	log.SetOutput(os.Stderr)

	opts := newOptions(os.Args[0], os.Stderr)
	if err := opts.parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	if *opts.showVersion {
		fmt.Println("planes", version.String())
		return
	}

	if *opts.quiet {
		log.SetOutput(io.Discard)
	}

	var archive *reportdb.DB
	if *opts.dbFile != "" {
		var err error
		archive, err = reportdb.Open(*opts.dbFile)
		if err != nil {
			log.SetOutput(os.Stderr)
			log.Fatalf("failed to open run archive: %v", err)
		}
		defer archive.Close()
	}

	params := opts.params()

	if *opts.listen != "" {
		runServer(*opts.listen, params, archive)
		return
	}

	if opts.fs.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "error: width and height arguments are required")
		opts.fs.Usage()
		os.Exit(2)
	}
	width, err := strconv.Atoi(opts.fs.Arg(0))
	if err != nil || width <= 0 {
		fmt.Fprintf(os.Stderr, "error: width must be a positive integer, got %q\n", opts.fs.Arg(0))
		os.Exit(2)
	}
	height, err := strconv.Atoi(opts.fs.Arg(1))
	if err != nil || height <= 0 {
		fmt.Fprintf(os.Stderr, "error: height must be a positive integer, got %q\n", opts.fs.Arg(1))
		os.Exit(2)
	}

	report, err := pipeline.Run(os.Stdin, width, height, params)
	if err != nil {
		log.SetOutput(os.Stderr)
		log.Fatalf("detection run failed: %v", err)
	}

	if err := report.WriteJSON(os.Stdout); err != nil {
		log.SetOutput(os.Stderr)
		log.Fatalf("failed to write report: %v", err)
	}

	if archive != nil {
		runID, err := archive.RecordRun(width, height, params.Resolve(), report)
		if err != nil {
			log.Printf("run archive write failed: %v", err)
		} else {
			log.Printf("archived as run %s", runID)
		}
	}
}

func runServer(address string, params pipeline.Params, archive *reportdb.DB) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(server.Config{
		Address: address,
		Params:  params,
		Archive: archive,
	})
	if err := srv.Start(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
