package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/chenBenjamin97/football-tactics/pkg/config"
	"github.com/chenBenjamin97/football-tactics/pkg/pipeline"
	"github.com/chenBenjamin97/football-tactics/pkg/storage"
	"github.com/chenBenjamin97/football-tactics/pkg/tactics"
	"github.com/google/uuid"
	"github.com/spf13/viper"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	app := &cli.App{
		Name:      "analyze",
		Usage:     "run the tactical analysis pipeline on one video",
		ArgsUsage: "<video path | gs://bucket/object>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Value: ".", Usage: "directory holding config.yaml"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "write the report to this file instead of stdout"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "json", Usage: "report format: json or yaml"},
			&cli.StringFlag{Name: "video-id", Usage: "id recorded in the report, random when empty"},
			&cli.Float64Flag{Name: "fps", Usage: "sampling rate, overrides analysis.sample-fps"},
			&cli.Float64Flag{Name: "confidence", Usage: "confidence threshold, overrides analysis.confidence-threshold"},
			&cli.Float64Flag{Name: "nms", Usage: "NMS IoU threshold, overrides analysis.nms-threshold"},
			&cli.IntFlag{Name: "max-staleness", Usage: "frames a track survives unmatched, overrides analysis.max-track-staleness"},
			&cli.BoolFlag{Name: "persist", Usage: "store frames and the report in the configured blob store"},
			&cli.BoolFlag{Name: "no-narrative", Usage: "skip text generation and use the template narrative"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("Error: Got '%v'", err)
	}
}

func run(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("expected exactly one video argument", 2)
	}
	ref := c.Args().First()

	format := strings.ToLower(c.String("format"))
	if format != "json" && format != "yaml" {
		return cli.Exit(fmt.Sprintf("unknown format '%s'", format), 2)
	}

	if err := config.Load(c.String("config")); err != nil {
		return err
	}

	opts, err := cliOptions(c)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	detector, err := config.Detector()
	if err != nil {
		return err
	}

	cfg := pipeline.Config{
		Detector: detector,
		Opener:   pipeline.FileOpener{},
		Tactics:  config.Tactics(),
	}
	if !c.Bool("no-narrative") {
		cfg.Generator = config.Generator()
	}

	gcsRef := strings.HasPrefix(ref, "gs://")
	if gcsRef {
		bucket, object, ok := strings.Cut(strings.TrimPrefix(ref, "gs://"), "/")
		if !ok || object == "" {
			return cli.Exit(fmt.Sprintf("invalid gs:// reference '%s'", ref), 2)
		}
		viper.Set("storage.backend", "gcs")
		viper.Set("storage.bucket", bucket)
		ref = object
	}

	var blob storage.Blob
	if gcsRef || c.Bool("persist") {
		if blob, err = config.Blob(ctx); err != nil {
			return err
		}
	}
	if gcsRef {
		cfg.Opener = pipeline.BlobOpener{Store: blob, TmpDir: os.TempDir()}
	}

	if c.Bool("persist") {
		cfg.Blob = blob
		if rec, err := config.Recorder(ctx); err != nil {
			log.Printf("analyze: Postgres unavailable, got '%v'", err)
		} else if rec != nil {
			defer rec.Close()
			cfg.Recorder = rec
		}
	} else {
		opts.PersistFrames = false
		opts.Annotate = false
	}

	analyzer, err := pipeline.New(cfg)
	if err != nil {
		return err
	}
	defer analyzer.Close()

	videoID := c.String("video-id")
	if videoID == "" {
		videoID = uuid.New().String()
	}

	report, err := analyzer.Analyze(ctx, pipeline.Request{VideoID: videoID, Source: ref, VideoURL: c.Args().First()}, opts)
	if err != nil {
		return err
	}

	out := io.Writer(os.Stdout)
	if path := c.String("output"); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
			return err
		}
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	return writeReport(out, report, format)
}

//cliOptions overlays the flags that were set on the configured options
func cliOptions(c *cli.Context) (pipeline.Options, error) {
	opts, err := config.Options()
	if err != nil {
		return opts, err
	}
	if c.IsSet("fps") {
		opts.SampleFPS = c.Float64("fps")
	}
	if c.IsSet("confidence") {
		opts.ConfidenceThreshold = c.Float64("confidence")
	}
	if c.IsSet("nms") {
		opts.NMSThreshold = c.Float64("nms")
	}
	if c.IsSet("max-staleness") {
		opts.MaxTrackStaleness = c.Int("max-staleness")
	}
	return opts, opts.Validate()
}

func writeReport(w io.Writer, report *tactics.Report, format string) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(report)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
