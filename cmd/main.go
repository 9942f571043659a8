package main

import (
	"context"
	"log"
	"time"

	"github.com/chenBenjamin97/football-tactics/pkg/api"
	"github.com/chenBenjamin97/football-tactics/pkg/config"
	"github.com/chenBenjamin97/football-tactics/pkg/pipeline"
	"github.com/spf13/viper"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	if err := config.Load(); err != nil {
		log.Fatalf("Error: Could not read config file, got '%v'", err)
	}

	//create missing directories from config file
	config.EnsureDirectories()

	opts, err := config.Options()
	if err != nil {
		log.Fatalf("Error: Invalid analysis configuration, got '%v'", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	detector, err := config.Detector()
	if err != nil {
		log.Fatalf("Error: Missing critical configurations, got '%v'", err)
	}

	blob, err := config.Blob(ctx)
	if err != nil {
		log.Fatalf("Error: Could not initialize storage, got '%v'", err)
	}
	log.Printf("Storage backend: %s", blob.Name())

	cfg := pipeline.Config{
		Detector:  detector,
		Opener:    pipeline.BlobOpener{Store: blob, TmpDir: viper.GetString("directory.tmp")},
		Blob:      blob,
		Generator: config.Generator(),
		Tactics:   config.Tactics(),
	}

	var server api.Server
	rec, err := config.Recorder(ctx)
	if err != nil {
		log.Printf("Error: Postgres unavailable, analyses will only be stored as JSON, got '%v'", err)
	} else if rec != nil {
		defer rec.Close()
		cfg.Recorder = rec
		server.Recorder = rec
	}

	analyzer, err := pipeline.New(cfg)
	if err != nil {
		log.Fatalf("Error: Got '%v'", err)
	}
	defer analyzer.Close()

	server.Analyzer = analyzer
	server.Blob = blob
	server.Config = api.Config{
		Token:          viper.GetString("upload.token"),
		MaxUploadBytes: viper.GetInt64("upload.max-size-mb") << 20,
		MaxDurationSec: viper.GetFloat64("upload.max-duration-sec"),
		TmpDir:         viper.GetString("directory.tmp"),
		ModelName:      viper.GetString("model.name"),
		Options:        opts,
	}
	if server.Config.Token == "" {
		log.Printf("Warning: API_TOKEN not set, /api routes are unauthenticated")
	}

	r := api.SetRouter(&server)
	if err := r.Run(":" + viper.GetString("http.port")); err != nil {
		log.Fatalf("Error: Got '%v'", err)
	}
}
