// Package config reads config.yaml and the environment through viper and builds the pipeline collaborators.
package config

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/chenBenjamin97/football-tactics/pkg/llm"
	"github.com/chenBenjamin97/football-tactics/pkg/pipeline"
	"github.com/chenBenjamin97/football-tactics/pkg/storage"
	"github.com/chenBenjamin97/football-tactics/pkg/tactics"
	"github.com/chenBenjamin97/football-tactics/pkg/video"
	"github.com/spf13/viper"
)

//Load reads config.yaml from the given directories (working directory when none) and binds the environment.
//A missing file is not an error, every key has a default.
func Load(paths ...string) error {
	setDefaults()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{"."}
	}
	for _, p := range paths {
		viper.AddConfigPath(p)
	}

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
	for key, env := range map[string]string{
		"llm.anthropic.api-key": "ANTHROPIC_API_KEY",
		"llm.openai.api-key":    "OPENAI_API_KEY",
		"storage.bucket":        "GCS_BUCKET_NAME",
		"postgres.url":          "POSTGRES_URL",
		"upload.token":          "API_TOKEN",
	} {
		if err := viper.BindEnv(key, env); err != nil {
			return fmt.Errorf("config.Load: Error binding %s, got '%v'", env, err)
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("config.Load: Error, got '%v'", err)
		}
		log.Printf("config.Load: no config file found, using defaults and environment")
	}

	return nil
}

func setDefaults() {
	opts := pipeline.DefaultOptions()
	tc := tactics.DefaultConfig()
	yc := video.DefaultYOLOXConfig()

	viper.SetDefault("http.port", "8080")

	viper.SetDefault("directory.root", "./data")
	viper.SetDefault("directory.tmp", "./data/tmp")
	viper.SetDefault("directory.storage", "./data/storage")

	viper.SetDefault("storage.backend", "local")

	viper.SetDefault("model.name", "yolox_s")
	viper.SetDefault("model.path", yc.ModelPath)
	viper.SetDefault("model.input-width", yc.InputWidth)
	viper.SetDefault("model.input-height", yc.InputHeight)
	viper.SetDefault("model.swap-rb", yc.SwapRB)
	viper.SetDefault("model.decoded", yc.Decoded)
	viper.SetDefault("model.detect-ball", yc.DetectBall)

	viper.SetDefault("analysis.sample-fps", opts.SampleFPS)
	viper.SetDefault("analysis.width", opts.Width)
	viper.SetDefault("analysis.height", opts.Height)
	viper.SetDefault("analysis.confidence-threshold", opts.ConfidenceThreshold)
	viper.SetDefault("analysis.nms-threshold", opts.NMSThreshold)
	viper.SetDefault("analysis.max-track-staleness", opts.MaxTrackStaleness)
	viper.SetDefault("analysis.formation-lines", opts.FormationLines)
	viper.SetDefault("analysis.persist-frames", opts.PersistFrames)
	viper.SetDefault("analysis.annotate", opts.Annotate)
	viper.SetDefault("analysis.weakness-threshold", tc.WeaknessThreshold)
	viper.SetDefault("analysis.max-weaknesses", tc.MaxWeaknesses)

	viper.SetDefault("llm.max-output-tokens", tc.MaxOutputTokens)
	viper.SetDefault("llm.timeout", tc.NarrativeTimeout)

	viper.SetDefault("upload.max-size-mb", 500)
	viper.SetDefault("upload.max-duration-sec", 900)
}

//Options returns the analysis options from the "analysis" section, environment overrides included
func Options() (pipeline.Options, error) {
	opts := pipeline.Options{
		SampleFPS:           viper.GetFloat64("analysis.sample-fps"),
		Width:               viper.GetInt("analysis.width"),
		Height:              viper.GetInt("analysis.height"),
		ConfidenceThreshold: viper.GetFloat64("analysis.confidence-threshold"),
		NMSThreshold:        viper.GetFloat64("analysis.nms-threshold"),
		MaxTrackStaleness:   viper.GetInt("analysis.max-track-staleness"),
		FormationLines:      viper.GetInt("analysis.formation-lines"),
		PersistFrames:       viper.GetBool("analysis.persist-frames"),
		Annotate:            viper.GetBool("analysis.annotate"),
	}
	return opts, opts.Validate()
}

//Tactics returns the synthesizer settings
func Tactics() tactics.Config {
	return tactics.Config{
		WeaknessThreshold: viper.GetInt("analysis.weakness-threshold"),
		MaxWeaknesses:     viper.GetInt("analysis.max-weaknesses"),
		MaxOutputTokens:   viper.GetInt("llm.max-output-tokens"),
		NarrativeTimeout:  viper.GetDuration("llm.timeout"),
	}
}

//Detector loads the YOLOX model described by the "model" section
func Detector() (*video.YOLOXDetector, error) {
	if viper.GetString("model.path") == "" {
		return nil, fmt.Errorf("config.Detector: Error, model.path is required")
	}
	return video.NewYOLOX(video.YOLOXConfig{
		ModelPath:   viper.GetString("model.path"),
		InputWidth:  viper.GetInt("model.input-width"),
		InputHeight: viper.GetInt("model.input-height"),
		SwapRB:      viper.GetBool("model.swap-rb"),
		Scale:       1.0 / 255.0,
		Decoded:     viper.GetBool("model.decoded"),
		DetectBall:  viper.GetBool("model.detect-ball"),
	})
}

//Blob builds the storage backend named by storage.backend
func Blob(ctx context.Context) (storage.Blob, error) {
	switch backend := viper.GetString("storage.backend"); backend {
	case "gcs":
		return storage.NewGCS(ctx, storage.GCSConfig{
			Bucket:          viper.GetString("storage.bucket"),
			CredentialsFile: viper.GetString("storage.credentials-file"),
			Endpoint:        viper.GetString("storage.endpoint"),
		})
	case "local":
		return storage.NewLocal(viper.GetString("directory.storage"))
	case "memory":
		return storage.NewMemory(), nil
	default:
		return nil, fmt.Errorf("config.Blob: Error, unknown storage backend '%s'", backend)
	}
}

//Recorder connects to Postgres when postgres.url is set. Returns nil, nil when it is not.
func Recorder(ctx context.Context) (*storage.PostgresRecorder, error) {
	url := viper.GetString("postgres.url")
	if url == "" {
		return nil, nil
	}
	return storage.OpenPostgres(ctx, url)
}

//Generator builds the narrative provider chain: Anthropic first, then an OpenAI-compatible endpoint.
//Returns nil when no provider is configured, the template narrative is then always used.
func Generator() tactics.TextGenerator {
	chain := llm.NewChain()
	timeout := viper.GetDuration("llm.timeout")

	if key := viper.GetString("llm.anthropic.api-key"); key != "" {
		c, err := llm.NewAnthropic(llm.Config{
			APIKey:  key,
			Model:   viper.GetString("llm.anthropic.model"),
			BaseURL: viper.GetString("llm.anthropic.base-url"),
			Timeout: timeout,
		})
		if err != nil {
			log.Printf("config.Generator: anthropic disabled, got '%v'", err)
		} else {
			chain.Add("anthropic", c)
		}
	}

	if base, key := viper.GetString("llm.openai.base-url"), viper.GetString("llm.openai.api-key"); base != "" || key != "" {
		c, err := llm.NewOpenAI(llm.Config{
			APIKey:  key,
			Model:   viper.GetString("llm.openai.model"),
			BaseURL: base,
			Timeout: timeout,
		})
		if err != nil {
			log.Printf("config.Generator: openai disabled, got '%v'", err)
		} else {
			chain.Add("openai", c)
		}
	}

	if chain.Len() == 0 {
		log.Printf("config.Generator: no text generation provider configured, narratives use the template")
		return nil
	}
	return chain
}

//EnsureDirectories creates every directory.* path that does not exist yet
func EnsureDirectories() {
	for key := range viper.GetStringMap("directory") {
		dir := viper.GetString("directory." + key)
		if dir == "" {
			continue
		}
		if _, err := os.Stat(dir); err != nil && os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0766); err != nil {
				log.Printf("Error Creating '%s' directory, got '%v'", dir, err)
			}
		}
	}
}
