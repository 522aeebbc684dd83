package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"

	"github.com/canectors/basic-cleaning/internal/logger"
	"github.com/canectors/basic-cleaning/internal/pathutil"
	"github.com/canectors/basic-cleaning/pkg/cleaning"
)

// Defaults.
const (
	DefaultArtifactRoot = "./artifacts"
	DefaultTrackingDSN  = "./cleaning-data/tracking.db"
	DefaultWorkDir      = "."
	DefaultOutputFile   = "clean_sample.csv"
	DefaultJobType      = "basic_cleaning"
)

// Environment variables, applied over the settings file.
const (
	EnvArtifactRoot    = "CLEANING_ARTIFACT_ROOT"
	EnvTrackingDSN     = "CLEANING_TRACKING_DSN"
	EnvTrackingEnabled = "CLEANING_TRACKING_ENABLED"
	EnvWorkDir         = "CLEANING_WORK_DIR"
	EnvOutputFile      = "CLEANING_OUTPUT_FILE"
	EnvJobType         = "CLEANING_JOB_TYPE"
)

// ErrInvalidSettings wraps every settings failure.
var ErrInvalidSettings = errors.New("invalid settings")

// Settings is the environment of a cleaning run. The cleaning parameters
// themselves always come from the command line.
type Settings struct {
	ArtifactRoot    string                  `json:"artifactRoot"`
	TrackingDSN     string                  `json:"trackingDsn"`
	TrackingEnabled bool                    `json:"trackingEnabled"`
	WorkDir         string                  `json:"workDir"`
	OutputFile      string                  `json:"outputFile"`
	JobType         string                  `json:"jobType"`
	MetricsFile     string                  `json:"metricsFile,omitempty"`
	ExtraFilters    []cleaning.ModuleConfig `json:"extraFilters,omitempty"`
}

// Defaults returns the built-in settings.
func Defaults() Settings {
	return Settings{
		ArtifactRoot:    DefaultArtifactRoot,
		TrackingDSN:     DefaultTrackingDSN,
		TrackingEnabled: true,
		WorkDir:         DefaultWorkDir,
		OutputFile:      DefaultOutputFile,
		JobType:         DefaultJobType,
	}
}

// Loader resolves settings. Getenv defaults to os.Getenv and EnvFile to
// ".env"; a missing env file is not an error.
type Loader struct {
	EnvFile string
	Getenv  func(string) string
}

// Load builds settings from defaults, then the settings file at path (if
// non-empty), then the environment.
func Load(path string) (Settings, error) {
	return (&Loader{}).Load(path)
}

// Load resolves the three layers.
func (l *Loader) Load(path string) (Settings, error) {
	s := Defaults()

	if path != "" {
		if err := pathutil.ValidateFilePath(path); err != nil {
			return s, fmt.Errorf("%w: %v", ErrInvalidSettings, err)
		}
		result := ParseFile(path)
		if err := result.Err(); err != nil {
			for _, e := range result.AllErrors() {
				logger.Debug("settings file error", slog.String("path", path), slog.String("error", e.Error()))
			}
			return s, fmt.Errorf("%w: %v", ErrInvalidSettings, err)
		}
		if err := s.merge(result.Data); err != nil {
			return s, fmt.Errorf("%w: %s: %v", ErrInvalidSettings, path, err)
		}
		logger.Debug("settings file loaded", slog.String("path", path), slog.String("format", result.Format))
	}

	if err := l.applyEnv(&s); err != nil {
		return s, fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

// Validate checks the resolved settings.
func (s Settings) Validate() error {
	switch {
	case s.ArtifactRoot == "":
		return fmt.Errorf("%w: artifact root is empty", ErrInvalidSettings)
	case s.WorkDir == "":
		return fmt.Errorf("%w: work dir is empty", ErrInvalidSettings)
	case s.JobType == "":
		return fmt.Errorf("%w: job type is empty", ErrInvalidSettings)
	case s.TrackingEnabled && s.TrackingDSN == "":
		return fmt.Errorf("%w: tracking is enabled but the DSN is empty", ErrInvalidSettings)
	}
	if err := pathutil.ValidateFileName(s.OutputFile); err != nil {
		return fmt.Errorf("%w: output file: %v", ErrInvalidSettings, err)
	}
	for i, f := range s.ExtraFilters {
		if f.Type == "" {
			return fmt.Errorf("%w: extra filter %d has no type", ErrInvalidSettings, i)
		}
	}
	return nil
}

// merge copies schema-validated file values over s.
func (s *Settings) merge(data map[string]interface{}) error {
	strField := func(key string, dst *string) {
		if v, ok := data[key]; ok {
			*dst = cast.ToString(v)
		}
	}
	strField("artifactRoot", &s.ArtifactRoot)
	strField("trackingDsn", &s.TrackingDSN)
	strField("workDir", &s.WorkDir)
	strField("outputFile", &s.OutputFile)
	strField("jobType", &s.JobType)
	strField("metricsFile", &s.MetricsFile)

	if v, ok := data["trackingEnabled"]; ok {
		b, err := cast.ToBoolE(v)
		if err != nil {
			return fmt.Errorf("trackingEnabled: %w", err)
		}
		s.TrackingEnabled = b
	}

	if v, ok := data["extraFilters"]; ok {
		items, err := cast.ToSliceE(v)
		if err != nil {
			return fmt.Errorf("extraFilters: %w", err)
		}
		s.ExtraFilters = make([]cleaning.ModuleConfig, 0, len(items))
		for i, item := range items {
			m, err := cast.ToStringMapE(item)
			if err != nil {
				return fmt.Errorf("extraFilters[%d]: %w", i, err)
			}
			mc := cleaning.ModuleConfig{Type: cast.ToString(m["type"])}
			if c, ok := m["config"]; ok {
				if mc.Config, err = cast.ToStringMapE(c); err != nil {
					return fmt.Errorf("extraFilters[%d].config: %w", i, err)
				}
			}
			s.ExtraFilters = append(s.ExtraFilters, mc)
		}
	}
	return nil
}

func (l *Loader) applyEnv(s *Settings) error {
	envFile := l.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	getenv := l.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	// .env values never override the real environment.
	fileEnv, err := godotenv.Read(envFile)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("reading %s: %w", envFile, err)
	}
	lookup := func(key string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return fileEnv[key]
	}

	for key, dst := range map[string]*string{
		EnvArtifactRoot: &s.ArtifactRoot,
		EnvTrackingDSN:  &s.TrackingDSN,
		EnvWorkDir:      &s.WorkDir,
		EnvOutputFile:   &s.OutputFile,
		EnvJobType:      &s.JobType,
	} {
		if v := lookup(key); v != "" {
			*dst = v
		}
	}
	if v := lookup(EnvTrackingEnabled); v != "" {
		b, err := cast.ToBoolE(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTrackingEnabled, err)
		}
		s.TrackingEnabled = b
	}
	return nil
}
