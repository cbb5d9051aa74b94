// Package config loads run settings from YAML, .env and the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/revtopics/pkg/revtopics/dataset"
	"github.com/cognicore/revtopics/pkg/revtopics/internalerr"
)

// Environment variables recognised by ApplyEnv.
const (
	EnvTopics       = "N_TOPICS"
	EnvWords        = "N_WORDS"
	EnvSampleSize   = "TOPIC_SAMPLE_N"
	EnvMinDF        = "TOPIC_MIN_DF"
	EnvMaxFeatures  = "TOPIC_MAX_FEATURES"
	EnvMaxDF        = "TOPIC_MAX_DF"
	EnvSeed         = "TOPIC_SEED"
	EnvMaxIter      = "TOPIC_MAX_ITER"
	EnvBatchSize    = "TOPIC_BATCH_SIZE"
	EnvWorkers      = "TOPIC_WORKERS"
	EnvCleanedFile  = "REVIEWS_CLEAN_FILE"
	EnvEnrichedFile = "REVIEWS_SENTIMENT_FILE"
	EnvTopicsFile   = "TOPICS_FILE"
	EnvStoplistFile = "TOPIC_STOPLIST"
	EnvArchiveDB    = "TOPIC_ARCHIVE_DB"
	EnvConfigFile   = "TOPIC_CONFIG"
)

// Config is every tunable of a topic run.
type Config struct {
	Topics        int     `yaml:"topics"`
	TermsPerTopic int     `yaml:"terms_per_topic"`
	SampleSize    int     `yaml:"sample_size"`
	MinDF         int     `yaml:"min_df"`
	MaxDF         float64 `yaml:"max_df"`
	MaxFeatures   int     `yaml:"max_features"`
	MaxIter       int     `yaml:"max_iter"`
	BatchSize     int     `yaml:"batch_size"`
	Seed          uint64  `yaml:"seed"`
	Workers       int     `yaml:"workers"`

	Paths   Paths           `yaml:"paths"`
	Archive Archive         `yaml:"archive"`
	Columns dataset.Columns `yaml:"columns"`
}

// Paths locates the persisted datasets.
type Paths struct {
	Cleaned  string `yaml:"cleaned"`
	Enriched string `yaml:"enriched"`
	Topics   string `yaml:"topics"`
	Stoplist string `yaml:"stoplist"` // optional YAML `terms:` list replacing the English list
}

// Archive configures the optional SQLite run archive.
type Archive struct {
	Path string `yaml:"path"` // empty disables archiving
}

// Default returns the documented defaults.
func Default() Config {
	return Config{
		Topics:        8,
		TermsPerTopic: 10,
		SampleSize:    100000,
		MinDF:         5,
		MaxDF:         0.90,
		MaxFeatures:   50000,
		MaxIter:       10,
		BatchSize:     2048,
		Seed:          42,
		Workers:       1,
		Paths: Paths{
			Cleaned:  "data/processed/reviews_clean.csv",
			Enriched: "data/processed/reviews_with_sentiment.csv",
			Topics:   "data/processed/topics.csv",
		},
		Columns: dataset.DefaultColumns(),
	}
}

// LoadFile reads a YAML file over the defaults. Keys absent from the file
// keep their default values.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("%w: read %s: %v", internalerr.ErrConfiguration, path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: parse %s: %v", internalerr.ErrConfiguration, path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from the environment. Malformed values are
// reported rather than ignored.
func (c *Config) ApplyEnv() error {
	var errs []string
	intVar := func(key string, dst *int) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s=%q is not an integer", key, v))
				return
			}
			*dst = n
		}
	}
	strVar := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}

	intVar(EnvTopics, &c.Topics)
	intVar(EnvWords, &c.TermsPerTopic)
	intVar(EnvSampleSize, &c.SampleSize)
	intVar(EnvMinDF, &c.MinDF)
	intVar(EnvMaxFeatures, &c.MaxFeatures)
	intVar(EnvMaxIter, &c.MaxIter)
	intVar(EnvBatchSize, &c.BatchSize)
	intVar(EnvWorkers, &c.Workers)
	if v := strings.TrimSpace(os.Getenv(EnvMaxDF)); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s=%q is not a number", EnvMaxDF, v))
		} else {
			c.MaxDF = f
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvSeed)); v != "" {
		s, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s=%q is not a non-negative integer", EnvSeed, v))
		} else {
			c.Seed = s
		}
	}
	strVar(EnvCleanedFile, &c.Paths.Cleaned)
	strVar(EnvEnrichedFile, &c.Paths.Enriched)
	strVar(EnvTopicsFile, &c.Paths.Topics)
	strVar(EnvStoplistFile, &c.Paths.Stoplist)
	strVar(EnvArchiveDB, &c.Archive.Path)

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", internalerr.ErrConfiguration, strings.Join(errs, "; "))
	}
	return nil
}

// Validate checks ranges. A non-positive topic count is reported as
// ErrInvalidTopicCount; everything else as ErrConfiguration.
func (c Config) Validate() error {
	if c.Topics < 1 {
		return fmt.Errorf("%w: %s=%d (need at least 1)", internalerr.ErrInvalidTopicCount, EnvTopics, c.Topics)
	}
	var errs []string
	if c.TermsPerTopic < 1 {
		errs = append(errs, fmt.Sprintf("terms_per_topic=%d < 1", c.TermsPerTopic))
	}
	if c.MinDF < 1 {
		errs = append(errs, fmt.Sprintf("min_df=%d < 1", c.MinDF))
	}
	if c.MaxDF <= 0 || c.MaxDF > 1 {
		errs = append(errs, fmt.Sprintf("max_df=%.2f outside (0, 1]", c.MaxDF))
	}
	if c.MaxFeatures < 1 {
		errs = append(errs, fmt.Sprintf("max_features=%d < 1", c.MaxFeatures))
	}
	if c.MaxIter < 1 {
		errs = append(errs, fmt.Sprintf("max_iter=%d < 1", c.MaxIter))
	}
	if c.BatchSize < 1 {
		errs = append(errs, fmt.Sprintf("batch_size=%d < 1", c.BatchSize))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Sprintf("workers=%d < 1", c.Workers))
	}
	if c.Paths.Cleaned == "" && c.Paths.Enriched == "" {
		errs = append(errs, "no input dataset path configured")
	}
	if c.Paths.Topics == "" {
		errs = append(errs, "no topics output path configured")
	}
	if c.Columns.CleanedText == "" || c.Columns.Topic == "" {
		errs = append(errs, "cleaned_text and topic column names are required")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", internalerr.ErrConfiguration, strings.Join(errs, "; "))
	}
	return nil
}

// Stoplist represents the stopword list configuration
type Stoplist struct {
	Terms []string `yaml:"terms"`
}

// LoadStoplist loads stopwords from a YAML file
func LoadStoplist(path string) (*Stoplist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var sl Stoplist
	if err := yaml.Unmarshal(data, &sl); err != nil {
		return nil, err
	}

	return &sl, nil
}
