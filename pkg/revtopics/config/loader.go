package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"

	"github.com/cognicore/revtopics/pkg/revtopics/ingest"
	"github.com/cognicore/revtopics/pkg/revtopics/internalerr"
	"github.com/cognicore/revtopics/pkg/revtopics/normalize"
	"github.com/cognicore/revtopics/pkg/revtopics/stoplist"
)

// Loader resolves the run configuration and constructs components.
// Precedence, lowest first: defaults, YAML file, .env file, process environment.
type Loader struct {
	ConfigPath string // YAML file; TOPIC_CONFIG is used when empty
	EnvFile    string // optional .env file; a missing file is not an error
}

// Components holds the loaded configuration and the objects built from it
type Components struct {
	Config    Config
	Tokenizer *ingest.Tokenizer
	Stoplist  *stoplist.Manager
}

// Load reads all configuration sources and returns initialized components
func (l *Loader) Load() (*Components, error) {
	// godotenv never overrides variables already set in the process.
	if l.EnvFile != "" {
		if err := godotenv.Load(l.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: load %s: %v", internalerr.ErrConfiguration, l.EnvFile, err)
		}
	}

	cfg := Default()
	path := l.ConfigPath
	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		loaded, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	terms := stoplist.English()
	if cfg.Paths.Stoplist != "" {
		sl, err := LoadStoplist(cfg.Paths.Stoplist)
		if err != nil {
			return nil, fmt.Errorf("%w: load stoplist: %v", internalerr.ErrConfiguration, err)
		}
		terms = sl.Terms
	}

	stops := stoplist.NewManager(terms)
	tok := ingest.NewTokenizer(stops)
	tok.SetNormalizer(normalize.Text)

	return &Components{
		Config:    cfg,
		Tokenizer: tok,
		Stoplist:  stops,
	}, nil
}
